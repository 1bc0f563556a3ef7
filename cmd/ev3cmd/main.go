// ev3cmd runs file system and mailbox system commands on an EV3 brick
// reached through a serial device, typically the rfcomm node of a paired
// brick.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/spf13/pflag"

	"github.com/moffa90/go-ev3/commander"
	"github.com/moffa90/go-ev3/logging"
	"github.com/moffa90/go-ev3/protocol"
	"github.com/moffa90/go-ev3/simulator"
	"github.com/moffa90/go-ev3/transport"
)

const (
	exitOK       = 0
	exitFailure  = 1
	exitUsage    = 2
	exitRejected = 3
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	var (
		configPath string
		device     string
		logLevel   string
		simulate   bool
		trace      bool
	)
	cfg := defaultConfig()

	flagSet := pflag.NewFlagSet("ev3cmd", pflag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagSet.StringVar(&configPath, "config", "", "path to a TOML configuration file")
	flagSet.StringVarP(&device, "device", "d", cfg.Device, "serial device of the brick")
	flagSet.Duration("timeout", cfg.ReadTimeout, "reply timeout")
	flagSet.Duration("interval", cfg.CommandInterval, "minimum spacing between commands")
	flagSet.Bool("strict", false, "reject replies whose counter does not match the request")
	flagSet.BoolVar(&simulate, "simulate", false, "talk to an in-memory brick instead of a device")
	flagSet.BoolVar(&trace, "trace", false, "dump every request and reply to stderr")
	flagSet.StringVar(&logLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn, error, off")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(stdout, flagSet)
			return exitOK
		}
		fmt.Fprintf(stderr, "ev3cmd: %v\n", err)
		printHelp(stderr, flagSet)
		return exitUsage
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(stdout, flagSet)
		return exitOK
	}

	if configPath != "" {
		loaded, err := loadConfig(configPath, cfg)
		if err != nil {
			fmt.Fprintf(stderr, "ev3cmd: %v\n", err)
			return exitUsage
		}
		cfg = loaded
	}

	// flags given on the command line win over the file
	if flagSet.Changed("device") {
		cfg.Device = device
	}
	if flagSet.Changed("timeout") {
		cfg.ReadTimeout, _ = flagSet.GetDuration("timeout")
	}
	if flagSet.Changed("interval") {
		cfg.CommandInterval, _ = flagSet.GetDuration("interval")
	}
	if flagSet.Changed("strict") {
		cfg.StrictCounter, _ = flagSet.GetBool("strict")
	}
	if flagSet.Changed("log-level") {
		cfg.LogLevel = logLevel
	}

	if _, ok := logging.ParseLevel(cfg.LogLevel); !ok {
		fmt.Fprintf(stderr, "ev3cmd: unknown log level %q\n", cfg.LogLevel)
		return exitUsage
	}
	log := logging.New(stderr, logging.Options{Level: cfg.LogLevel})

	cmdArgs := flagSet.Args()
	if len(cmdArgs) == 0 {
		fmt.Fprintln(stderr, "ev3cmd: missing command")
		printHelp(stderr, flagSet)
		return exitUsage
	}
	op, err := parseOperation(cmdArgs)
	if err != nil {
		fmt.Fprintf(stderr, "ev3cmd: %v\n", err)
		return exitUsage
	}

	var dev transport.Transport
	if simulate {
		dev = newDemoBrick()
		log.Debug().Msg("using simulated brick")
	} else {
		log.Debug().Str("device", cfg.Device).Msg("opening device")
		dev, err = openDevice(cfg.Device)
		if err != nil {
			fmt.Fprintf(stderr, "ev3cmd: %v\n", err)
			return exitFailure
		}
	}
	defer dev.Close()

	opts := []commander.Option{
		commander.WithLogger(logging.NewAdapter(log)),
		commander.WithReadTimeout(cfg.ReadTimeout),
		commander.WithCommandInterval(cfg.CommandInterval),
		commander.WithMaxReplySize(cfg.MaxReplySize),
		commander.WithStrictCounter(cfg.StrictCounter),
	}
	if trace {
		opts = append(opts, commander.WithTraceCallback(traceTo(stderr)))
	}
	cmdr := commander.New(dev, opts...)

	if err := op(ctx, cmdr, stdout); err != nil {
		fmt.Fprintf(stderr, "ev3cmd: %v\n", err)
		if commander.IsRejected(err) {
			return exitRejected
		}
		return exitFailure
	}

	log.Debug().Str("command", cmdArgs[0]).Msg("done")
	return exitOK
}

type operation func(ctx context.Context, c *commander.Commander, out io.Writer) error

// parseOperation validates the positional arguments of a subcommand.
func parseOperation(args []string) (operation, error) {
	name, rest := args[0], args[1:]

	want := map[string][2]int{
		"rm":      {1, 1},
		"mkdir":   {1, 1},
		"ls":      {0, 1},
		"handles": {0, 0},
		"close":   {1, 1},
		"mailbox": {2, 2},
	}
	n, ok := want[name]
	if !ok {
		return nil, fmt.Errorf("unknown command %q", name)
	}
	if len(rest) < n[0] || len(rest) > n[1] {
		return nil, fmt.Errorf("%s: wrong number of arguments", name)
	}

	switch name {
	case "rm":
		return func(ctx context.Context, c *commander.Commander, _ io.Writer) error {
			return c.DeleteFile(ctx, rest[0])
		}, nil

	case "mkdir":
		return func(ctx context.Context, c *commander.Commander, _ io.Writer) error {
			return c.CreateDir(ctx, rest[0])
		}, nil

	case "ls":
		dir := protocol.ProjectsDir + "/"
		if len(rest) == 1 {
			dir = rest[0]
		}
		return func(ctx context.Context, c *commander.Commander, out io.Writer) error {
			listing, err := c.ListFiles(ctx, dir)
			if err != nil {
				return err
			}
			_, err = io.WriteString(out, protocol.FormatListing(listing.Entries))
			return err
		}, nil

	case "handles":
		return func(ctx context.Context, c *commander.Commander, out io.Writer) error {
			handles, err := c.ListOpenHandles(ctx)
			if err != nil {
				return err
			}
			for _, h := range handles {
				fmt.Fprintln(out, h)
			}
			return nil
		}, nil

	case "close":
		h, err := strconv.ParseUint(rest[0], 0, 8)
		if err != nil {
			return nil, fmt.Errorf("close: invalid handle %q", rest[0])
		}
		return func(ctx context.Context, c *commander.Commander, _ io.Writer) error {
			return c.CloseFileHandle(ctx, byte(h))
		}, nil

	default: // mailbox
		return func(ctx context.Context, c *commander.Commander, _ io.Writer) error {
			return c.WriteMailbox(ctx, rest[0], []byte(rest[1]))
		}, nil
	}
}

func traceTo(w io.Writer) commander.TraceCallback {
	return func(t commander.Trace) {
		fmt.Fprintf(w, "-> %s #%d % X\n", t.Command, t.Counter, t.Request)
		switch {
		case t.Err != nil:
			fmt.Fprintf(w, "<- %s after %s: %v\n", t.Command, t.Elapsed, t.Err)
		default:
			fmt.Fprintf(w, "<- %s after %s % X\n", t.Command, t.Elapsed, t.Reply)
		}
	}
}

// newDemoBrick returns a simulated brick with one sample project.
func newDemoBrick() *simulator.Brick {
	b := simulator.New()
	b.AddFile(simulator.ProjectsDir+"/demo/demo.rbf", []byte("LEGO demo program"))
	b.AddDir(simulator.ProjectsDir + "/BrkProg_SAVE")
	return b
}

func printHelp(w io.Writer, flagSet *pflag.FlagSet) {
	fmt.Fprint(w, strings.TrimLeft(`
Usage:
  ev3cmd [flags] rm <path>
  ev3cmd [flags] mkdir <path>
  ev3cmd [flags] ls [path]
  ev3cmd [flags] handles
  ev3cmd [flags] close <handle>
  ev3cmd [flags] mailbox <name> <message>

Exit status is 0 on success, 1 when the brick could not be reached,
2 on usage errors and 3 when the brick refused the command.

Flags:
`, "\n"))
	flagSet.SetOutput(w)
	flagSet.PrintDefaults()
	flagSet.SetOutput(io.Discard)
}
