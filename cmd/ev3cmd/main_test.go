package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moffa90/go-ev3/commander"
	"github.com/moffa90/go-ev3/protocol"
)

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRunSimulated(t *testing.T) {
	tests := []struct {
		name       string
		args       []string
		wantCode   int
		wantStdout string
		wantStderr string
	}{
		{
			name:       "list projects",
			args:       []string{"--simulate", "ls"},
			wantCode:   exitOK,
			wantStdout: "BrkProg_SAVE/\ndemo/\n",
		},
		{
			name:       "list project files",
			args:       []string{"--simulate", "ls", "/home/root/lms2012/prjs/demo"},
			wantCode:   exitOK,
			wantStdout: "demo.rbf\n",
		},
		{
			name:     "delete existing file",
			args:     []string{"--simulate", "rm", "/home/root/lms2012/prjs/demo/demo.rbf"},
			wantCode: exitOK,
		},
		{
			name:       "delete missing file is rejected",
			args:       []string{"--simulate", "rm", "/nope.txt"},
			wantCode:   exitRejected,
			wantStderr: "DELETE_FILE was denied: ILLEGAL_PATH",
		},
		{
			name:     "create directory",
			args:     []string{"--simulate", "mkdir", "/home/root/lms2012/prjs/new"},
			wantCode: exitOK,
		},
		{
			name:       "create existing directory is rejected",
			args:       []string{"--simulate", "mkdir", "/home/root/lms2012/prjs/demo"},
			wantCode:   exitRejected,
			wantStderr: "FILE_EXISTS",
		},
		{
			name:     "no open handles",
			args:     []string{"--simulate", "handles"},
			wantCode: exitOK,
		},
		{
			name:       "close unknown handle",
			args:       []string{"--simulate", "close", "0x05"},
			wantCode:   exitRejected,
			wantStderr: "UNKNOWN_HANDLE",
		},
		{
			name:     "mailbox",
			args:     []string{"--simulate", "mailbox", "abc", "hello"},
			wantCode: exitOK,
		},
		{
			name:       "trace",
			args:       []string{"--simulate", "--trace", "handles"},
			wantCode:   exitOK,
			wantStderr: "-> LIST_OPEN_HANDLES #0 04 00 00 00 01 9D",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, stdout, stderr := runCLI(t, tt.args...)
			assert.Equal(t, tt.wantCode, code, stderr)
			if tt.wantStdout != "" {
				// the simulator reports MD5 and size before file names
				lines := strings.Split(stdout, "\n")
				for i, line := range lines {
					if f := strings.Fields(line); len(f) == 3 {
						lines[i] = f[2]
					}
				}
				assert.Equal(t, tt.wantStdout, strings.Join(lines, "\n"))
			}
			if tt.wantStderr != "" {
				assert.Contains(t, stderr, tt.wantStderr)
			}
		})
	}
}

func TestRunUsage(t *testing.T) {
	tests := []struct {
		name       string
		args       []string
		wantStderr string
	}{
		{name: "no command", args: []string{"--simulate"}, wantStderr: "missing command"},
		{name: "unknown command", args: []string{"--simulate", "format"}, wantStderr: `unknown command "format"`},
		{name: "missing path", args: []string{"--simulate", "rm"}, wantStderr: "rm: wrong number of arguments"},
		{name: "extra args", args: []string{"--simulate", "handles", "x"}, wantStderr: "handles: wrong number of arguments"},
		{name: "bad handle", args: []string{"--simulate", "close", "300"}, wantStderr: "invalid handle"},
		{name: "unknown flag", args: []string{"--baud", "9600", "ls"}, wantStderr: "unknown flag"},
		{name: "bad log level", args: []string{"--simulate", "--log-level", "loud", "ls"}, wantStderr: "unknown log level"},
		{name: "missing config", args: []string{"--simulate", "--config", "/nonexistent/ev3cmd.toml", "ls"}, wantStderr: "load config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, stderr := runCLI(t, tt.args...)
			assert.Equal(t, exitUsage, code)
			assert.Contains(t, stderr, tt.wantStderr)
		})
	}
}

func TestRunHelp(t *testing.T) {
	code, stdout, _ := runCLI(t, "--help")
	assert.Equal(t, exitOK, code)
	assert.Contains(t, stdout, "ev3cmd [flags] rm <path>")
	assert.Contains(t, stdout, "--device")
}

func TestRunDeviceFailure(t *testing.T) {
	code, _, stderr := runCLI(t, "--device", "/nonexistent/rfcomm9", "handles")
	assert.Equal(t, exitFailure, code)
	assert.Contains(t, stderr, "/nonexistent/rfcomm9")
}

func TestRunFlagsOverrideConfig(t *testing.T) {
	path := writeConfig(t, `
device = "/nonexistent/from-file"
log_level = "debug"
`)

	code, _, stderr := runCLI(t, "--config", path, "--device", "/nonexistent/from-flag", "--log-level", "error", "handles")
	assert.Equal(t, exitFailure, code)
	assert.Contains(t, stderr, "/nonexistent/from-flag")
	assert.NotContains(t, stderr, "from-file")
}

func TestListDefaultsToProjectsDir(t *testing.T) {
	var requests [][]byte
	c := commander.New(newDemoBrick(), commander.WithTraceCallback(func(tr commander.Trace) {
		requests = append(requests, tr.Request)
	}))

	op, err := parseOperation([]string{"ls"})
	require.NoError(t, err)
	require.NoError(t, op(context.Background(), c, &bytes.Buffer{}))

	require.Len(t, requests, 1)
	_, payload, err := protocol.ParseRequest(requests[0])
	require.NoError(t, err)
	assert.True(t, bytes.HasSuffix(payload, []byte(protocol.ProjectsDir+"/\x00")))
}
