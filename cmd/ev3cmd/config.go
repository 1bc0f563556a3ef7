package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/moffa90/go-ev3/protocol"
)

// config is the effective ev3cmd configuration.
type config struct {
	Device          string
	ReadTimeout     time.Duration
	CommandInterval time.Duration
	MaxReplySize    int
	StrictCounter   bool
	LogLevel        string
}

func defaultConfig() config {
	return config{
		Device:       "/dev/rfcomm0",
		ReadTimeout:  5 * time.Second,
		MaxReplySize: protocol.DefaultMaxReplySize,
		LogLevel:     "warn",
	}
}

type fileConfig struct {
	Device          string `toml:"device"`
	ReadTimeout     string `toml:"read_timeout"`
	CommandInterval string `toml:"command_interval"`
	MaxReplySize    int    `toml:"max_reply_size"`
	StrictCounter   bool   `toml:"strict_counter"`
	LogLevel        string `toml:"log_level"`
}

// loadConfig overlays the keys defined in the TOML file at path onto cfg.
func loadConfig(path string, cfg config) (config, error) {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return config{}, fmt.Errorf("load config: %w", err)
	}

	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return config{}, fmt.Errorf("load config: unknown key %q", undecoded[0].String())
	}

	if meta.IsDefined("device") {
		if d := strings.TrimSpace(raw.Device); d != "" {
			cfg.Device = d
		}
	}

	if meta.IsDefined("read_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.ReadTimeout))
		if err != nil {
			return config{}, fmt.Errorf("parse read_timeout: %w", err)
		}
		cfg.ReadTimeout = d
	}

	if meta.IsDefined("command_interval") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.CommandInterval))
		if err != nil {
			return config{}, fmt.Errorf("parse command_interval: %w", err)
		}
		cfg.CommandInterval = d
	}

	if meta.IsDefined("max_reply_size") {
		if raw.MaxReplySize < protocol.MinReplySize {
			return config{}, fmt.Errorf("max_reply_size %d is smaller than a reply header", raw.MaxReplySize)
		}
		cfg.MaxReplySize = raw.MaxReplySize
	}

	if meta.IsDefined("strict_counter") {
		cfg.StrictCounter = raw.StrictCounter
	}

	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}

	return cfg, nil
}
