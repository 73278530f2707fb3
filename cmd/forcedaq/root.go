// cmd/forcedaq/root.go
package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tamzrod/force-daq/internal/config"
)

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "forcedaq",
	Short: "Force instrument acquisition over serial links",
	Long: `forcedaq reads force instruments over serial links and hands the samples
to the configured sinks.

Channels speak either the continuous ASCII stream (delimiter framed) or
Modbus RTU (holding register float32). Each channel runs independently.

Sinks: named pipe, Modbus TCP registers and status blocks, WebSocket push,
SQLite.`,
	Version:      "1.0.0",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override log.level (debug|info|warn|error)")

	rootCmd.AddCommand(runCmd, checkCmd, portsCmd)
}

// loadConfig runs the config phases in order: load, validate, normalize.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("config load failed: %w", err)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	config.Normalize(cfg)
	return cfg, nil
}

func newLogger(lc config.LogConfig, w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(lc.Level)); err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	opts := &slog.HandlerOptions{Level: level}

	switch strings.ToLower(lc.Format) {
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return slog.New(slog.NewTextHandler(w, opts)), nil
	}
}
