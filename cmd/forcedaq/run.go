// cmd/forcedaq/run.go
package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tamzrod/force-daq/internal/coordinator"
	"github.com/tamzrod/force-daq/internal/writer"
)

var runCmd = &cobra.Command{
	Use:   "run <config>",
	Short: "Acquire from every configured channel until interrupted",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(args[0])
		if err != nil {
			return err
		}

		logger, err := newLogger(cfg.Log, os.Stderr)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		tags := make([]string, len(cfg.Acquisition.Channels))
		for i, ch := range cfg.Acquisition.Channels {
			tags[i] = ch.Tag
		}

		sinks, err := writer.Build(cfg.Sinks, tags, logger)
		if err != nil {
			return err
		}
		defer func() {
			if err := sinks.Close(); err != nil {
				logger.Warn("sink close failed", "err", err)
			}
		}()

		coord := coordinator.New(logger)
		if err := coord.Start(ctx, cfg.Acquisition.Channels); err != nil {
			return err
		}

		acq := newAcquisition(coord, sinks.Fanout, sinks.Status, logger)
		acq.run(ctx, time.Duration(cfg.Acquisition.DrainIntervalMs)*time.Millisecond)

		logger.Info("shutting down")
		return acq.finish()
	},
}
