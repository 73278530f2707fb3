// cmd/forcedaq/acquisition.go
package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/tamzrod/force-daq/internal/coordinator"
	"github.com/tamzrod/force-daq/internal/status"
	"github.com/tamzrod/force-daq/internal/writer"
)

// acquisition is the consumer side of a run: it drains the coordinator into
// the sinks and owns per-channel health (runner-owned state, 1 Hz ticker).
type acquisition struct {
	coord    *coordinator.Coordinator
	out      writer.Writer
	status   map[string]writer.StatusWriter
	trackers map[string]*status.Tracker
	log      *slog.Logger
}

func newAcquisition(coord *coordinator.Coordinator, out writer.Writer, sw map[string]writer.StatusWriter, logger *slog.Logger) *acquisition {
	a := &acquisition{
		coord:    coord,
		out:      out,
		status:   sw,
		trackers: make(map[string]*status.Tracker),
		log:      logger,
	}
	for _, tag := range coord.Channels() {
		a.trackers[tag] = status.NewTracker()
	}
	return a
}

// run drains every interval and ticks health every second until ctx ends.
func (a *acquisition) run(ctx context.Context, interval time.Duration) {
	// Full block write on start (identity re-assert).
	for _, tag := range a.coord.Channels() {
		a.publish(tag)
	}

	drainTicker := time.NewTicker(interval)
	defer drainTicker.Stop()
	secTicker := time.NewTicker(time.Second)
	defer secTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-drainTicker.C:
			a.drain()
		case <-secTicker.C:
			a.tick()
		}
	}
}

// drain moves every queued batch to the sinks and folds the cycle into
// channel health.
func (a *acquisition) drain() {
	for _, tag := range a.coord.Channels() {
		batches, err := a.coord.DrainBatches(tag)
		if err != nil {
			a.log.Error("drain failed", "channel", tag, "err", err)
			continue
		}

		produced := 0
		for _, b := range batches {
			produced += len(b.Samples)
		}

		if produced > 0 && a.out != nil {
			if err := a.out.Write(tag, batches); err != nil {
				a.log.Warn("sink write failed", "channel", tag, "err", err)
			}
		}

		snap, err := a.coord.Status(tag)
		if err != nil {
			continue
		}
		a.trackers[tag].Observe(snap, produced)
		a.publish(tag)
	}
}

func (a *acquisition) tick() {
	for _, tag := range a.coord.Channels() {
		if a.trackers[tag].Tick() {
			a.publish(tag)
		}
	}
}

// publish writes the current status block of one channel. Unchanged slots
// are not rewritten by the status writer.
func (a *acquisition) publish(tag string) {
	sw, ok := a.status[tag]
	if !ok {
		return
	}
	snap, err := a.coord.Status(tag)
	if err != nil {
		return
	}
	if err := sw.WriteStatus(a.trackers[tag].Apply(snap)); err != nil {
		a.log.Warn("status write failed", "channel", tag, "err", err)
	}
}

// finish stops the pollers, delivers what they flushed and publishes the
// stopped state.
func (a *acquisition) finish() error {
	err := a.coord.Stop()
	a.drain()
	for _, tag := range a.coord.Channels() {
		a.trackers[tag].Stop()
		a.publish(tag)
	}
	return err
}
