// internal/poller/runner.go
package poller

import (
	"context"
	"time"
)

// Run polls until ctx is cancelled, then flushes any partial batch into the
// queue and closes the source. One goroutine per channel.
//
// Without an interval, polls run back-to-back while the link delivers bytes
// or fresh readings, and pause for Idle otherwise.
//
// Cancellation is observed between polls; a poll in progress is bounded by
// the link timeout.
func (p *Poller) Run(ctx context.Context) error {
	p.log.Info("channel started")
	defer p.shutdown()

	var tick <-chan time.Time
	if p.cfg.Interval > 0 {
		ticker := time.NewTicker(p.cfg.Interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	idle := time.NewTimer(p.cfg.Idle)
	idle.Stop()
	defer idle.Stop()

	for {
		if ctx.Err() != nil {
			return nil
		}

		_, active := p.pollOnce(ctx)

		var wait <-chan time.Time
		switch {
		case tick != nil:
			wait = tick
		case !active && p.cfg.Idle > 0:
			idle.Reset(p.cfg.Idle)
			wait = idle.C
		default:
			continue
		}

		select {
		case <-ctx.Done():
			return nil
		case <-wait:
		}
	}
}

func (p *Poller) shutdown() {
	p.enqueue(p.src.Flush())
	if err := p.src.Close(); err != nil {
		p.log.Warn("channel close failed", "err", err)
	}
	p.log.Info("channel stopped", "pending_batches", p.Pending())
}
