// internal/poller/poller.go
package poller

import (
	"context"
	"errors"
	"log/slog"
	"time"

	pmodbus "github.com/tamzrod/force-daq/internal/poller/modbus"
	"github.com/tamzrod/force-daq/internal/queue"
	"github.com/tamzrod/force-daq/internal/status"
)

// Config is the minimal runtime config the poller needs.
type Config struct {
	Channel    string
	Interval   time.Duration // minimum spacing between polls; 0 = back-to-back
	Idle       time.Duration // pause after a poll with no link activity
	WindowSize int           // recent-value window; 0 = status.DefaultWindowSize
}

// Poller drives one Source on one channel and owns its outbound queue.
// Source state is touched only by the goroutine running Run.
type Poller struct {
	cfg      Config
	src      Source
	out      *queue.Queue[Batch]
	counters *status.Counters
	window   *status.Window
	log      *slog.Logger
}

// New creates a poller with immutable config.
// counters should be the ones the source reports into; nil allocates fresh ones.
func New(cfg Config, src Source, counters *status.Counters, logger *slog.Logger) (*Poller, error) {
	if cfg.Channel == "" {
		return nil, errors.New("poller: channel tag required")
	}
	if src == nil {
		return nil, errors.New("poller: source required")
	}
	if cfg.Interval < 0 || cfg.Idle < 0 {
		return nil, errors.New("poller: interval and idle must be >= 0")
	}
	if counters == nil {
		counters = status.NewCounters()
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Poller{
		cfg:      cfg,
		src:      src,
		out:      queue.New[Batch](),
		counters: counters,
		window:   status.NewWindow(cfg.WindowSize),
		log:      logger,
	}, nil
}

// PollOnce performs exactly one poll and enqueues what it produced.
// It returns the number of samples enqueued. Steady-state failures are
// counted, never returned.
func (p *Poller) PollOnce(ctx context.Context) int {
	n, _ := p.pollOnce(ctx)
	return n
}

// pollOnce also reports whether the source saw link activity.
func (p *Poller) pollOnce(ctx context.Context) (int, bool) {
	batches, active, err := p.src.Poll(ctx)
	n := p.enqueue(batches)

	if err != nil {
		if errors.Is(err, pmodbus.ErrNoValue) {
			p.counters.Dropped.Add(1)
		} else {
			p.counters.Fail(err)
			p.log.Debug("poll failed", "err", err)
		}
	}
	return n, active || n > 0
}

func (p *Poller) enqueue(batches []Batch) int {
	n := 0
	for _, b := range batches {
		if len(b.Samples) == 0 {
			continue
		}
		for _, s := range b.Samples {
			if s.Numeric {
				p.window.Add(s.Value)
			}
		}
		p.out.Push(b)
		p.counters.Batches.Add(1)
		p.counters.Messages.Add(uint64(len(b.Samples)))
		n += len(b.Samples)
	}
	return n
}

// Channel returns the channel tag.
func (p *Poller) Channel() string { return p.cfg.Channel }

// Drain atomically empties the outbound queue, oldest first. Never blocks.
func (p *Poller) Drain() []Batch { return p.out.Drain() }

// Pending returns the number of queued batches.
func (p *Poller) Pending() int { return p.out.Len() }

// Snapshot returns the channel counters.
func (p *Poller) Snapshot() status.Snapshot { return p.counters.Snapshot() }

// Recent summarizes the recent numeric values.
func (p *Poller) Recent() status.WindowStats { return p.window.Stats() }
