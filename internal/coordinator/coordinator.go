// internal/coordinator/coordinator.go

// Package coordinator runs one poller per channel and exposes their queues
// through a non-blocking pull API.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/tamzrod/force-daq/internal/config"
	"github.com/tamzrod/force-daq/internal/link"
	"github.com/tamzrod/force-daq/internal/poller"
	"github.com/tamzrod/force-daq/internal/status"
)

var (
	// ErrAlreadyStarted is returned by Start while channels are running.
	ErrAlreadyStarted = errors.New("coordinator: already started")

	// ErrUnknownChannel is returned for a tag that was never started.
	ErrUnknownChannel = errors.New("coordinator: unknown channel")
)

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithOpener replaces the per-channel link driver with open.
func WithOpener(open link.OpenFunc) Option {
	return func(c *Coordinator) { c.open = open }
}

// Coordinator owns the channel pollers. It never touches link state: each
// poller owns its link, and the queue is the only shared resource.
type Coordinator struct {
	log  *slog.Logger
	open link.OpenFunc

	mu      sync.RWMutex
	running bool
	pollers map[string]*poller.Poller
	order   []string
	cancel  context.CancelFunc
	group   *errgroup.Group
}

// New returns an idle coordinator. logger may be nil.
func New(logger *slog.Logger, opts ...Option) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Coordinator{
		log:     logger,
		pollers: make(map[string]*poller.Poller),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start validates every channel, opens every link and spawns one goroutine
// per channel. It returns as soon as the channels are running.
//
// Configuration errors are reported before any link is opened. If a link
// fails to open, links already opened are closed again.
func (c *Coordinator) Start(ctx context.Context, channels []config.ChannelConfig) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return ErrAlreadyStarted
	}
	if len(channels) == 0 {
		return errors.New("coordinator: no channels")
	}

	seen := make(map[string]struct{}, len(channels))
	for _, ch := range channels {
		if _, dup := seen[ch.Tag]; dup {
			return fmt.Errorf("coordinator: channel %q: duplicate tag", ch.Tag)
		}
		seen[ch.Tag] = struct{}{}

		if err := config.ValidateChannel(ch); err != nil {
			return fmt.Errorf("coordinator: %w", err)
		}
	}

	built := make([]*poller.Poller, 0, len(channels))
	for _, ch := range channels {
		p, err := poller.Build(ch, c.open, c.log)
		if err != nil {
			for _, b := range built {
				_ = b.Close()
			}
			return fmt.Errorf("coordinator: %w", err)
		}
		built = append(built, p)
	}

	runCtx, cancel := context.WithCancel(ctx)
	g := new(errgroup.Group)

	c.pollers = make(map[string]*poller.Poller, len(built))
	c.order = c.order[:0]
	for _, p := range built {
		c.pollers[p.Channel()] = p
		c.order = append(c.order, p.Channel())
		p := p
		g.Go(func() error { return p.Run(runCtx) })
	}

	c.cancel = cancel
	c.group = g
	c.running = true

	c.log.Info("acquisition started", "channels", len(built))
	return nil
}

// Stop signals every poller and waits until all have exited and released
// their links. Queued data stays drainable. Safe to call more than once.
func (c *Coordinator) Stop() error {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return nil
	}
	cancel, g := c.cancel, c.group
	c.running = false
	c.mu.Unlock()

	cancel()
	err := g.Wait()

	c.log.Info("acquisition stopped")
	return err
}

// Running reports whether Start succeeded and Stop was not called since.
func (c *Coordinator) Running() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.running
}

// Channels returns the channel tags in configuration order.
func (c *Coordinator) Channels() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.order...)
}

func (c *Coordinator) lookup(tag string) (*poller.Poller, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.pollers[tag]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownChannel, tag)
	}
	return p, nil
}

// Drain atomically empties one channel queue and returns its samples in
// decode order. It never blocks; an empty queue yields an empty result.
func (c *Coordinator) Drain(tag string) ([]poller.Sample, error) {
	batches, err := c.DrainBatches(tag)
	if err != nil {
		return nil, err
	}
	return poller.Flatten(batches), nil
}

// DrainBatches is Drain keeping production-unit boundaries.
func (c *Coordinator) DrainBatches(tag string) ([]poller.Batch, error) {
	p, err := c.lookup(tag)
	if err != nil {
		return nil, err
	}
	return p.Drain(), nil
}

// DrainAll drains every channel. Channels with nothing queued are omitted.
func (c *Coordinator) DrainAll() map[string][]poller.Batch {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string][]poller.Batch, len(c.pollers))
	for tag, p := range c.pollers {
		if b := p.Drain(); len(b) > 0 {
			out[tag] = b
		}
	}
	return out
}

// Status returns the counters of one channel.
func (c *Coordinator) Status(tag string) (status.Snapshot, error) {
	p, err := c.lookup(tag)
	if err != nil {
		return status.Snapshot{}, err
	}
	return p.Snapshot(), nil
}

// Recent summarizes the recent numeric values of one channel.
func (c *Coordinator) Recent(tag string) (status.WindowStats, error) {
	p, err := c.lookup(tag)
	if err != nil {
		return status.WindowStats{}, err
	}
	return p.Recent(), nil
}
