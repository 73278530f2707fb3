// internal/poller/source.go
package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tamzrod/force-daq/internal/link"
	"github.com/tamzrod/force-daq/internal/poller/ascii"
	pmodbus "github.com/tamzrod/force-daq/internal/poller/modbus"
	"github.com/tamzrod/force-daq/internal/status"
)

// Source produces the batches of one channel.
// Poll blocks at most about one link timeout. active reports whether the link
// delivered anything (bytes or a fresh reading), even if no batch is ready.
type Source interface {
	Poll(ctx context.Context) (batches []Batch, active bool, err error)
	// Flush returns whatever is partially accumulated. Called once on stop.
	Flush() []Batch
	Close() error
}

// DefaultReopenDelay spaces reopen attempts of a lost ascii link.
const DefaultReopenDelay = time.Second

// ---- ASCII ----

// ASCIISource reads raw chunks from a link into a frame decoder.
type ASCIISource struct {
	channel  string
	open     func() (link.Link, error)
	link     link.Link
	dec      *ascii.Decoder
	chunk    []byte
	counters *status.Counters
	log      *slog.Logger

	now         func() time.Time
	reopenDelay time.Duration
	lastOpen    time.Time
}

// NewASCIISource opens the link once (fail fast at startup).
func NewASCIISource(channel string, open func() (link.Link, error), dec *ascii.Decoder, counters *status.Counters, logger *slog.Logger) (*ASCIISource, error) {
	if open == nil || dec == nil {
		return nil, errors.New("poller: ascii source needs a link opener and a decoder")
	}
	if counters == nil {
		counters = status.NewCounters()
	}
	if logger == nil {
		logger = slog.Default()
	}

	l, err := open()
	if err != nil {
		return nil, err
	}

	return &ASCIISource{
		channel:     channel,
		open:        open,
		link:        l,
		dec:         dec,
		chunk:       make([]byte, dec.ChunkSize()),
		counters:    counters,
		log:         logger,
		now:         time.Now,
		reopenDelay: DefaultReopenDelay,
	}, nil
}

// Poll performs one bounded read and feeds it to the decoder.
// A timeout is not an error: it just means no bytes were available.
func (s *ASCIISource) Poll(ctx context.Context) ([]Batch, bool, error) {
	if s.link == nil {
		if err := s.reopen(); err != nil {
			return nil, false, err
		}
		if s.link == nil {
			return nil, false, nil // waiting out the reopen delay
		}
	}

	n, err := s.link.Read(s.chunk)
	s.counters.Reads.Add(1)

	var out []Batch
	if n > 0 {
		s.counters.Successes.Add(1)
		at := s.now()
		for _, texts := range s.dec.Feed(s.chunk[:n]) {
			out = append(out, messageBatch(s.channel, at, texts))
		}
	}

	if err != nil && !errors.Is(err, link.ErrTimeout) {
		// Hard link failure: drop the link, reopen on a later poll.
		s.log.Warn("ascii link lost", "err", err)
		_ = s.link.Close()
		s.link = nil
		s.lastOpen = s.now()
		return out, n > 0, fmt.Errorf("poller: read: %w", err)
	}
	return out, n > 0, nil
}

func (s *ASCIISource) reopen() error {
	if s.now().Sub(s.lastOpen) < s.reopenDelay {
		return nil
	}
	s.lastOpen = s.now()
	s.counters.Resets.Add(1)

	l, err := s.open()
	if err != nil {
		s.log.Debug("ascii link reopen failed", "err", err)
		return fmt.Errorf("poller: reopen: %w", err)
	}
	s.log.Info("ascii link reopened")
	s.link = l
	return nil
}

func (s *ASCIISource) Flush() []Batch {
	texts := s.dec.Flush()
	if len(texts) == 0 {
		return nil
	}
	return []Batch{messageBatch(s.channel, s.now(), texts)}
}

func (s *ASCIISource) Close() error {
	if s.link == nil {
		return nil
	}
	err := s.link.Close()
	s.link = nil
	return err
}

// ---- MODBUS RTU ----

// ModbusSource issues one logical float read per poll.
type ModbusSource struct {
	channel   string
	client    *pmodbus.Client
	precision int
}

// NewModbusSource wraps an already connected client.
func NewModbusSource(channel string, client *pmodbus.Client, precision int) *ModbusSource {
	return &ModbusSource{
		channel:   channel,
		client:    client,
		precision: precision,
	}
}

// Poll returns one fresh reading, or pmodbus.ErrNoValue when retries ran out.
// A value served from the client cache was already produced and yields
// nothing.
func (s *ModbusSource) Poll(ctx context.Context) ([]Batch, bool, error) {
	r, err := s.client.Read(ctx)
	if err != nil {
		return nil, false, err
	}
	if r.Cached {
		return nil, false, nil
	}
	return []Batch{readingBatch(s.channel, r.At, r.Value, s.precision)}, true, nil
}

// Flush is a no-op: readings are never partially accumulated.
func (s *ModbusSource) Flush() []Batch { return nil }

func (s *ModbusSource) Close() error { return s.client.Close() }
