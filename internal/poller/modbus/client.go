// internal/poller/modbus/client.go
package modbus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/tamzrod/force-daq/internal/crc"
	"github.com/tamzrod/force-daq/internal/link"
	"github.com/tamzrod/force-daq/internal/status"
)

var (
	// ErrNotConnected is returned when no link could be (re)opened.
	ErrNotConnected = errors.New("modbus rtu: not connected")

	// ErrNoValue reports a logical read that exhausted its retry budget.
	ErrNoValue = errors.New("modbus rtu: no value")
)

// Defaults of the force instrument's RTU interface.
const (
	DefaultRetries              = 3
	DefaultMaxConsecutiveErrors = 5
	DefaultPrecision            = 2
	DefaultCacheWindow          = 10 * time.Millisecond
	DefaultRetryDelay           = 10 * time.Millisecond
	DefaultResetDelay           = 100 * time.Millisecond
)

// Config is the immutable client configuration.
type Config struct {
	SlaveID   uint8
	Register  uint16 // first of two holding registers holding a big-endian float32
	Precision int    // decimal places kept

	Retries              int // attempts per logical read
	MaxConsecutiveErrors int // back-to-back failures that trigger a link reset

	CacheWindow time.Duration // 0 disables the last-value cache
	RetryDelay  time.Duration
	ResetDelay  time.Duration // pause between close and reopen
}

// Client is a Modbus RTU master for one slave on one serial link.
// It owns its link and is not safe for concurrent use.
type Client struct {
	cfg      Config
	open     func() (link.Link, error)
	link     link.Link
	counters *status.Counters
	log      *slog.Logger

	now func() time.Time

	consecutive int
	exhausted   uint64

	cached    bool
	lastValue float64
	lastAt    time.Time
}

// New opens the link once (fail fast at startup) and returns a client.
// open is used again for every link reset. counters and logger may be nil.
func New(cfg Config, open func() (link.Link, error), counters *status.Counters, logger *slog.Logger) (*Client, error) {
	if open == nil {
		return nil, errors.New("modbus rtu: link opener required")
	}
	if cfg.SlaveID == 0 || cfg.SlaveID > 247 {
		return nil, fmt.Errorf("modbus rtu: slave id %d out of range 1..247", cfg.SlaveID)
	}
	if cfg.Retries < 1 {
		return nil, errors.New("modbus rtu: retries must be >= 1")
	}
	if cfg.MaxConsecutiveErrors < 1 {
		return nil, errors.New("modbus rtu: max consecutive errors must be >= 1")
	}
	if cfg.Precision < 0 {
		return nil, errors.New("modbus rtu: precision must be >= 0")
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

	return &Client{
		cfg:      cfg,
		open:     open,
		link:     l,
		counters: counters,
		log:      logger,
		now:      time.Now,
	}, nil
}

// Close closes the link.
func (c *Client) Close() error {
	if c == nil || c.link == nil {
		return nil
	}
	err := c.link.Close()
	c.link = nil
	return err
}

// Reading is the outcome of one logical read.
type Reading struct {
	Value float64
	At    time.Time // time of the link exchange that produced Value

	// Cached is set when Value was served from the cache window without
	// touching the link. It is not a new sample.
	Cached bool
}

// ReadFloat performs one logical read of the configured float register pair.
//
// It never returns an error: transient failures are retried up to the retry
// budget, reported through the counters, and the read yields ok=false.
// Cancelling ctx stops further retries.
func (c *Client) ReadFloat(ctx context.Context) (float64, bool) {
	r, ok := c.read(ctx)
	return r.Value, ok
}

// Read is ReadFloat with the missing value reported as ErrNoValue and the
// cache hit reported in Reading.Cached.
func (c *Client) Read(ctx context.Context) (Reading, error) {
	r, ok := c.read(ctx)
	if !ok {
		return Reading{}, ErrNoValue
	}
	return r, nil
}

func (c *Client) read(ctx context.Context) (Reading, bool) {
	now := c.now()
	if c.cfg.CacheWindow > 0 && c.cached && now.Sub(c.lastAt) < c.cfg.CacheWindow {
		c.counters.CacheHits.Add(1)
		return Reading{Value: c.lastValue, At: c.lastAt, Cached: true}, true
	}

	c.counters.Reads.Add(1)

	var lastErr error
	for attempt := 0; attempt < c.cfg.Retries; attempt++ {
		if attempt > 0 {
			c.counters.Retries.Add(1)
		}

		regs, err := c.ReadHoldingRegisters(c.cfg.Register, 2)
		if err == nil {
			v := Round(DecodeFloat32(regs[0], regs[1]), c.cfg.Precision)

			c.cached = true
			c.lastValue = v
			c.lastAt = now
			c.consecutive = 0
			c.counters.Successes.Add(1)
			return Reading{Value: v, At: now}, true
		}

		lastErr = err
		c.counters.Fail(err)
		c.consecutive++
		c.log.Debug("modbus read failed",
			"attempt", attempt+1,
			"retries", c.cfg.Retries,
			"consecutive", c.consecutive,
			"err", err,
		)

		if c.consecutive >= c.cfg.MaxConsecutiveErrors {
			c.reset(ctx)
			c.consecutive = 0
		}

		if attempt < c.cfg.Retries-1 && !sleep(ctx, c.cfg.RetryDelay) {
			break
		}
	}

	c.exhausted++
	if c.exhausted == 1 || c.exhausted%100 == 0 {
		c.log.Warn("modbus read exhausted retries",
			"retries", c.cfg.Retries,
			"exhausted_total", c.exhausted,
			"err", lastErr,
		)
	}
	return Reading{}, false
}

// ReadHoldingRegisters performs exactly one request/response exchange.
func (c *Client) ReadHoldingRegisters(addr, qty uint16) ([]uint16, error) {
	req := Request{
		SlaveID:  c.cfg.SlaveID,
		Function: FuncReadHoldingRegisters,
		Address:  addr,
		Quantity: qty,
	}
	data, err := c.roundTrip(req)
	if err != nil {
		return nil, err
	}
	return unpackRegisters(data), nil
}

func (c *Client) roundTrip(req Request) ([]byte, error) {
	if c.link == nil {
		l, err := c.open()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNotConnected, err)
		}
		c.link = l
	}

	if _, err := c.link.Write(req.Encode()); err != nil {
		return nil, fmt.Errorf("modbus rtu: write: %w", err)
	}

	// Header first: an exception response is shorter than a normal one.
	resp := make([]byte, req.ResponseLen())
	if err := c.readExact(resp[:3]); err != nil {
		return nil, err
	}

	if resp[1] == req.Function|exceptionBit {
		exc := resp[:exceptionLen]
		if err := c.readExact(exc[3:]); err != nil {
			return nil, err
		}
		if !crc.Verify(exc) {
			return nil, ErrCRCMismatch
		}
		return nil, &ExceptionError{Function: req.Function, Exception: exc[2]}
	}

	if err := c.readExact(resp[3:]); err != nil {
		return nil, err
	}
	return checkResponse(req, resp)
}

// readExact fills buf or fails. A timeout before the first byte is
// link.ErrTimeout; a timeout part way is ErrShortResponse.
func (c *Client) readExact(buf []byte) error {
	got := 0
	for got < len(buf) {
		n, err := c.link.Read(buf[got:])
		got += n
		if got == len(buf) {
			return nil
		}
		if n == 0 && (err == nil || errors.Is(err, link.ErrTimeout)) {
			if got == 0 {
				return link.ErrTimeout
			}
			return fmt.Errorf("%w: got %d of %d bytes", ErrShortResponse, got, len(buf))
		}
		if err != nil && !errors.Is(err, link.ErrTimeout) {
			return fmt.Errorf("modbus rtu: read: %w", err)
		}
	}
	return nil
}

// reset closes and reopens the link. A failed reopen leaves the client
// disconnected; the next attempt retries the open.
func (c *Client) reset(ctx context.Context) {
	c.counters.Resets.Add(1)
	c.log.Warn("modbus link reset", "consecutive_errors", c.consecutive)

	if c.link != nil {
		if err := c.link.Close(); err != nil {
			c.log.Debug("modbus link close failed", "err", err)
		}
		c.link = nil
	}

	sleep(ctx, c.cfg.ResetDelay)

	l, err := c.open()
	if err != nil {
		c.log.Warn("modbus link reopen failed", "err", err)
		return
	}
	c.link = l
}

// DecodeFloat32 reassembles two registers (high word first) into a
// big-endian IEEE-754 float32.
func DecodeFloat32(hi, lo uint16) float64 {
	bits := uint32(hi)<<16 | uint32(lo)
	return float64(math.Float32frombits(bits))
}

// Round rounds v to the given number of decimal places.
func Round(v float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(v*p) / p
}

// sleep waits d or until ctx is done; it reports whether the full delay elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
