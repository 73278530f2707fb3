// internal/status/counters.go
package status

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/tamzrod/force-daq/internal/link"
)

// Counters are the steady-state observability of one channel.
// The channel's poller is the only writer; any goroutine may read.
type Counters struct {
	since time.Time

	Reads       atomic.Uint64
	Successes   atomic.Uint64
	Errors      atomic.Uint64
	Retries     atomic.Uint64
	Resets      atomic.Uint64
	CacheHits   atomic.Uint64
	DecodeDrops atomic.Uint64
	Overflows   atomic.Uint64
	Messages    atomic.Uint64
	Batches     atomic.Uint64
	Dropped     atomic.Uint64

	lastErrorCode atomic.Uint32
}

// NewCounters returns zeroed counters starting now.
func NewCounters() *Counters {
	return &Counters{since: time.Now()}
}

// Fail counts one failed attempt and remembers its code.
func (c *Counters) Fail(err error) {
	c.Errors.Add(1)
	c.lastErrorCode.Store(uint32(CodeOf(err)))
}

// Snapshot copies the counters. Health fields are left for a Tracker.
func (c *Counters) Snapshot() Snapshot {
	return Snapshot{
		Since:         c.since,
		LastErrorCode: uint16(c.lastErrorCode.Load()),
		Reads:         c.Reads.Load(),
		Successes:     c.Successes.Load(),
		Errors:        c.Errors.Load(),
		Retries:       c.Retries.Load(),
		Resets:        c.Resets.Load(),
		CacheHits:     c.CacheHits.Load(),
		DecodeDrops:   c.DecodeDrops.Load(),
		Overflows:     c.Overflows.Load(),
		Messages:      c.Messages.Load(),
		Batches:       c.Batches.Load(),
		Dropped:       c.Dropped.Load(),
	}
}

// CodeOf extracts a best-effort uint16 code from an error without assuming
// concrete types. Errors that expose no code map to ErrorCodeGeneric.
func CodeOf(err error) uint16 {
	if err == nil {
		return 0
	}

	type coderA interface{ Code() uint16 }
	type coderB interface{ ErrorCode() uint16 }

	var a coderA
	if errors.As(err, &a) {
		return a.Code()
	}
	var b coderB
	if errors.As(err, &b) {
		return b.ErrorCode()
	}
	if errors.Is(err, link.ErrTimeout) {
		return ErrorCodeTimeout
	}

	return ErrorCodeGeneric
}
