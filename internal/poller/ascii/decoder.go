// internal/poller/ascii/decoder.go
package ascii

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tamzrod/force-daq/internal/status"
)

// Defaults of the instrument's continuous ASCII output.
const (
	DefaultDelimiter byte = '\r'
	DefaultMinLength      = 7
	DefaultBatchSize      = 50
	DefaultChunkSize      = 512
)

// Config is the immutable decoder configuration.
type Config struct {
	Delimiter byte
	MinLength int // shortest valid message, delimiter included
	BatchSize int // messages per emitted batch
	ChunkSize int // nominal read size; the buffer ceiling is twice this
}

// Decoder turns an arbitrarily fragmented byte stream into batches of
// delimiter-terminated text messages.
//
// The accumulation buffer is owned by the decoder. Not safe for concurrent use.
type Decoder struct {
	cfg      Config
	buf      []byte
	pending  []string
	counters *status.Counters
	log      *slog.Logger
}

// New validates cfg and returns a decoder with an empty buffer.
// counters and logger may be nil.
func New(cfg Config, counters *status.Counters, logger *slog.Logger) (*Decoder, error) {
	if cfg.MinLength < 1 {
		return nil, errors.New("ascii: min length must be >= 1")
	}
	if cfg.BatchSize < 1 {
		return nil, errors.New("ascii: batch size must be >= 1")
	}
	if cfg.ChunkSize < cfg.MinLength {
		return nil, fmt.Errorf("ascii: chunk size %d smaller than min length %d", cfg.ChunkSize, cfg.MinLength)
	}
	if counters == nil {
		counters = status.NewCounters()
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Decoder{
		cfg:      cfg,
		buf:      make([]byte, 0, 2*cfg.ChunkSize),
		pending:  make([]string, 0, cfg.BatchSize),
		counters: counters,
		log:      logger,
	}, nil
}

// Feed appends chunk to the buffer, extracts every complete message and
// returns the batches that reached the batch size. It never blocks.
//
// A candidate runs from the buffer start to the first delimiter at or past
// MinLength-1. If earlier delimiters fall inside it, everything up to and
// including the last of them is a truncated fragment: it is discarded and
// counted as a decode drop, never emitted. The message is the text after it,
// and it too is dropped when shorter than MinLength.
func (d *Decoder) Feed(chunk []byte) [][]string {
	d.buf = append(d.buf, chunk...)

	var out [][]string
	floor := d.cfg.MinLength
	consumed := 0

	for len(d.buf)-consumed >= floor {
		window := d.buf[consumed:]

		// A delimiter before floor-1 closes a truncated fragment; search past it.
		rel := bytes.IndexByte(window[floor-1:], d.cfg.Delimiter)
		if rel < 0 {
			break
		}
		end := floor - 1 + rel
		consumed += end + 1

		// The message starts after the last skipped delimiter.
		start := bytes.LastIndexByte(window[:end], d.cfg.Delimiter) + 1
		if start > 0 {
			d.drop(window[:start], "truncated fragment")
		}

		frag := window[start : end+1]
		if len(frag) < floor {
			d.drop(frag, "short fragment")
			continue
		}

		text, ok := decodeText(frag)
		if !ok {
			d.drop(frag, "not ascii")
			continue
		}

		d.pending = append(d.pending, text)
		if len(d.pending) >= d.cfg.BatchSize {
			out = append(out, d.pending)
			d.pending = make([]string, 0, d.cfg.BatchSize)
		}
	}

	if consumed > 0 {
		d.buf = append(d.buf[:0], d.buf[consumed:]...)
	}

	if len(d.buf) > 2*d.cfg.ChunkSize {
		discarded := len(d.buf) - d.cfg.ChunkSize
		d.buf = append(d.buf[:0], d.buf[discarded:]...)
		d.counters.Overflows.Add(1)
		d.log.Warn("ascii buffer overflow, discarded oldest bytes",
			"discarded", discarded,
			"kept", len(d.buf),
		)
	}

	return out
}

// Flush returns the partially filled batch, if any, and clears it.
func (d *Decoder) Flush() []string {
	if len(d.pending) == 0 {
		return nil
	}
	out := d.pending
	d.pending = make([]string, 0, d.cfg.BatchSize)
	return out
}

// Buffered returns the number of unparsed bytes held.
func (d *Decoder) Buffered() int { return len(d.buf) }

// Pending returns the number of decoded messages not yet emitted.
func (d *Decoder) Pending() int { return len(d.pending) }

// ChunkSize is the nominal read size.
func (d *Decoder) ChunkSize() int { return d.cfg.ChunkSize }

func (d *Decoder) drop(frag []byte, reason string) {
	d.counters.DecodeDrops.Add(1)
	d.log.Debug("ascii fragment dropped", "reason", reason, "bytes", len(frag))
}

// decodeText strictly decodes ASCII and trims surrounding whitespace.
// Empty results are rejected.
func decodeText(b []byte) (string, bool) {
	for _, c := range b {
		if c > 0x7F {
			return "", false
		}
	}
	s := strings.TrimSpace(string(b))
	if s == "" {
		return "", false
	}
	return s, true
}
