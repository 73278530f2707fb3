// internal/writer/pipe/pipe.go

// Package pipe hands decoded batches to another process over a named pipe.
package pipe

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/tamzrod/force-daq/internal/poller"
)

// ErrNoReader is returned by the opener when nobody has the pipe open for
// reading yet.
var ErrNoReader = errors.New("writer pipe: no reader")

// headerLen is the little-endian uint32 payload length prefix.
const headerLen = 4

type Config struct {
	Path string
}

// Writer frames each batch as one length-prefixed write:
//
//	Length(4, little-endian) Payload(UTF-8, sample texts joined by one space)
//
// The pipe is (re)opened lazily. Batches drained while no reader is
// attached are discarded.
type Writer struct {
	path string
	open func(path string) (io.WriteCloser, error)
	log  *slog.Logger

	mu      sync.Mutex
	w       io.WriteCloser
	waiting bool
	dropped uint64
}

// New returns a pipe writer. The FIFO is created on first use when missing.
func New(cfg Config, logger *slog.Logger) (*Writer, error) {
	if cfg.Path == "" {
		return nil, errors.New("writer pipe: path required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{
		path: cfg.Path,
		open: openFIFO,
		log:  logger.With("sink", "pipe", "path", cfg.Path),
	}, nil
}

func (p *Writer) Write(channel string, batches []poller.Batch) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.w == nil {
		w, err := p.open(p.path)
		if errors.Is(err, ErrNoReader) {
			if !p.waiting {
				p.log.Info("waiting for pipe reader")
				p.waiting = true
			}
			p.dropped += uint64(len(batches))
			return nil
		}
		if err != nil {
			return fmt.Errorf("writer pipe: open: %w", err)
		}
		p.log.Info("pipe reader attached", "dropped_batches", p.dropped)
		p.w = w
		p.waiting = false
		p.dropped = 0
	}

	for _, b := range batches {
		if len(b.Samples) == 0 {
			continue
		}
		if err := writeAll(p.w, buildFrame(b.Texts())); err != nil {
			// Reader went away; reopen on the next write.
			_ = p.w.Close()
			p.w = nil
			return fmt.Errorf("writer pipe: write: %w", err)
		}
	}
	return nil
}

func (p *Writer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.w == nil {
		return nil
	}
	err := p.w.Close()
	p.w = nil
	return err
}

//
// ---- frame builder ----
//
// Layout:
// 0–3  Payload length (uint32, little-endian)
// 4+   Payload
//

func buildFrame(texts []string) []byte {
	payload := strings.Join(texts, " ")

	frame := make([]byte, headerLen, headerLen+len(payload))
	binary.LittleEndian.PutUint32(frame, uint32(len(payload)))
	return append(frame, payload...)
}

//
// ---- helpers ----
//

func writeAll(w io.Writer, b []byte) error {
	for len(b) > 0 {
		n, err := w.Write(b)
		if err != nil {
			return err
		}
		b = b[n:]
	}
	return nil
}
