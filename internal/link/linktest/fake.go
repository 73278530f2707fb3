// internal/link/linktest/fake.go

// Package linktest provides scripted in-memory links for tests.
package linktest

import (
	"errors"
	"sync"
	"time"

	"github.com/tamzrod/force-daq/internal/link"
)

// ErrClosed is returned by a Fake after Close.
var ErrClosed = errors.New("linktest: link closed")

// Fake is a scripted link.
//
// Each Script entry is returned by exactly one Read (split if the caller's
// buffer is smaller), which lets tests control chunk boundaries. After the
// script, bytes produced by Respond are served. With nothing to serve, Read
// sleeps Timeout and returns link.ErrTimeout, like a quiet serial port.
type Fake struct {
	mu sync.Mutex

	Script  [][]byte
	Respond func(req []byte) []byte
	Timeout time.Duration

	pending []byte
	writes  [][]byte
	reads   int
	closed  bool
}

var _ link.Link = (*Fake)(nil)

func (f *Fake) Read(p []byte) (int, error) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return 0, ErrClosed
	}
	f.reads++

	if len(f.Script) > 0 {
		chunk := f.Script[0]
		n := copy(p, chunk)
		if n < len(chunk) {
			f.Script[0] = chunk[n:]
		} else {
			f.Script = f.Script[1:]
		}
		f.mu.Unlock()
		return n, nil
	}

	if len(f.pending) > 0 {
		n := copy(p, f.pending)
		f.pending = f.pending[n:]
		f.mu.Unlock()
		return n, nil
	}

	timeout := f.Timeout
	f.mu.Unlock()

	if timeout > 0 {
		time.Sleep(timeout)
	}
	return 0, link.ErrTimeout
}

func (f *Fake) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return 0, ErrClosed
	}

	req := append([]byte(nil), p...)
	f.writes = append(f.writes, req)
	if f.Respond != nil {
		f.pending = append(f.pending, f.Respond(req)...)
	}
	return len(p), nil
}

func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// Writes returns a copy of every frame written so far.
func (f *Fake) Writes() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.writes...)
}

// Reads returns the number of Read calls served.
func (f *Fake) Reads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads
}

// Closed reports whether Close was called.
func (f *Fake) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// Factory hands out links through Open and remembers them.
type Factory struct {
	mu sync.Mutex

	// New builds the link for the n-th Open (0-based).
	New func(n int) *Fake
	// Fail makes Open return this error when non-nil.
	Fail error

	opened []*Fake
	params []link.Params
}

// Open implements link.OpenFunc.
func (fc *Factory) Open(p link.Params) (link.Link, error) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	if fc.Fail != nil {
		return nil, fc.Fail
	}

	var f *Fake
	if fc.New != nil {
		f = fc.New(len(fc.opened))
	}
	if f == nil {
		f = &Fake{}
	}
	fc.opened = append(fc.opened, f)
	fc.params = append(fc.params, p)
	return f, nil
}

// Opened returns every link handed out so far.
func (fc *Factory) Opened() []*Fake {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return append([]*Fake(nil), fc.opened...)
}

// Params returns the parameters of every Open call.
func (fc *Factory) Params() []link.Params {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return append([]link.Params(nil), fc.params...)
}
