// internal/writer/writer.go
package writer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tamzrod/force-daq/internal/poller"
)

// Fanout writes every batch set to each of its writers in turn.
// One failing writer does not stop the others.
type Fanout struct {
	names   []string
	writers []Writer
}

// NewFanout returns an empty fanout.
func NewFanout() *Fanout { return &Fanout{} }

// Add appends a named writer.
func (f *Fanout) Add(name string, w Writer) {
	f.names = append(f.names, name)
	f.writers = append(f.writers, w)
}

// Len returns the number of writers.
func (f *Fanout) Len() int { return len(f.writers) }

func (f *Fanout) Write(channel string, batches []poller.Batch) error {
	if len(batches) == 0 {
		return nil
	}

	var errs []string
	for i, w := range f.writers {
		if err := w.Write(channel, batches); err != nil {
			errs = append(errs, fmt.Sprintf("writer %s: channel=%s err=%v", f.names[i], channel, err))
		}
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, " | "))
	}
	return nil
}

// Close closes every writer and reports all failures.
func (f *Fanout) Close() error {
	var errs []string
	for i, w := range f.writers {
		if err := w.Close(); err != nil {
			errs = append(errs, fmt.Sprintf("writer %s: close: %v", f.names[i], err))
		}
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, " | "))
	}
	return nil
}
