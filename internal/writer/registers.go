// internal/writer/registers.go
package writer

import (
	"errors"
	"fmt"
	"math"

	"github.com/tamzrod/force-daq/internal/poller"
)

// registerWriter publishes the latest numeric value of each mapped channel
// as a big-endian float32 in two holding registers (high word first).
type registerWriter struct {
	plan RegisterPlan
	cli  endpointClient
}

// NewRegisterWriter returns a Writer over an endpoint client.
func NewRegisterWriter(plan RegisterPlan, cli endpointClient) (Writer, error) {
	if cli == nil {
		return nil, errors.New("writer: register writer needs a client")
	}
	return &registerWriter{plan: plan, cli: cli}, nil
}

func (w *registerWriter) Write(channel string, batches []poller.Batch) error {
	addr, ok := w.plan.Registers[channel]
	if !ok {
		return nil // channel not mapped
	}

	v, ok := latestValue(batches)
	if !ok {
		return nil
	}

	if err := w.cli.WriteRegisters(w.plan.UnitID, addr, encodeFloat32(v)); err != nil {
		return fmt.Errorf("unit=%d addr=%d err=%w", w.plan.UnitID, addr, err)
	}
	return nil
}

// Close is a no-op: the endpoint client is shared and closed by its builder.
func (w *registerWriter) Close() error { return nil }

func latestValue(batches []poller.Batch) (float64, bool) {
	for i := len(batches) - 1; i >= 0; i-- {
		s := batches[i].Samples
		for j := len(s) - 1; j >= 0; j-- {
			if s[j].Numeric {
				return s[j].Value, true
			}
		}
	}
	return 0, false
}

func encodeFloat32(v float64) []uint16 {
	bits := math.Float32bits(float32(v))
	return []uint16{uint16(bits >> 16), uint16(bits)}
}
