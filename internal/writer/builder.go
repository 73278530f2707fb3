// internal/writer/builder.go
package writer

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tamzrod/force-daq/internal/config"
	wmodbus "github.com/tamzrod/force-daq/internal/writer/modbus"
	"github.com/tamzrod/force-daq/internal/writer/pipe"
	"github.com/tamzrod/force-daq/internal/writer/sqlite"
	"github.com/tamzrod/force-daq/internal/writer/ws"
)

// Sinks is the assembled delivery side: a data fanout plus optional
// per-channel status writers.
type Sinks struct {
	Fanout *Fanout
	Status map[string]StatusWriter // channel tag -> status block writer

	closers []func() error
}

// Build constructs every configured sink. channels are the channel tags in
// configuration order; status block i belongs to channels[i].
// Assumes the config has passed validation and normalization.
func Build(sc config.SinksConfig, channels []string, logger *slog.Logger) (*Sinks, error) {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Sinks{
		Fanout: NewFanout(),
		Status: make(map[string]StatusWriter),
	}

	fail := func(err error) (*Sinks, error) {
		_ = s.Close()
		return nil, err
	}

	// ---- pipe ----
	if p := sc.Pipe; p != nil {
		w, err := pipe.New(pipe.Config{Path: p.Path}, logger)
		if err != nil {
			return fail(err)
		}
		s.add("pipe", w)
	}

	// ---- modbus tcp (data + status) ----
	if m := sc.ModbusTCP; m != nil {
		cli, err := wmodbus.NewEndpointClient(wmodbus.Config{
			Endpoint: m.Endpoint,
			Timeout:  time.Duration(m.TimeoutMs) * time.Millisecond,
		}, logger)
		if err != nil {
			return fail(fmt.Errorf("writer: modbus endpoint %s: %w", m.Endpoint, err))
		}
		s.closers = append(s.closers, cli.Close)

		if len(m.Registers) > 0 {
			w, err := NewRegisterWriter(RegisterPlan{UnitID: m.UnitID, Registers: m.Registers}, cli)
			if err != nil {
				return fail(err)
			}
			s.Fanout.Add("modbus_tcp", w)
		}

		if m.StatusUnitID != nil && m.StatusSlot != nil {
			for i, tag := range channels {
				s.Status[tag] = NewChannelStatusWriter(StatusPlan{
					UnitID:   *m.StatusUnitID,
					BaseSlot: *m.StatusSlot + uint16(i),
					Tag:      tag,
				}, cli)
			}
		}
	}

	// ---- websocket ----
	if c := sc.WebSocket; c != nil {
		h, err := ws.New(ws.Config{Listen: c.Listen, Path: c.Path, Format: c.Format}, logger)
		if err != nil {
			return fail(err)
		}
		s.add("websocket", h)
	}

	// ---- sqlite ----
	if c := sc.SQLite; c != nil {
		st, err := sqlite.Open(sqlite.Config{Path: c.Path}, logger)
		if err != nil {
			return fail(err)
		}
		s.add("sqlite", st)
	}

	return s, nil
}

func (s *Sinks) add(name string, w Writer) {
	s.Fanout.Add(name, w)
	s.closers = append(s.closers, w.Close)
}

// Close releases every sink in reverse build order.
func (s *Sinks) Close() error {
	var errs []string
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err.Error())
		}
	}
	s.closers = nil

	if len(errs) > 0 {
		return errors.New("writer: close: " + strings.Join(errs, " | "))
	}
	return nil
}
