// internal/poller/builder.go
package poller

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/tamzrod/force-daq/internal/config"
	"github.com/tamzrod/force-daq/internal/link"
	"github.com/tamzrod/force-daq/internal/poller/ascii"
	pmodbus "github.com/tamzrod/force-daq/internal/poller/modbus"
	"github.com/tamzrod/force-daq/internal/status"
)

// Build constructs a Poller for one validated channel and opens its link.
// open overrides the channel's link driver (tests); nil uses the driver.
// The link is reopened through the same opener on every reset.
func Build(ch config.ChannelConfig, open link.OpenFunc, logger *slog.Logger) (*Poller, error) {
	if err := config.ValidateChannel(ch); err != nil {
		return nil, err
	}
	ch = ch.Clone()
	config.NormalizeChannel(&ch)

	if open == nil {
		var err error
		open, err = link.Opener(ch.Link.Driver)
		if err != nil {
			return nil, fmt.Errorf("channel %q: %w", ch.Tag, err)
		}
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("channel", ch.Tag, "protocol", ch.Protocol)

	params := link.Params{
		Port:     ch.Link.Port,
		Baud:     ch.Link.Baud,
		DataBits: ch.Link.DataBits,
		Parity:   ch.Link.Parity,
		StopBits: ch.Link.StopBits,
		Timeout:  ms(ch.Link.TimeoutMs),
	}

	// link factory: ONE attempt per call
	factory := func() (link.Link, error) {
		l, err := open(params)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", params, err)
		}
		return l, nil
	}

	counters := status.NewCounters()

	var src Source
	switch ch.Protocol {
	case config.ProtocolASCII:
		a := ch.ASCII
		dec, err := ascii.New(ascii.Config{
			Delimiter: *a.Delimiter,
			MinLength: a.MinLength,
			BatchSize: a.BatchSize,
			ChunkSize: a.ChunkSize,
		}, counters, logger)
		if err != nil {
			return nil, fmt.Errorf("channel %q: %w", ch.Tag, err)
		}
		s, err := NewASCIISource(ch.Tag, factory, dec, counters, logger)
		if err != nil {
			return nil, fmt.Errorf("channel %q: %w", ch.Tag, err)
		}
		src = s

	case config.ProtocolModbusRTU:
		m := ch.Modbus
		client, err := pmodbus.New(pmodbus.Config{
			SlaveID:              m.SlaveID,
			Register:             *m.Register,
			Precision:            *m.Precision,
			Retries:              m.Retries,
			MaxConsecutiveErrors: m.MaxConsecutiveErrors,
			CacheWindow:          ms(*m.CacheMs),
			RetryDelay:           ms(*m.RetryDelayMs),
			ResetDelay:           ms(*m.ResetDelayMs),
		}, factory, counters, logger)
		if err != nil {
			return nil, fmt.Errorf("channel %q: %w", ch.Tag, err)
		}
		src = NewModbusSource(ch.Tag, client, *m.Precision)

	default:
		return nil, fmt.Errorf("channel %q: %w %q", ch.Tag, config.ErrUnknownProtocol, ch.Protocol)
	}

	p, err := New(Config{
		Channel:  ch.Tag,
		Interval: ms(ch.Poll.IntervalMs),
		Idle:     ms(ch.Poll.IdleMs),
	}, src, counters, logger)
	if err != nil {
		_ = src.Close()
		return nil, err
	}
	return p, nil
}

// Close releases the source of a poller that was never run.
func (p *Poller) Close() error { return p.src.Close() }

func ms(v int) time.Duration { return time.Duration(v) * time.Millisecond }
