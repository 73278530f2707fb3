// internal/config/validate.go
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tamzrod/force-daq/internal/link"
	"github.com/tamzrod/force-daq/internal/poller/ascii"
	"github.com/tamzrod/force-daq/internal/status"
)

// ErrUnknownProtocol is returned for a channel protocol other than
// ProtocolASCII or ProtocolModbusRTU.
var ErrUnknownProtocol = errors.New("config: unknown protocol")

// PLC holding register addresses start at 40001.
const (
	plcHoldingBase = 40001
	plcHoldingMax  = plcHoldingBase + 0xFFFF
)

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config: nil config")
	}

	if err := validateLog(cfg.Log); err != nil {
		return err
	}
	if cfg.Acquisition.DrainIntervalMs < 0 {
		return errors.New("acquisition: drain_interval_ms must be >= 0")
	}

	// ------------------------------------------------------------
	// CHANNELS
	// ------------------------------------------------------------

	if len(cfg.Acquisition.Channels) == 0 {
		return errors.New("acquisition: at least one channel required")
	}

	tags := make(map[string]struct{}, len(cfg.Acquisition.Channels))
	for i, ch := range cfg.Acquisition.Channels {
		if strings.TrimSpace(ch.Tag) == "" {
			return fmt.Errorf("channel #%d: tag required", i)
		}
		if _, dup := tags[ch.Tag]; dup {
			return fmt.Errorf("channel %q: duplicate tag", ch.Tag)
		}
		tags[ch.Tag] = struct{}{}

		if err := ValidateChannel(ch); err != nil {
			return err
		}
	}

	// ------------------------------------------------------------
	// SINKS
	// ------------------------------------------------------------

	return validateSinks(cfg.Sinks, tags, len(cfg.Acquisition.Channels))
}

// ValidateChannel checks one channel in isolation. Everything that can be
// rejected before a link is opened is rejected here.
func ValidateChannel(ch ChannelConfig) error {
	if strings.TrimSpace(ch.Tag) == "" {
		return errors.New("channel: tag required")
	}
	if err := validateLink(ch.Tag, ch.Link); err != nil {
		return err
	}

	if ch.Poll.IntervalMs < 0 || ch.Poll.IdleMs < 0 {
		return fmt.Errorf("channel %q: poll timings must be >= 0", ch.Tag)
	}

	switch ch.Protocol {
	case ProtocolASCII:
		if ch.Modbus != nil {
			return fmt.Errorf("channel %q: modbus block set on an ascii channel", ch.Tag)
		}
		return validateASCII(ch.Tag, ch.ASCII)

	case ProtocolModbusRTU:
		if ch.ASCII != nil {
			return fmt.Errorf("channel %q: ascii block set on a modbus_rtu channel", ch.Tag)
		}
		if ch.Modbus == nil {
			return fmt.Errorf("channel %q: modbus block required", ch.Tag)
		}
		return validateModbus(ch.Tag, ch.Modbus)

	default:
		return fmt.Errorf("channel %q: %w %q", ch.Tag, ErrUnknownProtocol, ch.Protocol)
	}
}

func validateLog(l LogConfig) error {
	switch strings.ToLower(l.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log: unknown level %q", l.Level)
	}
	switch strings.ToLower(l.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("log: unknown format %q", l.Format)
	}
	return nil
}

func validateLink(tag string, l LinkConfig) error {
	if l.Driver != "" && !link.HasDriver(l.Driver) {
		return fmt.Errorf("channel %q: unknown link driver %q (have %s)",
			tag, l.Driver, strings.Join(link.Drivers(), ", "))
	}
	if l.Port == "" {
		return fmt.Errorf("channel %q: link port required", tag)
	}
	if l.Baud <= 0 {
		return fmt.Errorf("channel %q: baud must be > 0", tag)
	}
	if l.DataBits != 0 && (l.DataBits < 5 || l.DataBits > 8) {
		return fmt.Errorf("channel %q: data_bits %d not in 5..8", tag, l.DataBits)
	}
	switch strings.ToUpper(l.Parity) {
	case "", "N", "E", "O", "M", "S":
	default:
		return fmt.Errorf("channel %q: parity %q not one of N, E, O, M, S", tag, l.Parity)
	}
	if !link.SupportsParity(l.Driver, l.Parity) {
		driver := l.Driver
		if driver == "" {
			driver = link.DefaultDriver
		}
		return fmt.Errorf("channel %q: link driver %q cannot frame parity %q", tag, driver, l.Parity)
	}
	if l.StopBits != 0 && l.StopBits != 1 && l.StopBits != 2 {
		return fmt.Errorf("channel %q: stop_bits %d not 1 or 2", tag, l.StopBits)
	}
	if l.TimeoutMs < 0 {
		return fmt.Errorf("channel %q: timeout_ms must be >= 0", tag)
	}
	return nil
}

func validateASCII(tag string, a *ASCIIConfig) error {
	if a == nil {
		return nil // defaults only
	}
	if a.MinLength < 0 {
		return fmt.Errorf("channel %q: min_length must be >= 1", tag)
	}
	if a.BatchSize < 0 {
		return fmt.Errorf("channel %q: batch_size must be >= 1", tag)
	}
	if a.ChunkSize < 0 {
		return fmt.Errorf("channel %q: chunk_size must be > 0", tag)
	}

	minLen := orDefault(a.MinLength, ascii.DefaultMinLength)
	chunk := orDefault(a.ChunkSize, ascii.DefaultChunkSize)
	if chunk < minLen {
		return fmt.Errorf("channel %q: chunk_size %d smaller than min_length %d", tag, chunk, minLen)
	}
	return nil
}

func validateModbus(tag string, m *ModbusConfig) error {
	if m.SlaveID < 1 || m.SlaveID > 247 {
		return fmt.Errorf("channel %q: slave_id %d not in 1..247", tag, m.SlaveID)
	}

	switch {
	case m.Register != nil && m.PLCAddress != nil:
		return fmt.Errorf("channel %q: set register or plc_address, not both", tag)
	case m.Register == nil && m.PLCAddress == nil:
		return fmt.Errorf("channel %q: register or plc_address required", tag)
	case m.Register != nil && *m.Register == 0xFFFF:
		return fmt.Errorf("channel %q: register %d leaves no room for a 2-register value", tag, *m.Register)
	case m.PLCAddress != nil && (*m.PLCAddress < plcHoldingBase || *m.PLCAddress >= plcHoldingMax):
		return fmt.Errorf("channel %q: plc_address %d not in %d..%d", tag, *m.PLCAddress, plcHoldingBase, plcHoldingMax-1)
	}

	if m.Precision != nil && (*m.Precision < 0 || *m.Precision > 9) {
		return fmt.Errorf("channel %q: precision %d not in 0..9", tag, *m.Precision)
	}
	if m.Retries < 0 {
		return fmt.Errorf("channel %q: retries must be >= 1", tag)
	}
	if m.MaxConsecutiveErrors < 0 {
		return fmt.Errorf("channel %q: max_consecutive_errors must be >= 1", tag)
	}
	for name, v := range map[string]*int{
		"cache_ms":       m.CacheMs,
		"retry_delay_ms": m.RetryDelayMs,
		"reset_delay_ms": m.ResetDelayMs,
	} {
		if v != nil && *v < 0 {
			return fmt.Errorf("channel %q: %s must be >= 0", tag, name)
		}
	}
	return nil
}

func validateSinks(s SinksConfig, tags map[string]struct{}, channels int) error {
	if s.Pipe != nil && s.Pipe.Path == "" {
		return errors.New("sinks.pipe: path required")
	}

	if s.WebSocket != nil {
		if s.WebSocket.Listen == "" {
			return errors.New("sinks.websocket: listen required")
		}
		switch s.WebSocket.Format {
		case "", "json", "cbor":
		default:
			return fmt.Errorf("sinks.websocket: unknown format %q", s.WebSocket.Format)
		}
	}

	if s.SQLite != nil && s.SQLite.Path == "" {
		return errors.New("sinks.sqlite: path required")
	}

	if s.ModbusTCP != nil {
		return validateModbusTCP(s.ModbusTCP, tags, channels)
	}
	return nil
}

func validateModbusTCP(m *ModbusTCPSinkConfig, tags map[string]struct{}, channels int) error {
	type span struct {
		start uint32
		end   uint32
		owner string
	}

	if m.Endpoint == "" {
		return errors.New("sinks.modbus_tcp: endpoint required")
	}
	if m.TimeoutMs < 0 {
		return errors.New("sinks.modbus_tcp: timeout_ms must be >= 0")
	}

	// key = unit id
	spans := make(map[uint8][]span)

	claim := func(unit uint8, s span) error {
		for _, prev := range spans[unit] {
			// overlap check (inclusive)
			if !(s.end < prev.start || s.start > prev.end) {
				return fmt.Errorf(
					"sinks.modbus_tcp: register collision: unit_id=%d range=%d-%d (%s) overlaps range=%d-%d (%s)",
					unit, s.start, s.end, s.owner, prev.start, prev.end, prev.owner,
				)
			}
		}
		spans[unit] = append(spans[unit], s)
		return nil
	}

	for tag, addr := range m.Registers {
		if _, ok := tags[tag]; !ok {
			return fmt.Errorf("sinks.modbus_tcp: registers: unknown channel %q", tag)
		}
		if addr == 0xFFFF {
			return fmt.Errorf("sinks.modbus_tcp: registers: channel %q at %d leaves no room for a 2-register value", tag, addr)
		}
		if err := claim(m.UnitID, span{uint32(addr), uint32(addr) + 1, "channel " + tag}); err != nil {
			return err
		}
	}

	// ------------------------------------------------------------
	// STATUS BLOCK (OPT-IN)
	// ------------------------------------------------------------

	if m.StatusSlot == nil && m.StatusUnitID == nil {
		return nil
	}
	if m.StatusSlot == nil || m.StatusUnitID == nil {
		return errors.New("sinks.modbus_tcp: status_slot and status_unit_id must be set together")
	}

	start := uint32(*m.StatusSlot) * status.SlotsPerChannel
	end := start + uint32(channels)*status.SlotsPerChannel - 1
	if end > 0xFFFF {
		return fmt.Errorf("sinks.modbus_tcp: status block %d-%d exceeds the register space", start, end)
	}
	return claim(*m.StatusUnitID, span{start, end, "status block"})
}

func orDefault(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}
