// internal/config/normalize.go
package config

import (
	"strings"

	"github.com/tamzrod/force-daq/internal/link"
	"github.com/tamzrod/force-daq/internal/poller/ascii"
	"github.com/tamzrod/force-daq/internal/poller/modbus"
)

// Defaults applied by Normalize.
const (
	DefaultDrainIntervalMs = 100
	DefaultDataBits        = 8
	DefaultParity          = "N"
	DefaultStopBits        = 1
	DefaultTimeoutMs       = 1000
	DefaultIdleMs          = 5
	DefaultSinkTimeoutMs   = 1000
	DefaultWebSocketPath   = "/ws"
	DefaultWebSocketFormat = "json"
)

// Normalize applies post-validation normalization.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	cfg.Log.Level = strings.ToLower(cfg.Log.Level)
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	cfg.Log.Format = strings.ToLower(cfg.Log.Format)
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}

	if cfg.Acquisition.DrainIntervalMs == 0 {
		cfg.Acquisition.DrainIntervalMs = DefaultDrainIntervalMs
	}

	for i := range cfg.Acquisition.Channels {
		NormalizeChannel(&cfg.Acquisition.Channels[i])
	}

	if m := cfg.Sinks.ModbusTCP; m != nil && m.TimeoutMs == 0 {
		m.TimeoutMs = DefaultSinkTimeoutMs
	}
	if ws := cfg.Sinks.WebSocket; ws != nil {
		if ws.Path == "" {
			ws.Path = DefaultWebSocketPath
		}
		if ws.Format == "" {
			ws.Format = DefaultWebSocketFormat
		}
	}
}

// NormalizeChannel fills the defaults of one validated channel.
func NormalizeChannel(ch *ChannelConfig) {
	// ------------------------------------------------------------
	// LINK
	// ------------------------------------------------------------

	l := &ch.Link
	if l.Driver == "" {
		l.Driver = link.DefaultDriver
	}
	l.DataBits = orDefault(l.DataBits, DefaultDataBits)
	l.Parity = strings.ToUpper(l.Parity)
	if l.Parity == "" {
		l.Parity = DefaultParity
	}
	l.StopBits = orDefault(l.StopBits, DefaultStopBits)
	l.TimeoutMs = orDefault(l.TimeoutMs, DefaultTimeoutMs)

	ch.Poll.IdleMs = orDefault(ch.Poll.IdleMs, DefaultIdleMs)

	// ------------------------------------------------------------
	// PROTOCOL
	// ------------------------------------------------------------

	switch ch.Protocol {
	case ProtocolASCII:
		if ch.ASCII == nil {
			ch.ASCII = &ASCIIConfig{}
		}
		a := ch.ASCII
		if a.Delimiter == nil {
			d := ascii.DefaultDelimiter
			a.Delimiter = &d
		}
		a.MinLength = orDefault(a.MinLength, ascii.DefaultMinLength)
		a.BatchSize = orDefault(a.BatchSize, ascii.DefaultBatchSize)
		a.ChunkSize = orDefault(a.ChunkSize, ascii.DefaultChunkSize)

	case ProtocolModbusRTU:
		m := ch.Modbus
		if m.PLCAddress != nil {
			reg := PLCToRegister(*m.PLCAddress)
			m.Register = &reg
			m.PLCAddress = nil
		}
		if m.Precision == nil {
			p := modbus.DefaultPrecision
			m.Precision = &p
		}
		m.Retries = orDefault(m.Retries, modbus.DefaultRetries)
		m.MaxConsecutiveErrors = orDefault(m.MaxConsecutiveErrors, modbus.DefaultMaxConsecutiveErrors)
		m.CacheMs = msDefault(m.CacheMs, int(modbus.DefaultCacheWindow.Milliseconds()))
		m.RetryDelayMs = msDefault(m.RetryDelayMs, int(modbus.DefaultRetryDelay.Milliseconds()))
		m.ResetDelayMs = msDefault(m.ResetDelayMs, int(modbus.DefaultResetDelay.Milliseconds()))
	}
}

// PLCToRegister converts a 40001-based holding register address into the
// zero-based protocol address.
func PLCToRegister(plc int) uint16 {
	return uint16(plc - plcHoldingBase)
}

func msDefault(v *int, def int) *int {
	if v != nil {
		return v
	}
	return &def
}
