// internal/config/config.go
package config

// Protocol variants.
const (
	ProtocolASCII     = "ascii"
	ProtocolModbusRTU = "modbus_rtu"
)

type Config struct {
	Log         LogConfig         `yaml:"log" toml:"log"`
	Acquisition AcquisitionConfig `yaml:"acquisition" toml:"acquisition"`
	Sinks       SinksConfig       `yaml:"sinks" toml:"sinks"`
}

// ---- LOG ----

type LogConfig struct {
	Level  string `yaml:"level" toml:"level"`   // debug | info | warn | error
	Format string `yaml:"format" toml:"format"` // text | json
}

// ---- ACQUISITION ----

type AcquisitionConfig struct {
	DrainIntervalMs int             `yaml:"drain_interval_ms" toml:"drain_interval_ms"`
	Channels        []ChannelConfig `yaml:"channels" toml:"channels"`
}

// ChannelConfig is one serial link plus its protocol state, identified by Tag.
type ChannelConfig struct {
	Tag      string        `yaml:"tag" toml:"tag"`
	Protocol string        `yaml:"protocol" toml:"protocol"`
	Link     LinkConfig    `yaml:"link" toml:"link"`
	ASCII    *ASCIIConfig  `yaml:"ascii" toml:"ascii"`
	Modbus   *ModbusConfig `yaml:"modbus" toml:"modbus"`
	Poll     PollConfig    `yaml:"poll" toml:"poll"`
}

// ---- LINK ----

type LinkConfig struct {
	Driver    string `yaml:"driver" toml:"driver"`
	Port      string `yaml:"port" toml:"port"`
	Baud      int    `yaml:"baud" toml:"baud"`
	DataBits  int    `yaml:"data_bits" toml:"data_bits"`
	Parity    string `yaml:"parity" toml:"parity"`
	StopBits  int    `yaml:"stop_bits" toml:"stop_bits"`
	TimeoutMs int    `yaml:"timeout_ms" toml:"timeout_ms"`
}

// ---- PROTOCOLS ----

type ASCIIConfig struct {
	Delimiter *uint8 `yaml:"delimiter" toml:"delimiter"`
	MinLength int    `yaml:"min_length" toml:"min_length"`
	BatchSize int    `yaml:"batch_size" toml:"batch_size"`
	ChunkSize int    `yaml:"chunk_size" toml:"chunk_size"`
}

type ModbusConfig struct {
	SlaveID uint8 `yaml:"slave_id" toml:"slave_id"`

	// Exactly one of Register (protocol address) or PLCAddress (40001-based).
	Register   *uint16 `yaml:"register" toml:"register"`
	PLCAddress *int    `yaml:"plc_address" toml:"plc_address"`

	Precision *int `yaml:"precision" toml:"precision"`

	Retries              int `yaml:"retries" toml:"retries"`
	MaxConsecutiveErrors int `yaml:"max_consecutive_errors" toml:"max_consecutive_errors"`

	CacheMs      *int `yaml:"cache_ms" toml:"cache_ms"` // 0 disables the cache
	RetryDelayMs *int `yaml:"retry_delay_ms" toml:"retry_delay_ms"`
	ResetDelayMs *int `yaml:"reset_delay_ms" toml:"reset_delay_ms"`
}

// ---- POLL ----

type PollConfig struct {
	IntervalMs int `yaml:"interval_ms" toml:"interval_ms"` // 0 = back-to-back
	IdleMs     int `yaml:"idle_ms" toml:"idle_ms"`
}

// ---- SINKS ----

type SinksConfig struct {
	Pipe      *PipeSinkConfig      `yaml:"pipe" toml:"pipe"`
	ModbusTCP *ModbusTCPSinkConfig `yaml:"modbus_tcp" toml:"modbus_tcp"`
	WebSocket *WebSocketSinkConfig `yaml:"websocket" toml:"websocket"`
	SQLite    *SQLiteSinkConfig    `yaml:"sqlite" toml:"sqlite"`
}

type PipeSinkConfig struct {
	Path string `yaml:"path" toml:"path"`
}

type ModbusTCPSinkConfig struct {
	Endpoint  string `yaml:"endpoint" toml:"endpoint"`
	UnitID    uint8  `yaml:"unit_id" toml:"unit_id"` // data memory
	TimeoutMs int    `yaml:"timeout_ms" toml:"timeout_ms"`

	// Registers maps a channel tag to the first of its two holding registers.
	Registers map[string]uint16 `yaml:"registers" toml:"registers"`

	// Status block (optional, opt-in).
	StatusUnitID *uint8  `yaml:"status_unit_id" toml:"status_unit_id"`
	StatusSlot   *uint16 `yaml:"status_slot" toml:"status_slot"`
}

type WebSocketSinkConfig struct {
	Listen string `yaml:"listen" toml:"listen"`
	Path   string `yaml:"path" toml:"path"`
	Format string `yaml:"format" toml:"format"` // json | cbor
}

type SQLiteSinkConfig struct {
	Path string `yaml:"path" toml:"path"`
}

// Clone returns a copy that shares no pointers with c.
func (c ChannelConfig) Clone() ChannelConfig {
	out := c
	if c.ASCII != nil {
		a := *c.ASCII
		a.Delimiter = clonePtr(c.ASCII.Delimiter)
		out.ASCII = &a
	}
	if c.Modbus != nil {
		m := *c.Modbus
		m.Register = clonePtr(c.Modbus.Register)
		m.PLCAddress = clonePtr(c.Modbus.PLCAddress)
		m.Precision = clonePtr(c.Modbus.Precision)
		m.CacheMs = clonePtr(c.Modbus.CacheMs)
		m.RetryDelayMs = clonePtr(c.Modbus.RetryDelayMs)
		m.ResetDelayMs = clonePtr(c.Modbus.ResetDelayMs)
		out.Modbus = &m
	}
	return out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
