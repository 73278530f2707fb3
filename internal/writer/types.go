// internal/writer/types.go
package writer

import (
	"github.com/tamzrod/force-daq/internal/poller"
	"github.com/tamzrod/force-daq/internal/status"
)

// Writer delivers the batches drained from one channel.
// Batches arrive in decode order.
type Writer interface {
	Write(channel string, batches []poller.Batch) error
	Close() error
}

// StatusWriter is the delivery-only contract for channel status.
// It receives a snapshot and writes it verbatim.
type StatusWriter interface {
	WriteStatus(s status.Snapshot) error
}

// endpointClient is the register-write contract of a Modbus TCP endpoint.
type endpointClient interface {
	WriteRegisters(unitID uint8, addr uint16, regs []uint16) error
}

// RegisterPlan places channel values in a Modbus TCP data memory.
type RegisterPlan struct {
	UnitID    uint8
	Registers map[string]uint16 // channel tag -> first of two registers
}

// StatusPlan places one channel status block in a Modbus TCP status memory.
type StatusPlan struct {
	UnitID   uint8
	BaseSlot uint16 // block index; address = BaseSlot * status.SlotsPerChannel
	Tag      string
}
