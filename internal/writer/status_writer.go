// internal/writer/status_writer.go
package writer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tamzrod/force-daq/internal/status"
)

// channelStatusWriter writes one channel status block.
type channelStatusWriter struct {
	plan StatusPlan
	cli  endpointClient

	needFull bool
	last     []uint16
	tagRegs  []uint16
}

// NewChannelStatusWriter builds a status writer for one channel block.
func NewChannelStatusWriter(plan StatusPlan, cli endpointClient) StatusWriter {
	return &channelStatusWriter{
		plan:     plan,
		cli:      cli,
		needFull: true, // full re-assert on first write
		tagRegs:  status.EncodeTag(plan.Tag),
	}
}

// WriteStatus delivers a channel status snapshot into status memory.
// The first call writes the full block; later calls write changed slots only.
// On any write failure, the next call re-asserts the full block.
func (sw *channelStatusWriter) WriteStatus(s status.Snapshot) error {
	if sw.cli == nil {
		return errors.New("status writer: missing client")
	}

	regs := status.Encode(s)
	baseAddr := sw.baseAddr()

	// ------------------------------------------------------------
	// Full block write (identity re-assert)
	// ------------------------------------------------------------
	if sw.needFull {
		full := append([]uint16(nil), regs...)
		copy(full[status.SlotTagStart:status.SlotTagEnd+1], sw.tagRegs)

		if err := sw.cli.WriteRegisters(sw.plan.UnitID, baseAddr, full); err != nil {
			return fmt.Errorf("status writer: full block write failed: %w", err)
		}

		sw.needFull = false
		sw.last = regs
		return nil
	}

	// ------------------------------------------------------------
	// Incremental: live slots only
	// ------------------------------------------------------------
	var errs []string
	for slot := status.SlotHealthCode; slot < status.SlotReservedStart; slot++ {
		if sw.last[slot] == regs[slot] {
			continue
		}
		if err := sw.cli.WriteRegisters(sw.plan.UnitID, baseAddr+uint16(slot), regs[slot:slot+1]); err != nil {
			errs = append(errs, fmt.Sprintf("slot%d write failed: %v", slot, err))
			continue
		}
		sw.last[slot] = regs[slot]
	}

	if len(errs) > 0 {
		// Any partial failure introduces doubt: re-assert on next call.
		sw.needFull = true
		return errors.New("status writer: " + strings.Join(errs, " | "))
	}
	return nil
}

func (sw *channelStatusWriter) baseAddr() uint16 {
	// Each channel owns a fixed SlotsPerChannel block.
	return sw.plan.BaseSlot * status.SlotsPerChannel
}
