// internal/writer/status_writer_test.go
package writer

import (
	"errors"
	"testing"

	"github.com/tamzrod/force-daq/internal/status"
)

type regWrite struct {
	unitID uint8
	addr   uint16
	regs   []uint16
}

type fakeEndpointClient struct {
	writes []regWrite
	fail   error
}

func (f *fakeEndpointClient) WriteRegisters(unitID uint8, addr uint16, regs []uint16) error {
	if f.fail != nil {
		return f.fail
	}
	f.writes = append(f.writes, regWrite{unitID: unitID, addr: addr, regs: append([]uint16(nil), regs...)})
	return nil
}

func (f *fakeEndpointClient) last() regWrite { return f.writes[len(f.writes)-1] }

func TestChannelTagWrittenOnFullAssertOnly(t *testing.T) {
	cli := &fakeEndpointClient{}
	plan := StatusPlan{UnitID: 2, BaseSlot: 3, Tag: "LOAD-X"}

	sw := NewChannelStatusWriter(plan, cli)

	// ---- first write: FULL ASSERT ----
	if err := sw.WriteStatus(status.Snapshot{Health: status.HealthOK}); err != nil {
		t.Fatalf("initial full assert failed: %v", err)
	}

	full := cli.last()
	if len(full.regs) != status.SlotsPerChannel {
		t.Fatalf("expected full block write (%d regs), got %d", status.SlotsPerChannel, len(full.regs))
	}
	if full.addr != 3*status.SlotsPerChannel || full.unitID != 2 {
		t.Fatalf("unexpected target: unit=%d addr=%d", full.unitID, full.addr)
	}

	wantTag := status.EncodeTag(plan.Tag)
	for i := 0; i < status.SlotTagSlots; i++ {
		slot := status.SlotTagStart + i
		if full.regs[slot] != wantTag[i] {
			t.Fatalf("tag slot %d mismatch: got=%d want=%d", slot, full.regs[slot], wantTag[i])
		}
	}

	// ---- second write: INCREMENTAL ONLY ----
	n := len(cli.writes)
	second := status.Snapshot{Health: status.HealthError, LastErrorCode: 7, SecondsInError: 1}
	if err := sw.WriteStatus(second); err != nil {
		t.Fatalf("incremental write failed: %v", err)
	}

	inc := cli.writes[n:]
	if len(inc) != 3 {
		t.Fatalf("expected 3 single-slot writes, got %d", len(inc))
	}
	for _, w := range inc {
		if len(w.regs) != 1 {
			t.Fatalf("tag should not be rewritten on incremental update")
		}
		if w.addr >= full.addr+status.SlotTagStart {
			t.Fatalf("incremental write reached tag area: addr=%d", w.addr)
		}
	}

	// ---- unchanged snapshot: nothing written ----
	n = len(cli.writes)
	if err := sw.WriteStatus(second); err != nil {
		t.Fatalf("unchanged write failed: %v", err)
	}
	if len(cli.writes) != n {
		t.Fatalf("unchanged snapshot produced %d writes", len(cli.writes)-n)
	}
}

func TestStatusWriteFailureForcesFullAssert(t *testing.T) {
	cli := &fakeEndpointClient{}
	sw := NewChannelStatusWriter(StatusPlan{UnitID: 1, Tag: "X"}, cli)

	if err := sw.WriteStatus(status.Snapshot{Health: status.HealthOK}); err != nil {
		t.Fatalf("full assert failed: %v", err)
	}

	cli.fail = errors.New("connection reset")
	if err := sw.WriteStatus(status.Snapshot{Health: status.HealthError}); err == nil {
		t.Fatalf("expected error")
	}

	cli.fail = nil
	if err := sw.WriteStatus(status.Snapshot{Health: status.HealthError}); err != nil {
		t.Fatalf("recovery write failed: %v", err)
	}
	if got := len(cli.last().regs); got != status.SlotsPerChannel {
		t.Fatalf("expected full re-assert after failure, got %d regs", got)
	}
}

func TestStatusWriterMissingClient(t *testing.T) {
	sw := NewChannelStatusWriter(StatusPlan{Tag: "X"}, nil)
	if err := sw.WriteStatus(status.Snapshot{}); err == nil {
		t.Fatalf("expected error for missing client")
	}
}
