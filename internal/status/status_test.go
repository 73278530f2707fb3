// internal/status/status_test.go
package status

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamzrod/force-daq/internal/link"
)

type codedErr struct{ code uint16 }

func (e codedErr) Error() string { return "coded" }
func (e codedErr) Code() uint16  { return e.code }

func TestCodeOf(t *testing.T) {
	assert.Equal(t, uint16(0), CodeOf(nil))
	assert.Equal(t, uint16(7), CodeOf(fmt.Errorf("wrapped: %w", codedErr{7})))
	assert.Equal(t, ErrorCodeTimeout, CodeOf(fmt.Errorf("read: %w", link.ErrTimeout)))
	assert.Equal(t, ErrorCodeGeneric, CodeOf(errors.New("boom")))
}

func TestCounters_Snapshot(t *testing.T) {
	c := NewCounters()
	c.Reads.Add(4)
	c.Successes.Add(3)
	c.Fail(codedErr{0x0101})
	c.Messages.Add(3)

	s := c.Snapshot()
	assert.Equal(t, uint64(4), s.Reads)
	assert.Equal(t, uint64(1), s.Errors)
	assert.Equal(t, uint16(0x0101), s.LastErrorCode)
	assert.InDelta(t, 0.75, s.SuccessRate(), 1e-9)
	assert.Greater(t, s.SampleRate(s.Since.Add(time.Second)), 2.9)
}

func TestTracker_ErrorThenRecovery(t *testing.T) {
	tr := NewTracker()
	assert.Equal(t, HealthUnknown, tr.Apply(Snapshot{}).Health)

	// Error observed
	changed := tr.Observe(Snapshot{Errors: 3, LastErrorCode: ErrorCodeCRC}, 0)
	require.True(t, changed)
	s := tr.Apply(Snapshot{})
	assert.Equal(t, HealthError, s.Health)
	assert.Equal(t, ErrorCodeCRC, s.LastErrorCode)

	// Seconds tick only while not OK
	assert.True(t, tr.Tick())
	assert.True(t, tr.Tick())
	assert.Equal(t, uint16(2), tr.Apply(Snapshot{}).SecondsInError)

	// Same error count, nothing produced: no change
	assert.False(t, tr.Observe(Snapshot{Errors: 3, LastErrorCode: ErrorCodeCRC}, 0))

	// Recovery resets everything
	assert.True(t, tr.Observe(Snapshot{Errors: 3}, 5))
	s = tr.Apply(Snapshot{})
	assert.Equal(t, HealthOK, s.Health)
	assert.Equal(t, uint16(0), s.LastErrorCode)
	assert.Equal(t, uint16(0), s.SecondsInError)
	assert.False(t, tr.Tick())
}

func TestTracker_SecondsSaturate(t *testing.T) {
	tr := NewTracker()
	tr.secondsInError = 0xFFFE
	assert.True(t, tr.Tick())
	assert.False(t, tr.Tick())
	assert.Equal(t, uint16(0xFFFF), tr.Apply(Snapshot{}).SecondsInError)
}

func TestEncode_Layout(t *testing.T) {
	regs := Encode(Snapshot{
		Health:         HealthError,
		LastErrorCode:  9,
		SecondsInError: 4,
		Resets:         2,
		Overflows:      70000,
		Dropped:        1,
	})

	require.Len(t, regs, SlotsPerChannel)
	assert.Equal(t, HealthError, regs[SlotHealthCode])
	assert.Equal(t, uint16(9), regs[SlotLastErrorCode])
	assert.Equal(t, uint16(4), regs[SlotSecondsInError])
	assert.Equal(t, uint16(2), regs[SlotLinkResets])
	assert.Equal(t, uint16(0xFFFF), regs[SlotOverflows])
	assert.Equal(t, uint16(1), regs[SlotDropped])
	for i := SlotReservedStart; i <= SlotTagEnd; i++ {
		assert.Zero(t, regs[i], "slot %d", i)
	}
}

func TestEncodeTag(t *testing.T) {
	regs := EncodeTag("X1\x01")
	require.Len(t, regs, SlotTagSlots)
	assert.Equal(t, uint16('X')<<8|uint16('1'), regs[0])
	assert.Equal(t, uint16('?')<<8, regs[1])
	assert.Zero(t, regs[2])

	long := EncodeTag("ABCDEFGHIJKLMNOPQRST")
	assert.Equal(t, uint16('O')<<8|uint16('P'), long[7])
}

func TestWindow_Stats(t *testing.T) {
	w := NewWindow(3)
	assert.Equal(t, 0, w.Stats().Count)

	w.Add(1)
	w.Add(2)
	st := w.Stats()
	assert.Equal(t, 2, st.Count)
	assert.Equal(t, 2.0, st.Latest)
	assert.InDelta(t, 1.5, st.Mean, 1e-9)

	w.Add(3)
	w.Add(10) // evicts 1
	st = w.Stats()
	assert.Equal(t, 3, st.Count)
	assert.Equal(t, 10.0, st.Latest)
	assert.Equal(t, 2.0, st.Min)
	assert.Equal(t, 10.0, st.Max)
	assert.InDelta(t, 5.0, st.Mean, 1e-9)
}
