// internal/status/tracker.go
package status

// Tracker derives channel health from successive counter snapshots.
// It is owned by a single consumer goroutine; it is not safe for concurrent use.
type Tracker struct {
	health         uint16
	lastErrorCode  uint16
	secondsInError uint16

	lastErrors    uint64
	lastOverflows uint64
}

// NewTracker starts in HealthUnknown.
func NewTracker() *Tracker {
	return &Tracker{health: HealthUnknown}
}

// Observe folds one drain cycle into the health state.
// produced is the number of samples drained in that cycle.
// It reports whether any published field changed.
func (t *Tracker) Observe(c Snapshot, produced int) bool {
	failed := c.Errors > t.lastErrors || c.Overflows > t.lastOverflows
	t.lastErrors = c.Errors
	t.lastOverflows = c.Overflows

	changed := false

	switch {
	case produced > 0:
		// Recovery / OK
		if t.health != HealthOK {
			t.health = HealthOK
			changed = true
		}
		if t.lastErrorCode != 0 {
			t.lastErrorCode = 0
			changed = true
		}
		if t.secondsInError != 0 {
			t.secondsInError = 0
			changed = true
		}

	case failed:
		if t.health != HealthError {
			t.health = HealthError
			changed = true
		}
		code := c.LastErrorCode
		if code == 0 {
			code = ErrorCodeGeneric
		}
		if t.lastErrorCode != code {
			t.lastErrorCode = code
			changed = true
		}
		// seconds_in_error increments on Tick only.
	}

	return changed
}

// Tick advances seconds_in_error by one while not OK. Call at 1 Hz.
// The counter saturates instead of wrapping.
func (t *Tracker) Tick() bool {
	if t.health == HealthOK || t.health == HealthStopped {
		return false
	}
	if t.secondsInError == 0xFFFF {
		return false
	}
	t.secondsInError++
	return true
}

// Stop marks the channel stopped.
func (t *Tracker) Stop() {
	t.health = HealthStopped
}

// Apply overlays the tracked health fields onto a counter snapshot.
func (t *Tracker) Apply(s Snapshot) Snapshot {
	s.Health = t.health
	s.LastErrorCode = t.lastErrorCode
	s.SecondsInError = t.secondsInError
	return s
}
