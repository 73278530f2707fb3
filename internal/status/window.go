// internal/status/window.go
package status

import "sync"

// DefaultWindowSize is the number of recent values kept per channel.
const DefaultWindowSize = 1000

// Window keeps the most recent numeric values of a channel.
// Safe for one writer and concurrent readers.
type Window struct {
	mu   sync.Mutex
	buf  []float64
	next int
	full bool
}

// WindowStats summarizes the values currently held.
type WindowStats struct {
	Count  int
	Latest float64
	Mean   float64
	Min    float64
	Max    float64
}

// NewWindow returns a window of the given capacity (DefaultWindowSize if <= 0).
func NewWindow(size int) *Window {
	if size <= 0 {
		size = DefaultWindowSize
	}
	return &Window{buf: make([]float64, size)}
}

// Add records v, evicting the oldest value when full.
func (w *Window) Add(v float64) {
	w.mu.Lock()
	w.buf[w.next] = v
	w.next++
	if w.next == len(w.buf) {
		w.next = 0
		w.full = true
	}
	w.mu.Unlock()
}

// Stats returns a summary; Count is zero when nothing was added.
func (w *Window) Stats() WindowStats {
	w.mu.Lock()
	defer w.mu.Unlock()

	n := w.next
	if w.full {
		n = len(w.buf)
	}
	if n == 0 {
		return WindowStats{}
	}

	last := w.next - 1
	if last < 0 {
		last = len(w.buf) - 1
	}

	st := WindowStats{Count: n, Latest: w.buf[last], Min: w.buf[0], Max: w.buf[0]}
	var sum float64
	for i := 0; i < n; i++ {
		v := w.buf[i]
		sum += v
		if v < st.Min {
			st.Min = v
		}
		if v > st.Max {
			st.Max = v
		}
	}
	st.Mean = sum / float64(n)
	return st
}
