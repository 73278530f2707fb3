// internal/status/snapshot.go
package status

import "time"

// Snapshot is the observable state of one channel at a point in time.
type Snapshot struct {
	Health         uint16
	LastErrorCode  uint16
	SecondsInError uint16

	Since time.Time

	Reads       uint64 // logical reads attempted (modbus) or link reads (ascii)
	Successes   uint64
	Errors      uint64 // failed attempts, including retries
	Retries     uint64
	Resets      uint64
	CacheHits   uint64
	DecodeDrops uint64
	Overflows   uint64
	Messages    uint64
	Batches     uint64
	Dropped     uint64 // reads that produced no value after all retries
}

// SuccessRate returns successful reads over reads, in [0,1].
func (s Snapshot) SuccessRate() float64 {
	if s.Reads == 0 {
		return 0
	}
	return float64(s.Successes) / float64(s.Reads)
}

// SampleRate returns produced samples per second since Since.
func (s Snapshot) SampleRate(now time.Time) float64 {
	elapsed := now.Sub(s.Since).Seconds()
	if elapsed <= 0 {
		return 0
	}
	return float64(s.Messages) / elapsed
}
