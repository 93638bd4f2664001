package authkit

import "sync"

// MetricsRecorder counts authentication events such as auth.login.success.
type MetricsRecorder interface {
	Increment(event string)
}

// CounterMetrics keeps event counts in memory.
type CounterMetrics struct {
	mutex  sync.Mutex
	counts map[string]int64
}

// NewCounterMetrics constructs an in-memory metrics recorder.
func NewCounterMetrics() *CounterMetrics {
	return &CounterMetrics{counts: make(map[string]int64)}
}

// Increment increases the counter for the given event.
func (recorder *CounterMetrics) Increment(event string) {
	recorder.mutex.Lock()
	defer recorder.mutex.Unlock()
	recorder.counts[event]++
}

// Count returns the current value for the given event.
func (recorder *CounterMetrics) Count(event string) int64 {
	recorder.mutex.Lock()
	defer recorder.mutex.Unlock()
	return recorder.counts[event]
}

// Snapshot copies the current counts.
func (recorder *CounterMetrics) Snapshot() map[string]int64 {
	recorder.mutex.Lock()
	defer recorder.mutex.Unlock()
	snapshot := make(map[string]int64, len(recorder.counts))
	for event, count := range recorder.counts {
		snapshot[event] = count
	}
	return snapshot
}

// FanOutMetrics forwards each event to every recorder.
type FanOutMetrics []MetricsRecorder

// Increment forwards event to all non-nil recorders.
func (recorders FanOutMetrics) Increment(event string) {
	for _, recorder := range recorders {
		if recorder != nil {
			recorder.Increment(event)
		}
	}
}
