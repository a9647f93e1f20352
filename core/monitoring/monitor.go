// Package monitoring reports unexpected errors and panics to an external
// error tracker. Until Init is called every function is a no-op.
package monitoring

import (
	"sync"
	"time"
)

// Monitor defines methods used for error reporting.
type Monitor interface {
	CaptureException(err error, tags map[string]string)
	// CapturePanic records a value obtained from recover.
	CapturePanic(v any)
	Flush(timeout time.Duration)
}

// NopMonitor discards everything.
type NopMonitor struct{}

func (NopMonitor) CaptureException(error, map[string]string) {}
func (NopMonitor) CapturePanic(any)                          {}
func (NopMonitor) Flush(time.Duration)                       {}

var (
	mu      sync.RWMutex
	current Monitor = NopMonitor{}
)

// Init sets the process-wide monitor. A nil monitor is ignored.
func Init(m Monitor) {
	if m == nil {
		return
	}
	mu.Lock()
	current = m
	mu.Unlock()
}

// Current returns the process-wide monitor.
func Current() Monitor {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// CaptureException records err with optional tags.
func CaptureException(err error, tags map[string]string) {
	if err == nil {
		return
	}
	Current().CaptureException(err, tags)
}

// FlushTimeout bounds the wait for delivery before a panic propagates.
const FlushTimeout = 2 * time.Second

// Recover reports a panic of the calling goroutine and re-panics. It must be
// deferred directly.
func Recover() {
	if r := recover(); r != nil {
		m := Current()
		m.CapturePanic(r)
		m.Flush(FlushTimeout)
		panic(r)
	}
}

// Flush waits up to d for buffered events to be delivered.
func Flush(d time.Duration) { Current().Flush(d) }
