package watch

import (
	"sync"

	"github.com/hostpulse/hostpulse/internal/telemetry"
)

// DefaultHistorySize is the default number of data points to retain per metric.
const DefaultHistorySize = 60

// History keeps ring buffers of recent samples for sparkline rendering.
type History struct {
	mu   sync.RWMutex
	size int

	cpu *ringBuffer
	ram *ringBuffer
	rx  *ringBuffer
	tx  *ringBuffer
}

// ringBuffer is a fixed-size circular buffer for float64 values.
type ringBuffer struct {
	data  []float64
	head  int
	count int
	size  int
}

// NewHistory creates a history tracker retaining size points per metric.
func NewHistory(size int) *History {
	if size <= 0 {
		size = DefaultHistorySize
	}
	return &History{
		size: size,
		cpu:  newRingBuffer(size),
		ram:  newRingBuffer(size),
		rx:   newRingBuffer(size),
		tx:   newRingBuffer(size),
	}
}

// Push appends one gathered result to every series.
func (h *History) Push(res *telemetry.StatsResult) {
	if res == nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.cpu.push(res.CPU.UsagePercent)
	h.ram.push(res.RAM.Percent)
	h.rx.push(res.Network.RxBytesPerSec)
	h.tx.push(res.Network.TxBytesPerSec)
}

// CPU returns the CPU usage series, oldest first.
func (h *History) CPU() []float64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.cpu.values()
}

// RAM returns the RAM usage series, oldest first.
func (h *History) RAM() []float64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.ram.values()
}

// Rx returns the receive-rate series in bytes/sec, oldest first.
func (h *History) Rx() []float64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.rx.values()
}

// Tx returns the transmit-rate series in bytes/sec, oldest first.
func (h *History) Tx() []float64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.tx.values()
}

// Len reports how many samples have been pushed, capped at the buffer size.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.cpu.count
}

func newRingBuffer(size int) *ringBuffer {
	return &ringBuffer{
		data: make([]float64, size),
		size: size,
	}
}

func (r *ringBuffer) push(v float64) {
	r.data[r.head] = v
	r.head = (r.head + 1) % r.size
	if r.count < r.size {
		r.count++
	}
}

// values returns the buffered values in insertion order, oldest first.
func (r *ringBuffer) values() []float64 {
	out := make([]float64, 0, r.count)
	start := r.head - r.count
	if start < 0 {
		start += r.size
	}
	for i := 0; i < r.count; i++ {
		out = append(out, r.data[(start+i)%r.size])
	}
	return out
}
