package watch

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hostpulse/hostpulse/internal/telemetry"
)

func resultWith(cpu, ram, rx, tx float64) *telemetry.StatsResult {
	return &telemetry.StatsResult{
		CPU:     telemetry.CPUStats{UsagePercent: cpu, Cores: 4},
		RAM:     telemetry.RAMStats{Percent: ram},
		Network: telemetry.NetworkStats{RxBytesPerSec: rx, TxBytesPerSec: tx},
	}
}

func TestHistory_PushAndRead(t *testing.T) {
	h := NewHistory(4)

	h.Push(resultWith(10, 40, 100, 200))
	h.Push(resultWith(20, 50, 300, 400))

	assert.Equal(t, 2, h.Len())
	assert.Equal(t, []float64{10, 20}, h.CPU())
	assert.Equal(t, []float64{40, 50}, h.RAM())
	assert.Equal(t, []float64{100, 300}, h.Rx())
	assert.Equal(t, []float64{200, 400}, h.Tx())
}

func TestHistory_WrapsOldestFirst(t *testing.T) {
	h := NewHistory(3)

	for i := 1; i <= 5; i++ {
		h.Push(resultWith(float64(i*10), 0, 0, 0))
	}

	// Buffer keeps only the 3 most recent, oldest first
	assert.Equal(t, 3, h.Len())
	assert.Equal(t, []float64{30, 40, 50}, h.CPU())
}

func TestHistory_NilPushIgnored(t *testing.T) {
	h := NewHistory(3)
	h.Push(nil)
	assert.Equal(t, 0, h.Len())
	assert.Empty(t, h.CPU())
}

func TestHistory_DefaultSize(t *testing.T) {
	h := NewHistory(0)
	for i := 0; i < DefaultHistorySize+10; i++ {
		h.Push(resultWith(1, 1, 1, 1))
	}
	assert.Equal(t, DefaultHistorySize, h.Len())
}
