package telemetry

import (
	"fmt"
	"math"
)

// CPUStats is the computed CPU portion of a stats result.
type CPUStats struct {
	UsagePercent float64 `json:"usagePercent"`
	Cores        int     `json:"cores"`
}

// RAMStats is the computed memory portion of a stats result.
type RAMStats struct {
	UsedGB  float64 `json:"usedGb"`
	TotalGB float64 `json:"totalGb"`
	Percent float64 `json:"percent"`
}

// NetworkStats is the computed throughput portion of a stats result.
// RxRate and TxRate are rendered human-readable; the raw bytes-per-second
// values are kept for callers that graph or threshold on them.
type NetworkStats struct {
	RxRate        string  `json:"rxRate"`
	TxRate        string  `json:"txRate"`
	RxBytesPerSec float64 `json:"rxBytesPerSec"`
	TxBytesPerSec float64 `json:"txBytesPerSec"`
}

// StatsResult is the final metrics value produced for one host.
type StatsResult struct {
	CPU     CPUStats     `json:"cpu"`
	RAM     RAMStats     `json:"ram"`
	Network NetworkStats `json:"network"`
}

// Compute turns two parsed snapshots into a stats result. It is a pure
// transform with no internal state.
//
// Rates divide counter deltas by the nominal one-second in-command sleep,
// not measured wall time. The sleep is not exactly a second once command
// startup is counted, so rates run slightly low; this approximation is
// kept deliberately because changing the denominator changes observable
// output. All deltas clamp at zero so counter wrap-around or an interface
// reset never yields negative usage.
func Compute(first, second Sample) StatsResult {
	var result StatsResult

	totalDelta := clampDelta(second.CPUTotal, first.CPUTotal)
	workDelta := clampDelta(second.CPUWork, first.CPUWork)
	if totalDelta > 0 {
		result.CPU.UsagePercent = round1(float64(workDelta) / float64(totalDelta) * 100)
	}
	result.CPU.Cores = first.Cores

	// Memory comes from the first snapshot only; it is not re-sampled.
	usedKB := first.MemTotalKB - first.MemAvailableKB
	result.RAM.UsedGB = round2(float64(usedKB) / (1024 * 1024))
	result.RAM.TotalGB = round2(float64(first.MemTotalKB) / (1024 * 1024))
	if first.MemTotalKB > 0 {
		result.RAM.Percent = round1(float64(usedKB) / float64(first.MemTotalKB) * 100)
	}

	seconds := SampleInterval.Seconds()
	result.Network.RxBytesPerSec = float64(clampDelta(second.RxBytes, first.RxBytes)) / seconds
	result.Network.TxBytesPerSec = float64(clampDelta(second.TxBytes, first.TxBytes)) / seconds
	result.Network.RxRate = FormatRate(result.Network.RxBytesPerSec)
	result.Network.TxRate = FormatRate(result.Network.TxBytesPerSec)

	return result
}

// FormatRate formats a bytes-per-second rate as a human-readable string.
func FormatRate(bytesPerSecond float64) string {
	const unit = 1024.0
	switch {
	case bytesPerSecond < unit:
		return fmt.Sprintf("%.0f B/s", bytesPerSecond)
	case bytesPerSecond < unit*unit:
		return fmt.Sprintf("%.1f KB/s", bytesPerSecond/unit)
	case bytesPerSecond < unit*unit*unit:
		return fmt.Sprintf("%.1f MB/s", bytesPerSecond/(unit*unit))
	default:
		return fmt.Sprintf("%.2f GB/s", bytesPerSecond/(unit*unit*unit))
	}
}

// clampDelta returns current minus previous, floored at zero.
func clampDelta(current, previous int64) int64 {
	delta := current - previous
	if delta < 0 {
		return 0
	}
	return delta
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
