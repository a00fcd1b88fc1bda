package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const sampleNetDev = `Inter-|   Receive                                                |  Transmit
 face |bytes    packets errs drop fifo frame compressed multicast|bytes    packets errs drop fifo colls carrier compressed
    lo:  100000     500    0    0    0     0          0         0   100000     500    0    0    0     0       0          0
  eth0: 1000000    2000    0    0    0     0          0         0  2000000    1500    0    0    0     0       0          0
 wlan0:  300000     800    0    0    0     0          0         0   400000     600    0    0    0     0       0          0`

func TestParseCPUAggregate(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		wantTotal int64
		wantWork  int64
	}{
		{
			name:      "documented property",
			text:      "cpu 100 0 100 800 0 0 0 0",
			wantTotal: 1000,
			wantWork:  200,
		},
		{
			name: "aggregate line among per-core lines",
			text: `cpu  400 10 90 1400 50 10 30 10 0 0
cpu0 100 5 45 700 25 5 15 5 0 0
cpu1 300 5 45 700 25 5 15 5 0 0`,
			wantTotal: 2000,
			wantWork:  600,
		},
		{
			name:      "guest fields beyond the eighth are ignored",
			text:      "cpu 100 0 100 800 0 0 0 0 500 500",
			wantTotal: 1000,
			wantWork:  200,
		},
		{
			name:      "missing aggregate line",
			text:      "cpu0 100 5 45 700 25 5 15 5",
			wantTotal: 0,
			wantWork:  0,
		},
		{
			name:      "garbage field",
			text:      "cpu 100 zero 100 800 0 0 0 0",
			wantTotal: 0,
			wantWork:  0,
		},
		{
			name:      "empty input",
			text:      "",
			wantTotal: 0,
			wantWork:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			total, work := ParseCPUAggregate(tt.text)
			assert.Equal(t, tt.wantTotal, total)
			assert.Equal(t, tt.wantWork, work)
		})
	}
}

func TestParseMemField(t *testing.T) {
	meminfo := `MemTotal:        8000000 kB
MemFree:         1200000 kB
MemAvailable:    2000000 kB
Buffers:          300000 kB
Cached:          1800000 kB`

	tests := []struct {
		name string
		key  string
		want int64
	}{
		{name: "MemTotal", key: "MemTotal", want: 8000000},
		{name: "MemAvailable", key: "MemAvailable", want: 2000000},
		{name: "missing label defaults to zero", key: "SwapTotal", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseMemField(meminfo, tt.key))
		})
	}
}

func TestParseMemFieldEmptyInput(t *testing.T) {
	assert.Equal(t, int64(0), ParseMemField("", "MemTotal"))
}

func TestSelectPrimaryInterface(t *testing.T) {
	t.Run("prefers physical adapter over loopback", func(t *testing.T) {
		rx, tx := SelectPrimaryInterface(sampleNetDev)
		assert.Equal(t, int64(1000000), rx, "should pick eth0's receive counter")
		assert.Equal(t, int64(2000000), tx, "should pick eth0's transmit counter")
	})

	t.Run("falls back to first non-loopback candidate", func(t *testing.T) {
		text := `Inter-|   Receive                                                |  Transmit
 face |bytes    packets errs drop fifo frame compressed multicast|bytes    packets errs drop fifo colls carrier compressed
    lo:  100000     500    0    0    0     0          0         0   100000     500    0    0    0     0       0          0
docker0:  700000    1000    0    0    0     0          0         0   800000     900    0    0    0     0       0          0`

		rx, tx := SelectPrimaryInterface(text)
		assert.Equal(t, int64(700000), rx)
		assert.Equal(t, int64(800000), tx)
	})

	t.Run("no candidates", func(t *testing.T) {
		text := `Inter-|   Receive                                                |  Transmit
 face |bytes    packets errs drop fifo frame compressed multicast|bytes    packets errs drop fifo colls carrier compressed
    lo:  100000     500    0    0    0     0          0         0   100000     500    0    0    0     0       0          0`

		rx, tx := SelectPrimaryInterface(text)
		assert.Zero(t, rx)
		assert.Zero(t, tx)
	})

	t.Run("empty input", func(t *testing.T) {
		rx, tx := SelectPrimaryInterface("")
		assert.Zero(t, rx)
		assert.Zero(t, tx)
	})
}

func TestParseCoreCount(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{
			name: "bare integer line from nproc",
			text: "MemTotal: 8000000 kB\n8\n",
			want: 8,
		},
		{
			name: "no count defaults to one",
			text: "MemTotal: 8000000 kB",
			want: 1,
		},
		{
			name: "empty input defaults to one",
			text: "",
			want: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseCoreCount(tt.text))
		})
	}
}

func TestParseSample(t *testing.T) {
	raw := sampleNetDev + "\n" +
		"cpu 100 0 100 800 0 0 0 0\n" +
		"cpu0 50 0 50 400 0 0 0 0\n" +
		"MemTotal:        8000000 kB\n" +
		"MemAvailable:    2000000 kB\n" +
		"4\n"

	s := ParseSample(raw)
	assert.Equal(t, int64(1000), s.CPUTotal)
	assert.Equal(t, int64(200), s.CPUWork)
	assert.Equal(t, int64(8000000), s.MemTotalKB)
	assert.Equal(t, int64(2000000), s.MemAvailableKB)
	assert.Equal(t, 4, s.Cores)
	assert.Equal(t, int64(1000000), s.RxBytes)
	assert.Equal(t, int64(2000000), s.TxBytes)
}

func TestParseSampleDegradesToZeros(t *testing.T) {
	// A mangled snapshot yields zero values, not a failure.
	s := ParseSample("complete garbage\nnothing useful here")
	assert.Zero(t, s.CPUTotal)
	assert.Zero(t, s.CPUWork)
	assert.Zero(t, s.MemTotalKB)
	assert.Zero(t, s.RxBytes)
	assert.Zero(t, s.TxBytes)
	assert.Equal(t, 1, s.Cores)
}
