package telemetry

import (
	"bufio"
	"strconv"
	"strings"
)

// Sample holds the typed fields extracted from one raw snapshot.
// MemTotalKB, MemAvailableKB, and Cores are only populated for the first
// snapshot of a round trip; the second snapshot re-dumps counters only.
type Sample struct {
	CPUTotal       int64 // sum of the eight jiffy fields of the aggregate cpu line
	CPUWork        int64 // CPUTotal minus idle
	MemTotalKB     int64
	MemAvailableKB int64
	Cores          int
	RxBytes        int64
	TxBytes        int64
}

// physicalPrefixes are interface name prefixes that usually denote a real
// adapter rather than a virtual or tunnel device.
var physicalPrefixes = []string{"eth", "ens", "enp", "wlan"}

// ParseSample extracts all telemetry fields from one raw snapshot. Missing
// counters come back zero-valued rather than failing the whole sample, so
// a partially readable host still yields a usable result.
func ParseSample(text string) Sample {
	s := Sample{}
	s.CPUTotal, s.CPUWork = ParseCPUAggregate(text)
	s.MemTotalKB = ParseMemField(text, "MemTotal")
	s.MemAvailableKB = ParseMemField(text, "MemAvailable")
	s.Cores = ParseCoreCount(text)
	s.RxBytes, s.TxBytes = SelectPrimaryInterface(text)
	return s
}

// ParseCPUAggregate locates the aggregate cpu line of /proc/stat and sums
// its first eight jiffy fields (user, nice, system, idle, iowait, irq,
// softirq, steal) into total; work is total minus idle. Returns zeros when
// the line is absent or unparsable.
func ParseCPUAggregate(text string) (total, work int64) {
	scanner := bufio.NewScanner(strings.NewReader(text))
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "cpu ") {
			continue
		}

		fields := strings.Fields(line)
		// fields[0] is the "cpu" label; jiffy fields follow.
		var idle int64
		n := 0
		for i := 1; i < len(fields) && n < 8; i++ {
			val, err := strconv.ParseInt(fields[i], 10, 64)
			if err != nil {
				return 0, 0
			}
			total += val
			if i == 4 {
				idle = val
			}
			n++
		}
		if n == 0 {
			return 0, 0
		}
		return total, total - idle
	}
	return 0, 0
}

// ParseMemField returns the integer kB value following a /proc/meminfo
// label (e.g. "MemTotal"), or 0 if the label is missing.
func ParseMemField(text, key string) int64 {
	prefix := key + ":"
	scanner := bufio.NewScanner(strings.NewReader(text))
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, prefix) {
			continue
		}
		fields := strings.Fields(line[len(prefix):])
		if len(fields) == 0 {
			return 0
		}
		val, err := strconv.ParseInt(fields[0], 10, 64)
		if err != nil {
			return 0
		}
		return val
	}
	return 0
}

// SelectPrimaryInterface picks the interface whose counters represent the
// host's traffic: loopback and the two header lines are skipped, names
// matching a known physical-adapter prefix win, and the first remaining
// candidate is the fallback. Returns the receive and transmit byte
// counters, or zeros when no candidate exists.
func SelectPrimaryInterface(text string) (rx, tx int64) {
	type candidate struct {
		name   string
		rx, tx int64
	}
	var candidates []candidate

	scanner := bufio.NewScanner(strings.NewReader(text))
	for scanner.Scan() {
		line := scanner.Text()

		// Interface rows look like "  eth0: 12345 ...". The header lines
		// of /proc/net/dev contain either no colon or a "|" column marker.
		colon := strings.Index(line, ":")
		if colon < 0 || strings.Contains(line, "|") {
			continue
		}

		name := strings.TrimSpace(line[:colon])
		if name == "" || name == "lo" || strings.Contains(name, " ") {
			continue
		}

		fields := strings.Fields(line[colon+1:])
		if len(fields) < 9 {
			continue
		}

		rxBytes, err := strconv.ParseInt(fields[0], 10, 64)
		if err != nil {
			continue
		}
		txBytes, err := strconv.ParseInt(fields[8], 10, 64)
		if err != nil {
			continue
		}

		candidates = append(candidates, candidate{name: name, rx: rxBytes, tx: txBytes})
	}

	if len(candidates) == 0 {
		return 0, 0
	}

	for _, c := range candidates {
		for _, prefix := range physicalPrefixes {
			if strings.HasPrefix(c.name, prefix) {
				return c.rx, c.tx
			}
		}
	}
	return candidates[0].rx, candidates[0].tx
}

// ParseCoreCount finds the core count in a snapshot. The sampling command
// emits it as a bare integer line (nproc output); the default is 1 when no
// such line exists.
func ParseCoreCount(text string) int {
	scanner := bufio.NewScanner(strings.NewReader(text))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.ContainsAny(line, ": |") {
			continue
		}
		if count, err := strconv.Atoi(line); err == nil && count > 0 {
			return count
		}
	}
	return 1
}
