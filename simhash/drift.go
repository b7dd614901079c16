package simhash

import (
	"slices"
	"sync"
)

// EmptyPageStreak is how many consecutive drifted pages without a single
// candidate it takes to raise an alert. One such page is usually a query
// with no results; a run of them is a redesign the extractor cannot read.
const EmptyPageStreak = 3

// DriftMonitor remembers the layout fingerprint of each source's last
// productive page and flags fetches whose layout moved further than the
// threshold.
type DriftMonitor struct {
	threshold int

	mu       sync.Mutex
	baseline map[string]uint64
	streak   map[string]int
	drifted  map[string]bool
}

// NewDriftMonitor creates a monitor that reports distances above threshold.
func NewDriftMonitor(threshold int) *DriftMonitor {
	return &DriftMonitor{
		threshold: threshold,
		baseline:  make(map[string]uint64),
		streak:    make(map[string]int),
		drifted:   make(map[string]bool),
	}
}

// Observe fingerprints htmlStr and compares it with the last productive page
// of source. productive reports whether extraction found any candidate on
// the page.
//
// A productive page is compared and then becomes the baseline, so one
// redesign raises one alert. An unproductive page never replaces the
// baseline and only drifts after EmptyPageStreak consecutive mismatches.
// A page with no elements, or an unproductive page before any baseline
// exists, is ignored.
func (m *DriftMonitor) Observe(source, htmlStr string, productive bool) (distance int, drifted bool) {
	fp := FingerprintLayout(htmlStr)
	if fp == 0 {
		return 0, false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	prev, seen := m.baseline[source]
	if productive {
		m.baseline[source] = fp
		m.streak[source] = 0
	}
	if !seen {
		return 0, false
	}

	distance = Distance(prev, fp)
	switch {
	case productive:
		drifted = distance > m.threshold
	case distance > m.threshold:
		m.streak[source]++
		drifted = m.streak[source] >= EmptyPageStreak
	default:
		m.streak[source] = 0
	}
	m.drifted[source] = drifted
	return distance, drifted
}

// Alerts lists the sources whose most recent comparison drifted, sorted.
func (m *DriftMonitor) Alerts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []string
	for source, d := range m.drifted {
		if d {
			out = append(out, source)
		}
	}
	slices.Sort(out)
	return out
}
