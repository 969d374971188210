package detect

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Stats is the live counters a detector-family runner keeps behind an
// RWMutex: scans performed, opportunities found, per-key counts (coin,
// market, or pair depending on the family), the last value observed per
// key (best spread, lowest cost, current price — family-specific), and
// the last scan/opportunity timestamps plus an error count.
type Stats struct {
	mu sync.RWMutex

	scansPerformed     int64
	opportunitiesFound int64
	errorCount         int64
	lastScanAt         time.Time
	lastOpportunityAt  time.Time
	perKeyCount        map[string]int64
	lastValue          map[string]float64
}

func newStats() *Stats {
	return &Stats{
		perKeyCount: make(map[string]int64),
		lastValue:   make(map[string]float64),
	}
}

func (s *Stats) recordScan(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scansPerformed++
	s.lastScanAt = time.Now()
	if err != nil {
		s.errorCount++
	}
}

func (s *Stats) recordOpportunity(key string, value float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opportunitiesFound++
	s.perKeyCount[key]++
	s.lastValue[key] = value
	s.lastOpportunityAt = time.Now()
}

// StatsSnapshot is a point-in-time copy of Stats safe to read without a lock.
type StatsSnapshot struct {
	ScansPerformed     int64
	OpportunitiesFound int64
	ErrorCount         int64
	LastScanAt         time.Time
	LastOpportunityAt  time.Time
	PerKeyCount        map[string]int64
	LastValue          map[string]float64
}

// Snapshot returns a copy of the current counters.
func (s *Stats) Snapshot() StatsSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	perKey := make(map[string]int64, len(s.perKeyCount))
	for k, v := range s.perKeyCount {
		perKey[k] = v
	}
	lastValue := make(map[string]float64, len(s.lastValue))
	for k, v := range s.lastValue {
		lastValue[k] = v
	}

	return StatsSnapshot{
		ScansPerformed:     s.scansPerformed,
		OpportunitiesFound: s.opportunitiesFound,
		ErrorCount:         s.errorCount,
		LastScanAt:         s.lastScanAt,
		LastOpportunityAt:  s.lastOpportunityAt,
		PerKeyCount:        perKey,
		LastValue:          lastValue,
	}
}

// scanFunc performs one scan pass, returning every opportunity found this
// tick (family-specific: one coin's directional check, or every qualifying
// pair from a cross-market sweep) alongside a (key, value) to record per
// opportunity for Stats, keyed however the caller likes.
type scanFunc[Out any] func(ctx context.Context) (found []Out, keyOf func(Out) (string, float64), err error)

// runLoop drives scan on a fixed interval until ctx is cancelled, pushing
// every opportunity found into out with a non-blocking send so a slow or
// dead consumer drops the newest result rather than stalling the scan —
// grounded on the teacher's scanner's non-blocking resultCh send.
func runLoop[Out any](ctx context.Context, interval time.Duration, logger *slog.Logger, stats *Stats, scan scanFunc[Out], out chan<- Out) {
	tick := func() {
		found, keyOf, err := scan(ctx)
		stats.recordScan(err)
		if err != nil {
			logger.Warn("scan failed", "error", err)
			return
		}
		for _, opp := range found {
			key, value := keyOf(opp)
			stats.recordOpportunity(key, value)
			select {
			case out <- opp:
			default:
				logger.Warn("opportunity channel full, dropping", "key", key)
			}
		}
	}

	tick()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tick()
		}
	}
}
