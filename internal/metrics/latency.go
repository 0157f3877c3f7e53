package metrics

import (
	"sync"
	"time"

	"github.com/influxdata/tdigest"
)

// LatencyTracker keeps a running digest of durations and answers quantile
// queries over it.
type LatencyTracker struct {
	mu     sync.Mutex
	digest *tdigest.TDigest
}

func NewLatencyTracker() *LatencyTracker {
	return &LatencyTracker{digest: tdigest.New()}
}

// Observe adds d to the digest.
func (l *LatencyTracker) Observe(d time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.digest.Add(float64(d.Microseconds()), 1)
}

// Count returns how many durations were observed.
func (l *LatencyTracker) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return int(l.digest.Count())
}

// Quantile returns the duration at quantile q, or zero when nothing was
// observed yet.
func (l *LatencyTracker) Quantile(q float64) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.digest.Count() == 0 {
		return 0
	}
	return time.Duration(l.digest.Quantile(q)) * time.Microsecond
}
