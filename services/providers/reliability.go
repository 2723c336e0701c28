package providers

import (
	"sync"
	"time"
)

// emaWeight is the weight of the newest observation in the rolling
// success-ratio and latency averages.
const emaWeight = 0.3

// Reliability is the mutable per-provider record of recent success rate
// and latency. Each provider carries its own record with its own lock so
// concurrent requests against different providers never contend.
type Reliability struct {
	mu          sync.Mutex
	successRate float64
	meanLatency time.Duration
	attempts    uint64
	successes   uint64
	failures    uint64
}

// NewReliability returns a fresh record. New providers start with a
// perfect score so they are tried first among otherwise equal candidates.
func NewReliability() *Reliability {
	return &Reliability{successRate: 1.0}
}

// Record folds one attempt outcome into the rolling averages.
func (r *Reliability) Record(success bool, latency time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	outcome := 0.0
	if success {
		outcome = 1.0
		r.successes++
	} else {
		r.failures++
	}
	r.attempts++

	r.successRate = (1-emaWeight)*r.successRate + emaWeight*outcome

	if r.meanLatency == 0 {
		r.meanLatency = latency
	} else {
		r.meanLatency = time.Duration((1-emaWeight)*float64(r.meanLatency) + emaWeight*float64(latency))
	}
}

// Score returns the rolling success ratio in [0,1], used for ranking.
func (r *Reliability) Score() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.successRate
}

// ReliabilitySnapshot is a point-in-time copy for reporting.
type ReliabilitySnapshot struct {
	Score       float64       `json:"score"`
	MeanLatency time.Duration `json:"mean_latency"`
	Attempts    uint64        `json:"attempts"`
	Successes   uint64        `json:"successes"`
	Failures    uint64        `json:"failures"`
}

// Snapshot returns a consistent copy of the record.
func (r *Reliability) Snapshot() ReliabilitySnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return ReliabilitySnapshot{
		Score:       r.successRate,
		MeanLatency: r.meanLatency,
		Attempts:    r.attempts,
		Successes:   r.successes,
		Failures:    r.failures,
	}
}
