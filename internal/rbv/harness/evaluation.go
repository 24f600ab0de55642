package harness

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kolkov/rbv/internal/rbv/rbvlog"
)

// reportInterval mirrors the reference workload's minimum print interval
// of completed operations between "instant throughput" log lines.
const reportInterval = 16384

// Evaluation tracks per-lane operation counts and per-operation latency,
// and periodically logs instantaneous throughput — matching the
// reference workload's monitor::evaluation.
type Evaluation struct {
	log       *rbvlog.Logger
	task      string
	numOps    int
	nThreads  int
	counts    []atomic.Uint64 // one per lane
	latencies []time.Duration // indexed by global op index

	mu         sync.Mutex
	lastReport time.Time
	lastCount  uint64
	start      time.Time
}

// NewEvaluation returns an Evaluation for a run of numOps operations
// spread across nThreads lanes.
func NewEvaluation(log *rbvlog.Logger, numOps, nThreads int, task string) *Evaluation {
	now := time.Now()
	return &Evaluation{
		log:        log,
		task:       task,
		numOps:     numOps,
		nThreads:   nThreads,
		counts:     make([]atomic.Uint64, nThreads),
		latencies:  make([]time.Duration, numOps),
		lastReport: now,
		start:      now,
	}
}

// RecordOp registers the completion of operation index on lane after d
// of latency, and opportunistically logs instantaneous throughput.
func (e *Evaluation) RecordOp(lane, index int, d time.Duration) {
	e.counts[lane].Add(1)
	e.latencies[index] = d
	e.maybeReport()
}

func (e *Evaluation) total() uint64 {
	var sum uint64
	for i := range e.counts {
		sum += e.counts[i].Load()
	}
	return sum
}

func (e *Evaluation) maybeReport() {
	e.mu.Lock()
	defer e.mu.Unlock()
	cnt := e.total()
	if cnt < e.lastCount+reportInterval {
		return
	}
	now := time.Now()
	elapsed := now.Sub(e.lastReport).Seconds()
	if elapsed > 0 {
		rate := float64(cnt-e.lastCount) / elapsed
		e.log.Infof("%s: instant throughput %.0f ops/s", e.task, rate)
	}
	e.lastReport = now
	e.lastCount = cnt
}

// Summary is the final percentile/throughput report for one run.
type Summary struct {
	Task       string
	Throughput float64 // overall ops/sec across the whole run
	AvgLatency time.Duration
	P90        time.Duration
	P95        time.Duration
	P99        time.Duration
}

// Finish computes and logs the final Summary. Percentiles are computed
// over the inner 75% of completed operations by index (dropping the
// first and last 1/8), matching the reference workload's warm-up/
// cool-down trim.
func (e *Evaluation) Finish() Summary {
	elapsed := time.Since(e.start).Seconds()
	n := len(e.latencies)
	phases := 8
	if n < phases {
		phases = n
	}
	if phases == 0 {
		return Summary{Task: e.task}
	}
	l := n / phases
	r := n * (phases - 1) / phases
	window := append([]time.Duration(nil), e.latencies[l:r]...)
	sort.Slice(window, func(i, j int) bool { return window[i] < window[j] })

	pick := func(pct float64) time.Duration {
		if len(window) == 0 {
			return 0
		}
		idx := int(float64(len(window)) * pct)
		if idx >= len(window) {
			idx = len(window) - 1
		}
		return window[idx]
	}

	var sum time.Duration
	for _, d := range window {
		sum += d
	}
	avg := time.Duration(0)
	if len(window) > 0 {
		avg = sum / time.Duration(len(window))
	}

	summary := Summary{
		Task:       e.task,
		Throughput: float64(n) / elapsed,
		AvgLatency: avg,
		P90:        pick(0.90),
		P95:        pick(0.95),
		P99:        pick(0.99),
	}
	e.log.Infof("%s: finished in %.2fs, throughput %.0f ops/s, avg %s p90 %s p95 %s p99 %s",
		summary.Task, elapsed, summary.Throughput, summary.AvgLatency, summary.P90, summary.P95, summary.P99)
	return summary
}
