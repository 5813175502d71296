package logger

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

type Metrics struct {
	operationsTotal   map[string]*atomic.Int64
	operationsFailed  map[string]*atomic.Int64
	operationsLatency map[string]*atomic.Int64
	mu                sync.Mutex
}

var globalMetrics = &Metrics{
	operationsTotal:   make(map[string]*atomic.Int64),
	operationsFailed:  make(map[string]*atomic.Int64),
	operationsLatency: make(map[string]*atomic.Int64),
}

type OperationStats struct {
	Total        int64
	Failed       int64
	AvgLatencyMs float64
}

func counter(m map[string]*atomic.Int64, operation string) *atomic.Int64 {
	c, ok := m[operation]
	if !ok {
		c = &atomic.Int64{}
		m[operation] = c
	}
	return c
}

func RecordOperation(operation string, err error, duration time.Duration) {
	globalMetrics.mu.Lock()
	total := counter(globalMetrics.operationsTotal, operation)
	latency := counter(globalMetrics.operationsLatency, operation)
	var failed *atomic.Int64
	if err != nil {
		failed = counter(globalMetrics.operationsFailed, operation)
	}
	globalMetrics.mu.Unlock()

	total.Add(1)
	latency.Add(duration.Nanoseconds())
	if failed != nil {
		failed.Add(1)
	}
}

func GetMetrics() map[string]OperationStats {
	globalMetrics.mu.Lock()
	defer globalMetrics.mu.Unlock()

	result := make(map[string]OperationStats)
	for op, total := range globalMetrics.operationsTotal {
		stats := OperationStats{
			Total: total.Load(),
		}
		if failed, ok := globalMetrics.operationsFailed[op]; ok {
			stats.Failed = failed.Load()
		}
		if latency, ok := globalMetrics.operationsLatency[op]; ok {
			count := total.Load()
			if count > 0 {
				stats.AvgLatencyMs = float64(latency.Load()) / float64(count) / 1e6
			}
		}
		result[op] = stats
	}
	return result
}

// TimedResult runs fn, records its outcome under operation and logs it at
// debug level, or at error level when it fails.
func TimedResult[T any](ctx context.Context, operation string, fn func() (T, error)) (T, error) {
	start := time.Now()
	log := FromContext(ctx).With("call", operation)
	log.Debug("starting operation")

	result, err := fn()
	duration := time.Since(start)

	RecordOperation(operation, err, duration)

	if err != nil {
		log.Error("operation failed", "error", err, "duration", duration)
	} else {
		log.Debug("operation completed", "duration", duration)
	}
	return result, err
}

// LogMetrics writes one debug line per recorded operation, sorted by name.
func LogMetrics(ctx context.Context) {
	stats := GetMetrics()
	ops := make([]string, 0, len(stats))
	for op := range stats {
		ops = append(ops, op)
	}
	sort.Strings(ops)

	log := FromContext(ctx)
	for _, op := range ops {
		s := stats[op]
		log.Debug("operation stats", "call", op, "total", s.Total, "failed", s.Failed, "avg_latency_ms", s.AvgLatencyMs)
	}
}

func ResetMetrics() {
	globalMetrics.mu.Lock()
	defer globalMetrics.mu.Unlock()
	globalMetrics.operationsTotal = make(map[string]*atomic.Int64)
	globalMetrics.operationsFailed = make(map[string]*atomic.Int64)
	globalMetrics.operationsLatency = make(map[string]*atomic.Int64)
}
