package processor

import (
	"sync"
	"sync/atomic"
	"time"
)

type typeCounters struct {
	processed int64
	failed    int64
}

// ServiceMetrics keeps in-process counters for the periodic stats log. The
// Prometheus side lives in pkg/prom.
type ServiceMetrics struct {
	totalProcessed  int64
	totalFailed     int64
	totalDurationNs int64
	startedNs       int64

	mu     sync.RWMutex
	byType map[string]*typeCounters
}

func NewServiceMetrics() *ServiceMetrics {
	return &ServiceMetrics{
		startedNs: time.Now().UnixNano(),
		byType:    make(map[string]*typeCounters),
	}
}

func (m *ServiceMetrics) counters(eventType string) *typeCounters {
	m.mu.RLock()
	c, ok := m.byType[eventType]
	m.mu.RUnlock()
	if ok {
		return c
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok = m.byType[eventType]; !ok {
		c = &typeCounters{}
		m.byType[eventType] = c
	}
	return c
}

func (m *ServiceMetrics) RecordSuccess(eventType string, duration time.Duration) {
	atomic.AddInt64(&m.totalProcessed, 1)
	atomic.AddInt64(&m.totalDurationNs, int64(duration))
	atomic.AddInt64(&m.counters(eventType).processed, 1)
}

func (m *ServiceMetrics) RecordFailure(eventType string) {
	atomic.AddInt64(&m.totalFailed, 1)
	atomic.AddInt64(&m.counters(eventType).failed, 1)
}

func (m *ServiceMetrics) GetStats() map[string]interface{} {
	processed := atomic.LoadInt64(&m.totalProcessed)
	failed := atomic.LoadInt64(&m.totalFailed)
	durationNs := atomic.LoadInt64(&m.totalDurationNs)
	startedNs := atomic.LoadInt64(&m.startedNs)

	elapsed := time.Since(time.Unix(0, startedNs)).Seconds()

	rate := 0.0
	if elapsed > 0 {
		rate = float64(processed) / elapsed
	}

	avgDuration := time.Duration(0)
	if processed > 0 {
		avgDuration = time.Duration(durationNs / processed)
	}

	byType := make(map[string]map[string]int64)
	m.mu.RLock()
	for typ, c := range m.byType {
		byType[typ] = map[string]int64{
			"processed": atomic.LoadInt64(&c.processed),
			"failed":    atomic.LoadInt64(&c.failed),
		}
	}
	m.mu.RUnlock()

	return map[string]interface{}{
		"total_processed": processed,
		"total_failed":    failed,
		"rate_per_second": rate,
		"avg_duration_ms": avgDuration.Milliseconds(),
		"uptime_seconds":  elapsed,
		"by_type":         byType,
	}
}
