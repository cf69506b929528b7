package internal

import (
	"sort"
	"strings"
	"sync"
	"time"
)

type MetricsCollector struct {
	logger *Logger

	requestCount    map[string]int64
	requestDuration map[string][]int64
	upstreamErrors  map[string]int64
	inserted        int64
	failed          int64

	mu sync.RWMutex
}

func NewMetricsCollector(logger *Logger) *MetricsCollector {
	mc := &MetricsCollector{
		logger:          logger,
		requestCount:    make(map[string]int64),
		requestDuration: make(map[string][]int64),
		upstreamErrors:  make(map[string]int64),
	}

	go mc.startMetricsReporter()
	return mc
}

// endpointClass buckets upstream URLs so per-request cardinality (ids,
// puuids) never leaks into metric keys.
func endpointClass(url string) string {
	switch {
	case strings.Contains(url, "/lol/match/v5/matches/by-puuid/"):
		return "match_ids"
	case strings.Contains(url, "/lol/match/v5/matches/"):
		return "match"
	case strings.Contains(url, "/lol/summoner/"):
		return "summoner"
	case strings.Contains(url, "/riot/account/"):
		return "account"
	case strings.Contains(url, "queues.json"):
		return "catalog_queues"
	case strings.Contains(url, "ddragon"):
		return "catalog"
	default:
		return "other"
	}
}

func (mc *MetricsCollector) RecordUpstreamRequest(url string, duration time.Duration, statusCode int) {
	class := endpointClass(url)

	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.requestCount[class]++
	mc.requestDuration[class] = append(mc.requestDuration[class], duration.Milliseconds())

	if statusCode == 0 || statusCode >= 400 {
		mc.upstreamErrors[class]++
	}
}

func (mc *MetricsCollector) RecordIngestion(inserted, failed int) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.inserted += int64(inserted)
	mc.failed += int64(failed)
}

func (mc *MetricsCollector) startMetricsReporter() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		mc.reportMetrics()
	}
}

func (mc *MetricsCollector) reportMetrics() {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	totalRequests := mc.sumMapValues(mc.requestCount)
	totalErrors := mc.sumMapValues(mc.upstreamErrors)

	mc.logger.Info("metrics_report").
		Component("metrics").
		Operation("report").
		Meta("upstream_requests", totalRequests).
		Meta("upstream_errors", totalErrors).
		Meta("records_inserted", mc.inserted).
		Meta("records_failed", mc.failed).
		Log()

	mc.reportEndpointPerformance()
}

func (mc *MetricsCollector) reportEndpointPerformance() {
	for class, durations := range mc.requestDuration {
		if len(durations) == 0 {
			continue
		}

		avg := mc.calculateAverage(durations)
		p95 := mc.calculatePercentile(durations, 0.95)

		mc.logger.Info("endpoint_performance").
			Component("metrics").
			Operation("performance_report").
			Meta("endpoint", class).
			Meta("request_count", mc.requestCount[class]).
			Meta("avg_duration_ms", avg).
			Meta("p95_duration_ms", p95).
			Meta("error_count", mc.upstreamErrors[class]).
			Log()
	}
}

func (mc *MetricsCollector) sumMapValues(m map[string]int64) int64 {
	sum := int64(0)
	for _, count := range m {
		sum += count
	}
	return sum
}

func (mc *MetricsCollector) calculateAverage(values []int64) float64 {
	if len(values) == 0 {
		return 0
	}

	sum := int64(0)
	for _, v := range values {
		sum += v
	}

	return float64(sum) / float64(len(values))
}

func (mc *MetricsCollector) calculatePercentile(values []int64, percentile float64) int64 {
	if len(values) == 0 {
		return 0
	}

	sortedValues := make([]int64, len(values))
	copy(sortedValues, values)
	sort.Slice(sortedValues, func(i, j int) bool {
		return sortedValues[i] < sortedValues[j]
	})

	index := int(percentile * float64(len(sortedValues)-1))
	return sortedValues[index]
}

func (mc *MetricsCollector) GetMetrics() map[string]interface{} {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	requests := make(map[string]int64, len(mc.requestCount))
	for k, v := range mc.requestCount {
		requests[k] = v
	}
	errors := make(map[string]int64, len(mc.upstreamErrors))
	for k, v := range mc.upstreamErrors {
		errors[k] = v
	}

	return map[string]interface{}{
		"upstream_requests": requests,
		"upstream_errors":   errors,
		"records_inserted":  mc.inserted,
		"records_failed":    mc.failed,
	}
}
