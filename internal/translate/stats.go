package translate

import (
	"maps"
	"sort"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// TranslationStats counts translation work. Values combine with Add, which
// is associative and commutative, so partial stats can be merged in any
// order.
type TranslationStats struct {
	CacheHits int
	Weights   map[string]int
}

// NewTranslationStats returns empty stats.
func NewTranslationStats() TranslationStats {
	return TranslationStats{Weights: map[string]int{}}
}

// Add returns the sum of s and other. Neither operand is modified.
func (s TranslationStats) Add(other TranslationStats) TranslationStats {
	out := TranslationStats{
		CacheHits: s.CacheHits + other.CacheHits,
		Weights:   make(map[string]int, len(s.Weights)+len(other.Weights)),
	}
	maps.Copy(out.Weights, s.Weights)
	for k, v := range other.Weights {
		out.Weights[k] += v
	}
	return out
}

// Equal reports whether both stats hold the same counts.
func (s TranslationStats) Equal(other TranslationStats) bool {
	if s.CacheHits != other.CacheHits {
		return false
	}
	return weightsEqual(s.Weights, other.Weights)
}

func weightsEqual(a, b map[string]int) bool {
	for k, v := range a {
		if v != 0 && b[k] != v {
			return false
		}
	}
	for k, v := range b {
		if v != 0 && a[k] != v {
			return false
		}
	}
	return true
}

// Functions returns the function names with non-zero weight, sorted.
func (s TranslationStats) Functions() []string {
	var names []string
	for k, v := range s.Weights {
		if v != 0 {
			names = append(names, k)
		}
	}
	sort.Strings(names)
	return names
}

var (
	cacheHitsDesc = prometheus.NewDesc(
		"formulon_translation_cache_hits_total",
		"Translated subtrees served from the translator cache.",
		nil, nil,
	)
	functionUsesDesc = prometheus.NewDesc(
		"formulon_translation_function_uses_total",
		"Translated calls per function or operator.",
		[]string{"function"}, nil,
	)
)

// StatsCollector accumulates TranslationStats and exposes them as
// Prometheus counters.
type StatsCollector struct {
	mu    sync.Mutex
	total TranslationStats
}

// NewStatsCollector returns an empty collector.
func NewStatsCollector() *StatsCollector {
	return &StatsCollector{total: NewTranslationStats()}
}

// Observe adds stats to the running total. Safe for concurrent use.
func (c *StatsCollector) Observe(stats TranslationStats) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.total = c.total.Add(stats)
}

// Total returns the accumulated stats.
func (c *StatsCollector) Total() TranslationStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.total.Add(NewTranslationStats())
}

// Describe implements prometheus.Collector.
func (c *StatsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- cacheHitsDesc
	ch <- functionUsesDesc
}

// Collect implements prometheus.Collector.
func (c *StatsCollector) Collect(ch chan<- prometheus.Metric) {
	total := c.Total()
	ch <- prometheus.MustNewConstMetric(cacheHitsDesc, prometheus.CounterValue, float64(total.CacheHits))
	for _, name := range total.Functions() {
		ch <- prometheus.MustNewConstMetric(functionUsesDesc, prometheus.CounterValue, float64(total.Weights[name]), name)
	}
}
