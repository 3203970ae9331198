// Package metrics provides metrics collection for SQL access analysis.
package metrics

import (
	"time"
)

// Metric names recorded by the analyzer.
const (
	StatementsTotal    = "sqlaccess_statements_total"
	TablesTotal        = "sqlaccess_tables_total"
	ParseFailuresTotal = "sqlaccess_parse_failures_total"
	AnalyzeSeconds     = "sqlaccess_analyze_seconds"
)

// Collector defines the interface for collecting metrics.
type Collector interface {
	// IncrementCounter increments a counter metric.
	// Labels are given as key/value pairs.
	IncrementCounter(name string, labels ...string)

	// AddCounter adds delta to a counter metric.
	AddCounter(name string, delta float64, labels ...string)

	// RecordHistogram records a value in a histogram metric.
	RecordHistogram(name string, value float64, labels ...string)

	// StartTimer starts a timer for measuring duration.
	StartTimer(name string) Timer
}

// Timer represents a timing measurement.
type Timer interface {
	// Stop stops the timer and returns the duration in seconds.
	Stop() float64
}

// NoOpCollector is a no-op implementation of Collector.
type NoOpCollector struct{}

// NewNoOpCollector creates a new no-op collector.
func NewNoOpCollector() Collector {
	return &NoOpCollector{}
}

func (n *NoOpCollector) IncrementCounter(name string, labels ...string) {}

func (n *NoOpCollector) AddCounter(name string, delta float64, labels ...string) {}

func (n *NoOpCollector) RecordHistogram(name string, value float64, labels ...string) {}

func (n *NoOpCollector) StartTimer(name string) Timer {
	return &timer{start: time.Now()}
}

type timer struct {
	start  time.Time
	record func(seconds float64)
}

// Stop returns the elapsed time in seconds and records it when the timer
// belongs to a recording collector.
func (t *timer) Stop() float64 {
	seconds := time.Since(t.start).Seconds()
	if t.record != nil {
		t.record(seconds)
	}
	return seconds
}
