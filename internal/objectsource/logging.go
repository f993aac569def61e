package objectsource

import (
	"fmt"
	"log"
	"os"
	"time"
)

// Logger provides leveled logging for upstream API calls and synchronizer
// state transitions.
type Logger struct {
	enabled bool
	verbose bool
}

// NewLogger creates a Logger gated by the WASYNC_LOG/WASYNC_VERBOSE env vars.
func NewLogger() *Logger {
	return &Logger{
		enabled: os.Getenv("WASYNC_LOG") != "",
		verbose: os.Getenv("WASYNC_VERBOSE") != "",
	}
}

func (l *Logger) Infof(format string, args ...interface{}) {
	if l.enabled {
		log.Printf("[INFO] "+format, args...)
	}
}

func (l *Logger) Errorf(format string, args ...interface{}) {
	if l.enabled {
		log.Printf("[ERROR] "+format, args...)
	}
}

func (l *Logger) Debugf(format string, args ...interface{}) {
	if l.enabled && l.verbose {
		log.Printf("[DEBUG] "+format, args...)
	}
}

// LogAPICall logs a single upstream HTTP call for observability.
func LogAPICall(l *Logger, method, path string, statusCode int, duration time.Duration) {
	if statusCode >= 200 && statusCode < 300 {
		l.Infof("%s %s -> %d (%v)", method, path, statusCode, duration)
	} else if statusCode >= 400 {
		l.Errorf("%s %s -> %d (%v)", method, path, statusCode, duration)
	}
}

// MetricsCollector accumulates counts about upstream API usage, used to
// gauge how effectively the beacon/track protocol is bounding fetch volume.
type MetricsCollector struct {
	TotalCalls      int
	SuccessfulCalls int
	FailedCalls     int
	RateLimitHits   int
	TotalDuration   time.Duration
}

// NewMetricsCollector creates an empty MetricsCollector.
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{}
}

// RecordCall records the outcome of one upstream call.
func (m *MetricsCollector) RecordCall(statusCode int, duration time.Duration) {
	m.TotalCalls++
	m.TotalDuration += duration

	if statusCode >= 200 && statusCode < 300 {
		m.SuccessfulCalls++
	} else {
		m.FailedCalls++
	}
	if statusCode == 429 {
		m.RateLimitHits++
	}
}

// Report renders a human-readable metrics summary.
func (m *MetricsCollector) Report() string {
	if m.TotalCalls == 0 {
		return "No upstream calls made"
	}
	avg := m.TotalDuration / time.Duration(m.TotalCalls)
	successRate := float64(m.SuccessfulCalls) / float64(m.TotalCalls) * 100
	return fmt.Sprintf(
		"Upstream metrics:\n"+
			"  Total calls: %d\n"+
			"  Successful: %d (%.1f%%)\n"+
			"  Failed: %d\n"+
			"  Rate limit hits: %d\n"+
			"  Avg duration: %v",
		m.TotalCalls, m.SuccessfulCalls, successRate, m.FailedCalls, m.RateLimitHits, avg,
	)
}
