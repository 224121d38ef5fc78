package userstack

import "time"

// Metrics is an optional interface for SDK telemetry.
type Metrics interface {
	// IncrementCounter increments a counter metric.
	IncrementCounter(name string, value int64)
	// RecordDuration records a duration metric.
	RecordDuration(name string, duration time.Duration)
	// SetGauge sets a gauge metric.
	SetGauge(name string, value float64)
}

// Metric names emitted by the client.
const (
	MetricIdentifySuccess = "userstack.identify.success"
	MetricIdentifyFailure = "userstack.identify.failure"
	MetricTrackSent       = "userstack.track.sent"
	MetricTrackFailed     = "userstack.track.failed"
	MetricTrackDropped    = "userstack.track.dropped"
	MetricTrackInflight   = "userstack.track.inflight"
	MetricPageview        = "userstack.pageview"
	MetricHTTPDuration    = "userstack.http.duration"
	MetricHTTPRequests    = "userstack.http.requests"
	MetricHTTPErrors      = "userstack.http.errors"
)

type nopMetrics struct{}

func (nopMetrics) IncrementCounter(string, int64) {}

func (nopMetrics) RecordDuration(string, time.Duration) {}

func (nopMetrics) SetGauge(string, float64) {}
