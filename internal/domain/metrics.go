package domain

import "time"

// MetricPoint is one externally supplied time-series sample. The control plane
// only ever reads a suffix window of the series.
type MetricPoint struct {
	Timestamp time.Time
	QPS       float64
	P95MS     float64
	ErrorRate float64
}

// MetricsSummary is the rolling one-hour aggregate projected onto a service.
type MetricsSummary struct {
	QPS       float64
	P95MS     float64
	ErrorRate float64
}
