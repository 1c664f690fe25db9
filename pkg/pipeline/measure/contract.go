package measure

import "time"

// Measure collects one Metric per pipeline element.
type Measure interface {
	// AddMetric returns the metric called name, creating it if needed.
	AddMetric(name string) Metric
	GetMetric(name string) Metric
	AllMetrics() map[string]Metric
}

// Metric collects the durations of one element and the elements applied before it.
type Metric interface {
	AddDuration(elapsed time.Duration)
	AddTransition(parentStepName string)
	AVGDuration() time.Duration
	Count() int64
	SetTotalDuration(total time.Duration)
	GetTotalDuration() time.Duration
	AllTransitions() map[string]int64
}
