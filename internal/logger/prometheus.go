package logger

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// logLines counts emitted log lines by level, labelled with the service
// name. Registered once for the process.
var logLines *prometheus.CounterVec //nolint:gochecknoglobals

// countHook bumps the per-level counter on every emitted line.
type countHook struct{}

// Run implements zerolog.Hook.
func (countHook) Run(_ *zerolog.Event, level zerolog.Level, _ string) {
	if level != zerolog.NoLevel {
		logLines.WithLabelValues(level.String()).Inc()
	}
}

// levelCounter registers the counter on first use and returns the hook.
func levelCounter(service string) countHook {
	if logLines == nil {
		logLines = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "log_statements_total",
				Help:        "Number of log statements, differentiated by log level.",
				ConstLabels: prometheus.Labels{"service": service},
			},
			[]string{"level"},
		)
	}

	return countHook{}
}
