// Package telemetry exposes prometheus metrics for the session engine.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	clockInsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "crewclock",
		Subsystem: "sessions",
		Name:      "clock_ins_total",
		Help:      "Total number of successful clock-ins, by location verification.",
	}, []string{"verified"})

	clockOutsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "crewclock",
		Subsystem: "sessions",
		Name:      "clock_outs_total",
		Help:      "Total number of completed sessions.",
	})

	activeSessionsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "crewclock",
		Subsystem: "sessions",
		Name:      "active",
		Help:      "Current number of RUNNING sessions served by this instance.",
	})

	sessionMinutes = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "crewclock",
		Subsystem: "sessions",
		Name:      "duration_minutes",
		Help:      "Frozen duration of completed sessions in minutes.",
		Buckets:   []float64{15, 30, 60, 120, 240, 480, 720},
	})

	probeFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "crewclock",
		Subsystem: "probe",
		Name:      "failures_total",
		Help:      "Location probe failures by error code.",
	}, []string{"code"})

	probeDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "crewclock",
		Subsystem: "probe",
		Name:      "acquire_duration_seconds",
		Help:      "Wall-clock time spent acquiring a location fix.",
		Buckets:   prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(
		clockInsTotal,
		clockOutsTotal,
		activeSessionsGauge,
		sessionMinutes,
		probeFailuresTotal,
		probeDuration,
	)
}

// RecordClockIn counts a successful clock-in.
func RecordClockIn(verified bool) {
	label := "false"
	if verified {
		label = "true"
	}
	clockInsTotal.WithLabelValues(label).Inc()
	activeSessionsGauge.Inc()
}

// RecordClockOut counts a completed session and its frozen duration.
func RecordClockOut(durationMinutes int) {
	clockOutsTotal.Inc()
	activeSessionsGauge.Dec()
	sessionMinutes.Observe(float64(durationMinutes))
}

// RecordProbeFailure counts a probe failure by taxonomy code.
func RecordProbeFailure(code string) {
	probeFailuresTotal.WithLabelValues(code).Inc()
}

// ObserveProbeDuration records how long one acquisition took.
func ObserveProbeDuration(d time.Duration) {
	probeDuration.Observe(d.Seconds())
}
