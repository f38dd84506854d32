package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	CommandDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Namespace: "docuvault", Name: "mongodb_command_duration_seconds", Help: "Duration of observed MongoDB commands by command name and status.", Buckets: prometheus.DefBuckets},
		[]string{"command", "status"},
	)
	FilesServed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "docuvault", Name: "files_served_total", Help: "Number of blob downloads served by response status."},
		[]string{"status"},
	)
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "docuvault", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "docuvault", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(CommandDuration)
	reg.MustRegister(FilesServed)
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
}
