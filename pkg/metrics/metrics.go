package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RoleAssignments = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "cfodir", Name: "role_assignments_total", Help: "Role assignment calls by outcome."},
		[]string{"outcome"},
	)
	GuardDenials = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "cfodir", Name: "guard_denials_total", Help: "Access guard denials inside the assignment service."},
	)
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "cfodir", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "cfodir", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(RoleAssignments)
	reg.MustRegister(GuardDenials)
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
}
