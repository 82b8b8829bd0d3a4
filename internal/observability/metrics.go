package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrors counts Redis errors by operation type.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tradepost_redis_errors_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// MailDispatchTotal counts outbound email dispatch attempts by template and outcome.
	MailDispatchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tradepost_mail_dispatch_total",
		Help: "Total number of email dispatch attempts by template and outcome",
	}, []string{"template", "outcome"})

	// SubscriptionTransitions counts subscription lifecycle transitions.
	SubscriptionTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tradepost_subscription_transitions_total",
		Help: "Total number of subscription lifecycle transitions",
	}, []string{"transition"})

	// PostViews counts listing detail fetches.
	PostViews = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tradepost_post_views_total",
		Help: "Total number of listing detail fetches",
	})
)

// Subscription transition labels.
const (
	TransitionActivated   = "activated"
	TransitionDeactivated = "deactivated"
	TransitionExpired     = "expired"
)
