package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var messageDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name: "tagmod_message_duration_sec",
	Help: "Total duration of message evaluation",
})

var messagesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "tagmod_messages_processed",
	Help: "Number of messages evaluated, by result",
}, []string{"result"})

var messagesIgnored = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "tagmod_messages_ignored",
	Help: "Number of messages skipped without evaluation, by reason",
}, []string{"reason"})

var lookupCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "tagmod_lookups",
	Help: "Number of image tag lookups, by reference kind and result",
}, []string{"kind", "result"})

var lookupRetries = promauto.NewCounter(prometheus.CounterOpts{
	Name: "tagmod_lookup_retries",
	Help: "Number of transient tag lookup failures which were retried (or gave up)",
})

var lookupFailures = promauto.NewCounter(prometheus.CounterOpts{
	Name: "tagmod_lookup_failures",
	Help: "Number of images treated as clean because lookup failed",
})

var actionCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "tagmod_actions",
	Help: "Number of moderation actions, by type",
}, []string{"type"})

var notificationCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "tagmod_notifications",
	Help: "Number of author notifications, by delivery channel",
}, []string{"channel"})
