package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	UpdatesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "contestbot_updates_total", Help: "Total inbound updates routed"},
	)
	RegistrationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "contestbot_registrations_total", Help: "Total successful participant registrations"},
	)
	BroadcastSentTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "contestbot_broadcast_sent_total", Help: "Total broadcast messages delivered"},
	)
	BroadcastFailedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "contestbot_broadcast_failed_total", Help: "Total broadcast messages that failed to deliver"},
	)
	PostSyncsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "contestbot_post_syncs_total", Help: "Total channel post re-renders"},
	)
)

func Register() {
	prometheus.MustRegister(UpdatesTotal, RegistrationsTotal, BroadcastSentTotal, BroadcastFailedTotal, PostSyncsTotal)
}
