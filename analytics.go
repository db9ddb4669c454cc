package raid

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// EventMetrics tracks consumed events and the reactions they carry.
var EventMetrics = struct {
	EventsTotal    *prometheus.CounterVec
	ReactionsTotal *prometheus.CounterVec
	EventsInflight prometheus.Gauge
}{
	EventsTotal: promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "raid_events_total",
			Help: "Total number of events consumed, split by identifier and event type",
		},
		[]string{"identifier", "event_type"},
	),
	ReactionsTotal: promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "raid_reactions_total",
			Help: "Total number of reactions dispatched, split by action and result",
		},
		[]string{"identifier", "action", "result"},
	),
	EventsInflight: promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "raid_events_inflight",
			Help: "Number of events currently being handled",
		},
	),
}

func RecordEvent(identifier, eventType string) {
	EventMetrics.EventsTotal.WithLabelValues(identifier, eventType).Inc()
}

func RecordReaction(identifier string, action Action, result string) {
	EventMetrics.ReactionsTotal.WithLabelValues(identifier, action.String(), result).Inc()
}

// SessionMetrics tracks the registry.
var SessionMetrics = struct {
	Sessions       *prometheus.GaugeVec
	SubMessages    prometheus.Gauge
	SessionsSwept  prometheus.Counter
	InviteTimeouts prometheus.Counter
}{
	Sessions: promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "raid_sessions",
			Help: "Number of live sessions, split by kind",
		},
		[]string{"kind"},
	),
	SubMessages: promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "raid_sub_messages",
			Help: "Number of tracked sub-messages",
		},
	),
	SessionsSwept: promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "raid_sessions_swept_total",
			Help: "Total number of expired sessions dropped by the sweeper",
		},
	),
	InviteTimeouts: promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "raid_invite_timeouts_total",
			Help: "Total number of invite dialogs closed because they timed out",
		},
	),
}

// UpdateSessionMetrics sets the session gauges from per kind counts.
func UpdateSessionMetrics(sessions map[Kind]int, subMessages int) {
	for _, kind := range []Kind{KindRaid, KindMule, KindTrain} {
		SessionMetrics.Sessions.WithLabelValues(kind.String()).Set(float64(sessions[kind]))
	}

	SessionMetrics.SubMessages.Set(float64(subMessages))
}

func RecordSweep(removed int) {
	SessionMetrics.SessionsSwept.Add(float64(removed))
}

func RecordInviteTimeout() {
	SessionMetrics.InviteTimeouts.Inc()
}

// ProducerMetrics tracks what we publish.
var ProducerMetrics = struct {
	PublishedTotal     *prometheus.CounterVec
	NotificationsTotal *prometheus.CounterVec
}{
	PublishedTotal: promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "raid_published_total",
			Help: "Total number of payloads published, split by event type",
		},
		[]string{"identifier", "event_type"},
	),
	NotificationsTotal: promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "raid_notifications_total",
			Help: "Total number of player notifications, split by kind",
		},
		[]string{"kind"},
	),
}

func RecordPublish(identifier, eventType string) {
	ProducerMetrics.PublishedTotal.WithLabelValues(identifier, eventType).Inc()
}

func RecordNotification(kind NotificationKind) {
	ProducerMetrics.NotificationsTotal.WithLabelValues(kind.String()).Inc()
}
