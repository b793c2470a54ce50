package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fitclub_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fitclub_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	SessionsBookedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fitclub_sessions_booked_total",
			Help: "Total number of trainer sessions booked",
		},
		[]string{"mode"},
	)

	BookingConflictsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fitclub_booking_conflicts_total",
			Help: "Total number of rejected overlapping session requests",
		},
	)

	CancellationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fitclub_cancellations_total",
			Help: "Total number of cancellations",
		},
		[]string{"kind", "outcome"},
	)

	ReservationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fitclub_equipment_reservations_total",
			Help: "Total number of equipment reservations",
		},
	)

	CapacityRejectionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fitclub_capacity_rejections_total",
			Help: "Total number of reservations rejected for full capacity",
		},
	)

	CheckInsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fitclub_checkins_total",
			Help: "Total number of member check-ins",
		},
		[]string{"method"},
	)

	AchievementsUnlockedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fitclub_achievements_unlocked_total",
			Help: "Total number of achievements unlocked",
		},
		[]string{"title"},
	)

	NotificationsQueuedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fitclub_notifications_queued_total",
			Help: "Total number of notifications queued",
		},
		[]string{"kind", "status"},
	)

	NotificationQueueLength = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fitclub_notification_queue_length",
			Help: "Current length of the notification queue",
		},
	)
)

func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

func RecordSessionBooked(mode string) {
	SessionsBookedTotal.WithLabelValues(mode).Inc()
}

func RecordBookingConflict() {
	BookingConflictsTotal.Inc()
}

func RecordCancellation(kind, outcome string) {
	CancellationsTotal.WithLabelValues(kind, outcome).Inc()
}

func RecordReservation() {
	ReservationsTotal.Inc()
}

func RecordCapacityRejection() {
	CapacityRejectionsTotal.Inc()
}

func RecordCheckIn(method string) {
	CheckInsTotal.WithLabelValues(method).Inc()
}

func RecordAchievementUnlocked(title string) {
	AchievementsUnlockedTotal.WithLabelValues(title).Inc()
}

func RecordNotification(kind, status string) {
	NotificationsQueuedTotal.WithLabelValues(kind, status).Inc()
}
