package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "iqraquest_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "iqraquest_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	BookingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "iqraquest_bookings_total",
			Help: "Total number of bookings created",
		},
		[]string{"kind"},
	)

	WalletTransactionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "iqraquest_wallet_transactions_total",
			Help: "Total number of wallet ledger entries",
		},
		[]string{"direction"},
	)

	BookingPaymentsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "iqraquest_booking_payments_total",
			Help: "Total number of direct booking payments processed",
		},
	)

	EscrowHoldsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "iqraquest_escrow_holds_total",
			Help: "Total number of successful escrow holds",
		},
	)

	EscrowResolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "iqraquest_escrow_resolutions_total",
			Help: "Total number of escrow resolutions",
		},
		[]string{"outcome"},
	)

	ReleaseSweepBookings = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "iqraquest_release_sweep_bookings_total",
			Help: "Bookings processed by the automatic release sweep",
		},
		[]string{"result"},
	)

	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "iqraquest_notifications_total",
			Help: "Total number of notifications",
		},
		[]string{"event", "status"},
	)

	NotificationQueueLength = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "iqraquest_notification_queue_length",
			Help: "Current length of the notification queue",
		},
	)
)

func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

func RecordBooking(kind string) {
	BookingsTotal.WithLabelValues(kind).Inc()
}

func RecordWalletTransaction(direction string) {
	WalletTransactionsTotal.WithLabelValues(direction).Inc()
}

func RecordBookingPayment() {
	BookingPaymentsTotal.Inc()
}

func RecordEscrowHold() {
	EscrowHoldsTotal.Inc()
}

func RecordEscrowResolution(outcome string) {
	EscrowResolutionsTotal.WithLabelValues(outcome).Inc()
}

func RecordSweepResult(result string) {
	ReleaseSweepBookings.WithLabelValues(result).Inc()
}

func RecordNotification(event, status string) {
	NotificationsTotal.WithLabelValues(event, status).Inc()
}

func SetNotificationQueueLength(n int64) {
	NotificationQueueLength.Set(float64(n))
}
