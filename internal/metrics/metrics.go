package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics iş olaylarını sayan Prometheus collector'ları. nil *Metrics güvenle çağrılabilir.
type Metrics struct {
	registry *prometheus.Registry

	ordersOpened        prometheus.Counter
	ordersClosed        *prometheus.CounterVec
	orderDuration       prometheus.Histogram
	payments            *prometheus.CounterVec
	paymentAmount       *prometheus.CounterVec
	itemsCancelled      prometheus.Counter
	stockMovements      *prometheus.CounterVec
	waiterCalls         prometheus.Counter
	reservations        prometheus.Counter
	reservationsExpired prometheus.Counter
	broadcastFailures   *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ordersOpened: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "adisyon_orders_opened_total",
			Help: "Açılan adisyon sayısı",
		}),
		ordersClosed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "adisyon_orders_closed_total",
			Help: "Kapanan adisyonlar (status: paid|cancelled)",
		}, []string{"status"}),
		orderDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "adisyon_order_duration_seconds",
			Help:    "Adisyon açılıştan kapanışa kadar geçen süre",
			Buckets: prometheus.LinearBuckets(0, 900, 16), // 15 dakikalık kovalar
		}),
		payments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "adisyon_payments_total",
			Help: "Alınan ödeme sayısı",
		}, []string{"method"}),
		paymentAmount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "adisyon_payment_amount_total",
			Help: "Tahsil edilen tutar (para üstü düşülmüş)",
		}, []string{"method"}),
		itemsCancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "adisyon_order_items_cancelled_total",
			Help: "İptal edilen adisyon kalemleri",
		}),
		stockMovements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "adisyon_stock_movements_total",
			Help: "Stok hareketleri",
		}, []string{"type"}),
		waiterCalls: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "adisyon_waiter_calls_total",
			Help: "QR menüden gelen garson çağrıları",
		}),
		reservations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "adisyon_reservations_total",
			Help: "Alınan rezervasyonlar",
		}),
		reservationsExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "adisyon_reservations_expired_total",
			Help: "Süresi geçtiği için temizlenen rezervasyonlar",
		}),
		broadcastFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "adisyon_broadcast_failures_total",
			Help: "Başarısız bildirim yayınları",
		}, []string{"event"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.ordersOpened,
		m.ordersClosed,
		m.orderDuration,
		m.payments,
		m.paymentAmount,
		m.itemsCancelled,
		m.stockMovements,
		m.waiterCalls,
		m.reservations,
		m.reservationsExpired,
		m.broadcastFailures,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) OrderOpened() {
	if m == nil {
		return
	}
	m.ordersOpened.Inc()
}

func (m *Metrics) OrderClosed(status string, openFor time.Duration) {
	if m == nil {
		return
	}
	m.ordersClosed.WithLabelValues(status).Inc()
	if openFor > 0 {
		m.orderDuration.Observe(openFor.Seconds())
	}
}

func (m *Metrics) PaymentReceived(method string, collected float64) {
	if m == nil {
		return
	}
	m.payments.WithLabelValues(method).Inc()
	m.paymentAmount.WithLabelValues(method).Add(collected)
}

func (m *Metrics) ItemCancelled() {
	if m == nil {
		return
	}
	m.itemsCancelled.Inc()
}

func (m *Metrics) StockMovement(movementType string) {
	if m == nil {
		return
	}
	m.stockMovements.WithLabelValues(movementType).Inc()
}

func (m *Metrics) WaiterCalled() {
	if m == nil {
		return
	}
	m.waiterCalls.Inc()
}

func (m *Metrics) ReservationMade() {
	if m == nil {
		return
	}
	m.reservations.Inc()
}

func (m *Metrics) ReservationsExpired(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.reservationsExpired.Add(float64(n))
}

func (m *Metrics) BroadcastFailed(event string) {
	if m == nil {
		return
	}
	m.broadcastFailures.WithLabelValues(event).Inc()
}
