// Package metrics exposes Prometheus metrics for execution activity.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the execution counters for one run. Registering two runs on
// the same Registerer requires distinct registries.
type Metrics struct {
	OrdersSubmitted prometheus.Counter
	OrdersFilled    prometheus.Counter
	OrdersRejected  prometheus.Counter
	OrdersCancelled prometheus.Counter
	Fills           prometheus.Counter
	CommissionPaid  prometheus.Counter
	DaysResolved    prometheus.Counter
	Equity          prometheus.Gauge
	Cash            prometheus.Gauge
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		OrdersSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "execution_orders_submitted_total",
			Help: "Orders accepted by the execution port",
		}),
		OrdersFilled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "execution_orders_filled_total",
			Help: "Orders that reached FILLED",
		}),
		OrdersRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "execution_orders_rejected_total",
			Help: "Orders that reached REJECTED",
		}),
		OrdersCancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "execution_orders_cancelled_total",
			Help: "Orders that reached CANCELLED",
		}),
		Fills: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "execution_fills_total",
			Help: "Individual fills applied to the ledger",
		}),
		CommissionPaid: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "execution_commission_paid_total",
			Help: "Cumulative commissions in account currency",
		}),
		DaysResolved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "execution_days_resolved_total",
			Help: "Simulated trading days resolved",
		}),
		Equity: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "execution_account_equity",
			Help: "Account equity at the last resolved day",
		}),
		Cash: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "execution_account_cash",
			Help: "Account cash at the last resolved day",
		}),
	}
	if reg != nil {
		reg.MustRegister(
			m.OrdersSubmitted, m.OrdersFilled, m.OrdersRejected, m.OrdersCancelled,
			m.Fills, m.CommissionPaid, m.DaysResolved, m.Equity, m.Cash,
		)
	}
	return m
}

// StartServer serves /metrics on addr in the background.
func StartServer(addr string, gatherer prometheus.Gatherer) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	go func() {
		_ = http.ListenAndServe(addr, mux)
	}()
}
