package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// BillsCreatedTotal counts finalized bills by settlement status.
	BillsCreatedTotal *prometheus.CounterVec
	// PurchasesCreatedTotal counts vendor vouchers by settlement status.
	PurchasesCreatedTotal *prometheus.CounterVec
	// ReturnsCreatedTotal counts processed returns by kind (sales|purchase).
	ReturnsCreatedTotal *prometheus.CounterVec
	// ReceiptsCreatedTotal counts ledger receipts by party type.
	ReceiptsCreatedTotal *prometheus.CounterVec
	// StockConflictsTotal counts checkouts rejected for insufficient stock.
	StockConflictsTotal prometheus.Counter
	// LedgerInconsistencyTotal counts post-write ledger invariant violations.
	// Anything above zero is an alert condition.
	LedgerInconsistencyTotal prometheus.Counter
	// WebhookDeliveriesTotal tracks webhook dispatch outcomes.
	WebhookDeliveriesTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		BillsCreatedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bills_created_total",
			Help:      "Count of finalized bills by settlement status.",
		}, []string{"status"})
		PurchasesCreatedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "purchases_created_total",
			Help:      "Count of vendor purchase vouchers by settlement status.",
		}, []string{"status"})
		ReturnsCreatedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "returns_created_total",
			Help:      "Count of processed returns by kind.",
		}, []string{"kind"})
		ReceiptsCreatedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "receipts_created_total",
			Help:      "Count of ledger receipts by party type.",
		}, []string{"party_type"})
		StockConflictsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stock_conflicts_total",
			Help:      "Checkouts rejected because stock would go negative.",
		})
		LedgerInconsistencyTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_inconsistency_total",
			Help:      "Post-write ledger invariant violations detected.",
		})
		WebhookDeliveriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_deliveries_total",
			Help:      "Count of webhook delivery outcomes.",
		}, []string{"result"})

		for _, c := range []prometheus.Collector{
			BillsCreatedTotal, PurchasesCreatedTotal, ReturnsCreatedTotal,
			ReceiptsCreatedTotal, StockConflictsTotal, LedgerInconsistencyTotal,
			WebhookDeliveriesTotal,
		} {
			if err := reg.Register(c); err != nil {
				if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
					panic(err)
				}
			}
		}
	})
}
