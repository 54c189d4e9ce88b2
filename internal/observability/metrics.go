package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Relay directions and outcomes used as label values.
const (
	DirectionInbound  = "inbound"
	DirectionOutbound = "outbound"
	DirectionEdit     = "edit"

	OutcomeOK             = "ok"
	OutcomeDeliveryFailed = "delivery_failed"
	OutcomeError          = "error"
)

var (
	// RelayTotal counts relayed messages by direction and outcome.
	RelayTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "modmail_relay_total",
			Help: "Relayed messages by direction and outcome.",
		},
		[]string{"direction", "outcome"},
	)

	// ThreadsOpened counts newly created threads.
	ThreadsOpened = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "modmail_threads_opened_total",
			Help: "Threads opened.",
		},
	)

	// ThreadsClosed counts closed threads.
	ThreadsClosed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "modmail_threads_closed_total",
			Help: "Threads closed.",
		},
	)

	// PreflightRejections counts inbound messages stopped before relay.
	PreflightRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "modmail_preflight_rejections_total",
			Help: "Inbound messages rejected by the preflight gate, by reason.",
		},
		[]string{"reason"},
	)

	// UnarchiveTotal counts archive-prevention requests by outcome.
	UnarchiveTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "modmail_unarchive_total",
			Help: "Thread unarchive requests by outcome.",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(RelayTotal, ThreadsOpened, ThreadsClosed, PreflightRejections, UnarchiveTotal)
}

// RegisterQueueGauge exposes the live per-user queue entry count. size is
// polled on scrape. Registering twice returns the registry error.
func RegisterQueueGauge(reg prometheus.Registerer, size func() int) error {
	g := prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "modmail_queue_entries",
			Help: "Live per-user serial queue entries.",
		},
		func() float64 { return float64(size()) },
	)
	return reg.Register(g)
}
