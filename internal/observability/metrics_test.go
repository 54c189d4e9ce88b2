package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegisterQueueGauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	n := 3
	if err := RegisterQueueGauge(reg, func() int { return n }); err != nil {
		t.Fatalf("register: %v", err)
	}
	if got, err := testutil.GatherAndCount(reg, "modmail_queue_entries"); err != nil || got != 1 {
		t.Fatalf("gather = %d, %v", got, err)
	}
	mfs, _ := reg.Gather()
	if v := mfs[0].GetMetric()[0].GetGauge().GetValue(); v != 3 {
		t.Fatalf("gauge = %v", v)
	}
	n = 0
	mfs, _ = reg.Gather()
	if v := mfs[0].GetMetric()[0].GetGauge().GetValue(); v != 0 {
		t.Fatalf("gauge after drain = %v", v)
	}

	if err := RegisterQueueGauge(reg, func() int { return 0 }); err == nil {
		t.Fatalf("second registration should fail")
	}
}

func TestRelayCounters(t *testing.T) {
	c := RelayTotal.WithLabelValues(DirectionOutbound, OutcomeDeliveryFailed)
	before := testutil.ToFloat64(c)
	c.Inc()
	if testutil.ToFloat64(c)-before != 1 {
		t.Fatalf("counter did not move")
	}
}
