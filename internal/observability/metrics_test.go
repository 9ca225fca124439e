package observability

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestDedupCollectors_RegisteredWithDefaultRegistry(t *testing.T) {
	DedupDecisions.WithLabelValues("accepted", "fingerprinted").Add(0)

	mfs, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	seen := map[string]bool{}
	for _, mf := range mfs {
		if strings.HasPrefix(mf.GetName(), "dedup_") {
			seen[mf.GetName()] = true
		}
	}
	for _, name := range []string{
		"dedup_decisions_total",
		"dedup_candidates_scanned",
		"dedup_classify_duration_seconds",
		"dedup_dispatch_retries_total",
		"dedup_dispatch_dropped_total",
		"dedup_fingerprints_purged_total",
	} {
		if !seen[name] {
			t.Errorf("collector %s not registered", name)
		}
	}
}

func TestDedupDecisions_Increments(t *testing.T) {
	c := DedupDecisions.WithLabelValues("duplicate", "similar")
	base := testutil.ToFloat64(c)
	c.Inc()
	if got := testutil.ToFloat64(c); got != base+1 {
		t.Fatalf("counter = %v; want %v", got, base+1)
	}
}
