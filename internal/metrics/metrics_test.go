package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCacheLookupCounts(t *testing.T) {
	hits := testutil.ToFloat64(CacheRequests.WithLabelValues("hit"))
	misses := testutil.ToFloat64(CacheRequests.WithLabelValues("miss"))

	CacheLookup(true)
	CacheLookup(false)
	CacheLookup(false)

	if got := testutil.ToFloat64(CacheRequests.WithLabelValues("hit")) - hits; got != 1 {
		t.Fatalf("hit delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(CacheRequests.WithLabelValues("miss")) - misses; got != 2 {
		t.Fatalf("miss delta = %v, want 2", got)
	}
}

func TestBreakerStateValue(t *testing.T) {
	cases := map[string]float64{"CLOSED": 0, "HALF_OPEN": 1, "OPEN": 2, "": 0}
	for state, want := range cases {
		if got := BreakerStateValue(state); got != want {
			t.Fatalf("BreakerStateValue(%q) = %v, want %v", state, got, want)
		}
	}
}
