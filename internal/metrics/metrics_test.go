package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_CountersAndHandler(t *testing.T) {
	m := New()
	m.Mutations.WithLabelValues("add").Inc()
	m.Mutations.WithLabelValues("add").Inc()
	m.DeleteMisses.Inc()
	m.ObserveLoad(5*time.Millisecond, nil)
	m.ObserveLoad(time.Millisecond, errors.New("boom"))

	if got := testutil.ToFloat64(m.Mutations.WithLabelValues("add")); got != 2 {
		t.Fatalf("expected 2 adds, got %v", got)
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	for _, want := range []string{
		`storevec_mutations_total{op="add"} 2`,
		`storevec_delete_misses_total 1`,
		`storevec_initial_load_seconds_count{result="error"} 1`,
	} {
		if !strings.Contains(string(body), want) {
			t.Fatalf("expected %q in metrics output:\n%s", want, body)
		}
	}
}

func TestMetrics_SeparateRegistries(t *testing.T) {
	// Two instances must not collide on registration.
	a, b := New(), New()
	a.ViewsTotal.Inc()
	if testutil.ToFloat64(b.ViewsTotal) != 0 {
		t.Fatalf("registries leaked between instances")
	}
}

func TestObserveLoad_NilSafe(t *testing.T) {
	var m *Metrics
	m.ObserveLoad(time.Second, nil)
}
