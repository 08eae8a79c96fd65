package observability

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_ObserveRun(t *testing.T) {
	m := NewMetrics()

	m.ObserveRun(nil, time.Second)
	m.ObserveRun(nil, time.Second)
	m.ObserveRun(errors.New("boom"), time.Second)

	if got := testutil.ToFloat64(m.Runs.WithLabelValues("ok")); got != 2 {
		t.Errorf("ok runs = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.Runs.WithLabelValues("failed")); got != 1 {
		t.Errorf("failed runs = %v, want 1", got)
	}
	if n := testutil.CollectAndCount(m.Duration); n != 1 {
		t.Errorf("expected one histogram, got %d", n)
	}
}

func TestMetrics_Push(t *testing.T) {
	var path, body string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		b, _ := io.ReadAll(r.Body)
		body = string(b)
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	m := NewMetrics()
	m.Offers.Add(3)
	if err := m.Push(context.Background(), ts.URL, "phone"); err != nil {
		t.Fatalf("Push failed: %v", err)
	}

	if !strings.Contains(path, "/job/"+JobName) || !strings.Contains(path, "/product/phone") {
		t.Errorf("unexpected push path %q", path)
	}
	if body == "" {
		t.Error("expected a metrics payload")
	}
}
