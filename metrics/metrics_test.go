package metrics

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

func TestRecorder(t *testing.T) {
	r := New()
	r.RecordExtract(10, 1, 2, 3, 4)
	r.RecordMatrix(3, 5, 4)
	r.RecordWrite(5, 1)
	r.ObserveStage("similarity", 1500*time.Millisecond)
	r.MarkResult(nil)

	checks := []struct {
		name string
		got  float64
		want float64
	}{
		{"read", testutil.ToFloat64(r.records.WithLabelValues("read")), 10},
		{"pair", testutil.ToFloat64(r.records.WithLabelValues("pair")), 4},
		{"courses", testutil.ToFloat64(r.courses), 5},
		{"entries", testutil.ToFloat64(r.entries), 5},
		{"failed", testutil.ToFloat64(r.failedRows), 1},
		{"stage", testutil.ToFloat64(r.stageDuration.WithLabelValues("similarity")), 1.5},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}
	if testutil.ToFloat64(r.lastSuccess) == 0 {
		t.Error("last success not set")
	}
	if testutil.ToFloat64(r.lastFailure) != 0 {
		t.Error("last failure set on success")
	}

	r.MarkResult(errors.New("boom"))
	if testutil.ToFloat64(r.lastFailure) == 0 {
		t.Error("last failure not set")
	}
}

func TestNilRecorder(t *testing.T) {
	var r *Recorder
	r.RecordExtract(1, 0, 0, 0, 1)
	r.RecordMatrix(1, 1, 1)
	r.RecordWrite(1, 0)
	r.ObserveStage("extract", time.Second)
	r.MarkResult(nil)
	if err := r.Push(context.Background(), "http://127.0.0.1:1", "job"); err != nil {
		t.Errorf("nil recorder push: %v", err)
	}
	if r.Registry() != nil {
		t.Error("nil recorder registry should be nil")
	}
}

func TestPush(t *testing.T) {
	var gotPath, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		gotPath = req.URL.Path
		buf := new(strings.Builder)
		_, _ = io.Copy(buf, req.Body)
		gotBody = buf.String()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	r := New()
	r.RecordWrite(7, 0)
	if err := r.Push(context.Background(), srv.URL, "coursesim"); err != nil {
		t.Fatalf("Push: %v", err)
	}
	if gotPath != "/metrics/job/coursesim" {
		t.Errorf("path = %q", gotPath)
	}
	if !strings.Contains(gotBody, "coursesim_entries_written") {
		t.Error("pushed body missing coursesim_entries_written")
	}

	if err := r.Push(context.Background(), "", "coursesim"); err != nil {
		t.Errorf("empty url should be a no-op: %v", err)
	}
}
