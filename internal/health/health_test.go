package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/verifyxo/engine/internal/health"
)

func TestHealthz_ReportsIndexedTitles(t *testing.T) {
	t.Parallel()

	h := health.New(func() int { return 42 })

	rec := httptest.NewRecorder()
	h.Healthz(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body struct {
		Status        string `json:"status"`
		IndexedTitles int    `json:"indexed_titles"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body.Status != "ok" || body.IndexedTitles != 42 {
		t.Errorf("body = %+v, want ok with 42 indexed titles", body)
	}
}

func TestReadyz_AllCheckersPass(t *testing.T) {
	t.Parallel()

	h := health.New(func() int { return 0 },
		health.Checker{Name: "store", Check: func(context.Context) error { return nil }},
		health.Checker{Name: "index", Check: func(context.Context) error { return nil }},
	)

	rec := httptest.NewRecorder()
	h.Readyz(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestReadyz_FailingCheckerReports503(t *testing.T) {
	t.Parallel()

	h := health.New(func() int { return 7 },
		health.Checker{Name: "store", Check: func(context.Context) error { return errors.New("connection refused") }},
	)

	rec := httptest.NewRecorder()
	h.Readyz(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body.Status != "fail" {
		t.Errorf("status field = %q, want %q", body.Status, "fail")
	}
	if got := body.Checks["store"]; got != "fail: connection refused" {
		t.Errorf("checks[store] = %q, want the failure message", got)
	}
}

func TestRegister_RoutesBothEndpoints(t *testing.T) {
	t.Parallel()

	h := health.New(func() int { return 1 })
	mux := http.NewServeMux()
	h.Register(mux)

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, rec.Code)
		}
	}
}
