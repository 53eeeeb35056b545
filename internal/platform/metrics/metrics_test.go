package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestMetrics_Handler(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveRequest(http.MethodPost, "/submit-nurse-form", http.StatusOK, 0.02)
	m.NursingSaved("draft")
	m.NursingSaved("submitted")
	m.RadiologySubmitted()
	m.SecondaryWriteFailed("radiology_form_submission")
	m.Login("session", true)
	m.WSConnected()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	out := string(body)

	for _, want := range []string{
		`http_requests_total{method="POST",route="/submit-nurse-form",status="200"} 1`,
		`nursing_assessments_saved_total{status="submitted"} 1`,
		`radiology_assessments_submitted_total 1`,
		`secondary_write_failures_total{kind="radiology_form_submission"} 1`,
		`logins_total{adapter="session",result="success"} 1`,
		`websocket_connections 1`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected metrics output to contain %q", want)
		}
	}
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.ObserveRequest("GET", "/", 200, 0)
	m.NursingSaved("draft")
	m.RadiologySubmitted()
	m.SecondaryWriteFailed("x")
	m.Login("bearer", false)
	m.WSConnected()
	m.WSDisconnected()
}
