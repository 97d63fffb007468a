package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// findMetric は名前とラベルが一致するメトリクスを返す。
func findMetric(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) *dto.Metric {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if labelsMatch(m, labels) {
				return m
			}
		}
	}
	t.Fatalf("metric %s%v not found", name, labels)
	return nil
}

func labelsMatch(m *dto.Metric, want map[string]string) bool {
	got := make(map[string]string)
	for _, lp := range m.GetLabel() {
		got[lp.GetName()] = lp.GetValue()
	}
	for k, v := range want {
		if got[k] != v {
			return false
		}
	}
	return true
}

func TestNewCollector_ReturnsNonNil(t *testing.T) {
	if c := NewCollector(prometheus.NewRegistry()); c == nil {
		t.Fatal("expected non-nil Collector")
	}
}

func TestRecordAPIRequest(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordAPIRequest("GET", "projects", "ok", 120*time.Millisecond)
	c.RecordAPIRequest("GET", "projects", "ok", 80*time.Millisecond)
	c.RecordAPIRequest("DELETE", "users", "application_error", 10*time.Millisecond)

	m := findMetric(t, reg, "researchtracker_backend_requests_total",
		map[string]string{"method": "GET", "resource": "projects", "outcome": "ok"})
	if v := m.GetCounter().GetValue(); v != 2 {
		t.Errorf("requests_total = %v, want 2", v)
	}

	h := findMetric(t, reg, "researchtracker_backend_request_duration_seconds",
		map[string]string{"method": "GET", "resource": "projects"})
	if n := h.GetHistogram().GetSampleCount(); n != 2 {
		t.Errorf("sample count = %d, want 2", n)
	}
}

func TestRecordSessionRestore(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordSessionRestore("expired")

	m := findMetric(t, reg, "researchtracker_session_restores_total", map[string]string{"result": "expired"})
	if v := m.GetCounter().GetValue(); v != 1 {
		t.Errorf("session_restores_total = %v, want 1", v)
	}
}

func TestRecordAuthzDenied(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordAuthzDenied("admin:view")
	c.RecordAuthzDenied("admin:view")

	m := findMetric(t, reg, "researchtracker_authz_denied_total", map[string]string{"action": "admin:view"})
	if v := m.GetCounter().GetValue(); v != 2 {
		t.Errorf("authz_denied_total = %v, want 2", v)
	}
}

func TestRecordHTTPStatus(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordHTTPStatus(403)

	m := findMetric(t, reg, "researchtracker_http_responses_total", map[string]string{"status_code": "403"})
	if v := m.GetCounter().GetValue(); v != 1 {
		t.Errorf("http_responses_total = %v, want 1", v)
	}
}

func TestRecordLoginAttempt(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordLoginAttempt(true)
	c.RecordLoginAttempt(false)
	c.RecordLoginAttempt(false)

	if v := findMetric(t, reg, "researchtracker_login_attempts_total", map[string]string{"result": "failure"}).GetCounter().GetValue(); v != 2 {
		t.Errorf("failure = %v, want 2", v)
	}
	if v := findMetric(t, reg, "researchtracker_login_attempts_total", map[string]string{"result": "success"}).GetCounter().GetValue(); v != 1 {
		t.Errorf("success = %v, want 1", v)
	}
}

func TestNewCollector_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewCollector(reg)

	defer func() {
		if recover() == nil {
			t.Error("expected panic on duplicate registration")
		}
	}()
	NewCollector(reg)
}
