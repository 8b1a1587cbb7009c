package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func counterValue(t *testing.T, reg *prometheus.Registry, name string, labelValue string) float64 {
	t.Helper()
	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range metrics {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if labelValue == "" {
				return m.GetCounter().GetValue()
			}
			for _, l := range m.GetLabel() {
				if l.GetValue() == labelValue {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	t.Fatalf("metric %s not found", name)
	return 0
}

// TestNewCollector_ReturnsNonNil はCollectorが正常に生成されることを検証する。
func TestNewCollector_ReturnsNonNil(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	if c == nil {
		t.Fatal("expected non-nil Collector")
	}
}

// TestRecordLogin_CountsByResult はログイン結果ごとにカウントされることを検証する。
func TestRecordLogin_CountsByResult(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordLogin(LoginResultSuccess)
	c.RecordLogin(LoginResultSuccess)
	c.RecordLogin(LoginResultFailure)

	if got := counterValue(t, reg, "fixman_logins_total", LoginResultSuccess); got != 2 {
		t.Errorf("logins_total{result=success} = %v, want 2", got)
	}
	if got := counterValue(t, reg, "fixman_logins_total", LoginResultFailure); got != 1 {
		t.Errorf("logins_total{result=failure} = %v, want 1", got)
	}
}

// TestRecordTokenIssued_CountsByType はトークン種別ごとにカウントされることを検証する。
func TestRecordTokenIssued_CountsByType(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordTokenIssued("access")
	c.RecordTokenIssued("access")
	c.RecordTokenIssued("refresh")

	if got := counterValue(t, reg, "fixman_tokens_issued_total", "access"); got != 2 {
		t.Errorf("tokens_issued_total{type=access} = %v, want 2", got)
	}
	if got := counterValue(t, reg, "fixman_tokens_issued_total", "refresh"); got != 1 {
		t.Errorf("tokens_issued_total{type=refresh} = %v, want 1", got)
	}
}

// TestRecordTokensSwept_Accumulates は掃除件数が累積されることを検証する。
func TestRecordTokensSwept_Accumulates(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordTokensSwept(3)
	c.RecordTokensSwept(2)

	if got := counterValue(t, reg, "fixman_tokens_swept_total", ""); got != 5 {
		t.Errorf("tokens_swept_total = %v, want 5", got)
	}
}

// TestRecordHTTPStatus_CountsByCode はステータスコード別にカウントされることを検証する。
func TestRecordHTTPStatus_CountsByCode(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordHTTPStatus(200)
	c.RecordHTTPStatus(200)
	c.RecordHTTPStatus(401)

	if got := counterValue(t, reg, "fixman_http_status_total", "200"); got != 2 {
		t.Errorf("http_status_total{status_code=200} = %v, want 2", got)
	}
	if got := counterValue(t, reg, "fixman_http_status_total", "401"); got != 1 {
		t.Errorf("http_status_total{status_code=401} = %v, want 1", got)
	}
}

// TestRecordRequestDuration_Observes はヒストグラムに記録されることを検証する。
func TestRecordRequestDuration_Observes(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordRequestDuration(150 * time.Millisecond)

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	found := false
	for _, mf := range metrics {
		if mf.GetName() == "fixman_request_duration_seconds" {
			found = true
			if count := mf.GetMetric()[0].GetHistogram().GetSampleCount(); count != 1 {
				t.Errorf("sample count = %d, want 1", count)
			}
		}
	}
	if !found {
		t.Error("fixman_request_duration_seconds metric not found")
	}
}

// TestSetupMetricsRoute_ServesMetrics は/metricsエンドポイントが応答することを検証する。
func TestSetupMetricsRoute_ServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordLogin(LoginResultSuccess)

	srv := httptest.NewServer(SetupMetricsRoute(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("failed to get metrics: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}
	if !strings.Contains(string(body), "fixman_logins_total") {
		t.Error("expected fixman_logins_total in metrics output")
	}
}
