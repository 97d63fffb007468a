// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// APIクライアント・セッション・認可ミドルウェアから利用する。
type MetricsCollector interface {
	RecordAPIRequest(method, resource, outcome string, duration time.Duration)
	RecordSessionRestore(result string)
	RecordAuthzDenied(action string)
	RecordHTTPStatus(statusCode int)
	RecordLoginAttempt(success bool)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	apiRequests     *prometheus.CounterVec
	apiLatency      *prometheus.HistogramVec
	sessionRestores *prometheus.CounterVec
	authzDenied     *prometheus.CounterVec
	httpStatus      *prometheus.CounterVec
	loginAttempts   *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		apiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "researchtracker_backend_requests_total",
			Help: "バックエンドAPI呼び出しの合計数",
		}, []string{"method", "resource", "outcome"}),
		apiLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "researchtracker_backend_request_duration_seconds",
			Help:    "バックエンドAPI呼び出しのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "resource"}),
		sessionRestores: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "researchtracker_session_restores_total",
			Help: "セッション復元の結果別の合計数",
		}, []string{"result"}),
		authzDenied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "researchtracker_authz_denied_total",
			Help: "認可で拒否された操作の合計数",
		}, []string{"action"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "researchtracker_http_responses_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		loginAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "researchtracker_login_attempts_total",
			Help: "ログイン試行の合計数",
		}, []string{"result"}),
	}

	reg.MustRegister(
		c.apiRequests,
		c.apiLatency,
		c.sessionRestores,
		c.authzDenied,
		c.httpStatus,
		c.loginAttempts,
	)

	return c
}

// RecordAPIRequest はバックエンド呼び出しの結果とレイテンシを記録する。
func (c *Collector) RecordAPIRequest(method, resource, outcome string, duration time.Duration) {
	c.apiRequests.WithLabelValues(method, resource, outcome).Inc()
	c.apiLatency.WithLabelValues(method, resource).Observe(duration.Seconds())
}

// RecordSessionRestore はセッション復元の結果を記録する。
func (c *Collector) RecordSessionRestore(result string) {
	c.sessionRestores.WithLabelValues(result).Inc()
}

// RecordAuthzDenied は認可拒否を記録する。
func (c *Collector) RecordAuthzDenied(action string) {
	c.authzDenied.WithLabelValues(action).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordLoginAttempt はログイン試行の成否を記録する。
func (c *Collector) RecordLoginAttempt(success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	c.loginAttempts.WithLabelValues(result).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}

var _ MetricsCollector = (*Collector)(nil)
