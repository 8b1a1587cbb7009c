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
// ハンドラーやワーカーから利用する。
type MetricsCollector interface {
	RecordLogin(result string)
	RecordTokenIssued(tokenType string)
	RecordTokensSwept(count int64)
	RecordHTTPStatus(statusCode int)
	RecordRequestDuration(duration time.Duration)
}

// ログイン結果のラベル値。
const (
	LoginResultSuccess = "success"
	LoginResultFailure = "failure"
)

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	logins          *prometheus.CounterVec
	tokensIssued    *prometheus.CounterVec
	tokensSwept     prometheus.Counter
	httpStatus      *prometheus.CounterVec
	requestDuration prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fixman_logins_total",
			Help: "ログイン試行の結果別合計数",
		}, []string{"result"}),
		tokensIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fixman_tokens_issued_total",
			Help: "発行されたトークンの種別別合計数",
		}, []string{"type"}),
		tokensSwept: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fixman_tokens_swept_total",
			Help: "掃除ワーカーが削除した期限切れリフレッシュトークンの合計数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fixman_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "fixman_request_duration_seconds",
			Help:    "HTTPリクエスト処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.logins,
		c.tokensIssued,
		c.tokensSwept,
		c.httpStatus,
		c.requestDuration,
	)

	return c
}

// RecordLogin はログイン試行の結果を記録する。
func (c *Collector) RecordLogin(result string) {
	c.logins.WithLabelValues(result).Inc()
}

// RecordTokenIssued はトークン発行を種別付きで記録する。
func (c *Collector) RecordTokenIssued(tokenType string) {
	c.tokensIssued.WithLabelValues(tokenType).Inc()
}

// RecordTokensSwept は掃除ワーカーの削除件数を記録する。
func (c *Collector) RecordTokensSwept(count int64) {
	c.tokensSwept.Add(float64(count))
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestDuration はリクエスト処理時間を記録する。
func (c *Collector) RecordRequestDuration(duration time.Duration) {
	c.requestDuration.Observe(duration.Seconds())
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
