// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// リフレッシュ結果のラベル値
const (
	RefreshSuccess      = "success"
	RefreshMissing      = "missing"
	RefreshInvalid      = "invalid"
	RefreshExpired      = "expired"
	RefreshUserNotFound = "user_not_found"
)

// ログアウト結果のラベル値
const (
	LogoutSuccess = "success"
	LogoutFailure = "failure"
)

// トークン種別のラベル値
const (
	TokenKindAccess  = "access"
	TokenKindRefresh = "refresh"
)

// MetricsCollector はメトリクス収集のインターフェース。
// サービス層・ミドルウェア・ワーカーから利用する。
type MetricsCollector interface {
	RecordLoginSuccess()
	RecordLoginFailure()
	RecordRegistration()
	RecordRefresh(outcome string)
	RecordLogout(outcome string)
	RecordTokenIssued(kind string)
	RecordHTTPStatus(statusCode int)
	RecordRequestLatency(duration time.Duration)
	RecordRefreshTokensSwept(count int64)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	loginSuccess   prometheus.Counter
	loginFail      prometheus.Counter
	registrations  prometheus.Counter
	refresh        *prometheus.CounterVec
	logout         *prometheus.CounterVec
	tokensIssued   *prometheus.CounterVec
	httpStatus     *prometheus.CounterVec
	requestLatency prometheus.Histogram
	tokensSwept    prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		loginSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "authgate_login_success_total",
			Help: "ログイン成功の合計数",
		}),
		loginFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "authgate_login_fail_total",
			Help: "ログイン失敗の合計数",
		}),
		registrations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "authgate_registrations_total",
			Help: "ユーザー登録の合計数",
		}),
		refresh: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authgate_refresh_total",
			Help: "トークン更新の結果別の合計数",
		}, []string{"outcome"}),
		logout: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authgate_logout_total",
			Help: "ログアウト（リフレッシュトークン破棄）の結果別の合計数",
		}, []string{"outcome"}),
		tokensIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authgate_tokens_issued_total",
			Help: "種別ごとのトークン発行数",
		}, []string{"kind"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authgate_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "authgate_request_latency_seconds",
			Help:    "HTTPリクエストのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		tokensSwept: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "authgate_refresh_tokens_swept_total",
			Help: "掃除された期限切れリフレッシュトークンの合計数",
		}),
	}

	reg.MustRegister(
		c.loginSuccess,
		c.loginFail,
		c.registrations,
		c.refresh,
		c.logout,
		c.tokensIssued,
		c.httpStatus,
		c.requestLatency,
		c.tokensSwept,
	)

	return c
}

// RecordLoginSuccess はログイン成功を記録する。
func (c *Collector) RecordLoginSuccess() {
	c.loginSuccess.Inc()
}

// RecordLoginFailure はログイン失敗を記録する。
func (c *Collector) RecordLoginFailure() {
	c.loginFail.Inc()
}

// RecordRegistration はユーザー登録を記録する。
func (c *Collector) RecordRegistration() {
	c.registrations.Inc()
}

// RecordRefresh はトークン更新の結果を記録する。
func (c *Collector) RecordRefresh(outcome string) {
	c.refresh.WithLabelValues(outcome).Inc()
}

// RecordLogout はログアウトの結果を記録する。
func (c *Collector) RecordLogout(outcome string) {
	c.logout.WithLabelValues(outcome).Inc()
}

// RecordTokenIssued はトークン発行を記録する。
func (c *Collector) RecordTokenIssued(kind string) {
	c.tokensIssued.WithLabelValues(kind).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestLatency はリクエストのレイテンシを記録する。
func (c *Collector) RecordRequestLatency(duration time.Duration) {
	c.requestLatency.Observe(duration.Seconds())
}

// RecordRefreshTokensSwept は掃除したリフレッシュトークン数を記録する。
func (c *Collector) RecordRefreshTokensSwept(count int64) {
	c.tokensSwept.Add(float64(count))
}

// Nop は何も記録しないMetricsCollector。
type Nop struct{}

func (Nop) RecordLoginSuccess() {}
func (Nop) RecordLoginFailure() {}
func (Nop) RecordRegistration() {}
func (Nop) RecordRefresh(string) {}
func (Nop) RecordLogout(string) {}
func (Nop) RecordTokenIssued(string) {}
func (Nop) RecordHTTPStatus(int) {}
func (Nop) RecordRequestLatency(time.Duration) {}
func (Nop) RecordRefreshTokensSwept(int64) {}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// compile-time interface check
var (
	_ MetricsCollector = (*Collector)(nil)
	_ MetricsCollector = Nop{}
)
