// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// サービス層から利用する。
type MetricsCollector interface {
	RecordSubmissionCreated(kind string)
	RecordSubmissionFailed(kind string)
	RecordAssetUploadFailure(kind string)
	RecordUpdateFallback(kind string)
	RecordModerationAction(action string)
	RecordBulkSelectionSize(size int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	submissionCreated *prometheus.CounterVec
	submissionFailed  *prometheus.CounterVec
	assetUploadFail   *prometheus.CounterVec
	updateFallback    *prometheus.CounterVec
	moderationActions *prometheus.CounterVec
	bulkSelectionSize prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		submissionCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "startlinker_submission_created_total",
			Help: "投稿作成成功の合計数（種別ごと）",
		}, []string{"kind"}),
		submissionFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "startlinker_submission_failed_total",
			Help: "投稿作成失敗の合計数（種別ごと）",
		}, []string{"kind"}),
		assetUploadFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "startlinker_asset_upload_fail_total",
			Help: "カバー画像アップロード失敗の合計数（種別ごと）",
		}, []string{"kind"}),
		updateFallback: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "startlinker_update_fallback_total",
			Help: "直接更新から審査送信へのフォールバック発生数（種別ごと）",
		}, []string{"kind"}),
		moderationActions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "startlinker_moderation_actions_total",
			Help: "モデレーション操作の合計数（操作ごと）",
		}, []string{"action"}),
		bulkSelectionSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "startlinker_bulk_selection_size",
			Help:    "一括モデレーション操作の選択件数の分布",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100},
		}),
	}

	reg.MustRegister(
		c.submissionCreated,
		c.submissionFailed,
		c.assetUploadFail,
		c.updateFallback,
		c.moderationActions,
		c.bulkSelectionSize,
	)

	return c
}

// RecordSubmissionCreated は投稿作成成功を記録する。
func (c *Collector) RecordSubmissionCreated(kind string) {
	c.submissionCreated.WithLabelValues(kind).Inc()
}

// RecordSubmissionFailed は投稿作成失敗を記録する。
func (c *Collector) RecordSubmissionFailed(kind string) {
	c.submissionFailed.WithLabelValues(kind).Inc()
}

// RecordAssetUploadFailure はカバー画像アップロード失敗を記録する。
// 投稿本体は成功しているため、劣化完了の監視に使用する。
func (c *Collector) RecordAssetUploadFailure(kind string) {
	c.assetUploadFail.WithLabelValues(kind).Inc()
}

// RecordUpdateFallback は直接更新の失敗によるフォールバック発生を記録する。
func (c *Collector) RecordUpdateFallback(kind string) {
	c.updateFallback.WithLabelValues(kind).Inc()
}

// RecordModerationAction はモデレーション操作を記録する。
func (c *Collector) RecordModerationAction(action string) {
	c.moderationActions.WithLabelValues(action).Inc()
}

// RecordBulkSelectionSize は一括操作の選択件数を記録する。
func (c *Collector) RecordBulkSelectionSize(size int) {
	c.bulkSelectionSize.Observe(float64(size))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
