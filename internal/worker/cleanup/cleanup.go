// Package cleanup は期限切れリフレッシュトークンの掃除ジョブを提供する。
// ストアは読み出し時に期限を判定するため、掃除しなければレコードが増え続ける。
// 本ジョブは一定間隔でDeleteExpiredを呼び出してストアの肥大化を防ぐ。
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/authgate/internal/metrics"
)

// ExpiredDeleter は期限切れトークンの削除インターフェース。
// refreshstore.Storeの部分集合として定義する。
type ExpiredDeleter interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// SweepJob は期限切れリフレッシュトークンの掃除ジョブ。
// 冪等: 削除対象がない場合でもエラーにならない。
type SweepJob struct {
	store   ExpiredDeleter
	metrics metrics.MetricsCollector
	logger  *slog.Logger
}

// NewSweepJob は新しいSweepJobを生成する。
// collectorがnilの場合はメトリクスを記録しない。
func NewSweepJob(store ExpiredDeleter, collector metrics.MetricsCollector, logger *slog.Logger) *SweepJob {
	if collector == nil {
		collector = metrics.Nop{}
	}
	return &SweepJob{
		store:   store,
		metrics: collector,
		logger:  logger,
	}
}

// Run は期限切れトークンを1回掃除し、削除件数を返す。
func (j *SweepJob) Run(ctx context.Context) (int64, error) {
	start := time.Now()

	deletedCount, err := j.store.DeleteExpired(ctx)
	if err != nil {
		j.logger.Error("リフレッシュトークン掃除ジョブの実行に失敗しました",
			slog.String("error", err.Error()),
		)
		return 0, fmt.Errorf("リフレッシュトークン掃除の実行に失敗: %w", err)
	}

	j.metrics.RecordRefreshTokensSwept(deletedCount)

	duration := time.Since(start)
	j.logger.Info("リフレッシュトークン掃除ジョブが完了しました",
		slog.Int64("deleted_count", deletedCount),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return deletedCount, nil
}

// Start は指定間隔のティッカーで掃除を繰り返す。
// 起動直後に1回実行し、コンテキストがキャンセルされるまで継続する。
func (j *SweepJob) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	j.logger.Info("リフレッシュトークン掃除ジョブを開始しました",
		slog.Duration("interval", interval),
	)

	// エラーはRun内でログ出力済み
	_, _ = j.Run(ctx)

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("リフレッシュトークン掃除ジョブを停止しました")
			return
		case <-ticker.C:
			_, _ = j.Run(ctx)
		}
	}
}
