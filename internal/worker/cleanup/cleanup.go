// Package cleanup は期限切れリフレッシュトークンの自動削除ジョブを提供する。
// Token Storeに残った期限切れ行を日次バッチで掃除する。
// 期限切れ行は認証上はすでに無効（FindValidが除外する）なので、
// このジョブの目的はテーブル肥大の抑制のみ。
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/fixman/internal/metrics"
	"github.com/hitoshi/fixman/internal/repository"
)

// SweepJob は期限切れリフレッシュトークンの自動削除ジョブ。
// 日次実行のバッチジョブとして設計されており、冪等な削除処理を保証する。
type SweepJob struct {
	tokens    repository.RefreshTokenRepository
	logger    *slog.Logger
	collector metrics.MetricsCollector
}

// NewSweepJob は新しいSweepJobを生成する。collectorはnil可。
func NewSweepJob(tokens repository.RefreshTokenRepository, logger *slog.Logger, collector metrics.MetricsCollector) *SweepJob {
	return &SweepJob{
		tokens:    tokens,
		logger:    logger,
		collector: collector,
	}
}

// Run はexpires_atが現在時刻より前の行を削除する。
// 冪等: 削除対象がない場合でもエラーにならない。
func (j *SweepJob) Run(ctx context.Context) error {
	start := time.Now()

	deletedCount, err := j.tokens.DeleteExpired(ctx, time.Now())
	if err != nil {
		j.logger.Error("期限切れトークンの掃除に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("期限切れトークンの掃除に失敗: %w", err)
	}

	if j.collector != nil {
		j.collector.RecordTokensSwept(deletedCount)
	}

	duration := time.Since(start)
	j.logger.Info("期限切れトークンの掃除が完了しました",
		slog.Int64("deleted_count", deletedCount),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}

// RunLoop は起動時に一度実行した後、interval間隔でRunを繰り返す。
// コンテキストのキャンセルで停止する。個々の実行失敗ではループを止めない。
func (j *SweepJob) RunLoop(ctx context.Context, interval time.Duration) {
	if err := j.Run(ctx); err != nil {
		j.logger.Error("initial token sweep failed", slog.String("error", err.Error()))
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := j.Run(ctx); err != nil {
				j.logger.Error("token sweep failed", slog.String("error", err.Error()))
			}
		case <-ctx.Done():
			return
		}
	}
}
