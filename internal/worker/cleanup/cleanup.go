// Package cleanup は期限切れデータの自動削除ジョブを提供する。
// 期限切れセッションの掃除と、保持期間を超過した監査ログの削除を
// 定期バッチで実行する。
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// SessionPurger は期限切れセッションの削除インターフェース。
// repository.SessionRepositoryの部分集合として定義する。
type SessionPurger interface {
	// DeleteExpired は有効期限を過ぎたセッションを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context) (int64, error)
}

// ActivityPurger は監査ログの削除インターフェース。
type ActivityPurger interface {
	// DeleteOlderThan はcutoffより古い監査ログを削除し、削除件数を返す。
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// PurgeMetrics はセッション掃除のメトリクス記録インターフェース。
type PurgeMetrics interface {
	RecordSessionsPurged(count int64)
}

// Job は期限切れデータの自動削除ジョブ。
// 冪等な削除処理で、削除対象がない場合もエラーにならない。
type Job struct {
	sessions SessionPurger
	activity ActivityPurger
	metrics  PurgeMetrics
	logger   *slog.Logger

	// ActivityRetentionDays は監査ログの保持日数（デフォルト: 365）。
	ActivityRetentionDays int
}

// NewJob は新しいJobを生成する。
func NewJob(sessions SessionPurger, activity ActivityPurger, metrics PurgeMetrics, logger *slog.Logger) *Job {
	return &Job{
		sessions:              sessions,
		activity:              activity,
		metrics:               metrics,
		logger:                logger,
		ActivityRetentionDays: 365,
	}
}

// Run は期限切れセッションと保持期間超過の監査ログを削除する。
// セッション掃除に失敗しても監査ログの削除は実行し、エラーはまとめて返す。
func (j *Job) Run(ctx context.Context) error {
	start := time.Now()

	purged, sessionErr := j.sessions.DeleteExpired(ctx)
	if sessionErr != nil {
		j.logger.Error("期限切れセッションの削除に失敗しました",
			slog.String("error", sessionErr.Error()),
		)
	} else {
		if j.metrics != nil && purged > 0 {
			j.metrics.RecordSessionsPurged(purged)
		}
	}

	cutoff := time.Now().AddDate(0, 0, -j.ActivityRetentionDays)
	removed, activityErr := j.activity.DeleteOlderThan(ctx, cutoff)
	if activityErr != nil {
		j.logger.Error("監査ログの削除に失敗しました",
			slog.String("error", activityErr.Error()),
			slog.Int("retention_days", j.ActivityRetentionDays),
		)
	}

	if sessionErr != nil || activityErr != nil {
		return fmt.Errorf("クリーンアップジョブに失敗: sessions=%v activity=%v", sessionErr, activityErr)
	}

	j.logger.Info("クリーンアップジョブが完了しました",
		slog.Int64("sessions_purged", purged),
		slog.Int64("activity_logs_removed", removed),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)

	return nil
}

// RunPeriodic はintervalごとにRunを実行する。ctxのキャンセルで停止する。
// 起動直後にも1回実行する。
func (j *Job) RunPeriodic(ctx context.Context, interval time.Duration) {
	if err := j.Run(ctx); err != nil {
		j.logger.Error("cleanup run failed", slog.String("error", err.Error()))
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("cleanup worker stopped")
			return
		case <-ticker.C:
			if err := j.Run(ctx); err != nil {
				j.logger.Error("cleanup run failed", slog.String("error", err.Error()))
			}
		}
	}
}
