// Package cleanup は古くなったクライアント状態の削除ジョブを提供する。
// 保持期間（デフォルト30日）の間に一度も更新されなかったクライアントの
// token/user/flashを削除する。
package cleanup

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// Executor はSQLのExecContextを抽象化するインターフェース。
// *sql.DB や *sql.Tx を受け付けることができる。
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// Purger はメモリ上のクライアント状態を期限で削除できるリポジトリ。
type Purger interface {
	PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Job は定期実行されるジョブ。
type Job interface {
	Run(ctx context.Context) error
}

// CleanupJob はclient_stateテーブルから保持期間を超過した行を削除するジョブ。
// 冪等な削除処理を保証する。
type CleanupJob struct {
	db            Executor
	logger        *slog.Logger
	RetentionDays int // クライアント状態の保持日数（デフォルト: 30）
}

// NewCleanupJob は新しいCleanupJobを生成する。
func NewCleanupJob(db Executor, logger *slog.Logger) *CleanupJob {
	return &CleanupJob{
		db:            db,
		logger:        logger,
		RetentionDays: 30,
	}
}

// Run はupdated_atがRetentionDays日前より古い行をDELETEする。
// 削除対象がない場合でもエラーにならない。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := time.Now()

	interval := fmt.Sprintf("%d days", j.RetentionDays)

	query := `DELETE FROM client_state WHERE updated_at < now() - $1::interval`
	result, err := j.db.ExecContext(ctx, query, interval)
	if err != nil {
		j.logger.Error("クライアント状態のクリーンアップに失敗しました",
			slog.String("error", err.Error()),
			slog.Int("retention_days", j.RetentionDays),
		)
		return fmt.Errorf("クライアント状態のクリーンアップに失敗: %w", err)
	}

	deletedCount, err := result.RowsAffected()
	if err != nil {
		j.logger.Error("削除件数の取得に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("削除件数の取得に失敗: %w", err)
	}

	j.logger.Info("クライアント状態のクリーンアップが完了しました",
		slog.Int64("deleted_count", deletedCount),
		slog.Int("retention_days", j.RetentionDays),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)

	return nil
}

// MemoryCleanupJob はメモリ上のクライアント状態を保持期間で削除するジョブ。
type MemoryCleanupJob struct {
	repo          Purger
	logger        *slog.Logger
	now           func() time.Time
	RetentionDays int
}

// NewMemoryCleanupJob は新しいMemoryCleanupJobを生成する。
func NewMemoryCleanupJob(repo Purger, logger *slog.Logger) *MemoryCleanupJob {
	return &MemoryCleanupJob{
		repo:          repo,
		logger:        logger,
		now:           time.Now,
		RetentionDays: 30,
	}
}

// Run は保持期間より前に更新されたクライアントを削除する。
func (j *MemoryCleanupJob) Run(ctx context.Context) error {
	cutoff := j.now().AddDate(0, 0, -j.RetentionDays)
	n, err := j.repo.PurgeBefore(ctx, cutoff)
	if err != nil {
		j.logger.Error("クライアント状態のクリーンアップに失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("クライアント状態のクリーンアップに失敗: %w", err)
	}
	j.logger.Info("クライアント状態のクリーンアップが完了しました",
		slog.Int64("deleted_count", n),
		slog.Int("retention_days", j.RetentionDays),
	)
	return nil
}

// Schedule はjobを起動直後に1回、その後intervalごとに実行する。
// ctxがキャンセルされるまでブロックする。ジョブの失敗はログのみ。
func Schedule(ctx context.Context, job Job, interval time.Duration, logger *slog.Logger) {
	runOnce := func() {
		if err := job.Run(ctx); err != nil {
			logger.Error("cleanup job failed", slog.String("error", err.Error()))
		}
	}

	runOnce()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runOnce()
		}
	}
}

var (
	_ Job = (*CleanupJob)(nil)
	_ Job = (*MemoryCleanupJob)(nil)
)
