package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/kurumart/internal/model"
)

// PostgresActivityLogRepo はPostgreSQLを使用した監査ログリポジトリ。
type PostgresActivityLogRepo struct {
	db *sql.DB
}

// NewPostgresActivityLogRepo はPostgresActivityLogRepoを生成する。
func NewPostgresActivityLogRepo(db *sql.DB) *PostgresActivityLogRepo {
	return &PostgresActivityLogRepo{db: db}
}

// Create は監査ログを追記する。
func (r *PostgresActivityLogRepo) Create(ctx context.Context, entry *model.ActivityLog) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO activity_logs (id, actor_id, actor_name, action, entity_type, entity_id, detail, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		entry.ID, entry.ActorID, entry.ActorName, entry.Action,
		entry.EntityType, entry.EntityID, entry.Detail, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert activity log: %w", err)
	}
	return nil
}

// List は監査ログを作成日時降順で返す。
func (r *PostgresActivityLogRepo) List(ctx context.Context, limit, offset int) ([]*model.ActivityLog, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, actor_id, actor_name, action, entity_type, entity_id, detail, created_at
		 FROM activity_logs ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list activity logs: %w", err)
	}
	defer rows.Close()

	var entries []*model.ActivityLog
	for rows.Next() {
		entry := &model.ActivityLog{}
		err := rows.Scan(
			&entry.ID, &entry.ActorID, &entry.ActorName, &entry.Action,
			&entry.EntityType, &entry.EntityID, &entry.Detail, &entry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan activity log: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate activity logs: %w", err)
	}
	return entries, nil
}

// DeleteOlderThan は指定日時より古い監査ログを削除し、削除件数を返す。
func (r *PostgresActivityLogRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM activity_logs WHERE created_at < $1`,
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old activity logs: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return deleted, nil
}

// compile-time interface check
var _ ActivityLogRepository = (*PostgresActivityLogRepo)(nil)
