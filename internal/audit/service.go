// Package audit は管理操作の監査ログを提供する。
package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/kurumart/internal/model"
	"github.com/hitoshi/kurumart/internal/repository"
)

// Service は監査ログのサービス層。
// 管理操作の記録と一覧取得を提供する。
type Service struct {
	repo repository.ActivityLogRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(repo repository.ActivityLogRepository) *Service {
	return &Service{repo: repo}
}

// Record は管理操作を監査ログに追記する。
// 監査ログの書き込み失敗で本体の操作を失敗させないため、
// エラーはログに記録するだけで呼び出し元には返さない。
func (s *Service) Record(ctx context.Context, actorID, actorName, action, entityType, entityID, detail string) {
	entry := &model.ActivityLog{
		ID:         uuid.NewString(),
		ActorID:    actorID,
		ActorName:  actorName,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Detail:     detail,
		CreatedAt:  time.Now(),
	}

	if err := s.repo.Create(ctx, entry); err != nil {
		slog.Error("failed to record activity log",
			slog.String("action", action),
			slog.String("entity_id", entityID),
			slog.String("error", err.Error()),
		)
	}
}

// List は監査ログを作成日時降順で返す。
func (s *Service) List(ctx context.Context, limit, offset int) ([]*model.ActivityLog, error) {
	entries, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("監査ログの取得に失敗しました: %w", err)
	}
	return entries, nil
}
