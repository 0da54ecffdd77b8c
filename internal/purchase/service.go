// Package purchase は成約記録のドメインロジックを提供する。
package purchase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/kurumart/internal/model"
	"github.com/hitoshi/kurumart/internal/repository"
)

// AuditRecorder は管理操作の監査ログ記録インターフェース。
type AuditRecorder interface {
	Record(ctx context.Context, actorID, actorName, action, entityType, entityID, detail string)
}

// Service は成約記録のサービス層。
// 管理者による成約の記録と、購入者の履歴取得を提供する。
type Service struct {
	purchaseRepo repository.PurchaseRepository
	carRepo      repository.CarRepository
	userRepo     repository.UserRepository
	audit        AuditRecorder
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	purchaseRepo repository.PurchaseRepository,
	carRepo repository.CarRepository,
	userRepo repository.UserRepository,
	audit AuditRecorder,
) *Service {
	return &Service{
		purchaseRepo: purchaseRepo,
		carRepo:      carRepo,
		userRepo:     userRepo,
		audit:        audit,
	}
}

// Record は成約を記録する。管理者用。
// 車両を成約済みにし、成約時点の価格をスナップショットとして保存する。
// 既に成約済みの車両はCarAlreadySoldError。
func (s *Service) Record(ctx context.Context, actorID, actorName, buyerID, carID string) (*model.Purchase, error) {
	car, err := s.carRepo.FindByID(ctx, carID)
	if err != nil {
		return nil, fmt.Errorf("車両の取得に失敗しました: %w", err)
	}
	if car == nil {
		return nil, model.NewCarNotFoundError(carID)
	}
	if car.IsSold {
		return nil, model.NewCarAlreadySoldError()
	}

	buyer, err := s.userRepo.FindByID(ctx, buyerID)
	if err != nil {
		return nil, fmt.Errorf("購入者の取得に失敗しました: %w", err)
	}
	if buyer == nil {
		return nil, model.NewUserNotFoundError()
	}

	purchase := &model.Purchase{
		ID:          uuid.NewString(),
		UserID:      buyerID,
		CarID:       carID,
		PriceAtSale: car.Price,
		PurchasedAt: time.Now(),
	}
	// 車両の成約済み化と記録の作成は単一トランザクション。
	// 事前チェック後に他の管理者が先に成約させた場合もここで検出する。
	if err := s.purchaseRepo.RecordSale(ctx, purchase); err != nil {
		if errors.Is(err, repository.ErrCarNotAvailable) {
			return nil, model.NewCarAlreadySoldError()
		}
		return nil, fmt.Errorf("成約処理に失敗しました: %w", err)
	}

	if s.audit != nil {
		s.audit.Record(ctx, actorID, actorName, model.ActionPurchaseRecord, "purchase", purchase.ID,
			fmt.Sprintf("car=%s buyer=%s price=%.0f", carID, buyerID, car.Price))
	}

	slog.Info("purchase recorded",
		slog.String("purchase_id", purchase.ID),
		slog.String("car_id", carID),
	)

	return purchase, nil
}

// ListByUser はユーザーの購入履歴を成約日時降順で返す。
func (s *Service) ListByUser(ctx context.Context, userID string) ([]*model.Purchase, error) {
	purchases, err := s.purchaseRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("購入履歴の取得に失敗しました: %w", err)
	}
	return purchases, nil
}
