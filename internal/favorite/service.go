// Package favorite はお気に入り管理のドメインロジックを提供する。
package favorite

import (
	"context"
	"fmt"
	"time"

	"github.com/hitoshi/kurumart/internal/model"
	"github.com/hitoshi/kurumart/internal/repository"
)

// Service はお気に入り管理のサービス層。
type Service struct {
	favRepo repository.FavoriteRepository
	carRepo repository.CarRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(favRepo repository.FavoriteRepository, carRepo repository.CarRepository) *Service {
	return &Service{
		favRepo: favRepo,
		carRepo: carRepo,
	}
}

// Add は車両をお気に入りに登録する。
// 車両が存在しない場合はCarNotFoundError、登録済みの場合はFavoriteExistsError。
func (s *Service) Add(ctx context.Context, userID, carID string) error {
	car, err := s.carRepo.FindByID(ctx, carID)
	if err != nil {
		return fmt.Errorf("車両の取得に失敗しました: %w", err)
	}
	if car == nil {
		return model.NewCarNotFoundError(carID)
	}

	exists, err := s.favRepo.Exists(ctx, userID, carID)
	if err != nil {
		return fmt.Errorf("お気に入りの確認に失敗しました: %w", err)
	}
	if exists {
		return model.NewFavoriteExistsError()
	}

	fav := &model.Favorite{
		UserID:    userID,
		CarID:     carID,
		CreatedAt: time.Now(),
	}
	if err := s.favRepo.Create(ctx, fav); err != nil {
		return fmt.Errorf("お気に入りの登録に失敗しました: %w", err)
	}

	return nil
}

// List はユーザーのお気に入り車両一覧を返す。
// 成約済みになった車両も一覧には残す（お気に入りの履歴性を保つ）。
func (s *Service) List(ctx context.Context, userID string) ([]*model.Car, error) {
	cars, err := s.favRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("お気に入り一覧の取得に失敗しました: %w", err)
	}
	return cars, nil
}

// Remove はお気に入りを解除する。未登録でもエラーにしない（冪等）。
func (s *Service) Remove(ctx context.Context, userID, carID string) error {
	if err := s.favRepo.Delete(ctx, userID, carID); err != nil {
		return fmt.Errorf("お気に入りの解除に失敗しました: %w", err)
	}
	return nil
}
