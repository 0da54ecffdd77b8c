// Package car は車両カタログのドメインロジックを提供する。
package car

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/kurumart/internal/model"
	"github.com/hitoshi/kurumart/internal/repository"
)

// Sanitizer は車両説明文のサニタイズインターフェース。
// security.ContentSanitizerServiceの部分集合として定義する。
type Sanitizer interface {
	SanitizeDescription(rawHTML string) string
}

// AuditRecorder は管理操作の監査ログ記録インターフェース。
type AuditRecorder interface {
	Record(ctx context.Context, actorID, actorName, action, entityType, entityID, detail string)
}

// Input は車両の作成・更新に使う入力値。
type Input struct {
	Make         string
	Model        string
	Year         int
	Price        float64
	Mileage      int
	Color        string
	Transmission string
	Description  string
	ImageURL     string
}

// Service は車両カタログのサービス層。
// 公開側の検索・閲覧と、管理者側の登録・更新・成約・削除を提供する。
type Service struct {
	carRepo   repository.CarRepository
	sanitizer Sanitizer
	audit     AuditRecorder
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(carRepo repository.CarRepository, sanitizer Sanitizer, audit AuditRecorder) *Service {
	return &Service{
		carRepo:   carRepo,
		sanitizer: sanitizer,
		audit:     audit,
	}
}

// List は絞り込み条件に一致する車両の一覧を返す。
func (s *Service) List(ctx context.Context, filter model.CarFilter) ([]*model.Car, error) {
	cars, err := s.carRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("車両一覧の取得に失敗しました: %w", err)
	}
	return cars, nil
}

// Get は指定IDの車両を返す。見つからない場合はCarNotFoundError。
func (s *Service) Get(ctx context.Context, id string) (*model.Car, error) {
	car, err := s.carRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("車両の取得に失敗しました: %w", err)
	}
	if car == nil {
		return nil, model.NewCarNotFoundError(id)
	}
	return car, nil
}

// Create は車両を新規登録する。管理者用。
// 説明文はサニタイズしてから保存する。
func (s *Service) Create(ctx context.Context, actorID, actorName string, input Input) (*model.Car, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	now := time.Now()
	car := &model.Car{
		ID:           uuid.NewString(),
		Make:         strings.TrimSpace(input.Make),
		Model:        strings.TrimSpace(input.Model),
		Year:         input.Year,
		Price:        input.Price,
		Mileage:      input.Mileage,
		Color:        strings.TrimSpace(input.Color),
		Transmission: strings.TrimSpace(input.Transmission),
		Description:  s.sanitize(input.Description),
		ImageURL:     strings.TrimSpace(input.ImageURL),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.carRepo.Create(ctx, car); err != nil {
		return nil, fmt.Errorf("車両の登録に失敗しました: %w", err)
	}

	if s.audit != nil {
		s.audit.Record(ctx, actorID, actorName, model.ActionCarCreate, "car", car.ID,
			fmt.Sprintf("%s %s (%d)", car.Make, car.Model, car.Year))
	}

	slog.Info("car created",
		slog.String("car_id", car.ID),
	)

	return car, nil
}

// Update は車両情報を更新する。管理者用。
// 成約済みの車両も情報修正は許可する。
func (s *Service) Update(ctx context.Context, actorID, actorName, id string, input Input) (*model.Car, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	car, err := s.carRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("車両の取得に失敗しました: %w", err)
	}
	if car == nil {
		return nil, model.NewCarNotFoundError(id)
	}

	car.Make = strings.TrimSpace(input.Make)
	car.Model = strings.TrimSpace(input.Model)
	car.Year = input.Year
	car.Price = input.Price
	car.Mileage = input.Mileage
	car.Color = strings.TrimSpace(input.Color)
	car.Transmission = strings.TrimSpace(input.Transmission)
	car.Description = s.sanitize(input.Description)
	car.ImageURL = strings.TrimSpace(input.ImageURL)
	car.UpdatedAt = time.Now()

	if err := s.carRepo.Update(ctx, car); err != nil {
		return nil, fmt.Errorf("車両の更新に失敗しました: %w", err)
	}

	if s.audit != nil {
		s.audit.Record(ctx, actorID, actorName, model.ActionCarUpdate, "car", car.ID, "")
	}

	return car, nil
}

// MarkSold は車両を成約済みにする。管理者用。
// 既に成約済みの場合はCarAlreadySoldError。
func (s *Service) MarkSold(ctx context.Context, actorID, actorName, id string) (*model.Car, error) {
	car, err := s.carRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("車両の取得に失敗しました: %w", err)
	}
	if car == nil {
		return nil, model.NewCarNotFoundError(id)
	}
	if car.IsSold {
		return nil, model.NewCarAlreadySoldError()
	}

	if err := s.carRepo.MarkSold(ctx, id); err != nil {
		return nil, fmt.Errorf("成約処理に失敗しました: %w", err)
	}
	car.IsSold = true

	if s.audit != nil {
		s.audit.Record(ctx, actorID, actorName, model.ActionCarMarkSold, "car", id, "")
	}

	slog.Info("car marked sold",
		slog.String("car_id", id),
	)

	return car, nil
}

// Delete は車両を削除する。管理者用。
func (s *Service) Delete(ctx context.Context, actorID, actorName, id string) error {
	car, err := s.carRepo.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("車両の取得に失敗しました: %w", err)
	}
	if car == nil {
		return model.NewCarNotFoundError(id)
	}

	if err := s.carRepo.DeleteByID(ctx, id); err != nil {
		return fmt.Errorf("車両の削除に失敗しました: %w", err)
	}

	if s.audit != nil {
		s.audit.Record(ctx, actorID, actorName, model.ActionCarDelete, "car", id,
			fmt.Sprintf("%s %s (%d)", car.Make, car.Model, car.Year))
	}

	return nil
}

func (s *Service) sanitize(description string) string {
	if s.sanitizer == nil {
		return description
	}
	return s.sanitizer.SanitizeDescription(description)
}

func validateInput(input Input) error {
	if strings.TrimSpace(input.Make) == "" {
		return model.NewValidationError("メーカー名を入力してください。")
	}
	if strings.TrimSpace(input.Model) == "" {
		return model.NewValidationError("車種名を入力してください。")
	}
	if input.Year < 1950 || input.Year > time.Now().Year()+1 {
		return model.NewValidationError("年式が正しくありません。")
	}
	if input.Price <= 0 {
		return model.NewValidationError("価格は0円より大きい金額で入力してください。")
	}
	if input.Mileage < 0 {
		return model.NewValidationError("走行距離は0km以上で入力してください。")
	}
	return nil
}
