// Package inquiry は車両問い合わせのドメインロジックを提供する。
package inquiry

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/kurumart/internal/model"
	"github.com/hitoshi/kurumart/internal/repository"
)

// Sanitizer は問い合わせ本文のサニタイズインターフェース。
type Sanitizer interface {
	SanitizeText(raw string) string
}

// AuditRecorder は管理操作の監査ログ記録インターフェース。
type AuditRecorder interface {
	Record(ctx context.Context, actorID, actorName, action, entityType, entityID, detail string)
}

// Service は問い合わせのサービス層。
// 未ログインでも送信可能な受付と、管理者による対応管理を提供する。
type Service struct {
	inquiryRepo repository.InquiryRepository
	carRepo     repository.CarRepository
	sanitizer   Sanitizer
	audit       AuditRecorder
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	inquiryRepo repository.InquiryRepository,
	carRepo repository.CarRepository,
	sanitizer Sanitizer,
	audit AuditRecorder,
) *Service {
	return &Service{
		inquiryRepo: inquiryRepo,
		carRepo:     carRepo,
		sanitizer:   sanitizer,
		audit:       audit,
	}
}

// Submit は問い合わせを受け付ける。
// userIDはログイン済みの場合のみ設定される（空を許容）。
// 本文は全タグを除去したプレーンテキストとして保存する。
func (s *Service) Submit(ctx context.Context, userID, carID, name, email, message string) (*model.Inquiry, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	message = strings.TrimSpace(message)

	if name == "" {
		return nil, model.NewValidationError("お名前を入力してください。")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, model.NewValidationError("メールアドレスの形式が正しくありません。")
	}
	if message == "" {
		return nil, model.NewValidationError("お問い合わせ内容を入力してください。")
	}

	car, err := s.carRepo.FindByID(ctx, carID)
	if err != nil {
		return nil, fmt.Errorf("車両の取得に失敗しました: %w", err)
	}
	if car == nil {
		return nil, model.NewCarNotFoundError(carID)
	}

	if s.sanitizer != nil {
		message = s.sanitizer.SanitizeText(message)
	}

	inquiry := &model.Inquiry{
		ID:        uuid.NewString(),
		CarID:     carID,
		UserID:    userID,
		Name:      name,
		Email:     email,
		Message:   message,
		Status:    model.InquiryStatusOpen,
		CreatedAt: time.Now(),
	}

	if err := s.inquiryRepo.Create(ctx, inquiry); err != nil {
		return nil, fmt.Errorf("問い合わせの登録に失敗しました: %w", err)
	}

	return inquiry, nil
}

// List は問い合わせ一覧を返す。管理者用。
// statusが空の場合は全件を返す。
func (s *Service) List(ctx context.Context, status model.InquiryStatus, limit, offset int) ([]*model.Inquiry, error) {
	if status != "" && status != model.InquiryStatusOpen && status != model.InquiryStatusAnswered {
		return nil, model.NewValidationError("問い合わせステータスが正しくありません。")
	}

	inquiries, err := s.inquiryRepo.ListByStatus(ctx, status, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("問い合わせ一覧の取得に失敗しました: %w", err)
	}
	return inquiries, nil
}

// MarkAnswered は問い合わせを回答済みにする。管理者用。
// 既に回答済みでもエラーにしない（冪等）。
func (s *Service) MarkAnswered(ctx context.Context, actorID, actorName, inquiryID string) (*model.Inquiry, error) {
	inquiry, err := s.inquiryRepo.FindByID(ctx, inquiryID)
	if err != nil {
		return nil, fmt.Errorf("問い合わせの取得に失敗しました: %w", err)
	}
	if inquiry == nil {
		return nil, model.NewInquiryNotFoundError(inquiryID)
	}

	if inquiry.Status == model.InquiryStatusAnswered {
		return inquiry, nil
	}

	now := time.Now()
	if err := s.inquiryRepo.MarkAnswered(ctx, inquiryID, now); err != nil {
		return nil, fmt.Errorf("問い合わせの更新に失敗しました: %w", err)
	}

	inquiry.Status = model.InquiryStatusAnswered
	inquiry.AnsweredAt = &now

	if s.audit != nil {
		s.audit.Record(ctx, actorID, actorName, model.ActionInquiryAnswer, "inquiry", inquiryID, "")
	}

	return inquiry, nil
}
