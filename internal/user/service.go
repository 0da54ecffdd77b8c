// Package user はユーザー管理のドメインロジックを提供する。
package user

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/kurumart/internal/auth"
	"github.com/hitoshi/kurumart/internal/model"
	"github.com/hitoshi/kurumart/internal/repository"
)

// FavoriteDeleter はお気に入りの一括削除インターフェース。
type FavoriteDeleter interface {
	DeleteByUserID(ctx context.Context, userID string) error
}

// AuditRecorder は管理操作の監査ログ記録インターフェース。
type AuditRecorder interface {
	Record(ctx context.Context, actorID, actorName, action, entityType, entityID, detail string)
}

// Service はユーザー管理のサービス層。
// 会員登録、認証情報の検証、退会、管理者によるアカウント操作を提供する。
type Service struct {
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	favDeleter  FavoriteDeleter
	audit       AuditRecorder
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	favDeleter FavoriteDeleter,
	audit AuditRecorder,
) *Service {
	return &Service{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		favDeleter:  favDeleter,
		audit:       audit,
	}
}

// Register は新規ユーザーを登録する。
// メールアドレスは小文字に正規化し、重複する場合はEmailTakenErrorを返す。
// パスワードはbcryptでハッシュ化して保存する。
func (s *Service) Register(ctx context.Context, email, name, password string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	name = strings.TrimSpace(name)

	if _, err := mail.ParseAddress(email); err != nil {
		return nil, model.NewValidationError("メールアドレスの形式が正しくありません。")
	}
	if name == "" {
		return nil, model.NewValidationError("名前を入力してください。")
	}
	if len(password) < 8 {
		return nil, model.NewValidationError("パスワードは8文字以上で入力してください。")
	}

	existing, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの検索に失敗しました: %w", err)
	}
	if existing != nil {
		return nil, model.NewEmailTakenError()
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("パスワードのハッシュ化に失敗しました: %w", err)
	}

	now := time.Now()
	user := &model.User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		Role:         model.RoleUser,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("ユーザーの作成に失敗しました: %w", err)
	}

	slog.Info("user registered",
		slog.String("user_id", user.ID),
	)

	return user, nil
}

// Authenticate はメールアドレスとパスワードを検証し、一致するユーザーを返す。
// ユーザー未存在・無効化済み・パスワード不一致のいずれも同一の
// InvalidCredentialsErrorを返す（存在の有無を外部に漏らさない）。
func (s *Service) Authenticate(ctx context.Context, email, password string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの検索に失敗しました: %w", err)
	}
	if user == nil || !user.IsActive {
		return nil, model.NewInvalidCredentialsError()
	}

	if !auth.ComparePassword(user.PasswordHash, password) {
		return nil, model.NewInvalidCredentialsError()
	}

	return user, nil
}

// Withdraw はユーザーの退会処理を実行する。
// 削除順序: favorites → sessions → user（purchases, inquiriesは記録として残す）。
func (s *Service) Withdraw(ctx context.Context, userID string) error {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return model.NewUserNotFoundError()
	}

	slog.Info("退会処理を開始します",
		slog.String("user_id", userID),
	)

	// 1. お気に入りを削除
	if s.favDeleter != nil {
		if err := s.favDeleter.DeleteByUserID(ctx, userID); err != nil {
			return fmt.Errorf("お気に入りの削除に失敗しました: %w", err)
		}
	}

	// 2. セッションを削除
	if s.sessionRepo != nil {
		if err := s.sessionRepo.DeleteByUserID(ctx, userID); err != nil {
			return fmt.Errorf("セッションの削除に失敗しました: %w", err)
		}
	}

	// 3. ユーザーを削除
	if err := s.userRepo.DeleteByID(ctx, userID); err != nil {
		return fmt.Errorf("ユーザーの削除に失敗しました: %w", err)
	}

	slog.Info("退会処理が完了しました",
		slog.String("user_id", userID),
	)

	return nil
}

// List は全ユーザーを作成日時降順で返す。管理者用。
func (s *Service) List(ctx context.Context, limit, offset int) ([]*model.User, error) {
	users, err := s.userRepo.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("ユーザー一覧の取得に失敗しました: %w", err)
	}
	return users, nil
}

// SetActive はユーザーの有効フラグを変更する。管理者用。
// 無効化されたユーザーは次回のリクエストで強制ログアウトされる。
func (s *Service) SetActive(ctx context.Context, actorID, actorName, userID string, active bool) error {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return model.NewUserNotFoundError()
	}

	if err := s.userRepo.UpdateActive(ctx, userID, active); err != nil {
		return fmt.Errorf("ユーザー状態の更新に失敗しました: %w", err)
	}

	// 無効化時は既存セッションを即座に失効させる
	if !active && s.sessionRepo != nil {
		if err := s.sessionRepo.DeleteByUserID(ctx, userID); err != nil {
			slog.Error("failed to revoke sessions of deactivated user",
				slog.String("user_id", userID),
				slog.String("error", err.Error()),
			)
		}
	}

	if s.audit != nil {
		action := model.ActionUserDeactivate
		if active {
			action = model.ActionUserActivate
		}
		s.audit.Record(ctx, actorID, actorName, action, "user", userID, "")
	}

	slog.Info("user active flag updated",
		slog.String("user_id", userID),
		slog.Bool("active", active),
	)

	return nil
}
