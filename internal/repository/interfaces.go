// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/hitoshi/kurumart/internal/model"
)

// ErrCarNotAvailable は成約処理の時点で車両が既に成約済み、
// または存在しないことを表す。
var ErrCarNotAvailable = errors.New("car is not available for sale")

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Create はユーザーを作成する。
	Create(ctx context.Context, user *model.User) error

	// UpdateActive はユーザーの有効フラグを更新する。
	UpdateActive(ctx context.Context, id string, isActive bool) error

	// List は全ユーザーを作成日時降順で返す。
	List(ctx context.Context, limit, offset int) ([]*model.User, error)

	// DeleteByID は指定IDのユーザーを削除する。
	// 関連するsessions、favoritesはCASCADE削除される。
	DeleteByID(ctx context.Context, id string) error
}

// SessionRepository はセッションデータの永続化インターフェース。
// authパッケージのSessionStoreインターフェースを満たす。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// Update はセッションの可変フィールド（user_id, role, csrf_token, login_at, expires_at）を更新する。
	Update(ctx context.Context, session *model.Session) error
	// DeleteByID は指定IDのセッションを削除する。存在しない場合もエラーにしない。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
	// DeleteExpired は期限切れセッションを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context) (int64, error)
}

// CarRepository は車両データの永続化インターフェース。
type CarRepository interface {
	// FindByID は指定IDの車両を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Car, error)

	// List は絞り込み条件に一致する車両の一覧を作成日時降順で返す。
	List(ctx context.Context, filter model.CarFilter) ([]*model.Car, error)

	// Create は車両を作成する。
	Create(ctx context.Context, car *model.Car) error

	// Update は車両情報を更新する。
	Update(ctx context.Context, car *model.Car) error

	// MarkSold は車両を成約済みにする。
	MarkSold(ctx context.Context, id string) error

	// DeleteByID は指定IDの車両を削除する。
	DeleteByID(ctx context.Context, id string) error
}

// FavoriteRepository はお気に入りデータの永続化インターフェース。
type FavoriteRepository interface {
	// Create はお気に入りを登録する。
	Create(ctx context.Context, fav *model.Favorite) error

	// Exists はユーザーと車両の組み合わせが登録済みかどうかを返す。
	Exists(ctx context.Context, userID, carID string) (bool, error)

	// ListByUserID はユーザーのお気に入り車両一覧を返す。
	ListByUserID(ctx context.Context, userID string) ([]*model.Car, error)

	// Delete はお気に入りを解除する。
	Delete(ctx context.Context, userID, carID string) error

	// DeleteByUserID はユーザーの全お気に入りを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
}

// PurchaseRepository は成約記録の永続化インターフェース。
type PurchaseRepository interface {
	// RecordSale は車両の成約済み化と成約記録の作成を同一トランザクションで行う。
	// 車両が既に成約済み、または存在しない場合はErrCarNotAvailableを返し、
	// どちらの書き込みも行わない。
	RecordSale(ctx context.Context, purchase *model.Purchase) error

	// ListByUserID はユーザーの購入履歴を成約日時降順で返す。
	ListByUserID(ctx context.Context, userID string) ([]*model.Purchase, error)
}

// InquiryRepository は問い合わせデータの永続化インターフェース。
type InquiryRepository interface {
	// Create は問い合わせを作成する。
	Create(ctx context.Context, inquiry *model.Inquiry) error

	// FindByID は指定IDの問い合わせを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Inquiry, error)

	// ListByStatus は指定ステータスの問い合わせ一覧を作成日時降順で返す。
	// statusが空の場合は全件を返す。
	ListByStatus(ctx context.Context, status model.InquiryStatus, limit, offset int) ([]*model.Inquiry, error)

	// MarkAnswered は問い合わせを回答済みにする。
	MarkAnswered(ctx context.Context, id string, answeredAt time.Time) error
}

// LoanQuoteRepository はローン試算結果の永続化インターフェース。
// 計算自体はloanパッケージの純粋関数で行い、保存は明示的な操作として分離する。
type LoanQuoteRepository interface {
	// Create は試算結果を保存する。
	Create(ctx context.Context, quote *model.SavedLoanQuote) error

	// ListByUserID はユーザーの保存済み試算一覧を作成日時降順で返す。
	ListByUserID(ctx context.Context, userID string) ([]*model.SavedLoanQuote, error)
}

// ActivityLogRepository は監査ログの永続化インターフェース。
type ActivityLogRepository interface {
	// Create は監査ログを追記する。
	Create(ctx context.Context, entry *model.ActivityLog) error

	// List は監査ログを作成日時降順で返す。
	List(ctx context.Context, limit, offset int) ([]*model.ActivityLog, error)

	// DeleteOlderThan は指定日時より古い監査ログを削除し、削除件数を返す。
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
