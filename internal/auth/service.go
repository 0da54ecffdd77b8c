// Package auth はセッション管理・認可・CSRF対策のコアロジックを提供する。
//
// セッションはグローバル状態として持たず、すべての操作に明示的に渡される。
// セッションレコードの取得と保存はハンドラー層（トランスポート）の責務であり、
// このパッケージは論理的なセッション状態の遷移のみを扱う。
//
// セッションの状態遷移:
//
//	Anonymous --Login(検証済み認証情報)--> Authenticated（セッションID更新）
//	Authenticated --Logout--> Anonymous
//	Authenticated --アイドルタイムアウト--> Anonymous
//	Authenticated --ユーザー削除/無効化検出--> Anonymous
package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/kurumart/internal/model"
)

// SessionStore はセッションレコードの永続化インターフェース。
// repository.SessionRepositoryの部分集合として定義する。
type SessionStore interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れ・未存在の場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// Update はセッションの可変フィールドを更新する。
	Update(ctx context.Context, session *model.Session) error
	// DeleteByID は指定IDのセッションを削除する。存在しない場合もエラーにしない。
	DeleteByID(ctx context.Context, id string) error
}

// UserLookup はユーザーレコードの検索インターフェース。
// 外部依存（ユーザーストア）の唯一の接点であり、タイムアウトやリトライは
// 呼び出し側のコンテキストと実装側の責務とする。
type UserLookup interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	// SessionMaxAge はセッションレコードの絶対有効期間（秒）。
	SessionMaxAge int
	// IdleTimeout はスライディング方式のアイドルタイムアウト。
	IdleTimeout time.Duration
}

// Service はセッション管理と認可のコアロジックを提供する。
// 同一セッションIDへの変更操作は内部のキー付きロックで直列化される。
type Service struct {
	store SessionStore
	users UserLookup
	cfg   ServiceConfig
	locks *sessionLocks
}

// NewService はServiceを生成する。
func NewService(store SessionStore, users UserLookup, cfg ServiceConfig) *Service {
	return &Service{
		store: store,
		users: users,
		cfg:   cfg,
		locks: newSessionLocks(),
	}
}

// StartSession は匿名セッションを新規作成して永続化する。
// CSRFトークンはこの時点で発行され、ログインによる更新まで安定する。
func (s *Service) StartSession(ctx context.Context) (*model.Session, error) {
	id, err := generateToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}
	csrf, err := generateToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate CSRF token: %w", err)
	}

	now := time.Now()
	session := &model.Session{
		ID:        id,
		CSRFToken: csrf,
		ExpiresAt: now.Add(time.Duration(s.cfg.SessionMaxAge) * time.Second),
		CreatedAt: now,
	}

	if err := s.store.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

// IsAuthenticated はセッションが非空のユーザーIDを持つかどうかを返す。副作用なし。
func (s *Service) IsAuthenticated(session *model.Session) bool {
	return session.IsAuthenticated()
}

// CurrentPrincipal はセッションから現在のプリンシパルを導出する。
// 未認証の場合はゲストを返す。認証済みの場合はユーザーレコードを検索し、
// レコードが見つからない・無効化されている場合はセッションを強制的に
// ログアウトさせてゲストを返す（古くなったセッションの自己修復）。
func (s *Service) CurrentPrincipal(ctx context.Context, session *model.Session) (*Principal, error) {
	if !session.IsAuthenticated() {
		return Guest(), nil
	}

	user, err := s.users.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if user == nil || !user.IsActive {
		// ログイン後に削除・無効化されたユーザー。古い身元を返さず強制ログアウトする。
		slog.Info("stale session detected, forcing logout",
			slog.String("session_id", session.ID),
			slog.String("user_id", session.UserID),
		)
		if err := s.Logout(ctx, session); err != nil {
			return nil, fmt.Errorf("failed to clear stale session: %w", err)
		}
		return Guest(), nil
	}

	return &Principal{
		ID:          user.ID,
		Role:        user.Role,
		DisplayName: user.Name,
	}, nil
}

// Login は認証情報の検証済みユーザーに対してセッションを認証状態へ遷移させる。
// セッション固定化攻撃を防ぐため、セッションIDとCSRFトークンを必ず更新し、
// 旧セッションIDを無効化する。更新後の新しいセッションを返す。
//
// 認証情報の検証（パスワード照合）はこのパッケージのComparePasswordと
// ユーザーストアの組み合わせで事前に行われている前提。userIDが空、または
// ロールがuser/admin以外の呼び出しは検証を経ていない契約違反とみなし、
// ErrInvalidCredentialsを返す。
func (s *Service) Login(ctx context.Context, session *model.Session, userID string, role model.Role) (*model.Session, error) {
	if userID == "" || (role != model.RoleUser && role != model.RoleAdmin) {
		return nil, ErrInvalidCredentials
	}

	unlock := s.locks.acquire(session.ID)
	defer unlock()

	newID, err := generateToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}
	newCSRF, err := generateToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate CSRF token: %w", err)
	}

	now := time.Now()
	rotated := &model.Session{
		ID:        newID,
		UserID:    userID,
		Role:      role,
		CSRFToken: newCSRF,
		LoginAt:   now,
		ExpiresAt: now.Add(time.Duration(s.cfg.SessionMaxAge) * time.Second),
		CreatedAt: now,
	}

	if err := s.store.Create(ctx, rotated); err != nil {
		return nil, fmt.Errorf("failed to save rotated session: %w", err)
	}

	// 旧セッションIDの無効化。新セッション作成後に行い、削除に失敗しても認証は成立させる。
	if session.ID != "" {
		if err := s.store.DeleteByID(ctx, session.ID); err != nil {
			slog.Error("failed to invalidate previous session",
				slog.String("session_id", session.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	slog.Info("user logged in",
		slog.String("user_id", userID),
		slog.String("role", string(role)),
	)

	return rotated, nil
}

// Logout はセッションの全フィールドをクリアし、セッションIDを無効化する。
// 冪等: ログアウト済みのセッションに対して呼んでもエラーにならない。
func (s *Service) Logout(ctx context.Context, session *model.Session) error {
	if session.ID == "" {
		// 既にクリア済み
		return nil
	}

	unlock := s.locks.acquire(session.ID)
	defer unlock()

	if err := s.store.DeleteByID(ctx, session.ID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	*session = model.Session{}
	return nil
}

// RequireRole はセッションのプリンシパルがrequiredロールの権限を持つことを検証する。
// 未認証の場合はErrUnauthenticated、権限不足の場合はErrForbiddenを返す。
// adminはuserの全権限を包含する。
func (s *Service) RequireRole(session *model.Session, required model.Role) error {
	if !session.IsAuthenticated() {
		return ErrUnauthenticated
	}
	if !session.Role.Meets(required) {
		return ErrForbidden
	}
	return nil
}

// IssueCSRFToken はセッションのCSRFトークンを返す。
// 未発行の場合は256ビットの暗号論的乱数トークンを生成して永続化し、
// 以降はセッションが更新されるまで同一のトークンを返す。
func (s *Service) IssueCSRFToken(ctx context.Context, session *model.Session) (string, error) {
	unlock := s.locks.acquire(session.ID)
	defer unlock()

	// 未発行の判定はロック下で行う。並行する初回発行同士が
	// 別々のトークンを生成・永続化するのを防ぐ。
	if session.CSRFToken != "" {
		return session.CSRFToken, nil
	}

	token, err := generateToken()
	if err != nil {
		return "", fmt.Errorf("failed to generate CSRF token: %w", err)
	}

	session.CSRFToken = token
	if err := s.store.Update(ctx, session); err != nil {
		return "", fmt.Errorf("failed to save CSRF token: %w", err)
	}

	return token, nil
}

// ValidateCSRFToken は提出されたトークンをセッションのトークンと定数時間で比較する。
// 不一致・セッション側トークン未発行・提出トークン空のいずれもfalseを返し、
// エラーは返さない（失敗理由を外部に漏らさない）。
func (s *Service) ValidateCSRFToken(session *model.Session, submitted string) bool {
	if session == nil || session.CSRFToken == "" || submitted == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(session.CSRFToken), []byte(submitted)) == 1
}

// CheckSessionTimeout はスライディング方式のアイドルタイムアウトを判定する。
// now - LoginAt が idleThreshold を超えている場合はログアウトさせてtrueを返す。
// 超えていない場合はLoginAtをnowに更新（タッチ）してfalseを返す。
// 未認証セッションは常にfalse。idleThresholdが0以下の場合は
// ServiceConfig.IdleTimeoutを使用する。
func (s *Service) CheckSessionTimeout(ctx context.Context, session *model.Session, now time.Time, idleThreshold time.Duration) (bool, error) {
	if !session.IsAuthenticated() {
		return false, nil
	}

	if idleThreshold <= 0 {
		idleThreshold = s.cfg.IdleTimeout
	}

	if now.Sub(session.LoginAt) > idleThreshold {
		if err := s.Logout(ctx, session); err != nil {
			return false, fmt.Errorf("failed to expire idle session: %w", err)
		}
		return true, nil
	}

	unlock := s.locks.acquire(session.ID)
	defer unlock()

	session.LoginAt = now
	if err := s.store.Update(ctx, session); err != nil {
		return false, fmt.Errorf("failed to touch session: %w", err)
	}
	return false, nil
}

// generateToken は256ビットの暗号論的乱数トークンを16進文字列で生成する。
// セッションIDとCSRFトークンの両方で使用する。
func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
