// Package model はドメインモデルを定義する。
package model

import "time"

// Role はユーザーの権限ロールを表す閉じた列挙型。
// 文字列比較の分散を避け、権限判定はauthパッケージのRequireRoleに集約する。
type Role string

const (
	// RoleGuest は未認証の訪問者を表す。
	RoleGuest Role = "guest"
	// RoleUser は登録済みの一般ユーザーを表す。
	RoleUser Role = "user"
	// RoleAdmin は管理者を表す。adminはuserの全権限を包含する。
	RoleAdmin Role = "admin"
)

// Valid はロールが定義済みの値かどうかを返す。
func (r Role) Valid() bool {
	switch r {
	case RoleGuest, RoleUser, RoleAdmin:
		return true
	default:
		return false
	}
}

// Meets は自身のロールがrequiredの権限要求を満たすかどうかを返す。
// adminはuserの権限を包含するが、逆は成立しない。
func (r Role) Meets(required Role) bool {
	switch required {
	case RoleGuest:
		return true
	case RoleUser:
		return r == RoleUser || r == RoleAdmin
	case RoleAdmin:
		return r == RoleAdmin
	default:
		return false
	}
}

// User はサービス利用ユーザーを表す。
// PasswordHashはbcryptハッシュを保持し、APIレスポンスには決して含めない。
type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	Role         Role
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Session はユーザーのログインセッションを表す。
// UserIDが空文字列の場合は匿名（未ログイン）セッション。
// UserIDが設定されている場合、Roleは必ず非空でなければならない。
// CSRFTokenはセッション生成時に一度だけ発行され、ログインによる
// セッションID更新（固定化攻撃対策）時にのみ再生成される。
type Session struct {
	ID        string
	UserID    string
	Role      Role
	CSRFToken string
	LoginAt   time.Time
	ExpiresAt time.Time
	CreatedAt time.Time
}

// IsAuthenticated はセッションが認証済みかどうかを返す。
func (s *Session) IsAuthenticated() bool {
	return s != nil && s.UserID != ""
}
