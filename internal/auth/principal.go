package auth

import "github.com/hitoshi/kurumart/internal/model"

// Principal はリクエスト処理中の認証済み主体を表す。
// セッション状態とユーザーレコードから毎リクエスト導出される読み取り専用のビューであり、
// それ自体は永続化されない。
type Principal struct {
	// ID はユーザー識別子。ゲストの場合は空。
	ID string
	// Role はプリンシパルのロール。ゲスト以外は必ずuserまたはadmin。
	Role model.Role
	// DisplayName は表示名。認証済みの場合は空にならない。
	DisplayName string
}

// Guest は未認証のゲストプリンシパルを返す。
func Guest() *Principal {
	return &Principal{Role: model.RoleGuest}
}

// IsGuest はプリンシパルがゲストかどうかを返す。
func (p *Principal) IsGuest() bool {
	return p == nil || p.ID == ""
}
