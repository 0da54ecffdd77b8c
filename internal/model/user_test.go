package model

import "testing"

// ロールの包含関係の検証: adminはuserを包含し、逆は成立しない
func TestRole_Meets(t *testing.T) {
	cases := []struct {
		name     string
		role     Role
		required Role
		want     bool
	}{
		{"adminはadminを満たす", RoleAdmin, RoleAdmin, true},
		{"adminはuserを満たす", RoleAdmin, RoleUser, true},
		{"adminはguestを満たす", RoleAdmin, RoleGuest, true},
		{"userはuserを満たす", RoleUser, RoleUser, true},
		{"userはadminを満たさない", RoleUser, RoleAdmin, false},
		{"userはguestを満たす", RoleUser, RoleGuest, true},
		{"guestはuserを満たさない", RoleGuest, RoleUser, false},
		{"guestはadminを満たさない", RoleGuest, RoleAdmin, false},
		{"未定義の要求ロールは常にfalse", RoleAdmin, Role("owner"), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.role.Meets(tc.required); got != tc.want {
				t.Errorf("%s.Meets(%s) = %v, want %v", tc.role, tc.required, got, tc.want)
			}
		})
	}
}

// Role.Validの検証
func TestRole_Valid(t *testing.T) {
	for _, r := range []Role{RoleGuest, RoleUser, RoleAdmin} {
		if !r.Valid() {
			t.Errorf("%s must be valid", r)
		}
	}
	for _, r := range []Role{"", "superuser", "ADMIN"} {
		if Role(r).Valid() {
			t.Errorf("%q must be invalid", r)
		}
	}
}

// 匿名セッションと認証済みセッションの判定検証
func TestSession_IsAuthenticated(t *testing.T) {
	var nilSession *Session
	if nilSession.IsAuthenticated() {
		t.Error("nil session must not be authenticated")
	}
	if (&Session{ID: "s1"}).IsAuthenticated() {
		t.Error("anonymous session must not be authenticated")
	}
	if !(&Session{ID: "s1", UserID: "u1", Role: RoleUser}).IsAuthenticated() {
		t.Error("session with user ID must be authenticated")
	}
}
