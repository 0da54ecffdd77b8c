package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/kurumart/internal/auth"
	"github.com/hitoshi/kurumart/internal/model"
)

// --- モック定義 ---

type mockSessionFinder struct {
	findByIDFn func(ctx context.Context, id string) (*model.Session, error)
}

func (m *mockSessionFinder) FindByID(ctx context.Context, id string) (*model.Session, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

type mockSessionService struct {
	startSessionFn func(ctx context.Context) (*model.Session, error)
	checkTimeoutFn func(ctx context.Context, session *model.Session, now time.Time, idleThreshold time.Duration) (bool, error)
	requireRoleFn  func(session *model.Session, required model.Role) error
}

func (m *mockSessionService) StartSession(ctx context.Context) (*model.Session, error) {
	if m.startSessionFn != nil {
		return m.startSessionFn(ctx)
	}
	return &model.Session{ID: "fresh-anonymous", CSRFToken: "fresh-csrf"}, nil
}

func (m *mockSessionService) CheckSessionTimeout(ctx context.Context, session *model.Session, now time.Time, idleThreshold time.Duration) (bool, error) {
	if m.checkTimeoutFn != nil {
		return m.checkTimeoutFn(ctx, session, now, idleThreshold)
	}
	return false, nil
}

func (m *mockSessionService) RequireRole(session *model.Session, required model.Role) error {
	if m.requireRoleFn != nil {
		return m.requireRoleFn(session, required)
	}
	if !session.IsAuthenticated() {
		return auth.ErrUnauthenticated
	}
	if !session.Role.Meets(required) {
		return auth.ErrForbidden
	}
	return nil
}

var _ SessionService = (*mockSessionService)(nil)
var _ SessionFinder = (*mockSessionFinder)(nil)

func testSessionConfig() SessionConfig {
	return SessionConfig{
		IdleTimeout:  30 * time.Minute,
		CookieMaxAge: 86400,
	}
}

// --- テスト ---

func TestSessionMiddleware_ValidCookie_InjectsSession(t *testing.T) {
	finder := &mockSessionFinder{
		findByIDFn: func(ctx context.Context, id string) (*model.Session, error) {
			if id == "valid-session-id" {
				return &model.Session{
					ID:        "valid-session-id",
					UserID:    "user-123",
					Role:      model.RoleUser,
					LoginAt:   time.Now(),
					ExpiresAt: time.Now().Add(1 * time.Hour),
				}, nil
			}
			return nil, nil
		},
	}

	mw := NewSessionMiddleware(&mockSessionService{}, finder, testSessionConfig())

	var captured *model.Session
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, err := SessionFromContext(r.Context())
		if err != nil {
			t.Errorf("expected no error, got %v", err)
		}
		captured = session
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/test", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "valid-session-id"})
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if captured == nil || captured.UserID != "user-123" {
		t.Errorf("captured session = %+v, want UserID user-123", captured)
	}
}

func TestSessionMiddleware_NoCookie_StartsAnonymousSession(t *testing.T) {
	finder := &mockSessionFinder{}
	svc := &mockSessionService{
		startSessionFn: func(ctx context.Context) (*model.Session, error) {
			return &model.Session{ID: "new-anonymous", CSRFToken: "csrf-token"}, nil
		},
	}

	mw := NewSessionMiddleware(svc, finder, testSessionConfig())

	var captured *model.Session
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured, _ = SessionFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/cars", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if captured == nil || captured.ID != "new-anonymous" {
		t.Errorf("captured session = %+v, want ID new-anonymous", captured)
	}
	if captured != nil && captured.IsAuthenticated() {
		t.Error("fresh session should be anonymous")
	}

	// 新規セッションのCookieが設定されること
	cookies := resp.Cookies()
	found := false
	for _, c := range cookies {
		if c.Name == "session_id" && c.Value == "new-anonymous" {
			found = true
			if !c.HttpOnly {
				t.Error("session cookie should be HttpOnly")
			}
		}
	}
	if !found {
		t.Error("session cookie should be set for fresh session")
	}
}

func TestSessionMiddleware_IdleTimeout_ReplacesWithAnonymous(t *testing.T) {
	finder := &mockSessionFinder{
		findByIDFn: func(ctx context.Context, id string) (*model.Session, error) {
			return &model.Session{
				ID:        "stale-session",
				UserID:    "user-idle",
				Role:      model.RoleUser,
				LoginAt:   time.Now().Add(-2 * time.Hour),
				ExpiresAt: time.Now().Add(1 * time.Hour),
			}, nil
		},
	}
	svc := &mockSessionService{
		checkTimeoutFn: func(ctx context.Context, session *model.Session, now time.Time, idleThreshold time.Duration) (bool, error) {
			return true, nil
		},
		startSessionFn: func(ctx context.Context) (*model.Session, error) {
			return &model.Session{ID: "replacement", CSRFToken: "csrf"}, nil
		},
	}

	mw := NewSessionMiddleware(svc, finder, testSessionConfig())

	var captured *model.Session
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured, _ = SessionFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/test", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "stale-session"})
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if captured == nil || captured.ID != "replacement" {
		t.Errorf("captured session = %+v, want replacement anonymous session", captured)
	}
	if captured != nil && captured.IsAuthenticated() {
		t.Error("session after idle timeout should be anonymous")
	}
}

func TestSessionMiddleware_FinderError_StartsAnonymousSession(t *testing.T) {
	finder := &mockSessionFinder{
		findByIDFn: func(ctx context.Context, id string) (*model.Session, error) {
			return nil, context.DeadlineExceeded
		},
	}

	mw := NewSessionMiddleware(&mockSessionService{}, finder, testSessionConfig())

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, err := SessionFromContext(r.Context())
		if err != nil {
			t.Errorf("expected session in context, got error: %v", err)
		}
		if session.IsAuthenticated() {
			t.Error("session should be anonymous after finder error")
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/test", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "some-session"})
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
}

func TestRequireAuthMiddleware_Authenticated_Passes(t *testing.T) {
	mw := NewRequireAuthMiddleware(&mockSessionService{})

	handlerCalled := false
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
		w.WriteHeader(http.StatusOK)
	}))

	session := &model.Session{ID: "s1", UserID: "user-1", Role: model.RoleUser}
	req := httptest.NewRequest(http.MethodGet, "/api/favorites", nil)
	req = req.WithContext(ContextWithSession(req.Context(), session))
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if !handlerCalled {
		t.Error("handler should have been called")
	}
}

func TestRequireAuthMiddleware_Guest_Returns401(t *testing.T) {
	mw := NewRequireAuthMiddleware(&mockSessionService{})

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	session := &model.Session{ID: "s-anon"}
	req := httptest.NewRequest(http.MethodGet, "/api/favorites", nil)
	req = req.WithContext(ContextWithSession(req.Context(), session))
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}
}

func TestRequireAuthMiddleware_NoSessionInContext_Returns401(t *testing.T) {
	mw := NewRequireAuthMiddleware(&mockSessionService{})

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/favorites", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}
}

func TestRequireAdminMiddleware_RoleMatrix(t *testing.T) {
	tests := []struct {
		name       string
		session    *model.Session
		wantStatus int
	}{
		{
			name:       "管理者は通過する",
			session:    &model.Session{ID: "s1", UserID: "admin-1", Role: model.RoleAdmin},
			wantStatus: http.StatusOK,
		},
		{
			name:       "一般ユーザーは403",
			session:    &model.Session{ID: "s2", UserID: "user-1", Role: model.RoleUser},
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "匿名は401",
			session:    &model.Session{ID: "s3"},
			wantStatus: http.StatusUnauthorized,
		},
	}

	mw := NewRequireAdminMiddleware(&mockSessionService{})

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/admin/users", nil)
			req = req.WithContext(ContextWithSession(req.Context(), tt.session))
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			if w.Result().StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Result().StatusCode, tt.wantStatus)
			}
		})
	}
}

func TestSessionFromContext_NoValue_ReturnsError(t *testing.T) {
	ctx := context.Background()
	_, err := SessionFromContext(ctx)
	if err == nil {
		t.Error("expected error for missing session in context")
	}
}

func TestSessionFromContext_ValidValue_ReturnsSession(t *testing.T) {
	session := &model.Session{ID: "ctx-session", UserID: "user-456"}
	ctx := ContextWithSession(context.Background(), session)

	got, err := SessionFromContext(ctx)
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if got.ID != "ctx-session" {
		t.Errorf("session ID = %q, want %q", got.ID, "ctx-session")
	}
}
