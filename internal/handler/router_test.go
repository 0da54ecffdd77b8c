package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/kurumart/internal/auth"
	"github.com/hitoshi/kurumart/internal/metrics"
	"github.com/hitoshi/kurumart/internal/middleware"
	"github.com/hitoshi/kurumart/internal/model"
)

// --- ルーター統合テスト用モック ---

// mockSessionBackend はセッションサービスとセッション検索を兼ねるモック。
type mockSessionBackend struct {
	sessions map[string]*model.Session
}

func newMockSessionBackend() *mockSessionBackend {
	return &mockSessionBackend{sessions: make(map[string]*model.Session)}
}

func (m *mockSessionBackend) StartSession(ctx context.Context) (*model.Session, error) {
	session := &model.Session{
		ID:        "anon-session",
		CSRFToken: "anon-csrf",
		ExpiresAt: time.Now().Add(time.Hour),
		CreatedAt: time.Now(),
	}
	m.sessions[session.ID] = session
	return session, nil
}

func (m *mockSessionBackend) CheckSessionTimeout(ctx context.Context, session *model.Session, now time.Time, idleThreshold time.Duration) (bool, error) {
	return false, nil
}

func (m *mockSessionBackend) RequireRole(session *model.Session, required model.Role) error {
	if !session.IsAuthenticated() {
		return auth.ErrUnauthenticated
	}
	if !session.Role.Meets(required) {
		return auth.ErrForbidden
	}
	return nil
}

func (m *mockSessionBackend) FindByID(ctx context.Context, id string) (*model.Session, error) {
	return m.sessions[id], nil
}

// mockCSRFValidator はセッションのトークンと単純比較する。
type mockCSRFValidator struct{}

func (m *mockCSRFValidator) ValidateCSRFToken(session *model.Session, submitted string) bool {
	return session != nil && session.CSRFToken != "" && session.CSRFToken == submitted
}

type mockAuthServiceForRouter struct{}

func (m *mockAuthServiceForRouter) Login(ctx context.Context, session *model.Session, userID string, role model.Role) (*model.Session, error) {
	return &model.Session{ID: "rotated", UserID: userID, Role: role, CSRFToken: "rotated-csrf"}, nil
}
func (m *mockAuthServiceForRouter) Logout(ctx context.Context, session *model.Session) error {
	return nil
}
func (m *mockAuthServiceForRouter) IssueCSRFToken(ctx context.Context, session *model.Session) (string, error) {
	return session.CSRFToken, nil
}
func (m *mockAuthServiceForRouter) CurrentPrincipal(ctx context.Context, session *model.Session) (*auth.Principal, error) {
	if !session.IsAuthenticated() {
		return auth.Guest(), nil
	}
	return &auth.Principal{ID: session.UserID, Role: session.Role, DisplayName: "テストユーザー"}, nil
}

type mockPurchaseServiceForRouter struct{}

func (m *mockPurchaseServiceForRouter) Record(ctx context.Context, actorID, actorName, buyerID, carID string) (*model.Purchase, error) {
	return &model.Purchase{ID: "p-1", UserID: buyerID, CarID: carID}, nil
}
func (m *mockPurchaseServiceForRouter) ListByUser(ctx context.Context, userID string) ([]*model.Purchase, error) {
	return nil, nil
}

func newTestRouter(t *testing.T, backend *mockSessionBackend) http.Handler {
	t.Helper()

	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)

	rl := middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig())
	t.Cleanup(rl.Stop)

	deps := &RouterDeps{
		Logger:            slog.New(slog.NewJSONHandler(io.Discard, nil)),
		SessionService:    backend,
		SessionFinder:     backend,
		SessionConfig:     middleware.SessionConfig{IdleTimeout: 30 * time.Minute, CookieMaxAge: 86400},
		CSRFValidator:     &mockCSRFValidator{},
		RateLimiter:       rl,
		Metrics:           collector,
		MetricsGatherer:   reg,
		CORSAllowedOrigin: "http://localhost:3000",

		AuthService:    &mockAuthServiceForRouter{},
		AccountService: &mockAccountService{},
		UserService:    &mockUserService{},

		CarService: &mockCarService{
			listFn: func(ctx context.Context, filter model.CarFilter) ([]*model.Car, error) {
				return []*model.Car{{ID: "car-1", Make: "トヨタ"}}, nil
			},
		},
		FavoriteService: &mockFavoriteService{},
		InquiryService:  &mockInquiryService{},
		LoanService:     &mockLoanService{},

		UserAdminService:    &mockUserAdminService{},
		InquiryAdminService: &mockInquiryAdminService{},
		PurchaseService:     &mockPurchaseServiceForRouter{},
		AuditService:        &mockAuditService{},
	}

	return NewRouter(deps)
}

// --- テスト ---

// /healthz がセッションなしで200を返すことを検証
func TestRouter_Healthz(t *testing.T) {
	router := newTestRouter(t, newMockSessionBackend())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

// /metrics がPrometheusフォーマットを返すことを検証
func TestRouter_Metrics(t *testing.T) {
	router := newTestRouter(t, newMockSessionBackend())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

// 未ログインで車両一覧が閲覧でき、匿名セッションCookieが発行されることを検証
func TestRouter_AnonymousBrowsing(t *testing.T) {
	router := newTestRouter(t, newMockSessionBackend())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/cars", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var issued bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == "session_id" && c.Value != "" {
			issued = true
		}
	}
	if !issued {
		t.Error("expected anonymous session cookie to be issued")
	}
}

// CSRFトークンなしの書き込みリクエストが403になることを検証
func TestRouter_CSRFRequired(t *testing.T) {
	backend := newMockSessionBackend()
	router := newTestRouter(t, backend)

	body := `{"car_id":"car-1","name":"太郎","email":"taro@example.com","message":"質問"}`
	req := httptest.NewRequest(http.MethodPost, "/api/inquiries", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403 without CSRF token", rec.Code)
	}
}

// 有効なCSRFトークン付きの書き込みリクエストが受け付けられることを検証
func TestRouter_CSRFTokenAccepted(t *testing.T) {
	backend := newMockSessionBackend()
	session := &model.Session{ID: "sess-1", CSRFToken: "valid-csrf", ExpiresAt: time.Now().Add(time.Hour)}
	backend.sessions[session.ID] = session

	router := newTestRouter(t, backend)

	body := `{"car_id":"car-1","name":"太郎","email":"taro@example.com","message":"質問"}`
	req := httptest.NewRequest(http.MethodPost, "/api/inquiries", strings.NewReader(body))
	req.AddCookie(&http.Cookie{Name: "session_id", Value: session.ID})
	req.Header.Set("X-CSRF-Token", "valid-csrf")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Errorf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
}

// ゲストの認証必須ルートが401になることを検証
func TestRouter_RequireAuth(t *testing.T) {
	router := newTestRouter(t, newMockSessionBackend())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/favorites", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401 for guest", rec.Code)
	}
}

// 一般ユーザーの管理者ルートが403になることを検証
func TestRouter_RequireAdmin(t *testing.T) {
	backend := newMockSessionBackend()
	session := &model.Session{
		ID:        "sess-user",
		UserID:    "user-1",
		Role:      model.RoleUser,
		CSRFToken: "user-csrf",
		ExpiresAt: time.Now().Add(time.Hour),
	}
	backend.sessions[session.ID] = session

	router := newTestRouter(t, backend)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/users", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: session.ID})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403 for non-admin", rec.Code)
	}
}

// 管理者が管理者ルートにアクセスできることを検証
func TestRouter_AdminAccess(t *testing.T) {
	backend := newMockSessionBackend()
	session := &model.Session{
		ID:        "sess-admin",
		UserID:    "admin-1",
		Role:      model.RoleAdmin,
		CSRFToken: "admin-csrf",
		ExpiresAt: time.Now().Add(time.Hour),
	}
	backend.sessions[session.ID] = session

	router := newTestRouter(t, backend)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/users", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: session.ID})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 for admin: %s", rec.Code, rec.Body.String())
	}
}
