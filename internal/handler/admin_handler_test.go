package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/kurumart/internal/model"
)

// --- モック ---

type mockUserAdminService struct {
	listFn      func(ctx context.Context, limit, offset int) ([]*model.User, error)
	setActiveFn func(ctx context.Context, actorID, actorName, userID string, active bool) error
}

func (m *mockUserAdminService) List(ctx context.Context, limit, offset int) ([]*model.User, error) {
	if m.listFn != nil {
		return m.listFn(ctx, limit, offset)
	}
	return nil, nil
}
func (m *mockUserAdminService) SetActive(ctx context.Context, actorID, actorName, userID string, active bool) error {
	if m.setActiveFn != nil {
		return m.setActiveFn(ctx, actorID, actorName, userID, active)
	}
	return nil
}

type mockInquiryAdminService struct {
	listFn         func(ctx context.Context, status model.InquiryStatus, limit, offset int) ([]*model.Inquiry, error)
	markAnsweredFn func(ctx context.Context, actorID, actorName, inquiryID string) (*model.Inquiry, error)
}

func (m *mockInquiryAdminService) List(ctx context.Context, status model.InquiryStatus, limit, offset int) ([]*model.Inquiry, error) {
	if m.listFn != nil {
		return m.listFn(ctx, status, limit, offset)
	}
	return nil, nil
}
func (m *mockInquiryAdminService) MarkAnswered(ctx context.Context, actorID, actorName, inquiryID string) (*model.Inquiry, error) {
	if m.markAnsweredFn != nil {
		return m.markAnsweredFn(ctx, actorID, actorName, inquiryID)
	}
	return &model.Inquiry{ID: inquiryID, Status: model.InquiryStatusAnswered}, nil
}

type mockPurchaseRecorder struct {
	recordFn func(ctx context.Context, actorID, actorName, buyerID, carID string) (*model.Purchase, error)
}

func (m *mockPurchaseRecorder) Record(ctx context.Context, actorID, actorName, buyerID, carID string) (*model.Purchase, error) {
	if m.recordFn != nil {
		return m.recordFn(ctx, actorID, actorName, buyerID, carID)
	}
	return &model.Purchase{ID: "p-1", UserID: buyerID, CarID: carID}, nil
}

type mockAuditService struct {
	listFn func(ctx context.Context, limit, offset int) ([]*model.ActivityLog, error)
}

func (m *mockAuditService) List(ctx context.Context, limit, offset int) ([]*model.ActivityLog, error) {
	if m.listFn != nil {
		return m.listFn(ctx, limit, offset)
	}
	return nil, nil
}

func newTestAdminHandler(
	users *mockUserAdminService,
	inquiries *mockInquiryAdminService,
	purchases *mockPurchaseRecorder,
	audit *mockAuditService,
) *AdminHandler {
	return NewAdminHandler(users, inquiries, purchases, audit, adminResolver())
}

// --- テスト ---

// GET /api/admin/users がページネーション付きで一覧を返すことを検証
func TestAdminHandler_ListUsers(t *testing.T) {
	var gotLimit, gotOffset int
	users := &mockUserAdminService{
		listFn: func(ctx context.Context, limit, offset int) ([]*model.User, error) {
			gotLimit = limit
			gotOffset = offset
			return []*model.User{
				{ID: "user-1", Email: "taro@example.com", Name: "太郎", Role: model.RoleUser, IsActive: true},
			}, nil
		},
	}

	h := newTestAdminHandler(users, &mockInquiryAdminService{}, &mockPurchaseRecorder{}, &mockAuditService{})

	rec := httptest.NewRecorder()
	h.ListUsers(rec, adminRequest(http.MethodGet, "/api/admin/users?limit=25&offset=50", ""))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if gotLimit != 25 || gotOffset != 50 {
		t.Errorf("pagination = (%d, %d), want (25, 50)", gotLimit, gotOffset)
	}

	var resp map[string][]adminUserResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp["users"]) != 1 || resp["users"][0].Email != "taro@example.com" {
		t.Errorf("users = %v, want one entry", resp["users"])
	}
}

// PUT /api/admin/users/{id}/active が操作者情報付きでフラグを変更することを検証
func TestAdminHandler_SetUserActive(t *testing.T) {
	var gotActorID, gotUserID string
	var gotActive bool
	users := &mockUserAdminService{
		setActiveFn: func(ctx context.Context, actorID, actorName, userID string, active bool) error {
			gotActorID = actorID
			gotUserID = userID
			gotActive = active
			return nil
		},
	}

	h := newTestAdminHandler(users, &mockInquiryAdminService{}, &mockPurchaseRecorder{}, &mockAuditService{})

	r := chi.NewRouter()
	r.Put("/api/admin/users/{id}/active", h.SetUserActive)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, adminRequest(http.MethodPut, "/api/admin/users/user-9/active", `{"active":false}`))

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204: %s", rec.Code, rec.Body.String())
	}
	if gotActorID != "admin-1" || gotUserID != "user-9" || gotActive {
		t.Errorf("SetActive(actor=%q, user=%q, active=%v), want admin-1/user-9/false",
			gotActorID, gotUserID, gotActive)
	}
}

// GET /api/admin/inquiries がステータス絞り込みを渡すことを検証
func TestAdminHandler_ListInquiries(t *testing.T) {
	var gotStatus model.InquiryStatus
	inquiries := &mockInquiryAdminService{
		listFn: func(ctx context.Context, status model.InquiryStatus, limit, offset int) ([]*model.Inquiry, error) {
			gotStatus = status
			return []*model.Inquiry{{ID: "inq-1", Status: status}}, nil
		},
	}

	h := newTestAdminHandler(&mockUserAdminService{}, inquiries, &mockPurchaseRecorder{}, &mockAuditService{})

	rec := httptest.NewRecorder()
	h.ListInquiries(rec, adminRequest(http.MethodGet, "/api/admin/inquiries?status=open", ""))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if gotStatus != model.InquiryStatusOpen {
		t.Errorf("status = %q, want open", gotStatus)
	}
}

// POST /api/admin/inquiries/{id}/answer が回答済みの問い合わせを返すことを検証
func TestAdminHandler_AnswerInquiry(t *testing.T) {
	h := newTestAdminHandler(&mockUserAdminService{}, &mockInquiryAdminService{}, &mockPurchaseRecorder{}, &mockAuditService{})

	r := chi.NewRouter()
	r.Post("/api/admin/inquiries/{id}/answer", h.AnswerInquiry)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, adminRequest(http.MethodPost, "/api/admin/inquiries/inq-1/answer", ""))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp inquiryResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.ID != "inq-1" || resp.Status != string(model.InquiryStatusAnswered) {
		t.Errorf("response = %+v, want answered inq-1", resp)
	}
}

// POST /api/admin/purchases が成約を記録することを検証
func TestAdminHandler_RecordPurchase(t *testing.T) {
	var gotBuyerID, gotCarID string
	purchases := &mockPurchaseRecorder{
		recordFn: func(ctx context.Context, actorID, actorName, buyerID, carID string) (*model.Purchase, error) {
			gotBuyerID = buyerID
			gotCarID = carID
			return &model.Purchase{ID: "p-1", UserID: buyerID, CarID: carID, PriceAtSale: 1980000}, nil
		},
	}

	h := newTestAdminHandler(&mockUserAdminService{}, &mockInquiryAdminService{}, purchases, &mockAuditService{})

	rec := httptest.NewRecorder()
	h.RecordPurchase(rec, adminRequest(http.MethodPost, "/api/admin/purchases",
		`{"user_id":"user-1","car_id":"car-1"}`))

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
	if gotBuyerID != "user-1" || gotCarID != "car-1" {
		t.Errorf("recorded buyer=%q car=%q, want user-1/car-1", gotBuyerID, gotCarID)
	}

	var resp adminPurchaseResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.PriceAtSale != 1980000 {
		t.Errorf("price_at_sale = %v, want 1980000", resp.PriceAtSale)
	}
}

// 成約済み車両の成約記録が409になることを検証
func TestAdminHandler_RecordPurchase_AlreadySold(t *testing.T) {
	purchases := &mockPurchaseRecorder{
		recordFn: func(ctx context.Context, actorID, actorName, buyerID, carID string) (*model.Purchase, error) {
			return nil, model.NewCarAlreadySoldError()
		},
	}

	h := newTestAdminHandler(&mockUserAdminService{}, &mockInquiryAdminService{}, purchases, &mockAuditService{})

	rec := httptest.NewRecorder()
	h.RecordPurchase(rec, adminRequest(http.MethodPost, "/api/admin/purchases",
		`{"user_id":"user-1","car_id":"car-1"}`))

	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
}

// GET /api/admin/activity が監査ログを返すことを検証
func TestAdminHandler_ListActivityLogs(t *testing.T) {
	audit := &mockAuditService{
		listFn: func(ctx context.Context, limit, offset int) ([]*model.ActivityLog, error) {
			return []*model.ActivityLog{
				{ID: "log-1", ActorID: "admin-1", Action: model.ActionCarMarkSold, EntityType: "car", EntityID: "car-1"},
			}, nil
		},
	}

	h := newTestAdminHandler(&mockUserAdminService{}, &mockInquiryAdminService{}, &mockPurchaseRecorder{}, audit)

	rec := httptest.NewRecorder()
	h.ListActivityLogs(rec, adminRequest(http.MethodGet, "/api/admin/activity", ""))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp map[string][]activityLogResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	entries := resp["activity"]
	if len(entries) != 1 || entries[0].Action != model.ActionCarMarkSold {
		t.Errorf("activity = %v, want one mark_sold entry", entries)
	}
}
