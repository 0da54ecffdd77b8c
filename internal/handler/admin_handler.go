package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/kurumart/internal/model"
)

// UserAdminServiceInterface は管理者用ユーザー操作のインターフェース。
type UserAdminServiceInterface interface {
	// List は全ユーザーを返す。
	List(ctx context.Context, limit, offset int) ([]*model.User, error)
	// SetActive はユーザーの有効フラグを変更する。
	SetActive(ctx context.Context, actorID, actorName, userID string, active bool) error
}

// InquiryAdminServiceInterface は管理者用問い合わせ操作のインターフェース。
type InquiryAdminServiceInterface interface {
	// List は問い合わせ一覧を返す。statusが空の場合は全件。
	List(ctx context.Context, status model.InquiryStatus, limit, offset int) ([]*model.Inquiry, error)
	// MarkAnswered は問い合わせを回答済みにする。冪等。
	MarkAnswered(ctx context.Context, actorID, actorName, inquiryID string) (*model.Inquiry, error)
}

// PurchaseRecorderInterface は成約記録のインターフェース。
type PurchaseRecorderInterface interface {
	// Record は成約を記録し、対象車両を成約済みにする。
	Record(ctx context.Context, actorID, actorName, buyerID, carID string) (*model.Purchase, error)
}

// AuditServiceInterface は監査ログ閲覧のインターフェース。
type AuditServiceInterface interface {
	// List は監査ログを作成日時降順で返す。
	List(ctx context.Context, limit, offset int) ([]*model.ActivityLog, error)
}

// AdminHandler は管理者用のHTTPハンドラー。管理者ロール必須。
type AdminHandler struct {
	users      UserAdminServiceInterface
	inquiries  InquiryAdminServiceInterface
	purchases  PurchaseRecorderInterface
	audit      AuditServiceInterface
	principals PrincipalResolver
}

// NewAdminHandler はAdminHandlerを生成する。
func NewAdminHandler(
	users UserAdminServiceInterface,
	inquiries InquiryAdminServiceInterface,
	purchases PurchaseRecorderInterface,
	audit AuditServiceInterface,
	principals PrincipalResolver,
) *AdminHandler {
	return &AdminHandler{
		users:      users,
		inquiries:  inquiries,
		purchases:  purchases,
		audit:      audit,
		principals: principals,
	}
}

// adminUserResponse は管理者向けユーザー一覧のAPIレスポンス。
type adminUserResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// setActiveRequest はユーザー有効フラグ変更リクエストのボディ。
type setActiveRequest struct {
	Active bool `json:"active"`
}

// recordPurchaseRequest は成約記録リクエストのボディ。
type recordPurchaseRequest struct {
	UserID string `json:"user_id"`
	CarID  string `json:"car_id"`
}

// adminPurchaseResponse は成約記録のAPIレスポンス。
type adminPurchaseResponse struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	CarID       string    `json:"car_id"`
	PriceAtSale float64   `json:"price_at_sale"`
	PurchasedAt time.Time `json:"purchased_at"`
}

// activityLogResponse は監査ログのAPIレスポンス。
type activityLogResponse struct {
	ID         string    `json:"id"`
	ActorID    string    `json:"actor_id"`
	ActorName  string    `json:"actor_name"`
	Action     string    `json:"action"`
	EntityType string    `json:"entity_type"`
	EntityID   string    `json:"entity_id"`
	Detail     string    `json:"detail,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// ListUsers は全ユーザーの一覧を返す。
// GET /api/admin/users?limit=&offset=
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	users, err := h.users.List(r.Context(), limit, offset)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	results := make([]adminUserResponse, len(users))
	for i, u := range users {
		results[i] = adminUserResponse{
			ID:        u.ID,
			Email:     u.Email,
			Name:      u.Name,
			Role:      string(u.Role),
			IsActive:  u.IsActive,
			CreatedAt: u.CreatedAt,
		}
	}

	writeJSONResponse(w, http.StatusOK, map[string]any{"users": results})
}

// SetUserActive はユーザーの有効フラグを変更する。
// 無効化されたユーザーの既存セッションは即座に失効する。
// PUT /api/admin/users/{id}/active
func (h *AdminHandler) SetUserActive(w http.ResponseWriter, r *http.Request) {
	actor, ok := resolveActor(w, r, h.principals)
	if !ok {
		return
	}

	userID := chi.URLParam(r, "id")

	var req setActiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, newInvalidRequestError())
		return
	}

	if err := h.users.SetActive(r.Context(), actor.ID, actor.DisplayName, userID, req.Active); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListInquiries は問い合わせの一覧を返す。
// GET /api/admin/inquiries?status=&limit=&offset=
func (h *AdminHandler) ListInquiries(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)
	status := model.InquiryStatus(r.URL.Query().Get("status"))

	inquiries, err := h.inquiries.List(r.Context(), status, limit, offset)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	results := make([]inquiryResponse, len(inquiries))
	for i, inq := range inquiries {
		results[i] = toInquiryResponse(inq)
	}

	writeJSONResponse(w, http.StatusOK, map[string]any{"inquiries": results})
}

// AnswerInquiry は問い合わせを回答済みにする。
// POST /api/admin/inquiries/{id}/answer
func (h *AdminHandler) AnswerInquiry(w http.ResponseWriter, r *http.Request) {
	actor, ok := resolveActor(w, r, h.principals)
	if !ok {
		return
	}

	inquiryID := chi.URLParam(r, "id")

	inquiry, err := h.inquiries.MarkAnswered(r.Context(), actor.ID, actor.DisplayName, inquiryID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, toInquiryResponse(inquiry))
}

// RecordPurchase は成約を記録する。
// POST /api/admin/purchases
func (h *AdminHandler) RecordPurchase(w http.ResponseWriter, r *http.Request) {
	actor, ok := resolveActor(w, r, h.principals)
	if !ok {
		return
	}

	var req recordPurchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, newInvalidRequestError())
		return
	}

	purchase, err := h.purchases.Record(r.Context(), actor.ID, actor.DisplayName, req.UserID, req.CarID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusCreated, adminPurchaseResponse{
		ID:          purchase.ID,
		UserID:      purchase.UserID,
		CarID:       purchase.CarID,
		PriceAtSale: purchase.PriceAtSale,
		PurchasedAt: purchase.PurchasedAt,
	})
}

// ListActivityLogs は監査ログの一覧を返す。
// GET /api/admin/activity?limit=&offset=
func (h *AdminHandler) ListActivityLogs(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	entries, err := h.audit.List(r.Context(), limit, offset)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	results := make([]activityLogResponse, len(entries))
	for i, e := range entries {
		results[i] = activityLogResponse{
			ID:         e.ID,
			ActorID:    e.ActorID,
			ActorName:  e.ActorName,
			Action:     e.Action,
			EntityType: e.EntityType,
			EntityID:   e.EntityID,
			Detail:     e.Detail,
			CreatedAt:  e.CreatedAt,
		}
	}

	writeJSONResponse(w, http.StatusOK, map[string]any{"activity": results})
}

// parsePagination はlimit・offsetクエリパラメータを解析する。
// 未指定・解析失敗はゼロ値を返し、上限の適用はリポジトリ層が行う。
func parsePagination(r *http.Request) (limit, offset int) {
	q := r.URL.Query()
	if v, err := strconv.Atoi(q.Get("limit")); err == nil {
		limit = v
	}
	if v, err := strconv.Atoi(q.Get("offset")); err == nil {
		offset = v
	}
	return limit, offset
}
