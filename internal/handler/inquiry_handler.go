package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/hitoshi/kurumart/internal/middleware"
	"github.com/hitoshi/kurumart/internal/model"
)

// InquiryServiceInterface は問い合わせハンドラーが必要とするサービスインターフェース。
type InquiryServiceInterface interface {
	// Submit は問い合わせを受け付ける。userIDは未ログインの場合は空。
	Submit(ctx context.Context, userID, carID, name, email, message string) (*model.Inquiry, error)
}

// InquiryHandler は問い合わせのHTTPハンドラー。未ログインでも送信できる。
type InquiryHandler struct {
	service InquiryServiceInterface
}

// NewInquiryHandler はInquiryHandlerを生成する。
func NewInquiryHandler(service InquiryServiceInterface) *InquiryHandler {
	return &InquiryHandler{service: service}
}

// submitInquiryRequest は問い合わせ送信リクエストのボディ。
type submitInquiryRequest struct {
	CarID   string `json:"car_id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

// inquiryResponse は問い合わせのAPIレスポンス。
type inquiryResponse struct {
	ID         string     `json:"id"`
	CarID      string     `json:"car_id"`
	Name       string     `json:"name"`
	Email      string     `json:"email"`
	Message    string     `json:"message"`
	Status     string     `json:"status"`
	AnsweredAt *time.Time `json:"answered_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Submit は問い合わせを受け付ける。
// ログイン済みの場合は問い合わせにユーザーIDを紐付ける。
// POST /api/inquiries
func (h *InquiryHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req submitInquiryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, newInvalidRequestError())
		return
	}

	var userID string
	if session, err := middleware.SessionFromContext(r.Context()); err == nil && session.IsAuthenticated() {
		userID = session.UserID
	}

	inquiry, err := h.service.Submit(r.Context(), userID, req.CarID, req.Name, req.Email, req.Message)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusCreated, toInquiryResponse(inquiry))
}

// toInquiryResponse はドメインのInquiryをAPIレスポンスに変換する。
func toInquiryResponse(inquiry *model.Inquiry) inquiryResponse {
	return inquiryResponse{
		ID:         inquiry.ID,
		CarID:      inquiry.CarID,
		Name:       inquiry.Name,
		Email:      inquiry.Email,
		Message:    inquiry.Message,
		Status:     string(inquiry.Status),
		AnsweredAt: inquiry.AnsweredAt,
		CreatedAt:  inquiry.CreatedAt,
	}
}
