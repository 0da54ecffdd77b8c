package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/hitoshi/kurumart/internal/middleware"
	"github.com/hitoshi/kurumart/internal/model"
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	// Withdraw はユーザーの退会処理を実行する。
	// favorites、sessionsを削除し、purchases、inquiriesは記録として残す。
	Withdraw(ctx context.Context, userID string) error
}

// PurchaseListerInterface は購入履歴の取得インターフェース。
type PurchaseListerInterface interface {
	// ListByUser はユーザーの購入履歴を返す。
	ListByUser(ctx context.Context, userID string) ([]*model.Purchase, error)
}

// UserHandler はユーザー管理のHTTPハンドラー。認証必須。
type UserHandler struct {
	service       UserServiceInterface
	purchases     PurchaseListerInterface
	sessionConfig middleware.SessionConfig
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(
	service UserServiceInterface,
	purchases PurchaseListerInterface,
	sessionConfig middleware.SessionConfig,
) *UserHandler {
	return &UserHandler{
		service:       service,
		purchases:     purchases,
		sessionConfig: sessionConfig,
	}
}

// purchaseResponse は購入履歴のAPIレスポンス。
type purchaseResponse struct {
	ID          string    `json:"id"`
	CarID       string    `json:"car_id"`
	PriceAtSale float64   `json:"price_at_sale"`
	PurchasedAt time.Time `json:"purchased_at"`
}

// Withdraw はユーザーの退会処理を実行する。
// 退会後はセッションも削除されるため、Cookieをクリアする。
// DELETE /api/users/me
func (h *UserHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	session, err := middleware.SessionFromContext(r.Context())
	if err != nil {
		middleware.WriteInternalServerError(w)
		return
	}

	if err := h.service.Withdraw(r.Context(), session.UserID); err != nil {
		handleServiceError(w, err)
		return
	}

	middleware.ClearSessionCookie(w, h.sessionConfig)
	w.WriteHeader(http.StatusNoContent)
}

// ListPurchases は自分の購入履歴を返す。
// GET /api/users/me/purchases
func (h *UserHandler) ListPurchases(w http.ResponseWriter, r *http.Request) {
	session, err := middleware.SessionFromContext(r.Context())
	if err != nil {
		middleware.WriteInternalServerError(w)
		return
	}

	purchases, err := h.purchases.ListByUser(r.Context(), session.UserID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	results := make([]purchaseResponse, len(purchases))
	for i, p := range purchases {
		results[i] = purchaseResponse{
			ID:          p.ID,
			CarID:       p.CarID,
			PriceAtSale: p.PriceAtSale,
			PurchasedAt: p.PurchasedAt,
		}
	}

	writeJSONResponse(w, http.StatusOK, map[string]any{"purchases": results})
}
