package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/kurumart/internal/middleware"
	"github.com/hitoshi/kurumart/internal/model"
)

// FavoriteServiceInterface はお気に入りハンドラーが必要とするサービスインターフェース。
type FavoriteServiceInterface interface {
	// Add は車両をお気に入りに追加する。
	Add(ctx context.Context, userID, carID string) error
	// List はお気に入りの車両一覧を返す。成約済みの車両も含む。
	List(ctx context.Context, userID string) ([]*model.Car, error)
	// Remove はお気に入りを解除する。冪等。
	Remove(ctx context.Context, userID, carID string) error
}

// FavoriteHandler はお気に入りのHTTPハンドラー。認証必須。
type FavoriteHandler struct {
	service FavoriteServiceInterface
}

// NewFavoriteHandler はFavoriteHandlerを生成する。
func NewFavoriteHandler(service FavoriteServiceInterface) *FavoriteHandler {
	return &FavoriteHandler{service: service}
}

// addFavoriteRequest はお気に入り追加リクエストのボディ。
type addFavoriteRequest struct {
	CarID string `json:"car_id"`
}

// Add は車両をお気に入りに追加する。
// POST /api/favorites
func (h *FavoriteHandler) Add(w http.ResponseWriter, r *http.Request) {
	session, err := middleware.SessionFromContext(r.Context())
	if err != nil {
		middleware.WriteInternalServerError(w)
		return
	}

	var req addFavoriteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, newInvalidRequestError())
		return
	}

	if err := h.service.Add(r.Context(), session.UserID, req.CarID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
}

// List はお気に入りの車両一覧を返す。
// GET /api/favorites
func (h *FavoriteHandler) List(w http.ResponseWriter, r *http.Request) {
	session, err := middleware.SessionFromContext(r.Context())
	if err != nil {
		middleware.WriteInternalServerError(w)
		return
	}

	cars, err := h.service.List(r.Context(), session.UserID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	results := make([]carResponse, len(cars))
	for i, c := range cars {
		results[i] = toCarResponse(c)
	}

	writeJSONResponse(w, http.StatusOK, map[string]any{"cars": results})
}

// Remove はお気に入りを解除する。
// DELETE /api/favorites/{carID}
func (h *FavoriteHandler) Remove(w http.ResponseWriter, r *http.Request) {
	session, err := middleware.SessionFromContext(r.Context())
	if err != nil {
		middleware.WriteInternalServerError(w)
		return
	}

	carID := chi.URLParam(r, "carID")

	if err := h.service.Remove(r.Context(), session.UserID, carID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
