// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/kurumart/internal/car"
	"github.com/hitoshi/kurumart/internal/model"
)

// CarServiceInterface は車両ハンドラーが必要とするサービスインターフェース。
type CarServiceInterface interface {
	// List は絞り込み条件に一致する車両の一覧を返す。
	List(ctx context.Context, filter model.CarFilter) ([]*model.Car, error)
	// Get は指定IDの車両を返す。
	Get(ctx context.Context, id string) (*model.Car, error)
	// Create は車両を新規登録する。
	Create(ctx context.Context, actorID, actorName string, input car.Input) (*model.Car, error)
	// Update は車両情報を更新する。
	Update(ctx context.Context, actorID, actorName, id string, input car.Input) (*model.Car, error)
	// MarkSold は車両を成約済みにする。
	MarkSold(ctx context.Context, actorID, actorName, id string) (*model.Car, error)
	// Delete は車両を削除する。
	Delete(ctx context.Context, actorID, actorName, id string) error
}

// CarHandler は車両カタログのHTTPハンドラー。
type CarHandler struct {
	service    CarServiceInterface
	principals PrincipalResolver
}

// NewCarHandler はCarHandlerを生成する。
func NewCarHandler(service CarServiceInterface, principals PrincipalResolver) *CarHandler {
	return &CarHandler{
		service:    service,
		principals: principals,
	}
}

// carRequest は車両の登録・更新リクエストのボディ。
type carRequest struct {
	Make         string  `json:"make"`
	Model        string  `json:"model"`
	Year         int     `json:"year"`
	Price        float64 `json:"price"`
	Mileage      int     `json:"mileage"`
	Color        string  `json:"color"`
	Transmission string  `json:"transmission"`
	Description  string  `json:"description"`
	ImageURL     string  `json:"image_url"`
}

// carResponse は車両情報のAPIレスポンス。
type carResponse struct {
	ID           string    `json:"id"`
	Make         string    `json:"make"`
	Model        string    `json:"model"`
	Year         int       `json:"year"`
	Price        float64   `json:"price"`
	Mileage      int       `json:"mileage"`
	Color        string    `json:"color"`
	Transmission string    `json:"transmission"`
	Description  string    `json:"description"`
	ImageURL     string    `json:"image_url"`
	IsSold       bool      `json:"is_sold"`
	CreatedAt    time.Time `json:"created_at"`
}

// apiErrorResponse は統一エラーフォーマットのレスポンス。
type apiErrorResponse struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// List は車両一覧を取得する。クエリパラメータで絞り込みできる。
// GET /api/cars?make=&model=&year_min=&year_max=&price_min=&price_max=&include_sold=&limit=&offset=
func (h *CarHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := parseCarFilter(r)

	cars, err := h.service.List(r.Context(), filter)
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

// Get は車両詳細を取得する。
// GET /api/cars/{id}
func (h *CarHandler) Get(w http.ResponseWriter, r *http.Request) {
	carID := chi.URLParam(r, "id")

	c, err := h.service.Get(r.Context(), carID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, toCarResponse(c))
}

// Create は車両を登録する。管理者用。
// POST /api/admin/cars
func (h *CarHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := resolveActor(w, r, h.principals)
	if !ok {
		return
	}

	var req carRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, newInvalidRequestError())
		return
	}

	c, err := h.service.Create(r.Context(), actor.ID, actor.DisplayName, toCarInput(req))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusCreated, toCarResponse(c))
}

// Update は車両情報を更新する。管理者用。
// PUT /api/admin/cars/{id}
func (h *CarHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := resolveActor(w, r, h.principals)
	if !ok {
		return
	}

	carID := chi.URLParam(r, "id")

	var req carRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, newInvalidRequestError())
		return
	}

	c, err := h.service.Update(r.Context(), actor.ID, actor.DisplayName, carID, toCarInput(req))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, toCarResponse(c))
}

// MarkSold は車両を成約済みにする。管理者用。
// POST /api/admin/cars/{id}/sold
func (h *CarHandler) MarkSold(w http.ResponseWriter, r *http.Request) {
	actor, ok := resolveActor(w, r, h.principals)
	if !ok {
		return
	}

	carID := chi.URLParam(r, "id")

	c, err := h.service.MarkSold(r.Context(), actor.ID, actor.DisplayName, carID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, toCarResponse(c))
}

// Delete は車両を削除する。管理者用。
// DELETE /api/admin/cars/{id}
func (h *CarHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := resolveActor(w, r, h.principals)
	if !ok {
		return
	}

	carID := chi.URLParam(r, "id")

	if err := h.service.Delete(r.Context(), actor.ID, actor.DisplayName, carID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// parseCarFilter はクエリパラメータからCarFilterを組み立てる。
// 数値の解析に失敗したパラメータは未指定として扱う。
func parseCarFilter(r *http.Request) model.CarFilter {
	q := r.URL.Query()

	filter := model.CarFilter{
		Make:  q.Get("make"),
		Model: q.Get("model"),
	}

	if v, err := strconv.Atoi(q.Get("year_min")); err == nil {
		filter.YearMin = v
	}
	if v, err := strconv.Atoi(q.Get("year_max")); err == nil {
		filter.YearMax = v
	}
	if v, err := strconv.ParseFloat(q.Get("price_min"), 64); err == nil {
		filter.PriceMin = v
	}
	if v, err := strconv.ParseFloat(q.Get("price_max"), 64); err == nil {
		filter.PriceMax = v
	}
	if v, err := strconv.ParseBool(q.Get("include_sold")); err == nil {
		filter.IncludeSold = v
	}
	if v, err := strconv.Atoi(q.Get("limit")); err == nil {
		filter.Limit = v
	}
	if v, err := strconv.Atoi(q.Get("offset")); err == nil {
		filter.Offset = v
	}

	return filter
}

// toCarInput はリクエストボディをドメインの入力値に変換する。
func toCarInput(req carRequest) car.Input {
	return car.Input{
		Make:         req.Make,
		Model:        req.Model,
		Year:         req.Year,
		Price:        req.Price,
		Mileage:      req.Mileage,
		Color:        req.Color,
		Transmission: req.Transmission,
		Description:  req.Description,
		ImageURL:     req.ImageURL,
	}
}

// toCarResponse はドメインのCarをAPIレスポンスに変換する。
func toCarResponse(c *model.Car) carResponse {
	return carResponse{
		ID:           c.ID,
		Make:         c.Make,
		Model:        c.Model,
		Year:         c.Year,
		Price:        c.Price,
		Mileage:      c.Mileage,
		Color:        c.Color,
		Transmission: c.Transmission,
		Description:  c.Description,
		ImageURL:     c.ImageURL,
		IsSold:       c.IsSold,
		CreatedAt:    c.CreatedAt,
	}
}

// newInvalidRequestError はJSONボディ解析失敗のエラーを生成する。
func newInvalidRequestError() *model.APIError {
	return &model.APIError{
		Code:     "INVALID_REQUEST",
		Message:  "リクエストボディの解析に失敗しました。",
		Category: "validation",
		Action:   "正しいJSON形式でリクエストしてください。",
	}
}

// writeJSONResponse はJSONレスポンスを書き込む。
func writeJSONResponse(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(apiErrorResponse{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		writeAPIErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	writeAPIErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	})
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeUnauthorized, model.ErrCodeInvalidCredentials:
		return http.StatusUnauthorized
	case model.ErrCodeForbidden, model.ErrCodeCSRFFailed:
		return http.StatusForbidden
	case model.ErrCodeUserNotFound, model.ErrCodeCarNotFound, model.ErrCodeInquiryNotFound:
		return http.StatusNotFound
	case model.ErrCodeEmailTaken, model.ErrCodeCarAlreadySold, model.ErrCodeFavoriteExists:
		return http.StatusConflict
	case model.ErrCodeValidationFailed, model.ErrCodeInvalidDownPayment,
		model.ErrCodeInvalidTerm, model.ErrCodeInvalidRate:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
