package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/hitoshi/kurumart/internal/loan"
	"github.com/hitoshi/kurumart/internal/middleware"
	"github.com/hitoshi/kurumart/internal/model"
)

// LoanServiceInterface はローン試算ハンドラーが必要とするサービスインターフェース。
type LoanServiceInterface interface {
	// Compute はローン試算を実行する。
	Compute(vehiclePrice, downPayment float64, termMonths int, annualRatePercent float64) (*loan.Quote, error)
	// Save は試算結果を保存する。
	Save(ctx context.Context, userID, carID string, quote *loan.Quote) (*model.SavedLoanQuote, error)
	// ListSaved はユーザーの保存済み試算一覧を返す。
	ListSaved(ctx context.Context, userID string) ([]*model.SavedLoanQuote, error)
}

// LoanHandler はローン試算のHTTPハンドラー。
// 試算自体は未ログインでも実行できる。保存と一覧は認証必須。
type LoanHandler struct {
	service LoanServiceInterface
}

// NewLoanHandler はLoanHandlerを生成する。
func NewLoanHandler(service LoanServiceInterface) *LoanHandler {
	return &LoanHandler{service: service}
}

// loanCalculateRequest は試算リクエストのボディ。
type loanCalculateRequest struct {
	VehiclePrice      float64 `json:"vehicle_price"`
	DownPayment       float64 `json:"down_payment"`
	TermMonths        int     `json:"term_months"`
	AnnualRatePercent float64 `json:"annual_rate_percent"`
}

// loanSaveRequest は試算保存リクエストのボディ。car_idは任意。
type loanSaveRequest struct {
	loanCalculateRequest
	CarID string `json:"car_id"`
}

// loanQuoteResponse は試算結果のAPIレスポンス。
// 金額は通貨最小単位（小数第2位）に丸めて返す。
type loanQuoteResponse struct {
	VehiclePrice      float64 `json:"vehicle_price"`
	DownPayment       float64 `json:"down_payment"`
	TermMonths        int     `json:"term_months"`
	AnnualRatePercent float64 `json:"annual_rate_percent"`
	MonthlyPayment    float64 `json:"monthly_payment"`
	TotalPayment      float64 `json:"total_payment"`
	TotalInterest     float64 `json:"total_interest"`
}

// savedLoanQuoteResponse は保存済み試算のAPIレスポンス。
type savedLoanQuoteResponse struct {
	ID string `json:"id"`
	loanQuoteResponse
	CarID     string    `json:"car_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Calculate はローン試算を実行する。副作用はない。
// POST /api/loan/calculate
func (h *LoanHandler) Calculate(w http.ResponseWriter, r *http.Request) {
	var req loanCalculateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, newInvalidRequestError())
		return
	}

	quote, err := h.service.Compute(req.VehiclePrice, req.DownPayment, req.TermMonths, req.AnnualRatePercent)
	if err != nil {
		handleLoanError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, toLoanQuoteResponse(quote))
}

// Save は試算を実行して結果を保存する。認証必須。
// POST /api/loan/quotes
func (h *LoanHandler) Save(w http.ResponseWriter, r *http.Request) {
	session, err := middleware.SessionFromContext(r.Context())
	if err != nil {
		middleware.WriteInternalServerError(w)
		return
	}

	var req loanSaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, newInvalidRequestError())
		return
	}

	quote, err := h.service.Compute(req.VehiclePrice, req.DownPayment, req.TermMonths, req.AnnualRatePercent)
	if err != nil {
		handleLoanError(w, err)
		return
	}

	saved, err := h.service.Save(r.Context(), session.UserID, req.CarID, quote)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusCreated, toSavedLoanQuoteResponse(saved))
}

// ListSaved は自分の保存済み試算一覧を返す。認証必須。
// GET /api/loan/quotes
func (h *LoanHandler) ListSaved(w http.ResponseWriter, r *http.Request) {
	session, err := middleware.SessionFromContext(r.Context())
	if err != nil {
		middleware.WriteInternalServerError(w)
		return
	}

	quotes, err := h.service.ListSaved(r.Context(), session.UserID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	results := make([]savedLoanQuoteResponse, len(quotes))
	for i, q := range quotes {
		results[i] = toSavedLoanQuoteResponse(q)
	}

	writeJSONResponse(w, http.StatusOK, map[string]any{"quotes": results})
}

// handleLoanError はloanパッケージの検証エラーをAPIエラーに変換する。
func handleLoanError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, loan.ErrInvalidDownPayment):
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidDownPaymentError())
	case errors.Is(err, loan.ErrInvalidTerm):
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidTermError())
	case errors.Is(err, loan.ErrInvalidRate):
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRateError())
	default:
		handleServiceError(w, err)
	}
}

// toLoanQuoteResponse は試算結果を丸めてAPIレスポンスに変換する。
func toLoanQuoteResponse(q *loan.Quote) loanQuoteResponse {
	return loanQuoteResponse{
		VehiclePrice:      q.VehiclePrice,
		DownPayment:       q.DownPayment,
		TermMonths:        q.TermMonths,
		AnnualRatePercent: q.AnnualRatePercent,
		MonthlyPayment:    loan.Round2(q.MonthlyPayment),
		TotalPayment:      loan.Round2(q.TotalPayment),
		TotalInterest:     loan.Round2(q.TotalInterest),
	}
}

// toSavedLoanQuoteResponse は保存済み試算を丸めてAPIレスポンスに変換する。
func toSavedLoanQuoteResponse(q *model.SavedLoanQuote) savedLoanQuoteResponse {
	return savedLoanQuoteResponse{
		ID: q.ID,
		loanQuoteResponse: loanQuoteResponse{
			VehiclePrice:      q.VehiclePrice,
			DownPayment:       q.DownPayment,
			TermMonths:        q.TermMonths,
			AnnualRatePercent: q.AnnualRatePercent,
			MonthlyPayment:    loan.Round2(q.MonthlyPayment),
			TotalPayment:      loan.Round2(q.TotalPayment),
			TotalInterest:     loan.Round2(q.TotalInterest),
		},
		CarID:     q.CarID,
		CreatedAt: q.CreatedAt,
	}
}
