package loan

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/kurumart/internal/model"
	"github.com/hitoshi/kurumart/internal/repository"
)

// QuoteRecorder はローン試算のメトリクス記録インターフェース。
type QuoteRecorder interface {
	RecordLoanQuoteComputed()
}

// Service はローン試算のサービス層。
// 純粋関数Calculateを試算実行のメトリクス記録と保存機能に結線する。
type Service struct {
	quoteRepo repository.LoanQuoteRepository
	metrics   QuoteRecorder
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(quoteRepo repository.LoanQuoteRepository, metrics QuoteRecorder) *Service {
	return &Service{
		quoteRepo: quoteRepo,
		metrics:   metrics,
	}
}

// Compute はローン試算を実行する。
// 検証エラー（ErrInvalidDownPayment等）はCalculateのものをそのまま返す。
func (s *Service) Compute(vehiclePrice, downPayment float64, termMonths int, annualRatePercent float64) (*Quote, error) {
	quote, err := Calculate(vehiclePrice, downPayment, termMonths, annualRatePercent)
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordLoanQuoteComputed()
	}

	return quote, nil
}

// Save は試算結果を保存する。userID、carIDは任意（空を許容）。
// 保存値は丸め前の全精度で保持し、丸めは表示層で行う。
func (s *Service) Save(ctx context.Context, userID, carID string, quote *Quote) (*model.SavedLoanQuote, error) {
	saved := &model.SavedLoanQuote{
		ID:                uuid.NewString(),
		UserID:            userID,
		CarID:             carID,
		VehiclePrice:      quote.VehiclePrice,
		DownPayment:       quote.DownPayment,
		TermMonths:        quote.TermMonths,
		AnnualRatePercent: quote.AnnualRatePercent,
		MonthlyPayment:    quote.MonthlyPayment,
		TotalPayment:      quote.TotalPayment,
		TotalInterest:     quote.TotalInterest,
		CreatedAt:         time.Now(),
	}

	if err := s.quoteRepo.Create(ctx, saved); err != nil {
		return nil, fmt.Errorf("試算結果の保存に失敗しました: %w", err)
	}

	return saved, nil
}

// ListSaved はユーザーの保存済み試算一覧を作成日時降順で返す。
func (s *Service) ListSaved(ctx context.Context, userID string) ([]*model.SavedLoanQuote, error) {
	quotes, err := s.quoteRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("保存済み試算の取得に失敗しました: %w", err)
	}
	return quotes, nil
}
