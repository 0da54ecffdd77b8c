package loan

import (
	"context"
	"errors"
	"testing"

	"github.com/hitoshi/kurumart/internal/model"
	"github.com/hitoshi/kurumart/internal/repository"
)

type mockLoanQuoteRepo struct {
	createFn       func(ctx context.Context, quote *model.SavedLoanQuote) error
	listByUserIDFn func(ctx context.Context, userID string) ([]*model.SavedLoanQuote, error)
}

func (m *mockLoanQuoteRepo) Create(ctx context.Context, quote *model.SavedLoanQuote) error {
	if m.createFn != nil {
		return m.createFn(ctx, quote)
	}
	return nil
}
func (m *mockLoanQuoteRepo) ListByUserID(ctx context.Context, userID string) ([]*model.SavedLoanQuote, error) {
	if m.listByUserIDFn != nil {
		return m.listByUserIDFn(ctx, userID)
	}
	return nil, nil
}

var _ repository.LoanQuoteRepository = (*mockLoanQuoteRepo)(nil)

type mockQuoteRecorder struct {
	computed int
}

func (m *mockQuoteRecorder) RecordLoanQuoteComputed() {
	m.computed++
}

// TestService_Compute は試算の実行とメトリクス記録を検証する。
func TestService_Compute(t *testing.T) {
	recorder := &mockQuoteRecorder{}
	svc := NewService(&mockLoanQuoteRepo{}, recorder)

	quote, err := svc.Compute(2000000, 500000, 36, 3.5)
	if err != nil {
		t.Fatalf("Compute returned error: %v", err)
	}
	if quote.MonthlyPayment <= 0 {
		t.Errorf("MonthlyPayment = %v, want > 0", quote.MonthlyPayment)
	}
	if recorder.computed != 1 {
		t.Errorf("computed metric = %d, want 1", recorder.computed)
	}
}

// TestService_Compute_InvalidInput は検証エラーがそのまま返り、メトリクスが増えないことを検証する。
func TestService_Compute_InvalidInput(t *testing.T) {
	recorder := &mockQuoteRecorder{}
	svc := NewService(&mockLoanQuoteRepo{}, recorder)

	_, err := svc.Compute(2000000, -1, 36, 3.5)
	if !errors.Is(err, ErrInvalidDownPayment) {
		t.Errorf("err = %v, want ErrInvalidDownPayment", err)
	}
	if recorder.computed != 0 {
		t.Errorf("computed metric = %d, want 0 for failed computation", recorder.computed)
	}
}

// TestService_Save は試算結果が全精度で保存されることを検証する。
func TestService_Save(t *testing.T) {
	var saved *model.SavedLoanQuote
	repo := &mockLoanQuoteRepo{
		createFn: func(ctx context.Context, quote *model.SavedLoanQuote) error {
			saved = quote
			return nil
		},
	}

	svc := NewService(repo, nil)

	quote, err := Calculate(2000000, 500000, 36, 3.5)
	if err != nil {
		t.Fatalf("Calculate returned error: %v", err)
	}

	result, err := svc.Save(context.Background(), "user-1", "car-1", quote)
	if err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	if saved == nil {
		t.Fatal("expected Create to be called")
	}
	if result.ID == "" {
		t.Error("saved quote ID should be generated")
	}
	// 丸めずに保存する
	if saved.MonthlyPayment != quote.MonthlyPayment {
		t.Errorf("MonthlyPayment = %v, want full precision %v", saved.MonthlyPayment, quote.MonthlyPayment)
	}
	if saved.UserID != "user-1" || saved.CarID != "car-1" {
		t.Errorf("saved = %+v, want user-1/car-1", saved)
	}
}

// TestService_Save_Anonymous は未ログインの試算保存でIDが空のまま保存されることを検証する。
func TestService_Save_Anonymous(t *testing.T) {
	var saved *model.SavedLoanQuote
	repo := &mockLoanQuoteRepo{
		createFn: func(ctx context.Context, quote *model.SavedLoanQuote) error {
			saved = quote
			return nil
		},
	}

	svc := NewService(repo, nil)

	quote, err := Calculate(1500000, 0, 24, 0)
	if err != nil {
		t.Fatalf("Calculate returned error: %v", err)
	}

	if _, err := svc.Save(context.Background(), "", "", quote); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	if saved.UserID != "" || saved.CarID != "" {
		t.Errorf("saved = %+v, want empty user/car IDs", saved)
	}
}

// TestService_ListSaved は保存済み試算の取得を検証する。
func TestService_ListSaved(t *testing.T) {
	repo := &mockLoanQuoteRepo{
		listByUserIDFn: func(ctx context.Context, userID string) ([]*model.SavedLoanQuote, error) {
			return []*model.SavedLoanQuote{{ID: "q-1", UserID: userID}}, nil
		},
	}

	svc := NewService(repo, nil)

	quotes, err := svc.ListSaved(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("ListSaved returned error: %v", err)
	}
	if len(quotes) != 1 {
		t.Errorf("len(quotes) = %d, want 1", len(quotes))
	}
}
