package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/kurumart/internal/model"
)

// PostgresLoanQuoteRepo はPostgreSQLを使用したローン試算リポジトリ。
type PostgresLoanQuoteRepo struct {
	db *sql.DB
}

// NewPostgresLoanQuoteRepo はPostgresLoanQuoteRepoを生成する。
func NewPostgresLoanQuoteRepo(db *sql.DB) *PostgresLoanQuoteRepo {
	return &PostgresLoanQuoteRepo{db: db}
}

// Create は試算結果を保存する。
func (r *PostgresLoanQuoteRepo) Create(ctx context.Context, quote *model.SavedLoanQuote) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO loan_quotes (id, user_id, car_id, vehicle_price, down_payment, term_months,
		                          annual_rate_percent, monthly_payment, total_payment, total_interest, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		quote.ID, nullString(quote.UserID), nullString(quote.CarID),
		quote.VehiclePrice, quote.DownPayment, quote.TermMonths,
		quote.AnnualRatePercent, quote.MonthlyPayment, quote.TotalPayment, quote.TotalInterest,
		quote.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert loan quote: %w", err)
	}
	return nil
}

// ListByUserID はユーザーの保存済み試算一覧を作成日時降順で返す。
func (r *PostgresLoanQuoteRepo) ListByUserID(ctx context.Context, userID string) ([]*model.SavedLoanQuote, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, car_id, vehicle_price, down_payment, term_months,
		        annual_rate_percent, monthly_payment, total_payment, total_interest, created_at
		 FROM loan_quotes WHERE user_id = $1 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list loan quotes: %w", err)
	}
	defer rows.Close()

	var quotes []*model.SavedLoanQuote
	for rows.Next() {
		q := &model.SavedLoanQuote{}
		var uid, carID sql.NullString
		err := rows.Scan(
			&q.ID, &uid, &carID, &q.VehiclePrice, &q.DownPayment, &q.TermMonths,
			&q.AnnualRatePercent, &q.MonthlyPayment, &q.TotalPayment, &q.TotalInterest,
			&q.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan loan quote: %w", err)
		}
		q.UserID = uid.String
		q.CarID = carID.String
		quotes = append(quotes, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate loan quotes: %w", err)
	}
	return quotes, nil
}

// compile-time interface check
var _ LoanQuoteRepository = (*PostgresLoanQuoteRepo)(nil)
