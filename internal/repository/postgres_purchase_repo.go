package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/kurumart/internal/model"
)

// PostgresPurchaseRepo はPostgreSQLを使用した成約記録リポジトリ。
type PostgresPurchaseRepo struct {
	db *sql.DB
}

// NewPostgresPurchaseRepo はPostgresPurchaseRepoを生成する。
func NewPostgresPurchaseRepo(db *sql.DB) *PostgresPurchaseRepo {
	return &PostgresPurchaseRepo{db: db}
}

// RecordSale は車両の成約済み化と成約記録の作成を同一トランザクションで行う。
// 車両の更新はis_soldが未成約の場合のみ成立し、成立しなかった場合は
// ErrCarNotAvailableを返してロールバックする。
func (r *PostgresPurchaseRepo) RecordSale(ctx context.Context, purchase *model.Purchase) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// 車両を成約済みにする（未成約の場合のみ）
	result, err := tx.ExecContext(ctx,
		`UPDATE cars SET is_sold = TRUE, updated_at = now()
		 WHERE id = $1 AND is_sold = FALSE`,
		purchase.CarID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark car sold: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrCarNotAvailable
	}

	// 成約記録を作成
	_, err = tx.ExecContext(ctx,
		`INSERT INTO purchases (id, user_id, car_id, price_at_sale, purchased_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		purchase.ID, purchase.UserID, purchase.CarID, purchase.PriceAtSale, purchase.PurchasedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert purchase: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// ListByUserID はユーザーの購入履歴を成約日時降順で返す。
func (r *PostgresPurchaseRepo) ListByUserID(ctx context.Context, userID string) ([]*model.Purchase, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, car_id, price_at_sale, purchased_at
		 FROM purchases
		 WHERE user_id = $1
		 ORDER BY purchased_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list purchases: %w", err)
	}
	defer rows.Close()

	var purchases []*model.Purchase
	for rows.Next() {
		p := &model.Purchase{}
		if err := rows.Scan(&p.ID, &p.UserID, &p.CarID, &p.PriceAtSale, &p.PurchasedAt); err != nil {
			return nil, fmt.Errorf("failed to scan purchase: %w", err)
		}
		purchases = append(purchases, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate purchases: %w", err)
	}
	return purchases, nil
}

// compile-time interface check
var _ PurchaseRepository = (*PostgresPurchaseRepo)(nil)
