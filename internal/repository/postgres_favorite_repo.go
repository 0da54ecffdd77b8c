package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/kurumart/internal/model"
)

// PostgresFavoriteRepo はPostgreSQLを使用したお気に入りリポジトリ。
type PostgresFavoriteRepo struct {
	db *sql.DB
}

// NewPostgresFavoriteRepo はPostgresFavoriteRepoを生成する。
func NewPostgresFavoriteRepo(db *sql.DB) *PostgresFavoriteRepo {
	return &PostgresFavoriteRepo{db: db}
}

// Create はお気に入りを登録する。
func (r *PostgresFavoriteRepo) Create(ctx context.Context, fav *model.Favorite) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO favorites (user_id, car_id, created_at) VALUES ($1, $2, $3)`,
		fav.UserID, fav.CarID, fav.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert favorite: %w", err)
	}
	return nil
}

// Exists はユーザーと車両の組み合わせが登録済みかどうかを返す。
func (r *PostgresFavoriteRepo) Exists(ctx context.Context, userID, carID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM favorites WHERE user_id = $1 AND car_id = $2)`,
		userID, carID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check favorite: %w", err)
	}
	return exists, nil
}

// ListByUserID はユーザーのお気に入り車両一覧を登録日時降順で返す。
func (r *PostgresFavoriteRepo) ListByUserID(ctx context.Context, userID string) ([]*model.Car, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT c.id, c.make, c.model, c.year, c.price, c.mileage, c.color,
		        c.transmission, c.description, c.image_url, c.is_sold, c.created_at, c.updated_at
		 FROM favorites f
		 JOIN cars c ON c.id = f.car_id
		 WHERE f.user_id = $1
		 ORDER BY f.created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list favorites: %w", err)
	}
	defer rows.Close()

	var cars []*model.Car
	for rows.Next() {
		car, err := scanCar(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan favorite car: %w", err)
		}
		cars = append(cars, car)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate favorites: %w", err)
	}
	return cars, nil
}

// Delete はお気に入りを解除する。存在しない場合もエラーにしない（冪等）。
func (r *PostgresFavoriteRepo) Delete(ctx context.Context, userID, carID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM favorites WHERE user_id = $1 AND car_id = $2`,
		userID, carID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete favorite: %w", err)
	}
	return nil
}

// DeleteByUserID はユーザーの全お気に入りを削除する。
func (r *PostgresFavoriteRepo) DeleteByUserID(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM favorites WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete user favorites: %w", err)
	}
	return nil
}

// compile-time interface check
var _ FavoriteRepository = (*PostgresFavoriteRepo)(nil)
