package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/hitoshi/kurumart/internal/model"
)

// PostgresCarRepo はPostgreSQLを使用した車両リポジトリ。
type PostgresCarRepo struct {
	db *sql.DB
}

// NewPostgresCarRepo はPostgresCarRepoを生成する。
func NewPostgresCarRepo(db *sql.DB) *PostgresCarRepo {
	return &PostgresCarRepo{db: db}
}

const carColumns = `id, make, model, year, price, mileage, color, transmission, description, image_url, is_sold, created_at, updated_at`

func scanCar(row interface{ Scan(...any) error }) (*model.Car, error) {
	car := &model.Car{}
	err := row.Scan(
		&car.ID, &car.Make, &car.Model, &car.Year, &car.Price, &car.Mileage,
		&car.Color, &car.Transmission, &car.Description, &car.ImageURL,
		&car.IsSold, &car.CreatedAt, &car.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return car, nil
}

// FindByID は指定IDの車両を取得する。見つからない場合はnilを返す。
func (r *PostgresCarRepo) FindByID(ctx context.Context, id string) (*model.Car, error) {
	car, err := scanCar(r.db.QueryRowContext(ctx,
		`SELECT `+carColumns+` FROM cars WHERE id = $1`,
		id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find car: %w", err)
	}
	return car, nil
}

// List は絞り込み条件に一致する車両の一覧を作成日時降順で返す。
// ゼロ値の条件は適用しない。プレースホルダを動的に組み立てるが、
// 値はすべてバインドパラメータとして渡す。
func (r *PostgresCarRepo) List(ctx context.Context, filter model.CarFilter) ([]*model.Car, error) {
	var conds []string
	var args []any

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Make != "" {
		conds = append(conds, "make = "+arg(filter.Make))
	}
	if filter.Model != "" {
		conds = append(conds, "model = "+arg(filter.Model))
	}
	if filter.YearMin > 0 {
		conds = append(conds, "year >= "+arg(filter.YearMin))
	}
	if filter.YearMax > 0 {
		conds = append(conds, "year <= "+arg(filter.YearMax))
	}
	if filter.PriceMin > 0 {
		conds = append(conds, "price >= "+arg(filter.PriceMin))
	}
	if filter.PriceMax > 0 {
		conds = append(conds, "price <= "+arg(filter.PriceMax))
	}
	if !filter.IncludeSold {
		conds = append(conds, "is_sold = FALSE")
	}

	query := `SELECT ` + carColumns + ` FROM cars`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC"

	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	query += " LIMIT " + arg(limit)
	if filter.Offset > 0 {
		query += " OFFSET " + arg(filter.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list cars: %w", err)
	}
	defer rows.Close()

	var cars []*model.Car
	for rows.Next() {
		car, err := scanCar(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan car: %w", err)
		}
		cars = append(cars, car)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate cars: %w", err)
	}
	return cars, nil
}

// Create は車両を作成する。
func (r *PostgresCarRepo) Create(ctx context.Context, car *model.Car) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO cars (id, make, model, year, price, mileage, color, transmission, description, image_url, is_sold, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		car.ID, car.Make, car.Model, car.Year, car.Price, car.Mileage,
		car.Color, car.Transmission, car.Description, car.ImageURL,
		car.IsSold, car.CreatedAt, car.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert car: %w", err)
	}
	return nil
}

// Update は車両情報を更新する。
func (r *PostgresCarRepo) Update(ctx context.Context, car *model.Car) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE cars
		 SET make = $2, model = $3, year = $4, price = $5, mileage = $6,
		     color = $7, transmission = $8, description = $9, image_url = $10,
		     is_sold = $11, updated_at = $12
		 WHERE id = $1`,
		car.ID, car.Make, car.Model, car.Year, car.Price, car.Mileage,
		car.Color, car.Transmission, car.Description, car.ImageURL,
		car.IsSold, car.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update car: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("car not found: %s", car.ID)
	}
	return nil
}

// MarkSold は車両を成約済みにする。
func (r *PostgresCarRepo) MarkSold(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE cars SET is_sold = TRUE, updated_at = now() WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to mark car sold: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("car not found: %s", id)
	}
	return nil
}

// DeleteByID は指定IDの車両を削除する。
func (r *PostgresCarRepo) DeleteByID(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM cars WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete car: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("car not found: %s", id)
	}
	return nil
}

// compile-time interface check
var _ CarRepository = (*PostgresCarRepo)(nil)
