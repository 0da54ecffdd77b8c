package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/kurumart/internal/model"
)

// PostgresInquiryRepo はPostgreSQLを使用した問い合わせリポジトリ。
type PostgresInquiryRepo struct {
	db *sql.DB
}

// NewPostgresInquiryRepo はPostgresInquiryRepoを生成する。
func NewPostgresInquiryRepo(db *sql.DB) *PostgresInquiryRepo {
	return &PostgresInquiryRepo{db: db}
}

const inquiryColumns = `id, car_id, user_id, name, email, message, status, answered_at, created_at`

func scanInquiry(row interface{ Scan(...any) error }) (*model.Inquiry, error) {
	inq := &model.Inquiry{}
	var userID sql.NullString
	var answeredAt sql.NullTime

	err := row.Scan(
		&inq.ID, &inq.CarID, &userID, &inq.Name, &inq.Email,
		&inq.Message, &inq.Status, &answeredAt, &inq.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	inq.UserID = userID.String
	if answeredAt.Valid {
		inq.AnsweredAt = &answeredAt.Time
	}
	return inq, nil
}

// Create は問い合わせを作成する。
func (r *PostgresInquiryRepo) Create(ctx context.Context, inquiry *model.Inquiry) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO inquiries (id, car_id, user_id, name, email, message, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		inquiry.ID, inquiry.CarID, nullString(inquiry.UserID),
		inquiry.Name, inquiry.Email, inquiry.Message, inquiry.Status, inquiry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert inquiry: %w", err)
	}
	return nil
}

// FindByID は指定IDの問い合わせを取得する。見つからない場合はnilを返す。
func (r *PostgresInquiryRepo) FindByID(ctx context.Context, id string) (*model.Inquiry, error) {
	inq, err := scanInquiry(r.db.QueryRowContext(ctx,
		`SELECT `+inquiryColumns+` FROM inquiries WHERE id = $1`,
		id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find inquiry: %w", err)
	}
	return inq, nil
}

// ListByStatus は指定ステータスの問い合わせ一覧を作成日時降順で返す。
// statusが空の場合は全件を返す。
func (r *PostgresInquiryRepo) ListByStatus(ctx context.Context, status model.InquiryStatus, limit, offset int) ([]*model.Inquiry, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	var rows *sql.Rows
	var err error
	if status == "" {
		rows, err = r.db.QueryContext(ctx,
			`SELECT `+inquiryColumns+` FROM inquiries ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
			limit, offset,
		)
	} else {
		rows, err = r.db.QueryContext(ctx,
			`SELECT `+inquiryColumns+` FROM inquiries WHERE status = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
			status, limit, offset,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list inquiries: %w", err)
	}
	defer rows.Close()

	var inquiries []*model.Inquiry
	for rows.Next() {
		inq, err := scanInquiry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan inquiry: %w", err)
		}
		inquiries = append(inquiries, inq)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate inquiries: %w", err)
	}
	return inquiries, nil
}

// MarkAnswered は問い合わせを回答済みにする。
func (r *PostgresInquiryRepo) MarkAnswered(ctx context.Context, id string, answeredAt time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE inquiries SET status = $2, answered_at = $3 WHERE id = $1`,
		id, model.InquiryStatusAnswered, answeredAt,
	)
	if err != nil {
		return fmt.Errorf("failed to mark inquiry answered: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("inquiry not found: %s", id)
	}
	return nil
}

// compile-time interface check
var _ InquiryRepository = (*PostgresInquiryRepo)(nil)
