package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"pet_care_bot/internal/domain/owner"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// Custom errors
var ErrOwnerNotFound = fmt.Errorf("owner not found")
var ErrDuplicateTelegramID = fmt.Errorf("owner with this Telegram ID already exists")

type PostgresOwnerRepository struct {
	db *sql.DB
}

func NewPostgresOwnerRepository(db *sql.DB) *PostgresOwnerRepository {
	return &PostgresOwnerRepository{db: db}
}

func (r *PostgresOwnerRepository) Create(ctx context.Context, o *owner.Owner) error {
	query := `INSERT INTO owners (telegram_id)
               VALUES ($1)
               RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query, o.TelegramID).Scan(&o.ID, &o.CreatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "unique constraint") && strings.Contains(err.Error(), "owners_telegram_id_key") {
			return ErrDuplicateTelegramID
		}
		return fmt.Errorf("error creating owner: %w", err)
	}
	return nil
}

func (r *PostgresOwnerRepository) GetByID(ctx context.Context, id int64) (*owner.Owner, error) {
	query := `SELECT id, telegram_id, created_at FROM owners WHERE id = $1`
	o := &owner.Owner{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&o.ID, &o.TelegramID, &o.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrOwnerNotFound
		}
		return nil, fmt.Errorf("error getting owner by ID: %w", err)
	}
	return o, nil
}

func (r *PostgresOwnerRepository) GetByTelegramID(ctx context.Context, telegramID int64) (*owner.Owner, error) {
	query := `SELECT id, telegram_id, created_at FROM owners WHERE telegram_id = $1`
	o := &owner.Owner{}
	err := r.db.QueryRowContext(ctx, query, telegramID).Scan(&o.ID, &o.TelegramID, &o.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrOwnerNotFound
		}
		return nil, fmt.Errorf("error getting owner by Telegram ID: %w", err)
	}
	return o, nil
}

func (r *PostgresOwnerRepository) ListAll(ctx context.Context) ([]*owner.Owner, error) {
	query := `SELECT id, telegram_id, created_at FROM owners ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error listing owners: %w", err)
	}
	defer rows.Close()

	owners := make([]*owner.Owner, 0)
	for rows.Next() {
		o := &owner.Owner{}
		if err := rows.Scan(&o.ID, &o.TelegramID, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning owner: %w", err)
		}
		owners = append(owners, o)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating owners: %w", err)
	}
	return owners, nil
}
