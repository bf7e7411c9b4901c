package database

import (
	"context"
	"database/sql"
	"fmt"

	"pet_care_bot/internal/domain/feeding"

	_ "github.com/lib/pq" // PostgreSQL driver
)

var ErrScheduleNotFound = fmt.Errorf("feeding schedule not found")

type PostgresFeedingRepository struct {
	db *sql.DB
}

func NewPostgresFeedingRepository(db *sql.DB) *PostgresFeedingRepository {
	return &PostgresFeedingRepository{db: db}
}

func (r *PostgresFeedingRepository) Create(ctx context.Context, s *feeding.Schedule) error {
	query := `INSERT INTO feeding_schedules (pet_id, time_of_day, days)
               VALUES ($1, $2, $3)
               RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query, s.PetID, s.TimeOfDay, s.Days).Scan(&s.ID, &s.CreatedAt)
	if err != nil {
		return fmt.Errorf("error creating feeding schedule: %w", err)
	}
	return nil
}

func (r *PostgresFeedingRepository) GetByID(ctx context.Context, id int64) (*feeding.Schedule, error) {
	query := `SELECT id, pet_id, time_of_day, days, created_at
               FROM feeding_schedules WHERE id = $1`
	s := &feeding.Schedule{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&s.ID, &s.PetID, &s.TimeOfDay, &s.Days, &s.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrScheduleNotFound
		}
		return nil, fmt.Errorf("error getting feeding schedule by ID: %w", err)
	}
	return s, nil
}

func (r *PostgresFeedingRepository) ListByPet(ctx context.Context, petID int64) ([]*feeding.Schedule, error) {
	query := `SELECT id, pet_id, time_of_day, days, created_at
               FROM feeding_schedules WHERE pet_id = $1 ORDER BY time_of_day`
	return r.querySchedules(ctx, query, petID)
}

func (r *PostgresFeedingRepository) ListAll(ctx context.Context) ([]*feeding.Schedule, error) {
	query := `SELECT id, pet_id, time_of_day, days, created_at
               FROM feeding_schedules ORDER BY id`
	return r.querySchedules(ctx, query)
}

func (r *PostgresFeedingRepository) UpdateTime(ctx context.Context, id int64, timeOfDay string) error {
	return r.updateColumn(ctx, `UPDATE feeding_schedules SET time_of_day = $1 WHERE id = $2 RETURNING id`, timeOfDay, id)
}

func (r *PostgresFeedingRepository) UpdateDays(ctx context.Context, id int64, days string) error {
	return r.updateColumn(ctx, `UPDATE feeding_schedules SET days = $1 WHERE id = $2 RETURNING id`, days, id)
}

func (r *PostgresFeedingRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM feeding_schedules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("error deleting feeding schedule: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error checking deleted schedule rows: %w", err)
	}
	if affected == 0 {
		return ErrScheduleNotFound
	}
	return nil
}

func (r *PostgresFeedingRepository) DeleteByPet(ctx context.Context, petID int64) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM feeding_schedules WHERE pet_id = $1`, petID)
	if err != nil {
		return 0, fmt.Errorf("error deleting feeding schedules by pet: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("error checking deleted schedule rows: %w", err)
	}
	return affected, nil
}

func (r *PostgresFeedingRepository) updateColumn(ctx context.Context, query string, value string, id int64) error {
	var updatedID int64
	err := r.db.QueryRowContext(ctx, query, value, id).Scan(&updatedID)
	if err != nil {
		if err == sql.ErrNoRows {
			return ErrScheduleNotFound
		}
		return fmt.Errorf("error updating feeding schedule: %w", err)
	}
	return nil
}

func (r *PostgresFeedingRepository) querySchedules(ctx context.Context, query string, args ...any) ([]*feeding.Schedule, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing feeding schedules: %w", err)
	}
	defer rows.Close()

	schedules := make([]*feeding.Schedule, 0)
	for rows.Next() {
		s := &feeding.Schedule{}
		if err := rows.Scan(&s.ID, &s.PetID, &s.TimeOfDay, &s.Days, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning feeding schedule: %w", err)
		}
		schedules = append(schedules, s)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating feeding schedules: %w", err)
	}
	return schedules, nil
}
