package database

import (
	"context"
	"database/sql"
	"fmt"

	"pet_care_bot/internal/domain/pet"

	_ "github.com/lib/pq" // PostgreSQL driver
)

var ErrPetNotFound = fmt.Errorf("pet not found")

type PostgresPetRepository struct {
	db *sql.DB
}

func NewPostgresPetRepository(db *sql.DB) *PostgresPetRepository {
	return &PostgresPetRepository{db: db}
}

func (r *PostgresPetRepository) Create(ctx context.Context, p *pet.Pet) error {
	query := `INSERT INTO pets (owner_id, name, species, breed, vaccination_date)
               VALUES ($1, $2, $3, $4, $5)
               RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query, p.OwnerID, p.Name, p.Species, p.Breed, p.VaccinationDate).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("error creating pet: %w", err)
	}
	return nil
}

func (r *PostgresPetRepository) GetByID(ctx context.Context, id int64) (*pet.Pet, error) {
	query := `SELECT id, owner_id, name, species, breed, vaccination_date, created_at, updated_at
               FROM pets WHERE id = $1`
	p := &pet.Pet{}
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&p.ID, &p.OwnerID, &p.Name, &p.Species, &p.Breed, &p.VaccinationDate, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrPetNotFound
		}
		return nil, fmt.Errorf("error getting pet by ID: %w", err)
	}
	return p, nil
}

func (r *PostgresPetRepository) ListByOwner(ctx context.Context, ownerID int64) ([]*pet.Pet, error) {
	query := `SELECT id, owner_id, name, species, breed, vaccination_date, created_at, updated_at
               FROM pets WHERE owner_id = $1 ORDER BY name`
	return r.queryPets(ctx, query, ownerID)
}

func (r *PostgresPetRepository) ListAll(ctx context.Context) ([]*pet.Pet, error) {
	query := `SELECT id, owner_id, name, species, breed, vaccination_date, created_at, updated_at
               FROM pets ORDER BY id`
	return r.queryPets(ctx, query)
}

func (r *PostgresPetRepository) UpdateVaccinationDate(ctx context.Context, petID int64, date sql.NullString) error {
	query := `UPDATE pets SET vaccination_date = $1, updated_at = NOW()
               WHERE id = $2
               RETURNING id`

	var id int64
	err := r.db.QueryRowContext(ctx, query, date, petID).Scan(&id)
	if err != nil {
		if err == sql.ErrNoRows {
			return ErrPetNotFound
		}
		return fmt.Errorf("error updating vaccination date: %w", err)
	}
	return nil
}

func (r *PostgresPetRepository) Delete(ctx context.Context, petID int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM pets WHERE id = $1`, petID)
	if err != nil {
		return fmt.Errorf("error deleting pet: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error checking deleted pet rows: %w", err)
	}
	if affected == 0 {
		return ErrPetNotFound
	}
	return nil
}

func (r *PostgresPetRepository) queryPets(ctx context.Context, query string, args ...any) ([]*pet.Pet, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing pets: %w", err)
	}
	defer rows.Close()

	pets := make([]*pet.Pet, 0)
	for rows.Next() {
		p := &pet.Pet{}
		if err := rows.Scan(&p.ID, &p.OwnerID, &p.Name, &p.Species, &p.Breed, &p.VaccinationDate, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("error scanning pet: %w", err)
		}
		pets = append(pets, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pets: %w", err)
	}
	return pets, nil
}
