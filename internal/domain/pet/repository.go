package pet

import (
	"context"
	"database/sql"
)

// Repository defines the operations for persisting and retrieving Pet entities.
type Repository interface {
	Create(ctx context.Context, p *Pet) error
	GetByID(ctx context.Context, id int64) (*Pet, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]*Pet, error)
	ListAll(ctx context.Context) ([]*Pet, error)
	// UpdateVaccinationDate sets or clears the stored vaccination date.
	UpdateVaccinationDate(ctx context.Context, petID int64, date sql.NullString) error
	Delete(ctx context.Context, petID int64) error
}
