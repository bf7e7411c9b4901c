package pet

import (
	"database/sql"
	"time"
)

// Species is the kind of animal a pet is.
type Species string

const (
	SpeciesCat Species = "кошка"
	SpeciesDog Species = "собака"
)

// Pet represents a single pet belonging to one owner.
// VaccinationDate holds the last vaccination date as stored textual form
// (DD.MM.YYYY or ISO); the schedule evaluator parses it when deriving jobs.
type Pet struct {
	ID              int64
	OwnerID         int64
	Name            string
	Species         Species
	Breed           sql.NullString // Optional
	VaccinationDate sql.NullString // Unset means no anniversary reminders
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
