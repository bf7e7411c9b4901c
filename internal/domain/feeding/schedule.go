package feeding

import "time"

// Schedule is a declarative feeding reminder rule for one pet.
// TimeOfDay is stored as "HH:MM"; Days is either "daily" or a comma-joined
// set of three-letter weekday codes ("mon,wed,fri").
type Schedule struct {
	ID        int64
	PetID     int64
	TimeOfDay string
	Days      string
	CreatedAt time.Time
}
