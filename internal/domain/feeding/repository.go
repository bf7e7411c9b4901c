package feeding

import "context"

// Repository defines the operations for persisting and retrieving feeding schedules.
type Repository interface {
	Create(ctx context.Context, s *Schedule) error
	GetByID(ctx context.Context, id int64) (*Schedule, error)
	ListByPet(ctx context.Context, petID int64) ([]*Schedule, error)
	ListAll(ctx context.Context) ([]*Schedule, error)
	UpdateTime(ctx context.Context, id int64, timeOfDay string) error
	UpdateDays(ctx context.Context, id int64, days string) error
	Delete(ctx context.Context, id int64) error
	DeleteByPet(ctx context.Context, petID int64) (int64, error)
}
