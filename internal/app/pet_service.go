package app

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"pet_care_bot/internal/domain/feeding"
	"pet_care_bot/internal/domain/owner"
	"pet_care_bot/internal/domain/pet"
	idb "pet_care_bot/internal/infra/database"
	"pet_care_bot/internal/registry"
	"pet_care_bot/internal/schedule"

	"github.com/sirupsen/logrus"
)

// Custom application-level errors for the pet service.
var (
	ErrNotPetOwner             = fmt.Errorf("pet does not belong to this owner")
	ErrVaccinationDateInFuture = fmt.Errorf("vaccination date is in the future")
)

// PetService handles user-driven mutations of pets, vaccination records and
// feeding schedules, and triggers reconciliation after each one. Deletions
// cancel the affected jobs before any row is removed, so a job can never
// fire against an entity that is already gone.
type PetService struct {
	owners    owner.Repository
	pets      pet.Repository
	feedings  feeding.Repository
	reminders *ReminderService
	logger    *logrus.Entry
	clock     func() time.Time
}

func NewPetService(
	owners owner.Repository,
	pets pet.Repository,
	feedings feeding.Repository,
	reminders *ReminderService,
	logger *logrus.Entry,
	clock func() time.Time,
) *PetService {
	if clock == nil {
		clock = time.Now
	}
	return &PetService{
		owners:    owners,
		pets:      pets,
		feedings:  feedings,
		reminders: reminders,
		logger:    logger,
		clock:     clock,
	}
}

// RegisterOwner returns the owner for a Telegram chat, creating it on first
// contact. Idempotent.
func (s *PetService) RegisterOwner(ctx context.Context, telegramID int64) (*owner.Owner, error) {
	existing, err := s.owners.GetByTelegramID(ctx, telegramID)
	if err == nil {
		return existing, nil
	}
	if err != idb.ErrOwnerNotFound {
		return nil, fmt.Errorf("failed to check existing owner: %w", err)
	}

	newOwner := &owner.Owner{TelegramID: telegramID}
	if createErr := s.owners.Create(ctx, newOwner); createErr != nil {
		return nil, fmt.Errorf("failed to register owner: %w", createErr)
	}
	s.logger.WithField("telegram_id", telegramID).Info("New owner registered")
	return newOwner, nil
}

// AddPet creates a pet for the owner behind ownerTelegramID.
func (s *PetService) AddPet(ctx context.Context, ownerTelegramID int64, name string, species pet.Species, breed string) (*pet.Pet, error) {
	own, err := s.RegisterOwner(ctx, ownerTelegramID)
	if err != nil {
		return nil, err
	}

	newPet := &pet.Pet{
		OwnerID: own.ID,
		Name:    name,
		Species: species,
	}
	if breed != "" {
		newPet.Breed = sql.NullString{String: breed, Valid: true}
	}
	if err := s.pets.Create(ctx, newPet); err != nil {
		return nil, fmt.Errorf("failed to create pet: %w", err)
	}

	if err := s.reminders.ReconcileAfterPetAdded(ctx, newPet.ID); err != nil {
		s.logger.WithField("pet_id", newPet.ID).WithError(err).Error("Reconcile after pet creation failed")
	}
	s.logger.WithFields(logrus.Fields{"pet_id": newPet.ID, "name": name}).Info("Pet added")
	return newPet, nil
}

// ListPets returns all pets of the owner behind ownerTelegramID.
func (s *PetService) ListPets(ctx context.Context, ownerTelegramID int64) ([]*pet.Pet, error) {
	own, err := s.owners.GetByTelegramID(ctx, ownerTelegramID)
	if err != nil {
		return nil, err
	}
	return s.pets.ListByOwner(ctx, own.ID)
}

// DeletePet removes a pet with all of its feeding schedules. Every scheduled
// job owned by the pet or its schedules is cancelled first, then the rows are
// deleted. This ordering is required, not an optimization.
func (s *PetService) DeletePet(ctx context.Context, ownerTelegramID, petID int64) error {
	p, err := s.ownedPet(ctx, ownerTelegramID, petID)
	if err != nil {
		return err
	}

	schedules, err := s.feedings.ListByPet(ctx, p.ID)
	if err != nil {
		return fmt.Errorf("failed to list feeding schedules for pet %d: %w", p.ID, err)
	}
	for _, sched := range schedules {
		s.reminders.RemoveOwnerJobs(registry.KindFeeding, sched.ID)
	}
	s.reminders.ReconcileAfterDeletion(p.ID)

	if _, err := s.feedings.DeleteByPet(ctx, p.ID); err != nil {
		return fmt.Errorf("failed to delete feeding schedules for pet %d: %w", p.ID, err)
	}
	if err := s.pets.Delete(ctx, p.ID); err != nil {
		return fmt.Errorf("failed to delete pet %d: %w", p.ID, err)
	}

	s.logger.WithFields(logrus.Fields{"pet_id": p.ID, "name": p.Name}).Info("Pet deleted")
	return nil
}

// SetVaccinationDate records the pet's last vaccination date. Future dates
// are rejected: an anniversary is always derived from a past vaccination.
func (s *PetService) SetVaccinationDate(ctx context.Context, ownerTelegramID, petID int64, dateValue string) error {
	p, err := s.ownedPet(ctx, ownerTelegramID, petID)
	if err != nil {
		return err
	}

	parsed, err := schedule.ParseVaccinationDate(dateValue)
	if err != nil {
		return err
	}
	now := s.clock()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if parsed.After(today) {
		return ErrVaccinationDateInFuture
	}

	if err := s.pets.UpdateVaccinationDate(ctx, p.ID, sql.NullString{String: dateValue, Valid: true}); err != nil {
		return fmt.Errorf("failed to update vaccination date for pet %d: %w", p.ID, err)
	}
	if err := s.reminders.ReconcileAfterVaccinationChanged(ctx, p.ID); err != nil {
		s.logger.WithField("pet_id", p.ID).WithError(err).Error("Reconcile after vaccination change failed")
	}
	return nil
}

// ClearVaccinationDate removes the pet's vaccination record; the pending
// anniversary job is cancelled by the subsequent reconcile.
func (s *PetService) ClearVaccinationDate(ctx context.Context, ownerTelegramID, petID int64) error {
	p, err := s.ownedPet(ctx, ownerTelegramID, petID)
	if err != nil {
		return err
	}

	if err := s.pets.UpdateVaccinationDate(ctx, p.ID, sql.NullString{}); err != nil {
		return fmt.Errorf("failed to clear vaccination date for pet %d: %w", p.ID, err)
	}
	if err := s.reminders.ReconcileAfterVaccinationChanged(ctx, p.ID); err != nil {
		s.logger.WithField("pet_id", p.ID).WithError(err).Error("Reconcile after vaccination change failed")
	}
	return nil
}

// AddFeeding creates a feeding schedule for the pet. The time and day
// selector are validated (and the selector normalized) before storage so the
// reconciler never has to reject a row this service accepted.
func (s *PetService) AddFeeding(ctx context.Context, ownerTelegramID, petID int64, timeOfDay, days string) (*feeding.Schedule, error) {
	p, err := s.ownedPet(ctx, ownerTelegramID, petID)
	if err != nil {
		return nil, err
	}

	if _, _, err := schedule.ParseTimeOfDay(timeOfDay); err != nil {
		return nil, err
	}
	normalizedDays, err := schedule.ParseDaySelector(days)
	if err != nil {
		return nil, err
	}

	sched := &feeding.Schedule{
		PetID:     p.ID,
		TimeOfDay: timeOfDay,
		Days:      normalizedDays,
	}
	if err := s.feedings.Create(ctx, sched); err != nil {
		return nil, fmt.Errorf("failed to create feeding schedule: %w", err)
	}

	if err := s.reminders.ReconcileAfterFeedingChanged(ctx); err != nil {
		s.logger.WithField("schedule_id", sched.ID).WithError(err).Error("Reconcile after feeding change failed")
	}
	s.logger.WithFields(logrus.Fields{
		"schedule_id": sched.ID,
		"pet_id":      p.ID,
		"time":        timeOfDay,
		"days":        normalizedDays,
	}).Info("Feeding schedule added")
	return sched, nil
}

// ListFeedings returns the feeding schedules of one owned pet.
func (s *PetService) ListFeedings(ctx context.Context, ownerTelegramID, petID int64) ([]*feeding.Schedule, error) {
	p, err := s.ownedPet(ctx, ownerTelegramID, petID)
	if err != nil {
		return nil, err
	}
	return s.feedings.ListByPet(ctx, p.ID)
}

// UpdateFeedingTime changes the time-of-day of an existing schedule.
func (s *PetService) UpdateFeedingTime(ctx context.Context, ownerTelegramID, scheduleID int64, timeOfDay string) error {
	sched, err := s.ownedSchedule(ctx, ownerTelegramID, scheduleID)
	if err != nil {
		return err
	}
	if _, _, err := schedule.ParseTimeOfDay(timeOfDay); err != nil {
		return err
	}
	if err := s.feedings.UpdateTime(ctx, sched.ID, timeOfDay); err != nil {
		return fmt.Errorf("failed to update feeding time for schedule %d: %w", sched.ID, err)
	}
	if err := s.reminders.ReconcileAfterFeedingChanged(ctx); err != nil {
		s.logger.WithField("schedule_id", sched.ID).WithError(err).Error("Reconcile after feeding change failed")
	}
	return nil
}

// UpdateFeedingDays changes the day selector of an existing schedule.
func (s *PetService) UpdateFeedingDays(ctx context.Context, ownerTelegramID, scheduleID int64, days string) error {
	sched, err := s.ownedSchedule(ctx, ownerTelegramID, scheduleID)
	if err != nil {
		return err
	}
	normalizedDays, err := schedule.ParseDaySelector(days)
	if err != nil {
		return err
	}
	if err := s.feedings.UpdateDays(ctx, sched.ID, normalizedDays); err != nil {
		return fmt.Errorf("failed to update feeding days for schedule %d: %w", sched.ID, err)
	}
	if err := s.reminders.ReconcileAfterFeedingChanged(ctx); err != nil {
		s.logger.WithField("schedule_id", sched.ID).WithError(err).Error("Reconcile after feeding change failed")
	}
	return nil
}

// DeleteFeeding removes one feeding schedule, cancelling its pending jobs
// before the row is deleted.
func (s *PetService) DeleteFeeding(ctx context.Context, ownerTelegramID, scheduleID int64) error {
	sched, err := s.ownedSchedule(ctx, ownerTelegramID, scheduleID)
	if err != nil {
		return err
	}

	s.reminders.RemoveOwnerJobs(registry.KindFeeding, sched.ID)
	if err := s.feedings.Delete(ctx, sched.ID); err != nil {
		return fmt.Errorf("failed to delete feeding schedule %d: %w", sched.ID, err)
	}
	s.logger.WithField("schedule_id", sched.ID).Info("Feeding schedule deleted")
	return nil
}

// ownedPet fetches a pet and verifies it belongs to the calling owner.
func (s *PetService) ownedPet(ctx context.Context, ownerTelegramID, petID int64) (*pet.Pet, error) {
	own, err := s.owners.GetByTelegramID(ctx, ownerTelegramID)
	if err != nil {
		return nil, err
	}
	p, err := s.pets.GetByID(ctx, petID)
	if err != nil {
		return nil, err
	}
	if p.OwnerID != own.ID {
		return nil, ErrNotPetOwner
	}
	return p, nil
}

func (s *PetService) ownedSchedule(ctx context.Context, ownerTelegramID, scheduleID int64) (*feeding.Schedule, error) {
	sched, err := s.feedings.GetByID(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	if _, err := s.ownedPet(ctx, ownerTelegramID, sched.PetID); err != nil {
		return nil, err
	}
	return sched, nil
}
