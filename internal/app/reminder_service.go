package app

import (
	"context"
	"fmt"
	"time"

	"pet_care_bot/internal/domain/feeding"
	"pet_care_bot/internal/domain/owner"
	"pet_care_bot/internal/domain/pet"
	"pet_care_bot/internal/registry"
	"pet_care_bot/internal/schedule"

	"github.com/sirupsen/logrus"
)

// RebuildReport summarizes one reconciliation pass: how many jobs were
// scheduled, how many records legitimately produced no job, and how many
// records were skipped because their stored data could not be evaluated.
type RebuildReport struct {
	Scheduled int
	Skipped   int
	Failed    int
}

// ReminderService is the reconciler: it keeps the job registry's contents in
// sync with the declarative feeding/vaccination records in the store.
type ReminderService struct {
	owners   owner.Repository
	pets     pet.Repository
	feedings feeding.Repository
	registry *registry.Registry
	logger   *logrus.Entry

	location *time.Location
	fireHour int // Hour of day vaccination anniversaries fire at
	clock    func() time.Time
}

// NewReminderService wires the reconciler. clock may be nil (time.Now);
// location may be nil (time.Local).
func NewReminderService(
	owners owner.Repository,
	pets pet.Repository,
	feedings feeding.Repository,
	reg *registry.Registry,
	logger *logrus.Entry,
	location *time.Location,
	vaccinationFireHour int,
	clock func() time.Time,
) *ReminderService {
	if clock == nil {
		clock = time.Now
	}
	if location == nil {
		location = time.Local
	}
	return &ReminderService{
		owners:   owners,
		pets:     pets,
		feedings: feedings,
		registry: reg,
		logger:   logger,
		location: location,
		fireHour: vaccinationFireHour,
		clock:    clock,
	}
}

// RebuildAll clears every FEEDING and VACCINATION job and re-derives the
// full job set from the store. Safe to call repeatedly: with no intervening
// store change the resulting (kind, owner) set is identical. A record whose
// data cannot be evaluated is logged and skipped, never aborting the batch.
func (s *ReminderService) RebuildAll(ctx context.Context) (RebuildReport, error) {
	cancelled := s.registry.CancelKind(registry.KindFeeding)
	cancelled += s.registry.CancelKind(registry.KindVaccination)
	s.logger.WithField("cancelled", cancelled).Info("Rebuilding all reminder jobs")

	var report RebuildReport

	chatIDs, err := s.ownerChatIDs(ctx)
	if err != nil {
		return report, err
	}
	allPets, err := s.pets.ListAll(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to list pets: %w", err)
	}
	petsByID := make(map[int64]*pet.Pet, len(allPets))
	for _, p := range allPets {
		petsByID[p.ID] = p
	}

	now := s.clock()

	schedules, err := s.feedings.ListAll(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to list feeding schedules: %w", err)
	}
	for _, sched := range schedules {
		if err := s.scheduleFeedingJob(sched, petsByID[sched.PetID], chatIDs, now); err != nil {
			s.logger.WithFields(logrus.Fields{
				"schedule_id": sched.ID,
				"pet_id":      sched.PetID,
			}).WithError(err).Error("Skipping feeding schedule during rebuild")
			report.Failed++
			continue
		}
		report.Scheduled++
	}

	for _, p := range allPets {
		if !p.VaccinationDate.Valid || p.VaccinationDate.String == "" {
			report.Skipped++
			continue
		}
		if err := s.scheduleVaccinationJob(p, chatIDs, now); err != nil {
			s.logger.WithField("pet_id", p.ID).WithError(err).Error("Skipping vaccination record during rebuild")
			report.Failed++
			continue
		}
		report.Scheduled++
	}

	s.logger.WithFields(logrus.Fields{
		"scheduled": report.Scheduled,
		"skipped":   report.Skipped,
		"failed":    report.Failed,
	}).Info("Reminder rebuild complete")
	return report, nil
}

// UpsertVaccination reconciles the single VACCINATION job for one pet:
// any existing job is cancelled, and exactly one new job is inserted when
// the pet's vaccination date is set. An unset date leaves none.
func (s *ReminderService) UpsertVaccination(ctx context.Context, petID int64) error {
	s.registry.CancelByOwner(registry.KindVaccination, petID)

	p, err := s.pets.GetByID(ctx, petID)
	if err != nil {
		return fmt.Errorf("failed to get pet %d: %w", petID, err)
	}
	if !p.VaccinationDate.Valid || p.VaccinationDate.String == "" {
		s.logger.WithField("pet_id", petID).Debug("No vaccination date set. No anniversary job scheduled.")
		return nil
	}

	own, err := s.owners.GetByID(ctx, p.OwnerID)
	if err != nil {
		return fmt.Errorf("failed to get owner %d: %w", p.OwnerID, err)
	}

	last, err := schedule.ParseVaccinationDate(p.VaccinationDate.String)
	if err != nil {
		s.logger.WithField("pet_id", petID).WithError(err).Error("Stored vaccination date is malformed")
		return err
	}

	now := s.clock().In(s.location)
	s.registry.Insert(registry.Job{
		Key:       registry.Key{Kind: registry.KindVaccination, OwnerID: p.ID},
		FireAt:    schedule.NextAnniversary(last, now, s.fireHour),
		Recipient: own.TelegramID,
		Text:      fmt.Sprintf("⏰ %s, пора на ежегодную вакцинацию!", p.Name),
	})
	return nil
}

// RemoveOwnerJobs cancels every pending job for (kind, ownerID); used on
// deletion, before the owning row is removed from the store.
func (s *ReminderService) RemoveOwnerJobs(kind registry.Kind, ownerID int64) int {
	return s.registry.CancelByOwner(kind, ownerID)
}

// ReconcileAfterPetAdded derives jobs for a freshly created pet. Feeding
// schedules are created separately and reconciled by their own hook.
func (s *ReminderService) ReconcileAfterPetAdded(ctx context.Context, petID int64) error {
	return s.UpsertVaccination(ctx, petID)
}

// ReconcileAfterVaccinationChanged re-derives the anniversary job after the
// pet's vaccination record was set, edited or cleared.
func (s *ReminderService) ReconcileAfterVaccinationChanged(ctx context.Context, petID int64) error {
	return s.UpsertVaccination(ctx, petID)
}

// ReconcileAfterFeedingChanged re-derives all FEEDING jobs from the store
// after any feeding schedule was created, edited or deleted.
func (s *ReminderService) ReconcileAfterFeedingChanged(ctx context.Context) error {
	s.registry.CancelKind(registry.KindFeeding)

	chatIDs, err := s.ownerChatIDs(ctx)
	if err != nil {
		return err
	}
	allPets, err := s.pets.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to list pets: %w", err)
	}
	petsByID := make(map[int64]*pet.Pet, len(allPets))
	for _, p := range allPets {
		petsByID[p.ID] = p
	}
	schedules, err := s.feedings.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to list feeding schedules: %w", err)
	}

	now := s.clock()
	for _, sched := range schedules {
		if err := s.scheduleFeedingJob(sched, petsByID[sched.PetID], chatIDs, now); err != nil {
			s.logger.WithField("schedule_id", sched.ID).WithError(err).Error("Skipping feeding schedule during reconcile")
		}
	}
	return nil
}

// ReconcileAfterDeletion sweeps jobs referencing a deleted pet. Feeding jobs
// are keyed by schedule ID and must be cancelled by the deletion flow before
// the schedule rows go away; this removes the pet-keyed anniversary job.
func (s *ReminderService) ReconcileAfterDeletion(petID int64) {
	removed := s.registry.CancelByOwner(registry.KindVaccination, petID)
	s.logger.WithFields(logrus.Fields{
		"pet_id":  petID,
		"removed": removed,
	}).Info("Jobs reconciled after pet deletion")
}

func (s *ReminderService) ownerChatIDs(ctx context.Context) (map[int64]int64, error) {
	allOwners, err := s.owners.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list owners: %w", err)
	}
	chatIDs := make(map[int64]int64, len(allOwners))
	for _, o := range allOwners {
		chatIDs[o.ID] = o.TelegramID
	}
	return chatIDs, nil
}

func (s *ReminderService) scheduleFeedingJob(sched *feeding.Schedule, p *pet.Pet, chatIDs map[int64]int64, now time.Time) error {
	if p == nil {
		return fmt.Errorf("feeding schedule %d references unknown pet %d", sched.ID, sched.PetID)
	}
	chatID, ok := chatIDs[p.OwnerID]
	if !ok {
		return fmt.Errorf("pet %d references unknown owner %d", p.ID, p.OwnerID)
	}

	rule, err := schedule.FeedingRule(sched.TimeOfDay, sched.Days, s.location)
	if err != nil {
		return err
	}

	s.registry.Insert(registry.Job{
		Key:       registry.Key{Kind: registry.KindFeeding, OwnerID: sched.ID},
		FireAt:    rule.Next(now),
		Recipient: chatID,
		Text:      fmt.Sprintf("⏰ Пора покормить %s!", p.Name),
		Rule:      rule,
	})
	return nil
}

func (s *ReminderService) scheduleVaccinationJob(p *pet.Pet, chatIDs map[int64]int64, now time.Time) error {
	chatID, ok := chatIDs[p.OwnerID]
	if !ok {
		return fmt.Errorf("pet %d references unknown owner %d", p.ID, p.OwnerID)
	}

	last, err := schedule.ParseVaccinationDate(p.VaccinationDate.String)
	if err != nil {
		return err
	}

	s.registry.Insert(registry.Job{
		Key:       registry.Key{Kind: registry.KindVaccination, OwnerID: p.ID},
		FireAt:    schedule.NextAnniversary(last, now.In(s.location), s.fireHour),
		Recipient: chatID,
		Text:      fmt.Sprintf("⏰ %s, пора на ежегодную вакцинацию!", p.Name),
	})
	return nil
}
