package app

import (
	"context"
	"testing"
	"time"

	idb "pet_care_bot/internal/infra/database"
	"pet_care_bot/internal/registry"
	"pet_care_bot/internal/schedule"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterOwnerIsIdempotent(t *testing.T) {
	env := newTestEnv(time.Date(2024, 6, 15, 12, 0, 0, 0, time.Local))
	ctx := context.Background()

	first, err := env.petSvc.RegisterOwner(ctx, 500)
	require.NoError(t, err)
	second, err := env.petSvc.RegisterOwner(ctx, 500)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	all, err := env.owners.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestSetVaccinationDateRejectsFutureDate(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.Local)
	env := newTestEnv(now)
	ctx := context.Background()

	own := env.seedOwner(t, 500)
	p := env.seedPet(t, own.ID, "Барс", "")

	err := env.petSvc.SetVaccinationDate(ctx, 500, p.ID, "01.01.2025")
	assert.ErrorIs(t, err, ErrVaccinationDateInFuture)

	stored, err := env.pets.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.False(t, stored.VaccinationDate.Valid, "rejected date must not be stored")
	assert.Equal(t, 0, env.registry.Len())
}

func TestSetVaccinationDateStoresAndSchedules(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.Local)
	env := newTestEnv(now)
	ctx := context.Background()

	own := env.seedOwner(t, 500)
	p := env.seedPet(t, own.ID, "Барс", "")

	// Today's date is allowed; only strictly future dates are rejected.
	require.NoError(t, env.petSvc.SetVaccinationDate(ctx, 500, p.ID, "15.06.2024"))

	stored, err := env.pets.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "15.06.2024", stored.VaccinationDate.String)

	jobs := env.registry.Snapshot()
	require.Len(t, jobs, 1)
	assert.Equal(t, registry.Key{Kind: registry.KindVaccination, OwnerID: p.ID}, jobs[0].Key)
	assert.Equal(t, time.Date(2025, 6, 15, 9, 0, 0, 0, time.Local), jobs[0].FireAt)
}

func TestSetVaccinationDateRejectsMalformedInput(t *testing.T) {
	env := newTestEnv(time.Date(2024, 6, 15, 12, 0, 0, 0, time.Local))
	ctx := context.Background()

	own := env.seedOwner(t, 500)
	p := env.seedPet(t, own.ID, "Барс", "")

	err := env.petSvc.SetVaccinationDate(ctx, 500, p.ID, "15/06/2024")
	assert.ErrorIs(t, err, schedule.ErrInvalidSchedule)
}

func TestClearVaccinationDateCancelsJob(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.Local)
	env := newTestEnv(now)
	ctx := context.Background()

	own := env.seedOwner(t, 500)
	p := env.seedPet(t, own.ID, "Барс", "10.03.2023")
	require.NoError(t, env.reminders.UpsertVaccination(ctx, p.ID))
	require.Equal(t, 1, env.registry.Len())

	require.NoError(t, env.petSvc.ClearVaccinationDate(ctx, 500, p.ID))

	stored, err := env.pets.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.False(t, stored.VaccinationDate.Valid)
	assert.Equal(t, 0, env.registry.Len())
}

func TestMutationsGuardOwnership(t *testing.T) {
	env := newTestEnv(time.Date(2024, 6, 15, 12, 0, 0, 0, time.Local))
	ctx := context.Background()

	own := env.seedOwner(t, 500)
	env.seedOwner(t, 600)
	p := env.seedPet(t, own.ID, "Барс", "")
	sched := env.seedFeeding(t, p.ID, "08:30", "daily")

	assert.ErrorIs(t, env.petSvc.DeletePet(ctx, 600, p.ID), ErrNotPetOwner)
	assert.ErrorIs(t, env.petSvc.SetVaccinationDate(ctx, 600, p.ID, "10.03.2023"), ErrNotPetOwner)
	assert.ErrorIs(t, env.petSvc.DeleteFeeding(ctx, 600, sched.ID), ErrNotPetOwner)
	assert.ErrorIs(t, env.petSvc.UpdateFeedingTime(ctx, 600, sched.ID, "09:00"), ErrNotPetOwner)

	_, err := env.pets.GetByID(ctx, p.ID)
	assert.NoError(t, err, "foreign mutations must not touch the record")
}

func TestAddFeedingValidatesBeforeStorage(t *testing.T) {
	env := newTestEnv(time.Date(2024, 6, 15, 12, 0, 0, 0, time.Local))
	ctx := context.Background()

	own := env.seedOwner(t, 500)
	p := env.seedPet(t, own.ID, "Барс", "")

	_, err := env.petSvc.AddFeeding(ctx, 500, p.ID, "25:00", "daily")
	assert.ErrorIs(t, err, schedule.ErrInvalidSchedule)
	_, err = env.petSvc.AddFeeding(ctx, 500, p.ID, "08:30", "mon,xyz")
	assert.ErrorIs(t, err, schedule.ErrInvalidSchedule)

	schedules, err := env.feedings.ListByPet(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, schedules, "rejected schedules must not be stored")
	assert.Equal(t, 0, env.registry.Len())
}

func TestAddFeedingNormalizesDaySelector(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.Local) // Saturday
	env := newTestEnv(now)
	ctx := context.Background()

	own := env.seedOwner(t, 500)
	p := env.seedPet(t, own.ID, "Барс", "")

	sched, err := env.petSvc.AddFeeding(ctx, 500, p.ID, "08:30", "MON, wed")
	require.NoError(t, err)
	assert.Equal(t, "mon,wed", sched.Days)

	jobs := env.registry.Snapshot()
	require.Len(t, jobs, 1)
	assert.Equal(t, registry.Key{Kind: registry.KindFeeding, OwnerID: sched.ID}, jobs[0].Key)
	assert.Equal(t, time.Date(2024, 6, 17, 8, 30, 0, 0, time.Local), jobs[0].FireAt,
		"next matching weekday is Monday the 17th")
}

func TestUpdateFeedingTimeReconcilesJob(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.Local)
	env := newTestEnv(now)
	ctx := context.Background()

	own := env.seedOwner(t, 500)
	p := env.seedPet(t, own.ID, "Барс", "")
	sched, err := env.petSvc.AddFeeding(ctx, 500, p.ID, "08:30", "daily")
	require.NoError(t, err)

	require.NoError(t, env.petSvc.UpdateFeedingTime(ctx, 500, sched.ID, "19:00"))

	jobs := env.registry.Snapshot()
	require.Len(t, jobs, 1)
	assert.Equal(t, time.Date(2024, 6, 15, 19, 0, 0, 0, time.Local), jobs[0].FireAt,
		"the new time is still ahead today")

	err = env.petSvc.UpdateFeedingTime(ctx, 500, sched.ID, "not-a-time")
	assert.ErrorIs(t, err, schedule.ErrInvalidSchedule)
	stored, err := env.feedings.GetByID(ctx, sched.ID)
	require.NoError(t, err)
	assert.Equal(t, "19:00", stored.TimeOfDay, "invalid update must not overwrite the stored time")
}

func TestDeleteFeedingForUnknownSchedule(t *testing.T) {
	env := newTestEnv(time.Date(2024, 6, 15, 12, 0, 0, 0, time.Local))
	env.seedOwner(t, 500)

	err := env.petSvc.DeleteFeeding(context.Background(), 500, 42)
	assert.ErrorIs(t, err, idb.ErrScheduleNotFound)
}
