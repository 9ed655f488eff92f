package lifecycle

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roosthq/roost/internal/shared"
)

func TestCancelScheduledArchivePremisesRestoresGroup(t *testing.T) {
	store := newFakeStore()
	p := store.addPremises(date(2025, 1, 1), nil)
	b1 := store.addBedspace(p.ID, "B1", date(2025, 1, 1), nil)
	b2 := store.addBedspace(p.ID, "B2", date(2025, 2, 1), nil)
	svc := newTestService(store, &fakeSource{}, nil)

	_, err := svc.ArchivePremises(context.Background(), p.ID, date(2026, 4, 1))
	require.NoError(t, err)

	got, err := svc.CancelScheduledArchivePremises(context.Background(), p.ID)
	require.NoError(t, err)

	// Round trip: the whole subtree is back where it started.
	assert.Nil(t, got.EndDate)
	assert.Equal(t, date(2025, 1, 1), got.StartDate)
	assert.Nil(t, store.bedspaceRows[b1.ID].EndDate)
	assert.Nil(t, store.bedspaceRows[b2.ID].EndDate)
	for _, e := range store.events {
		assert.False(t, e.Active())
	}
}

func TestCancelScheduledArchivePremisesStateChecks(t *testing.T) {
	store := newFakeStore()
	online := store.addPremises(date(2025, 1, 1), nil)
	past := date(2026, 2, 1)
	archived := store.addPremises(date(2025, 1, 1), &past)
	svc := newTestService(store, &fakeSource{}, nil)

	_, err := svc.CancelScheduledArchivePremises(context.Background(), online.ID)
	var serr *shared.StateError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, StateNotScheduledToArchive, serr.Code)

	_, err = svc.CancelScheduledArchivePremises(context.Background(), archived.ID)
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, StateAlreadyArchived, serr.Code)
}

func TestCancelScheduledArchiveBedspaceAlone(t *testing.T) {
	store := newFakeStore()
	p := store.addPremises(date(2025, 1, 1), nil)
	b := store.addBedspace(p.ID, "B1", date(2025, 1, 1), nil)
	store.addBedspace(p.ID, "B2", date(2025, 1, 1), nil)
	svc := newTestService(store, &fakeSource{}, nil)

	_, err := svc.ArchiveBedspace(context.Background(), b.ID, date(2026, 4, 1))
	require.NoError(t, err)

	got, err := svc.CancelScheduledArchiveBedspace(context.Background(), b.ID)
	require.NoError(t, err)

	assert.Nil(t, got.EndDate)
	assert.Nil(t, store.premisesRows[p.ID].EndDate)
	events := store.eventsFor(ResourceBedspace, b.ID, KindArchived)
	require.Len(t, events, 1)
	assert.False(t, events[0].Active())
}

func TestCancelScheduledArchiveBedspaceCancelsImplicitPremisesArchive(t *testing.T) {
	store := newFakeStore()
	p := store.addPremises(date(2025, 1, 1), nil)
	earlier := date(2026, 3, 20)
	sibling := store.addBedspace(p.ID, "B1", date(2025, 1, 1), &earlier)
	b := store.addBedspace(p.ID, "B2", date(2025, 1, 1), nil)
	svc := newTestService(store, &fakeSource{}, nil)

	// Archiving the last open bedspace implicitly archives the
	// premises in the same transaction group.
	_, err := svc.ArchiveBedspace(context.Background(), b.ID, date(2026, 4, 1))
	require.NoError(t, err)
	require.NotNil(t, store.premisesRows[p.ID].EndDate)

	got, err := svc.CancelScheduledArchiveBedspace(context.Background(), b.ID)
	require.NoError(t, err)

	// Cancelling the bedspace archive unwinds the premises archive
	// with it; the sibling's own scheduled end date is untouched.
	assert.Nil(t, got.EndDate)
	assert.Nil(t, store.premisesRows[p.ID].EndDate)
	assert.Equal(t, earlier, *store.bedspaceRows[sibling.ID].EndDate)
}

func TestCancelScheduledArchiveBedspaceStateChecks(t *testing.T) {
	store := newFakeStore()
	p := store.addPremises(date(2025, 1, 1), nil)
	open := store.addBedspace(p.ID, "B1", date(2025, 1, 1), nil)
	past := date(2026, 2, 1)
	ended := store.addBedspace(p.ID, "B2", date(2025, 1, 1), &past)
	svc := newTestService(store, &fakeSource{}, nil)

	_, err := svc.CancelScheduledArchiveBedspace(context.Background(), open.ID)
	var serr *shared.StateError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, StateNotScheduledToArchive, serr.Code)

	_, err = svc.CancelScheduledArchiveBedspace(context.Background(), ended.ID)
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, StateAlreadyArchived, serr.Code)
}

func TestCancelScheduledUnarchivePremisesRestoresGroup(t *testing.T) {
	store := newFakeStore()
	archivedAt := date(2026, 2, 20)
	p := store.addPremises(date(2025, 1, 1), &archivedAt)
	b := store.addBedspace(p.ID, "B1", date(2025, 1, 1), &archivedAt)
	svc := newTestService(store, &fakeSource{}, nil)

	// Restart in the future so the unarchive stays scheduled.
	restart := date(2026, 3, 10)
	_, err := svc.UnarchivePremises(context.Background(), p.ID, restart)
	require.NoError(t, err)
	require.Equal(t, restart, store.premisesRows[p.ID].StartDate)

	got, err := svc.CancelScheduledUnarchivePremises(context.Background(), p.ID)
	require.NoError(t, err)

	// Round trip: archived window restored for premises and bedspace.
	assert.Equal(t, date(2025, 1, 1), got.StartDate)
	require.NotNil(t, got.EndDate)
	assert.Equal(t, archivedAt, *got.EndDate)
	assert.Equal(t, date(2025, 1, 1), store.bedspaceRows[b.ID].StartDate)
	require.NotNil(t, store.bedspaceRows[b.ID].EndDate)
	assert.Equal(t, archivedAt, *store.bedspaceRows[b.ID].EndDate)
}

func TestCancelScheduledUnarchivePremisesStateChecks(t *testing.T) {
	store := newFakeStore()
	p := store.addPremises(date(2025, 1, 1), nil)
	svc := newTestService(store, &fakeSource{}, nil)

	_, err := svc.CancelScheduledUnarchivePremises(context.Background(), p.ID)
	var serr *shared.StateError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, StateNotScheduledToUnarchive, serr.Code)
}

func TestCancelScheduledUnarchiveBedspace(t *testing.T) {
	store := newFakeStore()
	p := store.addPremises(date(2025, 1, 1), nil)
	archivedAt := date(2026, 2, 15)
	b := store.addBedspace(p.ID, "B1", date(2025, 1, 1), &archivedAt)
	svc := newTestService(store, &fakeSource{}, nil)

	restart := date(2026, 3, 10)
	_, err := svc.UnarchiveBedspace(context.Background(), b.ID, restart)
	require.NoError(t, err)

	got, err := svc.CancelScheduledUnarchiveBedspace(context.Background(), b.ID)
	require.NoError(t, err)

	assert.Equal(t, date(2025, 1, 1), got.StartDate)
	require.NotNil(t, got.EndDate)
	assert.Equal(t, archivedAt, *got.EndDate)
}

func TestCancelScheduledUnarchiveBedspaceCancelsPremisesCascade(t *testing.T) {
	store := newFakeStore()
	archivedAt := date(2026, 2, 20)
	p := store.addPremises(date(2025, 1, 1), &archivedAt)
	b := store.addBedspace(p.ID, "B1", date(2025, 1, 1), &archivedAt)
	svc := newTestService(store, &fakeSource{}, nil)

	restart := date(2026, 3, 10)
	_, err := svc.UnarchivePremises(context.Background(), p.ID, restart)
	require.NoError(t, err)

	// The bedspace unarchive came from a premises cascade, so the
	// cancellation recurses to the whole group.
	_, err = svc.CancelScheduledUnarchiveBedspace(context.Background(), b.ID)
	require.NoError(t, err)

	assert.Equal(t, date(2025, 1, 1), store.premisesRows[p.ID].StartDate)
	require.NotNil(t, store.premisesRows[p.ID].EndDate)
	assert.Equal(t, archivedAt, *store.premisesRows[p.ID].EndDate)
	require.NotNil(t, store.bedspaceRows[b.ID].EndDate)
	assert.Equal(t, archivedAt, *store.bedspaceRows[b.ID].EndDate)
}

func TestCancelScheduledUnarchiveAlreadyOnline(t *testing.T) {
	store := newFakeStore()
	archivedAt := date(2026, 2, 20)
	p := store.addPremises(date(2025, 1, 1), &archivedAt)
	svc := newTestService(store, &fakeSource{}, nil)

	// Restart today: the premises is back online immediately, so
	// there is nothing scheduled left to cancel.
	_, err := svc.UnarchivePremises(context.Background(), p.ID, date(2026, 3, 2))
	require.NoError(t, err)

	_, err = svc.CancelScheduledUnarchivePremises(context.Background(), p.ID)
	var serr *shared.StateError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, StateNotScheduledToUnarchive, serr.Code)
}
