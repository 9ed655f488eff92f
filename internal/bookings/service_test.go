package bookings

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roosthq/roost/internal/premises"
	"github.com/roosthq/roost/internal/shared"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// fakeRepo is an in-memory Repository.
type fakeRepo struct {
	bookings map[uuid.UUID]*Booking
	voids    map[uuid.UUID]*VoidPeriod
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		bookings: make(map[uuid.UUID]*Booking),
		voids:    make(map[uuid.UUID]*VoidPeriod),
	}
}

func (f *fakeRepo) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return fn(ctx, f)
}

func (f *fakeRepo) LockPremises(context.Context, uuid.UUID) error { return nil }

func (f *fakeRepo) GetBooking(_ context.Context, id uuid.UUID) (*Booking, error) {
	b, ok := f.bookings[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (f *fakeRepo) CreateBooking(_ context.Context, b Booking) error {
	cp := b
	f.bookings[b.ID] = &cp
	return nil
}

func (f *fakeRepo) CancelBooking(_ context.Context, id uuid.UUID, at time.Time) error {
	b, ok := f.bookings[id]
	if !ok {
		return shared.ErrNotFound
	}
	cancelled := at
	b.CancelledAt = &cancelled
	return nil
}

func (f *fakeRepo) BookingsInRange(_ context.Context, bedspaceID uuid.UUID, start, end time.Time) ([]Booking, error) {
	var out []Booking
	for _, b := range f.bookings {
		if b.BedspaceID != bedspaceID || b.Cancelled() {
			continue
		}
		if b.ArrivalDate.Before(end) && b.DepartureDate.After(start) {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (f *fakeRepo) GetVoid(_ context.Context, id uuid.UUID) (*VoidPeriod, error) {
	v, ok := f.voids[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	cp := *v
	return &cp, nil
}

func (f *fakeRepo) CreateVoid(_ context.Context, v VoidPeriod) error {
	cp := v
	f.voids[v.ID] = &cp
	return nil
}

func (f *fakeRepo) CancelVoid(_ context.Context, id uuid.UUID, at time.Time) error {
	v, ok := f.voids[id]
	if !ok {
		return shared.ErrNotFound
	}
	cancelled := at
	v.CancelledAt = &cancelled
	return nil
}

func (f *fakeRepo) VoidsInRange(_ context.Context, bedspaceID uuid.UUID, start, end time.Time) ([]VoidPeriod, error) {
	var out []VoidPeriod
	for _, v := range f.voids {
		if v.BedspaceID != bedspaceID || v.Cancelled() {
			continue
		}
		if v.StartDate.Before(end) && v.EndDate.After(start) {
			out = append(out, *v)
		}
	}
	return out, nil
}

func (f *fakeRepo) OverlappingBookings(_ context.Context, scope Scope, onOrAfter time.Time) ([]Booking, error) {
	var out []Booking
	for _, b := range f.bookings {
		if b.Cancelled() {
			continue
		}
		if scope.BedspaceID != uuid.Nil && b.BedspaceID != scope.BedspaceID {
			continue
		}
		out = append(out, *b)
	}
	return out, nil
}

func (f *fakeRepo) LatestVoid(_ context.Context, scope Scope, onOrAfter time.Time) (*VoidPeriod, error) {
	var latest *VoidPeriod
	for _, v := range f.voids {
		if v.Cancelled() || v.EndDate.Before(onOrAfter) {
			continue
		}
		if scope.BedspaceID != uuid.Nil && v.BedspaceID != scope.BedspaceID {
			continue
		}
		if latest == nil || v.EndDate.After(latest.EndDate) {
			latest = v
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

// fakePremisesRepo backs the bedspace lookups.
type fakePremisesRepo struct {
	bedspaces map[uuid.UUID]*premises.Bedspace
}

func newFakePremisesRepo() *fakePremisesRepo {
	return &fakePremisesRepo{bedspaces: make(map[uuid.UUID]*premises.Bedspace)}
}

func (f *fakePremisesRepo) addBedspace(start time.Time, end *time.Time) *premises.Bedspace {
	b := &premises.Bedspace{ID: uuid.New(), PremisesID: uuid.New(), Reference: "B1", StartDate: start, EndDate: end}
	f.bedspaces[b.ID] = b
	return b
}

func (f *fakePremisesRepo) Get(context.Context, uuid.UUID) (*premises.Premises, error) {
	return nil, shared.ErrNotFound
}

func (f *fakePremisesRepo) List(context.Context, int, int) ([]premises.Premises, int, error) {
	return nil, 0, nil
}

func (f *fakePremisesRepo) Create(context.Context, premises.Premises) error { return nil }

func (f *fakePremisesRepo) GetBedspace(_ context.Context, id uuid.UUID) (*premises.Bedspace, error) {
	b, ok := f.bedspaces[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (f *fakePremisesRepo) BedspacesByPremises(context.Context, uuid.UUID) ([]premises.Bedspace, error) {
	return nil, nil
}

func (f *fakePremisesRepo) CreateBedspace(context.Context, premises.Bedspace) error { return nil }

func TestCreateBooking(t *testing.T) {
	repo := newFakeRepo()
	prem := newFakePremisesRepo()
	b := prem.addBedspace(date(2025, 1, 1), nil)
	svc := NewService(repo, prem)

	got, err := svc.CreateBooking(context.Background(), b.ID, CreateBookingRequest{
		ArrivalDate:           date(2026, 4, 1),
		DepartureDate:         date(2026, 4, 15),
		TurnaroundWorkingDays: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.BedspaceID)
	assert.Equal(t, date(2026, 4, 1), got.ArrivalDate)
	assert.Equal(t, 2, got.TurnaroundWorkingDays)
}

func TestCreateBookingValidatesWindow(t *testing.T) {
	repo := newFakeRepo()
	prem := newFakePremisesRepo()
	end := date(2026, 5, 1)
	b := prem.addBedspace(date(2026, 1, 1), &end)
	svc := NewService(repo, prem)

	_, err := svc.CreateBooking(context.Background(), b.ID, CreateBookingRequest{
		ArrivalDate:   date(2025, 12, 20),
		DepartureDate: date(2026, 5, 1),
	})
	var verr *shared.ValidationError
	require.ErrorAs(t, err, &verr)
	codes := make([]string, 0, len(verr.Errors))
	for _, fe := range verr.Errors {
		codes = append(codes, fe.Code)
	}
	assert.Contains(t, codes, "beforeBedspaceStartDate")
	assert.Contains(t, codes, "afterBedspaceEndDate")
}

func TestCreateBookingRejectsDepartureNotAfterArrival(t *testing.T) {
	repo := newFakeRepo()
	prem := newFakePremisesRepo()
	b := prem.addBedspace(date(2025, 1, 1), nil)
	svc := NewService(repo, prem)

	_, err := svc.CreateBooking(context.Background(), b.ID, CreateBookingRequest{
		ArrivalDate:   date(2026, 4, 10),
		DepartureDate: date(2026, 4, 10),
	})
	var verr *shared.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "beforeArrivalDate", verr.Errors[0].Code)
}

func TestCreateBookingRejectsOverlap(t *testing.T) {
	repo := newFakeRepo()
	prem := newFakePremisesRepo()
	b := prem.addBedspace(date(2025, 1, 1), nil)
	svc := NewService(repo, prem)

	first, err := svc.CreateBooking(context.Background(), b.ID, CreateBookingRequest{
		ArrivalDate:   date(2026, 4, 1),
		DepartureDate: date(2026, 4, 15),
	})
	require.NoError(t, err)

	_, err = svc.CreateBooking(context.Background(), b.ID, CreateBookingRequest{
		ArrivalDate:   date(2026, 4, 10),
		DepartureDate: date(2026, 4, 20),
	})
	var cerr *shared.ConflictError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, ReasonExistingBooking, cerr.Reason)
	assert.Equal(t, first.ID, cerr.EntityID)
	assert.Equal(t, date(2026, 4, 16), cerr.EarliestDate)
}

func TestCreateBookingAllowedAfterCancellation(t *testing.T) {
	repo := newFakeRepo()
	prem := newFakePremisesRepo()
	b := prem.addBedspace(date(2025, 1, 1), nil)
	svc := NewService(repo, prem)

	first, err := svc.CreateBooking(context.Background(), b.ID, CreateBookingRequest{
		ArrivalDate:   date(2026, 4, 1),
		DepartureDate: date(2026, 4, 15),
	})
	require.NoError(t, err)
	require.NoError(t, svc.CancelBooking(context.Background(), first.ID))

	_, err = svc.CreateBooking(context.Background(), b.ID, CreateBookingRequest{
		ArrivalDate:   date(2026, 4, 10),
		DepartureDate: date(2026, 4, 20),
	})
	require.NoError(t, err)
}

func TestCreateVoidRejectsBookingOverlap(t *testing.T) {
	repo := newFakeRepo()
	prem := newFakePremisesRepo()
	b := prem.addBedspace(date(2025, 1, 1), nil)
	svc := NewService(repo, prem)

	_, err := svc.CreateBooking(context.Background(), b.ID, CreateBookingRequest{
		ArrivalDate:   date(2026, 4, 1),
		DepartureDate: date(2026, 4, 15),
	})
	require.NoError(t, err)

	_, err = svc.CreateVoid(context.Background(), b.ID, CreateVoidRequest{
		StartDate: date(2026, 4, 10),
		EndDate:   date(2026, 4, 30),
		Reason:    "maintenance",
	})
	var cerr *shared.ConflictError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, ReasonExistingBooking, cerr.Reason)
}

func TestCreateVoid(t *testing.T) {
	repo := newFakeRepo()
	prem := newFakePremisesRepo()
	b := prem.addBedspace(date(2025, 1, 1), nil)
	svc := NewService(repo, prem)

	got, err := svc.CreateVoid(context.Background(), b.ID, CreateVoidRequest{
		StartDate: date(2026, 4, 1),
		EndDate:   date(2026, 4, 30),
		Reason:    "refurbishment",
	})
	require.NoError(t, err)
	assert.Equal(t, "refurbishment", got.Reason)
	assert.Equal(t, date(2026, 4, 30), got.EndDate)
}
