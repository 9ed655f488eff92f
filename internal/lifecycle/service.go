package lifecycle

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/roosthq/roost/internal/bookings"
	"github.com/roosthq/roost/internal/calendar"
	"github.com/roosthq/roost/internal/observability"
	"github.com/roosthq/roost/internal/premises"
	"github.com/roosthq/roost/internal/shared"
)

// Default grace windows for transition dates.
const (
	DefaultMaxPastDays     = 7
	DefaultMaxFutureMonths = 3
)

// Store is the transactional persistence surface the orchestrator
// mutates. WithTx must make the whole callback atomic; LockPremises
// must serialize concurrent lifecycle decisions for the same premises
// subtree until commit.
type Store interface {
	WithTx(ctx context.Context, fn func(context.Context, Store) error) error
	LockPremises(ctx context.Context, id uuid.UUID) error

	GetPremises(ctx context.Context, id uuid.UUID) (*premises.Premises, error)
	GetBedspace(ctx context.Context, id uuid.UUID) (*premises.Bedspace, error)
	BedspacesByPremises(ctx context.Context, premisesID uuid.UUID) ([]premises.Bedspace, error)
	LatestBedspacePerReference(ctx context.Context, premisesID uuid.UUID) ([]premises.Bedspace, error)
	UpdatePremisesWindow(ctx context.Context, id uuid.UUID, start time.Time, end *time.Time) error
	UpdateBedspaceWindow(ctx context.Context, id uuid.UUID, start time.Time, end *time.Time) error

	AppendEvent(ctx context.Context, ev Event) error
	LatestActiveEvent(ctx context.Context, rt ResourceType, id uuid.UUID, kind Kind) (*Event, error)
	EventsByTransaction(ctx context.Context, transactionID uuid.UUID) ([]Event, error)
	MarkEventCancelled(ctx context.Context, eventID uuid.UUID, at time.Time) error
}

// Notifier receives fire-and-forget transition notifications after a
// lifecycle operation commits. Failures are logged, never propagated.
type Notifier interface {
	PublishLifecycleTransition(ctx context.Context, t Transition) error
}

// AuditRecorder persists an audit trail entry for a committed mutation.
type AuditRecorder interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service is the archive/unarchive orchestrator. Every mutating
// operation runs as one transaction: per-premises lock, validation,
// conflict detection, resource mutation and event appends all commit
// or roll back together.
type Service struct {
	logger          *slog.Logger
	store           Store
	detector        *Detector
	notifier        Notifier
	audit           AuditRecorder
	metrics         *observability.LifecycleMetrics
	now             func() time.Time
	maxPastDays     int
	maxFutureMonths int
}

// NewService constructs a Service with default grace windows.
func NewService(logger *slog.Logger, store Store, source BookingSource, cal WorkingDayCalendar, notifier Notifier) *Service {
	return &Service{
		logger:          logger,
		store:           store,
		detector:        NewDetector(source, cal),
		notifier:        notifier,
		now:             time.Now,
		maxPastDays:     DefaultMaxPastDays,
		maxFutureMonths: DefaultMaxFutureMonths,
	}
}

// WithAudit attaches an audit recorder.
func (s *Service) WithAudit(audit AuditRecorder) *Service {
	s.audit = audit
	return s
}

// WithMetrics attaches operation metrics.
func (s *Service) WithMetrics(m *observability.LifecycleMetrics) *Service {
	s.metrics = m
	return s
}

// WithBounds overrides the grace windows.
func (s *Service) WithBounds(maxPastDays, maxFutureMonths int) *Service {
	s.maxPastDays = maxPastDays
	s.maxFutureMonths = maxFutureMonths
	return s
}

// WithClock overrides the time source, for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) today() time.Time {
	return calendar.DateOnly(s.now())
}

// ArchivePremises schedules or applies an archive of the premises and
// every currently active bedspace under it, all sharing one
// transaction group.
func (s *Service) ArchivePremises(ctx context.Context, premisesID uuid.UUID, endDate time.Time) (*premises.Premises, error) {
	start := time.Now()
	endDate = calendar.DateOnly(endDate)
	today := s.today()

	var result *premises.Premises
	var transitions []Transition
	err := s.store.WithTx(ctx, func(ctx context.Context, st Store) error {
		if err := st.LockPremises(ctx, premisesID); err != nil {
			return err
		}
		p, err := st.GetPremises(ctx, premisesID)
		if err != nil {
			return err
		}

		verr := &shared.ValidationError{}
		s.checkDateBounds(verr, "endDate", endDate, today, CodeEndDateInPast, CodeEndDateTooFarAhead)
		if endDate.Before(p.StartDate) {
			verr.Add("endDate", CodeBeforePremisesStart)
		}
		prior, err := st.LatestActiveEvent(ctx, ResourcePremises, p.ID, KindArchived)
		if err != nil {
			return err
		}
		if prior != nil && !prior.Payload.EffectiveDate.Before(endDate) {
			verr.Add("endDate", CodeBeforeExistingEndDate)
		}
		if err := verr.OrNil(); err != nil {
			return err
		}

		all, err := st.BedspacesByPremises(ctx, p.ID)
		if err != nil {
			return err
		}
		// A premises cannot be archived before a bedspace that has not
		// even started yet.
		var latestUpcoming *premises.Bedspace
		for i := range all {
			b := &all[i]
			if b.EndDate != nil && !b.EndDate.After(today) {
				continue
			}
			if latestUpcoming == nil || b.StartDate.After(latestUpcoming.StartDate) {
				latestUpcoming = b
			}
		}
		if latestUpcoming != nil && latestUpcoming.StartDate.After(endDate) {
			return &shared.ConflictError{
				EntityID:     latestUpcoming.ID,
				Reason:       ReasonExistingUpcomingBedspace,
				EarliestDate: latestUpcoming.StartDate,
			}
		}

		if conflict, err := s.detector.FindBlockingConflict(ctx, bookings.PremisesScope(p.ID), endDate); err != nil {
			return err
		} else if conflict != nil {
			return conflict
		}

		transactionID := uuid.New()
		now := s.now()

		// Cascade: every active bedspace archives on the same date. A
		// bedspace already carrying an end date keeps it; the premises
		// closes only at the latest of all bedspace end dates
		// (self-closing invariant).
		latestEnd := endDate
		for i := range all {
			b := &all[i]
			if b.EndDate != nil {
				if b.EndDate.After(latestEnd) {
					latestEnd = *b.EndDate
				}
				continue
			}
			if err := s.archiveBedspaceInTx(ctx, st, b, endDate, transactionID, now, &transitions); err != nil {
				return err
			}
		}

		if err := s.supersedeScheduled(ctx, st, prior, today, now); err != nil {
			return err
		}
		premisesEnd := latestEnd
		ev := Event{
			ID:            uuid.New(),
			ResourceType:  ResourcePremises,
			ResourceID:    p.ID,
			PremisesID:    p.ID,
			Kind:          KindArchived,
			TransactionID: transactionID,
			Payload: Payload{
				EffectiveDate:    premisesEnd,
				CurrentStartDate: p.StartDate,
				CurrentEndDate:   p.EndDate,
				NewEndDate:       &premisesEnd,
			},
			CreatedAt: now,
		}
		if err := st.AppendEvent(ctx, ev); err != nil {
			return err
		}
		if err := st.UpdatePremisesWindow(ctx, p.ID, p.StartDate, &premisesEnd); err != nil {
			return err
		}
		p.EndDate = &premisesEnd
		transitions = append(transitions, transitionFrom(ev))

		refreshed, err := st.GetPremises(ctx, p.ID)
		if err != nil {
			return err
		}
		result = refreshed
		return nil
	})
	s.observe("archive_premises", start, err)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, transitions)
	s.recordAudit(ctx, "premises.archive", "premises", premisesID.String(), map[string]any{"endDate": endDate.Format("2006-01-02")})
	return result, nil
}

// ArchiveBedspace schedules or applies an archive of one bedspace. If
// this leaves every bedspace of the premises with an end date, the
// premises itself is implicitly archived in the same transaction
// group, up to the latest bedspace end date.
func (s *Service) ArchiveBedspace(ctx context.Context, bedspaceID uuid.UUID, endDate time.Time) (*premises.Bedspace, error) {
	start := time.Now()
	endDate = calendar.DateOnly(endDate)
	today := s.today()

	var result *premises.Bedspace
	var transitions []Transition
	err := s.store.WithTx(ctx, func(ctx context.Context, st Store) error {
		b, err := st.GetBedspace(ctx, bedspaceID)
		if err != nil {
			return err
		}
		// All lifecycle writes under a premises serialize on the
		// premises lock; bedspace cascades mutate the premises row too.
		if err := st.LockPremises(ctx, b.PremisesID); err != nil {
			return err
		}
		b, err = st.GetBedspace(ctx, bedspaceID)
		if err != nil {
			return err
		}

		verr := &shared.ValidationError{}
		s.checkDateBounds(verr, "endDate", endDate, today, CodeEndDateInPast, CodeEndDateTooFarAhead)
		if endDate.Before(b.StartDate) {
			verr.Add("endDate", CodeBeforeBedspaceStart)
		}
		prior, err := st.LatestActiveEvent(ctx, ResourceBedspace, b.ID, KindArchived)
		if err != nil {
			return err
		}
		if prior != nil && !prior.Payload.EffectiveDate.Before(endDate) {
			verr.Add("endDate", CodeBeforeExistingEndDate)
		}
		if err := verr.OrNil(); err != nil {
			return err
		}

		if conflict, err := s.detector.FindBlockingConflict(ctx, bookings.BedspaceScope(b.ID), endDate); err != nil {
			return err
		} else if conflict != nil {
			return conflict
		}

		transactionID := uuid.New()
		now := s.now()
		if err := s.supersedeScheduled(ctx, st, prior, today, now); err != nil {
			return err
		}
		if err := s.archiveBedspaceInTx(ctx, st, b, endDate, transactionID, now, &transitions); err != nil {
			return err
		}

		// Self-closing invariant: archiving the last open bedspace
		// archives the premises up to the latest bedspace end date.
		siblings, err := st.BedspacesByPremises(ctx, b.PremisesID)
		if err != nil {
			return err
		}
		allEnded := true
		latestEnd := endDate
		for i := range siblings {
			sib := &siblings[i]
			if sib.EndDate == nil {
				allEnded = false
				break
			}
			if sib.EndDate.After(latestEnd) {
				latestEnd = *sib.EndDate
			}
		}
		if allEnded {
			p, err := st.GetPremises(ctx, b.PremisesID)
			if err != nil {
				return err
			}
			if p.EndDate == nil {
				// Same detector contract as an explicit premises
				// archive; the implicit path gets no special casing.
				if conflict, err := s.detector.FindBlockingConflict(ctx, bookings.PremisesScope(p.ID), latestEnd); err != nil {
					return err
				} else if conflict != nil {
					return conflict
				}
				ev := Event{
					ID:            uuid.New(),
					ResourceType:  ResourcePremises,
					ResourceID:    p.ID,
					PremisesID:    p.ID,
					Kind:          KindArchived,
					TransactionID: transactionID,
					Payload: Payload{
						EffectiveDate:    latestEnd,
						CurrentStartDate: p.StartDate,
						CurrentEndDate:   p.EndDate,
						NewEndDate:       &latestEnd,
					},
					CreatedAt: now,
				}
				if err := st.AppendEvent(ctx, ev); err != nil {
					return err
				}
				if err := st.UpdatePremisesWindow(ctx, p.ID, p.StartDate, &latestEnd); err != nil {
					return err
				}
				transitions = append(transitions, transitionFrom(ev))
			}
		}

		refreshed, err := st.GetBedspace(ctx, b.ID)
		if err != nil {
			return err
		}
		result = refreshed
		return nil
	})
	s.observe("archive_bedspace", start, err)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, transitions)
	s.recordAudit(ctx, "bedspace.archive", "bedspace", bedspaceID.String(), map[string]any{"endDate": endDate.Format("2006-01-02")})
	return result, nil
}

// UnarchivePremises brings an archived premises back online from the
// restart date, cascading to the most-recently-archived bedspace per
// distinct reference.
func (s *Service) UnarchivePremises(ctx context.Context, premisesID uuid.UUID, restartDate time.Time) (*premises.Premises, error) {
	start := time.Now()
	restartDate = calendar.DateOnly(restartDate)
	today := s.today()

	var result *premises.Premises
	var transitions []Transition
	err := s.store.WithTx(ctx, func(ctx context.Context, st Store) error {
		if err := st.LockPremises(ctx, premisesID); err != nil {
			return err
		}
		p, err := st.GetPremises(ctx, premisesID)
		if err != nil {
			return err
		}
		if !p.ArchivedAt(today) {
			return &shared.StateError{Code: StateNotArchived}
		}

		verr := &shared.ValidationError{}
		s.checkDateBounds(verr, "restartDate", restartDate, today, CodeRestartDateInPast, CodeRestartDateTooFarAhead)
		if !restartDate.After(*p.EndDate) {
			verr.Add("restartDate", CodeBeforeLastPremisesEnd)
		}
		if err := verr.OrNil(); err != nil {
			return err
		}

		transactionID := uuid.New()
		now := s.now()

		// Duplicate historical bedspace rows collapse to the latest
		// archived row per reference.
		latest, err := st.LatestBedspacePerReference(ctx, p.ID)
		if err != nil {
			return err
		}
		for i := range latest {
			b := &latest[i]
			if b.EndDate == nil {
				continue
			}
			ev := Event{
				ID:            uuid.New(),
				ResourceType:  ResourceBedspace,
				ResourceID:    b.ID,
				PremisesID:    p.ID,
				Kind:          KindUnarchived,
				TransactionID: transactionID,
				Payload: Payload{
					EffectiveDate:    restartDate,
					CurrentStartDate: b.StartDate,
					CurrentEndDate:   b.EndDate,
					NewStartDate:     &restartDate,
				},
				CreatedAt: now,
			}
			if err := st.AppendEvent(ctx, ev); err != nil {
				return err
			}
			if err := st.UpdateBedspaceWindow(ctx, b.ID, restartDate, nil); err != nil {
				return err
			}
			transitions = append(transitions, transitionFrom(ev))
		}

		ev := Event{
			ID:            uuid.New(),
			ResourceType:  ResourcePremises,
			ResourceID:    p.ID,
			PremisesID:    p.ID,
			Kind:          KindUnarchived,
			TransactionID: transactionID,
			Payload: Payload{
				EffectiveDate:    restartDate,
				CurrentStartDate: p.StartDate,
				CurrentEndDate:   p.EndDate,
				NewStartDate:     &restartDate,
			},
			CreatedAt: now,
		}
		if err := st.AppendEvent(ctx, ev); err != nil {
			return err
		}
		if err := st.UpdatePremisesWindow(ctx, p.ID, restartDate, nil); err != nil {
			return err
		}
		transitions = append(transitions, transitionFrom(ev))

		refreshed, err := st.GetPremises(ctx, p.ID)
		if err != nil {
			return err
		}
		result = refreshed
		return nil
	})
	s.observe("unarchive_premises", start, err)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, transitions)
	s.recordAudit(ctx, "premises.unarchive", "premises", premisesID.String(), map[string]any{"restartDate": restartDate.Format("2006-01-02")})
	return result, nil
}

// UnarchiveBedspace brings an archived bedspace back online. The owning
// premises must itself be online.
func (s *Service) UnarchiveBedspace(ctx context.Context, bedspaceID uuid.UUID, restartDate time.Time) (*premises.Bedspace, error) {
	start := time.Now()
	restartDate = calendar.DateOnly(restartDate)
	today := s.today()

	var result *premises.Bedspace
	var transitions []Transition
	err := s.store.WithTx(ctx, func(ctx context.Context, st Store) error {
		b, err := st.GetBedspace(ctx, bedspaceID)
		if err != nil {
			return err
		}
		if err := st.LockPremises(ctx, b.PremisesID); err != nil {
			return err
		}
		b, err = st.GetBedspace(ctx, bedspaceID)
		if err != nil {
			return err
		}
		p, err := st.GetPremises(ctx, b.PremisesID)
		if err != nil {
			return err
		}

		if !b.ArchivedAt(today) {
			return &shared.StateError{Code: StateNotArchived}
		}
		if p.ArchivedAt(today) {
			return &shared.StateError{Code: StatePremisesNotOnline}
		}

		verr := &shared.ValidationError{}
		s.checkDateBounds(verr, "restartDate", restartDate, today, CodeRestartDateInPast, CodeRestartDateTooFarAhead)
		if !restartDate.After(*b.EndDate) {
			verr.Add("restartDate", CodeBeforeLastBedspaceEnd)
		}
		if restartDate.Before(p.StartDate) {
			verr.Add("restartDate", CodeBeforePremisesStart)
		}
		if err := verr.OrNil(); err != nil {
			return err
		}

		now := s.now()
		ev := Event{
			ID:            uuid.New(),
			ResourceType:  ResourceBedspace,
			ResourceID:    b.ID,
			PremisesID:    b.PremisesID,
			Kind:          KindUnarchived,
			TransactionID: uuid.New(),
			Payload: Payload{
				EffectiveDate:    restartDate,
				CurrentStartDate: b.StartDate,
				CurrentEndDate:   b.EndDate,
				NewStartDate:     &restartDate,
			},
			CreatedAt: now,
		}
		if err := st.AppendEvent(ctx, ev); err != nil {
			return err
		}
		if err := st.UpdateBedspaceWindow(ctx, b.ID, restartDate, nil); err != nil {
			return err
		}
		transitions = append(transitions, transitionFrom(ev))

		refreshed, err := st.GetBedspace(ctx, b.ID)
		if err != nil {
			return err
		}
		result = refreshed
		return nil
	})
	s.observe("unarchive_bedspace", start, err)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, transitions)
	s.recordAudit(ctx, "bedspace.unarchive", "bedspace", bedspaceID.String(), map[string]any{"restartDate": restartDate.Format("2006-01-02")})
	return result, nil
}

// CanArchivePremises runs the conflict detector for the whole premises
// without mutating anything, so callers can warn before committing.
func (s *Service) CanArchivePremises(ctx context.Context, premisesID uuid.UUID) (*shared.ConflictError, error) {
	if _, err := s.store.GetPremises(ctx, premisesID); err != nil {
		return nil, err
	}
	return s.detector.FindBlockingConflict(ctx, bookings.PremisesScope(premisesID), s.today())
}

// CanArchiveBedspace is the single-bedspace read-only probe.
func (s *Service) CanArchiveBedspace(ctx context.Context, bedspaceID uuid.UUID) (*shared.ConflictError, error) {
	if _, err := s.store.GetBedspace(ctx, bedspaceID); err != nil {
		return nil, err
	}
	return s.detector.FindBlockingConflict(ctx, bookings.BedspaceScope(bedspaceID), s.today())
}

// archiveBedspaceInTx records one bedspace archive event and sets the
// end date. Validation and conflict detection are the caller's job.
func (s *Service) archiveBedspaceInTx(ctx context.Context, st Store, b *premises.Bedspace, endDate time.Time, transactionID uuid.UUID, now time.Time, transitions *[]Transition) error {
	ev := Event{
		ID:            uuid.New(),
		ResourceType:  ResourceBedspace,
		ResourceID:    b.ID,
		PremisesID:    b.PremisesID,
		Kind:          KindArchived,
		TransactionID: transactionID,
		Payload: Payload{
			EffectiveDate:    endDate,
			CurrentStartDate: b.StartDate,
			CurrentEndDate:   b.EndDate,
			NewEndDate:       &endDate,
		},
		CreatedAt: now,
	}
	if err := st.AppendEvent(ctx, ev); err != nil {
		return err
	}
	if err := st.UpdateBedspaceWindow(ctx, b.ID, b.StartDate, &endDate); err != nil {
		return err
	}
	b.EndDate = &endDate
	*transitions = append(*transitions, transitionFrom(ev))
	return nil
}

// supersedeScheduled cancels a still-pending scheduled event of the
// same kind so at most one active scheduled event exists per resource.
// The superseding event snapshots the prior window, so cancellation of
// the new event still restores the state the caller saw.
func (s *Service) supersedeScheduled(ctx context.Context, st Store, prior *Event, today, now time.Time) error {
	if prior == nil || !prior.Active() || !prior.ScheduledAt(today) {
		return nil
	}
	return st.MarkEventCancelled(ctx, prior.ID, now)
}

func (s *Service) checkDateBounds(verr *shared.ValidationError, field string, d, today time.Time, pastCode, futureCode string) {
	if d.Before(today.AddDate(0, 0, -s.maxPastDays)) {
		verr.Add(field, pastCode)
	}
	if d.After(today.AddDate(0, s.maxFutureMonths, 0)) {
		verr.Add(field, futureCode)
	}
}

func transitionFrom(ev Event) Transition {
	return Transition{
		ResourceType:  ev.ResourceType,
		ResourceID:    ev.ResourceID,
		PremisesID:    ev.PremisesID,
		Kind:          ev.Kind,
		EffectiveDate: ev.Payload.EffectiveDate,
		TransactionID: ev.TransactionID,
	}
}

// publish hands transitions to the notifier after commit. Delivery is
// the sink's responsibility; enqueue failures only log.
func (s *Service) publish(ctx context.Context, transitions []Transition) {
	if s.notifier == nil {
		return
	}
	for _, t := range transitions {
		if err := s.notifier.PublishLifecycleTransition(ctx, t); err != nil {
			s.logger.Warn("publish lifecycle transition",
				slog.String("resource", string(t.ResourceType)),
				slog.String("id", t.ResourceID.String()),
				slog.Any("error", err))
		}
	}
}

func (s *Service) recordAudit(ctx context.Context, action, entity, entityID string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, shared.AuditLog{Action: action, Entity: entity, EntityID: entityID, Meta: meta, At: s.now()}); err != nil {
		s.logger.Warn("record audit log", slog.String("action", action), slog.Any("error", err))
	}
}

func (s *Service) observe(op string, start time.Time, err error) {
	if s.metrics == nil {
		return
	}
	s.metrics.Observe(op, outcomeFor(err), time.Since(start))
}

func outcomeFor(err error) string {
	var verr *shared.ValidationError
	var cerr *shared.ConflictError
	var serr *shared.StateError
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, shared.ErrNotFound):
		return "not_found"
	case errors.As(err, &verr):
		return "validation_rejected"
	case errors.As(err, &cerr):
		return "conflict"
	case errors.As(err, &serr):
		return "invalid_state"
	default:
		return "error"
	}
}
