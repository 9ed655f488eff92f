package lifecycle

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/roosthq/roost/internal/premises"
	"github.com/roosthq/roost/internal/shared"
)

// CancelScheduledArchivePremises reverses a scheduled-but-not-yet-
// effective premises archive: the event group is marked cancelled and
// every resource in it is restored to the snapshot recorded when the
// archive was scheduled.
func (s *Service) CancelScheduledArchivePremises(ctx context.Context, premisesID uuid.UUID) (*premises.Premises, error) {
	start := time.Now()
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
		if p.EndDate == nil {
			return &shared.StateError{Code: StateNotScheduledToArchive}
		}
		if !p.EndDate.After(today) {
			return &shared.StateError{Code: StateAlreadyArchived}
		}
		ev, err := st.LatestActiveEvent(ctx, ResourcePremises, p.ID, KindArchived)
		if err != nil {
			return err
		}
		if ev == nil {
			return &shared.StateError{Code: StateNotScheduledToArchive}
		}
		if err := s.cancelArchiveGroup(ctx, st, ev, &transitions); err != nil {
			return err
		}
		refreshed, err := st.GetPremises(ctx, p.ID)
		if err != nil {
			return err
		}
		result = refreshed
		return nil
	})
	s.observe("cancel_archive_premises", start, err)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, transitions)
	s.recordAudit(ctx, "premises.archive.cancel", "premises", premisesID.String(), nil)
	return result, nil
}

// CancelScheduledArchiveBedspace reverses a scheduled bedspace archive.
// When the event belongs to a premises-level cascade whose premises
// archive is itself still pending, the whole group is cancelled at the
// premises level: a bedspace cannot un-schedule independently of the
// cascade that produced it.
func (s *Service) CancelScheduledArchiveBedspace(ctx context.Context, bedspaceID uuid.UUID) (*premises.Bedspace, error) {
	start := time.Now()
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
		if b.EndDate == nil {
			return &shared.StateError{Code: StateNotScheduledToArchive}
		}
		if !b.EndDate.After(today) {
			return &shared.StateError{Code: StateAlreadyArchived}
		}
		ev, err := st.LatestActiveEvent(ctx, ResourceBedspace, b.ID, KindArchived)
		if err != nil {
			return err
		}
		if ev == nil {
			return &shared.StateError{Code: StateNotScheduledToArchive}
		}

		group, err := st.EventsByTransaction(ctx, ev.TransactionID)
		if err != nil {
			return err
		}
		if pe := premisesEventIn(group, KindArchived); pe != nil && pe.Active() && pe.ScheduledAt(today) {
			if err := s.cancelArchiveGroup(ctx, st, pe, &transitions); err != nil {
				return err
			}
		} else {
			if err := s.cancelSingle(ctx, st, ev, &transitions); err != nil {
				return err
			}
		}

		refreshed, err := st.GetBedspace(ctx, b.ID)
		if err != nil {
			return err
		}
		result = refreshed
		return nil
	})
	s.observe("cancel_archive_bedspace", start, err)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, transitions)
	s.recordAudit(ctx, "bedspace.archive.cancel", "bedspace", bedspaceID.String(), nil)
	return result, nil
}

// CancelScheduledUnarchivePremises reverses a scheduled premises
// unarchive, restoring the archived window for the premises and every
// bedspace whose unarchive event shares the transaction group.
func (s *Service) CancelScheduledUnarchivePremises(ctx context.Context, premisesID uuid.UUID) (*premises.Premises, error) {
	start := time.Now()
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
		ev, err := st.LatestActiveEvent(ctx, ResourcePremises, p.ID, KindUnarchived)
		if err != nil {
			return err
		}
		if ev == nil || !ev.ScheduledAt(today) {
			return &shared.StateError{Code: StateNotScheduledToUnarchive}
		}
		if !p.StartDate.After(today) {
			return &shared.StateError{Code: StateAlreadyOnline}
		}
		if err := s.cancelUnarchiveGroup(ctx, st, ev, &transitions); err != nil {
			return err
		}
		refreshed, err := st.GetPremises(ctx, p.ID)
		if err != nil {
			return err
		}
		result = refreshed
		return nil
	})
	s.observe("cancel_unarchive_premises", start, err)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, transitions)
	s.recordAudit(ctx, "premises.unarchive.cancel", "premises", premisesID.String(), nil)
	return result, nil
}

// CancelScheduledUnarchiveBedspace reverses a scheduled bedspace
// unarchive, recursing to the premises level when the event came from a
// premises-wide cascade that is itself still pending.
func (s *Service) CancelScheduledUnarchiveBedspace(ctx context.Context, bedspaceID uuid.UUID) (*premises.Bedspace, error) {
	start := time.Now()
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
		ev, err := st.LatestActiveEvent(ctx, ResourceBedspace, b.ID, KindUnarchived)
		if err != nil {
			return err
		}
		if ev == nil || !ev.ScheduledAt(today) {
			return &shared.StateError{Code: StateNotScheduledToUnarchive}
		}
		if !b.StartDate.After(today) {
			return &shared.StateError{Code: StateAlreadyOnline}
		}

		group, err := st.EventsByTransaction(ctx, ev.TransactionID)
		if err != nil {
			return err
		}
		if pe := premisesEventIn(group, KindUnarchived); pe != nil && pe.Active() && pe.ScheduledAt(today) {
			if err := s.cancelUnarchiveGroup(ctx, st, pe, &transitions); err != nil {
				return err
			}
		} else {
			if err := s.cancelSingle(ctx, st, ev, &transitions); err != nil {
				return err
			}
		}

		refreshed, err := st.GetBedspace(ctx, b.ID)
		if err != nil {
			return err
		}
		result = refreshed
		return nil
	})
	s.observe("cancel_unarchive_bedspace", start, err)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, transitions)
	s.recordAudit(ctx, "bedspace.unarchive.cancel", "bedspace", bedspaceID.String(), nil)
	return result, nil
}

// cancelArchiveGroup cancels the premises archive event and every
// bedspace archive event in its transaction group, restoring each
// resource from its snapshot.
func (s *Service) cancelArchiveGroup(ctx context.Context, st Store, premisesEvent *Event, transitions *[]Transition) error {
	group, err := st.EventsByTransaction(ctx, premisesEvent.TransactionID)
	if err != nil {
		return err
	}
	for i := range group {
		e := &group[i]
		if !e.Active() || e.Kind != KindArchived {
			continue
		}
		if err := s.cancelSingle(ctx, st, e, transitions); err != nil {
			return err
		}
	}
	return nil
}

// cancelUnarchiveGroup is the unarchive counterpart.
func (s *Service) cancelUnarchiveGroup(ctx context.Context, st Store, premisesEvent *Event, transitions *[]Transition) error {
	group, err := st.EventsByTransaction(ctx, premisesEvent.TransactionID)
	if err != nil {
		return err
	}
	for i := range group {
		e := &group[i]
		if !e.Active() || e.Kind != KindUnarchived {
			continue
		}
		if err := s.cancelSingle(ctx, st, e, transitions); err != nil {
			return err
		}
	}
	return nil
}

// cancelSingle flips the cancellation flag and replays the event's
// prior-state snapshot onto the resource.
func (s *Service) cancelSingle(ctx context.Context, st Store, e *Event, transitions *[]Transition) error {
	now := s.now()
	if err := st.MarkEventCancelled(ctx, e.ID, now); err != nil {
		return err
	}
	var err error
	switch e.ResourceType {
	case ResourcePremises:
		err = st.UpdatePremisesWindow(ctx, e.ResourceID, e.Payload.CurrentStartDate, e.Payload.CurrentEndDate)
	case ResourceBedspace:
		err = st.UpdateBedspaceWindow(ctx, e.ResourceID, e.Payload.CurrentStartDate, e.Payload.CurrentEndDate)
	}
	if err != nil {
		return err
	}
	t := transitionFrom(*e)
	t.Cancelled = true
	*transitions = append(*transitions, t)
	return nil
}

func premisesEventIn(group []Event, kind Kind) *Event {
	for i := range group {
		if group[i].ResourceType == ResourcePremises && group[i].Kind == kind {
			return &group[i]
		}
	}
	return nil
}
