// Package lifecycle implements the archive/unarchive state machine for
// premises and bedspaces: conflict detection against bookings,
// turnarounds and void periods, cascading transitions, and reversal of
// scheduled transitions from an append-only event log.
package lifecycle

import (
	"time"

	"github.com/google/uuid"
)

// ResourceType identifies the target of a lifecycle event.
type ResourceType string

const (
	ResourcePremises ResourceType = "premises"
	ResourceBedspace ResourceType = "bedspace"
)

// Kind is the transition an event records.
type Kind string

const (
	KindArchived   Kind = "archived"
	KindUnarchived Kind = "unarchived"
)

// Conflict reason codes carried by ConflictError.Reason.
const (
	ReasonExistingVoid             = "existingVoid"
	ReasonExistingBookings         = "existingBookings"
	ReasonExistingTurnaround       = "existingTurnaround"
	ReasonExistingUpcomingBedspace = "existingUpcomingBedspace"
)

// Validation codes carried by ValidationError field entries.
const (
	CodeEndDateInPast          = "invalidEndDateInThePast"
	CodeEndDateTooFarAhead     = "invalidEndDateInTheFuture"
	CodeRestartDateInPast      = "invalidRestartDateInThePast"
	CodeRestartDateTooFarAhead = "invalidRestartDateInTheFuture"
	CodeBeforePremisesStart    = "beforePremisesStartDate"
	CodeBeforeBedspaceStart    = "beforeBedspaceStartDate"
	CodeBeforeExistingEndDate  = "beforeExistingArchiveEndDate"
	CodeBeforeLastPremisesEnd  = "beforeLastPremisesArchivedDate"
	CodeBeforeLastBedspaceEnd  = "beforeLastBedspaceArchivedDate"
)

// State codes carried by StateError.Code.
const (
	StateNotScheduledToArchive   = "notScheduledToArchive"
	StateNotScheduledToUnarchive = "notScheduledToUnarchive"
	StateAlreadyArchived         = "alreadyArchived"
	StateAlreadyOnline           = "alreadyOnline"
	StateNotArchived             = "notArchived"
	StatePremisesNotOnline       = "premisesNotOnline"
)

// Payload is the snapshot stored with every event. Current* fields hold
// the resource's window at the moment the transition was recorded;
// they are the only durable source for reversal, so they are always a
// full prior-state snapshot, never a diff.
type Payload struct {
	EffectiveDate    time.Time  `json:"effectiveDate"`
	CurrentStartDate time.Time  `json:"currentStartDate"`
	CurrentEndDate   *time.Time `json:"currentEndDate,omitempty"`
	NewStartDate     *time.Time `json:"newStartDate,omitempty"`
	NewEndDate       *time.Time `json:"newEndDate,omitempty"`
}

// Event is one append-only lifecycle record. Events sharing a
// TransactionID were produced by a single logical operation (e.g. a
// premises archive and its cascaded bedspace archives) and are
// cancelled together. Only CancelledAt is ever updated.
type Event struct {
	ID            uuid.UUID    `json:"id"`
	ResourceType  ResourceType `json:"resourceType"`
	ResourceID    uuid.UUID    `json:"resourceId"`
	PremisesID    uuid.UUID    `json:"premisesId"`
	Kind          Kind         `json:"kind"`
	TransactionID uuid.UUID    `json:"transactionId"`
	Payload       Payload      `json:"payload"`
	CreatedAt     time.Time    `json:"createdAt"`
	CancelledAt   *time.Time   `json:"cancelledAt,omitempty"`
}

// Active reports whether the event has not been cancelled.
func (e *Event) Active() bool { return e.CancelledAt == nil }

// ScheduledAt reports whether the event's transition had not yet taken
// effect on the given day.
func (e *Event) ScheduledAt(today time.Time) bool {
	return e.Payload.EffectiveDate.After(today)
}

// Transition is the fire-and-forget notification payload handed to the
// Notifier after a lifecycle operation commits.
type Transition struct {
	ResourceType  ResourceType `json:"resourceType"`
	ResourceID    uuid.UUID    `json:"resourceId"`
	PremisesID    uuid.UUID    `json:"premisesId"`
	Kind          Kind         `json:"kind"`
	Cancelled     bool         `json:"cancelled"`
	EffectiveDate time.Time    `json:"effectiveDate"`
	TransactionID uuid.UUID    `json:"transactionId"`
}
