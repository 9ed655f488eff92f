package jobs

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/roosthq/roost/internal/lifecycle"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeLifecycleNotify fans out committed lifecycle transitions
	// to downstream consumers.
	TaskTypeLifecycleNotify = "lifecycle:notify"
)

// LifecycleNotifyPayload is the queued form of a lifecycle transition.
type LifecycleNotifyPayload struct {
	ResourceType  string    `json:"resourceType"`
	ResourceID    uuid.UUID `json:"resourceId"`
	PremisesID    uuid.UUID `json:"premisesId"`
	Kind          string    `json:"kind"`
	Cancelled     bool      `json:"cancelled"`
	EffectiveDate time.Time `json:"effectiveDate"`
	TransactionID uuid.UUID `json:"transactionId"`
}

// NewLifecycleNotifyTask constructs an Asynq task from a transition.
func NewLifecycleNotifyTask(t lifecycle.Transition) (*asynq.Task, error) {
	data, err := json.Marshal(LifecycleNotifyPayload{
		ResourceType:  string(t.ResourceType),
		ResourceID:    t.ResourceID,
		PremisesID:    t.PremisesID,
		Kind:          string(t.Kind),
		Cancelled:     t.Cancelled,
		EffectiveDate: t.EffectiveDate,
		TransactionID: t.TransactionID,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeLifecycleNotify, data), nil
}
