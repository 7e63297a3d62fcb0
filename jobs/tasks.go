package jobs

import (
	"encoding/json"
	"errors"

	"github.com/hibiken/asynq"
)

const (
	// QueueSettlement holds every settlement task.
	QueueSettlement = "settlement"
	// TaskSettlementWarmup precomputes the reports of the listed events.
	TaskSettlementWarmup = "settlement:warmup"
	// TaskReferenceBump invalidates every cached report after reference data edits.
	TaskReferenceBump = "settlement:reference_bump"
)

// WarmupPayload lists the events to precompute.
type WarmupPayload struct {
	ProdIDs []int64 `json:"prod_ids"`
}

// ReferenceBumpPayload records why reference data changed.
type ReferenceBumpPayload struct {
	Reason string `json:"reason,omitempty"`
}

// NewWarmupTask constructs a warm-up task.
func NewWarmupTask(prodIDs ...int64) (*asynq.Task, error) {
	if len(prodIDs) == 0 {
		return nil, errors.New("jobs: warmup requires at least one event")
	}
	data, err := json.Marshal(WarmupPayload{ProdIDs: prodIDs})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSettlementWarmup, data, asynq.Queue(QueueSettlement), asynq.MaxRetry(3)), nil
}

// NewReferenceBumpTask constructs a reference bump task.
func NewReferenceBumpTask(reason string) (*asynq.Task, error) {
	data, err := json.Marshal(ReferenceBumpPayload{Reason: reason})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReferenceBump, data, asynq.Queue(QueueSettlement), asynq.MaxRetry(5)), nil
}
