package audit

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the queue audit events land on.
	QueueDefault = "default"
	// TaskTypeRecord is the task type for persisting an audit event.
	TaskTypeRecord = "audit:record"
)

// NewRecordTask constructs an Asynq task carrying one event.
func NewRecordTask(event Event) (*asynq.Task, error) {
	if err := event.Validate(); err != nil {
		return nil, err
	}
	data, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeRecord, data, asynq.MaxRetry(5)), nil
}

// RecordHandler returns the worker-side handler that persists queued
// events through the given recorder. Malformed payloads are dropped
// rather than retried.
func RecordHandler(recorder Recorder) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var event Event
		if err := json.Unmarshal(t.Payload(), &event); err != nil {
			return asynq.SkipRetry
		}
		if err := event.Validate(); err != nil {
			return asynq.SkipRetry
		}
		return recorder.Record(ctx, event)
	}
}

// Enqueuer submits events to the queue. It satisfies Recorder so the
// handlers stay indifferent to whether writes are direct or deferred.
type Enqueuer struct {
	client *asynq.Client
}

// NewEnqueuer wraps an Asynq client.
func NewEnqueuer(client *asynq.Client) *Enqueuer {
	return &Enqueuer{client: client}
}

// Record enqueues the event for asynchronous persistence.
func (e *Enqueuer) Record(ctx context.Context, event Event) error {
	if e == nil || e.client == nil {
		return errors.New("audit: enqueuer not initialised")
	}
	task, err := NewRecordTask(event)
	if err != nil {
		return err
	}
	_, err = e.client.EnqueueContext(ctx, task, asynq.Queue(QueueDefault))
	return err
}
