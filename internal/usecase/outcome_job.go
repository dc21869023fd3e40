package usecase

import (
	"context"
	"fmt"

	"IgniteX/internal/domain/models"
	domrepo "IgniteX/internal/domain/repository"
	"IgniteX/pkg/queue"
)

// OutcomeMessageType identifies resolved-outcome messages on the queue.
const OutcomeMessageType = "signal.outcome"

// QueueOutcomePublisher adapts the generic queue publisher to the outcome
// port the monitor writes through.
type QueueOutcomePublisher struct {
	q queue.Publisher
}

func NewQueueOutcomePublisher(q queue.Publisher) *QueueOutcomePublisher {
	return &QueueOutcomePublisher{q: q}
}

func (p *QueueOutcomePublisher) Enqueue(ctx context.Context, record models.OutcomeRecord) error {
	return p.q.Enqueue(ctx, OutcomeMessageType, record)
}

var _ domrepo.OutcomeQueue = (*QueueOutcomePublisher)(nil)

// OutcomeJob is the queue consumer driving the feedback loop.
type OutcomeJob struct {
	loop *FeedbackLoop
}

func NewOutcomeJob(loop *FeedbackLoop) *OutcomeJob {
	return &OutcomeJob{loop: loop}
}

func (j *OutcomeJob) Name() string { return "outcome-feedback" }

func (j *OutcomeJob) Type() string { return OutcomeMessageType }

func (j *OutcomeJob) Handle(ctx context.Context, payload interface{}) error {
	record, err := queue.ParsePayload[models.OutcomeRecord](payload)
	if err != nil {
		return fmt.Errorf("parse outcome payload: %w", err)
	}
	return j.loop.Process(ctx, *record)
}

var _ queue.Job = (*OutcomeJob)(nil)
