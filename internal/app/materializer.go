package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/okian/rendezvous/internal/adapters/mq/queue"
	"github.com/okian/rendezvous/internal/adapters/mq/worker"
	"github.com/okian/rendezvous/internal/domain/model"
	"github.com/okian/rendezvous/pkg/logger"
	"github.com/okian/rendezvous/pkg/metrics"
)

// Materializer turns a confirmed meeting into one rigid event per member.
// Writes fan out through the queue to the worker pool; a failure for one
// member never stops or undoes the others.
type Materializer struct {
	queue  queue.Queue
	newID  func() string
	logger logger.Logger
}

// NewMaterializer creates a materializer that submits writes to q.
func NewMaterializer(q queue.Queue, l logger.Logger) *Materializer {
	if l == nil {
		l = logger.Named("materializer")
	}
	return &Materializer{queue: q, newID: uuid.NewString, logger: l}
}

// Materialize validates req and writes its event for every distinct member.
// Outcomes keep roster order. Dispatch waits for queue space, so a busy pool
// slows the batch down. Members whose write was never dispatched, because
// ctx ended or the queue was closed, are reported as failed.
func (m *Materializer) Materialize(ctx context.Context, req model.MeetingRequest) (model.MaterializationResult, error) {
	if err := req.Validate(); err != nil {
		return model.MaterializationResult{}, err
	}

	start := time.Now()
	requestID := m.newID()
	members := model.UniqueMembers(req.Members)
	outcomes := make([]model.MemberOutcome, len(members))
	reply := make(chan queue.Result, len(members))

	pending := 0
	for i, member := range members {
		outcomes[i].Member = member
		if ctx.Err() != nil {
			outcomes[i].Err = worker.ErrCancelled
			metrics.RecordMemberWrite("cancelled")
			continue
		}
		job := queue.NewJob(ctx, requestID, i, req.EventFor(member), reply)
		if err := m.queue.Submit(ctx, job); err != nil {
			outcomes[i].Err = dispatchError(member, err)
			metrics.RecordMemberWrite("not_dispatched")
			continue
		}
		pending++
	}

	for ; pending > 0; pending-- {
		r := <-reply
		outcomes[r.Index] = r.Outcome
	}

	res := model.NewMaterializationResult(requestID, req.GroupID, outcomes)
	outcome := "complete"
	switch {
	case res.SucceededCount == 0:
		outcome = "failed"
	case res.FailedCount > 0:
		outcome = "partial"
	}
	metrics.RecordMaterialization(outcome, float64(time.Since(start).Microseconds())/1000)

	m.logger.Info(ctx, "meeting materialized",
		logger.String("request_id", requestID),
		logger.String("group_id", req.GroupID),
		logger.Int("succeeded", res.SucceededCount),
		logger.Int("failed", res.FailedCount),
		logger.Strings("failed_members", res.FailedMembers),
	)
	return res, nil
}

func dispatchError(member model.MemberID, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return worker.ErrCancelled
	}
	return fmt.Errorf("write not scheduled for member %s: %w", member, err)
}
