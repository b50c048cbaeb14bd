package vfs

import "context"

// BatchResult records the terminal state of running a Batch: every operation in the order it was added, plus
// the aggregated or first error depending on the session's policy.
type BatchResult struct {
	Operations []Operation
	Err        error
}

// Batch runs a fixed sequence of Operations under one OperationSession, honoring its OperationPolicy for how to
// react to a failing step: CancelOnError stops at the first failure; BatchContinueOnError keeps
// going and aggregates every failure with Aggregate; SuppressException drops a step's returned error and goes on
// with the next step, while the failed Operation keeps StateError, for callers that only inspect
// AssertSuccessful afterward.
type Batch struct {
	session *OperationSession
	ops     []Operation
}

// NewBatch returns an empty Batch bound to session.
func NewBatch(session *OperationSession) *Batch {
	return &Batch{session: session}
}

// Add appends op to the batch and returns the batch, so calls can be chained.
func (b *Batch) Add(op Operation) *Batch {
	b.ops = append(b.ops, op)
	return b
}

// Run estimates and runs every operation in order. Estimation happens immediately before that operation runs
// (not all up front), so an operation can react to state a prior operation in the same batch just changed.
func (b *Batch) Run(ctx context.Context) *BatchResult {
	result := &BatchResult{Operations: b.ops}
	var aggregated error
	for _, op := range b.ops {
		if b.session.IsCancelled() {
			break
		}
		err := runLeaf(ctx, op)
		if err == nil {
			continue
		}
		if b.session.policy.SuppressException {
			continue
		}
		if b.session.policy.CancelOnError {
			result.Err = err
			return result
		}
		if b.session.policy.BatchContinueOnError {
			aggregated = Aggregate(aggregated, err)
			continue
		}
		// neither flag set: stop at the first failure, the same as CancelOnError.
		result.Err = err
		return result
	}
	result.Err = aggregated
	return result
}

// Rollback walks the batch's operations in reverse, creating and running a rollback Operation for each one that
// completed successfully. An operation whose CreateRollback reports KindNotSupported is passed over; any other
// failure to create or run a rollback is collected with Aggregate and the walk goes on. The collected failures
// are attached to the original failure via RollbackContext so neither error is silently dropped.
func (b *Batch) Rollback(ctx context.Context, cause error) error {
	var rollbackErr error
	for i := len(b.ops) - 1; i >= 0; i-- {
		op := b.ops[i]
		if op.State() != StateCompleted {
			continue
		}
		undo, err := op.CreateRollback()
		if err != nil {
			if IsErr(err, KindNotSupported) {
				continue
			}
			rollbackErr = Aggregate(rollbackErr, err)
			continue
		}
		if err := runLeaf(ctx, undo); err != nil {
			rollbackErr = Aggregate(rollbackErr, err)
		}
	}
	return RollbackContext(cause, rollbackErr)
}
