package vfs

import (
	"context"
	"sync"

	"github.com/arcfs/vfs/internal/metrics"
)

// OperationState is a node in the Operation state machine: Initialized -> Estimating -> Estimated -> Running
// -> {Completed, Skipped, Cancelled, Error}.
type OperationState int

const (
	StateInitialized OperationState = iota
	StateEstimating
	StateEstimated
	StateRunning
	StateCompleted
	StateSkipped
	StateCancelled
	StateError
)

func (s OperationState) String() string {
	switch s {
	case StateInitialized:
		return "Initialized"
	case StateEstimating:
		return "Estimating"
	case StateEstimated:
		return "Estimated"
	case StateRunning:
		return "Running"
	case StateCompleted:
		return "Completed"
	case StateSkipped:
		return "Skipped"
	case StateCancelled:
		return "Cancelled"
	case StateError:
		return "Error"
	default:
		return "Unknown"
	}
}

// Operation is one reversible unit of work run through an OperationSession. Estimate computes the cost
// (bytes, object count) without mutating anything; Run performs the work; CreateRollback returns an Operation
// that undoes Run's effect, or a KindNotSupported error if this Operation cannot be rolled back (e.g. a Delete
// that didn't back up content); AssertSuccessful turns a non-terminal-success state into an error for callers that want to
// fail fast after a batch.
type Operation interface {
	ID() OperationID
	State() OperationState
	Estimate(ctx context.Context) error
	Run(ctx context.Context) error
	CreateRollback() (Operation, error)
	AssertSuccessful() error
}

// baseOperation implements the bookkeeping every concrete Operation in opfile.go embeds: state transitions,
// estimate totals and the session/progress plumbing.
type baseOperation struct {
	id      OperationID
	session *OperationSession

	mu               sync.Mutex
	state            OperationState
	err              error
	estimatedBytes   int64
	estimatedObjects int64
}

func newBaseOperation(session *OperationSession) baseOperation {
	return baseOperation{id: NewOperationID(), session: session, state: StateInitialized}
}

// ID implements Operation.
func (b *baseOperation) ID() OperationID { return b.id }

// State implements Operation.
func (b *baseOperation) State() OperationState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *baseOperation) setState(s OperationState) {
	b.mu.Lock()
	b.state = s
	b.mu.Unlock()
}

func (b *baseOperation) fail(err error) error {
	b.mu.Lock()
	b.state = StateError
	b.err = err
	b.mu.Unlock()
	metrics.OperationsTotal.WithLabelValues("error").Inc()
	if b.session != nil && b.session.policy.CancelOnError {
		b.session.Cancel()
	}
	return err
}

func (b *baseOperation) complete() {
	b.setState(StateCompleted)
	metrics.OperationsTotal.WithLabelValues("completed").Inc()
}

func (b *baseOperation) skip() {
	b.setState(StateSkipped)
	metrics.OperationsTotal.WithLabelValues("skipped").Inc()
}

func (b *baseOperation) cancel() error {
	err := NewError(KindCancelled, "", "operation cancelled")
	b.mu.Lock()
	b.state = StateCancelled
	b.err = err
	b.mu.Unlock()
	metrics.OperationsTotal.WithLabelValues("cancelled").Inc()
	return err
}

// AssertSuccessful implements Operation: returns nil for Completed or Skipped, the recorded error for Error or
// Cancelled, and a KindInvalidArgument error if called before a terminal state is reached.
func (b *baseOperation) AssertSuccessful() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case StateCompleted, StateSkipped:
		return nil
	case StateError, StateCancelled:
		return b.err
	default:
		return NewError(KindInvalidArgument, "", "operation has not reached a terminal state")
	}
}

func (b *baseOperation) publishProgress(path Path, done, total int64) {
	if b.session == nil {
		return
	}
	b.session.publish(Event{Kind: EventProgress, Path: path, BytesDone: done, BytesTotal: total})
}

func (b *baseOperation) checkCancelled() error {
	if b.session != nil && b.session.IsCancelled() {
		return b.cancel()
	}
	return nil
}
