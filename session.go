package vfs

import (
	"sync/atomic"
	"time"

	"github.com/arcfs/vfs/internal/metrics"
)

// A ConflictPolicy tells an Operation how to react when its destination is already occupied (DstConflict) or
// its source does not exist (SrcConflict).
type ConflictPolicy int

const (
	// PolicyThrow fails the operation: with KindAlreadyExists for an occupied destination, with the lookup's
	// KindNotFound for a missing source.
	PolicyThrow ConflictPolicy = iota
	// PolicySkip marks the operation Skipped without error.
	PolicySkip
	// PolicyOverwrite replaces the existing resource.
	PolicyOverwrite
)

// OperationPolicy bundles the flags a caller sets once per OperationSession and every Operation it runs obeys
//.
type OperationPolicy struct {
	// SrcConflict governs what happens when an operation's source does not exist when Estimate looks it up.
	SrcConflict ConflictPolicy
	// DstConflict governs what happens when an operation's destination is already occupied.
	DstConflict ConflictPolicy
	// CancelOnError cancels the session as soon as one of its Operations fails, and stops a Batch at the first
	// failing Operation instead of continuing.
	CancelOnError bool
	// BatchContinueOnError keeps running the remaining Operations in a Batch after one fails, collecting every
	// error with Aggregate instead of stopping (mutually exclusive in effect with CancelOnError; CancelOnError
	// wins if both are set).
	BatchContinueOnError bool
	// SuppressException makes a Batch drop a failing Operation's error and continue; the Operation itself keeps
	// StateError, for callers that only want to inspect state after the fact rather than handle errors inline.
	SuppressException bool
	// ProgressInterval is the minimum spacing between EventProgress notifications for a single
	// Operation; zero means "every write".
	ProgressInterval time.Duration
}

// OperationSession is the unit of cancellation, policy and progress reporting shared by every Operation run
// through it. Cancelling a session cancels every Operation currently running under it; the cancellation flag
// itself is a plain atomic flag, since the session only needs a fast, lock-free "has this been cancelled" check
// on the hot copy-loop path.
type OperationSession struct {
	id     SessionID
	pool   *BlockPool
	policy OperationPolicy

	cancelled int32

	hub        *EventHub
	dispatcher Dispatcher
}

// NewOperationSession starts a session under policy. pool is kept with the session but no Operation draws
// from it: CopyFile allocates its own copy buffer. dispatcher
// controls how progress/lifecycle events reach observers registered via Observe; nil defaults to
// CallerThreadDispatcher.
func NewOperationSession(pool *BlockPool, policy OperationPolicy, dispatcher Dispatcher) *OperationSession {
	if dispatcher == nil {
		dispatcher = CallerThreadDispatcher{}
	}
	s := &OperationSession{id: NewSessionID(), pool: pool, policy: policy, hub: NewEventHub(), dispatcher: dispatcher}
	metrics.SessionsActive.Inc()
	return s
}

// ID returns this session's identifier.
func (s *OperationSession) ID() SessionID { return s.id }

// Cancel trips the session's cancellation flag. Already-running Operations observe it on their next
// cooperative check (e.g. between buffer chunks in CopyFile) and unwind to StateCancelled.
func (s *OperationSession) Cancel() {
	atomic.StoreInt32(&s.cancelled, 1)
}

// IsCancelled reports whether Cancel has been called.
func (s *OperationSession) IsCancelled() bool {
	return atomic.LoadInt32(&s.cancelled) != 0
}

// Observe registers observer for every event this session's Operations publish (creation, progress,
// completion); the registration always covers every path.
func (s *OperationSession) Observe(observer Observer) ObserverHandle {
	return s.hub.Add("", Option{}, observer, s.dispatcher)
}

// RemoveObserver unregisters a handle returned by Observe.
func (s *OperationSession) RemoveObserver(handle ObserverHandle) {
	s.hub.Remove(handle)
}

func (s *OperationSession) publish(e Event) {
	s.hub.Publish(e)
}

// Close releases the session's metrics accounting. It does not touch the block pool, which the session merely
// borrows rather than owns.
func (s *OperationSession) Close() {
	metrics.SessionsActive.Dec()
}
