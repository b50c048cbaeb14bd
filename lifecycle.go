package vfs

import "sync"

// Disposable is implemented by anything with a releasable resource: block pool allocations, native handles, or
// a mounted child filesystem.
type Disposable interface {
	Dispose() error
}

// BelateDispose implements the deferred-disposal protocol for a filesystem that still has open streams or
// active observers when Dispose is called: rather than disposing immediately and leaving those handles
// dangling, or refusing the call outright, Dispose is recorded and deferred until the last outstanding
// Acquire is Released, at which point cleanup runs exactly once. This mirrors the atomic, call-once guarantee
// of an atomic, call-once cancellation flag, generalized from "cancel" to "cancel once refs drain".
type BelateDispose struct {
	mu       sync.Mutex
	refs     int
	deferred bool
	disposed bool
	cleanup  func() error
	err      error
}

// NewBelateDispose wraps cleanup, which runs at most once, either synchronously inside Dispose (if there are no
// outstanding references) or from whichever Release call drops the reference count to zero.
func NewBelateDispose(cleanup func() error) *BelateDispose {
	return &BelateDispose{cleanup: cleanup}
}

// Acquire registers one outstanding reference (an open Stream, a live Observer registration). Acquire after
// Dispose has already run returns KindDisposed and does not increment the count.
func (b *BelateDispose) Acquire() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.disposed {
		return NewError(KindDisposed, "", "acquired after dispose")
	}
	b.refs++
	return nil
}

// Release drops one outstanding reference. If Dispose has already been requested and this was the last
// reference, cleanup runs now, on this goroutine.
func (b *BelateDispose) Release() {
	b.mu.Lock()
	b.refs--
	run := b.deferred && !b.disposed && b.refs <= 0
	if run {
		b.disposed = true
	}
	b.mu.Unlock()
	if run {
		b.err = b.cleanup()
	}
}

// Dispose requests disposal. If there are no outstanding references, cleanup runs immediately and its error is
// returned. Otherwise disposal is recorded and runs later from the Release call that drains the last
// reference; Dispose returns nil in that case, since the eventual outcome is not yet known — callers that need
// to observe it should use IsDisposed after the last known reference is released; a later Dispose call returns
// the cleanup error.
func (b *BelateDispose) Dispose() error {
	b.mu.Lock()
	if b.disposed {
		err := b.err
		b.mu.Unlock()
		return err
	}
	b.deferred = true
	run := b.refs <= 0
	if run {
		b.disposed = true
	}
	b.mu.Unlock()
	if run {
		b.err = b.cleanup()
		return b.err
	}
	return nil
}

// IsDisposed reports whether cleanup has already run.
func (b *BelateDispose) IsDisposed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.disposed
}

// IsDisposeRequested reports whether Dispose was called, whether or not cleanup has run yet.
func (b *BelateDispose) IsDisposeRequested() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.deferred
}
