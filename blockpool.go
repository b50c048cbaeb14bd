package vfs

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/arcfs/vfs/internal/metrics"
)

// DefaultBlockSize is the size, in bytes, of a single block handed out by a BlockPool unless overridden.
const DefaultBlockSize = 64 * 1024

// A Block is a fixed-size buffer checked out of a BlockPool. The memory filesystem composes a file's content out
// of a chain of Blocks rather than one growing byte slice, so that quota is enforced per block rather than by
// periodically measuring total heap use.
type Block struct {
	data []byte
	pool *BlockPool
}

// Bytes returns the block's backing buffer. Callers may use any prefix of it; the block does not record how
// many bytes are live.
func (b *Block) Bytes() []byte { return b.data }

// Release returns the block to its pool, making it available to the next blocked or non-blocking allocator.
func (b *Block) Release() {
	if b == nil || b.pool == nil {
		return
	}
	b.pool.Return(b)
}

// A BlockPool hands out fixed-size Blocks up to a fixed quota. Allocate blocks in FIFO order via
// golang.org/x/sync/semaphore.Weighted, which queues Acquire callers in arrival order; TryAllocate never
// blocks. Dispose immediately fails every blocked and future Allocate call with KindDisposed.
type BlockPool struct {
	name      string
	blockSize int
	capacity  int64

	sem *semaphore.Weighted

	mu        sync.Mutex
	recycled  [][]byte
	disposed  bool
	disposeCh chan struct{}
}

// NewBlockPool constructs a pool of capacity blocks, each blockSize bytes. name is used only to label metrics.
func NewBlockPool(name string, capacity int64, blockSize int) *BlockPool {
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	p := &BlockPool{
		name:      name,
		blockSize: blockSize,
		capacity:  capacity,
		sem:       semaphore.NewWeighted(capacity),
		disposeCh: make(chan struct{}),
	}
	metrics.BlocksCapacity.WithLabelValues(name).Set(float64(capacity))
	return p
}

// Allocate blocks, in FIFO order among concurrent callers, until a block is free, ctx is cancelled, or the pool
// is disposed. Returns a *Error with KindDisposed if Dispose was or is called first, KindCancelled if ctx
// expires first.
func (p *BlockPool) Allocate(ctx context.Context) (*Block, error) {
	if p.isDisposed() {
		return nil, NewError(KindDisposed, "", "block pool disposed")
	}

	waitStart := time.Now()
	acquireCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(p.disposeCh, cancel)
	defer stop()

	if err := p.sem.Acquire(acquireCtx, 1); err != nil {
		if p.isDisposed() {
			return nil, NewError(KindDisposed, "", "block pool disposed")
		}
		return nil, WrapError(KindCancelled, "", "allocate cancelled", err)
	}
	metrics.AllocationWaitSeconds.WithLabelValues(p.name).Observe(time.Since(waitStart).Seconds())
	metrics.BlocksInUse.WithLabelValues(p.name).Inc()
	return &Block{data: p.takeBuffer(), pool: p}, nil
}

// TryAllocate attempts a non-blocking allocation, returning ok=false immediately if the pool is exhausted or
// disposed rather than waiting.
func (p *BlockPool) TryAllocate() (block *Block, ok bool) {
	if p.isDisposed() {
		return nil, false
	}
	if !p.sem.TryAcquire(1) {
		return nil, false
	}
	metrics.BlocksInUse.WithLabelValues(p.name).Inc()
	return &Block{data: p.takeBuffer(), pool: p}, true
}

// Return releases a block back to the pool, waking the oldest blocked Allocate call if any. Returning a block
// that did not come from this pool is a safe no-op; after disposal the buffer is dropped instead of recycled.
func (p *BlockPool) Return(b *Block) {
	if b == nil || b.pool != p {
		return
	}
	p.mu.Lock()
	if !p.disposed {
		// zero it so the next Allocate caller never observes another client's data.
		for i := range b.data {
			b.data[i] = 0
		}
		p.recycled = append(p.recycled, b.data)
	}
	p.mu.Unlock()
	b.data = nil
	b.pool = nil
	metrics.BlocksInUse.WithLabelValues(p.name).Dec()
	p.sem.Release(1)
}

// Disconnect transfers ownership of b's buffer to the caller: it decrements the allocated count and releases
// the semaphore slot exactly like Return, but the buffer is handed back rather than queued onto the recycle
// list, and it is not zeroed first. Disconnecting a block that did not come from this pool is a safe no-op
// returning nil.
func (p *BlockPool) Disconnect(b *Block) []byte {
	if b == nil || b.pool != p {
		return nil
	}
	data := b.data
	b.data = nil
	b.pool = nil
	metrics.BlocksInUse.WithLabelValues(p.name).Dec()
	p.sem.Release(1)
	return data
}

// Dispose marks the pool permanently unusable: every blocked Allocate call wakes immediately with
// KindDisposed, and all subsequent Allocate/TryAllocate calls fail the same way. Dispose is idempotent.
func (p *BlockPool) Dispose() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.disposed {
		return
	}
	p.disposed = true
	p.recycled = nil
	close(p.disposeCh)
}

func (p *BlockPool) isDisposed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.disposed
}

func (p *BlockPool) takeBuffer() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := len(p.recycled)
	if n == 0 {
		return make([]byte, p.blockSize)
	}
	buf := p.recycled[n-1]
	p.recycled = p.recycled[:n-1]
	return buf
}

// Capacity returns the total number of blocks this pool was constructed with.
func (p *BlockPool) Capacity() int64 { return p.capacity }

// BlockSize returns the fixed size, in bytes, of every block this pool hands out.
func (p *BlockPool) BlockSize() int { return p.blockSize }
