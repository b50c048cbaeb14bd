package vfs

import (
	"io"
	"sync"
	"time"
)

// memoryStream is the Stream implementation MemoryFileSystem.Open returns. Content lives in node.blocks, each
// block checked out of the owning pool lazily as the stream is written past its currently allocated capacity;
// Write does not wait for a block: when the pool is at quota it fails with KindOutOfSpace, returning the count of
// bytes already written.
type memoryStream struct {
	fs   *MemoryFileSystem
	node *memNode
	path Path
	opt  OpenOption

	mu     sync.Mutex
	pos    int64
	closed bool
}

func (s *memoryStream) Read(p []byte) (int, error) {
	if !s.opt.CanRead {
		return 0, NewError(KindNoReadAccess, s.path, "stream not opened for reading")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, NewError(KindDisposed, s.path, "read after close")
	}

	s.node.mu.Lock()
	defer s.node.mu.Unlock()
	if s.pos >= s.node.length {
		return 0, io.EOF
	}

	blockSize := int64(s.fs.pool.BlockSize())
	n := 0
	for n < len(p) && s.pos < s.node.length {
		blockIdx := s.pos / blockSize
		offsetInBlock := s.pos % blockSize
		remainingInBlock := blockSize - offsetInBlock
		remainingInFile := s.node.length - s.pos
		toCopy := int64(len(p) - n)
		if toCopy > remainingInBlock {
			toCopy = remainingInBlock
		}
		if toCopy > remainingInFile {
			toCopy = remainingInFile
		}
		copy(p[n:int64(n)+toCopy], s.node.blocks[blockIdx].Bytes()[offsetInBlock:offsetInBlock+toCopy])
		n += int(toCopy)
		s.pos += toCopy
	}
	s.node.accessTime = time.Now()
	return n, nil
}

func (s *memoryStream) Write(p []byte) (int, error) {
	if !s.opt.CanWrite {
		return 0, NewError(KindNoWriteAccess, s.path, "stream not opened for writing")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, NewError(KindDisposed, s.path, "write after close")
	}

	blockSize := int64(s.fs.pool.BlockSize())
	written := 0
	for written < len(p) {
		blockIdx := s.pos / blockSize
		offsetInBlock := s.pos % blockSize

		if err := s.ensureBlock(blockIdx); err != nil {
			return written, err
		}

		remainingInBlock := blockSize - offsetInBlock
		toCopy := int64(len(p) - written)
		if toCopy > remainingInBlock {
			toCopy = remainingInBlock
		}
		s.node.mu.Lock()
		copy(s.node.blocks[blockIdx].Bytes()[offsetInBlock:offsetInBlock+toCopy], p[written:int64(written)+toCopy])
		s.pos += toCopy
		if s.pos > s.node.length {
			s.node.length = s.pos
		}
		s.node.modTime = time.Now()
		s.node.mu.Unlock()
		written += int(toCopy)
	}
	s.fs.hub.Publish(Event{Kind: EventModified, Path: s.path, FS: s.fs})
	return written, nil
}

// ensureBlock allocates blocks, without waiting, until blockIdx is allocated; it fails with KindOutOfSpace as
// soon as the pool has no free block.
func (s *memoryStream) ensureBlock(blockIdx int64) error {
	s.node.mu.Lock()
	have := int64(len(s.node.blocks))
	s.node.mu.Unlock()
	for have <= blockIdx {
		block, ok := s.fs.pool.TryAllocate()
		if !ok {
			return NewError(KindOutOfSpace, s.path, "block pool exhausted")
		}
		s.node.mu.Lock()
		s.node.blocks = append(s.node.blocks, block)
		have = int64(len(s.node.blocks))
		s.node.mu.Unlock()
	}
	return nil
}

func (s *memoryStream) Seek(offset int64, whence int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, NewError(KindDisposed, s.path, "seek after close")
	}
	s.node.mu.Lock()
	length := s.node.length
	s.node.mu.Unlock()

	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = s.pos + offset
	case io.SeekEnd:
		target = length + offset
	default:
		return 0, NewError(KindInvalidArgument, s.path, "invalid whence")
	}
	if target < 0 {
		return 0, NewError(KindInvalidArgument, s.path, "negative seek position")
	}
	s.pos = target
	return target, nil
}

func (s *memoryStream) Truncate(size int64) error {
	if !s.opt.CanWrite {
		return NewError(KindNoWriteAccess, s.path, "stream not opened for writing")
	}
	if size < 0 {
		return NewError(KindInvalidArgument, s.path, "negative truncate size")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return NewError(KindDisposed, s.path, "truncate after close")
	}

	blockSize := int64(s.fs.pool.BlockSize())
	wantBlocks := (size + blockSize - 1) / blockSize

	s.node.mu.Lock()
	haveBlocks := int64(len(s.node.blocks))
	var toRelease []*Block
	if wantBlocks < haveBlocks {
		toRelease = append(toRelease, s.node.blocks[wantBlocks:]...)
		s.node.blocks = s.node.blocks[:wantBlocks]
	}
	s.node.length = size
	s.node.modTime = time.Now()
	s.node.mu.Unlock()

	for _, b := range toRelease {
		b.Release()
	}
	for haveBlocks < wantBlocks {
		if err := s.ensureBlock(haveBlocks); err != nil {
			return err
		}
		haveBlocks++
	}
	s.fs.hub.Publish(Event{Kind: EventModified, Path: s.path, FS: s.fs})
	return nil
}

func (s *memoryStream) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.node.mu.Lock()
	s.node.openCount--
	var blocks []*Block
	if s.node.unlinked && s.node.openCount == 0 {
		blocks = s.node.blocks
		s.node.blocks = nil
	}
	s.node.mu.Unlock()
	for _, b := range blocks {
		b.Release()
	}

	s.fs.lifecycle.Release()
	return nil
}
