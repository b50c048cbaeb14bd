package vfs

import (
	"bytes"
	"context"
	"io"
	"time"
)

const copyBufferSize = 32 * 1024

// copyBuffer streams src into dst copyBufferSize bytes at a time, checking cancelled between chunks and
// reporting progress through onProgress.
func copyBuffer(ctx context.Context, src io.Reader, dst io.Writer, total int64, cancelled func() error, onProgress func(done, total int64)) (int64, error) {
	buf := make([]byte, copyBufferSize)
	var written int64
	for {
		if err := ctx.Err(); err != nil {
			return written, NewError(KindCancelled, "", "copy cancelled")
		}
		if err := cancelled(); err != nil {
			return written, err
		}
		nr, er := src.Read(buf)
		if nr > 0 {
			nw, ew := dst.Write(buf[:nr])
			if nw > 0 {
				written += int64(nw)
			}
			if onProgress != nil {
				onProgress(written, total)
			}
			if ew != nil {
				return written, WrapError(KindIO, "", "write failed", ew)
			}
			if nw != nr {
				return written, WrapError(KindIO, "", "short write", io.ErrShortWrite)
			}
		}
		if er != nil {
			if er == io.EOF {
				return written, nil
			}
			return written, WrapError(KindIO, "", "read failed", er)
		}
	}
}

// CopyFileOperation copies one file between two FileSystem instances (possibly the same one), honoring the
// session's destination conflict policy.
type CopyFileOperation struct {
	baseOperation

	SrcFS   FileSystem
	SrcPath Path
	DstFS   FileSystem
	DstPath Path

	createdDst bool
}

// NewCopyFileOperation returns a CopyFileOperation in state Initialized.
func NewCopyFileOperation(session *OperationSession, srcFS FileSystem, srcPath Path, dstFS FileSystem, dstPath Path) *CopyFileOperation {
	return &CopyFileOperation{baseOperation: newBaseOperation(session), SrcFS: srcFS, SrcPath: srcPath, DstFS: dstFS, DstPath: dstPath}
}

// Estimate implements Operation: resolves the source entry's length without touching the destination.
func (op *CopyFileOperation) Estimate(ctx context.Context) error {
	op.setState(StateEstimating)
	entry, err := op.SrcFS.GetEntry(op.SrcPath, Option{})
	if err != nil {
		if IsErr(err, KindNotFound) && op.session.policy.SrcConflict == PolicySkip {
			op.skip()
			return nil
		}
		return op.fail(err)
	}
	op.estimatedBytes = entry.Length
	op.estimatedObjects = 1
	op.setState(StateEstimated)
	return nil
}

// Run implements Operation.
func (op *CopyFileOperation) Run(ctx context.Context) error {
	if op.State() == StateSkipped {
		return nil
	}
	op.setState(StateRunning)

	if _, err := op.DstFS.GetEntry(op.DstPath, Option{}); err == nil {
		switch op.session.policy.DstConflict {
		case PolicySkip:
			op.skip()
			return nil
		case PolicyThrow:
			return op.fail(AlreadyExistsErr(op.DstPath, false))
		case PolicyOverwrite:
			// fall through to overwrite below
		}
	} else {
		op.createdDst = true
	}

	src, err := op.SrcFS.Open(op.SrcPath, NewOption(OpenOption{CanOpen: true, CanRead: true}))
	if err != nil {
		return op.fail(err)
	}
	defer src.Close()

	dst, err := op.DstFS.Open(op.DstPath, NewOption(OpenOption{CanOpen: true, CanWrite: true, CanCreateFile: true}))
	if err != nil {
		return op.fail(err)
	}
	defer dst.Close()
	if err := dst.Truncate(0); err != nil {
		return op.fail(err)
	}

	var lastProgress time.Time
	interval := op.session.policy.ProgressInterval
	_, err = copyBuffer(ctx, src, dst, op.estimatedBytes, op.checkCancelled, func(done, total int64) {
		if interval > 0 && time.Since(lastProgress) < interval {
			return
		}
		lastProgress = time.Now()
		op.publishProgress(op.SrcPath, done, total)
	})
	if err != nil {
		if IsErr(err, KindCancelled) {
			op.mu.Lock()
			op.state, op.err = StateCancelled, err
			op.mu.Unlock()
			return err
		}
		return op.fail(err)
	}
	op.complete()
	op.session.publish(Event{Kind: EventCreated, Path: op.DstPath, FS: op.DstFS})
	return nil
}

// CreateRollback implements Operation: if this copy created a brand new destination file, rollback deletes it;
// if it overwrote an existing file, there is no captured backup to restore, so rollback is unsupported.
func (op *CopyFileOperation) CreateRollback() (Operation, error) {
	if !op.createdDst {
		return nil, NotSupportedErr("CreateRollback", op)
	}
	return NewDeleteOperation(op.session, op.DstFS, op.DstPath), nil
}

// MoveOperation relocates a path within a single FileSystem. Cross-filesystem moves are composed by
// optree.go as CopyFile+Delete instead, since Move itself must remain atomic-or-nothing within one backend.
type MoveOperation struct {
	baseOperation
	FS       FileSystem
	SrcPath  Path
	DstPath  Path
}

// NewMoveOperation returns a MoveOperation in state Initialized.
func NewMoveOperation(session *OperationSession, fs FileSystem, src, dst Path) *MoveOperation {
	return &MoveOperation{baseOperation: newBaseOperation(session), FS: fs, SrcPath: src, DstPath: dst}
}

// Estimate implements Operation.
func (op *MoveOperation) Estimate(ctx context.Context) error {
	op.setState(StateEstimating)
	entry, err := op.FS.GetEntry(op.SrcPath, Option{})
	if err != nil {
		if IsErr(err, KindNotFound) && op.session.policy.SrcConflict == PolicySkip {
			op.skip()
			return nil
		}
		return op.fail(err)
	}
	op.estimatedBytes = entry.Length
	op.estimatedObjects = 1
	op.setState(StateEstimated)
	return nil
}

// Run implements Operation.
func (op *MoveOperation) Run(ctx context.Context) error {
	if op.State() == StateSkipped {
		return nil
	}
	op.setState(StateRunning)
	if err := op.checkCancelled(); err != nil {
		return err
	}
	if err := op.FS.Move(op.SrcPath, op.DstPath, Option{}); err != nil {
		if IsErr(err, KindAlreadyExists) {
			switch op.session.policy.DstConflict {
			case PolicySkip:
				op.skip()
				return nil
			case PolicyOverwrite:
				if delErr := op.FS.Delete(op.DstPath, Option{}); delErr != nil {
					return op.fail(delErr)
				}
				if err := op.FS.Move(op.SrcPath, op.DstPath, Option{}); err != nil {
					return op.fail(err)
				}
				op.complete()
				op.session.publish(Event{Kind: EventRenamed, Path: op.DstPath, OldPath: op.SrcPath, FS: op.FS})
				return nil
			}
		}
		return op.fail(err)
	}
	op.complete()
	op.session.publish(Event{Kind: EventRenamed, Path: op.DstPath, OldPath: op.SrcPath, FS: op.FS})
	return nil
}

// CreateRollback implements Operation by swapping source and destination.
func (op *MoveOperation) CreateRollback() (Operation, error) {
	if op.State() != StateCompleted {
		return nil, NotSupportedErr("CreateRollback", op)
	}
	return NewMoveOperation(op.session, op.FS, op.DstPath, op.SrcPath), nil
}

// DeleteOperation removes a path, backing up a file's content first so it can synthesize a rollback.
// Directories are not backed up; their rollback just recreates the empty directory.
type DeleteOperation struct {
	baseOperation
	FS   FileSystem
	Path Path

	wasDir  bool
	backup  []byte
	backedUp bool
}

// NewDeleteOperation returns a DeleteOperation in state Initialized.
func NewDeleteOperation(session *OperationSession, fs FileSystem, path Path) *DeleteOperation {
	return &DeleteOperation{baseOperation: newBaseOperation(session), FS: fs, Path: path}
}

// Estimate implements Operation.
func (op *DeleteOperation) Estimate(ctx context.Context) error {
	op.setState(StateEstimating)
	entry, err := op.FS.GetEntry(op.Path, Option{})
	if err != nil {
		if IsErr(err, KindNotFound) && op.session.policy.SrcConflict == PolicySkip {
			op.skip()
			return nil
		}
		return op.fail(err)
	}
	op.wasDir = entry.IsDir()
	op.estimatedBytes = entry.Length
	op.estimatedObjects = 1
	op.setState(StateEstimated)
	return nil
}

// Run implements Operation.
func (op *DeleteOperation) Run(ctx context.Context) error {
	if op.State() == StateSkipped {
		return nil
	}
	op.setState(StateRunning)
	if err := op.checkCancelled(); err != nil {
		return err
	}
	if !op.wasDir {
		if stream, err := op.FS.Open(op.Path, NewOption(OpenOption{CanOpen: true, CanRead: true})); err == nil {
			var buf bytes.Buffer
			_, copyErr := io.Copy(&buf, stream)
			stream.Close()
			if copyErr == nil {
				op.backup = buf.Bytes()
				op.backedUp = true
			}
		}
	}
	if err := op.FS.Delete(op.Path, Option{}); err != nil {
		return op.fail(err)
	}
	op.complete()
	op.session.publish(Event{Kind: EventDeleted, Path: op.Path, FS: op.FS})
	return nil
}

// CreateRollback implements Operation: recreates an empty directory, or a file from its backed-up bytes if one
// was captured; returns KindNotSupported if neither applies (e.g. the file was too large to back up cheaply in
// a future revision of Run, or backup failed).
func (op *DeleteOperation) CreateRollback() (Operation, error) {
	if op.State() != StateCompleted {
		return nil, NotSupportedErr("CreateRollback", op)
	}
	if op.wasDir {
		return NewCreateDirectoryOperation(op.session, op.FS, op.Path), nil
	}
	if op.backedUp {
		return NewRestoreOperation(op.session, op.FS, op.Path, op.backup), nil
	}
	return nil, NotSupportedErr("CreateRollback", op)
}

// RestoreOperation writes previously captured bytes back to path, the rollback counterpart of DeleteOperation.
type RestoreOperation struct {
	baseOperation
	FS      FileSystem
	Path    Path
	Content []byte
}

// NewRestoreOperation returns a RestoreOperation that will (re-)create Path with content on Run.
func NewRestoreOperation(session *OperationSession, fs FileSystem, path Path, content []byte) *RestoreOperation {
	return &RestoreOperation{baseOperation: newBaseOperation(session), FS: fs, Path: path, Content: content}
}

// Estimate implements Operation.
func (op *RestoreOperation) Estimate(ctx context.Context) error {
	op.setState(StateEstimating)
	op.estimatedBytes = int64(len(op.Content))
	op.estimatedObjects = 1
	op.setState(StateEstimated)
	return nil
}

// Run implements Operation.
func (op *RestoreOperation) Run(ctx context.Context) error {
	op.setState(StateRunning)
	stream, err := op.FS.Open(op.Path, NewOption(OpenOption{CanOpen: true, CanWrite: true, CanCreateFile: true}))
	if err != nil {
		return op.fail(err)
	}
	defer stream.Close()
	if err := stream.Truncate(0); err != nil {
		return op.fail(err)
	}
	if _, err := stream.Write(op.Content); err != nil {
		return op.fail(err)
	}
	op.complete()
	return nil
}

// CreateRollback implements Operation: a restore's own rollback is deleting what it recreated.
func (op *RestoreOperation) CreateRollback() (Operation, error) {
	if op.State() != StateCompleted {
		return nil, NotSupportedErr("CreateRollback", op)
	}
	return NewDeleteOperation(op.session, op.FS, op.Path), nil
}

// CreateDirectoryOperation creates a directory, recording whether it actually created one so its rollback only
// removes directories it made rather than ones that already existed.
type CreateDirectoryOperation struct {
	baseOperation
	FS      FileSystem
	Path    Path
	created bool
}

// NewCreateDirectoryOperation returns a CreateDirectoryOperation in state Initialized.
func NewCreateDirectoryOperation(session *OperationSession, fs FileSystem, path Path) *CreateDirectoryOperation {
	return &CreateDirectoryOperation{baseOperation: newBaseOperation(session), FS: fs, Path: path}
}

// Estimate implements Operation.
func (op *CreateDirectoryOperation) Estimate(ctx context.Context) error {
	op.setState(StateEstimating)
	_, err := op.FS.GetEntry(op.Path, Option{})
	op.created = IsErr(err, KindNotFound)
	op.estimatedObjects = 1
	op.setState(StateEstimated)
	return nil
}

// Run implements Operation.
func (op *CreateDirectoryOperation) Run(ctx context.Context) error {
	op.setState(StateRunning)
	if err := op.checkCancelled(); err != nil {
		return err
	}
	if _, err := op.FS.CreateDirectory(op.Path, Option{}); err != nil {
		return op.fail(err)
	}
	op.complete()
	return nil
}

// CreateRollback implements Operation.
func (op *CreateDirectoryOperation) CreateRollback() (Operation, error) {
	if op.State() != StateCompleted || !op.created {
		return nil, NotSupportedErr("CreateRollback", op)
	}
	return NewDeleteOperation(op.session, op.FS, op.Path), nil
}
