package vfs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSession(t *testing.T, policy OperationPolicy) *OperationSession {
	t.Helper()
	pool := NewBlockPool(t.Name()+"-session", 64, 16)
	session := NewOperationSession(pool, policy, nil)
	t.Cleanup(session.Close)
	return session
}

func TestCopyFileOperationCopiesContentAndIsRollbackable(t *testing.T) {
	fs := newTestMemoryFileSystem(t)
	writeFile(t, fs, Path("src.txt"), []byte("hello world"))
	session := newTestSession(t, OperationPolicy{})

	op := NewCopyFileOperation(session, fs, Path("src.txt"), fs, Path("dst.txt"))
	require.NoError(t, op.Estimate(context.Background()))
	require.NoError(t, op.Run(context.Background()))
	assert.Equal(t, StateCompleted, op.State())
	assert.Equal(t, []byte("hello world"), readFile(t, fs, Path("dst.txt")))

	rollback, err := op.CreateRollback()
	require.NoError(t, err)
	require.NoError(t, rollback.Estimate(context.Background()))
	require.NoError(t, rollback.Run(context.Background()))

	_, err = fs.GetEntry(Path("dst.txt"), Option{})
	assert.True(t, IsErr(err, KindNotFound))
}

func TestCopyFileOperationOverwriteHasNoRollback(t *testing.T) {
	fs := newTestMemoryFileSystem(t)
	writeFile(t, fs, Path("src.txt"), []byte("new"))
	writeFile(t, fs, Path("dst.txt"), []byte("old"))
	session := newTestSession(t, OperationPolicy{DstConflict: PolicyOverwrite})

	op := NewCopyFileOperation(session, fs, Path("src.txt"), fs, Path("dst.txt"))
	require.NoError(t, op.Estimate(context.Background()))
	require.NoError(t, op.Run(context.Background()))
	assert.Equal(t, []byte("new"), readFile(t, fs, Path("dst.txt")))

	_, err := op.CreateRollback()
	require.Error(t, err)
	assert.True(t, IsErr(err, KindNotSupported))
}

func TestCopyFileOperationSkipsOnDstConflictWithPolicySkip(t *testing.T) {
	fs := newTestMemoryFileSystem(t)
	writeFile(t, fs, Path("src.txt"), []byte("new"))
	writeFile(t, fs, Path("dst.txt"), []byte("old"))
	session := newTestSession(t, OperationPolicy{DstConflict: PolicySkip})

	op := NewCopyFileOperation(session, fs, Path("src.txt"), fs, Path("dst.txt"))
	require.NoError(t, op.Estimate(context.Background()))
	require.NoError(t, op.Run(context.Background()))
	assert.Equal(t, StateSkipped, op.State())
	assert.Equal(t, []byte("old"), readFile(t, fs, Path("dst.txt")))
}

func TestCopyFileOperationCancellation(t *testing.T) {
	fs := NewMemoryFileSystem(t.Name(), nil)
	writeFile(t, fs, Path("src.txt"), make([]byte, 200*1024))
	session := newTestSession(t, OperationPolicy{})

	op := NewCopyFileOperation(session, fs, Path("src.txt"), fs, Path("dst.txt"))
	require.NoError(t, op.Estimate(context.Background()))
	session.Cancel()
	err := op.Run(context.Background())
	require.Error(t, err)
	assert.True(t, IsErr(err, KindCancelled))
	assert.Equal(t, StateCancelled, op.State())
}

func TestDeleteOperationBacksUpFileForRollback(t *testing.T) {
	fs := newTestMemoryFileSystem(t)
	writeFile(t, fs, Path("a.txt"), []byte("precious"))
	session := newTestSession(t, OperationPolicy{})

	op := NewDeleteOperation(session, fs, Path("a.txt"))
	require.NoError(t, op.Estimate(context.Background()))
	require.NoError(t, op.Run(context.Background()))
	_, err := fs.GetEntry(Path("a.txt"), Option{})
	assert.True(t, IsErr(err, KindNotFound))

	rollback, err := op.CreateRollback()
	require.NoError(t, err)
	require.NoError(t, rollback.Estimate(context.Background()))
	require.NoError(t, rollback.Run(context.Background()))
	assert.Equal(t, []byte("precious"), readFile(t, fs, Path("a.txt")))
}

func TestDeleteOperationOfMissingPathSkips(t *testing.T) {
	fs := newTestMemoryFileSystem(t)
	session := newTestSession(t, OperationPolicy{SrcConflict: PolicySkip})

	op := NewDeleteOperation(session, fs, Path("missing.txt"))
	require.NoError(t, op.Estimate(context.Background()))
	assert.Equal(t, StateSkipped, op.State())
}

func TestMoveOperationRollbackSwapsPaths(t *testing.T) {
	fs := newTestMemoryFileSystem(t)
	writeFile(t, fs, Path("a.txt"), []byte("x"))
	session := newTestSession(t, OperationPolicy{})

	op := NewMoveOperation(session, fs, Path("a.txt"), Path("b.txt"))
	require.NoError(t, op.Estimate(context.Background()))
	require.NoError(t, op.Run(context.Background()))

	rollback, err := op.CreateRollback()
	require.NoError(t, err)
	require.NoError(t, rollback.Estimate(context.Background()))
	require.NoError(t, rollback.Run(context.Background()))

	_, err = fs.GetEntry(Path("a.txt"), Option{})
	require.NoError(t, err)
}

func TestCreateDirectoryOperationRollbackOnlyWhenCreated(t *testing.T) {
	fs := newTestMemoryFileSystem(t)
	session := newTestSession(t, OperationPolicy{})

	op := NewCreateDirectoryOperation(session, fs, Path("newdir/"))
	require.NoError(t, op.Estimate(context.Background()))
	require.NoError(t, op.Run(context.Background()))

	rollback, err := op.CreateRollback()
	require.NoError(t, err)
	require.NoError(t, rollback.Estimate(context.Background()))
	require.NoError(t, rollback.Run(context.Background()))
	_, err = fs.GetEntry(Path("newdir/"), Option{})
	assert.True(t, IsErr(err, KindNotFound))

	// an operation over a directory that already existed before Run offers no rollback.
	require.NoError(t, fs.Delete(Path("newdir/"), Option{}))
	_, createErr := fs.CreateDirectory(Path("newdir/"), Option{})
	require.NoError(t, createErr)
	op2 := NewCreateDirectoryOperation(session, fs, Path("newdir/"))
	require.NoError(t, op2.Estimate(context.Background()))
	require.NoError(t, op2.Run(context.Background()))
	_, err = op2.CreateRollback()
	require.Error(t, err)
	assert.True(t, IsErr(err, KindNotSupported))
}
