package vfs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatchRunStopsAtFirstFailureByDefault(t *testing.T) {
	fs := newTestMemoryFileSystem(t)
	writeFile(t, fs, Path("a.txt"), []byte("a"))
	session := newTestSession(t, OperationPolicy{})

	good := NewDeleteOperation(session, fs, Path("a.txt"))
	bad := NewDeleteOperation(session, fs, Path("missing.txt"))
	bad.Estimate(context.Background())
	third := NewCreateDirectoryOperation(session, fs, Path("untouched/"))

	b := NewBatch(session).Add(good).Add(bad).Add(third)
	result := b.Run(context.Background())

	require.Error(t, result.Err)
	_, err := fs.GetEntry(Path("untouched/"), Option{})
	assert.True(t, IsErr(err, KindNotFound))
}

func TestBatchRunBatchContinueOnErrorAggregates(t *testing.T) {
	fs := newTestMemoryFileSystem(t)
	writeFile(t, fs, Path("a.txt"), []byte("a"))
	session := newTestSession(t, OperationPolicy{BatchContinueOnError: true})

	missingDelete := NewDeleteOperation(session, fs, Path("missing.txt"))
	mkdir := NewCreateDirectoryOperation(session, fs, Path("reached/"))

	b := NewBatch(session).Add(missingDelete).Add(mkdir)
	result := b.Run(context.Background())

	_, err := fs.GetEntry(Path("reached/"), Option{})
	require.NoError(t, err)
	require.Error(t, result.Err)
}

func TestBatchRunSuppressExceptionSwallowsFailures(t *testing.T) {
	fs := newTestMemoryFileSystem(t)
	session := newTestSession(t, OperationPolicy{SuppressException: true})

	missingDelete := NewDeleteOperation(session, fs, Path("missing.txt"))
	mkdir := NewCreateDirectoryOperation(session, fs, Path("after/"))

	b := NewBatch(session).Add(missingDelete).Add(mkdir)
	result := b.Run(context.Background())

	assert.NoError(t, result.Err)
	_, err := fs.GetEntry(Path("after/"), Option{})
	require.NoError(t, err)
}

func TestBatchRollbackUndoesCompletedOperationsInReverse(t *testing.T) {
	fs := newTestMemoryFileSystem(t)
	session := newTestSession(t, OperationPolicy{})

	mkdir := NewCreateDirectoryOperation(session, fs, Path("dir/"))
	// dir/ can only be deleted once dir/sub/ is gone, so the rollback succeeds only in reverse order.
	mkdirSub := NewCreateDirectoryOperation(session, fs, Path("dir/sub/"))

	b := NewBatch(session).Add(mkdir).Add(mkdirSub)
	result := b.Run(context.Background())
	require.NoError(t, result.Err)

	_, err := fs.GetEntry(Path("dir/"), Option{})
	require.NoError(t, err)

	require.NoError(t, b.Rollback(context.Background(), nil))
	_, err = fs.GetEntry(Path("dir/"), Option{})
	assert.True(t, IsErr(err, KindNotFound))
}
