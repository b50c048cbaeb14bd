package vfs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopyTreeCopiesNestedDirectoriesAndFiles(t *testing.T) {
	src := newTestMemoryFileSystem(t)
	dst := newTestMemoryFileSystem(t)
	writeFile(t, src, Path("dir/a.txt"), []byte("a"))
	writeFile(t, src, Path("dir/sub/b.txt"), []byte("b"))
	session := newTestSession(t, OperationPolicy{})

	result, err := CopyTree(context.Background(), session, src, Path("dir/"), dst, Path("dir/"), 2)
	require.NoError(t, err)
	assert.NotEmpty(t, result.Operations)

	assert.Equal(t, []byte("a"), readFile(t, dst, Path("dir/a.txt")))
	assert.Equal(t, []byte("b"), readFile(t, dst, Path("dir/sub/b.txt")))
}

func TestCopyTreeStopsOnFirstErrorWithoutContinueOnError(t *testing.T) {
	src := newTestMemoryFileSystem(t)
	dst := newTestMemoryFileSystem(t)
	writeFile(t, src, Path("dir/a.txt"), []byte("a"))
	writeFile(t, dst, Path("dir/a.txt"), []byte("existing"))
	session := newTestSession(t, OperationPolicy{DstConflict: PolicyThrow})

	_, err := CopyTree(context.Background(), session, src, Path("dir/"), dst, Path("dir/"), 2)
	require.Error(t, err)
	assert.True(t, IsErr(err, KindAlreadyExists))
}

func TestMoveTreeWithinSameFileSystemDelegatesToSingleOperation(t *testing.T) {
	fs := newTestMemoryFileSystem(t)
	writeFile(t, fs, Path("a.txt"), []byte("x"))
	session := newTestSession(t, OperationPolicy{})

	result, err := MoveTree(context.Background(), session, fs, Path("a.txt"), fs, Path("b.txt"))
	require.NoError(t, err)
	require.Len(t, result.Operations, 1)
	_, isMove := result.Operations[0].(*MoveOperation)
	assert.True(t, isMove)
}

func TestMoveTreeAcrossFileSystemsFallsBackToCopyThenDelete(t *testing.T) {
	src := newTestMemoryFileSystem(t)
	dst := newTestMemoryFileSystem(t)
	writeFile(t, src, Path("a.txt"), []byte("cross-fs"))
	session := newTestSession(t, OperationPolicy{})

	result, err := MoveTree(context.Background(), session, src, Path("a.txt"), dst, Path("a.txt"))
	require.NoError(t, err)
	assert.Equal(t, []byte("cross-fs"), readFile(t, dst, Path("a.txt")))
	_, err = src.GetEntry(Path("a.txt"), Option{})
	assert.True(t, IsErr(err, KindNotFound))

	var sawDelete bool
	for _, op := range result.Operations {
		if _, ok := op.(*DeleteOperation); ok {
			sawDelete = true
		}
	}
	assert.True(t, sawDelete)
}

func TestTransferTreeIsAliasForCopyTree(t *testing.T) {
	src := newTestMemoryFileSystem(t)
	dst := newTestMemoryFileSystem(t)
	writeFile(t, src, Path("a.txt"), []byte("x"))
	session := newTestSession(t, OperationPolicy{})

	_, err := TransferTree(context.Background(), session, src, Path("a.txt"), dst, Path("a.txt"), 1)
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), readFile(t, dst, Path("a.txt")))
}
