package vfs

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMemoryFileSystem(t *testing.T) *MemoryFileSystem {
	t.Helper()
	pool := NewBlockPool(t.Name(), 64, 16)
	return NewMemoryFileSystem(t.Name(), pool)
}

func writeFile(t *testing.T, fs *MemoryFileSystem, path Path, content []byte) {
	t.Helper()
	stream, err := fs.Open(path, NewOption(OpenOption{CanOpen: true, CanWrite: true, CanCreateFile: true}))
	require.NoError(t, err)
	_, err = stream.Write(content)
	require.NoError(t, err)
	require.NoError(t, stream.Close())
}

func readFile(t *testing.T, fs *MemoryFileSystem, path Path) []byte {
	t.Helper()
	stream, err := fs.Open(path, NewOption(OpenOption{CanOpen: true, CanRead: true}))
	require.NoError(t, err)
	defer stream.Close()
	data, err := io.ReadAll(stream)
	require.NoError(t, err)
	return data
}

func TestMemoryFileSystemWriteAndReadAcrossBlocks(t *testing.T) {
	fs := newTestMemoryFileSystem(t)
	content := make([]byte, 40) // spans 3 blocks of size 16
	for i := range content {
		content[i] = byte(i)
	}
	writeFile(t, fs, Path("a.bin"), content)

	assert.Equal(t, content, readFile(t, fs, Path("a.bin")))
}

func TestMemoryFileSystemOpenWithoutCreateFailsForMissingFile(t *testing.T) {
	fs := newTestMemoryFileSystem(t)
	_, err := fs.Open(Path("missing.txt"), NewOption(OpenOption{CanOpen: true, CanRead: true}))
	require.Error(t, err)
	assert.True(t, IsErr(err, KindNotFound))
}

func TestMemoryFileSystemCreateDirectoryAndBrowse(t *testing.T) {
	fs := newTestMemoryFileSystem(t)
	_, err := fs.CreateDirectory(Path("a/b/"), NewOption(CreateDirectoryOption{CanCreateDirectory: true}))
	require.NoError(t, err)

	content, err := fs.Browse(Path(""), Option{})
	require.NoError(t, err)
	require.True(t, content.Exists)
	require.Len(t, content.Children, 1)
	assert.Equal(t, "a", content.Children[0].Name())
	assert.True(t, content.Children[0].IsDir())
}

func TestMemoryFileSystemBrowseNonExistentIsNotAnError(t *testing.T) {
	fs := newTestMemoryFileSystem(t)
	content, err := fs.Browse(Path("nope/"), Option{})
	require.NoError(t, err)
	assert.False(t, content.Exists)
}

func TestMemoryFileSystemDeleteNonEmptyDirectoryFails(t *testing.T) {
	fs := newTestMemoryFileSystem(t)
	writeFile(t, fs, Path("dir/file.txt"), []byte("hi"))

	err := fs.Delete(Path("dir/"), Option{})
	require.Error(t, err)
	assert.True(t, IsErr(err, KindNotEmpty))
}

func TestMemoryFileSystemDeleteReleasesBlocks(t *testing.T) {
	fs := newTestMemoryFileSystem(t)
	writeFile(t, fs, Path("a.bin"), make([]byte, 32))

	require.NoError(t, fs.Delete(Path("a.bin"), Option{}))

	// every block should be back in the pool: a fresh allocation of pool capacity must succeed.
	for i := int64(0); i < fs.pool.Capacity(); i++ {
		_, ok := fs.pool.TryAllocate()
		assert.True(t, ok, "block %d not released back to pool", i)
	}
}

func TestMemoryFileSystemDeleteWhileOpenDefersBlockRelease(t *testing.T) {
	pool := NewBlockPool(t.Name(), 2, 16)
	fs := NewMemoryFileSystem(t.Name(), pool)
	writeFile(t, fs, Path("a.bin"), make([]byte, 32)) // exactly fills the 2-block pool

	stream, err := fs.Open(Path("a.bin"), NewOption(OpenOption{CanOpen: true, CanRead: true, CanWrite: true}))
	require.NoError(t, err)

	require.NoError(t, fs.Delete(Path("a.bin"), Option{}))

	// the stream is still open: reading and writing through it must keep working rather than panic on a
	// nilled-out block slice.
	_, err = stream.Seek(0, io.SeekStart)
	require.NoError(t, err)
	_, err = stream.Write([]byte("overwritten"))
	require.NoError(t, err)
	_, err = stream.Seek(0, io.SeekStart)
	require.NoError(t, err)
	buf := make([]byte, 10)
	_, err = stream.Read(buf)
	require.NoError(t, err)

	_, ok := pool.TryAllocate()
	assert.False(t, ok, "blocks released while stream is still open")

	require.NoError(t, stream.Close())

	// now that the last stream closed, the deferred release must have run.
	_, ok = pool.TryAllocate()
	assert.True(t, ok, "blocks not released after last stream closed")
}

func TestNewMemoryFileSystemWithoutPoolOwnsInternalPool(t *testing.T) {
	fs := NewMemoryFileSystem(t.Name(), nil)
	require.NotNil(t, fs.pool)
	assert.True(t, fs.ownsPool)
	assert.Equal(t, int64(maxInternalPoolBlocks), fs.pool.Capacity())

	writeFile(t, fs, Path("a.txt"), []byte("hello"))
	require.NoError(t, fs.Dispose())

	_, err := fs.pool.Allocate(context.Background())
	require.Error(t, err)
	assert.True(t, IsErr(err, KindDisposed))
}

func TestNewMemoryFileSystemWithSharedPoolDoesNotDisposeIt(t *testing.T) {
	pool := NewBlockPool(t.Name(), 64, 16)
	fsA := NewMemoryFileSystem(t.Name()+"-a", pool)
	fsB := NewMemoryFileSystem(t.Name()+"-b", pool)

	require.NoError(t, fsA.Dispose())

	// the shared pool must still be usable through fsB.
	writeFile(t, fsB, Path("a.txt"), []byte("hello"))
	assert.Equal(t, []byte("hello"), readFile(t, fsB, Path("a.txt")))
}

func TestMemoryFileSystemMove(t *testing.T) {
	fs := newTestMemoryFileSystem(t)
	writeFile(t, fs, Path("a.txt"), []byte("hello"))

	require.NoError(t, fs.Move(Path("a.txt"), Path("b.txt"), Option{}))

	_, err := fs.GetEntry(Path("a.txt"), Option{})
	assert.True(t, IsErr(err, KindNotFound))
	assert.Equal(t, []byte("hello"), readFile(t, fs, Path("b.txt")))
}

func TestMemoryFileSystemObserveReceivesEvents(t *testing.T) {
	fs := newTestMemoryFileSystem(t)
	received := make(chan Event, 4)
	handle, err := fs.Observe(Path(""), NewOption(ObserveOption{CanObserve: true}), ObserverFunc(func(e Event) {
		received <- e
	}))
	require.NoError(t, err)
	defer fs.RemoveObserver(handle)

	writeFile(t, fs, Path("a.txt"), []byte("x"))

	select {
	case e := <-received:
		assert.Equal(t, EventCreated, e.Kind)
	default:
		t.Fatal("expected a Created event")
	}
}

func TestMemoryFileSystemTruncate(t *testing.T) {
	fs := newTestMemoryFileSystem(t)
	writeFile(t, fs, Path("a.bin"), make([]byte, 32))

	stream, err := fs.Open(Path("a.bin"), NewOption(OpenOption{CanOpen: true, CanWrite: true}))
	require.NoError(t, err)
	require.NoError(t, stream.Truncate(8))
	require.NoError(t, stream.Close())

	entry, err := fs.GetEntry(Path("a.bin"), Option{})
	require.NoError(t, err)
	assert.Equal(t, int64(8), entry.Length)
}
