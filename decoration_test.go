package vfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecorationRemapsSubPath(t *testing.T) {
	fs := newTestMemoryFileSystem(t)
	writeFile(t, fs, Path("root/sub/a.txt"), []byte("hi"))

	dec := NewDecoration(fs, Path("root/sub/"), Option{})

	entry, err := dec.GetEntry(Path("a.txt"), Option{})
	require.NoError(t, err)
	assert.Equal(t, Path("a.txt"), entry.EntryPath)
	assert.Equal(t, FileSystem(dec), entry.FS)
}

func TestDecorationRestrictsWriteCapability(t *testing.T) {
	fs := newTestMemoryFileSystem(t)
	writeFile(t, fs, Path("a.txt"), []byte("hi"))

	readOnly := NewOption(
		OpenOption{CanOpen: true, CanRead: true},
		DeleteOption{CanDelete: false},
		MoveOption{CanMove: false},
		CreateDirectoryOption{CanCreateDirectory: false},
	)
	dec := NewDecoration(fs, Path(""), readOnly)

	_, err := dec.Open(Path("a.txt"), NewOption(OpenOption{CanOpen: true, CanRead: true}))
	require.NoError(t, err)

	err = dec.Delete(Path("a.txt"), Option{})
	require.Error(t, err)
	assert.True(t, IsErr(err, KindNotSupported))
}

func TestDecorationBetweenMapsBothPrefixes(t *testing.T) {
	fs := newTestMemoryFileSystem(t)
	writeFile(t, fs, Path("backend/store/a.txt"), []byte("hi"))

	// parent-prefix "public/" is what callers address this decoration under; child-prefix "backend/store/" is
	// where the content actually lives in fs.
	dec := NewDecorationBetween(fs, Path("public/"), Path("backend/store/"), Option{})

	entry, err := dec.GetEntry(Path("public/a.txt"), Option{})
	require.NoError(t, err)
	assert.Equal(t, Path("public/a.txt"), entry.EntryPath)

	_, err = dec.GetEntry(Path("other/a.txt"), Option{})
	require.Error(t, err)
	assert.True(t, IsErr(err, KindNotFound), "a path outside the parent-prefix must be rejected")
}

func TestDecorationForwardsObserverEventsWithRemappedPath(t *testing.T) {
	fs := newTestMemoryFileSystem(t)
	dec := NewDecoration(fs, Path("root/"), NewOption(ObserveOption{CanObserve: true}))

	received := make(chan Event, 4)
	handle, err := dec.Observe(Path(""), NewOption(ObserveOption{CanObserve: true}), ObserverFunc(func(e Event) {
		received <- e
	}))
	require.NoError(t, err)
	defer dec.RemoveObserver(handle)

	writeFile(t, fs, Path("root/a.txt"), []byte("x"))

	select {
	case e := <-received:
		assert.Equal(t, Path("a.txt"), e.Path)
	default:
		t.Fatal("expected a forwarded event with the remapped path")
	}
}
