package vfs

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConcatBrowseMergesChildrenFirstWins(t *testing.T) {
	primary := newTestMemoryFileSystem(t)
	secondary := newTestMemoryFileSystem(t)
	writeFile(t, primary, Path("a.txt"), []byte("primary"))
	writeFile(t, secondary, Path("a.txt"), []byte("secondary"))
	writeFile(t, secondary, Path("b.txt"), []byte("only-in-secondary"))

	c := NewConcat(primary, secondary)
	content, err := c.Browse(Path(""), Option{})
	require.NoError(t, err)
	require.True(t, content.Exists)

	byName := make(map[string]*Entry)
	for _, e := range content.Children {
		byName[e.Name()] = e
	}
	require.Contains(t, byName, "a.txt")
	require.Contains(t, byName, "b.txt")
	assert.Equal(t, int64(len("primary")), byName["a.txt"].Length, "a.txt must come from the first child")
}

func TestConcatGetEntryFallsThroughNotFound(t *testing.T) {
	primary := newTestMemoryFileSystem(t)
	secondary := newTestMemoryFileSystem(t)
	writeFile(t, secondary, Path("only.txt"), []byte("x"))

	c := NewConcat(primary, secondary)
	entry, err := c.GetEntry(Path("only.txt"), Option{})
	require.NoError(t, err)
	assert.Equal(t, "only.txt", entry.Name())
}

func TestConcatOpenFallsThroughNotSupportedChild(t *testing.T) {
	readOnlyEmpty := NewDecoration(newTestMemoryFileSystem(t), Path(""), NewOption(OpenOption{CanOpen: false}))
	secondary := newTestMemoryFileSystem(t)
	writeFile(t, secondary, Path("a.txt"), []byte("secondary content"))

	c := NewConcat(readOnlyEmpty, secondary)
	stream, err := c.Open(Path("a.txt"), NewOption(OpenOption{CanOpen: true, CanRead: true}))
	require.NoError(t, err)
	defer stream.Close()

	data, err := io.ReadAll(stream)
	require.NoError(t, err)
	assert.Equal(t, "secondary content", string(data))
}

func TestConcatDeleteStopsAtFirstAcceptingChild(t *testing.T) {
	primary := newTestMemoryFileSystem(t)
	secondary := newTestMemoryFileSystem(t)
	writeFile(t, primary, Path("a.txt"), []byte("primary"))
	writeFile(t, secondary, Path("a.txt"), []byte("secondary"))

	c := NewConcat(primary, secondary)
	require.NoError(t, c.Delete(Path("a.txt"), Option{}))

	_, err := primary.GetEntry(Path("a.txt"), Option{})
	assert.True(t, IsErr(err, KindNotFound))

	// secondary's copy must be untouched: delete stops at the first accepting child instead of fanning out.
	entry, err := secondary.GetEntry(Path("a.txt"), Option{})
	require.NoError(t, err)
	assert.Equal(t, "a.txt", entry.Name())
}

func TestConcatDeleteAbortsOnNonNotSupportedError(t *testing.T) {
	failing := &fakeBackend{}
	failing.AbstractFileSystem = NewAbstractFileSystem(failing)
	failing.DeleteFunc = func(Path, Option) error {
		return NotFoundErr(Path("a.txt"))
	}
	secondary := newTestMemoryFileSystem(t)
	writeFile(t, secondary, Path("a.txt"), []byte("secondary"))

	c := NewConcat(failing, secondary)
	err := c.Delete(Path("a.txt"), Option{})
	require.Error(t, err)
	assert.True(t, IsErr(err, KindNotFound))

	// the call must have aborted rather than falling through: secondary's copy is untouched.
	entry, err := secondary.GetEntry(Path("a.txt"), Option{})
	require.NoError(t, err)
	assert.Equal(t, "a.txt", entry.Name())
}

func TestConcatRemoveObserverUnregistersFromEveryChild(t *testing.T) {
	a := newTestMemoryFileSystem(t)
	b := newTestMemoryFileSystem(t)
	c := NewConcat(a, b)

	handle, err := c.Observe(Path(""), NewOption(ObserveOption{CanObserve: true}), ObserverFunc(func(Event) {}))
	require.NoError(t, err)
	assert.Equal(t, 1, a.hub.Len())
	assert.Equal(t, 1, b.hub.Len())

	require.NoError(t, c.RemoveObserver(handle))
	assert.Equal(t, 0, a.hub.Len())
	assert.Equal(t, 0, b.hub.Len())
}
