package vfs

import (
	"regexp"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingZipLoader struct {
	pattern *regexp.Regexp
	loads   int32
}

func (l *countingZipLoader) Pattern() *regexp.Regexp { return l.pattern }

func (l *countingZipLoader) LoadFromStream(s Stream) (FileSystem, error) {
	atomic.AddInt32(&l.loads, 1)
	pool := NewBlockPool("auto", 4, 16)
	fs := NewMemoryFileSystem("auto", pool)
	writeFileInto(fs, Path("inner.txt"), []byte("packaged"))
	return fs, nil
}

func writeFileInto(fs *MemoryFileSystem, path Path, content []byte) {
	stream, err := fs.Open(path, NewOption(OpenOption{CanOpen: true, CanWrite: true, CanCreateFile: true}))
	if err != nil {
		panic(err)
	}
	if _, err := stream.Write(content); err != nil {
		panic(err)
	}
	_ = stream.Close()
}

func TestAutoMounterLoadsAndCaches(t *testing.T) {
	loader := &countingZipLoader{pattern: regexp.MustCompile(`\.zip$`)}
	am := NewAutoMounter([]PackageLoader{loader}, 4)

	outer := newTestMemoryFileSystem(t)
	writeFile(t, outer, Path("archive.zip"), []byte("fake zip bytes"))
	entry, err := outer.GetEntry(Path("archive.zip"), Option{})
	require.NoError(t, err)

	opener := func() (Stream, error) {
		return outer.Open(Path("archive.zip"), NewOption(OpenOption{CanOpen: true, CanRead: true}))
	}

	fs1, err := am.Mount(entry, opener)
	require.NoError(t, err)
	fs2, err := am.Mount(entry, opener)
	require.NoError(t, err)

	assert.Same(t, fs1, fs2)
	assert.EqualValues(t, 1, loader.loads, "cache hit should not reload")
}

func TestAutoMounterRejectsUnmatchedExtension(t *testing.T) {
	loader := &countingZipLoader{pattern: regexp.MustCompile(`\.zip$`)}
	am := NewAutoMounter([]PackageLoader{loader}, 4)

	outer := newTestMemoryFileSystem(t)
	writeFile(t, outer, Path("archive.tar"), []byte("not a zip"))
	entry, err := outer.GetEntry(Path("archive.tar"), Option{})
	require.NoError(t, err)

	_, err = am.Mount(entry, func() (Stream, error) { return nil, nil })
	require.Error(t, err)
	assert.True(t, IsErr(err, KindNotFound))
}

func TestAutoMounterAutoUnmountForcesReload(t *testing.T) {
	loader := &countingZipLoader{pattern: regexp.MustCompile(`\.zip$`)}
	am := NewAutoMounter([]PackageLoader{loader}, 4)

	outer := newTestMemoryFileSystem(t)
	writeFile(t, outer, Path("archive.zip"), []byte("fake zip bytes"))
	entry, err := outer.GetEntry(Path("archive.zip"), Option{})
	require.NoError(t, err)
	opener := func() (Stream, error) {
		return outer.Open(Path("archive.zip"), NewOption(OpenOption{CanOpen: true, CanRead: true}))
	}

	_, err = am.Mount(entry, opener)
	require.NoError(t, err)
	am.AutoUnmount(entry)
	_, err = am.Mount(entry, opener)
	require.NoError(t, err)

	assert.EqualValues(t, 2, loader.loads)
}
