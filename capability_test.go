package vfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeBackend struct {
	AbstractFileSystem
}

func TestAbstractFileSystemDefaultsToNotSupported(t *testing.T) {
	f := &fakeBackend{}
	f.AbstractFileSystem = NewAbstractFileSystem(f)

	_, err := f.Browse(Path(""), Option{})
	assert.True(t, IsErr(err, KindNotSupported))

	_, err = f.GetEntry(Path(""), Option{})
	assert.True(t, IsErr(err, KindNotSupported))

	_, err = f.Open(Path(""), Option{})
	assert.True(t, IsErr(err, KindNotSupported))

	err = f.Delete(Path(""), Option{})
	assert.True(t, IsErr(err, KindNotSupported))

	err = f.Move(Path("a"), Path("b"), Option{})
	assert.True(t, IsErr(err, KindNotSupported))

	assert.NoError(t, f.Dispose())
}

func TestAbstractFileSystemUsesAssignedFuncs(t *testing.T) {
	f := &fakeBackend{}
	f.AbstractFileSystem = NewAbstractFileSystem(f)
	f.DeleteFunc = func(path Path, opt Option) error {
		return nil
	}

	assert.NoError(t, f.Delete(Path("x"), Option{}))
}
