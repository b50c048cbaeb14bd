package vfs

import "io"

// Stream is a random-access handle to an open file's content, returned by Open. It composes the usual Go I/O
// interfaces with Truncate, since the in-memory backend and the operation engine both need to shrink/grow a
// file in place rather than only append.
type Stream interface {
	io.Reader
	io.Writer
	io.Seeker
	io.Closer
	Truncate(size int64) error
}

// FileSystem is the single capability surface every backend, Decoration, Composer and VirtualFileSystem in
// this package implements, rather than splitting the surface into several narrow interfaces (Browsable,
// Openable, Observable, ...): folding them back into one interface with uniform NotSupported behavior means a
// Decoration or Composer only has to hold a single child reference; AbstractFileSystem below recovers the
// "implement only what you support" ergonomics that narrow interfaces were for.
//
// A caller discovers what a given path actually supports through Option, not through a type assertion: Option
// is queried per-call so that a mount tree or decoration can narrow capabilities per subtree.
type FileSystem interface {
	// Option reports the capabilities and metadata in effect at path.
	Option(path Path) Option

	// Browse lists path's children. A non-existent directory yields a NonExistent DirectoryContent, not an
	// error. Returns KindNotSupported if Browse is not implemented, KindInvalidArgument if path names a file.
	Browse(path Path, opt Option) (*DirectoryContent, error)

	// GetEntry describes a single path without listing its siblings. Returns KindNotFound if path does not
	// resolve.
	GetEntry(path Path, opt Option) (*Entry, error)

	// Open returns a Stream positioned at offset 0. opt.Open() controls read/write/create semantics.
	Open(path Path, opt Option) (Stream, error)

	// CreateDirectory creates path and any missing ancestors, returning the new Entry. A directory that already
	// exists is not an error; returns KindAlreadyExists if a file occupies path or one of its ancestors.
	CreateDirectory(path Path, opt Option) (*Entry, error)

	// Delete removes path. A non-empty directory fails with KindNotEmpty unless the caller recurses itself.
	Delete(path Path, opt Option) error

	// Move relocates src to dst within this filesystem. Returns KindNotSupported for a cross-filesystem move;
	// the operation engine falls back to CopyFile+Delete in that case.
	Move(src, dst Path, opt Option) error

	// SetFileAttribute applies backend-specific attribute flags to path.
	SetFileAttribute(path Path, attrs FileAttributes, opt Option) error

	// Observe registers observer for changes under path, scoped by the Filter in opt.Observe(), returning a handle to
	// later pass to RemoveObserver.
	Observe(path Path, opt Option, observer Observer) (ObserverHandle, error)

	// RemoveObserver unregisters a handle returned by Observe. Removing an unknown handle is a no-op.
	RemoveObserver(handle ObserverHandle) error

	// Dispose releases resources held by this filesystem (block pool allocations, native handles, mounted
	// children). Per the belate-dispose protocol, a filesystem with open streams or
	// active observers defers the actual release until the last one closes.
	Dispose() error
}

// AbstractFileSystem is an embeddable FileSystem base whose every method defaults to KindNotSupported. A
// concrete backend, Decoration or Composer embeds it and assigns only the Func fields it implements, a
// function-pointer-field pattern that avoids a forest of trivial "return ENOSYS" method bodies. who is filled
// in by NewAbstractFileSystem for NotSupportedErr's %T-style report.
type AbstractFileSystem struct {
	who interface{}

	OptionFunc           func(path Path) Option
	BrowseFunc           func(path Path, opt Option) (*DirectoryContent, error)
	GetEntryFunc         func(path Path, opt Option) (*Entry, error)
	OpenFunc             func(path Path, opt Option) (Stream, error)
	CreateDirectoryFunc  func(path Path, opt Option) (*Entry, error)
	DeleteFunc           func(path Path, opt Option) error
	MoveFunc             func(src, dst Path, opt Option) error
	SetFileAttributeFunc func(path Path, attrs FileAttributes, opt Option) error
	ObserveFunc          func(path Path, opt Option, observer Observer) (ObserverHandle, error)
	RemoveObserverFunc   func(handle ObserverHandle) error
	DisposeFunc          func() error
}

// NewAbstractFileSystem returns an AbstractFileSystem that reports who in its NotSupported errors. who is
// typically the embedding struct, passed as `&MemoryFileSystem{}` style self-reference.
func NewAbstractFileSystem(who interface{}) AbstractFileSystem {
	return AbstractFileSystem{who: who}
}

func (a *AbstractFileSystem) Option(path Path) Option {
	if a.OptionFunc != nil {
		return a.OptionFunc(path)
	}
	return Option{}
}

func (a *AbstractFileSystem) Browse(path Path, opt Option) (*DirectoryContent, error) {
	if a.BrowseFunc != nil {
		return a.BrowseFunc(path, opt)
	}
	return nil, NotSupportedErr("Browse", a.who)
}

func (a *AbstractFileSystem) GetEntry(path Path, opt Option) (*Entry, error) {
	if a.GetEntryFunc != nil {
		return a.GetEntryFunc(path, opt)
	}
	return nil, NotSupportedErr("GetEntry", a.who)
}

func (a *AbstractFileSystem) Open(path Path, opt Option) (Stream, error) {
	if a.OpenFunc != nil {
		return a.OpenFunc(path, opt)
	}
	return nil, NotSupportedErr("Open", a.who)
}

func (a *AbstractFileSystem) CreateDirectory(path Path, opt Option) (*Entry, error) {
	if a.CreateDirectoryFunc != nil {
		return a.CreateDirectoryFunc(path, opt)
	}
	return nil, NotSupportedErr("CreateDirectory", a.who)
}

func (a *AbstractFileSystem) Delete(path Path, opt Option) error {
	if a.DeleteFunc != nil {
		return a.DeleteFunc(path, opt)
	}
	return NotSupportedErr("Delete", a.who)
}

func (a *AbstractFileSystem) Move(src, dst Path, opt Option) error {
	if a.MoveFunc != nil {
		return a.MoveFunc(src, dst, opt)
	}
	return NotSupportedErr("Move", a.who)
}

func (a *AbstractFileSystem) SetFileAttribute(path Path, attrs FileAttributes, opt Option) error {
	if a.SetFileAttributeFunc != nil {
		return a.SetFileAttributeFunc(path, attrs, opt)
	}
	return NotSupportedErr("SetFileAttribute", a.who)
}

func (a *AbstractFileSystem) Observe(path Path, opt Option, observer Observer) (ObserverHandle, error) {
	if a.ObserveFunc != nil {
		return a.ObserveFunc(path, opt, observer)
	}
	return ObserverHandle{}, NotSupportedErr("Observe", a.who)
}

func (a *AbstractFileSystem) RemoveObserver(handle ObserverHandle) error {
	if a.RemoveObserverFunc != nil {
		return a.RemoveObserverFunc(handle)
	}
	return NotSupportedErr("RemoveObserver", a.who)
}

func (a *AbstractFileSystem) Dispose() error {
	if a.DisposeFunc != nil {
		return a.DisposeFunc()
	}
	return nil
}
