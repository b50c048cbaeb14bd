package vfs

import (
	"io"
	"regexp"
)

// A PackageLoader recognizes archive-like files by a case-insensitive extension pattern and mounts their
// content as a FileSystem. Browse, GetEntry and Open never mount a package on their own: a package is mounted
// only by an explicit VirtualFileSystem.AutoMountPackage call, whose AutoMounter hands the file to whichever of
// the capability sub-contracts below the concrete loader implements. Archive format support itself (zip, tar, ...)
// is explicitly out of scope; only the extension point is implemented here.
type PackageLoader interface {
	// Pattern returns the case-insensitive regular expression matched against a file's name (not full path).
	Pattern() *regexp.Regexp
}

// PathLoader mounts a package given only its native path, letting the loader do its own I/O.
type PathLoader interface {
	PackageLoader
	LoadFromPath(nativePath string) (FileSystem, error)
}

// ReaderLoader mounts a package from an io.ReadCloser, e.g. a stream already open on the host filesystem.
type ReaderLoader interface {
	PackageLoader
	LoadFromReader(r io.ReadCloser) (FileSystem, error)
}

// StreamLoader mounts a package from a random-access Stream already open within this library, avoiding a
// second native file handle when the archive itself lives inside another mounted FileSystem.
type StreamLoader interface {
	PackageLoader
	LoadFromStream(s Stream) (FileSystem, error)
}

// BytesLoader mounts a package already fully resident in memory.
type BytesLoader interface {
	PackageLoader
	LoadFromBytes(b []byte) (FileSystem, error)
}

// EntryLoader mounts a package given only the Entry that describes it, letting the loader decide which of the
// other strategies to use (e.g. falling back to PhysicalPath if set).
type EntryLoader interface {
	PackageLoader
	LoadFromEntry(entry *Entry) (FileSystem, error)
}
