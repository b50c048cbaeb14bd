package vfs

import "time"

// A Variant tags the kind of resource an Entry describes.
type Variant int

const (
	// VariantFile denotes a regular file entry.
	VariantFile Variant = iota
	// VariantDirectory denotes a directory entry.
	VariantDirectory
	// VariantDrive denotes a drive/volume root.
	VariantDrive
	// VariantMountPoint denotes a synthesized entry for a mounted sub-filesystem.
	VariantMountPoint
)

// FileAttributes is an opaque bitset of backend-specific file attribute flags, set via SetFileAttribute and
// surfaced on Entry.
type FileAttributes uint32

// DriveInfo carries the additional fields a VariantDrive Entry exposes.
type DriveInfo struct {
	FreeBytes  int64
	SizeBytes  int64
	Label      string
	FormatName string
}

// MountPointInfo carries the additional fields a VariantMountPoint Entry exposes: the backing filesystems
// mounted at this path, in precedence order, with the options each was mounted under.
type MountPointInfo struct {
	Assignments []MountAssignment
}

// An Entry is an immutable snapshot describing one item addressable by a filesystem. Entries are never mutated
// once produced; browsing again always returns fresh Entry values.
type Entry struct {
	// FS is the filesystem that produced this entry.
	FS FileSystem
	// EntryPath is the full path this entry describes.
	EntryPath Path
	// Variant is one of VariantFile, VariantDirectory, VariantDrive, VariantMountPoint.
	Variant Variant
	// Length is the file length in bytes, or -1 if unknown. Only meaningful for VariantFile.
	Length int64
	// ModTime is the last-modified time, or time.Time{} (treated as "unknown") if the backend cannot report it.
	ModTime time.Time
	// AccessTime is the last-access time, or time.Time{} if unknown.
	AccessTime time.Time
	// Attributes holds backend-specific file attribute flags.
	Attributes FileAttributes
	// PhysicalPath is an optional hint at the underlying native path, e.g. for a decoration wrapping a native
	// backend that wants to expose the real on-disk location to a caller that knows what to do with it.
	PhysicalPath string
	// Drive is populated when Variant == VariantDrive.
	Drive *DriveInfo
	// MountPoint is populated when Variant == VariantMountPoint.
	MountPoint *MountPointInfo
	// Underlying is a back-reference to the entry a decoration wrapped, or nil for an entry produced directly
	// by a backend.
	Underlying *Entry
}

// Name returns the last path segment of this entry, or "" for the root.
func (e *Entry) Name() string {
	return e.EntryPath.Name()
}

// IsDir reports whether this entry is browsable, i.e. a directory, drive, or mount point.
func (e *Entry) IsDir() bool {
	return e.Variant != VariantFile
}

// A DirectoryContent is a snapshot-valued object describing the result of a Browse call: the owning filesystem,
// the browsed path, an existence flag, and an ordered sequence of child entries. It is never refreshed in
// place; browsing again returns a new DirectoryContent.
type DirectoryContent struct {
	FS       FileSystem
	Path     Path
	Exists   bool
	Children []*Entry
}

// NonExistent returns a DirectoryContent describing a directory that does not exist. Browse returns this value,
// not an error, when a directory path cannot be resolved.
func NonExistent(fs FileSystem, path Path) *DirectoryContent {
	return &DirectoryContent{FS: fs, Path: path, Exists: false}
}
