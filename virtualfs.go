package vfs

import (
	"sync"
	"time"
)

// childObserverTable tracks, per handle this VirtualFileSystem issued, the (child filesystem, child handle)
// pair a cross-mount Observe call registered, so RemoveObserver can unregister from the right place.
type childObserverTable struct {
	mu    sync.Mutex
	table map[ObserverHandle]childObserverEntry
}

type childObserverEntry struct {
	fs     FileSystem
	handle ObserverHandle
}

func newChildObserverTable() *childObserverTable {
	return &childObserverTable{table: make(map[ObserverHandle]childObserverEntry)}
}

func (t *childObserverTable) store(handle ObserverHandle, fs FileSystem, childHandle ObserverHandle) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.table[handle] = childObserverEntry{fs: fs, handle: childHandle}
}

func (t *childObserverTable) take(handle ObserverHandle) (FileSystem, ObserverHandle, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	entry, ok := t.table[handle]
	if !ok {
		return nil, ObserverHandle{}, false
	}
	delete(t.table, handle)
	return entry.fs, entry.handle, true
}

// VirtualFileSystem is the top-level composition root: an addressable mount tree where callers
// Mount concrete filesystems (MemoryFileSystem, a Decoration, a Concat, even another VirtualFileSystem) at
// arbitrary paths, and every FileSystem operation is routed to whichever assignment's subtree covers the
// requested path. A path with no mounted filesystem directly on it, but with mount points somewhere below it,
// still browses as a directory: its children are synthesized VariantMountPoint entries.
type VirtualFileSystem struct {
	AbstractFileSystem

	tree                 *mountTree
	hub                  *EventHub
	auto                 *AutoMounter
	lifecycle            *BelateDispose
	childObserverHandles *childObserverTable
}

// NewVirtualFileSystem returns an empty mount tree with nothing mounted. Pass nil for auto to disable
// automatic package-loader mounting.
func NewVirtualFileSystem(auto *AutoMounter) *VirtualFileSystem {
	v := &VirtualFileSystem{tree: newMountTree(), hub: NewEventHub(), auto: auto, childObserverHandles: newChildObserverTable()}
	v.lifecycle = NewBelateDispose(func() error { return nil })
	v.AbstractFileSystem = NewAbstractFileSystem(v)
	v.OptionFunc = v.option
	v.BrowseFunc = v.browse
	v.GetEntryFunc = v.getEntry
	v.OpenFunc = v.open
	v.CreateDirectoryFunc = v.createDirectory
	v.DeleteFunc = v.delete
	v.MoveFunc = v.move
	v.SetFileAttributeFunc = v.setFileAttribute
	v.ObserveFunc = v.observe
	v.RemoveObserverFunc = v.removeObserver
	v.DisposeFunc = v.dispose
	return v
}

// Mount attaches fs at path, replacing whatever was mounted there before, and returns the MountID to later
// pass to Unmount. It is a convenience wrapper around MountMany for the common single-filesystem case.
func (v *VirtualFileSystem) Mount(path Path, fs FileSystem, opt Option) MountID {
	return v.MountMany(path, []MountSpec{{FS: fs, Option: opt}})[0]
}

// MountMany replaces the existing assignments at path with mounts, in precedence order, and returns one
// MountID per mount, in the same order. Mounting raises an EventMounted, followed by a synthesized Create
// event for every file MountMany can enumerate under path, so observers registered above path whose filter
// matches those files learn of them without re-browsing.
func (v *VirtualFileSystem) MountMany(path Path, mounts []MountSpec) []MountID {
	assignments := v.tree.Mount(path, mounts)
	v.hub.Publish(Event{Kind: EventMounted, Path: path, FS: v})

	composed := compose(assignments)
	for _, rel := range enumerateFiles(composed, "") {
		v.hub.Publish(Event{Kind: EventCreated, Path: ConcatPaths(path, rel), FS: v})
	}

	ids := make([]MountID, len(assignments))
	for i, a := range assignments {
		ids[i] = a.ID
	}
	return ids
}

// Unmount detaches the assignment with the given id, disposing its filesystem, and raises an EventUnmounted.
// Before disposing, it synthesizes a Delete event for every file it can enumerate under the assignment's mount
// path, symmetric with the Create events MountMany synthesizes. Unmounting an unknown id is a no-op.
func (v *VirtualFileSystem) Unmount(id MountID) error {
	assignment, ok := v.tree.Unmount(id)
	if !ok {
		return nil
	}
	for _, rel := range enumerateFiles(assignment.FS, "") {
		v.hub.Publish(Event{Kind: EventDeleted, Path: ConcatPaths(assignment.MountPath, rel), FS: v})
	}
	v.hub.Publish(Event{Kind: EventUnmounted, Path: assignment.MountPath, FS: v})
	return assignment.FS.Dispose()
}

// enumerateFiles recursively lists every file (not directory) reachable from root under fs, parent-before-
// children like walkTree in optree.go. Errors partway through (a backend that denies Browse, say) simply stop
// that branch's enumeration rather than failing the whole call, since Mount/Unmount event synthesis is
// best-effort over what the backend is willing to disclose.
func enumerateFiles(fs FileSystem, root Path) []Path {
	entry, err := fs.GetEntry(root, Option{})
	if err != nil {
		return nil
	}
	if !entry.IsDir() {
		return []Path{root}
	}
	content, err := fs.Browse(root, Option{})
	if err != nil || !content.Exists {
		return nil
	}
	var out []Path
	for _, child := range content.Children {
		out = append(out, enumerateFiles(fs, root.Child(child.Name()))...)
	}
	return out
}

// compose returns the single FileSystem to route a call to for the assignments stacked at one mount node: a
// lone assignment is used directly, several are merged through Concat in precedence order.
func compose(assignments []MountAssignment) FileSystem {
	if len(assignments) == 1 {
		return assignments[0].FS
	}
	children := make([]FileSystem, len(assignments))
	for i, a := range assignments {
		children[i] = a.FS
	}
	return NewConcat(children...)
}

// resolve finds the deepest mounted ancestor of path and returns the filesystem to route to plus the path
// relative to that ancestor's mount root. ok is false if nothing is mounted anywhere on the path to the root.
func (v *VirtualFileSystem) resolve(path Path) (fs FileSystem, relPath Path, ok bool) {
	assignments, mountPath, found := v.tree.lookupAncestor(path)
	if !found {
		return nil, "", false
	}
	rel := path.TrimPrefix(mountPath)
	if path.IsDir() && rel != "" {
		rel = Path(rel.String() + PathSeparator)
	}
	return compose(assignments), rel, true
}

func (v *VirtualFileSystem) option(path Path) Option {
	fs, rel, ok := v.resolve(path)
	base := NewOption(MountOption{CanMount: true, CanUnmount: true, CanListMounts: true})
	if !ok {
		return base
	}
	return UnionOptions(fs.Option(rel), base)
}

func mountPointEntry(path Path, node []MountAssignment) *Entry {
	return &Entry{
		Variant:    VariantMountPoint,
		EntryPath:  path,
		Length:     -1,
		ModTime:    time.Time{},
		MountPoint: &MountPointInfo{Assignments: node},
	}
}

func (v *VirtualFileSystem) browse(path Path, opt Option) (*DirectoryContent, error) {
	fs, rel, ok := v.resolve(path)

	var real *DirectoryContent
	var err error
	if ok {
		real, err = fs.Browse(rel, opt)
		if err != nil && !IsErr(err, KindNotSupported) {
			return nil, err
		}
	}

	childNames := v.tree.childMountNames(path)
	existsFromMounts := len(childNames) > 0
	if (real == nil || !real.Exists) && !existsFromMounts {
		return NonExistent(v, path), nil
	}

	seen := make(map[string]bool)
	merged := make([]*Entry, 0)
	if real != nil && real.Exists {
		for _, e := range real.Children {
			e.FS = v
			e.EntryPath = path.Child(e.Name())
			if e.IsDir() {
				e.EntryPath = Path(e.EntryPath.String() + PathSeparator)
			}
			merged = append(merged, e)
			seen[e.Name()] = true
		}
	}
	for _, name := range childNames {
		if seen[name] {
			continue
		}
		childPath := Path(path.Child(name).String() + PathSeparator)
		node := v.tree.assignmentsAt(childPath)
		if len(node) == 0 {
			// a purely structural descendant, not itself a mount point: synthesize a plain directory
			merged = append(merged, &Entry{FS: v, EntryPath: childPath, Variant: VariantDirectory, Length: -1})
			continue
		}
		merged = append(merged, mountPointEntry(childPath, node))
	}
	return &DirectoryContent{FS: v, Path: path, Exists: true, Children: merged}, nil
}

func (v *VirtualFileSystem) getEntry(path Path, opt Option) (*Entry, error) {
	if assignments := v.tree.assignmentsAt(path); len(assignments) > 0 {
		return mountPointEntry(path, assignments), nil
	}
	fs, rel, ok := v.resolve(path)
	if ok {
		e, err := fs.GetEntry(rel, opt)
		if err == nil {
			e.FS = v
			e.EntryPath = path
			return e, nil
		}
		if !IsErr(err, KindNotFound) && !IsErr(err, KindNotSupported) {
			return nil, err
		}
	}
	if _, structural := v.tree.lookupNode(path); structural {
		return &Entry{FS: v, EntryPath: Path(path.String() + PathSeparator), Variant: VariantDirectory, Length: -1}, nil
	}
	return nil, NotFoundErr(path)
}

func (v *VirtualFileSystem) open(path Path, opt Option) (Stream, error) {
	fs, rel, ok := v.resolve(path)
	if !ok {
		return nil, NotFoundErr(path)
	}
	return fs.Open(rel, opt)
}

func (v *VirtualFileSystem) createDirectory(path Path, opt Option) (*Entry, error) {
	fs, rel, ok := v.resolve(path)
	if !ok {
		return nil, NotSupportedErr("CreateDirectory", v)
	}
	e, err := fs.CreateDirectory(rel, opt)
	if err != nil {
		return nil, err
	}
	e.FS = v
	e.EntryPath = Path(path.String() + PathSeparator)
	return e, nil
}

func (v *VirtualFileSystem) delete(path Path, opt Option) error {
	fs, rel, ok := v.resolve(path)
	if !ok {
		return NotFoundErr(path)
	}
	return fs.Delete(rel, opt)
}

func (v *VirtualFileSystem) move(src, dst Path, opt Option) error {
	srcFS, srcRel, srcOK := v.resolve(src)
	dstFS, dstRel, dstOK := v.resolve(dst)
	if !srcOK || !dstOK {
		return NotFoundErr(src)
	}
	if srcFS == dstFS {
		return srcFS.Move(srcRel, dstRel, opt)
	}
	// cross-mount move: the operation engine (optree.go) handles the copy+delete fallback for cross-filesystem
	// moves; at the single-call FileSystem level this is reported as unsupported, matching Move's own contract
	//.
	return NotSupportedErr("Move", v)
}

func (v *VirtualFileSystem) setFileAttribute(path Path, attrs FileAttributes, opt Option) error {
	fs, rel, ok := v.resolve(path)
	if !ok {
		return NotFoundErr(path)
	}
	return fs.SetFileAttribute(rel, attrs, opt)
}

func (v *VirtualFileSystem) observe(path Path, opt Option, observer Observer) (ObserverHandle, error) {
	if err := v.lifecycle.Acquire(); err != nil {
		return ObserverHandle{}, err
	}
	handle := v.hub.Add(path, opt, observer, nil)
	fs, rel, ok := v.resolve(path)
	if !ok {
		return handle, nil
	}
	// cross-mount decomposition: forward to the child too, rewriting its path back into this tree's namespace
	//.
	childHandle, err := fs.Observe(rel, opt, ObserverFunc(func(e Event) {
		// Publish into our own hub rather than calling observer directly: this lets every registration whose
		// scope covers the rewritten path see the event, not just the one that triggered this child Observe.
		v.hub.Publish(e.Rewrite(func(p Path) Path { return ConcatPaths(path, p) }))
	}))
	if err == nil {
		v.childObserverHandles.store(handle, fs, childHandle)
	}
	return handle, nil
}

func (v *VirtualFileSystem) removeObserver(handle ObserverHandle) error {
	v.hub.Remove(handle)
	v.lifecycle.Release()
	if fs, childHandle, ok := v.childObserverHandles.take(handle); ok {
		return fs.RemoveObserver(childHandle)
	}
	return nil
}

// AutoMountPackage loads the package file at path through this VirtualFileSystem's AutoMounter (if one was
// configured) and mounts its content directly below path, so e.g. "/downloads/archive.zip" gains a
// "/downloads/archive.zip/" subtree. It is explicit rather than a transparent interception of every path
// traversal, trading a bit of caller convenience for a much simpler, auditable resolution path.
func (v *VirtualFileSystem) AutoMountPackage(path Path, opt Option) (MountID, error) {
	if v.auto == nil {
		return MountID{}, NotSupportedErr("AutoMountPackage", v)
	}
	entry, err := v.GetEntry(path, opt)
	if err != nil {
		return MountID{}, err
	}
	fs, err := v.auto.Mount(entry, func() (Stream, error) {
		return v.Open(path, opt)
	})
	if err != nil {
		return MountID{}, err
	}
	return v.Mount(Path(path.String()+PathSeparator), fs, Option{}), nil
}

func (v *VirtualFileSystem) dispose() error {
	for _, a := range v.tree.allAssignments() {
		_ = a.FS.Dispose()
	}
	return v.lifecycle.Dispose()
}
