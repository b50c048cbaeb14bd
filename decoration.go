package vfs

import "sync"

// Decoration wraps a child FileSystem to narrow its capabilities and/or expose one of its subtrees as a new
// root. It never owns the child's lifecycle — Dispose only releases the decoration's own observer
// registrations: a wrapper that narrows or remaps, never an owner of what it wraps.
type Decoration struct {
	AbstractFileSystem

	child    FileSystem
	restrict Option
	// parentPrefix is the prefix calls arrive under, in this Decoration's own path space; childPrefix is the
	// prefix calls are issued under against child. A plain "expose this subtree as a new root" remap, the
	// common case, has parentPrefix == "" and only childPrefix set.
	parentPrefix Path
	childPrefix  Path

	lifecycle *BelateDispose
	// childHandles maps a handle this decoration issued to the caller back to the handle the child issued, so
	// RemoveObserver can unregister from the right place.
	handlesMu    sync.Mutex
	childHandles map[ObserverHandle]ObserverHandle
}

// NewDecoration returns a Decoration exposing child's subtree rooted at childPrefix (use "" for no remap),
// with capabilities further narrowed to the intersection of child's own reported Option and restrict at each
// path. It is NewDecorationBetween with an empty parent-prefix, the common single-prefix remap.
func NewDecoration(child FileSystem, childPrefix Path, restrict Option) *Decoration {
	return NewDecorationBetween(child, "", childPrefix, restrict)
}

// NewDecorationBetween returns a Decoration whose path converter holds both a parent-prefix (stripped from
// calls going inward, prepended to entries coming outward) and a child-prefix (the inverse). A call whose path
// does not start with parentPrefix is rejected with KindNotFound rather than silently passed through.
func NewDecorationBetween(child FileSystem, parentPrefix, childPrefix Path, restrict Option) *Decoration {
	d := &Decoration{
		child:        child,
		restrict:     restrict,
		parentPrefix: parentPrefix,
		childPrefix:  childPrefix,
		childHandles: make(map[ObserverHandle]ObserverHandle),
	}
	d.lifecycle = NewBelateDispose(func() error { return nil })
	d.AbstractFileSystem = NewAbstractFileSystem(d)
	d.OptionFunc = d.option
	d.BrowseFunc = d.browse
	d.GetEntryFunc = d.getEntry
	d.OpenFunc = d.open
	d.CreateDirectoryFunc = d.createDirectory
	d.DeleteFunc = d.delete
	d.MoveFunc = d.move
	d.SetFileAttributeFunc = d.setFileAttribute
	d.ObserveFunc = d.observe
	d.RemoveObserverFunc = d.removeObserver
	d.DisposeFunc = d.dispose
	return d
}

// mapIn converts external, a path in this Decoration's own space, into child's space: the parent-prefix is
// stripped and the child-prefix is prepended. external must start with the parent-prefix or the call is
// rejected with KindNotFound.
func (d *Decoration) mapIn(external Path) (Path, error) {
	rel := external
	if !d.parentPrefix.IsRoot() {
		if !external.StartsWith(d.parentPrefix) {
			return "", NotFoundErr(external)
		}
		rel = external.TrimPrefix(d.parentPrefix)
	}
	if d.childPrefix.IsRoot() {
		return rel, nil
	}
	return ConcatPaths(d.childPrefix, rel), nil
}

// mapOut converts internal, a path in child's space, back into this Decoration's space: the inverse of mapIn.
func (d *Decoration) mapOut(internal Path) Path {
	rel := internal
	if !d.childPrefix.IsRoot() {
		rel = internal.TrimPrefix(d.childPrefix)
	}
	if d.parentPrefix.IsRoot() {
		return rel
	}
	return ConcatPaths(d.parentPrefix, rel)
}

// effectiveOption returns the least permissive merge of the child's own reported Option at the mapped path and
// this decoration's restrict bag, plus a SubPathOption recording the remap in effect. A path outside the
// parent-prefix reports no capabilities at all, consistent with mapIn rejecting it with KindNotFound.
func (d *Decoration) effectiveOption(external Path) Option {
	inner, err := d.mapIn(external)
	if err != nil {
		return Option{}
	}
	childOpt := d.child.Option(inner)
	merged, err := IntersectOptions(childOpt, d.restrict)
	if err != nil {
		return Option{}
	}
	return UnionOptions(merged, NewOption(SubPathOption{Value: d.childPrefix.String()}))
}

func (d *Decoration) option(path Path) Option {
	return d.effectiveOption(path)
}

func (d *Decoration) rewrapEntry(e *Entry) *Entry {
	if e == nil {
		return nil
	}
	out := *e
	out.FS = d
	out.EntryPath = d.mapOut(e.EntryPath)
	out.Underlying = e
	return &out
}

func (d *Decoration) browse(path Path, opt Option) (*DirectoryContent, error) {
	if !d.effectiveOption(path).Browse().CanBrowse {
		return nil, NotSupportedErr("Browse", d)
	}
	inner, err := d.mapIn(path)
	if err != nil {
		return nil, err
	}
	content, err := d.child.Browse(inner, opt)
	if err != nil {
		return nil, err
	}
	if !content.Exists {
		return NonExistent(d, path), nil
	}
	children := make([]*Entry, 0, len(content.Children))
	for _, c := range content.Children {
		children = append(children, d.rewrapEntry(c))
	}
	return &DirectoryContent{FS: d, Path: path, Exists: true, Children: children}, nil
}

func (d *Decoration) getEntry(path Path, opt Option) (*Entry, error) {
	inner, err := d.mapIn(path)
	if err != nil {
		return nil, err
	}
	if !d.effectiveOption(path).Browse().CanGetEntry {
		return nil, NotSupportedErr("GetEntry", d)
	}
	e, err := d.child.GetEntry(inner, opt)
	if err != nil {
		return nil, err
	}
	return d.rewrapEntry(e), nil
}

func (d *Decoration) open(path Path, opt Option) (Stream, error) {
	effective := d.effectiveOption(path).Open()
	requested := opt.Open()
	if (requested.CanRead && !effective.CanRead) || (requested.CanWrite && !effective.CanWrite) {
		return nil, NotSupportedErr("Open", d)
	}
	inner, err := d.mapIn(path)
	if err != nil {
		return nil, err
	}
	return d.child.Open(inner, opt)
}

func (d *Decoration) createDirectory(path Path, opt Option) (*Entry, error) {
	if !d.effectiveOption(path).CreateDirectory().CanCreateDirectory {
		return nil, NotSupportedErr("CreateDirectory", d)
	}
	inner, err := d.mapIn(path)
	if err != nil {
		return nil, err
	}
	e, err := d.child.CreateDirectory(inner, opt)
	if err != nil {
		return nil, err
	}
	return d.rewrapEntry(e), nil
}

func (d *Decoration) delete(path Path, opt Option) error {
	if !d.effectiveOption(path).Delete().CanDelete {
		return NotSupportedErr("Delete", d)
	}
	inner, err := d.mapIn(path)
	if err != nil {
		return err
	}
	return d.child.Delete(inner, opt)
}

func (d *Decoration) move(src, dst Path, opt Option) error {
	if !d.effectiveOption(src).Move().CanMove {
		return NotSupportedErr("Move", d)
	}
	innerSrc, err := d.mapIn(src)
	if err != nil {
		return err
	}
	innerDst, err := d.mapIn(dst)
	if err != nil {
		return err
	}
	return d.child.Move(innerSrc, innerDst, opt)
}

func (d *Decoration) setFileAttribute(path Path, attrs FileAttributes, opt Option) error {
	if !d.effectiveOption(path).FileAttribute().CanSetAttribute {
		return NotSupportedErr("SetFileAttribute", d)
	}
	inner, err := d.mapIn(path)
	if err != nil {
		return err
	}
	return d.child.SetFileAttribute(inner, attrs, opt)
}

// decoratedObserver rewrites events raised by the child back through mapOut before handing them to the
// caller's observer, so a caller of a decoration never sees the child's internal paths.
type decoratedObserver struct {
	outer    Observer
	rewriter func(Path) Path
}

func (o decoratedObserver) OnEvent(e Event) {
	o.outer.OnEvent(e.Rewrite(o.rewriter))
}

func (d *Decoration) observe(path Path, opt Option, observer Observer) (ObserverHandle, error) {
	if !d.effectiveOption(path).Observe().CanObserve {
		return ObserverHandle{}, NotSupportedErr("Observe", d)
	}
	inner, err := d.mapIn(path)
	if err != nil {
		return ObserverHandle{}, err
	}
	if err := d.lifecycle.Acquire(); err != nil {
		return ObserverHandle{}, err
	}
	childHandle, err := d.child.Observe(inner, opt, decoratedObserver{outer: observer, rewriter: d.mapOut})
	if err != nil {
		d.lifecycle.Release()
		return ObserverHandle{}, err
	}
	handle := NewObserverHandle()
	d.handlesMu.Lock()
	d.childHandles[handle] = childHandle
	d.handlesMu.Unlock()
	return handle, nil
}

func (d *Decoration) removeObserver(handle ObserverHandle) error {
	d.handlesMu.Lock()
	childHandle, ok := d.childHandles[handle]
	if ok {
		delete(d.childHandles, handle)
	}
	d.handlesMu.Unlock()
	if !ok {
		return nil
	}
	d.lifecycle.Release()
	return d.child.RemoveObserver(childHandle)
}

func (d *Decoration) dispose() error {
	return d.lifecycle.Dispose()
}
