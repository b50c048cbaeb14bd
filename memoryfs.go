package vfs

import (
	"math"
	"sort"
	"sync"
	"time"
)

// maxInternalPoolBlocks is the capacity given to a MemoryFileSystem's own internal pool when the caller does
// not supply one: 2^31-1 blocks, effectively unbounded for a single instance.
const maxInternalPoolBlocks = math.MaxInt32

// memNode is one entry in a MemoryFileSystem's tree: either a directory holding named children, or a file
// holding a chain of pool-backed Blocks. Tree linkage (parent, name, children) is protected by the owning
// MemoryFileSystem's treeMu; a node's own content (blocks, length, attrs) is protected by its own mu so that
// writing one file never blocks browsing an unrelated directory.
type memNode struct {
	name     string
	dir      bool
	parent   *memNode
	children map[string]*memNode

	mu         sync.Mutex
	blocks     []*Block
	length     int64
	attrs      FileAttributes
	modTime    time.Time
	accessTime time.Time
	openCount  int
	unlinked   bool
}

func newDirNode(name string, parent *memNode) *memNode {
	return &memNode{name: name, dir: true, parent: parent, children: make(map[string]*memNode), modTime: time.Now()}
}

// MemoryFileSystem is an in-memory, block-pool-backed FileSystem: every byte written lives in Blocks
// checked out of a BlockPool, so the filesystem's total size is bounded by the pool's capacity and a write that
// needs a block when the pool has none free fails with KindOutOfSpace.
type MemoryFileSystem struct {
	AbstractFileSystem

	name     string
	pool     *BlockPool
	ownsPool bool
	hub      *EventHub

	treeMu sync.RWMutex
	root   *memNode

	lifecycle *BelateDispose
}

// NewMemoryFileSystem returns an empty in-memory filesystem backed by pool. If pool is nil, the filesystem
// constructs its own internal pool of maxInternalPoolBlocks blocks and disposes it when the filesystem itself
// is disposed; a pool passed in by the caller is assumed shared (e.g. between several MemoryFileSystem
// instances enforcing one disk-space quota together) and is left running past this filesystem's disposal.
// name is used only in log fields.
func NewMemoryFileSystem(name string, pool *BlockPool) *MemoryFileSystem {
	ownsPool := false
	if pool == nil {
		pool = NewBlockPool(name, maxInternalPoolBlocks, DefaultBlockSize)
		ownsPool = true
	}
	fs := &MemoryFileSystem{
		name:     name,
		pool:     pool,
		ownsPool: ownsPool,
		hub:      NewEventHub(),
		root:     newDirNode("", nil),
	}
	fs.lifecycle = NewBelateDispose(func() error {
		if fs.ownsPool {
			fs.pool.Dispose()
		}
		log.WithField("fs", fs.name).Debug("memory filesystem disposed")
		return nil
	})
	fs.AbstractFileSystem = NewAbstractFileSystem(fs)
	fs.OptionFunc = fs.option
	fs.BrowseFunc = fs.browse
	fs.GetEntryFunc = fs.getEntry
	fs.OpenFunc = fs.open
	fs.CreateDirectoryFunc = fs.createDirectory
	fs.DeleteFunc = fs.delete
	fs.MoveFunc = fs.move
	fs.SetFileAttributeFunc = fs.setFileAttribute
	fs.ObserveFunc = fs.observe
	fs.RemoveObserverFunc = fs.removeObserver
	fs.DisposeFunc = fs.dispose
	return fs
}

func (fs *MemoryFileSystem) option(Path) Option {
	return NewOption(
		OpenOption{CanOpen: true, CanRead: true, CanWrite: true, CanCreateFile: true},
		BrowseOption{CanBrowse: true, CanGetEntry: true},
		ObserveOption{CanObserve: true},
		MoveOption{CanMove: true},
		DeleteOption{CanDelete: true},
		CreateDirectoryOption{CanCreateDirectory: true},
		FileAttributeOption{CanSetAttribute: true},
		PathInfoOption{CaseSensitive: true},
	)
}

func (fs *MemoryFileSystem) checkDisposed() error {
	if fs.lifecycle.IsDisposed() {
		return NewError(KindDisposed, "", "filesystem disposed")
	}
	return nil
}

// resolve walks path from root, returning the node or KindNotFound. Caller must hold at least treeMu.RLock.
func (fs *MemoryFileSystem) resolve(path Path) (*memNode, error) {
	n := fs.root
	for _, name := range path.Names() {
		if !n.dir {
			return nil, NotFoundErr(path)
		}
		child, ok := n.children[name]
		if !ok {
			return nil, NotFoundErr(path)
		}
		n = child
	}
	return n, nil
}

// resolveParent walks to path's parent directory, returning it along with path's final name segment. The
// parent itself must already exist and be a directory; resolveParent does not create it (CreateDirectory and
// a creating Open do).
func (fs *MemoryFileSystem) resolveParent(path Path) (*memNode, string, error) {
	if path.IsRoot() {
		return nil, "", NewError(KindInvalidArgument, path, "root has no parent")
	}
	parent, err := fs.resolve(path.Parent())
	if err != nil {
		return nil, "", err
	}
	if !parent.dir {
		return nil, "", NewError(KindInvalidArgument, path, "parent is not a directory")
	}
	return parent, path.Name(), nil
}

func (fs *MemoryFileSystem) entryFromNode(path Path, n *memNode) *Entry {
	n.mu.Lock()
	defer n.mu.Unlock()
	variant := VariantFile
	length := n.length
	if n.dir {
		variant = VariantDirectory
		length = -1
	}
	return &Entry{
		FS:         fs,
		EntryPath:  path,
		Variant:    variant,
		Length:     length,
		ModTime:    n.modTime,
		AccessTime: n.accessTime,
		Attributes: n.attrs,
	}
}

func (fs *MemoryFileSystem) browse(path Path, _ Option) (*DirectoryContent, error) {
	if err := fs.checkDisposed(); err != nil {
		return nil, err
	}
	fs.treeMu.RLock()
	defer fs.treeMu.RUnlock()

	n, err := fs.resolve(path)
	if err != nil {
		return NonExistent(fs, path), nil
	}
	if !n.dir {
		return nil, NewError(KindInvalidArgument, path, "not a directory")
	}

	names := make([]string, 0, len(n.children))
	for name := range n.children {
		names = append(names, name)
	}
	sort.Strings(names)

	children := make([]*Entry, 0, len(names))
	for _, name := range names {
		childPath := path.Child(name)
		child := n.children[name]
		if child.dir {
			childPath = Path(childPath.String() + PathSeparator)
		}
		children = append(children, fs.entryFromNode(childPath, child))
	}
	return &DirectoryContent{FS: fs, Path: path, Exists: true, Children: children}, nil
}

func (fs *MemoryFileSystem) getEntry(path Path, _ Option) (*Entry, error) {
	if err := fs.checkDisposed(); err != nil {
		return nil, err
	}
	fs.treeMu.RLock()
	defer fs.treeMu.RUnlock()
	n, err := fs.resolve(path)
	if err != nil {
		return nil, err
	}
	return fs.entryFromNode(path, n), nil
}

func (fs *MemoryFileSystem) open(path Path, opt Option) (Stream, error) {
	if err := fs.checkDisposed(); err != nil {
		return nil, err
	}
	oo := opt.Open()
	fs.treeMu.Lock()
	parent, name, err := fs.resolveParent(path)
	if IsErr(err, KindNotFound) && oo.CanCreateFile {
		// A creating open adds any missing ancestor directories; no events are published for them.
		parent, name, err = fs.root, path.Name(), nil
		for _, seg := range path.Parent().Names() {
			next, ok := parent.children[seg]
			if !ok {
				next = newDirNode(seg, parent)
				parent.children[seg] = next
			} else if !next.dir {
				err = NewError(KindInvalidArgument, path, "parent is not a directory")
				break
			}
			parent = next
		}
	}
	if err != nil {
		fs.treeMu.Unlock()
		return nil, err
	}
	child, ok := parent.children[name]
	if !ok {
		if !oo.CanCreateFile {
			fs.treeMu.Unlock()
			return nil, NotFoundErr(path)
		}
		child = &memNode{name: name, parent: parent, modTime: time.Now()}
		parent.children[name] = child
		fs.treeMu.Unlock()
		fs.hub.Publish(Event{Kind: EventCreated, Path: path, FS: fs})
	} else {
		fs.treeMu.Unlock()
	}
	if child.dir {
		return nil, NewError(KindInvalidArgument, path, "cannot open a directory")
	}

	child.mu.Lock()
	child.openCount++
	child.accessTime = time.Now()
	child.mu.Unlock()

	if err := fs.lifecycle.Acquire(); err != nil {
		child.mu.Lock()
		child.openCount--
		child.mu.Unlock()
		return nil, err
	}

	return &memoryStream{fs: fs, node: child, path: path, opt: oo}, nil
}

func (fs *MemoryFileSystem) createDirectory(path Path, _ Option) (*Entry, error) {
	if err := fs.checkDisposed(); err != nil {
		return nil, err
	}
	fs.treeMu.Lock()
	n := fs.root
	var built Path
	for _, name := range path.Names() {
		built = built.Child(name)
		if !n.dir {
			fs.treeMu.Unlock()
			return nil, AlreadyExistsErr(built, false)
		}
		child, ok := n.children[name]
		if !ok {
			child = newDirNode(name, n)
			n.children[name] = child
			n = child
			continue
		}
		if !child.dir {
			fs.treeMu.Unlock()
			return nil, AlreadyExistsErr(built, false)
		}
		n = child
	}
	fs.treeMu.Unlock()
	fs.hub.Publish(Event{Kind: EventCreated, Path: Path(path.String() + PathSeparator), FS: fs})
	return fs.entryFromNode(Path(path.String()+PathSeparator), n), nil
}

func (fs *MemoryFileSystem) delete(path Path, _ Option) error {
	if err := fs.checkDisposed(); err != nil {
		return err
	}
	if path.IsRoot() {
		return NewError(KindInvalidArgument, path, "cannot delete the root")
	}
	fs.treeMu.Lock()
	parent, name, err := fs.resolveParent(path)
	if err != nil {
		fs.treeMu.Unlock()
		return err
	}
	n, ok := parent.children[name]
	if !ok {
		fs.treeMu.Unlock()
		return nil // deleting a non-existent resource is not an error
	}
	if n.dir && len(n.children) > 0 {
		fs.treeMu.Unlock()
		return NewError(KindNotEmpty, path, "directory is not empty")
	}
	delete(parent.children, name)
	fs.treeMu.Unlock()

	// A still-open stream holds the same *memNode and indexes n.blocks directly, so blocks can only be
	// released once the open-stream count drops to zero; otherwise the release is deferred to the last
	// stream's Close (see memoryStream.Close).
	n.mu.Lock()
	n.unlinked = true
	var blocks []*Block
	if n.openCount == 0 {
		blocks = n.blocks
		n.blocks = nil
	}
	n.mu.Unlock()
	for _, b := range blocks {
		b.Release()
	}
	fs.hub.Publish(Event{Kind: EventDeleted, Path: path, FS: fs})
	return nil
}

func (fs *MemoryFileSystem) move(src, dst Path, _ Option) error {
	if err := fs.checkDisposed(); err != nil {
		return err
	}
	if src.IsRoot() {
		return NewError(KindInvalidArgument, src, "cannot move the root")
	}
	fs.treeMu.Lock()
	srcParent, srcName, err := fs.resolveParent(src)
	if err != nil {
		fs.treeMu.Unlock()
		return err
	}
	n, ok := srcParent.children[srcName]
	if !ok {
		fs.treeMu.Unlock()
		return NotFoundErr(src)
	}
	dstParent, dstName, err := fs.resolveParent(dst)
	if err != nil {
		fs.treeMu.Unlock()
		return err
	}
	if existing, ok := dstParent.children[dstName]; ok {
		fs.treeMu.Unlock()
		return AlreadyExistsErr(dst, existing.dir)
	}
	delete(srcParent.children, srcName)
	n.name = dstName
	n.parent = dstParent
	dstParent.children[dstName] = n
	fs.treeMu.Unlock()

	fs.hub.Publish(Event{Kind: EventRenamed, Path: dst, OldPath: src, FS: fs})
	return nil
}

func (fs *MemoryFileSystem) setFileAttribute(path Path, attrs FileAttributes, _ Option) error {
	if err := fs.checkDisposed(); err != nil {
		return err
	}
	fs.treeMu.RLock()
	n, err := fs.resolve(path)
	fs.treeMu.RUnlock()
	if err != nil {
		return err
	}
	n.mu.Lock()
	n.attrs = attrs
	n.mu.Unlock()
	fs.hub.Publish(Event{Kind: EventAttributesChanged, Path: path, FS: fs})
	return nil
}

func (fs *MemoryFileSystem) observe(path Path, opt Option, observer Observer) (ObserverHandle, error) {
	if err := fs.checkDisposed(); err != nil {
		return ObserverHandle{}, err
	}
	if err := fs.lifecycle.Acquire(); err != nil {
		return ObserverHandle{}, err
	}
	dispatcher, _ := opt.Token().Lookup(path, "dispatcher")
	d, _ := dispatcher.(Dispatcher)
	return fs.hub.Add(path, opt, observer, d), nil
}

func (fs *MemoryFileSystem) removeObserver(handle ObserverHandle) error {
	fs.hub.Remove(handle)
	fs.lifecycle.Release()
	return nil
}

func (fs *MemoryFileSystem) dispose() error {
	return fs.lifecycle.Dispose()
}
