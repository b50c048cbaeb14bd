package vfs

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Concat composes several filesystems into one, all sharing the same path space, with earlier entries in
// children taking precedence over later ones wherever they disagree. Write operations (CreateDirectory,
// Delete, Move, SetFileAttribute) are applied to the first child in precedence order whose answer isn't
// KindNotSupported — a NotSupported-transparent fallthrough across an ordered chain of layered providers. Any
// other error, including KindNotFound, aborts the call immediately rather than trying the next child.
type Concat struct {
	AbstractFileSystem

	children []FileSystem

	lifecycle *BelateDispose
	regsMu    sync.Mutex
	regs      map[ObserverHandle]concatRegistration
}

type concatRegistration struct {
	children []FileSystem
	handles  []ObserverHandle
}

// NewConcat returns a Concat over children, in precedence order (children[0] wins name conflicts).
func NewConcat(children ...FileSystem) *Concat {
	c := &Concat{children: children, regs: make(map[ObserverHandle]concatRegistration)}
	c.lifecycle = NewBelateDispose(func() error { return nil })
	c.AbstractFileSystem = NewAbstractFileSystem(c)
	c.OptionFunc = c.option
	c.BrowseFunc = c.browse
	c.GetEntryFunc = c.getEntry
	c.OpenFunc = c.open
	c.CreateDirectoryFunc = c.createDirectory
	c.DeleteFunc = c.delete
	c.MoveFunc = c.move
	c.SetFileAttributeFunc = c.setFileAttribute
	c.ObserveFunc = c.observe
	c.RemoveObserverFunc = c.removeObserver
	c.DisposeFunc = c.dispose
	return c
}

func (c *Concat) option(path Path) Option {
	opts := make([]Option, 0, len(c.children))
	for _, child := range c.children {
		opts = append(opts, child.Option(path))
	}
	return UnionOptions(opts...)
}

func (c *Concat) browse(path Path, opt Option) (*DirectoryContent, error) {
	contents := make([]*DirectoryContent, len(c.children))
	g, _ := errgroup.WithContext(context.Background())
	for i, child := range c.children {
		i, child := i, child
		g.Go(func() error {
			content, err := child.Browse(path, opt)
			if err != nil {
				if IsErr(err, KindNotSupported) {
					return nil
				}
				return err
			}
			contents[i] = content
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	order := make([]string, 0)
	byName := make(map[string]*Entry)
	exists := false
	for _, content := range contents {
		if content == nil || !content.Exists {
			continue
		}
		exists = true
		for _, child := range content.Children {
			name := child.Name()
			// First occurrence wins: contents is in child precedence order, so whichever child is iterated
			// first for a given name is the higher-precedence one.
			if _, seen := byName[name]; seen {
				continue
			}
			order = append(order, name)
			byName[name] = child
		}
	}
	if !exists {
		return NonExistent(c, path), nil
	}
	merged := make([]*Entry, 0, len(order))
	for _, name := range order {
		merged = append(merged, byName[name])
	}
	return &DirectoryContent{FS: c, Path: path, Exists: true, Children: merged}, nil
}

func (c *Concat) getEntry(path Path, opt Option) (*Entry, error) {
	for _, child := range c.children {
		e, err := child.GetEntry(path, opt)
		if err == nil {
			return e, nil
		}
		if IsErr(err, KindNotFound) || IsErr(err, KindNotSupported) {
			continue
		}
		return nil, err
	}
	return nil, NotFoundErr(path)
}

func (c *Concat) open(path Path, opt Option) (Stream, error) {
	var lastErr error = NotSupportedErr("Open", c)
	for _, child := range c.children {
		s, err := child.Open(path, opt)
		if err == nil {
			return s, nil
		}
		if IsErr(err, KindNotSupported) {
			lastErr = err
			continue
		}
		if IsErr(err, KindNotFound) {
			lastErr = err
			continue
		}
		return nil, err
	}
	return nil, lastErr
}

func (c *Concat) createDirectory(path Path, opt Option) (*Entry, error) {
	var lastErr error = NotSupportedErr("CreateDirectory", c)
	for _, child := range c.children {
		e, err := child.CreateDirectory(path, opt)
		if err == nil {
			return e, nil
		}
		if IsErr(err, KindNotSupported) {
			lastErr = err
			continue
		}
		return nil, err
	}
	return nil, lastErr
}

func (c *Concat) delete(path Path, opt Option) error {
	var lastErr error = NotSupportedErr("Delete", c)
	for _, child := range c.children {
		err := child.Delete(path, opt)
		if err == nil {
			return nil
		}
		if IsErr(err, KindNotSupported) {
			lastErr = err
			continue
		}
		return err
	}
	return lastErr
}

func (c *Concat) move(src, dst Path, opt Option) error {
	var lastErr error = NotSupportedErr("Move", c)
	for _, child := range c.children {
		err := child.Move(src, dst, opt)
		if err == nil {
			return nil
		}
		if IsErr(err, KindNotSupported) {
			lastErr = err
			continue
		}
		return err
	}
	return lastErr
}

func (c *Concat) setFileAttribute(path Path, attrs FileAttributes, opt Option) error {
	var lastErr error = NotSupportedErr("SetFileAttribute", c)
	for _, child := range c.children {
		err := child.SetFileAttribute(path, attrs, opt)
		if err == nil {
			return nil
		}
		if IsErr(err, KindNotSupported) {
			lastErr = err
			continue
		}
		return err
	}
	return lastErr
}

func (c *Concat) observe(path Path, opt Option, observer Observer) (ObserverHandle, error) {
	if err := c.lifecycle.Acquire(); err != nil {
		return ObserverHandle{}, err
	}
	var mu sync.Mutex
	var handles []ObserverHandle
	var registered []FileSystem
	g, _ := errgroup.WithContext(context.Background())
	for _, child := range c.children {
		child := child
		g.Go(func() error {
			h, err := child.Observe(path, opt, observer)
			if err != nil {
				if IsErr(err, KindNotSupported) {
					return nil
				}
				return err
			}
			mu.Lock()
			handles = append(handles, h)
			registered = append(registered, child)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		for i, h := range handles {
			_ = registered[i].RemoveObserver(h)
		}
		c.lifecycle.Release()
		return ObserverHandle{}, err
	}
	if len(handles) == 0 {
		c.lifecycle.Release()
		return ObserverHandle{}, NotSupportedErr("Observe", c)
	}
	outer := NewObserverHandle()
	c.regsMu.Lock()
	c.regs[outer] = concatRegistration{children: registered, handles: handles}
	c.regsMu.Unlock()
	return outer, nil
}

func (c *Concat) removeObserver(handle ObserverHandle) error {
	c.regsMu.Lock()
	reg, ok := c.regs[handle]
	if ok {
		delete(c.regs, handle)
	}
	c.regsMu.Unlock()
	if !ok {
		return nil
	}
	var errs []error
	for i, child := range reg.children {
		if err := child.RemoveObserver(reg.handles[i]); err != nil {
			errs = append(errs, err)
		}
	}
	c.lifecycle.Release()
	return Aggregate(errs...)
}

func (c *Concat) dispose() error {
	return c.lifecycle.Dispose()
}
