package vfs

import "sync"

// A MountAssignment records one (filesystem, option) pair mounted at a path, in the precedence order
// assignments at the same path are composed in.
type MountAssignment struct {
	ID        MountID
	FS        FileSystem
	Option    Option
	MountPath Path
}

// MountSpec is one (filesystem, option) pair to assign at a path, the unit VirtualFileSystem.MountMany and
// mountTree.Mount take a list of.
type MountSpec struct {
	FS     FileSystem
	Option Option
}

// mountTreeNode is one path segment in the mount trie. Nodes exist for every ancestor of a mounted path, not
// only for mount points themselves, so that Browse on a purely structural ancestor (no filesystem mounted
// there directly) can still enumerate the mount points nested below it.
type mountTreeNode struct {
	children    map[string]*mountTreeNode
	assignments []MountAssignment
}

func newMountTreeNode() *mountTreeNode {
	return &mountTreeNode{children: make(map[string]*mountTreeNode)}
}

// mountTree is the VirtualFileSystem's path-prefix routing structure.
type mountTree struct {
	mu   sync.RWMutex
	root *mountTreeNode
}

func newMountTree() *mountTree {
	return &mountTree{root: newMountTreeNode()}
}

// Mount replaces the existing assignments at path with one assignment per spec, in precedence order, and
// returns the new assignments. A prior Mount at the same path is entirely superseded, not stacked onto.
func (t *mountTree) Mount(path Path, specs []MountSpec) []MountAssignment {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := t.root
	for _, name := range path.Names() {
		child, ok := n.children[name]
		if !ok {
			child = newMountTreeNode()
			n.children[name] = child
		}
		n = child
	}
	assignments := make([]MountAssignment, 0, len(specs))
	for _, spec := range specs {
		assignments = append(assignments, MountAssignment{ID: NewMountID(), FS: spec.FS, Option: spec.Option, MountPath: path})
	}
	n.assignments = assignments
	return assignments
}

// Unmount removes the assignment with the given id, reporting whether it was found.
func (t *mountTree) Unmount(id MountID) (MountAssignment, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	var removed MountAssignment
	var found bool
	var walk func(n *mountTreeNode) bool
	walk = func(n *mountTreeNode) bool {
		for i, a := range n.assignments {
			if a.ID == id {
				removed = a
				found = true
				n.assignments = append(n.assignments[:i], n.assignments[i+1:]...)
				return true
			}
		}
		for _, child := range n.children {
			if walk(child) {
				return true
			}
		}
		return false
	}
	walk(t.root)
	return removed, found
}

// lookupNode returns the exact trie node for path, if one exists (created implicitly by some Mount call along
// this path, either at path itself or at a descendant of it).
func (t *mountTree) lookupNode(path Path) (*mountTreeNode, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n := t.root
	for _, name := range path.Names() {
		child, ok := n.children[name]
		if !ok {
			return nil, false
		}
		n = child
	}
	return n, true
}

// lookupAncestor returns the deepest ancestor of path (path itself included) that carries assignments, along
// with the mount path it was found at. ok is false if no such ancestor exists (nothing mounted on the way to
// the root).
func (t *mountTree) lookupAncestor(path Path) (assignments []MountAssignment, mountPath Path, ok bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n := t.root
	if len(n.assignments) > 0 {
		assignments, mountPath, ok = n.assignments, "", true
	}
	var built Path
	for _, name := range path.Names() {
		child, exists := n.children[name]
		if !exists {
			break
		}
		built = built.Child(name)
		n = child
		if len(n.assignments) > 0 {
			assignments, mountPath, ok = n.assignments, built, true
		}
	}
	return
}

// childMountNames returns the names of path's immediate children in the trie that themselves carry (or have a
// descendant carrying) assignments — i.e. the mount points to synthesize VariantMountPoint entries for when
// Browse is called on a purely structural ancestor path.
func (t *mountTree) childMountNames(path Path) []string {
	node, ok := t.lookupNode(path)
	if !ok {
		return nil
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	var live func(n *mountTreeNode) bool
	live = func(n *mountTreeNode) bool {
		if len(n.assignments) > 0 {
			return true
		}
		for _, c := range n.children {
			if live(c) {
				return true
			}
		}
		return false
	}
	names := make([]string, 0, len(node.children))
	for name, c := range node.children {
		if live(c) {
			names = append(names, name)
		}
	}
	return names
}

// assignmentsAt returns the assignments stacked exactly at path, if any.
func (t *mountTree) assignmentsAt(path Path) []MountAssignment {
	node, ok := t.lookupNode(path)
	if !ok {
		return nil
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]MountAssignment(nil), node.assignments...)
}

// allAssignments returns every assignment in the tree; VirtualFileSystem's dispose uses it to reach every
// mounted filesystem.
func (t *mountTree) allAssignments() []MountAssignment {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]MountAssignment, 0)
	var walk func(n *mountTreeNode)
	walk = func(n *mountTreeNode) {
		out = append(out, n.assignments...)
		for _, c := range n.children {
			walk(c)
		}
	}
	walk(t.root)
	return out
}
