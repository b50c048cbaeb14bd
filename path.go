// Package vfs provides a uniform virtual filesystem abstraction that composes
// heterogeneous storage backends behind a single path-addressed interface.
package vfs

import "strings"

// PathSeparator is always / and platform independent, irrespective of host OS.
const PathSeparator = "/"

// A Path must be unique in it's context and has the role of a composite key. It's segments are always separated
// using a slash, even if the backend behind a mount is natively something else.
//
// Design decisions
//
// There are the following opinionated decisions:
//
//  * The empty string "" denotes the root. A trailing "/" denotes a directory. Browsing code should check
//    IsDir() instead of guessing from content.
//  * "." and ".." are not special. A Path is syntactic, never resolved against any backend.
//  * It is a string, because defacto all modern APIs are UTF-8 and web based, and because a path is naturally
//    always a string: you want to use the provided string handling infrastructure instead of reinventing it on
//    top of a []string.
type Path string

// IsRoot reports whether p denotes the filesystem root, the empty path.
func (p Path) IsRoot() bool {
	return len(p) == 0
}

// IsDir reports whether p has a trailing slash or is the root, the directory-path convention used throughout.
func (p Path) IsDir() bool {
	return p.IsRoot() || strings.HasSuffix(string(p), PathSeparator)
}

// StartsWith tests whether the path begins with prefix.
func (p Path) StartsWith(prefix Path) bool {
	return strings.HasPrefix(string(p), string(prefix))
}

// EndsWith tests whether the path ends with suffix.
func (p Path) EndsWith(suffix Path) bool {
	return strings.HasSuffix(string(p), string(suffix))
}

// Names splits the path by / and returns all non-empty segments as a simple string array.
func (p Path) Names() []string {
	tmp := strings.Split(string(p), PathSeparator)
	cleaned := make([]string, len(tmp))
	idx := 0
	for _, str := range tmp {
		if len(str) > 0 {
			cleaned[idx] = str
			idx++
		}
	}
	return cleaned[0:idx]
}

// NameCount returns how many names are included in this path.
func (p Path) NameCount() int {
	return len(p.Names())
}

// NameAt returns the name at the given index.
func (p Path) NameAt(idx int) string {
	return p.Names()[idx]
}

// Name returns the last element in this path or the empty string if this path denotes the root.
func (p Path) Name() string {
	tmp := p.Names()
	if len(tmp) == 0 {
		return ""
	}
	return tmp[len(tmp)-1]
}

// Parent returns the parent path of this path, always in directory form.
func (p Path) Parent() Path {
	tmp := p.Names()
	if len(tmp) <= 1 {
		return ""
	}
	return Path(strings.Join(tmp[:len(tmp)-1], PathSeparator) + PathSeparator)
}

// String normalizes the path: segments joined by exactly one slash, a trailing slash preserved iff p.IsDir(),
// and never a leading slash (the root is the empty string, not "/").
func (p Path) String() string {
	joined := strings.Join(p.Names(), PathSeparator)
	if p.IsDir() && joined != "" {
		return joined + PathSeparator
	}
	return joined
}

// Child returns a new Path with name appended as a child. The receiver is normalized to directory form first.
func (p Path) Child(name string) Path {
	name = strings.TrimPrefix(name, PathSeparator)
	base := p.String()
	if !p.IsDir() {
		base += PathSeparator
	}
	return Path(base + name)
}

// TrimPrefix returns a path without the given prefix. If p does not start with prefix, p is returned unmodified.
func (p Path) TrimPrefix(prefix Path) Path {
	if prefix.IsRoot() {
		return p
	}
	base := strings.TrimSuffix(prefix.String(), PathSeparator)
	if s := p.String(); s != base && !strings.HasPrefix(s, base+PathSeparator) {
		return p
	}
	trimmed := strings.TrimPrefix(p.String(), base)
	trimmed = strings.TrimPrefix(trimmed, PathSeparator)
	if p.IsDir() && trimmed != "" {
		return Path(trimmed)
	}
	return Path(trimmed)
}

// ConcatPaths merges all paths together, segment by segment. The directory-ness of the result follows the
// last non-empty argument.
func ConcatPaths(paths ...Path) Path {
	tmp := make([]string, 0)
	dir := false
	for _, path := range paths {
		names := path.Names()
		if len(names) > 0 || !path.IsRoot() {
			dir = path.IsDir()
		}
		tmp = append(tmp, names...)
	}
	joined := strings.Join(tmp, PathSeparator)
	if dir && joined != "" {
		joined += PathSeparator
	}
	return Path(joined)
}
