package vfs

import (
	"regexp"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// AutoMounter mounts package files (archives, containers, anything a PackageLoader recognizes) as nested
// filesystems the first time a path inside them is addressed. Concurrent first-touches of the same
// package are deduplicated with golang.org/x/sync/singleflight so two goroutines racing to open the same
// archive only load it once; already-mounted packages are cached in a size-bounded LRU
// (github.com/hashicorp/golang-lru/v2) so an idle package is eventually evicted and disposed rather than held
// forever.
type AutoMounter struct {
	loaders []PackageLoader

	group singleflight.Group
	cache *lru.Cache[string, FileSystem]
}

// NewAutoMounter returns an AutoMounter trying loaders in order and caching up to cacheSize mounted packages.
func NewAutoMounter(loaders []PackageLoader, cacheSize int) *AutoMounter {
	if cacheSize < 1 {
		cacheSize = 32
	}
	am := &AutoMounter{loaders: loaders}
	cache, _ := lru.NewWithEvict[string, FileSystem](cacheSize, func(key string, fs FileSystem) {
		log.WithField("package", key).Debug("auto-mounted package evicted")
		_ = fs.Dispose()
	})
	am.cache = cache
	return am
}

// matchLoader returns the first loader whose Pattern matches name, the last path segment of a package file.
func (am *AutoMounter) matchLoader(name string) PackageLoader {
	for _, l := range am.loaders {
		if matchesLoader(l.Pattern(), name) {
			return l
		}
	}
	return nil
}

func matchesLoader(pattern *regexp.Regexp, name string) bool {
	return pattern != nil && pattern.MatchString(name)
}

// Mount returns the FileSystem representing entry's package content, loading and caching it on first use.
// entry must describe a regular file whose name matches one of the configured loaders; opener is invoked at
// most once per cache miss to obtain a Stream over entry's bytes.
func (am *AutoMounter) Mount(entry *Entry, opener func() (Stream, error)) (FileSystem, error) {
	if entry == nil || entry.IsDir() {
		return nil, NewError(KindInvalidArgument, "", "auto-mount target must be a file")
	}
	loader := am.matchLoader(entry.Name())
	if loader == nil {
		return nil, NotFoundErr(entry.EntryPath)
	}
	key := entry.EntryPath.String()
	if fs, ok := am.cache.Get(key); ok {
		return fs, nil
	}

	result, err, _ := am.group.Do(key, func() (interface{}, error) {
		if fs, ok := am.cache.Get(key); ok {
			return fs, nil
		}
		streamLoader, ok := loader.(StreamLoader)
		if !ok {
			return nil, WrapError(KindPackageLoadError, entry.EntryPath, "loader does not support streaming input", nil)
		}
		stream, err := opener()
		if err != nil {
			return nil, WrapError(KindPackageLoadError, entry.EntryPath, "failed to open package", err)
		}
		defer stream.Close()
		fs, err := streamLoader.LoadFromStream(stream)
		if err != nil {
			return nil, WrapError(KindPackageLoadError, entry.EntryPath, "failed to load package", err)
		}
		am.cache.Add(key, fs)
		return fs, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(FileSystem), nil
}

// AutoUnmount evicts and disposes the cached filesystem for entry, if any, forcing the next access to reload
// it. It is a no-op if entry was never auto-mounted.
func (am *AutoMounter) AutoUnmount(entry *Entry) {
	if entry == nil {
		return
	}
	am.cache.Remove(entry.EntryPath.String())
}

