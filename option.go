package vfs

// An OptionKind identifies one of the closed set of composable option kinds. Each kind knows
// how to Join (pick first), Union (most permissive merge) and Intersect (least permissive merge) with another
// value of the same kind.
type OptionKind int

const (
	OptionOpen OptionKind = iota
	OptionBrowse
	OptionObserve
	OptionMove
	OptionDelete
	OptionCreateDirectory
	OptionMount
	OptionFileAttribute
	OptionPathInfo
	OptionSubPath
	OptionAutoMount
	OptionToken
)

// optionValue is implemented by every concrete *Option struct (OpenOption, BrowseOption, ...). union and
// intersect return the composed value; intersect has an error return, though no current kind uses it.
type optionValue interface {
	kind() OptionKind
	union(other optionValue) optionValue
	intersect(other optionValue) (optionValue, error)
}

// OpenOption declares the Open-related capabilities of a filesystem or call.
type OpenOption struct {
	CanOpen         bool
	CanRead         bool
	CanWrite        bool
	CanCreateFile   bool
}

func (o OpenOption) kind() OptionKind { return OptionOpen }
func (o OpenOption) union(other optionValue) optionValue {
	b := other.(OpenOption)
	return OpenOption{o.CanOpen || b.CanOpen, o.CanRead || b.CanRead, o.CanWrite || b.CanWrite, o.CanCreateFile || b.CanCreateFile}
}
func (o OpenOption) intersect(other optionValue) (optionValue, error) {
	b := other.(OpenOption)
	return OpenOption{o.CanOpen && b.CanOpen, o.CanRead && b.CanRead, o.CanWrite && b.CanWrite, o.CanCreateFile && b.CanCreateFile}, nil
}

// BrowseOption declares the directory-listing capabilities of a filesystem or call.
type BrowseOption struct {
	CanBrowse   bool
	CanGetEntry bool
}

func (o BrowseOption) kind() OptionKind { return OptionBrowse }
func (o BrowseOption) union(other optionValue) optionValue {
	b := other.(BrowseOption)
	return BrowseOption{o.CanBrowse || b.CanBrowse, o.CanGetEntry || b.CanGetEntry}
}
func (o BrowseOption) intersect(other optionValue) (optionValue, error) {
	b := other.(BrowseOption)
	return BrowseOption{o.CanBrowse && b.CanBrowse, o.CanGetEntry && b.CanGetEntry}, nil
}

// ObserveOption declares whether change notifications are supported and, optionally, narrows which paths an
// Observe call is actually interested in below the registration path.
type ObserveOption struct {
	CanObserve bool
	Filter     Filter
}

func (o ObserveOption) kind() OptionKind { return OptionObserve }
func (o ObserveOption) union(other optionValue) optionValue {
	b := other.(ObserveOption)
	return ObserveOption{CanObserve: o.CanObserve || b.CanObserve, Filter: append(append(Filter{}, o.Filter...), b.Filter...)}
}
func (o ObserveOption) intersect(other optionValue) (optionValue, error) {
	b := other.(ObserveOption)
	return ObserveOption{CanObserve: o.CanObserve && b.CanObserve, Filter: o.Filter}, nil
}

// MoveOption declares whether Move is supported.
type MoveOption struct {
	CanMove bool
}

func (o MoveOption) kind() OptionKind { return OptionMove }
func (o MoveOption) union(other optionValue) optionValue {
	return MoveOption{o.CanMove || other.(MoveOption).CanMove}
}
func (o MoveOption) intersect(other optionValue) (optionValue, error) {
	return MoveOption{o.CanMove && other.(MoveOption).CanMove}, nil
}

// DeleteOption declares whether Delete is supported.
type DeleteOption struct {
	CanDelete bool
}

func (o DeleteOption) kind() OptionKind { return OptionDelete }
func (o DeleteOption) union(other optionValue) optionValue {
	return DeleteOption{o.CanDelete || other.(DeleteOption).CanDelete}
}
func (o DeleteOption) intersect(other optionValue) (optionValue, error) {
	return DeleteOption{o.CanDelete && other.(DeleteOption).CanDelete}, nil
}

// CreateDirectoryOption declares whether CreateDirectory is supported.
type CreateDirectoryOption struct {
	CanCreateDirectory bool
}

func (o CreateDirectoryOption) kind() OptionKind { return OptionCreateDirectory }
func (o CreateDirectoryOption) union(other optionValue) optionValue {
	return CreateDirectoryOption{o.CanCreateDirectory || other.(CreateDirectoryOption).CanCreateDirectory}
}
func (o CreateDirectoryOption) intersect(other optionValue) (optionValue, error) {
	return CreateDirectoryOption{o.CanCreateDirectory && other.(CreateDirectoryOption).CanCreateDirectory}, nil
}

// MountOption declares mount-tree related capabilities.
type MountOption struct {
	CanMount      bool
	CanUnmount    bool
	CanListMounts bool
}

func (o MountOption) kind() OptionKind { return OptionMount }
func (o MountOption) union(other optionValue) optionValue {
	b := other.(MountOption)
	return MountOption{o.CanMount || b.CanMount, o.CanUnmount || b.CanUnmount, o.CanListMounts || b.CanListMounts}
}
func (o MountOption) intersect(other optionValue) (optionValue, error) {
	b := other.(MountOption)
	return MountOption{o.CanMount && b.CanMount, o.CanUnmount && b.CanUnmount, o.CanListMounts && b.CanListMounts}, nil
}

// FileAttributeOption declares whether SetFileAttribute is supported.
type FileAttributeOption struct {
	CanSetAttribute bool
}

func (o FileAttributeOption) kind() OptionKind { return OptionFileAttribute }
func (o FileAttributeOption) union(other optionValue) optionValue {
	return FileAttributeOption{o.CanSetAttribute || other.(FileAttributeOption).CanSetAttribute}
}
func (o FileAttributeOption) intersect(other optionValue) (optionValue, error) {
	return FileAttributeOption{o.CanSetAttribute && other.(FileAttributeOption).CanSetAttribute}, nil
}

// PathInfoOption reports informational (not policy) facts about a filesystem's path semantics. Composition is
// first-wins, since these describe a single backend's reality rather than a permission to AND/OR together.
type PathInfoOption struct {
	CaseSensitive         bool
	AllowEmptyDirName bool
}

func (o PathInfoOption) kind() OptionKind              { return OptionPathInfo }
func (o PathInfoOption) union(optionValue) optionValue { return o }
func (o PathInfoOption) intersect(optionValue) (optionValue, error) {
	return o, nil
}

// SubPathOption is produced by a Decoration's path converter. Intersecting two differing
// SubPath values is undefined: this implementation resolves "undefined" to the empty value rather than an
// error, since a vanished SubPath is a safe, non-silently-wrong default (it degrades to "no remapping" instead
// of picking one side arbitrarily).
type SubPathOption struct {
	Value string
}

func (o SubPathOption) kind() OptionKind { return OptionSubPath }
func (o SubPathOption) union(optionValue) optionValue {
	return o
}
func (o SubPathOption) intersect(other optionValue) (optionValue, error) {
	b := other.(SubPathOption)
	if o.Value != b.Value {
		return SubPathOption{}, nil
	}
	return o, nil
}

// An AutoMountOption lists package loaders as composable option data. The VirtualFileSystem does not read it:
// AutoMountPackage uses the loaders its AutoMounter was built with.
type AutoMountOption struct {
	Loaders []PackageLoader
}

func (o AutoMountOption) kind() OptionKind { return OptionAutoMount }
func (o AutoMountOption) union(other optionValue) optionValue {
	b := other.(AutoMountOption)
	merged, err := unionLoaders(o.Loaders, b.Loaders)
	if err != nil {
		// Union has no error return in the optionValue contract; surface the collision as no loaders at all
		// rather than panicking. UnionOptionsStrict re-derives and reports the same error to the caller.
		return AutoMountOption{}
	}
	return AutoMountOption{Loaders: merged}
}
func (o AutoMountOption) intersect(other optionValue) (optionValue, error) {
	b := other.(AutoMountOption)
	out := make([]PackageLoader, 0)
	for _, l := range o.Loaders {
		for _, r := range b.Loaders {
			if l.Pattern().String() == r.Pattern().String() {
				out = append(out, l)
				break
			}
		}
	}
	return AutoMountOption{Loaders: out}, nil
}

func unionLoaders(a, b []PackageLoader) ([]PackageLoader, error) {
	seen := make(map[string]PackageLoader)
	for _, l := range a {
		seen[l.Pattern().String()] = l
	}
	for _, l := range b {
		if existing, ok := seen[l.Pattern().String()]; ok && existing != l {
			return nil, WrapError(KindOptionCompositionUnsupported, "", "two AutoMount loaders claim the same extension pattern: "+l.Pattern().String(), nil)
		}
		seen[l.Pattern().String()] = l
	}
	out := make([]PackageLoader, 0, len(seen))
	for _, l := range seen {
		out = append(out, l)
	}
	return out, nil
}

// A TokenOption carries the opaque credential/cancellation objects in an option chain. Tokens always
// compose by concatenation, for both Union and Intersection.
type TokenOption struct {
	Tokens []Token
}

func (o TokenOption) kind() OptionKind { return OptionToken }
func (o TokenOption) union(other optionValue) optionValue {
	b := other.(TokenOption)
	return TokenOption{Tokens: append(append([]Token{}, o.Tokens...), b.Tokens...)}
}
func (o TokenOption) intersect(other optionValue) (optionValue, error) {
	return o.union(other), nil
}

// Lookup returns the payload of the first token whose TypeKey matches key and whose patterns apply to path.
func (o TokenOption) Lookup(path Path, key string) (interface{}, bool) {
	for _, t := range o.Tokens {
		if t.TypeKey == key && t.AppliesTo(path) {
			return t.Payload, true
		}
	}
	return nil, false
}

// An Option is an immutable, adaptable bag of capability/configuration values keyed by OptionKind. The zero
// value is an empty bag (no capabilities, no data) and is always valid to pass.
type Option struct {
	values map[OptionKind]optionValue
}

// NewOption builds an Option bag from a set of concrete option values, e.g. NewOption(OpenOption{...}, MoveOption{...}).
func NewOption(values ...optionValue) Option {
	bag := Option{values: make(map[OptionKind]optionValue, len(values))}
	for _, v := range values {
		bag.values[v.kind()] = v
	}
	return bag
}

func (o Option) get(k OptionKind) (optionValue, bool) {
	if o.values == nil {
		return nil, false
	}
	v, ok := o.values[k]
	return v, ok
}

// Open returns the OpenOption in this bag, or the zero value (no capabilities) if absent.
func (o Option) Open() OpenOption {
	if v, ok := o.get(OptionOpen); ok {
		return v.(OpenOption)
	}
	return OpenOption{}
}

// Browse returns the BrowseOption in this bag, or the zero value if absent.
func (o Option) Browse() BrowseOption {
	if v, ok := o.get(OptionBrowse); ok {
		return v.(BrowseOption)
	}
	return BrowseOption{}
}

// Observe returns the ObserveOption in this bag, or the zero value if absent.
func (o Option) Observe() ObserveOption {
	if v, ok := o.get(OptionObserve); ok {
		return v.(ObserveOption)
	}
	return ObserveOption{}
}

// Move returns the MoveOption in this bag, or the zero value if absent.
func (o Option) Move() MoveOption {
	if v, ok := o.get(OptionMove); ok {
		return v.(MoveOption)
	}
	return MoveOption{}
}

// Delete returns the DeleteOption in this bag, or the zero value if absent.
func (o Option) Delete() DeleteOption {
	if v, ok := o.get(OptionDelete); ok {
		return v.(DeleteOption)
	}
	return DeleteOption{}
}

// CreateDirectory returns the CreateDirectoryOption in this bag, or the zero value if absent.
func (o Option) CreateDirectory() CreateDirectoryOption {
	if v, ok := o.get(OptionCreateDirectory); ok {
		return v.(CreateDirectoryOption)
	}
	return CreateDirectoryOption{}
}

// Mount returns the MountOption in this bag, or the zero value if absent.
func (o Option) Mount() MountOption {
	if v, ok := o.get(OptionMount); ok {
		return v.(MountOption)
	}
	return MountOption{}
}

// FileAttribute returns the FileAttributeOption in this bag, or the zero value if absent.
func (o Option) FileAttribute() FileAttributeOption {
	if v, ok := o.get(OptionFileAttribute); ok {
		return v.(FileAttributeOption)
	}
	return FileAttributeOption{}
}

// PathInfo returns the PathInfoOption in this bag, or the zero value if absent.
func (o Option) PathInfo() PathInfoOption {
	if v, ok := o.get(OptionPathInfo); ok {
		return v.(PathInfoOption)
	}
	return PathInfoOption{}
}

// SubPath returns the SubPathOption in this bag, or the zero value if absent.
func (o Option) SubPath() SubPathOption {
	if v, ok := o.get(OptionSubPath); ok {
		return v.(SubPathOption)
	}
	return SubPathOption{}
}

// AutoMount returns the AutoMountOption in this bag, or the zero value if absent.
func (o Option) AutoMount() AutoMountOption {
	if v, ok := o.get(OptionAutoMount); ok {
		return v.(AutoMountOption)
	}
	return AutoMountOption{}
}

// Token returns the TokenOption in this bag, or the zero value if absent.
func (o Option) Token() TokenOption {
	if v, ok := o.get(OptionToken); ok {
		return v.(TokenOption)
	}
	return TokenOption{}
}

// JoinOptions composes a bag where, for each OptionKind, the first occurrence among opts wins (left-biased).
func JoinOptions(opts ...Option) Option {
	result := Option{values: make(map[OptionKind]optionValue)}
	for _, o := range opts {
		for k, v := range o.values {
			if _, exists := result.values[k]; !exists {
				result.values[k] = v
			}
		}
	}
	return result
}

// UnionOptions composes the most permissive merge of opts: per kind, booleans OR, AutoMount loader sets union
// (collapsing to empty on a collision — call UnionOptionsStrict to observe the collision as an error).
func UnionOptions(opts ...Option) Option {
	result := Option{values: make(map[OptionKind]optionValue)}
	for _, o := range opts {
		for k, v := range o.values {
			if existing, ok := result.values[k]; ok {
				result.values[k] = existing.union(v)
			} else {
				result.values[k] = v
			}
		}
	}
	return result
}

// UnionOptionsStrict behaves like UnionOptions but returns an *Error with KindOptionCompositionUnsupported if
// two AutoMount loader sets claim the same extension pattern.
func UnionOptionsStrict(opts ...Option) (Option, error) {
	loaders := make([]PackageLoader, 0)
	for _, o := range opts {
		if am, ok := o.get(OptionAutoMount); ok {
			loaders = append(loaders, am.(AutoMountOption).Loaders...)
		}
	}
	if _, err := unionLoaders(nil, loaders); err != nil {
		return Option{}, err
	}
	return UnionOptions(opts...), nil
}

// IntersectOptions composes the least permissive merge of opts: per kind, booleans AND. Returns an error only
// if a per-kind intersect implementation does (none currently do; reserved for future option kinds).
func IntersectOptions(opts ...Option) (Option, error) {
	result := Option{values: make(map[OptionKind]optionValue)}
	for _, o := range opts {
		for k, v := range o.values {
			if existing, ok := result.values[k]; ok {
				merged, err := existing.intersect(v)
				if err != nil {
					return Option{}, err
				}
				result.values[k] = merged
			} else {
				result.values[k] = v
			}
		}
	}
	return result, nil
}
