package vfs

// A Token is an opaque, path-scoped value threaded through an option chain: credentials, cancellation handles,
// or caller-defined context that a decoration or backend several layers down wants to read back out again
//. TypeKey namespaces the payload so unrelated producers/consumers never collide.
type Token struct {
	TypeKey string
	Payload interface{}
	// Patterns restricts where this token applies. nil means "everywhere"; a non-nil empty slice means
	// "nowhere" (used by a decoration that wants to suppress an inherited token under its subtree).
	Patterns Filter
}

// AppliesTo reports whether this token is in scope for path.
func (t Token) AppliesTo(path Path) bool {
	if t.Patterns == nil {
		return true
	}
	if len(t.Patterns) == 0 {
		return false
	}
	return t.Patterns.Match(path)
}
