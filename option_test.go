package vfs

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnionOptionsIsMostPermissive(t *testing.T) {
	a := NewOption(OpenOption{CanOpen: true, CanRead: true})
	b := NewOption(OpenOption{CanOpen: true, CanWrite: true})
	merged := UnionOptions(a, b)
	open := merged.Open()
	assert.True(t, open.CanOpen)
	assert.True(t, open.CanRead)
	assert.True(t, open.CanWrite)
}

func TestIntersectOptionsIsLeastPermissive(t *testing.T) {
	a := NewOption(OpenOption{CanOpen: true, CanRead: true, CanWrite: true})
	b := NewOption(OpenOption{CanOpen: true, CanRead: true})
	merged, err := IntersectOptions(a, b)
	require.NoError(t, err)
	open := merged.Open()
	assert.True(t, open.CanRead)
	assert.False(t, open.CanWrite)
}

func TestJoinOptionsFirstWins(t *testing.T) {
	a := NewOption(SubPathOption{Value: "first"})
	b := NewOption(SubPathOption{Value: "second"})
	merged := JoinOptions(a, b)
	assert.Equal(t, "first", merged.SubPath().Value)
}

func TestSubPathIntersectDivergesToEmpty(t *testing.T) {
	a := NewOption(SubPathOption{Value: "a"})
	b := NewOption(SubPathOption{Value: "b"})
	merged, err := IntersectOptions(a, b)
	require.NoError(t, err)
	assert.Equal(t, "", merged.SubPath().Value)
}

type fakeLoader struct {
	pattern *regexp.Regexp
}

func (f fakeLoader) Pattern() *regexp.Regexp { return f.pattern }

func TestAutoMountUnionDetectsCollision(t *testing.T) {
	loaderA := fakeLoader{pattern: regexp.MustCompile(`\.zip$`)}
	loaderB := fakeLoader{pattern: regexp.MustCompile(`\.zip$`)}
	a := NewOption(AutoMountOption{Loaders: []PackageLoader{loaderA}})
	b := NewOption(AutoMountOption{Loaders: []PackageLoader{loaderB}})

	_, err := UnionOptionsStrict(a, b)
	require.Error(t, err)
	assert.True(t, IsErr(err, KindOptionCompositionUnsupported))
}

func TestAutoMountUnionAllowsIdenticalLoader(t *testing.T) {
	loader := fakeLoader{pattern: regexp.MustCompile(`\.zip$`)}
	a := NewOption(AutoMountOption{Loaders: []PackageLoader{loader}})
	b := NewOption(AutoMountOption{Loaders: []PackageLoader{loader}})

	merged, err := UnionOptionsStrict(a, b)
	require.NoError(t, err)
	assert.Len(t, merged.AutoMount().Loaders, 1)
}

func TestTokenLookupRespectsPatterns(t *testing.T) {
	opt := NewOption(TokenOption{Tokens: []Token{
		{TypeKey: "dispatcher", Payload: "d1", Patterns: Filter{"docs/**"}},
	}})
	_, ok := opt.Token().Lookup(Path("docs/readme.txt"), "dispatcher")
	assert.True(t, ok)
	_, ok = opt.Token().Lookup(Path("src/main.go"), "dispatcher")
	assert.False(t, ok)
}
