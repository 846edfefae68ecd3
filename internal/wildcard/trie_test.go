package wildcard

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchStrictSubdomain(t *testing.T) {
	idx := NewIndex()
	idx.Swap([]Pattern{{Suffix: "example.com", SourceID: "s1", Program: "p1"}})

	m := idx.Match("api.example.com")
	assert.NotNil(t, m)
	assert.Equal(t, "example.com", m.Suffix)

	assert.Nil(t, idx.Match("example.com"), "apex must never match")
	assert.Nil(t, idx.Match("other.net"))
	assert.Nil(t, idx.Match(""))
}

func TestMatchMostSpecific(t *testing.T) {
	idx := NewIndex()
	idx.Swap([]Pattern{
		{Suffix: "example.com"},
		{Suffix: "sub.example.com"},
	})

	m := idx.Match("foo.sub.example.com")
	assert.Equal(t, "sub.example.com", m.Suffix)
}

func TestSwapReplacesWholesale(t *testing.T) {
	idx := NewIndex()
	idx.Swap([]Pattern{{Suffix: "old.com"}})
	assert.NotNil(t, idx.Match("a.old.com"))

	idx.Swap([]Pattern{{Suffix: "new.com"}})
	assert.Nil(t, idx.Match("a.old.com"), "swap must replace, not merge")
	assert.NotNil(t, idx.Match("a.new.com"))
}

func TestNormalizeIdempotent(t *testing.T) {
	cases := []string{"*.Example.COM.", "plain.com", "*.a.b."}
	for _, c := range cases {
		once := Normalize(c)
		twice := Normalize(once)
		assert.Equal(t, once, twice)
	}
}

func TestSizeReflectsActiveSnapshot(t *testing.T) {
	idx := NewIndex()
	assert.Equal(t, 0, idx.Size())
	idx.Swap([]Pattern{{Suffix: "a.com"}, {Suffix: "b.com"}})
	assert.Equal(t, 2, idx.Size())
}
