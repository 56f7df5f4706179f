package reviewer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetPreservesInsertionOrder(t *testing.T) {
	s := newSet()
	assert.True(t, s.add("carol"))
	assert.True(t, s.add("alice"))
	assert.False(t, s.add("carol"), "duplicate add should report false")

	assert.Equal(t, []string{"carol", "alice"}, s.users())
	assert.Equal(t, 2, s.len())
}

func TestSetRemove(t *testing.T) {
	s := newSet()
	s.add("a")
	s.add("b")
	s.add("c")

	s.remove("b")
	s.remove("missing")

	assert.Equal(t, []string{"a", "c"}, s.users())
	assert.False(t, s.has("b"))
}

func TestSetKeep(t *testing.T) {
	s := newSet()
	s.add("a")
	s.add("b")
	s.add("c")

	s.keep(func(u string) bool { return u != "b" })

	assert.Equal(t, []string{"a", "c"}, s.users())
}

func TestSetTruncate(t *testing.T) {
	s := newSet()
	s.add("a")
	s.add("b")
	s.add("c")

	s.truncate(2)
	assert.Equal(t, []string{"a", "b"}, s.users())
	assert.False(t, s.has("c"))

	s.truncate(5)
	assert.Equal(t, 2, s.len())
}
