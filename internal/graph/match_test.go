package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatch_FullString(t *testing.T) {
	names := []string{"sys/database/2", "dserver/databaseds/2", "", "SYS/tg_test/1"}

	assert.Equal(t, []string{"sys/database/2", "SYS/tg_test/1"}, Match("sys/*", names))
	assert.Empty(t, Match("data*", names), "no substring matches")
	assert.Equal(t, []string{"sys/database/2"}, Match("SYS/DATABASE/2", names))
	assert.Equal(t, []string{"sys/database/2", "dserver/databaseds/2", "SYS/tg_test/1"}, Match("*", names))
	assert.Equal(t, []string{"dserver/databaseds/2"}, Match("*/databaseds/*", names))
}

func TestMatch_LiteralMetacharacters(t *testing.T) {
	names := []string{"a.b", "axb", "a+b", "(x)"}
	assert.Equal(t, []string{"a.b"}, Match("a.b", names))
	assert.Equal(t, []string{"a+b"}, Match("a+b", names))
	assert.Equal(t, []string{"(x)"}, Match("(*)", names))
}

func TestMatch_Multiline(t *testing.T) {
	assert.True(t, MatchString("a*b", "a\nb"))
}

func TestMatcher_CachesPatterns(t *testing.T) {
	m := NewMatcher(2)
	re := m.Compile("a*")
	assert.Same(t, re, m.Compile("a*"))
	assert.True(t, m.MatchString("a*", "ABC"))

	m.Compile("b*")
	m.Compile("c*")
	assert.NotSame(t, re, m.Compile("a*"), "evicted pattern is recompiled")
}
