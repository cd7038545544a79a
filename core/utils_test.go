package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanString(t *testing.T) {
	assert.Equal(t, "Ada", CleanString("  Ada\n"))
	assert.Equal(t, "ada", CleanString(" Ada ", true))
}

func TestCleanIDs(t *testing.T) {
	assert.Equal(t, []string{"b", "a"}, CleanIDs([]string{" b", "", "a", "b ", "  "}))
	assert.Empty(t, CleanIDs(nil))
}

func TestContainsID(t *testing.T) {
	assert.True(t, ContainsID([]string{"a", "b"}, "b"))
	assert.False(t, ContainsID(nil, "a"))
}
