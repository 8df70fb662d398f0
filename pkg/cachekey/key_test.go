package cachekey

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerate_NoArgs_ReturnsOperationID(t *testing.T) {
	// Given an operation-id and no arguments
	// When Generate is called
	// Then the operation-id is returned verbatim
	got := Generate("getData")
	assert.Equal(t, "getData", got)
}

func TestGenerate_Deterministic(t *testing.T) {
	// Given identical (operation-id, args)
	// When Generate is called repeatedly
	// Then the result is identical every time
	a := Generate("getData", "x", 42, map[string]any{"b": 2, "a": 1})
	b := Generate("getData", "x", 42, map[string]any{"a": 1, "b": 2})
	assert.Equal(t, a, b, "map key order must not affect the generated key")
}

func TestGenerate_DifferentArgs_DifferentKeys(t *testing.T) {
	a := Generate("getData", "x")
	b := Generate("getData", "y")
	assert.NotEqual(t, a, b)
}

func TestGenerate_HasOperationPrefix(t *testing.T) {
	got := Generate("getData", "x")
	assert.Regexp(t, `^getData:[0-9a-f]{64}$`, got)
}

func TestGenerate_NilArgument_FallsBackToNullLiteral(t *testing.T) {
	g := New()
	got := g.fallbackKey([]any{nil, "x"})
	assert.Equal(t, "null:x", got)
}
