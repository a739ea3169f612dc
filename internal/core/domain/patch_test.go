package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPatch_Validate(t *testing.T) {
	tests := []struct {
		name    string
		patch   Patch
		wantErr bool
	}{
		{"vote card", Patch{"participants/p1/vote": CardFive}, false},
		{"vote string", Patch{"participants/p1/vote": "coffee"}, false},
		{"vote cleared", Patch{"participants/p1/vote": nil}, false},
		{"join", Patch{"participants/p1/name": "Bob", "participants/p1/isAdmin": false}, false},
		{"reset", Patch{"revealed": false, "topic": "x", "participants/p1/vote": nil}, false},
		{"empty", Patch{}, true},
		{"unknown top-level", Patch{"owner": "x"}, true},
		{"unknown field", Patch{"participants/p1/score": 3}, true},
		{"bad participant id", Patch{"participants/p 1/vote": "5"}, true},
		{"bad vote", Patch{"participants/p1/vote": "99"}, true},
		{"revealed wrong type", Patch{"revealed": "yes"}, true},
		{"whole participant", Patch{"participants/p1": map[string]any{"name": "x"}}, true},
		{"whole document", Patch{"participants": nil}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.patch.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidPatch)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestApplyPatch_MergesFieldsOnly(t *testing.T) {
	doc := map[string]any{
		"topic":    "t",
		"revealed": false,
		"participants": map[string]any{
			"a": map[string]any{"name": "A", "isAdmin": true},
			"b": map[string]any{"name": "B", "isAdmin": false, "vote": "3"},
		},
	}

	require.NoError(t, ApplyPatch(doc, Patch{"participants/a/vote": CardEight}))
	require.NoError(t, ApplyPatch(doc, Patch{"participants/b/vote": CardFive}))

	participants := doc["participants"].(map[string]any)
	assert.Equal(t, CardEight, participants["a"].(map[string]any)["vote"])
	assert.Equal(t, CardFive, participants["b"].(map[string]any)["vote"])
	assert.Equal(t, "A", participants["a"].(map[string]any)["name"])
	assert.Equal(t, "t", doc["topic"])
}

func TestApplyPatch_CreatesIntermediateObjects(t *testing.T) {
	doc := map[string]any{"participants": map[string]any{}}

	require.NoError(t, ApplyPatch(doc, Patch{
		"participants/c/name":    "C",
		"participants/c/isAdmin": false,
		"participants/c/vote":    nil,
	}))

	c := doc["participants"].(map[string]any)["c"].(map[string]any)
	assert.Equal(t, map[string]any{"name": "C", "isAdmin": false}, c)
}

func TestApplyPatch_RemovalUnderMissingParentIsNoop(t *testing.T) {
	doc := map[string]any{"participants": map[string]any{}}

	require.NoError(t, ApplyPatch(doc, Patch{"participants/ghost/vote": nil}))

	assert.Empty(t, doc["participants"])
}

func TestApplyPatch_RejectsEmptySegment(t *testing.T) {
	err := ApplyPatch(map[string]any{}, Patch{"participants//vote": "1"})
	assert.ErrorIs(t, err, ErrInvalidPatch)
}
