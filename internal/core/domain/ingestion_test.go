package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIngestionMode_IsValid(t *testing.T) {
	assert.True(t, ModeFull.IsValid())
	assert.True(t, ModeClauseOnly.IsValid())
	assert.False(t, IngestionMode("quick").IsValid())
	assert.False(t, IngestionMode("").IsValid())
}

func TestIngestionMode_Covers(t *testing.T) {
	assert.True(t, ModeFull.Covers(ModeFull))
	assert.True(t, ModeFull.Covers(ModeClauseOnly))
	assert.True(t, ModeClauseOnly.Covers(ModeClauseOnly))
	assert.False(t, ModeClauseOnly.Covers(ModeFull))
}

func TestIngestionMode_Description(t *testing.T) {
	assert.Contains(t, ModeFull.Description(), "Full")
	assert.Contains(t, ModeClauseOnly.Description(), "Clause")
	assert.Equal(t, unknownDescription, IngestionMode("x").Description())
}
