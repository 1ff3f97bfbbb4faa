package services

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/leasequery/internal/core/ports/driven"
)

func TestDefaultPrompts_Placeholders(t *testing.T) {
	prompts := DefaultPrompts()

	tests := []struct {
		name string
		args int
	}{
		{driven.PromptClauseExtraction, 2},
		{driven.PromptClauseSingle, 3},
		{driven.PromptKeyTerms, 1},
		{driven.PromptQueryRouter, 1},
		{driven.PromptAnswerSystem, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, ok := prompts[tt.name]
			assert.True(t, ok)
			assert.Equal(t, tt.args, strings.Count(p, "%s"))

			if tt.args == 0 {
				return
			}
			args := make([]any, tt.args)
			for i := range args {
				args[i] = "x"
			}
			assert.NotContains(t, fmt.Sprintf(p, args...), "%!")
		})
	}
}

func TestDefaultPrompts_ReturnsCopy(t *testing.T) {
	p := DefaultPrompts()
	p[driven.PromptKeyTerms] = "changed"

	assert.NotEqual(t, "changed", DefaultPrompts()[driven.PromptKeyTerms])
}

func TestLoadPrompt(t *testing.T) {
	assert.Equal(t, DefaultPrompts()[driven.PromptQueryRouter], loadPrompt(nil, driven.PromptQueryRouter))

	store := &mockPromptStore{prompts: map[string]string{driven.PromptQueryRouter: "custom %s"}}
	assert.Equal(t, "custom %s", loadPrompt(store, driven.PromptQueryRouter))
	assert.Equal(t, DefaultPrompts()[driven.PromptKeyTerms], loadPrompt(store, driven.PromptKeyTerms))
}

func TestAnswerSystemPrompt_MentionsConventions(t *testing.T) {
	p := DefaultPrompts()[driven.PromptAnswerSystem]
	assert.Contains(t, strings.ToLower(p), notInDocsPhrase)
	assert.Contains(t, p, "[CONFIDENCE:")
}
