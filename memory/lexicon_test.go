package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatcher_WordBoundaries(t *testing.T) {
	m := compileLexicon(DefaultLexicon())

	tests := []struct {
		name    string
		content string
		want    Continuation
	}{
		{
			name:    "continuation phrase",
			content: "What About heaps?",
			want:    Continuation{HasContinuationWord: true},
		},
		{
			name:    "embedded word is not a match",
			content: "understand android",
			want:    Continuation{},
		},
		{
			name:    "leading pronoun",
			content: "It is slow",
			want:    Continuation{StartsWithReference: true},
		},
		{
			name:    "contracted pronoun",
			content: "it's slow",
			want:    Continuation{StartsWithReference: true},
		},
		{
			name:    "contracted demonstrative",
			content: "that's odd",
			want:    Continuation{StartsWithReference: true},
		},
		{
			name:    "pronoun not first",
			content: "make it faster",
			want:    Continuation{},
		},
		{
			name:    "follow up",
			content: "why?",
			want:    Continuation{HasFollowUp: true},
		},
		{
			name:    "multi-word follow up across spaces",
			content: "could   you show one",
			want:    Continuation{HasFollowUp: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := m.continuation(tt.content, "", 0)
			assert.Equal(t, tt.want.HasContinuationWord, got.HasContinuationWord)
			assert.Equal(t, tt.want.StartsWithReference, got.StartsWithReference)
			assert.Equal(t, tt.want.HasFollowUp, got.HasFollowUp)
		})
	}
}

func TestMatcher_References(t *testing.T) {
	m := compileLexicon(DefaultLexicon())

	assert.True(t, m.isReference("Like you said, use a map"))
	assert.True(t, m.isReference("go back to the previous one"))
	assert.False(t, m.isReference("beforehand I tried this"))
	assert.False(t, m.isReference("hello"))
}

func TestMatcher_EmptyLexicon(t *testing.T) {
	m := compileLexicon(Lexicon{})

	c := m.continuation("and it also works", "", 0)
	assert.False(t, c.HasContinuationWord)
	assert.False(t, c.StartsWithReference)
	assert.False(t, m.isReference("you said"))
}

func TestDefaultRule(t *testing.T) {
	rule := DefaultRule{}

	assert.True(t, rule.Continues(Continuation{HasContinuationWord: true, Length: 200}))
	assert.True(t, rule.Continues(Continuation{StartsWithReference: true}))
	assert.True(t, rule.Continues(Continuation{HasFollowUp: true, Length: 49}))
	assert.False(t, rule.Continues(Continuation{HasFollowUp: true, Length: 50}))
	assert.False(t, rule.Continues(Continuation{Length: 10}))
}

func TestExprRule(t *testing.T) {
	rule, err := NewExprRule(`hasContinuationWord || (hasFollowUp && length < 80)`, nil)
	require.NoError(t, err)

	assert.True(t, rule.Continues(Continuation{HasFollowUp: true, Length: 70}))
	assert.False(t, rule.Continues(Continuation{StartsWithReference: true}))
	assert.Equal(t, `hasContinuationWord || (hasFollowUp && length < 80)`, rule.String())
}

func TestExprRule_GapAware(t *testing.T) {
	rule, err := NewExprRule(`gapSeconds < 30 || hasContinuationWord`, nil)
	require.NoError(t, err)

	assert.True(t, rule.Continues(Continuation{GapSeconds: 10}))
	assert.False(t, rule.Continues(Continuation{GapSeconds: 60}))
}

func TestNewExprRule_Invalid(t *testing.T) {
	_, err := NewExprRule(`length +`, nil)
	assert.Error(t, err)

	_, err = NewExprRule(`length`, nil)
	assert.Error(t, err, "non-boolean rules are rejected")
}
