package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildContainsQuestionAndContext(t *testing.T) {
	out, err := Build("What is the deadline?", "The deadline is May 1.")
	require.NoError(t, err)
	assert.Contains(t, out, "QUESTION:\nWhat is the deadline?")
	assert.Contains(t, out, "CONTEXT:\nThe deadline is May 1.")
	assert.Contains(t, out, "refrain from inventing answers")
}

func TestBuildPlaceholderInjectionIsInert(t *testing.T) {
	// Inputs that look like placeholder tokens must come through
	// verbatim, not trigger a second substitution.
	out, err := Build("does {context} matter?", "context holds {question} literally")
	require.NoError(t, err)
	assert.Contains(t, out, "does {context} matter?")
	assert.Contains(t, out, "context holds {question} literally")
}

func TestJoinContext(t *testing.T) {
	assert.Equal(t, "", JoinContext(nil))
	assert.Equal(t, "a", JoinContext([]string{"a"}))
	assert.Equal(t, "a\n\nb", JoinContext([]string{"a", "b"}))
}
