package usecase

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRenderPrompt_DiffersOnlyAtQuestion(t *testing.T) {
	q1 := "What projects have you built?"
	q2 := "Where are you based?"

	p1, err := renderPrompt(q1)
	require.NoError(t, err)
	p2, err := renderPrompt(q2)
	require.NoError(t, err)

	i1 := strings.Index(p1, q1)
	i2 := strings.Index(p2, q2)
	require.Positive(t, i1)
	require.Equal(t, i1, i2)
	require.Equal(t, p1[:i1], p2[:i2])
	require.Equal(t, p1[i1+len(q1):], p2[i2+len(q2):])
}

func TestRenderPrompt_IncludesPersona(t *testing.T) {
	p, err := renderPrompt("Hi")
	require.NoError(t, err)
	require.Contains(t, p, "You are Muhammad Huzaifa")
	require.Contains(t, p, "https://japinsurancebrokers.com/")
	require.Contains(t, p, "https://netwitty.live")
	require.Contains(t, p, "Codeblib")
	require.Contains(t, p, "Rojrz Tech")
	require.Contains(t, p, "Full Stack Open")
}

func TestRenderPrompt_QuestionIsLiteral(t *testing.T) {
	q := "{{.Question}} <b>&</b> {{ end }}"
	p, err := renderPrompt(q)
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(p, "User's question:\n"+q+"\n"))
}

func TestBuildPromptMessages(t *testing.T) {
	msgs := buildPromptMessages("prompt text")
	require.Len(t, msgs, 1)
	require.Equal(t, "user", msgs[0].Role)
	require.Equal(t, "prompt text", msgs[0].Content)
}
