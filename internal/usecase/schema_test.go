package usecase

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeInput(t *testing.T) {
	in, err := DecodeInput([]byte(`{"question":"What do you do?"}`))
	require.NoError(t, err)
	require.Equal(t, GenerateResponseInput{Question: "What do you do?"}, in)

	in, err = DecodeInput([]byte(`{"question":""}`))
	require.NoError(t, err)
	require.Equal(t, "", in.Question)

	cases := []struct {
		raw    string
		reason string
	}{
		{raw: `{}`, reason: "missing_question"},
		{raw: `{"question":null}`, reason: "missing_question"},
		{raw: `{"question":5}`, reason: "malformed_input"},
		{raw: `{"question":"a","conversationId":"x"}`, reason: "malformed_input"},
		{raw: `not-json`, reason: "malformed_input"},
		{raw: ``, reason: "malformed_input"},
		{raw: `{"question":"a"} {}`, reason: "malformed_input"},
	}
	for _, tc := range cases {
		_, err := DecodeInput([]byte(tc.raw))
		expectFlowError(t, err, ErrorInvalidInput, tc.reason)
	}
}

func TestDecodeOutput(t *testing.T) {
	out, err := DecodeOutput("  {\"response\":\"hello\"}\n")
	require.NoError(t, err)
	require.Equal(t, "hello", out.Response)

	_, err = DecodeOutput(`{"answer":"hello"}`)
	expectFlowError(t, err, ErrorInvalidOutput, "malformed_output")

	_, err = DecodeOutput(`{}`)
	expectFlowError(t, err, ErrorInvalidOutput, "missing_response")
}
