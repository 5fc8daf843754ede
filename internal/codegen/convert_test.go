// File: internal/codegen/convert_test.go
package codegen

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestConvertCodePassesSourceAndFramework(t *testing.T) {
	llm := &mockLLM{response: "converted code"}

	out, err := ConvertCode(context.Background(), "native code", "selenium", llm, "corr-1", zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, "converted code", out)
	assert.Equal(t, 1, llm.calls)
	assert.Contains(t, llm.lastReq.UserPrompt, "native code")
	assert.Contains(t, llm.lastReq.UserPrompt, "selenium")
	assert.NotEmpty(t, llm.lastReq.SystemPrompt)
}

func TestConvertCodeErrorPropagatesUnchanged(t *testing.T) {
	sentinel := errors.New("quota exhausted")
	llm := &mockLLM{err: sentinel}

	_, err := ConvertCode(context.Background(), "code", "cypress", llm, "corr-2", zap.NewNop())
	require.ErrorIs(t, err, sentinel)
}

func TestStripCodeFences(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain text untouched", in: "page.click()", want: "page.click()"},
		{name: "fenced with language tag", in: "```python\npage.click()\n```", want: "page.click()"},
		{name: "fenced without tag", in: "```\ncode\n```", want: "code"},
		{name: "surrounding whitespace trimmed", in: "  \n```js\nx\n```\n", want: "x"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, stripCodeFences(tc.in))
		})
	}
}
