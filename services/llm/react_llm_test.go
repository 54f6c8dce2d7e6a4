package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReactTool_CleansActionInput(t *testing.T) {
	inner := &fakeTool{result: "ok"}
	adapter := reactTool{inner: inner}

	cases := []struct{ input, want string }{
		{`Seattle`, "Seattle"},
		{`"Seattle"`, "Seattle"},
		{`'New York'`, "New York"},
		{`  "Dallas"  `, "Dallas"},
		{" Tokyo \n", "Tokyo"},
		{`"San Diego" `, "San Diego"},
	}
	for _, tc := range cases {
		_, err := adapter.Call(context.Background(), tc.input)
		require.NoError(t, err)
		assert.Equal(t, tc.want, inner.city, "input %q", tc.input)
	}
}

func TestReactTool_PassesThroughNameAndDescription(t *testing.T) {
	inner := &fakeTool{}
	adapter := reactTool{inner: inner}

	assert.Equal(t, inner.Name(), adapter.Name())
	assert.Equal(t, inner.Description(), adapter.Description())
}
