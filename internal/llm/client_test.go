package llm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPacerFailsFastOverBudget(t *testing.T) {
	p := pacer{limit: 2}
	require.NoError(t, p.take())
	require.NoError(t, p.take())
	assert.Error(t, p.take(), "third call in the window exceeds the budget")
}

func TestPacerResetsAfterWindow(t *testing.T) {
	p := pacer{limit: 1}
	require.NoError(t, p.take())
	require.Error(t, p.take())

	p.resetAt = time.Now().Add(-time.Second)
	assert.NoError(t, p.take())
}

func TestDisabledClientRefusesCalls(t *testing.T) {
	var c *Client
	assert.False(t, c.Enabled())

	_, err := c.Complete(context.Background(), "system", "user", 10)
	assert.Error(t, err)
}
