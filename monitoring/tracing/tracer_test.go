package tracing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup(t *testing.T) {
	require.NoError(t, Setup("esperanza", "", 0.2, false))

	err := Setup("", "http://127.0.0.1:14268/api/traces", 0.2, true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "service name cannot be empty")

	require.NoError(t, Setup("esperanza", "http://127.0.0.1:14268/api/traces", 0.2, true))
	require.NoError(t, Setup("esperanza", "", 0.2, false))
}
