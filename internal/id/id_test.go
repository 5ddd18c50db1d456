package id

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	a, err := Generate("avatar")
	require.NoError(t, err)
	b, err := Generate("avatar")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(a, "avatar-"))
	assert.Len(t, a, len("avatar-")+21)
	assert.NotEqual(t, a, b)
}
