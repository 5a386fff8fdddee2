package module

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseID(t *testing.T) {
	id, err := ParseID("trackball_right")
	require.NoError(t, err)
	assert.Equal(t, TrackballRight, id)

	id, err = ParseID("9")
	require.NoError(t, err)
	assert.Equal(t, ID(9), id)
	assert.Equal(t, "module(9)", id.String())
	assert.False(t, id.Known())
	assert.True(t, TrackballRight.Known())

	_, err = ParseID("09x")
	assert.Error(t, err)
	_, err = ParseID("300")
	assert.Error(t, err)
}
