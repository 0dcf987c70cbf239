package uuidutil

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	id, err := Parse("8b8b2d6e-3f65-4f4e-9a38-7f0a1b2c3d4e")
	require.NoError(t, err)
	assert.Equal(t, "8b8b2d6e-3f65-4f4e-9a38-7f0a1b2c3d4e", id.String())

	_, err = Parse("not-a-uuid")
	assert.Error(t, err)
}

func TestIsValid(t *testing.T) {
	assert.True(t, IsValid(uuid.New().String()))
	assert.False(t, IsValid(""))
	assert.False(t, IsValid("8b8b2d6e"))
}

func TestNew(t *testing.T) {
	assert.NotEqual(t, New(), New())
}
