package inventory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReserve(t *testing.T) {
	t.Parallel()

	item, err := NewItem("prod-1", 10, 2)
	require.NoError(t, err)

	require.NoError(t, item.Reserve(4))
	assert.Equal(t, 4, item.Reserved)
	assert.Equal(t, 6, item.Available())

	assert.ErrorIs(t, item.Reserve(7), ErrInsufficientStock)
	assert.Equal(t, 4, item.Reserved)

	assert.ErrorIs(t, item.Reserve(0), ErrInvalidQuantity)
}

func TestRelease(t *testing.T) {
	t.Parallel()

	item, err := NewItem("prod-1", 10, 2)
	require.NoError(t, err)
	require.NoError(t, item.Reserve(4))

	require.NoError(t, item.Release(3))
	assert.Equal(t, 1, item.Reserved)

	assert.ErrorIs(t, item.Release(2), ErrReservationUnderflow)
	assert.Equal(t, 1, item.Reserved)
}

func TestIsLowStock(t *testing.T) {
	t.Parallel()

	item, err := NewItem("prod-1", 5, 3)
	require.NoError(t, err)
	assert.False(t, item.IsLowStock())

	require.NoError(t, item.Reserve(2))
	assert.True(t, item.IsLowStock())
}
