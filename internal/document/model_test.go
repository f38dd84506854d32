package document

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseIDRoundTrips(t *testing.T) {
	id, err := ParseID("507f1f77bcf86cd799439011")
	require.NoError(t, err)
	require.Equal(t, "507f1f77bcf86cd799439011", id.Hex())

	_, err = ParseID("507f1f77bcf86cd79943901g")
	require.Error(t, err)
}

func TestValidObjectID(t *testing.T) {
	require.True(t, ValidObjectID("507f1f77bcf86cd799439011"))
	require.True(t, ValidObjectID("ffffffffffffffffffffffff"))

	require.False(t, ValidObjectID(""))
	// 23 chars, 25 chars, then non-hex at the right length
	require.False(t, ValidObjectID("507f1f77bcf86cd79943901"))
	require.False(t, ValidObjectID("507f1f77bcf86cd7994390111"))
	require.False(t, ValidObjectID("507f1f77bcf86cd79943901g"))
	require.False(t, ValidObjectID("not-an-id-at-all-really!"))
}

func TestNewBaseStampsTimestamps(t *testing.T) {
	before := time.Now().UTC()
	b := NewBase()
	after := time.Now().UTC()

	require.False(t, b.CreatedAt.Before(before))
	require.False(t, b.CreatedAt.After(after))
	require.Equal(t, b.CreatedAt, b.UpdatedAt)
	require.True(t, b.DocumentID().IsZero())
}

func TestTouchOnlyMovesUpdatedAt(t *testing.T) {
	b := NewBase()
	created := b.CreatedAt

	next := created.Add(time.Hour)
	b.Touch(next)
	require.Equal(t, created, b.CreatedAt)
	require.Equal(t, next, b.UpdatedAt)
}
