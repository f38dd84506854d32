package repository

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/docuvault/docuvault/internal/document"
)

func TestSetRegisterAndLookup(t *testing.T) {
	s := NewSet()
	repo := newVehicleRepo(t, vehicleRegistry(true))
	s.Register("vehicles", repo)

	got, ok := Lookup[document.Model](s, "vehicles")
	require.True(t, ok)
	require.Same(t, repo, got)

	_, ok = Lookup[document.Model](s, "missing")
	require.False(t, ok)
}
