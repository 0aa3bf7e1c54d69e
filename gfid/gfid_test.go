package gfid

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewGeneratesDistinctNonNilIDs(t *testing.T) {
	a, b := New(), New()
	require.NotEqual(t, a, b)
	require.False(t, a.IsNil())
}

func TestParseStringRoundTrip(t *testing.T) {
	id := New()
	parsed, err := Parse(id.String())
	require.NoError(t, err)
	require.Equal(t, id, parsed)
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := Parse("not-a-gfid")
	require.Error(t, err)
}

func TestWellKnownConstants(t *testing.T) {
	require.NotEqual(t, Root, VirtualDir)
	require.False(t, Root.IsNil())
	require.True(t, Nil.IsNil())
}

func TestPathPlaceholder(t *testing.T) {
	id := MustParse("00000000-0000-0000-0000-000000000001")
	require.Equal(t, "<gfid:00000000-0000-0000-0000-000000000001>", id.PathPlaceholder())
}
