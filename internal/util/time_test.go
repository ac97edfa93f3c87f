package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeFlexible(t *testing.T) {
	want := time.Date(2024, 4, 29, 9, 0, 0, 0, time.UTC)

	cases := []string{
		"2024-04-29T09:00:00Z",
		"2024-04-29T17:00:00+08:00",
		"2024-04-29T09:00:00.000Z",
		"2024-04-29 09:00:00",
		" 1714381200000 ",
	}
	for _, in := range cases {
		got, err := ParseTimeFlexible(in)
		require.NoError(t, err, in)
		assert.True(t, want.Equal(got), "%s parsed as %s", in, got)
		assert.Equal(t, time.UTC, got.Location())
	}

	day, err := ParseTimeFlexible("2024-04-29")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 4, 29, 0, 0, 0, 0, time.UTC), day)
}

func TestParseTimeFlexible_Invalid(t *testing.T) {
	for _, in := range []string{"", "yesterday", "29/04/2024"} {
		_, err := ParseTimeFlexible(in)
		assert.Error(t, err, in)
	}
}
