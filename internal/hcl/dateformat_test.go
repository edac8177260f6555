package hcl

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFormatDate(t *testing.T) {
	t.Parallel()

	ts := time.Date(2026, time.March, 2, 15, 4, 5, 120*int(time.Millisecond), time.UTC)

	testCases := []struct {
		mask string
		want string
	}{
		{"yyyy-mm-dd", "2026-03-02"},
		{"yy/m/d", "26/3/2"},
		{"HH:MM:ss", "15:04:05"},
		{"h:MM TT", "3:04 PM"},
		{"dddd, mmmm dS", "Monday, March 2nd"},
		{"ddd mmm", "Mon Mar"},
		{"isoDate", "2026-03-02"},
		{"isoDateTime", "2026-03-02T15:04:05"},
		{"'built' yyyy", "built 2026"},
		{"l", "120"},
		{"UTC:HH", "15"},
	}

	for _, tc := range testCases {
		t.Run(tc.mask, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, FormatDate(ts, tc.mask))
		})
	}
}

func TestOrdinal(t *testing.T) {
	t.Parallel()

	require.Equal(t, "st", ordinal(1))
	require.Equal(t, "th", ordinal(11))
	require.Equal(t, "th", ordinal(12))
	require.Equal(t, "rd", ordinal(23))
	require.Equal(t, "nd", ordinal(22))
}
