package interp

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseNumber(t *testing.T) {
	cases := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"42", 42, true},
		{"  3.5 ", 3.5, true},
		{"-0.25", -0.25, true},
		{"$1,234.50", 1234.5, true},
		{"€99", 99, true},
		{"15%", 15, true},
		{"", 0, false},
		{"abc", 0, false},
		{"12abc", 0, false},
	}
	for _, c := range cases {
		got, ok := ParseNumber(c.in)
		require.Equal(t, c.ok, ok, "input %q", c.in)
		if ok {
			require.Equal(t, c.want, got, "input %q", c.in)
		}
	}
}

func TestCast_NullsOnFailure(t *testing.T) {
	require.Equal(t, int64(7), Cast("7", "integer"))
	require.Nil(t, Cast("seven", "integer"))

	require.Equal(t, 2.5, Cast("2.5", "float"))
	require.Nil(t, Cast("n/a", "float"))

	require.Equal(t, true, Cast("yes", "boolean"))
	require.Equal(t, false, Cast("0", "boolean"))
	require.Nil(t, Cast("maybe", "boolean"))

	require.Equal(t, "2024-03-01", Cast("2024-03-01", "date"))
	require.Equal(t, "2024-03-01", Cast("2024-03-01 10:30:00", "date"))
	require.Nil(t, Cast("not a date", "date"))

	require.Equal(t, "2024-03-01 10:30:00", Cast("2024-03-01 10:30:00", "datetime"))

	require.Equal(t, "12", Cast(12.0, "string"))
	require.Nil(t, Cast(nil, "integer"))
}

func TestStringOf(t *testing.T) {
	require.Equal(t, "", StringOf(nil))
	require.Equal(t, "10", StringOf(10.0))
	require.Equal(t, "10.5", StringOf(10.5))
	require.Equal(t, "true", StringOf(true))
	require.Equal(t, "x", StringOf("x"))
}

func TestBoolOf_Tokens(t *testing.T) {
	for _, s := range []string{"true", "T", "1", "Yes", "y"} {
		require.True(t, BoolOf(s), "token %q", s)
	}
	for _, s := range []string{"false", "F", "0", "No", "n", ""} {
		require.False(t, BoolOf(s), "token %q", s)
	}
	// Unrecognized non-empty strings fall back to truthiness.
	require.True(t, BoolOf("whatever"))
}
