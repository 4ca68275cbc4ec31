package ident

import (
	"testing"
)

func TestQuote(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"amount", "amount"},
		{"order_id", "order_id"},
		{"a1", "a1"},
		{"1abc", `"1abc"`},
		{"unit price", `"unit price"`},
		{`he said "hi"`, `"he said ""hi"""`},
		{"", `""`},
	}
	for _, c := range cases {
		if got := Quote(c.in); got != c.want {
			t.Errorf("Quote(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestSoftenNumericComparisons(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"price > 100", "TRY_CAST(price AS DOUBLE) > 100"},
		{"qty <= 2.5", "TRY_CAST(qty AS DOUBLE) <= 2.5"},
		{"a = 1 AND b <> -3", "TRY_CAST(a AS DOUBLE) = 1 AND TRY_CAST(b AS DOUBLE) <> -3"},
		{`"unit price" < 10`, `TRY_CAST("unit price" AS DOUBLE) < 10`},
		// Column-vs-column comparisons are not softened.
		{"a > b", "a > b"},
		// String literals are not numeric literals.
		{"city = 'NY'", "city = 'NY'"},
	}
	for _, c := range cases {
		if got := SoftenNumericComparisons(c.in); got != c.want {
			t.Errorf("Soften(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestRewriteColumns_Quoted(t *testing.T) {
	got := RewriteColumns("unit price * qty", []string{"unit price", "qty"}, RewriteQuoted)
	want := `"unit price" * qty`
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestRewriteColumns_LongestFirst(t *testing.T) {
	// "price_total" must not be clobbered by the shorter "price".
	got := RewriteColumns("price_total - price", []string{"price", "price_total"}, RewriteAccessor)
	want := `num("price_total") - num("price")`
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestRewriteColumns_WholeWordOnly(t *testing.T) {
	got := RewriteColumns("priced + price", []string{"price"}, RewriteAccessor)
	want := `priced + num("price")`
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestRewriteColumns_SkipsExplicitAccessors(t *testing.T) {
	in := `num("price") * 2`
	if got := RewriteColumns(in, []string{"price"}, RewriteAccessor); got != in {
		t.Errorf("expression with explicit accessors must be untouched, got %q", got)
	}
}

func TestRewriteColumns_NoColumns(t *testing.T) {
	if got := RewriteColumns("a + b", nil, RewriteQuoted); got != "a + b" {
		t.Errorf("got %q", got)
	}
}
