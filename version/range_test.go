package version

import "testing"

func TestParseRangeCanonical(t *testing.T) {
	cases := []struct {
		in, out string
	}{
		{"", ""},
		{"1.2.0", "1.2.0"},
		{"1.2+", "1.2+"},
		{">=1.2", "1.2+"},
		{">1.2", ">1.2"},
		{"<1.5", "<1.5"},
		{"<=1.5", "<=1.5"},
		{"1.2+<1.5", "1.2+<1.5"},
		{"1.2..1.5", "1.2..1.5"},
		{">1.2<=1.5", ">1.2<=1.5"},
		{"1.0,2.0", "1.0,2.0"},
		// Overlapping and adjacent terms collapse to canonical form.
		{"1.0+<2.0,1.5+<3.0", "1.0+<3.0"},
		{"1.0+<1.5,1.5+<2.0", "1.0+<2.0"},
		{"1.0..1.5,1.2", "1.0..1.5"},
		{"2.0,1.0", "1.0,2.0"},
		{"1.0+,<1.0", ""},
	}
	for _, c := range cases {
		r, err := ParseRange(c.in)
		if err != nil {
			t.Errorf("ParseRange(%q) failed: %s", c.in, err)
			continue
		}
		if got := r.String(); got != c.out {
			t.Errorf("ParseRange(%q).String() = %q, wanted %q", c.in, got, c.out)
		}
	}
}

func TestParseRangeErrors(t *testing.T) {
	bad := []string{",", "1.0,", "..", "1.0..", "..2.0", ">", ">=", "<", "1.0+<", "1.0%", "1.0+2.0"}
	for _, s := range bad {
		if _, err := ParseRange(s); err == nil {
			t.Errorf("ParseRange(%q) should have failed", s)
		} else if _, ok := err.(*ParseError); !ok {
			t.Errorf("ParseRange(%q) returned %T, wanted *ParseError", s, err)
		}
	}
}

func TestRangeContains(t *testing.T) {
	cases := []struct {
		rng string
		in  []string
		out []string
	}{
		{"1.2.0", []string{"1.2.0"}, []string{"1.2", "1.2.0beta", "1.2.1"}},
		{"1.2+", []string{"1.2", "1.2.0", "99"}, []string{"1.1", "1.2.0beta"}},
		{">1.2", []string{"1.2.0", "1.3"}, []string{"1.2", "1.1"}},
		{"<1.5", []string{"1.4.9", "0"}, []string{"1.5", "1.5.0", "2"}},
		{"1.2+<1.5", []string{"1.2", "1.4"}, []string{"1.1", "1.5"}},
		{"1.2..1.5", []string{"1.2", "1.5"}, []string{"1.5.0", "1.1"}},
		{"1.0,2.0", []string{"1.0", "2.0"}, []string{"1.5", "3.0"}},
	}
	for _, c := range cases {
		r := MustParseRange(c.rng)
		for _, s := range c.in {
			if !r.Contains(MustParse(s)) {
				t.Errorf("range %q should contain %q", c.rng, s)
			}
		}
		for _, s := range c.out {
			if r.Contains(MustParse(s)) {
				t.Errorf("range %q should not contain %q", c.rng, s)
			}
		}
	}
}

// probe versions exercised by the set-algebra property checks.
var probes = []string{
	"0", "0.5", "1.0", "1.0.0beta", "1.0.0", "1.2", "1.2.0", "1.3",
	"1.5", "2.0", "2.0.1", "3", "10.0",
}

func TestIntersectMatchesPointwise(t *testing.T) {
	ranges := []string{"", "1.0", "1.0+", "<2.0", "1.0+<2.0", "1.2..1.5", "1.0,2.0", ">1.0<=2.0"}
	for _, rs1 := range ranges {
		for _, rs2 := range ranges {
			r1, r2 := MustParseRange(rs1), MustParseRange(rs2)
			got := r1.Intersect(r2)
			for _, p := range probes {
				v := MustParse(p)
				want := r1.Contains(v) && r2.Contains(v)
				if got.Contains(v) != want {
					t.Errorf("(%q ∩ %q).Contains(%s) = %v, wanted %v", rs1, rs2, p, !want, want)
				}
			}
		}
	}
}

func TestUnionAndSubtractMatchPointwise(t *testing.T) {
	ranges := []string{"", "1.0", "1.0+", "<2.0", "1.0+<2.0", "1.2..1.5", "1.0,2.0"}
	for _, rs1 := range ranges {
		for _, rs2 := range ranges {
			r1, r2 := MustParseRange(rs1), MustParseRange(rs2)
			union, diff := r1.Union(r2), r1.Subtract(r2)
			for _, p := range probes {
				v := MustParse(p)
				if got, want := union.Contains(v), r1.Contains(v) || r2.Contains(v); got != want {
					t.Errorf("(%q ∪ %q).Contains(%s) = %v, wanted %v", rs1, rs2, p, got, want)
				}
				if got, want := diff.Contains(v), r1.Contains(v) && !r2.Contains(v); got != want {
					t.Errorf("(%q − %q).Contains(%s) = %v, wanted %v", rs1, rs2, p, got, want)
				}
			}
		}
	}
}

func TestEmptyIntersection(t *testing.T) {
	r := MustParseRange("1").Intersect(MustParseRange("2"))
	if !r.IsEmpty() {
		t.Errorf("1 ∩ 2 should be empty, got %q", r)
	}
	if MustParseRange("1.0+<2.0").Intersect(MustParseRange("2.0+")).IsEmpty() != true {
		t.Error("half-open upper bound should exclude 2.0")
	}
}
