package version

import "strings"

// span is one contiguous run of versions. A nil endpoint is unbounded on
// that side.
type span struct {
	lower, upper         *Version
	lowerIncl, upperIncl bool
}

// cmpLower orders spans by where they begin. A nil lower bound begins
// before everything; at equal versions an inclusive bound begins earlier.
func cmpLower(a, b span) int {
	switch {
	case a.lower == nil && b.lower == nil:
		return 0
	case a.lower == nil:
		return -1
	case b.lower == nil:
		return 1
	}
	if c := a.lower.Compare(*b.lower); c != 0 {
		return c
	}
	switch {
	case a.lowerIncl == b.lowerIncl:
		return 0
	case a.lowerIncl:
		return -1
	}
	return 1
}

// cmpUpper orders spans by where they end. A nil upper bound ends after
// everything; at equal versions an exclusive bound ends earlier.
func cmpUpper(a, b span) int {
	switch {
	case a.upper == nil && b.upper == nil:
		return 0
	case a.upper == nil:
		return 1
	case b.upper == nil:
		return -1
	}
	if c := a.upper.Compare(*b.upper); c != 0 {
		return c
	}
	switch {
	case a.upperIncl == b.upperIncl:
		return 0
	case a.upperIncl:
		return 1
	}
	return -1
}

func (s span) contains(v Version) bool {
	if s.lower != nil {
		c := v.Compare(*s.lower)
		if c < 0 || (c == 0 && !s.lowerIncl) {
			return false
		}
	}
	if s.upper != nil {
		c := v.Compare(*s.upper)
		if c > 0 || (c == 0 && !s.upperIncl) {
			return false
		}
	}
	return true
}

// empty reports whether the span can contain no version at all.
func (s span) empty() bool {
	if s.lower == nil || s.upper == nil {
		return false
	}
	c := s.lower.Compare(*s.upper)
	if c > 0 {
		return true
	}
	if c == 0 {
		return !(s.lowerIncl && s.upperIncl)
	}
	return false
}

// touches reports whether a and b overlap or are adjacent, i.e. whether
// their union is one contiguous span. Requires cmpLower(a, b) <= 0.
func touches(a, b span) bool {
	if a.upper == nil || b.lower == nil {
		return true
	}
	c := b.lower.Compare(*a.upper)
	if c < 0 {
		return true
	}
	if c > 0 {
		return false
	}
	// Bounds meet at one version; contiguous unless both sides exclude it.
	return a.upperIncl || b.lowerIncl
}

// Range is a set of versions held as disjoint spans in ascending order.
// The zero value is the empty set. Ranges are immutable once constructed.
type Range struct {
	spans []span
}

// Any returns the range matching every version.
func Any() Range {
	return Range{spans: []span{{}}}
}

// None returns the empty range.
func None() Range {
	return Range{}
}

// Exact returns the range matching only v.
func Exact(v Version) Range {
	return Range{spans: []span{{lower: &v, upper: &v, lowerIncl: true, upperIncl: true}}}
}

// AtLeast returns the range matching v and everything above it.
func AtLeast(v Version) Range {
	return Range{spans: []span{{lower: &v, lowerIncl: true}}}
}

func normalize(spans []span) Range {
	var live []span
	for _, s := range spans {
		if !s.empty() {
			live = append(live, s)
		}
	}
	if len(live) == 0 {
		return Range{}
	}
	// Insertion sort by lower bound; span counts are tiny in practice.
	for i := 1; i < len(live); i++ {
		for j := i; j > 0 && cmpLower(live[j], live[j-1]) < 0; j-- {
			live[j], live[j-1] = live[j-1], live[j]
		}
	}
	merged := []span{live[0]}
	for _, s := range live[1:] {
		last := &merged[len(merged)-1]
		if touches(*last, s) {
			if cmpUpper(s, *last) > 0 {
				last.upper, last.upperIncl = s.upper, s.upperIncl
			}
		} else {
			merged = append(merged, s)
		}
	}
	return Range{spans: merged}
}

// IsEmpty reports whether no version satisfies the range.
func (r Range) IsEmpty() bool {
	return len(r.spans) == 0
}

// IsAny reports whether every version satisfies the range.
func (r Range) IsAny() bool {
	return len(r.spans) == 1 && r.spans[0].lower == nil && r.spans[0].upper == nil
}

// Contains reports whether v is in the range.
func (r Range) Contains(v Version) bool {
	for _, s := range r.spans {
		if s.contains(v) {
			return true
		}
	}
	return false
}

// Intersect returns the set intersection of r and o.
func (r Range) Intersect(o Range) Range {
	var out []span
	for _, a := range r.spans {
		for _, b := range o.spans {
			s := span{lower: a.lower, lowerIncl: a.lowerIncl, upper: a.upper, upperIncl: a.upperIncl}
			if cmpLower(b, s) > 0 {
				s.lower, s.lowerIncl = b.lower, b.lowerIncl
			}
			if cmpUpper(b, s) < 0 {
				s.upper, s.upperIncl = b.upper, b.upperIncl
			}
			if !s.empty() {
				out = append(out, s)
			}
		}
	}
	return normalize(out)
}

// Union returns the set union of r and o.
func (r Range) Union(o Range) Range {
	all := make([]span, 0, len(r.spans)+len(o.spans))
	all = append(all, r.spans...)
	all = append(all, o.spans...)
	return normalize(all)
}

// complement returns every version not in r.
func (r Range) complement() Range {
	if len(r.spans) == 0 {
		return Any()
	}
	var out []span
	first := r.spans[0]
	if first.lower != nil {
		out = append(out, span{upper: first.lower, upperIncl: !first.lowerIncl})
	}
	for i := 0; i < len(r.spans)-1; i++ {
		a, b := r.spans[i], r.spans[i+1]
		out = append(out, span{
			lower: a.upper, lowerIncl: !a.upperIncl,
			upper: b.lower, upperIncl: !b.lowerIncl,
		})
	}
	last := r.spans[len(r.spans)-1]
	if last.upper != nil {
		out = append(out, span{lower: last.upper, lowerIncl: !last.upperIncl})
	}
	return normalize(out)
}

// Subtract returns the versions in r that are not in o. This is how a
// conflict requirement combines with a normal one.
func (r Range) Subtract(o Range) Range {
	return r.Intersect(o.complement())
}

// String renders the canonical textual form of the range, parseable by
// ParseRange. The any-range renders as the empty string.
func (r Range) String() string {
	if r.IsAny() {
		return ""
	}
	parts := make([]string, 0, len(r.spans))
	for _, s := range r.spans {
		parts = append(parts, s.String())
	}
	return strings.Join(parts, ",")
}

func (s span) String() string {
	switch {
	case s.lower == nil && s.upper == nil:
		return ""
	case s.lower == nil:
		if s.upperIncl {
			return "<=" + s.upper.String()
		}
		return "<" + s.upper.String()
	case s.upper == nil:
		if s.lowerIncl {
			return s.lower.String() + "+"
		}
		return ">" + s.lower.String()
	}
	if s.lowerIncl && s.upperIncl {
		if s.lower.Compare(*s.upper) == 0 {
			return s.lower.String()
		}
		return s.lower.String() + ".." + s.upper.String()
	}
	var b strings.Builder
	if s.lowerIncl {
		b.WriteString(s.lower.String())
		b.WriteByte('+')
	} else {
		b.WriteByte('>')
		b.WriteString(s.lower.String())
	}
	if s.upperIncl {
		b.WriteString("<=")
	} else {
		b.WriteString("<")
	}
	b.WriteString(s.upper.String())
	return b.String()
}

// ParseRange parses the compact range grammar: an exact version ("1.2.0"),
// a lower bound ("1.2+", ">1.2"), an upper bound ("<1.5", "<=1.5"), a span
// ("1.2+<1.5" half-open, "1.2..1.5" inclusive), or a comma-separated union
// of any of these. Empty text is the any-range.
func ParseRange(text string) (Range, error) {
	if strings.TrimSpace(text) == "" {
		return Any(), nil
	}
	var spans []span
	for _, term := range strings.Split(text, ",") {
		term = strings.TrimSpace(term)
		if term == "" {
			return Range{}, parseErr(text, term, "empty range term")
		}
		s, err := parseSpan(text, term)
		if err != nil {
			return Range{}, err
		}
		spans = append(spans, s)
	}
	return normalize(spans), nil
}

// MustParseRange is ParseRange for statically known inputs.
func MustParseRange(text string) Range {
	r, err := ParseRange(text)
	if err != nil {
		panic(err)
	}
	return r
}

func parseSpan(input, term string) (span, error) {
	var s span
	rest := term

	switch {
	case strings.HasPrefix(rest, ">="):
		v, tail, err := leadingVersion(input, rest[2:])
		if err != nil {
			return span{}, err
		}
		s.lower, s.lowerIncl = &v, true
		rest = tail
	case strings.HasPrefix(rest, ">"):
		v, tail, err := leadingVersion(input, rest[1:])
		if err != nil {
			return span{}, err
		}
		s.lower, s.lowerIncl = &v, false
		rest = tail
	case strings.HasPrefix(rest, "<"):
		// Pure upper bound; handled below.
	default:
		v, tail, err := leadingVersion(input, rest)
		if err != nil {
			return span{}, err
		}
		switch {
		case tail == "":
			// Exact version.
			s.lower, s.upper = &v, &v
			s.lowerIncl, s.upperIncl = true, true
			return s, nil
		case strings.HasPrefix(tail, ".."):
			u, err := Parse(tail[2:])
			if err != nil {
				return span{}, parseErr(input, tail[2:], "bad upper bound version")
			}
			s.lower, s.upper = &v, &u
			s.lowerIncl, s.upperIncl = true, true
			return s, nil
		case strings.HasPrefix(tail, "+"):
			s.lower, s.lowerIncl = &v, true
			rest = tail[1:]
		default:
			return span{}, parseErr(input, tail, "unexpected text after version")
		}
	}

	if rest == "" {
		return s, nil
	}
	incl := false
	switch {
	case strings.HasPrefix(rest, "<="):
		incl = true
		rest = rest[2:]
	case strings.HasPrefix(rest, "<"):
		rest = rest[1:]
	default:
		return span{}, parseErr(input, rest, "expected upper bound")
	}
	u, err := Parse(rest)
	if err != nil {
		return span{}, parseErr(input, rest, "bad upper bound version")
	}
	s.upper, s.upperIncl = &u, incl
	return s, nil
}

// leadingVersion splits s into its longest valid version prefix and the
// remaining text.
func leadingVersion(input, s string) (Version, string, error) {
	i := 0
	for i < len(s) {
		c := s[i]
		if c == '.' {
			// ".." begins an upper bound, a single "." continues the version.
			if i+1 < len(s) && s[i+1] == '.' {
				break
			}
			i++
			continue
		}
		if (c >= '0' && c <= '9') || isAlpha(c) {
			i++
			continue
		}
		break
	}
	v, err := Parse(s[:i])
	if err != nil {
		return Version{}, "", parseErr(input, s, "bad version")
	}
	return v, s[i:], nil
}
