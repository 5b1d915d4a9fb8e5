// Package version implements the version, version range, and requirement
// algebra underlying package resolution.
//
// A version is a dot-separated sequence of alphanumeric tokens. Tokens
// compare by their maximal numeric and alphabetic runs: numeric runs compare
// numerically, alphabetic runs lexically, and a numeric run always outranks
// an alphabetic run in the same position. A trailing alphabetic run sorts
// below the bare prefix, giving pre-release semantics: 1.0.0beta < 1.0.0.
package version

import "strings"

// subtoken is one maximal run of digits or letters within a token.
type subtoken struct {
	num   uint64
	alpha string
	isNum bool
}

func (s subtoken) compare(o subtoken) int {
	if s.isNum != o.isNum {
		// Numeric runs sort after alphabetic runs.
		if s.isNum {
			return 1
		}
		return -1
	}
	if s.isNum {
		switch {
		case s.num < o.num:
			return -1
		case s.num > o.num:
			return 1
		}
		return 0
	}
	return strings.Compare(s.alpha, o.alpha)
}

type token []subtoken

func (t token) compare(o token) int {
	n := len(t)
	if len(o) < n {
		n = len(o)
	}
	for i := 0; i < n; i++ {
		if c := t[i].compare(o[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(t) == len(o):
		return 0
	case len(t) > len(o):
		// A purely alphabetic continuation marks a pre-release of the
		// shorter token; a numeric continuation extends past it.
		if !t[len(o)].isNum {
			return -1
		}
		return 1
	default:
		if !o[len(t)].isNum {
			return 1
		}
		return -1
	}
}

// Version is an immutable, totally ordered version identifier.
// The zero value is the infimum: it sorts below every parseable version.
type Version struct {
	raw  string
	toks []token
}

// Parse converts text like "1.2.0beta" into a Version.
func Parse(s string) (Version, error) {
	if s == "" {
		return Version{}, parseErr(s, s, "empty version")
	}
	v := Version{raw: s}
	start := 0
	for i := 0; i <= len(s); i++ {
		if i != len(s) && s[i] != '.' {
			continue
		}
		if i == start {
			return Version{}, parseErr(s, s[maxInt(start-1, 0):minInt(i+1, len(s))], "empty version token")
		}
		t, err := parseToken(s, s[start:i])
		if err != nil {
			return Version{}, err
		}
		v.toks = append(v.toks, t)
		start = i + 1
	}
	return v, nil
}

// MustParse is Parse for statically known inputs; it panics on error.
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

func parseToken(input, s string) (token, error) {
	var t token
	i := 0
	for i < len(s) {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
			var n uint64
			j := i
			for j < len(s) && s[j] >= '0' && s[j] <= '9' {
				n = n*10 + uint64(s[j]-'0')
				j++
			}
			t = append(t, subtoken{num: n, isNum: true})
			i = j
		case isAlpha(c):
			j := i
			for j < len(s) && isAlpha(s[j]) {
				j++
			}
			t = append(t, subtoken{alpha: s[i:j]})
			i = j
		default:
			return nil, parseErr(input, s[i:i+1], "illegal character in version token")
		}
	}
	return t, nil
}

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_'
}

// Compare returns -1, 0, or 1 as v sorts before, equal to, or after o.
func (v Version) Compare(o Version) int {
	n := len(v.toks)
	if len(o.toks) < n {
		n = len(o.toks)
	}
	for i := 0; i < n; i++ {
		if c := v.toks[i].compare(o.toks[i]); c != 0 {
			return c
		}
	}
	// A missing trailing token sorts below any present one: 1.2 < 1.2.0.
	switch {
	case len(v.toks) < len(o.toks):
		return -1
	case len(v.toks) > len(o.toks):
		return 1
	}
	return 0
}

// Compare returns -1, 0, or 1 ordering a before, equal to, or after b.
func Compare(a, b Version) int {
	return a.Compare(b)
}

func (v Version) String() string {
	return v.raw
}

// IsZero reports whether v is the zero (infimum) version.
func (v Version) IsZero() bool {
	return len(v.toks) == 0
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
