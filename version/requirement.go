package version

import "strings"

// Requirement constrains the versions of a named package.
//
// A conflict requirement ("!name-range") excludes the matching versions
// instead of restricting to them. A weak requirement ("~name-range") only
// applies once the package is pulled into a resolve by some non-weak
// requirement; on its own it never demands the package.
type Requirement struct {
	Name     string
	Range    Range
	Conflict bool
	Weak     bool
}

// ParseRequirement parses "[!|~]name[-range]" text, e.g. "foo-1.2+",
// "!bar-2", "~baz".
func ParseRequirement(text string) (Requirement, error) {
	var req Requirement
	rest := text
	switch {
	case strings.HasPrefix(rest, "!"):
		req.Conflict = true
		rest = rest[1:]
	case strings.HasPrefix(rest, "~"):
		req.Weak = true
		rest = rest[1:]
	}

	i := 0
	for i < len(rest) && isNameChar(rest[i], i == 0) {
		i++
	}
	if i == 0 {
		return Requirement{}, parseErr(text, rest, "expected package name")
	}
	req.Name = rest[:i]
	rest = rest[i:]

	switch {
	case rest == "":
		req.Range = Any()
	case rest[0] == '-':
		if len(rest) == 1 {
			return Requirement{}, parseErr(text, rest, "missing range after '-'")
		}
		r, err := ParseRange(rest[1:])
		if err != nil {
			return Requirement{}, err
		}
		req.Range = r
	default:
		return Requirement{}, parseErr(text, rest, "unexpected text after package name")
	}
	return req, nil
}

// MustParseRequirement is ParseRequirement for statically known inputs.
func MustParseRequirement(text string) Requirement {
	req, err := ParseRequirement(text)
	if err != nil {
		panic(err)
	}
	return req
}

// ParseRequirements parses each element of texts.
func ParseRequirements(texts []string) ([]Requirement, error) {
	reqs := make([]Requirement, 0, len(texts))
	for _, t := range texts {
		req, err := ParseRequirement(t)
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, req)
	}
	return reqs, nil
}

func isNameChar(c byte, first bool) bool {
	if isAlpha(c) {
		return true
	}
	return !first && c >= '0' && c <= '9'
}

// Admits reports whether the requirement allows version v, honoring the
// conflict polarity.
func (r Requirement) Admits(v Version) bool {
	if r.Conflict {
		return !r.Range.Contains(v)
	}
	return r.Range.Contains(v)
}

// String renders the canonical requirement text.
func (r Requirement) String() string {
	var b strings.Builder
	if r.Conflict {
		b.WriteByte('!')
	} else if r.Weak {
		b.WriteByte('~')
	}
	b.WriteString(r.Name)
	if !r.Range.IsAny() {
		b.WriteByte('-')
		b.WriteString(r.Range.String())
	}
	return b.String()
}
