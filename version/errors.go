package version

import "fmt"

// ParseError describes malformed version, range, or requirement text. Bad
// identifies the offending substring within Input.
type ParseError struct {
	Input string
	Bad   string
	Msg   string
}

func (e *ParseError) Error() string {
	if e.Bad != "" && e.Bad != e.Input {
		return fmt.Sprintf("cannot parse %q: %s at %q", e.Input, e.Msg, e.Bad)
	}
	return fmt.Sprintf("cannot parse %q: %s", e.Input, e.Msg)
}

func parseErr(input, bad, msg string) error {
	return &ParseError{Input: input, Bad: bad, Msg: msg}
}
