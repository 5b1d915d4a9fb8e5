// Package rez resolves requested packages, each constrained by a version
// range, into a consistent set of package variants, and materializes the
// result as a serializable resolved context.
package rez

import (
	"encoding/json"
	"time"

	"github.com/bpabel/rez/solver"
	"github.com/bpabel/rez/version"
)

// FormatVersion is the serialized context format this build reads and
// writes. Deserialization fails closed on any other value.
const FormatVersion = 1

// Status is the terminal state of a resolve.
type Status string

const (
	// StatusSolved means every package was assigned a variant.
	StatusSolved Status = "solved"
	// StatusFailed means the requirements are unsatisfiable.
	StatusFailed Status = "failed"
	// StatusAborted means a search budget or deadline expired first.
	StatusAborted Status = "aborted"
)

// ContextPackage is one resolved entry: a package name pinned to an exact
// version and variant index.
type ContextPackage struct {
	Name    string
	Version version.Version
	Index   int
	// Requires lets downstream consumers rebuild the dependency graph
	// without repository access.
	Requires []version.Requirement
}

// Context is the immutable output of a resolve. Packages are in dependency
// order: a package never precedes one of its own requirements, except
// within requirement cycles. A Context stays valid even if the repository
// it was resolved against is later mutated.
type Context struct {
	// ID identifies the resolve that produced this context.
	ID string
	// Timestamp is the instant the search began, stamping the point in
	// time "latest" was evaluated at.
	Timestamp time.Time
	Status    Status

	Packages []ContextPackage

	// Failure holds the human-readable conflict chain or abort reason when
	// Status is not StatusSolved.
	Failure string
}

// NewContext builds a solved Context from a solver Solution.
func NewContext(sol *solver.Solution) *Context {
	c := &Context{
		ID:        sol.ID,
		Timestamp: sol.Timestamp,
		Status:    StatusSolved,
		Packages:  make([]ContextPackage, 0, len(sol.Packages)),
	}
	for _, p := range sol.Packages {
		c.Packages = append(c.Packages, ContextPackage{
			Name:     p.Name,
			Version:  p.Variant.Version,
			Index:    p.Variant.Index,
			Requires: p.Variant.Requires,
		})
	}
	return c
}

// Succeeded reports whether the resolve found a satisfying assignment.
func (c *Context) Succeeded() bool {
	return c.Status == StatusSolved
}

// rawContext is the wire form. Unknown fields in stored contexts are
// ignored on read, so later writers can extend the record.
type rawContext struct {
	Format    int          `json:"format"`
	ID        string       `json:"id"`
	Timestamp int64        `json:"timestamp"` // unix nanoseconds
	Status    string       `json:"status"`
	Packages  []rawPackage `json:"packages"`
	Failure   string       `json:"failure,omitempty"`
}

type rawPackage struct {
	Name     string   `json:"name"`
	Version  string   `json:"version"`
	Index    int      `json:"index"`
	Requires []string `json:"requires,omitempty"`
}

// Serialize renders the context as a stable byte form. Serializing the same
// context twice yields identical bytes.
func (c *Context) Serialize() ([]byte, error) {
	raw := rawContext{
		Format:    FormatVersion,
		ID:        c.ID,
		Timestamp: c.Timestamp.UnixNano(),
		Status:    string(c.Status),
		Failure:   c.Failure,
	}
	for _, p := range c.Packages {
		rp := rawPackage{
			Name:    p.Name,
			Version: p.Version.String(),
			Index:   p.Index,
		}
		for _, req := range p.Requires {
			rp.Requires = append(rp.Requires, req.String())
		}
		raw.Packages = append(raw.Packages, rp)
	}
	return json.Marshal(raw)
}

// Deserialize restores a context from its serialized form. An unrecognized
// format version fails with a *version.ParseError; the package list,
// order, and timestamp round-trip exactly.
func Deserialize(data []byte) (*Context, error) {
	var raw rawContext
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &version.ParseError{Input: "context data", Msg: err.Error()}
	}
	if raw.Format != FormatVersion {
		return nil, &version.ParseError{
			Input: "context data",
			Msg:   "unsupported context format version",
		}
	}
	c := &Context{
		ID:        raw.ID,
		Timestamp: time.Unix(0, raw.Timestamp),
		Status:    Status(raw.Status),
		Failure:   raw.Failure,
	}
	for _, rp := range raw.Packages {
		v, err := version.Parse(rp.Version)
		if err != nil {
			return nil, err
		}
		reqs, err := version.ParseRequirements(rp.Requires)
		if err != nil {
			return nil, err
		}
		c.Packages = append(c.Packages, ContextPackage{
			Name:     rp.Name,
			Version:  v,
			Index:    rp.Index,
			Requires: reqs,
		})
	}
	return c, nil
}
