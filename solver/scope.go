package solver

import (
	"fmt"

	"github.com/bpabel/rez/repo"
	"github.com/bpabel/rez/version"
)

// atom is one concrete (package, variant) choice. The zero atom stands for
// the caller's top-level request when attributing requirements.
type atom struct {
	name    string
	variant *repo.Variant
}

var nilatom = atom{}

func (a atom) isRequest() bool {
	return a.variant == nil
}

func (a atom) String() string {
	if a.isRequest() {
		return "the request"
	}
	return a.variant.ID()
}

// dependency ties a requirement to the atom that declared it, for conflict
// attribution.
type dependency struct {
	depender atom
	req      version.Requirement
}

func (d dependency) String() string {
	return fmt.Sprintf("%s from %s", d.req, d.depender)
}

// scope is the per-package search state: every requirement applied so far,
// the merged allowed/blocked ranges they produce, and the candidate
// variants that survive them, in descending version order.
//
// Scopes are immutable. narrow returns a new value and leaves the receiver
// untouched, so backtracking is a pop-and-replace of prior snapshots rather
// than an undo log.
type scope struct {
	name string

	// fam is nil until the scope is demanded by a non-weak, non-conflict
	// requirement; a constraint-only scope has no candidates to compute.
	fam *repo.Family

	deps       []dependency
	allowed    version.Range
	blocked    version.Range
	candidates []*repo.Variant
}

func newScope(name string) *scope {
	return &scope{
		name:    name,
		allowed: version.Any(),
		blocked: version.None(),
	}
}

// narrow returns a copy of the scope further constrained by d, applying
// the polarity combination rule: normal ranges intersect the allowed set,
// conflict ranges extend the blocked set (which is subtracted, not
// intersected).
func (sc *scope) narrow(d dependency) *scope {
	ns := &scope{
		name:    sc.name,
		fam:     sc.fam,
		deps:    append(append([]dependency(nil), sc.deps...), d),
		allowed: sc.allowed,
		blocked: sc.blocked,
	}
	if d.req.Conflict {
		ns.blocked = ns.blocked.Union(d.req.Range)
	} else {
		ns.allowed = ns.allowed.Intersect(d.req.Range)
	}
	ns.refresh()
	return ns
}

// activate returns a copy of the scope bound to its family data, with
// candidates computed.
func (sc *scope) activate(fam *repo.Family) *scope {
	ns := &scope{
		name:    sc.name,
		fam:     fam,
		deps:    sc.deps,
		allowed: sc.allowed,
		blocked: sc.blocked,
	}
	ns.refresh()
	return ns
}

// effective is the set of versions the scope still admits.
func (sc *scope) effective() version.Range {
	return sc.allowed.Subtract(sc.blocked)
}

func (sc *scope) admits(v version.Version) bool {
	return sc.effective().Contains(v)
}

func (sc *scope) refresh() {
	if sc.fam == nil {
		sc.candidates = nil
		return
	}
	sc.candidates = sc.candidates[:0:0]
	it := sc.fam.IterVariants(sc.effective())
	for v, ok := it.Next(); ok; v, ok = it.Next() {
		sc.candidates = append(sc.candidates, v)
	}
}

// resolved reports whether exactly one candidate remains.
func (sc *scope) resolved() bool {
	return len(sc.candidates) == 1
}

// failed reports whether the scope is demanded but admits no variant.
func (sc *scope) failed() bool {
	return sc.fam != nil && len(sc.candidates) == 0
}
