package solver

import (
	"sort"
	"time"

	"github.com/bpabel/rez/repo"
)

// Package is one resolved entry in a Solution.
type Package struct {
	Name    string
	Variant *repo.Variant
}

// Solution is the output of a successful resolve: one variant per
// demanded package, ordered so that every package appears after the
// packages it requires, modulo cycles.
type Solution struct {
	// ID uniquely identifies the resolve that produced this solution.
	ID string
	// Timestamp is when the resolve began.
	Timestamp time.Time

	// Attempts counts the times backtracking restarted the search.
	Attempts int
	// Decisions counts atoms committed over the whole search.
	Decisions int

	Packages []Package
}

func (s *Solver) solution() *Solution {
	return &Solution{
		ID:        s.id,
		Timestamp: s.start,
		Attempts:  s.attempts,
		Decisions: s.ndecision,
		Packages:  s.dependencyOrder(),
	}
}

// dependencyOrder topologically sorts the committed atoms so dependencies
// precede their dependers. Among packages that are simultaneously ready,
// the lexicographically smallest name goes first, which makes the output
// deterministic. Cycles are broken by releasing the smallest remaining
// name, so cyclic solutions still yield a stable order.
func (s *Solver) dependencyOrder() []Package {
	byName := make(map[string]atom, len(s.sel.atoms))
	indeg := make(map[string]int, len(s.sel.atoms))
	rdeps := make(map[string][]string)
	for _, a := range s.sel.atoms {
		byName[a.name] = a
		indeg[a.name] = 0
	}
	for _, a := range s.sel.atoms {
		for _, req := range a.variant.Requires {
			if req.Conflict {
				continue
			}
			if _, in := byName[req.Name]; !in {
				// Weak requirement on a package nothing demanded.
				continue
			}
			indeg[a.name]++
			rdeps[req.Name] = append(rdeps[req.Name], a.name)
		}
	}

	var ready []string
	for n, d := range indeg {
		if d == 0 {
			ready = append(ready, n)
		}
	}
	sort.Strings(ready)

	out := make([]Package, 0, len(byName))
	emit := func(n string) {
		a := byName[n]
		delete(indeg, n)
		out = append(out, Package{Name: n, Variant: a.variant})
		for _, dep := range rdeps[n] {
			if d, in := indeg[dep]; in {
				indeg[dep] = d - 1
				if d-1 == 0 {
					ready = append(ready, dep)
					sort.Strings(ready)
				}
			}
		}
	}

	for len(out) < len(byName) {
		if len(ready) == 0 {
			// Cycle. Release the smallest remaining name to break it.
			rem := make([]string, 0, len(indeg))
			for n := range indeg {
				rem = append(rem, n)
			}
			sort.Strings(rem)
			ready = append(ready, rem[0])
		}
		n := ready[0]
		ready = ready[1:]
		if _, in := indeg[n]; !in {
			continue
		}
		emit(n)
	}
	return out
}
