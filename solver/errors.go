package solver

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/bpabel/rez/version"
)

// solveFailure marks error types that are expected during search and drive
// backtracking rather than aborting the resolve.
type solveFailure interface {
	error
	solveFailure()
}

// traceError is implemented by failures that have a compact single-purpose
// form for the solver trace log.
type traceError interface {
	traceString() string
}

func (*noCandidatesFailure) solveFailure()         {}
func (*exhaustedFailure) solveFailure()            {}
func (*versionNotAllowedFailure) solveFailure()    {}
func (*disjointRequirementFailure) solveFailure()  {}
func (*constraintNotAllowedFailure) solveFailure() {}
func (*missingFamilyFailure) solveFailure()        {}

// noCandidatesFailure indicates a demanded package whose accumulated
// requirements admit no variant at all.
type noCandidatesFailure struct {
	name string
	deps []dependency
}

func (e *noCandidatesFailure) Error() string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "No variants of %s satisfy the requirements in force:", e.name)
	for _, d := range e.deps {
		fmt.Fprintf(&buf, "\n\t%s", d)
	}
	return buf.String()
}

func (e *noCandidatesFailure) traceString() string {
	var parts []string
	for _, d := range e.deps {
		parts = append(parts, d.String())
	}
	return fmt.Sprintf("%s has no candidates under {%s}", e.name, strings.Join(parts, "; "))
}

// exhaustedFailure indicates that every candidate of a package was tried
// and rejected; fails records why each one was eliminated.
type exhaustedFailure struct {
	name  string
	fails []failedCandidate
}

func (e *exhaustedFailure) Error() string {
	if len(e.fails) == 0 {
		return fmt.Sprintf("No versions could be found for package %q.", e.name)
	}
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Could not find any version of %s that met requirements:", e.name)
	for _, f := range e.fails {
		fmt.Fprintf(&buf, "\n\t%s: %s", f.v.Version, f.f.Error())
	}
	return buf.String()
}

func (e *exhaustedFailure) traceString() string {
	if len(e.fails) == 0 {
		return "no versions found"
	}
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "no versions of %s met requirements:", e.name)
	for _, f := range e.fails {
		if te, ok := f.f.(traceError); ok {
			fmt.Fprintf(&buf, "\n  %s: %s", f.v.Version, te.traceString())
		} else {
			fmt.Fprintf(&buf, "\n  %s: %s", f.v.Version, f.f.Error())
		}
	}
	return buf.String()
}

// versionNotAllowedFailure indicates a candidate rejected because the
// requirements in force on its package exclude its version.
type versionNotAllowedFailure struct {
	goal       atom
	failparent []dependency
	current    version.Range
}

func (e *versionNotAllowedFailure) Error() string {
	if len(e.failparent) == 1 {
		return fmt.Sprintf("Could not use %s, as it is not allowed by requirement %s.", e.goal, e.failparent[0])
	}
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Could not use %s, as it is not allowed by requirements from multiple sources:\n", e.goal)
	for _, f := range e.failparent {
		fmt.Fprintf(&buf, "\t%s\n", f)
	}
	return buf.String()
}

func (e *versionNotAllowedFailure) traceString() string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s not allowed by active range %s:", e.goal, e.current)
	for _, f := range e.failparent {
		fmt.Fprintf(&buf, "\n  %s", f)
	}
	return buf.String()
}

// disjointRequirementFailure indicates that a candidate's requirement on
// another package has no overlap with the requirements already in force on
// it.
type disjointRequirementFailure struct {
	goal      dependency
	failsib   []dependency
	nofailsib []dependency
	current   version.Range
}

func (e *disjointRequirementFailure) Error() string {
	if len(e.failsib) == 1 {
		return fmt.Sprintf(
			"Could not use %s, as its requirement %s has no overlap with existing requirement %s",
			e.goal.depender, e.goal.req, e.failsib[0])
	}
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Could not use %s, as its requirement %s has no overlap with the requirements in force:\n",
		e.goal.depender, e.goal.req)
	for _, d := range e.failsib {
		fmt.Fprintf(&buf, "\t%s\n", d)
	}
	return buf.String()
}

func (e *disjointRequirementFailure) traceString() string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "requirement %s on %s disjoint with other dependers:", e.goal.req, e.goal.req.Name)
	for _, d := range e.failsib {
		fmt.Fprintf(&buf, "\n  %s (no overlap)", d)
	}
	for _, d := range e.nofailsib {
		fmt.Fprintf(&buf, "\n  %s (some overlap)", d)
	}
	return buf.String()
}

// constraintNotAllowedFailure indicates a candidate whose requirement
// disallows the already-committed variant of another package.
type constraintNotAllowedFailure struct {
	goal dependency
	v    version.Version
}

func (e *constraintNotAllowedFailure) Error() string {
	return fmt.Sprintf(
		"Could not use %s, as its requirement %s does not allow the selected version %s of %s",
		e.goal.depender, e.goal.req, e.v, e.goal.req.Name)
}

func (e *constraintNotAllowedFailure) traceString() string {
	return fmt.Sprintf("%s requires %s, but %s is already selected at %s",
		e.goal.depender, e.goal.req, e.goal.req.Name, e.v)
}

// missingFamilyFailure indicates a candidate requiring a package family
// the repository does not know.
type missingFamilyFailure struct {
	goal dependency
}

func (e *missingFamilyFailure) Error() string {
	return fmt.Sprintf("Could not use %s, as required package %q could not be located.",
		e.goal.depender, e.goal.req.Name)
}

func (e *missingFamilyFailure) traceString() string {
	return fmt.Sprintf("required package %q not found", e.goal.req.Name)
}

// ConflictError is the terminal failure of a resolve: the search space was
// exhausted without a satisfying assignment. It carries the deepest
// conflict encountered and the variants that were selected when it
// occurred, so the mutually exclusive requirements can be identified.
type ConflictError struct {
	// Path lists the committed variants, in commit order, at the deepest
	// conflict.
	Path []string
	// Cause is the failure at that point.
	Cause error
}

func (e *ConflictError) Error() string {
	var buf bytes.Buffer
	buf.WriteString("The requirements cannot be satisfied.\n")
	if len(e.Path) > 0 {
		fmt.Fprintf(&buf, "Selected when the conflict surfaced: %s\n", strings.Join(e.Path, ", "))
	}
	buf.WriteString(e.Cause.Error())
	return buf.String()
}

func (e *ConflictError) Unwrap() error {
	return e.Cause
}

// AbortError indicates that a search budget or deadline expired before the
// search could finish. It does not imply unsatisfiability.
type AbortError struct {
	Reason    string
	Decisions int
}

func (e *AbortError) Error() string {
	return fmt.Sprintf("resolve aborted after %d decisions: %s", e.Decisions, e.Reason)
}
