// Package repo defines the read-only package repository contract consumed
// by the solver, along with in-memory and filesystem-backed implementations.
package repo

import (
	"context"
	"fmt"
	"sort"

	"github.com/pkg/errors"

	"github.com/bpabel/rez/version"
)

// ErrNotFound indicates that a repository has no family with the requested
// name. It is distinct from a solver conflict.
var ErrNotFound = errors.New("no such package family")

// Variant is one buildable incarnation of a package version: the version,
// an index disambiguating siblings built with different dependency sets,
// and the variant's own requirements. Variants are immutable.
type Variant struct {
	Name     string
	Version  version.Version
	Index    int
	Requires []version.Requirement
}

// ID renders the conventional "name-version[index]" form.
func (v *Variant) ID() string {
	return fmt.Sprintf("%s-%s[%d]", v.Name, v.Version, v.Index)
}

// Family holds every known variant of one package name, in descending
// version order (ascending index within a version), so the first match for
// a range is the latest satisfying variant.
type Family struct {
	Name     string
	Variants []*Variant
}

// NewFamily sorts variants into canonical order and returns the family.
func NewFamily(name string, variants []*Variant) *Family {
	vs := make([]*Variant, len(variants))
	copy(vs, variants)
	sort.SliceStable(vs, func(i, j int) bool {
		if c := vs[i].Version.Compare(vs[j].Version); c != 0 {
			return c > 0
		}
		return vs[i].Index < vs[j].Index
	})
	return &Family{Name: name, Variants: vs}
}

// IterVariants returns a restartable iterator over the family's variants
// matching rng, in descending version order.
func (f *Family) IterVariants(rng version.Range) *VariantIter {
	return &VariantIter{fam: f, rng: rng}
}

// VariantIter lazily walks a family's variants within a range.
type VariantIter struct {
	fam *Family
	rng version.Range
	pos int
}

// Next returns the next matching variant, or false when exhausted.
func (it *VariantIter) Next() (*Variant, bool) {
	for it.pos < len(it.fam.Variants) {
		v := it.fam.Variants[it.pos]
		it.pos++
		if it.rng.Contains(v.Version) {
			return v, true
		}
	}
	return nil, false
}

// Reset rewinds the iterator to the first matching variant.
func (it *VariantIter) Reset() {
	it.pos = 0
}

// Repository is the read-only lookup contract the solver consumes. Family
// data returned for a name must be stable for the lifetime of one resolve.
type Repository interface {
	// Family returns the named package family, or an error wrapping
	// ErrNotFound when the repository does not know the name.
	Family(ctx context.Context, name string) (*Family, error)
	Close() error
}

// MemRepository is an immutable in-memory Repository, useful for tests and
// for embedding a fixed package set.
type MemRepository struct {
	families map[string]*Family
}

// NewMemRepository groups variants into families and returns the
// repository.
func NewMemRepository(variants ...*Variant) *MemRepository {
	byName := make(map[string][]*Variant)
	for _, v := range variants {
		byName[v.Name] = append(byName[v.Name], v)
	}
	fams := make(map[string]*Family, len(byName))
	for name, vs := range byName {
		fams[name] = NewFamily(name, vs)
	}
	return &MemRepository{families: fams}
}

// Family implements Repository.
func (m *MemRepository) Family(_ context.Context, name string) (*Family, error) {
	f, ok := m.families[name]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "family %q", name)
	}
	return f, nil
}

// Close implements Repository.
func (m *MemRepository) Close() error { return nil }

// Stack queries several repositories in search-path order. The first
// repository that knows a family wins; later repositories never extend an
// earlier family.
type Stack struct {
	repos []Repository
}

// NewStack returns a Stack over repos, highest priority first.
func NewStack(repos ...Repository) *Stack {
	return &Stack{repos: repos}
}

// Family implements Repository.
func (s *Stack) Family(ctx context.Context, name string) (*Family, error) {
	for _, r := range s.repos {
		f, err := r.Family(ctx, name)
		if err == nil {
			return f, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}
	return nil, errors.Wrapf(ErrNotFound, "family %q", name)
}

// Close closes every underlying repository, returning the first error.
func (s *Stack) Close() error {
	var first error
	for _, r := range s.repos {
		if err := r.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
