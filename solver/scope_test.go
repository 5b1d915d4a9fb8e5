package solver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bpabel/rez/repo"
	"github.com/bpabel/rez/version"
)

func dep(t *testing.T, req string) dependency {
	t.Helper()
	r, err := version.ParseRequirement(req)
	require.NoError(t, err)
	return dependency{req: r}
}

func TestScopeNarrowIsImmutable(t *testing.T) {
	sc := newScope("foo")
	ns := sc.narrow(dep(t, "foo->=1<2"))
	assert.True(t, sc.effective().IsAny())
	assert.False(t, ns.effective().IsAny())
	assert.Len(t, sc.deps, 0)
	assert.Len(t, ns.deps, 1)
}

func TestScopeConflictSubtracts(t *testing.T) {
	sc := newScope("foo").
		narrow(dep(t, "foo->=1<3")).
		narrow(dep(t, "!foo-2.0"))
	assert.True(t, sc.admits(version.MustParse("1.5")))
	assert.False(t, sc.admits(version.MustParse("2.0")))
	assert.True(t, sc.admits(version.MustParse("2.1")))
}

func TestScopeCandidatesFollowNarrowing(t *testing.T) {
	fam := repo.NewFamily("foo", []*repo.Variant{
		{Name: "foo", Version: version.MustParse("1.0")},
		{Name: "foo", Version: version.MustParse("2.0")},
		{Name: "foo", Version: version.MustParse("3.0")},
	})
	sc := newScope("foo").activate(fam)
	require.Len(t, sc.candidates, 3)
	assert.Equal(t, "3.0", sc.candidates[0].Version.String())

	ns := sc.narrow(dep(t, "foo-<3"))
	assert.Len(t, ns.candidates, 2)
	assert.Equal(t, "2.0", ns.candidates[0].Version.String())
	// The original scope is untouched.
	assert.Len(t, sc.candidates, 3)
}

func TestScopeFailed(t *testing.T) {
	fam := repo.NewFamily("foo", []*repo.Variant{
		{Name: "foo", Version: version.MustParse("1.0")},
	})
	sc := newScope("foo").activate(fam)
	assert.False(t, sc.failed())
	ns := sc.narrow(dep(t, "foo->=2"))
	assert.True(t, ns.failed())
	// An undemanded scope never reports failure, even when empty.
	empty := newScope("bar").narrow(dep(t, "bar->=1<1"))
	assert.False(t, empty.failed())
}
