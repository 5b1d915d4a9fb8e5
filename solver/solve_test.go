package solver

import (
	"context"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bpabel/rez/repo"
	"github.com/bpabel/rez/version"
)

// mkVariant parses "name-version" or "name-version[idx]" plus a
// space-separated requirement list into a Variant.
func mkVariant(t *testing.T, key, reqs string) *repo.Variant {
	t.Helper()
	idx := 0
	if i := strings.IndexByte(key, '['); i >= 0 {
		n, err := strconv.Atoi(strings.TrimSuffix(key[i+1:], "]"))
		require.NoError(t, err)
		idx = n
		key = key[:i]
	}
	name, ver, ok := strings.Cut(key, "-")
	require.True(t, ok, "bad variant key %q", key)
	var rl []version.Requirement
	if reqs != "" {
		var err error
		rl, err = version.ParseRequirements(strings.Fields(reqs))
		require.NoError(t, err)
	}
	return &repo.Variant{
		Name:     name,
		Version:  version.MustParse(ver),
		Index:    idx,
		Requires: rl,
	}
}

func mkRepo(t *testing.T, pkgs map[string]string) *repo.MemRepository {
	t.Helper()
	var vs []*repo.Variant
	for key, reqs := range pkgs {
		vs = append(vs, mkVariant(t, key, reqs))
	}
	return repo.NewMemRepository(vs...)
}

func solveFixture(t *testing.T, pkgs map[string]string, request string, opts Options) (*Solution, error) {
	t.Helper()
	reqs, err := version.ParseRequirements(strings.Fields(request))
	require.NoError(t, err)
	lg := logrus.New()
	lg.SetLevel(logrus.PanicLevel)
	s := New(mkRepo(t, pkgs), lg, opts)
	return s.Solve(context.Background(), reqs)
}

func solutionIDs(sol *Solution) []string {
	ids := make([]string, 0, len(sol.Packages))
	for _, p := range sol.Packages {
		ids = append(ids, p.Variant.ID())
	}
	return ids
}

func TestSolvePicksHighestVersion(t *testing.T) {
	sol, err := solveFixture(t, map[string]string{
		"foo-1.0.0": "",
		"foo-1.5.2": "",
		"foo-2.0":   "",
	}, "foo->=1", Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"foo-2.0[0]"}, solutionIDs(sol))
}

func TestSolveRangeExcludesHighest(t *testing.T) {
	sol, err := solveFixture(t, map[string]string{
		"foo-1.0.0": "",
		"foo-1.5.2": "",
		"foo-2.0":   "",
	}, "foo->=1<2", Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"foo-1.5.2[0]"}, solutionIDs(sol))
}

func TestSolveTransitiveOrder(t *testing.T) {
	sol, err := solveFixture(t, map[string]string{
		"app-1.0": "lib->=1 util->=1",
		"lib-1.2": "util->=1",
		"util-1.0": "",
	}, "app->=1", Options{})
	require.NoError(t, err)
	// Dependencies come before their dependers.
	assert.Equal(t, []string{"util-1.0[0]", "lib-1.2[0]", "app-1.0[0]"}, solutionIDs(sol))
}

func TestSolveBacktracksToOlderVersion(t *testing.T) {
	// The newest foo wants the newest bar, but baz pins bar down, so the
	// solver has to retreat to foo 1.0.
	sol, err := solveFixture(t, map[string]string{
		"foo-2.0": "bar->=2",
		"foo-1.0": "bar->=1<2",
		"bar-2.0": "",
		"bar-1.0": "",
		"baz-1.0": "bar->=1<2",
	}, "foo->=1 baz->=1", Options{})
	require.NoError(t, err)
	ids := solutionIDs(sol)
	assert.Contains(t, ids, "foo-1.0[0]")
	assert.Contains(t, ids, "bar-1.0[0]")
	assert.Contains(t, ids, "baz-1.0[0]")
	assert.Greater(t, sol.Attempts, 0)
}

func TestSolveDisjointExactVersions(t *testing.T) {
	_, err := solveFixture(t, map[string]string{
		"foo-1.0.0": "",
		"foo-2.0.0": "",
		"dep-1.0":   "foo-2.0.0",
	}, "foo-1.0.0 dep->=1", Options{})
	require.Error(t, err)
	var ce *ConflictError
	require.True(t, errors.As(err, &ce))
	// Both irreconcilable requirements are named in the report.
	assert.Contains(t, ce.Error(), "foo-1.0.0")
	assert.Contains(t, ce.Error(), "foo-2.0.0")
}

func TestSolveConflictRequirementCarvesRange(t *testing.T) {
	// !bar-2.0 removes only 2.0; 2.1 survives the subtraction.
	sol, err := solveFixture(t, map[string]string{
		"foo-1.0": "bar->=2 !bar-2.0",
		"bar-2.0": "",
		"bar-2.1": "",
	}, "foo->=1", Options{})
	require.NoError(t, err)
	assert.Contains(t, solutionIDs(sol), "bar-2.1[0]")
}

func TestSolveConflictRequirementUnsatisfiable(t *testing.T) {
	_, err := solveFixture(t, map[string]string{
		"foo-1.0": "!bar->=1",
		"baz-1.0": "bar->=1",
		"bar-1.0": "",
		"bar-2.0": "",
	}, "foo->=1 baz->=1", Options{})
	require.Error(t, err)
	var ce *ConflictError
	require.True(t, errors.As(err, &ce))
}

func TestSolveWeakIgnoredWhenUndemanded(t *testing.T) {
	// Nothing demands bar, so the weak requirement leaves it out entirely.
	sol, err := solveFixture(t, map[string]string{
		"foo-1.0": "~bar->=2",
		"bar-1.0": "",
		"bar-2.0": "",
	}, "foo->=1", Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"foo-1.0[0]"}, solutionIDs(sol))
}

func TestSolveWeakAppliedWhenDemanded(t *testing.T) {
	sol, err := solveFixture(t, map[string]string{
		"foo-1.0": "~bar->=1<2",
		"baz-1.0": "bar->=1",
		"bar-1.0": "",
		"bar-2.0": "",
	}, "foo->=1 baz->=1", Options{})
	require.NoError(t, err)
	assert.Contains(t, solutionIDs(sol), "bar-1.0[0]")
}

func TestSolveWeakFoldedAtDemandTime(t *testing.T) {
	// The weak requirement arrives before anything demands bar; it must
	// still bite once baz pulls bar in.
	sol, err := solveFixture(t, map[string]string{
		"aaa-1.0": "~bar->=1<2",
		"zzz-1.0": "bar->=1",
		"bar-1.0": "",
		"bar-2.0": "",
	}, "aaa->=1 zzz->=1", Options{})
	require.NoError(t, err)
	assert.Contains(t, solutionIDs(sol), "bar-1.0[0]")
}

func TestSolveConflictAppliesBeforeDemand(t *testing.T) {
	// The conflict on bar lands before anything demands bar; it must still
	// carve 2.0 out of the candidate set once baz pulls bar in.
	sol, err := solveFixture(t, map[string]string{
		"foo-1.0": "!bar-2.0",
		"baz-1.0": "bar->=1",
		"bar-1.0": "",
		"bar-2.0": "",
	}, "foo->=1 baz->=1", Options{})
	require.NoError(t, err)
	assert.Contains(t, solutionIDs(sol), "bar-1.0[0]")
}

func TestSolveCycle(t *testing.T) {
	sol, err := solveFixture(t, map[string]string{
		"ping-1.0": "pong->=1",
		"pong-1.0": "ping->=1",
	}, "ping->=1", Options{})
	require.NoError(t, err)
	// Cyclic but satisfiable; ordering falls back to name order.
	assert.Equal(t, []string{"ping-1.0[0]", "pong-1.0[0]"}, solutionIDs(sol))
}

func TestSolveCycleUnsatisfiable(t *testing.T) {
	_, err := solveFixture(t, map[string]string{
		"ping-1.0": "pong->=2",
		"pong-1.0": "ping->=1",
	}, "ping->=1", Options{})
	require.Error(t, err)
	var ce *ConflictError
	require.True(t, errors.As(err, &ce))
}

func TestSolveUnknownTopLevel(t *testing.T) {
	_, err := solveFixture(t, map[string]string{
		"foo-1.0": "",
	}, "nosuchpkg", Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, repo.ErrNotFound))
}

// faultyRepo fails Family lookups for one name with a non-NotFound error,
// standing in for an I/O failure in the backing store.
type faultyRepo struct {
	*repo.MemRepository
	badName string
	err     error
}

func (f *faultyRepo) Family(ctx context.Context, name string) (*repo.Family, error) {
	if name == f.badName {
		return nil, f.err
	}
	return f.MemRepository.Family(ctx, name)
}

func TestSolveRepositoryErrorDuringBacktrack(t *testing.T) {
	// foo commits at 2.0, then pinner's conflict forces a retreat to
	// foo 1.0, whose requirement on evil hits a repository I/O error mid
	// backtrack. That error must come back unchanged, not be folded into
	// an unsatisfiability report.
	diskErr := errors.New("disk read failed")
	rp := &faultyRepo{
		MemRepository: mkRepo(t, map[string]string{
			"foo-2.0":    "pinner->=1",
			"foo-1.0":    "evil->=1",
			"pinner-1.0": "!foo-2.0",
		}),
		badName: "evil",
		err:     diskErr,
	}
	reqs, err := version.ParseRequirements([]string{"foo->=1"})
	require.NoError(t, err)
	lg := logrus.New()
	lg.SetLevel(logrus.PanicLevel)
	s := New(rp, lg, Options{})

	_, err = s.Solve(context.Background(), reqs)
	require.Error(t, err)
	assert.True(t, errors.Is(err, diskErr))
	var ce *ConflictError
	assert.False(t, errors.As(err, &ce))
}

func TestSolveWeakReopensCommittedScope(t *testing.T) {
	// bar and zzz tie on candidate count, so bar commits first at 2.0.
	// The weak requirement then arrives against an already committed bar
	// and must re-open it through backtracking, landing on 1.0.
	sol, err := solveFixture(t, map[string]string{
		"bar-1.0": "",
		"bar-2.0": "",
		"zzz-1.0": "~bar->=1<2",
		"zzz-2.0": "~bar->=1<2",
	}, "bar zzz", Options{})
	require.NoError(t, err)
	assert.Contains(t, solutionIDs(sol), "bar-1.0[0]")
	assert.Contains(t, solutionIDs(sol), "zzz-2.0[0]")
	assert.Greater(t, sol.Attempts, 0)
}

func TestSolveUnknownTransitiveBacktracks(t *testing.T) {
	// foo 2.0 requires a package that does not exist anywhere; the solver
	// should treat that as an ordinary rejection and fall back to 1.0.
	sol, err := solveFixture(t, map[string]string{
		"foo-2.0": "ghost->=1",
		"foo-1.0": "",
	}, "foo->=1", Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"foo-1.0[0]"}, solutionIDs(sol))
}

func TestSolveVariantIndexOrder(t *testing.T) {
	// Index 0 is preferred, but its requirements cannot be met, so the
	// solver moves on to index 1 of the same version.
	sol, err := solveFixture(t, map[string]string{
		"foo-1.0[0]": "bar->=9",
		"foo-1.0[1]": "",
	}, "foo->=1", Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"foo-1.0[1]"}, solutionIDs(sol))
}

func TestSolveVariantPrefersLowerIndex(t *testing.T) {
	sol, err := solveFixture(t, map[string]string{
		"foo-1.0[0]": "",
		"foo-1.0[1]": "",
	}, "foo->=1", Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"foo-1.0[0]"}, solutionIDs(sol))
}

func TestSolveAbortMaxDecisions(t *testing.T) {
	_, err := solveFixture(t, map[string]string{
		"a-1.0": "b->=1",
		"b-1.0": "c->=1",
		"c-1.0": "d->=1",
		"d-1.0": "",
	}, "a->=1", Options{MaxDecisions: 2})
	require.Error(t, err)
	var ae *AbortError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, 2, ae.Decisions)
}

func TestSolveAbortContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	reqs, err := version.ParseRequirements([]string{"foo->=1"})
	require.NoError(t, err)
	lg := logrus.New()
	lg.SetLevel(logrus.PanicLevel)
	s := New(mkRepo(t, map[string]string{"foo-1.0": ""}), lg, Options{})
	_, err = s.Solve(ctx, reqs)
	require.Error(t, err)
	var ae *AbortError
	require.True(t, errors.As(err, &ae))
}

func TestSolveAbortDeadline(t *testing.T) {
	_, err := solveFixture(t, map[string]string{
		"foo-1.0": "",
	}, "foo->=1", Options{Timeout: time.Nanosecond})
	require.Error(t, err)
	var ae *AbortError
	require.True(t, errors.As(err, &ae))
}

func TestSolverIsSingleUse(t *testing.T) {
	lg := logrus.New()
	lg.SetLevel(logrus.PanicLevel)
	s := New(mkRepo(t, map[string]string{"foo-1.0": ""}), lg, Options{})
	reqs := []version.Requirement{version.MustParseRequirement("foo")}
	_, err := s.Solve(context.Background(), reqs)
	require.NoError(t, err)
	_, err = s.Solve(context.Background(), reqs)
	require.Error(t, err)
}

func TestSolveDeterministic(t *testing.T) {
	pkgs := map[string]string{
		"a-1.0": "x->=1",
		"b-1.0": "x->=1 y->=1",
		"x-1.0": "",
		"x-2.0": "",
		"y-1.0": "",
	}
	want, err := solveFixture(t, pkgs, "a->=1 b->=1", Options{})
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		got, err := solveFixture(t, pkgs, "a->=1 b->=1", Options{})
		require.NoError(t, err)
		assert.Equal(t, solutionIDs(want), solutionIDs(got))
	}
}

func TestSolveNoTopLevelRequirements(t *testing.T) {
	sol, err := solveFixture(t, map[string]string{}, "", Options{})
	require.NoError(t, err)
	assert.Empty(t, sol.Packages)
	assert.NotEmpty(t, sol.ID)
}
