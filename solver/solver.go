// Package solver implements the backtracking search that assigns one
// variant to every requested and transitively required package, or proves
// that no consistent assignment exists.
package solver

import (
	"container/heap"
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/bpabel/rez/repo"
	"github.com/bpabel/rez/version"
)

// Options bound a single resolve.
type Options struct {
	// MaxDecisions caps how many atoms may be committed over the whole
	// search, counting retries after backtracking. Zero means no cap.
	MaxDecisions int
	// Timeout bounds the wall-clock duration of the search, measured from
	// the start of Solve. Zero means no deadline.
	Timeout time.Duration
}

// Solver runs one resolve. It owns all of its search state privately, so
// any number of Solver instances may run concurrently against a shared
// read-only repository. A Solver cannot be reused; create one per resolve.
type Solver struct {
	lg   *logrus.Logger
	rp   repo.Repository
	opts Options

	ran int32

	id       string
	start    time.Time
	deadline time.Time

	scopes   map[string]*scope
	demanded map[string]bool
	pending  map[string][]dependency
	families map[string]*repo.Family

	sel       *selection
	unsel     *unselected
	decisions []*decision

	attempts  int
	ndecision int

	deepest      error
	deepestPath  []string
	deepestDepth int
}

// decision records one committed atom and everything needed to retract it:
// the candidate queue it came from, the prior value of every scope it
// narrowed, and the bookkeeping entries it added.
type decision struct {
	q    *candidateQueue
	atom atom

	applied []string    // names whose sel.deps gained an entry, in order
	undos   []scopeUndo // prior scope snapshots, in application order
	created []string    // names whose scope this decision created
	demand  []string    // names this decision newly demanded
	weak    []string    // names whose pending-weak list gained an entry
}

type scopeUndo struct {
	name  string
	prior *scope
}

// New returns a single-use Solver over rp.
func New(rp repo.Repository, lg *logrus.Logger, opts Options) *Solver {
	if lg == nil {
		lg = logrus.New()
	}
	return &Solver{
		lg:       lg,
		rp:       rp,
		opts:     opts,
		scopes:   make(map[string]*scope),
		demanded: make(map[string]bool),
		pending:  make(map[string][]dependency),
		families: make(map[string]*repo.Family),
	}
}

// Solve runs the search for reqs. On success it returns the Solution; on
// an exhausted search it returns a *ConflictError; on an expired budget or
// canceled context a *AbortError. Parse-level errors never originate here;
// a top-level requirement naming an unknown family returns an error
// wrapping repo.ErrNotFound.
func (s *Solver) Solve(ctx context.Context, reqs []version.Requirement) (*Solution, error) {
	if !atomic.CompareAndSwapInt32(&s.ran, 0, 1) {
		return nil, errors.New("a Solver instance can only run one resolve")
	}
	s.start = time.Now()
	s.id = uuid.New().String()
	if s.opts.Timeout > 0 {
		s.deadline = s.start.Add(s.opts.Timeout)
	}
	s.sel = newSelection()
	s.unsel = &unselected{cmp: s.unselectedComparator}
	heap.Init(s.unsel)

	// Seed scopes from the top-level request. The zero depender attributes
	// these requirements to the caller in conflict chains.
	root := &decision{atom: nilatom}
	for _, r := range reqs {
		if err := s.apply(ctx, root, dependency{req: r}); err != nil {
			return nil, err
		}
	}

	for {
		if err := s.checkBudget(ctx); err != nil {
			return nil, err
		}
		name, has := s.nextUnselected()
		if !has {
			// Every demanded package is committed.
			break
		}
		sc := s.scopes[name]

		if s.lg.Level >= logrus.DebugLevel {
			s.lg.WithFields(logrus.Fields{
				"resolve":    s.id,
				"name":       name,
				"candidates": len(sc.candidates),
				"selcount":   len(s.sel.atoms),
				"decisions":  s.ndecision,
			}).Debug("Beginning step in solve loop")
		}

		var fail error
		if sc.failed() {
			fail = s.failEmptyScope(name, sc)
		} else {
			q := newCandidateQueue(name, sc.candidates)
			if fail = s.findValidCandidate(ctx, q); fail == nil {
				a := atom{name: name, variant: q.current()}
				if s.lg.Level >= logrus.InfoLevel {
					s.lg.WithFields(logrus.Fields{
						"resolve": s.id,
						"atom":    a.String(),
					}).Info("Accepted package atom")
				}
				if err := s.selectAtom(ctx, a, q); err != nil {
					return nil, err
				}
				continue
			}
		}

		if _, expected := fail.(solveFailure); !expected {
			// Repository I/O errors and the like propagate unchanged.
			return nil, fail
		}
		s.recordDeepest(fail)
		ok, berr := s.backtrack(ctx)
		if berr != nil {
			return nil, berr
		}
		if ok {
			continue
		}
		return nil, &ConflictError{Path: s.deepestPath, Cause: s.deepest}
	}

	sol := s.solution()
	if s.lg.Level >= logrus.InfoLevel {
		s.lg.WithFields(logrus.Fields{
			"resolve":   s.id,
			"packages":  len(sol.Packages),
			"decisions": s.ndecision,
			"attempts":  s.attempts,
		}).Info("Resolve succeeded")
	}
	return sol, nil
}

// failEmptyScope turns a demanded scope with no candidates into a
// failure, attributing every requirement that squeezed it empty.
func (s *Solver) failEmptyScope(name string, sc *scope) error {
	deps := append([]dependency(nil), sc.deps...)
	if len(deps) > 0 {
		// Just mark the first (oldest) depender; the backtracker will
		// traverse through any later ones on its own.
		s.fail(deps[0].depender.name)
	}
	err := &noCandidatesFailure{name: name, deps: deps}
	s.logSolve(err)
	return err
}

// findValidCandidate walks q until a candidate satisfies the current
// state, or the queue exhausts.
func (s *Solver) findValidCandidate(ctx context.Context, q *candidateQueue) error {
	if q.current() == nil {
		panic("canary - candidate queue is empty, caller should have checked")
	}
	faillen := len(q.fails)
	for {
		cur := q.current()
		err := s.satisfiable(ctx, atom{name: q.name, variant: cur})
		if err == nil {
			if s.lg.Level >= logrus.DebugLevel {
				s.lg.WithFields(logrus.Fields{
					"resolve": s.id,
					"name":    q.name,
					"version": cur.Version.String(),
				}).Debug("Found acceptable candidate")
			}
			return nil
		}
		if _, expected := err.(solveFailure); !expected {
			return err
		}
		q.advance(err)
		if q.isExhausted() {
			if s.lg.Level >= logrus.InfoLevel {
				s.lg.WithFields(logrus.Fields{
					"resolve": s.id,
					"name":    q.name,
				}).Info("Candidate queue exhausted, marking package as failed")
			}
			break
		}
	}

	if deps := s.sel.getDependenciesOn(q.name); len(deps) > 0 {
		s.fail(deps[0].depender.name)
	}
	err := &exhaustedFailure{name: q.name, fails: q.fails[faillen:]}
	s.logSolve(err)
	return err
}

// selectAtom commits a, pushing a decision and applying every requirement
// the chosen variant declares.
func (s *Solver) selectAtom(ctx context.Context, a atom, q *candidateQueue) error {
	s.unsel.remove(a.name)
	s.sel.atoms = append(s.sel.atoms, a)
	s.ndecision++

	d := &decision{q: q, atom: a}
	for _, req := range a.variant.Requires {
		if err := s.apply(ctx, d, dependency{depender: a, req: req}); err != nil {
			// satisfiable warmed the family cache for everything this
			// variant requires, so apply cannot miss.
			return errors.Wrapf(err, "applying requirements of %s", a)
		}
	}
	s.decisions = append(s.decisions, d)
	return nil
}

// apply folds one requirement into the search state, recording undo
// information in d.
func (s *Solver) apply(ctx context.Context, d *decision, dep dependency) error {
	name := dep.req.Name

	if dep.req.Weak && !s.demanded[name] {
		// Deferred until some non-weak requirement demands the package.
		s.pending[name] = append(s.pending[name], dep)
		d.weak = append(d.weak, name)
		return nil
	}

	sc := s.scopes[name]
	if sc == nil {
		sc = newScope(name)
		s.scopes[name] = sc
		d.created = append(d.created, name)
	}
	d.undos = append(d.undos, scopeUndo{name: name, prior: sc})
	s.scopes[name] = sc.narrow(dep)
	s.sel.addDep(name, dep)
	d.applied = append(d.applied, name)

	if dep.req.Conflict || dep.req.Weak || s.demanded[name] {
		return nil
	}

	// First concrete demand on this package: bind its family data and fold
	// in any weak requirements recorded earlier.
	fam, err := s.fetchFamily(ctx, name)
	if err != nil {
		return err
	}
	if fam == nil {
		return errors.Wrapf(repo.ErrNotFound, "required package %q", name)
	}
	s.demanded[name] = true
	d.demand = append(d.demand, name)
	ns := s.scopes[name].activate(fam)
	for _, wd := range s.pending[name] {
		ns = ns.narrow(wd)
		s.sel.addDep(name, wd)
		d.applied = append(d.applied, name)
	}
	s.scopes[name] = ns
	heap.Push(s.unsel, name)
	return nil
}

// retract undoes everything a decision did, in reverse order.
func (s *Solver) retract(d *decision) {
	if !d.atom.isRequest() {
		s.sel.atoms = s.sel.atoms[:len(s.sel.atoms)-1]
		heap.Push(s.unsel, d.atom.name)
	}
	for i := len(d.applied) - 1; i >= 0; i-- {
		s.sel.popDep(d.applied[i])
	}
	for i := len(d.undos) - 1; i >= 0; i-- {
		s.scopes[d.undos[i].name] = d.undos[i].prior
	}
	for _, n := range d.demand {
		delete(s.demanded, n)
		s.unsel.remove(n)
	}
	for _, n := range d.created {
		delete(s.scopes, n)
	}
	for i := len(d.weak) - 1; i >= 0; i-- {
		n := d.weak[i]
		s.pending[n] = s.pending[n][:len(s.pending[n])-1]
	}
}

func (s *Solver) popDecision() *decision {
	d := s.decisions[len(s.decisions)-1]
	s.decisions, s.decisions[len(s.decisions)-1] = s.decisions[:len(s.decisions)-1], nil
	s.retract(d)
	return d
}

// backtrack works backwards from a failed state to the most recent
// decision with an untried alternative, replays it with the next
// candidate, and reports whether the search can continue. A non-nil error
// is a repository failure, never an exhausted search.
func (s *Solver) backtrack(ctx context.Context) (bool, error) {
	if len(s.decisions) == 0 {
		return false, nil
	}
	if s.lg.Level >= logrus.DebugLevel {
		s.lg.WithFields(logrus.Fields{
			"resolve":   s.id,
			"selcount":  len(s.sel.atoms),
			"decisions": len(s.decisions),
			"attempts":  s.attempts,
		}).Debug("Beginning backtracking")
	}

	for len(s.decisions) > 0 {
		for {
			if len(s.decisions) == 0 {
				return false, nil
			}
			if s.decisions[len(s.decisions)-1].q.failed {
				break
			}
			d := s.popDecision()
			if s.lg.Level >= logrus.InfoLevel {
				s.lg.WithFields(logrus.Fields{
					"resolve":   s.id,
					"name":      d.atom.name,
					"wasfailed": false,
				}).Info("Backtracking popped off package")
			}
		}

		// Retract the failed decision but keep its queue to advance past
		// the candidate we now know is bad.
		d := s.popDecision()
		q := d.q
		if s.lg.Level >= logrus.DebugLevel {
			s.lg.WithFields(logrus.Fields{
				"resolve": s.id,
				"name":    q.name,
				"failver": q.current().Version.String(),
			}).Debug("Trying failed queue with next version")
		}
		q.advance(nil)
		if !q.isExhausted() {
			err := s.findValidCandidate(ctx, q)
			if err == nil {
				a := atom{name: q.name, variant: q.current()}
				if s.lg.Level >= logrus.InfoLevel {
					s.lg.WithFields(logrus.Fields{
						"resolve": s.id,
						"atom":    a.String(),
					}).Info("Backtracking found valid candidate, attempting next solution")
				}
				if serr := s.selectAtom(ctx, a, q); serr != nil {
					return false, serr
				}
				s.attempts++
				return true, nil
			}
			if _, expected := err.(solveFailure); !expected {
				// Repository I/O failure, not a search dead end. It must
				// reach the caller unchanged rather than masquerade as an
				// unsatisfiable request.
				return false, err
			}
		}

		if s.lg.Level >= logrus.InfoLevel {
			s.lg.WithFields(logrus.Fields{
				"resolve":   s.id,
				"name":      q.name,
				"wasfailed": true,
			}).Info("Backtracking popped off package")
		}
	}
	return false, nil
}

func (s *Solver) nextUnselected() (string, bool) {
	if len(s.unsel.sl) > 0 {
		return s.unsel.sl[0], true
	}
	return "", false
}

// unselectedComparator orders the unselected queue most-constrained-first:
// fewer candidates means an earlier, cheaper failure. Ties break on name
// so the search is deterministic.
func (s *Solver) unselectedComparator(i, j int) bool {
	iname, jname := s.unsel.sl[i], s.unsel.sl[j]
	if iname == jname {
		return false
	}
	icand := len(s.scopes[iname].candidates)
	jcand := len(s.scopes[jname].candidates)
	if icand != jcand {
		return icand < jcand
	}
	return iname < jname
}

// fail marks the oldest queue for name as failed so backtracking knows to
// retry it with another candidate. The empty name (the request) is never
// marked.
func (s *Solver) fail(name string) {
	if name == "" {
		return
	}
	for _, d := range s.decisions {
		if d.q != nil && d.q.name == name {
			d.q.failed = true
			return
		}
	}
}

// fetchFamily returns the family for name, caching results for the whole
// resolve. A known-missing family returns (nil, nil); other repository
// errors propagate.
func (s *Solver) fetchFamily(ctx context.Context, name string) (*repo.Family, error) {
	if fam, seen := s.families[name]; seen {
		return fam, nil
	}
	fam, err := s.rp.Family(ctx, name)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			s.families[name] = nil
			return nil, nil
		}
		return nil, err
	}
	s.families[name] = fam
	return fam, nil
}

func (s *Solver) checkBudget(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return &AbortError{Reason: err.Error(), Decisions: s.ndecision}
	}
	if s.opts.MaxDecisions > 0 && s.ndecision >= s.opts.MaxDecisions {
		return &AbortError{Reason: "decision budget exhausted", Decisions: s.ndecision}
	}
	if !s.deadline.IsZero() && time.Now().After(s.deadline) {
		return &AbortError{Reason: "deadline exceeded", Decisions: s.ndecision}
	}
	return nil
}

// recordDeepest retains the failure from the deepest point the search
// reached, along with the selections active there, for the final conflict
// report.
func (s *Solver) recordDeepest(fail error) {
	if len(s.decisions) < s.deepestDepth && s.deepest != nil {
		return
	}
	s.deepestDepth = len(s.decisions)
	s.deepest = fail
	s.deepestPath = make([]string, 0, len(s.sel.atoms))
	for _, a := range s.sel.atoms {
		s.deepestPath = append(s.deepestPath, a.String())
	}
}

func (s *Solver) logSolve(err error) {
	if s.lg.Level < logrus.DebugLevel {
		return
	}
	msg := err.Error()
	if te, ok := err.(traceError); ok {
		msg = te.traceString()
	}
	s.lg.WithField("resolve", s.id).Debug(msg)
}

// remove deletes name from the queue, wherever it sits.
func (u *unselected) remove(name string) {
	for k, v := range u.sl {
		if v == name {
			if k == len(u.sl)-1 {
				u.sl = u.sl[:k]
			} else {
				heap.Remove(u, k)
			}
			return
		}
	}
}
