package solver

import "context"

// satisfiable determines whether committing atom a would leave every
// requirement in the current state satisfied. A nil return means the atom
// is acceptable; otherwise the returned solveFailure explains the
// rejection and the culpable queues have been marked for backtracking.
func (s *Solver) satisfiable(ctx context.Context, a atom) error {
	if a == nilatom {
		// This shouldn't be able to happen, but if it does, it unequivocally
		// indicates a logical bug somewhere, so blowing up is preferable.
		panic("canary - checking satisfiability of empty atom")
	}
	if err := s.checkAtomAllowable(a); err != nil {
		return err
	}

	for _, req := range a.variant.Requires {
		dep := dependency{depender: a, req: req}
		if req.Weak && !s.demanded[req.Name] {
			// Applies only if something else pulls the package in.
			continue
		}
		if req.Conflict {
			if err := s.checkDepDisallowsSelected(dep); err != nil {
				return err
			}
			if err := s.checkConflictLeavesRoom(dep); err != nil {
				return err
			}
			continue
		}
		if err := s.checkFamilyExists(ctx, dep); err != nil {
			return err
		}
		if err := s.checkDepDisjoint(dep); err != nil {
			return err
		}
		if err := s.checkDepDisallowsSelected(dep); err != nil {
			return err
		}
	}
	return nil
}

// checkAtomAllowable ensures the atom's own version is still admitted by
// the requirements in force on its package.
func (s *Solver) checkAtomAllowable(a atom) error {
	sc := s.scopes[a.name]
	if sc.admits(a.variant.Version) {
		return nil
	}
	var failparent []dependency
	for _, dep := range sc.deps {
		if !dep.req.Admits(a.variant.Version) {
			s.fail(dep.depender.name)
			failparent = append(failparent, dep)
		}
	}
	err := &versionNotAllowedFailure{
		goal:       a,
		failparent: failparent,
		current:    sc.effective(),
	}
	s.logSolve(err)
	return err
}

// checkFamilyExists ensures the required package family is known to the
// repository, warming the family cache. A missing family is an ordinary
// backtrackable failure here; repository I/O errors propagate unchanged.
func (s *Solver) checkFamilyExists(ctx context.Context, dep dependency) error {
	fam, err := s.fetchFamily(ctx, dep.req.Name)
	if err != nil {
		return err
	}
	if fam == nil {
		ferr := &missingFamilyFailure{goal: dep}
		s.logSolve(ferr)
		return ferr
	}
	return nil
}

// checkDepDisjoint ensures a requirement introduced by the atom has at
// least some overlap with the requirements already in force on its target.
func (s *Solver) checkDepDisjoint(dep dependency) error {
	sc := s.scopes[dep.req.Name]
	if sc == nil {
		return nil
	}
	if !sc.effective().Intersect(dep.req.Range).IsEmpty() {
		return nil
	}
	// No admissible versions: visit the siblings and identify the
	// disagreement(s).
	var failsib, nofailsib []dependency
	for _, sib := range sc.deps {
		if disjointWith(sib, dep) {
			s.fail(sib.depender.name)
			failsib = append(failsib, sib)
		} else {
			nofailsib = append(nofailsib, sib)
		}
	}
	err := &disjointRequirementFailure{
		goal:      dep,
		failsib:   failsib,
		nofailsib: nofailsib,
		current:   sc.effective(),
	}
	s.logSolve(err)
	return err
}

// disjointWith reports whether sibling sib, on its own, leaves dep no
// admissible version.
func disjointWith(sib, dep dependency) bool {
	if sib.req.Conflict {
		return dep.req.Range.Subtract(sib.req.Range).IsEmpty()
	}
	return sib.req.Range.Intersect(dep.req.Range).IsEmpty()
}

// checkDepDisallowsSelected ensures a requirement introduced by the atom
// still admits the committed variant of its target, if one exists. Handles
// both polarities, so it also rejects conflict requirements aimed at an
// already-selected version.
func (s *Solver) checkDepDisallowsSelected(dep dependency) error {
	sel, ok := s.sel.selected(dep.req.Name)
	if !ok || dep.req.Admits(sel.variant.Version) {
		return nil
	}
	s.fail(dep.req.Name)
	err := &constraintNotAllowedFailure{goal: dep, v: sel.variant.Version}
	s.logSolve(err)
	return err
}

// checkConflictLeavesRoom ensures a conflict requirement does not fully
// eliminate a demanded-but-uncommitted package.
func (s *Solver) checkConflictLeavesRoom(dep dependency) error {
	sc := s.scopes[dep.req.Name]
	if sc == nil || !s.demanded[dep.req.Name] {
		return nil
	}
	if !sc.effective().Subtract(dep.req.Range).IsEmpty() {
		return nil
	}
	var failsib, nofailsib []dependency
	for _, sib := range sc.deps {
		if !sib.req.Conflict && sib.req.Range.Subtract(dep.req.Range).IsEmpty() {
			s.fail(sib.depender.name)
			failsib = append(failsib, sib)
		} else {
			nofailsib = append(nofailsib, sib)
		}
	}
	err := &disjointRequirementFailure{
		goal:      dep,
		failsib:   failsib,
		nofailsib: nofailsib,
		current:   sc.effective(),
	}
	s.logSolve(err)
	return err
}
