package solver

// selection tracks the atoms committed so far, in commit order, and every
// requirement currently in force on each package name, attributed to its
// depender.
type selection struct {
	atoms []atom
	deps  map[string][]dependency
}

func newSelection() *selection {
	return &selection{deps: make(map[string][]dependency)}
}

func (s *selection) addDep(name string, d dependency) {
	s.deps[name] = append(s.deps[name], d)
}

func (s *selection) popDep(name string) {
	sl := s.deps[name]
	s.deps[name] = sl[:len(sl)-1]
}

func (s *selection) getDependenciesOn(name string) []dependency {
	return s.deps[name]
}

// selected returns the committed atom for name, if any.
func (s *selection) selected(name string) (atom, bool) {
	for _, a := range s.atoms {
		if a.name == name {
			return a, true
		}
	}
	return nilatom, false
}

// unselected is a priority queue of demanded-but-uncommitted package
// names. The comparator is supplied by the solver so ordering can follow
// the live candidate counts: fewest candidates first, to fail fast.
type unselected struct {
	sl  []string
	cmp func(i, j int) bool
}

func (u *unselected) Len() int {
	return len(u.sl)
}

func (u *unselected) Less(i, j int) bool {
	return u.cmp(i, j)
}

func (u *unselected) Swap(i, j int) {
	u.sl[i], u.sl[j] = u.sl[j], u.sl[i]
}

func (u *unselected) Push(x interface{}) {
	u.sl = append(u.sl, x.(string))
}

func (u *unselected) Pop() (v interface{}) {
	v, u.sl = u.sl[len(u.sl)-1], u.sl[:len(u.sl)-1]
	return v
}
