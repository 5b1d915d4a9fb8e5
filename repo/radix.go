package repo

import (
	"sort"

	"github.com/armon/go-radix"
)

// familyTrie is a typed wrapper around a radix tree keyed by family name,
// so the rest of the package avoids type assertions. Only the operations
// the filesystem repository needs are implemented.
type familyTrie struct {
	t *radix.Tree
}

func newFamilyTrie() familyTrie {
	return familyTrie{t: radix.New()}
}

// famEntry is a trie value: a family name known to exist on disk, loaded
// lazily on first lookup.
type famEntry struct {
	loaded bool
	fam    *Family
}

func (t familyTrie) Get(name string) (*famEntry, bool) {
	if v, has := t.t.Get(name); has {
		return v.(*famEntry), true
	}
	return nil, false
}

func (t familyTrie) Insert(name string, e *famEntry) {
	t.t.Insert(name, e)
}

func (t familyTrie) Len() int {
	return t.t.Len()
}

// NamesWithPrefix returns the sorted family names under prefix.
func (t familyTrie) NamesWithPrefix(prefix string) []string {
	var names []string
	t.t.WalkPrefix(prefix, func(s string, _ interface{}) bool {
		names = append(names, s)
		return false
	})
	sort.Strings(names)
	return names
}
