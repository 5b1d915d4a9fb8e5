package repo

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/karrick/godirwalk"
	"github.com/pkg/errors"
	"github.com/sdboyer/constext"
	"github.com/sirupsen/logrus"
	yaml "gopkg.in/yaml.v2"

	"github.com/bpabel/rez/version"
)

const definitionFile = "package.yaml"

// FSRepository reads package definitions from a directory tree laid out as
//
//	root/<family>/<version>/package.yaml
//
// Family names are indexed up front from a single directory listing;
// definitions are parsed lazily on first lookup and cached for the
// repository's lifetime. The tree is treated as read-only: a resolve in
// flight never observes a family changing underneath it.
type FSRepository struct {
	root   string
	lg     *logrus.Logger
	ctx    context.Context
	cancel context.CancelFunc

	mu   sync.Mutex
	fams familyTrie
}

// NewFSRepository indexes the family names under root.
func NewFSRepository(root string, lg *logrus.Logger) (*FSRepository, error) {
	if lg == nil {
		lg = logrus.New()
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, errors.Wrapf(err, "reading repository root %s", root)
	}
	ctx, cancel := context.WithCancel(context.Background())
	r := &FSRepository{
		root:   root,
		lg:     lg,
		ctx:    ctx,
		cancel: cancel,
		fams:   newFamilyTrie(),
	}
	for _, e := range entries {
		if e.IsDir() {
			r.fams.Insert(e.Name(), &famEntry{})
		}
	}
	if lg.Level >= logrus.DebugLevel {
		lg.WithFields(logrus.Fields{
			"root":     root,
			"families": r.fams.Len(),
		}).Debug("Indexed filesystem repository")
	}
	return r, nil
}

// Family implements Repository. The passed context is joined with the
// repository's lifetime context, so closing the repository cancels lookups
// in flight.
func (r *FSRepository) Family(ctx context.Context, name string) (*Family, error) {
	cctx, cancel := constext.Cons(ctx, r.ctx)
	defer cancel()

	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.fams.Get(name)
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "family %q in %s", name, r.root)
	}
	if e.loaded {
		return e.fam, nil
	}
	fam, err := r.loadFamily(cctx, name)
	if err != nil {
		return nil, err
	}
	e.loaded = true
	e.fam = fam
	return fam, nil
}

// Search returns the indexed family names beginning with prefix.
func (r *FSRepository) Search(prefix string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fams.NamesWithPrefix(prefix)
}

// Close cancels in-flight lookups and invalidates the repository.
func (r *FSRepository) Close() error {
	r.cancel()
	return nil
}

func (r *FSRepository) loadFamily(ctx context.Context, name string) (*Family, error) {
	dir := filepath.Join(r.root, name)
	var defs []string
	err := godirwalk.Walk(dir, &godirwalk.Options{
		Unsorted: false,
		Callback: func(path string, de *godirwalk.Dirent) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if !de.IsDir() && de.Name() == definitionFile {
				defs = append(defs, path)
			}
			return nil
		},
	})
	if err != nil {
		return nil, errors.Wrapf(err, "scanning family %q", name)
	}
	if len(defs) == 0 {
		return nil, errors.Wrapf(ErrNotFound, "family %q has no package definitions", name)
	}

	var variants []*Variant
	for _, path := range defs {
		vs, err := loadDefinition(path, name)
		if err != nil {
			return nil, err
		}
		variants = append(variants, vs...)
	}
	if r.lg.Level >= logrus.DebugLevel {
		r.lg.WithFields(logrus.Fields{
			"family":   name,
			"variants": len(variants),
		}).Debug("Loaded package family")
	}
	return NewFamily(name, variants), nil
}

// packageDef is the on-disk package definition schema. Each entry of
// variants is an extra requirement list; a definition with N variant
// entries yields N variants with ascending indexes, each carrying the
// shared requires plus its own list. No variants entry yields one variant.
type packageDef struct {
	Name     string     `yaml:"name"`
	Version  string     `yaml:"version"`
	Requires []string   `yaml:"requires"`
	Variants [][]string `yaml:"variants"`
}

func loadDefinition(path, family string) ([]*Variant, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	var def packageDef
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, errors.Wrapf(err, "parsing %s", path)
	}
	if def.Name != family {
		return nil, errors.Errorf("%s: package name %q does not match family directory %q", path, def.Name, family)
	}
	ver, err := version.Parse(def.Version)
	if err != nil {
		return nil, errors.Wrapf(err, "in %s", path)
	}
	shared, err := version.ParseRequirements(def.Requires)
	if err != nil {
		return nil, errors.Wrapf(err, "in %s", path)
	}

	if len(def.Variants) == 0 {
		return []*Variant{{Name: family, Version: ver, Requires: shared}}, nil
	}
	out := make([]*Variant, 0, len(def.Variants))
	for i, extra := range def.Variants {
		reqs, err := version.ParseRequirements(extra)
		if err != nil {
			return nil, errors.Wrapf(err, "in %s variant %d", path, i)
		}
		all := make([]version.Requirement, 0, len(shared)+len(reqs))
		all = append(all, shared...)
		all = append(all, reqs...)
		out = append(out, &Variant{Name: family, Version: ver, Index: i, Requires: all})
	}
	return out, nil
}
