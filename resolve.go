package rez

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/bpabel/rez/internal/cache"
	"github.com/bpabel/rez/repo"
	"github.com/bpabel/rez/solver"
	"github.com/bpabel/rez/version"
)

// Resolver is the top-level entry point: it owns the repository stack and
// the context cache, and runs one solver per resolve. A Resolver may serve
// any number of concurrent resolves; each Solve call gets private search
// state.
type Resolver struct {
	cfg *Config
	lg  *logrus.Logger
	rp  repo.Repository
	cc  *cache.Cache
}

// NewResolver builds a Resolver from cfg: a filesystem repository per
// entry of PackagesPath, stacked in priority order, plus the context cache
// when configured.
func NewResolver(cfg *Config, lg *logrus.Logger) (*Resolver, error) {
	if lg == nil {
		lg = logrus.New()
	}
	repos := make([]repo.Repository, 0, len(cfg.PackagesPath))
	for _, p := range cfg.PackagesPath {
		fr, err := repo.NewFSRepository(p, lg)
		if err != nil {
			for _, r := range repos {
				r.Close()
			}
			return nil, errors.Wrapf(err, "opening package repository %s", p)
		}
		repos = append(repos, fr)
	}
	r := &Resolver{
		cfg: cfg,
		lg:  lg,
		rp:  repo.NewStack(repos...),
	}
	if cfg.CachePath != "" {
		cc, err := cache.Open(cfg.CachePath)
		if err != nil {
			r.rp.Close()
			return nil, err
		}
		r.cc = cc
	}
	return r, nil
}

// NewResolverWith builds a Resolver over an existing repository, without a
// cache. Useful for embedding and tests.
func NewResolverWith(rp repo.Repository, lg *logrus.Logger, cfg *Config) *Resolver {
	if lg == nil {
		lg = logrus.New()
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Resolver{cfg: cfg, lg: lg, rp: rp}
}

// Resolve parses reqTexts and resolves them into a Context. Malformed
// requirement text and unknown top-level package names surface immediately
// as errors; unsatisfiable or aborted searches return a non-nil Context
// whose Status and Failure describe the outcome.
func (r *Resolver) Resolve(ctx context.Context, reqTexts []string) (*Context, error) {
	reqs, err := version.ParseRequirements(reqTexts)
	if err != nil {
		return nil, err
	}
	return r.ResolveRequirements(ctx, reqs)
}

// ResolveRequirements is Resolve for already-parsed requirements.
func (r *Resolver) ResolveRequirements(ctx context.Context, reqs []version.Requirement) (*Context, error) {
	var key []byte
	if r.cc != nil {
		key = cache.Key(reqs)
		data, cerr := r.cc.Get(key)
		if cerr != nil {
			return nil, cerr
		}
		if data != nil {
			c, derr := Deserialize(data)
			if derr == nil {
				r.lg.WithField("resolve", c.ID).Debug("Context cache hit")
				return c, nil
			}
			// A corrupt or stale-format entry is not fatal; re-solve and
			// overwrite it.
			r.lg.WithError(derr).Warn("Discarding unreadable cached context")
		}
	}

	s := solver.New(r.rp, r.lg, solver.Options{
		MaxDecisions: r.cfg.MaxDecisions,
		Timeout:      r.cfg.Timeout(),
	})
	sol, serr := s.Solve(ctx, reqs)
	if serr != nil {
		return r.failedContext(serr)
	}
	c := NewContext(sol)

	if r.cc != nil {
		data, merr := c.Serialize()
		if merr != nil {
			return nil, merr
		}
		if perr := r.cc.Put(key, data); perr != nil {
			r.lg.WithError(perr).Warn("Failed to store context in cache")
		}
	}
	return c, nil
}

// failedContext maps solver errors onto terminal contexts, or propagates
// them when they are not resolve outcomes.
func (r *Resolver) failedContext(serr error) (*Context, error) {
	var (
		ce *solver.ConflictError
		ae *solver.AbortError
	)
	switch {
	case errors.As(serr, &ce):
		return &Context{Status: StatusFailed, Failure: ce.Error()}, nil
	case errors.As(serr, &ae):
		return &Context{Status: StatusAborted, Failure: ae.Error()}, nil
	}
	// Parse errors, unknown top-level packages, repository I/O.
	return nil, serr
}

// Close releases the repository stack and cache.
func (r *Resolver) Close() error {
	err := r.rp.Close()
	if r.cc != nil {
		if cerr := r.cc.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
