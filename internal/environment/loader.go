// Copyright 2026 The JIT Access Authors
// SPDX-License-Identifier: Apache-2.0

// Package environment provides the lazy, single-flight, TTL'd cache
// that maps an environment name to its loaded policy tree (spec §4.9).
package environment

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/jitaccess/jitaccess/internal/jiterrors"
	"github.com/jitaccess/jitaccess/internal/policy"
	"github.com/jitaccess/jitaccess/internal/policydoc"
)

// Source is the opaque policy document source a Loader reads from
// (file, secret manager, ...), keyed by environment name (spec §6
// "Policy document loader").
type Source interface {
	// Load fetches the raw policy document text for name, along with
	// its source locator and last-modified time for export metadata.
	Load(ctx context.Context, name string) (text string, locator string, lastModified time.Time, err error)
}

// Environment is a loaded, immutable policy tree plus its provenance.
type Environment struct {
	Policy       *policy.EnvironmentPolicy
	RawText      string
	Locator      string
	LastModified time.Time
	Issues       []policydoc.Issue
}

type entry struct {
	env       Environment
	expiresAt time.Time
}

// Loader lazily loads and caches Environments by name, with
// concurrent misses on the same key coalesced into a single load
// (spec §5, §4.9).
type Loader struct {
	source Source
	ttl    time.Duration
	logger *slog.Logger

	mu    sync.RWMutex
	cache map[string]entry

	group singleflight.Group
}

// New builds a Loader reading from source, caching successful loads
// for ttl.
func New(source Source, ttl time.Duration, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		source: source,
		ttl:    ttl,
		logger: logger,
		cache:  make(map[string]entry),
	}
}

// Get returns the cached Environment for name if still fresh,
// otherwise loads it. Concurrent calls for the same name share one
// load. Load failures are logged and surfaced as jiterrors.NotFound,
// never cached (spec §4.9: "not cached as negatives").
func (l *Loader) Get(ctx context.Context, name string) (Environment, error) {
	if env, ok := l.fromCache(name); ok {
		return env, nil
	}

	result, err, _ := l.group.Do(name, func() (any, error) {
		if env, ok := l.fromCache(name); ok {
			return env, nil
		}

		text, locator, lastModified, err := l.source.Load(ctx, name)
		if err != nil {
			l.logger.WarnContext(ctx, "failed to load environment policy", "environment", name, "error", err)
			return nil, jiterrors.NotFound("environment", name)
		}

		pol, issues, err := policydoc.FromString(text, map[string]string{
			"source":       locator,
			"lastModified": lastModified.Format(time.RFC3339),
		})
		if err != nil {
			l.logger.ErrorContext(ctx, "failed to parse environment policy", "environment", name, "error", err)
			return nil, jiterrors.NotFound("environment", name)
		}
		for _, issue := range issues {
			l.logger.WarnContext(ctx, "environment policy validation issue", "environment", name, "issue", issue.String())
		}

		env := Environment{Policy: pol, RawText: text, Locator: locator, LastModified: lastModified, Issues: issues}

		l.mu.Lock()
		l.cache[name] = entry{env: env, expiresAt: time.Now().Add(l.ttl)}
		l.mu.Unlock()

		return env, nil
	})
	if err != nil {
		return Environment{}, err
	}
	return result.(Environment), nil
}

func (l *Loader) fromCache(name string) (Environment, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	e, ok := l.cache[name]
	if !ok || time.Now().After(e.expiresAt) {
		return Environment{}, false
	}
	return e.env, true
}

// Invalidate evicts name from the cache, forcing the next Get to
// reload.
func (l *Loader) Invalidate(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.cache, name)
}

// DefaultTTL and DebugTTL are the spec's default cache lifetimes
// (spec §6 RESOURCE_CACHE_TIMEOUT).
const (
	DefaultTTL = 300 * time.Second
	DebugTTL   = 20 * time.Second
)
