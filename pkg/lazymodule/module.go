// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package lazymodule wraps a family of candidate implementations of one
// function signature behind a single callable, selecting the best-scoring
// implementation for a given options object, memoizing selections, and
// guaranteeing that a working fallback always exists.
//
// # Selection Model
//
// Every registered implementation carries a supports predicate that scores
// it for a concrete options object, or declines outright. Selection scans
// all candidates, keeps the highest defined score (earliest registered wins
// ties), materializes that candidate's function through its lazy loader,
// and caches the result per canonicalized options. Registering a new
// implementation invalidates every cached selection, because the newcomer
// might outscore a previously cached choice.
//
// The mandatory fallback is appended lazily the first time selection runs
// and always scores ScoreFallback (-0.1), so it loses to any zero- or
// positively-scored candidate but keeps the module total: a correctly
// configured module cannot fail selection.
//
// # Basic Usage
//
//	hasher, err := lazymodule.New(lazymodule.Config{
//	    Name:     "hasher",
//	    Fallback: func() (lazymodule.Fn, error) { return pureGoHash, nil },
//	})
//
//	hasher.Register(lazymodule.Implementation{
//	    Name: "simd",
//	    Supports: func(opts lazymodule.Options) (float64, bool) {
//	        if cpuHasSIMD() {
//	            return lazymodule.ScoreOptimal, true
//	        }
//	        return lazymodule.Unsupported()
//	    },
//	    Load: loadSIMDHash,
//	})
//
//	sum, err := hasher.Call(data)  // best implementation for default options
//
// # Sync vs Async
//
// Module loaders are synchronous. Implementations whose loading involves
// I/O belong in an AsyncModule, which resolves loaders at registration time
// and exposes the same synchronous call surface afterwards; the two are
// distinct types, so a sync module can never receive an async loader.
//
// # Thread Safety
//
// All methods are safe for concurrent use. Cache invalidation on Register
// is atomic with respect to concurrent selections.
package lazymodule

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/go-playground/validator/v10"

	"github.com/jinterlante1206/AleutianDispatch/pkg/logging"
	"github.com/jinterlante1206/AleutianDispatch/pkg/validation"
)

// validate checks Config and AsyncConfig structs at construction time.
var validate = validator.New()

// Fn is the function signature a lazy module multiplexes.
type Fn func(args ...any) (any, error)

// Loader materializes an implementation's function. It is not invoked
// until the implementation is actually selected.
type Loader func() (Fn, error)

// SupportsFunc scores an implementation for an options object. ok=false
// means "does not apply to these options" and excludes the candidate
// entirely, regardless of how the other candidates score.
type SupportsFunc func(opts Options) (score float64, ok bool)

// Implementation is one candidate behind a lazy module.
type Implementation struct {
	// Name identifies the implementation in diagnostics and Selection
	// results.
	Name string

	// Supports scores the implementation for concrete options.
	Supports SupportsFunc

	// Load materializes the implementation's function when selected.
	Load Loader
}

// ImplementationInfo is the introspection view of a registered candidate.
type ImplementationInfo struct {
	Name     string
	Supports SupportsFunc
}

// Config configures a lazy module. Immutable after construction.
type Config struct {
	// Name is the module's diagnostic name, used in errors and logs.
	Name string `validate:"required"`

	// DefaultOptions is the options object used by Call and Default. Nil
	// means empty options.
	DefaultOptions Options

	// Fallback loads the mandatory pure implementation. It is appended to
	// the candidate list lazily, scores ScoreFallback for every options
	// object, and guarantees selection always succeeds.
	Fallback Loader `validate:"required"`

	// Logger enables debug-level selection diagnostics. Optional.
	Logger *logging.Logger
}

// Selection is a memoized selection result. Cache identity matters: two
// Select calls with equivalent options return the same *Selection.
type Selection struct {
	// Name of the winning implementation.
	Name string

	// Score the winner reported for the selected options.
	Score float64

	// Fn is the materialized function.
	Fn Fn
}

// SelectionStats is a point-in-time snapshot of a module's counters.
type SelectionStats struct {
	// Selections counts full selection runs (cache misses).
	Selections uint64

	// CacheHits counts selections answered from a cache.
	CacheHits uint64

	// Invalidations counts cache flushes triggered by Register.
	Invalidations uint64
}

// fallbackName is the reserved name of the lazily appended fallback entry.
const fallbackName = "fallback"

// Module selects among synchronously loadable implementations.
// Create one with New.
type Module struct {
	name        string
	defaultOpts Options
	fallback    Loader
	logger      *logging.Logger

	mu            sync.RWMutex
	impls         []Implementation
	fallbackAdded bool // one-shot guard; the fallback is appended exactly once
	defaultSel    *Selection
	cache         map[string]*Selection

	selections    atomic.Uint64
	cacheHits     atomic.Uint64
	invalidations atomic.Uint64
}

// New constructs a lazy module from a validated config.
//
// The implementation list starts empty; the fallback is appended the first
// time a selection runs, not here.
func New(cfg Config) (*Module, error) {
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := validation.ValidateName(cfg.Name); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return &Module{
		name:        cfg.Name,
		defaultOpts: cfg.DefaultOptions,
		fallback:    cfg.Fallback,
		logger:      cfg.Logger,
		cache:       make(map[string]*Selection),
	}, nil
}

// Name returns the module's diagnostic name.
func (m *Module) Name() string { return m.name }

// Register appends a candidate implementation and invalidates both the
// default-selection slot and the options-keyed cache unconditionally: the
// newcomer might outscore every previously cached choice.
func (m *Module) Register(impl Implementation) error {
	if impl.Name == "" || impl.Supports == nil || impl.Load == nil {
		return fmt.Errorf("lazy module %q: %w: name, supports, and load are all required",
			m.name, ErrInvalidImplementation)
	}
	if err := validation.ValidateName(impl.Name); err != nil {
		return fmt.Errorf("lazy module %q: %w: %v", m.name, ErrInvalidImplementation, err)
	}

	m.mu.Lock()
	m.impls = append(m.impls, impl)
	m.defaultSel = nil
	clear(m.cache)
	m.mu.Unlock()

	m.invalidations.Add(1)
	if m.logger != nil {
		m.logger.Debug("implementation registered",
			"module", m.name, "implementation", impl.Name)
	}
	return nil
}

// Call invokes the implementation selected for the module's default
// options, computing that selection lazily on first call and reusing it
// thereafter. This is the ergonomic common-case path.
func (m *Module) Call(args ...any) (any, error) {
	sel, err := m.Default()
	if err != nil {
		return nil, err
	}
	return sel.Fn(args...)
}

// Default returns the cached selection for the module's default options,
// for the common call path and for diagnostics.
func (m *Module) Default() (*Selection, error) {
	m.mu.RLock()
	sel := m.defaultSel
	m.mu.RUnlock()
	if sel != nil {
		m.cacheHits.Add(1)
		return sel, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.defaultSel != nil {
		m.cacheHits.Add(1)
		return m.defaultSel, nil
	}
	sel, err := m.selectLocked(m.defaultOpts)
	if err != nil {
		return nil, err
	}
	m.defaultSel = sel
	return sel, nil
}

// Select returns the bare selected function for arbitrary options, not yet
// invoked, so the caller can apply it directly or keep it for repeated use.
func (m *Module) Select(opts Options) (Fn, error) {
	sel, err := m.Selection(opts)
	if err != nil {
		return nil, err
	}
	return sel.Fn, nil
}

// Selection returns the memoized selection result for arbitrary options.
// Equivalent options (same pairs, any order) share one cache entry and
// return the identical *Selection.
func (m *Module) Selection(opts Options) (*Selection, error) {
	key := canonicalKey(opts)

	m.mu.RLock()
	sel := m.cache[key]
	m.mu.RUnlock()
	if sel != nil {
		m.cacheHits.Add(1)
		return sel, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if sel := m.cache[key]; sel != nil {
		m.cacheHits.Add(1)
		return sel, nil
	}
	sel, err := m.selectLocked(opts)
	if err != nil {
		return nil, err
	}
	m.cache[key] = sel
	return sel, nil
}

// Implementations returns the introspection view of every registered
// candidate, including the fallback once it has been materialized.
func (m *Module) Implementations() []ImplementationInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	infos := make([]ImplementationInfo, 0, len(m.impls))
	for _, impl := range m.impls {
		infos = append(infos, ImplementationInfo{Name: impl.Name, Supports: impl.Supports})
	}
	return infos
}

// Stats returns a snapshot of the module's selection counters.
func (m *Module) Stats() SelectionStats {
	return SelectionStats{
		Selections:    m.selections.Load(),
		CacheHits:     m.cacheHits.Load(),
		Invalidations: m.invalidations.Load(),
	}
}

// selectLocked runs the selection algorithm. Caller holds the write lock.
//
//  1. Ensure the fallback is on the list (one-shot guard, idempotent).
//  2. Score every candidate; ok=false excludes.
//  3. Nothing defined: SelectionError (unreachable for a correct fallback,
//     required safety check regardless).
//  4. Highest score wins; earliest registered wins ties, which is what
//     pins the fallback below any zero- or positively-scored candidate.
//  5. Materialize the winner through its loader.
func (m *Module) selectLocked(opts Options) (*Selection, error) {
	m.selections.Add(1)

	if !m.fallbackAdded {
		m.fallbackAdded = true
		m.impls = append(m.impls, Implementation{
			Name:     fallbackName,
			Supports: func(Options) (float64, bool) { return ScoreFallback, true },
			Load:     m.fallback,
		})
	}

	best := -1
	bestScore := 0.0
	for i, impl := range m.impls {
		score, ok := impl.Supports(opts)
		if !ok {
			continue
		}
		// Strict greater-than keeps the earliest registered among equals.
		if best < 0 || score > bestScore {
			best = i
			bestScore = score
		}
	}
	if best < 0 {
		return nil, &SelectionError{Module: m.name, OptionsKey: canonicalKey(opts)}
	}

	winner := m.impls[best]
	fn, err := winner.Load()
	if err != nil {
		return nil, fmt.Errorf("lazy module %q: loading %q: %w", m.name, winner.Name, err)
	}
	if fn == nil {
		return nil, fmt.Errorf("lazy module %q: loader for %q returned no function", m.name, winner.Name)
	}

	if m.logger != nil {
		m.logger.Debug("implementation selected",
			"module", m.name,
			"implementation", winner.Name,
			"score", bestScore,
			"options", canonicalKey(opts),
		)
	}
	return &Selection{Name: winner.Name, Score: bestScore, Fn: fn}, nil
}
