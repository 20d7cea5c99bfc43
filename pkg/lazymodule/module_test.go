// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package lazymodule

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// incrementFn is the canonical fallback used across these tests.
func incrementFn(args ...any) (any, error) {
	return args[0].(int) + 1, nil
}

// newTestModule builds a module whose fallback adds 1 to its argument.
func newTestModule(t *testing.T) *Module {
	t.Helper()
	m, err := New(Config{
		Name:     "h",
		Fallback: func() (Fn, error) { return incrementFn, nil },
	})
	require.NoError(t, err)
	return m
}

// constImpl registers an implementation with a fixed score that returns a
// fixed value, for selection-order tests.
func constImpl(name string, score float64, result any) Implementation {
	return Implementation{
		Name:     name,
		Supports: func(Options) (float64, bool) { return score, true },
		Load: func() (Fn, error) {
			return func(...any) (any, error) { return result, nil }, nil
		},
	}
}

// =============================================================================
// Config Validation Tests
// =============================================================================

func TestNew_ValidatesConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"missing name", Config{Fallback: func() (Fn, error) { return incrementFn, nil }}},
		{"missing fallback", Config{Name: "h"}},
		{"malformed name", Config{Name: "no spaces", Fallback: func() (Fn, error) { return incrementFn, nil }}},
		{"zero value", Config{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

// =============================================================================
// Fallback Guarantee Tests
// =============================================================================

func TestModule_FallbackOnlyAlwaysSucceeds(t *testing.T) {
	m := newTestModule(t)

	// With no registrations at all, any options select the fallback.
	v, err := m.Call(5)
	require.NoError(t, err)
	assert.Equal(t, 6, v)

	sel, err := m.Default()
	require.NoError(t, err)
	assert.Equal(t, "fallback", sel.Name)
	assert.Equal(t, ScoreFallback, sel.Score)

	fn, err := m.Select(Options{"arch": "arm64", "simd": true})
	require.NoError(t, err)
	v, err = fn(10)
	require.NoError(t, err)
	assert.Equal(t, 11, v)
}

func TestModule_RegistrationOutscoresFallback(t *testing.T) {
	m := newTestModule(t)

	// The fallback answers first...
	v, err := m.Call(5)
	require.NoError(t, err)
	assert.Equal(t, 6, v)

	// ...then a better implementation arrives and takes over.
	require.NoError(t, m.Register(Implementation{
		Name:     "fast",
		Supports: func(Options) (float64, bool) { return ScoreGood, true },
		Load: func() (Fn, error) {
			return func(args ...any) (any, error) { return args[0].(int) + 100, nil }, nil
		},
	}))

	v, err = m.Call(5)
	require.NoError(t, err)
	assert.Equal(t, 105, v)

	sel, err := m.Default()
	require.NoError(t, err)
	assert.Equal(t, "fast", sel.Name)
	assert.Equal(t, ScoreGood, sel.Score)
}

// =============================================================================
// Selection Order Tests
// =============================================================================

func TestSelection_HighestScoreWins(t *testing.T) {
	m := newTestModule(t)
	require.NoError(t, m.Register(constImpl("baseline", ScoreBaseline, "baseline")))
	require.NoError(t, m.Register(constImpl("good", ScoreGood, "good")))

	// Among [-0.1 fallback, 0.0, 0.5] the 0.5 candidate wins.
	v, err := m.Call(0)
	require.NoError(t, err)
	assert.Equal(t, "good", v)
}

func TestSelection_TieBreakFirstRegistered(t *testing.T) {
	m := newTestModule(t)
	require.NoError(t, m.Register(constImpl("first-good", ScoreGood, "first")))
	require.NoError(t, m.Register(constImpl("second-good", ScoreGood, "second")))

	sel, err := m.Default()
	require.NoError(t, err)
	assert.Equal(t, "first-good", sel.Name, "earliest registered must win equal scores")
}

func TestSelection_UndefinedScoreExcludesEntirely(t *testing.T) {
	m := newTestModule(t)

	// A declining implementation is never selected, no matter how the
	// others score.
	require.NoError(t, m.Register(Implementation{
		Name:     "never",
		Supports: func(Options) (float64, bool) { return Unsupported() },
		Load: func() (Fn, error) {
			t.Error("loader of an excluded implementation must not run")
			return nil, nil
		},
	}))

	sel, err := m.Default()
	require.NoError(t, err)
	assert.Equal(t, "fallback", sel.Name)
}

func TestSelection_RiskyLosesToFallback(t *testing.T) {
	m := newTestModule(t)
	require.NoError(t, m.Register(constImpl("risky", ScoreRisky, "risky")))

	// Anything below -0.1 loses to the fallback itself.
	sel, err := m.Default()
	require.NoError(t, err)
	assert.Equal(t, "fallback", sel.Name)
}

func TestSelection_ScoresEvaluatedPerOptions(t *testing.T) {
	m := newTestModule(t)

	require.NoError(t, m.Register(Implementation{
		Name: "simd",
		Supports: func(opts Options) (float64, bool) {
			if opts["simd"] == true {
				return ScoreOptimal, true
			}
			return Unsupported()
		},
		Load: func() (Fn, error) {
			return func(...any) (any, error) { return "simd", nil }, nil
		},
	}))

	sel, err := m.Selection(Options{"simd": true})
	require.NoError(t, err)
	assert.Equal(t, "simd", sel.Name)
	assert.Equal(t, ScoreOptimal, sel.Score)

	sel, err = m.Selection(Options{"simd": false})
	require.NoError(t, err)
	assert.Equal(t, "fallback", sel.Name)
}

// =============================================================================
// Cache Tests
// =============================================================================

func TestRegister_InvalidatesCaches(t *testing.T) {
	m := newTestModule(t)

	// Prime both caches.
	v, err := m.Call(5)
	require.NoError(t, err)
	assert.Equal(t, 6, v)
	_, err = m.Selection(Options{"a": 1})
	require.NoError(t, err)

	// A newly registered implementation that outscores the cached
	// choice must win on the next call.
	require.NoError(t, m.Register(constImpl("better", ScoreOptimal, "better")))

	v, err = m.Call(5)
	require.NoError(t, err)
	assert.Equal(t, "better", v)

	sel, err := m.Selection(Options{"a": 1})
	require.NoError(t, err)
	assert.Equal(t, "better", sel.Name)
}

func TestSelection_CanonicalizationSharesCacheEntry(t *testing.T) {
	m := newTestModule(t)

	// Key order must not fragment the cache; the identical *Selection
	// comes back.
	s1, err := m.Selection(Options{"a": 1, "b": 2})
	require.NoError(t, err)
	s2, err := m.Selection(Options{"b": 2, "a": 1})
	require.NoError(t, err)
	assert.Same(t, s1, s2)

	// Different values are different entries.
	s3, err := m.Selection(Options{"a": 1, "b": 3})
	require.NoError(t, err)
	assert.NotSame(t, s1, s3)
}

func TestSelection_CachedResultReused(t *testing.T) {
	m := newTestModule(t)
	loads := 0
	require.NoError(t, m.Register(Implementation{
		Name:     "counted",
		Supports: func(Options) (float64, bool) { return ScoreGood, true },
		Load: func() (Fn, error) {
			loads++
			return func(...any) (any, error) { return loads, nil }, nil
		},
	}))

	for i := 0; i < 5; i++ {
		_, err := m.Call(0)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, loads, "loader must run once per cached selection")

	stats := m.Stats()
	assert.Equal(t, uint64(1), stats.Selections)
	assert.Equal(t, uint64(4), stats.CacheHits)
	assert.Equal(t, uint64(1), stats.Invalidations)
}

// =============================================================================
// Fallback Materialization Tests
// =============================================================================

func TestFallback_AppendedExactlyOnce(t *testing.T) {
	m := newTestModule(t)

	// Before any selection the list is empty: the fallback is lazy.
	assert.Empty(t, m.Implementations())

	_, err := m.Call(1)
	require.NoError(t, err)

	infos := m.Implementations()
	require.Len(t, infos, 1)
	assert.Equal(t, "fallback", infos[0].Name)

	// Further selections must not duplicate it, including after an
	// invalidation.
	_, err = m.Select(Options{"x": 1})
	require.NoError(t, err)
	require.NoError(t, m.Register(constImpl("extra", ScoreBaseline, nil)))
	_, err = m.Call(1)
	require.NoError(t, err)

	names := []string{}
	for _, info := range m.Implementations() {
		names = append(names, info.Name)
	}
	assert.Equal(t, []string{"fallback", "extra"}, names)
}

// =============================================================================
// Error Tests
// =============================================================================

func TestFallbackLoaderFailure_IsHardError(t *testing.T) {
	m, err := New(Config{
		Name:     "broken",
		Fallback: func() (Fn, error) { return nil, errors.New("fallback build failed") },
	})
	require.NoError(t, err)

	_, err = m.Call(1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fallback build failed")
}

func TestRegister_ValidatesImplementation(t *testing.T) {
	m := newTestModule(t)

	tests := []struct {
		name string
		impl Implementation
	}{
		{"missing name", Implementation{Supports: func(Options) (float64, bool) { return 0, true }, Load: func() (Fn, error) { return incrementFn, nil }}},
		{"missing supports", Implementation{Name: "x", Load: func() (Fn, error) { return incrementFn, nil }}},
		{"missing load", Implementation{Name: "x", Supports: func(Options) (float64, bool) { return 0, true }}},
		{"malformed name", Implementation{Name: "no spaces allowed", Supports: func(Options) (float64, bool) { return 0, true }, Load: func() (Fn, error) { return incrementFn, nil }}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, m.Register(tt.impl), ErrInvalidImplementation)
		})
	}
}

func TestSelectionError_Formatting(t *testing.T) {
	err := &SelectionError{Module: "h", OptionsKey: `arch:"arm64"`}
	assert.ErrorIs(t, err, ErrNoImplementation)
	assert.Contains(t, err.Error(), `"h"`)
	assert.Contains(t, err.Error(), "arm64")
}

// =============================================================================
// Concurrency Tests
// =============================================================================

func TestModule_ConcurrentRegisterAndSelect(t *testing.T) {
	m := newTestModule(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = m.Register(constImpl("racer", ScoreBaseline, "raced"))
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if _, err := m.Call(1); err != nil {
					t.Errorf("concurrent call: %v", err)
					return
				}
				if _, err := m.Select(Options{"j": j % 3}); err != nil {
					t.Errorf("concurrent select: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()
}
