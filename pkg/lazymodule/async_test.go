// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package lazymodule

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAsyncTestModule(t *testing.T) *AsyncModule {
	t.Helper()
	m, err := NewAsync(context.Background(), AsyncConfig{
		Name:     "ah",
		Fallback: func(context.Context) (Fn, error) { return incrementFn, nil },
	})
	require.NoError(t, err)
	return m
}

func TestNewAsync_ValidatesConfig(t *testing.T) {
	_, err := NewAsync(context.Background(), AsyncConfig{Name: "ah"})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewAsync(context.Background(), AsyncConfig{
		Fallback: func(context.Context) (Fn, error) { return incrementFn, nil },
	})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestNewAsync_BadNameSkipsFallbackLoad(t *testing.T) {
	loads := 0
	_, err := NewAsync(context.Background(), AsyncConfig{
		Name: "no spaces allowed",
		Fallback: func(context.Context) (Fn, error) {
			loads++
			return incrementFn, nil
		},
	})
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.Zero(t, loads, "fallback loader must not run for a rejected config")
}

func TestNewAsync_FallbackResolvedEagerly(t *testing.T) {
	resolved := false
	_, err := NewAsync(context.Background(), AsyncConfig{
		Name: "ah",
		Fallback: func(context.Context) (Fn, error) {
			resolved = true
			return incrementFn, nil
		},
	})
	require.NoError(t, err)
	assert.True(t, resolved, "async fallback must resolve at construction, not at call time")
}

func TestNewAsync_FallbackFailureFailsConstruction(t *testing.T) {
	loadErr := errors.New("download failed")
	_, err := NewAsync(context.Background(), AsyncConfig{
		Name:     "ah",
		Fallback: func(context.Context) (Fn, error) { return nil, loadErr },
	})
	assert.ErrorIs(t, err, loadErr)
}

func TestAsyncModule_CallSurfaceIsSynchronous(t *testing.T) {
	m := newAsyncTestModule(t)

	// Loading happens at Register; selection and calls never block on it.
	var loads atomic.Int32
	err := m.Register(context.Background(), AsyncImplementation{
		Name:     "fetched",
		Supports: func(Options) (float64, bool) { return ScoreGood, true },
		Load: func(ctx context.Context) (Fn, error) {
			loads.Add(1)
			return func(args ...any) (any, error) { return args[0].(int) + 100, nil }, nil
		},
	})
	require.NoError(t, err)
	assert.Equal(t, int32(1), loads.Load(), "loader must run at registration time")

	v, err := m.Call(5)
	require.NoError(t, err)
	assert.Equal(t, 105, v)
	assert.Equal(t, int32(1), loads.Load(), "call must not trigger further loading")

	sel, err := m.Default()
	require.NoError(t, err)
	assert.Equal(t, "fetched", sel.Name)
	assert.Equal(t, ScoreGood, sel.Score)
}

func TestAsyncModule_RegisterLoaderFailure(t *testing.T) {
	m := newAsyncTestModule(t)
	loadErr := errors.New("registry unreachable")

	err := m.Register(context.Background(), AsyncImplementation{
		Name:     "broken",
		Supports: func(Options) (float64, bool) { return ScoreOptimal, true },
		Load:     func(context.Context) (Fn, error) { return nil, loadErr },
	})
	assert.ErrorIs(t, err, loadErr)

	// The failed registration must not disturb the module.
	v, err := m.Call(5)
	require.NoError(t, err)
	assert.Equal(t, 6, v)
}

func TestAsyncModule_RegisterBadNameSkipsLoad(t *testing.T) {
	m := newAsyncTestModule(t)
	loads := 0

	err := m.Register(context.Background(), AsyncImplementation{
		Name:     "bad name",
		Supports: func(Options) (float64, bool) { return ScoreOptimal, true },
		Load: func(context.Context) (Fn, error) {
			loads++
			return incrementFn, nil
		},
	})
	assert.ErrorIs(t, err, ErrInvalidImplementation)
	assert.Zero(t, loads, "loader must not run for a rejected implementation")
}

func TestAsyncModule_RegisterAll(t *testing.T) {
	m := newAsyncTestModule(t)

	impls := []AsyncImplementation{
		{
			Name:     "slow-good",
			Supports: func(Options) (float64, bool) { return ScoreGood, true },
			Load: func(ctx context.Context) (Fn, error) {
				time.Sleep(10 * time.Millisecond)
				return func(...any) (any, error) { return "slow-good", nil }, nil
			},
		},
		{
			Name:     "quick-good",
			Supports: func(Options) (float64, bool) { return ScoreGood, true },
			Load: func(ctx context.Context) (Fn, error) {
				return func(...any) (any, error) { return "quick-good", nil }, nil
			},
		},
	}
	require.NoError(t, m.RegisterAll(context.Background(), impls))

	// Resolution ran in parallel, but registration order is the argument
	// order, so the tie-break still favors slow-good.
	sel, err := m.Default()
	require.NoError(t, err)
	assert.Equal(t, "slow-good", sel.Name)

	infos := m.Implementations()
	names := []string{}
	for _, info := range infos {
		names = append(names, info.Name)
	}
	assert.Equal(t, []string{"slow-good", "quick-good", "fallback"}, names)
}

func TestAsyncModule_RegisterAllFailureRegistersNothing(t *testing.T) {
	m := newAsyncTestModule(t)
	loadErr := errors.New("half failed")

	err := m.RegisterAll(context.Background(), []AsyncImplementation{
		{
			Name:     "ok",
			Supports: func(Options) (float64, bool) { return ScoreGood, true },
			Load: func(context.Context) (Fn, error) {
				return func(...any) (any, error) { return "ok", nil }, nil
			},
		},
		{
			Name:     "bad",
			Supports: func(Options) (float64, bool) { return ScoreGood, true },
			Load:     func(context.Context) (Fn, error) { return nil, loadErr },
		},
	})
	assert.ErrorIs(t, err, loadErr)

	sel, selErr := m.Default()
	require.NoError(t, selErr)
	assert.Equal(t, "fallback", sel.Name, "partial RegisterAll must leave the module unchanged")
}

func TestAsyncModule_RegisterAllBadNameRegistersNothing(t *testing.T) {
	m := newAsyncTestModule(t)
	var loads atomic.Int32

	goodImpl := func(name string) AsyncImplementation {
		return AsyncImplementation{
			Name:     name,
			Supports: func(Options) (float64, bool) { return ScoreGood, true },
			Load: func(context.Context) (Fn, error) {
				loads.Add(1)
				return incrementFn, nil
			},
		}
	}

	// The malformed name comes last; the whole batch must still be
	// rejected before any loader runs.
	err := m.RegisterAll(context.Background(), []AsyncImplementation{
		goodImpl("ok"),
		goodImpl("bad name"),
	})
	assert.ErrorIs(t, err, ErrInvalidImplementation)
	assert.Zero(t, loads.Load(), "no loader may run for a rejected batch")
	assert.Empty(t, m.Implementations())

	sel, selErr := m.Default()
	require.NoError(t, selErr)
	assert.Equal(t, "fallback", sel.Name)
}

func TestAsyncModule_RegisterAllHonorsCancellation(t *testing.T) {
	m := newAsyncTestModule(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := m.RegisterAll(ctx, []AsyncImplementation{
		{
			Name:     "ctx-aware",
			Supports: func(Options) (float64, bool) { return ScoreGood, true },
			Load: func(ctx context.Context) (Fn, error) {
				if err := ctx.Err(); err != nil {
					return nil, err
				}
				return func(...any) (any, error) { return nil, nil }, nil
			},
		},
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAsyncModule_RegisterInvalidatesCaches(t *testing.T) {
	m := newAsyncTestModule(t)

	v, err := m.Call(5)
	require.NoError(t, err)
	assert.Equal(t, 6, v)

	require.NoError(t, m.Register(context.Background(), AsyncImplementation{
		Name:     "better",
		Supports: func(Options) (float64, bool) { return ScoreOptimal, true },
		Load: func(context.Context) (Fn, error) {
			return func(args ...any) (any, error) { return args[0].(int) * 10, nil }, nil
		},
	}))

	v, err = m.Call(5)
	require.NoError(t, err)
	assert.Equal(t, 50, v)

	stats := m.Stats()
	assert.Equal(t, uint64(1), stats.Invalidations)
}
