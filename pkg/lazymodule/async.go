// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package lazymodule

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/jinterlante1206/AleutianDispatch/pkg/logging"
	"github.com/jinterlante1206/AleutianDispatch/pkg/validation"
)

// AsyncLoader materializes an implementation whose loading may block on
// I/O. Unlike Loader it runs at registration time, never at call time.
type AsyncLoader func(ctx context.Context) (Fn, error)

// AsyncImplementation is one candidate behind an async lazy module.
type AsyncImplementation struct {
	Name     string
	Supports SupportsFunc
	Load     AsyncLoader
}

// AsyncConfig configures an async lazy module.
type AsyncConfig struct {
	// Name is the module's diagnostic name.
	Name string `validate:"required"`

	// DefaultOptions is the options object used by Call and Default.
	DefaultOptions Options

	// Fallback loads the mandatory pure implementation. Resolved eagerly
	// by NewAsync so the call surface stays synchronous.
	Fallback AsyncLoader `validate:"required"`

	// Logger enables debug-level selection diagnostics. Optional.
	Logger *logging.Logger
}

// AsyncModule is the lazy module variant for implementations whose loading
// (not invocation) is asynchronous.
//
// All loaders are resolved when registered, so after registration the
// module exposes exactly the synchronous selection and call surface of
// Module: from the caller's perspective there is no blocking at call time,
// only at registration time. Keeping this a distinct type from Module
// makes a sync/async loader mix-up impossible to compile.
type AsyncModule struct {
	inner *Module
}

// NewAsync constructs an async lazy module, resolving the fallback loader
// immediately.
func NewAsync(ctx context.Context, cfg AsyncConfig) (*AsyncModule, error) {
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	// Reject a bad name before the fallback loader runs; loading may be
	// expensive I/O.
	if err := validation.ValidateName(cfg.Name); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	fallbackFn, err := cfg.Fallback(ctx)
	if err != nil {
		return nil, fmt.Errorf("lazy module %q: resolving fallback: %w", cfg.Name, err)
	}
	if fallbackFn == nil {
		return nil, fmt.Errorf("lazy module %q: fallback loader returned no function", cfg.Name)
	}
	inner, err := New(Config{
		Name:           cfg.Name,
		DefaultOptions: cfg.DefaultOptions,
		Fallback:       func() (Fn, error) { return fallbackFn, nil },
		Logger:         cfg.Logger,
	})
	if err != nil {
		return nil, err
	}
	return &AsyncModule{inner: inner}, nil
}

// Name returns the module's diagnostic name.
func (m *AsyncModule) Name() string { return m.inner.Name() }

// validateImpl applies the same checks Module.Register would, before any
// loader is resolved.
func (m *AsyncModule) validateImpl(impl AsyncImplementation) error {
	if impl.Name == "" || impl.Supports == nil || impl.Load == nil {
		return fmt.Errorf("lazy module %q: %w: name, supports, and load are all required",
			m.inner.name, ErrInvalidImplementation)
	}
	if err := validation.ValidateName(impl.Name); err != nil {
		return fmt.Errorf("lazy module %q: %w: %v", m.inner.name, ErrInvalidImplementation, err)
	}
	return nil
}

// Register resolves the implementation's loader now, then registers the
// resolved function as a synchronous candidate. Both caches are
// invalidated, exactly as for Module.Register.
func (m *AsyncModule) Register(ctx context.Context, impl AsyncImplementation) error {
	if err := m.validateImpl(impl); err != nil {
		return err
	}
	fn, err := impl.Load(ctx)
	if err != nil {
		return fmt.Errorf("lazy module %q: loading %q: %w", m.inner.name, impl.Name, err)
	}
	if fn == nil {
		return fmt.Errorf("lazy module %q: loader for %q returned no function", m.inner.name, impl.Name)
	}
	return m.inner.Register(Implementation{
		Name:     impl.Name,
		Supports: impl.Supports,
		Load:     func() (Fn, error) { return fn, nil },
	})
}

// RegisterAll resolves several loaders concurrently, then registers the
// results in the order given. Registration order is preserved because it
// is the selection tie-break; only the loading itself is parallel. If any
// loader fails, nothing is registered.
func (m *AsyncModule) RegisterAll(ctx context.Context, impls []AsyncImplementation) error {
	// Validate the whole batch before resolving any loader, so a bad
	// entry cannot leave earlier ones registered.
	for _, impl := range impls {
		if err := m.validateImpl(impl); err != nil {
			return err
		}
	}

	fns := make([]Fn, len(impls))
	g, gctx := errgroup.WithContext(ctx)
	for i, impl := range impls {
		g.Go(func() error {
			fn, err := impl.Load(gctx)
			if err != nil {
				return fmt.Errorf("loading %q: %w", impl.Name, err)
			}
			if fn == nil {
				return fmt.Errorf("loader for %q returned no function", impl.Name)
			}
			fns[i] = fn
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("lazy module %q: %w", m.inner.name, err)
	}

	for i, impl := range impls {
		fn := fns[i]
		err := m.inner.Register(Implementation{
			Name:     impl.Name,
			Supports: impl.Supports,
			Load:     func() (Fn, error) { return fn, nil },
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// Call invokes the implementation selected for the default options.
func (m *AsyncModule) Call(args ...any) (any, error) { return m.inner.Call(args...) }

// Select returns the bare selected function for arbitrary options.
func (m *AsyncModule) Select(opts Options) (Fn, error) { return m.inner.Select(opts) }

// Selection returns the memoized selection result for arbitrary options.
func (m *AsyncModule) Selection(opts Options) (*Selection, error) { return m.inner.Selection(opts) }

// Default returns the cached selection for the default options.
func (m *AsyncModule) Default() (*Selection, error) { return m.inner.Default() }

// Implementations returns the introspection view of every candidate.
func (m *AsyncModule) Implementations() []ImplementationInfo { return m.inner.Implementations() }

// Stats returns a snapshot of the module's selection counters.
func (m *AsyncModule) Stats() SelectionStats { return m.inner.Stats() }
