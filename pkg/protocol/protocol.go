// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package protocol implements operation-oriented polymorphism without
// inheritance: named operation sets ("protocols") that arbitrary types
// implement independently, with O(1) dispatch on the runtime type of the
// first argument.
//
// # Design Philosophy
//
// A protocol attaches behavior to pre-existing types without modifying
// them. Callers never branch on type; they call through the protocol and
// the registry resolves the receiver's concrete type to the registered
// implementation. There is no inheritance anywhere in the mechanism.
//
// All state lives inside the *Protocol value. There are no package-level
// registries and no reset hooks; tests construct a fresh protocol each.
//
// # Basic Usage
//
//	seq := protocol.Define("sequence", map[string]string{
//	    "first": "returns the first element of the receiver",
//	    "rest":  "returns the receiver without its first element",
//	})
//
//	seq.Extend(protocol.TargetFor[[]int](), map[string]protocol.Method{
//	    "first": func(recv any, _ ...any) (any, error) {
//	        return recv.([]int)[0], nil
//	    },
//	})
//
//	v, err := seq.Call("first", []int{7, 8, 9})  // 7, nil
//
// # Fallback Semantics
//
// An implementation registered for ObjectFallback is consulted for
// object-like receivers (structs, struct pointers, maps) that have no
// dedicated registration. Non-object receivers never reach it: an
// unregistered slice or string misses loudly with a *DispatchError.
//
// # Thread Safety
//
// Extend and Call may run concurrently from multiple goroutines. Dispatch
// takes a read lock only; registration takes the write lock.
package protocol

import (
	"fmt"
	"maps"
	"slices"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/jinterlante1206/AleutianDispatch/pkg/logging"
)

// Method is a protocol method implementation. It receives the dispatch
// receiver as its first parameter, followed by the call's remaining
// arguments.
type Method func(receiver any, args ...any) (any, error)

// DispatchStats is a point-in-time snapshot of a protocol's dispatch
// counters, for diagnostics and the CLI.
type DispatchStats struct {
	// Dispatches counts every Call, hit or miss.
	Dispatches uint64

	// DirectHits counts dispatches resolved by the receiver's own type key.
	DirectHits uint64

	// FallbackHits counts dispatches resolved via the ObjectFallback retry.
	FallbackHits uint64

	// Misses counts dispatches that returned a *DispatchError.
	Misses uint64
}

// Protocol is a named, fixed set of operations with per-type
// implementations. Create one with Define; the method set is frozen at
// definition time, while implementations accrete afterwards via Extend.
type Protocol struct {
	id   uuid.UUID
	name string
	docs map[string]string // frozen at Define time

	mu           sync.RWMutex
	impls        map[targetKey]map[string]Method
	implementors map[targetKey]string // key -> display name; order lives in implOrder
	implOrder    []targetKey

	dispatches   atomic.Uint64
	directHits   atomic.Uint64
	fallbackHits atomic.Uint64
	misses       atomic.Uint64

	logger *logging.Logger
}

// Define creates a new protocol from a method documentation map.
//
// Each docs entry declares one method: the key is the method name, the
// value a one-line description of its contract. The docs map is copied and
// frozen; the method set cannot grow later. A fresh process-unique identity
// is allocated per call, so two protocols defined from identical docs are
// still distinct.
//
// An empty name gets a generated one derived from the identity. Define
// never fails.
func Define(name string, docs map[string]string) *Protocol {
	id := uuid.New()
	if name == "" {
		name = "protocol-" + id.String()[:8]
	}
	return &Protocol{
		id:           id,
		name:         name,
		docs:         maps.Clone(docs),
		impls:        make(map[targetKey]map[string]Method),
		implementors: make(map[targetKey]string),
	}
}

// SetLogger attaches an optional logger for debug-level dispatch
// diagnostics. A nil logger (the default) disables them.
func (p *Protocol) SetLogger(l *logging.Logger) { p.logger = l }

// Name returns the protocol's display name.
func (p *Protocol) Name() string { return p.name }

// ID returns the protocol's process-unique identity.
func (p *Protocol) ID() uuid.UUID { return p.id }

// Doc returns the declared documentation string for a method, or "" if the
// method was never declared.
func (p *Protocol) Doc(method string) string { return p.docs[method] }

// Methods returns the declared method names in sorted order.
func (p *Protocol) Methods() []string {
	names := slices.Collect(maps.Keys(p.docs))
	sort.Strings(names)
	return names
}

// Extend merges method implementations for a target into the protocol.
//
// Partial maps are fine: methods may be supplied across several Extend
// calls, and a later call that names an already-registered method replaces
// only that method (last write wins per key; other methods are untouched).
//
// Extend fails fast on a nil target, an empty implementation map, or a
// method name that was not declared at Define time.
func (p *Protocol) Extend(target Target, impls map[string]Method) error {
	if target == nil {
		return fmt.Errorf("protocol %q: %w", p.name, ErrInvalidTarget)
	}
	if len(impls) == 0 {
		return fmt.Errorf("protocol %q, target %q: %w", p.name, target.TypeName(), ErrEmptyImplementation)
	}
	for method, fn := range impls {
		if _, declared := p.docs[method]; !declared {
			return fmt.Errorf("protocol %q: %q: %w", p.name, method, ErrUnknownMethod)
		}
		if fn == nil {
			return fmt.Errorf("protocol %q: nil implementation for %q on %q: %w",
				p.name, method, target.TypeName(), ErrEmptyImplementation)
		}
	}

	key := target.key()

	p.mu.Lock()
	defer p.mu.Unlock()

	existing := p.impls[key]
	if existing == nil {
		existing = make(map[string]Method, len(impls))
		p.impls[key] = existing
		p.implementors[key] = target.TypeName()
		p.implOrder = append(p.implOrder, key)
	}
	for method, fn := range impls {
		existing[method] = fn
	}

	if p.logger != nil {
		p.logger.Debug("protocol extended",
			"protocol", p.name,
			"target", target.TypeName(),
			"methods", len(impls),
		)
	}
	return nil
}

// MustExtend is Extend that panics on error, for registration done at
// program start where a failure is a programming bug.
func (p *Protocol) MustExtend(target Target, impls map[string]Method) {
	if err := p.Extend(target, impls); err != nil {
		panic(err)
	}
}

// Call dispatches a method to the implementation registered for the
// receiver's runtime type.
//
// Resolution order:
//
//  1. Derive the receiver's dispatch key: nil maps to Null, Undef maps to
//     Undefined, anything else to its concrete type.
//  2. Look up (key, method) directly.
//  3. On a miss, retry the ObjectFallback registration, but only when the
//     receiver is object-like and the key was not already ObjectFallback.
//  4. Still nothing: return a *DispatchError naming the protocol, the
//     method, and the receiver's resolved type.
//
// There is never a silent no-op; Call either invokes exactly one
// implementation or fails descriptively.
func (p *Protocol) Call(method string, receiver any, args ...any) (any, error) {
	fn, err := p.resolve(method, receiver)
	if err != nil {
		return nil, err
	}
	return fn(receiver, args...)
}

// Dispatcher returns the standalone callable for one declared method: the
// per-method dispatch function the protocol definition promises. The
// returned Method performs the same resolution as Call on every invocation.
func (p *Protocol) Dispatcher(method string) (Method, error) {
	if _, declared := p.docs[method]; !declared {
		return nil, fmt.Errorf("protocol %q: %q: %w", p.name, method, ErrUnknownMethod)
	}
	return func(receiver any, args ...any) (any, error) {
		return p.Call(method, receiver, args...)
	}, nil
}

// resolve performs dispatch lookup without invoking anything.
func (p *Protocol) resolve(method string, receiver any) (Method, error) {
	p.dispatches.Add(1)

	key, typeName := dispatchKey(receiver)
	objectKey := ObjectFallback.key()

	p.mu.RLock()
	fn := p.impls[key][method]
	var viaFallback bool
	if fn == nil && key != objectKey && isObjectLike(receiver) {
		fn = p.impls[objectKey][method]
		viaFallback = fn != nil
	}
	p.mu.RUnlock()

	if fn == nil {
		p.misses.Add(1)
		if p.logger != nil {
			p.logger.Debug("dispatch miss",
				"protocol", p.name, "method", method, "type", typeName)
		}
		return nil, &DispatchError{Protocol: p.name, Method: method, TypeName: typeName}
	}
	if viaFallback {
		p.fallbackHits.Add(1)
	} else {
		p.directHits.Add(1)
	}
	return fn, nil
}

// Satisfies reports whether dispatch would find at least one method of the
// protocol for the value, including via the object-fallback retry. It
// checks registration existence only and invokes nothing, so it is a cheap
// capability test before calling protocol methods.
func (p *Protocol) Satisfies(value any) bool {
	key, _ := dispatchKey(value)

	p.mu.RLock()
	defer p.mu.RUnlock()

	if len(p.impls[key]) > 0 {
		return true
	}
	objectKey := ObjectFallback.key()
	if key != objectKey && isObjectLike(value) {
		return len(p.impls[objectKey]) > 0
	}
	return false
}

// Implementors returns the display name of every target that has ever been
// extended against this protocol, in registration order, independent of
// which methods each one implemented.
func (p *Protocol) Implementors() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	names := make([]string, 0, len(p.implOrder))
	for _, key := range p.implOrder {
		names = append(names, p.implementors[key])
	}
	return names
}

// Stats returns a snapshot of the protocol's dispatch counters.
func (p *Protocol) Stats() DispatchStats {
	return DispatchStats{
		Dispatches:   p.dispatches.Load(),
		DirectHits:   p.directHits.Load(),
		FallbackHits: p.fallbackHits.Load(),
		Misses:       p.misses.Load(),
	}
}
