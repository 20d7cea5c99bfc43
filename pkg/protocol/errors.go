// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package protocol

import (
	"errors"
	"fmt"
)

// -----------------------------------------------------------------------------
// Error Sentinel Values
// -----------------------------------------------------------------------------

// ErrNotImplemented is the sentinel wrapped by every DispatchError.
// Use errors.Is(err, ErrNotImplemented) to detect dispatch misses without
// depending on the concrete error type.
var ErrNotImplemented = errors.New("protocol not implemented")

// ErrInvalidTarget is returned by Extend when the target is nil or not a
// Target produced by this package.
var ErrInvalidTarget = errors.New("invalid dispatch target")

// ErrUnknownMethod is returned when a method name was never declared in the
// protocol's definition. Method sets are fixed at Define time.
var ErrUnknownMethod = errors.New("method not declared by protocol")

// ErrEmptyImplementation is returned by Extend when the implementation map
// is empty; registering nothing is almost always a caller bug.
var ErrEmptyImplementation = errors.New("empty implementation map")

// -----------------------------------------------------------------------------
// Dispatch Errors
// -----------------------------------------------------------------------------

// DispatchError reports a dispatch miss: no implementation (direct or via
// the object fallback) exists for a (protocol, method, receiver type)
// triple. It is synchronous and never retried; the caller either catches it
// or ensures registration beforehand.
type DispatchError struct {
	// Protocol is the display name of the protocol that was called.
	Protocol string

	// Method is the method name that was requested.
	Method string

	// TypeName is the resolved type name of the receiver ("string",
	// "[]int", "null", ...).
	TypeName string
}

// Error formats the miss with everything needed to locate the missing
// registration.
func (e *DispatchError) Error() string {
	return fmt.Sprintf("protocol %q: method %q not implemented for type %q",
		e.Protocol, e.Method, e.TypeName)
}

// Unwrap makes the error match ErrNotImplemented under errors.Is.
func (e *DispatchError) Unwrap() error { return ErrNotImplemented }
