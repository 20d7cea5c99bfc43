// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package lazymodule

import (
	"errors"
	"fmt"
)

// -----------------------------------------------------------------------------
// Error Sentinel Values
// -----------------------------------------------------------------------------

// ErrNoImplementation is the sentinel wrapped by every SelectionError.
// Reaching it means zero implementations (fallback included) returned a
// defined score, which indicates a misconfigured module, not a transient
// condition.
var ErrNoImplementation = errors.New("no implementation supports the requested options")

// ErrInvalidConfig is returned by New/NewAsync when the configuration is
// missing its name or fallback loader.
var ErrInvalidConfig = errors.New("invalid lazy module config")

// ErrInvalidImplementation is returned by Register when an implementation
// is missing its name, supports predicate, or loader.
var ErrInvalidImplementation = errors.New("invalid lazy implementation")

// -----------------------------------------------------------------------------
// Selection Errors
// -----------------------------------------------------------------------------

// SelectionError reports an exhausted selection: every candidate, including
// the mandatory fallback, declined the options. A correctly configured
// module never produces one, because the fallback's supports predicate is
// defined for all options.
type SelectionError struct {
	// Module is the lazy module's diagnostic name.
	Module string

	// OptionsKey is the canonicalized options the selection ran against.
	OptionsKey string
}

func (e *SelectionError) Error() string {
	return fmt.Sprintf("lazy module %q: no implementation supports options {%s}",
		e.Module, e.OptionsKey)
}

// Unwrap makes the error match ErrNoImplementation under errors.Is.
func (e *SelectionError) Unwrap() error { return ErrNoImplementation }
