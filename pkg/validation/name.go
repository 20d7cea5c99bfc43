// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package validation provides input validation for identifiers that end up
// in error messages, log lines, and file names.
//
// Module, implementation, and method names flow from user configuration
// (manifests, registration calls) into diagnostics. Validating them keeps
// control characters and pathological lengths out of logs and keeps names
// usable as map keys and filenames.
package validation

import (
	"fmt"
	"regexp"
)

// namePattern matches valid dispatch identifiers.
// Allows: letters, digits, then dots, hyphens, underscores.
// Max length: 64 characters.
var namePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._\-]{0,63}$`)

// ValidateName validates a module, implementation, or method name.
//
// Valid names:
//   - 1-64 characters
//   - letters and digits
//   - dots, hyphens, underscores after the first character
//
// Returns an error if the name is invalid.
//
// Example:
//
//	if err := validation.ValidateName(impl.Name); err != nil {
//	    return fmt.Errorf("invalid implementation name: %w", err)
//	}
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("name cannot be empty")
	}
	if !namePattern.MatchString(name) {
		return fmt.Errorf("invalid name %q (must be 1-64 alphanumeric chars, dots, hyphens, or underscores)", name)
	}
	return nil
}

// ValidateNames validates multiple names.
// Returns an error listing every invalid name if any fail validation.
func ValidateNames(names []string) error {
	var invalid []string
	for _, name := range names {
		if err := ValidateName(name); err != nil {
			invalid = append(invalid, name)
		}
	}
	if len(invalid) > 0 {
		return fmt.Errorf("invalid names: %q", invalid)
	}
	return nil
}
