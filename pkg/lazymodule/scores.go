// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package lazymodule

// Canonical capability score bands.
//
// A SupportsFunc reports how well an implementation fits a given options
// object. Returning ok=false excludes the candidate entirely; that is
// different from a low-but-defined score. Among defined scores, highest
// wins and the earliest-registered implementation wins ties.
//
//	(_, false)     not supported: excluded entirely
//	< -0.1         last resort, potentially unstable; loses even to the
//	               fallback, so it is only chosen when nothing else
//	               (fallback included) applies to those options
//	-0.1           the mandatory pure fallback: always defined, never the
//	               best choice once anything legitimate exists
//	 0.0           baseline: correct but untested for performance
//	(0.0, 1.0)     progressively better
//	 1.0           optimal, ceiling
const (
	// ScoreRisky marks implementations intentionally worse than the safe
	// fallback.
	ScoreRisky = -1.0

	// ScoreFallback is the fixed score of every module's fallback
	// implementation. Anything scoring at or above ScoreBaseline beats it.
	ScoreFallback = -0.1

	// ScoreBaseline marks a correct implementation with no measured
	// performance advantage.
	ScoreBaseline = 0.0

	// ScoreGood marks an implementation measured to be a solid choice for
	// the given options.
	ScoreGood = 0.5

	// ScoreOptimal is the ceiling.
	ScoreOptimal = 1.0
)

// Supported is a convenience for SupportsFunc bodies returning a fixed
// defined score.
func Supported(score float64) (float64, bool) { return score, true }

// Unsupported is a convenience for SupportsFunc bodies excluding the
// candidate.
func Unsupported() (float64, bool) { return 0, false }
