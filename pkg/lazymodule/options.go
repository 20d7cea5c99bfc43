// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package lazymodule

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Options carries the selection criteria a caller evaluates implementations
// against. Keys and values are caller-defined; this package only compares
// and canonicalizes them.
type Options map[string]any

// canonicalKey converts options to a stable cache key: keys sorted
// alphabetically, each key:value pair JSON-serialized, pairs joined by ";".
// Two options maps with equal pairs in different insertion order therefore
// share one cache entry, and differing values never collide.
func canonicalKey(opts Options) string {
	if len(opts) == 0 {
		return ""
	}
	keys := make([]string, 0, len(opts))
	for k := range opts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(';')
		}
		b.WriteString(k)
		b.WriteByte(':')
		v, err := json.Marshal(opts[k])
		if err != nil {
			// Non-serializable option values still need a deterministic
			// key; fall back to the fmt representation.
			b.WriteString(fmt.Sprintf("%v", opts[k]))
			continue
		}
		b.Write(v)
	}
	return b.String()
}
