// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jinterlante1206/AleutianDispatch/pkg/lazymodule"
	"github.com/jinterlante1206/AleutianDispatch/pkg/ux"
)

var probeManifestPath string

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Evaluate every options set in a selection manifest",
	Long: `Loads a selection manifest and runs selection for each entry in its
options_sets list, printing the winning implementation per set plus the
module's cache statistics. Each set is evaluated twice to demonstrate
memoization.`,
	RunE: runProbe,
}

func init() {
	probeCmd.Flags().StringVarP(&probeManifestPath, "manifest", "m", "",
		"path to the selection manifest YAML (required)")
	_ = probeCmd.MarkFlagRequired("manifest")
	rootCmd.AddCommand(probeCmd)
}

func runProbe(cmd *cobra.Command, args []string) error {
	manifest, err := loadManifest(probeManifestPath)
	if err != nil {
		return err
	}
	if len(manifest.OptionsSets) == 0 {
		return fmt.Errorf("manifest %q has no options_sets to probe", manifest.Name)
	}
	mod, err := buildModule(manifest)
	if err != nil {
		return err
	}

	ux.KeyValue("module", fmt.Sprintf("%s (%d candidate(s) + fallback)", mod.Name(), len(manifest.Implementations)))
	fmt.Println()
	ux.Muted(fmt.Sprintf("%-40s %-20s %s", "OPTIONS", "SELECTED", "SCORE"))

	for _, raw := range manifest.OptionsSets {
		opts := lazymodule.Options(raw)

		sel, err := mod.Selection(opts)
		if err != nil {
			return err
		}
		// Second lookup hits the cache; the identical result proves the
		// memoization key is stable.
		again, err := mod.Selection(opts)
		if err != nil {
			return err
		}
		cached := ""
		if sel == again {
			cached = " (memoized)"
		}
		fmt.Printf("%-40s %-20s %.2f%s\n", formatOptions(opts), sel.Name, sel.Score, cached)
	}

	stats := mod.Stats()
	fmt.Println()
	ux.Muted(fmt.Sprintf("selections: %d  cache hits: %d  invalidations: %d",
		stats.Selections, stats.CacheHits, stats.Invalidations))
	return nil
}

// formatOptions renders options compactly with sorted keys.
func formatOptions(opts lazymodule.Options) string {
	if len(opts) == 0 {
		return "{}"
	}
	keys := make([]string, 0, len(opts))
	for k := range opts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, opts[k]))
	}
	return "{" + strings.Join(parts, " ") + "}"
}
