// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jinterlante1206/AleutianDispatch/pkg/lazymodule"
	"github.com/jinterlante1206/AleutianDispatch/pkg/ux"
)

var (
	selectManifestPath string
	selectOptionPairs  []string
)

var selectCmd = &cobra.Command{
	Use:   "select",
	Short: "Evaluate one options object against a selection manifest",
	Long: `Loads a selection manifest, builds the lazy module it describes, and
reports which implementation wins for the given options, alongside the
full scoreboard of every candidate.`,
	RunE: runSelect,
}

func init() {
	selectCmd.Flags().StringVarP(&selectManifestPath, "manifest", "m", "",
		"path to the selection manifest YAML (required)")
	selectCmd.Flags().StringArrayVarP(&selectOptionPairs, "options", "o", nil,
		"options as key=value pairs (repeatable); defaults to the manifest's default_options")
	_ = selectCmd.MarkFlagRequired("manifest")
	rootCmd.AddCommand(selectCmd)
}

func runSelect(cmd *cobra.Command, args []string) error {
	manifest, err := loadManifest(selectManifestPath)
	if err != nil {
		return err
	}
	mod, err := buildModule(manifest)
	if err != nil {
		return err
	}

	opts := lazymodule.Options(manifest.DefaultOptions)
	if len(selectOptionPairs) > 0 {
		opts, err = parseOptionPairs(selectOptionPairs)
		if err != nil {
			return err
		}
	}

	sel, err := mod.Selection(opts)
	if err != nil {
		return err
	}

	ux.KeyValue("module", mod.Name())
	ux.KeyValue("selected", fmt.Sprintf("%s (score %.2f)", sel.Name, sel.Score))
	fmt.Println()
	printScoreboard(mod, opts, sel.Name)
	return nil
}

// printScoreboard scores every registered candidate for the options and
// prints one line each, marking the winner and unsupported candidates.
func printScoreboard(mod *lazymodule.Module, opts lazymodule.Options, selected string) {
	ux.Title("scoreboard:")
	for _, info := range mod.Implementations() {
		score, ok := info.Supports(opts)
		ux.ScoreLine(info.Name, score, ok, ok && info.Name == selected)
	}
}

// parseOptionPairs converts key=value flags to an options object. Values
// parse as bool, then number, then fall back to string.
func parseOptionPairs(pairs []string) (lazymodule.Options, error) {
	opts := lazymodule.Options{}
	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("invalid option %q: want key=value", pair)
		}
		opts[key] = parseOptionValue(value)
	}
	return opts, nil
}

func parseOptionValue(value string) any {
	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}
	if n, err := strconv.ParseFloat(value, 64); err == nil {
		return n
	}
	return value
}
