// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/jinterlante1206/AleutianDispatch/pkg/lazymodule"
	"github.com/jinterlante1206/AleutianDispatch/pkg/validation"
)

// Manifest describes a lazy module for offline selection diagnostics: a
// family of arithmetic demo implementations with per-options score rules.
//
// Example:
//
//	name: hasher
//	default_options:
//	  arch: arm64
//	fallback:
//	  kind: add
//	  operand: 1
//	implementations:
//	  - name: simd
//	    kind: multiply
//	    operand: 100
//	    rules:
//	      - match: {arch: arm64}
//	        score: 1.0
//	      - score: 0.0
//	options_sets:
//	  - {arch: arm64}
//	  - {arch: amd64}
type Manifest struct {
	// Name is the lazy module's diagnostic name.
	Name string `yaml:"name"`

	// DefaultOptions feeds the module's default selection slot.
	DefaultOptions map[string]any `yaml:"default_options"`

	// Fallback is the mandatory pure implementation.
	Fallback ManifestFn `yaml:"fallback"`

	// Implementations are the scored candidates, in registration order.
	Implementations []ManifestImpl `yaml:"implementations"`

	// OptionsSets are the options objects probe evaluates.
	OptionsSets []map[string]any `yaml:"options_sets"`
}

// ManifestFn describes a demo function: an arithmetic operation applied to
// the call's first argument.
type ManifestFn struct {
	// Kind is one of "add", "multiply", or "identity".
	Kind string `yaml:"kind"`

	// Operand is the right-hand side for add/multiply.
	Operand float64 `yaml:"operand"`
}

// ManifestImpl is one candidate implementation in a manifest.
type ManifestImpl struct {
	Name    string         `yaml:"name"`
	Kind    string         `yaml:"kind"`
	Operand float64        `yaml:"operand"`
	Rules   []ManifestRule `yaml:"rules"`
}

// ManifestRule maps options to a capability score. Rules are evaluated in
// order; the first rule whose match pairs are all present in the options
// wins. A rule without a match clause matches everything. No matching rule
// means the implementation does not support the options.
type ManifestRule struct {
	Match map[string]any `yaml:"match"`
	Score float64        `yaml:"score"`
}

// loadManifest reads and validates a selection manifest.
func loadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}
	if err := validation.ValidateName(m.Name); err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}
	if m.Fallback.Kind == "" {
		return nil, fmt.Errorf("manifest %s: fallback is required", path)
	}
	for i, impl := range m.Implementations {
		if impl.Name == "" {
			return nil, fmt.Errorf("manifest %s: implementation %d: name is required", path, i)
		}
		if err := validation.ValidateName(impl.Name); err != nil {
			return nil, fmt.Errorf("manifest %s: implementation %d: %w", path, i, err)
		}
		if len(impl.Rules) == 0 {
			return nil, fmt.Errorf("manifest %s: implementation %q: at least one rule is required", path, impl.Name)
		}
	}
	return &m, nil
}

// fnFor builds the demo function for a manifest function description.
func fnFor(spec ManifestFn) (lazymodule.Fn, error) {
	switch spec.Kind {
	case "add":
		return func(args ...any) (any, error) {
			x, err := argAsFloat(args)
			if err != nil {
				return nil, err
			}
			return x + spec.Operand, nil
		}, nil
	case "multiply":
		return func(args ...any) (any, error) {
			x, err := argAsFloat(args)
			if err != nil {
				return nil, err
			}
			return x * spec.Operand, nil
		}, nil
	case "identity":
		return func(args ...any) (any, error) {
			x, err := argAsFloat(args)
			if err != nil {
				return nil, err
			}
			return x, nil
		}, nil
	default:
		return nil, fmt.Errorf("unknown function kind %q", spec.Kind)
	}
}

func argAsFloat(args []any) (float64, error) {
	if len(args) == 0 {
		return 0, fmt.Errorf("demo function needs one numeric argument")
	}
	switch v := args[0].(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	default:
		return 0, fmt.Errorf("demo function needs a numeric argument, got %T", args[0])
	}
}

// supportsFor compiles a rule list into a supports predicate.
func supportsFor(rules []ManifestRule) lazymodule.SupportsFunc {
	return func(opts lazymodule.Options) (float64, bool) {
		for _, rule := range rules {
			if ruleMatches(rule, opts) {
				return rule.Score, true
			}
		}
		return 0, false
	}
}

func ruleMatches(rule ManifestRule, opts lazymodule.Options) bool {
	for k, want := range rule.Match {
		got, present := opts[k]
		if !present || fmt.Sprintf("%v", got) != fmt.Sprintf("%v", want) {
			return false
		}
	}
	return true
}

// buildModule constructs the lazy module a manifest describes, registering
// every candidate in manifest order.
func buildModule(m *Manifest) (*lazymodule.Module, error) {
	fallbackFn, err := fnFor(m.Fallback)
	if err != nil {
		return nil, fmt.Errorf("manifest %q: fallback: %w", m.Name, err)
	}

	mod, err := lazymodule.New(lazymodule.Config{
		Name:           m.Name,
		DefaultOptions: lazymodule.Options(m.DefaultOptions),
		Fallback:       func() (lazymodule.Fn, error) { return fallbackFn, nil },
		Logger:         logger,
	})
	if err != nil {
		return nil, err
	}

	for _, impl := range m.Implementations {
		fn, err := fnFor(ManifestFn{Kind: impl.Kind, Operand: impl.Operand})
		if err != nil {
			return nil, fmt.Errorf("manifest %q: implementation %q: %w", m.Name, impl.Name, err)
		}
		err = mod.Register(lazymodule.Implementation{
			Name:     impl.Name,
			Supports: supportsFor(impl.Rules),
			Load:     func() (lazymodule.Fn, error) { return fn, nil },
		})
		if err != nil {
			return nil, err
		}
	}
	return mod, nil
}
