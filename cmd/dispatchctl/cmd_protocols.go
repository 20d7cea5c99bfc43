// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jinterlante1206/AleutianDispatch/pkg/protocol"
	"github.com/jinterlante1206/AleutianDispatch/pkg/ux"
)

var protocolsCmd = &cobra.Command{
	Use:   "protocols",
	Short: "Run the built-in demo protocol and print dispatch diagnostics",
	Long: `Defines a demo "sequence" protocol, extends it for several receiver
types (including the null marker and the object fallback), performs a few
dispatches, and prints the protocol's methods, implementors, and dispatch
counters.`,
	RunE: runProtocols,
}

func init() {
	rootCmd.AddCommand(protocolsCmd)
}

// demoSequenceProtocol builds the protocol the protocols command inspects.
func demoSequenceProtocol() *protocol.Protocol {
	seq := protocol.Define("sequence", map[string]string{
		"first": "returns the first element of the receiver",
		"rest":  "returns the receiver without its first element",
		"empty": "reports whether the receiver has no elements",
	})
	seq.SetLogger(logger)

	seq.MustExtend(protocol.TargetFor[[]any](), map[string]protocol.Method{
		"first": func(recv any, _ ...any) (any, error) {
			s := recv.([]any)
			if len(s) == 0 {
				return nil, fmt.Errorf("first of empty sequence")
			}
			return s[0], nil
		},
		"rest": func(recv any, _ ...any) (any, error) {
			s := recv.([]any)
			if len(s) == 0 {
				return []any{}, nil
			}
			return s[1:], nil
		},
		"empty": func(recv any, _ ...any) (any, error) {
			return len(recv.([]any)) == 0, nil
		},
	})

	seq.MustExtend(protocol.TargetFor[string](), map[string]protocol.Method{
		"first": func(recv any, _ ...any) (any, error) {
			s := recv.(string)
			if s == "" {
				return nil, fmt.Errorf("first of empty string")
			}
			return string(s[0]), nil
		},
		"empty": func(recv any, _ ...any) (any, error) {
			return recv.(string) == "", nil
		},
	})

	seq.MustExtend(protocol.Null, map[string]protocol.Method{
		"empty": func(any, ...any) (any, error) { return true, nil },
	})

	seq.MustExtend(protocol.ObjectFallback, map[string]protocol.Method{
		"empty": func(recv any, _ ...any) (any, error) {
			if m, ok := recv.(map[string]any); ok {
				return len(m) == 0, nil
			}
			return false, nil
		},
	})

	return seq
}

func runProtocols(cmd *cobra.Command, args []string) error {
	seq := demoSequenceProtocol()

	// Exercise each dispatch path once so the counters carry signal.
	calls := []struct {
		method   string
		receiver any
	}{
		{"first", []any{7, 8, 9}},
		{"rest", []any{7, 8, 9}},
		{"first", "abc"},
		{"empty", nil},
		{"empty", map[string]any{"k": 1}}, // object fallback
		{"first", 42},                     // intentional miss
	}

	ux.KeyValue("protocol", fmt.Sprintf("%s (%s)", seq.Name(), seq.ID()))
	fmt.Println()
	ux.Title("dispatches:")
	for _, c := range calls {
		v, err := seq.Call(c.method, c.receiver)
		if err != nil {
			fmt.Printf("  %s(%v) -> error: %v\n", c.method, c.receiver, err)
			continue
		}
		fmt.Printf("  %s(%v) -> %v\n", c.method, c.receiver, v)
	}

	fmt.Println()
	ux.Title("methods:")
	for _, m := range seq.Methods() {
		fmt.Printf("  %-8s %s\n", m, seq.Doc(m))
	}

	fmt.Println()
	ux.Title("implementors:")
	for _, name := range seq.Implementors() {
		fmt.Printf("  %s\n", name)
	}

	stats := seq.Stats()
	fmt.Println()
	ux.Muted(fmt.Sprintf("dispatches: %d  direct: %d  fallback: %d  misses: %d",
		stats.Dispatches, stats.DirectHits, stats.FallbackHits, stats.Misses))
	return nil
}
