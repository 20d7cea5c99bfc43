// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package ux provides terminal output styling for the dispatch CLI.
package ux

import (
	"fmt"
	"os"
	"sync/atomic"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// Aleutian color palette - deep ocean teals and arctic waters
var (
	ColorTealBright = lipgloss.Color("#2CD7C7") // highlights, selected entries
	ColorTealDeep   = lipgloss.Color("#16858E") // accents
	ColorSlate      = lipgloss.Color("#2C4A54") // muted text
	ColorWarning    = lipgloss.Color("#F4D03F")
	ColorError      = lipgloss.Color("#E74C3C")
)

// Styles provides pre-configured lipgloss styles for CLI output.
var Styles = struct {
	Title     lipgloss.Style
	Highlight lipgloss.Style
	Muted     lipgloss.Style
	Success   lipgloss.Style
	Warning   lipgloss.Style
	Error     lipgloss.Style
}{
	Title:     lipgloss.NewStyle().Bold(true).Foreground(ColorTealBright),
	Highlight: lipgloss.NewStyle().Foreground(ColorTealBright).Bold(true),
	Muted:     lipgloss.NewStyle().Foreground(ColorSlate),
	Success:   lipgloss.NewStyle().Foreground(ColorTealBright),
	Warning:   lipgloss.NewStyle().Foreground(ColorWarning),
	Error:     lipgloss.NewStyle().Foreground(ColorError),
}

// plain disables all styling. Set when stdout is not a terminal, when
// NO_COLOR is present, or explicitly via SetPlain.
var plain atomic.Bool

func init() {
	if _, noColor := os.LookupEnv("NO_COLOR"); noColor {
		plain.Store(true)
		return
	}
	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		plain.Store(true)
	}
}

// SetPlain forces styling on or off, overriding terminal detection.
func SetPlain(v bool) { plain.Store(v) }

// Plain reports whether output is unstyled.
func Plain() bool { return plain.Load() }

func render(s lipgloss.Style, text string) string {
	if plain.Load() {
		return text
	}
	return s.Render(text)
}

// Title prints a styled section title.
func Title(text string) {
	fmt.Println(render(Styles.Title, text))
}

// Success prints a success line with a checkmark.
func Success(text string) {
	if plain.Load() {
		fmt.Printf("OK: %s\n", text)
		return
	}
	fmt.Printf("%s %s\n", Styles.Success.Render("✓"), text)
}

// Warning prints a warning line to stderr.
func Warning(text string) {
	if plain.Load() {
		fmt.Fprintf(os.Stderr, "WARN: %s\n", text)
		return
	}
	fmt.Fprintf(os.Stderr, "%s %s\n", Styles.Warning.Render("⚠"), Styles.Warning.Render(text))
}

// Error prints an error line to stderr.
func Error(text string) {
	if plain.Load() {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", text)
		return
	}
	fmt.Fprintf(os.Stderr, "%s %s\n", Styles.Error.Render("✗"), Styles.Error.Render(text))
}

// Muted prints secondary text.
func Muted(text string) {
	fmt.Println(render(Styles.Muted, text))
}

// KeyValue prints an aligned "key: value" diagnostic line.
func KeyValue(key string, value any) {
	fmt.Printf("%s %v\n", render(Styles.Muted, fmt.Sprintf("%-10s", key+":")), value)
}

// ScoreLine prints one scoreboard entry. Selected entries are
// highlighted, unsupported ones muted.
func ScoreLine(name string, score float64, supported, selected bool) {
	label := fmt.Sprintf("  %-20s", name)
	switch {
	case !supported:
		fmt.Printf("%s %s\n", render(Styles.Muted, label), render(Styles.Muted, "unsupported"))
	case selected:
		fmt.Printf("%s %s\n", render(Styles.Highlight, label), render(Styles.Highlight, fmt.Sprintf("%.2f  (selected)", score)))
	default:
		fmt.Printf("%s %.2f\n", label, score)
	}
}
