// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ux

import (
	"os"
	"strings"
	"testing"
)

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	orig := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	os.Stdout = w
	defer func() { os.Stdout = orig }()

	fn()
	w.Close()

	buf := make([]byte, 4096)
	n, _ := r.Read(buf)
	return string(buf[:n])
}

func TestPlainToggle(t *testing.T) {
	orig := Plain()
	defer SetPlain(orig)

	SetPlain(true)
	if !Plain() {
		t.Fatal("expected plain mode on")
	}
	SetPlain(false)
	if Plain() {
		t.Fatal("expected plain mode off")
	}
}

func TestSuccessPlain(t *testing.T) {
	orig := Plain()
	defer SetPlain(orig)
	SetPlain(true)

	out := captureStdout(t, func() { Success("module built") })
	if out != "OK: module built\n" {
		t.Errorf("got %q", out)
	}
}

func TestKeyValuePlain(t *testing.T) {
	orig := Plain()
	defer SetPlain(orig)
	SetPlain(true)

	out := captureStdout(t, func() { KeyValue("module", "hasher") })
	if !strings.Contains(out, "module:") || !strings.Contains(out, "hasher") {
		t.Errorf("got %q", out)
	}
}

func TestScoreLinePlain(t *testing.T) {
	orig := Plain()
	defer SetPlain(orig)
	SetPlain(true)

	tests := []struct {
		name      string
		score     float64
		supported bool
		selected  bool
		want      string
	}{
		{"simd", 1.0, true, true, "(selected)"},
		{"portable", 0.5, true, false, "0.50"},
		{"gpu", 0, false, false, "unsupported"},
	}

	for _, tt := range tests {
		out := captureStdout(t, func() { ScoreLine(tt.name, tt.score, tt.supported, tt.selected) })
		if !strings.Contains(out, tt.name) || !strings.Contains(out, tt.want) {
			t.Errorf("ScoreLine(%s): got %q, want substring %q", tt.name, out, tt.want)
		}
	}
}
