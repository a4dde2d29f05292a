// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ux

import (
	"bytes"
	"strings"
	"testing"
)

func TestOutput_Machine(t *testing.T) {
	var buf bytes.Buffer
	out := NewOutput(&buf, PersonalityMachine)

	out.Title("ignored")
	out.Muted("ignored")
	out.Success("indexed")
	out.Warning("slow")
	out.Error("broken")
	out.Info("note")
	out.FileStatus("a.less", IconError, "invalid utf-8")
	out.Table([]string{"KIND", "NAME"}, [][]string{{"variable", "@a"}, {"mixin", ".m"}})
	out.Summary(Count{Label: "files", N: 2}, Count{Label: "errors", N: 1, Warn: true})

	want := "OK: indexed\n" +
		"WARN: slow\n" +
		"ERROR: broken\n" +
		"note\n" +
		"✗\ta.less\tinvalid utf-8\n" +
		"KIND\tNAME\n" +
		"variable\t@a\n" +
		"mixin\t.m\n" +
		"SUMMARY: files=2 errors=1\n"
	if got := buf.String(); got != want {
		t.Errorf("machine output mismatch\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestOutput_Minimal(t *testing.T) {
	var buf bytes.Buffer
	out := NewOutput(&buf, PersonalityMinimal)

	out.Success("done")
	out.FileStatus("a.less", IconSuccess, "")
	out.Box("Title", "body")

	want := "✓ done\n✓ a.less\nTitle: body\n"
	if got := buf.String(); got != want {
		t.Errorf("minimal output = %q, want %q", got, want)
	}
}

func TestOutput_StandardTable(t *testing.T) {
	var buf bytes.Buffer
	out := NewOutput(&buf, PersonalityStandard)

	out.Table([]string{"KIND", "NAME"}, [][]string{{"variable", "@primary"}})
	got := buf.String()

	for _, want := range []string{"KIND", "NAME", "variable", "@primary", "╭", "╯"} {
		if !strings.Contains(got, want) {
			t.Errorf("table output missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "\t") {
		t.Errorf("standard table should not be tab-separated:\n%s", got)
	}
}

func TestOutput_StandardSummary(t *testing.T) {
	var buf bytes.Buffer
	out := NewOutput(&buf, PersonalityStandard)
	out.Summary(Count{Label: "files", N: 3}, Count{Label: "errors", N: 0, Warn: true})

	got := buf.String()
	if !strings.Contains(got, "3") || !strings.Contains(got, "files") || !strings.Contains(got, "errors") {
		t.Errorf("summary = %q", got)
	}
	if out.Machine() {
		t.Error("standard output should not be machine")
	}
	if out.Level() != PersonalityStandard {
		t.Errorf("Level() = %q", out.Level())
	}
}
