// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ux renders lessindex CLI output as styled terminal text or plain
// machine-readable lines.
package ux

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// Color palette, deep ocean teals.
var (
	ColorTealBright  = lipgloss.Color("#2CD7C7")
	ColorTealPrimary = lipgloss.Color("#20B9B4")
	ColorTealDeep    = lipgloss.Color("#16858E")
	ColorSlate       = lipgloss.Color("#2C4A54")

	ColorSuccess = lipgloss.Color("#2CD7C7")
	ColorWarning = lipgloss.Color("#F4D03F")
	ColorError   = lipgloss.Color("#E74C3C")
)

type styles struct {
	Title   lipgloss.Style
	Bold    lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Header  lipgloss.Style
	Cell    lipgloss.Style
	Border  lipgloss.Style
	Box     lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		Title:   r.NewStyle().Bold(true).Foreground(ColorTealBright),
		Bold:    r.NewStyle().Bold(true),
		Muted:   r.NewStyle().Foreground(ColorSlate),
		Success: r.NewStyle().Foreground(ColorSuccess),
		Warning: r.NewStyle().Foreground(ColorWarning),
		Error:   r.NewStyle().Foreground(ColorError),
		Header:  r.NewStyle().Bold(true).Foreground(ColorTealPrimary).Padding(0, 1),
		Cell:    r.NewStyle().Padding(0, 1),
		Border:  r.NewStyle().Foreground(ColorTealDeep),
		Box: r.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorTealDeep).
			Padding(0, 1),
	}
}

// Icon is a status glyph.
type Icon string

const (
	IconSuccess Icon = "✓"
	IconWarning Icon = "⚠"
	IconError   Icon = "✗"
	IconPending Icon = "○"
	IconArrow   Icon = "→"
	IconBullet  Icon = "•"
)

// Output writes CLI results to a single writer at a fixed personality
// level.
//
// Thread Safety: Not safe for concurrent use; callers serialize writes.
type Output struct {
	w      io.Writer
	level  PersonalityLevel
	styles styles
}

// NewOutput returns an Output for w. Styles are rendered with the color
// profile lipgloss detects for w, so a non-terminal writer gets no escape
// sequences even at the standard level.
func NewOutput(w io.Writer, level PersonalityLevel) *Output {
	return &Output{
		w:      w,
		level:  level,
		styles: newStyles(lipgloss.NewRenderer(w)),
	}
}

// Stdout returns an Output for os.Stdout at the detected level.
func Stdout() *Output {
	return NewOutput(os.Stdout, DetectPersonality(os.Stdout))
}

// Level returns the personality level.
func (o *Output) Level() PersonalityLevel {
	return o.level
}

// Machine reports whether output is plain text for scripts.
func (o *Output) Machine() bool {
	return o.level == PersonalityMachine
}

func (o *Output) render(s lipgloss.Style, text string) string {
	if o.level != PersonalityStandard {
		return text
	}
	return s.Render(text)
}

func (o *Output) icon(i Icon) string {
	switch i {
	case IconSuccess:
		return o.render(o.styles.Success, string(i))
	case IconWarning:
		return o.render(o.styles.Warning, string(i))
	case IconError:
		return o.render(o.styles.Error, string(i))
	case IconPending:
		return o.render(o.styles.Muted, string(i))
	default:
		return string(i)
	}
}

// Title prints a heading. Machine output omits it.
func (o *Output) Title(text string) {
	if o.Machine() {
		return
	}
	fmt.Fprintln(o.w, o.render(o.styles.Title, text))
}

// Success prints a success line.
func (o *Output) Success(text string) {
	if o.Machine() {
		fmt.Fprintf(o.w, "OK: %s\n", text)
		return
	}
	fmt.Fprintf(o.w, "%s %s\n", o.icon(IconSuccess), o.render(o.styles.Success, text))
}

// Warning prints a warning line.
func (o *Output) Warning(text string) {
	if o.Machine() {
		fmt.Fprintf(o.w, "WARN: %s\n", text)
		return
	}
	fmt.Fprintf(o.w, "%s %s\n", o.icon(IconWarning), o.render(o.styles.Warning, text))
}

// Error prints an error line.
func (o *Output) Error(text string) {
	if o.Machine() {
		fmt.Fprintf(o.w, "ERROR: %s\n", text)
		return
	}
	fmt.Fprintf(o.w, "%s %s\n", o.icon(IconError), o.render(o.styles.Error, text))
}

// Info prints an informational line.
func (o *Output) Info(text string) {
	if o.Machine() {
		fmt.Fprintln(o.w, text)
		return
	}
	fmt.Fprintf(o.w, "%s %s\n", o.render(o.styles.Muted, "│"), text)
}

// Muted prints secondary text. Machine output omits it.
func (o *Output) Muted(text string) {
	if o.Machine() {
		return
	}
	fmt.Fprintln(o.w, o.render(o.styles.Muted, text))
}

// Box prints content under a title in a rounded border.
func (o *Output) Box(title, content string) {
	if o.level != PersonalityStandard {
		fmt.Fprintf(o.w, "%s: %s\n", title, content)
		return
	}
	fmt.Fprintln(o.w, o.styles.Box.Render(o.styles.Title.Render(title)+"\n"+content))
}

// FileStatus prints a file path with a status icon and optional reason.
func (o *Output) FileStatus(path string, status Icon, reason string) {
	switch {
	case o.Machine():
		fmt.Fprintf(o.w, "%s\t%s\t%s\n", status, path, reason)
	case reason != "":
		fmt.Fprintf(o.w, "%s %s %s\n", o.icon(status), path, o.render(o.styles.Muted, "("+reason+")"))
	default:
		fmt.Fprintf(o.w, "%s %s\n", o.icon(status), path)
	}
}

// Table prints rows under headers. Machine output is tab-separated with a
// header line; standard output is a bordered table.
func (o *Output) Table(headers []string, rows [][]string) {
	if o.level != PersonalityStandard {
		fmt.Fprintln(o.w, strings.Join(headers, "\t"))
		for _, row := range rows {
			fmt.Fprintln(o.w, strings.Join(row, "\t"))
		}
		return
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(o.styles.Border).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return o.styles.Header
			}
			return o.styles.Cell
		})
	fmt.Fprintln(o.w, t.String())
}

// Count is one labeled number in a Summary line.
type Count struct {
	Label string
	N     int

	// Warn renders a non-zero count in the warning color.
	Warn bool
}

// Summary prints labeled counts on one line.
func (o *Output) Summary(counts ...Count) {
	parts := make([]string, 0, len(counts))
	if o.Machine() {
		for _, c := range counts {
			parts = append(parts, fmt.Sprintf("%s=%d", c.Label, c.N))
		}
		fmt.Fprintf(o.w, "SUMMARY: %s\n", strings.Join(parts, " "))
		return
	}
	for _, c := range counts {
		style := o.styles.Bold
		if c.Warn && c.N > 0 {
			style = o.styles.Warning
		}
		parts = append(parts, o.render(style, fmt.Sprintf("%d", c.N))+" "+o.render(o.styles.Muted, c.Label))
	}
	fmt.Fprintln(o.w, strings.Join(parts, "  "))
}
