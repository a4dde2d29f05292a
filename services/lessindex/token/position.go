// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package token

import (
	"fmt"
	"sort"
)

// Position is a 1-based line and column pair. Columns count bytes.
type Position struct {
	Line   int `json:"line" yaml:"line"`
	Column int `json:"column" yaml:"column"`
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// LineIndex maps byte offsets of a text to line/column positions.
//
// LF, FF and a CR that is not followed by LF each end a line, so CRLF
// counts once.
type LineIndex struct {
	// starts[i] is the offset of the first byte of line i+1.
	starts []int
	size   int
}

// NewLineIndex builds the index for text in a single pass.
func NewLineIndex(text string) *LineIndex {
	starts := []int{0}
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '\n', '\f':
			starts = append(starts, i+1)
		case '\r':
			if i+1 >= len(text) || text[i+1] != '\n' {
				starts = append(starts, i+1)
			}
		}
	}
	return &LineIndex{starts: starts, size: len(text)}
}

// Position returns the position of offset. Offsets outside the text are
// clamped to its bounds.
func (li *LineIndex) Position(offset int) Position {
	if offset < 0 {
		offset = 0
	}
	if offset > li.size {
		offset = li.size
	}
	// First line whose start is beyond offset, minus one.
	line := sort.Search(len(li.starts), func(i int) bool {
		return li.starts[i] > offset
	}) - 1
	return Position{Line: line + 1, Column: offset - li.starts[line] + 1}
}

// Lines returns the number of lines in the text.
func (li *LineIndex) Lines() int {
	return len(li.starts)
}
