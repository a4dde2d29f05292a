// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package symbols

import (
	"regexp"
	"strings"

	"github.com/AleutianAI/lessindex/services/lessindex/token"
)

// importPattern matches the statement text after "@import": an optional
// "(mode, ...)" list, a mandatory whitespace byte, then a quoted path.
var importPattern = regexp.MustCompile(`(?:\(([\w,\s-]+)\))?\s['"](.*)['"]`)

// importStatement records "@import ...;". Statements that do not match
// importPattern, such as url() imports, are dropped.
func (x *extractor) importStatement(pos int) int {
	var stmt strings.Builder
	i := pos + 1
	for ; i < len(x.tokens) && x.tokens[i].Kind != token.Semicolon; i++ {
		stmt.WriteString(x.tokens[i].Text)
	}

	if imp, ok := parseImport(stmt.String()); ok {
		imp.Offset = x.tokens[pos].Offset
		x.table.Imports = append(x.table.Imports, imp)
	}
	return x.skipPast(i)
}

func parseImport(stmt string) (Import, bool) {
	m := importPattern.FindStringSubmatch(stmt)
	if m == nil {
		return Import{}, false
	}

	imp := Import{
		Filepath: m[2],
		Modes:    parseModes(m[1]),
	}
	imp.Dynamic = strings.ContainsAny(imp.Filepath, "@{}*")
	imp.CSS = strings.HasSuffix(imp.Filepath, ".css") || imp.HasMode("css")
	return imp, true
}

func parseModes(list string) []string {
	modes := make([]string, 0)
	for _, m := range strings.Split(list, ",") {
		if m = strings.ToLower(strings.TrimSpace(m)); m != "" {
			modes = append(modes, m)
		}
	}
	return modes
}
