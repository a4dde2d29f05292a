// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package symbols extracts top-level variables, mixin declarations and
// imports from LESS source.
//
// Extraction is best effort. Nothing is evaluated: values are raw text,
// mixin calls are told apart from declarations by the tokens that follow
// the parameter list, and everything nested inside a ruleset or a mixin
// body is skipped.
//
// Example:
//
//	table := symbols.Extract("@primary: #333;\n.button(@size: 1em) { }")
//	// table.Variables[0].Name == "@primary"
//	// table.Mixins[0].Parameters[0].Name == "@size"
package symbols
