// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/lessindex/services/lessindex/token"
	"github.com/AleutianAI/lessindex/services/lessindex/tokenizer"
)

func (a *app) newTokensCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tokens FILE",
		Short: "Print the token stream of a stylesheet",
		Args:  cobra.ExactArgs(1),
		RunE:  a.runTokens,
	}
}

func (a *app) runTokens(_ *cobra.Command, args []string) error {
	content, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read %s: %w", args[0], err)
	}
	text := string(content)
	tokens := tokenizer.Tokenize(text)

	if a.format != formatText {
		return a.encode(tokens)
	}

	lines := token.NewLineIndex(text)
	rows := make([][]string, 0, len(tokens))
	for _, t := range tokens {
		rows = append(rows, []string{
			lines.Position(t.Offset).String(),
			strconv.Itoa(t.Offset),
			t.Kind.String(),
			strconv.Quote(t.Text),
		})
	}
	a.out.Table([]string{"POS", "OFFSET", "KIND", "TEXT"}, rows)
	return nil
}
