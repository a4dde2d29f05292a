// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package pathfilter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilter(t *testing.T) {
	f, err := New([]string{".less", ".LESS"}, []string{"node_modules", "*.min.less", "vendor/legacy/*"})
	require.NoError(t, err)

	tests := []struct {
		path    string
		ignored bool
		accepts bool
	}{
		{"theme.less", false, true},
		{"styles/Theme.LESS", false, true},
		{"styles/theme.css", false, false},
		{"node_modules/bootstrap/less/mixins.less", true, false},
		{"a/b/node_modules/x.less", true, false},
		{"dist/app.min.less", true, false},
		{"vendor/legacy/old.less", true, false},
		{"vendor/modern/new.less", false, true},
		{".", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.ignored, f.Ignored(tt.path))
			assert.Equal(t, tt.accepts, f.Accepts(tt.path))
		})
	}
	assert.Equal(t, []string{".less"}, f.Extensions())
}

func TestFilter_NoExtensions(t *testing.T) {
	f, err := New(nil, nil)
	require.NoError(t, err)
	assert.True(t, f.Accepts("anything.txt"))
	assert.Empty(t, f.Extensions())
}

func TestNew_BadPattern(t *testing.T) {
	_, err := New(nil, []string{"[unclosed"})
	assert.ErrorIs(t, err, ErrBadPattern)
}
