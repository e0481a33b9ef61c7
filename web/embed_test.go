// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package web

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticAssets(t *testing.T) {
	for _, name := range []string{"static/dist/app.css", "static/dist/converter.js"} {
		data, err := fs.ReadFile(Static, name)
		require.NoError(t, err, name)
		assert.NotEmpty(t, data, name)
	}
}

func TestTemplates(t *testing.T) {
	for _, name := range []string{
		"templates/layouts/base.html",
		"templates/pages/converter.html",
		"templates/pages/error.html",
	} {
		_, err := fs.Stat(Templates, name)
		assert.NoError(t, err, name)
	}
}
