// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want log.Level
	}{
		{"debug", log.DebugLevel},
		{"WARN", log.WarnLevel},
		{"warning", log.WarnLevel},
		{"error", log.ErrorLevel},
		{"", log.InfoLevel},
		{"bogus", log.InfoLevel},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, ParseLevel(tc.in), "ParseLevel(%q)", tc.in)
	}
}

func TestConfigure_WritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "weasel.log")
	require.NoError(t, Configure(Options{Level: "debug", File: path}))
	t.Cleanup(func() { Close() })

	With("api").Debug("request", "method", "GET", "path", "/history/list")
	require.NoError(t, Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.True(t, strings.Contains(out, "/history/list"), "log output: %s", out)
	assert.Contains(t, out, "api")

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestConfigure_EnvLevel(t *testing.T) {
	t.Setenv("WEASEL_LOG_LEVEL", "error")
	path := filepath.Join(t.TempDir(), "weasel.log")
	require.NoError(t, Configure(Options{File: path}))
	t.Cleanup(func() { Close() })

	assert.Equal(t, log.ErrorLevel, Default().GetLevel())
}
