// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scanner.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
stream:
  url: https://stream.example.org/v2/stream/recentchange
  connectTimeout: 5s
site: de.wikipedia.org
log:
  dir: /tmp/scanner-logs
  level: all
metrics:
  addr: ":9109"
filters:
  userboxes:
    fields: [comment, title]
    pattern: '\buserbox(e[ns])?\b'
    caseInsensitive: true
    keywords: [userbox]
    maxEditCount: 500
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://stream.example.org/v2/stream/recentchange", cfg.Stream.URL)
	assert.Equal(t, 5*time.Second, cfg.Stream.ConnectTimeout.Std())
	assert.Equal(t, "de.wikipedia.org", cfg.Site)
	assert.Equal(t, "/tmp/scanner-logs", cfg.Log.Dir)
	assert.Equal(t, "all", cfg.Log.Level)
	assert.Equal(t, ":9109", cfg.Metrics.Addr)

	f := cfg.Filters["userboxes"]
	assert.Equal(t, []string{"comment", "title"}, f.Fields)
	assert.True(t, f.CaseInsensitive)
	assert.Equal(t, []string{"userbox"}, f.Keywords)
	assert.Equal(t, 500, f.MaxEditCount)
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
filters:
  vandals:
    field: comment
    pattern: vandal
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, DefaultStreamURL, cfg.Stream.URL)
	assert.Equal(t, 10*time.Second, cfg.Stream.ConnectTimeout.Std())
	assert.Equal(t, time.Second, cfg.Stream.BackoffInitial.Std())
	assert.Equal(t, 30*time.Second, cfg.Stream.BackoffMax.Std())
	assert.Equal(t, "en.wikipedia.org", cfg.Site)
	assert.Equal(t, "logs", cfg.Log.Dir)
	assert.Equal(t, "match", cfg.Log.Level)
	assert.Empty(t, cfg.Metrics.Addr)
}

func TestLoadErrors(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{
			name: "bad level",
			body: "log:\n  level: chatty\nfilters:\n  f:\n    field: comment\n    pattern: x\n",
			want: "log.level",
		},
		{
			name: "no filters",
			body: "log:\n  level: match\n",
			want: "no filters",
		},
		{
			name: "filter without pattern",
			body: "filters:\n  f:\n    field: comment\n",
			want: "no pattern",
		},
		{
			name: "filter without fields",
			body: "filters:\n  f:\n    pattern: x\n",
			want: "selects no fields",
		},
		{
			name: "negative max edit count",
			body: "filters:\n  f:\n    field: comment\n    pattern: x\n    maxEditCount: -1\n",
			want: "maxEditCount",
		},
		{
			name: "bad duration",
			body: "stream:\n  connectTimeout: soon\nfilters:\n  f:\n    field: comment\n    pattern: x\n",
			want: "invalid duration",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestLoadFromEnvVar(t *testing.T) {
	path := writeConfig(t, `
filters:
  f:
    field: comment
    pattern: x
`)
	t.Setenv("SCANNER_CFG_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, path, cfg.Source)
}
