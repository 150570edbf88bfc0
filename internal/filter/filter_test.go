// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package filter

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scanner/scanner/internal/config"
	"github.com/scanner/scanner/internal/event"
)

func mustEvent(t *testing.T, raw string) event.Event {
	t.Helper()
	ev, err := event.Decode([]byte(raw))
	require.NoError(t, err)
	return ev
}

func mustDefinition(t *testing.T, name string, fc config.Filter) *Definition {
	t.Helper()
	reg, err := NewRegistry(map[string]config.Filter{name: fc})
	require.NoError(t, err)
	def, err := reg.Resolve(name)
	require.NoError(t, err)
	return def
}

func TestEvaluate(t *testing.T) {
	def := mustDefinition(t, "vandals", config.Filter{
		Field:   "comment",
		Pattern: "vandal",
	})

	cases := []struct {
		name         string
		raw          string
		wantMatched  bool
		wantExcerpt  string
		fieldMissing bool
	}{
		{
			name:        "match captures first span",
			raw:         `{"comment":"revert vandalism"}`,
			wantMatched: true,
			wantExcerpt: "vandal",
		},
		{
			name: "no match",
			raw:  `{"comment":"fixed typo"}`,
		},
		{
			name:         "missing field is a no-match",
			raw:          `{"title":"Some page"}`,
			fieldMissing: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := Evaluate(mustEvent(t, tc.raw), def)
			assert.Equal(t, tc.wantMatched, res.Matched)
			assert.Equal(t, tc.wantExcerpt, res.Excerpt)
			assert.Equal(t, tc.fieldMissing, res.FieldMissing)
			assert.Equal(t, "vandals", res.Filter)
		})
	}
}

func TestEvaluateDeterministic(t *testing.T) {
	def := mustDefinition(t, "f", config.Filter{Field: "comment", Pattern: "vandal"})
	ev := mustEvent(t, `{"comment":"revert vandalism"}`)

	first := Evaluate(ev, def)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Evaluate(ev, def))
	}
}

func TestEvaluateCaseInsensitive(t *testing.T) {
	def := mustDefinition(t, "f", config.Filter{
		Field:           "comment",
		Pattern:         "vandal",
		CaseInsensitive: true,
	})

	res := Evaluate(mustEvent(t, `{"comment":"Reverted VANDALISM"}`), def)
	assert.True(t, res.Matched)
	assert.Equal(t, "VANDAL", res.Excerpt)
}

func TestEvaluateFieldOrder(t *testing.T) {
	def := mustDefinition(t, "f", config.Filter{
		Fields:  []string{"comment", "title"},
		Pattern: "spam",
	})

	// Absent comment is skipped, title still tested.
	res := Evaluate(mustEvent(t, `{"title":"List of spam"}`), def)
	assert.True(t, res.Matched)
	assert.Equal(t, "spam", res.Excerpt)
	assert.False(t, res.FieldMissing)

	// First field in selector order wins.
	res = Evaluate(mustEvent(t, `{"comment":"rm spamlink","title":"spam"}`), def)
	assert.True(t, res.Matched)
}

func TestEvaluateKeywordPrefilter(t *testing.T) {
	// The pattern alone would match anything; the keyword miss must
	// short-circuit to a no-match.
	def := mustDefinition(t, "f", config.Filter{
		Field:    "comment",
		Pattern:  ".",
		Keywords: []string{"userbox"},
	})

	res := Evaluate(mustEvent(t, `{"comment":"fixed typo"}`), def)
	assert.False(t, res.Matched)

	res = Evaluate(mustEvent(t, `{"comment":"added userbox"}`), def)
	assert.True(t, res.Matched)
}

func TestRegistryResolve(t *testing.T) {
	reg, err := NewRegistry(map[string]config.Filter{
		"userboxes": {Field: "comment", Pattern: `\buserbox(e[ns])?\b`},
		"vandals":   {Field: "comment", Pattern: "vandal"},
	})
	require.NoError(t, err)

	def, err := reg.Resolve("userboxes")
	require.NoError(t, err)

	// The same definition object is returned across calls.
	again, err := reg.Resolve("userboxes")
	require.NoError(t, err)
	assert.Same(t, def, again)

	assert.Equal(t, []string{"userboxes", "vandals"}, reg.Names())
}

func TestRegistryResolveUnknown(t *testing.T) {
	reg, err := NewRegistry(map[string]config.Filter{
		"userboxes": {Field: "comment", Pattern: "userbox"},
	})
	require.NoError(t, err)

	_, err = reg.Resolve("nope")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownFilter))
	assert.Contains(t, err.Error(), "userboxes")
}

func TestRegistryBadPattern(t *testing.T) {
	_, err := NewRegistry(map[string]config.Filter{
		"broken": {Field: "comment", Pattern: "("},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
}
