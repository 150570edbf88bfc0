// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package filter

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	ac "github.com/petar-dambovaliev/aho-corasick"

	"github.com/scanner/scanner/internal/config"
	"github.com/scanner/scanner/internal/event"
)

// ErrUnknownFilter is returned by Registry.Resolve for names not present in
// the registry.
var ErrUnknownFilter = errors.New("unknown filter")

// Definition is one compiled filter. Immutable after load; shared read-only
// by all dispatch cycles.
type Definition struct {
	// Name is the unique registry key, also used on console and log output.
	Name string
	// Fields are the gjson paths tested against the pattern, in order.
	Fields []string
	// MaxEditCount skips events from users with more edits; 0 disables.
	MaxEditCount int

	re        *regexp.Regexp
	prefilter *ac.AhoCorasick
}

// Pattern returns the source text of the compiled expression.
func (d *Definition) Pattern() string {
	return d.re.String()
}

// Result is the outcome of applying one filter to one event. Transient;
// constructed by Evaluate and consumed by the reporter.
type Result struct {
	Matched bool
	// Excerpt is the first matched span, empty when Matched is false.
	Excerpt string
	// FieldMissing reports that none of the selected fields existed on the
	// event. Diagnostic only; such events are plain no-matches.
	FieldMissing bool
	Event        event.Event
	Filter       string
}

// Registry maps filter names to their compiled definitions. Loaded once at
// startup; no mutation after load.
type Registry struct {
	defs map[string]*Definition
}

// NewRegistry compiles every configured filter. Any uncompilable pattern is
// a load error so a bad registry never reaches the dispatch loop.
func NewRegistry(filters map[string]config.Filter) (*Registry, error) {
	defs := make(map[string]*Definition, len(filters))
	for name, fc := range filters {
		def, err := compile(name, fc)
		if err != nil {
			return nil, err
		}
		defs[name] = def
	}
	return &Registry{defs: defs}, nil
}

// Resolve returns the definition for name. The same *Definition is returned
// across calls. Unknown names fail with ErrUnknownFilter naming the filters
// that do exist, since running without an active filter would silently
// discard the whole stream.
func (r *Registry) Resolve(name string) (*Definition, error) {
	if def, ok := r.defs[name]; ok {
		return def, nil
	}
	return nil, fmt.Errorf("%w %q (known filters: %s)",
		ErrUnknownFilter, name, strings.Join(r.Names(), ", "))
}

// Names returns the registered filter names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.defs))
	for name := range r.defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func compile(name string, fc config.Filter) (*Definition, error) {
	pattern := fc.Pattern
	if fc.CaseInsensitive {
		pattern = "(?i)" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("filter %q: %w", name, err)
	}

	fields := fc.Fields
	if len(fields) == 0 {
		fields = []string{fc.Field}
	}

	def := &Definition{
		Name:         name,
		Fields:       fields,
		MaxEditCount: fc.MaxEditCount,
		re:           re,
	}

	if len(fc.Keywords) > 0 {
		builder := ac.NewAhoCorasickBuilder(ac.Opts{
			AsciiCaseInsensitive: fc.CaseInsensitive,
			MatchKind:            ac.LeftMostLongestMatch,
		})
		automaton := builder.Build(fc.Keywords)
		def.prefilter = &automaton
	}

	return def, nil
}

// Evaluate applies def to ev. Pure and deterministic: the same event and
// definition always yield the same result. Fields absent from the event are
// skipped; if every selected field is absent the result is a no-match with
// FieldMissing set. The first field whose text matches wins, and the excerpt
// is the first matched span within it.
func Evaluate(ev event.Event, def *Definition) Result {
	res := Result{Event: ev, Filter: def.Name, FieldMissing: true}

	for _, field := range def.Fields {
		text, ok := ev.Field(field)
		if !ok {
			continue
		}
		res.FieldMissing = false

		// Literal keyword prefilter: a miss rules the field out without
		// running the regexp.
		if def.prefilter != nil && len(def.prefilter.FindAll(text)) == 0 {
			continue
		}

		if loc := def.re.FindStringIndex(text); loc != nil {
			res.Matched = true
			res.Excerpt = text[loc[0]:loc[1]]
			return res
		}
	}

	return res
}
