// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package event holds the decoded unit of the edit feed. Frames arrive as
// JSON of varying shape depending on the stream, so the decoded form keeps
// the raw document and answers field lookups through gjson paths instead of
// unmarshaling into a rigid struct.
package event

import (
	"fmt"
	"time"

	"github.com/tidwall/gjson"
)

// Event is one decoded notification from the edit stream. Immutable once
// decoded.
type Event struct {
	// Raw is the validated JSON document of the frame.
	Raw string
	// Kind is the change type reported by the feed ("edit", "new", "log", ...).
	Kind string
	// Timestamp is the event time from meta.dt, zero if absent.
	Timestamp time.Time
}

// Decode validates a raw frame and extracts the well-known attributes.
func Decode(raw []byte) (Event, error) {
	if !gjson.ValidBytes(raw) {
		return Event{}, fmt.Errorf("frame is not valid JSON")
	}
	doc := string(raw)

	ev := Event{
		Raw:  doc,
		Kind: gjson.Get(doc, "type").String(),
	}
	if dt := gjson.Get(doc, "meta.dt"); dt.Exists() {
		if ts, err := time.Parse(time.RFC3339, dt.String()); err == nil {
			ev.Timestamp = ts
		}
	}
	return ev, nil
}

// Field returns the text of the field at the given gjson path and whether
// the path exists in the event.
func (e Event) Field(path string) (string, bool) {
	res := gjson.Get(e.Raw, path)
	if !res.Exists() {
		return "", false
	}
	return res.String(), true
}

// Title returns the page title, empty if absent.
func (e Event) Title() string {
	return gjson.Get(e.Raw, "title").String()
}

// User returns the acting user name, empty if absent.
func (e Event) User() string {
	return gjson.Get(e.Raw, "user").String()
}

// URI returns the canonical event URI from meta, empty if absent.
func (e Event) URI() string {
	return gjson.Get(e.Raw, "meta.uri").String()
}

// Revision returns the new revision ID, zero if absent.
func (e Event) Revision() int64 {
	return gjson.Get(e.Raw, "revision.new").Int()
}

// ByteDelta returns the size change of the edit (length.new - length.old).
func (e Event) ByteDelta() int64 {
	return gjson.Get(e.Raw, "length.new").Int() - gjson.Get(e.Raw, "length.old").Int()
}
