// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package filter matches edit events against named regular-expression
// filters.
//
// A filter definition names one or more event fields (gjson paths into the
// raw frame) and a pattern. Definitions are compiled once into a Registry at
// startup and are immutable afterwards; exactly one definition, selected on
// the command line, is active per run.
//
// Evaluation is pure: Evaluate extracts the selected fields from the event,
// optionally consults a literal keyword prefilter, and applies the compiled
// expression. Fields missing from an event are tolerated — heterogeneous
// frame shapes are expected on the feed — and produce a no-match rather
// than an error.
package filter
