// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package dispatch runs the scan loop: pull an event from the source,
// evaluate the bound filter, hand the result to the reporter. The loop has
// no natural end; it runs until the context is cancelled or the source
// fails unrecoverably.
package dispatch

import (
	"context"
	"errors"

	"github.com/scanner/scanner/internal/event"
	"github.com/scanner/scanner/internal/filter"
	"github.com/scanner/scanner/internal/log"
	"github.com/scanner/scanner/internal/metrics"
	"github.com/scanner/scanner/internal/report"
)

// Source yields the next decoded event, blocking until one is available.
// *stream.Client is the production implementation.
type Source interface {
	Next(ctx context.Context) (event.Event, error)
}

// Counter provides user edit counts for the optional gate. *wiki.Client is
// the production implementation.
type Counter interface {
	EditCount(ctx context.Context, user string) (int, error)
}

// Option adjusts a Dispatcher.
type Option func(*Dispatcher)

// WithVerbose enables non-matched-event console output.
func WithVerbose(verbose bool) Option {
	return func(d *Dispatcher) { d.verbose = verbose }
}

// WithEditCounter wires the edit-count gate. Only consulted for filters
// that set a maximum.
func WithEditCounter(c Counter) Option {
	return func(d *Dispatcher) { d.counter = c }
}

// Dispatcher binds one source, one filter definition and one reporter for
// the process lifetime. Sequential: one event is fully processed before the
// next is pulled.
type Dispatcher struct {
	src     Source
	def     *filter.Definition
	rep     *report.Reporter
	counter Counter
	verbose bool
}

// New builds a Dispatcher. The configuration is explicit here rather than
// ambient so the registry, level and reporter stay decoupled.
func New(src Source, def *filter.Definition, rep *report.Reporter, opts ...Option) *Dispatcher {
	d := &Dispatcher{src: src, def: def, rep: rep}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run pulls and processes events until ctx is cancelled (clean, returns
// nil) or the source fails unrecoverably (returns the error). A failure
// inside a single iteration never terminates the loop.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		ev, err := d.src.Next(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				log.Infof("scan stopped")
				return nil
			}
			return err
		}
		d.process(ctx, ev)
	}
}

// process handles one event. Panics from evaluation or reporting are
// recovered here so a single bad event cannot kill the scan.
func (d *Dispatcher) process(ctx context.Context, ev event.Event) {
	defer func() {
		if r := recover(); r != nil {
			metrics.IterationFailures.Inc()
			log.Errorf("recovered while processing event %s: %v", ev.URI(), r)
		}
	}()

	if !d.allow(ctx, ev) {
		return
	}

	res := filter.Evaluate(ev, d.def)
	if res.FieldMissing {
		log.Debugf("event %s has none of fields %v", ev.URI(), d.def.Fields)
	}
	if res.Matched {
		metrics.MatchesTotal.WithLabelValues(d.def.Name).Inc()
	}

	if err := d.rep.Report(res, d.verbose); err != nil {
		metrics.IterationFailures.Inc()
		log.WithError(err).Error("failed to report event")
	}
}

// allow applies the edit-count gate. Gate lookups are best-effort: an API
// failure lets the event through rather than dropping it.
func (d *Dispatcher) allow(ctx context.Context, ev event.Event) bool {
	if d.counter == nil || d.def.MaxEditCount == 0 {
		return true
	}

	count, err := d.counter.EditCount(ctx, ev.User())
	if err != nil {
		log.WithError(err).Warn("edit count lookup failed, processing anyway")
		return true
	}
	if count > d.def.MaxEditCount {
		d.rep.Skip(ev, count, d.def.MaxEditCount, d.verbose)
		return false
	}
	return true
}
