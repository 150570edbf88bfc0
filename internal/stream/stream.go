// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package stream maintains a persistent connection to a server-sent event
// feed and yields decoded events as a conceptually infinite sequence. The
// client is a pure event source: it knows nothing about filters or logging.
package stream

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/scanner/scanner/internal/config"
	"github.com/scanner/scanner/internal/event"
	"github.com/scanner/scanner/internal/log"
	"github.com/scanner/scanner/internal/metrics"
)

// Frames on the recentchange feed are usually a few KB but can spike with
// large edit summaries and long titles.
const maxFrameSize = 1 << 20

// Client consumes one SSE endpoint. Not safe for concurrent use; the
// dispatch loop is the single consumer.
type Client struct {
	url            string
	backoffInitial time.Duration
	backoffMax     time.Duration

	http    *retryablehttp.Client
	body    io.ReadCloser
	scanner *bufio.Scanner
	backoff time.Duration
}

// New builds a client for the configured feed. No connection is made until
// Connect.
func New(cfg config.Stream) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 4
	rc.RetryWaitMin = cfg.BackoffInitial.Std()
	rc.RetryWaitMax = cfg.BackoffMax.Std()
	rc.Logger = nil
	rc.HTTPClient.Timeout = 0 // the stream body never ends
	rc.HTTPClient.Transport = &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout: cfg.ConnectTimeout.Std(),
		}).DialContext,
		ResponseHeaderTimeout: cfg.ConnectTimeout.Std(),
	}

	return &Client{
		url:            cfg.URL,
		backoffInitial: cfg.BackoffInitial.Std(),
		backoffMax:     cfg.BackoffMax.Std(),
		http:           rc,
		backoff:        cfg.BackoffInitial.Std(),
	}
}

// Connect establishes the initial connection. A failure here is a startup
// configuration error and should be treated as fatal by the caller; once
// connected, later drops are handled transparently by Next.
func (c *Client) Connect(ctx context.Context) error {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return fmt.Errorf("invalid stream endpoint %q: %w", c.url, err)
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", c.url, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return fmt.Errorf("stream endpoint %s returned %s", c.url, resp.Status)
	}

	c.body = resp.Body
	c.scanner = bufio.NewScanner(resp.Body)
	c.scanner.Buffer(make([]byte, 64*1024), maxFrameSize)
	return nil
}

// Next blocks until the next decodable event arrives. Undecodable frames
// are skipped with a warning, and dropped connections are re-established
// with bounded backoff; the only errors Next returns are ctx cancellation.
func (c *Client) Next(ctx context.Context) (event.Event, error) {
	for {
		if err := ctx.Err(); err != nil {
			return event.Event{}, err
		}

		if c.scanner == nil {
			if err := c.reconnect(ctx); err != nil {
				return event.Event{}, err
			}
			continue
		}

		data, err := c.readFrame()
		if err != nil {
			if ctx.Err() != nil {
				return event.Event{}, ctx.Err()
			}
			log.WithError(err).Warn("stream read failed, reconnecting")
			c.drop()
			continue
		}

		metrics.EventsTotal.Inc()
		ev, err := event.Decode([]byte(data))
		if err != nil {
			metrics.DecodeFailures.Inc()
			log.Warnf("skipping undecodable frame: %v", err)
			continue
		}

		c.backoff = c.backoffInitial
		return ev, nil
	}
}

// Close releases the open connection, if any.
func (c *Client) Close() error {
	if c.body == nil {
		return nil
	}
	err := c.body.Close()
	c.body = nil
	c.scanner = nil
	return err
}

// readFrame accumulates data lines until the blank line that terminates an
// SSE frame. Heartbeat comments (lines starting with ':') and non-data
// fields are ignored.
func (c *Client) readFrame() (string, error) {
	var data []string
	for c.scanner.Scan() {
		line := c.scanner.Text()
		if line == "" {
			if len(data) > 0 {
				return strings.Join(data, "\n"), nil
			}
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}
		if value, ok := strings.CutPrefix(line, "data:"); ok {
			data = append(data, strings.TrimPrefix(value, " "))
		}
	}
	if err := c.scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

// drop discards the dead connection so the next pull reconnects.
func (c *Client) drop() {
	if c.body != nil {
		c.body.Close()
	}
	c.body = nil
	c.scanner = nil
}

// reconnect waits out the current backoff and re-establishes the stream.
// The delay doubles on each consecutive failure up to the cap and resets
// after a successfully decoded frame.
func (c *Client) reconnect(ctx context.Context) error {
	metrics.Reconnects.Inc()

	timer := time.NewTimer(c.backoff)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
	}

	if c.backoff *= 2; c.backoff > c.backoffMax {
		c.backoff = c.backoffMax
	}

	if err := c.Connect(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.WithError(err).Warn("reconnect failed")
		return nil
	}

	log.Infof("reconnected to %s", c.url)
	return nil
}
