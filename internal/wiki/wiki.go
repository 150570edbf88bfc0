// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package wiki queries the MediaWiki action API for user attributes used to
// gate the scan.
package wiki

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/tidwall/gjson"
)

// Client is a thin read-only client over one wiki's api.php endpoint.
type Client struct {
	api  string
	http *http.Client
}

// New builds a client for the given site (host name, e.g. "en.wikipedia.org").
// A full http(s) URL is accepted as-is, which the tests rely on.
func New(site string, timeout time.Duration) *Client {
	api := site
	if !strings.HasPrefix(site, "http") {
		api = "https://" + site + "/w/api.php"
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = 2
	rc.Logger = nil
	rc.HTTPClient.Timeout = timeout

	return &Client{api: api, http: rc.StandardClient()}
}

// EditCount returns the user's total edit count.
func (c *Client) EditCount(ctx context.Context, user string) (int, error) {
	params := url.Values{
		"format":  {"json"},
		"action":  {"query"},
		"list":    {"users"},
		"ususers": {user},
		"usprop":  {"editcount"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.api+"?"+params.Encode(), nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("user query failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("failed to read user query response: %w", err)
	}

	count := gjson.GetBytes(body, "query.users.0.editcount")
	if !count.Exists() {
		return 0, fmt.Errorf("no edit count in response for %q", user)
	}
	return int(count.Int()), nil
}
