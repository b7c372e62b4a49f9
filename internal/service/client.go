// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package service provides a small REST client for the credrelay service
// domain. It covers the unauthenticated endpoints published alongside the
// compute relay: version checking and service health.
package service

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"seedfast/credrelay/internal/discovery"
)

// Client implements API calls over the service REST endpoints.
type Client struct {
	// baseURL is the base URL for all HTTP requests (e.g., "https://seedfa.st")
	baseURL string
	// endpoints contains the URL paths published by discovery
	endpoints discovery.HTTPEndpoints
	// client is the underlying HTTP client with configured timeout
	client *http.Client
}

// New creates a service client with the given base URL and endpoints.
// It configures a 10-second timeout for all requests.
func New(baseURL string, endpoints discovery.HTTPEndpoints) *Client {
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		endpoints: endpoints,
		client:    &http.Client{Timeout: 10 * time.Second},
	}
}

// GetVersion calls the version endpoint and returns the service version when
// available. No authentication required. This can be used to check
// connectivity to the service.
func (c *Client) GetVersion(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+c.endpoints.Version, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "unknown", nil
	}
	var out struct {
		Version string `json:"version"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if out.Version == "" {
		return "unknown", nil
	}
	return out.Version, nil
}

// GetCLIVersion returns the latest published CLI version, or empty when the
// endpoint does not advertise one.
func (c *Client) GetCLIVersion(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+c.endpoints.Version, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", nil
	}
	var out struct {
		CLI string `json:"cli_version"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	return out.CLI, nil
}

// GetHealth calls the health endpoint and reports whether the service answered.
func (c *Client) GetHealth(ctx context.Context) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+c.endpoints.Health, nil)
	if err != nil {
		return false, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK, nil
}
