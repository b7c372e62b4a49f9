// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package discovery handles dynamic compute-endpoint configuration.
package discovery

import (
	"net/url"
	"strings"
)

// Document represents the endpoint configuration published by the service.
type Document struct {
	Version int              `json:"version"`
	Compute ComputeEndpoints `json:"compute"`
	HTTP    HTTPEndpoints    `json:"http"`
}

// ComputeEndpoints contains the hosted compute service addresses.
type ComputeEndpoints struct {
	Relay string `json:"relay_origin"` // Full URL with scheme (e.g., "https://compute.example.com" or "grpc://localhost:50051")
}

// HTTPEndpoints contains REST endpoint paths on the service domain.
type HTTPEndpoints struct {
	Health  string `json:"health"`  // e.g., "/api/health"
	Version string `json:"version"` // e.g., "/api/version"
}

// HTTPBaseURL extracts the base URL from the compute relay address.
// This assumes the HTTP API is hosted on the same domain as the relay.
func (d *Document) HTTPBaseURL() string {
	u, err := url.Parse(d.Compute.Relay)
	if err != nil {
		return ""
	}

	// Construct base URL from scheme + host
	scheme := u.Scheme
	if scheme == "grpc" || scheme == "grpcs" {
		// Map gRPC schemes to HTTP
		if scheme == "grpcs" {
			scheme = "https"
		} else {
			scheme = "http"
		}
	}

	host := u.Host
	if strings.HasPrefix(host, "compute.") {
		host = strings.TrimPrefix(host, "compute.")
	}

	base := scheme + "://" + host
	return strings.TrimRight(base, "/")
}

// RelayAddress extracts the host:port from the relay URL.
func (d *Document) RelayAddress() string {
	u, err := url.Parse(d.Compute.Relay)
	if err != nil {
		return ""
	}
	return u.Host
}
