// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package discovery

import (
	"context"
	"sync"

	"seedfast/credrelay/internal/httperrors"
)

// The fetched document is memoized for the life of the process. The mutex is
// held across the fetch, so concurrent first calls resolve one request.
var (
	memoMu sync.Mutex
	memo   *Document
)

// Endpoints returns the published endpoints document, fetching and verifying
// it on first use. It is the entry point for resolving the compute address.
func Endpoints(ctx context.Context) (*Document, error) {
	memoMu.Lock()
	defer memoMu.Unlock()
	if memo != nil {
		return memo, nil
	}

	doc, err := fetchFromServer(ctx)
	if err != nil {
		return nil, httperrors.FormatNetworkError(err, "fetching the endpoints document")
	}
	memo = doc
	return doc, nil
}

// Reset drops the memoized document so the next call refetches (primarily for
// testing).
func Reset() {
	memoMu.Lock()
	defer memoMu.Unlock()
	memo = nil
}
