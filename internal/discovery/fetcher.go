// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package discovery

import (
	"context"
	"crypto"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"io"
	"net/http"
	"time"
)

const endpointsPublicKeyPEM = `-----BEGIN PUBLIC KEY-----
MIIBIjANBgkqhkiG9w0BAQEFAAOCAQ8AMIIBCgKCAQEA2qUUrqCZ3eJhODOefUDK
hT+rRt81iFjkMmTq+ECY9j+zGFEximtoDGIt1MyGkr7Bq13AqPjJgDAbCcYRchEd
pvYK3Bzlyi7nz9doDohnSVu+U/PM6B8aC4j4X8pSYlHGZtJO3dUY9b4z+0abL1bt
EQpnSLqxatP7BX0HM/pJ/3PnGsEMb7hIviSkRwhpcpL0DmSZ02pGI2wqABnpb4mJ
4iLipfwHzjwYtkpZc//F43vWUY7iLT+eozohZChGQ8vwpkI3iAU5SFFFBOmTkIKi
fc/toPdjG0jrSy6dSzrKzHJ91uY++5/IUsrEqtaLFU/sHYJI39BcgmOfijA1mOYZ
PQIDAQAB
-----END PUBLIC KEY-----`

const endpointsURL = "https://seedfa.st/relay-endpoints.json"

// fetchFromServer retrieves the endpoints document with signature verification.
func fetchFromServer(ctx context.Context) (*Document, error) {
	client := &http.Client{Timeout: 15 * time.Second}

	req, err := http.NewRequestWithContext(ctx, "GET", endpointsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	// Add User-Agent header for better server compatibility
	req.Header.Set("User-Agent", "credrelay/1.0")
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch endpoints: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server returned status %d", resp.StatusCode)
	}

	// Read response body
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	// Verify signature if header is present
	if sig := resp.Header.Get("X-Endpoints-Signature"); sig != "" {
		if err := verifySignature(body, sig); err != nil {
			return nil, fmt.Errorf("signature verification failed: %w", err)
		}
	}

	// Parse JSON
	var doc Document
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("parse endpoints JSON: %w", err)
	}

	// Basic validation
	if doc.Version == 0 {
		return nil, fmt.Errorf("invalid endpoints document: missing version field")
	}
	if doc.Compute.Relay == "" {
		return nil, fmt.Errorf("invalid endpoints document: missing compute.relay field")
	}

	return &doc, nil
}

// verifySignature validates the RSA-SHA256 signature of the document.
func verifySignature(body []byte, signatureB64 string) error {
	// Decode base64 signature
	sig, err := base64.StdEncoding.DecodeString(signatureB64)
	if err != nil {
		return fmt.Errorf("decode signature: %w", err)
	}

	// Parse public key
	block, _ := pem.Decode([]byte(endpointsPublicKeyPEM))
	if block == nil {
		return fmt.Errorf("failed to parse PEM block")
	}

	pubKey, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return fmt.Errorf("parse public key: %w", err)
	}

	rsaPubKey, ok := pubKey.(*rsa.PublicKey)
	if !ok {
		return fmt.Errorf("not an RSA public key")
	}

	// Compute SHA256 hash of body
	hash := sha256.Sum256(body)

	// Verify signature
	if err := rsa.VerifyPKCS1v15(rsaPubKey, crypto.SHA256, hash[:], sig); err != nil {
		return fmt.Errorf("signature mismatch: %w", err)
	}

	return nil
}
