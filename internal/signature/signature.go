// VenuePulse - Real-Time Venue Occupancy Ingestion and Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/venuepulse

// Package signature implements HMAC-SHA256 payload authentication for the
// ingestion gateway.
//
// Every venue holds a shared secret. Sensors sign the raw request body
// with HMAC-SHA256 and send the hex digest in the X-Signature header. The
// gateway recomputes the digest over the exact bytes it received; any
// re-serialization would change the digest, so verification happens before
// JSON decoding.
//
// Freshness is part of authentication: a valid signature on a stale
// timestamp is still rejected, which bounds how long a captured request
// can be replayed against a rotated-out nonce window.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"
)

// Header is the HTTP header carrying the hex HMAC digest.
const Header = "X-Signature"

var (
	// ErrMissingSignature indicates the signature header was absent or empty.
	ErrMissingSignature = errors.New("missing signature")

	// ErrInvalidSignature indicates the digest did not match the payload.
	ErrInvalidSignature = errors.New("invalid signature")

	// ErrStaleTimestamp indicates the signed timestamp is outside the
	// replay window.
	ErrStaleTimestamp = errors.New("stale timestamp")
)

// Compute returns the hex-encoded HMAC-SHA256 digest of body under secret.
func Compute(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks a hex HMAC-SHA256 digest against the raw payload bytes.
// Comparison uses hmac.Equal to stay constant-time.
//
// Returns ErrMissingSignature for an empty digest, ErrInvalidSignature on
// mismatch, nil on success.
func Verify(secret string, body []byte, provided string) error {
	if provided == "" {
		return ErrMissingSignature
	}

	expected := Compute(secret, body)
	if !hmac.Equal([]byte(provided), []byte(expected)) {
		return ErrInvalidSignature
	}
	return nil
}

// CheckFreshness rejects payloads whose occurred_at timestamp strays more
// than window from now in either direction. Future skew is bounded too so
// a sensor with a broken clock cannot pre-sign events.
//
// Returns ErrStaleTimestamp when outside the window.
func CheckFreshness(occurredAt, now time.Time, window time.Duration) error {
	drift := now.Sub(occurredAt)
	if drift < 0 {
		drift = -drift
	}
	if drift > window {
		return ErrStaleTimestamp
	}
	return nil
}
