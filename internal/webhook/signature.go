// Package webhook authenticates inbound payment notifications.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

var (
	// ErrMissingSignature means the notification carried no signature header
	ErrMissingSignature = errors.New("missing webhook signature")
	// ErrInvalidSignature means the signature did not match the request body
	ErrInvalidSignature = errors.New("invalid webhook signature")
)

// Sign computes the signature header value for a request body.
// Format: "sha256=<hex_signature>"
func Sign(secret string, body []byte) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(body)
	return "sha256=" + hex.EncodeToString(h.Sum(nil))
}

// VerifySignature checks an HMAC-SHA256 signature header against the raw
// request body. The comparison is constant time.
func VerifySignature(secret string, body []byte, header string) error {
	if header == "" {
		return ErrMissingSignature
	}

	encoded, ok := strings.CutPrefix(header, "sha256=")
	if !ok {
		return ErrInvalidSignature
	}

	provided, err := hex.DecodeString(encoded)
	if err != nil {
		return ErrInvalidSignature
	}

	h := hmac.New(sha256.New, []byte(secret))
	h.Write(body)
	if !hmac.Equal(provided, h.Sum(nil)) {
		return ErrInvalidSignature
	}

	return nil
}
