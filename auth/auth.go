// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidToken = errors.New("invalid token format")
	ErrBadSignature = errors.New("voter token signature mismatch")
)

const voterIDBytes = 18

// GenerateSecret creates a random signing secret for voter tokens
func GenerateSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate secret: %w", err)
	}
	return encode(b), nil
}

// GenerateVoterToken creates a signed voter token: a random voter id and
// an HMAC of it, so the server can verify tokens without storing them.
func GenerateVoterToken(secret string) (string, error) {
	b := make([]byte, voterIDBytes) // 144 bits of entropy
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate voter token: %w", err)
	}
	id := encode(b)
	return id + "." + sign(id, secret), nil
}

// ValidateVoterToken checks a token's shape and signature
func ValidateVoterToken(token, secret string) error {
	id, sig, ok := strings.Cut(token, ".")
	if !ok || id == "" || sig == "" {
		return ErrInvalidToken
	}
	raw, err := base64.RawURLEncoding.DecodeString(id)
	if err != nil || len(raw) != voterIDBytes {
		return ErrInvalidToken
	}
	if !hmac.Equal([]byte(sig), []byte(sign(id, secret))) {
		return ErrBadSignature
	}
	return nil
}

func sign(id, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(id))
	// first 16 bytes are plenty for a voter token tag
	return encode(h.Sum(nil)[:16])
}

// URL-safe base64 without padding
func encode(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}
