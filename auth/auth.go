// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Identity namespaces. A chat user and a websocket client never share a vote.
const (
	prefixConnection = "conn:"
	prefixIP         = "ip:"
	prefixChat       = "chat:"
)

// GenerateID creates a random hex ID of the specified byte length
func GenerateID(byteLen int) (string, error) {
	b := make([]byte, byteLen)
	_, err := rand.Read(b)
	if err != nil {
		return "", fmt.Errorf("failed to generate random ID: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// HashIP creates a one-way hash of an IP address for privacy
// Includes salt to prevent rainbow table attacks
func HashIP(ip, salt string) string {
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(ip))
	sum := h.Sum(nil)
	// Return first 16 hex chars (64 bits) - enough for deduplication
	return hex.EncodeToString(sum[:8])
}

// ConnectionIdentity gives a websocket connection its own vote
func ConnectionIdentity() string {
	return prefixConnection + uuid.NewString()
}

// IPIdentity gives every connection from one address a single shared vote
func IPIdentity(ip, salt string) string {
	return prefixIP + HashIP(ip, salt)
}

// ChatIdentity keys chat votes by username, case-insensitively
func ChatIdentity(username string) string {
	return prefixChat + strings.ToLower(username)
}
