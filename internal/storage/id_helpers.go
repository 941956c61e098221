package storage

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
)

func generateID() (string, error) {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("generate id: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

// generateStreamKey issues the opaque credential a broadcaster presents to
// the ingest endpoint. Uppercased to make keys visually distinct from IDs.
func generateStreamKey() (string, error) {
	bytes := make([]byte, 24)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("generate stream key: %w", err)
	}
	return strings.ToUpper(hex.EncodeToString(bytes)), nil
}
