package models

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
)

func NewRoundID() string {
	return fmt.Sprintf("round_%s", uuid.New().String())
}

func NewTransactionID() string {
	return fmt.Sprintf("tx_%s", uuid.New().String())
}

// GenerateClientSeed returns 128 bits of hex-encoded entropy. Users may
// replace it with their own string at any time before a bet.
func GenerateClientSeed() (string, error) {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate client seed: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

func FormatCurrency(minor int64) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	return fmt.Sprintf("%s$%d.%02d", sign, minor/100, minor%100)
}
