package services

import (
	"crypto/rand"
	"encoding/base64"

	"github.com/vncsmyrnk/gradgate/internal/core/ports"
)

const tokenBytes = 24

type randomTokenGenerator struct{}

// NewTokenGenerator returns a generator of 192-bit URL-safe random tokens.
func NewTokenGenerator() ports.TokenGenerator {
	return randomTokenGenerator{}
}

func (randomTokenGenerator) NewToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
