package auth

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/louisbranch/emberforge/internal/platform/requestctx"
)

// signerEnv holds raw env values before post-parse validation.
type signerEnv struct {
	Issuer     string        `env:"EMBERFORGE_TOKEN_ISSUER"`
	Audience   string        `env:"EMBERFORGE_TOKEN_AUDIENCE"`
	PrivateKey string        `env:"EMBERFORGE_TOKEN_PRIVATE_KEY"`
	TTL        time.Duration `env:"EMBERFORGE_TOKEN_TTL"         envDefault:"24h"`
}

// Signer mints player tokens. It backs the token tool; the server itself
// only verifies.
type Signer struct {
	Issuer   string
	Audience string
	Key      ed25519.PrivateKey
	TTL      time.Duration
	Now      func() time.Time
	NewID    func() string
}

// LoadSignerFromEnv reads token minting configuration.
func LoadSignerFromEnv(now func() time.Time) (Signer, error) {
	var raw signerEnv
	if err := env.Parse(&raw); err != nil {
		return Signer{}, fmt.Errorf("parse token env: %w", err)
	}
	issuer := strings.TrimSpace(raw.Issuer)
	audience := strings.TrimSpace(raw.Audience)
	privateKey := strings.TrimSpace(raw.PrivateKey)
	if issuer == "" {
		return Signer{}, fmt.Errorf("EMBERFORGE_TOKEN_ISSUER is required")
	}
	if audience == "" {
		return Signer{}, fmt.Errorf("EMBERFORGE_TOKEN_AUDIENCE is required")
	}
	if privateKey == "" {
		return Signer{}, fmt.Errorf("EMBERFORGE_TOKEN_PRIVATE_KEY is required")
	}
	keyBytes, err := decodeBase64(privateKey)
	if err != nil {
		return Signer{}, fmt.Errorf("decode token private key: %w", err)
	}
	if len(keyBytes) != ed25519.PrivateKeySize {
		return Signer{}, fmt.Errorf("token private key must be %d bytes", ed25519.PrivateKeySize)
	}
	if raw.TTL <= 0 {
		return Signer{}, fmt.Errorf("token ttl must be positive")
	}
	if now == nil {
		now = time.Now
	}
	return Signer{
		Issuer:   issuer,
		Audience: audience,
		Key:      ed25519.PrivateKey(keyBytes),
		TTL:      raw.TTL,
		Now:      now,
	}, nil
}

// Mint signs a token for playerID with the given role.
func (s Signer) Mint(playerID, role string) (string, error) {
	playerID = strings.TrimSpace(playerID)
	if playerID == "" {
		return "", errors.New("player id is required")
	}
	switch role {
	case requestctx.RolePlayer, requestctx.RoleOperator:
	default:
		return "", fmt.Errorf("unknown role %q", role)
	}
	if s.Issuer == "" || s.Audience == "" || len(s.Key) != ed25519.PrivateKeySize {
		return "", errors.New("token signer is not configured")
	}
	now := s.Now
	if now == nil {
		now = time.Now
	}
	newID := s.NewID
	if newID == nil {
		newID = func() string { return uuid.New().String() }
	}

	issued := now().UTC()
	claims := playerClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.Issuer,
			Subject:   playerID,
			Audience:  jwt.ClaimStrings{s.Audience},
			ExpiresAt: jwt.NewNumericDate(issued.Add(s.TTL)),
			IssuedAt:  jwt.NewNumericDate(issued),
			ID:        newID(),
		},
		Role: role,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims).SignedString(s.Key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}
