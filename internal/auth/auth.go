// Package auth verifies the bearer tokens players present to the arena.
// Tokens are EdDSA-signed JWTs; verification is offline against a shared
// public key.
package auth

import (
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/louisbranch/emberforge/internal/platform/errors"

	"github.com/louisbranch/emberforge/internal/platform/requestctx"
)

// verifierEnv holds raw env values before post-parse validation.
type verifierEnv struct {
	Issuer    string `env:"EMBERFORGE_TOKEN_ISSUER"`
	Audience  string `env:"EMBERFORGE_TOKEN_AUDIENCE"`
	PublicKey string `env:"EMBERFORGE_TOKEN_PUBLIC_KEY"`
}

// Verifier checks player tokens against the arena's signing key.
type Verifier struct {
	Issuer   string
	Audience string
	Key      ed25519.PublicKey
	Now      func() time.Time
}

// Identity is the validated content of a player token.
type Identity struct {
	PlayerID  string
	Role      string
	ExpiresAt time.Time
	JWTID     string
}

// playerClaims is the internal claims type used for JWT parsing.
type playerClaims struct {
	jwt.RegisteredClaims
	Role string `json:"role,omitempty"`
}

// LoadVerifierFromEnv reads token verification configuration.
func LoadVerifierFromEnv(now func() time.Time) (Verifier, error) {
	var raw verifierEnv
	if err := env.Parse(&raw); err != nil {
		return Verifier{}, fmt.Errorf("parse token env: %w", err)
	}
	issuer := strings.TrimSpace(raw.Issuer)
	audience := strings.TrimSpace(raw.Audience)
	publicKey := strings.TrimSpace(raw.PublicKey)
	if issuer == "" {
		return Verifier{}, fmt.Errorf("EMBERFORGE_TOKEN_ISSUER is required")
	}
	if audience == "" {
		return Verifier{}, fmt.Errorf("EMBERFORGE_TOKEN_AUDIENCE is required")
	}
	if publicKey == "" {
		return Verifier{}, fmt.Errorf("EMBERFORGE_TOKEN_PUBLIC_KEY is required")
	}
	keyBytes, err := decodeBase64(publicKey)
	if err != nil {
		return Verifier{}, fmt.Errorf("decode token public key: %w", err)
	}
	if len(keyBytes) != ed25519.PublicKeySize {
		return Verifier{}, fmt.Errorf("token public key must be %d bytes", ed25519.PublicKeySize)
	}
	if now == nil {
		now = time.Now
	}
	return Verifier{
		Issuer:   issuer,
		Audience: audience,
		Key:      ed25519.PublicKey(keyBytes),
		Now:      now,
	}, nil
}

// Verify validates a bearer token and returns the player identity it
// carries. Time checks run against v.Now so callers control the clock.
func (v Verifier) Verify(token string) (Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Identity{}, apperrors.New(apperrors.CodeUnauthenticated, "bearer token is required")
	}
	now := v.Now
	if now == nil {
		now = time.Now
	}
	if v.Issuer == "" || v.Audience == "" || len(v.Key) != ed25519.PublicKeySize {
		return Identity{}, errors.New("token verifier is not configured")
	}

	var parsed playerClaims
	_, err := jwt.ParseWithClaims(token, &parsed, func(token *jwt.Token) (any, error) {
		return v.Key, nil
	},
		jwt.WithValidMethods([]string{"EdDSA"}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return Identity{}, mapJWTError(err)
	}

	if parsed.Issuer == "" || parsed.Issuer != v.Issuer {
		return Identity{}, apperrors.WithMetadata(apperrors.CodeTokenInvalid,
			"token issuer mismatch", map[string]string{"field": "issuer"})
	}
	if !audienceContains(parsed.Audience, v.Audience) {
		return Identity{}, apperrors.WithMetadata(apperrors.CodeTokenInvalid,
			"token audience mismatch", map[string]string{"field": "audience"})
	}
	if parsed.ID == "" {
		return Identity{}, apperrors.New(apperrors.CodeTokenInvalid, "token jti is required")
	}
	if parsed.ExpiresAt == nil {
		return Identity{}, apperrors.New(apperrors.CodeTokenInvalid, "token exp is required")
	}

	current := now().UTC()
	exp := parsed.ExpiresAt.Time.UTC()
	if !exp.After(current) {
		return Identity{}, apperrors.New(apperrors.CodeTokenExpired, "token is expired")
	}
	if parsed.NotBefore != nil && current.Before(parsed.NotBefore.Time.UTC()) {
		return Identity{}, apperrors.New(apperrors.CodeTokenInvalid, "token not active yet")
	}

	playerID := strings.TrimSpace(parsed.Subject)
	if playerID == "" {
		return Identity{}, apperrors.New(apperrors.CodeTokenInvalid, "token subject is required")
	}
	role := parsed.Role
	switch role {
	case "":
		role = requestctx.RolePlayer
	case requestctx.RolePlayer, requestctx.RoleOperator:
	default:
		return Identity{}, apperrors.WithMetadata(apperrors.CodeTokenInvalid,
			"unknown token role", map[string]string{"role": role})
	}

	return Identity{
		PlayerID:  playerID,
		Role:      role,
		ExpiresAt: exp,
		JWTID:     parsed.ID,
	}, nil
}

// mapJWTError translates jwt library errors to application errors.
func mapJWTError(err error) error {
	if errors.Is(err, jwt.ErrTokenSignatureInvalid) || errors.Is(err, jwt.ErrEd25519Verification) {
		return apperrors.New(apperrors.CodeTokenInvalid, "token signature is invalid")
	}
	if errors.Is(err, jwt.ErrTokenUnverifiable) {
		return apperrors.New(apperrors.CodeTokenInvalid, "token alg is invalid")
	}
	return apperrors.New(apperrors.CodeTokenInvalid, "token is invalid")
}

// audienceContains reports whether the audience list contains the given value.
func audienceContains(aud jwt.ClaimStrings, value string) bool {
	for _, item := range aud {
		if item == value {
			return true
		}
	}
	return false
}

func decodeBase64(value string) ([]byte, error) {
	if value == "" {
		return nil, errors.New("empty base64 value")
	}
	decoded, err := base64.RawStdEncoding.DecodeString(value)
	if err == nil {
		return decoded, nil
	}
	return base64.StdEncoding.DecodeString(value)
}
