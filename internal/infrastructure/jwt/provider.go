package jwtinfra

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/mridang-api/internal/config"
	"github.com/mridang-api/internal/domain"
	"github.com/mridang-api/internal/pkg/id"
)

// Claims is the payload of a verification token: the subject is the
// normalized identifier that was proven, Channel says how.
type Claims struct {
	Channel domain.Channel `json:"channel"`
	jwt.RegisteredClaims
}

// Issuer is stamped on every verification token and required on verify, so
// tokens from other services sharing a key pair are refused.
const Issuer = "mridang-verify"

// Provider signs and verifies RS256 verification tokens.
type Provider struct {
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
	ttl        time.Duration
	now        func() time.Time
}

// NewProvider loads the PEM key pair named in cfg.
func NewProvider(cfg *config.Config) (*Provider, error) {
	privBytes, err := os.ReadFile(cfg.JWTPrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("read private key: %w", err)
	}
	privKey, err := jwt.ParseRSAPrivateKeyFromPEM(privBytes)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	pubBytes, err := os.ReadFile(cfg.JWTPublicKeyPath)
	if err != nil {
		return nil, fmt.Errorf("read public key: %w", err)
	}
	pubKey, err := jwt.ParseRSAPublicKeyFromPEM(pubBytes)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}

	return NewProviderFromKeys(privKey, pubKey, cfg.VerificationTokenTTL), nil
}

func NewProviderFromKeys(priv *rsa.PrivateKey, pub *rsa.PublicKey, ttl time.Duration) *Provider {
	return &Provider{privateKey: priv, publicKey: pub, ttl: ttl, now: time.Now}
}

// WithClock replaces the time source used for issuing and checking tokens.
func (p *Provider) WithClock(now func() time.Time) *Provider {
	p.now = now
	return p
}

// Sign issues a token proving identifier was verified over channel.
func (p *Provider) Sign(channel domain.Channel, identifier string) (string, error) {
	now := p.now()
	claims := Claims{
		Channel: channel,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   identifier,
			ID:        id.New(),
			ExpiresAt: jwt.NewNumericDate(now.Add(p.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(p.privateKey)
	if err != nil {
		return "", fmt.Errorf("sign verification token: %w", err)
	}
	return signed, nil
}

// Verify checks signature, issuer and expiry and returns the claims.
func (p *Provider) Verify(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return p.publicKey, nil
	}, jwt.WithTimeFunc(p.now), jwt.WithExpirationRequired(), jwt.WithIssuer(Issuer))
	if err != nil {
		return nil, fmt.Errorf("verify token: %w", err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}
