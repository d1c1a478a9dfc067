package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"admin-panel/internal/domain"
	"admin-panel/internal/repository"
)

const sessionIssuer = "admin-panel"

var ErrSessionExpired = errors.New("session expired")

type sessionClaims struct {
	domain.Identity
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

// JWTCodec firma la identidad guardada con HS256 para detectar ediciones del store.
type JWTCodec struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

// NewJWTCodec crea el codec. Con ttl cero la sesion no expira.
func NewJWTCodec(secret string, ttl time.Duration) *JWTCodec {
	return &JWTCodec{
		secret: []byte(secret),
		ttl:    ttl,
		issuer: sessionIssuer,
		now:    time.Now,
	}
}

var _ repository.IdentityCodec = (*JWTCodec)(nil)

func (c *JWTCodec) Encode(identity domain.Identity) ([]byte, error) {
	if len(c.secret) == 0 {
		return nil, errors.New("session signing key is empty")
	}
	now := c.now().UTC()
	subject := identity.UserID
	if subject == "" {
		subject = identity.Email
	}
	claims := sessionClaims{
		Identity:  identity,
		TokenType: "session",
		RegisteredClaims: jwt.RegisteredClaims{
			ID:       uuid.NewString(),
			Issuer:   c.issuer,
			Subject:  subject,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if c.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(c.ttl))
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return nil, fmt.Errorf("sign session: %w", err)
	}
	return []byte(signed), nil
}

func (c *JWTCodec) Decode(data []byte) (domain.Identity, error) {
	raw := strings.TrimSpace(string(data))
	if raw == "" || len(c.secret) == 0 {
		return domain.Identity{}, repository.ErrMalformedSession
	}
	var claims sessionClaims
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(c.issuer),
		jwt.WithTimeFunc(c.now),
	)
	_, err := parser.ParseWithClaims(raw, &claims, func(_ *jwt.Token) (any, error) {
		return c.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return domain.Identity{}, fmt.Errorf("%w: %w", repository.ErrMalformedSession, ErrSessionExpired)
		}
		return domain.Identity{}, repository.ErrMalformedSession
	}
	if claims.TokenType != "session" || !claims.Identity.Valid() {
		return domain.Identity{}, repository.ErrMalformedSession
	}
	return claims.Identity, nil
}
