package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

var ErrWrongTokenType = errors.New("wrong token type")

type Claims struct {
	jwt.RegisteredClaims
	Username string `json:"username"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
	Type     string `json:"type"`
}

func (c *Claims) Principal() *Principal {
	return &Principal{UserID: c.Subject, Username: c.Username, FullName: c.FullName, Role: c.Role}
}

// TokenPair is what the login and refresh endpoints return.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

// TokenIssuer signs and verifies HS256 access/refresh tokens.
type TokenIssuer struct {
	key        []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewTokenIssuer(secret, issuer string, accessTTL, refreshTTL time.Duration) *TokenIssuer {
	return &TokenIssuer{
		key:        []byte(secret),
		issuer:     issuer,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

func (t *TokenIssuer) AccessTTL() time.Duration  { return t.accessTTL }
func (t *TokenIssuer) RefreshTTL() time.Duration { return t.refreshTTL }

// Issue signs a fresh access and refresh token for p, each with its own JTI.
func (t *TokenIssuer) Issue(p *Principal) (*TokenPair, error) {
	access, err := t.sign(p, TokenTypeAccess, t.accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := t.sign(p, TokenTypeRefresh, t.refreshTTL)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(t.accessTTL.Seconds()),
	}, nil
}

func (t *TokenIssuer) sign(p *Principal, typ string, ttl time.Duration) (string, error) {
	now := t.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   p.UserID,
			Issuer:    t.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Username: p.Username,
		FullName: p.FullName,
		Role:     p.Role,
		Type:     typ,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.key)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", typ, err)
	}
	return signed, nil
}

// Parse verifies signature, issuer and expiry, then checks the type claim.
func (t *TokenIssuer) Parse(tokenStr, wantType string) (*Claims, error) {
	claims := &Claims{}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.now),
	}
	if t.issuer != "" {
		opts = append(opts, jwt.WithIssuer(t.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (interface{}, error) {
		return t.key, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	if claims.Type != wantType {
		return nil, ErrWrongTokenType
	}
	return claims, nil
}

// ExpiresAt returns the expiry of claims, or now when it is missing.
func ExpiresAt(c *Claims) time.Time {
	if c.ExpiresAt == nil {
		return time.Now()
	}
	return c.ExpiresAt.Time
}
