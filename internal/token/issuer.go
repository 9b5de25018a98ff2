package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/vasapolrittideah/onboarding-api/internal/config"
)

// Kind selects the lifetime and signing secret of an issued token.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

// ErrInvalidToken is the single failure signal for every verification
// problem: bad signature, wrong algorithm, expiry, or kind mismatch.
// Callers must not be able to tell these apart.
var ErrInvalidToken = errors.New("invalid token")

// Claims are the claims carried by access and refresh tokens.
type Claims struct {
	UserID string `json:"uid"`
	Kind   string `json:"kind"`
	jwt.RegisteredClaims
}

// Tokens is an issued access/refresh token pair.
type Tokens struct {
	AccessToken  string
	RefreshToken string
}

// Issuer creates and verifies signed, time-bounded tokens bound to a user ID.
type Issuer struct {
	jwtAuth  JWTAuthenticator
	tokenCfg config.TokenConfig
}

// NewIssuer creates a new Issuer instance.
func NewIssuer(tokenCfg config.TokenConfig) *Issuer {
	return &Issuer{
		jwtAuth:  NewJWTAuthenticator(tokenCfg.Issuer, tokenCfg.Issuer),
		tokenCfg: tokenCfg,
	}
}

// Issue generates a signed token of the given kind for the user.
func (i *Issuer) Issue(userID string, kind Kind) (string, error) {
	secret, expiresIn, err := i.kindParams(kind)
	if err != nil {
		return "", err
	}

	now := time.Now()
	claims := Claims{
		UserID: userID,
		Kind:   string(kind),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    i.tokenCfg.Issuer,
			Audience:  jwt.ClaimStrings{i.tokenCfg.Issuer},
		},
	}

	return i.jwtAuth.GenerateToken(claims, secret)
}

// IssuePair generates a fresh access/refresh token pair for the user.
func (i *Issuer) IssuePair(userID string) (*Tokens, error) {
	accessToken, err := i.Issue(userID, KindAccess)
	if err != nil {
		return nil, err
	}

	refreshToken, err := i.Issue(userID, KindRefresh)
	if err != nil {
		return nil, err
	}

	return &Tokens{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// Verify validates a token of the given kind and returns the user ID it is
// bound to. Any failure is reported as ErrInvalidToken.
func (i *Issuer) Verify(tokenStr string, kind Kind) (string, error) {
	secret, _, err := i.kindParams(kind)
	if err != nil {
		return "", err
	}

	claims := &Claims{}
	if _, err := i.jwtAuth.ValidateTokenWithClaims(tokenStr, secret, claims); err != nil {
		return "", ErrInvalidToken
	}

	// A token signed with the right secret but minted for another purpose is
	// still invalid here.
	if claims.Kind != string(kind) || claims.UserID == "" {
		return "", ErrInvalidToken
	}

	return claims.UserID, nil
}

func (i *Issuer) kindParams(kind Kind) (string, time.Duration, error) {
	switch kind {
	case KindAccess:
		return i.tokenCfg.AccessTokenSecret, i.tokenCfg.AccessTokenExpiresIn, nil
	case KindRefresh:
		return i.tokenCfg.RefreshTokenSecret, i.tokenCfg.RefreshTokenExpiresIn, nil
	default:
		return "", 0, errors.New("unsupported token kind")
	}
}
