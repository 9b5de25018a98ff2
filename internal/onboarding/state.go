package onboarding

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/vasapolrittideah/onboarding-api/internal/config"
	"github.com/vasapolrittideah/onboarding-api/internal/token"
)

// ErrStateInvalid is the single failure signal for every unreadable state
// token: missing, tampered, or expired.
var ErrStateInvalid = errors.New("invalid onboarding state")

// State is the decoded onboarding progress of one signup attempt.
type State struct {
	Email    string
	Verified bool
}

type stateClaims struct {
	Email    string `json:"email"`
	Verified bool   `json:"verified"`
	jwt.RegisteredClaims
}

// StateCarrier issues and reads signed onboarding state tokens. The state is
// held by the client between requests; the signature is what stops a client
// from minting its own verified=true state.
type StateCarrier struct {
	jwtAuth   token.JWTAuthenticator
	signupCfg config.SignupConfig
	issuer    string
}

// NewStateCarrier creates a new StateCarrier instance.
func NewStateCarrier(issuer string, signupCfg config.SignupConfig) *StateCarrier {
	return &StateCarrier{
		jwtAuth:   token.NewJWTAuthenticator(issuer, issuer),
		signupCfg: signupCfg,
		issuer:    issuer,
	}
}

// Begin issues a fresh pending-verification state for the email.
func (c *StateCarrier) Begin(email string) (string, error) {
	return c.issue(email, false, c.signupCfg.StateExpiresIn)
}

// MarkVerified re-issues the presented state with verified=true and a fresh
// expiry window. The presented state must be readable and unverified.
func (c *StateCarrier) MarkVerified(existing string) (string, error) {
	state, err := c.Read(existing)
	if err != nil {
		return "", err
	}

	return c.issue(state.Email, true, c.signupCfg.StateExpiresIn)
}

// Clear issues a state token that is already expired, used to scrub the
// client-held state after signup completes.
func (c *StateCarrier) Clear() (string, error) {
	return c.issue("", false, -time.Minute)
}

// Read verifies the presented state token and returns its contents.
func (c *StateCarrier) Read(presented string) (*State, error) {
	claims := &stateClaims{}
	if _, err := c.jwtAuth.ValidateTokenWithClaims(presented, c.signupCfg.StateSecret, claims); err != nil {
		return nil, ErrStateInvalid
	}

	if claims.Email == "" {
		return nil, ErrStateInvalid
	}

	return &State{
		Email:    claims.Email,
		Verified: claims.Verified,
	}, nil
}

func (c *StateCarrier) issue(email string, verified bool, expiresIn time.Duration) (string, error) {
	now := time.Now()
	claims := stateClaims{
		Email:    email,
		Verified: verified,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    c.issuer,
			Audience:  jwt.ClaimStrings{c.issuer},
		},
	}

	return c.jwtAuth.GenerateToken(claims, c.signupCfg.StateSecret)
}
