package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/vasapolrittideah/onboarding-api/internal/config"
	"github.com/vasapolrittideah/onboarding-api/internal/model"
	"github.com/vasapolrittideah/onboarding-api/internal/onboarding"
	"github.com/vasapolrittideah/onboarding-api/internal/repository"
	"github.com/vasapolrittideah/onboarding-api/internal/security"
	"github.com/vasapolrittideah/onboarding-api/internal/token"
	"github.com/vasapolrittideah/onboarding-api/internal/verification"
)

// Mailer is the outbound mail capability the signup flow needs.
type Mailer interface {
	SendSimple(to []string, subject, body string) error
}

// AuthUsecase defines the interface for the onboarding and session flows.
type AuthUsecase interface {
	// SendCode starts an onboarding attempt: it stores a fresh verification
	// code for the email, mails it, and returns the pending state token.
	SendCode(ctx context.Context, email string) (string, error)

	// VerifyCode consumes the stored code for the state's email and returns
	// the verified state token. A failed attempt leaves the code stored.
	VerifyCode(ctx context.Context, stateToken, code string) (string, error)

	// Signup creates the user for a verified state and issues a token pair.
	Signup(ctx context.Context, params SignupParams) (*SignupResult, error)

	// Signin authenticates an existing user and issues a token pair.
	Signin(ctx context.Context, params SigninParams) (*AuthResult, error)

	// Refresh rotates a valid refresh token into a fresh token pair.
	Refresh(ctx context.Context, refreshToken string) (*AuthResult, error)

	// Me loads the user bound to an already verified access token.
	Me(ctx context.Context, userID string) (*model.User, error)
}

// SignupParams defines the parameters for completing a signup.
type SignupParams struct {
	StateToken string
	FirstName  string
	LastName   string
	Password   string
}

// SigninParams defines the parameters for user sign-in.
type SigninParams struct {
	Email    string
	Password string
}

// AuthResult is a user together with a freshly issued token pair.
type AuthResult struct {
	User   *model.User
	Tokens *token.Tokens
}

// SignupResult is an AuthResult plus the already-expired state token that
// scrubs the client-held onboarding state.
type SignupResult struct {
	User         *model.User
	Tokens       *token.Tokens
	ClearedState string
}

var (
	ErrUserAlreadyExists   = errors.New("user already exists")
	ErrStateSkipped        = errors.New("required signup step has not been completed")
	ErrInvalidCode         = errors.New("invalid verification code")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
)

type authUsecase struct {
	userRepo  repository.UserRepository
	codes     *verification.Store
	carrier   *onboarding.StateCarrier
	issuer    *token.Issuer
	mailer    Mailer
	signupCfg config.SignupConfig
}

// NewAuthUsecase creates a new instance of AuthUsecase.
func NewAuthUsecase(
	userRepo repository.UserRepository,
	codes *verification.Store,
	carrier *onboarding.StateCarrier,
	issuer *token.Issuer,
	mailer Mailer,
	signupCfg config.SignupConfig,
) AuthUsecase {
	return &authUsecase{
		userRepo:  userRepo,
		codes:     codes,
		carrier:   carrier,
		issuer:    issuer,
		mailer:    mailer,
		signupCfg: signupCfg,
	}
}

func (u *authUsecase) SendCode(ctx context.Context, email string) (string, error) {
	_, err := u.userRepo.GetUserByEmail(ctx, email)
	if err == nil {
		return "", ErrUserAlreadyExists
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return "", err
	}

	code, err := verification.GenerateCode()
	if err != nil {
		return "", err
	}

	// Last Set wins, so a re-send simply replaces the previous code.
	if err := u.codes.Set(ctx, email, code, u.signupCfg.CodeExpiresIn); err != nil {
		return "", err
	}

	// The stored code is not rolled back on delivery failure; the client
	// retries and the retry overwrites it.
	if err := u.mailer.SendSimple([]string{email}, "Email verification", code); err != nil {
		return "", fmt.Errorf("failed to send verification email: %w", err)
	}

	return u.carrier.Begin(email)
}

func (u *authUsecase) VerifyCode(ctx context.Context, stateToken, code string) (string, error) {
	state, err := u.carrier.Read(stateToken)
	if err != nil {
		return "", ErrStateSkipped
	}
	if state.Verified {
		return "", ErrStateSkipped
	}

	stored, err := u.codes.Get(ctx, state.Email)
	if err != nil {
		if errors.Is(err, verification.ErrCodeNotFound) {
			return "", ErrInvalidCode
		}

		return "", err
	}

	// Exact, case-sensitive match. A mismatch leaves the entry stored so the
	// client can retry until the TTL evicts it.
	if stored != code {
		return "", ErrInvalidCode
	}

	if err := u.codes.Delete(ctx, state.Email); err != nil {
		return "", err
	}

	return u.carrier.MarkVerified(stateToken)
}

func (u *authUsecase) Signup(ctx context.Context, params SignupParams) (*SignupResult, error) {
	state, err := u.carrier.Read(params.StateToken)
	if err != nil {
		return nil, ErrStateSkipped
	}
	if !state.Verified {
		return nil, ErrStateSkipped
	}

	passwordHash, err := security.HashPassword(params.Password)
	if err != nil {
		return nil, err
	}

	user, err := u.userRepo.CreateUser(ctx, &model.User{
		Email:        state.Email,
		PasswordHash: passwordHash,
		FirstName:    params.FirstName,
		LastName:     params.LastName,
	})
	if err != nil {
		// Two verified sessions can race for the same email; the unique
		// index decides the winner.
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, ErrUserAlreadyExists
		}

		return nil, err
	}

	tokens, err := u.issuer.IssuePair(user.ID.Hex())
	if err != nil {
		return nil, err
	}

	clearedState, err := u.carrier.Clear()
	if err != nil {
		return nil, err
	}

	return &SignupResult{
		User:         user,
		Tokens:       tokens,
		ClearedState: clearedState,
	}, nil
}

func (u *authUsecase) Signin(ctx context.Context, params SigninParams) (*AuthResult, error) {
	user, err := u.userRepo.GetUserByEmail(ctx, params.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}

		return nil, err
	}

	if !security.VerifyPassword(params.Password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	tokens, err := u.issuer.IssuePair(user.ID.Hex())
	if err != nil {
		return nil, err
	}

	return &AuthResult{User: user, Tokens: tokens}, nil
}

func (u *authUsecase) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	userID, err := u.issuer.Verify(refreshToken, token.KindRefresh)
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}

	user, err := u.userRepo.GetUser(ctx, userID)
	if err != nil {
		// A valid token for a vanished user reads the same as a bad token.
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidRefreshToken
		}

		return nil, err
	}

	tokens, err := u.issuer.IssuePair(user.ID.Hex())
	if err != nil {
		return nil, err
	}

	return &AuthResult{User: user, Tokens: tokens}, nil
}

func (u *authUsecase) Me(ctx context.Context, userID string) (*model.User, error) {
	return u.userRepo.GetUser(ctx, userID)
}
