package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/vasapolrittideah/onboarding-api/internal/config"
	"github.com/vasapolrittideah/onboarding-api/internal/handler"
	"github.com/vasapolrittideah/onboarding-api/internal/model"
	"github.com/vasapolrittideah/onboarding-api/internal/onboarding"
	"github.com/vasapolrittideah/onboarding-api/internal/payload"
	"github.com/vasapolrittideah/onboarding-api/internal/repository"
	"github.com/vasapolrittideah/onboarding-api/internal/token"
	"github.com/vasapolrittideah/onboarding-api/internal/usecase"
	"github.com/vasapolrittideah/onboarding-api/internal/verification"
)

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*model.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*model.User)}
}

func (f *fakeUserRepo) CreateUser(_ context.Context, user *model.User) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, existing := range f.users {
		if existing.Email == user.Email {
			return nil, repository.ErrDuplicateEmail
		}
	}

	now := time.Now()
	user.ID = bson.NewObjectID()
	user.CreatedAt = now
	user.UpdatedAt = now
	f.users[user.ID.Hex()] = user

	return user, nil
}

func (f *fakeUserRepo) GetUser(_ context.Context, id string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	user, ok := f.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}

	return user, nil
}

func (f *fakeUserRepo) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, user := range f.users {
		if user.Email == email {
			return user, nil
		}
	}

	return nil, repository.ErrUserNotFound
}

type fakeMailer struct {
	mu       sync.Mutex
	lastBody string
}

func (f *fakeMailer) SendSimple(_ []string, _ string, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastBody = body
	return nil
}

func (f *fakeMailer) code(t *testing.T) string {
	t.Helper()

	f.mu.Lock()
	defer f.mu.Unlock()

	require.NotEmpty(t, f.lastBody)
	return f.lastBody
}

type handlerTestEnv struct {
	router *chi.Mux
	repo   *fakeUserRepo
	mailer *fakeMailer
	mr     *miniredis.Miniredis
}

func newHandlerTestEnv(t *testing.T) *handlerTestEnv {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
	})

	cfg := &config.Config{
		Server: config.ServerConfig{CookieDomain: "localhost"},
		Token: config.TokenConfig{
			Issuer:                "onboarding-api-test",
			AccessTokenSecret:     "access-secret",
			RefreshTokenSecret:    "refresh-secret",
			AccessTokenExpiresIn:  30 * time.Minute,
			RefreshTokenExpiresIn: 7 * 24 * time.Hour,
		},
		Signup: config.SignupConfig{
			StateSecret:    "state-secret",
			StateExpiresIn: 30 * time.Minute,
			CodeExpiresIn:  10 * time.Minute,
		},
	}

	repo := newFakeUserRepo()
	mailer := &fakeMailer{}
	codes := verification.NewStore(client)
	carrier := onboarding.NewStateCarrier(cfg.Token.Issuer, cfg.Signup)
	issuer := token.NewIssuer(cfg.Token)
	authUsecase := usecase.NewAuthUsecase(repo, codes, carrier, issuer, mailer, cfg.Signup)

	logger := zerolog.Nop()
	authHandler := handler.NewAuthHTTPHandler(&logger, authUsecase, issuer, cfg)

	router := chi.NewRouter()
	authHandler.RegisterRoutes(router)

	return &handlerTestEnv{
		router: router,
		repo:   repo,
		mailer: mailer,
		mr:     mr,
	}
}

func (e *handlerTestEnv) do(t *testing.T, method, path string, body any, cookies ...*http.Cookie) *http.Response {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	return rec.Result()
}

func findCookie(t *testing.T, resp *http.Response, name string) *http.Cookie {
	t.Helper()

	for _, cookie := range resp.Cookies() {
		if cookie.Name == name {
			return cookie
		}
	}

	t.Fatalf("cookie %q not set", name)
	return nil
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()

	var body T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestOnboardingFlow(t *testing.T) {
	env := newHandlerTestEnv(t)

	// Step 1: request a verification code.
	resp := env.do(t, http.MethodPost, "/api/v1/auth/signup/send-email",
		payload.SendEmailRequest{Email: "a@x.com"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	stateCookie := findCookie(t, resp, "signup_state")
	assert.True(t, stateCookie.HttpOnly)
	assert.True(t, stateCookie.Secure)
	assert.Equal(t, http.SameSiteLaxMode, stateCookie.SameSite)
	assert.Positive(t, stateCookie.MaxAge)

	// Step 2: verify the mailed code.
	resp = env.do(t, http.MethodPost, "/api/v1/auth/signup/code-verification",
		payload.VerifyCodeRequest{Code: env.mailer.code(t)}, stateCookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	verifiedCookie := findCookie(t, resp, "signup_state")
	assert.NotEqual(t, stateCookie.Value, verifiedCookie.Value)

	// Step 3: complete the signup.
	resp = env.do(t, http.MethodPost, "/api/v1/auth/signup",
		payload.SignupRequest{FirstName: "Ada", Password: "Sup3r$ecret"}, verifiedCookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	clearedState := findCookie(t, resp, "signup_state")
	assert.Negative(t, clearedState.MaxAge)

	refreshCookie := findCookie(t, resp, "refresh_token")
	assert.True(t, refreshCookie.HttpOnly)
	assert.True(t, refreshCookie.Secure)
	assert.Equal(t, http.SameSiteLaxMode, refreshCookie.SameSite)
	assert.Positive(t, refreshCookie.MaxAge)

	auth := decodeBody[payload.AuthResponse](t, resp)
	assert.Equal(t, "a@x.com", auth.User.Email)
	assert.Equal(t, "Ada", auth.User.FirstName)
	assert.NotEmpty(t, auth.AccessToken)

	// The access token works against the protected endpoint.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+auth.AccessToken)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	me := decodeBody[payload.UserResponse](t, rec.Result())
	assert.Equal(t, auth.User.ID, me.ID)

	// Refresh rotates the pair.
	resp = env.do(t, http.MethodPost, "/api/v1/auth/refresh", nil, refreshCookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	rotated := findCookie(t, resp, "refresh_token")
	assert.NotEqual(t, refreshCookie.Value, rotated.Value)

	refreshed := decodeBody[payload.AuthResponse](t, resp)
	assert.Equal(t, auth.User.ID, refreshed.User.ID)

	// Logout expires the refresh credential.
	resp = env.do(t, http.MethodPost, "/api/v1/auth/logout", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Negative(t, findCookie(t, resp, "refresh_token").MaxAge)
}

func TestSendEmail_InvalidEmail(t *testing.T) {
	env := newHandlerTestEnv(t)

	resp := env.do(t, http.MethodPost, "/api/v1/auth/signup/send-email",
		payload.SendEmailRequest{Email: "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSendEmail_ExistingUser(t *testing.T) {
	env := newHandlerTestEnv(t)

	_, err := env.repo.CreateUser(context.Background(), &model.User{Email: "a@x.com"})
	require.NoError(t, err)

	resp := env.do(t, http.MethodPost, "/api/v1/auth/signup/send-email",
		payload.SendEmailRequest{Email: "a@x.com"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestVerifyCode_WithoutState(t *testing.T) {
	env := newHandlerTestEnv(t)

	resp := env.do(t, http.MethodPost, "/api/v1/auth/signup/code-verification",
		payload.VerifyCodeRequest{Code: "7G3K9Q"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestVerifyCode_BadFormat(t *testing.T) {
	env := newHandlerTestEnv(t)

	for _, code := range []string{"", "abc", "7g3k9q", "7G3K9Q1"} {
		resp := env.do(t, http.MethodPost, "/api/v1/auth/signup/code-verification",
			payload.VerifyCodeRequest{Code: code})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "code %q", code)
	}
}

func TestVerifyCode_WrongCode(t *testing.T) {
	env := newHandlerTestEnv(t)

	resp := env.do(t, http.MethodPost, "/api/v1/auth/signup/send-email",
		payload.SendEmailRequest{Email: "a@x.com"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	stateCookie := findCookie(t, resp, "signup_state")

	wrong := "000000"
	if wrong == env.mailer.code(t) {
		wrong = "111111"
	}

	resp = env.do(t, http.MethodPost, "/api/v1/auth/signup/code-verification",
		payload.VerifyCodeRequest{Code: wrong}, stateCookie)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// The stored code survives the failed attempt.
	resp = env.do(t, http.MethodPost, "/api/v1/auth/signup/code-verification",
		payload.VerifyCodeRequest{Code: env.mailer.code(t)}, stateCookie)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSignup_WithoutState(t *testing.T) {
	env := newHandlerTestEnv(t)

	resp := env.do(t, http.MethodPost, "/api/v1/auth/signup",
		payload.SignupRequest{Password: "Sup3r$ecret"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestSignup_WeakPassword(t *testing.T) {
	env := newHandlerTestEnv(t)

	weak := []string{
		"short1$",          // too short
		"alllowercase1$",   // no uppercase
		"ALLUPPERCASE1$",   // no lowercase
		"NoDigitsHere$",    // no digit
		"NoSymbolsHere1",   // no symbol
		"WayTooLongPassword1$", // too long
	}
	for _, password := range weak {
		resp := env.do(t, http.MethodPost, "/api/v1/auth/signup",
			payload.SignupRequest{Password: password})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "password %q", password)
	}
}

func TestSignin_GenericFailure(t *testing.T) {
	env := newHandlerTestEnv(t)

	resp := env.do(t, http.MethodPost, "/api/v1/auth/signin",
		payload.SigninRequest{Email: "a@x.com", Password: "Sup3r$ecret"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	body := decodeBody[payload.ErrorResponse](t, resp)
	assert.Equal(t, "incorrect email or password", body.Error)
}

func TestRefresh_MissingCookie(t *testing.T) {
	env := newHandlerTestEnv(t)

	resp := env.do(t, http.MethodPost, "/api/v1/auth/refresh", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestMe_WithoutToken(t *testing.T) {
	env := newHandlerTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
