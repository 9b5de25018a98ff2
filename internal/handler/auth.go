package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/vasapolrittideah/onboarding-api/internal/config"
	"github.com/vasapolrittideah/onboarding-api/internal/middleware"
	"github.com/vasapolrittideah/onboarding-api/internal/model"
	"github.com/vasapolrittideah/onboarding-api/internal/payload"
	"github.com/vasapolrittideah/onboarding-api/internal/repository"
	"github.com/vasapolrittideah/onboarding-api/internal/token"
	"github.com/vasapolrittideah/onboarding-api/internal/usecase"
)

const (
	signupStateCookie  = "signup_state"
	refreshTokenCookie = "refresh_token"
)

// AuthHTTPHandler exposes the onboarding and session flows over HTTP.
type AuthHTTPHandler struct {
	authUsecase usecase.AuthUsecase
	issuer      *token.Issuer
	validate    *validator.Validate
	trans       ut.Translator
	logger      *zerolog.Logger
	cfg         *config.Config
}

// NewAuthHTTPHandler creates a new AuthHTTPHandler instance.
func NewAuthHTTPHandler(
	logger *zerolog.Logger,
	authUsecase usecase.AuthUsecase,
	issuer *token.Issuer,
	cfg *config.Config,
) *AuthHTTPHandler {
	validate, trans := newValidator(logger)

	return &AuthHTTPHandler{
		authUsecase: authUsecase,
		issuer:      issuer,
		validate:    validate,
		trans:       trans,
		logger:      logger,
		cfg:         cfg,
	}
}

// RegisterRoutes mounts the auth routes on the router.
func (h *AuthHTTPHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Post("/signup/send-email", h.SendEmail)
		r.Post("/signup/code-verification", h.VerifyCode)
		r.Post("/signup", h.Signup)
		r.Post("/signin", h.Signin)
		r.Post("/refresh", h.Refresh)
		r.Post("/logout", h.Logout)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAccessToken(h.issuer))
			r.Get("/me", h.Me)
		})
	})
}

func (h *AuthHTTPHandler) SendEmail(w http.ResponseWriter, r *http.Request) {
	var req payload.SendEmailRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	stateToken, err := h.authUsecase.SendCode(r.Context(), req.Email)
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrUserAlreadyExists):
			h.respondError(w, http.StatusConflict, "user already exists")
		default:
			h.respondInternalError(w, err, "failed to send verification email")
		}
		return
	}

	h.setCookie(w, signupStateCookie, stateToken, int(h.cfg.Signup.StateExpiresIn.Seconds()))
	h.respondJSON(w, http.StatusOK, payload.MessageResponse{Message: "verification code sent"})
}

func (h *AuthHTTPHandler) VerifyCode(w http.ResponseWriter, r *http.Request) {
	var req payload.VerifyCodeRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	stateToken := h.readCookie(r, signupStateCookie)

	newStateToken, err := h.authUsecase.VerifyCode(r.Context(), stateToken, req.Code)
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrStateSkipped):
			h.respondError(w, http.StatusUnauthorized, "email verification has not been started")
		case errors.Is(err, usecase.ErrInvalidCode):
			h.respondError(w, http.StatusBadRequest, "invalid verification code")
		default:
			h.respondInternalError(w, err, "failed to verify code")
		}
		return
	}

	h.setCookie(w, signupStateCookie, newStateToken, int(h.cfg.Signup.StateExpiresIn.Seconds()))
	h.respondJSON(w, http.StatusOK, payload.MessageResponse{Message: "email verified"})
}

func (h *AuthHTTPHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req payload.SignupRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.authUsecase.Signup(r.Context(), usecase.SignupParams{
		StateToken: h.readCookie(r, signupStateCookie),
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Password:   req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrStateSkipped):
			h.respondError(w, http.StatusUnauthorized, "email has not been verified")
		case errors.Is(err, usecase.ErrUserAlreadyExists):
			h.respondError(w, http.StatusConflict, "user already exists")
		default:
			h.respondInternalError(w, err, "failed to sign up")
		}
		return
	}

	h.setCookie(w, signupStateCookie, result.ClearedState, -1)
	h.setCookie(w, refreshTokenCookie, result.Tokens.RefreshToken, int(h.cfg.Token.RefreshTokenExpiresIn.Seconds()))
	h.respondJSON(w, http.StatusOK, payload.AuthResponse{
		User:        toUserResponse(result.User),
		AccessToken: result.Tokens.AccessToken,
	})
}

func (h *AuthHTTPHandler) Signin(w http.ResponseWriter, r *http.Request) {
	var req payload.SigninRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.authUsecase.Signin(r.Context(), usecase.SigninParams{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrInvalidCredentials):
			h.respondError(w, http.StatusUnauthorized, "incorrect email or password")
		default:
			h.respondInternalError(w, err, "failed to sign in")
		}
		return
	}

	h.setCookie(w, refreshTokenCookie, result.Tokens.RefreshToken, int(h.cfg.Token.RefreshTokenExpiresIn.Seconds()))
	h.respondJSON(w, http.StatusOK, payload.AuthResponse{
		User:        toUserResponse(result.User),
		AccessToken: result.Tokens.AccessToken,
	})
}

func (h *AuthHTTPHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	result, err := h.authUsecase.Refresh(r.Context(), h.readCookie(r, refreshTokenCookie))
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrInvalidRefreshToken):
			h.respondError(w, http.StatusUnauthorized, "invalid refresh token")
		default:
			h.respondInternalError(w, err, "failed to refresh tokens")
		}
		return
	}

	h.setCookie(w, refreshTokenCookie, result.Tokens.RefreshToken, int(h.cfg.Token.RefreshTokenExpiresIn.Seconds()))
	h.respondJSON(w, http.StatusOK, payload.AuthResponse{
		User:        toUserResponse(result.User),
		AccessToken: result.Tokens.AccessToken,
	})
}

func (h *AuthHTTPHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.setCookie(w, refreshTokenCookie, "", -1)
	h.respondJSON(w, http.StatusOK, payload.MessageResponse{Message: "logged out"})
}

func (h *AuthHTTPHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := h.authUsecase.Me(r.Context(), userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			h.respondError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		h.respondInternalError(w, err, "failed to load user")
		return
	}

	h.respondJSON(w, http.StatusOK, toUserResponse(user))
}

func (h *AuthHTTPHandler) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}

	if err := h.validate.Struct(dst); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
			h.respondError(w, http.StatusBadRequest, validationErrors[0].Translate(h.trans))
			return false
		}

		h.respondError(w, http.StatusBadRequest, "invalid request")
		return false
	}

	return true
}

func (h *AuthHTTPHandler) setCookie(w http.ResponseWriter, name, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   h.cfg.Server.CookieDomain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHTTPHandler) readCookie(r *http.Request, name string) string {
	cookie, err := r.Cookie(name)
	if err != nil {
		return ""
	}

	return cookie.Value
}

func (h *AuthHTTPHandler) respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error().Err(err).Msg("failed to encode response body")
	}
}

func (h *AuthHTTPHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, payload.ErrorResponse{Error: message})
}

// respondInternalError logs the full cause server-side and returns an opaque
// failure to the client.
func (h *AuthHTTPHandler) respondInternalError(w http.ResponseWriter, err error, msg string) {
	h.logger.Error().Err(err).Msg(msg)
	h.respondError(w, http.StatusInternalServerError, "something went wrong")
}

func toUserResponse(user *model.User) payload.UserResponse {
	return payload.UserResponse{
		ID:        user.ID.Hex(),
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		CreatedAt: user.CreatedAt,
	}
}
