package payload

import "time"

type SendEmailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type VerifyCodeRequest struct {
	Code string `json:"code" validate:"required,verification_code"`
}

type SignupRequest struct {
	FirstName string `json:"first_name" validate:"omitempty,max=64"`
	LastName  string `json:"last_name"  validate:"omitempty,max=64"`
	Password  string `json:"password"   validate:"required,signup_password"`
}

type SigninRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// UserResponse is the public projection of a user. The password hash never
// leaves the repository layer.
type UserResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name,omitempty"`
	LastName  string    `json:"last_name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type AuthResponse struct {
	User        UserResponse `json:"user"`
	AccessToken string       `json:"access_token"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
