package handler

import (
	"unicode"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	entranslations "github.com/go-playground/validator/v10/translations/en"
	"github.com/rs/zerolog"
)

// newValidator builds the request validator with english translations and
// the custom signup rules registered.
func newValidator(logger *zerolog.Logger) (*validator.Validate, ut.Translator) {
	validate := validator.New(validator.WithRequiredStructEnabled())

	english := en.New()
	uni := ut.New(english, english)
	trans, _ := uni.GetTranslator("en")

	if err := entranslations.RegisterDefaultTranslations(validate, trans); err != nil {
		logger.Fatal().Err(err).Msg("failed to register validator translations")
	}

	if err := validate.RegisterValidation("signup_password", validSignupPassword); err != nil {
		logger.Fatal().Err(err).Msg("failed to register signup_password validation")
	}
	if err := validate.RegisterValidation("verification_code", validVerificationCode); err != nil {
		logger.Fatal().Err(err).Msg("failed to register verification_code validation")
	}

	registerTranslation(validate, trans,
		"signup_password",
		"{0} must be 8 to 15 characters and contain a lowercase letter, an uppercase letter, a digit, and a symbol",
	)
	registerTranslation(validate, trans,
		"verification_code",
		"{0} must be exactly 6 uppercase letters or digits",
	)

	return validate, trans
}

func registerTranslation(validate *validator.Validate, trans ut.Translator, tag, message string) {
	_ = validate.RegisterTranslation(tag, trans,
		func(ut ut.Translator) error {
			return ut.Add(tag, message, true)
		},
		func(ut ut.Translator, fe validator.FieldError) string {
			t, err := ut.T(tag, fe.Field())
			if err != nil {
				return fe.Error()
			}
			return t
		},
	)
}

// validSignupPassword enforces the signup password policy: 8 to 15
// characters containing a lowercase letter, an uppercase letter, a digit,
// and a symbol.
func validSignupPassword(fl validator.FieldLevel) bool {
	password := fl.Field().String()
	if len(password) < 8 || len(password) > 15 {
		return false
	}

	var lower, upper, digit, symbol bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			symbol = true
		}
	}

	return lower && upper && digit && symbol
}

// validVerificationCode enforces the code format: exactly 6 characters,
// uppercase letters and digits only.
func validVerificationCode(fl validator.FieldLevel) bool {
	code := fl.Field().String()
	if len(code) != 6 {
		return false
	}

	for i := 0; i < len(code); i++ {
		c := code[i]
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return false
		}
	}

	return true
}
