// Package web defines common components for a web application.
package web

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Response holds the common response type for all APIs.
type Response struct {
	AccessToken           string    `json:"access_token,omitempty"`
	AccessTokenExpiresAt  time.Time `json:"access_token_expires_at,omitempty"`
	RefreshToken          string    `json:"refresh_token,omitempty"`
	RefreshTokenExpiresAt time.Time `json:"refresh_token_expires_at,omitempty"`
	Data                  any       `json:"data,omitempty"`
	Error                 string    `json:"error,omitempty"`
}

// Error wraps a given err into json friendly response.
func Error(err error) Response {
	return Response{Error: err.Error()}
}

// GetErrorMsg returns human readable message for the first failed validation.
func GetErrorMsg(ve validator.ValidationErrors) string {
	if len(ve) == 0 {
		return ""
	}

	fe := ve[0]

	return fe.Field() + fieldErrorMsg(fe)
}

func fieldErrorMsg(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return " field is required"
	case "min":
		return fmt.Sprintf(" must be at least %s characters long", fe.Param())
	case "max":
		return fmt.Sprintf(" must be at most %s characters long", fe.Param())
	case "email":
		return " must be a valid email"
	case "alphanum":
		return " accepts only alphanumeric characters"
	case "currency":
		return " is not supported"
	case "amount":
		return " must be a positive amount with at most 2 decimal places"
	case "account_status":
		return " must be one of active, frozen, closed"
	}

	return " is invalid"
}
