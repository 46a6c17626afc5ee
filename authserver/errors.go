package authserver

import (
	"errors"
	"net/http"

	goAuthFlow "github.com/MrEthical07/goAuthFlow"
	"github.com/MrEthical07/goAuthFlow/internal/rate"
	"github.com/MrEthical07/goAuthFlow/internal/stores"
)

// mapChallengeError translates challenge store failures into wire errors.
func mapChallengeError(err error) *goAuthFlow.AuthError {
	switch {
	case errors.Is(err, stores.ErrChallengeNotFound):
		return goAuthFlow.ServiceError(goAuthFlow.CodeExpiredOTP, "", "otp")
	case errors.Is(err, stores.ErrChallengeMismatch):
		return goAuthFlow.ServiceError(goAuthFlow.CodeInvalidOTP, "", "otp")
	case errors.Is(err, stores.ErrChallengeAttemptsExceeded):
		return goAuthFlow.ServiceError(goAuthFlow.CodeTooManyAttempts, "", "otp")
	default:
		return goAuthFlow.ServiceError(goAuthFlow.CodeUnknown, "", "")
	}
}

func mapAccountError(err error) *goAuthFlow.AuthError {
	switch {
	case errors.Is(err, stores.ErrAccountExists):
		return goAuthFlow.ServiceError(goAuthFlow.CodeAccountExists, "", "identifier")
	case errors.Is(err, stores.ErrAccountNotFound):
		return goAuthFlow.ServiceError(goAuthFlow.CodeInvalidCredentials, "", "")
	default:
		return goAuthFlow.ServiceError(goAuthFlow.CodeUnknown, "", "")
	}
}

func mapRateError(err error, code goAuthFlow.Code) *goAuthFlow.AuthError {
	if errors.Is(err, rate.ErrRateLimited) {
		return goAuthFlow.ServiceError(code, "", "")
	}
	return goAuthFlow.ServiceError(goAuthFlow.CodeUnknown, "", "")
}

// statusFor picks the HTTP status written with an error body.
func statusFor(e *goAuthFlow.AuthError) int {
	if e.Kind == goAuthFlow.KindValidation {
		return http.StatusBadRequest
	}
	switch e.Code {
	case goAuthFlow.CodeInvalidCredentials, goAuthFlow.CodeInvalidOTP:
		return http.StatusUnauthorized
	case goAuthFlow.CodeExpiredOTP:
		return http.StatusGone
	case goAuthFlow.CodeTooManyAttempts, goAuthFlow.CodeRateLimited:
		return http.StatusTooManyRequests
	case goAuthFlow.CodeAccountExists:
		return http.StatusConflict
	case goAuthFlow.CodeInvalidIdentifier, goAuthFlow.CodeIncompleteOTP, goAuthFlow.CodeInvalidPassword,
		goAuthFlow.CodePasswordPolicy, goAuthFlow.CodePasswordMismatch:
		return http.StatusBadRequest
	case goAuthFlow.CodeNetworkError:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
