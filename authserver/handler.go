package authserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"

	goAuthFlow "github.com/MrEthical07/goAuthFlow"
	"github.com/MrEthical07/goAuthFlow/identifier"
	"github.com/MrEthical07/goAuthFlow/session"
	"github.com/go-playground/mold/v4/modifiers"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

const (
	PathOTPRequest     = "/api/auth/otp/request"
	PathOTPVerify      = "/api/auth/otp/verify"
	PathLogin          = "/api/auth/login"
	PathSignup         = "/api/auth/signup"
	PathSession        = "/api/auth/session"
	PathGoogleStart    = "/api/auth/google"
	PathGoogleCallback = "/api/auth/google/callback"
	PathDevOTP         = "/api/dev/otp"

	maxBodyBytes = 16 << 10
)

var (
	formValidator = newFormValidator()
	formModifier  = modifiers.New()
)

func newFormValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type otpRequestForm struct {
	Identifier string `json:"identifier" mod:"trim" validate:"required"`
	Method     string `json:"method" mod:"trim,lcase" validate:"omitempty,oneof=email phone"`
	Region     string `json:"region" mod:"trim,ucase" validate:"omitempty,iso3166_1_alpha2"`
	Purpose    string `json:"purpose" mod:"trim,lcase" validate:"required,oneof=login signup"`
}

type otpVerifyForm struct {
	Identifier     string `json:"identifier" mod:"trim"`
	OTP            string `json:"otp" mod:"trim" validate:"required,numeric"`
	VerificationID string `json:"verificationId" mod:"trim" validate:"required"`
	AuthToken      string `json:"authToken" mod:"trim" validate:"required"`
}

type credentialsForm struct {
	Identifier string `json:"identifier" mod:"trim" validate:"required"`
	Password   string `json:"password" validate:"required,max=1024"`
}

type sessionForm struct {
	Token string `json:"token" mod:"trim" validate:"required"`
}

type tokenResponse struct {
	Token string `json:"token,omitempty"`
}

// HandlerConfig configures the HTTP surface of a [Service].
type HandlerConfig struct {
	Cookie session.CookieConfig
	// TrustProxy makes per-IP throttling read X-Forwarded-For.
	TrustProxy bool
	// DevOTPEcho exposes GET /api/dev/otp for senders implementing
	// [CodeLookup]. Never enable it in production.
	DevOTPEcho bool
	// Google enables the Google sign-in routes when set.
	Google *GoogleProvider
}

// Handler serves the verification API. Errors are written as
// {"code","message","field"} with the status chosen by the error code.
type Handler struct {
	svc    *Service
	cfg    HandlerConfig
	logger *zap.Logger
	mux    *http.ServeMux
}

func NewHandler(svc *Service, cfg HandlerConfig, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Cookie.Name == "" {
		cfg.Cookie = session.DefaultCookieConfig()
	}
	h := &Handler{
		svc:    svc,
		cfg:    cfg,
		logger: logger.Named("http"),
		mux:    http.NewServeMux(),
	}

	h.mux.HandleFunc("POST "+PathOTPRequest, h.handleRequestOTP)
	h.mux.HandleFunc("POST "+PathOTPVerify, h.handleVerifyOTP)
	h.mux.HandleFunc("POST "+PathLogin, h.handleLogin)
	h.mux.HandleFunc("POST "+PathSignup, h.handleSignup)
	h.mux.HandleFunc("POST "+PathSession, h.handlePersistSession)
	h.mux.HandleFunc("DELETE "+PathSession, h.handleClearSession)

	if cfg.Google != nil {
		h.mux.HandleFunc("GET "+PathGoogleStart, h.handleGoogleStart)
		h.mux.HandleFunc("GET "+PathGoogleCallback, h.handleGoogleCallback)
	}
	if lookup, ok := svc.sender.(CodeLookup); ok && cfg.DevOTPEcho {
		h.mux.HandleFunc("GET "+PathDevOTP, h.handleDevOTP(lookup))
		h.logger.Warn("development otp echo enabled")
	}
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := WithClientIP(r.Context(), ClientIP(r, h.cfg.TrustProxy))
	h.mux.ServeHTTP(w, r.WithContext(ctx))
}

func (h *Handler) handleRequestOTP(w http.ResponseWriter, r *http.Request) {
	var form otpRequestForm
	if !h.decode(w, r, &form) {
		return
	}

	_, kind := identifier.Normalize(form.Identifier)
	if kind == identifier.KindInvalid {
		h.writeError(w, goAuthFlow.ValidationError(goAuthFlow.CodeInvalidIdentifier, "identifier", ""))
		return
	}
	method := methodOf(kind)
	if form.Method != "" && form.Method != method.String() {
		h.writeError(w, goAuthFlow.ValidationError(goAuthFlow.CodeInvalidIdentifier, "identifier", ""))
		return
	}
	purpose, _ := goAuthFlow.ParseVariant(form.Purpose)

	challenge, err := h.svc.RequestOTP(r.Context(), goAuthFlow.OTPRequest{
		Identifier: form.Identifier,
		Method:     method,
		Region:     form.Region,
		Purpose:    purpose,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, challenge)
}

func (h *Handler) handleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	var form otpVerifyForm
	if !h.decode(w, r, &form) {
		return
	}

	token, err := h.svc.VerifyOTP(r.Context(), goAuthFlow.OTPVerification{
		Identifier:     form.Identifier,
		OTP:            form.OTP,
		VerificationID: form.VerificationID,
		AuthToken:      form.AuthToken,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{Token: token})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	h.handleCredentials(w, r, h.svc.LoginWithPassword)
}

func (h *Handler) handleSignup(w http.ResponseWriter, r *http.Request) {
	h.handleCredentials(w, r, h.svc.CreateAccount)
}

func (h *Handler) handleCredentials(
	w http.ResponseWriter,
	r *http.Request,
	call func(context.Context, goAuthFlow.Credentials) (string, error),
) {
	var form credentialsForm
	if !h.decode(w, r, &form) {
		return
	}

	token, err := call(r.Context(), goAuthFlow.Credentials{
		Identifier: form.Identifier,
		Password:   form.Password,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{Token: token})
}

func (h *Handler) handlePersistSession(w http.ResponseWriter, r *http.Request) {
	var form sessionForm
	if !h.decode(w, r, &form) {
		return
	}

	if _, err := h.svc.tokens.Parse(form.Token); err != nil {
		h.writeError(w, goAuthFlow.ServiceError(goAuthFlow.CodeInvalidCredentials, "", ""))
		return
	}
	session.SetCookie(w, form.Token, h.cfg.Cookie)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleClearSession(w http.ResponseWriter, _ *http.Request) {
	session.ClearCookie(w, h.cfg.Cookie)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleDevOTP(lookup CodeLookup) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code, ok := lookup.Code(r.URL.Query().Get("verificationId"))
		if !ok {
			h.writeError(w, goAuthFlow.ServiceError(goAuthFlow.CodeExpiredOTP, "", "verificationId"))
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"otp": code})
	}
}

// decode reads, normalizes and validates a JSON form. It writes the error
// response itself and reports whether the handler should continue.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, form any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(form); err != nil {
		h.writeError(w, goAuthFlow.ValidationError(goAuthFlow.CodeUnknown, "", "Malformed request body"))
		return false
	}
	if err := formModifier.Struct(r.Context(), form); err != nil {
		h.writeError(w, goAuthFlow.ValidationError(goAuthFlow.CodeUnknown, "", "Malformed request body"))
		return false
	}
	if err := formValidator.Struct(form); err != nil {
		h.writeError(w, validationFailure(err))
		return false
	}
	return true
}

// validationFailure reports the first failing field.
func validationFailure(err error) *goAuthFlow.AuthError {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return goAuthFlow.ValidationError(goAuthFlow.CodeUnknown, "", "")
	}
	field := fieldErrs[0].Field()
	switch field {
	case "identifier":
		return goAuthFlow.ValidationError(goAuthFlow.CodeInvalidIdentifier, field, "")
	case "otp":
		return goAuthFlow.ValidationError(goAuthFlow.CodeIncompleteOTP, field, "")
	case "password":
		return goAuthFlow.ValidationError(goAuthFlow.CodeInvalidPassword, field, "")
	case "verificationId", "authToken":
		return goAuthFlow.ValidationError(goAuthFlow.CodeExpiredOTP, field, "")
	default:
		return goAuthFlow.ValidationError(goAuthFlow.CodeUnknown, field, "Invalid "+field)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	authErr := goAuthFlow.NormalizeError(err)
	status := statusFor(authErr)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", zap.Error(err))
	}
	writeJSON(w, status, authErr)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
