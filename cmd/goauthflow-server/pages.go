package main

import (
	"encoding/json"
	"net/http"

	"github.com/MrEthical07/goAuthFlow/middleware"
	"github.com/MrEthical07/goAuthFlow/onboarding"
	"go.uber.org/zap"
)

type onboardingStep struct {
	Number int    `json:"number"`
	Label  string `json:"label"`
	Status string `json:"status"`
}

// pages stands in for the front end. The route guard in front of it decides
// which of these a visitor may reach.
func pages(logger *zap.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/dashboard", http.StatusTemporaryRedirect)
	})
	mux.HandleFunc("GET /login", func(w http.ResponseWriter, _ *http.Request) {
		writePage(w, "Sign in: POST /api/auth/otp/request then /api/auth/otp/verify or /api/auth/login.\n")
	})
	mux.HandleFunc("GET /signup", func(w http.ResponseWriter, _ *http.Request) {
		writePage(w, "Create an account: POST /api/auth/otp/request with purpose=signup.\n")
	})
	mux.HandleFunc("GET /dashboard", func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.ClaimsFromContext(r.Context())
		if !ok {
			http.Redirect(w, r, "/login", http.StatusTemporaryRedirect)
			return
		}

		stepper := onboarding.NewStepper()
		steps := make([]onboardingStep, 0, len(onboarding.Steps))
		for i, s := range onboarding.Steps {
			steps = append(steps, onboardingStep{
				Number: i + 1,
				Label:  s.Label,
				Status: stepper.Status(i + 1).String(),
			})
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		if err := json.NewEncoder(w).Encode(map[string]any{
			"accountId":  claims.AccountID,
			"method":     claims.Method,
			"onboarding": steps,
		}); err != nil {
			logger.Debug("dashboard write failed", zap.Error(err))
		}
	})
	return mux
}

func writePage(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(body))
}
