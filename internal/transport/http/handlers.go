// Copyright 2026 The Darasa Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package http exposes the platform-admin API and health endpoints.
package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/darasa/darasa/internal/health"
	"github.com/darasa/darasa/internal/provisioning"
	"github.com/darasa/darasa/internal/tenant"
)

// Handler holds HTTP handlers and dependencies
type Handler struct {
	tenantService *tenant.Service
	tracker       *provisioning.Tracker
	healthService *health.Service
	authConfig    AuthConfig
}

// AuthConfig holds platform-admin token settings.
type AuthConfig struct {
	TokenSecret   string
	TokenLifetime time.Duration
}

// NewHandler creates a new HTTP handler
func NewHandler(
	tenantService *tenant.Service,
	tracker *provisioning.Tracker,
	healthService *health.Service,
	authConfig AuthConfig,
) *Handler {
	return &Handler{
		tenantService: tenantService,
		tracker:       tracker,
		healthService: healthService,
		authConfig:    authConfig,
	}
}

// NewRouter creates a new HTTP router. The timeout bounds HTTP handling
// only; provisioning runs detached from any request and is not subject to
// it.
func NewRouter(h *Handler, rateLimiter *RateLimiter) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(RateLimitMiddleware(rateLimiter))
	r.Use(func(handler http.Handler) http.Handler {
		return otelhttp.NewHandler(handler, "http_request",
			otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
				return r.Method + " " + r.URL.Path
			}),
		)
	})
	r.Use(LoggingMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	// Health checks
	r.Get("/health", h.HealthCheck)
	r.Get("/health/ready", h.ReadyCheck)
	r.Get("/health/detailed", h.DetailedHealth)

	// Platform-admin API
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(h.AdminAuthMiddleware)

		r.Route("/tenants", func(r chi.Router) {
			r.Post("/", h.CreateTenant)
			r.Get("/", h.ListTenants)

			r.Route("/{tenantID}", func(r chi.Router) {
				r.Get("/", h.GetTenant)
				r.Get("/provisioning", h.GetProvisioningStatus)
				r.Post("/apikey", h.RotateAPIKey)
				r.Delete("/", h.DeleteTenant)
				r.Delete("/permanent", h.PermanentlyDeleteTenant)
			})
		})
	})

	return r
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
