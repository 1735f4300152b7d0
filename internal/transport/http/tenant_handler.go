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

package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/darasa/darasa/internal/observability/logger"
	"github.com/darasa/darasa/internal/tenant"
)

// CreateTenantRequest represents tenant registration data
type CreateTenantRequest struct {
	Name         string `json:"name"`
	Subdomain    string `json:"subdomain"`
	CustomDomain string `json:"custom_domain,omitempty"`
}

// CreateTenant registers a new school and kicks off provisioning. The
// response is 202: setup runs detached from this request and its outcome is
// reported through the provisioning status endpoint, never here.
func (h *Handler) CreateTenant(w http.ResponseWriter, r *http.Request) {
	var req CreateTenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	t, err := h.tenantService.Create(r.Context(), req.Name, req.Subdomain, req.CustomDomain)
	if err != nil {
		switch {
		case errors.Is(err, tenant.ErrSubdomainTaken):
			respondError(w, http.StatusConflict, "subdomain already in use")
		case errors.Is(err, tenant.ErrInvalidName), errors.Is(err, tenant.ErrInvalidSubdomain):
			respondError(w, http.StatusBadRequest, err.Error())
		default:
			slog.ErrorContext(r.Context(), "failed to create tenant",
				logger.Error(err),
				logger.Subdomain(req.Subdomain),
			)
			respondError(w, http.StatusInternalServerError, "failed to create tenant")
		}
		return
	}

	respondJSON(w, http.StatusAccepted, t)
}

// ListTenants returns live tenants, newest first.
func (h *Handler) ListTenants(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	tenants, err := h.tenantService.List(r.Context(), limit, offset)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to list tenants", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to list tenants")
		return
	}
	if tenants == nil {
		tenants = []*tenant.Tenant{}
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"tenants": tenants,
		"limit":   limit,
		"offset":  offset,
	})
}

// GetTenant returns one tenant by ID.
func (h *Handler) GetTenant(w http.ResponseWriter, r *http.Request) {
	t, err := h.tenantService.Get(r.Context(), chi.URLParam(r, "tenantID"))
	if err != nil {
		if errors.Is(err, tenant.ErrTenantNotFound) {
			respondError(w, http.StatusNotFound, "tenant not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to get tenant")
		return
	}
	respondJSON(w, http.StatusOK, t)
}

// ProvisioningStatusResponse reports where a tenant is in its setup.
type ProvisioningStatusResponse struct {
	TenantID     string    `json:"tenant_id"`
	TenantStatus string    `json:"tenant_status"`
	SetupState   string    `json:"setup_state"`
	StartedAt    time.Time `json:"started_at,omitempty"`
	ElapsedMS    int64     `json:"elapsed_ms,omitempty"`
}

// GetProvisioningStatus combines the durable tenant status with the
// in-memory setup tracker. A tenant that is "pending" with no in-flight
// setup usually means the process restarted mid-provisioning; the
// reprovision tool exists for that case.
func (h *Handler) GetProvisioningStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "tenantID")

	t, err := h.tenantService.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, tenant.ErrTenantNotFound) {
			respondError(w, http.StatusNotFound, "tenant not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to get tenant")
		return
	}

	resp := ProvisioningStatusResponse{
		TenantID:     t.ID,
		TenantStatus: string(t.Status),
		SetupState:   string(h.tracker.Status(t.ID)),
	}
	if startedAt, ok := h.tracker.StartedAt(t.ID); ok {
		resp.StartedAt = startedAt
		resp.ElapsedMS = time.Since(startedAt).Milliseconds()
	}

	respondJSON(w, http.StatusOK, resp)
}

// RotateAPIKey issues a fresh API key for an active tenant. The raw key
// appears only in this response; the platform stores a hash.
func (h *Handler) RotateAPIKey(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "tenantID")

	key, err := h.tenantService.RotateAPIKey(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, tenant.ErrTenantNotFound):
			respondError(w, http.StatusNotFound, "tenant not found")
		case errors.Is(err, tenant.ErrTenantNotActive):
			respondError(w, http.StatusConflict, "tenant is not active")
		default:
			slog.ErrorContext(r.Context(), "failed to rotate api key",
				logger.Error(err),
				logger.TenantID(id),
			)
			respondError(w, http.StatusInternalServerError, "failed to rotate api key")
		}
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"api_key": key,
	})
}

// DeleteTenant soft-deletes a tenant. Its database is kept; only
// connections are released.
func (h *Handler) DeleteTenant(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "tenantID")

	if err := h.tenantService.Delete(r.Context(), id); err != nil {
		if errors.Is(err, tenant.ErrTenantNotFound) {
			respondError(w, http.StatusNotFound, "tenant not found")
			return
		}
		slog.ErrorContext(r.Context(), "failed to delete tenant",
			logger.Error(err),
			logger.TenantID(id),
		)
		respondError(w, http.StatusInternalServerError, "failed to delete tenant")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "tenant deleted",
	})
}

// PermanentlyDeleteTenant removes the tenant record and drops its
// database. Irreversible.
func (h *Handler) PermanentlyDeleteTenant(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "tenantID")

	if err := h.tenantService.PermanentlyDelete(r.Context(), id); err != nil {
		if errors.Is(err, tenant.ErrTenantNotFound) {
			respondError(w, http.StatusNotFound, "tenant not found")
			return
		}
		slog.ErrorContext(r.Context(), "failed to permanently delete tenant",
			logger.Error(err),
			logger.TenantID(id),
		)
		respondError(w, http.StatusInternalServerError, "failed to permanently delete tenant")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "tenant permanently deleted",
	})
}

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return def
	}
	return n
}
