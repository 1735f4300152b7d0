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
	"net/http"
)

// HealthCheck is the liveness probe. It always answers 200; the health
// state lives in the body. A process that can serve this endpoint is alive
// even when its database is not.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	if !h.healthService.IsHealthy(r.Context()) {
		status = "unhealthy"
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  status,
		"service": "darasa",
	})
}

// ReadyCheck is the readiness probe. Unlike liveness it uses the status
// code: load balancers and orchestrators act on 503, not on body content.
func (h *Handler) ReadyCheck(w http.ResponseWriter, r *http.Request) {
	if !h.healthService.IsReady(r.Context()) {
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not_ready",
		})
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}

// DetailedHealth returns the operator-facing report: database state,
// uptime, open tenant pools, and in-flight provisioning runs.
func (h *Handler) DetailedHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.healthService.Detailed(r.Context()))
}
