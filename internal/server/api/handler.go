package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/hlog"

	"hijack-addon/hijack/internal/permissions"
	"hijack-addon/hijack/internal/settings"
)

// SettingResponse is the body of GET /v1/settings/{name}.
type SettingResponse struct {
	Name   string          `json:"name"`
	Value  any             `json:"value"`
	Source settings.Source `json:"source"`
}

// PolicyResponse is the body of GET /v1/permissions/{id}.
type PolicyResponse struct {
	ID     string `json:"id"`
	Active bool   `json:"active"`
}

// CheckRequest is the body of POST /v1/permissions/check.
type CheckRequest struct {
	Hijacker permissions.User `json:"hijacker"`
	Hijacked permissions.User `json:"hijacked"`
}

// CheckResponse carries the decision of the policy PERMISSION_CHECK selects.
type CheckResponse struct {
	Policy  string `json:"policy"`
	Allowed bool   `json:"allowed"`
}

// Resolver is the read side of the settings proxy.
type Resolver interface {
	Resolve(name string) (any, settings.Source, error)
	PermissionCheck() (string, error)
}

// SettingsHandler serves read-only settings lookups.
type SettingsHandler struct {
	settings Resolver
	policies *permissions.Registry
}

// NewSettingsHandler creates a new handler instance.
func NewSettingsHandler(s Resolver, policies *permissions.Registry) *SettingsHandler {
	return &SettingsHandler{settings: s, policies: policies}
}

// GetSetting resolves one setting through the proxy.
func (h *SettingsHandler) GetSetting(w http.ResponseWriter, r *http.Request) {
	log := hlog.FromRequest(r)
	name := r.PathValue("name")

	value, source, err := h.settings.Resolve(name)
	if errors.Is(err, settings.ErrMissingAttribute) {
		log.Debug().Str("name", name).Msg("Setting not defined")
		http.Error(w, "Setting not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Error().Err(err).Str("name", name).Msg("Failed to resolve setting")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, r, SettingResponse{Name: name, Value: value, Source: source})
}

// GetPolicy reports whether a permission policy is registered and whether
// it is the one PERMISSION_CHECK currently selects.
func (h *SettingsHandler) GetPolicy(w http.ResponseWriter, r *http.Request) {
	log := hlog.FromRequest(r)
	id := r.PathValue("id")

	if _, err := h.policies.Resolve(id); err != nil {
		log.Debug().Err(err).Str("id", id).Msg("Unknown permission policy")
		http.Error(w, "Policy not found", http.StatusNotFound)
		return
	}

	current, err := h.settings.PermissionCheck()
	if err != nil {
		log.Warn().Err(err).Msg("Permission check setting unavailable")
	}

	writeJSON(w, r, PolicyResponse{ID: id, Active: err == nil && current == id})
}

// CheckPermission evaluates the configured permission policy for a
// hijacker/hijacked pair.
func (h *SettingsHandler) CheckPermission(w http.ResponseWriter, r *http.Request) {
	log := hlog.FromRequest(r)

	var req CheckRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		log.Warn().Err(err).Msg("Invalid permission check body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	policy, err := h.settings.PermissionCheck()
	if err != nil {
		log.Error().Err(err).Msg("Permission check setting unavailable")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	check, err := h.policies.Resolve(policy)
	if err != nil {
		log.Error().Err(err).Str("policy", policy).Msg("Configured permission policy is not registered")
		http.Error(w, "Permission policy not registered", http.StatusInternalServerError)
		return
	}

	allowed := check(req.Hijacker, req.Hijacked)
	log.Info().
		Str("policy", policy).
		Str("hijacker", req.Hijacker.ID).
		Str("hijacked", req.Hijacked.ID).
		Bool("allowed", allowed).
		Msg("Permission checked")

	writeJSON(w, r, CheckResponse{Policy: policy, Allowed: allowed})
}

func writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("Failed to encode JSON response")
	}
}
