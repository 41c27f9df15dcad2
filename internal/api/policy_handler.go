package api

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-scheduler/internal/api/shared"
	"github.com/phrazzld/scry-scheduler/internal/platform/logger"
	"github.com/phrazzld/scry-scheduler/internal/policy"
	"github.com/phrazzld/scry-scheduler/internal/service"
)

// PolicyService is the part of the study service the policy endpoints use.
type PolicyService interface {
	Policy(ctx context.Context, userID uuid.UUID) (service.PolicyView, error)
	ApplyPreset(ctx context.Context, userID uuid.UUID, name string) (service.PolicyView, error)
	UpdateSettings(ctx context.Context, userID uuid.UUID, settings map[string]any) (service.PolicyView, error)
	ResetSettings(ctx context.Context, userID uuid.UUID) (service.PolicyView, error)
	ValidateSettings(ctx context.Context, userID uuid.UUID, settings map[string]any) ([]string, error)
	ExportPolicy(ctx context.Context, userID uuid.UUID) ([]byte, error)
	ImportPolicy(ctx context.Context, userID uuid.UUID, blob []byte) (service.PolicyView, error)
	Adapt(ctx context.Context, userID uuid.UUID) (service.AdaptResult, error)
}

// PolicyHandler serves the scheduling policy endpoints.
type PolicyHandler struct {
	policies PolicyService
	logger   *slog.Logger
}

// NewPolicyHandler creates a new PolicyHandler.
func NewPolicyHandler(policies PolicyService, logger *slog.Logger) *PolicyHandler {
	if policies == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("policy service cannot be nil for PolicyHandler")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PolicyHandler{
		policies: policies,
		logger:   logger.With(slog.String("component", "policy_handler")),
	}
}

// respondView writes a policy view or the error that prevented it.
func (h *PolicyHandler) respondView(w http.ResponseWriter, r *http.Request, view service.PolicyView, err error, failure string) {
	if err != nil {
		HandleAPIError(w, r, err, failure)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, view)
}

// GetPolicy handles GET /policy.
func (h *PolicyHandler) GetPolicy(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r, logger.FromContextOrDefault(r.Context(), h.logger))
	if !ok {
		return
	}
	view, err := h.policies.Policy(r.Context(), userID)
	h.respondView(w, r, view, err, "Failed to get policy")
}

// ListPresets handles GET /policy/presets.
func (h *PolicyHandler) ListPresets(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, policy.Presets())
}

// ApplyPreset handles PUT /policy/preset.
func (h *PolicyHandler) ApplyPreset(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := requireUser(w, r, log)
	if !ok {
		return
	}
	var req PresetRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	view, err := h.policies.ApplyPreset(r.Context(), userID, req.Preset)
	if err == nil {
		log.Info("preset applied", slog.String("preset", view.Preset))
	}
	h.respondView(w, r, view, err, "Failed to apply preset")
}

// UpdateSettings handles PATCH /policy/settings.
func (h *PolicyHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r, logger.FromContextOrDefault(r.Context(), h.logger))
	if !ok {
		return
	}
	var req SettingsRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	view, err := h.policies.UpdateSettings(r.Context(), userID, req)
	h.respondView(w, r, view, err, "Failed to update settings")
}

// ResetSettings handles DELETE /policy/settings.
func (h *PolicyHandler) ResetSettings(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r, logger.FromContextOrDefault(r.Context(), h.logger))
	if !ok {
		return
	}
	view, err := h.policies.ResetSettings(r.Context(), userID)
	h.respondView(w, r, view, err, "Failed to reset settings")
}

// ValidateSettings handles POST /policy/validate. Violations are reported
// in a 200 response; nothing is changed.
func (h *PolicyHandler) ValidateSettings(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r, logger.FromContextOrDefault(r.Context(), h.logger))
	if !ok {
		return
	}
	var req SettingsRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	violations, err := h.policies.ValidateSettings(r.Context(), userID, req)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to validate settings")
		return
	}
	if violations == nil {
		violations = []string{}
	}
	shared.RespondWithJSON(w, r, http.StatusOK, ValidationResponse{
		Valid:      len(violations) == 0,
		Violations: violations,
	})
}

// ExportPolicy handles GET /policy/export.
func (h *PolicyHandler) ExportPolicy(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r, logger.FromContextOrDefault(r.Context(), h.logger))
	if !ok {
		return
	}
	blob, err := h.policies.ExportPolicy(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to export policy")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="scheduling-policy.json"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(blob); err != nil {
		logger.FromContextOrDefault(r.Context(), h.logger).Error("failed to write policy export",
			slog.String("error", err.Error()))
	}
}

// ImportPolicy handles POST /policy/import. The body is a document produced
// by ExportPolicy.
func (h *PolicyHandler) ImportPolicy(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r, logger.FromContextOrDefault(r.Context(), h.logger))
	if !ok {
		return
	}
	blob, err := io.ReadAll(io.LimitReader(r.Body, shared.MaxBodyBytes))
	if err != nil || len(blob) == 0 {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	view, err := h.policies.ImportPolicy(r.Context(), userID, blob)
	h.respondView(w, r, view, err, "Failed to import policy")
}

// Adapt handles POST /policy/adapt.
func (h *PolicyHandler) Adapt(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r, logger.FromContextOrDefault(r.Context(), h.logger))
	if !ok {
		return
	}
	result, err := h.policies.Adapt(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to adapt policy")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, result)
}
