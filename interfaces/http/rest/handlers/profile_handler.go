package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Widerk/shapesbonding/application/commands"
	"github.com/Widerk/shapesbonding/application/commands/bus"
	"github.com/Widerk/shapesbonding/application/queries"
	querybus "github.com/Widerk/shapesbonding/application/queries/bus"
	"github.com/Widerk/shapesbonding/domain/core/entities"
	"github.com/Widerk/shapesbonding/pkg/auth"
	pkgerrors "github.com/Widerk/shapesbonding/pkg/errors"
)

// ProfileHandler handles analysis and profile history requests
type ProfileHandler struct {
	commandBus *bus.CommandBus
	queryBus   *querybus.QueryBus
	errors     *pkgerrors.ErrorHandler
	logger     *zap.Logger
}

// NewProfileHandler creates a new profile handler
func NewProfileHandler(
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	errs *pkgerrors.ErrorHandler,
	logger *zap.Logger,
) *ProfileHandler {
	return &ProfileHandler{
		commandBus: commandBus,
		queryBus:   queryBus,
		errors:     errs,
		logger:     logger,
	}
}

// AnalyzeRequest is the body of POST /analysis
type AnalyzeRequest struct {
	Params map[string]string `json:"params"`
}

// SaveProfileRequest is the body of POST /profiles
type SaveProfileRequest struct {
	Name   string            `json:"name"`
	Params map[string]string `json:"params,omitempty"`
}

// SaveProfileResponse is returned after the store accepted a save
type SaveProfileResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Area      string `json:"area"`
	Timestamp string `json:"timestamp"`
}

// Analyze handles POST /analysis
func (h *ProfileHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errors.Handle(w, r, pkgerrors.NewValidationError("Invalid request body: "+err.Error()))
		return
	}

	result, err := h.queryBus.Ask(r.Context(), queries.AnalyzeProfileQuery{Params: req.Params})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, result)
}

// Fields handles GET /fields
func (h *ProfileHandler) Fields(w http.ResponseWriter, r *http.Request) {
	result, err := h.queryBus.Ask(r.Context(), queries.GetFieldRangesQuery{})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, map[string]interface{}{"fields": result})
}

// ListProfiles handles GET /profiles
func (h *ProfileHandler) ListProfiles(w http.ResponseWriter, r *http.Request) {
	user, ok := h.user(w, r)
	if !ok {
		return
	}

	result, err := h.queryBus.Ask(r.Context(), queries.ListProfilesQuery{UserID: user.UserID})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	profiles := result.([]queries.ProfileView)
	h.respondJSON(w, r, http.StatusOK, map[string]interface{}{
		"profiles": profiles,
		"total":    len(profiles),
	})
}

// SaveProfile handles POST /profiles
func (h *ProfileHandler) SaveProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := h.user(w, r)
	if !ok {
		return
	}

	var req SaveProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errors.Handle(w, r, pkgerrors.NewValidationError("Invalid request body: "+err.Error()))
		return
	}

	result, err := h.commandBus.Send(r.Context(), commands.SaveProfileCommand{
		UserID: user.UserID,
		Name:   req.Name,
		Params: req.Params,
	})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	profile := result.(*entities.Profile)
	record := profile.ToRecord()
	h.respondJSON(w, r, http.StatusCreated, SaveProfileResponse{
		ID:        profile.ID().String(),
		Name:      record.Name,
		Area:      record.Area,
		Timestamp: record.Timestamp,
	})
}

// GetProfile handles GET /profiles/{profileID}
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := h.user(w, r)
	if !ok {
		return
	}

	result, err := h.queryBus.Ask(r.Context(), queries.GetProfileQuery{
		UserID:    user.UserID,
		ProfileID: chi.URLParam(r, "profileID"),
	})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, result)
}

// DeleteProfile handles DELETE /profiles/{profileID}
func (h *ProfileHandler) DeleteProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := h.user(w, r)
	if !ok {
		return
	}

	_, err := h.commandBus.Send(r.Context(), commands.DeleteProfileCommand{
		UserID:    user.UserID,
		ProfileID: chi.URLParam(r, "profileID"),
	})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ProfileHandler) user(w http.ResponseWriter, r *http.Request) (*auth.UserContext, bool) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		h.errors.Handle(w, r, pkgerrors.NewUnauthorizedError("Unauthorized"))
		return nil, false
	}
	return user, true
}

// respondJSON encodes before writing the status so an unencodable body
// becomes an error response instead of an empty success.
func (h *ProfileHandler) respondJSON(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	body, err := json.Marshal(data)
	if err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
		h.errors.Handle(w, r, pkgerrors.NewInternalError("Failed to encode response"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}
