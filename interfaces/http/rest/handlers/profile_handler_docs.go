package handlers

// OpenAPI annotations for ProfileHandler. The served document lives in
// interfaces/http/rest/docs and is regenerated with swag init.

// Analyze analyzes a parameter set
// @Summary Analyze a profile
// @Description Analyzes a parameter set against the configured field ranges. Values that do not parse or overflow read as zero.
// @Tags analysis
// @Accept json
// @Produce json
// @Param request body handlers.AnalyzeRequest true "Parameter texts keyed by field"
// @Success 200 {object} queries.AnalysisView "Analysis"
// @Failure 400 {object} errors.ErrorResponse "Invalid request"
// @Router /analysis [post]

// Fields lists field ranges
// @Summary List field ranges
// @Tags analysis
// @Produce json
// @Success 200 {object} map[string]interface{} "Field ranges keyed by field"
// @Router /fields [get]

// ListProfiles lists saved profiles
// @Summary List saved profiles
// @Tags profiles
// @Produce json
// @Success 200 {object} map[string]interface{} "Profiles newest first"
// @Failure 401 {object} errors.ErrorResponse "Unauthorized"
// @Security BearerAuth
// @Router /profiles [get]

// SaveProfile saves a profile
// @Summary Save a profile
// @Description Saves the session parameters, or the supplied ones, under a name derived id
// @Tags profiles
// @Accept json
// @Produce json
// @Param request body handlers.SaveProfileRequest true "Profile name and optional parameters"
// @Success 201 {object} handlers.SaveProfileResponse "Saved"
// @Failure 400 {object} errors.ErrorResponse "Invalid request"
// @Failure 401 {object} errors.ErrorResponse "Unauthorized"
// @Failure 503 {object} errors.ErrorResponse "Store unavailable"
// @Security BearerAuth
// @Router /profiles [post]

// GetProfile gets a saved profile
// @Summary Get a saved profile
// @Tags profiles
// @Produce json
// @Param profileID path string true "Profile ID"
// @Success 200 {object} queries.ProfileView "Profile"
// @Failure 404 {object} errors.ErrorResponse "Not found"
// @Security BearerAuth
// @Router /profiles/{profileID} [get]

// DeleteProfile deletes a saved profile
// @Summary Delete a saved profile
// @Tags profiles
// @Param profileID path string true "Profile ID"
// @Success 204 "Deleted"
// @Failure 401 {object} errors.ErrorResponse "Unauthorized"
// @Security BearerAuth
// @Router /profiles/{profileID} [delete]
