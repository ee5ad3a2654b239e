package queries

import (
	"github.com/Widerk/shapesbonding/domain/core/entities"
	"github.com/Widerk/shapesbonding/domain/core/valueobjects"
	"github.com/Widerk/shapesbonding/domain/geometry"
	"github.com/Widerk/shapesbonding/pkg/utils"
)

// AnalyzeProfileQuery analyzes a parameter set without saving it. Missing
// fields take their defaults.
type AnalyzeProfileQuery struct {
	Params map[string]string `json:"params" validate:"omitempty,dive,keys,oneof=A B C D E L_start L_end rho,endkeys,max=64"`
}

// Validate validates the query
func (q AnalyzeProfileQuery) Validate() error {
	return utils.ValidateStruct(q)
}

// ListProfilesQuery lists the caller's profile history
type ListProfilesQuery struct {
	UserID string `validate:"required"`
}

// Validate validates the query
func (q ListProfilesQuery) Validate() error {
	return utils.ValidateStruct(q)
}

// GetProfileQuery fetches one saved profile
type GetProfileQuery struct {
	UserID    string `validate:"required"`
	ProfileID string `validate:"required"`
}

// Validate validates the query
func (q GetProfileQuery) Validate() error {
	return utils.ValidateStruct(q)
}

// GetFieldRangesQuery returns the slider configuration in effect
type GetFieldRangesQuery struct{}

// Validate validates the query
func (q GetFieldRangesQuery) Validate() error { return nil }

// AnalysisView is an analysis together with the inputs that produced it
type AnalysisView struct {
	Params  map[string]string       `json:"params"`
	Result  geometry.AnalysisResult `json:"result"`
	Summary geometry.Summary        `json:"summary"`
}

// NewAnalysisView builds the view for params
func NewAnalysisView(params valueobjects.ParameterSet, result geometry.AnalysisResult) AnalysisView {
	return AnalysisView{
		Params:  params.TextView(),
		Result:  result,
		Summary: result.Summary(),
	}
}

// ProfileView is a saved profile as served to clients
type ProfileView struct {
	ID string `json:"id"`
	entities.ProfileRecord
}

// NewProfileView builds the view for p
func NewProfileView(p *entities.Profile) ProfileView {
	return ProfileView{ID: p.ID().String(), ProfileRecord: p.ToRecord()}
}

// NewProfileViews converts an ordered history, keeping its order
func NewProfileViews(profiles []*entities.Profile) []ProfileView {
	views := make([]ProfileView, 0, len(profiles))
	for _, p := range profiles {
		views = append(views, NewProfileView(p))
	}
	return views
}
