package handlers

import (
	"context"
	"fmt"

	"github.com/Widerk/shapesbonding/application/queries"
	"github.com/Widerk/shapesbonding/application/queries/bus"
	"github.com/Widerk/shapesbonding/application/services"
	"github.com/Widerk/shapesbonding/domain/core/valueobjects"
	"github.com/Widerk/shapesbonding/domain/geometry"
	pkgerrors "github.com/Widerk/shapesbonding/pkg/errors"
)

// ProfileQueryHandler answers every read query
type ProfileQueryHandler struct {
	sessions *services.SessionManager
	engine   *geometry.Engine
}

// NewProfileQueryHandler creates a new query handler
func NewProfileQueryHandler(sessions *services.SessionManager, engine *geometry.Engine) *ProfileQueryHandler {
	return &ProfileQueryHandler{sessions: sessions, engine: engine}
}

// Handle dispatches on the query type
func (h *ProfileQueryHandler) Handle(ctx context.Context, q bus.Query) (interface{}, error) {
	switch query := q.(type) {
	case queries.AnalyzeProfileQuery:
		return h.analyze(query), nil
	case queries.ListProfilesQuery:
		return h.list(query)
	case queries.GetProfileQuery:
		return h.get(query)
	case queries.GetFieldRangesQuery:
		return h.engine.Ranges(), nil
	default:
		return nil, fmt.Errorf("unexpected query %T", q)
	}
}

func (h *ProfileQueryHandler) analyze(q queries.AnalyzeProfileQuery) queries.AnalysisView {
	params := valueobjects.NewParameterSet(q.Params)
	return queries.NewAnalysisView(params, h.engine.Analyze(params))
}

func (h *ProfileQueryHandler) list(q queries.ListProfilesQuery) ([]queries.ProfileView, error) {
	wb, err := h.sessions.Acquire(q.UserID)
	if err != nil {
		return nil, err
	}
	return queries.NewProfileViews(wb.History().Profiles()), nil
}

func (h *ProfileQueryHandler) get(q queries.GetProfileQuery) (queries.ProfileView, error) {
	wb, err := h.sessions.Acquire(q.UserID)
	if err != nil {
		return queries.ProfileView{}, err
	}
	id, err := valueobjects.NewProfileIDFromString(q.ProfileID)
	if err != nil {
		return queries.ProfileView{}, err
	}
	profile, ok := wb.History().Get(id)
	if !ok {
		return queries.ProfileView{}, pkgerrors.NewNotFoundError("profile").WithCode(pkgerrors.CodeProfileNotFound)
	}
	return queries.NewProfileView(profile), nil
}

// Register wires the handler for every read query
func Register(b *bus.QueryBus, h *ProfileQueryHandler) error {
	for _, q := range []bus.Query{
		queries.AnalyzeProfileQuery{},
		queries.ListProfilesQuery{},
		queries.GetProfileQuery{},
		queries.GetFieldRangesQuery{},
	} {
		if err := b.Register(q, h); err != nil {
			return err
		}
	}
	return nil
}
