package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/Widerk/shapesbonding/application/history"
	"github.com/Widerk/shapesbonding/domain/core/entities"
	"github.com/Widerk/shapesbonding/domain/core/valueobjects"
	"github.com/Widerk/shapesbonding/domain/geometry"
	pkgerrors "github.com/Widerk/shapesbonding/pkg/errors"
)

// Workbench is one user's editing session: the parameter set being edited,
// the engine that analyzes it and the history of saved profiles.
type Workbench struct {
	engine  *geometry.Engine
	history *history.Cache

	mu     sync.Mutex
	params valueobjects.ParameterSet
}

// NewWorkbench starts from the default parameter set
func NewWorkbench(engine *geometry.Engine, cache *history.Cache) *Workbench {
	return &Workbench{
		engine:  engine,
		history: cache,
		params:  valueobjects.DefaultParameterSet(),
	}
}

// History returns the profile history backing this workbench
func (w *Workbench) History() *history.Cache {
	return w.history
}

// Params returns the parameter set being edited
func (w *Workbench) Params() valueobjects.ParameterSet {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.params
}

// Analysis analyzes the current parameter set
func (w *Workbench) Analysis() geometry.AnalysisResult {
	return w.engine.Analyze(w.Params())
}

// SetField stores raw text for key. Text is never rejected; unparseable
// input reads as zero in the analysis.
func (w *Workbench) SetField(key, text string) (geometry.AnalysisResult, error) {
	k, err := valueobjects.ParseParameterKey(key)
	if err != nil {
		return geometry.AnalysisResult{}, err
	}

	w.mu.Lock()
	w.params = w.params.WithField(k, text)
	params := w.params
	w.mu.Unlock()

	return w.engine.Analyze(params), nil
}

// SetSlider moves a dimension slider; value is snapped and clamped to the
// configured range before it is stored as text.
func (w *Workbench) SetSlider(key string, value float64) (geometry.AnalysisResult, error) {
	k, err := valueobjects.ParseParameterKey(key)
	if err != nil {
		return geometry.AnalysisResult{}, err
	}
	if !k.IsDimension() {
		return geometry.AnalysisResult{}, pkgerrors.NewValidationError(
			fmt.Sprintf("field %s has no slider", k),
		)
	}

	w.mu.Lock()
	w.params = w.params.WithSlider(k, value, w.engine.Range(k))
	params := w.params
	w.mu.Unlock()

	return w.engine.Analyze(params), nil
}

// Replace swaps in a whole parameter set
func (w *Workbench) Replace(params valueobjects.ParameterSet) geometry.AnalysisResult {
	w.mu.Lock()
	w.params = params
	w.mu.Unlock()
	return w.engine.Analyze(params)
}

// Save stores the current parameters under name. A blank name becomes
// "Profile N" where N is one more than the current history size.
func (w *Workbench) Save(ctx context.Context, name string) (*entities.Profile, error) {
	return w.SaveParams(ctx, name, w.Params())
}

// SaveParams stores params under name without touching the parameters
// being edited. Naming follows Save.
func (w *Workbench) SaveParams(ctx context.Context, name string, params valueobjects.ParameterSet) (*entities.Profile, error) {
	owner, _ := w.history.Identity()

	name = strings.TrimSpace(name)
	if name == "" {
		name = fmt.Sprintf("Profile %d", w.history.Len()+1)
	}

	area := w.engine.Analyze(params).AreaSnapshot()
	return w.history.Save(ctx, name, params, area, owner)
}

// Delete removes a saved profile
func (w *Workbench) Delete(ctx context.Context, id string) error {
	profileID, err := valueobjects.NewProfileIDFromString(id)
	if err != nil {
		return err
	}
	owner, _ := w.history.Identity()
	return w.history.Delete(ctx, profileID, owner)
}

// Restore loads a saved profile's parameters into the workbench
func (w *Workbench) Restore(id string) (geometry.AnalysisResult, error) {
	profileID, err := valueobjects.NewProfileIDFromString(id)
	if err != nil {
		return geometry.AnalysisResult{}, err
	}
	params, err := w.history.Select(profileID)
	if err != nil {
		return geometry.AnalysisResult{}, err
	}
	return w.Replace(params), nil
}
