package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Widerk/shapesbonding/application/history"
	"github.com/Widerk/shapesbonding/domain/core/valueobjects"
	"github.com/Widerk/shapesbonding/domain/geometry"
	"github.com/Widerk/shapesbonding/infrastructure/persistence/memory"
	pkgerrors "github.com/Widerk/shapesbonding/pkg/errors"
)

func newConnectedWorkbench(t *testing.T) (*Workbench, *memory.ProfileCollection) {
	t.Helper()
	store := memory.NewProfileCollection()
	cache := history.NewCache(store, nil, nil, zap.NewNop())
	require.NoError(t, cache.Connect(context.Background(), "user-1"))
	t.Cleanup(cache.Disconnect)
	return NewWorkbench(geometry.NewEngine(nil), cache), store
}

func TestWorkbench_DefaultAnalysis(t *testing.T) {
	wb, _ := newConnectedWorkbench(t)

	result := wb.Analysis()
	assert.InDelta(t, 2875.0, result.Area, 1e-9)
	assert.Equal(t, "2875.00", result.AreaSnapshot())
	assert.True(t, wb.Params().Equals(valueobjects.DefaultParameterSet()))
}

func TestWorkbench_SetField(t *testing.T) {
	wb, _ := newConnectedWorkbench(t)

	_, err := wb.SetField("Z", "1")
	assert.True(t, pkgerrors.IsValidation(err))

	// raw text is kept even when it does not parse
	result, err := wb.SetField("A", "abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", wb.Params().Text(valueobjects.KeyA))
	assert.Equal(t, 0.0, result.Vertices[1].X)

	result, err = wb.SetField("L_end", "3")
	require.NoError(t, err)
	assert.InDelta(t, 3.0, result.EffectiveLength, 1e-12)
}

func TestWorkbench_SetSlider(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value float64
		want  string
	}{
		{"snapped", "A", 120.4, "120"},
		{"clamped high", "B", 999, "250"},
		{"clamped low", "C", -5, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wb, _ := newConnectedWorkbench(t)
			_, err := wb.SetSlider(tt.key, tt.value)
			require.NoError(t, err)
			key, _ := valueobjects.ParseParameterKey(tt.key)
			assert.Equal(t, tt.want, wb.Params().Text(key))
		})
	}

	wb, _ := newConnectedWorkbench(t)
	_, err := wb.SetSlider("rho", 1000)
	assert.True(t, pkgerrors.IsValidation(err))
}

func TestWorkbench_SaveNamesBlankProfiles(t *testing.T) {
	wb, store := newConnectedWorkbench(t)
	ctx := context.Background()

	first, err := wb.Save(ctx, "   ")
	require.NoError(t, err)
	assert.Equal(t, "Profile 1", first.Name())
	assert.Equal(t, "2875.00", first.AreaSnapshot())
	assert.Equal(t, "user-1", first.Owner())

	second, err := wb.Save(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "Profile 2", second.Name())
	assert.Equal(t, "profile_2", second.ID().String())

	named, err := wb.Save(ctx, "  Wide Channel ")
	require.NoError(t, err)
	assert.Equal(t, "Wide Channel", named.Name())

	assert.Equal(t, 3, store.Len())
	assert.Equal(t, 3, wb.History().Len())
}

func TestWorkbench_SaveRequiresIdentity(t *testing.T) {
	cache := history.NewCache(memory.NewProfileCollection(), nil, nil, zap.NewNop())
	wb := NewWorkbench(geometry.NewEngine(nil), cache)

	_, err := wb.Save(context.Background(), "x")
	assert.True(t, pkgerrors.IsIdentityMissing(err))

	err = wb.Delete(context.Background(), "x")
	assert.True(t, pkgerrors.IsIdentityMissing(err))
}

func TestWorkbench_RestoreAndDelete(t *testing.T) {
	wb, _ := newConnectedWorkbench(t)
	ctx := context.Background()

	_, err := wb.SetField("A", "120")
	require.NoError(t, err)
	_, err = wb.Save(ctx, "My Profile")
	require.NoError(t, err)

	_, err = wb.SetField("A", "10")
	require.NoError(t, err)

	result, err := wb.Restore("my_profile")
	require.NoError(t, err)
	assert.Equal(t, "120", wb.Params().Text(valueobjects.KeyA))
	assert.Equal(t, 120.0, result.Vertices[1].X)

	_, err = wb.Restore("missing")
	assert.True(t, pkgerrors.IsNotFound(err))

	_, err = wb.Restore("")
	assert.Error(t, err)

	require.NoError(t, wb.Delete(ctx, "my_profile"))
	assert.Eventually(t, func() bool { return wb.History().Len() == 0 }, time.Second, 10*time.Millisecond)
}

func TestWorkbench_SaveParamsLeavesEditsAlone(t *testing.T) {
	wb, store := newConnectedWorkbench(t)
	_, err := wb.SetField("A", "180")
	require.NoError(t, err)

	supplied := valueobjects.NewParameterSet(map[string]string{"A": "60"})
	profile, err := wb.SaveParams(context.Background(), "", supplied)
	require.NoError(t, err)

	assert.Equal(t, "Profile 1", profile.Name())
	assert.Equal(t, "60", profile.Params().TextView()["A"])
	assert.Equal(t, "180", wb.Params().TextView()["A"])
	assert.Equal(t, 1, store.Len())
}
