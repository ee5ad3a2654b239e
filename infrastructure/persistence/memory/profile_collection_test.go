package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Widerk/shapesbonding/application/ports"
	"github.com/Widerk/shapesbonding/domain/core/entities"
)

func record(name string, ms int64) entities.ProfileRecord {
	return entities.ProfileRecord{
		Name:        name,
		Params:      map[string]string{"A": "100"},
		Area:        "2875.00",
		Timestamp:   "10:00",
		TimestampMs: ms,
		CreatedBy:   "user-1",
	}
}

func TestProfileCollection_SubscribeDeliversInitialSnapshot(t *testing.T) {
	ctx := context.Background()
	c := NewProfileCollection()
	require.NoError(t, c.Upsert(ctx, "a", record("a", 1)))

	var got [][]ports.Document
	unsub, err := c.Subscribe(ctx, func(docs []ports.Document) { got = append(got, docs) }, nil)
	require.NoError(t, err)
	defer unsub()

	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0][0].ID)
}

func TestProfileCollection_PushesEveryChange(t *testing.T) {
	ctx := context.Background()
	c := NewProfileCollection()

	var got [][]ports.Document
	unsub, err := c.Subscribe(ctx, func(docs []ports.Document) { got = append(got, docs) }, nil)
	require.NoError(t, err)

	require.NoError(t, c.Upsert(ctx, "b", record("b", 2)))
	require.NoError(t, c.Upsert(ctx, "a", record("a", 1)))
	require.NoError(t, c.Upsert(ctx, "a", record("A", 3)))
	require.NoError(t, c.Delete(ctx, "b"))
	require.NoError(t, c.Delete(ctx, "missing"))

	require.Len(t, got, 6)
	assert.Len(t, got[2], 2)
	assert.Equal(t, "a", got[2][0].ID, "snapshots are sorted by ID")
	assert.Equal(t, "A", got[3][0].Record.Name, "upsert replaces the record")
	assert.Len(t, got[4], 1)
	assert.Equal(t, 1, c.Len())

	unsub()
	unsub()
	require.NoError(t, c.Upsert(ctx, "c", record("c", 4)))
	assert.Len(t, got, 6)
}

func TestProfileCollection_RecordsAreCopied(t *testing.T) {
	ctx := context.Background()
	c := NewProfileCollection()
	rec := record("a", 1)
	require.NoError(t, c.Upsert(ctx, "a", rec))
	rec.Params["A"] = "mutated"

	var got []ports.Document
	_, err := c.Subscribe(ctx, func(docs []ports.Document) { got = docs }, nil)
	require.NoError(t, err)
	assert.Equal(t, "100", got[0].Record.Params["A"])
}

func TestProfileCollection_Validation(t *testing.T) {
	c := NewProfileCollection()
	assert.Error(t, c.Upsert(context.Background(), "", record("x", 1)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, c.Upsert(ctx, "x", record("x", 1)))
	_, err := c.Subscribe(ctx, func([]ports.Document) {}, nil)
	assert.Error(t, err)
}
