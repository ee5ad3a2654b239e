package dynamodb

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	pkgerrors "github.com/Widerk/shapesbonding/pkg/errors"
)

// Query matches the GSI1PK placeholder value against every stored item
func (f *fakeDynamo) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := &dynamodb.QueryOutput{}
	for _, item := range f.items {
		gsi, ok := item["GSI1PK"].(*types.AttributeValueMemberS)
		if !ok {
			continue
		}
		for _, v := range in.ExpressionAttributeValues {
			if s, ok := v.(*types.AttributeValueMemberS); ok && s.Value == gsi.Value {
				out.Items = append(out.Items, item)
			}
		}
	}
	return out, nil
}

func TestConnectionStore_PutAndList(t *testing.T) {
	fake := newFakeDynamo()
	store := NewConnectionStore(fake, "connections", zap.NewNop())
	ctx := context.Background()
	connected := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.Put(ctx, Connection{ConnectionID: "c1", UserID: "alice", Endpoint: "abc.execute-api/prod", ConnectedAt: connected}))
	require.NoError(t, store.Put(ctx, Connection{ConnectionID: "c2", UserID: "bob", Endpoint: "abc.execute-api/prod", ConnectedAt: connected}))

	item := fake.items["CONNECTION#c1"]
	require.NotNil(t, item)
	assert.Equal(t, &types.AttributeValueMemberS{Value: "USER#alice"}, item["GSI1PK"])
	assert.Equal(t, &types.AttributeValueMemberN{Value: "1709380800"}, item["TTL"])

	all, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	mine, err := store.ListByUser(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "c1", mine[0].ConnectionID)
	assert.True(t, connected.Equal(mine[0].ConnectedAt))

	require.NoError(t, store.Delete(ctx, "c1"))
	all, err = store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestConnectionStore_PutRequiresIdentity(t *testing.T) {
	store := NewConnectionStore(newFakeDynamo(), "connections", zap.NewNop())

	err := store.Put(context.Background(), Connection{ConnectionID: "c1"})
	assert.True(t, pkgerrors.IsValidation(err))
}
