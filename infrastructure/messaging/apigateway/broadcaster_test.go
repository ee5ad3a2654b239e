package apigateway

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	lambdaevents "github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/apigatewaymanagementapi"
	"github.com/aws/aws-sdk-go-v2/service/apigatewaymanagementapi/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Widerk/shapesbonding/infrastructure/persistence/dynamodb"
)

type fakeConnections struct {
	mu      sync.Mutex
	conns   []dynamodb.Connection
	deleted []string
}

func (f *fakeConnections) List(context.Context) ([]dynamodb.Connection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]dynamodb.Connection(nil), f.conns...), nil
}

func (f *fakeConnections) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeGateway struct {
	mu     sync.Mutex
	posted map[string][]byte
	fail   map[string]error
}

func (f *fakeGateway) PostToConnection(_ context.Context, in *apigatewaymanagementapi.PostToConnectionInput, _ ...func(*apigatewaymanagementapi.Options)) (*apigatewaymanagementapi.PostToConnectionOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := aws.ToString(in.ConnectionId)
	if err := f.fail[id]; err != nil {
		return nil, err
	}
	f.posted[id] = in.Data
	return &apigatewaymanagementapi.PostToConnectionOutput{}, nil
}

func newFixture(fail map[string]error, ids ...string) (*Broadcaster, *fakeConnections, *fakeGateway, *[]string) {
	conns := &fakeConnections{}
	for _, id := range ids {
		conns.conns = append(conns.conns, dynamodb.Connection{ConnectionID: id, UserID: "u-" + id, Endpoint: "abc/prod"})
	}
	gw := &fakeGateway{posted: make(map[string][]byte), fail: fail}
	var endpoints []string
	factory := func(endpoint string) PostAPI {
		endpoints = append(endpoints, endpoint)
		return gw
	}
	return NewBroadcaster(conns, factory, zap.NewNop()), conns, gw, &endpoints
}

func TestBroadcaster_HandleEventReachesEveryConnection(t *testing.T) {
	b, _, gw, endpoints := newFixture(nil, "c1", "c2")

	err := b.HandleEvent(context.Background(), lambdaevents.CloudWatchEvent{
		DetailType: "profile.saved",
		Time:       time.UnixMilli(1700000000000),
		Detail:     json.RawMessage(`{"profile_id":"abc"}`),
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"abc/prod"}, *endpoints)
	require.Len(t, gw.posted, 2)

	var msg struct {
		Type      string `json:"type"`
		Timestamp int64  `json:"timestamp"`
		Data      struct {
			Event  string `json:"event"`
			Detail struct {
				ProfileID string `json:"profile_id"`
			} `json:"detail"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(gw.posted["c1"], &msg))
	assert.Equal(t, MessageProfilesChanged, msg.Type)
	assert.Equal(t, int64(1700000000000), msg.Timestamp)
	assert.Equal(t, "profile.saved", msg.Data.Event)
	assert.Equal(t, "abc", msg.Data.Detail.ProfileID)
}

func TestBroadcaster_RemovesGoneConnections(t *testing.T) {
	b, conns, _, _ := newFixture(map[string]error{"c1": &types.GoneException{}}, "c1", "c2")

	sent, failed, err := b.Broadcast(context.Background(), []byte(`{}`))
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.Equal(t, 0, failed)
	assert.Equal(t, []string{"c1"}, conns.deleted)
}

func TestBroadcaster_AllSendsFailing(t *testing.T) {
	boom := errors.New("throttled")
	b, _, _, _ := newFixture(map[string]error{"c1": boom, "c2": boom}, "c1", "c2")

	err := b.HandleEvent(context.Background(), lambdaevents.CloudWatchEvent{DetailType: "profile.deleted"})
	assert.Error(t, err)
}

func TestBroadcaster_NoConnections(t *testing.T) {
	b, _, _, _ := newFixture(nil)

	err := b.HandleEvent(context.Background(), lambdaevents.CloudWatchEvent{DetailType: "profile.deleted"})
	assert.NoError(t, err)
}
