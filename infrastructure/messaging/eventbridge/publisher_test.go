package eventbridge

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Widerk/shapesbonding/domain/events"
)

type fakeEventBridge struct {
	calls  []*eventbridge.PutEventsInput
	output *eventbridge.PutEventsOutput
	err    error
}

func (f *fakeEventBridge) PutEvents(_ context.Context, in *eventbridge.PutEventsInput, _ ...func(*eventbridge.Options)) (*eventbridge.PutEventsOutput, error) {
	f.calls = append(f.calls, in)
	if f.err != nil {
		return nil, f.err
	}
	if f.output != nil {
		return f.output, nil
	}
	return &eventbridge.PutEventsOutput{}, nil
}

func deletedEvents(n int) []events.DomainEvent {
	out := make([]events.DomainEvent, n)
	for i := range out {
		out[i] = events.NewProfileDeleted("p", "user-1", time.Unix(0, 0))
	}
	return out
}

func TestPublisher_BatchesByTen(t *testing.T) {
	api := &fakeEventBridge{}
	p := NewPublisher(api, "bus", zap.NewNop())

	require.NoError(t, p.Publish(context.Background(), deletedEvents(23)))

	require.Len(t, api.calls, 3)
	assert.Len(t, api.calls[0].Entries, 10)
	assert.Len(t, api.calls[2].Entries, 3)

	entry := api.calls[0].Entries[0]
	assert.Equal(t, "bus", aws.ToString(entry.EventBusName))
	assert.Equal(t, Source, aws.ToString(entry.Source))
	assert.Equal(t, events.TypeProfileDeleted, aws.ToString(entry.DetailType))
	assert.Contains(t, aws.ToString(entry.Detail), `"profile_id":"p"`)
}

func TestPublisher_Failures(t *testing.T) {
	api := &fakeEventBridge{err: errors.New("throttled")}
	p := NewPublisher(api, "bus", zap.NewNop())
	assert.Error(t, p.Publish(context.Background(), deletedEvents(1)))

	api = &fakeEventBridge{output: &eventbridge.PutEventsOutput{
		FailedEntryCount: 1,
		Entries:          []types.PutEventsResultEntry{{ErrorCode: aws.String("InternalFailure")}},
	}}
	p = NewPublisher(api, "bus", zap.NewNop())
	assert.Error(t, p.Publish(context.Background(), deletedEvents(1)))

	assert.NoError(t, p.Publish(context.Background(), nil))
}
