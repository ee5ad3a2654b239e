package observability

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"go.uber.org/zap"
)

// CloudWatchAPI is the subset of the CloudWatch client used for metrics
type CloudWatchAPI interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// CloudWatchRecorder pushes application metrics to CloudWatch.
// Failures are logged and never surface to the caller.
type CloudWatchRecorder struct {
	namespace string
	client    CloudWatchAPI
	logger    *zap.Logger
	timeout   time.Duration
	now       func() time.Time
}

// NewCloudWatchRecorder creates a recorder; a nil client disables it
func NewCloudWatchRecorder(namespace string, client CloudWatchAPI, logger *zap.Logger) *CloudWatchRecorder {
	return &CloudWatchRecorder{
		namespace: namespace,
		client:    client,
		logger:    logger,
		timeout:   2 * time.Second,
		now:       time.Now,
	}
}

func (r *CloudWatchRecorder) RecordCommand(name string, duration time.Duration, err error) {
	dims := []types.Dimension{
		{Name: aws.String("CommandName"), Value: aws.String(name)},
		{Name: aws.String("Status"), Value: aws.String(statusOf(err))},
	}
	r.put(
		r.datum("CommandExecution", float64(duration.Milliseconds()), types.StandardUnitMilliseconds, dims),
		r.datum("CommandCount", 1, types.StandardUnitCount, dims),
	)
}

func (r *CloudWatchRecorder) RecordReconcile(profiles int) {
	r.put(r.datum("HistoryProfiles", float64(profiles), types.StandardUnitCount, nil))
}

func (r *CloudWatchRecorder) RecordRemoteFailure(operation string) {
	r.put(r.datum("RemoteFailures", 1, types.StandardUnitCount, []types.Dimension{
		{Name: aws.String("Operation"), Value: aws.String(operation)},
	}))
}

func (r *CloudWatchRecorder) datum(name string, value float64, unit types.StandardUnit, dims []types.Dimension) types.MetricDatum {
	return types.MetricDatum{
		MetricName: aws.String(name),
		Dimensions: dims,
		Value:      aws.Float64(value),
		Unit:       unit,
		Timestamp:  aws.Time(r.now()),
	}
}

func (r *CloudWatchRecorder) put(data ...types.MetricDatum) {
	if r.client == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	_, err := r.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(r.namespace),
		MetricData: data,
	})
	if err != nil {
		r.logger.Warn("Failed to send metrics", zap.Error(err), zap.String("namespace", r.namespace))
	}
}

// MultiRecorder fans measurements out to several recorders
type MultiRecorder []interface {
	RecordCommand(name string, duration time.Duration, err error)
	RecordReconcile(profiles int)
	RecordRemoteFailure(operation string)
}

func (m MultiRecorder) RecordCommand(name string, duration time.Duration, err error) {
	for _, r := range m {
		r.RecordCommand(name, duration, err)
	}
}

func (m MultiRecorder) RecordReconcile(profiles int) {
	for _, r := range m {
		r.RecordReconcile(profiles)
	}
}

func (m MultiRecorder) RecordRemoteFailure(operation string) {
	for _, r := range m {
		r.RecordRemoteFailure(operation)
	}
}
