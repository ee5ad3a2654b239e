package dynamodb

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"

	"github.com/Widerk/shapesbonding/application/ports"
	"github.com/Widerk/shapesbonding/domain/core/entities"
	pkgerrors "github.com/Widerk/shapesbonding/pkg/errors"
)

const (
	profileKeyPrefix  = "PROFILE#"
	profileSortKey    = "METADATA"
	profileEntityType = "PROFILE"
)

// API is the subset of the DynamoDB client the collection uses
type API interface {
	dynamodb.ScanAPIClient
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// profileItem is the table row of one profile. The record attributes keep
// their shared names next to the single-table keys.
type profileItem struct {
	PK          string            `dynamodbav:"PK"`
	SK          string            `dynamodbav:"SK"`
	EntityType  string            `dynamodbav:"EntityType"`
	ProfileID   string            `dynamodbav:"ProfileID"`
	Name        string            `dynamodbav:"name"`
	Params      map[string]string `dynamodbav:"params"`
	Area        string            `dynamodbav:"area"`
	Timestamp   string            `dynamodbav:"timestamp"`
	TimestampMs int64             `dynamodbav:"timestampMs"`
	CreatedBy   string            `dynamodbav:"createdBy"`
}

func newProfileItem(id string, rec entities.ProfileRecord) profileItem {
	return profileItem{
		PK:          profileKeyPrefix + id,
		SK:          profileSortKey,
		EntityType:  profileEntityType,
		ProfileID:   id,
		Name:        rec.Name,
		Params:      rec.Params,
		Area:        rec.Area,
		Timestamp:   rec.Timestamp,
		TimestampMs: rec.TimestampMs,
		CreatedBy:   rec.CreatedBy,
	}
}

func (i profileItem) document() ports.Document {
	id := i.ProfileID
	if id == "" {
		id = strings.TrimPrefix(i.PK, profileKeyPrefix)
	}
	return ports.Document{ID: id, Record: entities.ProfileRecord{
		Name:        i.Name,
		Params:      i.Params,
		Area:        i.Area,
		Timestamp:   i.Timestamp,
		TimestampMs: i.TimestampMs,
		CreatedBy:   i.CreatedBy,
	}}
}

// ProfileCollection stores profiles in a DynamoDB table and turns periodic
// scans into snapshot pushes. A scan is also triggered right after each
// local write so writers see their change without waiting a full interval.
// Deliveries are serialized by deliverMu, so each subscriber sees snapshots
// in scan order and a scan never races a registration.
type ProfileCollection struct {
	client       API
	tableName    string
	pollInterval time.Duration
	logger       *zap.Logger

	deliverMu sync.Mutex

	mu          sync.Mutex
	subscribers map[int]subscriber
	nextSub     int
	lastDigest  [sha256.Size]byte
	stopPoll    context.CancelFunc
	kick        chan struct{}
}

type subscriber struct {
	onSnapshot func([]ports.Document)
	onError    func(error)
}

// NewProfileCollection creates a collection over tableName
func NewProfileCollection(client API, tableName string, pollInterval time.Duration, logger *zap.Logger) *ProfileCollection {
	return &ProfileCollection{
		client:       client,
		tableName:    tableName,
		pollInterval: pollInterval,
		logger:       logger,
		subscribers:  make(map[int]subscriber),
		kick:         make(chan struct{}, 1),
	}
}

// Subscribe scans the table once, pushes the result to onSnapshot and then
// pushes again whenever a later scan differs.
func (c *ProfileCollection) Subscribe(ctx context.Context, onSnapshot func([]ports.Document), onError func(error)) (ports.Unsubscribe, error) {
	c.deliverMu.Lock()
	defer c.deliverMu.Unlock()

	docs, err := c.scan(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subscribers[id] = subscriber{onSnapshot: onSnapshot, onError: onError}
	if c.stopPoll == nil {
		pollCtx, cancel := context.WithCancel(context.Background())
		c.stopPoll = cancel
		go c.pollLoop(pollCtx)
	}
	// Older subscribers last saw lastDigest. If this scan differs, force the
	// next poll to push so everyone converges on the same state.
	stale := digest(docs) != c.lastDigest
	if stale {
		c.lastDigest = [sha256.Size]byte{}
	}
	c.mu.Unlock()

	onSnapshot(docs)
	if stale {
		c.requestPoll()
	}

	var once sync.Once
	return func() {
		once.Do(func() { c.unsubscribe(id) })
	}, nil
}

func (c *ProfileCollection) unsubscribe(id int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.subscribers, id)
	if len(c.subscribers) == 0 && c.stopPoll != nil {
		c.stopPoll()
		c.stopPoll = nil
	}
}

// Close stops polling and drops every subscriber
func (c *ProfileCollection) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscribers = make(map[int]subscriber)
	if c.stopPoll != nil {
		c.stopPoll()
		c.stopPoll = nil
	}
}

// Upsert writes the full record under id
func (c *ProfileCollection) Upsert(ctx context.Context, id string, record entities.ProfileRecord) error {
	if id == "" {
		return pkgerrors.NewValidationError("document ID cannot be empty")
	}

	av, err := attributevalue.MarshalMap(newProfileItem(id, record))
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}

	_, err = c.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(c.tableName),
		Item:      av,
	})
	if err != nil {
		return c.storeError("put", id, err)
	}

	c.logger.Debug("Profile stored", zap.String("profile_id", id))
	c.requestPoll()
	return nil
}

// Delete removes id; DynamoDB treats a missing key as success
func (c *ProfileCollection) Delete(ctx context.Context, id string) error {
	key, err := attributevalue.MarshalMap(map[string]string{
		"PK": profileKeyPrefix + id,
		"SK": profileSortKey,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal key: %w", err)
	}

	_, err = c.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(c.tableName),
		Key:       key,
	})
	if err != nil {
		return c.storeError("delete", id, err)
	}

	c.logger.Debug("Profile deleted", zap.String("profile_id", id))
	c.requestPoll()
	return nil
}

// List returns every stored profile document
func (c *ProfileCollection) List(ctx context.Context) ([]ports.Document, error) {
	return c.scan(ctx)
}

func (c *ProfileCollection) scan(ctx context.Context) ([]ports.Document, error) {
	filter := expression.Name("EntityType").Equal(expression.Value(profileEntityType))
	expr, err := expression.NewBuilder().WithFilter(filter).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build scan expression: %w", err)
	}

	paginator := dynamodb.NewScanPaginator(c.client, &dynamodb.ScanInput{
		TableName:                 aws.String(c.tableName),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})

	var docs []ports.Document
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, c.storeError("scan", "", err)
		}
		for _, raw := range page.Items {
			var item profileItem
			if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
				c.logger.Warn("Skipping undecodable profile item", zap.Error(err))
				continue
			}
			docs = append(docs, item.document())
		}
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs, nil
}

func (c *ProfileCollection) requestPoll() {
	select {
	case c.kick <- struct{}{}:
	default:
	}
}

func (c *ProfileCollection) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-c.kick:
		}
		c.poll(ctx)
	}
}

func (c *ProfileCollection) poll(ctx context.Context) {
	c.deliverMu.Lock()
	defer c.deliverMu.Unlock()

	if ctx.Err() != nil {
		return
	}
	docs, err := c.scan(ctx)
	if ctx.Err() != nil {
		return
	}

	c.mu.Lock()
	subs := make([]subscriber, 0, len(c.subscribers))
	for _, s := range c.subscribers {
		subs = append(subs, s)
	}
	changed := false
	if err == nil {
		d := digest(docs)
		changed = d != c.lastDigest
		c.lastDigest = d
	}
	c.mu.Unlock()

	if err != nil {
		for _, s := range subs {
			if s.onError != nil {
				s.onError(err)
			}
		}
		return
	}
	if !changed {
		return
	}
	for _, s := range subs {
		s.onSnapshot(docs)
	}
}

func (c *ProfileCollection) storeError(operation, id string, err error) error {
	fields := []zap.Field{
		zap.String("operation", operation),
		zap.String("table", c.tableName),
		zap.Error(err),
	}
	if id != "" {
		fields = append(fields, zap.String("profile_id", id))
	}

	appErr := pkgerrors.NewDatabaseError(operation, err)
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		fields = append(fields, zap.String("aws_error_code", apiErr.ErrorCode()))
		appErr = appErr.WithDetails(map[string]interface{}{"aws_error_code": apiErr.ErrorCode()})
	}
	c.logger.Error("DynamoDB operation failed", fields...)
	return appErr
}

// digest fingerprints a sorted snapshot for change detection
func digest(docs []ports.Document) [sha256.Size]byte {
	data, _ := json.Marshal(docs)
	return sha256.Sum256(data)
}
