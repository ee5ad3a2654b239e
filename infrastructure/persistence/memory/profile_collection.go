package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/Widerk/shapesbonding/application/ports"
	"github.com/Widerk/shapesbonding/domain/core/entities"
	pkgerrors "github.com/Widerk/shapesbonding/pkg/errors"
)

// ProfileCollection is an in-process RemoteCollection. Every change is pushed
// to all subscribers before the write returns.
type ProfileCollection struct {
	// deliverMu keeps snapshot pushes in write order
	deliverMu sync.Mutex

	mu          sync.RWMutex
	documents   map[string]entities.ProfileRecord
	subscribers map[int]func([]ports.Document)
	nextSub     int
}

// NewProfileCollection creates an empty collection
func NewProfileCollection() *ProfileCollection {
	return &ProfileCollection{
		documents:   make(map[string]entities.ProfileRecord),
		subscribers: make(map[int]func([]ports.Document)),
	}
}

// Subscribe pushes the current snapshot immediately and again after every
// change. onError is never called.
func (c *ProfileCollection) Subscribe(ctx context.Context, onSnapshot func([]ports.Document), _ func(error)) (ports.Unsubscribe, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.deliverMu.Lock()
	defer c.deliverMu.Unlock()

	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subscribers[id] = onSnapshot
	snapshot := c.snapshotLocked()
	c.mu.Unlock()

	onSnapshot(snapshot)

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subscribers, id)
			c.mu.Unlock()
		})
	}, nil
}

// Upsert stores record under id, replacing whatever was there
func (c *ProfileCollection) Upsert(ctx context.Context, id string, record entities.ProfileRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if id == "" {
		return pkgerrors.NewValidationError("document ID cannot be empty")
	}
	c.write(func() { c.documents[id] = copyRecord(record) })
	return nil
}

// Delete removes id if present
func (c *ProfileCollection) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.write(func() { delete(c.documents, id) })
	return nil
}

// Len returns the number of stored documents
func (c *ProfileCollection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.documents)
}

func (c *ProfileCollection) write(mutate func()) {
	c.deliverMu.Lock()
	defer c.deliverMu.Unlock()

	c.mu.Lock()
	mutate()
	snapshot := c.snapshotLocked()
	subs := make([]func([]ports.Document), 0, len(c.subscribers))
	for _, fn := range c.subscribers {
		subs = append(subs, fn)
	}
	c.mu.Unlock()

	for _, fn := range subs {
		fn(snapshot)
	}
}

// snapshotLocked returns every document sorted by ID
func (c *ProfileCollection) snapshotLocked() []ports.Document {
	docs := make([]ports.Document, 0, len(c.documents))
	for id, rec := range c.documents {
		docs = append(docs, ports.Document{ID: id, Record: copyRecord(rec)})
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs
}

func copyRecord(rec entities.ProfileRecord) entities.ProfileRecord {
	params := make(map[string]string, len(rec.Params))
	for k, v := range rec.Params {
		params[k] = v
	}
	rec.Params = params
	return rec
}
