package history

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/Widerk/shapesbonding/application/ports"
	"github.com/Widerk/shapesbonding/domain/core/entities"
	"github.com/Widerk/shapesbonding/domain/core/valueobjects"
	pkgerrors "github.com/Widerk/shapesbonding/pkg/errors"
)

// Mode is the connection state of a Cache
type Mode int

const (
	// Disconnected: no identity, no subscription, empty view
	Disconnected Mode = iota
	// Connected: identity established and a subscription is live
	Connected
)

func (m Mode) String() string {
	if m == Connected {
		return "connected"
	}
	return "disconnected"
}

// Cache is the local ordered view of the shared profile collection.
// The view changes only through reconciliation with pushed snapshots; save
// and delete forward to the remote collection and never touch it directly.
type Cache struct {
	remote  ports.RemoteCollection
	clock   ports.Clock
	metrics ports.MetricsRecorder
	logger  *zap.Logger

	mu          sync.Mutex
	mode        Mode
	identity    string
	generation  uint64
	unsubscribe ports.Unsubscribe
	profiles    []*entities.Profile
	lastSyncErr error

	listenersMu    sync.Mutex
	nextListener   int
	listeners      map[int]func([]*entities.Profile)
	errorListeners map[int]func(error)
}

// NewCache creates a disconnected cache
func NewCache(remote ports.RemoteCollection, clock ports.Clock, metrics ports.MetricsRecorder, logger *zap.Logger) *Cache {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	return &Cache{
		remote:         remote,
		clock:          clock,
		metrics:        metrics,
		logger:         logger,
		listeners:      make(map[int]func([]*entities.Profile)),
		errorListeners: make(map[int]func(error)),
	}
}

// Mode returns the current connection state
func (c *Cache) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// Identity returns the identity the cache is connected under
func (c *Cache) Identity() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.identity, c.mode == Connected
}

// Bind follows provider: the cache connects while an identity is available
// and disconnects when it is revoked. The returned func stops following.
func (c *Cache) Bind(ctx context.Context, provider ports.IdentityProvider) func() {
	follow := func() {
		if identity, ok := provider.Identity(); ok {
			if err := c.Connect(ctx, identity); err != nil {
				c.logger.Warn("Profile history subscription failed",
					zap.String("identity", identity),
					zap.Error(err),
				)
			}
			return
		}
		c.Disconnect()
	}

	cancel := provider.OnChange(follow)
	follow()
	return cancel
}

// Connect moves the cache to Connected under identity and subscribes to the
// remote collection. Connecting again with the same identity is a no-op; a
// different identity replaces the old subscription.
func (c *Cache) Connect(ctx context.Context, identity string) error {
	if identity == "" {
		return pkgerrors.NewIdentityMissingError("connect")
	}

	c.mu.Lock()
	if c.mode == Connected && c.identity == identity {
		c.mu.Unlock()
		return nil
	}
	previous := c.resetLocked()
	c.mode = Connected
	c.identity = identity
	gen := c.generation
	c.mu.Unlock()

	if previous != nil {
		previous()
	}

	// The lock is released here: collections may push the initial snapshot
	// before Subscribe returns.
	unsubscribe, err := c.remote.Subscribe(ctx,
		func(docs []ports.Document) { c.reconcile(gen, docs) },
		func(err error) { c.syncFailed(gen, err) },
	)

	c.mu.Lock()
	if c.generation != gen {
		c.mu.Unlock()
		if unsubscribe != nil {
			unsubscribe()
		}
		return nil
	}
	if err != nil {
		c.resetLocked()
		c.mu.Unlock()
		c.metrics.RecordRemoteFailure("subscribe")
		c.notify(nil)
		return pkgerrors.NewRemoteOperationError("subscribe", err)
	}
	c.unsubscribe = unsubscribe
	c.mu.Unlock()

	c.logger.Debug("Profile history connected", zap.String("identity", identity))
	return nil
}

// Disconnect drops the subscription and clears the view
func (c *Cache) Disconnect() {
	c.mu.Lock()
	if c.mode == Disconnected {
		c.mu.Unlock()
		return
	}
	unsubscribe := c.resetLocked()
	c.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	c.logger.Debug("Profile history disconnected")
	c.notify(nil)
}

// resetLocked returns to Disconnected and invalidates in-flight pushes.
// The caller runs the returned unsubscribe after releasing the lock.
func (c *Cache) resetLocked() ports.Unsubscribe {
	unsubscribe := c.unsubscribe
	c.generation++
	c.mode = Disconnected
	c.identity = ""
	c.unsubscribe = nil
	c.profiles = nil
	c.lastSyncErr = nil
	return unsubscribe
}

// Save upserts a profile built from name and the params snapshot. The view is
// not changed here; the saved profile appears with the next reconciliation.
func (c *Cache) Save(ctx context.Context, name string, params valueobjects.ParameterSet, areaSnapshot, owner string) (*entities.Profile, error) {
	if err := c.requireIdentity("save", owner); err != nil {
		return nil, err
	}

	profile, err := entities.NewProfile(name, params, areaSnapshot, owner, c.clock.Now())
	if err != nil {
		return nil, err
	}

	if err := c.remote.Upsert(ctx, profile.ID().String(), profile.ToRecord()); err != nil {
		c.metrics.RecordRemoteFailure("upsert")
		c.logger.Warn("Profile upsert failed",
			zap.String("profile_id", profile.ID().String()),
			zap.Error(err),
		)
		return nil, pkgerrors.NewRemoteOperationError("upsert", err)
	}
	return profile, nil
}

// Delete removes id from the remote collection. Unknown IDs are not an error.
func (c *Cache) Delete(ctx context.Context, id valueobjects.ProfileID, owner string) error {
	if err := c.requireIdentity("delete", owner); err != nil {
		return err
	}
	if id.IsZero() {
		return pkgerrors.NewValidationError("profile ID cannot be empty")
	}

	if err := c.remote.Delete(ctx, id.String()); err != nil {
		c.metrics.RecordRemoteFailure("delete")
		c.logger.Warn("Profile delete failed",
			zap.String("profile_id", id.String()),
			zap.Error(err),
		)
		return pkgerrors.NewRemoteOperationError("delete", err)
	}
	return nil
}

func (c *Cache) requireIdentity(operation, owner string) error {
	if owner == "" {
		return pkgerrors.NewIdentityMissingError(operation)
	}
	if c.Mode() != Connected {
		return pkgerrors.NewIdentityMissingError(operation)
	}
	return nil
}

// Reconcile replaces the view with docs under the current subscription.
// It is ignored while disconnected.
func (c *Cache) Reconcile(docs []ports.Document) {
	c.mu.Lock()
	gen := c.generation
	c.mu.Unlock()
	c.reconcile(gen, docs)
}

func (c *Cache) reconcile(gen uint64, docs []ports.Document) {
	profiles := make([]*entities.Profile, 0, len(docs))
	for _, doc := range docs {
		p, err := entities.ProfileFromRecord(doc.ID, doc.Record)
		if err != nil {
			c.logger.Warn("Skipping malformed profile document", zap.String("id", doc.ID), zap.Error(err))
			continue
		}
		profiles = append(profiles, p)
	}
	sort.SliceStable(profiles, func(i, j int) bool {
		return profiles[i].CreatedAtMs() > profiles[j].CreatedAtMs()
	})

	c.mu.Lock()
	if gen != c.generation || c.mode != Connected {
		c.mu.Unlock()
		return
	}
	c.profiles = profiles
	c.lastSyncErr = nil
	c.mu.Unlock()

	c.metrics.RecordReconcile(len(profiles))
	c.notify(profiles)
}

func (c *Cache) syncFailed(gen uint64, err error) {
	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return
	}
	c.lastSyncErr = err
	c.mu.Unlock()

	c.metrics.RecordRemoteFailure("subscribe")
	c.logger.Error("Profile history subscription error", zap.Error(err))

	c.listenersMu.Lock()
	fns := make([]func(error), 0, len(c.errorListeners))
	for _, fn := range c.errorListeners {
		fns = append(fns, fn)
	}
	c.listenersMu.Unlock()
	for _, fn := range fns {
		fn(pkgerrors.NewRemoteOperationError("subscribe", err))
	}
}

// LastSyncError returns the most recent subscription error since the last
// successful reconciliation
func (c *Cache) LastSyncError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSyncErr
}

// Profiles returns the ordered view, most recent first
func (c *Cache) Profiles() []*entities.Profile {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*entities.Profile, len(c.profiles))
	copy(out, c.profiles)
	return out
}

// Len returns the number of profiles in the view
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.profiles)
}

// Select returns the stored parameter snapshot of id
func (c *Cache) Select(id valueobjects.ProfileID) (valueobjects.ParameterSet, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range c.profiles {
		if p.ID().Equals(id) {
			return p.Params(), nil
		}
	}
	return valueobjects.ParameterSet{}, pkgerrors.NewNotFoundError("profile " + id.String()).
		WithCode(pkgerrors.CodeProfileNotFound)
}

// Get returns the profile stored under id
func (c *Cache) Get(id valueobjects.ProfileID) (*entities.Profile, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range c.profiles {
		if p.ID().Equals(id) {
			return p, true
		}
	}
	return nil, false
}

// OnChange registers fn to receive the view after every reconciliation and
// on disconnect. fn runs without the cache lock held.
func (c *Cache) OnChange(fn func([]*entities.Profile)) (cancel func()) {
	c.listenersMu.Lock()
	defer c.listenersMu.Unlock()
	id := c.nextListener
	c.nextListener++
	c.listeners[id] = fn
	return func() {
		c.listenersMu.Lock()
		delete(c.listeners, id)
		c.listenersMu.Unlock()
	}
}

// OnSyncError registers fn to receive subscription failures
func (c *Cache) OnSyncError(fn func(error)) (cancel func()) {
	c.listenersMu.Lock()
	defer c.listenersMu.Unlock()
	id := c.nextListener
	c.nextListener++
	c.errorListeners[id] = fn
	return func() {
		c.listenersMu.Lock()
		delete(c.errorListeners, id)
		c.listenersMu.Unlock()
	}
}

func (c *Cache) notify(profiles []*entities.Profile) {
	c.listenersMu.Lock()
	fns := make([]func([]*entities.Profile), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.listenersMu.Unlock()

	for _, fn := range fns {
		view := make([]*entities.Profile, len(profiles))
		copy(view, profiles)
		fn(view)
	}
}
