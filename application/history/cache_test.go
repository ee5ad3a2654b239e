package history

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Widerk/shapesbonding/application/ports"
	"github.com/Widerk/shapesbonding/domain/core/entities"
	"github.com/Widerk/shapesbonding/domain/core/valueobjects"
	pkgerrors "github.com/Widerk/shapesbonding/pkg/errors"
)

type fakeCollection struct {
	mu           sync.Mutex
	onSnapshot   func([]ports.Document)
	onError      func(error)
	initial      []ports.Document
	subscribeErr error
	upsertErr    error
	deleteErr    error
	upserts      []ports.Document
	deletes      []string
	unsubscribed int
}

func (f *fakeCollection) Subscribe(_ context.Context, onSnapshot func([]ports.Document), onError func(error)) (ports.Unsubscribe, error) {
	f.mu.Lock()
	if f.subscribeErr != nil {
		f.mu.Unlock()
		return nil, f.subscribeErr
	}
	f.onSnapshot = onSnapshot
	f.onError = onError
	initial := f.initial
	f.mu.Unlock()

	onSnapshot(initial)
	return func() {
		f.mu.Lock()
		f.unsubscribed++
		f.mu.Unlock()
	}, nil
}

func (f *fakeCollection) Upsert(_ context.Context, id string, record entities.ProfileRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.upserts = append(f.upserts, ports.Document{ID: id, Record: record})
	return nil
}

func (f *fakeCollection) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deletes = append(f.deletes, id)
	return nil
}

func (f *fakeCollection) push(docs []ports.Document) {
	f.mu.Lock()
	fn := f.onSnapshot
	f.mu.Unlock()
	fn(docs)
}

type fakeIdentity struct {
	mu        sync.Mutex
	token     string
	listeners []func()
}

func (f *fakeIdentity) Identity() (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token, f.token != ""
}

func (f *fakeIdentity) OnChange(fn func()) func() {
	f.mu.Lock()
	f.listeners = append(f.listeners, fn)
	f.mu.Unlock()
	return func() {}
}

func (f *fakeIdentity) set(token string) {
	f.mu.Lock()
	f.token = token
	fns := append([]func(){}, f.listeners...)
	f.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func doc(id string, ms int64) ports.Document {
	return ports.Document{ID: id, Record: entities.ProfileRecord{
		Name:        id,
		Params:      valueobjects.DefaultParameterSet().TextView(),
		Area:        "2875.00",
		TimestampMs: ms,
		CreatedBy:   "user-1",
	}}
}

func ids(profiles []*entities.Profile) []string {
	out := make([]string, len(profiles))
	for i, p := range profiles {
		out[i] = p.ID().String()
	}
	return out
}

func newTestCache(remote ports.RemoteCollection, now time.Time) *Cache {
	return NewCache(remote, ports.ClockFunc(func() time.Time { return now }), nil, zap.NewNop())
}

func TestCache_DisconnectedRejectsWrites(t *testing.T) {
	remote := &fakeCollection{}
	cache := newTestCache(remote, time.Now())

	assert.Equal(t, Disconnected, cache.Mode())

	_, err := cache.Save(context.Background(), "A", valueobjects.DefaultParameterSet(), "1.00", "user-1")
	assert.True(t, pkgerrors.IsIdentityMissing(err))

	err = cache.Delete(context.Background(), valueobjects.IdentityFor("a"), "user-1")
	assert.True(t, pkgerrors.IsIdentityMissing(err))

	assert.Empty(t, remote.upserts)
	assert.Empty(t, remote.deletes)
	assert.Empty(t, cache.Profiles())
}

func TestCache_EmptyOwnerRejected(t *testing.T) {
	remote := &fakeCollection{}
	cache := newTestCache(remote, time.Now())
	require.NoError(t, cache.Connect(context.Background(), "user-1"))

	_, err := cache.Save(context.Background(), "A", valueobjects.DefaultParameterSet(), "1.00", "")
	assert.True(t, pkgerrors.IsIdentityMissing(err))
	assert.Empty(t, remote.upserts)
}

func TestCache_ReconcileOrdersMostRecentFirst(t *testing.T) {
	remote := &fakeCollection{}
	cache := newTestCache(remote, time.Now())
	require.NoError(t, cache.Connect(context.Background(), "user-1"))

	remote.push([]ports.Document{doc("a", 100), doc("b", 300), doc("c", 200)})

	assert.Equal(t, []string{"b", "c", "a"}, ids(cache.Profiles()))
	assert.Equal(t, []int64{300, 200, 100}, []int64{
		cache.Profiles()[0].CreatedAtMs(),
		cache.Profiles()[1].CreatedAtMs(),
		cache.Profiles()[2].CreatedAtMs(),
	})
}

func TestCache_ReconcileIsIdempotent(t *testing.T) {
	remote := &fakeCollection{}
	cache := newTestCache(remote, time.Now())
	require.NoError(t, cache.Connect(context.Background(), "user-1"))

	snapshot := []ports.Document{doc("x", 5), doc("y", 9), doc("z", 5), doc("w", 1)}
	remote.push(snapshot)
	first := ids(cache.Profiles())
	remote.push(snapshot)
	second := ids(cache.Profiles())

	assert.Equal(t, first, second)
	assert.Equal(t, []string{"y", "x", "z", "w"}, second, "ties keep input order")
}

func TestCache_ReconcileReplacesWholeView(t *testing.T) {
	remote := &fakeCollection{initial: []ports.Document{doc("a", 1), doc("b", 2)}}
	cache := newTestCache(remote, time.Now())
	require.NoError(t, cache.Connect(context.Background(), "user-1"))
	require.Equal(t, []string{"b", "a"}, ids(cache.Profiles()))

	remote.push([]ports.Document{doc("c", 3)})
	assert.Equal(t, []string{"c"}, ids(cache.Profiles()))

	cache.Reconcile(nil)
	assert.Empty(t, cache.Profiles())
}

func TestCache_SaveUpsertsWithoutTouchingView(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)
	remote := &fakeCollection{initial: []ports.Document{doc("old", 1)}}
	cache := newTestCache(remote, now)
	require.NoError(t, cache.Connect(context.Background(), "user-1"))

	profile, err := cache.Save(context.Background(), "Canal Sur", valueobjects.DefaultParameterSet(), "2875.00", "user-1")
	require.NoError(t, err)

	assert.Equal(t, "canal_sur", profile.ID().String())
	assert.Equal(t, []string{"old"}, ids(cache.Profiles()))
	require.Len(t, remote.upserts, 1)
	assert.Equal(t, "canal_sur", remote.upserts[0].ID)
	assert.Equal(t, "Canal Sur", remote.upserts[0].Record.Name)
	assert.Equal(t, now.UnixMilli(), remote.upserts[0].Record.TimestampMs)
	assert.Equal(t, "user-1", remote.upserts[0].Record.CreatedBy)
	assert.Equal(t, "2875.00", remote.upserts[0].Record.Area)
}

func TestCache_NameVariantsOverwriteSameRecord(t *testing.T) {
	remote := &fakeCollection{}
	cache := newTestCache(remote, time.Now())
	require.NoError(t, cache.Connect(context.Background(), "user-1"))

	for _, name := range []string{"My Profile", "my   profile", "my_profile"} {
		_, err := cache.Save(context.Background(), name, valueobjects.DefaultParameterSet(), "1.00", "user-1")
		require.NoError(t, err)
	}

	require.Len(t, remote.upserts, 3)
	for _, u := range remote.upserts {
		assert.Equal(t, "my_profile", u.ID)
	}
}

func TestCache_SaveSelectRoundTrip(t *testing.T) {
	remote := &fakeCollection{}
	cache := newTestCache(remote, time.Now())
	require.NoError(t, cache.Connect(context.Background(), "user-1"))

	params := valueobjects.DefaultParameterSet().
		WithField(valueobjects.KeyA, "  12.50").
		WithField(valueobjects.KeyB, "abc").
		WithField(valueobjects.KeyRho, "1e3")

	profile, err := cache.Save(context.Background(), "Round Trip", params, "0.00", "user-1")
	require.NoError(t, err)

	remote.push(remote.upserts)

	restored, err := cache.Select(profile.ID())
	require.NoError(t, err)
	assert.Equal(t, params.TextView(), restored.TextView())
	assert.Len(t, cache.Profiles(), 1)
}

func TestCache_RemoteFailureLeavesViewUnchanged(t *testing.T) {
	remote := &fakeCollection{initial: []ports.Document{doc("keep", 10)}}
	cache := newTestCache(remote, time.Now())
	require.NoError(t, cache.Connect(context.Background(), "user-1"))

	remote.upsertErr = errors.New("throttled")
	remote.deleteErr = errors.New("unreachable")

	_, err := cache.Save(context.Background(), "New", valueobjects.DefaultParameterSet(), "1.00", "user-1")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsRemoteOperationFailed(err))

	err = cache.Delete(context.Background(), valueobjects.IdentityFor("keep"), "user-1")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsRemoteOperationFailed(err))

	assert.Equal(t, []string{"keep"}, ids(cache.Profiles()))
	assert.Equal(t, Connected, cache.Mode())
}

func TestCache_DeleteForwardsID(t *testing.T) {
	remote := &fakeCollection{}
	cache := newTestCache(remote, time.Now())
	require.NoError(t, cache.Connect(context.Background(), "user-1"))

	require.NoError(t, cache.Delete(context.Background(), valueobjects.IdentityFor("never saved"), "user-1"))
	assert.Equal(t, []string{"never_saved"}, remote.deletes)

	err := cache.Delete(context.Background(), valueobjects.ProfileID{}, "user-1")
	assert.True(t, pkgerrors.IsValidation(err))
}

func TestCache_DisconnectClearsAndDropsStalePushes(t *testing.T) {
	remote := &fakeCollection{initial: []ports.Document{doc("a", 1)}}
	cache := newTestCache(remote, time.Now())
	require.NoError(t, cache.Connect(context.Background(), "user-1"))
	require.Len(t, cache.Profiles(), 1)

	stale := remote.onSnapshot
	cache.Disconnect()

	assert.Equal(t, Disconnected, cache.Mode())
	assert.Empty(t, cache.Profiles())
	assert.Equal(t, 1, remote.unsubscribed)

	stale([]ports.Document{doc("ghost", 2)})
	assert.Empty(t, cache.Profiles())

	cache.Reconcile([]ports.Document{doc("ghost", 2)})
	assert.Empty(t, cache.Profiles())
}

func TestCache_ConnectSubscribeFailure(t *testing.T) {
	remote := &fakeCollection{subscribeErr: errors.New("denied")}
	cache := newTestCache(remote, time.Now())

	err := cache.Connect(context.Background(), "user-1")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsRemoteOperationFailed(err))
	assert.Equal(t, Disconnected, cache.Mode())

	assert.True(t, pkgerrors.IsIdentityMissing(cache.Connect(context.Background(), "")))
}

func TestCache_SubscriptionErrorsAreReported(t *testing.T) {
	remote := &fakeCollection{}
	cache := newTestCache(remote, time.Now())
	require.NoError(t, cache.Connect(context.Background(), "user-1"))

	var got error
	cache.OnSyncError(func(err error) { got = err })

	remote.onError(errors.New("stream closed"))

	assert.True(t, pkgerrors.IsRemoteOperationFailed(got))
	assert.EqualError(t, cache.LastSyncError(), "stream closed")

	remote.push(nil)
	assert.NoError(t, cache.LastSyncError())
}

func TestCache_BindFollowsIdentity(t *testing.T) {
	remote := &fakeCollection{initial: []ports.Document{doc("a", 1)}}
	cache := newTestCache(remote, time.Now())
	provider := &fakeIdentity{}

	cache.Bind(context.Background(), provider)
	assert.Equal(t, Disconnected, cache.Mode())

	provider.set("user-7")
	identity, ok := cache.Identity()
	assert.True(t, ok)
	assert.Equal(t, "user-7", identity)
	assert.Len(t, cache.Profiles(), 1)

	provider.set("")
	assert.Equal(t, Disconnected, cache.Mode())
	assert.Empty(t, cache.Profiles())
}

func TestCache_OnChange(t *testing.T) {
	remote := &fakeCollection{}
	cache := newTestCache(remote, time.Now())

	var views [][]string
	cancel := cache.OnChange(func(p []*entities.Profile) { views = append(views, ids(p)) })

	require.NoError(t, cache.Connect(context.Background(), "user-1"))
	remote.push([]ports.Document{doc("a", 1)})
	cache.Disconnect()
	cancel()
	require.NoError(t, cache.Connect(context.Background(), "user-1"))

	assert.Equal(t, [][]string{{}, {"a"}, {}}, views)
}

func TestCache_SelectUnknown(t *testing.T) {
	cache := newTestCache(&fakeCollection{}, time.Now())
	require.NoError(t, cache.Connect(context.Background(), "user-1"))

	_, err := cache.Select(valueobjects.IdentityFor("missing"))
	assert.True(t, pkgerrors.IsNotFound(err))
}
