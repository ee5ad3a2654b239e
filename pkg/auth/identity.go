package auth

import "sync"

// RevocableIdentity is an identity source that can be established and
// revoked at runtime. Listeners run synchronously on the goroutine that
// changed the identity.
type RevocableIdentity struct {
	mu        sync.Mutex
	token     string
	nextID    int
	listeners map[int]func()
}

// NewRevocableIdentity starts with token, which may be empty
func NewRevocableIdentity(token string) *RevocableIdentity {
	return &RevocableIdentity{token: token, listeners: make(map[int]func())}
}

// Identity returns the token and whether one is established
func (r *RevocableIdentity) Identity() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.token, r.token != ""
}

// Establish sets the token; an empty token revokes
func (r *RevocableIdentity) Establish(token string) {
	r.mu.Lock()
	if r.token == token {
		r.mu.Unlock()
		return
	}
	r.token = token
	fns := r.snapshotLocked()
	r.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// Revoke clears the token
func (r *RevocableIdentity) Revoke() {
	r.Establish("")
}

// OnChange registers fn to run after every change
func (r *RevocableIdentity) OnChange(fn func()) func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextID
	r.nextID++
	r.listeners[id] = fn
	return func() {
		r.mu.Lock()
		delete(r.listeners, id)
		r.mu.Unlock()
	}
}

func (r *RevocableIdentity) snapshotLocked() []func() {
	fns := make([]func(), 0, len(r.listeners))
	for _, fn := range r.listeners {
		fns = append(fns, fn)
	}
	return fns
}
