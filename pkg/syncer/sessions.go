package syncer

import (
	"context"
	"sync"
)

// session is the bookkeeping of one running sync.
type session struct {
	id       uint64
	instance string
	cancel   context.CancelFunc
	done     chan struct{}
}

// SessionRegistry tracks the running session of every instance. It is owned
// by an Engine; separate engines never see each other's sessions.
type SessionRegistry struct {
	mu     sync.Mutex
	active map[string]*session
	next   uint64
}

// NewSessionRegistry returns an empty registry.
func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{active: make(map[string]*session)}
}

// acquire registers a new session for instance, cancelling and waiting for
// whichever session held it. The returned context is cancelled when the
// parent is, or when a later session supersedes this one.
func (r *SessionRegistry) acquire(parent context.Context, instance string) (*session, context.Context) {
	ctx, cancel := context.WithCancel(parent)

	r.mu.Lock()
	r.next++
	s := &session{
		id:       r.next,
		instance: instance,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	prev := r.active[instance]
	r.active[instance] = s
	r.mu.Unlock()

	if prev != nil {
		prev.cancel()
		<-prev.done
	}
	return s, ctx
}

// release drops s from the registry if it is still the instance's session.
func (r *SessionRegistry) release(s *session) {
	r.mu.Lock()
	if r.active[s.instance] == s {
		delete(r.active, s.instance)
	}
	r.mu.Unlock()

	s.cancel()
	close(s.done)
}

// Active reports whether instance has a running session.
func (r *SessionRegistry) Active(instance string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.active[instance]
	return ok
}

// Cancel cancels the running session of instance, if any, without waiting.
func (r *SessionRegistry) Cancel(instance string) bool {
	r.mu.Lock()
	s, ok := r.active[instance]
	r.mu.Unlock()

	if ok {
		s.cancel()
	}
	return ok
}

// Len returns the number of running sessions.
func (r *SessionRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.active)
}
