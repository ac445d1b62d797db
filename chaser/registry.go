// Copyright (c) 2025 Kishore Bharat

package chaser

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/kbharat/chasebot/ctxutil"
	"github.com/kbharat/chasebot/idgen"
)

// Registry is the thread-safe table of live sessions, keyed by owner and
// session id. Entries are added by Start and removed only by the owning
// runner when its loop exits. The registry lock serializes map access only;
// it is never held across a network call or a sleep.
type Registry struct {
	maxPerOwner int

	cg ctxutil.CloseGroup

	mu       sync.Mutex
	nextID   int64
	ownerMap map[string]map[int64]*Session
}

// NewRegistry creates an empty registry. maxSessionsPerOwner caps concurrent
// sessions per owner; zero means unlimited.
func NewRegistry(maxSessionsPerOwner int) *Registry {
	return &Registry{
		maxPerOwner: maxSessionsPerOwner,
		ownerMap:    make(map[string]map[int64]*Session),
	}
}

// Close signals every session to stop and waits for all runners to exit.
func (r *Registry) Close() {
	r.mu.Lock()
	for _, sessions := range r.ownerMap {
		for _, s := range sessions {
			s.SignalStop()
		}
	}
	r.mu.Unlock()

	r.cg.Close()
}

// Start validates the intent, registers a new session under a fresh
// monotonic id and spawns its runner. Never blocks on I/O.
func (r *Registry) Start(rt *Runtime, ownerID string, intent *Intent, opts *Options) (int64, error) {
	if err := rt.Check(); err != nil {
		return 0, err
	}
	if len(ownerID) == 0 {
		return 0, fmt.Errorf("owner id cannot be empty")
	}
	if err := intent.Check(); err != nil {
		return 0, fmt.Errorf("invalid session intent: %w", err)
	}
	if opts == nil {
		opts = new(Options)
	}
	sopts := *opts
	sopts.setDefaults(intent.Side)
	if err := sopts.Check(); err != nil {
		return 0, fmt.Errorf("invalid session options: %w", err)
	}

	s := &Session{
		owner:  ownerID,
		intent: *intent,
		opts:   sopts,
	}

	r.mu.Lock()
	if r.maxPerOwner > 0 && len(r.ownerMap[ownerID]) >= r.maxPerOwner {
		r.mu.Unlock()
		return 0, fmt.Errorf("owner %q already has %d active sessions", ownerID, r.maxPerOwner)
	}
	r.nextID++
	s.id = r.nextID
	s.idgen = idgen.New(fmt.Sprintf("%s/%d", ownerID, s.id), 0)
	sessions, ok := r.ownerMap[ownerID]
	if !ok {
		sessions = make(map[int64]*Session)
		r.ownerMap[ownerID] = sessions
	}
	sessions[s.id] = s
	r.mu.Unlock()

	r.cg.Go(func(ctx context.Context) {
		s.run(ctx, rt)
		r.remove(ownerID, s.id)
	})
	return s.id, nil
}

// Get returns the live session with the given owner and id, if any.
func (r *Registry) Get(ownerID string, id int64) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.ownerMap[ownerID][id]
	return s, ok
}

// List returns point-in-time summaries of the owner's sessions, ordered by
// id. The returned slice is a snapshot copy, safe to use without the lock.
func (r *Registry) List(ownerID string) []*Summary {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.ownerMap[ownerID]))
	for _, s := range r.ownerMap[ownerID] {
		sessions = append(sessions, s)
	}
	r.mu.Unlock()

	summaries := make([]*Summary, 0, len(sessions))
	for _, s := range sessions {
		summaries = append(summaries, s.Summary())
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].ID < summaries[j].ID
	})
	return summaries
}

// Stop signals the session to stop. Idempotent; returns false if no such
// session is live.
func (r *Registry) Stop(ownerID string, id int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.ownerMap[ownerID][id]
	if !ok {
		return false
	}
	s.SignalStop()
	return true
}

// StopAll signals every session of the owner to stop and returns how many
// were signaled. Safe to call with zero active sessions.
func (r *Registry) StopAll(ownerID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	sessions := r.ownerMap[ownerID]
	for _, s := range sessions {
		s.SignalStop()
	}
	return len(sessions)
}

// remove is called only by a session's own runner at the end of its life.
func (r *Registry) remove(ownerID string, id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sessions := r.ownerMap[ownerID]
	delete(sessions, id)
	if len(sessions) == 0 {
		delete(r.ownerMap, ownerID)
	}
}
