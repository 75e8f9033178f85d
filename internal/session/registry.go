// Package session holds uploaded datasets for the duration of a session and
// owns the idle-expiry policy.
package session

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/csvchat/csvchat/internal/dataset"
	"github.com/csvchat/csvchat/internal/domain"
)

// Registry is the only globally shared mutable structure in the service: the
// identifier to session mapping. Every mutation happens under the mutex, and
// a session acquired by an in-flight query is pinned with a refcount so a
// concurrent eviction can never destroy a dataset out from under a run.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*entry

	ttl  time.Duration
	now  func() time.Time
	stop chan struct{}
	done chan struct{}
}

type entry struct {
	session domain.Session
	dataset *dataset.Dataset
	refs    int
	doomed  bool
}

// Handle pins a session for the duration of an orchestration run. Release
// must be called exactly once when the run finishes.
type Handle struct {
	Session domain.Session
	Dataset *dataset.Dataset

	reg  *Registry
	once sync.Once
}

// NewRegistry creates a registry whose sessions expire after ttl of
// inactivity. sweepInterval > 0 starts the background eviction sweep.
func NewRegistry(ttl, sweepInterval time.Duration) *Registry {
	r := &Registry{
		entries: make(map[string]*entry),
		ttl:     ttl,
		now:     time.Now,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	if sweepInterval > 0 {
		go r.sweepLoop(sweepInterval)
	} else {
		close(r.done)
	}
	return r
}

// Create stores a dataset under a fresh session id.
func (r *Registry) Create(ds *dataset.Dataset, filename string) string {
	id := uuid.New().String()
	now := r.now()
	r.mu.Lock()
	r.entries[id] = &entry{
		session: domain.Session{
			SessionID:  id,
			Filename:   filename,
			CreatedAt:  now,
			LastAccess: now,
		},
		dataset: ds,
	}
	r.mu.Unlock()
	return id
}

// Acquire pins a session for a run, refreshing its idle clock.
func (r *Registry) Acquire(id string) (*Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok || e.doomed {
		return nil, notFound()
	}
	e.session.LastAccess = r.now()
	e.refs++
	return &Handle{Session: e.session, Dataset: e.dataset, reg: r}, nil
}

// Release unpins the session. If an eviction or delete was deferred while
// the run was in flight, the entry is removed once the last handle is gone.
func (h *Handle) Release() {
	if h.reg == nil {
		return
	}
	h.once.Do(func() {
		r := h.reg
		r.mu.Lock()
		defer r.mu.Unlock()
		e, ok := r.entries[h.Session.SessionID]
		if !ok {
			return
		}
		e.refs--
		if e.refs <= 0 && e.doomed {
			delete(r.entries, h.Session.SessionID)
		}
	})
}

// Info returns session metadata, refreshing the idle clock.
func (r *Registry) Info(id string) (domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok || e.doomed {
		return domain.Session{}, notFound()
	}
	e.session.LastAccess = r.now()
	return e.session, nil
}

// Delete explicitly destroys a session. A busy session is marked doomed and
// released when its last in-flight run finishes; lookups fail immediately.
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok || e.doomed {
		return notFound()
	}
	if e.refs > 0 {
		e.doomed = true
		return nil
	}
	delete(r.entries, id)
	return nil
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.entries {
		if !e.doomed {
			n++
		}
	}
	return n
}

// Close stops the background sweep.
func (r *Registry) Close() {
	select {
	case <-r.stop:
	default:
		close(r.stop)
	}
	<-r.done
}

func (r *Registry) sweepLoop(interval time.Duration) {
	defer close(r.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			if n := r.sweep(); n > 0 {
				log.Printf("INFO: evicted %d idle session(s)", n)
			}
		}
	}
}

// sweep evicts sessions idle longer than the TTL. Entries pinned by an
// in-flight run are doomed instead and removed on final Release.
func (r *Registry) sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	evicted := 0
	for id, e := range r.entries {
		if e.doomed || now.Sub(e.session.LastAccess) <= r.ttl {
			continue
		}
		if e.refs > 0 {
			e.doomed = true
			continue
		}
		delete(r.entries, id)
		evicted++
	}
	return evicted
}

func notFound() error {
	return domain.NewError(domain.CodeSessionNotFound, "session not found or expired")
}
