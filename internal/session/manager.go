package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/ppiankov/cyberlab/internal/model"
)

var (
	// ErrSessionNotFound is returned for an unknown or expired session ID.
	ErrSessionNotFound = errors.New("session: not found")
	// ErrRateLimited is returned when a session submits too often.
	ErrRateLimited = errors.New("session: submit rate exceeded")
)

// ManagerOptions configures a Manager.
type ManagerOptions struct {
	LogCap int
	// IdleTTL expires sessions untouched for this long. Zero keeps them.
	IdleTTL time.Duration
	// SubmitRate and SubmitBurst bound submits per session. Zero rate
	// disables the limit.
	SubmitRate  rate.Limit
	SubmitBurst int
	// DelayFor returns the simulated latency of a lab.
	DelayFor     func(model.Category) time.Duration
	ProgressTick time.Duration
	Classify     ClassifyFunc
	// OnCount is called with the number of live sessions after it changes.
	OnCount func(int)
	Now     func() time.Time
}

type managed struct {
	sess     *LabSession
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Manager owns the live sessions, keyed by random UUID.
type Manager struct {
	opts ManagerOptions

	mu       sync.Mutex
	sessions map[string]*managed
}

// NewManager creates an empty manager.
func NewManager(opts ManagerOptions) *Manager {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.SubmitBurst <= 0 {
		opts.SubmitBurst = 1
	}
	return &Manager{opts: opts, sessions: make(map[string]*managed)}
}

// Create starts a new session for a lab.
func (m *Manager) Create(cat model.Category, mode model.Mode) (*LabSession, error) {
	id := uuid.NewString()
	var d time.Duration
	if m.opts.DelayFor != nil {
		d = m.opts.DelayFor(cat)
	}
	s, err := New(id, cat, mode, Options{
		LogCap:       m.opts.LogCap,
		Delay:        d,
		ProgressTick: m.opts.ProgressTick,
		Classify:     m.opts.Classify,
		Now:          m.opts.Now,
	})
	if err != nil {
		return nil, err
	}

	limit := rate.Inf
	if m.opts.SubmitRate > 0 {
		limit = m.opts.SubmitRate
	}

	m.mu.Lock()
	m.sessions[id] = &managed{
		sess:     s,
		limiter:  rate.NewLimiter(limit, m.opts.SubmitBurst),
		lastSeen: m.opts.Now(),
	}
	n := len(m.sessions)
	m.mu.Unlock()

	m.notify(n)
	return s, nil
}

// Get returns a session and marks it as used.
func (m *Manager) Get(id string) (*LabSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	e.lastSeen = m.opts.Now()
	return e.sess, nil
}

// Submit runs a rate-limited submit on the session. A submit refused
// because another one is pending does not count against the limit.
func (m *Manager) Submit(ctx context.Context, id string) (model.Result, error) {
	m.mu.Lock()
	e, ok := m.sessions[id]
	if !ok {
		m.mu.Unlock()
		return model.Result{}, ErrSessionNotFound
	}
	now := m.opts.Now()
	e.lastSeen = now
	if e.sess.Snapshot().State == StateSubmitting {
		m.mu.Unlock()
		return model.Result{}, ErrInFlight
	}
	r := e.limiter.ReserveN(now, 1)
	if !r.OK() || r.DelayFrom(now) > 0 {
		r.CancelAt(now)
		m.mu.Unlock()
		return model.Result{}, ErrRateLimited
	}
	m.mu.Unlock()

	res, err := e.sess.Submit(ctx)
	if errors.Is(err, ErrInFlight) {
		// Lost a race with a concurrent submit; this one never ran.
		r.CancelAt(now)
	}
	return res, err
}

// Delete closes and forgets a session.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	e, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	n := len(m.sessions)
	m.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	e.sess.Close()
	m.notify(n)
	return nil
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep closes sessions idle for longer than IdleTTL and returns how
// many were removed.
func (m *Manager) Sweep() int {
	if m.opts.IdleTTL <= 0 {
		return 0
	}
	cutoff := m.opts.Now().Add(-m.opts.IdleTTL)

	m.mu.Lock()
	var expired []*LabSession
	for id, e := range m.sessions {
		if e.lastSeen.Before(cutoff) {
			expired = append(expired, e.sess)
			delete(m.sessions, id)
		}
	}
	n := len(m.sessions)
	m.mu.Unlock()

	for _, s := range expired {
		s.Close()
	}
	if len(expired) > 0 {
		m.notify(n)
	}
	return len(expired)
}

// Run sweeps every interval until ctx is done, then closes all sessions.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			m.closeAll()
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}

func (m *Manager) closeAll() {
	m.mu.Lock()
	all := m.sessions
	m.sessions = make(map[string]*managed)
	m.mu.Unlock()

	for _, e := range all {
		e.sess.Close()
	}
	m.notify(0)
}

func (m *Manager) notify(n int) {
	if m.opts.OnCount != nil {
		m.opts.OnCount(n)
	}
}
