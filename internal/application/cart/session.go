package cart

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/storefront/backend/internal/domain/cart"
	"github.com/storefront/backend/internal/domain/shared"
	"go.uber.org/zap"
)

const maxDeviceIDLength = 128

// IdentityFeed is an IdentitySource that callers push identity deliveries into
type IdentityFeed interface {
	IdentitySource
	Publish(ctx context.Context, identity cart.SessionIdentity) error
}

// Session binds one device to its Store and identity feed
type Session struct {
	DeviceID string
	Store    *Store
	Identity IdentityFeed

	loadOnce sync.Once
	loadErr  error
	lastSeen atomic.Int64
}

// LastSeen returns when the session was last used
func (s *Session) LastSeen() time.Time {
	return time.Unix(0, s.lastSeen.Load())
}

func (s *Session) touch(now time.Time) {
	s.lastSeen.Store(now.UnixNano())
}

// SessionDeps holds the collaborators every session's Store is built from
type SessionDeps struct {
	Catalog         Catalog
	Remote          cart.RemoteCartStore
	LocalCache      func(deviceID string) cart.LocalCartCache
	NewIdentityFeed func() IdentityFeed
	Publisher       shared.EventPublisher
	Logger          *zap.Logger
}

// SessionRegistryConfig controls idle session eviction
type SessionRegistryConfig struct {
	IdleTimeout   time.Duration
	SweepInterval time.Duration
}

// SessionRegistry keeps one Session per device and evicts idle ones in the background.
// Sessions signed in as the same user share that user's cart queue.
type SessionRegistry struct {
	deps   SessionDeps
	cfg    SessionRegistryConfig
	logger *zap.Logger
	clock  func() time.Time
	carts  *CartQueues

	mu       sync.Mutex
	sessions map[string]*Session

	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewSessionRegistry creates a registry. A positive SweepInterval starts the idle sweeper.
func NewSessionRegistry(deps SessionDeps, cfg SessionRegistryConfig) *SessionRegistry {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &SessionRegistry{
		deps:     deps,
		cfg:      cfg,
		logger:   logger,
		clock:    time.Now,
		carts:    NewCartQueues(),
		sessions: make(map[string]*Session),
		stopChan: make(chan struct{}),
	}
	if cfg.SweepInterval > 0 && cfg.IdleTimeout > 0 {
		r.wg.Add(1)
		go r.sweepLoop()
	}
	return r
}

// Get returns the device's session, creating it and loading its cart on first use
func (r *SessionRegistry) Get(ctx context.Context, deviceID string) (*Session, error) {
	if deviceID == "" || len(deviceID) > maxDeviceIDLength {
		return nil, shared.ErrInvalidInput.WithMessage("A device id of at most 128 characters is required")
	}

	r.mu.Lock()
	session, ok := r.sessions[deviceID]
	if !ok {
		session = r.newSession(deviceID)
		r.sessions[deviceID] = session
	}
	session.touch(r.clock())
	r.mu.Unlock()

	session.loadOnce.Do(func() {
		session.loadErr = session.Store.Load(ctx)
	})
	if session.loadErr != nil {
		r.evict(deviceID, session)
		return nil, session.loadErr
	}
	return session, nil
}

func (r *SessionRegistry) newSession(deviceID string) *Session {
	feed := r.deps.NewIdentityFeed()
	store := NewStore(
		feed,
		r.deps.Catalog,
		r.deps.LocalCache(deviceID),
		r.deps.Remote,
		WithScope(deviceID),
		WithLogger(r.logger),
		WithEventPublisher(r.deps.Publisher),
		WithCartQueues(r.carts),
	)
	r.logger.Debug("cart session created", zap.String("device_id", deviceID))
	return &Session{DeviceID: deviceID, Store: store, Identity: feed}
}

// Len returns the number of live sessions
func (r *SessionRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep evicts sessions idle for longer than the idle timeout and returns how many were evicted.
// Evicted carts stay durable in their backend and are reloaded on the next request.
func (r *SessionRegistry) Sweep() int {
	if r.cfg.IdleTimeout <= 0 {
		return 0
	}
	cutoff := r.clock().Add(-r.cfg.IdleTimeout)

	r.mu.Lock()
	var idle []*Session
	for id, s := range r.sessions {
		if s.LastSeen().Before(cutoff) {
			idle = append(idle, s)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, s := range idle {
		s.Store.Close()
	}
	if len(idle) > 0 {
		r.logger.Debug("evicted idle cart sessions", zap.Int("count", len(idle)))
	}
	return len(idle)
}

// Close stops the sweeper and detaches every session. Safe to call multiple times.
func (r *SessionRegistry) Close() error {
	r.closeOnce.Do(func() {
		close(r.stopChan)
		r.wg.Wait()

		r.mu.Lock()
		for id, s := range r.sessions {
			s.Store.Close()
			delete(r.sessions, id)
		}
		r.mu.Unlock()
	})
	return nil
}

func (r *SessionRegistry) evict(deviceID string, session *Session) {
	r.mu.Lock()
	if current, ok := r.sessions[deviceID]; ok && current == session {
		delete(r.sessions, deviceID)
	}
	r.mu.Unlock()
	session.Store.Close()
}

func (r *SessionRegistry) sweepLoop() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopChan:
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}
