package dashboard

import (
	"context"
	"errors"
	"sync"
	"time"

	"olivetrace/domain"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"
)

// Session holds the latest view of one dashboard. Refreshes may overlap;
// only the most recently started one is allowed to publish its result.
type Session struct {
	loader *Loader
	req    Request

	mu         sync.Mutex
	generation uint64
	current    *View
	touchedAt  time.Time
}

func NewSession(loader *Loader, req Request) *Session {
	return &Session{loader: loader, req: req, touchedAt: time.Now()}
}

func (s *Session) Request() Request {
	return s.req
}

// Refresh loads a new view. It returns domain.ErrSupersededLoad, and leaves
// Current untouched, when another refresh started after this one.
func (s *Session) Refresh(ctx context.Context) (*View, error) {
	generation := s.begin()

	head, err := s.loader.Head(ctx)
	if err != nil {
		return s.publish(generation, nil, err)
	}
	view, err := s.loader.loadAt(ctx, s.req, head)
	return s.publish(generation, view, err)
}

// View returns the published view while it is still at the chain head and
// refreshes it otherwise. When a newer refresh supersedes this one the
// caller still gets an answer, but it is not published.
func (s *Session) View(ctx context.Context) (*View, error) {
	head, err := s.loader.Head(ctx)
	if err != nil {
		return nil, err
	}
	if current := s.Current(); upToDate(current, head) {
		return current, nil
	}

	generation := s.begin()
	view, loadErr := s.loader.loadAt(ctx, s.req, head)
	published, err := s.publish(generation, view, loadErr)
	if !errors.Is(err, domain.ErrSupersededLoad) {
		return published, err
	}
	if current := s.Current(); upToDate(current, head) {
		return current, nil
	}
	return view, loadErr
}

// begin takes a new generation token. Only the holder of the latest token
// may publish.
func (s *Session) begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	return s.generation
}

func (s *Session) publish(generation uint64, view *View, err error) (*View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if generation != s.generation {
		return nil, domain.ErrSupersededLoad
	}
	if err != nil {
		return nil, err
	}
	s.current = view
	return view, nil
}

// upToDate reports whether view can be served at head. Views missing items
// are always rebuilt.
func upToDate(view *View, head uint64) bool {
	return view != nil && view.BlockHeight >= head && len(view.SkippedItems) == 0
}

// Current returns the last published view, or nil before the first one.
func (s *Session) Current() *View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

func (s *Session) touch() {
	s.mu.Lock()
	s.touchedAt = time.Now()
	s.mu.Unlock()
}

func (s *Session) lastTouched() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.touchedAt
}

type sessionKey struct {
	identity common.Address
	role     domain.Role
	zero     bool
}

// Sessions tracks the dashboards that were recently requested so they can be
// refreshed when the ledger reports a relevant event.
type Sessions struct {
	loader *Loader
	limit  int

	mu       sync.Mutex
	sessions map[sessionKey]*Session
}

func NewSessions(loader *Loader, limit int) *Sessions {
	if limit < 1 {
		limit = 1024
	}
	return &Sessions{
		loader:   loader,
		limit:    limit,
		sessions: make(map[sessionKey]*Session),
	}
}

// Track returns the session for req, creating it when needed. When the
// registry is full the least recently tracked session is dropped.
func (s *Sessions) Track(req Request) *Session {
	key := sessionKey{identity: req.Identity, role: req.Role, zero: req.policy().IncludeZeroBalance}

	s.mu.Lock()
	defer s.mu.Unlock()

	if session, ok := s.sessions[key]; ok {
		session.touch()
		return session
	}

	if len(s.sessions) >= s.limit {
		var (
			oldestKey sessionKey
			oldest    time.Time
			found     bool
		)
		for k, session := range s.sessions {
			touched := session.lastTouched()
			if !found || touched.Before(oldest) {
				oldestKey, oldest, found = k, touched, true
			}
		}
		delete(s.sessions, oldestKey)
	}

	session := NewSession(s.loader, req)
	s.sessions[key] = session
	return session
}

// View tracks req and returns its current view.
func (s *Sessions) View(ctx context.Context, req Request) (*View, error) {
	return s.Track(req).View(ctx)
}

// ForAddress returns the tracked sessions of a participant.
func (s *Sessions) ForAddress(address common.Address) []*Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*Session
	for key, session := range s.sessions {
		if key.identity == address {
			out = append(out, session)
		}
	}
	return out
}

// Refresh reloads every tracked view of address concurrently and returns how
// many sessions it touched. Superseded loads are not errors.
func (s *Sessions) Refresh(ctx context.Context, address common.Address) (int, error) {
	sessions := s.ForAddress(address)

	g, ctx := errgroup.WithContext(ctx)
	for _, session := range sessions {
		g.Go(func() error {
			if _, err := session.Refresh(ctx); err != nil && !errors.Is(err, domain.ErrSupersededLoad) {
				return err
			}
			return nil
		})
	}
	return len(sessions), g.Wait()
}

func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
