package progress

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/heartmarshall/lingua-backend/internal/domain"
	"github.com/heartmarshall/lingua-backend/pkg/ctxutil"
)

// ErrRegistryClosed is returned by Acquire after Close.
var ErrRegistryClosed = errors.New("progress: registry closed")

type session struct {
	agg   *Aggregator
	ready chan struct{}
	err   error
}

// Registry keeps one Aggregator per signed-in user.
type Registry struct {
	gw      gateway
	log     *slog.Logger
	opts    Options
	idleTTL time.Duration
	clock   func() time.Time

	mu       sync.Mutex
	sessions map[uuid.UUID]*session
	closed   bool
}

// NewRegistry creates a Registry. Sessions idle longer than idleTTL are
// dropped by Sweep; a non-positive idleTTL disables sweeping.
func NewRegistry(log *slog.Logger, gw gateway, opts Options, idleTTL time.Duration) *Registry {
	return &Registry{
		gw:       gw,
		log:      log,
		opts:     opts,
		idleTTL:  idleTTL,
		clock:    time.Now,
		sessions: make(map[uuid.UUID]*session),
	}
}

// Acquire returns the started Aggregator of the user in ctx, creating it on
// first use. Concurrent callers for the same user share one start.
func (r *Registry) Acquire(ctx context.Context) (*Aggregator, error) {
	userID, ok := ctxutil.UserIDFromCtx(ctx)
	if !ok {
		return nil, domain.ErrUnauthorized
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, ErrRegistryClosed
	}
	s, found := r.sessions[userID]
	if !found {
		agg := NewAggregator(r.log.With("user_id", userID.String()), r.gw, r.opts)
		agg.clock = r.clock
		s = &session{agg: agg, ready: make(chan struct{})}
		r.sessions[userID] = s
	}
	r.mu.Unlock()

	if !found {
		s.err = s.agg.Start(ctx)
		close(s.ready)
		if s.err != nil {
			r.drop(userID, s)
			return nil, fmt.Errorf("start session: %w", s.err)
		}
		r.log.InfoContext(ctx, "progress session started", slog.String("user_id", userID.String()))
	}

	select {
	case <-s.ready:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if s.err != nil {
		return nil, fmt.Errorf("start session: %w", s.err)
	}
	s.agg.Touch()
	return s.agg, nil
}

// SignOut closes and forgets the session of userID. It reports whether a
// session existed.
func (r *Registry) SignOut(userID uuid.UUID) bool {
	r.mu.Lock()
	s, ok := r.sessions[userID]
	r.mu.Unlock()
	if !ok {
		return false
	}
	r.drop(userID, s)
	r.log.Info("progress session signed out", slog.String("user_id", userID.String()))
	return true
}

func (r *Registry) drop(userID uuid.UUID, s *session) {
	r.mu.Lock()
	if r.sessions[userID] == s {
		delete(r.sessions, userID)
	}
	r.mu.Unlock()

	if err := s.agg.Close(); err != nil {
		r.log.Warn("close change subscription",
			slog.String("user_id", userID.String()),
			slog.String("error", err.Error()),
		)
	}
}

// Sweep closes sessions idle since before now minus the idle TTL and
// returns how many were closed.
func (r *Registry) Sweep(now time.Time) int {
	if r.idleTTL <= 0 {
		return 0
	}
	cutoff := now.Add(-r.idleTTL)

	type victim struct {
		id uuid.UUID
		s  *session
	}
	var victims []victim

	r.mu.Lock()
	for id, s := range r.sessions {
		select {
		case <-s.ready:
		default:
			continue
		}
		if s.agg.LastUsed().Before(cutoff) {
			victims = append(victims, victim{id, s})
		}
	}
	r.mu.Unlock()

	for _, v := range victims {
		r.drop(v.id, v.s)
	}
	if len(victims) > 0 {
		r.log.Info("idle progress sessions closed", slog.Int("count", len(victims)))
	}
	return len(victims)
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Close tears down every session. Later Acquire calls fail.
func (r *Registry) Close() {
	r.mu.Lock()
	r.closed = true
	sessions := r.sessions
	r.sessions = make(map[uuid.UUID]*session)
	r.mu.Unlock()

	for id, s := range sessions {
		<-s.ready
		if err := s.agg.Close(); err != nil {
			r.log.Warn("close change subscription",
				slog.String("user_id", id.String()),
				slog.String("error", err.Error()),
			)
		}
	}
}
