package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/heartmarshall/lingua-backend/internal/domain"
)

const (
	feedMinBackoff = 500 * time.Millisecond
	feedMaxBackoff = 30 * time.Second
)

type acquirer interface {
	Acquire(ctx context.Context) (*pgxpool.Conn, error)
}

type feedSub struct {
	tables map[domain.Table]struct{}
	fn     func(domain.Table)
}

// ChangeFeed holds one pooled connection in LISTEN mode and fans table
// change notifications out to subscribers. The notify trigger sends the
// changed table name as the payload.
type ChangeFeed struct {
	pool    acquirer
	channel string
	log     *slog.Logger

	mu   sync.RWMutex
	subs map[uint64]*feedSub
	next uint64
}

// NewChangeFeed creates a feed listening on channel. Run must be called to
// start receiving notifications.
func NewChangeFeed(log *slog.Logger, pool *pgxpool.Pool, channel string) *ChangeFeed {
	return &ChangeFeed{
		pool:    pool,
		channel: channel,
		log:     log.With("component", "change_feed", "channel", channel),
		subs:    make(map[uint64]*feedSub),
	}
}

// Subscribe registers fn for notifications on tables. The returned
// subscription is idempotent on Close.
func (f *ChangeFeed) Subscribe(tables []domain.Table, fn func(domain.Table)) (domain.Subscription, error) {
	if fn == nil {
		return nil, domain.NewGatewayError(domain.GatewayCodeInvalid, "subscribe: callback is required", nil)
	}
	set := make(map[domain.Table]struct{}, len(tables))
	for _, t := range tables {
		if !t.IsValid() {
			return nil, domain.NewGatewayError(domain.GatewayCodeUnknownTable, fmt.Sprintf("subscribe: unknown table %q", t), nil)
		}
		set[t] = struct{}{}
	}

	f.mu.Lock()
	id := f.next
	f.next++
	f.subs[id] = &feedSub{tables: set, fn: fn}
	f.mu.Unlock()

	var once sync.Once
	return domain.SubscriptionFunc(func() error {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs, id)
			f.mu.Unlock()
		})
		return nil
	}), nil
}

// Len returns the number of live subscriptions.
func (f *ChangeFeed) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subs)
}

// Run listens until ctx is cancelled, reconnecting with exponential backoff.
// After a reconnect every subscriber receives one resync notification since
// changes made while disconnected were not observed.
func (f *ChangeFeed) Run(ctx context.Context) error {
	backoff := feedMinBackoff
	connected := false

	for {
		err := f.listen(ctx, func() {
			if connected {
				f.resync()
			}
			connected = true
			backoff = feedMinBackoff
		})
		if ctx.Err() != nil {
			return nil
		}

		f.log.WarnContext(ctx, "change feed disconnected",
			slog.String("error", err.Error()),
			slog.Duration("retry_in", backoff),
		)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, feedMaxBackoff)
	}
}

func (f *ChangeFeed) listen(ctx context.Context, onListening func()) error {
	conn, err := f.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{f.channel}.Sanitize()); err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	f.log.InfoContext(ctx, "change feed listening")
	onListening()

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("wait for notification: %w", err)
		}
		f.dispatch(n.Payload)
	}
}

// dispatch delivers a notification payload (a table name) to every
// subscriber of that table. Unknown payloads are ignored.
func (f *ChangeFeed) dispatch(payload string) {
	table := domain.Table(strings.ToLower(strings.TrimSpace(payload)))
	if !table.IsValid() {
		f.log.Debug("ignoring notification", slog.String("payload", payload))
		return
	}

	for _, fn := range f.matching(table) {
		fn(table)
	}
}

func (f *ChangeFeed) resync() {
	f.mu.RLock()
	calls := make([]func(), 0, len(f.subs))
	for _, s := range f.subs {
		for t := range s.tables {
			fn, table := s.fn, t
			calls = append(calls, func() { fn(table) })
			break
		}
	}
	f.mu.RUnlock()

	for _, call := range calls {
		call()
	}
}

func (f *ChangeFeed) matching(table domain.Table) []func(domain.Table) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make([]func(domain.Table), 0, len(f.subs))
	for _, s := range f.subs {
		if _, ok := s.tables[table]; ok {
			out = append(out, s.fn)
		}
	}
	return out
}
