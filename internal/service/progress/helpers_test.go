package progress

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/heartmarshall/lingua-backend/internal/domain"
	"github.com/heartmarshall/lingua-backend/pkg/ctxutil"
)

// backend is an in-test table store behind a gatewayMock.
type backend struct {
	mu        sync.Mutex
	userID    uuid.UUID
	role      string
	noSession bool
	tables    map[domain.Table][]domain.Row
	failQuery map[domain.Table]error
	failWrite error
	nextID    int
	listeners []func(domain.Table)
	closes    int
}

func newBackend(role string) *backend {
	return &backend{
		userID:    uuid.New(),
		role:      role,
		tables:    make(map[domain.Table][]domain.Row),
		failQuery: make(map[domain.Table]error),
	}
}

func (b *backend) seed(table domain.Table, rows ...domain.Row) *backend {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, r := range rows {
		b.tables[table] = append(b.tables[table], maps.Clone(r))
	}
	return b
}

func (b *backend) withProfile(xp, level int) *backend {
	return b.seed(domain.TableUsers, domain.Row{
		"id":            b.userID.String(),
		"total_xp":      xp,
		"current_level": level,
	})
}

func (b *backend) rows(table domain.Table) []domain.Row {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]domain.Row, 0, len(b.tables[table]))
	for _, r := range b.tables[table] {
		out = append(out, maps.Clone(r))
	}
	return out
}

func (b *backend) setQueryError(table domain.Table, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failQuery[table] = err
}

func (b *backend) setWriteError(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failWrite = err
}

func (b *backend) fire(table domain.Table) {
	b.mu.Lock()
	listeners := append([]func(domain.Table){}, b.listeners...)
	b.mu.Unlock()
	for _, fn := range listeners {
		fn(table)
	}
}

func (b *backend) closeCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closes
}

func matches(row domain.Row, filter domain.Filter) bool {
	for k, v := range filter {
		if fmt.Sprint(row[k]) != fmt.Sprint(v) {
			return false
		}
	}
	return true
}

func (b *backend) mock() *gatewayMock {
	return &gatewayMock{
		SessionFunc: func(ctx context.Context) (*domain.Session, error) {
			b.mu.Lock()
			defer b.mu.Unlock()
			if b.noSession {
				return nil, nil
			}
			if id, ok := ctxutil.UserIDFromCtx(ctx); ok {
				return &domain.Session{UserID: id}, nil
			}
			return &domain.Session{UserID: b.userID}, nil
		},
		CurrentUserFunc: func(ctx context.Context) (*domain.AuthUser, error) {
			id := b.userID
			if ctxID, ok := ctxutil.UserIDFromCtx(ctx); ok {
				id = ctxID
			}
			return &domain.AuthUser{ID: id, Email: "ana@example.com", RoleHint: b.role}, nil
		},
		QueryFunc: func(_ context.Context, table domain.Table, filter domain.Filter) ([]domain.Row, error) {
			b.mu.Lock()
			defer b.mu.Unlock()
			if err := b.failQuery[table]; err != nil {
				return nil, err
			}
			var out []domain.Row
			for _, r := range b.tables[table] {
				if matches(r, filter) {
					out = append(out, maps.Clone(r))
				}
			}
			return out, nil
		},
		InsertFunc: func(_ context.Context, table domain.Table, row domain.Row) (domain.Row, error) {
			b.mu.Lock()
			defer b.mu.Unlock()
			if b.failWrite != nil {
				return nil, b.failWrite
			}
			b.nextID++
			stored := maps.Clone(row)
			if _, ok := stored["id"]; !ok {
				stored["id"] = fmt.Sprintf("%s-%d", table, b.nextID)
			}
			b.tables[table] = append(b.tables[table], stored)
			return maps.Clone(stored), nil
		},
		UpdateFunc: func(_ context.Context, table domain.Table, id string, patch domain.Row) (domain.Row, error) {
			b.mu.Lock()
			defer b.mu.Unlock()
			if b.failWrite != nil {
				return nil, b.failWrite
			}
			for _, r := range b.tables[table] {
				if fmt.Sprint(r["id"]) == id {
					maps.Copy(r, patch)
					return maps.Clone(r), nil
				}
			}
			return nil, domain.NewGatewayError(domain.GatewayCodeNotFound, "no row "+id, nil)
		},
		DeleteFunc: func(_ context.Context, table domain.Table, id string) error {
			b.mu.Lock()
			defer b.mu.Unlock()
			if b.failWrite != nil {
				return b.failWrite
			}
			rows := b.tables[table]
			for i, r := range rows {
				if fmt.Sprint(r["id"]) == id {
					b.tables[table] = append(rows[:i:i], rows[i+1:]...)
					return nil
				}
			}
			return domain.NewGatewayError(domain.GatewayCodeNotFound, "no row "+id, nil)
		},
		SubscribeFunc: func(_ context.Context, _ []domain.Table, onChange func(domain.Table)) (domain.Subscription, error) {
			b.mu.Lock()
			defer b.mu.Unlock()
			b.listeners = append(b.listeners, onChange)
			var once sync.Once
			return domain.SubscriptionFunc(func() error {
				once.Do(func() {
					b.mu.Lock()
					b.closes++
					b.listeners = nil
					b.mu.Unlock()
				})
				return nil
			}), nil
		},
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestAggregator(t *testing.T, gw gateway, opts Options) *Aggregator {
	t.Helper()
	a := NewAggregator(discardLogger(), gw, opts)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

// loaded returns an aggregator after a successful first load.
func loaded(t *testing.T, b *backend, opts Options) (*Aggregator, *gatewayMock) {
	t.Helper()
	gw := b.mock()
	a := newTestAggregator(t, gw, opts)
	if err := a.LoadUserData(context.Background()); err != nil {
		t.Fatalf("LoadUserData: %v", err)
	}
	return a, gw
}

func ptr[T any](v T) *T { return &v }

// seedCatalog loads a small catalog: two areas, three levels, three lessons
// (one inactive) and two questions.
func seedCatalog(b *backend) *backend {
	return b.
		seed(domain.TableAreas,
			domain.Row{"slug": "vocabulario", "name": "Vocabulario"},
			domain.Row{"slug": "grammar", "name": "Gramática"},
		).
		seed(domain.TableLevels,
			domain.Row{"id": "lvl-3", "area": "vocabulario", "order_index": 3, "name": "Avanzado"},
			domain.Row{"id": "lvl-1", "area": "vocabulario", "order_index": 1, "name": "Inicial"},
			domain.Row{"id": "lvl-2", "area": "vocabulario", "order_index": 2, "name": "Medio"},
		).
		seed(domain.TableLessons,
			domain.Row{"id": "les-2", "area": "vocab", "level": 1, "order_index": 2, "title": "Números", "xp_reward": 40},
			domain.Row{"id": "les-1", "area": "vocab", "level": 1, "order_index": 1, "title": "Colores", "xp_reward": 50},
			domain.Row{"id": "les-off", "area": "vocab", "level": 1, "order_index": 0, "title": "Draft", "is_active": false},
		).
		seed(domain.TableQuestions,
			domain.Row{"id": "q-1", "lesson_id": "les-1", "question_text": "Rojo?", "options": []any{"red", "blue"}, "correct_answer": "red", "order_index": 1},
			domain.Row{"id": "q-2", "lesson_id": "les-1", "question_text": "Siete?", "options": []any{}, "correct_answer": "seven", "order_index": 2},
		)
}
