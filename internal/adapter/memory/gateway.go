// Package memory is an in-process implementation of the remote data gateway.
// It backs the "memory" database driver for local development and the
// transport tests. Every write notifies the subscribers of the written table.
package memory

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/heartmarshall/lingua-backend/internal/domain"
	"github.com/heartmarshall/lingua-backend/pkg/ctxutil"
)

type table struct {
	rows  map[string]domain.Row
	order []string
}

type subscriber struct {
	tables map[domain.Table]struct{}
	fn     func(domain.Table)
}

// Gateway keeps every table in memory. It is safe for concurrent use.
type Gateway struct {
	log   *slog.Logger
	clock func() time.Time

	mu     sync.RWMutex
	tables map[domain.Table]*table

	subMu   sync.RWMutex
	subs    map[uint64]*subscriber
	nextSub uint64
}

// New creates an empty Gateway.
func New(log *slog.Logger) *Gateway {
	return &Gateway{
		log:    log.With("adapter", "memory"),
		clock:  time.Now,
		tables: make(map[domain.Table]*table),
		subs:   make(map[uint64]*subscriber),
	}
}

// SeedAreas inserts the canonical areas, the way the initial migration does.
func (g *Gateway) SeedAreas() {
	g.Seed(domain.TableAreas,
		domain.Row{"id": "vocabulario", "name": "Vocabulario", "description": "Palabras y expresiones", "color": "#4F8EF7"},
		domain.Row{"id": "gramatica", "name": "Gramática", "description": "Estructuras y reglas", "color": "#F7A34F"},
		domain.Row{"id": "listening", "name": "Listening", "description": "Comprensión auditiva", "color": "#5FC27E"},
	)
}

// Seed stores rows as-is without notifying subscribers. Rows without an id
// get a generated one.
func (g *Gateway) Seed(t domain.Table, rows ...domain.Row) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, r := range rows {
		row := cloneRow(r)
		if idOf(row) == "" {
			row["id"] = uuid.NewString()
		}
		g.put(t, row)
	}
}

// Session returns the authenticated session of ctx, or nil when anonymous.
func (g *Gateway) Session(ctx context.Context) (*domain.Session, error) {
	userID, ok := ctxutil.UserIDFromCtx(ctx)
	if !ok {
		return nil, nil
	}
	return &domain.Session{UserID: userID}, nil
}

// CurrentUser returns the signed-in user, creating its users row on first
// sight with the role claim of the session. The stored role wins afterwards.
func (g *Gateway) CurrentUser(ctx context.Context) (*domain.AuthUser, error) {
	userID, ok := ctxutil.UserIDFromCtx(ctx)
	if !ok {
		return nil, nil
	}
	claim := string(domain.RoleStudent)
	if ctxutil.IsAdminCtx(ctx) {
		claim = string(domain.RoleAdmin)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	id := userID.String()
	row, ok := g.table(domain.TableUsers).rows[id]
	if !ok {
		now := g.clock().UTC()
		row = domain.Row{
			"id":            id,
			"role":          claim,
			"total_xp":      0,
			"current_level": 1,
			"streak_days":   0,
			"created_at":    now,
			"updated_at":    now,
		}
		g.put(domain.TableUsers, row)
	}

	user := &domain.AuthUser{ID: userID, RoleHint: claim}
	if email, ok := row["email"].(string); ok {
		user.Email = email
	}
	if role, ok := row["role"].(string); ok && role != "" {
		user.RoleHint = role
	}
	return user, nil
}

// Query returns copies of the rows matching every column of filter.
func (g *Gateway) Query(ctx context.Context, t domain.Table, filter domain.Filter) ([]domain.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.NewGatewayError(domain.GatewayCodeUnavailable, "query "+t.String(), err)
	}
	if !t.IsValid() {
		return nil, unknownTable(t)
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	tb := g.tables[t]
	if tb == nil {
		return []domain.Row{}, nil
	}
	out := make([]domain.Row, 0, len(tb.order))
	for _, id := range tb.order {
		row := tb.rows[id]
		if matches(row, filter) {
			out = append(out, cloneRow(row))
		}
	}
	return out, nil
}

// Insert stores row and returns the stored copy.
func (g *Gateway) Insert(ctx context.Context, t domain.Table, row domain.Row) (domain.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.NewGatewayError(domain.GatewayCodeUnavailable, "insert "+t.String(), err)
	}
	if !t.IsValid() {
		return nil, unknownTable(t)
	}
	if len(row) == 0 {
		return nil, domain.NewGatewayError(domain.GatewayCodeInvalid, "insert "+t.String()+": empty row", nil)
	}

	g.mu.Lock()
	stored := cloneRow(row)
	if idOf(stored) == "" {
		stored["id"] = uuid.NewString()
	}
	if err := g.checkInsert(t, stored); err != nil {
		g.mu.Unlock()
		return nil, err
	}
	applyDefaults(t, stored, g.clock().UTC())
	g.put(t, stored)
	out := cloneRow(stored)
	g.mu.Unlock()

	g.notify(t)
	return out, nil
}

// Update merges patch into the row with the given id.
func (g *Gateway) Update(ctx context.Context, t domain.Table, id string, patch domain.Row) (domain.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.NewGatewayError(domain.GatewayCodeUnavailable, "update "+t.String(), err)
	}
	if !t.IsValid() {
		return nil, unknownTable(t)
	}
	if len(patch) == 0 {
		return nil, domain.NewGatewayError(domain.GatewayCodeInvalid, "update "+t.String()+": empty patch", nil)
	}

	g.mu.Lock()
	row, ok := g.table(t).rows[id]
	if !ok {
		g.mu.Unlock()
		return nil, domain.NewGatewayError(domain.GatewayCodeNotFound, fmt.Sprintf("update %s %s", t, id), nil)
	}
	for k, v := range patch {
		if k == "id" {
			continue
		}
		row[k] = cloneValue(v)
	}
	out := cloneRow(row)
	g.mu.Unlock()

	g.notify(t)
	return out, nil
}

// Delete removes the row with the given id. Deleting a lesson also removes
// its questions and progress rows.
func (g *Gateway) Delete(ctx context.Context, t domain.Table, id string) error {
	if err := ctx.Err(); err != nil {
		return domain.NewGatewayError(domain.GatewayCodeUnavailable, "delete "+t.String(), err)
	}
	if !t.IsValid() {
		return unknownTable(t)
	}

	g.mu.Lock()
	if !g.remove(t, id) {
		g.mu.Unlock()
		return domain.NewGatewayError(domain.GatewayCodeNotFound, fmt.Sprintf("delete %s %s", t, id), nil)
	}
	cascaded := false
	if t == domain.TableLessons {
		cascaded = g.removeWhere(domain.TableQuestions, "lesson_id", id) > 0
		g.removeWhere(domain.TableUserProgress, "lesson_id", id)
	}
	g.mu.Unlock()

	g.notify(t)
	if cascaded {
		g.log.DebugContext(ctx, "cascade delete", slog.String("lesson_id", id))
		g.notify(domain.TableQuestions)
	}
	return nil
}

// Subscribe registers onChange for writes on the given tables.
func (g *Gateway) Subscribe(_ context.Context, tables []domain.Table, onChange func(domain.Table)) (domain.Subscription, error) {
	if onChange == nil {
		return nil, domain.NewGatewayError(domain.GatewayCodeInvalid, "subscribe: callback is required", nil)
	}
	set := make(map[domain.Table]struct{}, len(tables))
	for _, t := range tables {
		if !t.IsValid() {
			return nil, unknownTable(t)
		}
		set[t] = struct{}{}
	}

	g.subMu.Lock()
	id := g.nextSub
	g.nextSub++
	g.subs[id] = &subscriber{tables: set, fn: onChange}
	g.subMu.Unlock()

	var once sync.Once
	return domain.SubscriptionFunc(func() error {
		once.Do(func() {
			g.subMu.Lock()
			delete(g.subs, id)
			g.subMu.Unlock()
		})
		return nil
	}), nil
}

// Ping reports the gateway as healthy while ctx is live.
func (g *Gateway) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Subscribers returns the number of live subscriptions.
func (g *Gateway) Subscribers() int {
	g.subMu.RLock()
	defer g.subMu.RUnlock()
	return len(g.subs)
}

func (g *Gateway) notify(t domain.Table) {
	g.subMu.RLock()
	fns := make([]func(domain.Table), 0, len(g.subs))
	for _, s := range g.subs {
		if _, ok := s.tables[t]; ok {
			fns = append(fns, s.fn)
		}
	}
	g.subMu.RUnlock()

	for _, fn := range fns {
		fn(t)
	}
}

// checkInsert mirrors the unique and foreign key constraints of the schema.
func (g *Gateway) checkInsert(t domain.Table, row domain.Row) error {
	id := idOf(row)
	if _, exists := g.table(t).rows[id]; exists {
		return domain.NewGatewayError(domain.GatewayCodeConflict, fmt.Sprintf("insert %s: duplicate id %s", t, id), nil)
	}
	switch t {
	case domain.TableUserProgress:
		for _, other := range g.table(t).rows {
			if equal(other["user_id"], row["user_id"]) && equal(other["lesson_id"], row["lesson_id"]) {
				return domain.NewGatewayError(domain.GatewayCodeConflict, "insert user_progress: duplicate user lesson", nil)
			}
		}
	case domain.TableQuestions:
		if _, ok := g.table(domain.TableLessons).rows[fmt.Sprint(row["lesson_id"])]; !ok {
			return domain.NewGatewayError(domain.GatewayCodeNotFound, "insert questions: unknown lesson", nil)
		}
	}
	return nil
}

func (g *Gateway) table(t domain.Table) *table {
	tb := g.tables[t]
	if tb == nil {
		tb = &table{rows: make(map[string]domain.Row)}
		g.tables[t] = tb
	}
	return tb
}

func (g *Gateway) put(t domain.Table, row domain.Row) {
	tb := g.table(t)
	id := idOf(row)
	if _, exists := tb.rows[id]; !exists {
		tb.order = append(tb.order, id)
	}
	tb.rows[id] = row
}

func (g *Gateway) remove(t domain.Table, id string) bool {
	tb := g.table(t)
	if _, ok := tb.rows[id]; !ok {
		return false
	}
	delete(tb.rows, id)
	tb.order = slices.DeleteFunc(tb.order, func(s string) bool { return s == id })
	return true
}

func (g *Gateway) removeWhere(t domain.Table, col, value string) int {
	tb := g.table(t)
	var ids []string
	for id, row := range tb.rows {
		if equal(row[col], value) {
			ids = append(ids, id)
		}
	}
	for _, id := range ids {
		g.remove(t, id)
	}
	return len(ids)
}

func applyDefaults(t domain.Table, row domain.Row, now time.Time) {
	setDefault := func(k string, v any) {
		if _, ok := row[k]; !ok {
			row[k] = v
		}
	}
	setDefault("created_at", now)
	switch t {
	case domain.TableLessons:
		setDefault("is_active", true)
		setDefault("xp_reward", domain.DefaultLessonXP)
		setDefault("level", 1)
		setDefault("type", string(domain.LessonTypeReading))
	case domain.TableQuestions:
		setDefault("options", []string{})
	case domain.TableUsers:
		setDefault("role", string(domain.RoleStudent))
		setDefault("total_xp", 0)
		setDefault("current_level", 1)
	case domain.TableUserAnswers:
		setDefault("answered_at", now)
	}
}

func matches(row domain.Row, filter domain.Filter) bool {
	for k, want := range filter {
		if !equal(row[k], want) {
			return false
		}
	}
	return true
}

// equal compares column values by their text form so uuid.UUID and string
// ids match the way they would in SQL.
func equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return strings.EqualFold(fmt.Sprint(a), fmt.Sprint(b))
}

func idOf(row domain.Row) string {
	if v, ok := row["id"]; ok && v != nil {
		return fmt.Sprint(v)
	}
	return ""
}

func cloneRow(row domain.Row) domain.Row {
	out := make(domain.Row, len(row))
	for k, v := range row {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch x := v.(type) {
	case []string:
		return slices.Clone(x)
	case []any:
		return slices.Clone(x)
	case map[string]any:
		return maps.Clone(x)
	case uuid.UUID:
		return x.String()
	}
	return v
}

func unknownTable(t domain.Table) error {
	return domain.NewGatewayError(domain.GatewayCodeUnknownTable, fmt.Sprintf("unknown table %q", t), nil)
}
