package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/heartmarshall/lingua-backend/internal/domain"
	"github.com/heartmarshall/lingua-backend/pkg/ctxutil"
)

var (
	psql     = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	columnRe = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)
)

// Querier is the part of a connection the gateway uses. *pgxpool.Pool, pgx.Tx
// and pgxmock pools satisfy it.
type Querier interface {
	pgxscan.Querier
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Gateway implements the remote data contract of the progress core on top
// of PostgreSQL. Sessions are taken from the request context; change
// notifications come from an optional ChangeFeed.
type Gateway struct {
	db   Querier
	feed *ChangeFeed
	log  *slog.Logger
}

// NewGateway creates a Gateway. feed may be nil, in which case Subscribe
// reports the change feed as unavailable.
func NewGateway(log *slog.Logger, db Querier, feed *ChangeFeed) *Gateway {
	return &Gateway{
		db:   db,
		feed: feed,
		log:  log.With("adapter", "postgres"),
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

type userRow struct {
	ID    uuid.UUID `db:"id"`
	Email *string   `db:"email"`
	Role  *string   `db:"role"`
}

// CurrentUser returns the signed-in user. The users row is created on first
// sight with the role claim of the session; afterwards the stored role wins.
func (g *Gateway) CurrentUser(ctx context.Context) (*domain.AuthUser, error) {
	userID, ok := ctxutil.UserIDFromCtx(ctx)
	if !ok {
		return nil, nil
	}

	claim := string(domain.RoleStudent)
	if ctxutil.IsAdminCtx(ctx) {
		claim = string(domain.RoleAdmin)
	}

	ensure := psql.Insert(string(domain.TableUsers)).
		Columns("id", "role").
		Values(userID, claim).
		Suffix("ON CONFLICT (id) DO NOTHING")

	sql, args, err := ensure.ToSql()
	if err != nil {
		return nil, domain.NewGatewayError(domain.GatewayCodeInternal, "build ensure user", err)
	}
	if _, err := g.db.Exec(ctx, sql, args...); err != nil {
		return nil, mapError(err, "ensure", domain.TableUsers)
	}

	sql, args, err = psql.Select("id", "email", "role").
		From(string(domain.TableUsers)).
		Where(sq.Eq{"id": userID}).
		ToSql()
	if err != nil {
		return nil, domain.NewGatewayError(domain.GatewayCodeInternal, "build select user", err)
	}

	var row userRow
	if err := pgxscan.Get(ctx, g.db, &row, sql, args...); err != nil {
		return nil, mapError(err, "select", domain.TableUsers)
	}

	user := &domain.AuthUser{ID: row.ID, RoleHint: claim}
	if row.Email != nil {
		user.Email = *row.Email
	}
	if row.Role != nil && *row.Role != "" {
		user.RoleHint = *row.Role
	}
	return user, nil
}

// Query returns the rows of table matching every column of filter.
// An empty filter returns the whole table.
func (g *Gateway) Query(ctx context.Context, table domain.Table, filter domain.Filter) ([]domain.Row, error) {
	if err := checkTable(table); err != nil {
		return nil, err
	}
	if err := checkColumns(mapKeys(filter)); err != nil {
		return nil, err
	}

	builder := psql.Select("*").From(string(table))
	if len(filter) > 0 {
		builder = builder.Where(sq.Eq(filter))
	}

	sql, args, err := builder.ToSql()
	if err != nil {
		return nil, domain.NewGatewayError(domain.GatewayCodeInternal, "build query", err)
	}

	var rows []map[string]any
	if err := pgxscan.Select(ctx, g.db, &rows, sql, args...); err != nil {
		return nil, mapError(err, "query", table)
	}

	out := make([]domain.Row, len(rows))
	for i, r := range rows {
		out[i] = domain.Row(r)
	}
	g.log.DebugContext(ctx, "query", slog.String("table", table.String()), slog.Int("rows", len(out)))
	return out, nil
}

// Insert stores row and returns the stored record including generated columns.
func (g *Gateway) Insert(ctx context.Context, table domain.Table, row domain.Row) (domain.Row, error) {
	if err := checkTable(table); err != nil {
		return nil, err
	}
	if len(row) == 0 {
		return nil, domain.NewGatewayError(domain.GatewayCodeInvalid, "insert "+table.String()+": empty row", nil)
	}
	if err := checkColumns(mapKeys(row)); err != nil {
		return nil, err
	}

	sql, args, err := psql.Insert(string(table)).
		SetMap(map[string]any(row)).
		Suffix("RETURNING *").
		ToSql()
	if err != nil {
		return nil, domain.NewGatewayError(domain.GatewayCodeInternal, "build insert", err)
	}

	return g.getRow(ctx, "insert", table, sql, args)
}

// Update applies patch to the row with the given id and returns the result.
func (g *Gateway) Update(ctx context.Context, table domain.Table, id string, patch domain.Row) (domain.Row, error) {
	if err := checkTable(table); err != nil {
		return nil, err
	}
	if strings.TrimSpace(id) == "" {
		return nil, domain.NewGatewayError(domain.GatewayCodeInvalid, "update "+table.String()+": id is required", nil)
	}
	if len(patch) == 0 {
		return nil, domain.NewGatewayError(domain.GatewayCodeInvalid, "update "+table.String()+": empty patch", nil)
	}
	if err := checkColumns(mapKeys(patch)); err != nil {
		return nil, err
	}

	sql, args, err := psql.Update(string(table)).
		SetMap(map[string]any(patch)).
		Where(sq.Eq{"id": id}).
		Suffix("RETURNING *").
		ToSql()
	if err != nil {
		return nil, domain.NewGatewayError(domain.GatewayCodeInternal, "build update", err)
	}

	return g.getRow(ctx, "update", table, sql, args)
}

// Delete removes the row with the given id. A missing row is not_found.
func (g *Gateway) Delete(ctx context.Context, table domain.Table, id string) error {
	if err := checkTable(table); err != nil {
		return err
	}
	if strings.TrimSpace(id) == "" {
		return domain.NewGatewayError(domain.GatewayCodeInvalid, "delete "+table.String()+": id is required", nil)
	}

	sql, args, err := psql.Delete(string(table)).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return domain.NewGatewayError(domain.GatewayCodeInternal, "build delete", err)
	}

	tag, err := g.db.Exec(ctx, sql, args...)
	if err != nil {
		return mapError(err, "delete", table)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewGatewayError(domain.GatewayCodeNotFound, fmt.Sprintf("delete %s %s", table, id), nil)
	}
	return nil
}

// Subscribe registers onChange for notifications on the given tables.
func (g *Gateway) Subscribe(_ context.Context, tables []domain.Table, onChange func(domain.Table)) (domain.Subscription, error) {
	if g.feed == nil {
		return nil, domain.NewGatewayError(domain.GatewayCodeUnavailable, "change feed is not running", nil)
	}
	return g.feed.Subscribe(tables, onChange)
}

func (g *Gateway) getRow(ctx context.Context, op string, table domain.Table, sql string, args []any) (domain.Row, error) {
	var row map[string]any
	if err := pgxscan.Get(ctx, g.db, &row, sql, args...); err != nil {
		return nil, mapError(err, op, table)
	}
	return domain.Row(row), nil
}

func checkTable(table domain.Table) error {
	if !table.IsValid() {
		return domain.NewGatewayError(domain.GatewayCodeUnknownTable, fmt.Sprintf("unknown table %q", table), nil)
	}
	return nil
}

func checkColumns(cols []string) error {
	for _, c := range cols {
		if !columnRe.MatchString(c) {
			return domain.NewGatewayError(domain.GatewayCodeInvalid, fmt.Sprintf("invalid column %q", c), nil)
		}
	}
	return nil
}

func mapKeys[M ~map[string]any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}
