package postgres

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v2"

	"github.com/heartmarshall/lingua-backend/internal/domain"
	"github.com/heartmarshall/lingua-backend/pkg/ctxutil"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newMockGateway(t *testing.T) (*Gateway, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	t.Cleanup(mock.Close)
	return NewGateway(discardLogger(), mock, nil), mock
}

func expectationsWereMet(t *testing.T, mock pgxmock.PgxPoolIface) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func strPtr(s string) *string { return &s }

func TestGateway_Session(t *testing.T) {
	t.Parallel()

	gw, mock := newMockGateway(t)

	sess, err := gw.Session(context.Background())
	if err != nil || sess != nil {
		t.Fatalf("Session(anonymous) = %v, %v; want nil, nil", sess, err)
	}

	userID := uuid.New()
	sess, err = gw.Session(ctxutil.WithUserID(context.Background(), userID))
	if err != nil {
		t.Fatalf("Session() error = %v", err)
	}
	if sess == nil || sess.UserID != userID {
		t.Errorf("Session() = %+v, want user %s", sess, userID)
	}
	expectationsWereMet(t, mock)
}

func TestGateway_CurrentUser(t *testing.T) {
	t.Parallel()

	userID := uuid.New()

	tests := []struct {
		name      string
		claim     string
		storedRow []any
		wantRole  string
		wantEmail string
	}{
		{
			name:      "stored role wins",
			claim:     "admin",
			storedRow: []any{userID, strPtr("ana@example.com"), strPtr("student")},
			wantRole:  "student",
			wantEmail: "ana@example.com",
		},
		{
			name:      "claim used when role column is empty",
			claim:     "admin",
			storedRow: []any{userID, strPtr("ana@example.com"), strPtr("")},
			wantRole:  "admin",
			wantEmail: "ana@example.com",
		},
		{
			name:      "non admin claim seeds student",
			claim:     "moderator",
			storedRow: []any{userID, (*string)(nil), strPtr("student")},
			wantRole:  "student",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			gw, mock := newMockGateway(t)
			seed := "student"
			if tt.claim == "admin" {
				seed = "admin"
			}
			mock.ExpectExec(`INSERT INTO users \(id,role\) VALUES \(\$1,\$2\) ON CONFLICT \(id\) DO NOTHING`).
				WithArgs(userID, seed).
				WillReturnResult(pgxmock.NewResult("INSERT", 1))
			mock.ExpectQuery(`SELECT id, email, role FROM users WHERE id = \$1`).
				WithArgs(userID).
				WillReturnRows(pgxmock.NewRows([]string{"id", "email", "role"}).AddRow(tt.storedRow...))

			ctx := ctxutil.WithRole(ctxutil.WithUserID(context.Background(), userID), tt.claim)
			user, err := gw.CurrentUser(ctx)
			if err != nil {
				t.Fatalf("CurrentUser() error = %v", err)
			}
			if user.ID != userID {
				t.Errorf("id = %s, want %s", user.ID, userID)
			}
			if user.RoleHint != tt.wantRole {
				t.Errorf("role hint = %q, want %q", user.RoleHint, tt.wantRole)
			}
			if user.Email != tt.wantEmail {
				t.Errorf("email = %q, want %q", user.Email, tt.wantEmail)
			}
			expectationsWereMet(t, mock)
		})
	}
}

func TestGateway_CurrentUser_Anonymous(t *testing.T) {
	t.Parallel()

	gw, mock := newMockGateway(t)
	user, err := gw.CurrentUser(context.Background())
	if err != nil || user != nil {
		t.Fatalf("CurrentUser(anonymous) = %v, %v; want nil, nil", user, err)
	}
	expectationsWereMet(t, mock)
}

func TestGateway_Query(t *testing.T) {
	t.Parallel()

	gw, mock := newMockGateway(t)
	mock.ExpectQuery(`SELECT \* FROM user_progress WHERE lesson_id = \$1 AND user_id = \$2`).
		WithArgs("les-1", "user-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "lesson_id", "is_completed"}).
			AddRow("p-1", "les-1", true))

	rows, err := gw.Query(context.Background(), domain.TableUserProgress, domain.Filter{
		"user_id":   "user-1",
		"lesson_id": "les-1",
	})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("Query() returned %d rows, want 1", len(rows))
	}
	if rows[0]["lesson_id"] != "les-1" || rows[0]["is_completed"] != true {
		t.Errorf("row = %v", rows[0])
	}
	expectationsWereMet(t, mock)
}

func TestGateway_Query_NoFilter(t *testing.T) {
	t.Parallel()

	gw, mock := newMockGateway(t)
	mock.ExpectQuery(`^SELECT \* FROM areas$`).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name"}).
			AddRow("vocabulario", "Vocabulario").
			AddRow("gramatica", "Gramática"))

	rows, err := gw.Query(context.Background(), domain.TableAreas, nil)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(rows) != 2 {
		t.Errorf("Query() returned %d rows, want 2", len(rows))
	}
	expectationsWereMet(t, mock)
}

func TestGateway_Query_Error(t *testing.T) {
	t.Parallel()

	gw, mock := newMockGateway(t)
	mock.ExpectQuery(`SELECT`).WillReturnError(context.DeadlineExceeded)

	_, err := gw.Query(context.Background(), domain.TableLessons, nil)
	if code := gatewayCode(t, err); code != domain.GatewayCodeUnavailable {
		t.Errorf("code = %q, want %q", code, domain.GatewayCodeUnavailable)
	}
	expectationsWereMet(t, mock)
}

func TestGateway_Insert(t *testing.T) {
	t.Parallel()

	gw, mock := newMockGateway(t)
	mock.ExpectQuery(`INSERT INTO lessons \(area,title\) VALUES \(\$1,\$2\) RETURNING \*`).
		WithArgs("vocabulario", "Saludos").
		WillReturnRows(pgxmock.NewRows([]string{"id", "area", "title", "xp_reward"}).
			AddRow("les-9", "vocabulario", "Saludos", int32(50)))

	row, err := gw.Insert(context.Background(), domain.TableLessons, domain.Row{
		"title": "Saludos",
		"area":  "vocabulario",
	})
	if err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if row["id"] != "les-9" {
		t.Errorf("id = %v, want les-9", row["id"])
	}
	if row["xp_reward"] != int32(50) {
		t.Errorf("xp_reward = %v, want default 50", row["xp_reward"])
	}
	expectationsWereMet(t, mock)
}

func TestGateway_Update_NotFound(t *testing.T) {
	t.Parallel()

	gw, mock := newMockGateway(t)
	mock.ExpectQuery(`UPDATE users SET total_xp = \$1 WHERE id = \$2 RETURNING \*`).
		WithArgs(540, "user-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "total_xp"}))

	_, err := gw.Update(context.Background(), domain.TableUsers, "user-1", domain.Row{"total_xp": 540})
	if code := gatewayCode(t, err); code != domain.GatewayCodeNotFound {
		t.Errorf("code = %q, want %q", code, domain.GatewayCodeNotFound)
	}
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("error does not wrap domain.ErrNotFound: %v", err)
	}
	expectationsWereMet(t, mock)
}

func TestGateway_Delete(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		affected int64
		wantCode string
	}{
		{name: "deleted", affected: 1},
		{name: "missing row", affected: 0, wantCode: domain.GatewayCodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			gw, mock := newMockGateway(t)
			mock.ExpectExec(`DELETE FROM questions WHERE id = \$1`).
				WithArgs("q-1").
				WillReturnResult(pgxmock.NewResult("DELETE", tt.affected))

			err := gw.Delete(context.Background(), domain.TableQuestions, "q-1")
			if tt.wantCode == "" {
				if err != nil {
					t.Fatalf("Delete() error = %v", err)
				}
			} else if code := gatewayCode(t, err); code != tt.wantCode {
				t.Errorf("code = %q, want %q", code, tt.wantCode)
			}
			expectationsWereMet(t, mock)
		})
	}
}

func TestGateway_RejectsBeforeQuerying(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	tests := []struct {
		name     string
		call     func(gw *Gateway) error
		wantCode string
	}{
		{
			name: "unknown table query",
			call: func(gw *Gateway) error {
				_, err := gw.Query(ctx, domain.Table("pg_user"), nil)
				return err
			},
			wantCode: domain.GatewayCodeUnknownTable,
		},
		{
			name: "injected filter column",
			call: func(gw *Gateway) error {
				_, err := gw.Query(ctx, domain.TableLessons, domain.Filter{"id; drop table lessons": 1})
				return err
			},
			wantCode: domain.GatewayCodeInvalid,
		},
		{
			name: "empty insert",
			call: func(gw *Gateway) error {
				_, err := gw.Insert(ctx, domain.TableLevels, domain.Row{})
				return err
			},
			wantCode: domain.GatewayCodeInvalid,
		},
		{
			name: "empty patch",
			call: func(gw *Gateway) error {
				_, err := gw.Update(ctx, domain.TableLessons, "les-1", nil)
				return err
			},
			wantCode: domain.GatewayCodeInvalid,
		},
		{
			name: "missing update id",
			call: func(gw *Gateway) error {
				_, err := gw.Update(ctx, domain.TableLessons, " ", domain.Row{"title": "x"})
				return err
			},
			wantCode: domain.GatewayCodeInvalid,
		},
		{
			name: "unknown table delete",
			call: func(gw *Gateway) error {
				return gw.Delete(ctx, domain.Table("sessions"), "x")
			},
			wantCode: domain.GatewayCodeUnknownTable,
		},
		{
			name: "subscribe without feed",
			call: func(gw *Gateway) error {
				_, err := gw.Subscribe(ctx, domain.CatalogTables, func(domain.Table) {})
				return err
			},
			wantCode: domain.GatewayCodeUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			gw, mock := newMockGateway(t)
			err := tt.call(gw)
			if code := gatewayCode(t, err); code != tt.wantCode {
				t.Errorf("code = %q, want %q", code, tt.wantCode)
			}
			expectationsWereMet(t, mock)
		})
	}
}
