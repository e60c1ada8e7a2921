package progress

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/heartmarshall/lingua-backend/internal/domain"
	"github.com/heartmarshall/lingua-backend/internal/normalize"
)

// AddXP applies amount (negative values correct downwards, XP never drops
// below zero) and returns the new total. The change is applied locally
// first; the profile write that follows is best effort and a failure is
// only logged. The next reload reconciles.
func (a *Aggregator) AddXP(ctx context.Context, amount int) int {
	var (
		p      domain.Progress
		userID uuid.UUID
		signed bool
	)
	a.update(func() {
		a.progress = a.progress.WithXP(amount)
		a.levels = normalize.Relock(a.levels, a.progress.LevelNumber())
		p = a.progress
		if a.identity != nil {
			userID, signed = a.identity.UserID, true
		}
	})

	if signed {
		a.writeProfile(ctx, userID, p)
	}
	return p.XP
}

// AdjustXP is the manual correction path exposed to clients. Only admins may
// use it and the amount is bounded by MaxXPAdjustment. Awards earned by
// answering and completing lessons go through AddXP directly.
func (a *Aggregator) AdjustXP(ctx context.Context, input AdjustXPInput) (int, error) {
	if err := a.requireAdmin(); err != nil {
		return 0, err
	}
	if err := input.Validate(); err != nil {
		return 0, err
	}
	xp := a.AddXP(ctx, input.Amount)
	a.log.InfoContext(ctx, "xp adjusted",
		slog.Int("amount", input.Amount),
		slog.Int("xp", xp),
	)
	return xp, nil
}

func (a *Aggregator) writeProfile(ctx context.Context, userID uuid.UUID, p domain.Progress) {
	_, err := a.gw.Update(context.WithoutCancel(ctx), domain.TableUsers, userID.String(), domain.Row{
		"total_xp":      p.XP,
		"current_level": p.Level,
		"updated_at":    a.clock().UTC(),
	})
	if err != nil {
		a.log.WarnContext(ctx, "xp write failed, keeping local value",
			slog.String("table", domain.TableUsers.String()),
			slog.Int("xp", p.XP),
			slog.String("error", err.Error()),
		)
	}
}
