package progress

import (
	"context"
	"log/slog"
	"maps"

	"golang.org/x/sync/errgroup"

	"github.com/heartmarshall/lingua-backend/internal/domain"
	"github.com/heartmarshall/lingua-backend/internal/normalize"
)

type catalogRows struct {
	areas, levels, lessons, questions []domain.Row
	failed                            map[domain.Table]bool
}

type loadResult struct {
	identity  domain.Identity
	catalog   catalogRows
	completed map[string]struct{}
	profile   *domain.Profile
	// profileFailed keeps the local XP when the profile read failed.
	profileFailed bool
}

// LoadUserData runs the full reload protocol. It returns domain.ErrUnauthorized
// when there is no session; every other read failure degrades the affected
// slice and is only logged. A load that was superseded by a newer one, or
// finished after Close, is discarded.
func (a *Aggregator) LoadUserData(ctx context.Context) error {
	gen, ok := a.beginLoad()
	if !ok {
		return ErrClosed
	}

	session, err := a.gw.Session(ctx)
	if err != nil {
		a.log.WarnContext(ctx, "resolve session", slog.String("error", err.Error()))
	}
	if err != nil || session == nil {
		a.commit(gen, func() { a.resetLocked() })
		return domain.ErrUnauthorized
	}

	user, err := a.gw.CurrentUser(ctx)
	if err != nil {
		a.log.WarnContext(ctx, "resolve current user, defaulting to student",
			slog.String("error", err.Error()),
		)
		user = nil
	}

	res := loadResult{catalog: a.fetchCatalog(ctx)}
	res.completed = a.fetchCompleted(ctx, session)
	res.profile, res.profileFailed = a.fetchProfile(ctx, session)
	res.identity = domain.ResolveIdentity(*session, user, res.profile)

	a.commit(gen, func() { a.applyLoadLocked(res) })
	return nil
}

func (a *Aggregator) beginLoad() (uint64, bool) {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return 0, false
	}
	a.gen++
	gen := a.gen
	a.state = StateLoading
	status := make(map[domain.Table]SliceStatus, len(domain.CatalogTables))
	for _, t := range domain.CatalogTables {
		s := a.slices[t]
		s.Loading = true
		status[t] = s
	}
	a.slices = status
	a.mu.Unlock()

	a.notify()
	return gen, true
}

// commit applies fn only when gen is still the latest load.
func (a *Aggregator) commit(gen uint64, fn func()) {
	a.mu.Lock()
	if a.closed || gen != a.gen {
		a.mu.Unlock()
		a.log.Debug("discarding superseded load", slog.Uint64("generation", gen))
		return
	}
	fn()
	a.mu.Unlock()
	a.notify()
}

// fetchCatalog reads the four catalog tables concurrently and waits for all
// of them. A failed read leaves that slice empty.
func (a *Aggregator) fetchCatalog(ctx context.Context) catalogRows {
	var (
		g   errgroup.Group
		out = catalogRows{failed: make(map[domain.Table]bool, len(domain.CatalogTables))}
		dst = map[domain.Table]*[]domain.Row{
			domain.TableAreas:     &out.areas,
			domain.TableLevels:    &out.levels,
			domain.TableLessons:   &out.lessons,
			domain.TableQuestions: &out.questions,
		}
		errs = make([]error, len(domain.CatalogTables))
	)

	for i, table := range domain.CatalogTables {
		g.Go(func() error {
			rows, err := a.gw.Query(ctx, table, nil)
			if err != nil {
				errs[i] = err
				return nil
			}
			*dst[table] = rows
			return nil
		})
	}
	_ = g.Wait()

	for i, table := range domain.CatalogTables {
		if errs[i] == nil {
			continue
		}
		out.failed[table] = true
		a.log.WarnContext(ctx, "catalog slice failed to load",
			slog.String("table", table.String()),
			slog.String("error", errs[i].Error()),
		)
	}
	return out
}

func (a *Aggregator) fetchCompleted(ctx context.Context, session *domain.Session) map[string]struct{} {
	rows, err := a.gw.Query(ctx, domain.TableUserProgress, domain.Filter{"user_id": session.UserID.String()})
	if err != nil {
		a.log.WarnContext(ctx, "progress records failed to load",
			slog.String("table", domain.TableUserProgress.String()),
			slog.String("error", err.Error()),
		)
		return nil
	}
	return normalize.CompletedLessons(rows)
}

func (a *Aggregator) fetchProfile(ctx context.Context, session *domain.Session) (*domain.Profile, bool) {
	rows, err := a.gw.Query(ctx, domain.TableUsers, domain.Filter{"id": session.UserID.String()})
	if err != nil {
		a.log.WarnContext(ctx, "profile failed to load",
			slog.String("table", domain.TableUsers.String()),
			slog.String("error", err.Error()),
		)
		return nil, true
	}
	if len(rows) == 0 {
		return nil, false
	}
	return normalize.Profile(rows[0]), false
}

// applyLoadLocked stores a finished load. Caller holds mu.
func (a *Aggregator) applyLoadLocked(res loadResult) {
	identity := res.identity
	sameUser := a.identity != nil && a.identity.UserID == identity.UserID

	// A profile read failure keeps the local XP of the same session.
	progress := domain.NewProgress(0, 0)
	switch {
	case res.profile != nil:
		progress = domain.NewProgress(res.profile.TotalXP, res.profile.CurrentLevel)
	case res.profileFailed && sameUser:
		progress = a.progress.Clone()
		progress.CompletedLessons = make(map[string]struct{})
	}

	// Completed lessons never leave the set within a session.
	if sameUser {
		maps.Copy(progress.CompletedLessons, a.progress.CompletedLessons)
	}
	maps.Copy(progress.CompletedLessons, res.completed)

	cat := res.catalog
	a.areas = normalize.Areas(cat.areas)
	a.levels = normalize.Levels(cat.levels, progress.LevelNumber())
	a.lessons = normalize.Lessons(cat.lessons)
	a.questions = normalize.Questions(cat.questions)

	a.slices = map[domain.Table]SliceStatus{
		domain.TableAreas:     {Failed: cat.failed[domain.TableAreas], Count: len(a.areas)},
		domain.TableLevels:    {Failed: cat.failed[domain.TableLevels], Count: len(a.levels)},
		domain.TableLessons:   {Failed: cat.failed[domain.TableLessons], Count: len(a.lessons)},
		domain.TableQuestions: {Failed: cat.failed[domain.TableQuestions], Count: len(a.questions)},
	}
	a.stale = len(cat.failed) > 0 || res.profileFailed

	a.identity = &identity
	a.progress = progress
	a.state = StateReady
	a.loadedAt = a.clock()

	if n := countMiscategorized(a.questions); n > 0 {
		a.log.Warn("questions with options but no matching answer are graded as free text",
			slog.Int("count", n),
		)
	}
}

func countMiscategorized(qs []domain.Question) int {
	n := 0
	for _, q := range qs {
		if q.IsMiscategorized() {
			n++
		}
	}
	return n
}
