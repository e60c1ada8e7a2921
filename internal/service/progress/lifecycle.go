package progress

import (
	"context"
	"errors"
	"log/slog"

	"github.com/heartmarshall/lingua-backend/internal/domain"
)

// ErrClosed is returned by Start after Close.
var ErrClosed = errors.New("progress: aggregator closed")

// Start subscribes to catalog changes and runs the first full load.
// The subscription is created exactly once per Aggregator and lives until
// Close, independent of how many reloads run. Later calls return nil.
//
// Reloads triggered by change notifications run with ctx's values but
// without its cancellation.
func (a *Aggregator) Start(ctx context.Context) error {
	var (
		err     error
		started bool
	)
	a.startOnce.Do(func() {
		started = true
		err = a.start(ctx)
	})
	if !started && a.isClosed() {
		return ErrClosed
	}
	return err
}

func (a *Aggregator) start(ctx context.Context) error {
	a.sessionCtx = context.WithoutCancel(ctx)

	sub, err := a.gw.Subscribe(a.sessionCtx, domain.CatalogTables, a.onChange)
	if err != nil {
		a.log.WarnContext(ctx, "change feed unavailable, catalog will refresh on reload only",
			slog.String("error", err.Error()),
		)
	}
	a.mu.Lock()
	a.sub = sub
	a.mu.Unlock()

	go a.reloadLoop()

	return a.LoadUserData(a.sessionCtx)
}

func (a *Aggregator) onChange(table domain.Table) {
	if !table.IsCatalog() {
		return
	}
	a.log.Debug("catalog change", slog.String("table", table.String()))
	a.RequestReload()
}

// RequestReload schedules a background full reload. Requests that arrive
// while one is pending are coalesced.
func (a *Aggregator) RequestReload() {
	select {
	case a.reloadCh <- struct{}{}:
	default:
	}
}

func (a *Aggregator) reloadLoop() {
	for {
		select {
		case <-a.done:
			return
		case <-a.reloadCh:
			if err := a.LoadUserData(a.sessionCtx); err != nil {
				a.log.Warn("background reload failed", slog.String("error", err.Error()))
			}
		}
	}
}

// Close tears the session down: it unsubscribes from the change feed,
// stops background reloads, drops all state, and detaches observers.
// Only the first call has an effect.
func (a *Aggregator) Close() error {
	var err error
	a.closeOnce.Do(func() {
		// Wait for an in-flight Start and prevent any later one.
		a.startOnce.Do(func() {})

		a.mu.Lock()
		a.closed = true
		a.gen++
		sub := a.sub
		a.sub = nil
		a.resetLocked()
		a.mu.Unlock()

		close(a.done)

		if sub != nil {
			err = sub.Close()
		}
		a.notify()

		a.observersMu.Lock()
		clear(a.observers)
		a.observersMu.Unlock()
	})
	return err
}

// Done is closed by Close.
func (a *Aggregator) Done() <-chan struct{} {
	return a.done
}

func (a *Aggregator) isClosed() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.closed
}

// resetLocked returns the session state to Unauthenticated. Caller holds mu.
func (a *Aggregator) resetLocked() {
	a.state = StateUnauthenticated
	a.identity = nil
	a.areas = nil
	a.levels = nil
	a.lessons = nil
	a.questions = nil
	a.progress = domain.NewProgress(0, 0)
	a.slices = make(map[domain.Table]SliceStatus, len(domain.CatalogTables))
	a.stale = false
}
