package progress

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/heartmarshall/lingua-backend/internal/domain"
)

type gateway interface {
	Session(ctx context.Context) (*domain.Session, error)
	CurrentUser(ctx context.Context) (*domain.AuthUser, error)
	Query(ctx context.Context, table domain.Table, filter domain.Filter) ([]domain.Row, error)
	Insert(ctx context.Context, table domain.Table, row domain.Row) (domain.Row, error)
	Update(ctx context.Context, table domain.Table, id string, patch domain.Row) (domain.Row, error)
	Delete(ctx context.Context, table domain.Table, id string) error
	Subscribe(ctx context.Context, tables []domain.Table, onChange func(domain.Table)) (domain.Subscription, error)
}

// State is the coarse lifecycle state of an Aggregator.
type State string

const (
	StateUnauthenticated State = "unauthenticated"
	StateLoading         State = "loading"
	StateReady           State = "ready"
)

func (s State) String() string { return string(s) }

// Options tune XP awards. Zero values fall back to defaults.
type Options struct {
	PassThreshold int
	AnswerXP      int
	AwardPolicy   domain.AwardPolicy
}

func (o Options) withDefaults() Options {
	if o.PassThreshold <= 0 {
		o.PassThreshold = domain.DefaultPassThreshold
	}
	if o.AnswerXP <= 0 {
		o.AnswerXP = domain.DefaultAnswerXP
	}
	if !o.AwardPolicy.IsValid() {
		o.AwardPolicy = domain.AwardEveryPass
	}
	return o
}

// DefaultOptions returns the production award settings.
func DefaultOptions() Options {
	return Options{
		PassThreshold: domain.DefaultPassThreshold,
		AnswerXP:      domain.DefaultAnswerXP,
		AwardPolicy:   domain.AwardEveryPass,
	}
}

// SliceStatus tracks the load of one catalog table.
type SliceStatus struct {
	Loading bool
	Failed  bool
	Count   int
}

// Aggregator owns the in-memory progress state of one signed-in session.
//
// All fields below mu are guarded by it. The lock is never held across a
// gateway call. Catalog slices are replaced, never mutated in place, so
// snapshots may share them.
type Aggregator struct {
	gw    gateway
	log   *slog.Logger
	opts  Options
	clock func() time.Time

	mu        sync.RWMutex
	state     State
	identity  *domain.Identity
	areas     []domain.Area
	levels    []domain.Level
	lessons   []domain.Lesson
	questions []domain.Question
	progress  domain.Progress
	slices    map[domain.Table]SliceStatus
	stale     bool
	loadedAt  time.Time
	gen       uint64
	closed    bool

	observersMu  sync.Mutex
	observers    map[uint64]*observer
	nextObserver uint64

	startOnce  sync.Once
	closeOnce  sync.Once
	sessionCtx context.Context
	sub        domain.Subscription
	reloadCh   chan struct{}
	done       chan struct{}
	lastUsed   atomic.Int64
}

// NewAggregator creates an Aggregator in the Unauthenticated state.
// Start must be called to subscribe to changes and run the first load.
func NewAggregator(log *slog.Logger, gw gateway, opts Options) *Aggregator {
	a := &Aggregator{
		gw:        gw,
		log:       log.With("service", "progress"),
		opts:      opts.withDefaults(),
		clock:     time.Now,
		state:     StateUnauthenticated,
		progress:  domain.NewProgress(0, 0),
		slices:    make(map[domain.Table]SliceStatus, len(domain.CatalogTables)),
		observers: make(map[uint64]*observer),
		reloadCh:  make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
	a.Touch()
	return a
}

// Touch records activity for idle-session sweeping.
func (a *Aggregator) Touch() {
	a.lastUsed.Store(a.clock().UnixNano())
}

// LastUsed returns the time of the last Touch.
func (a *Aggregator) LastUsed() time.Time {
	return time.Unix(0, a.lastUsed.Load())
}
