package progress

import (
	"slices"
	"sync/atomic"
	"time"

	"github.com/heartmarshall/lingua-backend/internal/domain"
)

// Snapshot is an immutable view of the aggregator state.
type Snapshot struct {
	State     State
	Identity  *domain.Identity
	Areas     []domain.Area
	Levels    []domain.Level
	Lessons   []domain.Lesson
	Questions []domain.Question
	Slices    map[domain.Table]SliceStatus
	// Stale is set when the last load left at least one slice failed.
	Stale bool

	XP               int
	Level            int
	LevelNumber      int
	XPToNextLevel    int
	CompletedLessons []string
	LoadedAt         time.Time
}

// Snapshot returns the current state.
func (a *Aggregator) Snapshot() Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.snapshotLocked()
}

func (a *Aggregator) snapshotLocked() Snapshot {
	var identity *domain.Identity
	if a.identity != nil {
		id := *a.identity
		identity = &id
	}
	status := make(map[domain.Table]SliceStatus, len(a.slices))
	for t, s := range a.slices {
		status[t] = s
	}
	return Snapshot{
		State:            a.state,
		Identity:         identity,
		Areas:            a.areas,
		Levels:           a.levels,
		Lessons:          a.lessons,
		Questions:        a.questions,
		Slices:           status,
		Stale:            a.stale,
		XP:               a.progress.XP,
		Level:            a.progress.Level,
		LevelNumber:      a.progress.LevelNumber(),
		XPToNextLevel:    a.progress.XPToNextLevel(),
		CompletedLessons: a.progress.CompletedIDs(),
		LoadedAt:         a.loadedAt,
	}
}

// State returns the lifecycle state.
func (a *Aggregator) State() State {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state
}

// Identity returns the resolved session identity, if any.
func (a *Aggregator) Identity() (domain.Identity, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.identity == nil {
		return domain.Identity{}, false
	}
	return *a.identity, true
}

// Progress returns a copy of the progress summary.
func (a *Aggregator) Progress() domain.Progress {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.progress.Clone()
}

// UnlockedLevels returns the levels whose order does not exceed the
// current level number.
func (a *Aggregator) UnlockedLevels() []domain.Level {
	a.mu.RLock()
	defer a.mu.RUnlock()
	n := a.progress.LevelNumber()
	out := make([]domain.Level, 0, len(a.levels))
	for _, l := range a.levels {
		if domain.IsUnlocked(l.Order, n) {
			out = append(out, l)
		}
	}
	return out
}

// LessonByID looks up a lesson. The boolean is false when it is unknown.
func (a *Aggregator) LessonByID(id string) (domain.Lesson, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	i := slices.IndexFunc(a.lessons, func(l domain.Lesson) bool { return l.ID == id })
	if i < 0 {
		return domain.Lesson{}, false
	}
	return a.lessons[i], true
}

// LessonsForLevel returns the lessons grouped under a level. levelID may be
// a stored level id or an area-level composite.
func (a *Aggregator) LessonsForLevel(levelID string) []domain.Lesson {
	a.mu.RLock()
	defer a.mu.RUnlock()

	target := levelID
	if i := slices.IndexFunc(a.levels, func(l domain.Level) bool { return l.ID == levelID }); i >= 0 {
		target = domain.LevelIDFor(a.levels[i].AreaID, a.levels[i].Order)
	}

	var out []domain.Lesson
	for _, l := range a.lessons {
		if l.LevelID == target {
			out = append(out, l)
		}
	}
	return out
}

// QuestionsForLesson returns the questions of a lesson in order.
func (a *Aggregator) QuestionsForLesson(lessonID string) []domain.Question {
	a.mu.RLock()
	defer a.mu.RUnlock()
	var out []domain.Question
	for _, q := range a.questions {
		if q.LessonID == lessonID {
			out = append(out, q)
		}
	}
	return out
}

func (a *Aggregator) questionByID(id string) (domain.Question, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	i := slices.IndexFunc(a.questions, func(q domain.Question) bool { return q.ID == id })
	if i < 0 {
		return domain.Question{}, false
	}
	return a.questions[i], true
}

// CheckAnswer grades answer against a known question.
// found is false when the question is not in the catalog.
func (a *Aggregator) CheckAnswer(questionID, answer string) (correct, found bool) {
	q, ok := a.questionByID(questionID)
	if !ok {
		return false, false
	}
	return q.Check(answer), true
}

type observer struct {
	fn     func(Snapshot)
	active atomic.Bool
}

// Observe registers fn to receive a snapshot after every state change.
// After the returned cancel func runs, fn is never invoked again, even for
// a notification already in flight.
func (a *Aggregator) Observe(fn func(Snapshot)) (cancel func()) {
	o := &observer{fn: fn}
	o.active.Store(true)

	a.observersMu.Lock()
	id := a.nextObserver
	a.nextObserver++
	a.observers[id] = o
	a.observersMu.Unlock()

	return func() {
		o.active.Store(false)
		a.observersMu.Lock()
		delete(a.observers, id)
		a.observersMu.Unlock()
	}
}

func (a *Aggregator) notify() {
	a.observersMu.Lock()
	if len(a.observers) == 0 {
		a.observersMu.Unlock()
		return
	}
	list := make([]*observer, 0, len(a.observers))
	for _, o := range a.observers {
		list = append(list, o)
	}
	a.observersMu.Unlock()

	snap := a.Snapshot()
	for _, o := range list {
		if o.active.Load() {
			o.fn(snap)
		}
	}
}

// update runs fn under the write lock and then notifies observers.
func (a *Aggregator) update(fn func()) {
	a.mu.Lock()
	fn()
	a.mu.Unlock()
	a.notify()
}
