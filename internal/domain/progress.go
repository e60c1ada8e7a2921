package domain

import (
	"math"
	"slices"
)

// XPPerLevel is the amount of XP that separates two consecutive levels.
const XPPerLevel = 500

// MaxXP is the largest XP total a profile can hold (users.total_xp is a
// 32-bit integer column).
const MaxXP = math.MaxInt32

// Progress XP awards.
const (
	DefaultPassThreshold = 60
	DefaultAnswerXP      = 10
)

// LevelForXP derives the level number from XP: floor(xp/500) + 1.
// Negative XP is treated as zero.
func LevelForXP(xp int) int {
	if xp < 0 {
		xp = 0
	}
	return xp/XPPerLevel + 1
}

// XPToNextLevel returns the XP missing to reach the next level.
// Landing exactly on a multiple of XPPerLevel needs a full level again.
func XPToNextLevel(xp int) int {
	if xp < 0 {
		xp = 0
	}
	return XPPerLevel - xp%XPPerLevel
}

// Progress is the derived per-user progress summary.
type Progress struct {
	XP int
	// Level is the displayed level. The remote current_level wins when
	// present; local XP changes reset it to the derived value.
	Level            int
	CompletedLessons map[string]struct{}
}

// NewProgress builds a Progress from authoritative XP and an optional remote level.
func NewProgress(xp int, remoteLevel int) Progress {
	xp = min(max(xp, 0), MaxXP)
	level := remoteLevel
	if level <= 0 {
		level = LevelForXP(xp)
	}
	return Progress{
		XP:               xp,
		Level:            level,
		CompletedLessons: make(map[string]struct{}),
	}
}

// LevelNumber is the level derived from XP. Unlock gating uses this value.
func (p Progress) LevelNumber() int { return LevelForXP(p.XP) }

// XPToNextLevel is the XP missing to reach the next derived level.
func (p Progress) XPToNextLevel() int { return XPToNextLevel(p.XP) }

// IsCompleted reports whether lessonID is in the completed set.
func (p Progress) IsCompleted(lessonID string) bool {
	_, ok := p.CompletedLessons[lessonID]
	return ok
}

// WithXP returns a copy with XP set to max(0, xp+delta), saturating at MaxXP,
// and the displayed level re-derived.
func (p Progress) WithXP(delta int) Progress {
	xp := AddXP(p.XP, delta)
	out := p.Clone()
	out.XP = xp
	out.Level = LevelForXP(xp)
	return out
}

// AddXP returns xp+delta clamped to [0, MaxXP]. It never overflows.
func AddXP(xp, delta int) int {
	xp = min(max(xp, 0), MaxXP)
	switch {
	case delta > 0 && delta > MaxXP-xp:
		return MaxXP
	case delta < 0 && delta < -xp:
		return 0
	}
	return xp + delta
}

// CompletedIDs returns the completed lesson ids sorted ascending.
func (p Progress) CompletedIDs() []string {
	ids := make([]string, 0, len(p.CompletedLessons))
	for id := range p.CompletedLessons {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Clone returns a deep copy.
func (p Progress) Clone() Progress {
	out := p
	out.CompletedLessons = make(map[string]struct{}, len(p.CompletedLessons))
	for id := range p.CompletedLessons {
		out.CompletedLessons[id] = struct{}{}
	}
	return out
}

// WithCompleted returns a copy with lessonID added to the completed set.
func (p Progress) WithCompleted(lessonID string) Progress {
	out := p.Clone()
	out.CompletedLessons[lessonID] = struct{}{}
	return out
}

// IsUnlocked applies the unlock gate: a level is open once its order does
// not exceed the current level number.
func IsUnlocked(order, levelNumber int) bool {
	return order <= levelNumber
}
