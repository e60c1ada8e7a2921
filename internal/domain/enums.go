package domain

// AreaID is the canonical identifier of a top-level skill area.
type AreaID string

const (
	AreaVocabulario AreaID = "vocabulario"
	AreaGramatica   AreaID = "gramatica"
	AreaListening   AreaID = "listening"
)

// AllAreas lists the canonical areas in display order.
var AllAreas = []AreaID{AreaVocabulario, AreaGramatica, AreaListening}

func (a AreaID) String() string { return string(a) }

func (a AreaID) IsValid() bool {
	switch a {
	case AreaVocabulario, AreaGramatica, AreaListening:
		return true
	}
	return false
}

// LessonType is the skill a lesson trains.
type LessonType string

const (
	LessonTypeReading   LessonType = "reading"
	LessonTypeWriting   LessonType = "writing"
	LessonTypeListening LessonType = "listening"
)

func (t LessonType) String() string { return string(t) }

func (t LessonType) IsValid() bool {
	switch t {
	case LessonTypeReading, LessonTypeWriting, LessonTypeListening:
		return true
	}
	return false
}

// Role represents the authorization level of a session.
type Role string

const (
	RoleStudent Role = "student"
	RoleAdmin   Role = "admin"
)

func (r Role) String() string { return string(r) }

func (r Role) IsValid() bool {
	switch r {
	case RoleStudent, RoleAdmin:
		return true
	}
	return false
}

func (r Role) IsAdmin() bool {
	return r == RoleAdmin
}

// Table names a backend table consumed by the progress core.
type Table string

const (
	TableAreas        Table = "areas"
	TableLevels       Table = "levels"
	TableLessons      Table = "lessons"
	TableQuestions    Table = "questions"
	TableUsers        Table = "users"
	TableUserProgress Table = "user_progress"
	TableUserAnswers  Table = "user_answers"
)

// CatalogTables are the tables whose change notifications trigger a reload.
var CatalogTables = []Table{TableAreas, TableLevels, TableLessons, TableQuestions}

func (t Table) String() string { return string(t) }

func (t Table) IsValid() bool {
	switch t {
	case TableAreas, TableLevels, TableLessons, TableQuestions,
		TableUsers, TableUserProgress, TableUserAnswers:
		return true
	}
	return false
}

// IsCatalog reports whether t is one of the catalog tables.
func (t Table) IsCatalog() bool {
	switch t {
	case TableAreas, TableLevels, TableLessons, TableQuestions:
		return true
	}
	return false
}

// AwardPolicy decides whether a repeat pass of a completed lesson awards XP.
type AwardPolicy string

const (
	// AwardEveryPass awards lesson XP on every attempt at or above the pass threshold.
	AwardEveryPass AwardPolicy = "every_pass"
	// AwardFirstPass awards lesson XP only while the lesson is not yet completed.
	AwardFirstPass AwardPolicy = "first_pass"
)

func (p AwardPolicy) String() string { return string(p) }

func (p AwardPolicy) IsValid() bool {
	switch p {
	case AwardEveryPass, AwardFirstPass:
		return true
	}
	return false
}
