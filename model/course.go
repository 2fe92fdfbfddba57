// model/course.go
package model

import (
	"encoding/json"
	"strings"
	"time"
)

// Course is the top-level learning unit owned by one user. The full
// course list of an owner is persisted as a single JSON document
// (CourseDocument); courses are never stored row-per-course.
type Course struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	Modules   []Module       `json:"modules"`
	Files     []UploadedFile `json:"files"`
	CreatedAt string         `json:"createdAt"`
}

// Module is the unit of outline generation. Title doubles as the
// dedup key within a course.
type Module struct {
	Title      string      `json:"title"`
	Summary    string      `json:"summary"`
	Subtopics  []string    `json:"subtopics"`
	SubModules []SubModule `json:"subModules"`
	Completed  bool        `json:"completed"`
	IsNew      bool        `json:"isNew,omitempty"`
	AddedAt    string      `json:"addedAt,omitempty"`
}

// SubModule is the smallest trackable learning unit. Slides and Quiz
// are generated-content caches: nil means not yet generated, non-nil
// means generated and durable.
type SubModule struct {
	Title       string        `json:"title"`
	Completed   bool          `json:"completed"`
	Slides      []LessonPhase `json:"slides,omitempty"`
	Quiz        *Quiz         `json:"quiz,omitempty"`
	ChatHistory []ChatMessage `json:"chatHistory,omitempty"`
	IsNew       bool          `json:"isNew,omitempty"`
	AddedAt     string        `json:"addedAt,omitempty"`
}

type UploadedFile struct {
	Name       string `json:"name"`
	Size       int64  `json:"size"`
	UploadedAt string `json:"uploadedAt"`
}

// LessonPhase and Quiz are opaque payloads from the generation
// service, stored verbatim once obtained. Field names follow the
// upstream wire format.
type LessonPhase struct {
	PhaseName string       `json:"phase_name"`
	Steps     []LessonStep `json:"steps"`
	Source    string       `json:"source"`
	Images    []string     `json:"images,omitempty"`
}

type LessonStep struct {
	Narration string `json:"narration"`
	Board     string `json:"board"`
}

type Quiz struct {
	TopicTitle string         `json:"topic_title"`
	Flashcards []QuizQuestion `json:"flashcards"`
}

// QuizQuestion.Answer is a single letter "A".."D" indexing Options.
type QuizQuestion struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
	Answer   string   `json:"answer"`
}

type ChatMessage struct {
	ID      string `json:"id"`
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CourseDocument is the persistence row: the whole course list of one
// owner as a single JSON document, replaced atomically on every save.
type CourseDocument struct {
	UID       string          `json:"uid" gorm:"primaryKey"`
	Courses   json.RawMessage `json:"courses" gorm:"type:text"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// NormalizeTitle produces the comparison key used for module/file
// dedup. Stored titles keep their original spelling; only the key is
// trimmed and case-folded.
func NormalizeTitle(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}

// ModuleTitleSet returns the normalized titles of existing modules.
func (c *Course) ModuleTitleSet() map[string]struct{} {
	set := make(map[string]struct{}, len(c.Modules))
	for _, m := range c.Modules {
		set[NormalizeTitle(m.Title)] = struct{}{}
	}
	return set
}

// FileNameSet returns the normalized names of existing file records.
func (c *Course) FileNameSet() map[string]struct{} {
	set := make(map[string]struct{}, len(c.Files))
	for _, f := range c.Files {
		set[NormalizeTitle(f.Name)] = struct{}{}
	}
	return set
}

// RecomputeCompleted folds submodule completion into the module flag
// and returns the new value.
func (m *Module) RecomputeCompleted() bool {
	completed := true
	for _, s := range m.SubModules {
		if !s.Completed {
			completed = false
			break
		}
	}
	m.Completed = completed
	return completed
}

// RecomputeSeen clears the module's isNew flag once every submodule
// has been visited. Same fold shape as completion but over a
// different field; visiting content does not imply completing it.
func (m *Module) RecomputeSeen() {
	for _, s := range m.SubModules {
		if s.IsNew {
			return
		}
	}
	m.IsNew = false
}

// Completed reports course-level completion, derived on read. A
// course with no modules is never complete.
func (c *Course) Completed() bool {
	if len(c.Modules) == 0 {
		return false
	}
	for _, m := range c.Modules {
		if !m.Completed {
			return false
		}
	}
	return true
}

// Progress returns the percentage of completed submodules. Empty
// courses report 0, not a vacuous 100.
func (c *Course) Progress() float64 {
	total := 0
	completed := 0
	for _, m := range c.Modules {
		for _, s := range m.SubModules {
			total++
			if s.Completed {
				completed++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return float64(completed) / float64(total) * 100
}
