package domain

import "time"

// NoteStatus is the editorial state of a note
type NoteStatus string

const (
	NoteDraft     NoteStatus = "draft"
	NoteReview    NoteStatus = "review"
	NotePublished NoteStatus = "published"
	NoteArchived  NoteStatus = "archived"
)

// Valid reports whether s is a known status
func (s NoteStatus) Valid() bool {
	switch s {
	case NoteDraft, NoteReview, NotePublished, NoteArchived:
		return true
	}
	return false
}

// DefaultNoteTitle is used when a note is saved without a title
const DefaultNoteTitle = "Untitled Note"

// Categories are the note categories offered to the writer
var Categories = []string{"character", "world", "plot", "research", "idea", "other"}

// ValidCategory reports whether c is empty or one of Categories
func ValidCategory(c string) bool {
	if c == "" {
		return true
	}
	for _, k := range Categories {
		if k == c {
			return true
		}
	}
	return false
}

// Note represents a piece of writing
type Note struct {
	ID             string     `json:"id" db:"id"`
	Title          string     `json:"title" db:"title"`
	Content        string     `json:"content" db:"content"`
	Category       string     `json:"category" db:"category"`
	Status         NoteStatus `json:"status" db:"status"`
	ProjectID      *string    `json:"projectId,omitempty" db:"project_id"`
	CharacterCount int        `json:"characterCount" db:"character_count"`
	CreatedAt      time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time  `json:"updatedAt" db:"updated_at"`
}

// Priority of a task
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Valid reports whether p is a known priority
func (p Priority) Valid() bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

// Task represents a to-do item
type Task struct {
	ID          string     `json:"id" db:"id"`
	Title       string     `json:"title" db:"title"`
	Description string     `json:"description" db:"description"`
	Completed   bool       `json:"completed" db:"completed"`
	Priority    Priority   `json:"priority" db:"priority"`
	DueDate     *time.Time `json:"dueDate,omitempty" db:"due_date"`
	ProjectID   *string    `json:"projectId,omitempty" db:"project_id"`
	CreatedAt   time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time  `json:"updatedAt" db:"updated_at"`
}

// Draft is an unsaved note kept by autosave
type Draft struct {
	Title    string     `json:"title"`
	Content  string     `json:"content"`
	Category string     `json:"category"`
	Status   NoteStatus `json:"status"`
}

// NoteFilter narrows ListNotes
type NoteFilter struct {
	Category  string
	Status    NoteStatus
	ProjectID string
	Limit    int
	Offset   int
}

// DefaultProjectName is used when a project is saved without a name
const DefaultProjectName = "Default Project"

// Project groups the notes, tasks and lore of one piece of writing
type Project struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}

// DictionaryEntry is a term the writer has defined for their world
type DictionaryEntry struct {
	ID         string  `json:"id" db:"id"`
	Term       string  `json:"term" db:"term"`
	Definition string  `json:"definition" db:"definition"`
	Category   string  `json:"category" db:"category"`
	ProjectID  *string `json:"projectId,omitempty" db:"project_id"`
}

// PlotPointStatus tracks how far a plot point has been written
type PlotPointStatus string

const (
	PlotPlanned    PlotPointStatus = "planned"
	PlotInProgress PlotPointStatus = "in-progress"
	PlotCompleted  PlotPointStatus = "completed"
)

func (s PlotPointStatus) Valid() bool {
	return s == PlotPlanned || s == PlotInProgress || s == PlotCompleted
}

// PlotPoint is one beat of the story outline. Order is its position
// within the project.
type PlotPoint struct {
	ID          string          `json:"id" db:"id"`
	Title       string          `json:"title" db:"title"`
	Description string          `json:"description" db:"description"`
	Status      PlotPointStatus `json:"status" db:"status"`
	Order       int             `json:"order" db:"position"`
	ProjectID   *string         `json:"projectId,omitempty" db:"project_id"`
}

// WorldElementTypes are the kinds of world-building element offered to
// the writer. Type is free-form; unknown values are kept.
var WorldElementTypes = []string{"character", "location", "item", "concept", "faction", "other"}

// WorldElement is a piece of world-building: a character, place, item...
type WorldElement struct {
	ID          string  `json:"id" db:"id"`
	Name        string  `json:"name" db:"name"`
	Type        string  `json:"type" db:"type"`
	Description string  `json:"description" db:"description"`
	ProjectID   *string `json:"projectId,omitempty" db:"project_id"`
}

// LoreFilter narrows the dictionary, plot point and world element lists.
// Query matches case-insensitively on the entry's name and text.
type LoreFilter struct {
	ProjectID string
	Query     string
}
