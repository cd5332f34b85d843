// Package meeting holds the meeting-minutes domain: meetings broken into
// ordered sections, each collecting note items, plus follow-up tasks and the
// templates meetings are created from. Reads go through a dependency-aware
// cache in front of a Repository; writes invalidate downstream entries.
package meeting

import (
	"errors"
	"time"
)

var (
	ErrMeetingNotFound  = errors.New("meeting: meeting not found")
	ErrSectionNotFound  = errors.New("meeting: section not found")
	ErrItemNotFound     = errors.New("meeting: item not found")
	ErrTemplateNotFound = errors.New("meeting: template not found")
	ErrInvalidInput     = errors.New("meeting: invalid input")
	ErrNotRecording     = errors.New("meeting: recording not in progress")
	ErrAlreadyRecording = errors.New("meeting: recording already in progress")
)

type Status string

const (
	StatusScheduled  Status = "scheduled"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

type SectionStatus string

const (
	SectionPending   SectionStatus = "pending"
	SectionActive    SectionStatus = "active"
	SectionCompleted SectionStatus = "completed"
)

// Recording tracks the audio capture state of a meeting.
type Recording struct {
	Active    bool       `json:"active"`
	StartedAt *time.Time `json:"started_at,omitempty"`
	StoppedAt *time.Time `json:"stopped_at,omitempty"`
}

type Meeting struct {
	ID         string    `json:"id" yaml:"id"`
	Title      string    `json:"title" yaml:"title"`
	TemplateID string    `json:"template_id,omitempty" yaml:"template_id"`
	Status     Status    `json:"status" yaml:"status"`
	Recording  Recording `json:"recording" yaml:"-"`
	CreatedAt  time.Time `json:"created_at" yaml:"-"`
	UpdatedAt  time.Time `json:"updated_at" yaml:"-"`
}

type Section struct {
	ID        string        `json:"id" yaml:"id"`
	MeetingID string        `json:"meeting_id" yaml:"meeting_id"`
	Title     string        `json:"title" yaml:"title"`
	Order     int           `json:"order" yaml:"order"`
	Status    SectionStatus `json:"status" yaml:"status"`
	UpdatedAt time.Time     `json:"updated_at" yaml:"-"`
}

type Item struct {
	ID        string    `json:"id" yaml:"id"`
	SectionID string    `json:"section_id" yaml:"section_id"`
	Content   string    `json:"content" yaml:"content"`
	Order     int       `json:"order" yaml:"order"`
	UpdatedAt time.Time `json:"updated_at" yaml:"-"`
}

type Task struct {
	ID        string     `json:"id" yaml:"id"`
	MeetingID string     `json:"meeting_id" yaml:"meeting_id"`
	Title     string     `json:"title" yaml:"title"`
	Assignee  string     `json:"assignee,omitempty" yaml:"assignee"`
	Due       *time.Time `json:"due,omitempty" yaml:"due"`
	Done      bool       `json:"done" yaml:"done"`
}

type Template struct {
	ID          string   `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description,omitempty" yaml:"description"`
	Sections    []string `json:"sections" yaml:"sections"`
}

// SectionDetail is a section with the items cached or loaded for it.
type SectionDetail struct {
	Section
	Items []Item `json:"items,omitempty"`
}

// Detail is the composite meeting + sections + items view.
type Detail struct {
	Meeting
	Sections []SectionDetail `json:"sections,omitempty"`
}

// SectionSummary reports per-section progress.
type SectionSummary struct {
	SectionID string        `json:"section_id"`
	Title     string        `json:"title"`
	Status    SectionStatus `json:"status"`
	ItemCount int           `json:"item_count"`
}

// MeetingPatch carries optional meeting updates.
type MeetingPatch struct {
	Title  *string `json:"title,omitempty"`
	Status *Status `json:"status,omitempty"`
}

// SectionPatch carries optional section updates.
type SectionPatch struct {
	Title  *string        `json:"title,omitempty"`
	Order  *int           `json:"order,omitempty"`
	Status *SectionStatus `json:"status,omitempty"`
}

// ItemPatch carries optional item updates.
type ItemPatch struct {
	Content *string `json:"content,omitempty"`
	Order   *int    `json:"order,omitempty"`
}

func (s Status) valid() bool {
	switch s {
	case StatusScheduled, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

func (s SectionStatus) valid() bool {
	switch s {
	case SectionPending, SectionActive, SectionCompleted:
		return true
	}
	return false
}
