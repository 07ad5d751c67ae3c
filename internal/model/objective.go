package model

import (
	"fmt"
	"time"
)

// ObjectiveStatus is the workflow state of an objective.
type ObjectiveStatus int

const (
	StatusUndefined ObjectiveStatus = iota
	StatusOpen
	StatusInProgress
	StatusReady
	StatusLate
	StatusClosed
)

var statusNames = map[ObjectiveStatus]string{
	StatusUndefined:  "undefined",
	StatusOpen:       "open",
	StatusInProgress: "in_progress",
	StatusReady:      "ready",
	StatusLate:       "late",
	StatusClosed:     "closed",
}

func (s ObjectiveStatus) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Valid reports whether s is a known status.
func (s ObjectiveStatus) Valid() bool {
	_, ok := statusNames[s]
	return ok
}

// Objective is a local or mirror objective row.
type Objective struct {
	// ===== Identification =====
	ID         string `json:"id"`
	ExternalID string `json:"external_id,omitempty"`

	// ===== Hierarchy =====
	ProjectID         string `json:"project_id"`
	ParentObjectiveID string `json:"parent_objective_id,omitempty"`

	// ===== Content =====
	AuthorID      string          `json:"author_id,omitempty"`
	ObjectiveType string          `json:"objective_type,omitempty"`
	Title         string          `json:"title"`
	Description   string          `json:"description,omitempty"`
	Status        ObjectiveStatus `json:"status"`

	// ===== Dates =====
	CreationDate time.Time `json:"creation_date"`
	DueDate      time.Time `json:"due_date"`

	// ===== Synchronization =====
	UpdatedAt             time.Time `json:"updated_at"`
	IsSynchronized        bool      `json:"is_synchronized"`
	SynchronizationMateID string    `json:"synchronization_mate_id,omitempty"`
}

func (o *Objective) GetID() string           { return o.ID }
func (o *Objective) GetExternalID() string   { return o.ExternalID }
func (o *Objective) GetMateID() string       { return o.SynchronizationMateID }
func (o *Objective) IsMirror() bool          { return o.IsSynchronized }
func (o *Objective) GetUpdatedAt() time.Time { return o.UpdatedAt }

// Validate checks if the Objective has valid field values.
func (o *Objective) Validate() error {
	if o.ID == "" {
		return fmt.Errorf("id is required")
	}
	if o.ProjectID == "" {
		return fmt.Errorf("project_id is required")
	}
	if o.Title == "" {
		return fmt.Errorf("title is required")
	}
	if len(o.Title) > 500 {
		return fmt.Errorf("title must be 500 characters or less (got %d)", len(o.Title))
	}
	if !o.Status.Valid() {
		return fmt.Errorf("invalid status %d", int(o.Status))
	}
	if o.ParentObjectiveID == o.ID {
		return fmt.Errorf("objective %s cannot be its own parent", o.ID)
	}
	return nil
}

// ToExternal converts the scalar fields of an objective to its remote shape.
// References and nested collections are filled by the caller.
func (o *Objective) ToExternal() *ObjectiveExternal {
	return &ObjectiveExternal{
		ExternalID:    o.ExternalID,
		ObjectiveType: o.ObjectiveType,
		Title:         o.Title,
		Description:   o.Description,
		Status:        o.Status,
		CreationDate:  o.CreationDate,
		DueDate:       o.DueDate,
		UpdatedAt:     o.UpdatedAt,
	}
}

// ObjectiveFromExternal converts a remote objective to a local row without
// identity or references.
func ObjectiveFromExternal(dto *ObjectiveExternal) *Objective {
	return &Objective{
		ExternalID:    dto.ExternalID,
		ObjectiveType: dto.ObjectiveType,
		Title:         dto.Title,
		Description:   dto.Description,
		Status:        dto.Status,
		CreationDate:  dto.CreationDate,
		DueDate:       dto.DueDate,
		UpdatedAt:     dto.UpdatedAt,
	}
}
