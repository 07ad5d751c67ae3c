package model

import (
	"fmt"
	"time"
)

// Project is a local or mirror project row.
type Project struct {
	// ===== Identification =====
	ID         string `json:"id"`
	ExternalID string `json:"external_id,omitempty"`

	// ===== Content =====
	Title string `json:"title"`

	// ===== Synchronization =====
	UpdatedAt             time.Time `json:"updated_at"`
	IsSynchronized        bool      `json:"is_synchronized"`
	SynchronizationMateID string    `json:"synchronization_mate_id,omitempty"`
}

func (p *Project) GetID() string           { return p.ID }
func (p *Project) GetExternalID() string   { return p.ExternalID }
func (p *Project) GetMateID() string       { return p.SynchronizationMateID }
func (p *Project) IsMirror() bool          { return p.IsSynchronized }
func (p *Project) GetUpdatedAt() time.Time { return p.UpdatedAt }

// Validate checks if the Project has valid field values.
func (p *Project) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("id is required")
	}
	if p.Title == "" {
		return fmt.Errorf("title is required")
	}
	if len(p.Title) > 500 {
		return fmt.Errorf("title must be 500 characters or less (got %d)", len(p.Title))
	}
	if p.SynchronizationMateID == p.ID {
		return fmt.Errorf("project %s cannot be its own mate", p.ID)
	}
	return nil
}

// ToExternal converts the scalar fields of a project to its remote shape.
// Items are filled by the caller.
func (p *Project) ToExternal() *ProjectExternal {
	return &ProjectExternal{
		ExternalID: p.ExternalID,
		Title:      p.Title,
		UpdatedAt:  p.UpdatedAt,
	}
}

// ProjectFromExternal converts a remote project to a local row without identity.
func ProjectFromExternal(dto *ProjectExternal) *Project {
	return &Project{
		ExternalID: dto.ExternalID,
		Title:      dto.Title,
		UpdatedAt:  dto.UpdatedAt,
	}
}
