package model

import (
	"fmt"
	"time"
)

// DynamicField is a node of the user-defined field tree of an objective.
// Top-level fields have an empty ParentFieldID; every node carries the owning
// ObjectiveID so a whole tree can be loaded at once.
type DynamicField struct {
	ID            string    `json:"id"`
	ExternalID    string    `json:"external_id,omitempty"`
	ObjectiveID   string    `json:"objective_id"`
	ParentFieldID string    `json:"parent_field_id,omitempty"`
	Type          string    `json:"type"`
	Name          string    `json:"name"`
	Value         string    `json:"value,omitempty"`
	UpdatedAt     time.Time `json:"updated_at"`

	IsSynchronized        bool   `json:"is_synchronized"`
	SynchronizationMateID string `json:"synchronization_mate_id,omitempty"`
}

func (f *DynamicField) GetID() string           { return f.ID }
func (f *DynamicField) GetExternalID() string   { return f.ExternalID }
func (f *DynamicField) GetMateID() string       { return f.SynchronizationMateID }
func (f *DynamicField) IsMirror() bool          { return f.IsSynchronized }
func (f *DynamicField) GetUpdatedAt() time.Time { return f.UpdatedAt }

// Validate checks if the DynamicField has valid field values.
func (f *DynamicField) Validate() error {
	if f.ID == "" {
		return fmt.Errorf("id is required")
	}
	if f.ObjectiveID == "" {
		return fmt.Errorf("objective_id is required")
	}
	if f.ParentFieldID == f.ID {
		return fmt.Errorf("field %s cannot be its own parent", f.ID)
	}
	return nil
}

// ToExternal converts the node to its remote shape without children.
func (f *DynamicField) ToExternal() DynamicFieldExternal {
	return DynamicFieldExternal{
		ExternalID: f.ExternalID,
		Type:       f.Type,
		Name:       f.Name,
		Value:      f.Value,
		UpdatedAt:  f.UpdatedAt,
	}
}

// DynamicFieldFromExternal converts a remote node to a local row without
// identity or placement.
func DynamicFieldFromExternal(dto *DynamicFieldExternal) *DynamicField {
	return &DynamicField{
		ExternalID: dto.ExternalID,
		Type:       dto.Type,
		Name:       dto.Name,
		Value:      dto.Value,
		UpdatedAt:  dto.UpdatedAt,
	}
}
