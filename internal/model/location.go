package model

import (
	"fmt"
	"time"
)

// Location pins an objective to a point inside one Item.
type Location struct {
	ID             string  `json:"id"`
	ObjectiveID    string  `json:"objective_id"`
	ItemID         string  `json:"item_id"`
	Guid           string  `json:"guid,omitempty"`
	Position       Vector3 `json:"position"`
	CameraPosition Vector3 `json:"camera_position"`

	IsSynchronized        bool   `json:"is_synchronized"`
	SynchronizationMateID string `json:"synchronization_mate_id,omitempty"`
}

// Locations have no identity of their own on the remote side; they travel
// inside the objective and inherit its timestamps.
func (l *Location) GetID() string           { return l.ID }
func (l *Location) GetExternalID() string   { return "" }
func (l *Location) GetMateID() string       { return l.SynchronizationMateID }
func (l *Location) IsMirror() bool          { return l.IsSynchronized }
func (l *Location) GetUpdatedAt() time.Time { return time.Time{} }

// Validate checks if the Location has valid field values.
func (l *Location) Validate() error {
	if l.ID == "" {
		return fmt.Errorf("id is required")
	}
	if l.ObjectiveID == "" {
		return fmt.Errorf("objective_id is required")
	}
	if l.ItemID == "" {
		return fmt.Errorf("item_id is required")
	}
	return nil
}
