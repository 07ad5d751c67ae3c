package model

import (
	"fmt"
	"time"
)

// ItemType classifies an item file.
type ItemType int

const (
	ItemFile ItemType = iota
	ItemMedia
	ItemBim
)

func (t ItemType) String() string {
	switch t {
	case ItemFile:
		return "file"
	case ItemMedia:
		return "media"
	case ItemBim:
		return "bim"
	default:
		return fmt.Sprintf("item_type(%d)", int(t))
	}
}

// Item is a local or mirror file record. Items are shared: one row may be
// linked to a project, several objectives and a location at once.
type Item struct {
	ID           string    `json:"id"`
	ExternalID   string    `json:"external_id,omitempty"`
	RelativePath string    `json:"relative_path"`
	ItemType     ItemType  `json:"item_type"`
	UpdatedAt    time.Time `json:"updated_at"`

	IsSynchronized        bool   `json:"is_synchronized"`
	SynchronizationMateID string `json:"synchronization_mate_id,omitempty"`
}

func (i *Item) GetID() string           { return i.ID }
func (i *Item) GetExternalID() string   { return i.ExternalID }
func (i *Item) GetMateID() string       { return i.SynchronizationMateID }
func (i *Item) IsMirror() bool          { return i.IsSynchronized }
func (i *Item) GetUpdatedAt() time.Time { return i.UpdatedAt }

// Validate checks if the Item has valid field values.
func (i *Item) Validate() error {
	if i.ID == "" {
		return fmt.Errorf("id is required")
	}
	if i.RelativePath == "" {
		return fmt.Errorf("relative_path is required")
	}
	if i.ItemType < ItemFile || i.ItemType > ItemBim {
		return fmt.Errorf("invalid item type %d", int(i.ItemType))
	}
	return nil
}

// ToExternal converts an item to its remote shape.
func (i *Item) ToExternal() ItemExternal {
	return ItemExternal{
		ExternalID:   i.ExternalID,
		RelativePath: i.RelativePath,
		ItemType:     i.ItemType,
		UpdatedAt:    i.UpdatedAt,
	}
}

// ItemFromExternal converts a remote item to a local row without identity.
func ItemFromExternal(dto *ItemExternal) *Item {
	return &Item{
		ExternalID:   dto.ExternalID,
		RelativePath: dto.RelativePath,
		ItemType:     dto.ItemType,
		UpdatedAt:    dto.UpdatedAt,
	}
}
