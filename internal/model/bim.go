package model

import "fmt"

// BimElement is an element of a BIM model referenced by objectives.
// Rows have no mirror; local and mirror objectives share them.
type BimElement struct {
	ID          string `json:"id"`
	GlobalID    string `json:"global_id"`
	ParentName  string `json:"parent_name"`
	ElementName string `json:"element_name,omitempty"`
}

// BimKey is the natural key of a BimElement.
type BimKey struct {
	GlobalID   string
	ParentName string
}

// Key returns the natural key of the element.
func (b *BimElement) Key() BimKey {
	return BimKey{GlobalID: b.GlobalID, ParentName: b.ParentName}
}

// Validate checks if the BimElement has valid field values.
func (b *BimElement) Validate() error {
	if b.ID == "" {
		return fmt.Errorf("id is required")
	}
	if b.GlobalID == "" {
		return fmt.Errorf("global_id is required")
	}
	return nil
}

// ToExternal converts an element to its remote shape.
func (b *BimElement) ToExternal() BimElementExternal {
	return BimElementExternal{
		GlobalID:    b.GlobalID,
		ParentName:  b.ParentName,
		ElementName: b.ElementName,
	}
}
