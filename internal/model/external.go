package model

import "time"

// ProjectExternal is the remote shape of a project.
type ProjectExternal struct {
	ExternalID string         `json:"external_id"`
	Title      string         `json:"title"`
	UpdatedAt  time.Time      `json:"updated_at"`
	Items      []ItemExternal `json:"items,omitempty"`
}

func (p *ProjectExternal) GetExternalID() string   { return p.ExternalID }
func (p *ProjectExternal) GetUpdatedAt() time.Time { return p.UpdatedAt }

// ObjectiveExternal is the remote shape of an objective with everything
// nested in it.
type ObjectiveExternal struct {
	ExternalID                string          `json:"external_id"`
	ProjectExternalID         string          `json:"project_external_id"`
	ParentObjectiveExternalID string          `json:"parent_objective_external_id,omitempty"`
	AuthorExternalID          string          `json:"author_external_id,omitempty"`
	ObjectiveType             string          `json:"objective_type,omitempty"`
	Title                     string          `json:"title"`
	Description               string          `json:"description,omitempty"`
	Status                    ObjectiveStatus `json:"status"`
	CreationDate              time.Time       `json:"creation_date"`
	DueDate                   time.Time       `json:"due_date"`
	UpdatedAt                 time.Time       `json:"updated_at"`

	Items         []ItemExternal         `json:"items,omitempty"`
	BimElements   []BimElementExternal   `json:"bim_elements,omitempty"`
	DynamicFields []DynamicFieldExternal `json:"dynamic_fields,omitempty"`
	Location      *LocationExternal      `json:"location,omitempty"`
}

func (o *ObjectiveExternal) GetExternalID() string   { return o.ExternalID }
func (o *ObjectiveExternal) GetUpdatedAt() time.Time { return o.UpdatedAt }

// ItemExternal is the remote shape of an item.
type ItemExternal struct {
	ExternalID   string    `json:"external_id"`
	RelativePath string    `json:"relative_path"`
	ItemType     ItemType  `json:"item_type"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (i *ItemExternal) GetExternalID() string   { return i.ExternalID }
func (i *ItemExternal) GetUpdatedAt() time.Time { return i.UpdatedAt }

// BimElementExternal is the remote shape of a BIM element reference.
type BimElementExternal struct {
	GlobalID    string `json:"global_id"`
	ParentName  string `json:"parent_name"`
	ElementName string `json:"element_name,omitempty"`
}

// Key returns the natural key of the element.
func (b *BimElementExternal) Key() BimKey {
	return BimKey{GlobalID: b.GlobalID, ParentName: b.ParentName}
}

// DynamicFieldExternal is the remote shape of a dynamic field subtree.
type DynamicFieldExternal struct {
	ExternalID            string                 `json:"external_id"`
	Type                  string                 `json:"type"`
	Name                  string                 `json:"name"`
	Value                 string                 `json:"value,omitempty"`
	UpdatedAt             time.Time              `json:"updated_at"`
	ChildrenDynamicFields []DynamicFieldExternal `json:"children_dynamic_fields,omitempty"`
}

func (f *DynamicFieldExternal) GetExternalID() string   { return f.ExternalID }
func (f *DynamicFieldExternal) GetUpdatedAt() time.Time { return f.UpdatedAt }

// LocationExternal is the remote shape of an objective's location.
type LocationExternal struct {
	Guid           string       `json:"guid,omitempty"`
	Position       Vector3      `json:"position"`
	CameraPosition Vector3      `json:"camera_position"`
	Item           ItemExternal `json:"item"`
}
