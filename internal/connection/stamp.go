package connection

import (
	"time"

	"github.com/google/uuid"

	"github.com/mrsbim/bimsync/internal/model"
)

// IDFunc generates external ids for records a remote system stores.
type IDFunc func() string

// NewExternalID is the default IDFunc.
func NewExternalID() string {
	return uuid.NewString()
}

// StampProject gives a project and its items the identity a remote system
// assigns on write: missing ExternalIDs are generated and UpdatedAt is set.
func StampProject(p *model.ProjectExternal, newID IDFunc, now time.Time) {
	if p.ExternalID == "" {
		p.ExternalID = newID()
	}
	p.UpdatedAt = now
	stampItems(p.Items, newID, now)
}

// StampObjective does the same for an objective and everything nested in it.
func StampObjective(o *model.ObjectiveExternal, newID IDFunc, now time.Time) {
	if o.ExternalID == "" {
		o.ExternalID = newID()
	}
	o.UpdatedAt = now
	stampItems(o.Items, newID, now)
	stampFields(o.DynamicFields, newID, now)
	if o.Location != nil && o.Location.Item.ExternalID == "" {
		o.Location.Item.ExternalID = newID()
		o.Location.Item.UpdatedAt = now
		// The location item usually travels in Items as well.
		for _, item := range o.Items {
			if item.RelativePath == o.Location.Item.RelativePath {
				o.Location.Item.ExternalID = item.ExternalID
				o.Location.Item.UpdatedAt = item.UpdatedAt
				break
			}
		}
	}
}

func stampItems(items []model.ItemExternal, newID IDFunc, now time.Time) {
	for i := range items {
		if items[i].ExternalID == "" {
			items[i].ExternalID = newID()
			items[i].UpdatedAt = now
		}
	}
}

func stampFields(fields []model.DynamicFieldExternal, newID IDFunc, now time.Time) {
	for i := range fields {
		if fields[i].ExternalID == "" {
			fields[i].ExternalID = newID()
			fields[i].UpdatedAt = now
		}
		stampFields(fields[i].ChildrenDynamicFields, newID, now)
	}
}
