package store

import (
	"sort"

	"github.com/mrsbim/bimsync/internal/model"
)

// ===== projects =====

// Projects returns copies of the project rows in the view, ordered by id.
func (u *UnitOfWork) Projects(view View) []*model.Project {
	var out []*model.Project
	for _, key := range sortedKeys(u.projects.rows) {
		p := u.projects.rows[key]
		if view.accepts(p.IsSynchronized) {
			out = append(out, &p)
		}
	}
	return out
}

// Project returns a copy of the project row with the given id.
func (u *UnitOfWork) Project(id string) (*model.Project, bool) {
	return get(&u.projects, id)
}

// SaveProject stages an insert or update of p.
func (u *UnitOfWork) SaveProject(p *model.Project) {
	put(u, &u.projects, p.ID, *p)
}

// DeleteProject removes a project, its item links and its objective trees.
func (u *UnitOfWork) DeleteProject(id string) {
	for _, obj := range u.ObjectivesOfProject(id) {
		if obj.ParentObjectiveID == "" {
			u.DeleteObjectiveTree(obj.ID)
		}
	}
	// Orphaned subtrees whose root was already gone.
	for _, obj := range u.ObjectivesOfProject(id) {
		u.DeleteObjectiveTree(obj.ID)
	}
	owner := ProjectOwner(id)
	for _, item := range u.ItemsOf(owner) {
		u.UnlinkItem(owner, item.ID)
	}
	drop(u, &u.projects, id)
}

// ===== objectives =====

// Objectives returns copies of the objective rows in the view, ordered by id.
func (u *UnitOfWork) Objectives(view View) []*model.Objective {
	var out []*model.Objective
	for _, key := range sortedKeys(u.objectives.rows) {
		o := u.objectives.rows[key]
		if view.accepts(o.IsSynchronized) {
			out = append(out, &o)
		}
	}
	return out
}

// Objective returns a copy of the objective row with the given id.
func (u *UnitOfWork) Objective(id string) (*model.Objective, bool) {
	return get(&u.objectives, id)
}

// ObjectivesOfProject returns the objectives (local or mirror) of a project row.
func (u *UnitOfWork) ObjectivesOfProject(projectID string) []*model.Objective {
	var out []*model.Objective
	for _, key := range sortedKeys(u.objectives.rows) {
		o := u.objectives.rows[key]
		if o.ProjectID == projectID {
			out = append(out, &o)
		}
	}
	return out
}

// Children returns the direct children of an objective.
func (u *UnitOfWork) Children(objectiveID string) []*model.Objective {
	var out []*model.Objective
	for _, key := range sortedKeys(u.objectives.rows) {
		o := u.objectives.rows[key]
		if o.ParentObjectiveID == objectiveID {
			out = append(out, &o)
		}
	}
	return out
}

// SaveObjective stages an insert or update of o.
func (u *UnitOfWork) SaveObjective(o *model.Objective) {
	put(u, &u.objectives, o.ID, *o)
}

// DeleteObjective removes one objective with everything it owns: item and
// element links (reference-counted), dynamic fields and location.
// Children are detached from it and become roots.
func (u *UnitOfWork) DeleteObjective(id string) {
	if _, ok := u.objectives.rows[id]; !ok {
		return
	}
	for _, child := range u.Children(id) {
		child.ParentObjectiveID = ""
		u.SaveObjective(child)
	}

	owner := ObjectiveOwner(id)
	for _, item := range u.ItemsOf(owner) {
		u.UnlinkItem(owner, item.ID)
	}
	for _, el := range u.BimElementsOf(id) {
		u.UnlinkBimElement(id, el.ID)
	}
	for _, f := range u.DynamicFields(id, "") {
		u.DeleteDynamicFieldTree(f.ID)
	}
	if loc, ok := u.LocationOf(id); ok {
		u.DeleteLocation(loc.ID)
	}
	drop(u, &u.objectives, id)
}

// DeleteObjectiveTree removes an objective and all of its descendants,
// children first.
func (u *UnitOfWork) DeleteObjectiveTree(id string) {
	seen := make(map[string]bool)
	var walk func(id string)
	walk = func(id string) {
		if seen[id] {
			return
		}
		seen[id] = true
		for _, child := range u.Children(id) {
			walk(child.ID)
		}
		u.DeleteObjective(id)
	}
	walk(id)
}

// ===== items =====

// OwnerKind distinguishes the link tables an item can be referenced from.
type OwnerKind int

const (
	OwnerProject OwnerKind = iota
	OwnerObjective
)

// Owner identifies a project or objective row that links items.
type Owner struct {
	Kind OwnerKind
	ID   string
}

// ProjectOwner returns the item owner for a project row.
func ProjectOwner(id string) Owner { return Owner{Kind: OwnerProject, ID: id} }

// ObjectiveOwner returns the item owner for an objective row.
func ObjectiveOwner(id string) Owner { return Owner{Kind: OwnerObjective, ID: id} }

// Item returns a copy of the item row with the given id.
func (u *UnitOfWork) Item(id string) (*model.Item, bool) {
	return get(&u.items, id)
}

// ItemByExternalID finds the local or mirror item with the external id.
func (u *UnitOfWork) ItemByExternalID(externalID string, mirror bool) (*model.Item, bool) {
	if externalID == "" {
		return nil, false
	}
	for _, key := range sortedKeys(u.items.rows) {
		i := u.items.rows[key]
		if i.ExternalID == externalID && i.IsSynchronized == mirror {
			return &i, true
		}
	}
	return nil, false
}

// SaveItem stages an insert or update of i.
func (u *UnitOfWork) SaveItem(i *model.Item) {
	put(u, &u.items, i.ID, *i)
}

// ItemsOf returns the items linked to owner, ordered by path then id.
func (u *UnitOfWork) ItemsOf(owner Owner) []*model.Item {
	var ids []string
	switch owner.Kind {
	case OwnerProject:
		for _, l := range u.projectItems.rows {
			if l.ProjectID == owner.ID {
				ids = append(ids, l.ItemID)
			}
		}
	case OwnerObjective:
		for _, l := range u.objectiveItems.rows {
			if l.ObjectiveID == owner.ID {
				ids = append(ids, l.ItemID)
			}
		}
	}

	out := make([]*model.Item, 0, len(ids))
	for _, id := range ids {
		if item, ok := u.Item(id); ok {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RelativePath != out[j].RelativePath {
			return out[i].RelativePath < out[j].RelativePath
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// LinkItem stages a link between owner and an item. Linking twice is a no-op.
func (u *UnitOfWork) LinkItem(owner Owner, itemID string) {
	switch owner.Kind {
	case OwnerProject:
		key := linkKey(owner.ID, itemID)
		if _, ok := u.projectItems.rows[key]; !ok {
			put(u, &u.projectItems, key, model.ProjectItem{ProjectID: owner.ID, ItemID: itemID})
		}
	case OwnerObjective:
		key := linkKey(owner.ID, itemID)
		if _, ok := u.objectiveItems.rows[key]; !ok {
			put(u, &u.objectiveItems, key, model.ObjectiveItem{ObjectiveID: owner.ID, ItemID: itemID})
		}
	}
}

// UnlinkItem removes the link between owner and an item. The item row itself
// is deleted only when nothing references it any more. It reports whether
// the item row was deleted.
func (u *UnitOfWork) UnlinkItem(owner Owner, itemID string) bool {
	key := linkKey(owner.ID, itemID)
	switch owner.Kind {
	case OwnerProject:
		drop(u, &u.projectItems, key)
	case OwnerObjective:
		drop(u, &u.objectiveItems, key)
	}
	return u.releaseItem(itemID)
}

// ItemReferences counts the links and locations that reference an item.
func (u *UnitOfWork) ItemReferences(itemID string) int {
	n := 0
	for _, l := range u.projectItems.rows {
		if l.ItemID == itemID {
			n++
		}
	}
	for _, l := range u.objectiveItems.rows {
		if l.ItemID == itemID {
			n++
		}
	}
	for _, l := range u.locations.rows {
		if l.ItemID == itemID {
			n++
		}
	}
	return n
}

func (u *UnitOfWork) releaseItem(itemID string) bool {
	if u.ItemReferences(itemID) > 0 {
		return false
	}
	return drop(u, &u.items, itemID)
}

// ===== bim elements =====

// BimElement returns a copy of the element row with the given id.
func (u *UnitOfWork) BimElement(id string) (*model.BimElement, bool) {
	return get(&u.bimElements, id)
}

// BimElementByKey finds an element by its natural key.
func (u *UnitOfWork) BimElementByKey(key model.BimKey) (*model.BimElement, bool) {
	for _, id := range sortedKeys(u.bimElements.rows) {
		b := u.bimElements.rows[id]
		if b.Key() == key {
			return &b, true
		}
	}
	return nil, false
}

// SaveBimElement stages an insert or update of b.
func (u *UnitOfWork) SaveBimElement(b *model.BimElement) {
	put(u, &u.bimElements, b.ID, *b)
}

// BimElementsOf returns the elements linked to an objective ordered by key.
func (u *UnitOfWork) BimElementsOf(objectiveID string) []*model.BimElement {
	var out []*model.BimElement
	for _, l := range u.bimLinks.rows {
		if l.ObjectiveID != objectiveID {
			continue
		}
		if el, ok := u.BimElement(l.BimElementID); ok {
			out = append(out, el)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].GlobalID != out[j].GlobalID {
			return out[i].GlobalID < out[j].GlobalID
		}
		return out[i].ParentName < out[j].ParentName
	})
	return out
}

// LinkBimElement stages a link between an objective and an element.
func (u *UnitOfWork) LinkBimElement(objectiveID, elementID string) {
	key := linkKey(objectiveID, elementID)
	if _, ok := u.bimLinks.rows[key]; ok {
		return
	}
	put(u, &u.bimLinks, key, model.BimElementObjective{ObjectiveID: objectiveID, BimElementID: elementID})
}

// UnlinkBimElement removes the link and deletes the element once no
// objective references it. It reports whether the element row was deleted.
func (u *UnitOfWork) UnlinkBimElement(objectiveID, elementID string) bool {
	drop(u, &u.bimLinks, linkKey(objectiveID, elementID))
	for _, l := range u.bimLinks.rows {
		if l.BimElementID == elementID {
			return false
		}
	}
	return drop(u, &u.bimElements, elementID)
}

// ===== dynamic fields =====

// DynamicField returns a copy of the field row with the given id.
func (u *UnitOfWork) DynamicField(id string) (*model.DynamicField, bool) {
	return get(&u.dynamicFields, id)
}

// DynamicFields returns the fields of an objective directly below
// parentFieldID ("" for top-level fields), ordered by name then id.
func (u *UnitOfWork) DynamicFields(objectiveID, parentFieldID string) []*model.DynamicField {
	var out []*model.DynamicField
	for _, key := range sortedKeys(u.dynamicFields.rows) {
		f := u.dynamicFields.rows[key]
		if f.ObjectiveID == objectiveID && f.ParentFieldID == parentFieldID {
			out = append(out, &f)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})
	return out
}

// SaveDynamicField stages an insert or update of f.
func (u *UnitOfWork) SaveDynamicField(f *model.DynamicField) {
	put(u, &u.dynamicFields, f.ID, *f)
}

// DeleteDynamicFieldTree removes a field and its descendants, children first.
func (u *UnitOfWork) DeleteDynamicFieldTree(id string) {
	f, ok := u.dynamicFields.rows[id]
	if !ok {
		return
	}
	for _, child := range u.DynamicFields(f.ObjectiveID, id) {
		u.DeleteDynamicFieldTree(child.ID)
	}
	drop(u, &u.dynamicFields, id)
}

// ===== locations =====

// Location returns a copy of the location row with the given id.
func (u *UnitOfWork) Location(id string) (*model.Location, bool) {
	return get(&u.locations, id)
}

// LocationOf returns the location of an objective.
func (u *UnitOfWork) LocationOf(objectiveID string) (*model.Location, bool) {
	for _, key := range sortedKeys(u.locations.rows) {
		l := u.locations.rows[key]
		if l.ObjectiveID == objectiveID {
			return &l, true
		}
	}
	return nil, false
}

// SaveLocation stages an insert or update of l. When the location moves to
// another item, the previous item is released.
func (u *UnitOfWork) SaveLocation(l *model.Location) {
	prev, existed := u.locations.rows[l.ID]
	put(u, &u.locations, l.ID, *l)
	if existed && prev.ItemID != l.ItemID {
		u.releaseItem(prev.ItemID)
	}
}

// DeleteLocation removes a location and releases its item.
func (u *UnitOfWork) DeleteLocation(id string) {
	prev, ok := u.locations.rows[id]
	if !ok {
		return
	}
	drop(u, &u.locations, id)
	u.releaseItem(prev.ItemID)
}
