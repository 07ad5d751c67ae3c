package sync

import (
	"github.com/mrsbim/bimsync/internal/model"
)

type locationPlan struct {
	out    *model.LocationExternal
	origin string // local location id
	push   bool
}

// reconcileLocation merges an objective's location as one record: any
// difference in placement or item counts as a change of the whole location.
func (n *nested) reconcileLocation(localID, mirrorID string, remote *model.LocationExternal, remoteNewer bool) *locationPlan {
	local, hasLocal := n.uow.LocationOf(localID)
	var mirror *model.Location
	hasMirror := false
	if mirrorID != "" {
		mirror, hasMirror = n.uow.LocationOf(mirrorID)
	}
	hasRemote := remote != nil

	plan := &locationPlan{}
	switch {
	case hasLocal && !hasMirror && !hasRemote:
		plan.out = n.locationExternal(local)
		plan.origin = local.ID
		plan.push = true

	case !hasLocal && !hasMirror && hasRemote:
		plan.origin = n.pullLocation(nil, localID, mirrorID, remote)
		plan.out = remote

	case !hasLocal && hasMirror && hasRemote:
		n.uow.DeleteLocation(mirror.ID)
		plan.push = true

	case hasLocal && hasMirror && !hasRemote:
		n.uow.DeleteLocation(local.ID)
		n.uow.DeleteLocation(mirror.ID)

	case !hasLocal && hasMirror && !hasRemote:
		n.uow.DeleteLocation(mirror.ID)

	case hasLocal && hasRemote:
		mine := n.locationExternal(local)
		var localChanged, remoteChanged bool
		if hasMirror {
			base := n.locationExternal(mirror)
			localChanged = !sameLocation(mine, base)
			remoteChanged = !sameLocation(remote, base)
		} else {
			localChanged = !sameLocation(mine, remote)
			remoteChanged = localChanged
		}
		plan.origin = local.ID
		// Merge over booleans: true when the remote location wins.
		if Merge(false, false, true, localChanged, remoteChanged, remoteNewer) {
			n.pullLocation(local, localID, mirrorID, remote)
			plan.out = remote
			break
		}
		plan.out = mine
		if localChanged {
			plan.push = true
			break
		}
		n.mirrorLocation(local, remote, mirrorID)
	}
	return plan
}

// adoptLocation brings the mirror location in line with what the remote
// returned and records the external id of its item.
func (n *nested) adoptLocation(plan *locationPlan, returned *model.LocationExternal, mirrorID string) {
	if plan.origin == "" || returned == nil {
		return
	}
	local, ok := n.uow.Location(plan.origin)
	if !ok {
		return
	}
	if item, ok := n.uow.Item(local.ItemID); ok && item.ExternalID == "" && returned.Item.ExternalID != "" {
		item.ExternalID = returned.Item.ExternalID
		item.UpdatedAt = returned.Item.UpdatedAt
		n.uow.SaveItem(item)
	}
	n.mirrorLocation(local, returned, mirrorID)
}

// pullLocation applies remote to the local location of an objective,
// creating it when existing is nil, and updates the mirror.
func (n *nested) pullLocation(existing *model.Location, localID, mirrorID string, remote *model.LocationExternal) string {
	li, _ := n.resolveItem(&remote.Item)
	loc := existing
	if loc == nil {
		loc = &model.Location{ID: n.newID(), ObjectiveID: localID}
	}
	loc.ItemID = li.ID
	loc.Guid = remote.Guid
	loc.Position = remote.Position
	loc.CameraPosition = remote.CameraPosition
	n.uow.SaveLocation(loc)
	n.mirrorLocation(loc, remote, mirrorID)
	return loc.ID
}

// mirrorLocation saves the mirror of local holding the agreed state r.
func (n *nested) mirrorLocation(local *model.Location, r *model.LocationExternal, mirrorID string) {
	if mirrorID == "" {
		return
	}
	li, ok := n.uow.Item(local.ItemID)
	if !ok {
		return
	}
	mi := n.mirrorItem(li, &r.Item)

	ml, ok := n.uow.LocationOf(mirrorID)
	if !ok {
		ml = &model.Location{ID: n.newID(), ObjectiveID: mirrorID, IsSynchronized: true}
	}
	want := *ml
	want.ItemID = mi.ID
	want.Guid = r.Guid
	want.Position = r.Position
	want.CameraPosition = r.CameraPosition
	want.SynchronizationMateID = local.ID
	if !ok || want != *ml {
		n.uow.SaveLocation(&want)
	}
	if current, _ := n.uow.Location(local.ID); current != nil && current.SynchronizationMateID != want.ID {
		current.SynchronizationMateID = want.ID
		n.uow.SaveLocation(current)
	}
}

func (n *nested) locationExternal(l *model.Location) *model.LocationExternal {
	out := &model.LocationExternal{
		Guid:           l.Guid,
		Position:       l.Position,
		CameraPosition: l.CameraPosition,
	}
	if item, ok := n.uow.Item(l.ItemID); ok {
		out.Item = item.ToExternal()
		if out.Item.ExternalID == "" {
			if mate, ok := n.uow.Item(item.SynchronizationMateID); ok {
				out.Item.ExternalID = mate.ExternalID
			}
		}
	}
	return out
}

func sameLocation(a, b *model.LocationExternal) bool {
	if a.Guid != b.Guid || a.Position != b.Position || a.CameraPosition != b.CameraPosition {
		return false
	}
	if a.Item.ExternalID != "" && b.Item.ExternalID != "" {
		return a.Item.ExternalID == b.Item.ExternalID
	}
	return a.Item.RelativePath == b.Item.RelativePath
}
