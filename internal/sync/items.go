package sync

import (
	"github.com/mrsbim/bimsync/internal/model"
	"github.com/mrsbim/bimsync/internal/store"
)

// nested reconciles the collections carried inside a project or objective.
// Every reconcile call returns a plan: the collection the remote should hold
// after a push, whether a push is needed at all, and the local rows behind
// each pushed entry so the identities assigned by the remote can be adopted
// afterwards. Connectors return nested entries in the order they were sent.
type nested struct {
	uow   *store.UnitOfWork
	newID func() string
}

type itemPlan struct {
	out     []model.ItemExternal
	origins []string // local item id per entry of out
	push    bool
}

// reconcileItems merges the item links of a local owner, its mirror owner
// and the remote collection. mirror.ID is empty when the owner has no
// mirror yet.
func (n *nested) reconcileItems(local, mirror store.Owner, remote []model.ItemExternal) *itemPlan {
	rows := n.uow.ItemsOf(local)
	if mirror.ID != "" {
		rows = append(rows, n.uow.ItemsOf(mirror)...)
	}
	remotes := make([]*model.ItemExternal, 0, len(remote))
	for i := range remote {
		if remote[i].ExternalID != "" {
			remotes = append(remotes, &remote[i])
		}
	}

	plan := &itemPlan{}
	for _, t := range Match(rows, remotes) {
		l, m, r := t.HasLocal(), t.HasMirror(), t.HasRemote()
		switch {
		case l && !m && !r:
			plan.add(t.Local.ToExternal(), t.Local.ID)
			plan.push = true

		case !l && !m && r:
			li := n.pullItem(t.Remote, local, mirror)
			plan.add(*t.Remote, li.ID)

		case !l && m && r:
			// Unlinked locally.
			n.uow.UnlinkItem(mirror, t.Mirror.ID)
			plan.push = true

		case l && m && !r:
			n.uow.UnlinkItem(local, t.Local.ID)
			n.uow.UnlinkItem(mirror, t.Mirror.ID)

		case !l && m && !r:
			n.uow.UnlinkItem(mirror, t.Mirror.ID)

		case l && r:
			remoteNewer := model.Later(t.Remote.UpdatedAt, t.Local.UpdatedAt)
			var base *model.Item
			if m {
				base = t.Mirror
			}
			merged, outcome := mergeFields(itemFields, base, t.Local, model.ItemFromExternal(t.Remote), remoteNewer)
			merged.ExternalID = t.Remote.ExternalID
			if outcome.LocalDirty || t.Local.ExternalID != merged.ExternalID {
				if outcome.LocalDirty {
					merged.UpdatedAt = t.Remote.UpdatedAt
				}
				n.uow.SaveItem(merged)
			}
			mi := n.mirrorItem(merged, t.Remote)
			if mirror.ID != "" {
				n.uow.LinkItem(mirror, mi.ID)
			}
			entry := merged.ToExternal()
			entry.UpdatedAt = t.Remote.UpdatedAt
			plan.add(entry, merged.ID)
			if outcome.RemoteDirty {
				plan.push = true
			}
		}
	}
	return plan
}

func (p *itemPlan) add(entry model.ItemExternal, origin string) {
	p.out = append(p.out, entry)
	p.origins = append(p.origins, origin)
}

// adoptItems records the identities the remote returned for the pushed
// items and links their mirrors to the mirror owner.
func (n *nested) adoptItems(plan *itemPlan, returned []model.ItemExternal, mirror store.Owner) {
	for i, origin := range plan.origins {
		if i >= len(returned) {
			break
		}
		r := &returned[i]
		li, ok := n.uow.Item(origin)
		if !ok || r.ExternalID == "" {
			continue
		}
		if li.ExternalID == "" {
			li.ExternalID = r.ExternalID
			li.UpdatedAt = r.UpdatedAt
			n.uow.SaveItem(li)
		}
		mi := n.mirrorItem(li, r)
		n.uow.LinkItem(mirror, mi.ID)
	}
}

// pullItem links the local and mirror copies of a remote item, creating
// them when no row carries its external id yet.
func (n *nested) pullItem(r *model.ItemExternal, local, mirror store.Owner) *model.Item {
	li, ok := n.uow.ItemByExternalID(r.ExternalID, false)
	if !ok {
		li = model.ItemFromExternal(r)
		li.ID = n.newID()
		n.uow.SaveItem(li)
	}
	mi := n.mirrorItem(li, r)
	n.uow.LinkItem(local, li.ID)
	if mirror.ID != "" {
		n.uow.LinkItem(mirror, mi.ID)
	}
	return li
}

// mirrorItem returns the mirror of li holding the agreed state r, creating
// or updating it as needed. li and the mirror end up mates.
func (n *nested) mirrorItem(li *model.Item, r *model.ItemExternal) *model.Item {
	mi, ok := n.uow.Item(li.SynchronizationMateID)
	if !ok || !mi.IsSynchronized {
		mi, ok = n.uow.ItemByExternalID(r.ExternalID, true)
	}
	if !ok {
		mi = &model.Item{ID: n.newID(), IsSynchronized: true}
	}
	want := *mi
	want.ExternalID = r.ExternalID
	want.RelativePath = r.RelativePath
	want.ItemType = r.ItemType
	want.UpdatedAt = r.UpdatedAt
	want.SynchronizationMateID = li.ID
	if !ok || want != *mi {
		n.uow.SaveItem(&want)
	}
	if li.SynchronizationMateID != want.ID {
		li.SynchronizationMateID = want.ID
		n.uow.SaveItem(li)
	}
	return &want
}

// resolveItem finds or creates the local and mirror items for a remote item
// reference that is not a link, such as the item of a location.
func (n *nested) resolveItem(r *model.ItemExternal) (local, mirror *model.Item) {
	li, ok := n.uow.ItemByExternalID(r.ExternalID, false)
	if !ok {
		li = model.ItemFromExternal(r)
		li.ID = n.newID()
		n.uow.SaveItem(li)
	}
	return li, n.mirrorItem(li, r)
}
