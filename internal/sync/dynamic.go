package sync

import (
	"github.com/mrsbim/bimsync/internal/model"
)

type fieldPlan struct {
	out     []model.DynamicFieldExternal
	origins []fieldOrigin
	push    bool
}

type fieldOrigin struct {
	localID  string
	children *fieldPlan
}

// reconcileFields merges one level of the dynamic field trees of an
// objective and recurses into matched subtrees. mirrorID is empty when the
// objective has no mirror yet.
func (n *nested) reconcileFields(localID, mirrorID, localParent, mirrorParent string, remote []model.DynamicFieldExternal) *fieldPlan {
	rows := n.uow.DynamicFields(localID, localParent)
	if mirrorID != "" && (localParent == "" || mirrorParent != "") {
		rows = append(rows, n.uow.DynamicFields(mirrorID, mirrorParent)...)
	}
	remotes := make([]*model.DynamicFieldExternal, 0, len(remote))
	for i := range remote {
		if remote[i].ExternalID != "" {
			remotes = append(remotes, &remote[i])
		}
	}

	plan := &fieldPlan{}
	for _, t := range Match(rows, remotes) {
		l, m, r := t.HasLocal(), t.HasMirror(), t.HasRemote()
		switch {
		case l && !m && !r:
			children := n.reconcileFields(localID, "", t.Local.ID, "", nil)
			plan.add(t.Local.ToExternal(), t.Local.ID, children)
			plan.push = true

		case !l && !m && r:
			lf := model.DynamicFieldFromExternal(t.Remote)
			lf.ID = n.newID()
			lf.ObjectiveID = localID
			lf.ParentFieldID = localParent
			mf := n.mirrorField(lf, t.Remote, mirrorID, mirrorParent)
			children := n.reconcileFields(localID, mirrorID, lf.ID, mf.ID, t.Remote.ChildrenDynamicFields)
			plan.add(*t.Remote, lf.ID, children)

		case !l && m && r:
			n.uow.DeleteDynamicFieldTree(t.Mirror.ID)
			plan.push = true

		case l && m && !r:
			n.uow.DeleteDynamicFieldTree(t.Local.ID)
			n.uow.DeleteDynamicFieldTree(t.Mirror.ID)

		case !l && m && !r:
			n.uow.DeleteDynamicFieldTree(t.Mirror.ID)

		case l && r:
			remoteNewer := model.Later(t.Remote.UpdatedAt, t.Local.UpdatedAt)
			var base *model.DynamicField
			if m {
				base = t.Mirror
			}
			merged, outcome := mergeFields(dynamicFieldFields, base, t.Local, model.DynamicFieldFromExternal(t.Remote), remoteNewer)
			merged.ExternalID = t.Remote.ExternalID
			if outcome.LocalDirty {
				merged.UpdatedAt = t.Remote.UpdatedAt
			}
			if outcome.LocalDirty || t.Local.ExternalID != merged.ExternalID {
				n.uow.SaveDynamicField(merged)
			}
			agreed := *t.Remote
			if outcome.RemoteDirty {
				agreed = merged.ToExternal()
				plan.push = true
			}
			childMirror, childMirrorParent := "", ""
			if mirrorID != "" {
				mf := n.mirrorField(merged, &agreed, mirrorID, mirrorParent)
				childMirror, childMirrorParent = mirrorID, mf.ID
			}
			children := n.reconcileFields(localID, childMirror, merged.ID, childMirrorParent, t.Remote.ChildrenDynamicFields)
			entry := merged.ToExternal()
			entry.UpdatedAt = t.Remote.UpdatedAt
			plan.add(entry, merged.ID, children)
			if children.push {
				plan.push = true
			}
		}
	}
	return plan
}

func (p *fieldPlan) add(entry model.DynamicFieldExternal, origin string, children *fieldPlan) {
	entry.ChildrenDynamicFields = children.out
	p.out = append(p.out, entry)
	p.origins = append(p.origins, fieldOrigin{localID: origin, children: children})
}

// adoptFields records the identities the remote returned for a pushed level
// and brings the mirror tree in line with it.
func (n *nested) adoptFields(plan *fieldPlan, returned []model.DynamicFieldExternal, mirrorID, mirrorParent string) {
	for i, origin := range plan.origins {
		if i >= len(returned) {
			break
		}
		r := &returned[i]
		lf, ok := n.uow.DynamicField(origin.localID)
		if !ok || r.ExternalID == "" {
			continue
		}
		if lf.ExternalID == "" {
			lf.ExternalID = r.ExternalID
			lf.UpdatedAt = r.UpdatedAt
			n.uow.SaveDynamicField(lf)
		}
		mf := n.mirrorField(lf, r, mirrorID, mirrorParent)
		n.adoptFields(origin.children, r.ChildrenDynamicFields, mirrorID, mf.ID)
	}
}

// mirrorField saves lf (when new or re-mated) and returns its mirror holding
// the agreed state r under mirrorParent.
func (n *nested) mirrorField(lf *model.DynamicField, r *model.DynamicFieldExternal, mirrorID, mirrorParent string) *model.DynamicField {
	mf, ok := n.uow.DynamicField(lf.SynchronizationMateID)
	if !ok || !mf.IsSynchronized {
		mf = &model.DynamicField{ID: n.newID(), IsSynchronized: true}
		ok = false
	}
	want := *mf
	want.ExternalID = r.ExternalID
	want.ObjectiveID = mirrorID
	want.ParentFieldID = mirrorParent
	want.Type = r.Type
	want.Name = r.Name
	want.Value = r.Value
	want.UpdatedAt = r.UpdatedAt
	want.SynchronizationMateID = lf.ID
	if !ok || want != *mf {
		n.uow.SaveDynamicField(&want)
	}
	if _, saved := n.uow.DynamicField(lf.ID); !saved || lf.SynchronizationMateID != want.ID {
		lf.SynchronizationMateID = want.ID
		n.uow.SaveDynamicField(lf)
	}
	return &want
}
