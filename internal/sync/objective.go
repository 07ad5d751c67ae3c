package sync

import (
	"context"
	"errors"
	"fmt"

	"github.com/mrsbim/bimsync/internal/connection"
	"github.com/mrsbim/bimsync/internal/model"
	"github.com/mrsbim/bimsync/internal/store"
)

type objectiveTuple = Tuple[*model.Objective, *model.ObjectiveExternal]

// objectiveStrategy synchronizes objectives with everything nested in them.
type objectiveStrategy struct {
	*nested
	remote connection.Connector[*model.ObjectiveExternal]
	attach *attacher
}

func (s *objectiveStrategy) LoadLocal() []*model.Objective {
	return s.uow.Objectives(store.All)
}

func (s *objectiveStrategy) Map(remote *model.ObjectiveExternal) *model.Objective {
	o := model.ObjectiveFromExternal(remote)
	o.ProjectID = s.attach.LocalProjectID(remote.ProjectExternalID)
	o.ParentObjectiveID = s.attach.LocalObjectiveID(remote.ParentObjectiveExternalID)
	if id := s.attach.LocalObjectiveID(remote.ExternalID); id != "" {
		o.ID = id
	}
	return o
}

// Order sorts the objectives so every parent precedes its children. A tuple
// can name up to three parents (local, mirror and remote) and all of them are
// placed first. A parent cycle is cut at the member visited first.
func (s *objectiveStrategy) Order(tuples []*objectiveTuple) []*objectiveTuple {
	byLocal := make(map[string]*objectiveTuple)
	byMirror := make(map[string]*objectiveTuple)
	byExternal := make(map[string]*objectiveTuple)
	for _, t := range tuples {
		if t.HasLocal() {
			byLocal[t.Local.ID] = t
		}
		if t.HasMirror() {
			byMirror[t.Mirror.ID] = t
		}
		if ext := t.ExternalID(); ext != "" {
			byExternal[ext] = t
		}
	}

	parentsOf := func(t *objectiveTuple) []*objectiveTuple {
		var parents []*objectiveTuple
		if t.HasLocal() && t.Local.ParentObjectiveID != "" {
			if p, ok := byLocal[t.Local.ParentObjectiveID]; ok {
				parents = append(parents, p)
			}
		}
		if t.HasMirror() && t.Mirror.ParentObjectiveID != "" {
			if p, ok := byMirror[t.Mirror.ParentObjectiveID]; ok {
				parents = append(parents, p)
			}
		}
		if t.HasRemote() && t.Remote.ParentObjectiveExternalID != "" {
			if p, ok := byExternal[t.Remote.ParentObjectiveExternalID]; ok {
				parents = append(parents, p)
			}
		}
		return parents
	}

	const (
		visiting = 1
		done     = 2
	)
	out := make([]*objectiveTuple, 0, len(tuples))
	state := make(map[*objectiveTuple]int)
	var visit func(t *objectiveTuple)
	visit = func(t *objectiveTuple) {
		if state[t] != 0 {
			return
		}
		state[t] = visiting
		for _, p := range parentsOf(t) {
			visit(p)
		}
		state[t] = done
		out = append(out, t)
	}
	for _, t := range tuples {
		visit(t)
	}
	return out
}

func (s *objectiveStrategy) AddToRemote(ctx context.Context, t *objectiveTuple) error {
	local := t.Local
	dto := local.ToExternal()
	if err := s.attach.AttachRemote(dto, local); err != nil {
		return err
	}

	items := s.reconcileItems(store.ObjectiveOwner(local.ID), store.Owner{Kind: store.OwnerObjective}, nil)
	bims := s.reconcileBimElements(local.ID, "", nil)
	fields := s.reconcileFields(local.ID, "", "", "", nil)
	loc := s.reconcileLocation(local.ID, "", nil, false)
	dto.Items = items.out
	dto.BimElements = bims.out
	dto.DynamicFields = fields.out
	dto.Location = loc.out

	created, err := s.remote.Add(ctx, dto)
	if err != nil {
		return remoteError("add objective", "", err)
	}

	mirror := model.ObjectiveFromExternal(created)
	mirror.ID = s.newID()
	mirror.IsSynchronized = true
	mirror.SynchronizationMateID = local.ID
	mirror.AuthorID = local.AuthorID
	mirror.ProjectID = s.attach.MirrorProjectID(local.ProjectID)
	mirror.ParentObjectiveID = s.attach.MirrorObjectiveID(local.ParentObjectiveID)
	s.uow.SaveObjective(mirror)

	local.ExternalID = created.ExternalID
	local.UpdatedAt = created.UpdatedAt
	local.SynchronizationMateID = mirror.ID
	s.uow.SaveObjective(local)

	s.adoptNested(mirror.ID, created, items, bims, fields, loc)
	t.Mirror, t.Remote = mirror, created
	return nil
}

func (s *objectiveStrategy) AddToLocal(ctx context.Context, t *objectiveTuple) error {
	r := t.Remote
	local := model.ObjectiveFromExternal(r)
	local.ID = s.newID()
	mirror := model.ObjectiveFromExternal(r)
	mirror.ID = s.newID()
	mirror.IsSynchronized = true
	if err := s.attach.AttachLocal(local, mirror, r); err != nil {
		return err
	}

	local.SynchronizationMateID = mirror.ID
	mirror.SynchronizationMateID = local.ID
	s.uow.SaveObjective(local)
	s.uow.SaveObjective(mirror)

	s.reconcileItems(store.ObjectiveOwner(local.ID), store.ObjectiveOwner(mirror.ID), r.Items)
	s.reconcileBimElements(local.ID, mirror.ID, r.BimElements)
	s.reconcileFields(local.ID, mirror.ID, "", "", r.DynamicFields)
	s.reconcileLocation(local.ID, mirror.ID, r.Location, true)
	t.Local, t.Mirror = local, mirror
	return nil
}

func (s *objectiveStrategy) Update(ctx context.Context, t *objectiveTuple) error {
	local, r := t.Local, t.Remote
	remoteNewer := model.Later(r.UpdatedAt, local.UpdatedAt)

	var base *model.Objective
	mirror := t.Mirror
	if mirror != nil {
		base = mirror
	} else {
		mirror = &model.Objective{
			ID:                    s.newID(),
			IsSynchronized:        true,
			SynchronizationMateID: local.ID,
			ProjectID:             s.attach.MirrorProjectID(local.ProjectID),
		}
	}
	merged, outcome := mergeFields(objectiveFields, base, local, model.ObjectiveFromExternal(r), remoteNewer)

	// The parent is merged by external identity.
	localParent := s.attach.ParentExternalID(local)
	if local.ParentObjectiveID != "" && localParent == "" {
		return fmt.Errorf("objective %s: parent %s: %w", local.ID, local.ParentObjectiveID, ErrParentNotSynchronized)
	}
	remoteParent := r.ParentObjectiveExternalID
	var parent string
	if base != nil {
		mirrorParent := s.attach.ParentExternalID(base)
		parent = Merge(mirrorParent, localParent, remoteParent,
			localParent != mirrorParent, remoteParent != mirrorParent, remoteNewer)
	} else {
		differ := localParent != remoteParent
		parent = Merge(localParent, localParent, remoteParent, differ, differ, remoteNewer)
	}

	// The mirror row must exist before its links.
	before := *mirror
	applyObjective(mirror, r)
	mirror.SynchronizationMateID = local.ID
	if err := s.attach.SetParent(merged, mirror, parent); err != nil {
		return err
	}
	if base == nil || before != *mirror {
		s.uow.SaveObjective(mirror)
	}

	items := s.reconcileItems(store.ObjectiveOwner(local.ID), store.ObjectiveOwner(mirror.ID), r.Items)
	bims := s.reconcileBimElements(local.ID, mirror.ID, r.BimElements)
	fields := s.reconcileFields(local.ID, mirror.ID, "", "", r.DynamicFields)
	loc := s.reconcileLocation(local.ID, mirror.ID, r.Location, remoteNewer)

	agreed := r
	if outcome.RemoteDirty || parent != remoteParent || items.push || bims.push || fields.push || loc.push {
		dto := merged.ToExternal()
		dto.ExternalID = r.ExternalID
		dto.ProjectExternalID = r.ProjectExternalID
		dto.ParentObjectiveExternalID = parent
		dto.AuthorExternalID = r.AuthorExternalID
		dto.Items = items.out
		dto.BimElements = bims.out
		dto.DynamicFields = fields.out
		dto.Location = loc.out
		updated, err := s.remote.Update(ctx, dto)
		if err != nil {
			return remoteError("update objective", r.ExternalID, err)
		}
		s.adoptNested(mirror.ID, updated, items, bims, fields, loc)
		agreed = updated

		before = *mirror
		applyObjective(mirror, agreed)
		if before != *mirror {
			s.uow.SaveObjective(mirror)
		}
	}

	merged.ExternalID = r.ExternalID
	merged.SynchronizationMateID = mirror.ID
	if outcome.LocalDirty {
		merged.UpdatedAt = agreed.UpdatedAt
	}
	if *merged != *local {
		s.uow.SaveObjective(merged)
	}
	t.Local, t.Mirror, t.Remote = merged, mirror, agreed
	return nil
}

func (s *objectiveStrategy) Remove(ctx context.Context, t *objectiveTuple) error {
	switch {
	case t.HasRemote():
		// Deleted locally.
		if err := s.remote.Remove(ctx, t.Remote); err != nil && !errors.Is(err, connection.ErrNotFound) {
			return remoteError("remove objective", t.Remote.ExternalID, err)
		}
		s.uow.DeleteObjective(t.Mirror.ID)
	case t.HasLocal():
		// Deleted remotely.
		s.uow.DeleteObjective(t.Local.ID)
		s.uow.DeleteObjective(t.Mirror.ID)
	default:
		s.uow.DeleteObjective(t.Mirror.ID)
	}
	return nil
}

func (s *objectiveStrategy) adoptNested(mirrorID string, r *model.ObjectiveExternal, items *itemPlan, bims *bimPlan, fields *fieldPlan, loc *locationPlan) {
	s.adoptItems(items, r.Items, store.ObjectiveOwner(mirrorID))
	s.adoptBimElements(bims, mirrorID)
	s.adoptFields(fields, r.DynamicFields, mirrorID, "")
	s.adoptLocation(loc, r.Location, mirrorID)
}

// applyObjective copies the scalar fields of r onto a mirror row.
func applyObjective(mirror *model.Objective, r *model.ObjectiveExternal) {
	mirror.ExternalID = r.ExternalID
	mirror.ObjectiveType = r.ObjectiveType
	mirror.Title = r.Title
	mirror.Description = r.Description
	mirror.Status = r.Status
	mirror.CreationDate = r.CreationDate
	mirror.DueDate = r.DueDate
	mirror.UpdatedAt = r.UpdatedAt
}
