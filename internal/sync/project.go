package sync

import (
	"context"
	"errors"

	"github.com/mrsbim/bimsync/internal/connection"
	"github.com/mrsbim/bimsync/internal/model"
	"github.com/mrsbim/bimsync/internal/store"
)

type projectTuple = Tuple[*model.Project, *model.ProjectExternal]

// projectStrategy synchronizes projects and the items linked to them.
type projectStrategy struct {
	*nested
	remote connection.Connector[*model.ProjectExternal]
}

func (s *projectStrategy) LoadLocal() []*model.Project {
	return s.uow.Projects(store.All)
}

func (s *projectStrategy) Map(remote *model.ProjectExternal) *model.Project {
	p := model.ProjectFromExternal(remote)
	if local, ok := s.findLocal(remote.ExternalID); ok {
		p.ID = local.ID
	}
	return p
}

func (s *projectStrategy) findLocal(externalID string) (*model.Project, bool) {
	for _, p := range s.uow.Projects(store.Unsynchronized) {
		if p.ExternalID == externalID {
			return p, true
		}
	}
	return nil, false
}

// Order keeps the matching order; projects are flat.
func (s *projectStrategy) Order(tuples []*projectTuple) []*projectTuple {
	return tuples
}

func (s *projectStrategy) AddToRemote(ctx context.Context, t *projectTuple) error {
	local := t.Local
	items := s.reconcileItems(store.ProjectOwner(local.ID), store.Owner{Kind: store.OwnerProject}, nil)

	dto := local.ToExternal()
	dto.Items = items.out
	created, err := s.remote.Add(ctx, dto)
	if err != nil {
		return remoteError("add project", "", err)
	}

	mirror := model.ProjectFromExternal(created)
	mirror.ID = s.newID()
	mirror.IsSynchronized = true
	mirror.SynchronizationMateID = local.ID
	s.uow.SaveProject(mirror)

	local.ExternalID = created.ExternalID
	local.UpdatedAt = created.UpdatedAt
	local.SynchronizationMateID = mirror.ID
	s.uow.SaveProject(local)

	s.adoptItems(items, created.Items, store.ProjectOwner(mirror.ID))
	t.Mirror, t.Remote = mirror, created
	return nil
}

func (s *projectStrategy) AddToLocal(ctx context.Context, t *projectTuple) error {
	r := t.Remote
	local := model.ProjectFromExternal(r)
	local.ID = s.newID()
	mirror := model.ProjectFromExternal(r)
	mirror.ID = s.newID()
	mirror.IsSynchronized = true

	local.SynchronizationMateID = mirror.ID
	mirror.SynchronizationMateID = local.ID
	s.uow.SaveProject(local)
	s.uow.SaveProject(mirror)

	s.reconcileItems(store.ProjectOwner(local.ID), store.ProjectOwner(mirror.ID), r.Items)
	t.Local, t.Mirror = local, mirror
	return nil
}

func (s *projectStrategy) Update(ctx context.Context, t *projectTuple) error {
	local, r := t.Local, t.Remote
	remoteNewer := model.Later(r.UpdatedAt, local.UpdatedAt)

	var base *model.Project
	mirror := t.Mirror
	if mirror != nil {
		base = mirror
	} else {
		mirror = &model.Project{ID: s.newID(), IsSynchronized: true, SynchronizationMateID: local.ID}
	}
	merged, outcome := mergeFields(projectFields, base, local, model.ProjectFromExternal(r), remoteNewer)

	// The mirror row must exist before its item links.
	before := *mirror
	mirror.ExternalID = r.ExternalID
	mirror.Title = r.Title
	mirror.UpdatedAt = r.UpdatedAt
	mirror.SynchronizationMateID = local.ID
	if base == nil || before != *mirror {
		s.uow.SaveProject(mirror)
	}

	items := s.reconcileItems(store.ProjectOwner(local.ID), store.ProjectOwner(mirror.ID), r.Items)

	agreed := r
	if outcome.RemoteDirty || items.push {
		dto := merged.ToExternal()
		dto.ExternalID = r.ExternalID
		dto.Items = items.out
		updated, err := s.remote.Update(ctx, dto)
		if err != nil {
			return remoteError("update project", r.ExternalID, err)
		}
		s.adoptItems(items, updated.Items, store.ProjectOwner(mirror.ID))
		agreed = updated

		before = *mirror
		mirror.Title = agreed.Title
		mirror.UpdatedAt = agreed.UpdatedAt
		if before != *mirror {
			s.uow.SaveProject(mirror)
		}
	}

	merged.ExternalID = r.ExternalID
	merged.SynchronizationMateID = mirror.ID
	if outcome.LocalDirty {
		merged.UpdatedAt = agreed.UpdatedAt
	}
	if *merged != *local {
		s.uow.SaveProject(merged)
	}
	t.Local, t.Mirror, t.Remote = merged, mirror, agreed
	return nil
}

func (s *projectStrategy) Remove(ctx context.Context, t *projectTuple) error {
	switch {
	case t.HasRemote():
		// Deleted locally.
		if err := s.remote.Remove(ctx, t.Remote); err != nil && !errors.Is(err, connection.ErrNotFound) {
			return remoteError("remove project", t.Remote.ExternalID, err)
		}
		s.uow.DeleteProject(t.Mirror.ID)
	case t.HasLocal():
		// Deleted remotely.
		s.uow.DeleteProject(t.Local.ID)
		s.uow.DeleteProject(t.Mirror.ID)
	default:
		s.uow.DeleteProject(t.Mirror.ID)
	}
	return nil
}
