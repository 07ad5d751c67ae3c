package sync

import (
	"fmt"

	"github.com/mrsbim/bimsync/internal/model"
	"github.com/mrsbim/bimsync/internal/store"
)

// attacher translates objective references between local ids and remote
// external ids. Local and mirror rows reference rows of their own kind:
// a local objective points at a local project, a mirror at a mirror.
type attacher struct {
	uow *store.UnitOfWork
}

func (a *attacher) projectExternalID(id string) string {
	p, ok := a.uow.Project(id)
	if !ok {
		return ""
	}
	if p.ExternalID != "" {
		return p.ExternalID
	}
	if mate, ok := a.uow.Project(p.SynchronizationMateID); ok {
		return mate.ExternalID
	}
	return ""
}

func (a *attacher) objectiveExternalID(id string) string {
	o, ok := a.uow.Objective(id)
	if !ok {
		return ""
	}
	if o.ExternalID != "" {
		return o.ExternalID
	}
	if mate, ok := a.uow.Objective(o.SynchronizationMateID); ok {
		return mate.ExternalID
	}
	return ""
}

// ParentExternalID returns the external id of the objective's parent, or ""
// for a root objective or a parent that was never synchronized.
func (a *attacher) ParentExternalID(o *model.Objective) string {
	if o.ParentObjectiveID == "" {
		return ""
	}
	return a.objectiveExternalID(o.ParentObjectiveID)
}

// AttachRemote fills the project and parent references of dto from local.
func (a *attacher) AttachRemote(dto *model.ObjectiveExternal, local *model.Objective) error {
	dto.ProjectExternalID = a.projectExternalID(local.ProjectID)
	if dto.ProjectExternalID == "" {
		return fmt.Errorf("objective %s: %w", local.ID, ErrProjectNotSynchronized)
	}
	dto.ParentObjectiveExternalID = ""
	if local.ParentObjectiveID != "" {
		parent := a.objectiveExternalID(local.ParentObjectiveID)
		if parent == "" {
			return fmt.Errorf("objective %s: parent %s: %w", local.ID, local.ParentObjectiveID, ErrParentNotSynchronized)
		}
		dto.ParentObjectiveExternalID = parent
	}
	return nil
}

// AttachLocal resolves the project and parent references of dto to the ids
// of local and mirror rows.
func (a *attacher) AttachLocal(local, mirror *model.Objective, dto *model.ObjectiveExternal) error {
	localProject, mirrorProject := a.findProject(dto.ProjectExternalID)
	if localProject == "" || mirrorProject == "" {
		return fmt.Errorf("objective %s: project %s: %w", dto.ExternalID, dto.ProjectExternalID, ErrProjectNotSynchronized)
	}
	local.ProjectID = localProject
	mirror.ProjectID = mirrorProject
	return a.SetParent(local, mirror, dto.ParentObjectiveExternalID)
}

// SetParent points local and mirror at the objective with the given
// external id, or makes them roots when it is empty.
func (a *attacher) SetParent(local, mirror *model.Objective, parentExternalID string) error {
	if parentExternalID == "" {
		local.ParentObjectiveID = ""
		mirror.ParentObjectiveID = ""
		return nil
	}
	localParent, mirrorParent := a.findObjective(parentExternalID)
	if mirrorParent == "" {
		return fmt.Errorf("objective %s: parent %s: %w", local.ID, parentExternalID, ErrParentNotSynchronized)
	}
	local.ParentObjectiveID = localParent
	mirror.ParentObjectiveID = mirrorParent
	return nil
}

// MirrorProjectID returns the mirror of a local project.
func (a *attacher) MirrorProjectID(localID string) string {
	if p, ok := a.uow.Project(localID); ok {
		if _, ok := a.uow.Project(p.SynchronizationMateID); ok {
			return p.SynchronizationMateID
		}
	}
	return ""
}

// MirrorObjectiveID returns the mirror of a local objective.
func (a *attacher) MirrorObjectiveID(localID string) string {
	if localID == "" {
		return ""
	}
	if o, ok := a.uow.Objective(localID); ok {
		if _, ok := a.uow.Objective(o.SynchronizationMateID); ok {
			return o.SynchronizationMateID
		}
	}
	return ""
}

// LocalProjectID returns the local project a remote project reference
// points at.
func (a *attacher) LocalProjectID(externalID string) string {
	local, _ := a.findProject(externalID)
	return local
}

// LocalObjectiveID returns the local objective a remote reference points at.
func (a *attacher) LocalObjectiveID(externalID string) string {
	local, _ := a.findObjective(externalID)
	return local
}

func (a *attacher) findProject(externalID string) (local, mirror string) {
	if externalID == "" {
		return "", ""
	}
	for _, p := range a.uow.Projects(store.Synchronized) {
		if p.ExternalID == externalID {
			if mate, ok := a.uow.Project(p.SynchronizationMateID); ok {
				return mate.ID, p.ID
			}
			return "", p.ID
		}
	}
	return "", ""
}

func (a *attacher) findObjective(externalID string) (local, mirror string) {
	if externalID == "" {
		return "", ""
	}
	for _, o := range a.uow.Objectives(store.Synchronized) {
		if o.ExternalID == externalID {
			if mate, ok := a.uow.Objective(o.SynchronizationMateID); ok {
				return mate.ID, o.ID
			}
			return "", o.ID
		}
	}
	return "", ""
}
