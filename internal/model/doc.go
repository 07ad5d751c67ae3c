// Package model defines the records exchanged by the synchronization engine.
//
// # Overview
//
// Every synchronizable record type exists in up to three shapes:
//
//   - a local row the user edits (IsSynchronized = false)
//   - a mirror row holding the last state both sides agreed on (IsSynchronized = true)
//   - a remote record in the external system, carried as an *External DTO
//
// A local row and its mirror point at each other through SynchronizationMateID.
// The mirror is never edited by users; the engine rewrites it after every
// successful push or pull, so it always serves as the baseline of the next
// three-way merge.
//
// # Entities
//
//   - Project: top-level container, owns Items through ProjectItem links
//   - Objective: issue-like record in a Project, forms a tree via ParentObjectiveID
//   - Item: a file (document, media, BIM model) linked to Projects and Objectives
//   - BimElement: element inside a BIM model, keyed by (GlobalID, ParentName)
//   - DynamicField: user-defined field tree hanging off an Objective
//   - Location: optional point in a model bound to one Item
//
// # Usage Examples
//
// Creating a local objective:
//
//	obj := &model.Objective{
//	    ID:        uuid.NewString(),
//	    ProjectID: project.ID,
//	    Title:     "Clash between duct and beam",
//	    Status:    model.StatusOpen,
//	    UpdatedAt: time.Now().UTC(),
//	}
//	if err := obj.Validate(); err != nil {
//	    return err
//	}
//
// Converting a pulled record:
//
//	local := model.ObjectiveFromExternal(dto)
package model
