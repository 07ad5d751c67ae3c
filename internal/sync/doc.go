// Package sync implements the three-way synchronization engine.
//
// # Overview
//
// Every synchronized record exists locally (user-editable), as a mirror
// (the last state both sides agreed on) and remotely (in the external system
// behind a connection.Connector). A run reconciles the three:
//
//   - Projects first, then Objectives scoped to the projects that synced
//   - local, mirror and remote rows are grouped into tuples by identity
//   - each tuple is classified (add to remote, add to local, update, remove)
//   - updates merge field by field against the mirror as baseline
//   - nested items, BIM elements, dynamic fields and locations are merged
//     one level down with the same rules
//
// # Tuple Classification
//
//	Local  Mirror  Remote   Action
//	  x      -       -      AddToRemote
//	  -      -       x      AddToLocal
//	  -      x       x      Remove (remote + mirror)
//	  x      x       -      Remove (local + mirror)
//	  -      x       -      Remove (mirror)
//	  x      x       x      Update
//	  x      -       x      Update (no baseline)
//
// # Three-way Merge
//
// For each field: if only the local value differs from the mirror, the local
// value wins; if only the remote differs, the remote wins; if both differ,
// the side with the later UpdatedAt wins (ties keep local). Locations are
// merged as one record.
//
// # Failure Isolation
//
// Each top-level entity is applied and committed on its own. When a remote
// call or the commit fails, the staged changes of that entity are detached
// from the unit of work and a Result is recorded; the run continues. Only
// setup failures (no unit of work, no connection context) abort a run.
//
// # Usage
//
//	syncer := sync.New(db, &sync.Options{Logger: logger})
//	results, err := syncer.Synchronize(ctx, sync.RunConfig{UserID: "u1"}, conn, info, nil)
//	if err != nil {
//	    return err // setup failure or cancellation
//	}
//	for _, r := range results {
//	    log.Printf("%s %s failed: %v", r.EntityType, r.EntityID, r.Err)
//	}
package sync
