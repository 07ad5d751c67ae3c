package sync

import (
	"github.com/mrsbim/bimsync/internal/model"
)

type localEntity interface {
	comparable
	model.Synchronizable
}

type remoteEntity interface {
	comparable
	model.External
}

// Tuple groups the up to three representations of one logical record.
// At least one of them is set.
type Tuple[L localEntity, R remoteEntity] struct {
	Local  L
	Mirror L
	Remote R
}

// HasLocal reports whether the local representation is present.
func (t *Tuple[L, R]) HasLocal() bool {
	var zero L
	return t.Local != zero
}

// HasMirror reports whether the mirror representation is present.
func (t *Tuple[L, R]) HasMirror() bool {
	var zero L
	return t.Mirror != zero
}

// HasRemote reports whether the remote representation is present.
func (t *Tuple[L, R]) HasRemote() bool {
	var zero R
	return t.Remote != zero
}

// ExternalID returns the remote identity of the tuple, preferring the remote
// record, then the mirror, then the local row.
func (t *Tuple[L, R]) ExternalID() string {
	switch {
	case t.HasRemote():
		return t.Remote.GetExternalID()
	case t.HasMirror():
		return t.Mirror.GetExternalID()
	case t.HasLocal():
		return t.Local.GetExternalID()
	}
	return ""
}

// EntityID returns the local id of the tuple, or the mirror id when the
// local row is gone. Remote-only tuples have none.
func (t *Tuple[L, R]) EntityID() string {
	switch {
	case t.HasLocal():
		return t.Local.GetID()
	case t.HasMirror():
		return t.Mirror.GetID()
	}
	return ""
}

// Key identifies the tuple within a run.
func (t *Tuple[L, R]) Key() string {
	if id := t.EntityID(); id != "" {
		return id
	}
	return "external:" + t.ExternalID()
}

// Action classifies the tuple by which representations are present.
func (t *Tuple[L, R]) Action() Action {
	l, m, r := t.HasLocal(), t.HasMirror(), t.HasRemote()
	switch {
	case l && !m && !r:
		return ActionAddToRemote
	case !l && !m && r:
		return ActionAddToLocal
	case l && r:
		return ActionUpdate
	case m:
		return ActionRemove
	}
	return ActionNone
}

// Match groups rows and remote records into tuples.
//
// rows holds local and mirror rows together. A local row is paired with the
// mirror its mate id points at; a tuple is paired with the remote record
// carrying the mirror's external id, or the local row's external id when
// there is no mirror. Local rows come first in input order, then unpaired
// mirrors, then unpaired remote records.
func Match[L localEntity, R remoteEntity](rows []L, remotes []R) []*Tuple[L, R] {
	mirrors := make(map[string]L)
	var locals []L
	var mirrorOrder []string
	for _, row := range rows {
		if row.IsMirror() {
			mirrors[row.GetID()] = row
			mirrorOrder = append(mirrorOrder, row.GetID())
		} else {
			locals = append(locals, row)
		}
	}

	tuples := make([]*Tuple[L, R], 0, len(rows)+len(remotes))
	paired := make(map[string]bool)
	for _, local := range locals {
		t := &Tuple[L, R]{Local: local}
		if mate := local.GetMateID(); mate != "" && !paired[mate] {
			if mirror, ok := mirrors[mate]; ok {
				t.Mirror = mirror
				paired[mate] = true
			}
		}
		tuples = append(tuples, t)
	}
	for _, id := range mirrorOrder {
		if !paired[id] {
			tuples = append(tuples, &Tuple[L, R]{Mirror: mirrors[id]})
		}
	}

	byExternal := make(map[string]*Tuple[L, R])
	for _, t := range tuples {
		var ext string
		if t.HasMirror() {
			ext = t.Mirror.GetExternalID()
		} else {
			ext = t.Local.GetExternalID()
		}
		if ext == "" {
			continue
		}
		if _, dup := byExternal[ext]; !dup {
			byExternal[ext] = t
		}
	}

	for _, remote := range remotes {
		if t, ok := byExternal[remote.GetExternalID()]; ok && !t.HasRemote() {
			t.Remote = remote
			continue
		}
		tuples = append(tuples, &Tuple[L, R]{Remote: remote})
	}
	return tuples
}
