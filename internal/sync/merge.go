package sync

import (
	"time"

	"github.com/mrsbim/bimsync/internal/model"
)

// Merge resolves one field of a three-way merge.
//
// When only one side changed its value relative to the baseline, that side
// wins. When both changed, the remote wins only if it is newer.
func Merge[V any](baseline, local, remote V, localChanged, remoteChanged, remoteNewer bool) V {
	switch {
	case localChanged && remoteChanged:
		if remoteNewer {
			return remote
		}
		return local
	case localChanged:
		return local
	case remoteChanged:
		return remote
	default:
		return baseline
	}
}

// field is one mergeable attribute of T.
type field[T any] struct {
	name    string
	differs func(a, b *T) bool
	merge   func(dst, base, local, remote *T, localChanged, remoteChanged, remoteNewer bool)
}

func scalar[T any, V comparable](name string, get func(*T) V, set func(*T, V)) field[T] {
	return custom(name, get, set, func(a, b V) bool { return a == b })
}

func instant[T any](name string, get func(*T) time.Time, set func(*T, time.Time)) field[T] {
	return custom(name, get, set, model.SameInstant)
}

func custom[T, V any](name string, get func(*T) V, set func(*T, V), equal func(a, b V) bool) field[T] {
	return field[T]{
		name: name,
		differs: func(a, b *T) bool {
			return !equal(get(a), get(b))
		},
		merge: func(dst, base, local, remote *T, lc, rc, newer bool) {
			set(dst, Merge(get(base), get(local), get(remote), lc, rc, newer))
		},
	}
}

// mergeOutcome describes how a merged record relates to its inputs.
type mergeOutcome struct {
	// Conflicts names the fields both sides changed.
	Conflicts []string
	// LocalDirty is set when the merged record differs from the local one.
	LocalDirty bool
	// RemoteDirty is set when the merged record differs from the remote one.
	RemoteDirty bool
}

// mergeFields merges local and remote field by field into a copy of local.
// A nil base means there is no agreed state: every differing field is a
// conflict.
func mergeFields[T any](fields []field[T], base, local, remote *T, remoteNewer bool) (*T, mergeOutcome) {
	merged := *local
	var out mergeOutcome
	for _, f := range fields {
		var lc, rc bool
		b := base
		if b == nil {
			lc = f.differs(local, remote)
			rc = lc
			b = local
		} else {
			lc = f.differs(local, base)
			rc = f.differs(remote, base)
		}
		if lc && rc && f.differs(local, remote) {
			out.Conflicts = append(out.Conflicts, f.name)
		}
		f.merge(&merged, b, local, remote, lc, rc, remoteNewer)
	}
	for _, f := range fields {
		if f.differs(&merged, local) {
			out.LocalDirty = true
		}
		if f.differs(&merged, remote) {
			out.RemoteDirty = true
		}
	}
	return &merged, out
}

// sameFields reports whether a and b agree on every field.
func sameFields[T any](fields []field[T], a, b *T) bool {
	for _, f := range fields {
		if f.differs(a, b) {
			return false
		}
	}
	return true
}

var projectFields = []field[model.Project]{
	scalar("title",
		func(p *model.Project) string { return p.Title },
		func(p *model.Project, v string) { p.Title = v }),
}

var objectiveFields = []field[model.Objective]{
	scalar("title",
		func(o *model.Objective) string { return o.Title },
		func(o *model.Objective, v string) { o.Title = v }),
	scalar("description",
		func(o *model.Objective) string { return o.Description },
		func(o *model.Objective, v string) { o.Description = v }),
	scalar("status",
		func(o *model.Objective) model.ObjectiveStatus { return o.Status },
		func(o *model.Objective, v model.ObjectiveStatus) { o.Status = v }),
	scalar("objective_type",
		func(o *model.Objective) string { return o.ObjectiveType },
		func(o *model.Objective, v string) { o.ObjectiveType = v }),
	instant("due_date",
		func(o *model.Objective) time.Time { return o.DueDate },
		func(o *model.Objective, v time.Time) { o.DueDate = v }),
	instant("creation_date",
		func(o *model.Objective) time.Time { return o.CreationDate },
		func(o *model.Objective, v time.Time) { o.CreationDate = v }),
}

var itemFields = []field[model.Item]{
	scalar("relative_path",
		func(i *model.Item) string { return i.RelativePath },
		func(i *model.Item, v string) { i.RelativePath = v }),
	scalar("item_type",
		func(i *model.Item) model.ItemType { return i.ItemType },
		func(i *model.Item, v model.ItemType) { i.ItemType = v }),
}

var dynamicFieldFields = []field[model.DynamicField]{
	scalar("type",
		func(f *model.DynamicField) string { return f.Type },
		func(f *model.DynamicField, v string) { f.Type = v }),
	scalar("name",
		func(f *model.DynamicField) string { return f.Name },
		func(f *model.DynamicField, v string) { f.Name = v }),
	scalar("value",
		func(f *model.DynamicField) string { return f.Value },
		func(f *model.DynamicField, v string) { f.Value = v }),
}
