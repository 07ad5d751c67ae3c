package sync

import (
	"sort"

	"github.com/mrsbim/bimsync/internal/model"
)

type bimPlan struct {
	out     []model.BimElementExternal
	pending []model.BimKey // pushed elements the mirror does not link yet
	push    bool
}

// reconcileBimElements merges the element links of an objective. Elements
// have no remote identity; they are matched by (GlobalID, ParentName).
// mirrorID is empty when the objective has no mirror yet.
func (n *nested) reconcileBimElements(localID, mirrorID string, remote []model.BimElementExternal) *bimPlan {
	locals := make(map[model.BimKey]*model.BimElement)
	for _, el := range n.uow.BimElementsOf(localID) {
		locals[el.Key()] = el
	}
	mirrors := make(map[model.BimKey]*model.BimElement)
	if mirrorID != "" {
		for _, el := range n.uow.BimElementsOf(mirrorID) {
			mirrors[el.Key()] = el
		}
	}
	remotes := make(map[model.BimKey]*model.BimElementExternal)
	for i := range remote {
		remotes[remote[i].Key()] = &remote[i]
	}

	keys := make([]model.BimKey, 0, len(locals)+len(remotes))
	seen := make(map[model.BimKey]bool)
	for _, set := range []map[model.BimKey]bool{keySet(locals), keySet(mirrors), keySet(remotes)} {
		for k := range set {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].GlobalID != keys[j].GlobalID {
			return keys[i].GlobalID < keys[j].GlobalID
		}
		return keys[i].ParentName < keys[j].ParentName
	})

	plan := &bimPlan{}
	for _, k := range keys {
		l, m, r := locals[k], mirrors[k], remotes[k]
		switch {
		case l != nil && m == nil && r == nil:
			plan.out = append(plan.out, l.ToExternal())
			plan.pending = append(plan.pending, k)
			plan.push = true

		case l == nil && m == nil && r != nil:
			el := n.bimElement(r)
			n.uow.LinkBimElement(localID, el.ID)
			if mirrorID != "" {
				n.uow.LinkBimElement(mirrorID, el.ID)
			}
			plan.out = append(plan.out, *r)

		case l == nil && m != nil && r != nil:
			n.uow.UnlinkBimElement(mirrorID, m.ID)
			plan.push = true

		case l != nil && m != nil && r == nil:
			n.uow.UnlinkBimElement(localID, l.ID)
			n.uow.UnlinkBimElement(mirrorID, m.ID)

		case l == nil && m != nil && r == nil:
			n.uow.UnlinkBimElement(mirrorID, m.ID)

		case l != nil && r != nil:
			if m == nil && mirrorID != "" {
				n.uow.LinkBimElement(mirrorID, l.ID)
			}
			plan.out = append(plan.out, *r)
		}
	}
	return plan
}

// adoptBimElements links the pushed elements to the mirror objective.
func (n *nested) adoptBimElements(plan *bimPlan, mirrorID string) {
	for _, k := range plan.pending {
		if el, ok := n.uow.BimElementByKey(k); ok {
			n.uow.LinkBimElement(mirrorID, el.ID)
		}
	}
}

func (n *nested) bimElement(r *model.BimElementExternal) *model.BimElement {
	if el, ok := n.uow.BimElementByKey(r.Key()); ok {
		return el
	}
	el := &model.BimElement{
		ID:          n.newID(),
		GlobalID:    r.GlobalID,
		ParentName:  r.ParentName,
		ElementName: r.ElementName,
	}
	n.uow.SaveBimElement(el)
	return el
}

func keySet[V any](m map[model.BimKey]V) map[model.BimKey]bool {
	out := make(map[model.BimKey]bool, len(m))
	for k := range m {
		out[k] = true
	}
	return out
}
