// Package keyed reconciles two renderings of an ordered, id-keyed list.
//
// Views use the resulting Patch to touch only rows whose key appeared or
// disappeared (or whose value changed); every other row is left alone.
package keyed

import "storevec/internal/model"

// Insert places Item directly after the row keyed After. A zero After means
// the head of the list.
type Insert struct {
	After model.ItemID `json:"after"`
	Item  model.Item   `json:"item"`
}

type Patch struct {
	Removed []model.ItemID `json:"removed,omitempty"`
	Added   []Insert       `json:"added,omitempty"`
	Updated []model.Item   `json:"updated,omitempty"`
}

func (p Patch) Empty() bool {
	return len(p.Removed) == 0 && len(p.Added) == 0 && len(p.Updated) == 0
}

// Diff computes the patch that turns prev into next.
//
// Rows present in both lists are assumed to keep their relative order, which
// holds for every list operation in this module (only explicit inserts and
// removals reorder). Added rows are reported in next-order so applying the
// inserts one by one reproduces next.
func Diff(prev, next []model.Item) Patch {
	before := make(map[model.ItemID]string, len(prev))
	for _, it := range prev {
		before[it.ID] = it.Value
	}
	after := make(map[model.ItemID]struct{}, len(next))
	for _, it := range next {
		after[it.ID] = struct{}{}
	}

	var p Patch
	for _, it := range prev {
		if _, ok := after[it.ID]; !ok {
			p.Removed = append(p.Removed, it.ID)
		}
	}

	var anchor model.ItemID
	for _, it := range next {
		v, ok := before[it.ID]
		switch {
		case !ok:
			p.Added = append(p.Added, Insert{After: anchor, Item: it})
		case v != it.Value:
			p.Updated = append(p.Updated, it)
		}
		anchor = it.ID
	}
	return p
}

// Apply replays p on top of prev. It is the inverse check of Diff and is used
// by clients that keep their own copy of the rows.
func Apply(prev []model.Item, p Patch) []model.Item {
	removed := make(map[model.ItemID]struct{}, len(p.Removed))
	for _, id := range p.Removed {
		removed[id] = struct{}{}
	}
	updated := make(map[model.ItemID]string, len(p.Updated))
	for _, it := range p.Updated {
		updated[it.ID] = it.Value
	}

	out := make([]model.Item, 0, len(prev)+len(p.Added))
	for _, it := range prev {
		if _, ok := removed[it.ID]; ok {
			continue
		}
		if v, ok := updated[it.ID]; ok {
			it.Value = v
		}
		out = append(out, it)
	}

	for _, ins := range p.Added {
		at := 0
		if !ins.After.IsZero() {
			at = len(out)
			for i, it := range out {
				if it.ID == ins.After {
					at = i + 1
					break
				}
			}
		}
		out = append(out, model.Item{})
		copy(out[at+1:], out[at:])
		out[at] = ins.Item
	}
	return out
}
