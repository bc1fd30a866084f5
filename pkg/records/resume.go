package records

import (
	"sort"

	"passage_router/pkg/resolve"
)

// Resumption is the outcome of matching raw legs against saved leg records.
type Resumption struct {
	Done    []resolve.ResolvedLeg // saved legs forming an unbroken prefix of the input
	Pending []resolve.RawLeg      // every leg from the first unsaved one on, by index
	Prev    *resolve.ResolvedLeg  // last leg of Done, or nil
}

// Resume splits raw legs into the saved prefix and the legs still to
// resolve. Each leg is resolved from the one just before it, so saved
// records after the first unsaved leg are stale and resolved again.
// Saved records whose index is not in raw are dropped.
func Resume(raw []resolve.RawLeg, saved []LegRecord) (Resumption, error) {
	legs := make([]resolve.RawLeg, len(raw))
	copy(legs, raw)
	sort.SliceStable(legs, func(i, j int) bool { return legs[i].Index < legs[j].Index })

	byIndex := make(map[int]LegRecord, len(saved))
	for _, rec := range saved {
		if _, dup := byIndex[rec.Index]; !dup {
			byIndex[rec.Index] = rec
		}
	}

	var res Resumption
	for i, l := range legs {
		rec, ok := byIndex[l.Index]
		if !ok {
			res.Pending = legs[i:]
			break
		}
		rl, err := rec.ToResolvedLeg()
		if err != nil {
			return Resumption{}, err
		}
		res.Done = append(res.Done, rl)
	}
	if len(res.Done) > 0 {
		res.Prev = &res.Done[len(res.Done)-1]
	}
	return res, nil
}

// Merge combines saved and newly resolved legs in index order.
func (r Resumption) Merge(resolved []resolve.ResolvedLeg) []resolve.ResolvedLeg {
	all := make([]resolve.ResolvedLeg, 0, len(r.Done)+len(resolved))
	all = append(all, r.Done...)
	all = append(all, resolved...)
	sort.SliceStable(all, func(i, j int) bool { return all[i].Leg.Index < all[j].Leg.Index })
	return all
}
