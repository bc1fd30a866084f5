package records

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"passage_router/pkg/resolve"
)

func savedLeg(index int) LegRecord {
	rl := sampleResolvedLeg()
	rl.Leg.Index = index
	return FromResolvedLeg(rl)
}

func rawLegs(indexes ...int) []resolve.RawLeg {
	legs := make([]resolve.RawLeg, len(indexes))
	for i, idx := range indexes {
		legs[i] = resolve.RawLeg{Index: idx, From: "A", To: "B"}
	}
	return legs
}

func indexesOf(legs []resolve.RawLeg) []int {
	var out []int
	for _, l := range legs {
		out = append(out, l.Index)
	}
	return out
}

func TestResume(t *testing.T) {
	tests := []struct {
		name        string
		raw         []int
		saved       []int
		wantDone    int
		wantPending []int
		wantPrev    int // 0 means nil
	}{
		{"fresh run", []int{1, 2, 3}, nil, 0, []int{1, 2, 3}, 0},
		{"continue after prefix", []int{1, 2, 3, 4}, []int{2, 1}, 2, []int{3, 4}, 2},
		{"everything done", []int{1, 2}, []int{1, 2}, 2, nil, 2},
		{"saved leg after a gap is resolved again", []int{1, 2, 3, 4}, []int{1, 2, 4}, 2, []int{3, 4}, 2},
		{"alternating gaps", []int{1, 2, 3, 4}, []int{1, 3}, 1, []int{2, 3, 4}, 1},
		{"first leg missing", []int{1, 2, 3}, []int{2, 3}, 0, []int{1, 2, 3}, 0},
		{"stale records dropped", []int{5, 6}, []int{1, 5}, 1, []int{6}, 5},
		{"duplicates kept once", []int{1, 2}, []int{1, 1}, 1, []int{2}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var saved []LegRecord
			for _, idx := range tt.saved {
				saved = append(saved, savedLeg(idx))
			}
			res, err := Resume(rawLegs(tt.raw...), saved)
			require.NoError(t, err)

			assert.Len(t, res.Done, tt.wantDone)
			assert.Equal(t, tt.wantPending, indexesOf(res.Pending))
			if tt.wantPrev == 0 {
				assert.Nil(t, res.Prev)
			} else {
				require.NotNil(t, res.Prev)
				assert.Equal(t, tt.wantPrev, res.Prev.Leg.Index)
			}
		})
	}
}

func TestResumeRejectsBadRecord(t *testing.T) {
	bad := savedLeg(1)
	bad.FromConfidence = 0
	_, err := Resume(rawLegs(1, 2), []LegRecord{bad})
	assert.Error(t, err)
}

func TestResumptionMerge(t *testing.T) {
	res, err := Resume(rawLegs(1, 2, 3), []LegRecord{savedLeg(1), savedLeg(2)})
	require.NoError(t, err)

	fresh := resolve.ResolvedLeg{Leg: resolve.RawLeg{Index: 3}}
	merged := res.Merge([]resolve.ResolvedLeg{fresh})
	require.Len(t, merged, 3)
	for i, rl := range merged {
		assert.Equal(t, i+1, rl.Leg.Index)
	}
}
