package synth

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Summary describes how synthesized distances compare to logged ones.
type Summary struct {
	Legs        int     `json:"legs"`
	Fallbacks   int     `json:"fallbacks"`
	Ratios      int     `json:"ratios"`
	MeanRatio   float64 `json:"meanRatio"`
	MedianRatio float64 `json:"medianRatio"`
	StdDevRatio float64 `json:"stdDevRatio"`
	Outliers    []int   `json:"outliers"` // leg indexes with a ratio outside the bounds
}

// Summarize computes ratio statistics over records. Ratio fields are zero
// when no record has a ratio.
func Summarize(recs []RouteRecord, opts Options) Summary {
	sum := Summary{Legs: len(recs), Outliers: []int{}}
	ratios := make([]float64, 0, len(recs))
	for _, r := range recs {
		if r.UsedFallback {
			sum.Fallbacks++
		}
		if r.DistanceRatio == nil {
			continue
		}
		ratio := *r.DistanceRatio
		ratios = append(ratios, ratio)
		if ratio < opts.RatioMin || ratio > opts.RatioMax {
			sum.Outliers = append(sum.Outliers, r.LegIndex)
		}
	}

	sum.Ratios = len(ratios)
	if len(ratios) == 0 {
		return sum
	}
	sort.Float64s(ratios)
	sum.MeanRatio = stat.Mean(ratios, nil)
	sum.MedianRatio = stat.Quantile(0.5, stat.Empirical, ratios, nil)
	if len(ratios) > 1 {
		sum.StdDevRatio = stat.StdDev(ratios, nil)
	}
	return sum
}
