package core

import (
	"context"
	"sort"

	"gonum.org/v1/gonum/stat"

	"treeregistry/pkg/domain"
)

// TreeStats summarises the measurements of a tree collection.
type TreeStats struct {
	Count            int     `json:"count"`
	MeanHeight       float64 `json:"mean_height"`
	StdDevHeight     float64 `json:"stddev_height"`
	MedianHeight     float64 `json:"median_height"`
	MeanDiameter     float64 `json:"mean_diameter"`
	StdDevDiameter   float64 `json:"stddev_diameter"`
	MedianDiameter   float64 `json:"median_diameter"`
	DiseasedFraction float64 `json:"diseased_fraction"`
}

// TreeStatistics computes height and diameter statistics for trees. The
// standard deviation is the sample deviation and is zero for a single tree.
func (s *Service) TreeStatistics(ctx context.Context, trees []*domain.Tree) (TreeStats, error) {
	var stats TreeStats
	err := s.run(ctx, opTreeStatistics, func(ctx context.Context) (string, error) {
		if err := checkTreeList(trees); err != nil {
			return "", err
		}
		return "", s.store.View(ctx, func(view domain.TransactionView) error {
			var err error
			stats, err = summarise(view, trees)
			return err
		})
	})
	if err != nil {
		return TreeStats{}, err
	}
	return stats, nil
}

// summarise rejects trees whose status or species is unknown, as the totals do.
func summarise(graph domain.RuleView, trees []*domain.Tree) (TreeStats, error) {
	heights := make([]float64, len(trees))
	diameters := make([]float64, len(trees))
	diseased := 0
	for i, tree := range trees {
		st, ok := graph.FindTreeStatus(tree.StatusID)
		if !ok {
			return TreeStats{}, unresolvedTree(tree, "status", tree.StatusID)
		}
		if _, ok := graph.FindSpecies(tree.SpeciesID); !ok {
			return TreeStats{}, unresolvedTree(tree, "species", tree.SpeciesID)
		}
		heights[i] = float64(tree.Height)
		diameters[i] = float64(tree.Diameter)
		if st.Status == domain.StatusDiseased {
			diseased++
		}
	}
	out := TreeStats{Count: len(trees)}
	out.MeanHeight, out.StdDevHeight = meanStdDev(heights)
	out.MeanDiameter, out.StdDevDiameter = meanStdDev(diameters)
	out.MedianHeight = median(heights)
	out.MedianDiameter = median(diameters)
	out.DiseasedFraction = float64(diseased) / float64(len(trees))
	return out, nil
}

func meanStdDev(values []float64) (float64, float64) {
	if len(values) < 2 {
		return stat.Mean(values, nil), 0
	}
	return stat.MeanStdDev(values, nil)
}

// median averages the two middle values of an even-sized sample;
// stat.Quantile with Empirical would return the lower one.
func median(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n > 0 && n%2 == 0 {
		return (sorted[n/2-1] + sorted[n/2]) / 2
	}
	return stat.Quantile(0.5, stat.Empirical, sorted, nil)
}
