package render

import (
	"math"
	"slices"
)

// maxBins is one bin per pixel of a panel's plot area.
const maxBins = panelWidth - marginLeft - marginRight

// AutoBins picks a histogram bin count the way numpy's "auto" estimator
// does: the smaller bin width of the Sturges and Freedman-Diaconis rules,
// falling back to Sturges when the interquartile range is zero. The count is
// capped at maxBins.
func AutoBins(values []float64) int {
	n := len(values)
	if n == 0 {
		return 1
	}
	lo, hi := slices.Min(values), slices.Max(values)
	span := hi - lo
	if span == 0 {
		return 1
	}

	width := span / (math.Log2(float64(n)) + 1)
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	iqr := percentile(sorted, 75) - percentile(sorted, 25)
	if fd := 2 * iqr * math.Pow(float64(n), -1.0/3); fd > 0 {
		width = math.Min(width, fd)
	}
	bins := math.Ceil(span / width)
	if bins >= maxBins {
		return maxBins
	}
	return max(1, int(bins))
}

// percentile interpolates linearly between closest ranks. sorted must be
// ascending and non-empty.
func percentile(sorted []float64, q float64) float64 {
	pos := q / 100 * float64(len(sorted)-1)
	i := int(math.Floor(pos))
	if i >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	frac := pos - float64(i)
	return sorted[i] + frac*(sorted[i+1]-sorted[i])
}

// Histogram counts values into nbins equal-width bins over [min, max]. The
// last bin is closed on the right. A zero span uses [v-0.5, v+0.5].
func Histogram(values []float64, nbins int) (edges []float64, counts []int) {
	if nbins < 1 {
		nbins = 1
	}
	counts = make([]int, nbins)
	edges = make([]float64, nbins+1)
	if len(values) == 0 {
		for i := range edges {
			edges[i] = float64(i) / float64(nbins)
		}
		return edges, counts
	}

	lo, hi := slices.Min(values), slices.Max(values)
	if lo == hi {
		lo, hi = lo-0.5, hi+0.5
	}
	width := (hi - lo) / float64(nbins)
	for i := range edges {
		edges[i] = lo + float64(i)*width
	}
	edges[nbins] = hi

	for _, v := range values {
		i := int((v - lo) / width)
		if i >= nbins {
			i = nbins - 1
		}
		if i < 0 {
			i = 0
		}
		counts[i]++
	}
	return edges, counts
}
