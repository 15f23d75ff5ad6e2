package ranking

import (
	"math"

	"github.com/ewilliams-labs/tastemap/internal/core/domain"
)

// Stats summarizes one attribute over the values present in a population.
// StdDev is the population standard deviation (divides by Count).
type Stats struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
}

// Profile maps attributes to their statistics, in catalog order.
type Profile struct {
	attrs []string
	stats map[string]Stats
}

// Attributes returns the profiled attributes in catalog order.
func (p Profile) Attributes() []string {
	out := make([]string, len(p.attrs))
	copy(out, p.attrs)
	return out
}

// Get returns the statistics for an attribute.
func (p Profile) Get(attr string) (Stats, bool) {
	s, ok := p.stats[attr]
	return s, ok
}

// Len returns the number of profiled attributes.
func (p Profile) Len() int {
	return len(p.attrs)
}

// Without returns a copy of p that no longer covers attr.
func (p Profile) Without(attr string) Profile {
	out := Profile{stats: make(map[string]Stats, len(p.stats))}
	for _, a := range p.attrs {
		if a == attr {
			continue
		}
		out.attrs = append(out.attrs, a)
		out.stats[a] = p.stats[a]
	}
	return out
}

// BuildProfile computes per-attribute statistics over tracks. Attributes no
// track reports are left out of the profile.
func BuildProfile(tracks []domain.Track, catalog domain.Catalog) Profile {
	values := FeatureValues(tracks, catalog)

	p := Profile{stats: make(map[string]Stats, len(catalog))}
	for _, attr := range catalog {
		vs := values[attr]
		if len(vs) == 0 {
			continue
		}
		mean, std := MeanStdDev(vs)
		p.attrs = append(p.attrs, attr)
		p.stats[attr] = Stats{Count: len(vs), Mean: mean, StdDev: std}
	}
	return p
}

// FeatureValues collects, per catalog attribute, the values present across
// tracks in collection order. Missing values are skipped, never zero-filled.
func FeatureValues(tracks []domain.Track, catalog domain.Catalog) map[string][]float64 {
	out := make(map[string][]float64, len(catalog))
	for _, t := range tracks {
		if t.Features == nil {
			continue
		}
		for _, attr := range catalog {
			if v, ok := t.Features.Value(attr); ok {
				out[attr] = append(out[attr], v)
			}
		}
	}
	return out
}

// FeaturePairs returns (x, y) points for every track reporting both attributes.
func FeaturePairs(tracks []domain.Track, x, y string) [][2]float64 {
	var out [][2]float64
	for _, t := range tracks {
		xv, okX := t.Features.Value(x)
		yv, okY := t.Features.Value(y)
		if okX && okY {
			out = append(out, [2]float64{xv, yv})
		}
	}
	return out
}

// MeanStdDev returns the arithmetic mean and population standard deviation.
// Returns (0, 0) for an empty slice. Uniform input yields exactly (v, 0), and
// the mean is clamped to [min, max] against rounding in the sum. Deviations
// are scaled by the largest one before squaring, so distinct values give a
// finite non-zero deviation at any magnitude.
func MeanStdDev(values []float64) (mean, stddev float64) {
	n := len(values)
	if n == 0 {
		return 0, 0
	}

	var sum float64
	lo, hi := values[0], values[0]
	for _, v := range values {
		sum += v
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if lo == hi {
		return lo, 0
	}
	if math.IsInf(sum, 0) {
		sum = 0
		for _, v := range values {
			sum += v / float64(n)
		}
		mean = sum
	} else {
		mean = sum / float64(n)
	}
	mean = math.Min(math.Max(mean, lo), hi)

	var scale float64
	for _, v := range values {
		scale = math.Max(scale, math.Abs(v-mean))
	}

	var sumSq float64
	for _, v := range values {
		d := (v - mean) / scale
		sumSq += d * d
	}
	return mean, scale * math.Sqrt(sumSq/float64(n))
}
