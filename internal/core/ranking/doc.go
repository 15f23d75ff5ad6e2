// Package ranking scores tracks by how far their audio features sit from a
// reference profile.
//
// A Profile holds, per catalog attribute, the mean and population standard
// deviation of the values present in a reference population. A track's
// distance is the sum over profiled attributes of |value - mean| / stddev,
// an L1 sum of z-score magnitudes:
//
//	profile := ranking.BuildProfile(library.Tracks(), catalog)
//	scored := ranking.ScoreAll(library.Tracks(), profile)
//	top, err := ranking.TopK(scored, 5)
//
// Tracks with no vector, or missing a profiled attribute, score +Inf and sink
// to the bottom. Attributes with zero variance contribute 0 when the track
// matches the mean and +Inf otherwise. Results are ordered by (distance, id),
// so equal distances always come out the same way.
package ranking
