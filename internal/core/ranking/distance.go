package ranking

import (
	"errors"
	"fmt"
	"math"

	"github.com/ewilliams-labs/tastemap/internal/core/domain"
)

var (
	// ErrMissingAttribute marks a profiled attribute the track does not report.
	ErrMissingAttribute = errors.New("ranking: missing attribute")
	// ErrUndefinedVariance marks an attribute whose population values are all equal.
	ErrUndefinedVariance = errors.New("ranking: undefined variance")
)

// Condition flags how a contribution was computed.
type Condition int

const (
	// ConditionNone is an ordinary z-score contribution.
	ConditionNone Condition = iota
	// ConditionMissingAttribute contributes +Inf.
	ConditionMissingAttribute
	// ConditionUndefinedVariance contributes 0 at the mean, +Inf elsewhere.
	ConditionUndefinedVariance
)

func (c Condition) String() string {
	switch c {
	case ConditionMissingAttribute:
		return "missing_attribute"
	case ConditionUndefinedVariance:
		return "undefined_variance"
	default:
		return "none"
	}
}

// ConditionError reports a non-ordinary contribution for one attribute.
type ConditionError struct {
	Attribute string
	Condition Condition
}

func (e *ConditionError) Error() string {
	return fmt.Sprintf("ranking: %s on %q", e.Condition, e.Attribute)
}

// Is matches the sentinel for the condition.
func (e *ConditionError) Is(target error) bool {
	switch e.Condition {
	case ConditionMissingAttribute:
		return target == ErrMissingAttribute
	case ConditionUndefinedVariance:
		return target == ErrUndefinedVariance
	}
	return false
}

// Contribution is one attribute's share of a distance.
type Contribution struct {
	Attribute string
	Value     float64 // NaN when the track lacks the attribute
	Stats     Stats
	Score     float64 // |value - mean| / stddev, or the guarded result
	Condition Condition
}

// Breakdown explains a distance attribute by attribute.
type Breakdown struct {
	Distance      float64
	Unresolved    bool // the track has no attribute vector at all
	Contributions []Contribution
}

// Err returns the non-ordinary conditions as a joined error, or nil.
func (b Breakdown) Err() error {
	var errs []error
	for _, c := range b.Contributions {
		if c.Condition != ConditionNone {
			errs = append(errs, &ConditionError{Attribute: c.Attribute, Condition: c.Condition})
		}
	}
	return errors.Join(errs...)
}

// Distance returns the track's summed z-score distance from the profile, or
// +Inf when the track has no attribute vector.
func Distance(t domain.Track, p Profile) float64 {
	if t.Features == nil {
		return math.Inf(1)
	}
	var total float64
	for _, attr := range p.attrs {
		score, _ := contribution(t.Features, attr, p.stats[attr])
		total += score
	}
	return total
}

// Explain computes the same distance as Distance, keeping every contribution.
func Explain(t domain.Track, p Profile) Breakdown {
	if t.Features == nil {
		return Breakdown{Distance: math.Inf(1), Unresolved: true}
	}

	b := Breakdown{Contributions: make([]Contribution, 0, len(p.attrs))}
	for _, attr := range p.attrs {
		s := p.stats[attr]
		score, cond := contribution(t.Features, attr, s)
		value, ok := t.Features.Value(attr)
		if !ok {
			value = math.NaN()
		}
		b.Contributions = append(b.Contributions, Contribution{
			Attribute: attr,
			Value:     value,
			Stats:     s,
			Score:     score,
			Condition: cond,
		})
		b.Distance += score
	}
	return b
}

func contribution(f *domain.AudioFeatures, attr string, s Stats) (float64, Condition) {
	v, ok := f.Value(attr)
	if !ok {
		return math.Inf(1), ConditionMissingAttribute
	}
	if s.StdDev == 0 {
		if v == s.Mean {
			return 0, ConditionUndefinedVariance
		}
		return math.Inf(1), ConditionUndefinedVariance
	}
	return math.Abs(v-s.Mean) / s.StdDev, ConditionNone
}
