package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidCatalog is returned when a catalog names unknown or repeated attributes.
var ErrInvalidCatalog = errors.New("domain: invalid attribute catalog")

// Catalog is the ordered set of attributes a ranking considers.
type Catalog []string

// DefaultCatalog covers the perceptual attributes; key, mode and
// time_signature are categorical and duration says little about taste.
func DefaultCatalog() Catalog {
	return Catalog{
		AttrDanceability,
		AttrEnergy,
		AttrLoudness,
		AttrSpeechiness,
		AttrAcousticness,
		AttrInstrumentalness,
		AttrLiveness,
		AttrValence,
		AttrTempo,
	}
}

// ParseCatalog normalizes and validates attribute names.
func ParseCatalog(names []string) (Catalog, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: no attributes", ErrInvalidCatalog)
	}
	seen := make(map[string]struct{}, len(names))
	out := make(Catalog, 0, len(names))
	for _, raw := range names {
		name := strings.ToLower(strings.TrimSpace(raw))
		if !IsKnownAttribute(name) {
			return nil, fmt.Errorf("%w: unknown attribute %q", ErrInvalidCatalog, raw)
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("%w: duplicate attribute %q", ErrInvalidCatalog, name)
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out, nil
}

// Pairs returns every unordered attribute pair in catalog order.
func (c Catalog) Pairs() [][2]string {
	var pairs [][2]string
	for i := 0; i < len(c); i++ {
		for j := i + 1; j < len(c); j++ {
			pairs = append(pairs, [2]string{c[i], c[j]})
		}
	}
	return pairs
}
