package domain

import (
	"fmt"
	"math"

	"github.com/goccy/go-json"
)

// Attribute names as they appear in Spotify's audio-features payload.
const (
	AttrDanceability     = "danceability"
	AttrEnergy           = "energy"
	AttrKey              = "key"
	AttrLoudness         = "loudness"
	AttrMode             = "mode"
	AttrSpeechiness      = "speechiness"
	AttrAcousticness     = "acousticness"
	AttrInstrumentalness = "instrumentalness"
	AttrLiveness         = "liveness"
	AttrValence          = "valence"
	AttrTempo            = "tempo"
	AttrTimeSignature    = "time_signature"
	AttrDurationMs       = "duration_ms"
)

// KnownAttributes lists every attribute AudioFeatures can hold, in payload order.
var KnownAttributes = []string{
	AttrDanceability,
	AttrEnergy,
	AttrKey,
	AttrLoudness,
	AttrMode,
	AttrSpeechiness,
	AttrAcousticness,
	AttrInstrumentalness,
	AttrLiveness,
	AttrValence,
	AttrTempo,
	AttrTimeSignature,
	AttrDurationMs,
}

// AudioFeatures is a track's resolved attribute vector. A nil field means the
// service did not report that attribute.
type AudioFeatures struct {
	Danceability     *float64
	Energy           *float64
	Key              *float64
	Loudness         *float64
	Mode             *float64
	Speechiness      *float64
	Acousticness     *float64
	Instrumentalness *float64
	Liveness         *float64
	Valence          *float64
	Tempo            *float64
	TimeSignature    *float64
	DurationMs       *float64

	// Extra holds payload keys that are not attributes (id, uri, analysis_url...).
	Extra map[string]any
}

// Float returns a pointer to v. Handy for building AudioFeatures literals.
func Float(v float64) *float64 {
	return &v
}

func (f *AudioFeatures) field(name string) **float64 {
	switch name {
	case AttrDanceability:
		return &f.Danceability
	case AttrEnergy:
		return &f.Energy
	case AttrKey:
		return &f.Key
	case AttrLoudness:
		return &f.Loudness
	case AttrMode:
		return &f.Mode
	case AttrSpeechiness:
		return &f.Speechiness
	case AttrAcousticness:
		return &f.Acousticness
	case AttrInstrumentalness:
		return &f.Instrumentalness
	case AttrLiveness:
		return &f.Liveness
	case AttrValence:
		return &f.Valence
	case AttrTempo:
		return &f.Tempo
	case AttrTimeSignature:
		return &f.TimeSignature
	case AttrDurationMs:
		return &f.DurationMs
	}
	return nil
}

// Value reports the attribute's value. Non-finite values count as missing.
func (f *AudioFeatures) Value(name string) (float64, bool) {
	if f == nil {
		return 0, false
	}
	p := f.field(name)
	if p == nil || *p == nil || math.IsNaN(**p) || math.IsInf(**p, 0) {
		return 0, false
	}
	return **p, true
}

// Set assigns an attribute. It returns false for unknown names.
func (f *AudioFeatures) Set(name string, v float64) bool {
	p := f.field(name)
	if p == nil {
		return false
	}
	*p = Float(v)
	return true
}

// Clear marks an attribute as missing.
func (f *AudioFeatures) Clear(name string) {
	if p := f.field(name); p != nil {
		*p = nil
	}
}

// IsKnownAttribute reports whether name is one of KnownAttributes.
func IsKnownAttribute(name string) bool {
	var f AudioFeatures
	return f.field(name) != nil
}

// MarshalJSON writes known attributes (null when missing) merged with Extra.
func (f AudioFeatures) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(KnownAttributes)+len(f.Extra))
	for k, v := range f.Extra {
		out[k] = v
	}
	for _, name := range KnownAttributes {
		if v, ok := f.Value(name); ok {
			out[name] = v
		} else {
			out[name] = nil
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads a Spotify audio-features object. Known attributes with a
// null or non-numeric value are left missing; other keys go to Extra.
func (f *AudioFeatures) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("domain: decode audio features: %w", err)
	}

	*f = AudioFeatures{}
	for key, msg := range raw {
		if IsKnownAttribute(key) {
			var v *float64
			if err := json.Unmarshal(msg, &v); err != nil || v == nil {
				continue
			}
			f.Set(key, *v)
			continue
		}
		var v any
		if err := json.Unmarshal(msg, &v); err != nil {
			return fmt.Errorf("domain: decode audio feature %q: %w", key, err)
		}
		if f.Extra == nil {
			f.Extra = make(map[string]any)
		}
		f.Extra[key] = v
	}
	return nil
}
