package rest

import (
	"math"
	"net/http"

	"github.com/ewilliams-labs/tastemap/internal/core/ranking"
)

type attributeStats struct {
	Name   string  `json:"name"`
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
}

type profileResponse struct {
	Source     string           `json:"source"`
	Population int              `json:"population"`
	Attributes []attributeStats `json:"attributes"`
}

func toAttributeStats(p ranking.Profile) []attributeStats {
	out := make([]attributeStats, 0, p.Len())
	for _, attr := range p.Attributes() {
		s, _ := p.Get(attr)
		out = append(out, attributeStats{Name: attr, Count: s.Count, Mean: s.Mean, StdDev: s.StdDev})
	}
	return out
}

// Profile handles GET /profile
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	playlist, err := parsePlaylist(r)
	if err != nil {
		writeErrorWithCode(w, http.StatusBadRequest, err.Error(), errCodeInvalidArgument)
		return
	}

	report, err := h.svc.Profile(r.Context(), playlist)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, profileResponse{
		Source:     report.Source,
		Population: report.Population,
		Attributes: toAttributeStats(report.Profile),
	})
}

type contribution struct {
	Attribute string   `json:"attribute"`
	Value     *float64 `json:"value"`
	Score     *float64 `json:"score"`
	Condition string   `json:"condition,omitempty"`
}

type scoreResponse struct {
	Track         scoredTrack    `json:"track"`
	Source        string         `json:"source"`
	Contributions []contribution `json:"contributions"`
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// Score handles GET /score?title=&artist=
func (h *Handler) Score(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	title, artist := q.Get("title"), q.Get("artist")
	if title == "" || artist == "" {
		writeErrorWithCode(w, http.StatusBadRequest, "title and artist are required", errCodeInvalidArgument)
		return
	}
	playlist, err := parsePlaylist(r)
	if err != nil {
		writeErrorWithCode(w, http.StatusBadRequest, err.Error(), errCodeInvalidArgument)
		return
	}

	score, err := h.svc.ScoreTrack(r.Context(), title, artist, playlist)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	resp := scoreResponse{
		Track:         toScoredTracks([]ranking.Scored{{Track: score.Track, Distance: score.Breakdown.Distance}})[0],
		Source:        score.Source,
		Contributions: make([]contribution, 0, len(score.Breakdown.Contributions)),
	}
	for _, c := range score.Breakdown.Contributions {
		item := contribution{Attribute: c.Attribute, Value: finite(c.Value), Score: finite(c.Score)}
		if c.Condition != ranking.ConditionNone {
			item.Condition = c.Condition.String()
		}
		resp.Contributions = append(resp.Contributions, item)
	}
	writeJSON(w, http.StatusOK, resp)
}
