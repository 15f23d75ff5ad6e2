package spotify

import "strings"

const (
	minTitleSimilarity   = 0.65
	minArtistSimilarity  = 0.55
	minOverallSimilarity = 0.70
)

// trackMatchScore weighs title and artist similarity separately, so a long
// artist credit cannot drown out a title mismatch.
func trackMatchScore(requestTitle string, requestArtist string, candidate spotifyTrack) (float64, bool) {
	normalizedTitle := canonical(requestTitle)
	normalizedArtist := canonical(requestArtist)
	candidateTitle := canonical(candidate.Name)
	candidateArtist := canonical(joinArtistNames(candidate))

	if normalizedTitle == "" || normalizedArtist == "" || candidateTitle == "" || candidateArtist == "" {
		return 0, false
	}

	titleSim := similarity(normalizedTitle, candidateTitle)
	artistSim := similarity(normalizedArtist, candidateArtist)
	score := 0.7*titleSim + 0.3*artistSim

	if titleSim < minTitleSimilarity || artistSim < minArtistSimilarity || score < minOverallSimilarity {
		return score, false
	}

	return score, true
}

// Normalize cleans a search string for comparison: lower-cased, trailing
// "(Live)" / "- Remastered 2011" style suffixes removed, punctuation folded.
func Normalize(input string) string {
	if strings.TrimSpace(input) == "" {
		return ""
	}

	lowered := strings.ToLower(strings.TrimSpace(input))
	trimmed := stripCommonSuffixes(lowered)
	cleaned := foldSeparators(trimmed)

	return strings.Join(strings.Fields(cleaned), " ")
}

// ScoreResult returns a similarity score between two artist+title pairs.
func ScoreResult(targetArtist string, targetTitle string, actualArtist string, actualTitle string) float64 {
	target := Normalize(strings.TrimSpace(targetArtist + " " + targetTitle))
	actual := Normalize(strings.TrimSpace(actualArtist + " " + actualTitle))
	if target == "" || actual == "" {
		return 0
	}

	return similarity(target, actual)
}

func stripCommonSuffixes(input string) string {
	trimmed := strings.TrimSpace(input)
	for {
		next := trimBracketedSuffix(trimmed)
		next = trimDashSuffix(next)
		if next == trimmed {
			return trimmed
		}
		trimmed = strings.TrimSpace(next)
	}
}

func trimBracketedSuffix(input string) string {
	trimmed := strings.TrimSpace(input)
	for _, pair := range [][2]string{{"(", ")"}, {"[", "]"}} {
		if !strings.HasSuffix(trimmed, pair[1]) {
			continue
		}
		if idx := strings.LastIndex(trimmed, pair[0]); idx != -1 && idx < len(trimmed)-1 {
			if suffixHasToken(trimmed[idx+1 : len(trimmed)-1]) {
				return strings.TrimSpace(trimmed[:idx])
			}
		}
	}
	return input
}

func trimDashSuffix(input string) string {
	trimmed := strings.TrimSpace(input)
	idx := strings.LastIndex(trimmed, " - ")
	if idx == -1 {
		return input
	}

	if suffixHasToken(strings.TrimSpace(trimmed[idx+3:])) {
		return strings.TrimSpace(trimmed[:idx])
	}
	return input
}

func suffixHasToken(input string) bool {
	for _, token := range strings.FieldsFunc(strings.ToLower(input), isSeparator) {
		if releaseNoise[token] {
			return true
		}
	}
	return false
}

func similarity(a string, b string) float64 {
	if a == b {
		return 1.0
	}
	maxLen := max(len([]rune(a)), len([]rune(b)))
	if maxLen == 0 {
		return 1.0
	}

	distance := levenshteinDistance(a, b)
	return 1.0 - float64(distance)/float64(maxLen)
}

func levenshteinDistance(a string, b string) int {
	ra := []rune(a)
	rb := []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := 0; j <= len(rb); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 0
			if ra[i-1] != rb[j-1] {
				cost = 1
			}
			curr[j] = min(
				prev[j]+1,
				curr[j-1]+1,
				prev[j-1]+cost,
			)
		}
		copy(prev, curr)
	}

	return prev[len(rb)]
}

func joinArtistNames(track spotifyTrack) string {
	if len(track.Artists) == 0 {
		return ""
	}
	parts := make([]string, 0, len(track.Artists))
	for _, artist := range track.Artists {
		parts = append(parts, artist.Name)
	}
	return strings.Join(parts, " ")
}
