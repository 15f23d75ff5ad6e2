package ranking

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"testing"

	"github.com/ewilliams-labs/tastemap/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(scored []Scored) []string {
	out := make([]string, 0, len(scored))
	for _, s := range scored {
		out = append(out, s.Track.ID)
	}
	return out
}

func scoredOf(pairs ...any) []Scored {
	var out []Scored
	for i := 0; i < len(pairs); i += 2 {
		out = append(out, Scored{
			Track:    domain.Track{ID: pairs[i].(string)},
			Distance: pairs[i+1].(float64),
		})
	}
	return out
}

func TestTopK_Scenario(t *testing.T) {
	tracks := append(scenarioTracks(), track("D", domain.Float(110), nil))
	p := BuildProfile(tracks, tempoEnergy)

	top, err := TopK(ScoreAll(tracks, p), 4)
	require.NoError(t, err)
	require.Len(t, top, 4)

	assert.Equal(t, "C", top[0].Track.ID, "closest to the mean ranks first")
	assert.Equal(t, "D", top[3].Track.ID, "missing energy ranks last")
	assert.True(t, math.IsInf(top[3].Distance, 1))
	assert.ElementsMatch(t, []string{"A", "B"}, ids(top[1:3]))
}

func TestTopK_InsufficientItems(t *testing.T) {
	tracks := scenarioTracks()
	p := BuildProfile(tracks, tempoEnergy)

	top, err := TopK(ScoreAll(tracks, p), 5)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInsufficientItems))

	var short *InsufficientItemsError
	require.True(t, errors.As(err, &short))
	assert.Equal(t, 5, short.Requested)
	assert.Equal(t, 3, short.Available)

	require.Len(t, top, 3, "every available item is still returned")
	assert.Equal(t, "C", top[0].Track.ID)
}

func TestTopK_InvalidLimit(t *testing.T) {
	scored := scoredOf("a", 1.0)

	for _, k := range []int{0, -1} {
		top, err := TopK(scored, k)
		assert.ErrorIs(t, err, ErrInvalidLimit)
		assert.Nil(t, top)
	}
}

func TestTopK_Empty(t *testing.T) {
	top, err := TopK(nil, 3)
	assert.ErrorIs(t, err, ErrInsufficientItems)
	assert.Empty(t, top)
}

func TestTopK_TieBreakByID(t *testing.T) {
	scored := scoredOf("c", 1.0, "a", 1.0, "d", 0.5, "b", 1.0, "e", math.Inf(1), "f", math.Inf(1))

	top, err := TopK(scored, 6)
	require.NoError(t, err)
	assert.Equal(t, []string{"d", "a", "b", "c", "e", "f"}, ids(top))

	top, err = TopK(scored, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"d", "a"}, ids(top))
}

func TestTopK_InputOrderDoesNotMatter(t *testing.T) {
	scored := scoredOf("c", 1.0, "a", 1.0, "d", 0.5, "b", 1.0, "e", 2.0)
	reversed := make([]Scored, len(scored))
	for i, s := range scored {
		reversed[len(scored)-1-i] = s
	}

	first, err := TopK(scored, 3)
	require.NoError(t, err)
	second, err := TopK(reversed, 3)
	require.NoError(t, err)
	assert.Equal(t, ids(first), ids(second))
}

func TestTopK_MatchesFullSort(t *testing.T) {
	var scored []Scored
	for i := 0; i < 200; i++ {
		// A deterministic spread with plenty of ties.
		d := float64((i * 37) % 23)
		if i%29 == 0 {
			d = math.Inf(1)
		}
		scored = append(scored, Scored{Track: domain.Track{ID: fmt.Sprintf("t%03d", i)}, Distance: d})
	}

	sorted := make([]Scored, len(scored))
	copy(sorted, scored)
	sort.Slice(sorted, func(i, j int) bool { return closer(sorted[i], sorted[j]) })

	for _, k := range []int{1, 7, 50, 200} {
		top, err := TopK(scored, k)
		require.NoError(t, err)
		assert.Equal(t, ids(sorted[:k]), ids(top), "k=%d", k)
	}
}

func TestTopK_DoesNotMutateInput(t *testing.T) {
	scored := scoredOf("b", 2.0, "a", 1.0, "c", 3.0)
	_, err := TopK(scored, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a", "c"}, ids(scored))
}

func TestFarthest(t *testing.T) {
	scored := scoredOf("a", 1.0, "b", 3.0, "c", math.Inf(1), "d", 3.0, "e", 0.0)

	far, err := Farthest(scored, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "d", "a"}, ids(far))

	far, err = Farthest(scored, 10)
	assert.ErrorIs(t, err, ErrInsufficientItems)
	assert.Equal(t, []string{"b", "d", "a", "e"}, ids(far), "unscored tracks are skipped")

	_, err = Farthest(scored, 0)
	assert.ErrorIs(t, err, ErrInvalidLimit)
}
