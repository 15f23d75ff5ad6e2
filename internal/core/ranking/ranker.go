package ranking

import (
	"container/heap"
	"errors"
	"fmt"
	"math"

	"github.com/ewilliams-labs/tastemap/internal/core/domain"
)

var (
	// ErrInsufficientItems is matched by *InsufficientItemsError.
	ErrInsufficientItems = errors.New("ranking: insufficient items")
	// ErrInvalidLimit is returned for a non-positive K.
	ErrInvalidLimit = errors.New("ranking: limit must be positive")
)

// InsufficientItemsError reports a ranking that had fewer items than requested.
// The ranking that accompanies it holds every available item.
type InsufficientItemsError struct {
	Requested int
	Available int
}

func (e *InsufficientItemsError) Error() string {
	return fmt.Sprintf("ranking: requested %d items, only %d available", e.Requested, e.Available)
}

// Is matches ErrInsufficientItems.
func (e *InsufficientItemsError) Is(target error) bool {
	return target == ErrInsufficientItems
}

// Scored pairs a track with its distance from a profile.
type Scored struct {
	Track    domain.Track
	Distance float64
}

// ScoreAll computes each track's distance from the profile.
func ScoreAll(tracks []domain.Track, p Profile) []Scored {
	out := make([]Scored, 0, len(tracks))
	for _, t := range tracks {
		out = append(out, Scored{Track: t, Distance: Distance(t, p)})
	}
	return out
}

// closer orders by distance, then by track id.
func closer(a, b Scored) bool {
	if a.Distance != b.Distance {
		return a.Distance < b.Distance
	}
	return a.Track.ID < b.Track.ID
}

// farther orders by descending distance, then by track id.
func farther(a, b Scored) bool {
	if a.Distance != b.Distance {
		return a.Distance > b.Distance
	}
	return a.Track.ID < b.Track.ID
}

// TopK returns the k tracks closest to the profile in (distance, id) order.
// When fewer than k tracks are available it returns all of them together with
// an *InsufficientItemsError.
func TopK(scored []Scored, k int) ([]Scored, error) {
	return selectK(scored, k, closer)
}

// Farthest returns the k finitely-scored tracks farthest from the profile,
// by descending distance then id. Unscored (+Inf) tracks are skipped.
func Farthest(scored []Scored, k int) ([]Scored, error) {
	finite := make([]Scored, 0, len(scored))
	for _, s := range scored {
		if !math.IsInf(s.Distance, 1) {
			finite = append(finite, s)
		}
	}
	return selectK(finite, k, farther)
}

// selectK keeps the best k items in a bounded heap whose root is the worst
// kept item, then drains it back into ranked order.
func selectK(scored []Scored, k int, better func(a, b Scored) bool) ([]Scored, error) {
	if k <= 0 {
		return nil, ErrInvalidLimit
	}

	h := &boundedHeap{better: better}
	for _, s := range scored {
		if h.Len() < k {
			heap.Push(h, s)
			continue
		}
		if better(s, h.items[0]) {
			h.items[0] = s
			heap.Fix(h, 0)
		}
	}

	out := make([]Scored, h.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(h).(Scored)
	}

	if len(out) < k {
		return out, &InsufficientItemsError{Requested: k, Available: len(out)}
	}
	return out, nil
}

// boundedHeap is a heap with the least preferred item at the root.
type boundedHeap struct {
	items  []Scored
	better func(a, b Scored) bool
}

func (h *boundedHeap) Len() int           { return len(h.items) }
func (h *boundedHeap) Less(i, j int) bool { return h.better(h.items[j], h.items[i]) }
func (h *boundedHeap) Swap(i, j int)      { h.items[i], h.items[j] = h.items[j], h.items[i] }

func (h *boundedHeap) Push(x any) {
	h.items = append(h.items, x.(Scored))
}

func (h *boundedHeap) Pop() any {
	old := h.items
	n := len(old)
	item := old[n-1]
	h.items = old[:n-1]
	return item
}
