package worker

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ewilliams-labs/tastemap/internal/core/domain"
)

type fakeResolver struct {
	mu      sync.Mutex
	calls   [][]string
	failOn  string // a batch containing this id fails
	missing string // this id is never returned
}

func (f *fakeResolver) AudioFeatures(_ context.Context, ids []string) (map[string]*domain.AudioFeatures, error) {
	f.mu.Lock()
	f.calls = append(f.calls, append([]string(nil), ids...))
	f.mu.Unlock()

	out := make(map[string]*domain.AudioFeatures, len(ids))
	for _, id := range ids {
		if id == f.failOn {
			return nil, errors.New("upstream unavailable")
		}
		if id == f.missing {
			continue
		}
		out[id] = &domain.AudioFeatures{Tempo: domain.Float(float64(len(id)))}
	}
	return out, nil
}

func library(ids ...string) *domain.Library {
	lib := domain.NewLibrary()
	for _, id := range ids {
		lib.Put(domain.Track{ID: id, Title: strings.ToUpper(id)})
	}
	return lib
}

func TestJobs(t *testing.T) {
	jobs := Jobs([]string{"a", "b", "c", "d", "e"}, 2)
	require.Len(t, jobs, 3)
	assert.Equal(t, []string{"a", "b"}, jobs[0].TrackIDs)
	assert.Equal(t, []string{"e"}, jobs[2].TrackIDs)
	assert.Equal(t, 2, jobs[2].Index)

	assert.Empty(t, Jobs(nil, 10))
}

func TestPool_Enrich(t *testing.T) {
	resolver := &fakeResolver{missing: "c"}
	lib := library("a", "b", "c", "d", "e")

	resolved, err := NewPool(resolver, 3, 2).Enrich(context.Background(), lib)
	require.NoError(t, err)
	assert.Equal(t, 4, resolved)
	assert.Equal(t, []string{"c"}, lib.Unresolved())
	assert.Len(t, resolver.calls, 3)
}

func TestPool_EnrichSkipsResolvedTracks(t *testing.T) {
	resolver := &fakeResolver{}
	lib := library("a", "b")
	lib.SetFeatures("a", &domain.AudioFeatures{Energy: domain.Float(0.5)})

	resolved, err := NewPool(resolver, 1, 10).Enrich(context.Background(), lib)
	require.NoError(t, err)
	assert.Equal(t, 1, resolved)
	require.Len(t, resolver.calls, 1)
	assert.Equal(t, []string{"b"}, resolver.calls[0])

	a, _ := lib.Get("a")
	_, ok := a.Features.Value(domain.AttrTempo)
	assert.False(t, ok, "existing vectors are not replaced")
}

func TestPool_FailedBatchIsSkipped(t *testing.T) {
	resolver := &fakeResolver{failOn: "c"}
	lib := library("a", "b", "c", "d")

	resolved, err := NewPool(resolver, 2, 2).Enrich(context.Background(), lib)
	require.NoError(t, err)
	assert.Equal(t, 2, resolved)
	assert.Equal(t, []string{"c", "d"}, lib.Unresolved())
}

func TestPool_NothingToDo(t *testing.T) {
	resolver := &fakeResolver{}
	resolved, err := NewPool(resolver, 2, 2).Enrich(context.Background(), library())
	require.NoError(t, err)
	assert.Zero(t, resolved)
	assert.Empty(t, resolver.calls)
}

func TestPool_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	lib := library("a", "b", "c")
	_, err := NewPool(&fakeResolver{}, 1, 1).Enrich(ctx, lib)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, lib.Unresolved(), 3)
}
