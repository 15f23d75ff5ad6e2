// Package worker resolves attribute vectors for library tracks in parallel batches.
package worker

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ewilliams-labs/tastemap/internal/core/domain"
	"github.com/ewilliams-labs/tastemap/internal/core/ports"
	"github.com/ewilliams-labs/tastemap/internal/logging"
)

// Job is one batch of track ids sent to the resolver in a single request.
type Job struct {
	Index    int
	TrackIDs []string
}

// Pool fans feature lookups out over a bounded number of workers.
type Pool struct {
	resolver  ports.FeatureResolver
	workers   int
	batchSize int
	log       zerolog.Logger
}

// NewPool creates a pool with the given concurrency and batch size.
func NewPool(resolver ports.FeatureResolver, workers int, batchSize int) *Pool {
	if workers < 1 {
		workers = 1
	}
	if batchSize < 1 {
		batchSize = 1
	}
	return &Pool{
		resolver:  resolver,
		workers:   workers,
		batchSize: batchSize,
		log:       logging.Component("worker"),
	}
}

// Jobs splits ids into batches of at most batchSize, preserving order.
func Jobs(ids []string, batchSize int) []Job {
	if batchSize < 1 {
		batchSize = 1
	}
	jobs := make([]Job, 0, (len(ids)+batchSize-1)/batchSize)
	for start := 0; start < len(ids); start += batchSize {
		end := min(start+batchSize, len(ids))
		jobs = append(jobs, Job{Index: len(jobs), TrackIDs: ids[start:end]})
	}
	return jobs
}

// Enrich resolves every track in lib that has no vector yet. A batch that
// fails is logged and skipped, leaving its tracks unresolved. Results are
// applied after all batches finish, in batch order.
func (p *Pool) Enrich(ctx context.Context, lib *domain.Library) (int, error) {
	jobs := Jobs(lib.Unresolved(), p.batchSize)
	if len(jobs) == 0 {
		return 0, nil
	}

	results := make([]map[string]*domain.AudioFeatures, len(jobs))
	var failed atomic.Int32

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)

	for _, job := range jobs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			found, err := p.resolver.AudioFeatures(gctx, job.TrackIDs)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				failed.Add(1)
				p.log.Warn().Err(err).
					Int("batch", job.Index).
					Int("tracks", len(job.TrackIDs)).
					Msg("feature batch failed, tracks stay unresolved")
				return nil
			}
			results[job.Index] = found
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return 0, fmt.Errorf("worker: enrich cancelled: %w", err)
	}

	resolved := 0
	for i, found := range results {
		for _, id := range jobs[i].TrackIDs {
			if f := found[id]; f != nil && lib.SetFeatures(id, f) {
				resolved++
			}
		}
	}

	p.log.Debug().
		Int("batches", len(jobs)).
		Int32("failed_batches", failed.Load()).
		Int("resolved", resolved).
		Msg("feature resolution finished")
	return resolved, nil
}
