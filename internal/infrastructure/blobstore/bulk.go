package blobstore

import (
	"context"
	"errors"
	"sync"

	crerr "github.com/cockroachdb/errors"
	"github.com/panjf2000/ants/v2"

	"github.com/riskibarqy/arisan/internal/domain/proof"
)

const defaultDeleteWorkers = 4

// deleteMany runs del for every ref on a bounded ants pool. Missing objects
// are not errors; other failures are joined.
func deleteMany(ctx context.Context, workers int, refs []string, del func(context.Context, string) error) error {
	if len(refs) == 0 {
		return nil
	}
	if workers < 1 {
		workers = defaultDeleteWorkers
	}
	if workers > len(refs) {
		workers = len(refs)
	}

	pool, err := ants.NewPool(workers)
	if err != nil {
		return crerr.Wrap(err, "create delete worker pool")
	}
	defer pool.Release()

	var (
		mu      sync.Mutex
		joined  error
		pending sync.WaitGroup
	)
	record := func(err error) {
		mu.Lock()
		joined = errors.Join(joined, err)
		mu.Unlock()
	}

	for _, ref := range refs {
		if ref == "" {
			continue
		}
		pending.Add(1)
		if err := pool.Submit(func() {
			defer pending.Done()
			if ctx.Err() != nil {
				record(ctx.Err())
				return
			}
			if err := del(ctx, ref); err != nil && !errors.Is(err, proof.ErrNotFound) {
				record(crerr.Wrapf(err, "delete %s", ref))
			}
		}); err != nil {
			pending.Done()
			record(crerr.Wrap(err, "submit delete task"))
		}
	}

	pending.Wait()
	return joined
}
