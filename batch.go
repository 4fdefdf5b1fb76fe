package zip

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// parallelMinAvgBytes is the minimum average entry size for parallel
// reads. Below this threshold, serial reads win on overhead.
const parallelMinAvgBytes = 64 << 10

// ReadEntries reads and decompresses multiple entries, in parallel when
// worthwhile. Results are returned in the order of the input entries.
//
// Entries are independently compressed and self-contained, so workers
// read disjoint byte ranges of the shared source. The first failure
// cancels outstanding reads and is returned.
func (a *Archive) ReadEntries(ctx context.Context, entries []Entry) ([][]byte, error) {
	results := make([][]byte, len(entries))
	if len(entries) == 0 {
		return results, nil
	}

	workers := a.readWorkers(entries)
	if workers <= 1 {
		for i, e := range entries {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			content, err := a.ReadEntry(e)
			if err != nil {
				return nil, err
			}
			results[i] = content
		}
		return results, nil
	}

	sem := semaphore.NewWeighted(int64(workers))
	g, gctx := errgroup.WithContext(ctx)
	for i, e := range entries {
		i, e := i, e
		if err := sem.Acquire(gctx, 1); err != nil {
			break
		}
		g.Go(func() error {
			defer sem.Release(1)
			content, err := a.ReadEntry(e)
			if err != nil {
				return err
			}
			results[i] = content
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// readWorkers picks a worker count for the batch: serial for small
// entries, otherwise bounded by CPU count and batch size.
func (a *Archive) readWorkers(entries []Entry) int {
	var total uint64
	for _, e := range entries {
		total += e.UncompressedSize
	}
	if total/uint64(len(entries)) < parallelMinAvgBytes {
		return 1
	}
	return min(runtime.GOMAXPROCS(0), len(entries))
}
