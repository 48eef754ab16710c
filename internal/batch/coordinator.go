// Package batch runs per-item filesystem operations on a bounded worker pool.
package batch

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"go-fileops/internal/model"
	"go-fileops/pkg/fserr"
)

const DefaultWorkers = 4

// Item describes one unit of work. Keys are the paths the item reads or writes;
// items whose keys are equal, or where one key contains another, run one after
// the other in input order.
type Item struct {
	Path string
	Keys []string
}

// Func performs item index. A returned error is fatal for the whole batch: the
// outcome is still recorded and items that have not started report Cancelled.
type Func func(ctx context.Context, index int) (model.Outcome, error)

// Observer is told about every finished item. Calls are serialized.
type Observer func(model.Outcome)

type Coordinator struct {
	workers int
}

func New(workers int) *Coordinator {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Coordinator{workers: workers}
}

func (c *Coordinator) Workers() int {
	return c.workers
}

// Run executes fn for every item and returns one outcome per item in input order.
// Cancelling ctx stops new items from starting; items already running finish.
func (c *Coordinator) Run(ctx context.Context, items []Item, fn Func, observe Observer) (model.BatchResult, error) {
	outcomes := make([]model.Outcome, len(items))
	for i, item := range items {
		outcomes[i] = model.NotStarted(i, item.Path)
	}
	if len(items) == 0 {
		return model.NewBatchResult(outcomes), nil
	}

	var (
		observeMu sync.Mutex
		cut       atomic.Bool
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)

	for _, chain := range chains(items) {
		if gctx.Err() != nil {
			cut.Store(true)
			break
		}

		g.Go(func() error {
			for _, idx := range chain {
				if gctx.Err() != nil {
					cut.Store(true)
					return nil
				}

				outcome, err := fn(context.WithoutCancel(gctx), idx)
				outcome.Index = idx
				if outcome.Path == "" {
					outcome.Path = items[idx].Path
				}
				outcomes[idx] = outcome

				if observe != nil {
					observeMu.Lock()
					observe(outcome)
					observeMu.Unlock()
				}

				if err != nil {
					return err
				}
			}
			return nil
		})
	}

	err := g.Wait()
	result := model.NewBatchResult(outcomes)
	if err != nil {
		return result, err
	}
	if cut.Load() && ctx.Err() != nil {
		return result, fserr.Wrap(fserr.Cancelled, "batch", "", ctx.Err())
	}
	return result, nil
}

// chains groups item indices whose keys overlap. Each chain is in ascending index
// order and chains are ordered by their first index.
func chains(items []Item) [][]int {
	parent := make([]int, len(items))
	for i := range parent {
		parent[i] = i
	}

	var find func(int) int
	find = func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}
	union := func(a, b int) {
		ra, rb := find(a), find(b)
		if ra == rb {
			return
		}
		if ra < rb {
			parent[rb] = ra
		} else {
			parent[ra] = rb
		}
	}

	holders := make(map[string][]int)
	for i, item := range items {
		for _, key := range item.Keys {
			if key == "" {
				continue
			}
			key = filepath.Clean(key)
			holders[key] = append(holders[key], i)
		}
	}

	for key, idxs := range holders {
		for _, other := range idxs[1:] {
			union(idxs[0], other)
		}
		for ancestor := filepath.Dir(key); ; ancestor = filepath.Dir(ancestor) {
			if owners, ok := holders[ancestor]; ok {
				union(idxs[0], owners[0])
			}
			if next := filepath.Dir(ancestor); next == ancestor {
				break
			}
		}
	}

	byRoot := make(map[int][]int)
	order := make([]int, 0)
	for i := range items {
		root := find(i)
		if _, seen := byRoot[root]; !seen {
			order = append(order, root)
		}
		byRoot[root] = append(byRoot[root], i)
	}

	out := make([][]int, 0, len(order))
	for _, root := range order {
		out = append(out, byRoot[root])
	}
	return out
}
