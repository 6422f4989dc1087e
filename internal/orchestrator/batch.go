package orchestrator

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/valpere/glosstran/internal"
)

// BatchItem is the outcome for one query of a batch. When Err is set, Result
// may still carry the matches found before generation failed.
type BatchItem struct {
	Index  int
	Query  string
	Result *internal.TranslationResult
	Err    error
}

// TranslateBatch translates queries with up to workers concurrent calls and
// returns one item per query in input order. A failing query never aborts
// the batch.
func (o *Orchestrator) TranslateBatch(ctx context.Context, queries []string, workers int) []BatchItem {
	if workers <= 0 {
		workers = 1
	}
	items := make([]BatchItem, len(queries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, q := range queries {
		items[i] = BatchItem{Index: i, Query: q}
		g.Go(func() error {
			res, err := o.Run(gctx, q)
			items[i].Result = res
			items[i].Err = err
			return nil
		})
	}
	_ = g.Wait()
	return items
}

// Failed counts items that ended in an error.
func Failed(items []BatchItem) int {
	n := 0
	for _, it := range items {
		if it.Err != nil {
			n++
		}
	}
	return n
}
