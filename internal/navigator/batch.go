package navigator

import (
	"context"

	"github.com/dgallion1/docnav/internal/doctree"
	"golang.org/x/sync/errgroup"
)

// BatchItem is the outcome of one query in a batch. Exactly one of Result
// and Err is set.
type BatchItem struct {
	Query  string  `json:"query"`
	Result *Result `json:"result,omitempty"`
	Err    error   `json:"-"`
}

// QueryBatch runs independent queries against the same index, at most
// concurrency at a time. Each query gets its own accumulators; a failed query
// does not stop the others. Items come back in input order. The returned
// error is non-nil only when ctx ends before every query was started.
func (e *Engine) QueryBatch(ctx context.Context, idx *doctree.Index, queries []string, concurrency int, opts ...QueryOption) ([]BatchItem, error) {
	if concurrency <= 0 {
		concurrency = 4
	}
	items := make([]BatchItem, len(queries))
	for i, q := range queries {
		items[i].Query = q
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, q := range queries {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			res, err := e.Query(gctx, idx, q, opts...)
			if err != nil {
				e.log.Warn("batch query failed", "query", q, "error", err)
				items[i].Err = err
				return nil
			}
			items[i].Result = res
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return items, err
	}
	return items, nil
}
