package objective

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/copyleftdev/bbdob/internal/encoding"
)

// EvaluateParallel validates the whole population, then evaluates it in
// contiguous chunks on up to workers goroutines. The merged result is in
// population order and equal to o.Evaluate(c). workers < 1 means GOMAXPROCS.
//
// When o is a DeferredEvaluator its side effects are committed after all
// chunks succeed, so a failed batch leaves no trace. A rejected batch is
// reported to o when it is a RejectionObserver.
func EvaluateParallel(ctx context.Context, o Objective, c *encoding.Tensor, workers int) (*Result, error) {
	if _, derr := Decode(c, o.Dim(), o.Categories()); derr != nil {
		err := derr.WithComponent(o.Name())
		if ro, ok := o.(RejectionObserver); ok {
			ro.ObserveRejection(err)
		}
		return nil, err
	}
	if c.Rank() == 2 {
		c = c.Expand()
	}

	pop := c.Shape[0]
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers == 1 || pop <= 1 {
		return o.Evaluate(c)
	}

	chunk := (pop + workers - 1) / workers
	parts := make([]*Result, (pop+chunk-1)/chunk)
	commits := make([]func(), len(parts))
	deferred, _ := o.(DeferredEvaluator)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range parts {
		from, to := i*chunk, min((i+1)*chunk, pop)
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			var (
				r   *Result
				err error
			)
			if deferred != nil {
				r, commits[i], err = deferred.EvaluateDeferred(c.Slice(from, to))
			} else {
				r, err = o.Evaluate(c.Slice(from, to))
			}
			if err != nil {
				return err
			}
			parts[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	for _, commit := range commits {
		if commit != nil {
			commit()
		}
	}
	return Merge(parts...), nil
}

// Merge concatenates results in order. Info keys are taken from the first
// result.
func Merge(parts ...*Result) *Result {
	out := &Result{Info: map[string][]float64{}}
	if len(parts) == 0 {
		return out
	}
	for k := range parts[0].Info {
		out.Info[k] = nil
	}
	for _, p := range parts {
		out.Fitness = append(out.Fitness, p.Fitness...)
		for k := range out.Info {
			out.Info[k] = append(out.Info[k], p.Info[k]...)
		}
	}
	return out
}
