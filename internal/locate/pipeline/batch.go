package pipeline

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// RunMany executes independent jobs with at most the configured number of
// workers. Each job's error is kept on its own Result; one failing job never
// cancels the others. Results are in job order.
func (r *Runner) RunMany(ctx context.Context, jobs []Job) []*Result {
	results := make([]*Result, len(jobs))

	var g errgroup.Group
	g.SetLimit(r.Config.GetWorkers())
	for i, job := range jobs {
		g.Go(func() error {
			res, err := r.Run(ctx, job)
			if res == nil {
				res = &Result{Job: job}
			}
			res.Err = err
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()
	return results
}
