package main

import (
	"fmt"
	"time"

	"github.com/fwojciec/furnitron"
	"github.com/fwojciec/furnitron/crawl"
)

// Run executes the runs command.
func (c *RunsCmd) Run(deps *Dependencies) error {
	runs, err := deps.Reports.FindRuns(deps.Ctx, furnitron.RunFilter{Limit: c.Limit})
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", furnitron.ErrorMessage(err))
		return err
	}

	if len(runs) == 0 {
		fmt.Fprintln(deps.Stdout, "No runs found. Use 'furnitron extract' to start one.")
		return nil
	}

	for _, r := range runs {
		fmt.Fprintf(deps.Stdout, "%s  %s  %d URLs  %d names  %s\n",
			r.ID,
			r.StartedAt.Local().Format(time.DateTime),
			r.URLCount,
			r.NameCount,
			crawl.FormatDuration(r.FinishedAt.Sub(r.StartedAt)))
	}
	return nil
}
