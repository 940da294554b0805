package main

import (
	"fmt"

	"github.com/fwojciec/furnitron"
)

// Run executes the stats command.
func (c *StatsCmd) Run(deps *Dependencies) error {
	filter := furnitron.NameFilter{Limit: c.Limit}
	if c.RunID != "" {
		filter.RunID = &c.RunID
	}

	counts, err := deps.Reports.CountNames(deps.Ctx, filter)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", furnitron.ErrorMessage(err))
		return err
	}

	if len(counts) == 0 {
		fmt.Fprintln(deps.Stdout, "No product names stored. Use 'furnitron extract' to collect some.")
		return nil
	}

	for _, nc := range counts {
		fmt.Fprintf(deps.Stdout, "%5d  %s\n", nc.Count, nc.Name)
	}
	return nil
}
