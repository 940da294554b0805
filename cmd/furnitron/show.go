package main

import (
	"fmt"

	"github.com/fwojciec/furnitron"
)

// Run executes the show command.
func (c *ShowCmd) Run(deps *Dependencies) error {
	report, err := deps.Reports.FindReportByID(deps.Ctx, c.ID)
	if err != nil {
		if furnitron.ErrorCode(err) == furnitron.ENOTFOUND {
			fmt.Fprintf(deps.Stderr, "error: run %q not found. Use 'furnitron runs' to see stored runs.\n", c.ID)
			return err
		}
		fmt.Fprintf(deps.Stderr, "error: %s\n", furnitron.ErrorMessage(err))
		return err
	}
	return newFormatter(c.Format).FormatReport(deps.Stdout, report)
}
