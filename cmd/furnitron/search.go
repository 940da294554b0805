package main

import (
	"fmt"

	"github.com/fwojciec/furnitron"
)

// Run executes the search command.
func (c *SearchCmd) Run(deps *Dependencies) error {
	filter := furnitron.NameFilter{Query: c.Keyword, Limit: c.Limit}
	if c.RunID != "" {
		filter.RunID = &c.RunID
	}

	matches, err := deps.Reports.SearchNames(deps.Ctx, filter)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", furnitron.ErrorMessage(err))
		return err
	}

	if len(matches) == 0 {
		fmt.Fprintf(deps.Stdout, "No product names match %q.\n", c.Keyword)
		return nil
	}

	// Group by URL, keeping the order in which URLs first appear.
	var urls []string
	byURL := make(map[string][]string)
	for _, m := range matches {
		if _, ok := byURL[m.URL]; !ok {
			urls = append(urls, m.URL)
		}
		byURL[m.URL] = append(byURL[m.URL], m.Name)
	}

	for _, u := range urls {
		fmt.Fprintf(deps.Stdout, "\nURL: %s\n", u)
		for _, name := range byURL[u] {
			fmt.Fprintf(deps.Stdout, "  %s\n", name)
		}
	}
	return nil
}
