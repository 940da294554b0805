package furnitron

import (
	"context"
	"io"
	"time"
)

// Outcome is the terminal state of a URL in a report.
type Outcome string

// Outcome values.
const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeDegraded  Outcome = "degraded"
)

// Skip reasons recorded on skipped URLs.
const (
	ReasonExhaustedRetries = "exhausted-retries"
	ReasonCancelled        = "cancelled"
	ReasonFailed           = "failed"
)

// URLReport is the outcome of extracting product names from one URL.
type URLReport struct {
	URL        string        `json:"url"`
	Position   int           `json:"position"`
	Outcome    Outcome       `json:"outcome"`
	Reason     string        `json:"reason,omitempty"`
	Error      string        `json:"error,omitempty"`
	Attempts   int           `json:"attempts"`
	Elapsed    time.Duration `json:"elapsed"`
	Candidates int           `json:"candidates"`

	// Names are the candidates labeled as product names, in discovery order.
	Names []string `json:"names"`

	// Degraded are the candidates that fell back to LabelOther because the
	// classifier was unavailable. They are kept for auditing only.
	Degraded []string `json:"degraded,omitempty"`
}

// Report is the result of one extraction run. URLs follow input order.
type Report struct {
	ID         string       `json:"id"`
	StartedAt  time.Time    `json:"startedAt"`
	FinishedAt time.Time    `json:"finishedAt"`
	URLs       []*URLReport `json:"urls"`
}

// Lookup returns the entry for url, or nil if the report has none.
func (r *Report) Lookup(url string) *URLReport {
	for _, u := range r.URLs {
		if u.URL == url {
			return u
		}
	}
	return nil
}

// Names returns the accepted product names keyed by URL.
// Every URL in the report has a key, even when it has no names.
func (r *Report) Names() map[string][]string {
	m := make(map[string][]string, len(r.URLs))
	for _, u := range r.URLs {
		names := u.Names
		if names == nil {
			names = []string{}
		}
		m[u.URL] = names
	}
	return m
}

// Duration returns the wall time of the run.
func (r *Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Count returns the number of URLs with the given outcome.
func (r *Report) Count(outcome Outcome) int {
	var n int
	for _, u := range r.URLs {
		if u.Outcome == outcome {
			n++
		}
	}
	return n
}

// Run summarizes a stored report.
type Run struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	URLCount   int       `json:"urlCount"`
	NameCount  int       `json:"nameCount"`
}

// RunFilter represents a filter for FindRuns.
type RunFilter struct {
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

// NameMatch is a stored product name matching a search.
type NameMatch struct {
	RunID string `json:"runId"`
	URL   string `json:"url"`
	Name  string `json:"name"`
}

// NameCount is the number of times a product name was stored.
type NameCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// NameFilter represents a filter for SearchNames and CountNames.
type NameFilter struct {
	RunID *string `json:"runId"`
	Query string  `json:"query"`
	Limit int     `json:"limit"`
}

// ReportService represents a service for persisting extraction reports.
type ReportService interface {
	// CreateReport stores a report and assigns its ID.
	CreateReport(ctx context.Context, report *Report) error

	// FindReportByID retrieves a report by run ID.
	// Returns ENOTFOUND if the run does not exist.
	FindReportByID(ctx context.Context, id string) (*Report, error)

	// FindRuns retrieves stored runs, newest first.
	FindRuns(ctx context.Context, filter RunFilter) ([]*Run, error)

	// SearchNames returns stored product names containing filter.Query,
	// compared case-insensitively.
	SearchNames(ctx context.Context, filter NameFilter) ([]*NameMatch, error)

	// CountNames returns stored product names by descending frequency.
	CountNames(ctx context.Context, filter NameFilter) ([]*NameCount, error)
}

// ReportFormatter renders a report for people or downstream tools.
type ReportFormatter interface {
	FormatReport(w io.Writer, report *Report) error
}
