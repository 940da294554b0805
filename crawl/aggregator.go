package crawl

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fwojciec/furnitron"
)

// Recorder receives classified candidates.
type Recorder interface {
	Record(cc furnitron.ClassifiedCandidate) error
}

// Compile-time interface verification.
var _ Recorder = (*Aggregator)(nil)

// Aggregator groups classified candidates by source URL and builds the
// final report in input order.
//
// The URL set is fixed at construction. Each URL has its own lock, so
// records for different URLs never contend.
type Aggregator struct {
	entries   map[string]*entry
	urls      []string
	now       func() time.Time
	onResolve func(*furnitron.URLReport)
}

// AggregatorOption configures an Aggregator.
type AggregatorOption func(*Aggregator)

// WithResolveHook calls fn with a URL's final entry as soon as the URL is
// skipped or has all its candidates recorded. fn is called once per URL,
// possibly concurrently for different URLs.
func WithResolveHook(fn func(*furnitron.URLReport)) AggregatorOption {
	return func(a *Aggregator) {
		a.onResolve = fn
	}
}

type entry struct {
	mu sync.Mutex

	position int
	begun    time.Time
	resolved time.Time

	registered bool
	expected   int
	attempts   int
	records    map[int]furnitron.ClassifiedCandidate

	skipped bool
	reason  string
	cause   string
}

// NewAggregator returns an aggregator for the given URLs, which must be distinct.
func NewAggregator(urls []string, opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{
		entries: make(map[string]*entry, len(urls)),
		urls:    urls,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	for i, u := range urls {
		a.entries[u] = &entry{position: i}
	}
	return a
}

// Begin starts the elapsed-time clock for url.
func (a *Aggregator) Begin(url string) error {
	e, err := a.entry(url)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.begun.IsZero() {
		e.begun = a.now()
	}
	return nil
}

// Expect registers that n candidates from url are pending classification.
// A URL with no candidates is resolved immediately.
func (a *Aggregator) Expect(url string, attempts, n int) error {
	e, err := a.entry(url)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.registered || e.skipped {
		return furnitron.Errorf(furnitron.EINVARIANT, "url %s already resolved", url)
	}
	e.registered = true
	e.expected = n
	e.attempts = attempts
	e.records = make(map[int]furnitron.ClassifiedCandidate, n)
	if n == 0 {
		a.resolve(e, url)
	}
	return nil
}

// Skip resolves url without candidates, recording why.
func (a *Aggregator) Skip(url string, attempts int, reason string, cause error) error {
	e, err := a.entry(url)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.registered || e.skipped {
		return furnitron.Errorf(furnitron.EINVARIANT, "url %s already resolved", url)
	}
	e.skipped = true
	e.attempts = attempts
	e.reason = reason
	if cause != nil {
		e.cause = cause.Error()
	}
	a.resolve(e, url)
	return nil
}

// Record stores a classified candidate. Returns EINVARIANT for a candidate
// from an unknown or unregistered URL, a repeated discovery order, or more
// candidates than were expected.
func (a *Aggregator) Record(cc furnitron.ClassifiedCandidate) error {
	e, err := a.entry(cc.SourceURL)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.registered {
		return furnitron.Errorf(furnitron.EINVARIANT, "candidate for unregistered url %s", cc.SourceURL)
	}
	if _, ok := e.records[cc.Order]; ok {
		return furnitron.Errorf(furnitron.EINVARIANT, "duplicate discovery order %d for %s", cc.Order, cc.SourceURL)
	}
	if len(e.records) >= e.expected {
		return furnitron.Errorf(furnitron.EINVARIANT, "unexpected candidate for %s: all %d recorded", cc.SourceURL, e.expected)
	}

	e.records[cc.Order] = cc
	if len(e.records) == e.expected {
		a.resolve(e, cc.SourceURL)
	}
	return nil
}

// Resolved reports whether url has been skipped or has all its candidates recorded.
func (a *Aggregator) Resolved(url string) bool {
	e, ok := a.entries[url]
	if !ok {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.isResolved()
}

// Unresolved returns the URLs, in input order, that are neither skipped nor
// fully recorded.
func (a *Aggregator) Unresolved() []string {
	var pending []string
	for _, u := range a.urls {
		e := a.entries[u]
		e.mu.Lock()
		if !e.isResolved() {
			pending = append(pending, u)
		}
		e.mu.Unlock()
	}
	return pending
}

// Finalize builds the report. Returns EINVARIANT if any URL is unresolved.
func (a *Aggregator) Finalize() (*furnitron.Report, error) {
	report := &furnitron.Report{URLs: make([]*furnitron.URLReport, 0, len(a.urls))}

	var pending []string
	for _, u := range a.urls {
		e := a.entries[u]
		e.mu.Lock()
		if !e.isResolved() {
			pending = append(pending, u)
		} else {
			report.URLs = append(report.URLs, e.report(u))
		}
		e.mu.Unlock()
	}

	if len(pending) > 0 {
		return nil, furnitron.Errorf(furnitron.EINVARIANT, "finalize with %d unresolved urls: %s", len(pending), strings.Join(pending, ", "))
	}
	return report, nil
}

// Must be called with e.mu held.
func (a *Aggregator) resolve(e *entry, url string) {
	e.resolved = a.now()
	if a.onResolve != nil {
		a.onResolve(e.report(url))
	}
}

func (a *Aggregator) entry(url string) (*entry, error) {
	e, ok := a.entries[url]
	if !ok {
		return nil, furnitron.Errorf(furnitron.EINVARIANT, "unknown url %s", url)
	}
	return e, nil
}

// Must be called with mu held.
func (e *entry) isResolved() bool {
	return e.skipped || (e.registered && len(e.records) == e.expected)
}

// Must be called with mu held.
func (e *entry) report(url string) *furnitron.URLReport {
	r := &furnitron.URLReport{
		URL:      url,
		Position: e.position,
		Attempts: e.attempts,
		Names:    []string{},
	}
	if !e.begun.IsZero() {
		r.Elapsed = e.resolved.Sub(e.begun)
	}

	if e.skipped {
		r.Outcome = furnitron.OutcomeSkipped
		r.Reason = e.reason
		r.Error = e.cause
		return r
	}

	records := make([]furnitron.ClassifiedCandidate, 0, len(e.records))
	for _, cc := range e.records {
		records = append(records, cc)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Order < records[j].Order })

	r.Outcome = furnitron.OutcomeSucceeded
	r.Candidates = len(records)
	for _, cc := range records {
		switch {
		case cc.Degraded:
			r.Degraded = append(r.Degraded, cc.Text)
			r.Outcome = furnitron.OutcomeDegraded
		case cc.Label == furnitron.LabelProductName:
			r.Names = append(r.Names, cc.Text)
		}
	}
	return r
}
