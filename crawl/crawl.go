// Package crawl provides extraction orchestration. It drives each URL through
// rendering, leaf collection and candidate filtering on parallel workers,
// funnels the candidates into a single batching classifier stage, and
// aggregates the labeled results into a report.
package crawl

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"time"

	"github.com/fwojciec/furnitron"
	"golang.org/x/sync/errgroup"
)

// Crawler orchestrates product-name extraction over a list of URLs.
type Crawler struct {
	Renderer    furnitron.Renderer
	Classifier  furnitron.Classifier
	RateLimiter furnitron.DomainLimiter // optional
	Logger      *slog.Logger            // optional
	Config      Config
}

// ProgressEvent reports progress during a run.
type ProgressEvent struct {
	Type       ProgressType
	URL        string
	Completed  int
	Total      int
	Attempt    int
	Candidates int
	Error      error
}

// ProgressType indicates the type of progress event.
type ProgressType int

const (
	ProgressStarted ProgressType = iota
	ProgressRetry
	ProgressExtracted
	ProgressSkipped
	ProgressFinished
)

// ProgressFunc is a callback for reporting run progress.
// It may be called concurrently from multiple workers.
type ProgressFunc func(event ProgressEvent)

// run holds the state shared by the workers of one Process call.
type run struct {
	*Crawler
	cfg      Config
	filter   *furnitron.CandidateFilter
	agg      *Aggregator
	batcher  *Batcher
	logger   *slog.Logger
	progress ProgressFunc
	total    int
}

// Process extracts product names from urls and returns a report with one
// entry per distinct URL, in input order. Per-URL failures are recorded in
// the report and never abort the run.
//
// Canceling ctx aborts in-flight renders and skips the remaining URLs with
// reason "cancelled"; candidates already collected are still classified.
//
// Returns EINVALID for an invalid configuration, before any URL is processed,
// and EINVARIANT if the pipeline detects a programming error.
func (c *Crawler) Process(ctx context.Context, urls []string, progress ProgressFunc) (*furnitron.Report, error) {
	if err := c.Config.Validate(); err != nil {
		return nil, err
	}
	filter, err := furnitron.NewCandidateFilter(c.Config.Filter)
	if err != nil {
		return nil, err
	}

	logger := c.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	urls = uniqueURLs(urls)
	startedAt := time.Now()

	r := &run{
		Crawler:  c,
		cfg:      c.Config,
		filter:   filter,
		logger:   logger,
		progress: progress,
		total:    len(urls),
	}
	r.agg = NewAggregator(urls, WithResolveHook(r.logURL))
	r.batcher = NewBatcher(ctx, c.Classifier, r.agg,
		WithBatchSize(r.cfg.BatchSize),
		WithClassifyDelays(r.cfg.Backoff().Delays(r.cfg.ClassifyRetries)),
		WithClassifyTimeout(r.cfg.ClassifyTimeout),
		WithBatchLogger(logger),
	)

	r.notify(ProgressEvent{Type: ProgressStarted, Total: r.total})

	tasks := make([]*Task, len(urls))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Concurrency)
	for i, u := range urls {
		task := NewTask(u)
		tasks[i] = task
		g.Go(func() error {
			return r.processURL(gctx, task)
		})
	}

	fatal := g.Wait()
	if err := r.batcher.Close(); err != nil && fatal == nil {
		fatal = err
	}
	if fatal != nil {
		for _, u := range r.agg.Unresolved() {
			r.logger.Error("url processed", "url", u, "outcome", "unresolved", "err", fatal)
		}
		return nil, fatal
	}

	for _, task := range tasks {
		if task.Status == StatusAwaitingClassification && r.agg.Resolved(task.URL) {
			if err := task.Advance(StatusDone); err != nil {
				return nil, err
			}
		}
	}

	report, err := r.agg.Finalize()
	if err != nil {
		return nil, err
	}
	report.StartedAt = startedAt
	report.FinishedAt = time.Now()

	r.logReport(report)
	r.notify(ProgressEvent{Type: ProgressFinished, Completed: r.total, Total: r.total})

	return report, nil
}

// processURL renders, collects and filters one URL and submits its
// candidates for classification. Only invariant violations are returned;
// every other failure resolves the URL as skipped.
func (r *run) processURL(ctx context.Context, task *Task) error {
	if err := r.agg.Begin(task.URL); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return r.skip(task, furnitron.ReasonCancelled, err)
	}

	var page *furnitron.RenderedPage
	_, err := Retry(ctx, r.cfg.Backoff().Delays(r.cfg.MaxRetries), furnitron.IsTransient, func(ctx context.Context, _ int) error {
		if err := task.Advance(StatusFetching); err != nil {
			return err
		}
		p, err := r.render(ctx, task.URL)
		if err != nil {
			return err
		}
		page = p
		return nil
	}, func(attempt int, delay time.Duration, err error) {
		r.logger.Warn("render retry",
			"url", task.URL,
			"attempt", attempt,
			"delay", delay,
			"err", err,
		)
		r.notify(ProgressEvent{Type: ProgressRetry, URL: task.URL, Attempt: attempt, Total: r.total, Error: err})
	})
	if err != nil {
		switch {
		case furnitron.ErrorCode(err) == furnitron.EINVARIANT:
			return err
		case ctx.Err() != nil:
			return r.skip(task, furnitron.ReasonCancelled, err)
		case furnitron.IsTransient(err):
			return r.skip(task, furnitron.ReasonExhaustedRetries, err)
		default:
			return r.skip(task, furnitron.ReasonFailed, err)
		}
	}

	if err := task.Advance(StatusExtracting); err != nil {
		page.Release()
		return err
	}
	nodes := furnitron.Collect(page.Root)
	page.Release()

	candidates, err := r.filter.Filter(task.URL, nodes)
	if err != nil {
		return err
	}
	if err := r.agg.Expect(task.URL, task.Attempts, len(candidates)); err != nil {
		return err
	}
	if err := task.Advance(StatusAwaitingClassification); err != nil {
		return err
	}
	for _, c := range candidates {
		if err := r.batcher.Submit(c); err != nil {
			return err
		}
	}

	r.notify(ProgressEvent{
		Type:       ProgressExtracted,
		URL:        task.URL,
		Total:      r.total,
		Attempt:    task.Attempts,
		Candidates: len(candidates),
	})
	return nil
}

// render performs one rate-limited render attempt bounded by PerPageTimeout.
func (r *run) render(ctx context.Context, rawURL string) (*furnitron.RenderedPage, error) {
	if r.RateLimiter != nil {
		if err := r.RateLimiter.Wait(ctx, hostOf(rawURL)); err != nil {
			return nil, err
		}
	}

	attemptCtx, cancel := context.WithTimeout(ctx, r.cfg.PerPageTimeout)
	defer cancel()

	page, err := r.Renderer.Render(attemptCtx, rawURL)
	if err != nil {
		// A renderer that surfaces the bare deadline still counts as a timeout.
		if ctx.Err() == nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) && !furnitron.IsTransient(err) {
			return nil, furnitron.Errorf(furnitron.ETIMEOUT, "render %s: timed out after %s", rawURL, r.cfg.PerPageTimeout)
		}
		return nil, err
	}
	return page, nil
}

func (r *run) skip(task *Task, reason string, cause error) error {
	if err := task.Advance(StatusSkipped); err != nil {
		return err
	}
	if err := r.agg.Skip(task.URL, task.Attempts, reason, cause); err != nil {
		return err
	}
	r.notify(ProgressEvent{
		Type:    ProgressSkipped,
		URL:     task.URL,
		Total:   r.total,
		Attempt: task.Attempts,
		Error:   cause,
	})
	return nil
}

func (r *run) notify(event ProgressEvent) {
	if r.progress != nil {
		r.progress(event)
	}
}

// logURL emits the timing record of a URL when it resolves.
func (r *run) logURL(u *furnitron.URLReport) {
	attrs := []any{
		"url", u.URL,
		"outcome", u.Outcome,
		"attempts", u.Attempts,
		"elapsed", u.Elapsed,
		"candidates", u.Candidates,
		"names", len(u.Names),
	}
	if u.Reason != "" {
		attrs = append(attrs, "reason", u.Reason, "err", u.Error)
	}
	if len(u.Degraded) > 0 {
		attrs = append(attrs, "degraded", u.Degraded)
	}
	r.logger.Info("url processed", attrs...)
}

// logReport emits the run summary.
func (r *run) logReport(report *furnitron.Report) {
	batches, degraded := r.batcher.Stats()
	r.logger.Info("run finished",
		"urls", len(report.URLs),
		"succeeded", report.Count(furnitron.OutcomeSucceeded),
		"degraded", report.Count(furnitron.OutcomeDegraded),
		"skipped", report.Count(furnitron.OutcomeSkipped),
		"batches", batches,
		"degradedCandidates", degraded,
		"duration", report.Duration(),
	)
}

// uniqueURLs drops repeated URLs, keeping the first occurrence.
func uniqueURLs(urls []string) []string {
	seen := make(map[string]struct{}, len(urls))
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return u.Host
}
