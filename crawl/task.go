package crawl

import "github.com/fwojciec/furnitron"

// Status is the lifecycle stage of a URL within a run.
type Status int

// Status values, in lifecycle order.
const (
	StatusPending Status = iota
	StatusFetching
	StatusExtracting
	StatusAwaitingClassification
	StatusDone
	StatusSkipped
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusFetching:
		return "fetching"
	case StatusExtracting:
		return "extracting"
	case StatusAwaitingClassification:
		return "awaiting-classification"
	case StatusDone:
		return "done"
	case StatusSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// transitions lists the allowed next states. Fetching may be re-entered
// for a retry; every other move is forward only.
var transitions = map[Status][]Status{
	StatusPending:                {StatusFetching, StatusSkipped},
	StatusFetching:               {StatusFetching, StatusExtracting, StatusSkipped},
	StatusExtracting:             {StatusAwaitingClassification},
	StatusAwaitingClassification: {StatusDone},
}

// Task tracks one URL through the pipeline.
// A Task is owned by a single goroutine and is not safe for concurrent use.
type Task struct {
	URL      string
	Attempts int
	Status   Status
}

// NewTask returns a pending task for url.
func NewTask(url string) *Task {
	return &Task{URL: url, Status: StatusPending}
}

// Advance moves the task to the next status. Entering StatusFetching counts
// as a new attempt. Returns EINVARIANT for a transition that is not allowed.
func (t *Task) Advance(to Status) error {
	for _, next := range transitions[t.Status] {
		if next == to {
			if to == StatusFetching {
				t.Attempts++
			}
			t.Status = to
			return nil
		}
	}
	return furnitron.Errorf(furnitron.EINVARIANT, "task %s: illegal transition %s -> %s", t.URL, t.Status, to)
}

// Terminal reports whether the task has reached Done or Skipped.
func (t *Task) Terminal() bool {
	return t.Status == StatusDone || t.Status == StatusSkipped
}
