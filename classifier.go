package furnitron

import "context"

// Label is the classifier's verdict on a candidate.
type Label int

// Label values.
const (
	LabelOther Label = iota
	LabelProductName
)

// String returns the label name.
func (l Label) String() string {
	switch l {
	case LabelProductName:
		return "ProductName"
	default:
		return "Other"
	}
}

// ClassifiedCandidate is a candidate with its classifier label.
type ClassifiedCandidate struct {
	Candidate
	Label Label

	// Degraded is set when the classifier could not be reached and the
	// label is the conservative LabelOther rather than a real verdict.
	Degraded bool
}

// Classifier labels batches of candidate texts.
type Classifier interface {
	// Classify returns one label per text, aligned positionally with texts.
	// Returns EUNAVAILABLE when the backend cannot be reached.
	Classify(ctx context.Context, texts []string) ([]Label, error)
}
