package mock

import (
	"context"

	"github.com/fwojciec/furnitron"
)

var _ furnitron.Classifier = (*Classifier)(nil)

// Classifier is a mock implementation of furnitron.Classifier.
type Classifier struct {
	ClassifyFn func(ctx context.Context, texts []string) ([]furnitron.Label, error)
}

func (c *Classifier) Classify(ctx context.Context, texts []string) ([]furnitron.Label, error) {
	return c.ClassifyFn(ctx, texts)
}
