package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/furnitron"
)

// Ensure LoggingClassifier implements furnitron.Classifier.
var _ furnitron.Classifier = (*LoggingClassifier)(nil)

// LoggingClassifier wraps a Classifier with debug logging of every call.
type LoggingClassifier struct {
	next   furnitron.Classifier
	logger *slog.Logger
}

// NewLoggingClassifier creates a new LoggingClassifier.
func NewLoggingClassifier(next furnitron.Classifier, logger *slog.Logger) *LoggingClassifier {
	return &LoggingClassifier{next: next, logger: logger}
}

// Classify delegates to the wrapped classifier and logs the batch size and
// how many texts were labeled as product names.
func (c *LoggingClassifier) Classify(ctx context.Context, texts []string) (labels []furnitron.Label, err error) {
	defer func(begin time.Time) {
		names := 0
		for _, l := range labels {
			if l == furnitron.LabelProductName {
				names++
			}
		}
		c.logger.Debug("classify",
			"texts", len(texts),
			"names", names,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return c.next.Classify(ctx, texts)
}
