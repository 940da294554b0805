package slog_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/fwojciec/furnitron"
	"github.com/fwojciec/furnitron/mock"
	fslog "github.com/fwojciec/furnitron/slog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggingClassifier_Classify(t *testing.T) {
	t.Parallel()

	t.Run("logs batch size and name count", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		inner := &mock.Classifier{
			ClassifyFn: func(ctx context.Context, texts []string) ([]furnitron.Label, error) {
				return []furnitron.Label{furnitron.LabelProductName, furnitron.LabelOther, furnitron.LabelProductName}, nil
			},
		}

		labels, err := fslog.NewLoggingClassifier(inner, debugLogger(&buf)).Classify(context.Background(), []string{"a b", "c d", "e f"})

		require.NoError(t, err)
		assert.Len(t, labels, 3)
		output := buf.String()
		assert.Contains(t, output, "msg=classify")
		assert.Contains(t, output, "texts=3")
		assert.Contains(t, output, "names=2")
	})

	t.Run("logs error on failure", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		inner := &mock.Classifier{
			ClassifyFn: func(ctx context.Context, texts []string) ([]furnitron.Label, error) {
				return nil, furnitron.Errorf(furnitron.EUNAVAILABLE, "model server down")
			},
		}

		_, err := fslog.NewLoggingClassifier(inner, debugLogger(&buf)).Classify(context.Background(), []string{"a b"})

		require.Error(t, err)
		output := buf.String()
		assert.Contains(t, output, "names=0")
		assert.Contains(t, output, "model server down")
	})
}
