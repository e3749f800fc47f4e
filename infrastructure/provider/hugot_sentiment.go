package provider

import (
	"context"
	"fmt"

	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/pipelines"

	"github.com/MekdelawitGebre/customer-experience-fintech/domain/review"
)

// HugotSentiment classifies review sentiment with a local text
// classification model.
type HugotSentiment struct {
	models   Models
	model    string
	pipeline *pipelines.TextClassificationPipeline
}

// NewHugotSentiment creates a classifier for model, resolved through models.
// The pipeline is loaded on first use.
func NewHugotSentiment(models Models, model string) *HugotSentiment {
	return &HugotSentiment{models: models, model: model}
}

// Available reports whether the model files can be found.
func (h *HugotSentiment) Available() bool {
	return h.models.Available(h.model)
}

func (h *HugotSentiment) initLocked() error {
	if h.pipeline != nil {
		return nil
	}
	modelPath, err := h.models.Path(h.model)
	if err != nil {
		return err
	}
	session, err := sessionLocked()
	if err != nil {
		return err
	}
	config := hugot.TextClassificationConfig{
		ModelPath: modelPath,
		Name:      "sentiment:" + h.model,
		Options: []hugot.TextClassificationOption{
			pipelines.WithSoftmax(),
		},
	}
	pipeline, err := hugot.NewPipeline(session, config)
	if err != nil {
		return fmt.Errorf("create text classification pipeline: %w", err)
	}
	h.pipeline = pipeline
	return nil
}

// Classify returns the highest scoring label for text.
func (h *HugotSentiment) Classify(ctx context.Context, text string) (review.Prediction, error) {
	if err := ctx.Err(); err != nil {
		return review.Prediction{}, err
	}

	ortSingleton.mu.Lock()
	defer ortSingleton.mu.Unlock()

	if err := h.initLocked(); err != nil {
		return review.Prediction{}, fmt.Errorf("initialize sentiment model: %w", err)
	}
	result, err := h.pipeline.RunPipeline([]string{text})
	if err != nil {
		return review.Prediction{}, fmt.Errorf("run sentiment pipeline: %w", err)
	}
	if len(result.ClassificationOutputs) == 0 || len(result.ClassificationOutputs[0]) == 0 {
		return review.Prediction{}, NewProviderError("classify", 0, "empty classification output", nil)
	}

	best := result.ClassificationOutputs[0][0]
	for _, out := range result.ClassificationOutputs[0][1:] {
		if out.Score > best.Score {
			best = out
		}
	}
	return review.Prediction{Label: best.Label, Score: float64(best.Score)}, nil
}

var _ review.Classifier = (*HugotSentiment)(nil)
