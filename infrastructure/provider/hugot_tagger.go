package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/pipelines"

	"github.com/MekdelawitGebre/customer-experience-fintech/domain/review"
)

// HugotTagger tags words with universal part-of-speech labels using a local
// token classification model.
type HugotTagger struct {
	models   Models
	model    string
	pipeline *pipelines.TokenClassificationPipeline
}

// NewHugotTagger creates a tagger for model, resolved through models. The
// pipeline is loaded on first use.
func NewHugotTagger(models Models, model string) *HugotTagger {
	return &HugotTagger{models: models, model: model}
}

// Available reports whether the model files can be found.
func (h *HugotTagger) Available() bool {
	return h.models.Available(h.model)
}

func (h *HugotTagger) initLocked() error {
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
	config := hugot.TokenClassificationConfig{
		ModelPath: modelPath,
		Name:      "pos:" + h.model,
		Options: []hugot.TokenClassificationOption{
			pipelines.WithSimpleAggregation(),
		},
	}
	pipeline, err := hugot.NewPipeline(session, config)
	if err != nil {
		return fmt.Errorf("create token classification pipeline: %w", err)
	}
	h.pipeline = pipeline
	return nil
}

// Tag returns the tagged word groups of text in order.
func (h *HugotTagger) Tag(ctx context.Context, text string) ([]review.Token, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ortSingleton.mu.Lock()
	defer ortSingleton.mu.Unlock()

	if err := h.initLocked(); err != nil {
		return nil, fmt.Errorf("initialize tagging model: %w", err)
	}
	result, err := h.pipeline.RunPipeline([]string{text})
	if err != nil {
		return nil, fmt.Errorf("run tagging pipeline: %w", err)
	}
	if len(result.Entities) == 0 {
		return []review.Token{}, nil
	}

	tokens := make([]review.Token, 0, len(result.Entities[0]))
	for _, e := range result.Entities[0] {
		tokens = append(tokens, review.Token{
			Text: entityText(text, e.Word, int(e.Start), int(e.End)),
			POS:  posLabel(e.Entity),
		})
	}
	return tokens, nil
}

// entityText prefers the original span over the detokenized word, which
// can carry word-piece markers.
func entityText(text, word string, start, end int) string {
	if start >= 0 && end > start && end <= len(text) {
		return text[start:end]
	}
	return strings.TrimPrefix(word, "##")
}

// posLabel strips a B-/I- prefix and upper-cases the tag.
func posLabel(entity string) string {
	label := strings.ToUpper(entity)
	for _, prefix := range []string{"B-", "I-"} {
		label = strings.TrimPrefix(label, prefix)
	}
	return label
}

var _ review.Tagger = (*HugotTagger)(nil)
