package service

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"unicode"

	"github.com/jinzhu/inflection"

	"github.com/MekdelawitGebre/customer-experience-fintech/domain/review"
)

// DefaultThemesTopN is used when a non-positive top N is requested.
const DefaultThemesTopN = 5

// Themes extracts keyword themes from review texts.
type Themes struct {
	tagger review.Tagger
}

// NewThemes creates a Themes service.
func NewThemes(tagger review.Tagger) *Themes {
	return &Themes{tagger: tagger}
}

// ExtractPerReview returns the topN most frequent noun and adjective lemmas
// of each text, most frequent first with ties in order of first appearance.
// Blank texts give an empty list without calling the tagger. A tagger
// failure stops the batch.
func (t *Themes) ExtractPerReview(ctx context.Context, texts []string, topN int) ([][]string, error) {
	if topN <= 0 {
		topN = DefaultThemesTopN
	}
	out := make([][]string, len(texts))
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			out[i] = []string{}
			continue
		}
		tokens, err := t.tagger.Tag(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("tag review %d: %w", i, err)
		}
		out[i] = TopThemes(tokens, topN)
	}
	return out, nil
}

// TopThemes counts the noun and adjective lemmas in tokens and returns the
// topN most frequent.
func TopThemes(tokens []review.Token, topN int) []string {
	counts := map[string]int{}
	var order []string
	for _, tok := range tokens {
		pos := strings.ToUpper(tok.POS)
		if pos != review.POSNoun && pos != review.POSAdjective {
			continue
		}
		for _, word := range strings.Fields(tok.Text) {
			lemma := Lemma(word, pos)
			if lemma == "" {
				continue
			}
			if _, ok := counts[lemma]; !ok {
				order = append(order, lemma)
			}
			counts[lemma]++
		}
	}

	// order is first-seen, and the stable sort keeps it for equal counts.
	slices.SortStableFunc(order, func(a, b string) int {
		return counts[b] - counts[a]
	})
	if len(order) > topN {
		order = order[:topN]
	}
	if order == nil {
		return []string{}
	}
	return order
}

// Lemma lower-cases a word, strips surrounding punctuation and singularizes
// nouns. Words without letters give "".
func Lemma(word, pos string) string {
	w := strings.ToLower(strings.TrimFunc(word, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	}))
	if !strings.ContainsFunc(w, unicode.IsLetter) {
		return ""
	}
	if pos == review.POSNoun {
		w = inflection.Singular(w)
	}
	return w
}
