package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MekdelawitGebre/customer-experience-fintech/domain/review"
)

// fakeTagger tags words from a fixed dictionary; unknown words are NOUN.
type fakeTagger struct {
	pos   map[string]string
	err   error
	calls int
}

func (f *fakeTagger) Tag(_ context.Context, text string) ([]review.Token, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	var tokens []review.Token
	for _, word := range strings.Fields(text) {
		pos, ok := f.pos[strings.ToLower(strings.Trim(word, ".,!?"))]
		if !ok {
			pos = review.POSNoun
		}
		tokens = append(tokens, review.Token{Text: word, POS: pos})
	}
	return tokens, nil
}

func englishTagger() *fakeTagger {
	return &fakeTagger{pos: map[string]string{
		"the": "DET", "is": "AUX", "and": "CCONJ", "often": "ADV",
		"slow": review.POSAdjective, "good": review.POSAdjective, "crashes": "VERB",
		"i": "PRON", "love": "VERB", "this": "DET",
	}}
}

func TestThemes_ExtractPerReview(t *testing.T) {
	svc := NewThemes(englishTagger())

	got, err := svc.ExtractPerReview(context.Background(), []string{
		"The app is slow and crashes often",
		"good app good transfers",
	}, 5)
	require.NoError(t, err)

	assert.Contains(t, got[0], "slow")
	assert.Equal(t, []string{"app", "slow"}, got[0])
	assert.Equal(t, []string{"good", "app", "transfer"}, got[1])
}

func TestThemes_BlankTextsSkipTagger(t *testing.T) {
	tagger := englishTagger()
	svc := NewThemes(tagger)

	got, err := svc.ExtractPerReview(context.Background(), []string{"", "   "}, 5)
	require.NoError(t, err)

	assert.Equal(t, [][]string{{}, {}}, got)
	assert.Zero(t, tagger.calls)
}

func TestThemes_TopNAndDefault(t *testing.T) {
	svc := NewThemes(&fakeTagger{})
	text := "a b c d e f g"

	got, err := svc.ExtractPerReview(context.Background(), []string{text}, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got[0])

	got, err = svc.ExtractPerReview(context.Background(), []string{text}, 0)
	require.NoError(t, err)
	assert.Len(t, got[0], DefaultThemesTopN)
}

func TestThemes_TaggerErrorStopsBatch(t *testing.T) {
	svc := NewThemes(&fakeTagger{err: errors.New("model not loaded")})

	_, err := svc.ExtractPerReview(context.Background(), []string{"anything"}, 5)
	assert.ErrorContains(t, err, "model not loaded")
}

func TestTopThemes(t *testing.T) {
	tokens := []review.Token{
		{Text: "Fees", POS: "NOUN"},
		{Text: "high", POS: "adj"},
		{Text: "fee", POS: "NOUN"},
		{Text: "Abebe", POS: "PROPN"},
		{Text: "2024", POS: "NUM"},
		{Text: "!!", POS: "NOUN"},
		{Text: "login page", POS: "NOUN"},
	}
	assert.Equal(t, []string{"fee", "high", "login", "page"}, TopThemes(tokens, 5))
	assert.Equal(t, []string{}, TopThemes(nil, 5))
}

func TestLemma(t *testing.T) {
	tests := []struct {
		word, pos, want string
	}{
		{"Crashes", review.POSNoun, "crash"},
		{"updates.", review.POSNoun, "update"},
		{"slower", review.POSAdjective, "slower"},
		{"42", review.POSNoun, ""},
		{"(app)", review.POSNoun, "app"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Lemma(tt.word, tt.pos), tt.word)
	}
}
