package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MekdelawitGebre/customer-experience-fintech/domain/review"
	"github.com/MekdelawitGebre/customer-experience-fintech/infrastructure/csvio"
	"github.com/MekdelawitGebre/customer-experience-fintech/infrastructure/persistence"
	"github.com/MekdelawitGebre/customer-experience-fintech/internal/testdb"
)

type fakeWriter struct {
	inserted map[string][]review.Review
	failFor  string
}

func newFakeWriter() *fakeWriter {
	return &fakeWriter{inserted: map[string][]review.Review{}}
}

func (f *fakeWriter) Insert(_ context.Context, bank string, reviews []review.Review) (int, error) {
	if bank == f.failFor {
		return 0, errors.New("constraint violation")
	}
	f.inserted[bank] = append(f.inserted[bank], reviews...)
	return len(reviews), nil
}

func (f *fakeWriter) InsertReviews(ctx context.Context, bank string, reviews []review.Review) (int, bool) {
	n, err := f.Insert(ctx, bank, reviews)
	return n, err == nil
}

func TestBankFromFile(t *testing.T) {
	assert.Equal(t, "cbe", BankFromFile("/data/output/cbe_themes.csv"))
	assert.Equal(t, "Dashen", BankFromFile("Dashen_reviews_themes.csv"))
	assert.Equal(t, "boa", BankFromFile("boa.csv"))
}

func TestIngest_IngestDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, csvio.WriteAnalyzed(filepath.Join(dir, "cbe_themes.csv"), []review.Review{
		review.NewReview("good app", 5, nil, "", review.SourceGooglePlay).
			WithSentiment(review.Sentiment{Label: review.Positive, Score: 0.9}).
			WithThemes(review.Themes{"good", "app"}),
	}))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "boa_themes.csv"),
		[]byte("review_text,rating\nbroken,not-a-number\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip"), 0o644))

	writer := newFakeWriter()
	svc := NewIngest(writer, discardLogger())

	results, err := svc.IngestDir(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "boa", results[0].Bank)
	assert.Error(t, results[0].Err)
	assert.Equal(t, "cbe", results[1].Bank)
	assert.NoError(t, results[1].Err)
	assert.Equal(t, 1, results[1].Inserted)

	require.Len(t, writer.inserted["cbe"], 1)
	assert.Equal(t, review.Themes{"good", "app"}, writer.inserted["cbe"][0].Themes())
}

func TestIngest_WriterFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cbe_themes.csv")
	require.NoError(t, csvio.WriteAnalyzed(path, []review.Review{
		review.NewReview("ok", 3, nil, "", review.SourceGooglePlay).WithSentiment(review.NeutralSentiment()),
	}))

	writer := newFakeWriter()
	writer.failFor = "cbe"
	_, err := NewIngest(writer, discardLogger()).IngestFile(context.Background(), path)
	assert.ErrorContains(t, err, "constraint violation")
}

func TestIngest_InvalidRowsAreNotStored(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cbe_themes.csv")
	require.NoError(t, os.WriteFile(path, []byte(
		"review_text,rating,review_date,user_name,source,sentiment_label,sentiment_score,identified_theme\n"+
			",9,2025-01-01,u,google_play,bogus,7.5,\"['x']\"\n"+
			"good app,5,2025-01-02,u,google_play,POSITIVE,0.9,\"['good', 'app']\"\n",
	), 0o644))

	store := persistence.NewReviewStore(testdb.New(t), "", discardLogger())
	n, err := NewIngest(store, discardLogger()).IngestFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := store.GetAllReviews(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "good app", got[0].Text())
	assert.Equal(t, review.Positive, got[0].Sentiment().Label)
	assert.Equal(t, review.Themes{"good", "app"}, got[0].Themes())
}

func TestIngest_EmptyDir(t *testing.T) {
	results, err := NewIngest(newFakeWriter(), discardLogger()).IngestDir(context.Background(), t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, results)
}
