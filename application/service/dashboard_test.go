package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MekdelawitGebre/customer-experience-fintech/domain/review"
	"github.com/MekdelawitGebre/customer-experience-fintech/infrastructure/cache"
)

type fakeReader struct {
	reviews  []review.Review
	failures int32
	calls    atomic.Int32
	delay    time.Duration
}

func (f *fakeReader) GetAllReviews(_ context.Context, _ bool) ([]review.Review, error) {
	n := f.calls.Add(1)
	time.Sleep(f.delay)
	if n <= f.failures {
		return nil, errors.New("connection reset")
	}
	return f.reviews, nil
}

func stored(id int64, bank string, rating int, label review.SentimentLabel, score float64, themes ...string) review.Review {
	return review.ReconstructReview(id, 1, bank, "text", rating, nil, review.SourceGooglePlay,
		review.Sentiment{Label: label, Score: score}, review.Themes(themes))
}

func row(bank string, rating int, label review.SentimentLabel, score float64, themes ...string) Row {
	return NewRow(stored(0, bank, rating, label, score, themes...))
}

func TestComputeKPIs(t *testing.T) {
	rows := []Row{
		row("CBE", 1, review.Negative, 0.9),
		row("CBE", 1, review.Negative, 0.8),
		row("CBE", 5, review.Positive, 0.9),
		row("BOA", 5, review.Positive, 0.7),
		row("BOA", 5, review.Neutral, 0.5),
	}

	got := ComputeKPIs(rows)

	assert.Equal(t, KPIs{Volume: 5, AvgRating: 3.4, PctPositive: 40, Polarization: 0.2}, got)
	assert.Equal(t, KPIs{}, ComputeKPIs(nil))
}

func TestComputeKPIs_Unrounded(t *testing.T) {
	got := ComputeKPIs([]Row{
		row("CBE", 1, review.Negative, 0.9),
		row("CBE", 5, review.Positive, 0.9),
		row("CBE", 5, review.Neutral, 0.5),
	})

	assert.InDelta(t, 11.0/3, got.AvgRating, 1e-12)
	assert.InDelta(t, 100.0/3, got.PctPositive, 1e-12)
	assert.InDelta(t, 1.0/3, got.Polarization, 1e-12)
	assert.NotEqual(t, 0.33, got.Polarization)
}

func TestKPIColor(t *testing.T) {
	assert.Equal(t, ColorRed, KPIColor(0))
	assert.Equal(t, ColorRed, KPIColor(39.9))
	assert.Equal(t, ColorAmber, KPIColor(40))
	assert.Equal(t, ColorAmber, KPIColor(69.9))
	assert.Equal(t, ColorGreen, KPIColor(70))
}

func TestThemeDrivers(t *testing.T) {
	rows := []Row{
		row("CBE", 5, review.Positive, 0.9, "good", "app"),
		row("CBE", 1, review.Negative, 0.3, "slow", "app", "app"),
		row("BOA", 4, review.Positive, 0.7, "good"),
		row("BOA", 3, review.Neutral, 0.6, "fee"),
	}

	got := ThemeDrivers(rows)

	assert.Equal(t, []ThemeDriver{
		{Theme: "good", Impact: 0.8, Volume: 2},
		{Theme: "app", Impact: 0.6, Volume: 2},
		{Theme: "fee", Impact: 0.6, Volume: 1},
		{Theme: "slow", Impact: 0.3, Volume: 1},
	}, got)
	assert.Empty(t, ThemeDrivers(nil))
}

func TestSentimentAndRatingsByBank(t *testing.T) {
	rows := []Row{
		row("CBE", 1, review.Negative, 0.9),
		row("BOA", 5, review.Positive, 0.7),
		row("BOA", 4, review.Positive, 0.7),
	}

	assert.Equal(t, []BankSentiment{
		{Bank: "BOA", Counts: map[review.SentimentLabel]int{review.Positive: 2, review.Neutral: 0, review.Negative: 0}},
		{Bank: "CBE", Counts: map[review.SentimentLabel]int{review.Positive: 0, review.Neutral: 0, review.Negative: 1}},
	}, SentimentByBank(rows))

	assert.Equal(t, []BankRatings{
		{Bank: "BOA", Stars: [5]int{0, 0, 0, 1, 1}},
		{Bank: "CBE", Stars: [5]int{1, 0, 0, 0, 0}},
	}, RatingDistribution(rows))
}

func TestFilterBanks(t *testing.T) {
	rows := []Row{row("CBE", 1, review.Negative, 0.9), row("BOA", 5, review.Positive, 0.7)}

	assert.Len(t, FilterBanks(rows, nil), 2)
	got := FilterBanks(rows, []string{"BOA"})
	require.Len(t, got, 1)
	assert.Equal(t, "BOA", got[0].Bank)
	assert.Empty(t, FilterBanks(rows, []string{"Dashen"}))
}

func TestDashboard_DatasetIsCached(t *testing.T) {
	reader := &fakeReader{reviews: []review.Review{
		stored(1, "CBE", 5, review.Positive, 0.9, "good", "app"),
	}}
	d := NewDashboard(reader, cache.NewMemory(time.Minute), time.Minute, discardLogger())
	ctx := context.Background()

	first, err := d.Dataset(ctx)
	require.NoError(t, err)
	second, err := d.Dataset(ctx)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), reader.calls.Load())
	assert.Equal(t, review.Themes{"good", "app"}, second[0].Themes)
	assert.Equal(t, 0.9, second[0].StdScore)

	require.NoError(t, d.Invalidate(ctx))
	_, err = d.Dataset(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(2), reader.calls.Load())
}

func TestDashboard_RetriesOnce(t *testing.T) {
	reader := &fakeReader{failures: 1, reviews: []review.Review{stored(1, "CBE", 5, review.Positive, 0.9)}}
	d := NewDashboard(reader, cache.NewMemory(time.Minute), time.Minute, discardLogger())

	rows, err := d.Dataset(context.Background())
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.Equal(t, int32(2), reader.calls.Load())
}

func TestDashboard_ErrorAfterRetry(t *testing.T) {
	reader := &fakeReader{failures: 2}
	d := NewDashboard(reader, cache.NewMemory(time.Minute), time.Minute, discardLogger())

	_, err := d.Dataset(context.Background())
	assert.ErrorContains(t, err, "connection reset")
	assert.Equal(t, int32(2), reader.calls.Load())
}

func TestDashboard_ConcurrentMissesShareOneRead(t *testing.T) {
	reader := &fakeReader{
		delay:   50 * time.Millisecond,
		reviews: []review.Review{stored(1, "CBE", 5, review.Positive, 0.9)},
	}
	d := NewDashboard(reader, cache.NewMemory(time.Minute), time.Minute, discardLogger())

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rows, err := d.Dataset(context.Background())
			assert.NoError(t, err)
			assert.Len(t, rows, 1)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), reader.calls.Load())
}

type ctxReader struct {
	reviews []review.Review
}

func (r ctxReader) GetAllReviews(ctx context.Context, _ bool) ([]review.Review, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.reviews, nil
}

func TestDashboard_CancelledCallerDoesNotFailSharedRead(t *testing.T) {
	reader := ctxReader{reviews: []review.Review{stored(1, "CBE", 5, review.Positive, 0.9)}}
	d := NewDashboard(reader, cache.NewMemory(time.Minute), time.Minute, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rows, err := d.Dataset(ctx)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestDashboard_Summary(t *testing.T) {
	reader := &fakeReader{reviews: []review.Review{
		stored(1, "CBE", 1, review.Negative, 0.9, "slow"),
		stored(2, "BOA", 5, review.Positive, 0.8, "good", "app"),
		stored(3, "BOA", 4, review.Positive, 0.6, "good"),
	}}
	d := NewDashboard(reader, cache.NewMemory(time.Minute), 0, discardLogger())

	s, err := d.Summary(context.Background(), []string{"BOA"})
	require.NoError(t, err)

	assert.Equal(t, []string{"BOA", "CBE"}, s.Banks)
	assert.Equal(t, []string{"BOA"}, s.Selected)
	assert.Equal(t, 2, s.KPIs.Volume)
	assert.Equal(t, 100.0, s.KPIs.PctPositive)
	assert.Equal(t, ColorGreen, s.KPIColor)
	require.NotEmpty(t, s.Drivers)
	assert.Equal(t, "app", s.Drivers[0].Theme)
	assert.Positive(t, s.Drivers[0].Volume)

	all, err := d.Summary(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, all.Banks, all.Selected)
	assert.Equal(t, 3, all.KPIs.Volume)
}
