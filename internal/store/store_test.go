package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/ppiankov/restomaps/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func seedRestaurant(t *testing.T, st *Store, externalID string) int64 {
	t.Helper()
	id, err := st.UpsertRestaurant(context.Background(), model.Restaurant{
		ExternalID: externalID,
		Name:       "Кафе " + externalID,
		City:       "Москва",
	})
	require.NoError(t, err)
	return id
}

func intPtr(v int) *int { return &v }

func TestOpen_CreatesTables(t *testing.T) {
	st := openTestStore(t)

	for _, table := range []string{"restaurants", "reviews"} {
		var name string
		err := st.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		require.NoError(t, err, "table %s not created", table)
		assert.Equal(t, table, name)
	}
}

func TestOpen_FileDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "restomaps.db")

	st, err := Open(path)
	require.NoError(t, err)
	id := seedRestaurant(t, st, "page-1")
	require.NoError(t, st.Close())

	// Reopen and verify persistence
	st, err = Open(path)
	require.NoError(t, err)
	defer st.Close()

	r, err := st.Restaurant(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "page-1", r.ExternalID)
}

func TestUpsertRestaurant(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	rating := 4.6
	id, err := st.UpsertRestaurant(ctx, model.Restaurant{
		ExternalID: "page-1",
		Name:       "Пельменная",
		MapsRating: &rating,
	})
	require.NoError(t, err)

	again, err := st.UpsertRestaurant(ctx, model.Restaurant{
		ExternalID: "page-1",
		Name:       "Пельменная №1",
		Visited:    true,
	})
	require.NoError(t, err)
	assert.Equal(t, id, again, "upsert must keep the row id")

	r, err := st.Restaurant(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Пельменная №1", r.Name)
	assert.True(t, r.Visited)
	require.NotNil(t, r.MapsRating, "a missing rating keeps the stored one")
	assert.InDelta(t, 4.6, *r.MapsRating, 1e-9)

	_, err = st.UpsertRestaurant(ctx, model.Restaurant{Name: "без id"})
	assert.Error(t, err)
}

func TestEnsureRestaurant(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	id, err := st.UpsertRestaurant(ctx, model.Restaurant{ExternalID: "page-1", Name: "Пельменная", City: "Москва"})
	require.NoError(t, err)

	same, err := st.EnsureRestaurant(ctx, "page-1", "другое имя")
	require.NoError(t, err)
	assert.Equal(t, id, same)

	r, err := st.Restaurant(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Пельменная", r.Name, "existing row must not be overwritten")
	assert.Equal(t, "Москва", r.City)

	created, err := st.EnsureRestaurant(ctx, "page-2", "")
	require.NoError(t, err)
	assert.NotEqual(t, id, created)

	r, err = st.Restaurant(ctx, created)
	require.NoError(t, err)
	assert.Equal(t, "page-2", r.Name, "name defaults to the external id")

	_, err = st.EnsureRestaurant(ctx, "", "x")
	assert.Error(t, err)
}

func TestUpdateRestaurantRating(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	preset := 4.9
	rid, err := st.UpsertRestaurant(ctx, model.Restaurant{ExternalID: "page-1", Name: "Пельменная", MapsRating: &preset})
	require.NoError(t, err)

	// No rated reviews yet: the stored rating is kept
	rating, err := st.UpdateRestaurantRating(ctx, rid)
	require.NoError(t, err)
	require.NotNil(t, rating)
	assert.InDelta(t, 4.9, *rating, 1e-9)

	_, err = st.SaveReviews(ctx, rid, []NewReview{
		{ExternalID: "r1", Rating: intPtr(5), Text: "Очень вкусно"},
		{ExternalID: "r2", Rating: intPtr(2), Text: "Долго ждали"},
		{ExternalID: "r3", Text: "Без оценки"},
	})
	require.NoError(t, err)

	rating, err = st.UpdateRestaurantRating(ctx, rid)
	require.NoError(t, err)
	require.NotNil(t, rating)
	assert.InDelta(t, 3.5, *rating, 1e-9, "unrated reviews are left out of the average")

	r, err := st.Restaurant(ctx, rid)
	require.NoError(t, err)
	require.NotNil(t, r.MapsRating)
	assert.InDelta(t, 3.5, *r.MapsRating, 1e-9)

	bare, err := st.EnsureRestaurant(ctx, "page-2", "")
	require.NoError(t, err)
	rating, err = st.UpdateRestaurantRating(ctx, bare)
	require.NoError(t, err)
	assert.Nil(t, rating)

	_, err = st.UpdateRestaurantRating(ctx, 999)
	assert.True(t, errors.Is(err, ErrNotFound), "expected ErrNotFound, got %v", err)
}

func TestRestaurant_NotFound(t *testing.T) {
	st := openTestStore(t)

	_, err := st.Restaurant(context.Background(), 42)
	assert.True(t, errors.Is(err, ErrNotFound), "expected ErrNotFound, got %v", err)
}

func TestSaveReviews_Deduplicates(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	rid := seedRestaurant(t, st, "page-1")

	date := time.Date(2024, 3, 15, 12, 30, 0, 0, time.UTC)
	reviews := []NewReview{
		{ExternalID: "r1", Author: "Анна", Rating: intPtr(5), Text: "Очень вкусно", OriginalDate: &date},
		{ExternalID: "r2", Author: "Иван", Rating: intPtr(2), Text: "Долго ждали"},
		{ExternalID: "r3", Author: "Олег"},
	}

	res, err := st.SaveReviews(ctx, rid, reviews)
	require.NoError(t, err)
	assert.Equal(t, SaveResult{Found: 3, New: 3}, res)

	res, err = st.SaveReviews(ctx, rid, reviews[:2])
	require.NoError(t, err)
	assert.Equal(t, SaveResult{Found: 2, New: 0}, res)

	// The same external id under another restaurant is a different review
	other := seedRestaurant(t, st, "page-2")
	res, err = st.SaveReviews(ctx, other, reviews[:1])
	require.NoError(t, err)
	assert.Equal(t, 1, res.New)

	stored, err := st.Reviews(ctx, rid, 0, 10)
	require.NoError(t, err)
	require.Len(t, stored, 3)

	first := stored[0]
	assert.Equal(t, "r1", first.ExternalID)
	assert.Equal(t, "Очень вкусно", first.Text)
	require.NotNil(t, first.Rating)
	assert.Equal(t, 5, *first.Rating)
	require.NotNil(t, first.OriginalDate)
	assert.True(t, date.Equal(*first.OriginalDate), "date %v != %v", first.OriginalDate, date)
	assert.False(t, first.Processed())
}

func TestSaveReviews_RejectsBadRating(t *testing.T) {
	st := openTestStore(t)
	rid := seedRestaurant(t, st, "page-1")

	res, err := st.SaveReviews(context.Background(), rid, []NewReview{
		{ExternalID: "r1", Rating: intPtr(9), Text: "странно"},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, res.New, "out-of-range rating must not be stored")
}

func TestPendingReviews(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	a := seedRestaurant(t, st, "page-a")
	b := seedRestaurant(t, st, "page-b")

	_, err := st.SaveReviews(ctx, a, []NewReview{
		{ExternalID: "a1", Text: "вкусно"},
		{ExternalID: "a2", Text: "плохо"},
		{ExternalID: "a3"}, // no text
	})
	require.NoError(t, err)
	_, err = st.SaveReviews(ctx, b, []NewReview{{ExternalID: "b1", Text: "уютно"}})
	require.NoError(t, err)

	pending, err := st.PendingReviews(ctx, PendingQuery{})
	require.NoError(t, err)
	require.Len(t, pending, 3)
	assert.Equal(t, []string{"a1", "a2", "b1"}, externalIDs(pending))

	_, err = st.SaveAnnotations(ctx, []model.Annotation{{
		ReviewID: pending[0].ID, Verdict: "Позитивное впечатление", Tags: []string{"Вкусная еда"}, SentimentScore: 1.5,
	}})
	require.NoError(t, err)

	pending, err = st.PendingReviews(ctx, PendingQuery{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a2", "b1"}, externalIDs(pending))

	forced, err := st.PendingReviews(ctx, PendingQuery{Force: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"a1", "a2", "b1"}, externalIDs(forced))

	scoped, err := st.PendingReviews(ctx, PendingQuery{RestaurantID: b})
	require.NoError(t, err)
	assert.Equal(t, []string{"b1"}, externalIDs(scoped))

	limited, err := st.PendingReviews(ctx, PendingQuery{Force: true, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestSaveAnnotations_RoundTrip(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	rid := seedRestaurant(t, st, "page-1")

	_, err := st.SaveReviews(ctx, rid, []NewReview{
		{ExternalID: "r1", Text: "вкусно"},
		{ExternalID: "r2", Text: "тихо"},
	})
	require.NoError(t, err)
	pending, err := st.PendingReviews(ctx, PendingQuery{})
	require.NoError(t, err)
	require.Len(t, pending, 2)

	n, err := st.SaveAnnotations(ctx, []model.Annotation{
		{ReviewID: pending[0].ID, Verdict: "Позитивное впечатление", Tags: []string{"Вкусная еда"}, SentimentScore: 1.5},
		{ReviewID: pending[1].ID, Verdict: "Нейтральное впечатление", SentimentScore: 0},
		{ReviewID: 9999, Verdict: "Нейтральное впечатление"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n, "unknown review ids are not counted")

	r, err := st.Review(ctx, pending[0].ID)
	require.NoError(t, err)
	assert.True(t, r.Processed())
	assert.Equal(t, []string{"Вкусная еда"}, r.Tags)
	require.NotNil(t, r.SentimentScore)
	assert.Equal(t, 1.5, *r.SentimentScore)

	r, err = st.Review(ctx, pending[1].ID)
	require.NoError(t, err)
	assert.Equal(t, []string{}, r.Tags, "empty tag list is stored, not null")

	_, err = st.Review(ctx, 9999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStats(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	rid := seedRestaurant(t, st, "page-1")

	stats, err := st.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Total)
	assert.NotNil(t, stats.Verdicts)

	_, err = st.SaveReviews(ctx, rid, []NewReview{
		{ExternalID: "r1", Text: "вкусно"},
		{ExternalID: "r2", Text: "супер"},
		{ExternalID: "r3", Text: "плохо"},
		{ExternalID: "r4"},
	})
	require.NoError(t, err)

	pending, err := st.PendingReviews(ctx, PendingQuery{})
	require.NoError(t, err)
	_, err = st.SaveAnnotations(ctx, []model.Annotation{
		{ReviewID: pending[0].ID, Verdict: "Позитивное впечатление"},
		{ReviewID: pending[1].ID, Verdict: "Позитивное впечатление"},
	})
	require.NoError(t, err)

	stats, err = st.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 3, stats.WithText)
	assert.Equal(t, 2, stats.Processed)
	assert.Equal(t, 1, stats.Unprocessed())
	assert.Equal(t, []model.VerdictCount{{Verdict: "Позитивное впечатление", Count: 2}}, stats.Verdicts)
}

func TestRestaurantStats(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	rid := seedRestaurant(t, st, "page-1")

	fixed := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)
	st.now = func() time.Time { return fixed }

	recent := fixed.AddDate(0, 0, -3)
	old := fixed.AddDate(-1, 0, 0)
	_, err := st.SaveReviews(ctx, rid, []NewReview{
		{ExternalID: "r1", Rating: intPtr(5), OriginalDate: &recent},
		{ExternalID: "r2", Rating: intPtr(4), OriginalDate: &old},
		{ExternalID: "r3", Rating: intPtr(5)},
		{ExternalID: "r4"},
	})
	require.NoError(t, err)

	stats, err := st.RestaurantStats(ctx, rid)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.TotalReviews)
	assert.InDelta(t, 14.0/3.0, stats.AverageRating, 1e-9)
	assert.Equal(t, map[int]int{4: 1, 5: 2}, stats.RatingDistribution)
	assert.Equal(t, 1, stats.RecentReviews)
}

func externalIDs(reviews []model.Review) []string {
	ids := make([]string, len(reviews))
	for i, r := range reviews {
		ids[i] = r.ExternalID
	}
	return ids
}
