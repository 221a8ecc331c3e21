package app_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	redisad "help_directory/internal/adapters/redis"
	"help_directory/internal/app"
	"help_directory/internal/domain"
)

// ---- fakes ----

type fakeReader struct {
	facility domain.Facility
	classes  map[domain.Dimension][]domain.ClassificationEntry
	comments []domain.Comment
	ratings  domain.RatingSummary
	points   []domain.MapPoint
	entries  map[domain.Dimension][]domain.ClassificationEntry
	lastQ    domain.FacilityQuery

	slugCalls atomic.Int32
	mapCalls  atomic.Int32
	gate      chan struct{}
}

func (f *fakeReader) SearchFacilities(ctx context.Context, q domain.FacilityQuery) (domain.FacilityPage, error) {
	f.lastQ = q
	return domain.FacilityPage{Items: []domain.FacilitySummary{{ID: 1, Name: "A", Slug: "a"}}}, nil
}

func (f *fakeReader) GetFacilityBySlug(ctx context.Context, slug string) (domain.Facility, error) {
	f.slugCalls.Add(1)
	if slug != f.facility.Slug {
		return domain.Facility{}, domain.ErrNotFound
	}
	return f.facility, nil
}

func (f *fakeReader) FacilityClassifications(ctx context.Context, id int64) (map[domain.Dimension][]domain.ClassificationEntry, error) {
	return f.classes, nil
}

func (f *fakeReader) ListEntries(ctx context.Context, d domain.Dimension) ([]domain.ClassificationEntry, error) {
	return f.entries[d], nil
}

func (f *fakeReader) EntryFacilities(ctx context.Context, d domain.Dimension, slug string) (domain.ClassificationEntry, []domain.FacilitySummary, error) {
	for _, e := range f.entries[d] {
		if e.Slug == slug {
			return e, []domain.FacilitySummary{{ID: 1, Name: "A", Slug: "a"}}, nil
		}
	}
	return domain.ClassificationEntry{}, nil, domain.ErrNotFound
}

func (f *fakeReader) MapPoints(ctx context.Context) ([]domain.MapPoint, error) {
	f.mapCalls.Add(1)
	if f.gate != nil {
		<-f.gate
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return f.points, nil
}

func (f *fakeReader) ApprovedComments(ctx context.Context, id int64) ([]domain.Comment, error) {
	return f.comments, nil
}

func (f *fakeReader) RatingSummary(ctx context.Context, id int64) (domain.RatingSummary, error) {
	return f.ratings, nil
}

func newReader() *fakeReader {
	return &fakeReader{
		facility: domain.Facility{
			ID: 8, Name: "Ośrodek", Slug: "osrodek", Phone: ptr("22 123"),
			Lat: ptr(52.1), Lon: ptr(21.0),
		},
		classes: map[domain.Dimension][]domain.ClassificationEntry{
			domain.AddictionType: {{ID: 3, Dimension: domain.AddictionType, Name: "Alkohol | Hyperreal [H]elp - chcemy pomóc", Slug: "alkohol"}},
		},
		comments: []domain.Comment{{ID: 1, FacilityID: 8, Author: "jan", Content: "ok", IsApproved: true}},
		ratings:  domain.RatingSummary{Overall: ptr(7.5), Count: 2},
		points:   []domain.MapPoint{{ID: 8, Name: "Ośrodek", Slug: "osrodek", Lat: 52.1, Lon: 21.0}},
		entries: map[domain.Dimension][]domain.ClassificationEntry{
			domain.Voivodeship: {{ID: 5, Dimension: domain.Voivodeship, Name: "mazowieckie", Slug: "mazowieckie"}},
		},
	}
}

// ---- tests ----

func TestFacility_CacheMissThenHit(t *testing.T) {
	repo := newReader()
	cache := &fakeCache{}
	q := app.NewQueryService(repo, cache, 10*time.Minute)

	v, err := q.Facility(context.Background(), "osrodek")
	require.NoError(t, err)
	assert.Equal(t, int64(8), v.ID)
	require.NotNil(t, v.Coords)
	assert.Equal(t, 52.1, v.Coords.Lat)
	assert.Equal(t, []domain.ClassificationRef{{ID: 3, Name: "Alkohol", Slug: "alkohol"}}, v.Classifications[domain.AddictionType])
	assert.NotNil(t, v.Classifications[domain.TherapyType])
	assert.Len(t, v.Comments, 1)
	require.NotNil(t, v.Ratings.Overall)
	assert.Equal(t, 7.5, *v.Ratings.Overall)

	// mutate the repo: a hit must not see it
	repo.facility.Name = "Zmieniony"
	v, err = q.Facility(context.Background(), "osrodek")
	require.NoError(t, err)
	assert.Equal(t, "Ośrodek", v.Name)
	assert.Equal(t, int32(1), repo.slugCalls.Load())
}

func TestFacility_NotFoundIsNotCached(t *testing.T) {
	repo := newReader()
	cache := &fakeCache{}
	q := app.NewQueryService(repo, cache, time.Minute)

	_, err := q.Facility(context.Background(), "brak")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Empty(t, cache.store)
}

func TestMap_ConcurrentMissesCoalesced(t *testing.T) {
	repo := newReader()
	repo.gate = make(chan struct{})
	q := app.NewQueryService(repo, &fakeCache{}, time.Minute)

	var wg sync.WaitGroup
	results := make([][]domain.MapPoint, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = q.Map(context.Background())
		}(i)
	}
	// let the goroutines pile up behind the first load
	time.Sleep(50 * time.Millisecond)
	close(repo.gate)
	wg.Wait()

	assert.Equal(t, int32(1), repo.mapCalls.Load())
	for _, r := range results {
		assert.Len(t, r, 1)
	}
}

func TestMap_SharedLoadSurvivesFirstCallerCancel(t *testing.T) {
	repo := newReader()
	repo.gate = make(chan struct{})
	q := app.NewQueryService(repo, &fakeCache{}, time.Minute)

	first, cancel := context.WithCancel(context.Background())
	firstDone := make(chan struct{})
	go func() {
		defer close(firstDone)
		_, _ = q.Map(first)
	}()
	require.Eventually(t, func() bool { return repo.mapCalls.Load() == 1 }, time.Second, 5*time.Millisecond)

	var (
		pts []domain.MapPoint
		err error
	)
	secondDone := make(chan struct{})
	go func() {
		defer close(secondDone)
		pts, err = q.Map(context.Background())
	}()
	time.Sleep(50 * time.Millisecond)
	cancel()
	close(repo.gate)
	<-firstDone
	<-secondDone

	require.NoError(t, err)
	assert.Len(t, pts, 1)
	assert.Equal(t, int32(1), repo.mapCalls.Load())
}

func TestCategories_AndListing(t *testing.T) {
	repo := newReader()
	q := app.NewQueryService(repo, &fakeCache{}, time.Minute)

	groups, err := q.Categories(context.Background())
	require.NoError(t, err)
	require.Len(t, groups, len(domain.Dimensions))
	assert.Equal(t, "rodzaj-uzaleznien", groups[0].Segment)
	assert.NotNil(t, groups[0].Entries)

	l, err := q.Category(context.Background(), domain.Voivodeship, "mazowieckie")
	require.NoError(t, err)
	assert.Equal(t, "mazowieckie", l.Entry.Slug)
	assert.Len(t, l.Facilities, 1)

	_, err = q.Category(context.Background(), domain.Voivodeship, "brak")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSearch_ClampsPaging(t *testing.T) {
	repo := newReader()
	q := app.NewQueryService(repo, nil, time.Minute)

	_, err := q.Search(context.Background(), domain.FacilityQuery{Limit: 0, Offset: -3})
	require.NoError(t, err)
	assert.Equal(t, app.DefaultPageSize, repo.lastQ.Limit)
	assert.Equal(t, 0, repo.lastQ.Offset)

	_, err = q.Search(context.Background(), domain.FacilityQuery{Limit: 10_000})
	require.NoError(t, err)
	assert.Equal(t, app.MaxPageSize, repo.lastQ.Limit)
}

func TestMap_RedisHitSkipsRepository(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := redisad.NewWithClient(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}), "test:")
	repo := newReader()
	q := app.NewQueryService(repo, cache, time.Minute)

	first, err := q.Map(context.Background())
	require.NoError(t, err)
	require.True(t, mr.Exists("test:map"))

	second, err := q.Map(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), repo.mapCalls.Load())
}
