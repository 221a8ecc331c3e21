package app_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"help_directory/internal/app"
	"help_directory/internal/domain"
)

// ---- fakes ----

type ratingKey struct {
	facility, author, category int64
}

type fakeCommunity struct {
	users         map[int64]domain.User
	facilities    map[string]int64
	comments      []domain.Comment
	categories    []domain.RatingCategory
	ratings       map[ratingKey]int
	subscriptions map[string]domain.Newsletter
	notifications []domain.Notification
	subscribers   map[domain.NotificationType][]int64
	prefs         map[int64]domain.NotificationPreference
}

func newCommunity() *fakeCommunity {
	return &fakeCommunity{
		users:      map[int64]domain.User{1: {ID: 1, Username: "jan"}, 2: {ID: 2, Username: "ola"}},
		facilities: map[string]int64{"osrodek": 8},
		categories: []domain.RatingCategory{
			{ID: 1, Name: "Atmosfera", Slug: "atmosfera"},
			{ID: 2, Name: "Ocena kadry", Slug: "ocena-kadry"},
		},
		subscribers: map[domain.NotificationType][]int64{
			domain.NotifyNewComment: {1, 2},
		},
	}
}

func (f *fakeCommunity) GetUser(ctx context.Context, id int64) (domain.User, error) {
	u, ok := f.users[id]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return u, nil
}

func (f *fakeCommunity) FacilityIDBySlug(ctx context.Context, slug string) (int64, error) {
	id, ok := f.facilities[slug]
	if !ok {
		return 0, domain.ErrNotFound
	}
	return id, nil
}

func (f *fakeCommunity) InsertComment(ctx context.Context, c *domain.Comment) error {
	c.ID = int64(len(f.comments) + 1)
	f.comments = append(f.comments, *c)
	return nil
}

func (f *fakeCommunity) UpsertRatingCategory(ctx context.Context, c domain.RatingCategory) (bool, error) {
	for i, ex := range f.categories {
		if ex.Slug == c.Slug {
			c.ID = ex.ID
			f.categories[i] = c
			return false, nil
		}
	}
	c.ID = int64(len(f.categories) + 1)
	f.categories = append(f.categories, c)
	return true, nil
}

func (f *fakeCommunity) ListRatingCategories(ctx context.Context) ([]domain.RatingCategory, error) {
	return f.categories, nil
}

func (f *fakeCommunity) UpsertRatings(ctx context.Context, rs []domain.FacilityRating) error {
	if f.ratings == nil {
		f.ratings = map[ratingKey]int{}
	}
	for _, r := range rs {
		f.ratings[ratingKey{r.FacilityID, r.AuthorID, r.CategoryID}] = r.Value
	}
	return nil
}

func (f *fakeCommunity) Subscribe(ctx context.Context, email, token string) (domain.Newsletter, error) {
	if f.subscriptions == nil {
		f.subscriptions = map[string]domain.Newsletter{}
	}
	if n, ok := f.subscriptions[email]; ok && n.IsActive {
		return domain.Newsletter{}, domain.ErrConflict
	}
	n := domain.Newsletter{ID: int64(len(f.subscriptions) + 1), Email: email, IsActive: true, Token: token}
	f.subscriptions[email] = n
	return n, nil
}

func (f *fakeCommunity) Unsubscribe(ctx context.Context, token string) error {
	for k, n := range f.subscriptions {
		if n.Token == token && n.IsActive {
			n.IsActive = false
			f.subscriptions[k] = n
			return nil
		}
	}
	return domain.ErrNotFound
}

func (f *fakeCommunity) InsertNotifications(ctx context.Context, ns []domain.Notification) error {
	f.notifications = append(f.notifications, ns...)
	return nil
}

func (f *fakeCommunity) ListNotifications(ctx context.Context, userID int64, limit int) ([]domain.Notification, error) {
	var out []domain.Notification
	for _, n := range f.notifications {
		if n.UserID != nil && *n.UserID == userID && len(out) < limit {
			out = append(out, n)
		}
	}
	return out, nil
}

func (f *fakeCommunity) MarkNotificationRead(ctx context.Context, userID, id int64) error {
	return domain.ErrNotFound
}

func (f *fakeCommunity) Preferences(ctx context.Context, userID int64) (domain.NotificationPreference, error) {
	if p, ok := f.prefs[userID]; ok {
		return p, nil
	}
	return domain.DefaultPreferences(userID), nil
}

func (f *fakeCommunity) SavePreferences(ctx context.Context, p domain.NotificationPreference) error {
	if f.prefs == nil {
		f.prefs = map[int64]domain.NotificationPreference{}
	}
	f.prefs[p.UserID] = p
	return nil
}

func (f *fakeCommunity) Subscribers(ctx context.Context, t domain.NotificationType) ([]int64, error) {
	return f.subscribers[t], nil
}

// ---- tests ----

func TestAddComment_UnapprovedAndNotifiesOthers(t *testing.T) {
	repo := newCommunity()
	svc := app.NewCommunityService(repo, &fakeCache{}, nop)

	c, err := svc.AddComment(context.Background(), 1, "osrodek", "  Dobra atmosfera  ")
	require.NoError(t, err)
	assert.Equal(t, "Dobra atmosfera", c.Content)
	assert.Equal(t, "jan", c.Author)
	assert.False(t, c.IsApproved)
	require.Len(t, repo.comments, 1)

	require.Len(t, repo.notifications, 1)
	n := repo.notifications[0]
	assert.Equal(t, int64(2), *n.UserID)
	assert.Equal(t, domain.NotifyNewComment, n.Type)
	assert.Equal(t, int64(8), *n.FacilityID)
}

func TestAddComment_Invalid(t *testing.T) {
	svc := app.NewCommunityService(newCommunity(), nil, nop)

	_, err := svc.AddComment(context.Background(), 1, "osrodek", "   ")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.AddComment(context.Background(), 99, "osrodek", "tekst")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.AddComment(context.Background(), 1, "brak", "tekst")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRate_RangeAndOverwrite(t *testing.T) {
	repo := newCommunity()
	cache := &fakeCache{}
	svc := app.NewCommunityService(repo, cache, nop)
	ctx := context.Background()

	assert.ErrorIs(t, svc.Rate(ctx, 1, "osrodek", map[string]int{"atmosfera": 0}), domain.ErrInvalidRating)
	assert.ErrorIs(t, svc.Rate(ctx, 1, "osrodek", map[string]int{"atmosfera": 11}), domain.ErrInvalidRating)
	assert.ErrorIs(t, svc.Rate(ctx, 1, "osrodek", map[string]int{"nieznana": 5}), domain.ErrInvalidInput)
	assert.ErrorIs(t, svc.Rate(ctx, 1, "osrodek", nil), domain.ErrInvalidInput)
	assert.Empty(t, repo.ratings)

	require.NoError(t, svc.Rate(ctx, 1, "osrodek", map[string]int{"atmosfera": 4, "ocena-kadry": 10}))
	require.NoError(t, svc.Rate(ctx, 1, "osrodek", map[string]int{"atmosfera": 9}))

	assert.Len(t, repo.ratings, 2)
	assert.Equal(t, 9, repo.ratings[ratingKey{8, 1, 1}])
	assert.Equal(t, 10, repo.ratings[ratingKey{8, 1, 2}])
	assert.Contains(t, cache.dels, "facility:osrodek")
	// new_rating has no opted-in users here
	assert.Empty(t, repo.notifications)
}

func TestNewsletter(t *testing.T) {
	repo := newCommunity()
	svc := app.NewCommunityService(repo, nil, nop)
	ctx := context.Background()

	_, err := svc.Subscribe(ctx, "not-an-email")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	n, err := svc.Subscribe(ctx, " Jan@Example.com ")
	require.NoError(t, err)
	assert.Equal(t, "jan@example.com", n.Email)
	_, err = uuid.Parse(n.Token)
	require.NoError(t, err)

	_, err = svc.Subscribe(ctx, "jan@example.com")
	assert.ErrorIs(t, err, domain.ErrConflict)

	assert.ErrorIs(t, svc.Unsubscribe(ctx, "garbage"), domain.ErrInvalidInput)
	require.NoError(t, svc.Unsubscribe(ctx, n.Token))
	assert.ErrorIs(t, svc.Unsubscribe(ctx, n.Token), domain.ErrNotFound)
}

func TestNotificationsAndPreferences(t *testing.T) {
	repo := newCommunity()
	svc := app.NewCommunityService(repo, nil, nop)
	ctx := context.Background()

	p, err := svc.Preferences(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultPreferences(1), p)

	p.NewRatings = true
	require.NoError(t, svc.SavePreferences(ctx, p))
	got, err := svc.Preferences(ctx, 1)
	require.NoError(t, err)
	assert.True(t, got.NewRatings)

	_, err = svc.Preferences(ctx, 42)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.AddComment(ctx, 2, "osrodek", "tekst")
	require.NoError(t, err)
	ns, err := svc.Notifications(ctx, 1, 0)
	require.NoError(t, err)
	require.Len(t, ns, 1)
	assert.Equal(t, "Nowy komentarz", ns[0].Title)

	assert.ErrorIs(t, svc.MarkRead(ctx, 1, 12345), domain.ErrNotFound)
}
