package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"help_directory/internal/domain"
)

const (
	defaultNotifyLimit  = 50
	maxNotificationList = 200
)

type commentInput struct {
	Content string `validate:"required,max=5000"`
}

type newsletterInput struct {
	Email string `validate:"required,email,max=254"`
}

// CommunityService handles user contributions: comments, ratings, newsletter and notifications.
type CommunityService struct {
	repo     domain.CommunityRepository
	cache    domain.Cache
	validate *validator.Validate
	log      zerolog.Logger
}

func NewCommunityService(r domain.CommunityRepository, c domain.Cache, l zerolog.Logger) *CommunityService {
	return &CommunityService{repo: r, cache: c, validate: validator.New(), log: l}
}

func (s *CommunityService) check(v any) error {
	if err := s.validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	return nil
}

func (s *CommunityService) user(ctx context.Context, id int64) (domain.User, error) {
	u, err := s.repo.GetUser(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.User{}, fmt.Errorf("%w: unknown user %d", domain.ErrInvalidInput, id)
	}
	return u, err
}

// AddComment stores a comment awaiting moderation.
func (s *CommunityService) AddComment(ctx context.Context, userID int64, slug, content string) (domain.Comment, error) {
	content = strings.TrimSpace(content)
	if err := s.check(commentInput{Content: content}); err != nil {
		return domain.Comment{}, err
	}
	u, err := s.user(ctx, userID)
	if err != nil {
		return domain.Comment{}, err
	}
	fid, err := s.repo.FacilityIDBySlug(ctx, slug)
	if err != nil {
		return domain.Comment{}, err
	}
	c := domain.Comment{FacilityID: fid, AuthorID: u.ID, Author: u.Username, Content: content}
	if err := s.repo.InsertComment(ctx, &c); err != nil {
		return domain.Comment{}, err
	}
	s.notify(ctx, domain.NotifyNewComment, u.ID, fid,
		"Nowy komentarz", fmt.Sprintf("%s dodał(a) komentarz do placówki %s.", u.Username, slug))
	return c, nil
}

// Rate upserts one rating per category slug; a second submission overwrites the first.
func (s *CommunityService) Rate(ctx context.Context, userID int64, slug string, values map[string]int) error {
	if len(values) == 0 {
		return fmt.Errorf("%w: no ratings given", domain.ErrInvalidInput)
	}
	for cat, v := range values {
		if v < domain.MinRating || v > domain.MaxRating {
			return fmt.Errorf("%s=%d: %w", cat, v, domain.ErrInvalidRating)
		}
	}
	u, err := s.user(ctx, userID)
	if err != nil {
		return err
	}
	fid, err := s.repo.FacilityIDBySlug(ctx, slug)
	if err != nil {
		return err
	}
	cats, err := s.repo.ListRatingCategories(ctx)
	if err != nil {
		return err
	}
	bySlug := make(map[string]int64, len(cats))
	for _, c := range cats {
		bySlug[c.Slug] = c.ID
	}

	rs := make([]domain.FacilityRating, 0, len(values))
	for cat, v := range values {
		cid, ok := bySlug[cat]
		if !ok {
			return fmt.Errorf("%w: unknown rating category %q", domain.ErrInvalidInput, cat)
		}
		rs = append(rs, domain.FacilityRating{FacilityID: fid, AuthorID: u.ID, CategoryID: cid, Value: v})
	}
	if err := s.repo.UpsertRatings(ctx, rs); err != nil {
		return err
	}
	invalidate(ctx, s.cache, keyFacility(slug))
	s.notify(ctx, domain.NotifyNewRating, u.ID, fid,
		"Nowa ocena", fmt.Sprintf("%s ocenił(a) placówkę %s.", u.Username, slug))
	return nil
}

func (s *CommunityService) Subscribe(ctx context.Context, email string) (domain.Newsletter, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := s.check(newsletterInput{Email: email}); err != nil {
		return domain.Newsletter{}, err
	}
	return s.repo.Subscribe(ctx, email, uuid.NewString())
}

func (s *CommunityService) Unsubscribe(ctx context.Context, token string) error {
	if _, err := uuid.Parse(token); err != nil {
		return fmt.Errorf("%w: malformed token", domain.ErrInvalidInput)
	}
	return s.repo.Unsubscribe(ctx, token)
}

func (s *CommunityService) Notifications(ctx context.Context, userID int64, limit int) ([]domain.Notification, error) {
	if limit <= 0 {
		limit = defaultNotifyLimit
	}
	if limit > maxNotificationList {
		limit = maxNotificationList
	}
	return s.repo.ListNotifications(ctx, userID, limit)
}

func (s *CommunityService) MarkRead(ctx context.Context, userID, id int64) error {
	return s.repo.MarkNotificationRead(ctx, userID, id)
}

func (s *CommunityService) Preferences(ctx context.Context, userID int64) (domain.NotificationPreference, error) {
	if _, err := s.user(ctx, userID); err != nil {
		return domain.NotificationPreference{}, err
	}
	return s.repo.Preferences(ctx, userID)
}

func (s *CommunityService) SavePreferences(ctx context.Context, p domain.NotificationPreference) error {
	if _, err := s.user(ctx, p.UserID); err != nil {
		return err
	}
	return s.repo.SavePreferences(ctx, p)
}

// notify fans a notification out to opted-in users other than the actor.
// Failures are logged; the triggering write already succeeded.
func (s *CommunityService) notify(ctx context.Context, t domain.NotificationType, actor, facilityID int64, title, msg string) {
	ids, err := s.repo.Subscribers(ctx, t)
	if err != nil {
		s.log.Error().Err(err).Str("type", string(t)).Msg("load subscribers")
		return
	}
	ns := make([]domain.Notification, 0, len(ids))
	for _, id := range ids {
		if id == actor {
			continue
		}
		uid, fid := id, facilityID
		ns = append(ns, domain.Notification{
			UserID:     &uid,
			Title:      title,
			Message:    msg,
			Type:       t,
			Priority:   domain.PriorityLow,
			FacilityID: &fid,
		})
	}
	if err := s.repo.InsertNotifications(ctx, ns); err != nil {
		s.log.Error().Err(err).Str("type", string(t)).Int("recipients", len(ns)).Msg("insert notifications")
	}
}
