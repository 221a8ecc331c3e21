package domain

import "context"

type FacilityRepository interface {
	// Write paths
	InsertFacility(ctx context.Context, f *Facility) error
	UpdateFacility(ctx context.Context, f Facility) error
	SetCoordinates(ctx context.Context, id int64, c Coords) error
	ReplaceLinks(ctx context.Context, facilityID int64, links map[Dimension][]int64) error
	// SaveDetails updates f and rebuilds its classification sets in one transaction.
	SaveDetails(ctx context.Context, f Facility, links map[Dimension][]int64) error
	AddLink(ctx context.Context, facilityID int64, d Dimension, entryID int64) error
	LogMiss(ctx context.Context, key string, status int, reason string) error

	// Read paths
	GetFacilityBySource(ctx context.Context, sourceURL string) (Facility, error)
	SlugTaken(ctx context.Context, slug string, excludeID int64) (bool, error)
	ListFacilities(ctx context.Context) ([]Facility, error)
	FacilitiesToGeocode(ctx context.Context, force bool) ([]Facility, error)
}

type ClassificationRepository interface {
	UpsertEntry(ctx context.Context, d Dimension, name, slug string) (created bool, err error)
	ListEntries(ctx context.Context, d Dimension) ([]ClassificationEntry, error)
}

// DirectoryReader serves the presentation layer.
type DirectoryReader interface {
	SearchFacilities(ctx context.Context, q FacilityQuery) (FacilityPage, error)
	GetFacilityBySlug(ctx context.Context, slug string) (Facility, error)
	FacilityClassifications(ctx context.Context, facilityID int64) (map[Dimension][]ClassificationEntry, error)
	ListEntries(ctx context.Context, d Dimension) ([]ClassificationEntry, error)
	EntryFacilities(ctx context.Context, d Dimension, slug string) (ClassificationEntry, []FacilitySummary, error)
	MapPoints(ctx context.Context) ([]MapPoint, error)
	ApprovedComments(ctx context.Context, facilityID int64) ([]Comment, error)
	RatingSummary(ctx context.Context, facilityID int64) (RatingSummary, error)
}

type CommunityRepository interface {
	GetUser(ctx context.Context, id int64) (User, error)
	FacilityIDBySlug(ctx context.Context, slug string) (int64, error)
	InsertComment(ctx context.Context, c *Comment) error

	UpsertRatingCategory(ctx context.Context, c RatingCategory) (created bool, err error)
	ListRatingCategories(ctx context.Context) ([]RatingCategory, error)
	UpsertRatings(ctx context.Context, rs []FacilityRating) error

	Subscribe(ctx context.Context, email, token string) (Newsletter, error)
	Unsubscribe(ctx context.Context, token string) error

	InsertNotifications(ctx context.Context, ns []Notification) error
	ListNotifications(ctx context.Context, userID int64, limit int) ([]Notification, error)
	MarkNotificationRead(ctx context.Context, userID, id int64) error
	Preferences(ctx context.Context, userID int64) (NotificationPreference, error)
	SavePreferences(ctx context.Context, p NotificationPreference) error
	// Subscribers returns the users opted in to t, defaults applied.
	Subscribers(ctx context.Context, t NotificationType) ([]int64, error)
}

type Geocoder interface {
	Name() string
	Geocode(ctx context.Context, address string) (Coords, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}
