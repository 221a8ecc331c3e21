package domain

import "time"

type Comment struct {
	ID         int64     `json:"id"`
	FacilityID int64     `json:"facility_id"`
	AuthorID   int64     `json:"author_id"`
	Author     string    `json:"author"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
	IsApproved bool      `json:"-"`
}

type RatingCategory struct {
	ID          int64  `json:"id" yaml:"-"`
	Name        string `json:"name" yaml:"name"`
	Slug        string `json:"slug" yaml:"slug"`
	Description string `json:"description,omitempty" yaml:"description"`
}

const (
	MinRating = 1
	MaxRating = 10
)

type FacilityRating struct {
	FacilityID int64
	AuthorID   int64
	CategoryID int64
	Value      int
}

type CategoryAverage struct {
	Slug    string  `json:"slug"`
	Name    string  `json:"name"`
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

type RatingSummary struct {
	Overall    *float64          `json:"overall,omitempty"`
	Count      int               `json:"count"`
	Categories []CategoryAverage `json:"categories"`
}

type Newsletter struct {
	ID             int64      `json:"id"`
	Email          string     `json:"email"`
	IsActive       bool       `json:"is_active"`
	Token          string     `json:"-"`
	SubscribedAt   time.Time  `json:"subscribed_at"`
	UnsubscribedAt *time.Time `json:"unsubscribed_at,omitempty"`
}

type NotificationType string

const (
	NotifyNewFacility    NotificationType = "new_facility"
	NotifyFacilityUpdate NotificationType = "facility_update"
	NotifyNewComment     NotificationType = "new_comment"
	NotifyNewRating      NotificationType = "new_rating"
	NotifySystem         NotificationType = "system"
	NotifyNewsletter     NotificationType = "newsletter"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

type Notification struct {
	ID         int64            `json:"id"`
	UserID     *int64           `json:"user_id,omitempty"`
	Email      *string          `json:"email,omitempty"`
	Title      string           `json:"title"`
	Message    string           `json:"message"`
	Type       NotificationType `json:"type"`
	Priority   Priority         `json:"priority"`
	IsRead     bool             `json:"is_read"`
	IsSent     bool             `json:"is_sent"`
	FacilityID *int64           `json:"facility_id,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
	SentAt     *time.Time       `json:"sent_at,omitempty"`
}

type NotificationPreference struct {
	UserID          int64 `json:"user_id"`
	Email           bool  `json:"email_notifications"`
	NewFacilities   bool  `json:"new_facilities"`
	FacilityUpdates bool  `json:"facility_updates"`
	NewComments     bool  `json:"new_comments"`
	NewRatings      bool  `json:"new_ratings"`
	Newsletter      bool  `json:"newsletter"`
}

// DefaultPreferences are applied to users that never saved their own.
func DefaultPreferences(userID int64) NotificationPreference {
	return NotificationPreference{
		UserID:          userID,
		Email:           true,
		NewFacilities:   true,
		FacilityUpdates: true,
		NewComments:     false,
		NewRatings:      false,
		Newsletter:      true,
	}
}

// Wants reports whether the preference opts in to notifications of type t.
func (p NotificationPreference) Wants(t NotificationType) bool {
	switch t {
	case NotifyNewFacility:
		return p.NewFacilities
	case NotifyFacilityUpdate:
		return p.FacilityUpdates
	case NotifyNewComment:
		return p.NewComments
	case NotifyNewRating:
		return p.NewRatings
	case NotifyNewsletter:
		return p.Newsletter
	}
	return true
}

type User struct {
	ID       int64
	Username string
	Email    string
}
