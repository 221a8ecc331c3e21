package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"help_directory/internal/domain"
)

func (r *Repo) GetUser(ctx context.Context, id int64) (domain.User, error) {
	var u domain.User
	err := r.db.QueryRowContext(ctx, getUserSQL, id).Scan(&u.ID, &u.Username, &u.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, domain.ErrNotFound
	}
	return u, err
}

func (r *Repo) FacilityIDBySlug(ctx context.Context, slug string) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, facilityIDBySlugSQL, slug).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, domain.ErrNotFound
	}
	return id, err
}

func (r *Repo) InsertComment(ctx context.Context, c *domain.Comment) error {
	res, err := r.db.ExecContext(ctx, insertCommentSQL, c.FacilityID, c.AuthorID, c.Content, c.IsApproved)
	if err != nil {
		return fmt.Errorf("insert comment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = id
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	return nil
}

func (r *Repo) ApprovedComments(ctx context.Context, facilityID int64) ([]domain.Comment, error) {
	rows, err := r.db.QueryContext(ctx, approvedCommentsSQL, facilityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []domain.Comment{}
	for rows.Next() {
		c := domain.Comment{IsApproved: true}
		if err := rows.Scan(&c.ID, &c.FacilityID, &c.AuthorID, &c.Author, &c.Content, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *Repo) UpsertRatingCategory(ctx context.Context, c domain.RatingCategory) (bool, error) {
	res, err := r.db.ExecContext(ctx, upsertRatingCategorySQL, c.Name, c.Slug, c.Description)
	if err != nil {
		return false, fmt.Errorf("upsert rating category %q: %w", c.Slug, err)
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func (r *Repo) ListRatingCategories(ctx context.Context) ([]domain.RatingCategory, error) {
	rows, err := r.db.QueryContext(ctx, listRatingCategoriesSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.RatingCategory
	for rows.Next() {
		var c domain.RatingCategory
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug, &c.Description); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// UpsertRatings stores one submission; the unique (facility, author, category) key
// turns a repeated rating into an overwrite.
func (r *Repo) UpsertRatings(ctx context.Context, rs []domain.FacilityRating) error {
	if len(rs) == 0 {
		return nil
	}
	return r.withTx(ctx, func(tx *sql.Tx) error {
		for _, x := range rs {
			if _, err := tx.ExecContext(ctx, upsertRatingSQL, x.FacilityID, x.AuthorID, x.CategoryID, x.Value); err != nil {
				return fmt.Errorf("upsert rating: %w", err)
			}
		}
		return nil
	})
}

func round1(f float64) float64 { return math.Round(f*10) / 10 }

func (r *Repo) RatingSummary(ctx context.Context, facilityID int64) (domain.RatingSummary, error) {
	rows, err := r.db.QueryContext(ctx, ratingSummarySQL, facilityID)
	if err != nil {
		return domain.RatingSummary{}, err
	}
	defer rows.Close()

	out := domain.RatingSummary{Categories: []domain.CategoryAverage{}}
	var total float64
	for rows.Next() {
		var a domain.CategoryAverage
		var sum float64
		if err := rows.Scan(&a.Slug, &a.Name, &sum, &a.Count); err != nil {
			return domain.RatingSummary{}, err
		}
		if a.Count > 0 {
			a.Average = round1(sum / float64(a.Count))
		}
		total += sum
		out.Count += a.Count
		out.Categories = append(out.Categories, a)
	}
	if err := rows.Err(); err != nil {
		return domain.RatingSummary{}, err
	}
	if out.Count > 0 {
		avg := round1(total / float64(out.Count))
		out.Overall = &avg
	}
	return out, nil
}

// Subscribe creates or reactivates the subscription of email. An already active
// subscription yields domain.ErrConflict.
func (r *Repo) Subscribe(ctx context.Context, email, token string) (domain.Newsletter, error) {
	var out domain.Newsletter
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		var unsub sql.NullTime
		err := tx.QueryRowContext(ctx, getNewsletterForUpdateSQL, email).
			Scan(&out.ID, &out.Email, &out.IsActive, &out.Token, &out.SubscribedAt, &unsub)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			res, err := tx.ExecContext(ctx, insertNewsletterSQL, email, token)
			if err != nil {
				return err
			}
			id, err := res.LastInsertId()
			if err != nil {
				return err
			}
			out = domain.Newsletter{ID: id, Email: email, IsActive: true, Token: token, SubscribedAt: time.Now().UTC()}
			return nil
		case err != nil:
			return err
		case out.IsActive:
			return domain.ErrConflict
		}
		if _, err := tx.ExecContext(ctx, reactivateNewsletterSQL, out.ID); err != nil {
			return err
		}
		out.IsActive = true
		out.SubscribedAt = time.Now().UTC()
		out.UnsubscribedAt = nil
		return nil
	})
	return out, err
}

func (r *Repo) Unsubscribe(ctx context.Context, token string) error {
	res, err := r.db.ExecContext(ctx, unsubscribeSQL, token)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *Repo) InsertNotifications(ctx context.Context, ns []domain.Notification) error {
	if len(ns) == 0 {
		return nil
	}
	return r.withTx(ctx, func(tx *sql.Tx) error {
		for _, n := range ns {
			_, err := tx.ExecContext(ctx, insertNotificationSQL,
				valInt64(n.UserID), valStr(n.Email), n.Title, n.Message,
				string(n.Type), string(n.Priority), valInt64(n.FacilityID))
			if err != nil {
				return fmt.Errorf("insert notification: %w", err)
			}
		}
		return nil
	})
}

func (r *Repo) ListNotifications(ctx context.Context, userID int64, limit int) ([]domain.Notification, error) {
	rows, err := r.db.QueryContext(ctx, listNotificationsSQL, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []domain.Notification{}
	for rows.Next() {
		var (
			n         domain.Notification
			uid, fid  sql.NullInt64
			email     sql.NullString
			typ, prio string
			sentAt    sql.NullTime
		)
		if err := rows.Scan(&n.ID, &uid, &email, &n.Title, &n.Message, &typ, &prio,
			&n.IsRead, &n.IsSent, &fid, &n.CreatedAt, &sentAt); err != nil {
			return nil, err
		}
		n.UserID, n.FacilityID, n.Email = ptrInt64(uid), ptrInt64(fid), ptrStr(email)
		n.Type, n.Priority = domain.NotificationType(typ), domain.Priority(prio)
		n.SentAt = ptrTime(sentAt)
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *Repo) MarkNotificationRead(ctx context.Context, userID, id int64) error {
	var owned bool
	if err := r.db.QueryRowContext(ctx, notificationOwnedSQL, id, userID).Scan(&owned); err != nil {
		return err
	}
	if !owned {
		return domain.ErrNotFound
	}
	_, err := r.db.ExecContext(ctx, markNotificationReadSQL, id, userID)
	return err
}

func (r *Repo) Preferences(ctx context.Context, userID int64) (domain.NotificationPreference, error) {
	var p domain.NotificationPreference
	err := r.db.QueryRowContext(ctx, getPreferencesSQL, userID).
		Scan(&p.UserID, &p.Email, &p.NewFacilities, &p.FacilityUpdates, &p.NewComments, &p.NewRatings, &p.Newsletter)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.DefaultPreferences(userID), nil
	}
	return p, err
}

func (r *Repo) SavePreferences(ctx context.Context, p domain.NotificationPreference) error {
	_, err := r.db.ExecContext(ctx, savePreferencesSQL,
		p.UserID, p.Email, p.NewFacilities, p.FacilityUpdates, p.NewComments, p.NewRatings, p.Newsletter)
	return err
}

// preferenceColumn maps a notification type onto its opt-in column and default.
func preferenceColumn(t domain.NotificationType) (string, bool, bool) {
	def := domain.DefaultPreferences(0)
	switch t {
	case domain.NotifyNewFacility:
		return "new_facilities", def.NewFacilities, true
	case domain.NotifyFacilityUpdate:
		return "facility_updates", def.FacilityUpdates, true
	case domain.NotifyNewComment:
		return "new_comments", def.NewComments, true
	case domain.NotifyNewRating:
		return "new_ratings", def.NewRatings, true
	case domain.NotifyNewsletter:
		return "newsletter", def.Newsletter, true
	}
	return "", false, false
}

func (r *Repo) Subscribers(ctx context.Context, t domain.NotificationType) ([]int64, error) {
	var q string
	if col, def, ok := preferenceColumn(t); ok {
		q = fmt.Sprintf(subscribersTmpl, col, def)
	} else {
		q = `SELECT id FROM users ORDER BY id`
	}
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
