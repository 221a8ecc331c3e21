package mysql

const facilityCols = `id, name, slug, address_street, address_postal_code, address_city, full_address,
  source_url, description, phone, email, website, voivodeship, places,
  addiction_types_text, program_lengths_text, therapy_types_text, facility_type_text,
  psychotherapy_types_text, counseling_types_text, other_activities_text, source_updated_text,
  lat, lon, created_at, updated_at`

const insertFacilitySQL = `
INSERT INTO facilities
  (slug, name, address_street, address_postal_code, address_city, full_address,
   source_url, description, phone, email, website, voivodeship, places,
   addiction_types_text, program_lengths_text, therapy_types_text, facility_type_text,
   psychotherapy_types_text, counseling_types_text, other_activities_text, source_updated_text,
   lat, lon)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

// The slug is assigned once on insert and never rewritten.
const updateFacilitySQL = `
UPDATE facilities SET
  name                     = ?,
  address_street           = ?,
  address_postal_code      = ?,
  address_city             = ?,
  full_address             = ?,
  source_url               = ?,
  description              = ?,
  phone                    = ?,
  email                    = ?,
  website                  = ?,
  voivodeship              = ?,
  places                   = ?,
  addiction_types_text     = ?,
  program_lengths_text     = ?,
  therapy_types_text       = ?,
  facility_type_text       = ?,
  psychotherapy_types_text = ?,
  counseling_types_text    = ?,
  other_activities_text    = ?,
  source_updated_text      = ?,
  lat                      = ?,
  lon                      = ?,
  updated_at               = CURRENT_TIMESTAMP
WHERE id = ?
`

const getFacilityBySourceSQL = `SELECT ` + facilityCols + ` FROM facilities WHERE source_url = ?`

const getFacilityBySlugSQL = `SELECT ` + facilityCols + ` FROM facilities WHERE slug = ?`

const listFacilitiesSQL = `SELECT ` + facilityCols + ` FROM facilities ORDER BY id`

const listUngeocodedSQL = `SELECT ` + facilityCols + ` FROM facilities WHERE lat IS NULL OR lon IS NULL ORDER BY id`

const slugTakenSQL = `SELECT EXISTS(SELECT 1 FROM facilities WHERE slug = ? AND id <> ?)`

const setCoordinatesSQL = `UPDATE facilities SET lat = ?, lon = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`

const insertMissSQL = `
INSERT INTO ingest_misses (item_key, http_status, reason)
VALUES (?, ?, ?)
ON DUPLICATE KEY UPDATE
  http_status = VALUES(http_status),
  reason      = VALUES(reason),
  seen_at     = CURRENT_TIMESTAMP
`

// Classification statements take the table names from domain.Dimensions.

const upsertEntryTmpl = `INSERT INTO %s (name, slug) VALUES (?, ?) ON DUPLICATE KEY UPDATE name = VALUES(name)`

const listEntriesTmpl = `SELECT id, name, slug FROM %s ORDER BY name`

const getEntryBySlugTmpl = `SELECT id, name, slug FROM %s WHERE slug = ?`

const facilityEntriesTmpl = `
SELECT c.id, c.name, c.slug
FROM %s c
JOIN %s l ON l.entry_id = c.id
WHERE l.facility_id = ?
ORDER BY c.name
`

const clearLinksTmpl = `DELETE FROM %s WHERE facility_id = ?`

const addLinkTmpl = `INSERT IGNORE INTO %s (facility_id, entry_id) VALUES (?, ?)`

// Community

const getUserSQL = `SELECT id, username, email FROM users WHERE id = ?`

const facilityIDBySlugSQL = `SELECT id FROM facilities WHERE slug = ?`

const insertCommentSQL = `INSERT INTO comments (facility_id, author_id, content, is_approved) VALUES (?, ?, ?, ?)`

const approvedCommentsSQL = `
SELECT c.id, c.facility_id, c.author_id, u.username, c.content, c.created_at
FROM comments c
JOIN users u ON u.id = c.author_id
WHERE c.facility_id = ? AND c.is_approved = TRUE
ORDER BY c.created_at DESC, c.id DESC
`

const upsertRatingCategorySQL = `
INSERT INTO rating_categories (name, slug, description)
VALUES (?, ?, ?)
ON DUPLICATE KEY UPDATE
  name        = VALUES(name),
  description = VALUES(description)
`

const listRatingCategoriesSQL = `SELECT id, name, slug, COALESCE(description, '') FROM rating_categories ORDER BY id`

const upsertRatingSQL = `
INSERT INTO facility_ratings (facility_id, author_id, category_id, value)
VALUES (?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
  value      = VALUES(value),
  updated_at = CURRENT_TIMESTAMP
`

const ratingSummarySQL = `
SELECT c.slug, c.name, SUM(r.value), COUNT(*)
FROM facility_ratings r
JOIN rating_categories c ON c.id = r.category_id
WHERE r.facility_id = ?
GROUP BY c.id, c.slug, c.name
ORDER BY c.id
`

const getNewsletterForUpdateSQL = `
SELECT id, email, is_active, token, subscribed_at, unsubscribed_at
FROM newsletter WHERE email = ? FOR UPDATE
`

const insertNewsletterSQL = `INSERT INTO newsletter (email, is_active, token) VALUES (?, TRUE, ?)`

const reactivateNewsletterSQL = `
UPDATE newsletter
SET is_active = TRUE, unsubscribed_at = NULL, subscribed_at = CURRENT_TIMESTAMP
WHERE id = ?
`

const unsubscribeSQL = `
UPDATE newsletter SET is_active = FALSE, unsubscribed_at = CURRENT_TIMESTAMP
WHERE token = ? AND is_active = TRUE
`

const insertNotificationSQL = `
INSERT INTO notifications (user_id, email, title, message, type, priority, facility_id)
VALUES (?, ?, ?, ?, ?, ?, ?)
`

const listNotificationsSQL = `
SELECT id, user_id, email, title, message, type, priority, is_read, is_sent, facility_id, created_at, sent_at
FROM notifications
WHERE user_id = ?
ORDER BY created_at DESC, id DESC
LIMIT ?
`

const notificationOwnedSQL = `SELECT EXISTS(SELECT 1 FROM notifications WHERE id = ? AND user_id = ?)`

const markNotificationReadSQL = `UPDATE notifications SET is_read = TRUE WHERE id = ? AND user_id = ?`

const getPreferencesSQL = `
SELECT user_id, email_notifications, new_facilities, facility_updates, new_comments, new_ratings, newsletter
FROM notification_preferences WHERE user_id = ?
`

const savePreferencesSQL = `
INSERT INTO notification_preferences
  (user_id, email_notifications, new_facilities, facility_updates, new_comments, new_ratings, newsletter)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
  email_notifications = VALUES(email_notifications),
  new_facilities      = VALUES(new_facilities),
  facility_updates    = VALUES(facility_updates),
  new_comments        = VALUES(new_comments),
  new_ratings         = VALUES(new_ratings),
  newsletter          = VALUES(newsletter)
`

// %s is a preference column, %t its default for users without a row.
const subscribersTmpl = `
SELECT u.id
FROM users u
LEFT JOIN notification_preferences p ON p.user_id = u.id
WHERE COALESCE(p.%s, %t) = TRUE
ORDER BY u.id
`
