package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"help_directory/internal/domain"
)

func dimensionInfo(d domain.Dimension) (domain.DimensionInfo, error) {
	di, ok := domain.Info(d)
	if !ok {
		return domain.DimensionInfo{}, fmt.Errorf("unknown dimension %q: %w", d, domain.ErrInvalidInput)
	}
	return di, nil
}

// UpsertEntry inserts or renames the entry keyed by slug. MySQL reports one affected
// row for an insert, two for an update and zero when nothing changed.
func (r *Repo) UpsertEntry(ctx context.Context, d domain.Dimension, name, slug string) (bool, error) {
	di, err := dimensionInfo(d)
	if err != nil {
		return false, err
	}
	res, err := r.db.ExecContext(ctx, fmt.Sprintf(upsertEntryTmpl, di.Table), name, slug)
	if err != nil {
		return false, fmt.Errorf("upsert %s %q: %w", di.Table, slug, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *Repo) ListEntries(ctx context.Context, d domain.Dimension) ([]domain.ClassificationEntry, error) {
	di, err := dimensionInfo(d)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(listEntriesTmpl, di.Table))
	if err != nil {
		return nil, err
	}
	return scanEntries(rows, d)
}

func (r *Repo) getEntryBySlug(ctx context.Context, di domain.DimensionInfo, slug string) (domain.ClassificationEntry, error) {
	e := domain.ClassificationEntry{Dimension: di.Dimension}
	err := r.db.QueryRowContext(ctx, fmt.Sprintf(getEntryBySlugTmpl, di.Table), slug).Scan(&e.ID, &e.Name, &e.Slug)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ClassificationEntry{}, domain.ErrNotFound
	}
	return e, err
}

func (r *Repo) FacilityClassifications(ctx context.Context, facilityID int64) (map[domain.Dimension][]domain.ClassificationEntry, error) {
	out := make(map[domain.Dimension][]domain.ClassificationEntry, len(domain.Dimensions))
	for _, di := range domain.Dimensions {
		rows, err := r.db.QueryContext(ctx, fmt.Sprintf(facilityEntriesTmpl, di.Table, di.LinkTable), facilityID)
		if err != nil {
			return nil, err
		}
		es, err := scanEntries(rows, di.Dimension)
		if err != nil {
			return nil, err
		}
		if len(es) > 0 {
			out[di.Dimension] = es
		}
	}
	return out, nil
}

func scanEntries(rows *sql.Rows, d domain.Dimension) ([]domain.ClassificationEntry, error) {
	defer rows.Close()
	var out []domain.ClassificationEntry
	for rows.Next() {
		e := domain.ClassificationEntry{Dimension: d}
		if err := rows.Scan(&e.ID, &e.Name, &e.Slug); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *Repo) AddLink(ctx context.Context, facilityID int64, d domain.Dimension, entryID int64) error {
	di, err := dimensionInfo(d)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, fmt.Sprintf(addLinkTmpl, di.LinkTable), facilityID, entryID)
	return err
}

// ReplaceLinks clears every classification set of the facility and adds links, atomically.
func (r *Repo) ReplaceLinks(ctx context.Context, facilityID int64, links map[domain.Dimension][]int64) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		return replaceLinks(ctx, tx, facilityID, links)
	})
}

// SaveDetails updates the facility row and rebuilds its classification sets in one transaction.
func (r *Repo) SaveDetails(ctx context.Context, f domain.Facility, links map[domain.Dimension][]int64) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if err := updateFacility(ctx, tx, f); err != nil {
			return err
		}
		return replaceLinks(ctx, tx, f.ID, links)
	})
}

func replaceLinks(ctx context.Context, tx *sql.Tx, facilityID int64, links map[domain.Dimension][]int64) error {
	for _, di := range domain.Dimensions {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(clearLinksTmpl, di.LinkTable), facilityID); err != nil {
			return fmt.Errorf("clear %s: %w", di.LinkTable, err)
		}
		for _, id := range links[di.Dimension] {
			if _, err := tx.ExecContext(ctx, fmt.Sprintf(addLinkTmpl, di.LinkTable), facilityID, id); err != nil {
				return fmt.Errorf("link %s: %w", di.LinkTable, err)
			}
		}
	}
	return nil
}
