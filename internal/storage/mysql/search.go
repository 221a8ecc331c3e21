package mysql

import (
	"context"
	"database/sql"
	"strings"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"

	"help_directory/internal/domain"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

var summaryCols = []any{"f.id", "f.name", "f.slug", "f.address_city", "f.voivodeship", "f.lat", "f.lon"}

func likeContains(s string) string {
	esc := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
	return "%" + esc + "%"
}

// searchDataset builds the filtered facility listing. Classification filters become
// `f.id IN (SELECT facility_id ...)` subqueries so they combine with AND.
func (r *Repo) searchDataset(q domain.FacilityQuery) *goqu.SelectDataset {
	ds := r.gq.From(goqu.T("facilities").As("f")).Select(summaryCols...)

	// ILike keeps the match under the column collation; Like renders as LIKE BINARY.
	if t := strings.TrimSpace(q.Text); t != "" {
		like := likeContains(t)
		ds = ds.Where(goqu.Or(
			goqu.I("f.name").ILike(like),
			goqu.I("f.address_city").ILike(like),
			goqu.I("f.full_address").ILike(like),
		))
	}
	if c := strings.TrimSpace(q.City); c != "" {
		ds = ds.Where(goqu.I("f.address_city").Eq(c))
	}
	if v := strings.TrimSpace(q.Voivodeship); v != "" {
		ds = ds.Where(goqu.I("f.voivodeship").ILike(likeContains(v)))
	}
	var filters []exp.Expression
	for _, di := range domain.Dimensions {
		slug, ok := q.Filters[di.Dimension]
		if !ok || slug == "" {
			continue
		}
		sub := r.gq.From(goqu.T(di.LinkTable).As("l")).
			Join(goqu.T(di.Table).As("c"), goqu.On(goqu.I("c.id").Eq(goqu.I("l.entry_id")))).
			Select("l.facility_id").
			Where(goqu.I("c.slug").Eq(slug))
		filters = append(filters, goqu.I("f.id").In(sub))
	}
	if len(filters) > 0 {
		ds = ds.Where(filters...)
	}
	return ds.Order(goqu.I("f.name").Asc(), goqu.I("f.id").Asc())
}

func (r *Repo) SearchFacilities(ctx context.Context, q domain.FacilityQuery) (domain.FacilityPage, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	query, args, err := r.searchDataset(q).
		Limit(uint(limit + 1)).
		Offset(uint(offset)).
		Prepared(true).
		ToSQL()
	if err != nil {
		return domain.FacilityPage{}, err
	}
	items, err := r.querySummaries(ctx, query, args...)
	if err != nil {
		return domain.FacilityPage{}, err
	}

	page := domain.FacilityPage{Items: items}
	if len(items) > limit {
		page.Items = items[:limit]
		next := offset + limit
		page.NextOffset = &next
	}
	return page, nil
}

func (r *Repo) EntryFacilities(ctx context.Context, d domain.Dimension, slug string) (domain.ClassificationEntry, []domain.FacilitySummary, error) {
	di, err := dimensionInfo(d)
	if err != nil {
		return domain.ClassificationEntry{}, nil, err
	}
	e, err := r.getEntryBySlug(ctx, di, slug)
	if err != nil {
		return domain.ClassificationEntry{}, nil, err
	}

	query, args, err := r.gq.From(goqu.T("facilities").As("f")).
		Join(goqu.T(di.LinkTable).As("l"), goqu.On(goqu.I("l.facility_id").Eq(goqu.I("f.id")))).
		Select(summaryCols...).
		Where(goqu.I("l.entry_id").Eq(e.ID)).
		Order(goqu.I("f.name").Asc()).
		Prepared(true).
		ToSQL()
	if err != nil {
		return domain.ClassificationEntry{}, nil, err
	}
	items, err := r.querySummaries(ctx, query, args...)
	return e, items, err
}

func (r *Repo) MapPoints(ctx context.Context) ([]domain.MapPoint, error) {
	query, args, err := r.gq.From(goqu.T("facilities").As("f")).
		Select("f.id", "f.name", "f.slug", "f.address_city", "f.lat", "f.lon").
		Where(goqu.I("f.lat").IsNotNull(), goqu.I("f.lon").IsNotNull()).
		Order(goqu.I("f.name").Asc()).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.MapPoint
	for rows.Next() {
		var p domain.MapPoint
		var city sql.NullString
		if err := rows.Scan(&p.ID, &p.Name, &p.Slug, &city, &p.Lat, &p.Lon); err != nil {
			return nil, err
		}
		p.City = ptrStr(city)
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repo) querySummaries(ctx context.Context, query string, args ...any) ([]domain.FacilitySummary, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []domain.FacilitySummary{}
	for rows.Next() {
		var s domain.FacilitySummary
		var city, voiv sql.NullString
		var lat, lon sql.NullFloat64
		if err := rows.Scan(&s.ID, &s.Name, &s.Slug, &city, &voiv, &lat, &lon); err != nil {
			return nil, err
		}
		s.City, s.Voivodeship = ptrStr(city), ptrStr(voiv)
		s.Lat, s.Lon = ptrF64(lat), ptrF64(lon)
		out = append(out, s)
	}
	return out, rows.Err()
}
