package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/mysql"

	"help_directory/internal/domain"
)

func valStr(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}
func valInt(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}
func valInt64(p *int64) any {
	if p == nil {
		return nil
	}
	return *p
}
func valF64(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

func ptrStr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
func ptrInt(ni sql.NullInt64) *int {
	if !ni.Valid {
		return nil
	}
	n := int(ni.Int64)
	return &n
}
func ptrInt64(ni sql.NullInt64) *int64 {
	if !ni.Valid {
		return nil
	}
	n := ni.Int64
	return &n
}
func ptrF64(nf sql.NullFloat64) *float64 {
	if !nf.Valid {
		return nil
	}
	f := nf.Float64
	return &f
}
func ptrTime(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}

// Repo implements the facility, classification, directory and community ports on MySQL.
type Repo struct {
	db *sql.DB
	gq *goqu.Database
}

func New(db *sql.DB) *Repo { return &Repo{db: db, gq: goqu.New("mysql", db)} }

type scanner interface{ Scan(dest ...any) error }

func scanFacility(s scanner) (domain.Facility, error) {
	var (
		f                                                         domain.Facility
		street, postal, city, full, src, desc, phone, email, www  sql.NullString
		voiv, addiction, lengths, therapy, ftype, psycho, counsel sql.NullString
		other, updated                                            sql.NullString
		places                                                    sql.NullInt64
		lat, lon                                                  sql.NullFloat64
	)
	err := s.Scan(&f.ID, &f.Name, &f.Slug, &street, &postal, &city, &full,
		&src, &desc, &phone, &email, &www, &voiv, &places,
		&addiction, &lengths, &therapy, &ftype,
		&psycho, &counsel, &other, &updated,
		&lat, &lon, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return domain.Facility{}, err
	}
	f.AddressStreet, f.AddressPostalCode, f.AddressCity = ptrStr(street), ptrStr(postal), ptrStr(city)
	f.FullAddress, f.SourceURL, f.Description = ptrStr(full), ptrStr(src), ptrStr(desc)
	f.Phone, f.Email, f.Website, f.Voivodeship = ptrStr(phone), ptrStr(email), ptrStr(www), ptrStr(voiv)
	f.Places = ptrInt(places)
	f.AddictionTypesText, f.ProgramLengthsText = ptrStr(addiction), ptrStr(lengths)
	f.TherapyTypesText, f.FacilityTypeText = ptrStr(therapy), ptrStr(ftype)
	f.PsychotherapyTypesText, f.CounselingTypesText = ptrStr(psycho), ptrStr(counsel)
	f.OtherActivitiesText, f.SourceUpdatedText = ptrStr(other), ptrStr(updated)
	f.Lat, f.Lon = ptrF64(lat), ptrF64(lon)
	return f, nil
}

// facilityArgs is the column order shared by insert (after slug) and update (before id).
func facilityArgs(f domain.Facility) []any {
	return []any{
		f.Name,
		valStr(f.AddressStreet),
		valStr(f.AddressPostalCode),
		valStr(f.AddressCity),
		valStr(f.FullAddress),
		valStr(f.SourceURL),
		valStr(f.Description),
		valStr(f.Phone),
		valStr(f.Email),
		valStr(f.Website),
		valStr(f.Voivodeship),
		valInt(f.Places),
		valStr(f.AddictionTypesText),
		valStr(f.ProgramLengthsText),
		valStr(f.TherapyTypesText),
		valStr(f.FacilityTypeText),
		valStr(f.PsychotherapyTypesText),
		valStr(f.CounselingTypesText),
		valStr(f.OtherActivitiesText),
		valStr(f.SourceUpdatedText),
		valF64(f.Lat),
		valF64(f.Lon),
	}
}

func (r *Repo) InsertFacility(ctx context.Context, f *domain.Facility) error {
	args := append([]any{f.Slug}, facilityArgs(*f)...)
	res, err := r.db.ExecContext(ctx, insertFacilitySQL, args...)
	if err != nil {
		return fmt.Errorf("insert facility %q: %w", f.Slug, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	f.ID = id
	return nil
}

func (r *Repo) UpdateFacility(ctx context.Context, f domain.Facility) error {
	return updateFacility(ctx, r.db, f)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func updateFacility(ctx context.Context, ex execer, f domain.Facility) error {
	args := append(facilityArgs(f), f.ID)
	if _, err := ex.ExecContext(ctx, updateFacilitySQL, args...); err != nil {
		return fmt.Errorf("update facility %d: %w", f.ID, err)
	}
	return nil
}

func (r *Repo) SetCoordinates(ctx context.Context, id int64, c domain.Coords) error {
	_, err := r.db.ExecContext(ctx, setCoordinatesSQL, c.Lat, c.Lon, id)
	return err
}

func (r *Repo) GetFacilityBySource(ctx context.Context, sourceURL string) (domain.Facility, error) {
	return r.getFacility(ctx, getFacilityBySourceSQL, sourceURL)
}

func (r *Repo) GetFacilityBySlug(ctx context.Context, slug string) (domain.Facility, error) {
	return r.getFacility(ctx, getFacilityBySlugSQL, slug)
}

func (r *Repo) getFacility(ctx context.Context, q string, arg any) (domain.Facility, error) {
	f, err := scanFacility(r.db.QueryRowContext(ctx, q, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Facility{}, domain.ErrNotFound
	}
	return f, err
}

func (r *Repo) SlugTaken(ctx context.Context, slug string, excludeID int64) (bool, error) {
	var taken bool
	err := r.db.QueryRowContext(ctx, slugTakenSQL, slug, excludeID).Scan(&taken)
	return taken, err
}

func (r *Repo) ListFacilities(ctx context.Context) ([]domain.Facility, error) {
	return r.listFacilities(ctx, listFacilitiesSQL)
}

func (r *Repo) FacilitiesToGeocode(ctx context.Context, force bool) ([]domain.Facility, error) {
	if force {
		return r.listFacilities(ctx, listFacilitiesSQL)
	}
	return r.listFacilities(ctx, listUngeocodedSQL)
}

func (r *Repo) listFacilities(ctx context.Context, q string) ([]domain.Facility, error) {
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Facility
	for rows.Next() {
		f, err := scanFacility(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (r *Repo) LogMiss(ctx context.Context, key string, status int, reason string) error {
	_, err := r.db.ExecContext(ctx, insertMissSQL, key, status, reason)
	return err
}

func (r *Repo) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
