package app

import "help_directory/internal/domain"

func facilityView(f domain.Facility, classes map[domain.Dimension][]domain.ClassificationEntry, comments []domain.Comment, ratings domain.RatingSummary) domain.FacilityView {
	v := domain.FacilityView{
		ID:              f.ID,
		Name:            f.Name,
		Slug:            f.Slug,
		AddressStreet:   f.AddressStreet,
		PostalCode:      f.AddressPostalCode,
		City:            f.AddressCity,
		FullAddress:     f.FullAddress,
		Voivodeship:     f.Voivodeship,
		Phone:           f.Phone,
		Email:           f.Email,
		Website:         f.Website,
		Description:     f.Description,
		Places:          f.Places,
		SourceUpdated:   f.SourceUpdatedText,
		Classifications: make(map[domain.Dimension][]domain.ClassificationRef, len(domain.Dimensions)),
		Ratings:         ratings,
		Comments:        comments,
	}
	if f.HasCoords() {
		v.Coords = &domain.Coords{Lat: *f.Lat, Lon: *f.Lon}
	}
	for _, di := range domain.Dimensions {
		v.Classifications[di.Dimension] = refs(classes[di.Dimension])
	}
	if v.Comments == nil {
		v.Comments = []domain.Comment{}
	}
	if v.Ratings.Categories == nil {
		v.Ratings.Categories = []domain.CategoryAverage{}
	}
	return v
}

func refs(es []domain.ClassificationEntry) []domain.ClassificationRef {
	out := make([]domain.ClassificationRef, 0, len(es))
	for _, e := range es {
		out = append(out, e.Ref())
	}
	return out
}
