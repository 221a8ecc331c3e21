package domain

import "time"

type Facility struct {
	ID                int64
	Name              string
	Slug              string
	AddressStreet     *string
	AddressPostalCode *string
	AddressCity       *string
	FullAddress       *string
	SourceURL         *string // canonical page on the legacy site
	Description       *string
	Phone             *string
	Email             *string
	Website           *string
	Voivodeship       *string
	Places            *int

	// Free text copied from the legacy pages, later resolved into classifications.
	AddictionTypesText     *string
	ProgramLengthsText     *string
	TherapyTypesText       *string
	FacilityTypeText       *string
	PsychotherapyTypesText *string
	CounselingTypesText    *string
	OtherActivitiesText    *string
	SourceUpdatedText      *string

	Lat, Lon  *float64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// FreeTextField names one of the legacy free-text columns of a Facility.
type FreeTextField string

const (
	FieldAddictionTypes     FreeTextField = "addiction_types_text"
	FieldFacilityType       FreeTextField = "facility_type_text"
	FieldVoivodeship        FreeTextField = "voivodeship"
	FieldProgramLengths     FreeTextField = "program_lengths_text"
	FieldTherapyTypes       FreeTextField = "therapy_types_text"
	FieldPsychotherapyTypes FreeTextField = "psychotherapy_types_text"
	FieldCounselingTypes    FreeTextField = "counseling_types_text"
	FieldOtherActivities    FreeTextField = "other_activities_text"
)

// FreeText returns the value of the given legacy column, "" when unset.
func (f Facility) FreeText(field FreeTextField) string {
	var p *string
	switch field {
	case FieldAddictionTypes:
		p = f.AddictionTypesText
	case FieldFacilityType:
		p = f.FacilityTypeText
	case FieldVoivodeship:
		p = f.Voivodeship
	case FieldProgramLengths:
		p = f.ProgramLengthsText
	case FieldTherapyTypes:
		p = f.TherapyTypesText
	case FieldPsychotherapyTypes:
		p = f.PsychotherapyTypesText
	case FieldCounselingTypes:
		p = f.CounselingTypesText
	case FieldOtherActivities:
		p = f.OtherActivitiesText
	}
	if p == nil {
		return ""
	}
	return *p
}

func (f Facility) HasCoords() bool { return f.Lat != nil && f.Lon != nil }

type Coords struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Read models & queries

type FacilitySummary struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Slug        string   `json:"slug"`
	City        *string  `json:"city,omitempty"`
	Voivodeship *string  `json:"voivodeship,omitempty"`
	Lat         *float64 `json:"lat,omitempty"`
	Lon         *float64 `json:"lon,omitempty"`
}

type FacilityQuery struct {
	Text        string
	City        string
	Voivodeship string
	Filters     map[Dimension]string // dimension -> entry slug
	Limit       int
	Offset      int
}

type FacilityPage struct {
	Items      []FacilitySummary `json:"items"`
	NextOffset *int              `json:"next_offset,omitempty"`
}

type FacilityView struct {
	ID              int64                             `json:"id"`
	Name            string                            `json:"name"`
	Slug            string                            `json:"slug"`
	AddressStreet   *string                           `json:"address_street,omitempty"`
	PostalCode      *string                           `json:"postal_code,omitempty"`
	City            *string                           `json:"city,omitempty"`
	FullAddress     *string                           `json:"full_address,omitempty"`
	Voivodeship     *string                           `json:"voivodeship,omitempty"`
	Phone           *string                           `json:"phone,omitempty"`
	Email           *string                           `json:"email,omitempty"`
	Website         *string                           `json:"website,omitempty"`
	Description     *string                           `json:"description,omitempty"`
	Places          *int                              `json:"places,omitempty"`
	SourceUpdated   *string                           `json:"source_updated,omitempty"`
	Coords          *Coords                           `json:"coords,omitempty"`
	Classifications map[Dimension][]ClassificationRef `json:"classifications"`
	Ratings         RatingSummary                     `json:"ratings"`
	Comments        []Comment                         `json:"comments"`
}

type MapPoint struct {
	ID   int64   `json:"id"`
	Name string  `json:"name"`
	Slug string  `json:"slug"`
	City *string `json:"city,omitempty"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}
