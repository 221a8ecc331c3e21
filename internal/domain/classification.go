package domain

import "strings"

// Dimension identifies one of the classification tables a facility is tagged with.
type Dimension string

const (
	AddictionType      Dimension = "addiction_types"
	FacilityType       Dimension = "facility_types"
	Voivodeship        Dimension = "voivodeships"
	ProgramLength      Dimension = "program_lengths"
	TherapyType        Dimension = "therapy_types"
	PsychotherapyType  Dimension = "psychotherapy_types"
	CounselingType     Dimension = "counseling_types"
	LegalIssue         Dimension = "legal_issues"
	AdditionalActivity Dimension = "additional_activities"
	AgeGenderGroup     Dimension = "age_gender_groups"
)

// LegacyTitleSuffix is appended to most page titles of the legacy site.
const LegacyTitleSuffix = " | Hyperreal [H]elp - chcemy pomóc"

// DimensionInfo describes where a dimension lives and where its data comes from.
type DimensionInfo struct {
	Dimension Dimension
	Table     string // classification table
	LinkTable string // facility <-> entry table
	Segment   string // API path segment and query parameter
	Folders   []string
	Source    FreeTextField
	LabelKeys []string // folded fragments of detail page field labels
	Keywords  []string // folded keywords that stand in for the whole anchor text
}

// Dimensions is ordered: label keys are tried in this order and the first hit wins.
var Dimensions = []DimensionInfo{
	{
		Dimension: AddictionType, Table: "addiction_types", LinkTable: "facility_addiction_types",
		Segment: "rodzaj-uzaleznien", Folders: []string{"rodzaj_uzaleznien"},
		Source: FieldAddictionTypes, LabelKeys: []string{"uzaleznien"},
		Keywords: []string{"alkohol", "narkotyk"},
	},
	{
		Dimension: FacilityType, Table: "facility_types", LinkTable: "facility_facility_types",
		Segment: "typ-placowki", Folders: []string{"typ_placowki"},
		Source: FieldFacilityType, LabelKeys: []string{"typ placowki"},
	},
	{
		Dimension: Voivodeship, Table: "voivodeships", LinkTable: "facility_voivodeships",
		Segment: "wojewodztwo", Folders: []string{"wojewodztwo"},
		Source: FieldVoivodeship, LabelKeys: []string{"wojewodztwo"},
	},
	{
		Dimension: ProgramLength, Table: "program_lengths", LinkTable: "facility_program_lengths",
		Segment: "dlugosc-programu", Folders: []string{"dlugosc_programu"},
		Source: FieldProgramLengths, LabelKeys: []string{"dlugosc"},
		Keywords: []string{"krotko", "srednio", "dlugo"},
	},
	{
		Dimension: TherapyType, Table: "therapy_types", LinkTable: "facility_therapy_types",
		Segment: "rodzaj-terapii", Folders: []string{"rodzaj_terapii"},
		Source: FieldTherapyTypes, LabelKeys: []string{"rodzaj terapii"},
	},
	{
		Dimension: PsychotherapyType, Table: "psychotherapy_types", LinkTable: "facility_psychotherapy_types",
		Segment: "psychoterapia", Folders: []string{"psychoterapia"},
		Source: FieldPsychotherapyTypes, LabelKeys: []string{"psychoterapia"},
	},
	{
		Dimension: CounselingType, Table: "counseling_types", LinkTable: "facility_counseling_types",
		Segment: "poradnictwo", Folders: []string{"poradnictwo"},
		Source: FieldCounselingTypes, LabelKeys: []string{"poradnictwo"},
	},
	{
		Dimension: AdditionalActivity, Table: "additional_activities", LinkTable: "facility_additional_activities",
		Segment: "inne-dzialania", Folders: []string{"dzialania_dodatkowe"},
		Source: FieldOtherActivities, LabelKeys: []string{"inne dzialania", "dodatkowe"},
	},
	{
		Dimension: LegalIssue, Table: "legal_issues", LinkTable: "facility_legal_issues",
		Segment: "dzialania-prawne", Folders: []string{"dzialania_zwiazane_z_klopotami_z_prawem"},
		Source: FieldOtherActivities, LabelKeys: []string{"praw", "sad"},
	},
	{
		Dimension: AgeGenderGroup, Table: "age_gender_groups", LinkTable: "facility_age_gender_groups",
		Segment: "grupa-wiekowa-plec", Folders: []string{"grupa_wiekowa_i_plec", "grupa_wiekowa"},
		Source: FieldOtherActivities, LabelKeys: []string{"wiek", "plec"},
	},
}

// Info returns the descriptor of d.
func Info(d Dimension) (DimensionInfo, bool) {
	for _, di := range Dimensions {
		if di.Dimension == d {
			return di, true
		}
	}
	return DimensionInfo{}, false
}

// ParseDimension accepts either the dimension key or its API segment.
func ParseDimension(s string) (Dimension, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, di := range Dimensions {
		if string(di.Dimension) == s || di.Segment == s {
			return di.Dimension, true
		}
	}
	return "", false
}

type ClassificationEntry struct {
	ID        int64     `json:"id"`
	Dimension Dimension `json:"dimension"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
}

// DisplayName strips the legacy page title suffix.
func (e ClassificationEntry) DisplayName() string {
	return strings.TrimSpace(strings.Split(e.Name, LegacyTitleSuffix)[0])
}

func (e ClassificationEntry) Ref() ClassificationRef {
	return ClassificationRef{ID: e.ID, Name: e.DisplayName(), Slug: e.Slug}
}

type ClassificationRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type CategoryGroup struct {
	Dimension Dimension           `json:"dimension"`
	Segment   string              `json:"segment"`
	Entries   []ClassificationRef `json:"entries"`
}

type CategoryListing struct {
	Dimension  Dimension         `json:"dimension"`
	Entry      ClassificationRef `json:"entry"`
	Facilities []FacilitySummary `json:"facilities"`
}
