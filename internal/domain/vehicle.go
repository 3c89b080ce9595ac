package domain

import (
	"slices"
	"strings"
)

// UnknownYear is the placeholder year given to records whose source page
// carries no usable year. Validation treats it as missing.
const UnknownYear = "N/A"

// VehicleRecord is one catalog entry extracted from a wiki page.
// Empty strings mean "not present in the source".
type VehicleRecord struct {
	CarModel  string     `json:"carModel"`
	ToyNum    string     `json:"toy_num,omitempty"`
	ColNum    string     `json:"col_num,omitempty"`
	Year      string     `json:"year,omitempty"`
	Color     string     `json:"color,omitempty"`
	Series    string     `json:"series,omitempty"`
	SeriesNum string     `json:"series_num,omitempty"`
	Tampo     string     `json:"tampo,omitempty"`
	WheelType string     `json:"wheel_type,omitempty"`
	CarMake   string     `json:"car_make,omitempty"`
	PhotoURL  string     `json:"photo_url,omitempty"`
	PackItems []PackItem `json:"pack_contents,omitempty"`

	// SourceTitle is the wiki page the record was extracted from.
	SourceTitle PageTitle `json:"source_title,omitempty"`
}

// PackItem is one vehicle inside a multi-vehicle pack.
type PackItem struct {
	CastingName string `json:"casting_name"`
	BodyColor   string `json:"body_color,omitempty"`
	Tampo       string `json:"tampo,omitempty"`
	WheelType   string `json:"wheel_type,omitempty"`
	Notes       string `json:"notes,omitempty"`
	PhotoURL    string `json:"photo_url,omitempty"`
}

// IsPack reports whether the record describes a multi-vehicle pack.
func (v VehicleRecord) IsPack() bool { return len(v.PackItems) > 0 }

// NaturalKey identifies a catalog row across runs. toy_num is the vendor's
// stable identifier; records without one fall back to model+series+year.
type NaturalKey struct {
	ToyNum   string
	CarModel string
	Series   string
	Year     string
}

// Key returns the natural key of v with all parts normalized.
func (v VehicleRecord) Key() NaturalKey {
	if toy := NormalizeText(v.ToyNum); toy != "" {
		return NaturalKey{ToyNum: toy}
	}
	return NaturalKey{
		CarModel: NormalizeText(v.CarModel),
		Series:   NormalizeText(v.Series),
		Year:     NormalizeText(v.Year),
	}
}

// String renders the key in the form stored in the catalog's unique column.
func (k NaturalKey) String() string {
	if k.ToyNum != "" {
		return "toy:" + k.ToyNum
	}
	return "cms:" + strings.Join([]string{k.CarModel, k.Series, k.Year}, "|")
}

// IsZero reports whether the key has no usable part.
func (k NaturalKey) IsZero() bool {
	return k.ToyNum == "" && k.CarModel == "" && k.Series == "" && k.Year == ""
}

// MergeVehicle applies incoming on top of stored. Fields present in incoming
// overwrite, fields absent in incoming keep the stored value, and pack items
// are replaced only when incoming carries some. changed reports whether the
// merged record differs from stored.
func MergeVehicle(stored, incoming VehicleRecord) (merged VehicleRecord, changed bool) {
	merged = stored

	set := func(dst *string, src string) {
		if src != "" && *dst != src {
			*dst = src
			changed = true
		}
	}
	set(&merged.CarModel, incoming.CarModel)
	set(&merged.ToyNum, incoming.ToyNum)
	set(&merged.ColNum, incoming.ColNum)
	set(&merged.Year, incoming.Year)
	set(&merged.Color, incoming.Color)
	set(&merged.Series, incoming.Series)
	set(&merged.SeriesNum, incoming.SeriesNum)
	set(&merged.Tampo, incoming.Tampo)
	set(&merged.WheelType, incoming.WheelType)
	set(&merged.CarMake, incoming.CarMake)
	set(&merged.PhotoURL, incoming.PhotoURL)

	if incoming.SourceTitle != "" && merged.SourceTitle != incoming.SourceTitle {
		merged.SourceTitle = incoming.SourceTitle
		changed = true
	}
	if len(incoming.PackItems) > 0 && !slices.Equal(merged.PackItems, incoming.PackItems) {
		merged.PackItems = slices.Clone(incoming.PackItems)
		changed = true
	}
	return merged, changed
}

// UpsertResult pairs a record with its upsert outcome or error.
type UpsertResult struct {
	Key     NaturalKey
	Outcome UpsertOutcome
	Err     error
}
