package wikitext

import (
	"regexp"
	"strings"

	"github.com/g33ktony/hot-wheels-manager-sub006/internal/domain"
)

// Key families, tried in order.
var (
	keysModel     = []string{"name", "casting", "model"}
	keysToyNum    = []string{"toy_num", "number", "toy"}
	keysColNum    = []string{"col_num", "col", "colnum"}
	keysYear      = []string{"year", "years", "released"}
	keysSeries    = []string{"series"}
	keysSeriesNum = []string{"series_num", "seriesnum"}
	keysColor     = []string{"color", "colour", "body_color"}
	keysTampo     = []string{"tampo", "tampos"}
	keysWheel     = []string{"wheel_type", "wheels", "wheel"}
	keysMake      = []string{"make", "car_make", "brand"}
)

var (
	titleYearRe     = regexp.MustCompile(`\b(19|20)\d{2}\b`)
	trailingParenRe = regexp.MustCompile(`\s*\([^()]*\)\s*$`)
)

// Extractor maps template fields onto catalog records.
type Extractor struct {
	imageHost string
}

// NewExtractor returns an Extractor that prefixes image names with imageHost.
func NewExtractor(imageHost string) *Extractor {
	return &Extractor{imageHost: imageHost}
}

// ExtractRecord builds a candidate record from one casting block found on
// the page titled title. Missing model and year fall back to hints in the
// title; year finally falls back to domain.UnknownYear.
func (e *Extractor) ExtractRecord(block TemplateBlock, title domain.PageTitle) domain.VehicleRecord {
	return e.record(block.Fields, title)
}

func (e *Extractor) record(f FieldMap, title domain.PageTitle) domain.VehicleRecord {
	rec := domain.VehicleRecord{
		CarModel:    pick(f, keysModel...),
		ToyNum:      pick(f, keysToyNum...),
		ColNum:      pick(f, keysColNum...),
		Year:        pick(f, keysYear...),
		Color:       pick(f, keysColor...),
		Series:      pick(f, keysSeries...),
		SeriesNum:   pick(f, keysSeriesNum...),
		Tampo:       pick(f, keysTampo...),
		WheelType:   pick(f, keysWheel...),
		CarMake:     pick(f, keysMake...),
		SourceTitle: title,
	}
	if rec.CarModel == "" {
		rec.CarModel = modelFromTitle(title)
	}
	if rec.Year == "" {
		rec.Year = yearFromTitle(title)
	}
	if img, ok := f["image"]; ok {
		rec.PhotoURL = ImageURL(e.imageHost, img)
	}
	return rec
}

func (e *Extractor) packItem(f FieldMap) domain.PackItem {
	item := domain.PackItem{
		CastingName: pick(f, keysModel...),
		BodyColor:   pick(f, keysColor...),
		Tampo:       pick(f, keysTampo...),
		WheelType:   pick(f, keysWheel...),
		Notes:       pick(f, "notes"),
	}
	if img, ok := f["image"]; ok {
		item.PhotoURL = ImageURL(e.imageHost, img)
	}
	return item
}

// pick returns the first non-empty cleaned value among keys.
func pick(f FieldMap, keys ...string) string {
	for _, k := range keys {
		if v := StripMarkup(f[k]); v != "" {
			return v
		}
	}
	return ""
}

func modelFromTitle(title domain.PageTitle) string {
	return strings.TrimSpace(trailingParenRe.ReplaceAllString(string(title), ""))
}

func yearFromTitle(title domain.PageTitle) string {
	if y := titleYearRe.FindString(string(title)); y != "" {
		return y
	}
	return domain.UnknownYear
}
