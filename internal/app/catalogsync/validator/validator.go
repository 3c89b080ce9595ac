// Package validator decides which parsed candidates may reach the catalog.
package validator

import (
	"github.com/g33ktony/hot-wheels-manager-sub006/internal/app/catalogsync/wikitext"
	"github.com/g33ktony/hot-wheels-manager-sub006/internal/domain"
)

// Required field names as reported in ValidationOutcome.MissingFields.
const (
	FieldCarModel = "carModel"
	FieldNumber   = "toy_num|col_num"
	FieldYear     = "year"
)

// Validate returns one outcome per candidate of parse, or a single outcome
// for a page that produced no candidates.
func Validate(page domain.WikiPage, parse wikitext.PageParse) []domain.ValidationOutcome {
	base := domain.ValidationOutcome{
		Title:       page.Title,
		PageExists:  page.Exists,
		HasTemplate: parse.HasTemplate,
		HasTable:    parse.HasTable,
	}

	switch {
	case !page.Exists:
		base.Verdict = domain.VerdictSkipped
		base.Reason = domain.ReasonNoPage
		return []domain.ValidationOutcome{base}
	case !parse.HasTemplate && len(parse.Records) == 0:
		base.Verdict = domain.VerdictInvalid
		base.Reason = domain.ReasonNoTemplate
		return []domain.ValidationOutcome{base}
	case parse.NeedsReview:
		base.Verdict = domain.VerdictInvalid
		base.Reason = domain.ReasonNeedsReview + ": " + parse.ReviewReason
		return []domain.ValidationOutcome{base}
	case len(parse.Records) == 0:
		base.Verdict = domain.VerdictInvalid
		base.Reason = domain.ReasonNoTemplate
		return []domain.ValidationOutcome{base}
	}

	out := make([]domain.ValidationOutcome, 0, len(parse.Records))
	for i := range parse.Records {
		o := base
		rec := parse.Records[i]
		o.Record = &rec
		o.MissingFields = MissingFields(rec)
		if len(o.MissingFields) == 0 {
			o.Verdict = domain.VerdictValid
		} else {
			o.Verdict = domain.VerdictInvalid
		}
		out = append(out, o)
	}
	return out
}

// MissingFields lists the required fields rec lacks, in a fixed order.
// The UnknownYear placeholder counts as missing.
func MissingFields(rec domain.VehicleRecord) []string {
	var missing []string
	if rec.CarModel == "" {
		missing = append(missing, FieldCarModel)
	}
	if rec.ToyNum == "" && rec.ColNum == "" {
		missing = append(missing, FieldNumber)
	}
	if rec.Year == "" || rec.Year == domain.UnknownYear {
		missing = append(missing, FieldYear)
	}
	return missing
}
