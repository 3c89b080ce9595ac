package domain

import "time"

// Reasons attached to outcomes that carry no missing fields.
const (
	ReasonNoTemplate  = "no-template"
	ReasonNoPage      = "no-page"
	ReasonNeedsReview = "needs-review"
	ReasonUnreachable = "unreachable"
)

// ValidationOutcome is the validator's result for one candidate record, or
// for a page that produced none.
type ValidationOutcome struct {
	Title         PageTitle
	PageExists    bool
	HasTemplate   bool
	HasTable      bool
	Record        *VehicleRecord
	MissingFields []string
	Reason        string
	Verdict       Verdict
}

// PageFailure is one entry of the report's failure list.
type PageFailure struct {
	Title         PageTitle      `json:"title"`
	Class         FailureClass   `json:"class"`
	Reason        string         `json:"reason"`
	MissingFields []string       `json:"missing_fields,omitempty"`
	Record        *VehicleRecord `json:"record,omitempty"`
}

// SyncReport aggregates one run. Every failure appears in Failures.
type SyncReport struct {
	RunID       string        `json:"run_id"`
	Fetched     int           `json:"fetched"`
	Parsed      int           `json:"parsed"`
	Valid       int           `json:"valid"`
	Invalid     int           `json:"invalid"`
	Skipped     int           `json:"skipped"`
	Merged      int           `json:"merged"`
	Inserted    int           `json:"inserted"`
	Updated     int           `json:"updated"`
	Duplicates  int           `json:"skipped_as_duplicate"`
	Unreachable int           `json:"unreachable"`
	NeedsReview int           `json:"needs_review"`
	Batches     int           `json:"batches"`
	Failures    []PageFailure `json:"failures,omitempty"`
	Stopped     bool          `json:"stopped"`
	Duration    time.Duration `json:"duration"`
}

// AddFailure appends a failure entry.
func (r *SyncReport) AddFailure(f PageFailure) {
	r.Failures = append(r.Failures, f)
}

// FailuresOf returns the failures of one class, in report order.
func (r *SyncReport) FailuresOf(class FailureClass) []PageFailure {
	var out []PageFailure
	for _, f := range r.Failures {
		if f.Class == class {
			out = append(out, f)
		}
	}
	return out
}

// Absorb adds the counters and failures of o to r. RunID, Stopped and
// Duration are left alone.
func (r *SyncReport) Absorb(o SyncReport) {
	r.Fetched += o.Fetched
	r.Parsed += o.Parsed
	r.Valid += o.Valid
	r.Invalid += o.Invalid
	r.Skipped += o.Skipped
	r.Merged += o.Merged
	r.Inserted += o.Inserted
	r.Updated += o.Updated
	r.Duplicates += o.Duplicates
	r.Unreachable += o.Unreachable
	r.NeedsReview += o.NeedsReview
	r.Batches += o.Batches
	r.Failures = append(r.Failures, o.Failures...)
}

// HasFailures reports whether any page or record failed.
func (r *SyncReport) HasFailures() bool { return len(r.Failures) > 0 }
