package domain

// Verdict is the validator's decision on one candidate.
type Verdict string

const (
	VerdictValid   Verdict = "VALID"
	VerdictInvalid Verdict = "INVALID"
	VerdictSkipped Verdict = "SKIPPED"
)

func (v Verdict) String() string { return string(v) }

func (v Verdict) IsValid() bool {
	switch v {
	case VerdictValid, VerdictInvalid, VerdictSkipped:
		return true
	}
	return false
}

// FailureClass groups per-page and per-record failures in the report.
type FailureClass string

const (
	FailureTransport    FailureClass = "TRANSPORT"
	FailureSourceAbsent FailureClass = "SOURCE_ABSENT"
	FailureParseEmpty   FailureClass = "PARSE_EMPTY"
	FailureValidation   FailureClass = "VALIDATION"
	FailurePersistence  FailureClass = "PERSISTENCE"
	FailureReview       FailureClass = "NEEDS_REVIEW"
)

func (c FailureClass) String() string { return string(c) }

func (c FailureClass) IsValid() bool {
	switch c {
	case FailureTransport, FailureSourceAbsent, FailureParseEmpty,
		FailureValidation, FailurePersistence, FailureReview:
		return true
	}
	return false
}

// Phase is the orchestrator's position in the sync state machine.
type Phase string

const (
	PhaseIdle       Phase = "IDLE"
	PhaseFetching   Phase = "FETCHING"
	PhaseParsing    Phase = "PARSING"
	PhaseValidating Phase = "VALIDATING"
	PhaseMerging    Phase = "MERGING"
	PhaseAdvancing  Phase = "ADVANCING"
	PhaseDone       Phase = "DONE"
	PhaseFailed     Phase = "FAILED"
)

func (p Phase) String() string { return string(p) }

// IsTerminal reports whether no further transition is possible.
func (p Phase) IsTerminal() bool {
	return p == PhaseDone || p == PhaseFailed
}

// UpsertOutcome is the effect of one catalog upsert.
type UpsertOutcome string

const (
	UpsertInserted  UpsertOutcome = "INSERTED"
	UpsertUpdated   UpsertOutcome = "UPDATED"
	UpsertUnchanged UpsertOutcome = "UNCHANGED"
)

func (o UpsertOutcome) String() string { return string(o) }

func (o UpsertOutcome) IsValid() bool {
	switch o {
	case UpsertInserted, UpsertUpdated, UpsertUnchanged:
		return true
	}
	return false
}

// StoreDriver selects the catalog store backend.
type StoreDriver string

const (
	StorePostgres StoreDriver = "postgres"
	StoreMongo    StoreDriver = "mongo"
	StoreMemory   StoreDriver = "memory"
)

func (d StoreDriver) String() string { return string(d) }

func (d StoreDriver) IsValid() bool {
	switch d {
	case StorePostgres, StoreMongo, StoreMemory:
		return true
	}
	return false
}
