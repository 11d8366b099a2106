package schemas

import "time"

// FieldKind distinguishes plain inputs from custom dropdown widgets.
type FieldKind string

const (
	FieldInput    FieldKind = "input"
	FieldDropdown FieldKind = "dropdown"
)

// FailureKind classifies why a field was not filled.
type FailureKind string

const (
	FailureNone           FailureKind = ""
	FailureNotFound       FailureKind = "not_found"
	FailureValueMismatch  FailureKind = "value_mismatch"
	FailureOverlayMissing FailureKind = "overlay_missing"
	FailureOptionNotFound FailureKind = "option_not_found"
	FailureDriver         FailureKind = "driver_error"
	// FailureCanceled marks fields never attempted because the run was stopped.
	FailureCanceled FailureKind = "canceled"
)

// FieldOutcome records what happened to a single field during a fill.
type FieldOutcome struct {
	Field    string        `json:"field"`
	Kind     FieldKind     `json:"kind"`
	Filled   bool          `json:"filled"`
	Failure  FailureKind   `json:"failure,omitempty"`
	Strategy string        `json:"strategy,omitempty"`
	Detail   string        `json:"detail,omitempty"`
	Elapsed  time.Duration `json:"elapsed"`
}

// FillReport summarizes one fill invocation.
type FillReport struct {
	Success    bool           `json:"success"`
	Filled     []string       `json:"filled"`
	Failed     []string       `json:"failed"`
	Outcomes   []FieldOutcome `json:"outcomes,omitempty"`
	ProfileID  string         `json:"profileId,omitempty"`
	Layout     string         `json:"layout,omitempty"`
	StartedAt  time.Time      `json:"startedAt"`
	FinishedAt time.Time      `json:"finishedAt"`
}

// NewFillReport returns an empty report. An empty report is successful.
func NewFillReport(profileID, layout string) *FillReport {
	return &FillReport{
		Success:   true,
		Filled:    []string{},
		Failed:    []string{},
		ProfileID: profileID,
		Layout:    layout,
		StartedAt: time.Now().UTC(),
	}
}

// Record appends an outcome and keeps Success as the conjunction of all outcomes.
func (r *FillReport) Record(o FieldOutcome) {
	r.Outcomes = append(r.Outcomes, o)
	if o.Filled {
		r.Filled = append(r.Filled, o.Field)
		return
	}
	r.Failed = append(r.Failed, o.Field)
	r.Success = false
}

// Finish stamps the completion time.
func (r *FillReport) Finish() {
	r.FinishedAt = time.Now().UTC()
}
