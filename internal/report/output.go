package report

import "github.com/wizzomafizzo/gauntlet/internal/core/engine/unit"

// Output is the structured report. Which sections are filled depends on the
// formatter that produced it.
type Output struct {
	Platform    *Platform       `json:"platform,omitempty"`
	Version     string          `json:"version"`
	RunID       string          `json:"run_id,omitempty"`
	SummaryLine string          `json:"summary_line,omitempty"`
	Profiles    []ProfileOutput `json:"profiles,omitempty"`
	Controls    []ResultOutput  `json:"controls,omitempty"`
	Examples    []ExampleOutput `json:"examples,omitempty"`
	Statistics  Statistics      `json:"statistics"`
	Summary     Summary         `json:"summary"`
}

// Summary counts example outcomes.
type Summary struct {
	Duration     float64 `json:"duration"`
	ExampleCount int     `json:"example_count"`
	FailureCount int     `json:"failure_count"`
	PendingCount int     `json:"pending_count"`
}

// Statistics holds run-level figures.
type Statistics struct {
	Duration float64 `json:"duration"`
}

// ExampleOutput is one example in the json-rspec shape.
type ExampleOutput struct {
	Exception       *Exception `json:"exception,omitempty"`
	ID              string     `json:"id,omitempty"`
	ProfileID       string     `json:"profile_id,omitempty"`
	Description     string     `json:"description"`
	FullDescription string     `json:"full_description"`
	Status          string     `json:"status"`
	FilePath        string     `json:"file_path,omitempty"`
	PendingMessage  string     `json:"pending_message,omitempty"`
	LineNumber      int        `json:"line_number,omitempty"`
	RunTime         float64    `json:"run_time"`
}

// Exception describes a failed example.
type Exception struct {
	Class   string `json:"class"`
	Message string `json:"message"`
}

// ResultOutput is one example result tagged with its control.
type ResultOutput struct {
	ID          string  `json:"id,omitempty"`
	ProfileID   string  `json:"profile_id,omitempty"`
	Status      string  `json:"status"`
	CodeDesc    string  `json:"code_desc"`
	Message     string  `json:"message,omitempty"`
	SkipMessage string  `json:"skip_message,omitempty"`
	RunTime     float64 `json:"run_time"`
}

// ProfileOutput is a profile with the controls that ran from it.
type ProfileOutput struct {
	Profile
	Controls []ControlOutput `json:"controls"`
}

// ControlOutput is a control with its metadata and results.
type ControlOutput struct {
	SourceLocation SourceLocation `json:"source_location"`
	ID             string         `json:"id"`
	Title          string         `json:"title,omitempty"`
	Desc           string         `json:"desc,omitempty"`
	Code           string         `json:"code,omitempty"`
	Status         string         `json:"status"`
	Results        []ResultOutput `json:"results"`
	Impact         float64        `json:"impact"`
}

// SourceLocation points at the control declaration.
type SourceLocation struct {
	Ref  string `json:"ref"`
	Line int    `json:"line"`
}

func resultOutput(r Record) ResultOutput {
	out := ResultOutput{
		ID:        r.Metadata.ID,
		ProfileID: r.Metadata.ProfileID,
		Status:    r.Status.String(),
		CodeDesc:  r.FullDescription,
		RunTime:   r.Duration.Seconds(),
	}
	switch r.Status {
	case unit.StatusFailed:
		out.Message = r.Message()
	case unit.StatusPending:
		out.Status = "skipped"
		out.SkipMessage = r.PendingMessage
	case unit.StatusPassed, unit.StatusNone:
	}
	return out
}

func exampleOutput(r Record) ExampleOutput {
	out := ExampleOutput{
		ID:              r.Metadata.ID,
		ProfileID:       r.Metadata.ProfileID,
		Description:     r.Description,
		FullDescription: r.FullDescription,
		Status:          r.Status.String(),
		FilePath:        r.Location.Path,
		LineNumber:      r.Location.Line,
		RunTime:         r.Duration.Seconds(),
	}
	if r.Status == unit.StatusPending {
		out.PendingMessage = r.PendingMessage
	}
	if r.Status == unit.StatusFailed && r.Err != nil {
		out.Exception = &Exception{Class: errorClass(r.Err), Message: r.Err.Error()}
	}
	return out
}

func statusName(s unit.Status) string {
	if s == unit.StatusPending {
		return "skipped"
	}
	return s.String()
}
