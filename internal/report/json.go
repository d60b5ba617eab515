package report

import (
	"encoding/json"
	"fmt"
	"io"
)

// JSON renders profiles, their controls and every result.
type JSON struct {
	w        io.Writer
	backend  *Backend
	opts     Options
	profiles []Profile
	collector
}

// NewJSON creates the full JSON formatter.
func NewJSON(w io.Writer, opts Options) *JSON {
	return &JSON{w: w, opts: opts}
}

// AddProfile registers profile metadata for the report.
func (f *JSON) AddProfile(p Profile) {
	f.profiles = append(f.profiles, p)
}

// SetBackend records the target platform.
func (f *JSON) SetBackend(b Backend) {
	f.backend = &b
}

// Output builds the report from what has run so far.
func (f *JSON) Output() *Output {
	out := &Output{
		Version:    f.opts.Version,
		RunID:      f.opts.RunID,
		Statistics: Statistics{Duration: f.duration.Seconds()},
		Summary:    f.summary(),
	}
	if f.backend != nil {
		p := f.backend.Platform
		out.Platform = &p
	}

	index := map[string]int{}
	for _, p := range f.profiles {
		index[p.Name] = len(out.Profiles)
		out.Profiles = append(out.Profiles, ProfileOutput{Profile: p, Controls: []ControlOutput{}})
	}

	for _, cs := range f.controls() {
		i, ok := index[cs.Metadata.ProfileID]
		if !ok {
			i = len(out.Profiles)
			index[cs.Metadata.ProfileID] = i
			out.Profiles = append(out.Profiles, ProfileOutput{Profile: Profile{Name: cs.Metadata.ProfileID}})
		}
		ctl := ControlOutput{
			ID:     cs.Metadata.ID,
			Title:  cs.Metadata.Title,
			Desc:   cs.Metadata.Desc,
			Code:   cs.Metadata.Code,
			Impact: cs.Metadata.Impact,
			Status: statusName(cs.Status),
			SourceLocation: SourceLocation{
				Ref:  cs.Metadata.SourceLocation.Path,
				Line: cs.Metadata.SourceLocation.Line,
			},
			Results: make([]ResultOutput, 0, len(cs.Records)),
		}
		for _, r := range cs.Records {
			ctl.Results = append(ctl.Results, resultOutput(r))
		}
		out.Profiles[i].Controls = append(out.Profiles[i].Controls, ctl)
	}
	return out
}

// Close writes the report.
func (f *JSON) Close() error {
	f.finish()
	return writeJSON(f.w, f.Output())
}

func writeJSON(w io.Writer, out *Output) error {
	if err := json.NewEncoder(w).Encode(out); err != nil {
		return fmt.Errorf("failed to write json report: %w", err)
	}
	return nil
}

func errorClass(err error) string {
	return fmt.Sprintf("%T", err)
}
