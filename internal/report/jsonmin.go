package report

import "io"

// JSONMin renders one flat entry per example.
type JSONMin struct {
	w    io.Writer
	opts Options
	collector
}

// NewJSONMin creates the minimal JSON formatter.
func NewJSONMin(w io.Writer, opts Options) *JSONMin {
	return &JSONMin{w: w, opts: opts}
}

// Output builds the report from what has run so far.
func (f *JSONMin) Output() *Output {
	out := &Output{
		Version:    f.opts.Version,
		Controls:   make([]ResultOutput, 0, len(f.records)),
		Statistics: Statistics{Duration: f.duration.Seconds()},
		Summary:    f.summary(),
	}
	for _, r := range f.records {
		out.Controls = append(out.Controls, resultOutput(r))
	}
	return out
}

// Close writes the report.
func (f *JSONMin) Close() error {
	f.finish()
	return writeJSON(f.w, f.Output())
}
