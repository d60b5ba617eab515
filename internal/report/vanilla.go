package report

import (
	"bytes"
	"fmt"
	"io"
)

// Vanilla renders examples in the plain rspec JSON layout.
type Vanilla struct {
	w    io.Writer
	opts Options
	collector
}

// NewVanilla creates the json-rspec formatter.
func NewVanilla(w io.Writer, opts Options) *Vanilla {
	return &Vanilla{w: w, opts: opts}
}

// NewReporter creates the structured reporter attached by the report
// option. It keeps its JSON in memory; callers read it through Output.
func NewReporter(opts Options) *Vanilla {
	return NewVanilla(&bytes.Buffer{}, opts)
}

// Output builds the report from what has run so far.
func (f *Vanilla) Output() *Output {
	s := f.summary()
	out := &Output{
		Version:     f.opts.Version,
		RunID:       f.opts.RunID,
		Examples:    make([]ExampleOutput, 0, len(f.records)),
		Statistics:  Statistics{Duration: f.duration.Seconds()},
		Summary:     s,
		SummaryLine: summaryLine(s),
	}
	for _, r := range f.records {
		out.Examples = append(out.Examples, exampleOutput(r))
	}
	return out
}

// Close writes the report.
func (f *Vanilla) Close() error {
	f.finish()
	return writeJSON(f.w, f.Output())
}

func summaryLine(s Summary) string {
	line := fmt.Sprintf("%d %s, %d %s", s.ExampleCount, plural(s.ExampleCount, "example"),
		s.FailureCount, plural(s.FailureCount, "failure"))
	if s.PendingCount > 0 {
		line += fmt.Sprintf(", %d pending", s.PendingCount)
	}
	return line
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
