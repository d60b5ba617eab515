package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/wizzomafizzo/gauntlet/internal/core/engine/unit"
)

const (
	symbolPassed  = "✔"
	symbolFailed  = "✖"
	symbolSkipped = "↺"
)

// CLI prints one line per example as it finishes and a summary on close.
type CLI struct {
	w        io.Writer
	passed   *color.Color
	failed   *color.Color
	skipped  *color.Color
	header   *color.Color
	backend  *Backend
	profiles []Profile
	opts     Options
	collector
	printedHeader bool
}

// NewCLI creates the terminal formatter.
func NewCLI(w io.Writer, opts Options) *CLI {
	f := &CLI{
		w:       w,
		opts:    opts,
		passed:  color.New(color.FgGreen),
		failed:  color.New(color.FgRed),
		skipped: color.New(color.FgYellow),
		header:  color.New(color.Bold),
	}
	for _, c := range []*color.Color{f.passed, f.failed, f.skipped, f.header} {
		if opts.Color {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return f
}

// AddProfile adds a profile to the header.
func (f *CLI) AddProfile(p Profile) {
	f.profiles = append(f.profiles, p)
}

// SetBackend sets the target shown in the header.
func (f *CLI) SetBackend(b Backend) {
	f.backend = &b
}

// Start prints the header.
func (f *CLI) Start(exampleCount int) {
	f.collector.Start(exampleCount)
	f.printHeader()
}

func (f *CLI) printHeader() {
	if f.printedHeader {
		return
	}
	f.printedHeader = true
	for _, p := range f.profiles {
		title := p.Title
		if title == "" {
			title = p.Name
		}
		_, _ = f.header.Fprintf(f.w, "Profile: %s (%s)\n", title, p.Name)
		if p.Version != "" {
			_, _ = fmt.Fprintf(f.w, "Version: %s\n", p.Version)
		}
	}
	if f.backend != nil {
		_, _ = fmt.Fprintf(f.w, "Target:  %s\n", f.backend.Target())
	}
	if len(f.profiles) > 0 || f.backend != nil {
		_, _ = fmt.Fprintln(f.w)
	}
}

// ExampleFinished prints the example outcome.
func (f *CLI) ExampleFinished(e *unit.Example) {
	f.collector.ExampleFinished(e)
	r := f.records[len(f.records)-1]

	prefix := ""
	if r.Metadata.ID != "" {
		prefix = r.Metadata.ID + ": "
	}

	switch r.Status {
	case unit.StatusPassed:
		_, _ = f.passed.Fprintf(f.w, "  %s  %s%s\n", symbolPassed, prefix, r.FullDescription)
	case unit.StatusFailed:
		_, _ = f.failed.Fprintf(f.w, "  %s  %s%s\n", symbolFailed, prefix, r.FullDescription)
		for _, line := range strings.Split(r.Message(), "\n") {
			_, _ = fmt.Fprintf(f.w, "     %s\n", line)
		}
	case unit.StatusPending:
		_, _ = f.skipped.Fprintf(f.w, "  %s  %s%s\n", symbolSkipped, prefix, r.PendingMessage)
	case unit.StatusNone:
	}
}

// Close prints the control and example summaries.
func (f *CLI) Close() error {
	f.finish()

	var passed, failed, skipped int
	for _, cs := range f.controls() {
		switch cs.Status {
		case unit.StatusFailed:
			failed++
		case unit.StatusPending:
			skipped++
		case unit.StatusPassed, unit.StatusNone:
			passed++
		}
	}

	s := f.summary()
	_, err := fmt.Fprintf(f.w, "\nProfile Summary: %s, %s, %s\nTest Summary: %s, %s, %s\n",
		f.passed.Sprintf("%d successful %s", passed, plural(passed, "control")),
		f.failed.Sprintf("%d %s", failed, plural(failed, "control failure")),
		f.skipped.Sprintf("%d %s skipped", skipped, plural(skipped, "control")),
		f.passed.Sprintf("%d successful", s.ExampleCount-s.FailureCount-s.PendingCount),
		f.failed.Sprintf("%d %s", s.FailureCount, plural(s.FailureCount, "failure")),
		f.skipped.Sprintf("%d skipped", s.PendingCount),
	)
	if err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	return nil
}
