package runner

import (
	"errors"
	"io"

	"github.com/wizzomafizzo/gauntlet/internal/core/engine/unit"
	"github.com/wizzomafizzo/gauntlet/internal/report"
)

// RunContext is the execution configuration of one run: where output goes
// and which formatters receive outcomes. Resetting a Runner replaces it.
type RunContext struct {
	Output     io.Writer
	Formatters []report.Formatter
	closers    []io.Closer
	Color      bool
}

// Start notifies every formatter that a run is beginning.
func (rc *RunContext) Start(exampleCount int) {
	for _, f := range rc.Formatters {
		f.Start(exampleCount)
	}
}

// Finish closes every formatter and returns their combined errors.
func (rc *RunContext) Finish() error {
	var errs []error
	for _, f := range rc.Formatters {
		if err := f.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// close releases output files opened for this context.
func (rc *RunContext) close() error {
	var errs []error
	for _, c := range rc.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	rc.closers = nil
	return errors.Join(errs...)
}

// Reporter fans group and example callbacks out to every formatter.
func (rc *RunContext) Reporter() unit.Reporter {
	return fanout(rc.Formatters)
}

type fanout []report.Formatter

func (f fanout) GroupStarted(g *unit.Group) {
	for _, r := range f {
		r.GroupStarted(g)
	}
}

func (f fanout) GroupFinished(g *unit.Group) {
	for _, r := range f {
		r.GroupFinished(g)
	}
}

func (f fanout) ExampleStarted(e *unit.Example) {
	for _, r := range f {
		r.ExampleStarted(e)
	}
}

func (f fanout) ExampleFinished(e *unit.Example) {
	for _, r := range f {
		r.ExampleFinished(e)
	}
}
