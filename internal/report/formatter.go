// Package report renders run outcomes. Formatters receive callbacks while
// groups run and write their result to an output stream when closed.
package report

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/wizzomafizzo/gauntlet/internal/core/engine/unit"
)

var ErrUnknownFormat = errors.New("unknown format")

// Formatter consumes execution outcomes.
type Formatter interface {
	unit.Reporter
	// Start is called once before the first group runs.
	Start(exampleCount int)
	// Close is called once after the last group and flushes output.
	Close() error
}

// ProfileReceiver is implemented by formatters that render profile metadata.
type ProfileReceiver interface {
	AddProfile(p Profile)
}

// BackendReceiver is implemented by formatters that render the target.
type BackendReceiver interface {
	SetBackend(b Backend)
}

// Outputter is implemented by formatters that can hand back a structured
// report after a run.
type Outputter interface {
	Output() *Output
}

// Profile is the metadata of a loaded profile.
type Profile struct {
	Name       string `json:"name"`
	Title      string `json:"title,omitempty"`
	Version    string `json:"version,omitempty"`
	Maintainer string `json:"maintainer,omitempty"`
	Summary    string `json:"summary,omitempty"`
	Digest     string `json:"digest,omitempty"`
}

// Platform describes the system checks ran against.
type Platform struct {
	Name    string `json:"name"`
	Release string `json:"release,omitempty"`
	Arch    string `json:"arch,omitempty"`
}

// Backend is the connection checks ran through.
type Backend struct {
	Name     string
	Platform Platform
}

// Target renders the backend as a URI-like string.
func (b Backend) Target() string {
	if b.Name == "" {
		return ""
	}
	return b.Name + "://"
}

// Options are shared by every formatter constructor.
type Options struct {
	Version string
	RunID   string
	Color   bool
}

type constructor func(w io.Writer, opts Options) Formatter

var formats = map[string]constructor{
	"cli":        func(w io.Writer, opts Options) Formatter { return NewCLI(w, opts) },
	"json":       func(w io.Writer, opts Options) Formatter { return NewJSON(w, opts) },
	"json-min":   func(w io.Writer, opts Options) Formatter { return NewJSONMin(w, opts) },
	"json-rspec": func(w io.Writer, opts Options) Formatter { return NewVanilla(w, opts) },
}

// DefaultFormat is used when no format is configured.
const DefaultFormat = "cli"

// New creates the formatter registered under name.
func New(name string, w io.Writer, opts Options) (Formatter, error) {
	if name == "" {
		name = DefaultFormat
	}
	c, ok := formats[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %v)", ErrUnknownFormat, name, Names())
	}
	return c(w, opts), nil
}

// Names lists the registered format names in sorted order.
func Names() []string {
	names := make([]string, 0, len(formats))
	for name := range formats {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
