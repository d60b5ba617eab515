// Package unit holds the executable form of a compiled check: a nestable
// group of examples, each example being one assertion.
package unit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrPanic is recorded as an example's failure when its body panics.
var ErrPanic = errors.New("example panicked")

// NotImplemented is the pending message of an example declared without a body.
const NotImplemented = "Not yet implemented"

// Location points at a file and line, either where a check body was declared
// or where the owning control starts.
type Location struct {
	Path string
	Line int
}

// IsZero reports whether the location is unknown.
func (l Location) IsZero() bool {
	return l.Path == "" && l.Line == 0
}

func (l Location) String() string {
	if l.IsZero() {
		return ""
	}
	return fmt.Sprintf("%s:%d", l.Path, l.Line)
}

// Metadata identifies the control a unit was compiled from. Every group and
// example reachable from a registered group carries the same record.
type Metadata struct {
	ID             string
	ProfileID      string
	Title          string
	Desc           string
	Code           string
	SourceLocation Location
	Impact         float64
}

// Status is the outcome of running an example.
type Status int

const (
	StatusNone Status = iota
	StatusPassed
	StatusFailed
	StatusPending
)

// String returns the lowercase status name used in reports
func (s Status) String() string {
	switch s {
	case StatusNone:
		return "none"
	case StatusPassed:
		return "passed"
	case StatusFailed:
		return "failed"
	case StatusPending:
		return "pending"
	default:
		return "unknown"
	}
}

// Result is the recorded outcome of the last run of an example.
type Result struct {
	Err      error
	Status   Status
	Duration time.Duration
}

// Example is a single assertion inside a group.
type Example struct {
	fn              func(ctx context.Context) error
	Description     string
	FullDescription string
	PendingMessage  string
	Location        Location
	Metadata        Metadata
	result          Result
}

// Result returns the outcome of the most recent run.
func (e *Example) Result() Result {
	return e.result
}

func (e *Example) run(ctx context.Context) (res Result) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			res = Result{Status: StatusFailed, Err: fmt.Errorf("%w: %v", ErrPanic, r)}
		}
		res.Duration = time.Since(start)
		e.result = res
	}()

	switch {
	case e.PendingMessage != "":
		return Result{Status: StatusPending}
	case e.fn == nil:
		e.PendingMessage = NotImplemented
		return Result{Status: StatusPending}
	case ctx.Err() != nil:
		return Result{Status: StatusFailed, Err: ctx.Err()}
	}

	if err := e.fn(ctx); err != nil {
		return Result{Status: StatusFailed, Err: err}
	}
	return Result{Status: StatusPassed}
}

// Reporter receives outcome callbacks while groups run.
type Reporter interface {
	GroupStarted(g *Group)
	GroupFinished(g *Group)
	ExampleStarted(e *Example)
	ExampleFinished(e *Example)
}

type nopReporter struct{}

func (nopReporter) GroupStarted(*Group)      {}
func (nopReporter) GroupFinished(*Group)     {}
func (nopReporter) ExampleStarted(*Example)  {}
func (nopReporter) ExampleFinished(*Example) {}

// Group is a compiled unit: a labeled, nestable collection of examples.
type Group struct {
	Description     string
	fullDescription string
	Args            []any
	examples        []*Example
	children        []*Group
	Location        Location
	Metadata        Metadata
}

// NewGroup creates a top-level group labeled from args and populates it with
// build, which may be nil.
func NewGroup(args []any, loc Location, build func(g *Group)) *Group {
	desc := Label(args)
	g := &Group{
		Description:     desc,
		fullDescription: desc,
		Args:            args,
		Location:        loc,
	}
	if build != nil {
		build(g)
	}
	return g
}

// Label renders group arguments the way they appear in report descriptions.
func Label(args []any) string {
	parts := make([]string, 0, len(args))
	for _, a := range args {
		if a == nil {
			continue
		}
		if s := fmt.Sprint(a); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

// FullDescription joins the descriptions of this group and its ancestors.
func (g *Group) FullDescription() string {
	return g.fullDescription
}

// It adds an example. A nil fn makes the example pending.
func (g *Group) It(desc string, fn func(ctx context.Context) error) *Example {
	e := &Example{
		Description:     desc,
		FullDescription: join(g.fullDescription, desc),
		Location:        g.Location,
		fn:              fn,
	}
	g.examples = append(g.examples, e)
	return e
}

// Skip adds a pending example whose description and message are reason.
func (g *Group) Skip(reason string) *Example {
	e := g.It(reason, nil)
	e.PendingMessage = reason
	return e
}

// Describe adds a nested group.
func (g *Group) Describe(args []any, loc Location, build func(g *Group)) *Group {
	if loc.IsZero() {
		loc = g.Location
	}
	child := NewGroup(args, loc, nil)
	child.fullDescription = join(g.fullDescription, child.Description)
	g.children = append(g.children, child)
	if build != nil {
		build(child)
	}
	return child
}

// Examples returns the group's own examples, not those of nested groups.
func (g *Group) Examples() []*Example {
	return g.examples
}

// Children returns the directly nested groups.
func (g *Group) Children() []*Group {
	return g.children
}

// Walk visits g and every descendant group, parents before children.
func (g *Group) Walk(fn func(*Group)) {
	stack := []*Group{g}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		fn(cur)
		for i := len(cur.children) - 1; i >= 0; i-- {
			stack = append(stack, cur.children[i])
		}
	}
}

// ExampleCount counts examples in g and all nested groups.
func (g *Group) ExampleCount() int {
	n := 0
	g.Walk(func(cur *Group) { n += len(cur.examples) })
	return n
}

// Run executes every example, then every nested group, in declaration
// order. It returns false if any example failed; pending examples do not
// count as failures. Running again re-executes every example.
func (g *Group) Run(ctx context.Context, rep Reporter) bool {
	if rep == nil {
		rep = nopReporter{}
	}

	rep.GroupStarted(g)
	ok := true
	for _, e := range g.examples {
		rep.ExampleStarted(e)
		if e.run(ctx).Status == StatusFailed {
			ok = false
		}
		rep.ExampleFinished(e)
	}
	for _, child := range g.children {
		if !child.Run(ctx, rep) {
			ok = false
		}
	}
	rep.GroupFinished(g)
	return ok
}

func join(prefix, desc string) string {
	switch {
	case prefix == "":
		return desc
	case desc == "":
		return prefix
	default:
		return prefix + " " + desc
	}
}
