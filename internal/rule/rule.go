// Package rule defines compliance controls as the engine consumes them and
// the provider contract used to read their checks and identity.
package rule

import (
	"errors"
	"fmt"

	"github.com/wizzomafizzo/gauntlet/internal/core/engine/unit"
)

// ErrMalformedRule is returned when a rule cannot yield its checks.
var ErrMalformedRule = errors.New("malformed rule")

// Kind is the directive a raw check was declared with.
type Kind string

const (
	KindDescribe    Kind = "describe"
	KindExpect      Kind = "expect"
	KindDescribeOne Kind = "describe.one"
)

// Block is the executable body of a raw check.
type Block struct {
	// Fn populates a group compiled from a describe directive.
	Fn func(g *unit.Group)
	// Group is the pre-built group an expect directive stands for.
	Group    *unit.Group
	Location unit.Location
}

// SourceLocation returns the block location, or the zero location for a nil block.
func (b *Block) SourceLocation() unit.Location {
	if b == nil {
		return unit.Location{}
	}
	return b.Location
}

// RawCheck is a check as declared inside a rule, before compilation.
type RawCheck struct {
	Body *Block
	Kind Kind
	Args []any
}

// Skipper is implemented by check arguments that can report their target as
// unavailable. ok is false when the target is available.
type Skipper interface {
	SkipReason() (reason string, ok bool)
}

// Rule is a named compliance control.
type Rule struct {
	ID             string
	ProfileID      string
	Title          string
	Desc           string
	Code           string
	Checks         []RawCheck
	SourceLocation unit.Location
	Impact         float64
}

// Provider reads checks and identity from rules. The same provider is used
// for every rule of a run.
type Provider interface {
	PrepareChecks(r *Rule) ([]RawCheck, error)
	RuleID(r *Rule) string
	ProfileID(r *Rule) string
}

// DefaultProvider reads rules as they were declared.
type DefaultProvider struct{}

// PrepareChecks returns a copy of the rule's checks in declaration order.
func (DefaultProvider) PrepareChecks(r *Rule) ([]RawCheck, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: nil rule", ErrMalformedRule)
	}
	if r.ID == "" {
		return nil, fmt.Errorf("%w: rule has no id", ErrMalformedRule)
	}
	return append([]RawCheck(nil), r.Checks...), nil
}

// RuleID returns the declared rule id.
func (DefaultProvider) RuleID(r *Rule) string {
	return r.ID
}

// ProfileID returns the id of the profile the rule was loaded from.
func (DefaultProvider) ProfileID(r *Rule) string {
	return r.ProfileID
}
