// Package compiler turns raw checks into executable groups.
package compiler

import (
	"context"
	"errors"
	"fmt"

	"github.com/wizzomafizzo/gauntlet/internal/core/engine/unit"
	"github.com/wizzomafizzo/gauntlet/internal/logging"
	"github.com/wizzomafizzo/gauntlet/internal/rule"
)

var (
	ErrUnknownDirective = errors.New("unknown check directive")
	ErrMissingBody      = errors.New("check has no body")
	ErrInvalidSubCheck  = errors.New("invalid describe.one sub-check")
)

type directive int

const (
	directiveUnknown directive = iota
	directiveSkip
	directivePlainGroup
	directiveBareAssertion
	directiveOrGroup
)

// classify resolves which variant a raw check compiles as. A skip reason on
// the first argument wins over the declared kind.
func classify(kind rule.Kind, args []any) (directive, string) {
	if reason, ok := skipReason(args); ok {
		return directiveSkip, reason
	}
	switch kind {
	case rule.KindDescribe:
		return directivePlainGroup, ""
	case rule.KindExpect:
		return directiveBareAssertion, ""
	case rule.KindDescribeOne:
		return directiveOrGroup, ""
	default:
		return directiveUnknown, ""
	}
}

func skipReason(args []any) (string, bool) {
	if len(args) == 0 {
		return "", false
	}
	s, ok := args[0].(rule.Skipper)
	if !ok {
		return "", false
	}
	return s.SkipReason()
}

// Compile converts one raw check into zero or more groups.
//
// describe.one checks run every sub-check immediately and keep only the
// passing ones, or all of them when none pass. The kept groups run again
// when the registry runs.
func Compile(ctx context.Context, kind rule.Kind, args []any, body *rule.Block) ([]*unit.Group, error) {
	d, reason := classify(kind, args)

	switch d {
	case directiveSkip:
		g := unit.NewGroup(args, body.SourceLocation(), func(g *unit.Group) {
			g.Skip(reason)
		})
		logging.Get(ctx).Debug().Str("kind", string(kind)).Str("reason", reason).Msg("check skipped")
		return []*unit.Group{g}, nil

	case directivePlainGroup:
		var build func(*unit.Group)
		if body != nil {
			build = body.Fn
		}
		return []*unit.Group{unit.NewGroup(args, body.SourceLocation(), build)}, nil

	case directiveBareAssertion:
		if body == nil || body.Group == nil {
			return nil, fmt.Errorf("%w: expect requires a pre-built group", ErrMissingBody)
		}
		return []*unit.Group{body.Group}, nil

	case directiveOrGroup:
		return compileOneOf(ctx, args)

	case directiveUnknown:
	}

	return nil, fmt.Errorf("%w: a rule was registered with %q, which isn't understood and cannot be processed",
		ErrUnknownDirective, string(kind))
}

func compileOneOf(ctx context.Context, args []any) ([]*unit.Group, error) {
	if len(args) == 0 {
		return nil, nil
	}

	tests := make([]*unit.Group, 0, len(args))
	for i, arg := range args {
		sub, err := subCheck(arg)
		if err != nil {
			return nil, fmt.Errorf("sub-check %d: %w", i, err)
		}

		var label []any
		if len(sub.Args) > 0 {
			label = sub.Args[:1]
		}
		var build func(*unit.Group)
		if sub.Body != nil {
			build = sub.Body.Fn
		}
		tests = append(tests, unit.NewGroup(label, sub.Body.SourceLocation(), build))
	}

	passed := make([]*unit.Group, 0, len(tests))
	for _, g := range tests {
		if g.Run(ctx, nil) {
			passed = append(passed, g)
		}
	}

	logging.Get(ctx).Debug().
		Int("groups", len(tests)).
		Int("passed", len(passed)).
		Msg("describe.one resolved")

	if len(passed) == 0 {
		return tests, nil
	}
	return passed, nil
}

func subCheck(arg any) (rule.RawCheck, error) {
	switch v := arg.(type) {
	case rule.RawCheck:
		return v, nil
	case *rule.RawCheck:
		if v != nil {
			return *v, nil
		}
	}
	return rule.RawCheck{}, fmt.Errorf("%w: got %T", ErrInvalidSubCheck, arg)
}
