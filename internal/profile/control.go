package profile

import (
	"context"
	"fmt"

	"github.com/wizzomafizzo/gauntlet/internal/core/engine/matcher"
	"github.com/wizzomafizzo/gauntlet/internal/core/engine/unit"
	"github.com/wizzomafizzo/gauntlet/internal/rule"
	"gopkg.in/yaml.v3"
)

const defaultImpact = 0.5

type controlDoc struct {
	Impact *float64    `yaml:"impact"`
	ID     string      `yaml:"id"`
	Title  string      `yaml:"title"`
	Desc   string      `yaml:"desc"`
	Checks []yaml.Node `yaml:"checks"`
}

type expectation struct {
	Value   any    `yaml:"value"`
	Its     string `yaml:"its"`
	Matcher string `yaml:"matcher"`
	Not     bool   `yaml:"not"`
}

func (l *Loader) parseControls(profileID, file string, data []byte) ([]*rule.Rule, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidControl, file, err)
	}
	if len(doc.Content) == 0 {
		return nil, nil
	}

	var f struct {
		Controls []yaml.Node `yaml:"controls"`
	}
	if err := doc.Content[0].Decode(&f); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidControl, file, err)
	}

	rules := make([]*rule.Rule, 0, len(f.Controls))
	for i := range f.Controls {
		r, err := l.parseControl(profileID, file, &f.Controls[i])
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return rules, nil
}

func (l *Loader) parseControl(profileID, file string, node *yaml.Node) (*rule.Rule, error) {
	loc := unit.Location{Path: file, Line: node.Line}

	var c controlDoc
	if err := node.Decode(&c); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidControl, loc, err)
	}
	if c.ID == "" {
		return nil, fmt.Errorf("%w: %s: id is required", ErrInvalidControl, loc)
	}

	impact := defaultImpact
	if c.Impact != nil {
		if *c.Impact < 0 || *c.Impact > 1 {
			return nil, fmt.Errorf("%w: %s: impact %v outside 0.0-1.0", ErrInvalidControl, loc, *c.Impact)
		}
		impact = *c.Impact
	}

	code, err := yaml.Marshal(node)
	if err != nil {
		return nil, fmt.Errorf("failed to render control %s: %w", c.ID, err)
	}

	r := &rule.Rule{
		ID:             c.ID,
		ProfileID:      profileID,
		Title:          c.Title,
		Desc:           c.Desc,
		Code:           string(code),
		SourceLocation: loc,
		Impact:         impact,
	}
	for i := range c.Checks {
		check, err := l.parseCheck(file, &c.Checks[i])
		if err != nil {
			return nil, fmt.Errorf("control %s: %w", c.ID, err)
		}
		r.Checks = append(r.Checks, check)
	}
	return r, nil
}

// parseCheck turns one entry of checks: into a raw check. Keys other than
// describe, expect and describe_one pass through as the directive so the
// compiler can reject them.
func (l *Loader) parseCheck(file string, node *yaml.Node) (rule.RawCheck, error) {
	if node.Kind != yaml.MappingNode {
		return rule.RawCheck{}, fmt.Errorf("%w: %s:%d: check must be a mapping", ErrInvalidControl, file, node.Line)
	}

	var key, value, should *yaml.Node
	for i := 0; i+1 < len(node.Content); i += 2 {
		k, v := node.Content[i], node.Content[i+1]
		if k.Value == "should" {
			should = v
			continue
		}
		if key != nil {
			return rule.RawCheck{}, fmt.Errorf("%w: %s:%d: check has both %s and %s",
				ErrInvalidControl, file, k.Line, key.Value, k.Value)
		}
		key, value = k, v
	}
	if key == nil {
		return rule.RawCheck{}, fmt.Errorf("%w: %s:%d: check has no directive", ErrInvalidControl, file, node.Line)
	}

	loc := unit.Location{Path: file, Line: key.Line}
	switch key.Value {
	case "describe", "expect":
		res, err := l.parseResource(file, value)
		if err != nil {
			return rule.RawCheck{}, err
		}
		build, err := expectations(file, res, should)
		if err != nil {
			return rule.RawCheck{}, err
		}
		args := []any{res}
		if key.Value == "expect" {
			return rule.RawCheck{
				Kind: rule.KindExpect,
				Args: args,
				Body: &rule.Block{Group: unit.NewGroup(args, loc, build), Location: loc},
			}, nil
		}
		return rule.RawCheck{
			Kind: rule.KindDescribe,
			Args: args,
			Body: &rule.Block{Fn: build, Location: loc},
		}, nil

	case "describe_one", string(rule.KindDescribeOne):
		if value.Kind != yaml.SequenceNode {
			return rule.RawCheck{}, fmt.Errorf("%w: %s:%d: %s takes a list of checks", ErrInvalidControl, file, value.Line, key.Value)
		}
		subs := make([]any, 0, len(value.Content))
		for _, n := range value.Content {
			sub, err := l.parseCheck(file, n)
			if err != nil {
				return rule.RawCheck{}, err
			}
			if sub.Kind != rule.KindDescribe {
				return rule.RawCheck{}, fmt.Errorf("%w: %s:%d: %s accepts only describe checks",
					ErrInvalidControl, file, n.Line, key.Value)
			}
			subs = append(subs, sub)
		}
		return rule.RawCheck{Kind: rule.KindDescribeOne, Args: subs}, nil

	default:
		return rule.RawCheck{Kind: rule.Kind(key.Value), Body: &rule.Block{Location: loc}}, nil
	}
}

func (l *Loader) parseResource(file string, node *yaml.Node) (Resource, error) {
	if node.Kind != yaml.MappingNode || len(node.Content) != 2 || node.Content[1].Kind != yaml.ScalarNode {
		return nil, fmt.Errorf("%w: %s:%d: resource must be a single type: argument pair", ErrInvalidControl, file, node.Line)
	}
	return l.resource(node.Content[0].Value, node.Content[1].Value), nil
}

func expectations(file string, res Resource, should *yaml.Node) (func(*unit.Group), error) {
	if should == nil {
		return nil, fmt.Errorf("%w: %s: %s has no should entries", ErrInvalidControl, file, res)
	}

	var exps []expectation
	if err := should.Decode(&exps); err != nil {
		return nil, fmt.Errorf("%w: %s:%d: %w", ErrInvalidControl, file, should.Line, err)
	}
	if len(exps) == 0 {
		return nil, fmt.Errorf("%w: %s:%d: %s has no should entries", ErrInvalidControl, file, should.Line, res)
	}

	type compiled struct {
		m   *matcher.Matcher
		its string
	}
	list := make([]compiled, 0, len(exps))
	for _, e := range exps {
		m, err := matcher.New(e.Matcher, e.Value, e.Not)
		if err != nil {
			return nil, fmt.Errorf("%w: %s:%d: %w", ErrInvalidControl, file, should.Line, err)
		}
		list = append(list, compiled{m: m, its: e.Its})
	}

	return func(g *unit.Group) {
		for _, c := range list {
			if c.its == "" {
				g.It(c.m.Description(), probe(res, "", c.m))
				continue
			}
			g.Describe([]any{c.its}, unit.Location{}, func(sub *unit.Group) {
				sub.It(c.m.Description(), probe(res, c.its, c.m))
			})
		}
	}, nil
}

func probe(res Resource, property string, m *matcher.Matcher) func(context.Context) error {
	return func(ctx context.Context) error {
		v, exists, err := res.Property(ctx, property)
		if err != nil {
			return err
		}
		subject := res.String()
		if property != "" {
			subject += " " + property
		}
		return m.Check(subject, v, exists)
	}
}
