// Package matcher evaluates the expectations of a check against the value a
// resource reports.
package matcher

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"slices"
	"strings"
)

var (
	ErrUnknownMatcher = errors.New("unknown matcher")
	ErrInvalidRegex   = errors.New("invalid regex pattern")
	ErrMismatch       = errors.New("expectation not met")
)

const (
	Exist   = "exist"
	Eq      = "eq"
	Match   = "match"
	Contain = "contain"
	BeEmpty = "be_empty"
)

// Matcher is one validated expectation. Build it with New.
type Matcher struct {
	expected any
	re       *regexp.Regexp
	name     string
	negate   bool
}

// New validates name and expected. Regex patterns are compiled here so a bad
// pattern fails when the profile loads rather than when the check runs.
func New(name string, expected any, negate bool) (*Matcher, error) {
	m := &Matcher{name: name, expected: expected, negate: negate}
	switch name {
	case Exist, BeEmpty:
	case Eq, Contain:
		if expected == nil {
			return nil, fmt.Errorf("matcher %s requires a value", name)
		}
	case Match:
		re, err := validatePattern(fmt.Sprint(expected))
		if err != nil {
			return nil, err
		}
		m.re = re
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMatcher, name)
	}
	return m, nil
}

func validatePattern(pattern string) (*regexp.Regexp, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrInvalidRegex, pattern, err)
	}
	return re, nil
}

// Name returns the matcher name.
func (m *Matcher) Name() string {
	return m.name
}

// Description reads like "should not eq \"root\"".
func (m *Matcher) Description() string {
	return "should " + m.phrase()
}

func (m *Matcher) phrase() string {
	verb := m.name
	if m.name == BeEmpty {
		verb = "be empty"
	}
	if m.negate {
		verb = "not " + verb
	}
	switch m.name {
	case Eq, Contain:
		return fmt.Sprintf("%s %q", verb, fmt.Sprint(m.expected))
	case Match:
		return fmt.Sprintf("%s /%s/", verb, m.re.String())
	default:
		return verb
	}
}

// Check evaluates actual. exists is false when the subject is absent, in
// which case actual is ignored by every matcher except be_empty.
func (m *Matcher) Check(subject string, actual any, exists bool) error {
	if m.evaluate(actual, exists) != m.negate {
		return nil
	}
	if m.name == Exist {
		return fmt.Errorf("%w: expected %s to %s", ErrMismatch, subject, m.phrase())
	}
	return fmt.Errorf("%w: expected %s %s to %s", ErrMismatch, subject, describeValue(actual, exists), m.phrase())
}

func (m *Matcher) evaluate(actual any, exists bool) bool {
	switch m.name {
	case Exist:
		return exists
	case BeEmpty:
		return !exists || isEmpty(actual)
	}
	if !exists {
		return false
	}
	switch m.name {
	case Eq:
		return fmt.Sprint(actual) == fmt.Sprint(m.expected)
	case Match:
		return m.re.MatchString(fmt.Sprint(actual))
	case Contain:
		want := fmt.Sprint(m.expected)
		if list, ok := actual.([]string); ok {
			return slices.Contains(list, want)
		}
		return strings.Contains(fmt.Sprint(actual), want)
	}
	return false
}

func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String, reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() == 0
	default:
		return false
	}
}

func describeValue(v any, exists bool) string {
	if !exists {
		return "(missing)"
	}
	if s, ok := v.(string); ok {
		return fmt.Sprintf("%q", s)
	}
	return fmt.Sprintf("%v", v)
}
