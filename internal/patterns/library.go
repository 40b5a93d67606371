// Package patterns holds the static rule library used to classify failures.
//
// A Rule pairs a pure matcher over an ErrorBundle with the causes and fixes
// that apply when it matches. A Library is ordered and immutable once built;
// its declaration order is the tie-break for rules of equal priority.
package patterns

import (
	"errors"
	"fmt"
	"sync"

	"github.com/fyrsmithlabs/errtrail/internal/diag"
)

var (
	// ErrInvalidRule indicates a rule that cannot be added to a library.
	ErrInvalidRule = errors.New("invalid pattern rule")

	// ErrDuplicateRule indicates two rules with the same name.
	ErrDuplicateRule = errors.New("duplicate pattern rule")
)

// Matcher reports whether a rule applies to a bundle. Matchers must not
// modify the bundle.
type Matcher func(*diag.ErrorBundle) bool

// Rule is one static classification pattern.
type Rule struct {
	Name        string
	Priority    int
	Description string
	Match       Matcher
	Causes      []diag.Cause
	Fixes       []diag.Fix
}

// Validate checks the rule's name, matcher and confidences.
func (r Rule) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidRule)
	}
	if r.Match == nil {
		return fmt.Errorf("%w: rule %q has no matcher", ErrInvalidRule, r.Name)
	}
	for _, c := range r.Causes {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("%w: rule %q: %w", ErrInvalidRule, r.Name, err)
		}
	}
	for _, f := range r.Fixes {
		if err := f.Validate(); err != nil {
			return fmt.Errorf("%w: rule %q: %w", ErrInvalidRule, r.Name, err)
		}
	}
	return nil
}

func (r Rule) clone() Rule {
	r.Causes = append([]diag.Cause(nil), r.Causes...)
	r.Fixes = append([]diag.Fix(nil), r.Fixes...)
	return r
}

// Library is an ordered, immutable set of rules.
type Library struct {
	rules  []Rule
	byName map[string]int
}

// NewLibrary builds a library from rules in declaration order.
func NewLibrary(rules ...Rule) (*Library, error) {
	lib := &Library{
		rules:  make([]Rule, 0, len(rules)),
		byName: make(map[string]int, len(rules)),
	}
	for _, r := range rules {
		if err := r.Validate(); err != nil {
			return nil, err
		}
		if _, dup := lib.byName[r.Name]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateRule, r.Name)
		}
		lib.byName[r.Name] = len(lib.rules)
		lib.rules = append(lib.rules, r.clone())
	}
	return lib, nil
}

// Rules returns the rules in declaration order. The slice and the rules'
// cause and fix lists are copies.
func (l *Library) Rules() []Rule {
	out := make([]Rule, len(l.rules))
	for i, r := range l.rules {
		out[i] = r.clone()
	}
	return out
}

// Len returns the number of rules.
func (l *Library) Len() int { return len(l.rules) }

// Lookup returns the rule with name.
func (l *Library) Lookup(name string) (Rule, bool) {
	i, ok := l.byName[name]
	if !ok {
		return Rule{}, false
	}
	return l.rules[i].clone(), true
}

var defaultLibrary = sync.OnceValue(func() *Library {
	lib, err := NewLibrary(builtinRules()...)
	if err != nil {
		panic(fmt.Sprintf("patterns: built-in library is invalid: %v", err))
	}
	return lib
})

// Default returns the built-in library.
func Default() *Library {
	return defaultLibrary()
}
