// Package filter decides which views in a refresh order are refresh targets.
package filter

import (
	"fmt"
	"regexp"

	"github.com/leapstack-labs/mvrefresh/pkg/core"
)

// Options configures a Policy. Empty fields disable the corresponding filter.
type Options struct {
	// Schema restricts targets to views stored in this schema (exact match).
	Schema string
	// Include keeps only views whose name matches this pattern.
	Include string
	// Exclude drops views whose name matches this pattern. It wins over
	// Schema and Include.
	Exclude string
}

// Policy selects refresh targets.
//
// Patterns are anchored at the start of the view name only: "foo" matches
// "foobar", while "foo$" does not.
type Policy struct {
	schema  string
	include *regexp.Regexp
	exclude *regexp.Regexp
}

// New compiles the policy's patterns.
func New(opts Options) (*Policy, error) {
	p := &Policy{schema: opts.Schema}

	var err error
	if p.include, err = compilePrefix(opts.Include); err != nil {
		return nil, fmt.Errorf("invalid include pattern: %w", err)
	}
	if p.exclude, err = compilePrefix(opts.Exclude); err != nil {
		return nil, fmt.Errorf("invalid exclude pattern: %w", err)
	}
	return p, nil
}

// Match reports whether view is a refresh target.
func (p *Policy) Match(view core.ViewID) bool {
	if p.exclude != nil && p.exclude.MatchString(view.Name) {
		return false
	}
	if p.schema != "" && view.Schema != p.schema {
		return false
	}
	if p.include != nil && !p.include.MatchString(view.Name) {
		return false
	}
	return true
}

// Apply returns the targets of order, keeping their relative order.
func (p *Policy) Apply(order []core.ViewID) []core.ViewID {
	targets := make([]core.ViewID, 0, len(order))
	for _, view := range order {
		if p.Match(view) {
			targets = append(targets, view)
		}
	}
	return targets
}

// compilePrefix compiles pattern so that it only matches at the start of
// the input. A nil regexp is returned for an empty pattern.
func compilePrefix(pattern string) (*regexp.Regexp, error) {
	if pattern == "" {
		return nil, nil
	}
	// validate on its own first; a pattern that compiles alone has balanced
	// groups, so the wrapping group below cannot change its meaning
	if _, err := regexp.Compile(pattern); err != nil {
		return nil, err
	}
	return regexp.Compile(`^(?:` + pattern + `)`)
}
