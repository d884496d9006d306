// Package matcher filters broadcast payloads by event type using glob or
// regular expression patterns.
package matcher

import (
	"path"
	"regexp"
	"strings"

	"github.com/seedarr/seedarr/pkg/errors"
)

// PatternType represents the type of pattern matching to use.
type PatternType int

const (
	// Glob uses shell-style glob patterns (*, ?, []).
	Glob PatternType = iota
	// Regex uses regular expressions.
	Regex
	// Auto detects the pattern type from its metacharacters.
	Auto
)

// String returns a string representation of the PatternType.
func (pt PatternType) String() string {
	switch pt {
	case Glob:
		return "glob"
	case Regex:
		return "regex"
	case Auto:
		return "auto"
	default:
		return "unknown"
	}
}

// Matcher reports whether an input matches a compiled pattern.
type Matcher interface {
	Match(input string) bool
	Pattern() string
	Type() PatternType
}

type matcher struct {
	pattern     string
	patternType PatternType
	compiled    *regexp.Regexp
	glob        string
}

// New compiles pattern. Glob patterns match case-insensitively.
func New(patternType PatternType, pattern string) (Matcher, error) {
	m := &matcher{pattern: pattern, patternType: patternType}
	if patternType == Auto {
		m.patternType = detectPatternType(pattern)
	}

	switch m.patternType {
	case Glob:
		m.glob = strings.ToLower(pattern)
		if _, err := path.Match(m.glob, ""); err != nil {
			return nil, errors.NewValidationError("pattern", pattern, "invalid glob: "+err.Error())
		}
	case Regex:
		compiled, err := regexp.Compile(pattern)
		if err != nil {
			return nil, errors.NewValidationError("pattern", pattern, "invalid regex: "+err.Error())
		}
		m.compiled = compiled
	default:
		return nil, errors.NewValidationError("pattern_type", patternType.String(), "unsupported pattern type")
	}
	return m, nil
}

// Match checks if the input matches the pattern.
func (m *matcher) Match(input string) bool {
	if m.patternType == Regex {
		return m.compiled.MatchString(input)
	}
	ok, _ := path.Match(m.glob, strings.ToLower(input))
	return ok
}

// Pattern returns the original pattern string.
func (m *matcher) Pattern() string { return m.pattern }

// Type returns the resolved pattern type.
func (m *matcher) Type() PatternType { return m.patternType }

// detectPatternType treats a pattern as a regex when it carries
// metacharacters glob does not use.
func detectPatternType(pattern string) PatternType {
	for _, indicator := range []string{
		"^", "$", "\\d", "\\w", "\\s", "(?", "{", "}", "+", "|", "(", ")",
	} {
		if strings.Contains(pattern, indicator) {
			return Regex
		}
	}
	return Glob
}

// Set matches when any of its patterns match. An empty Set matches
// everything.
type Set []Matcher

// NewSet compiles each pattern with Auto detection.
func NewSet(patterns ...string) (Set, error) {
	set := make(Set, 0, len(patterns))
	for _, p := range patterns {
		m, err := New(Auto, p)
		if err != nil {
			return nil, err
		}
		set = append(set, m)
	}
	return set, nil
}

// Match returns true if any pattern matches, or if the set is empty.
func (s Set) Match(input string) bool {
	if len(s) == 0 {
		return true
	}
	for _, m := range s {
		if m.Match(input) {
			return true
		}
	}
	return false
}
