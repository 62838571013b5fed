package topic

import (
	"fmt"
	"strings"
)

const (
	separator   = "/"
	singleLevel = "+"
	multiLevel  = "#"
)

// Pattern is a compiled MQTT subscription filter.
type Pattern struct {
	raw      string
	segments []string
	// multi is set when the filter ends in '#'; segments then excludes it.
	multi bool
}

// Compile validates filter and returns its matcher. A filter is rejected
// when it is empty, has an empty level (including a leading or trailing
// '/'), uses '#' anywhere but as the whole final level, or mixes '+' with
// other characters in a level.
func Compile(filter string) (*Pattern, error) {
	if filter == "" {
		return nil, fmt.Errorf("%w: empty pattern", ErrInvalidPattern)
	}

	levels := strings.Split(filter, separator)
	p := &Pattern{raw: filter}

	for i, level := range levels {
		switch {
		case level == "":
			return nil, fmt.Errorf("%w: %q has an empty level", ErrInvalidPattern, filter)
		case level == multiLevel:
			if i != len(levels)-1 {
				return nil, fmt.Errorf("%w: %q uses '#' before the last level", ErrInvalidPattern, filter)
			}
			p.multi = true
			continue
		case level != singleLevel && strings.ContainsAny(level, singleLevel+multiLevel):
			return nil, fmt.Errorf("%w: %q mixes a wildcard into level %q", ErrInvalidPattern, filter, level)
		}
		p.segments = append(p.segments, level)
	}

	return p, nil
}

// MustCompile is Compile for filters known at build time.
func MustCompile(filter string) *Pattern {
	p, err := Compile(filter)
	if err != nil {
		panic(err)
	}
	return p
}

// String returns the filter as registered.
func (p *Pattern) String() string {
	return p.raw
}

// Match reports whether a concrete topic matches the filter.
//
// '+' matches exactly one level. A trailing '#' matches one or more further
// levels, so "a/#" matches "a/b" and "a/b/c" but not "a". Wildcards in the
// first level never match topics beginning with '$'. Topics that are
// empty, contain wildcard characters or have an empty level match nothing.
func (p *Pattern) Match(topic string) bool {
	if topic == "" || strings.ContainsAny(topic, singleLevel+multiLevel) {
		return false
	}

	levels := strings.Split(topic, separator)
	for _, level := range levels {
		if level == "" {
			return false
		}
	}

	if p.multi {
		if len(levels) <= len(p.segments) {
			return false
		}
	} else if len(levels) != len(p.segments) {
		return false
	}

	if strings.HasPrefix(topic, "$") && (len(p.segments) == 0 || p.segments[0] == singleLevel) {
		return false
	}

	for i, seg := range p.segments {
		if seg != singleLevel && seg != levels[i] {
			return false
		}
	}
	return true
}
