// Package system provides the wall clock used by the mapper and the pipeline.
package system

import "time"

// Clock reads time.Now in a fixed location.
type Clock struct {
	loc *time.Location
}

// New creates a UTC Clock.
func New() *Clock {
	return &Clock{loc: time.UTC}
}

// InLocation creates a Clock reporting times in loc. Relative dates such as
// "hier" resolve against the local calendar day, so the mapper is given the
// job market's zone. A nil loc means UTC.
func InLocation(loc *time.Location) *Clock {
	if loc == nil {
		loc = time.UTC
	}
	return &Clock{loc: loc}
}

// LoadLocation creates a Clock for the named IANA zone. An empty name is UTC.
func LoadLocation(name string) (*Clock, error) {
	if name == "" {
		return New(), nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, err
	}
	return InLocation(loc), nil
}

// Now returns the current time.
func (c Clock) Now() time.Time {
	if c.loc == nil {
		return time.Now().UTC()
	}
	return time.Now().In(c.loc)
}
