// Package topic implements MQTT topic filter matching and the subset of the
// AWS IoT rules SQL needed to find which topic a rule subscribes to.
package topic

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	// ErrInvalidFilter is returned for malformed topic filters.
	ErrInvalidFilter = errors.New("invalid topic filter")
	// ErrInvalidSQL is returned when a rule statement cannot be parsed.
	ErrInvalidSQL = errors.New("invalid rule SQL")
)

// MaxLevels is the IoT Core limit on forward slashes in a topic.
const MaxLevels = 8

// ValidateFilter checks a topic filter. '+' must occupy a whole level and
// '#' must occupy the whole last level.
func ValidateFilter(filter string) error {
	if filter == "" {
		return fmt.Errorf("%w: empty", ErrInvalidFilter)
	}

	levels := strings.Split(filter, "/")
	for i, level := range levels {
		if strings.Contains(level, "#") {
			if level != "#" {
				return fmt.Errorf("%w: %q: '#' must occupy a whole level", ErrInvalidFilter, filter)
			}
			if i != len(levels)-1 {
				return fmt.Errorf("%w: %q: '#' must be the last level", ErrInvalidFilter, filter)
			}
		}
		if strings.Contains(level, "+") && level != "+" {
			return fmt.Errorf("%w: %q: '+' must occupy a whole level", ErrInvalidFilter, filter)
		}
	}
	return nil
}

// ValidateTopic checks a concrete topic name a message is published on.
func ValidateTopic(name string) error {
	if name == "" {
		return errors.New("empty topic")
	}
	if strings.ContainsAny(name, "+#") {
		return fmt.Errorf("topic %q contains wildcard characters", name)
	}
	reserved := strings.HasPrefix(name, "$aws/")
	if !reserved && strings.Count(name, "/") > MaxLevels-1 {
		return fmt.Errorf("topic %q exceeds %d levels", name, MaxLevels)
	}
	return nil
}

// Match reports whether a topic name matches a filter.
//
// '+' matches exactly one level, '#' matches any number of trailing levels
// including none (so "a/#" matches "a"). Topics starting with '$' are not
// matched by a filter whose first level is a wildcard.
func Match(filter, name string) bool {
	if strings.HasPrefix(name, "$") && (strings.HasPrefix(filter, "+") || strings.HasPrefix(filter, "#")) {
		return false
	}

	f := strings.Split(filter, "/")
	n := strings.Split(name, "/")

	for i, level := range f {
		if level == "#" {
			return true
		}
		if i >= len(n) {
			return false
		}
		if level != "+" && level != n[i] {
			return false
		}
	}
	return len(f) == len(n)
}

// Statement is a parsed rule SQL statement.
type Statement struct {
	// Select is the projection, e.g. "*".
	Select string
	// From is the topic filter the rule subscribes to.
	From string
	// Where is the raw condition, empty when the rule has none.
	Where string
}

// Unconditional reports whether every message on the filter is selected.
func (s Statement) Unconditional() bool {
	return s.Where == ""
}

// SelectsAll reports whether the full message is forwarded unmodified.
func (s Statement) SelectsAll() bool {
	return s.Select == "*"
}

var sqlPattern = regexp.MustCompile(`(?is)^\s*SELECT\s+(.+?)\s+FROM\s+'([^']*)'\s*(?:WHERE\s+(.+?))?\s*;?\s*$`)

// ParseSQL parses "SELECT <fields> FROM '<filter>' [WHERE <condition>]".
func ParseSQL(sql string) (Statement, error) {
	m := sqlPattern.FindStringSubmatch(sql)
	if m == nil {
		return Statement{}, fmt.Errorf("%w: %q", ErrInvalidSQL, sql)
	}

	stmt := Statement{
		Select: strings.TrimSpace(m[1]),
		From:   m[2],
		Where:  strings.TrimSpace(m[3]),
	}
	if err := ValidateFilter(stmt.From); err != nil {
		return Statement{}, fmt.Errorf("%w: %w", ErrInvalidSQL, err)
	}
	return stmt, nil
}

// SelectAllFrom builds the statement forwarding every message on a filter.
func SelectAllFrom(filter string) string {
	return fmt.Sprintf("SELECT * FROM '%s'", filter)
}
