// Package conform reshapes raw source snapshots into the typed star-schema
// datasets the warehouse expects. Every conform function is pure: no I/O,
// deterministic output for identical input.
package conform

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Error reports a record that could not be conformed: a missing required
// field, an unparseable date or time, or an unresolvable currency code.
// It carries the source table and offending field so bad upstream data can
// be pinned down without re-running the pipeline under a debugger.
type Error struct {
	Table string
	Field string
	Err   error
}

func (e *Error) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("conform %s: %v", e.Table, e.Err)
	}
	return fmt.Sprintf("conform %s: field %s: %v", e.Table, e.Field, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func errf(table, field, format string, args ...any) *Error {
	return &Error{Table: table, Field: field, Err: fmt.Errorf(format, args...)}
}

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04:05"
)

// Required-field accessors. Raw structs use pointer fields so an absent JSON
// key is distinguishable from a zero value; these fail fast on absence.

func reqInt(table, field string, v *int64) (int64, error) {
	if v == nil {
		return 0, errf(table, field, "required field missing")
	}
	return *v, nil
}

func reqStr(table, field string, v *string) (string, error) {
	if v == nil {
		return "", errf(table, field, "required field missing")
	}
	return *v, nil
}

// reqDec validates a decimal money field and returns it as text. Keeping the
// source text avoids a float64 round trip for NUMERIC columns.
func reqDec(table, field string, v *json.Number) (string, error) {
	if v == nil {
		return "", errf(table, field, "required field missing")
	}
	s := v.String()
	if _, err := strconv.ParseFloat(s, 64); err != nil {
		return "", errf(table, field, "not a decimal number: %q", s)
	}
	return s, nil
}

// splitTimestamp cuts an ISO-8601 combined timestamp at the T designator and
// validates both halves. The time-of-day substring is returned verbatim so
// fractional seconds survive unchanged and joining date+"T"+time reconstructs
// the input exactly.
func splitTimestamp(table, field, s string) (date, tod string, err error) {
	d, t, ok := strings.Cut(s, "T")
	if !ok {
		return "", "", errf(table, field, "no T separator in timestamp %q", s)
	}
	if _, perr := time.Parse(dateLayout, d); perr != nil {
		return "", "", errf(table, field, "bad date in timestamp %q: %v", s, perr)
	}
	if _, perr := time.Parse(timeLayout, t); perr != nil {
		return "", "", errf(table, field, "bad time in timestamp %q: %v", s, perr)
	}
	return d, t, nil
}

// parseDate validates a standalone YYYY-MM-DD value and returns it unchanged.
func parseDate(table, field, s string) (string, error) {
	if _, err := time.Parse(dateLayout, s); err != nil {
		return "", errf(table, field, "bad date %q: %v", s, err)
	}
	return s, nil
}
