// Package stamp turns an access-log line into the year-month bucket of its
// bracketed timestamp, e.g. "[10/Oct/2000:13:55:36 -0700]" -> "2000-10".
package stamp

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Sentinel is the bucket label of a line whose timestamp cannot be parsed.
const Sentinel = "Bad or Missing Timestamp"

const (
	dateLayout = "02/Jan/2006"
	dateWidth  = len(dateLayout)
)

// ErrMissingBrackets is returned when a line has no "[...]" region at all.
var ErrMissingBrackets = errors.New("no bracketed timestamp in line")

// Leftmost-first with a greedy body: spans the first '[' to the last ']'.
var bracketRe = regexp.MustCompile(`\[(.*)\]`)

var monthAbbr = map[string]bool{
	"Jan": true, "Feb": true, "Mar": true, "Apr": true, "May": true, "Jun": true,
	"Jul": true, "Aug": true, "Sep": true, "Oct": true, "Nov": true, "Dec": true,
}

// YearMonth is a calendar month.
type YearMonth struct {
	Year  int
	Month time.Month
}

func (ym YearMonth) String() string {
	return fmt.Sprintf("%04d-%02d", ym.Year, int(ym.Month))
}

// Result is the outcome of parsing one line. Valid is false when the line
// carried brackets but no usable date.
type Result struct {
	YearMonth YearMonth
	Valid     bool
}

// Label renders the result as an aggregation key.
func (r Result) Label() string {
	if !r.Valid {
		return Sentinel
	}
	return r.YearMonth.String()
}

// Extract returns the text between the first '[' and the last ']' of the
// trimmed line.
func Extract(line string) (string, error) {
	m := bracketRe.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return "", ErrMissingBrackets
	}
	return m[1], nil
}

// DateCandidate returns the first 11 characters of field, or all of it when
// it is shorter.
func DateCandidate(field string) string {
	n := 0
	for i := range field {
		if n == dateWidth {
			return field[:i]
		}
		n++
	}
	return field
}

// ParseMonth parses a DD/Mon/YYYY date. Month names are matched exactly and
// the day must exist in that month and year.
func ParseMonth(candidate string) (YearMonth, bool) {
	if !wellFormed(candidate) {
		return YearMonth{}, false
	}
	t, err := time.Parse(dateLayout, candidate)
	if err != nil || t.Year() < 1 {
		return YearMonth{}, false
	}
	return YearMonth{Year: t.Year(), Month: t.Month()}, true
}

func wellFormed(s string) bool {
	if len(s) != dateWidth || s[2] != '/' || s[6] != '/' {
		return false
	}
	for _, i := range []int{0, 1, 7, 8, 9, 10} {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return monthAbbr[s[3:6]]
}

// Transform maps one raw line to its bucket. Only a line without brackets
// yields an error; any other malformed timestamp gives an invalid Result.
func Transform(line string) (Result, error) {
	field, err := Extract(line)
	if err != nil {
		return Result{}, err
	}
	ym, ok := ParseMonth(DateCandidate(field))
	return Result{YearMonth: ym, Valid: ok}, nil
}
