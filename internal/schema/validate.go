package schema

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"time"

	"github.com/fieldwork-io/fieldwork/internal/document"
	"github.com/fieldwork-io/fieldwork/internal/instrument"
)

var (
	dateRE     = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	timeRE     = regexp.MustCompile(`^\d{2}:\d{2}:\d{2}$`)
	dateTimeRE = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}$`)
)

// Validate checks a raw value slot against the node's type constraints.
// A nil slice means the value is acceptable. Emptiness is not an error
// for scalar kinds (required is enforced at the field level); composite
// kinds own their emptiness rules.
func (n *ValueNode) Validate(value any) []Violation {
	if document.IsEmpty(value) && !n.Kind.Composite() {
		return nil
	}
	switch n.Kind {
	case instrument.KindFloat:
		return n.validateNumber(value, false)
	case instrument.KindInteger:
		return n.validateNumber(value, true)
	case instrument.KindText:
		return n.validateText(value)
	case instrument.KindBoolean:
		return n.validateBoolean(value)
	case instrument.KindDate:
		return n.validateTemporal(value, dateRE, "2006-01-02", "YYYY-MM-DD")
	case instrument.KindTime:
		return n.validateTemporal(value, timeRE, "15:04:05", "HH:MM:SS")
	case instrument.KindDateTime:
		return n.validateTemporal(value, dateTimeRE, "2006-01-02T15:04:05", "YYYY-MM-DDTHH:MM:SS")
	case instrument.KindEnumeration:
		return n.validateEnumeration(value)
	case instrument.KindEnumerationSet:
		return n.validateEnumerationSet(value)
	case instrument.KindRecordList:
		return n.validateRecordList(value)
	case instrument.KindMatrix:
		return n.validateMatrix(value)
	default:
		return []Violation{{Message: fmt.Sprintf("unhandled kind %s", n.Kind)}}
	}
}

func fail(msg string) []Violation {
	return []Violation{{Message: msg}}
}

func asNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case interface{ Float64() (float64, error) }:
		// Covers json.Number when a caller decodes with UseNumber.
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func (n *ValueNode) validateNumber(value any, integral bool) []Violation {
	f, ok := asNumber(value)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		if integral {
			return fail("Not a valid whole number.")
		}
		return fail("Not a valid number.")
	}
	if integral && f != math.Trunc(f) {
		return fail("Not a valid whole number.")
	}
	r := n.Type.Range
	if r == nil {
		return nil
	}
	min, hasMin := asNumberBound(r.Min)
	max, hasMax := asNumberBound(r.Max)
	switch {
	case hasMin && hasMax && (f < min || f > max):
		return fail(fmt.Sprintf("Must be between %s and %s.", formatNumber(min), formatNumber(max)))
	case hasMin && !hasMax && f < min:
		return fail(fmt.Sprintf("Must be at least %s.", formatNumber(min)))
	case hasMax && !hasMin && f > max:
		return fail(fmt.Sprintf("Cannot be more than %s.", formatNumber(max)))
	}
	return nil
}

func asNumberBound(v any) (float64, bool) {
	if v == nil {
		return 0, false
	}
	return asNumber(v)
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func (n *ValueNode) validateText(value any) []Violation {
	s, ok := value.(string)
	if !ok {
		return fail("Not a valid text value.")
	}
	if l := n.Type.Length; l != nil {
		if v := checkLength(len([]rune(s)), l, "characters"); v != nil {
			return v
		}
	}
	re, err := n.Type.CompiledPattern()
	if err != nil {
		return fail("Field has an invalid pattern constraint.")
	}
	if re != nil && !re.MatchString(s) {
		return fail("Does not match the expected format.")
	}
	return nil
}

func (n *ValueNode) validateBoolean(value any) []Violation {
	if _, ok := value.(bool); !ok {
		return fail("Not a valid value.")
	}
	return nil
}

func (n *ValueNode) validateTemporal(value any, re *regexp.Regexp, layout, shape string) []Violation {
	s, ok := value.(string)
	if !ok || !re.MatchString(s) {
		return fail("This must be entered in the form: " + shape)
	}
	// The regex fixes the shape; time.Parse rejects impossible
	// calendar dates and clock readings (Feb 30, hour 25).
	if _, err := time.Parse(layout, s); err != nil {
		return fail("This must be entered in the form: " + shape)
	}
	r := n.Type.Range
	if r == nil {
		return nil
	}
	// ISO-shaped literals order correctly as strings.
	min, hasMin := r.Min.(string)
	max, hasMax := r.Max.(string)
	switch {
	case hasMin && hasMax && (s < min || s > max):
		return fail(fmt.Sprintf("Must be between %s and %s.", min, max))
	case hasMin && !hasMax && s < min:
		return fail(fmt.Sprintf("Must be on or after %s.", min))
	case hasMax && !hasMin && s > max:
		return fail(fmt.Sprintf("Must be on or before %s.", max))
	}
	return nil
}

func (n *ValueNode) validateEnumeration(value any) []Violation {
	s, ok := value.(string)
	if !ok {
		return fail("Not a valid choice.")
	}
	if _, ok := n.Type.Enumerations[s]; !ok {
		return fail("Not a valid choice.")
	}
	return nil
}

func (n *ValueNode) validateEnumerationSet(value any) []Violation {
	items, ok := value.([]any)
	if !ok {
		return fail("Not a valid set of choices.")
	}
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return fail("Not a valid set of choices.")
		}
		if _, ok := n.Type.Enumerations[s]; !ok {
			return fail("Not a valid choice.")
		}
	}
	if l := n.Type.Length; l != nil {
		if v := checkLength(len(items), l, "choices"); v != nil {
			return v
		}
	}
	return nil
}

// validateRecordList checks rows first: every present row must have at
// least one answered sub-field, one error per empty row by index. Only a
// list with no rows at all counts as "whole list empty"; rows that are
// present but blank are a per-row problem, never a list-level one.
func (n *ValueNode) validateRecordList(value any) []Violation {
	rows, ok := value.([]any)
	if value != nil && !ok {
		return fail("Not a valid list of records.")
	}
	var out []Violation
	for i, row := range rows {
		if document.IsEmpty(row) {
			out = append(out, Violation{
				Field:   strconv.Itoa(i),
				Message: "At least one response is required in this entry.",
			})
		}
	}
	if out != nil {
		return out
	}
	if len(rows) == 0 {
		if n.Required {
			return fail(RequiredMessage)
		}
		return nil
	}
	if l := n.Type.Length; l != nil {
		if v := checkLength(len(rows), l, "entries"); v != nil {
			return v
		}
	}
	return nil
}

func (n *ValueNode) validateMatrix(value any) []Violation {
	if document.IsEmpty(value) {
		if n.Required {
			return fail(RequiredMessage)
		}
		return nil
	}
	if _, ok := value.(document.Map); !ok {
		return fail("Not a valid grid of responses.")
	}
	return nil
}

// ValidateMatrixRow checks one matrix row's wrapper map (column id →
// value wrapper). A required row left entirely blank fails as a whole;
// every other row, blank or partial, must cover every required column,
// with one force-displayed error per missing column, all collected.
func (row *MatrixRow) ValidateMatrixRow(rowValue document.Map) []Violation {
	if row.Required && document.IsEmpty(rowValue) {
		return []Violation{{Message: RequiredMessage, Force: true}}
	}
	var out []Violation
	for _, col := range row.RequiredColumns {
		wrapper, _ := rowValue[col].(document.Map)
		if wrapper == nil || document.IsEmpty(wrapper["value"]) {
			out = append(out, Violation{
				Field:   col + ".value",
				Message: RequiredMessage,
				Force:   true,
			})
		}
	}
	return out
}

func checkLength(n int, l *instrument.Length, unit string) []Violation {
	hasMin := l.Min != nil
	hasMax := l.Max != nil
	switch {
	case hasMin && hasMax && (n < *l.Min || n > *l.Max):
		return fail(fmt.Sprintf("Must have between %d and %d %s.", *l.Min, *l.Max, unit))
	case hasMin && !hasMax && n < *l.Min:
		return fail(fmt.Sprintf("Must have at least %d %s.", *l.Min, unit))
	case hasMax && !hasMin && n > *l.Max:
		return fail(fmt.Sprintf("Cannot have more than %d %s.", *l.Max, unit))
	}
	return nil
}
