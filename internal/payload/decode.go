// Package payload turns the loosely-typed RequestInput dictionaries sent by
// the network daemon into a flat map of the fields the operator must see.
package payload

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ErrMalformed is returned when a field value is not a nested map.
var ErrMalformed = errors.New("field value is not a map")

// Logger receives diagnostic lines while decoding. A nil Logger is allowed.
type Logger interface {
	Printf(format string, args ...any)
}

// Decoder decodes one RequestInput payload at a time.
type Decoder struct {
	Filter Filter
}

// Decode parses raw, logs every field and nested entry, then keeps the
// fields whose requirement passes d.Filter. A single malformed field fails
// the whole call and no fields are returned.
func (d Decoder) Decode(raw map[string]any, log Logger) (Fields, error) {
	fields, _, err := d.DecodeRequest(raw, log)
	return fields, err
}

// DecodeRequest is Decode that also reports the requirement of every kept
// field.
func (d Decoder) DecodeRequest(raw map[string]any, log Logger) (Fields, Requirements, error) {
	fields, err := parse(raw, log)
	if err != nil {
		return nil, nil, err
	}
	return Select(fields, d.Filter), SelectRequirements(fields, d.Filter), nil
}

// Parse converts the untyped payload into RawFields sorted by name.
func Parse(raw map[string]any) ([]RawField, error) {
	return parse(raw, nil)
}

func parse(raw map[string]any, log Logger) ([]RawField, error) {
	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	fields := make([]RawField, 0, len(names))
	for _, name := range names {
		logf(log, "Map Key = %s", name)

		attrs, ok := toAttrs(raw[name])
		if !ok {
			logf(log, "Error - value of %s is not a map (%T)", name, raw[name])
			return nil, fmt.Errorf("%w: %s", ErrMalformed, name)
		}

		for _, k := range sortedKeys(attrs) {
			logf(log, "{ %s , %s }", k, attrs[k])
		}
		fields = append(fields, RawField{Name: name, Attrs: attrs})
	}
	return fields, nil
}

// Select keeps the fields carrying a Requirement that passes filter. Fields
// without a Requirement are dropped.
func Select(fields []RawField, filter Filter) Fields {
	out := make(Fields)
	for _, f := range fields {
		req, ok := f.Requirement()
		if !ok || !filter.Has(req) {
			continue
		}
		out[f.Name] = f.Value()
	}
	return out
}

// SelectRequirements returns the requirement of each field Select keeps.
func SelectRequirements(fields []RawField, filter Filter) Requirements {
	out := make(Requirements)
	for _, f := range fields {
		req, ok := f.Requirement()
		if !ok || !filter.Has(req) {
			continue
		}
		out[f.Name] = req
	}
	return out
}

func toAttrs(v any) (map[string]string, bool) {
	switch m := v.(type) {
	case map[string]any:
		attrs := make(map[string]string, len(m))
		for k, sub := range m {
			attrs[k] = stringify(sub)
		}
		return attrs, true
	case map[string]string:
		attrs := make(map[string]string, len(m))
		for k, sub := range m {
			attrs[k] = sub
		}
		return attrs, true
	default:
		return nil, false
	}
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case []string:
		return strings.Join(t, ",")
	case []any:
		parts := make([]string, len(t))
		for i, e := range t {
			parts[i] = stringify(e)
		}
		return strings.Join(parts, ",")
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func logf(log Logger, format string, args ...any) {
	if log != nil {
		log.Printf(format, args...)
	}
}
