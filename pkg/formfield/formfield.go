// Package formfield has field types that bind the same way from an HTML form
// post and from a JSON body. Browsers send every value as a string and omit
// unchecked checkboxes; API clients send numbers and booleans.
package formfield

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Number keeps a numeric input as entered. Empty or unparseable input yields
// nil from Int and Float, so "not measured" stays distinct from zero.
type Number string

func (n *Number) UnmarshalParam(v string) error {
	*n = Number(strings.TrimSpace(v))
	return nil
}

func (n *Number) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*n = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*n = Number(strings.TrimSpace(s))
		return nil
	}
	*n = Number(b)
	return nil
}

// Int parses a leading integer the way a lenient form parser would:
// "72", "72.6" and "72 bpm" all give 72.
func (n Number) Int() *int {
	s := leadingNumber(string(n), false)
	if s == "" {
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &v
}

func (n Number) Float() *float64 {
	s := leadingNumber(string(n), true)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

// IntOr returns the parsed integer or def.
func (n Number) IntOr(def int) int {
	if v := n.Int(); v != nil {
		return *v
	}
	return def
}

func leadingNumber(s string, allowDot bool) string {
	s = strings.TrimSpace(s)
	end := 0
	seenDot := false
	for i, r := range s {
		switch {
		case r >= '0' && r <= '9':
			end = i + 1
		case (r == '-' || r == '+') && i == 0:
		case r == '.' && !seenDot:
			seenDot = true
			if !allowDot {
				return trimSign(s[:end])
			}
		default:
			return trimSign(s[:end])
		}
	}
	return trimSign(s[:end])
}

func trimSign(s string) string {
	if s == "-" || s == "+" {
		return ""
	}
	return s
}

// Flag is a checkbox or boolean. "on", "true", "1" and "yes" are true.
type Flag bool

func (f *Flag) UnmarshalParam(v string) error {
	*f = Flag(truthy(v))
	return nil
}

func (f *Flag) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("true")):
		*f = true
	case bytes.Equal(b, []byte("false")), bytes.Equal(b, []byte("null")):
		*f = false
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = Flag(truthy(s))
	default:
		*f = Flag(truthy(string(b)))
	}
	return nil
}

func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "on", "true", "1", "yes":
		return true
	}
	return false
}

// OptionalFlag is a Flag that remembers whether the field was sent at all.
type OptionalFlag struct {
	Set   bool
	Value bool
}

func (o *OptionalFlag) UnmarshalParam(v string) error {
	o.Set = true
	o.Value = truthy(v)
	return nil
}

func (o *OptionalFlag) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*o = OptionalFlag{}
		return nil
	}
	var f Flag
	if err := f.UnmarshalJSON(b); err != nil {
		return err
	}
	*o = OptionalFlag{Set: true, Value: bool(f)}
	return nil
}

// Or returns the sent value, or def when the field was absent.
func (o OptionalFlag) Or(def bool) bool {
	if !o.Set {
		return def
	}
	return o.Value
}
