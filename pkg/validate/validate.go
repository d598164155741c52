// Package validate provides struct-tag validation for request payloads.
//
// Supported rules (comma-separated in the `validate` tag):
//
//	required            field must not be zero/empty (nil pointers are empty)
//	nullable            if empty, skip all remaining rules for this field
//	email               valid email address
//	date_format=layout  value must parse with the Go time layout
//	phone               7-20 digits, spaces and + - ( ) .
//	postcode            3-10 letters, digits, spaces or dashes
//	min=N               string: min char length | number: min value
//	max=N               string: max char length | number: max value
//	gt=N                number > N
//	gte=N               number >= N
//	max_bytes=N         string length in bytes, untrimmed
//	decimals=N          number has at most N digits after the point
//	regex=pattern       value must match the regex (no commas in pattern)
//
// String values are trimmed before format and length rules run.
// Numbers include any type with an InexactFloat64 method, so decimal amounts
// validate like floats. Nested structs and slices of structs are walked and
// their errors keyed by path ("shipping.city", "items.0.price"). A `message`
// tag replaces the generated text for that field; a `message_<rule>` tag
// replaces it for one rule only and wins over `message`.
//
// Example:
//
//	type Input struct {
//	    Name  string          `json:"name"  validate:"required,max=100"`
//	    Email string          `json:"email" validate:"required,email"`
//	    Total decimal.Decimal `json:"total" validate:"gt=0" message:"Invalid total amount"`
//	}
package validate

import (
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// ─── Public API ───────────────────────────────────────────────────────────────

// Struct validates all exported fields of v that carry a `validate` tag and
// descends into nested structs and slices. Returns a map of field path →
// error message; empty map means no errors.
func Struct(v interface{}) map[string]string {
	errs := make(map[string]string)
	walk(reflect.ValueOf(v), "", errs)
	return errs
}

func walk(rv reflect.Value, prefix string, errs map[string]string) {
	for rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Struct:
		if isLeafStruct(rv) {
			return
		}
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			walk(rv.Index(i), prefix+strconv.Itoa(i)+".", errs)
		}
		return
	default:
		return
	}

	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}
		value := rv.Field(i)
		name := prefix + jsonFieldName(field)

		if tag := field.Tag.Get("validate"); tag != "" {
			if rule, msg := checkField(splitRules(tag), name, value); msg != "" {
				if custom := field.Tag.Get("message_" + rule); custom != "" {
					msg = custom
				} else if custom := field.Tag.Get("message"); custom != "" {
					msg = custom
				}
				errs[name] = msg
				continue
			}
		}

		walk(value, name+".", errs)
	}
}

// checkField runs rules in order and returns the first failing rule name and
// its message.
func checkField(rules []string, name string, value reflect.Value) (string, string) {
	if hasRule(rules, "nullable") && isEmpty(value) {
		return "", ""
	}

	for _, rule := range rules {
		if rule == "nullable" {
			continue
		}
		if rule == "required" {
			if isEmpty(value) {
				return rule, fmt.Sprintf("The %s field is required.", name)
			}
			continue
		}

		v, ok := deref(value)
		if !ok {
			return "", "" // absent optional value
		}
		if msg := applyRule(rule, name, v); msg != "" {
			key, _, _ := strings.Cut(rule, "=")
			return key, msg
		}
	}
	return "", ""
}

// HasErrors returns true when the errs map is non-empty.
func HasErrors(errs map[string]string) bool { return len(errs) > 0 }

// ─── Core dispatcher ──────────────────────────────────────────────────────────

func applyRule(rule, field string, v reflect.Value) string {
	raw := strings.TrimSpace(stringValue(v))
	key, param, _ := strings.Cut(rule, "=")

	switch key {
	// ── Format ────────────────────────────────────────────────────────
	case "email":
		if !emailRE.MatchString(raw) {
			return fmt.Sprintf("The %s must be a valid email address.", field)
		}
	case "date_format":
		if _, err := time.Parse(param, raw); err != nil {
			return fmt.Sprintf("The %s does not match the format %s.", field, param)
		}
	case "phone":
		if !phoneRE.MatchString(raw) {
			return fmt.Sprintf("The %s must be a valid phone number.", field)
		}
	case "postcode":
		if !postcodeRE.MatchString(raw) {
			return fmt.Sprintf("The %s must be a valid postal code.", field)
		}
	case "regex":
		re, err := regexp.Compile(param)
		if err != nil {
			return fmt.Sprintf("The %s has an invalid validation pattern.", field)
		}
		if !re.MatchString(raw) {
			return fmt.Sprintf("The %s format is invalid.", field)
		}

	// ── Size / range ──────────────────────────────────────────────────
	case "min":
		n := mustParseFloat(param)
		if isNumericKind(v) {
			if toFloat(v) < n {
				return fmt.Sprintf("The %s must be at least %s.", field, param)
			}
		} else if float64(utf8.RuneCountInString(raw)) < n {
			return fmt.Sprintf("The %s must be at least %s characters.", field, param)
		}
	case "max":
		n := mustParseFloat(param)
		if isNumericKind(v) {
			if toFloat(v) > n {
				return fmt.Sprintf("The %s must not be greater than %s.", field, param)
			}
		} else if float64(utf8.RuneCountInString(raw)) > n {
			return fmt.Sprintf("The %s must not exceed %s characters.", field, param)
		}
	case "max_bytes":
		// Counts the value as sent; trimming does not apply.
		if float64(len(stringValue(v))) > mustParseFloat(param) {
			return fmt.Sprintf("The %s must not exceed %s bytes.", field, param)
		}
	case "decimals":
		d, err := decimal.NewFromString(raw)
		if err != nil || !d.Equal(d.Truncate(int32(mustParseFloat(param)))) {
			return fmt.Sprintf("The %s must have at most %s decimal places.", field, param)
		}
	case "gt":
		if toFloat(v) <= mustParseFloat(param) {
			return fmt.Sprintf("The %s must be greater than %s.", field, param)
		}
	case "gte":
		if toFloat(v) < mustParseFloat(param) {
			return fmt.Sprintf("The %s must be greater than or equal to %s.", field, param)
		}
	}

	return ""
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

var (
	emailRE    = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	phoneRE    = regexp.MustCompile(`^[0-9+()\-. ]{7,20}$`)
	postcodeRE = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9 \-]{1,8}[A-Za-z0-9]$`)
)

func isEmpty(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.String:
		return strings.TrimSpace(v.String()) == ""
	case reflect.Slice, reflect.Map, reflect.Array:
		return v.Len() == 0
	case reflect.Ptr, reflect.Interface:
		return v.IsNil()
	case reflect.Bool:
		return false // false is a valid boolean value, not empty
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	}
	return false
}

// floater is satisfied by decimal.Decimal and similar fixed-point types.
type floater interface {
	InexactFloat64() float64
}

func isNumericKind(v reflect.Value) bool {
	if _, ok := asFloater(v); ok {
		return true
	}
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func asFloater(v reflect.Value) (floater, bool) {
	if !v.IsValid() || !v.CanInterface() {
		return nil, false
	}
	f, ok := v.Interface().(floater)
	return f, ok
}

func toFloat(v reflect.Value) float64 {
	if f, ok := asFloater(v); ok {
		return f.InexactFloat64()
	}
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(v.Uint())
	case reflect.Float32, reflect.Float64:
		return v.Float()
	}
	f, _ := strconv.ParseFloat(fmt.Sprintf("%v", v.Interface()), 64)
	return f
}

// deref follows pointers; ok is false for nil.
func deref(v reflect.Value) (reflect.Value, bool) {
	for v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return v, false
		}
		v = v.Elem()
	}
	return v, true
}

func stringValue(v reflect.Value) string {
	if s, ok := v.Interface().(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%v", v.Interface())
}

// isLeafStruct reports struct types validated as a whole, never walked.
func isLeafStruct(v reflect.Value) bool {
	if _, ok := asFloater(v); ok {
		return true
	}
	_, isTime := v.Interface().(time.Time)
	return isTime
}

func mustParseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return f
}

func jsonFieldName(f reflect.StructField) string {
	name := f.Tag.Get("json")
	if name == "" || name == "-" {
		return strings.ToLower(f.Name)
	}
	if idx := strings.Index(name, ","); idx != -1 {
		name = name[:idx]
	}
	return name
}

func splitRules(tag string) []string {
	rules := strings.Split(tag, ",")
	for i := range rules {
		rules[i] = strings.TrimSpace(rules[i])
	}
	return rules
}

func hasRule(rules []string, target string) bool {
	for _, r := range rules {
		if r == target {
			return true
		}
	}
	return false
}
