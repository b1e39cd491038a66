package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

const dayLayout = "2006-01-02"

/* ─── Allowed-value sets ─────────────────────────────────────────────── */

// Each enum is the single source of truth for both body validation (through a
// validator alias of the same name) and the matching list filter.
var (
	moodLabels      = []string{"happy", "sad", "anxious", "calm", "angry", "excited", "tired", "neutral"}
	taskStatuses    = []string{"pending", "in_progress", "completed"}
	taskPriorities  = []string{"low", "medium", "high"}
	goalStatuses    = []string{"active", "completed", "archived"}
	chatRoles       = []string{"user", "assistant"}
	meditationTypes = []string{"guided", "breathing", "mindfulness"}
	techniques      = []string{"box", "4-7-8", "calm"}
)

var enumAliases = map[string][]string{
	"moodlabel":      moodLabels,
	"taskstatus":     taskStatuses,
	"taskpriority":   taskPriorities,
	"goalstatus":     goalStatuses,
	"chatrole":       chatRoles,
	"meditationtype": meditationTypes,
	"technique":      techniques,
}

var (
	dayPattern     = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	instantPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}(T\d{2}:\d{2}(:\d{2}(\.\d+)?)?(Z|[+-]\d{2}:\d{2})?)?$`)
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their JSON name so messages match what the client sent.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	mustRegister(v, "notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	mustRegister(v, "ymd", func(fl validator.FieldLevel) bool {
		return dayPattern.MatchString(fl.Field().String())
	})
	mustRegister(v, "iso8601", func(fl validator.FieldLevel) bool {
		return instantPattern.MatchString(fl.Field().String())
	})
	mustRegister(v, "calendar", func(fl validator.FieldLevel) bool {
		_, err := parseInstant(fl.Field().String())
		return err == nil
	})

	for alias, values := range enumAliases {
		v.RegisterAlias(alias, "oneof="+strings.Join(values, " "))
	}
	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register %s validation: %v", tag, err))
	}
}

// parseInstant accepts a calendar day or an RFC 3339 date-time (seconds and
// offset optional). time.Parse rejects impossible days such as 2023-02-29.
func parseInstant(s string) (time.Time, error) {
	for _, layout := range []string{dayLayout, time.RFC3339Nano, "2006-01-02T15:04Z07:00", "2006-01-02T15:04:05", "2006-01-02T15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

/* ─── API errors ─────────────────────────────────────────────────────── */

// apiErr is a client-facing failure with a stable machine-readable code.
type apiErr struct {
	status  int
	code    string
	message string
}

func (e *apiErr) Error() string { return e.code + ": " + e.message }

func badRequest(code, format string, args ...any) *apiErr {
	return &apiErr{status: http.StatusBadRequest, code: code, message: fmt.Sprintf(format, args...)}
}

func errInvalidID() *apiErr {
	return badRequest("INVALID_ID", "id must be an integer")
}

/* ─── Payload decoding ───────────────────────────────────────────────── */

// decodePayload parses a POST/PUT body into p (a pointer to a payload struct),
// trims its strings and validates it. Validation is fail-fast: the first
// violated rule, in field order, is returned as an *apiErr. Any other error
// (malformed JSON) is returned as-is and surfaces as a 500.
func decodePayload(raw []byte, p any, create bool) error {
	if len(bytes.TrimSpace(raw)) == 0 {
		raw = []byte("{}")
	}

	var keys map[string]json.RawMessage
	if err := json.Unmarshal(raw, &keys); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	if _, ok := keys["userId"]; ok {
		return errUserIDNotAllowed()
	}
	if _, ok := keys["user_id"]; ok {
		return errUserIDNotAllowed()
	}

	if err := json.Unmarshal(raw, p); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return badRequest("INVALID_"+fieldCode(p, typeErr.Field), "%s must be a %s", typeErr.Field, jsonKind(typeErr.Type))
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}

	trimStrings(p)

	if create {
		if err := checkRequired(p); err != nil {
			return err
		}
	}

	if err := validate.Struct(p); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fieldErr(p, verrs[0])
		}
		return err
	}
	return nil
}

func errUserIDNotAllowed() *apiErr {
	return badRequest("USER_ID_NOT_ALLOWED", "userId cannot be set in the request body")
}

// trimStrings trims every non-nil *string field in place.
func trimStrings(p any) {
	v := reflect.ValueOf(p).Elem()
	for i := 0; i < v.NumField(); i++ {
		f := v.Field(i)
		if f.Kind() == reflect.Pointer && !f.IsNil() && f.Elem().Kind() == reflect.String {
			f.Elem().SetString(strings.TrimSpace(f.Elem().String()))
		}
	}
}

// checkRequired reports the first create:"required" field the client omitted.
func checkRequired(p any) error {
	v := reflect.ValueOf(p).Elem()
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if sf.Tag.Get("create") != "required" || !v.Field(i).IsNil() {
			continue
		}
		return badRequest("MISSING_"+sf.Tag.Get("code"), "%s is required", jsonName(sf))
	}
	return nil
}

// fieldErr converts a validator failure into the client-facing code/message.
func fieldErr(p any, fe validator.FieldError) *apiErr {
	name := fe.Field()
	code := fieldCode(p, name)
	switch fe.Tag() {
	case "notblank":
		return badRequest("EMPTY_"+code, "%s cannot be empty", name)
	case "ymd", "iso8601":
		return badRequest("INVALID_DATE_FORMAT", "%s must be a date in %s format", name, dateFormatHint(fe.Tag()))
	case "calendar":
		return badRequest("INVALID_DATE", "%s is not a valid calendar date", name)
	case "min":
		return badRequest("INVALID_"+code, "%s must be at least %s", name, fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return badRequest("INVALID_"+code, "%s must be at most %s characters", name, fe.Param())
		}
		return badRequest("INVALID_"+code, "%s must be at most %s", name, fe.Param())
	case "gt":
		return badRequest("INVALID_"+code, "%s must be greater than %s", name, fe.Param())
	}
	if values, ok := enumAliases[fe.Tag()]; ok {
		return badRequest("INVALID_"+code, "%s must be one of: %s", name, strings.Join(values, ", "))
	}
	return badRequest("INVALID_"+code, "%s is invalid", name)
}

func dateFormatHint(tag string) string {
	if tag == "iso8601" {
		return "ISO 8601"
	}
	return "YYYY-MM-DD"
}

// fieldCode looks up the code tag of the payload field with the given JSON name.
func fieldCode(p any, name string) string {
	t := reflect.TypeOf(p).Elem()
	for i := 0; i < t.NumField(); i++ {
		if jsonName(t.Field(i)) == name {
			if code := t.Field(i).Tag.Get("code"); code != "" {
				return code
			}
		}
	}
	return "FIELD"
}

func jsonName(sf reflect.StructField) string {
	return strings.SplitN(sf.Tag.Get("json"), ",", 2)[0]
}

func jsonKind(t reflect.Type) string {
	switch t.Kind() {
	case reflect.Int, reflect.Int64, reflect.Int32, reflect.Float64:
		return "number"
	case reflect.Bool:
		return "boolean"
	case reflect.String:
		return "string"
	}
	return t.String()
}

/* ─── Payload → columns ──────────────────────────────────────────────── */

// columnValue is one column assignment in an INSERT or UPDATE.
type columnValue struct {
	column string
	value  any
}

type columnSet []columnValue

func (s columnSet) has(column string) bool {
	for _, cv := range s {
		if cv.column == column {
			return true
		}
	}
	return false
}

// clearedColumns returns a NULL assignment for every nullable field the
// client explicitly sent as null. raw must already have passed decodePayload.
func clearedColumns(raw []byte, p any) columnSet {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(raw, &keys); err != nil {
		return nil
	}
	t := reflect.TypeOf(p).Elem()
	var set columnSet
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if sf.Tag.Get("nullable") != "true" {
			continue
		}
		if v, ok := keys[jsonName(sf)]; ok && string(bytes.TrimSpace(v)) == "null" {
			set = append(set, columnValue{column: sf.Tag.Get("db"), value: nil})
		}
	}
	return set
}

// payloadColumns returns the columns the client sent, in field order.
// Date strings (already validated) are converted to time.Time.
func payloadColumns(p any) columnSet {
	v := reflect.ValueOf(p).Elem()
	t := v.Type()
	var set columnSet
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		col := sf.Tag.Get("db")
		f := v.Field(i)
		if col == "" || f.IsNil() {
			continue
		}
		value := f.Elem().Interface()
		if sf.Tag.Get("format") != "" {
			if s, ok := value.(string); ok {
				if parsed, err := parseInstant(s); err == nil {
					value = parsed
				}
			}
		}
		set = append(set, columnValue{column: col, value: value})
	}
	return set
}

// checkDay validates a YYYY-MM-DD query value the same way body dates are.
func checkDay(name, s string) (time.Time, error) {
	if !dayPattern.MatchString(s) {
		return time.Time{}, badRequest("INVALID_DATE_FORMAT", "%s must be a date in YYYY-MM-DD format", name)
	}
	t, err := time.Parse(dayLayout, s)
	if err != nil {
		return time.Time{}, badRequest("INVALID_DATE", "%s is not a valid calendar date", name)
	}
	return t, nil
}
