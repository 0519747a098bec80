package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// FieldError describes one rejected input location.
type FieldError struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, strings.Join(f.Loc, ".")+": "+f.Msg)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Presence is tracked with pointers: "required" means the key was sent with a
// non-null value, empty strings are accepted.
type eventPayload struct {
	ID          *int64  `json:"id"`
	Name        *string `json:"name" validate:"required"`
	Date        *string `json:"date" validate:"required"`
	Time        *string `json:"time" validate:"required"`
	Place       *string `json:"place" validate:"required"`
	Description *string `json:"description" validate:"required"`
	ImageURL    *string `json:"image_url" validate:"required"`
}

type credentialsPayload struct {
	Login    *string `json:"login" validate:"required"`
	Password *string `json:"password" validate:"required"`
}

type calendarItemPayload struct {
	UserID  *int64 `json:"user_id" validate:"required"`
	EventID *int64 `json:"event_id" validate:"required"`
}

// Settings keep the raw value so that an absent key (default) can be told
// apart from an explicit null (echoed as null).
type settingsPayload struct {
	Theme         json.RawMessage `json:"theme"`
	Notifications json.RawMessage `json:"notifications"`
}

func DecodeEvent(r io.Reader) (Event, error) {
	var p eventPayload
	if err := decode(r, &p); err != nil {
		return Event{}, err
	}
	e := Event{
		Name:        *p.Name,
		Date:        *p.Date,
		Time:        *p.Time,
		Place:       *p.Place,
		Description: *p.Description,
		ImageURL:    *p.ImageURL,
	}
	if p.ID != nil {
		e.ID = *p.ID
	}
	return e, nil
}

func DecodeRegisterRequest(r io.Reader) (RegisterRequest, error) {
	var p credentialsPayload
	if err := decode(r, &p); err != nil {
		return RegisterRequest{}, err
	}
	return RegisterRequest{Login: *p.Login, Password: *p.Password}, nil
}

func DecodeLoginRequest(r io.Reader) (LoginRequest, error) {
	return DecodeRegisterRequest(r)
}

func DecodeCalendarItem(r io.Reader) (CalendarItem, error) {
	var p calendarItemPayload
	if err := decode(r, &p); err != nil {
		return CalendarItem{}, err
	}
	return CalendarItem{UserID: *p.UserID, EventID: *p.EventID}, nil
}

// DecodeUserSettings fills absent fields with the defaults and keeps
// explicit nulls.
func DecodeUserSettings(r io.Reader) (UserSettings, error) {
	var p settingsPayload
	if err := decode(r, &p); err != nil {
		return UserSettings{}, err
	}
	s := DefaultSettings()
	if err := nullable(p.Theme, "theme", &s.Theme); err != nil {
		return UserSettings{}, err
	}
	if err := nullable(p.Notifications, "notifications", &s.Notifications); err != nil {
		return UserSettings{}, err
	}
	return s, nil
}

// nullable decodes raw into *dst. An absent value leaves dst untouched and a
// null sets it to nil.
func nullable[T any](raw json.RawMessage, field string, dst **T) error {
	if len(raw) == 0 {
		return nil
	}
	var v *T
	if err := json.Unmarshal(raw, &v); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			typeErr.Field = field
		}
		return jsonError(err)
	}
	*dst = v
	return nil
}

// ParseID parses an integer path parameter.
func ParseID(name, value string) (int64, error) {
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, &ValidationError{Fields: []FieldError{{
			Loc:  []string{"path", name},
			Msg:  "Input should be a valid integer, unable to parse string as an integer",
			Type: "int_parsing",
		}}}
	}
	return id, nil
}

func decode(r io.Reader, dst interface{}) error {
	dec := json.NewDecoder(r)
	if err := dec.Decode(dst); err != nil {
		return jsonError(err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return jsonError(err)
		}
		return &ValidationError{Fields: []FieldError{{
			Loc: []string{"body"}, Msg: "JSON decode error: unexpected data after the payload", Type: "json_invalid",
		}}}
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("failed to validate payload: %w", err)
		}
		fields := make([]FieldError, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, FieldError{
				Loc:  []string{"body", fe.Field()},
				Msg:  "Field required",
				Type: "missing",
			})
		}
		return &ValidationError{Fields: fields}
	}
	return nil
}

func jsonError(err error) error {
	var typeErr *json.UnmarshalTypeError
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return fmt.Errorf("failed to read payload: %w", err)
	case errors.Is(err, io.EOF):
		return &ValidationError{Fields: []FieldError{{
			Loc: []string{"body"}, Msg: "Field required", Type: "missing",
		}}}
	case errors.As(err, &typeErr):
		loc := []string{"body"}
		if typeErr.Field != "" {
			loc = append(loc, strings.Split(typeErr.Field, ".")...)
		}
		return &ValidationError{Fields: []FieldError{{
			Loc:  loc,
			Msg:  fmt.Sprintf("Input should be a valid %s", typeErr.Type.String()),
			Type: typeErr.Type.String() + "_type",
		}}}
	default:
		return &ValidationError{Fields: []FieldError{{
			Loc: []string{"body"}, Msg: "JSON decode error: " + err.Error(), Type: "json_invalid",
		}}}
	}
}
