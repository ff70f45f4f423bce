package handler

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/volunteer-map/internal/apierr"
)

// Form clients send numbers as strings and tag lists as comma separated
// strings; the types below accept both spellings.

// flexFloat accepts 10.5 and "10.5".  Empty strings and null mean "not sent".
type flexFloat struct {
	Set   bool
	Value float64
}

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	s, isNull := unquote(b)
	if isNull || s == "" {
		*f = flexFloat{}
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return apierr.BadRequest("invalid number: " + s)
	}
	*f = flexFloat{Set: true, Value: v}
	return nil
}

func (f flexFloat) ptr() *float64 {
	if !f.Set {
		return nil
	}
	v := f.Value
	return &v
}

// flexInt accepts 3 and "3".
type flexInt struct {
	Set   bool
	Value int
}

func (f *flexInt) UnmarshalJSON(b []byte) error {
	s, isNull := unquote(b)
	if isNull || s == "" {
		*f = flexInt{}
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return apierr.BadRequest("must be an integer")
	}
	*f = flexInt{Set: true, Value: v}
	return nil
}

func (f flexInt) ptr() *int {
	if !f.Set {
		return nil
	}
	v := f.Value
	return &v
}

// flexID accepts 7, "7", null and "".
type flexID struct {
	Set   bool
	Value uint64
}

func (f *flexID) UnmarshalJSON(b []byte) error {
	s, isNull := unquote(b)
	if isNull || s == "" {
		*f = flexID{}
		return nil
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return apierr.BadRequest("invalid id")
	}
	*f = flexID{Set: true, Value: v}
	return nil
}

// flexTags accepts ["a","b"] and "a, b".  Sent tells "absent" from "empty".
type flexTags struct {
	Sent bool
	Tags []string
}

func (f *flexTags) UnmarshalJSON(b []byte) error {
	f.Sent = true
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		f.Tags = []string{}
	case len(b) > 0 && b[0] == '[':
		var tags []string
		if err := json.Unmarshal(b, &tags); err != nil {
			return apierr.BadRequest("needTags must be a list of strings")
		}
		f.Tags = tags
	default:
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return apierr.BadRequest("needTags must be a list of strings")
		}
		f.Tags = []string{s}
	}
	return nil
}

func (f flexTags) value() []string {
	if !f.Sent {
		return nil
	}
	if f.Tags == nil {
		return []string{}
	}
	return f.Tags
}

func unquote(b []byte) (string, bool) {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return "", true
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err == nil {
			return strings.TrimSpace(s), false
		}
	}
	return string(b), false
}

// bind decodes the request body into v.  Bodies that fail to decode are
// reported as 400 with the decoder's reason when it is a client error.
func bind(c echo.Context, v any) error {
	if err := c.Bind(v); err != nil {
		if e, ok := apierr.As(err); ok {
			return e
		}
		return apierr.BadRequest("invalid request body")
	}
	return nil
}

// pathID parses a positive integer path parameter.
func pathID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, apierr.BadRequest("invalid " + name)
	}
	return id, nil
}

// queryInt parses an optional integer query parameter; junk reads as 0.
func queryInt(c echo.Context, name string) int {
	n, _ := strconv.Atoi(strings.TrimSpace(c.QueryParam(name)))
	return n
}

// queryFloat parses an optional float query parameter.
func queryFloat(c echo.Context, name string) *float64 {
	s := strings.TrimSpace(c.QueryParam(name))
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}
