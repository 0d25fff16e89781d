package carrier

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"

	"go.uber.org/zap"
)

// The carrier is inconsistent about quoting numbers, so numeric fields accept both forms.

type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	s := string(bytes.Trim(data, `"`))
	if s == "" || s == "null" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*f = flexFloat(v)
	return nil
}

type flexInt64 int64

func (i *flexInt64) UnmarshalJSON(data []byte) error {
	s := string(bytes.Trim(data, `"`))
	if s == "" || s == "null" {
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return err
	}
	*i = flexInt64(v)
	return nil
}

type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = flexString(v)
		return nil
	}
	if string(data) == "null" {
		return nil
	}
	*s = flexString(data)
	return nil
}

func fieldsForError(err error) []zap.Field {
	fields := []zap.Field{zap.Error(err)}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		fields = append(fields, zap.String("path", apiErr.Path), zap.Int("status", apiErr.StatusCode))
	}
	return fields
}
