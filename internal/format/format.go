// Package format negotiates result media types and encodes tabular results
// as XML, JSON or CSV.
package format

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mattjoyce/lingua/internal/command"
	"github.com/mattjoyce/lingua/internal/fault"
)

const (
	XML  = "application/xml"
	JSON = "application/json"
	CSV  = "text/csv"
)

// Supported lists every media type a RowWriter exists for, in server
// preference order.
var Supported = []string{XML, JSON, CSV}

// Negotiate returns the first supported type matched by the caller's
// acceptable ranges, which are ordered most preferred first.
func Negotiate(acceptable []string, supported ...string) (string, error) {
	if len(supported) == 0 {
		supported = Supported
	}
	for _, r := range acceptable {
		for _, s := range supported {
			if command.MediaMatches(r, s) {
				return s, nil
			}
		}
	}
	return "", fault.NotAcceptable("none of %s can be produced, supported: %s",
		strings.Join(acceptable, ", "), strings.Join(supported, ", "))
}

// RowWriter streams one table. Header is called once before any Row; Close
// flushes trailing output and must be called even when no row was written.
type RowWriter interface {
	Header(columns []string) error
	Row(values []any) error
	Close() error
}

// NewRowWriter returns a writer producing mediaType on w.
func NewRowWriter(mediaType string, w io.Writer) (RowWriter, error) {
	switch mediaType {
	case XML:
		return newXMLWriter(w), nil
	case JSON:
		return newJSONWriter(w), nil
	case CSV:
		return newCSVWriter(w), nil
	}
	return nil, fault.NotAcceptable("unsupported result type %q", mediaType)
}

// Text renders a scanned column value. ok is false for SQL NULL.
func Text(v any) (s string, ok bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return t, true
	case []byte:
		return string(t), true
	case bool:
		return strconv.FormatBool(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64), true
	}
	return fmt.Sprint(v), true
}

// Table writes a complete in-memory table. Used for small fixed results such
// as update counts and boolean answers.
func Table(w RowWriter, columns []string, rows ...[]any) error {
	if err := w.Header(columns); err != nil {
		return err
	}
	for _, r := range rows {
		if err := w.Row(r); err != nil {
			return err
		}
	}
	return w.Close()
}
