package core

import (
	"errors"
	"fmt"
)

// ErrSchemaUnavailable is returned when a chart is requested before the
// dataset's schema has been fetched.
var ErrSchemaUnavailable = errors.New("schema unavailable")

// SchemaUnavailableError reports a failed schema fetch for a dataset.
type SchemaUnavailableError struct {
	Dataset string
	Err     error
}

func (e *SchemaUnavailableError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("schema unavailable for dataset %q", e.Dataset)
	}
	return fmt.Sprintf("schema unavailable for dataset %q: %v", e.Dataset, e.Err)
}

// Is makes errors.Is(err, ErrSchemaUnavailable) hold.
func (e *SchemaUnavailableError) Is(target error) bool {
	return target == ErrSchemaUnavailable
}

func (e *SchemaUnavailableError) Unwrap() error { return e.Err }

// UnknownPresetError reports a preset name outside the catalog.
type UnknownPresetError struct {
	Preset string
}

func (e *UnknownPresetError) Error() string {
	return fmt.Sprintf("unknown preset %q", e.Preset)
}

// UnknownErrorDetail is used when a failure response carries no readable detail.
const UnknownErrorDetail = "unknown error"

// RequestFailedError reports a backend call that did not produce a usable result.
// Status is the HTTP status code, or 0 when the request never got a response.
type RequestFailedError struct {
	Op     Operation
	Status int
	Detail string
	Err    error
}

func (e *RequestFailedError) Error() string {
	detail := e.Detail
	if detail == "" {
		if e.Err != nil {
			detail = e.Err.Error()
		} else {
			detail = UnknownErrorDetail
		}
	}
	return fmt.Sprintf("%s: %s", e.Op.failurePrefix(), detail)
}

func (e *RequestFailedError) Unwrap() error { return e.Err }

func (o Operation) failurePrefix() string {
	switch o {
	case OpSchema:
		return "Schema fetch failed"
	case OpVisualize:
		return "Visualization failed"
	case OpNLViz:
		return "NL Viz failed"
	default:
		return "Request failed"
	}
}
