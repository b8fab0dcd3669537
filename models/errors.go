// backend/models/errors.go
package models

import (
	"errors"
	"fmt"
)

// Failure kinds shared by every component. Callers test for them with errors.Is.
var (
	ErrFetch      = errors.New("fetch failure")
	ErrExtraction = errors.New("extraction failure")
	ErrStore      = errors.New("store failure")
	ErrValidation = errors.New("validation failure")

	ErrStoreUnreachable = fmt.Errorf("%w: store unreachable", ErrStore)
	ErrNoSchema         = fmt.Errorf("%w: schema missing", ErrStore)

	ErrNoData = errors.New("no data")
)

// Failure reasons reported by the query surface.
const (
	ReasonStoreUnreachable = "store_unreachable"
	ReasonNoSchema         = "no_schema"
	ReasonStoreFailure     = "store_failure"
	ReasonNoData           = "no_data"
	ReasonFetchFailure     = "fetch_failure"
	ReasonValidation       = "validation_failure"
	ReasonInternal         = "internal"
)

// FailureReason maps an error onto the stable reason string sent to API clients.
// The most specific kind wins.
func FailureReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrStoreUnreachable):
		return ReasonStoreUnreachable
	case errors.Is(err, ErrNoSchema):
		return ReasonNoSchema
	case errors.Is(err, ErrStore):
		return ReasonStoreFailure
	case errors.Is(err, ErrNoData):
		return ReasonNoData
	case errors.Is(err, ErrFetch):
		return ReasonFetchFailure
	case errors.Is(err, ErrValidation), errors.Is(err, ErrExtraction):
		return ReasonValidation
	default:
		return ReasonInternal
	}
}
