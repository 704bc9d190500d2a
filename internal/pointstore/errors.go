package pointstore

import "fmt"

// ValidationError is a user-facing rejection of a single point. The store is
// left untouched whenever one is returned.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return "Invalid coordinates: " + e.Reason
}

var errMissingFields = &ValidationError{Reason: "All fields are required."}

func rangeError(field string, lo, hi int) *ValidationError {
	label := "Latitude"
	if field == "lng" {
		label = "Longitude"
	}
	return &ValidationError{Field: field, Reason: fmt.Sprintf("%s must be between %d and %d.", label, lo, hi)}
}

func parseError(field, raw string) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf("could not parse %s %q as a number", field, raw)}
}

// ImportStructureError aborts a whole CSV import.
type ImportStructureError struct {
	Missing []string
}

func (e *ImportStructureError) Error() string {
	return "CSV must have 'name', 'lat', and 'lng' columns."
}
