package bqp

import "fmt"

// SchemaError indicates a bqpjson document that violates the format rules.
type SchemaError struct {
	Field  string
	Reason string
}

func (e *SchemaError) Error() string {
	return "schema error: " + e.Field + " " + e.Reason
}

func (e *SchemaError) Is(target error) bool {
	_, ok := target.(*SchemaError)
	return ok
}

// DimensionError indicates a weight vector whose length does not match the
// problem's variable count.
type DimensionError struct {
	Want int
	Got  int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("dimension mismatch: want %d, got %d", e.Want, e.Got)
}

func (e *DimensionError) Is(target error) bool {
	_, ok := target.(*DimensionError)
	return ok
}
