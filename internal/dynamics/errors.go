package dynamics

import "fmt"

// ParamError indicates a dynamics coefficient outside its valid range.
type ParamError struct {
	Name   string
	Value  float64
	Reason string
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("invalid parameter %s=%g: %s", e.Name, e.Value, e.Reason)
}

func (e *ParamError) Is(target error) bool {
	_, ok := target.(*ParamError)
	return ok
}

// SingularError indicates that the per-step linear system could not be
// solved. The restart driver treats it as a failed restart rather than a
// fatal condition.
type SingularError struct {
	Step int
	Err  error
}

func (e *SingularError) Error() string {
	return fmt.Sprintf("singular relaxation system at step %d: %v", e.Step, e.Err)
}

func (e *SingularError) Unwrap() error {
	return e.Err
}

func (e *SingularError) Is(target error) bool {
	_, ok := target.(*SingularError)
	return ok
}
