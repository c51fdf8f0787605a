package archive

import "fmt"

// Stage is a state of a sync run.
type Stage string

const (
	StageLocating   Stage = "locating"
	StageExtracting Stage = "extracting"
	StageArchiving  Stage = "archiving"
	StageDone       Stage = "done"
)

// StageError is returned when a run aborts. It names the stage the run was in
// and the operation that failed.
type StageError struct {
	Stage Stage
	Op    string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Stage, e.Op, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
