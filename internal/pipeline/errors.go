package pipeline

import (
	"errors"
	"fmt"

	"nrm-schedules/internal/wizard"
)

var (
	ErrNoRows    = errors.New("schedule has no data rows")
	ErrBadEdit   = errors.New("invalid cell edit")
	ErrNoRawFile = errors.New("schedule has no raw upload to extract from")
)

// StepError is an external-service failure that reset the wizard.
type StepError struct {
	Step wizard.Step
	Op   string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s failed at %s: %v", e.Op, e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}
