// Package wizard is the linear step machine that drives a schedule from
// upload to NRM groupings.
package wizard

import (
	"errors"
	"fmt"

	"nrm-schedules/internal/models"
	"nrm-schedules/internal/review"
)

type Step int

const (
	StepUpload Step = iota
	StepReviewExtraction
	StepReviewRenames
	StepEditStandardized
	StepViewGroupings
)

var stepNames = [...]string{"upload", "review_extraction", "review_renames", "edit_standardized", "view_groupings"}

func (s Step) String() string {
	if s < StepUpload || s > StepViewGroupings {
		return fmt.Sprintf("step(%d)", int(s))
	}
	return stepNames[s]
}

var (
	ErrOutOfOrder = errors.New("wizard step out of order")
	ErrWrongStep  = errors.New("action not allowed at current wizard step")
)

// State is the in-memory working set of one schedule's wizard run.
type State struct {
	ScheduleID string `json:"schedule_id"`
	Step       Step   `json:"step"`
	Error      string `json:"error,omitempty"`

	Headers   []string     `json:"headers,omitempty"`
	Extracted []models.Row `json:"extracted,omitempty"`

	Review *review.Review `json:"review,omitempty"`

	StandardizedHeaders []string     `json:"standardized_headers,omitempty"`
	Standardized        []models.Row `json:"standardized,omitempty"`

	Groups []models.Group `json:"groups,omitempty"`
}

func New(scheduleID string) *State {
	return &State{ScheduleID: scheduleID, Step: StepUpload}
}

// Advance moves exactly one step forward to `to`.
func (s *State) Advance(to Step) error {
	if to != s.Step+1 || to > StepViewGroupings {
		return fmt.Errorf("%w: %s -> %s", ErrOutOfOrder, s.Step, to)
	}
	s.Step = to
	s.Error = ""
	return nil
}

// Require fails unless the wizard is at step want.
func (s *State) Require(want Step) error {
	if s.Step != want {
		return fmt.Errorf("%w: at %s, need %s", ErrWrongStep, s.Step, want)
	}
	return nil
}

// Back moves one step back and drops whatever the left step produced.
func (s *State) Back() {
	if s.Step == StepUpload {
		return
	}
	switch s.Step {
	case StepReviewRenames:
		s.Review = nil
	case StepEditStandardized:
		s.StandardizedHeaders = nil
		s.Standardized = nil
	case StepViewGroupings:
		s.Groups = nil
	}
	s.Step--
}

// Reset returns to the upload step and clears every intermediate result.
func (s *State) Reset() {
	*s = State{ScheduleID: s.ScheduleID, Step: StepUpload}
}

// Fail records err for display and resets the run.
func (s *State) Fail(err error) {
	s.Reset()
	if err != nil {
		s.Error = err.Error()
	}
}
