package progress

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Kind denotes the lifecycle milestone represented by an Event.
type Kind string

// Supported event kinds.
const (
	KindRunStart   Kind = "RUN_START"
	KindStageStart Kind = "STAGE_START"
	KindTaskDone   Kind = "TASK_DONE"
	KindStageDone  Kind = "STAGE_DONE"
	KindRunDone    Kind = "RUN_DONE"
)

// Event captures one pipeline milestone.
type Event struct {
	// RunID identifies the pipeline run.
	RunID uuid.UUID
	// TS is the UTC timestamp recorded by the emitter.
	TS   time.Time
	Kind Kind
	// Stage is the pipeline stage (scrape, clean, load) for stage and task events.
	Stage string
	// State is the orchestrator state after the milestone.
	State string
	// Source scopes task events to one job source.
	Source string
	// Status is the task outcome for TASK_DONE events.
	Status string
	// Succeeded and Total count tasks for STAGE_DONE and RUN_DONE events.
	Succeeded int
	Total     int
	Dur       time.Duration
	// Note carries low-volume context such as error text.
	Note string
	// Payload is the JSON-encoded run summary on RUN_DONE events.
	Payload []byte
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.RunID == uuid.Nil {
		return errors.New("run id is required")
	}
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	switch e.Kind {
	case KindRunStart, KindRunDone:
	case KindStageStart, KindStageDone:
		if e.Stage == "" {
			return fmt.Errorf("%s requires stage", e.Kind)
		}
	case KindTaskDone:
		if e.Stage == "" || e.Status == "" {
			return errors.New("task done requires stage and status")
		}
	default:
		return fmt.Errorf("unknown kind %q", e.Kind)
	}
	if e.Dur < 0 {
		return errors.New("duration must be >= 0")
	}
	return nil
}
