package orchestrator

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// StageSummary aggregates the tasks of one stage.
type StageSummary struct {
	Stage     Stage        `json:"stage"`
	Succeeded int          `json:"succeeded"`
	Total     int          `json:"total"`
	Tasks     []TaskResult `json:"tasks"`
}

func newStageSummary(stage Stage, results []TaskResult) StageSummary {
	s := StageSummary{Stage: stage, Total: len(results), Tasks: results}
	for _, r := range results {
		if r.Succeeded() {
			s.Succeeded++
		}
	}
	return s
}

// RunSummary is the authoritative outcome of one pipeline run.
type RunSummary struct {
	RunID    string         `json:"run_id"`
	Start    time.Time      `json:"start"`
	End      time.Time      `json:"end"`
	Duration time.Duration  `json:"duration_ns"`
	State    State          `json:"state"`
	Success  bool           `json:"success"`
	Stages   []StageSummary `json:"stages"`
	Error    string         `json:"error,omitempty"`
	Archived int            `json:"archived,omitempty"`
}

// Stage returns the summary for stage, if it ran.
func (s *RunSummary) Stage(stage Stage) (StageSummary, bool) {
	for _, st := range s.Stages {
		if st.Stage == stage {
			return st, true
		}
	}
	return StageSummary{}, false
}

// JSON encodes the summary for publishing.
func (s *RunSummary) JSON() ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal run summary: %w", err)
	}
	return data, nil
}

// String renders the summary as the text block printed at the end of a run.
func (s *RunSummary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "run %s: %s (success=%t)\n", s.RunID, s.State, s.Success)
	fmt.Fprintf(&b, "  start    %s\n", s.Start.Format(time.RFC3339))
	fmt.Fprintf(&b, "  end      %s\n", s.End.Format(time.RFC3339))
	fmt.Fprintf(&b, "  duration %s\n", s.Duration.Round(time.Millisecond))
	for _, st := range s.Stages {
		fmt.Fprintf(&b, "  %-6s %d/%d succeeded\n", st.Stage, st.Succeeded, st.Total)
		for _, t := range st.Tasks {
			name := string(t.Source)
			if name == "" {
				name = string(t.Stage)
			}
			line := fmt.Sprintf("    %-16s %-11s %s", name, t.Status, t.Duration.Round(time.Millisecond))
			if t.Error != "" {
				line += "  " + t.Error
			}
			b.WriteString(line + "\n")
		}
	}
	if s.Error != "" {
		fmt.Fprintf(&b, "  error    %s\n", s.Error)
	}
	return b.String()
}
