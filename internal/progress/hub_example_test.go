package progress

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// failedTasks prints every task that did not succeed.
type failedTasks struct{}

func (failedTasks) Consume(_ context.Context, batch []Event) error {
	for _, evt := range batch {
		if evt.Kind == KindTaskDone && evt.Status != "succeeded" {
			fmt.Printf("%s %s: %s\n", evt.Stage, evt.Source, evt.Status)
		}
	}
	return nil
}

func (failedTasks) Close(context.Context) error { return nil }

// ExampleHub_Emit shows a sink observing task outcomes. Close drains every
// queued event before returning.
func ExampleHub_Emit() {
	hub := NewHub(Config{MaxBatchWait: time.Second}, failedTasks{})

	run := uuid.MustParse("00000000-0000-7000-8000-000000000001")
	ts := time.Unix(0, 0).UTC()
	hub.Emit(Event{RunID: run, TS: ts, Kind: KindStageStart, Stage: "scrape"})
	hub.Emit(Event{RunID: run, TS: ts, Kind: KindTaskDone, Stage: "scrape", Source: "keejob", Status: "succeeded"})
	hub.Emit(Event{RunID: run, TS: ts, Kind: KindTaskDone, Stage: "scrape", Source: "tanitjobs", Status: "timed_out"})
	if err := hub.Close(context.Background()); err != nil {
		panic(err)
	}
	// Output: scrape tanitjobs: timed_out
}
