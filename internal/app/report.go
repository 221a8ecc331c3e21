package app

import (
	"github.com/rs/zerolog"

	"help_directory/internal/adapters/observability"
)

// Report counts the outcome of one batch command run.
type Report struct {
	Command  string `json:"command"`
	Created  int    `json:"created"`
	Updated  int    `json:"updated"`
	Linked   int    `json:"linked"`
	Skipped  int    `json:"skipped"`
	NotFound int    `json:"not_found"`
	Failed   int    `json:"failed"`
}

const (
	outcomeCreated  = "created"
	outcomeUpdated  = "updated"
	outcomeLinked   = "linked"
	outcomeSkipped  = "skipped"
	outcomeNotFound = "not_found"
	outcomeFailed   = "failed"
)

func (r *Report) add(outcome string, n int) {
	if n <= 0 {
		return
	}
	switch outcome {
	case outcomeCreated:
		r.Created += n
	case outcomeUpdated:
		r.Updated += n
	case outcomeLinked:
		r.Linked += n
	case outcomeSkipped:
		r.Skipped += n
	case outcomeNotFound:
		r.NotFound += n
	case outcomeFailed:
		r.Failed += n
	}
	for i := 0; i < n; i++ {
		observability.ObserveImport(r.Command, outcome)
	}
}

func (r *Report) inc(outcome string) { r.add(outcome, 1) }

// Log writes the summary line of a run.
func (r Report) Log(l zerolog.Logger) {
	l.Info().
		Int("created", r.Created).
		Int("updated", r.Updated).
		Int("linked", r.Linked).
		Int("skipped", r.Skipped).
		Int("not_found", r.NotFound).
		Int("failed", r.Failed).
		Msg("run finished")
}
