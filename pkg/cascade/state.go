package cascade

import (
	"fmt"
	"time"

	"github.com/marmos91/dittodrive/pkg/metadata"
)

// Mode selects what a cascade does to descendants.
type Mode int

const (
	// ModeTrash soft-deletes descendants.
	ModeTrash Mode = iota

	// ModePurge removes descendants and their blobs.
	ModePurge
)

func (m Mode) String() string {
	switch m {
	case ModeTrash:
		return "trash"
	case ModePurge:
		return "purge"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// State is the lifecycle position of a run.
//
//	Pending -> Enumerating -> Dispatching -> (Enumerating ...) -> Completed | PartiallyFailed
type State int

const (
	StatePending State = iota
	StateEnumerating
	StateDispatching
	StateCompleted
	StatePartiallyFailed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateEnumerating:
		return "enumerating"
	case StateDispatching:
		return "dispatching"
	case StateCompleted:
		return "completed"
	case StatePartiallyFailed:
		return "partially_failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Terminal reports whether s is a final state.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StatePartiallyFailed
}

// Result summarizes a run.
type Result struct {
	// RunID identifies the run in logs.
	RunID string

	RootID string
	Mode   Mode
	State  State

	// Visited counts descendants an operation was dispatched for.
	Visited int

	// Levels counts the depths enumerated below the root.
	Levels int

	// Failures lists every failed descendant operation.
	Failures []metadata.Failure

	// Retained lists folders a purge kept because something beneath them
	// failed. The root is included when the run did not complete.
	Retained []string

	Duration time.Duration
}

// Err returns a *metadata.PartialFailureError when the run had failures.
func (r *Result) Err() error {
	if len(r.Failures) == 0 {
		return nil
	}
	return &metadata.PartialFailureError{RootID: r.RootID, Failures: r.Failures}
}
