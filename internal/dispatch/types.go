package dispatch

import (
	"errors"
	"fmt"
	"time"

	"blkmsg/internal/contact"
	"blkmsg/internal/pacing"
)

// ErrEmptyMessage is recorded when a rendered message has no characters.
var ErrEmptyMessage = errors.New("rendered message is empty")

// Outcome is the terminal state of one contact.
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeSent
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSent:
		return "sent"
	case OutcomeFailed:
		return "failed"
	default:
		return "none"
	}
}

// Stage is a per-contact state of the dispatch state machine.
type Stage string

const (
	StageRendering Stage = "rendering"
	StageSearching Stage = "searching"
	StageComposing Stage = "composing"
	StageTyping    Stage = "typing"
	StageSending   Stage = "sending"
)

// ContactError is the failure reason recorded for a contact.
type ContactError struct {
	Stage     Stage
	Recipient contact.Recipient
	Err       error
}

func (e *ContactError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Stage, e.Recipient.DialNumber, e.Err)
}

func (e *ContactError) Unwrap() error { return e.Err }

// BatchState is the loop's running position, handed to observers.
type BatchState struct {
	Index       int // 1-based
	Total       int
	LastOutcome Outcome
}

// Result is what happened to one contact.
type Result struct {
	Index     int
	Recipient contact.Recipient
	Template  string
	Outcome   Outcome
	// Err is a *ContactError when Outcome is OutcomeFailed.
	Err      error
	Typing   pacing.Stats
	Cooldown int // seconds waited after this contact
}

// Summary describes a finished (or interrupted) batch.
type Summary struct {
	BatchID    string
	Total      int
	Sent       int
	Failed     int
	// Recoveries counts successful session reloads after failures.
	Recoveries int
	Canceled   bool
	StartedAt  time.Time
	FinishedAt time.Time
	Results    []Result
}

// Pending is the number of contacts never attempted (non-zero only when canceled).
func (s Summary) Pending() int { return s.Total - len(s.Results) }

// Outcomes lists contact outcomes in source order.
func (s Summary) Outcomes() []Outcome {
	out := make([]Outcome, 0, len(s.Results))
	for _, r := range s.Results {
		out = append(out, r.Outcome)
	}
	return out
}

// FailedResults returns the failed contacts in source order.
func (s Summary) FailedResults() []Result {
	var out []Result
	for _, r := range s.Results {
		if r.Outcome == OutcomeFailed {
			out = append(out, r)
		}
	}
	return out
}
