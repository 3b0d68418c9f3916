// Package driver defines what the dispatch loop needs from a UI automation
// backend. internal/driver/chrome is the browser implementation.
package driver

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned by Locate when no element matches.
	ErrNotFound = errors.New("element not found")
	// ErrTimeout is returned by WaitUntilPresent when the element does not appear in time.
	ErrTimeout = errors.New("timed out waiting for element")
)

// Key names a non-text key.
type Key string

// KeyEnter submits the focused field.
const KeyEnter Key = "enter"

// Driver owns one UI session for the lifetime of a batch.
type Driver interface {
	Start(ctx context.Context) error
	Stop() error

	Navigate(ctx context.Context, url string) error
	Locate(ctx context.Context, selector string) (Element, error)
	WaitUntilPresent(ctx context.Context, selector string, timeout time.Duration) (Element, error)
}

// Element is a handle to a located UI element.
type Element interface {
	Clear(ctx context.Context) error
	SendKeys(ctx context.Context, text string) error
	SendSpecialKey(ctx context.Context, key Key) error
	// SoftNewline inserts a line break inside the field without submitting.
	SoftNewline(ctx context.Context) error
}

// SelectorError attaches the selector to a driver failure.
type SelectorError struct {
	Op       string
	Selector string
	Err      error
}

func (e *SelectorError) Error() string { return e.Op + " " + e.Selector + ": " + e.Err.Error() }
func (e *SelectorError) Unwrap() error { return e.Err }
