package sim

import "errors"

var (
	// ErrConfig reports an invalid environment or window configuration.
	// Returned before any simulation state is created.
	ErrConfig = errors.New("configuration error")

	// ErrContract reports a caller that broke the step contract: stepping
	// without a pending request, with an action outside PossibleActions, or
	// after the window has ended.
	ErrContract = errors.New("contract violation")

	// ErrConsistency reports a broken internal invariant. The simulator must
	// be discarded after one of these.
	ErrConsistency = errors.New("consistency violation")

	// ErrEmptyQueue is returned by EventQueue.PopMin on an empty queue.
	ErrEmptyQueue = errors.New("event queue is empty")
)
