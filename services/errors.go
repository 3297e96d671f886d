package services

import "errors"

// Validation errors, rejected synchronously at the command boundary.
var (
	ErrChallengeExists     = errors.New("an active challenge already exists for this guild")
	ErrSelfChallenge       = errors.New("cannot challenge yourself")
	ErrNotParticipant      = errors.New("user is not a participant of this challenge")
	ErrAlreadyParticipant  = errors.New("user already participates in this challenge")
	ErrMinimumParticipants = errors.New("a challenge needs at least 2 participants")
	ErrNoActiveChallenge   = errors.New("no active challenge")
	ErrAlreadyFrozen       = errors.New("participant is already frozen")
	ErrNotFrozen           = errors.New("participant is not frozen")
)

// Temporal window errors: the window has closed, non-retryable.
var (
	ErrRescueTooLate    = errors.New("rescue window of 24 hours has passed")
	ErrLateWindowClosed = errors.New("yesterday fell in the previous week, use rescue instead")
)

// State-consistency errors, distinct from temporal ones.
var (
	ErrNoElimination  = errors.New("no recent elimination found")
	ErrChallengeEnded = errors.New("challenge has fully ended and cannot be rejoined")
)
