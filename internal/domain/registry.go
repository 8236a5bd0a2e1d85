package domain

import (
	"context"
	"errors"
	"time"
)

var (
	ErrContestNotFound = errors.New("contest not found")
	ErrContestExists   = errors.New("contest already exists")
	ErrLastButton      = errors.New("cannot remove the last remaining button")
	ErrButtonIndex     = errors.New("button index out of range")
	ErrNoActiveForm    = errors.New("no active registration form")
)

// RegistrationResult is the outcome of a registration attempt
type RegistrationResult int

const (
	RegistrationCreated RegistrationResult = iota
	RegistrationAlreadyRegistered
	RegistrationContestNotFound
)

// String returns string representation of a RegistrationResult
func (r RegistrationResult) String() string {
	switch r {
	case RegistrationCreated:
		return "created"
	case RegistrationAlreadyRegistered:
		return "already_registered"
	case RegistrationContestNotFound:
		return "contest_not_found"
	default:
		return "unknown"
	}
}

// ContestRegistry is the authoritative store of contests and participants.
// Implementations must serialize mutations and must not hold internal locks
// across calls back into the caller; reads return snapshot copies.
type ContestRegistry interface {
	// CreateContest inserts a new contest under its ID
	CreateContest(ctx context.Context, contest *Contest) error
	// GetContest returns a snapshot copy of a contest
	GetContest(ctx context.Context, id string) (*Contest, error)
	// ListContests returns snapshot copies in insertion order
	ListContests(ctx context.Context) ([]*Contest, error)

	// RegisterParticipant registers a participant once per (contest, id) pair.
	// A repeat call returns RegistrationAlreadyRegistered without mutation.
	RegisterParticipant(ctx context.Context, contestID string, userID int64, displayName string) (RegistrationResult, error)
	// Participants returns snapshot copies in registration order
	Participants(ctx context.Context, contestID string) ([]*Participant, error)

	SetText(ctx context.Context, contestID, text string) error
	SetDeadline(ctx context.Context, contestID, deadline string) error
	// SetMessageID records the published channel post ID
	SetMessageID(ctx context.Context, contestID string, messageID int) error
	// StartNow marks the contest as started ahead of its deadline
	StartNow(ctx context.Context, contestID string, at time.Time) error

	AddButton(ctx context.Context, contestID string, button Button) error
	// RemoveButton removes the button at index; refuses with ErrLastButton
	// when exactly one button remains
	RemoveButton(ctx context.Context, contestID string, index int) (Button, error)
	UpdateButtonLabel(ctx context.Context, contestID string, index int, label string) error
	UpdateButtonAction(ctx context.Context, contestID string, index int, action string) error

	AddRegistrationField(ctx context.Context, contestID string, field RegistrationField) error

	// BeginRegistrationForm attaches a registration cursor to the participant
	// and returns the first field. started is false when the contest has no
	// registration fields.
	BeginRegistrationForm(ctx context.Context, contestID string, userID int64) (first RegistrationField, started bool, err error)
	// AdvanceRegistrationForm records the answer for the current field and
	// advances the cursor. done is true once every field is answered and the
	// cursor has been cleared.
	AdvanceRegistrationForm(ctx context.Context, contestID string, userID int64, answer string) (next RegistrationField, done bool, err error)
	// ActiveForm returns the contest in which the actor has a live
	// registration cursor, if any
	ActiveForm(ctx context.Context, userID int64) (contestID string, ok bool, err error)
}
