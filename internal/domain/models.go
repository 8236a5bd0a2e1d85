package domain

import (
	"errors"
	"fmt"
	"time"
)

// Validation errors
var (
	ErrEmptyContestID       = errors.New("contest ID must be set")
	ErrEmptyContestText     = errors.New("contest text cannot be empty")
	ErrNoButtons            = errors.New("contest must have at least one button")
	ErrEmptyButtonLabel     = errors.New("button label cannot be empty")
	ErrEmptyButtonAction    = errors.New("button action cannot be empty")
	ErrEmptyFieldName       = errors.New("field name cannot be empty")
	ErrEmptyFieldPrompt     = errors.New("field prompt cannot be empty")
	ErrInvalidParticipantID = errors.New("participant ID must be set")
)

// Logger interface for logging
type Logger interface {
	Info(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Debug(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
}

// Button is one inline action on a contest post. Ordering is significant:
// buttons are rendered left to right, two per keyboard row.
type Button struct {
	Label  string
	Action string
}

// Validate validates a Button
func (b Button) Validate() error {
	if b.Label == "" {
		return ErrEmptyButtonLabel
	}
	if b.Action == "" {
		return ErrEmptyButtonAction
	}
	return nil
}

// RegistrationField is one question of a contest's sign-up form
type RegistrationField struct {
	Name   string // machine key the answer is stored under
	Prompt string // question shown to the participant
}

// Validate validates a RegistrationField
func (f RegistrationField) Validate() error {
	if f.Name == "" {
		return ErrEmptyFieldName
	}
	if f.Prompt == "" {
		return ErrEmptyFieldPrompt
	}
	return nil
}

// RegistrationForm is the active registration cursor of a participant.
// Fields are answered strictly in order.
type RegistrationForm struct {
	Fields []RegistrationField
	Index  int
}

// Current returns the field awaiting an answer
func (f *RegistrationForm) Current() (RegistrationField, bool) {
	if f == nil || f.Index < 0 || f.Index >= len(f.Fields) {
		return RegistrationField{}, false
	}
	return f.Fields[f.Index], true
}

// Done reports whether every field has been answered
func (f *RegistrationForm) Done() bool {
	return f == nil || f.Index >= len(f.Fields)
}

// Participant represents a registered contest participant
type Participant struct {
	ID           int64
	DisplayName  string
	RegisteredAt time.Time
	Answers      map[string]string
	Form         *RegistrationForm // nil unless a registration form is in progress
}

// Name returns the display name, falling back to a synthesized placeholder
func (p *Participant) Name() string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return fmt.Sprintf("User%d", p.ID)
}

// Contest represents a single announced competition
type Contest struct {
	ID                 string
	Text               string
	Buttons            []Button
	RegistrationFields []RegistrationField
	Participants       map[int64]*Participant
	Order              []int64 // participant insertion order
	MessageID          int     // published channel post; 0 until published
	Deadline           string  // free-text deadline descriptor
	EarlyStart         bool
	StartedAt          time.Time
	CreatedAt          time.Time
}

// Published reports whether the contest has a live channel post
func (c *Contest) Published() bool {
	return c.MessageID != 0
}

// ParticipantList returns participants in registration order
func (c *Contest) ParticipantList() []*Participant {
	list := make([]*Participant, 0, len(c.Order))
	for _, id := range c.Order {
		if p, ok := c.Participants[id]; ok {
			list = append(list, p)
		}
	}
	return list
}

// Validate validates a Contest
func (c *Contest) Validate() error {
	if c.ID == "" {
		return ErrEmptyContestID
	}
	if c.Text == "" {
		return ErrEmptyContestText
	}
	if len(c.Buttons) == 0 {
		return ErrNoButtons
	}
	for _, b := range c.Buttons {
		if err := b.Validate(); err != nil {
			return err
		}
	}
	for _, f := range c.RegistrationFields {
		if err := f.Validate(); err != nil {
			return err
		}
	}
	return nil
}
