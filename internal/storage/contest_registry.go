package storage

import (
	"context"
	"sync"
	"time"

	"github.com/ad/telegram-contest-bot/internal/domain"
)

// ContestRegistry is the in-memory implementation of domain.ContestRegistry.
// All mutations are short mutex-guarded critical sections; the mutex is
// never held across an outbound network call because callers only ever see
// snapshot copies.
type ContestRegistry struct {
	mu       sync.Mutex
	contests map[string]*domain.Contest
	order    []string
	logger   domain.Logger
}

// NewContestRegistry creates an empty registry
func NewContestRegistry(log domain.Logger) *ContestRegistry {
	return &ContestRegistry{
		contests: make(map[string]*domain.Contest),
		logger:   log,
	}
}

// CreateContest inserts a new contest under its ID
func (r *ContestRegistry) CreateContest(ctx context.Context, contest *domain.Contest) error {
	if err := contest.Validate(); err != nil {
		r.logger.Error("contest validation failed", "contest_id", contest.ID, "error", err)
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.contests[contest.ID]; exists {
		return domain.ErrContestExists
	}

	stored := copyContest(contest)
	if stored.Participants == nil {
		stored.Participants = make(map[int64]*domain.Participant)
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}

	r.contests[contest.ID] = stored
	r.order = append(r.order, contest.ID)

	r.logger.Info("contest created", "contest_id", contest.ID)
	return nil
}

// GetContest returns a snapshot copy of a contest
func (r *ContestRegistry) GetContest(ctx context.Context, id string) (*domain.Contest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	contest, ok := r.contests[id]
	if !ok {
		return nil, domain.ErrContestNotFound
	}
	return copyContest(contest), nil
}

// ListContests returns snapshot copies in insertion order
func (r *ContestRegistry) ListContests(ctx context.Context) ([]*domain.Contest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := make([]*domain.Contest, 0, len(r.order))
	for _, id := range r.order {
		list = append(list, copyContest(r.contests[id]))
	}
	return list, nil
}

// RegisterParticipant registers a participant once per (contest, id) pair
func (r *ContestRegistry) RegisterParticipant(ctx context.Context, contestID string, userID int64, displayName string) (domain.RegistrationResult, error) {
	if userID == 0 {
		return 0, domain.ErrInvalidParticipantID
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	contest, ok := r.contests[contestID]
	if !ok {
		return domain.RegistrationContestNotFound, nil
	}

	if _, exists := contest.Participants[userID]; exists {
		r.logger.Debug("repeat registration attempt", "contest_id", contestID, "user_id", userID)
		return domain.RegistrationAlreadyRegistered, nil
	}

	contest.Participants[userID] = &domain.Participant{
		ID:           userID,
		DisplayName:  displayName,
		RegisteredAt: time.Now(),
		Answers:      make(map[string]string),
	}
	contest.Order = append(contest.Order, userID)

	r.logger.Info("participant registered", "contest_id", contestID, "user_id", userID)
	return domain.RegistrationCreated, nil
}

// Participants returns snapshot copies in registration order
func (r *ContestRegistry) Participants(ctx context.Context, contestID string) ([]*domain.Participant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	contest, ok := r.contests[contestID]
	if !ok {
		return nil, domain.ErrContestNotFound
	}

	list := make([]*domain.Participant, 0, len(contest.Order))
	for _, id := range contest.Order {
		if p, exists := contest.Participants[id]; exists {
			list = append(list, copyParticipant(p))
		}
	}
	return list, nil
}

// SetText replaces the contest post body
func (r *ContestRegistry) SetText(ctx context.Context, contestID, text string) error {
	return r.mutate(contestID, func(c *domain.Contest) error {
		if text == "" {
			return domain.ErrEmptyContestText
		}
		c.Text = text
		return nil
	})
}

// SetDeadline sets the free-text deadline descriptor
func (r *ContestRegistry) SetDeadline(ctx context.Context, contestID, deadline string) error {
	return r.mutate(contestID, func(c *domain.Contest) error {
		c.Deadline = deadline
		return nil
	})
}

// SetMessageID records the published channel post ID
func (r *ContestRegistry) SetMessageID(ctx context.Context, contestID string, messageID int) error {
	return r.mutate(contestID, func(c *domain.Contest) error {
		c.MessageID = messageID
		return nil
	})
}

// StartNow marks the contest as started ahead of its deadline
func (r *ContestRegistry) StartNow(ctx context.Context, contestID string, at time.Time) error {
	return r.mutate(contestID, func(c *domain.Contest) error {
		c.EarlyStart = true
		c.StartedAt = at
		return nil
	})
}

// AddButton appends a button to the contest keyboard
func (r *ContestRegistry) AddButton(ctx context.Context, contestID string, button domain.Button) error {
	return r.mutate(contestID, func(c *domain.Contest) error {
		if err := button.Validate(); err != nil {
			return err
		}
		c.Buttons = append(c.Buttons, button)
		return nil
	})
}

// RemoveButton removes the button at index, guarding the last-button invariant
func (r *ContestRegistry) RemoveButton(ctx context.Context, contestID string, index int) (domain.Button, error) {
	var removed domain.Button
	err := r.mutate(contestID, func(c *domain.Contest) error {
		if len(c.Buttons) <= 1 {
			return domain.ErrLastButton
		}
		if index < 0 || index >= len(c.Buttons) {
			return domain.ErrButtonIndex
		}
		removed = c.Buttons[index]
		c.Buttons = append(c.Buttons[:index], c.Buttons[index+1:]...)
		return nil
	})
	return removed, err
}

// UpdateButtonLabel replaces the label of the button at index
func (r *ContestRegistry) UpdateButtonLabel(ctx context.Context, contestID string, index int, label string) error {
	return r.mutate(contestID, func(c *domain.Contest) error {
		if index < 0 || index >= len(c.Buttons) {
			return domain.ErrButtonIndex
		}
		if label == "" {
			return domain.ErrEmptyButtonLabel
		}
		c.Buttons[index].Label = label
		return nil
	})
}

// UpdateButtonAction replaces the callback token of the button at index
func (r *ContestRegistry) UpdateButtonAction(ctx context.Context, contestID string, index int, action string) error {
	return r.mutate(contestID, func(c *domain.Contest) error {
		if index < 0 || index >= len(c.Buttons) {
			return domain.ErrButtonIndex
		}
		if action == "" {
			return domain.ErrEmptyButtonAction
		}
		c.Buttons[index].Action = action
		return nil
	})
}

// AddRegistrationField appends a question to the contest's sign-up form
func (r *ContestRegistry) AddRegistrationField(ctx context.Context, contestID string, field domain.RegistrationField) error {
	return r.mutate(contestID, func(c *domain.Contest) error {
		if err := field.Validate(); err != nil {
			return err
		}
		c.RegistrationFields = append(c.RegistrationFields, field)
		return nil
	})
}

// BeginRegistrationForm attaches a registration cursor to the participant
func (r *ContestRegistry) BeginRegistrationForm(ctx context.Context, contestID string, userID int64) (domain.RegistrationField, bool, error) {
	var first domain.RegistrationField
	var started bool

	err := r.mutate(contestID, func(c *domain.Contest) error {
		p, ok := c.Participants[userID]
		if !ok {
			return domain.ErrInvalidParticipantID
		}
		if len(c.RegistrationFields) == 0 {
			return nil
		}
		fields := make([]domain.RegistrationField, len(c.RegistrationFields))
		copy(fields, c.RegistrationFields)
		p.Form = &domain.RegistrationForm{Fields: fields}
		first = fields[0]
		started = true
		return nil
	})
	return first, started, err
}

// AdvanceRegistrationForm records an answer and advances the cursor
func (r *ContestRegistry) AdvanceRegistrationForm(ctx context.Context, contestID string, userID int64, answer string) (domain.RegistrationField, bool, error) {
	var next domain.RegistrationField
	var done bool

	err := r.mutate(contestID, func(c *domain.Contest) error {
		p, ok := c.Participants[userID]
		if !ok || p.Form == nil {
			return domain.ErrNoActiveForm
		}
		current, ok := p.Form.Current()
		if !ok {
			p.Form = nil
			return domain.ErrNoActiveForm
		}
		p.Answers[current.Name] = answer
		p.Form.Index++

		if following, ok := p.Form.Current(); ok {
			next = following
			return nil
		}
		p.Form = nil
		done = true
		return nil
	})
	return next, done, err
}

// ActiveForm returns the contest in which the actor has a live registration cursor
func (r *ContestRegistry) ActiveForm(ctx context.Context, userID int64) (string, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range r.order {
		contest := r.contests[id]
		if p, ok := contest.Participants[userID]; ok && p.Form != nil {
			return id, true, nil
		}
	}
	return "", false, nil
}

// mutate runs fn on the live contest under the registry lock
func (r *ContestRegistry) mutate(contestID string, fn func(*domain.Contest) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	contest, ok := r.contests[contestID]
	if !ok {
		return domain.ErrContestNotFound
	}
	return fn(contest)
}

func copyContest(c *domain.Contest) *domain.Contest {
	cp := *c

	cp.Buttons = make([]domain.Button, len(c.Buttons))
	copy(cp.Buttons, c.Buttons)

	cp.RegistrationFields = make([]domain.RegistrationField, len(c.RegistrationFields))
	copy(cp.RegistrationFields, c.RegistrationFields)

	cp.Order = make([]int64, len(c.Order))
	copy(cp.Order, c.Order)

	cp.Participants = make(map[int64]*domain.Participant, len(c.Participants))
	for id, p := range c.Participants {
		cp.Participants[id] = copyParticipant(p)
	}
	return &cp
}

func copyParticipant(p *domain.Participant) *domain.Participant {
	cp := *p
	cp.Answers = make(map[string]string, len(p.Answers))
	for k, v := range p.Answers {
		cp.Answers[k] = v
	}
	if p.Form != nil {
		form := *p.Form
		form.Fields = make([]domain.RegistrationField, len(p.Form.Fields))
		copy(form.Fields, p.Form.Fields)
		cp.Form = &form
	}
	return &cp
}
