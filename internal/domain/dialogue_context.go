package domain

import "errors"

var (
	// ErrInvalidContextData is returned when dialogue context data is invalid
	ErrInvalidContextData = errors.New("invalid context data")
)

// ButtonAttribute names the button property a value-edit dialogue targets
type ButtonAttribute string

const (
	ButtonAttributeLabel  ButtonAttribute = "label"
	ButtonAttributeAction ButtonAttribute = "action"
)

// CreationContext holds data during the contest-authoring wizard
type CreationContext struct {
	ContestID        string
	PendingFieldName string // set between field-name and field-question steps
}

// ToMap converts CreationContext to a map for dialogue storage
func (c *CreationContext) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"contest_id":         c.ContestID,
		"pending_field_name": c.PendingFieldName,
	}
}

// FromMap populates CreationContext from stored dialogue data
func (c *CreationContext) FromMap(data map[string]interface{}) error {
	if data == nil {
		return ErrInvalidContextData
	}
	if id, ok := data["contest_id"].(string); ok {
		c.ContestID = id
	}
	if name, ok := data["pending_field_name"].(string); ok {
		c.PendingFieldName = name
	}
	if c.ContestID == "" {
		return ErrInvalidContextData
	}
	return nil
}

// ButtonEditContext holds data during a two-step button value edit
type ButtonEditContext struct {
	ContestID   string
	ButtonIndex int
	Attribute   ButtonAttribute
}

// ToMap converts ButtonEditContext to a map for dialogue storage
func (c *ButtonEditContext) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"contest_id":   c.ContestID,
		"button_index": c.ButtonIndex,
		"attribute":    string(c.Attribute),
	}
}

// FromMap populates ButtonEditContext from stored dialogue data
func (c *ButtonEditContext) FromMap(data map[string]interface{}) error {
	if data == nil {
		return ErrInvalidContextData
	}
	if id, ok := data["contest_id"].(string); ok {
		c.ContestID = id
	}
	c.ButtonIndex = intFromAny(data["button_index"])
	if attr, ok := data["attribute"].(string); ok {
		c.Attribute = ButtonAttribute(attr)
	}
	if c.ContestID == "" || (c.Attribute != ButtonAttributeLabel && c.Attribute != ButtonAttributeAction) {
		return ErrInvalidContextData
	}
	return nil
}

// ContestInputContext holds the target contest of a single-value capture
// dialogue (deadline input, broadcast-message input)
type ContestInputContext struct {
	ContestID string
}

// ToMap converts ContestInputContext to a map for dialogue storage
func (c *ContestInputContext) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"contest_id": c.ContestID,
	}
}

// FromMap populates ContestInputContext from stored dialogue data
func (c *ContestInputContext) FromMap(data map[string]interface{}) error {
	if data == nil {
		return ErrInvalidContextData
	}
	if id, ok := data["contest_id"].(string); ok {
		c.ContestID = id
	}
	if c.ContestID == "" {
		return ErrInvalidContextData
	}
	return nil
}

// intFromAny handles the numeric types a stored context value may carry
func intFromAny(v interface{}) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}
