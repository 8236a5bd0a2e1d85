package bot

import (
	"fmt"
	"strconv"
	"strings"
)

// ActionKind enumerates every callback action the router understands
type ActionKind int

const (
	ActionUnknown ActionKind = iota
	ActionRegister
	ActionPublish
	ActionCancelCreation
	ActionAddRegistrationFields
	ActionAddField
	ActionContinueCreation
	ActionSetupButtons
	ActionButtonsDone
	ActionAddButton
	ActionRemoveButtonMenu
	ActionRemoveButton
	ActionEditLabelMenu
	ActionEditLabel
	ActionEditActionMenu
	ActionEditAction
	ActionAdminContest
	ActionAdminButtons
	ActionAdminDeadline
	ActionAdminBroadcast
	ActionAdminStart
	ActionAdminRegistrations
	ActionExportText
	ActionExportCSV
)

// Action is a callback token decoded once at the transport boundary into a
// tagged variant that the router matches exhaustively. Contest posts keep
// the register_<id>/publish_<id>/export_*_<id> token forms, so posts
// published by earlier deployments keep working.
type Action struct {
	Kind      ActionKind
	ContestID string
	Index     int // button index for indexed button-editor actions
}

// Encode renders the action back into its callback token
func (a Action) Encode() string {
	switch a.Kind {
	case ActionRegister:
		return "register_" + a.ContestID
	case ActionPublish:
		return "publish_" + a.ContestID
	case ActionCancelCreation:
		return "cancel_creation"
	case ActionAddRegistrationFields:
		return "add_registration_fields"
	case ActionAddField:
		return "add_field"
	case ActionContinueCreation:
		return "continue_creation"
	case ActionSetupButtons:
		return "setup_buttons"
	case ActionButtonsDone:
		return "buttons_done"
	case ActionAddButton:
		return "btn_add:" + a.ContestID
	case ActionRemoveButtonMenu:
		return "btn_remove_menu:" + a.ContestID
	case ActionRemoveButton:
		return fmt.Sprintf("btn_remove:%s:%d", a.ContestID, a.Index)
	case ActionEditLabelMenu:
		return "btn_label_menu:" + a.ContestID
	case ActionEditLabel:
		return fmt.Sprintf("btn_label:%s:%d", a.ContestID, a.Index)
	case ActionEditActionMenu:
		return "btn_action_menu:" + a.ContestID
	case ActionEditAction:
		return fmt.Sprintf("btn_action:%s:%d", a.ContestID, a.Index)
	case ActionAdminContest:
		return "admin_contest:" + a.ContestID
	case ActionAdminButtons:
		return "admin_buttons:" + a.ContestID
	case ActionAdminDeadline:
		return "admin_deadline:" + a.ContestID
	case ActionAdminBroadcast:
		return "admin_broadcast:" + a.ContestID
	case ActionAdminStart:
		return "admin_start:" + a.ContestID
	case ActionAdminRegistrations:
		return "admin_regs:" + a.ContestID
	case ActionExportText:
		return "export_txt_" + a.ContestID
	case ActionExportCSV:
		return "export_csv_" + a.ContestID
	default:
		return ""
	}
}

// ParseAction decodes a callback token. Tokens that match no known form
// come back as ActionUnknown; the router acknowledges and drops them.
func ParseAction(data string) Action {
	switch data {
	case "cancel_creation":
		return Action{Kind: ActionCancelCreation}
	case "add_registration_fields":
		return Action{Kind: ActionAddRegistrationFields}
	case "add_field":
		return Action{Kind: ActionAddField}
	case "continue_creation":
		return Action{Kind: ActionContinueCreation}
	case "setup_buttons":
		return Action{Kind: ActionSetupButtons}
	case "buttons_done":
		return Action{Kind: ActionButtonsDone}
	}

	for prefix, kind := range contestPrefixes {
		if strings.HasPrefix(data, prefix) {
			id := strings.TrimPrefix(data, prefix)
			if id == "" {
				return Action{Kind: ActionUnknown}
			}
			return Action{Kind: kind, ContestID: id}
		}
	}

	for prefix, kind := range indexedPrefixes {
		if strings.HasPrefix(data, prefix) {
			rest := strings.TrimPrefix(data, prefix)
			sep := strings.LastIndex(rest, ":")
			if sep <= 0 {
				return Action{Kind: ActionUnknown}
			}
			index, err := strconv.Atoi(rest[sep+1:])
			if err != nil || index < 0 {
				return Action{Kind: ActionUnknown}
			}
			return Action{Kind: kind, ContestID: rest[:sep], Index: index}
		}
	}

	return Action{Kind: ActionUnknown}
}

var contestPrefixes = map[string]ActionKind{
	"register_":        ActionRegister,
	"publish_":         ActionPublish,
	"btn_add:":         ActionAddButton,
	"btn_remove_menu:": ActionRemoveButtonMenu,
	"btn_label_menu:":  ActionEditLabelMenu,
	"btn_action_menu:": ActionEditActionMenu,
	"admin_contest:":   ActionAdminContest,
	"admin_buttons:":   ActionAdminButtons,
	"admin_deadline:":  ActionAdminDeadline,
	"admin_broadcast:": ActionAdminBroadcast,
	"admin_start:":     ActionAdminStart,
	"admin_regs:":      ActionAdminRegistrations,
	"export_txt_":      ActionExportText,
	"export_csv_":      ActionExportCSV,
}

var indexedPrefixes = map[string]ActionKind{
	"btn_remove:": ActionRemoveButton,
	"btn_label:":  ActionEditLabel,
	"btn_action:": ActionEditAction,
}
