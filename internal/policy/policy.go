// Package policy decides whether a participant may perform an action in a room.
// Decisions are pure functions of the participant record and the request.
package policy

import "github.com/ayushanand27/xhire/internal/domain"

// Action names a gated operation.
type Action string

const (
	ActionEditCode          Action = "edit-code"
	ActionExecuteCode       Action = "execute-code"
	ActionScreenShare       Action = "screen-share"
	ActionChat              Action = "chat"
	ActionMuteOthers        Action = "mute-others"
	ActionChangeRole        Action = "change-role"
	ActionChangePermissions Action = "change-permissions"
	ActionRemoveParticipant Action = "remove-participant"
	ActionStartRecording    Action = "start-recording"
	ActionStopRecording     Action = "stop-recording"
	ActionUpdateSettings    Action = "update-settings"
	// ActionUpdateMedia covers a participant's own mute and camera flags.
	ActionUpdateMedia Action = "update-media"
)

// Request describes one attempted action. TargetUserID and NewRole are only
// consulted by actions that have a target.
type Request struct {
	Actor        *domain.Participant
	Action       Action
	TargetUserID uint
	NewRole      domain.Role
}

// Decision is the outcome of a policy check. Reason is set when Allowed is false.
type Decision struct {
	Allowed bool
	Reason  string
}

func allow() Decision { return Decision{Allowed: true} }

func deny(reason string) Decision { return Decision{Reason: reason} }

func flag(ok bool, reason string) Decision {
	if ok {
		return allow()
	}
	return deny(reason)
}

// IsAllowed reports whether p may perform a. A nil participant is never allowed.
func IsAllowed(p *domain.Participant, a Action) bool {
	return Decide(Request{Actor: p, Action: a}).Allowed
}

// Decide evaluates a request against the participant's role and permission flags.
func Decide(req Request) Decision {
	p := req.Actor
	if p == nil {
		return deny("You are not a participant in this room")
	}

	switch req.Action {
	case ActionEditCode:
		return flag(p.Permissions.CanEdit, "You do not have permission to edit code")
	case ActionExecuteCode:
		return flag(p.Permissions.CanExecute, "You do not have permission to execute code")
	case ActionScreenShare:
		return flag(p.Permissions.CanScreenShare, "You do not have permission to share your screen")
	case ActionChat:
		return flag(p.Permissions.CanChat, "You do not have permission to send messages")
	case ActionMuteOthers:
		return flag(p.Permissions.CanMute, "You do not have permission to mute other participants")

	case ActionChangeRole:
		if p.Role != domain.RoleCreator {
			return deny("Only the room creator can change participant roles")
		}
		if req.TargetUserID == p.UserID && req.NewRole != "" && req.NewRole != domain.RoleCreator {
			return deny("You cannot remove yourself as the room creator")
		}
		return allow()
	case ActionChangePermissions:
		return flag(p.Role == domain.RoleCreator, "Only the room creator can change permissions")
	case ActionRemoveParticipant:
		return flag(p.Role == domain.RoleCreator, "Only the room creator can remove participants")
	case ActionUpdateSettings:
		return flag(p.Role == domain.RoleCreator, "Only the room creator can change room settings")

	case ActionUpdateMedia:
		return allow()

	case ActionStartRecording, ActionStopRecording:
		return flag(p.Role == domain.RoleCreator || p.Role == domain.RolePresenter,
			"Only the room creator or a presenter can control recording")
	}

	return deny("Unknown action")
}
