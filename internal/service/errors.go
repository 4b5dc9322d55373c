package service

import (
	"errors"
	"fmt"

	"github.com/ayushanand27/xhire/internal/policy"
	"github.com/ayushanand27/xhire/internal/repository"
	"github.com/ayushanand27/xhire/internal/validation"
)

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrRoomNotFound         = errors.New("room not found")
	ErrParticipantNotFound  = errors.New("participant not found in room")
	ErrMessageNotFound      = errors.New("message not found")
	ErrPreferencesNotFound  = errors.New("preferences not found")
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrPermissionDenied     = errors.New("permission denied")
	ErrNotParticipant       = errors.New("you are not a participant in this room")
	ErrValidation           = errors.New("invalid input")
	ErrRoomFull             = errors.New("room is full")
	ErrAlreadyParticipant   = errors.New("you are already in this room")
	ErrRoomInactive         = errors.New("room is not active")
	ErrInvalidRoomPassword  = errors.New("invalid room password")
	ErrRecordingInProgress  = errors.New("recording is already in progress")
	ErrRecordingNotActive   = errors.New("no recording is in progress")
	ErrProviderUnavailable  = errors.New("external provider unavailable")
	ErrInternalServer       = errors.New("internal server error")
)

// ErrorKind is the client-facing failure class.
type ErrorKind string

const (
	KindNotFound         ErrorKind = "NOT_FOUND"
	KindPermissionDenied ErrorKind = "PERMISSION_DENIED"
	KindInvalidArgument  ErrorKind = "INVALID_ARGUMENT"
	KindConflict         ErrorKind = "CONFLICT"
	KindUnavailable      ErrorKind = "UNAVAILABLE"
	KindUnauthenticated  ErrorKind = "UNAUTHENTICATED"
	KindInternal         ErrorKind = "INTERNAL"
)

// KindOf classifies err. Anything unrecognised is internal.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrRoomNotFound), errors.Is(err, ErrParticipantNotFound),
		errors.Is(err, ErrMessageNotFound), errors.Is(err, ErrUserNotFound),
		errors.Is(err, ErrPreferencesNotFound):
		return KindNotFound
	case errors.Is(err, ErrPermissionDenied), errors.Is(err, ErrNotParticipant),
		errors.Is(err, ErrInvalidRoomPassword):
		return KindPermissionDenied
	case errors.Is(err, ErrValidation):
		return KindInvalidArgument
	case errors.Is(err, ErrRoomFull), errors.Is(err, ErrAlreadyParticipant), errors.Is(err, ErrRoomInactive),
		errors.Is(err, ErrRecordingInProgress), errors.Is(err, ErrRecordingNotActive):
		return KindConflict
	case errors.Is(err, ErrProviderUnavailable):
		return KindUnavailable
	case errors.Is(err, ErrAuthenticationFailed):
		return KindUnauthenticated
	}
	return KindInternal
}

// PublicMessage is the text safe to show a client for err.
func PublicMessage(err error) string {
	var denied *DeniedError
	switch {
	case errors.As(err, &denied):
		return denied.Reason
	case KindOf(err) == KindInternal:
		return "An unexpected error occurred"
	}
	return err.Error()
}

// DeniedError is a policy refusal. It matches ErrPermissionDenied with errors.Is.
type DeniedError struct {
	Action policy.Action
	Reason string
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("permission denied (%s): %s", e.Action, e.Reason)
}

func (e *DeniedError) Is(target error) bool { return target == ErrPermissionDenied }

// authorize runs the policy and converts a refusal into a *DeniedError.
func authorize(req policy.Request) error {
	d := policy.Decide(req)
	if d.Allowed {
		return nil
	}
	return &DeniedError{Action: req.Action, Reason: d.Reason}
}

func denied(action policy.Action, reason string) error {
	return &DeniedError{Action: action, Reason: reason}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// validateInput runs the shared validator and wraps failures as ErrValidation.
func validateInput(v any) error {
	if err := validation.Struct(v); err != nil {
		return fmt.Errorf("%w: %s", ErrValidation, validation.Describe(err))
	}
	return nil
}

// mapRepoError converts repository not-found errors into the given service error and
// leaves anything else wrapped for logging.
func mapRepoError(err error, notFound error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, repository.ErrNotFound) {
		return notFound
	}
	return fmt.Errorf("%w: %v", ErrInternalServer, err)
}
