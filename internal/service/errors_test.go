package service_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ayushanand27/xhire/internal/service"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		want service.ErrorKind
	}{
		{nil, ""},
		{service.ErrRoomNotFound, service.KindNotFound},
		{fmt.Errorf("wrapped: %w", service.ErrParticipantNotFound), service.KindNotFound},
		{&service.DeniedError{Action: "chat", Reason: "no"}, service.KindPermissionDenied},
		{service.ErrNotParticipant, service.KindPermissionDenied},
		{service.ErrPreferencesNotFound, service.KindNotFound},
		{service.ErrValidation, service.KindInvalidArgument},
		{service.ErrRoomFull, service.KindConflict},
		{service.ErrRoomInactive, service.KindConflict},
		{service.ErrProviderUnavailable, service.KindUnavailable},
		{service.ErrAuthenticationFailed, service.KindUnauthenticated},
		{errors.New("boom"), service.KindInternal},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, service.KindOf(tt.err), "%v", tt.err)
	}
}

func TestPublicMessage(t *testing.T) {
	assert.Equal(t, "Only presenters", service.PublicMessage(&service.DeniedError{Reason: "Only presenters"}))
	assert.Equal(t, "An unexpected error occurred", service.PublicMessage(errors.New("dial tcp 10.0.0.3:5432: refused")))
	assert.Equal(t, service.ErrRoomFull.Error(), service.PublicMessage(service.ErrRoomFull))
}
