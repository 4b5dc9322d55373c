package validation_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayushanand27/xhire/internal/validation"
)

type sample struct {
	Message string `json:"message" validate:"required,notblank,max=10"`
	Role    string `json:"role" validate:"omitempty,room_role"`
	Kind    string `json:"kind" validate:"omitempty,room_type"`
}

func TestStruct_NotBlank(t *testing.T) {
	err := validation.Struct(sample{Message: "   "})
	require.Error(t, err)
	assert.Equal(t, "message: notblank", validation.Describe(err))

	assert.NoError(t, validation.Struct(sample{Message: "hi"}))
}

func TestStruct_DomainEnums(t *testing.T) {
	assert.NoError(t, validation.Struct(sample{Message: "hi", Role: "presenter", Kind: "interview"}))

	err := validation.Struct(sample{Message: "hi", Role: "admin"})
	require.Error(t, err)
	assert.Contains(t, validation.Describe(err), "role: room_role")

	err = validation.Struct(sample{Message: "hi", Kind: "party"})
	require.Error(t, err)
	assert.Contains(t, validation.Describe(err), "kind: room_type")
}

func TestPermissionPatch(t *testing.T) {
	assert.NoError(t, validation.PermissionPatch(map[string]bool{"canEdit": false, "canMute": true}))
	assert.Error(t, validation.PermissionPatch(map[string]bool{"canEdit": false, "isAdmin": true}))
	assert.Error(t, validation.PermissionPatch(map[string]bool{}))
}

func TestDescribe_PassesThroughOtherErrors(t *testing.T) {
	assert.Equal(t, assert.AnError.Error(), validation.Describe(assert.AnError))
}
