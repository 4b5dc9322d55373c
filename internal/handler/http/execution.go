package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ayushanand27/xhire/internal/dto"
	"github.com/ayushanand27/xhire/internal/service"
)

type ExecutionHandler struct {
	execService *service.ExecutionService
	hub         Broadcaster
}

func NewExecutionHandler(execService *service.ExecutionService, hub Broadcaster) *ExecutionHandler {
	if execService == nil {
		panic("ExecutionService cannot be nil for ExecutionHandler")
	}
	return &ExecutionHandler{execService: execService, hub: orNoop(hub)}
}

// Execute handles POST /rooms/:roomId/execute. The result goes to the caller and
// to the whole room as code-execution-result.
func (h *ExecutionHandler) Execute(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	roomID, ok := pathID(c, "roomId")
	if !ok {
		return
	}
	var in service.ExecuteInput
	if !bindJSON(c, &in) {
		return
	}
	result, err := h.execService.Execute(c.Request.Context(), user.ID, roomID, in)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	payload := dto.ExecutionResultPayload{
		UserID:        user.ID,
		Output:        result.Output,
		Error:         result.Stderr,
		Language:      result.Language,
		ExecutionTime: result.Duration.Milliseconds(),
		Timestamp:     timeNow(),
	}
	h.hub.BroadcastToRoom(c.Request.Context(), roomID, dto.EventCodeExecutionResult, payload)
	SuccessResponse(c, http.StatusOK, gin.H{
		"success":       result.ExitCode == 0 && result.Stderr == "",
		"language":      result.Language,
		"version":       result.Version,
		"output":        result.Output,
		"error":         result.Stderr,
		"exitCode":      result.ExitCode,
		"executionTime": payload.ExecutionTime,
	})
}
