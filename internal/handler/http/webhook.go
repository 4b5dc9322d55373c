package http

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ayushanand27/xhire/internal/domain"
	"github.com/ayushanand27/xhire/internal/dto"
)

const (
	signatureHeader    = "X-Signature"
	maxWebhookBodySize = 1 << 20
)

var recordingDoneType = regexp.MustCompile(`(?i)record.*(complete|ready|finished)`)

// RecordingCompleter stores the final recording reported by the provider.
type RecordingCompleter interface {
	CompleteRecording(ctx context.Context, roomID uint, url string) (*domain.Recording, error)
}

// WebhookHandler accepts provider callbacks. Anything it cannot use is
// acknowledged with 200 so the provider does not retry.
type WebhookHandler struct {
	recordings RecordingCompleter
	secret     []byte
	hub        Broadcaster
}

// NewWebhookHandler builds the handler. An empty secret disables signature checks.
func NewWebhookHandler(recordings RecordingCompleter, secret string, hub Broadcaster) *WebhookHandler {
	if recordings == nil {
		panic("RecordingCompleter cannot be nil for WebhookHandler")
	}
	if secret == "" {
		logrus.Warn("Webhook secret not set; provider signature verification disabled")
	}
	return &WebhookHandler{recordings: recordings, secret: []byte(secret), hub: orNoop(hub)}
}

type webhookEvent struct {
	Type      string `json:"type"`
	EventType string `json:"event_type"`
	CallID    string `json:"call_id"`
	CallCID   string `json:"call_cid"`
	URL       string `json:"url"`
	AssetURL  string `json:"asset_url"`
	Call      struct {
		ID string `json:"id"`
	} `json:"call"`
	Recording struct {
		URL string `json:"url"`
	} `json:"recording"`
	Data struct {
		CallID   string `json:"call_id"`
		URL      string `json:"url"`
		AssetURL string `json:"asset_url"`
	} `json:"data"`
}

func (e *webhookEvent) eventType() string {
	return firstNonEmpty(e.Type, e.EventType)
}

func (e *webhookEvent) callID() string {
	return firstNonEmpty(e.CallID, e.Call.ID, e.Data.CallID, e.CallCID)
}

func (e *webhookEvent) recordingURL() string {
	return firstNonEmpty(e.Recording.URL, e.AssetURL, e.URL, e.Data.AssetURL, e.Data.URL)
}

// Stream handles POST /webhooks/stream.
func (h *WebhookHandler) Stream(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBodySize))
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Unreadable body")
		return
	}
	if len(h.secret) > 0 && !h.validSignature(body, c.GetHeader(signatureHeader)) {
		logrus.WithField("ip", c.ClientIP()).Warn("Webhook signature mismatch")
		ErrorResponse(c, http.StatusUnauthorized, "Invalid signature")
		return
	}

	var event webhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		logrus.WithError(err).Warn("Webhook: malformed payload")
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}
	logCtx := logrus.WithFields(logrus.Fields{"type": event.eventType(), "call_id": event.callID()})

	url := event.recordingURL()
	if !recordingDoneType.MatchString(event.eventType()) || url == "" {
		logCtx.Debug("Webhook: ignoring event")
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}
	roomID, ok := roomIDFromCall(event.callID())
	if !ok {
		logCtx.Warn("Webhook: call id does not name a room")
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}

	rec, err := h.recordings.CompleteRecording(c.Request.Context(), roomID, url)
	if err != nil {
		logCtx.WithError(err).Warn("Webhook: failed to complete recording")
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}
	h.hub.BroadcastToRoom(c.Request.Context(), roomID, dto.EventRecordingStopped, dto.RecordingStatePayload{
		IsRecording:  false,
		StartedAt:    rec.StartedAt,
		RecordingURL: rec.URL,
	})
	logCtx.WithField("room_id", roomID).Info("Recording completed")
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *WebhookHandler) validSignature(body []byte, signature string) bool {
	got, err := hex.DecodeString(strings.TrimSpace(signature))
	if err != nil || len(got) == 0 {
		return false
	}
	mac := hmac.New(sha256.New, h.secret)
	mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}

// roomIDFromCall accepts "room-12", "default:room-12" or "12".
func roomIDFromCall(callID string) (uint, bool) {
	if i := strings.LastIndex(callID, ":"); i >= 0 {
		callID = callID[i+1:]
	}
	callID = strings.TrimPrefix(callID, "room-")
	id, err := strconv.ParseUint(callID, 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
