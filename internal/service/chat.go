package service

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ayushanand27/xhire/internal/domain"
	"github.com/ayushanand27/xhire/internal/policy"
	"github.com/ayushanand27/xhire/internal/repository"
)

const chatSearchLimit = 20

// ChatService persists room chat.
type ChatService struct {
	chatRepo repository.ChatRepository
	rooms    *RoomService
	activity ActivityRecorder
	now      func() time.Time
}

func NewChatService(chatRepo repository.ChatRepository, rooms *RoomService, activity ActivityRecorder) *ChatService {
	if chatRepo == nil {
		panic("ChatRepository cannot be nil for ChatService")
	}
	if rooms == nil {
		panic("RoomService cannot be nil for ChatService")
	}
	return &ChatService{chatRepo: chatRepo, rooms: rooms, activity: activity, now: time.Now}
}

// SendMessageInput is one outgoing chat message.
type SendMessageInput struct {
	Message        string             `json:"message" validate:"required,notblank,max=4000"`
	MessageType    domain.MessageType `json:"messageType" validate:"omitempty,oneof=text code"`
	CodeLanguage   string             `json:"codeLanguage" validate:"omitempty,max=32"`
	MentionedUsers []uint             `json:"mentionedUsers" validate:"max=50"`
}

type EditMessageInput struct {
	Message string `json:"message" validate:"required,notblank,max=4000"`
}

type ReactionInput struct {
	Emoji string `json:"emoji" validate:"required,notblank,max=64"`
}

// SendMessage stores a message from a participant. The body is validated before
// anything is read or written.
func (s *ChatService) SendMessage(ctx context.Context, sender *domain.User, roomID uint, in SendMessageInput) (*domain.ChatMessage, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	room, err := s.rooms.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	actor := room.Participant(sender.ID)
	if err := authorize(policy.Request{Actor: actor, Action: policy.ActionChat}); err != nil {
		return nil, err
	}
	if !room.Config.ChatEnabled {
		return nil, denied(policy.ActionChat, "Chat is disabled in this room")
	}

	msg := &domain.ChatMessage{
		RoomID:       roomID,
		SenderID:     sender.ID,
		SenderName:   sender.DisplayName(),
		SenderAvatar: sender.AvatarURL,
		Message:      in.Message,
		MessageType:  in.MessageType,
	}
	if msg.MessageType == "" {
		msg.MessageType = domain.MessageTypeText
	}
	if in.CodeLanguage != "" {
		lang := in.CodeLanguage
		msg.CodeLanguage = &lang
	}
	msg.SetMentions(in.MentionedUsers)
	if err := s.chatRepo.Create(ctx, msg); err != nil {
		logrus.WithField("room_id", roomID).WithError(err).Error("Failed to save chat message")
		return nil, ErrInternalServer
	}

	recordActivity(ctx, s.activity, &domain.ActivityRecord{
		RoomID:      roomID,
		UserID:      sender.ID,
		UserName:    sender.DisplayName(),
		EventType:   domain.ActivityMessageSent,
		Description: "sent a message",
		Metadata:    map[string]any{"messageId": msg.ID, "messageType": string(msg.MessageType)},
	})
	return msg, nil
}

// History returns one page of messages in chronological order.
func (s *ChatService) History(ctx context.Context, userID, roomID uint, page repository.Page) ([]domain.ChatMessage, int64, error) {
	if _, err := s.rooms.RequireMember(ctx, roomID, userID); err != nil {
		return nil, 0, err
	}
	msgs, total, err := s.chatRepo.ListByRoom(ctx, roomID, page.Normalize())
	if err != nil {
		logrus.WithField("room_id", roomID).WithError(err).Error("Failed to load chat history")
		return nil, 0, ErrInternalServer
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, total, nil
}

// Search returns the newest messages containing query.
func (s *ChatService) Search(ctx context.Context, userID, roomID uint, query string) ([]domain.ChatMessage, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, invalid("q: required")
	}
	if _, err := s.rooms.RequireMember(ctx, roomID, userID); err != nil {
		return nil, err
	}
	msgs, err := s.chatRepo.Search(ctx, roomID, query, chatSearchLimit)
	if err != nil {
		logrus.WithField("room_id", roomID).WithError(err).Error("Failed to search chat")
		return nil, ErrInternalServer
	}
	return msgs, nil
}

// loadOwnedMessage returns the message when userID sent it or created its room.
func (s *ChatService) loadOwnedMessage(ctx context.Context, userID, messageID uint, verb string) (*domain.ChatMessage, error) {
	msg, err := s.chatRepo.FindByID(ctx, messageID)
	if err != nil {
		return nil, mapRepoError(err, ErrMessageNotFound)
	}
	if msg.SenderID == userID {
		return msg, nil
	}
	room, err := s.rooms.GetRoom(ctx, msg.RoomID)
	if err != nil {
		return nil, err
	}
	if !room.IsCreator(userID) {
		return nil, denied(policy.ActionChat, "You can only "+verb+" your own messages")
	}
	return msg, nil
}

func (s *ChatService) EditMessage(ctx context.Context, userID, messageID uint, in EditMessageInput) (*domain.ChatMessage, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	msg, err := s.loadOwnedMessage(ctx, userID, messageID, "edit")
	if err != nil {
		return nil, err
	}
	now := s.now()
	msg.Message = in.Message
	msg.IsEdited = true
	msg.EditedAt = &now
	if err := s.chatRepo.UpdateText(ctx, msg); err != nil {
		return nil, mapRepoError(err, ErrMessageNotFound)
	}
	return msg, nil
}

func (s *ChatService) DeleteMessage(ctx context.Context, userID, messageID uint) (*domain.ChatMessage, error) {
	msg, err := s.loadOwnedMessage(ctx, userID, messageID, "delete")
	if err != nil {
		return nil, err
	}
	if err := s.chatRepo.Delete(ctx, messageID); err != nil {
		return nil, mapRepoError(err, ErrMessageNotFound)
	}
	return msg, nil
}

// ToggleReaction adds or removes the user's emoji on a message and returns the
// message with its reactions reloaded.
func (s *ChatService) ToggleReaction(ctx context.Context, user *domain.User, messageID uint, in ReactionInput) (*domain.ChatMessage, bool, error) {
	if err := validateInput(in); err != nil {
		return nil, false, err
	}
	msg, err := s.chatRepo.FindByID(ctx, messageID)
	if err != nil {
		return nil, false, mapRepoError(err, ErrMessageNotFound)
	}
	if _, err := s.rooms.RequireMember(ctx, msg.RoomID, user.ID); err != nil {
		return nil, false, err
	}
	added, err := s.chatRepo.ToggleReaction(ctx, &domain.Reaction{
		MessageID: messageID,
		UserID:    user.ID,
		UserName:  user.DisplayName(),
		Emoji:     strings.TrimSpace(in.Emoji),
	})
	if err != nil {
		return nil, false, mapRepoError(err, ErrMessageNotFound)
	}
	msg, err = s.chatRepo.FindByID(ctx, messageID)
	if err != nil {
		return nil, false, mapRepoError(err, ErrMessageNotFound)
	}
	return msg, added, nil
}
