package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/matchday-app/chat-service/internal/broadcast"
	"github.com/matchday-app/chat-service/internal/crypto"
	"github.com/matchday-app/chat-service/internal/domain"
	"github.com/matchday-app/chat-service/internal/notify"
	"github.com/matchday-app/chat-service/internal/presence"
	"github.com/matchday-app/chat-service/internal/repository"
	"github.com/matchday-app/chat-service/pkg/log"
)

// PlaceholderUnavailable replaces content that failed authenticated
// decryption. The stored ciphertext is left untouched.
const PlaceholderUnavailable = "[message unavailable]"

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// KeyProvider hands out per-room encryption keys.
type KeyProvider interface {
	GetOrCreateRoomKey(ctx context.Context, roomID string) ([]byte, error)
}

// Authorizer decides whether a user may act in a room.
type Authorizer interface {
	Authorize(ctx context.Context, userID string, room *domain.Room) error
}

type chatService struct {
	rooms       repository.RoomRepository
	messages    repository.MessageRepository
	keys        KeyProvider
	guard       Authorizer
	presence    presence.Registry
	notifier    notify.Notifier
	broadcaster broadcast.Broadcaster
	editWindow  time.Duration
}

func NewChatService(
	rooms repository.RoomRepository,
	messages repository.MessageRepository,
	keys KeyProvider,
	guard Authorizer,
	reg presence.Registry,
	notifier notify.Notifier,
	broadcaster broadcast.Broadcaster,
	editWindow time.Duration,
) ChatService {
	if editWindow <= 0 {
		editWindow = 10 * time.Minute
	}
	return &chatService{
		rooms:       rooms,
		messages:    messages,
		keys:        keys,
		guard:       guard,
		presence:    reg,
		notifier:    notifier,
		broadcaster: broadcaster,
		editWindow:  editWindow,
	}
}

func (s *chatService) GetOrCreateRoom(ctx context.Context, actor domain.Actor, req domain.GetOrCreateRoomRequest) (*domain.RoomResponse, error) {
	contextType := domain.ContextType(req.ContextType)
	if !contextType.Valid() || req.ContextID == "" {
		return nil, domain.ErrBadRequest
	}

	room, err := s.rooms.GetByContext(ctx, contextType, req.ContextID)
	if err != nil && !errors.Is(err, repository.ErrRoomNotFound) {
		return nil, err
	}

	if room == nil {
		room = &domain.Room{
			ID:           uuid.NewString(),
			ContextType:  contextType,
			ContextID:    req.ContextID,
			Participants: seedParticipants(actor.ID, req.Participants),
			CreatedAt:    time.Now().UTC(),
		}
		if err := s.guard.Authorize(ctx, actor.ID, room); err != nil {
			return nil, err
		}

		key, err := crypto.GenerateKey()
		if err != nil {
			return nil, err
		}
		err = s.rooms.Create(ctx, room, crypto.KeyToHex(key))
		if errors.Is(err, repository.ErrDuplicateRoom) {
			// Lost the race; converge on the winning row.
			room, err = s.rooms.GetByContext(ctx, contextType, req.ContextID)
		}
		if err != nil {
			return nil, err
		}
		log.Ctx(ctx).Info().
			Str(log.FieldRoomID, room.ID).
			Str("context_type", string(contextType)).
			Str("context_id", req.ContextID).
			Msg("chat room ready")
	}

	// Group access is decided by the membership collaborator, never by
	// the cached participant list.
	if contextType == domain.ContextGroup {
		if err := s.guard.Authorize(ctx, actor.ID, room); err != nil {
			return nil, err
		}
	}

	// Get-or-create attaches the caller. For direct rooms the pairing
	// context is the capability; for group rooms the membership check
	// above already passed. The participant list doubles as the
	// offline-notification audience.
	if !room.HasParticipant(actor.ID) {
		if err := s.rooms.AddParticipant(ctx, room.ID, actor.ID); err != nil {
			return nil, err
		}
		room.Participants = append(room.Participants, actor.ID)
		if contextType == domain.ContextGroup {
			s.broadcaster.BroadcastSystemMessage(room.ID, fmt.Sprintf("%s joined the conversation", actor.ID))
		}
	}

	resp := room.ToResponse()
	return &resp, nil
}

func (s *chatService) GetRoom(ctx context.Context, actor domain.Actor, roomID string) (*domain.RoomResponse, error) {
	room, err := s.authorizedRoom(ctx, actor, roomID)
	if err != nil {
		return nil, err
	}
	resp := room.ToResponse()
	return &resp, nil
}

func (s *chatService) ListRooms(ctx context.Context, actor domain.Actor, limit, offset int) ([]domain.RoomResponse, error) {
	if limit <= 0 || limit > maxHistoryLimit {
		limit = defaultHistoryLimit
	}
	if offset < 0 {
		offset = 0
	}

	rooms, err := s.rooms.ListForUser(ctx, actor.ID, limit, offset)
	if err != nil {
		return nil, err
	}

	out := make([]domain.RoomResponse, 0, len(rooms))
	for i := range rooms {
		resp := rooms[i].ToResponse()
		if preview := s.lastMessagePreview(ctx, &rooms[i], actor.ID); preview != nil {
			resp.LastMessage = preview
		}
		out = append(out, resp)
	}
	return out, nil
}

// lastMessagePreview is best-effort; a room list never fails because
// one preview could not be produced.
func (s *chatService) lastMessagePreview(ctx context.Context, room *domain.Room, viewerID string) *domain.MessageResponse {
	msg, err := s.messages.LastVisible(ctx, room.ID, viewerID)
	if err != nil {
		if !errors.Is(err, repository.ErrMessageNotFound) {
			log.Ctx(ctx).Warn().Err(err).Str(log.FieldRoomID, room.ID).Msg("failed to load last-message preview")
		}
		return nil
	}

	key, err := s.keys.GetOrCreateRoomKey(ctx, room.ID)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Str(log.FieldRoomID, room.ID).Msg("failed to load room key for preview")
		return nil
	}

	resp := s.toResponse(ctx, msg, key)
	return &resp
}

func (s *chatService) JoinRoom(ctx context.Context, actor domain.Actor, roomID string, limit int) ([]domain.MessageResponse, error) {
	if _, err := s.authorizedRoom(ctx, actor, roomID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > maxHistoryLimit {
		limit = defaultHistoryLimit
	}

	// Joining implies everything pending has now reached this user.
	changed, err := s.messages.MarkDelivered(ctx, roomID, actor.ID)
	if err != nil {
		return nil, err
	}
	if changed > 0 {
		s.broadcaster.NotifyDelivered(roomID, actor.ID)
	}

	msgs, err := s.messages.List(ctx, roomID, actor.ID, limit, time.Time{})
	if err != nil {
		return nil, err
	}

	key, err := s.keys.GetOrCreateRoomKey(ctx, roomID)
	if err != nil {
		return nil, err
	}

	// List is newest-first; history is handed over chronologically.
	out := make([]domain.MessageResponse, 0, len(msgs))
	for i := len(msgs) - 1; i >= 0; i-- {
		out = append(out, s.toResponse(ctx, &msgs[i], key))
	}
	return out, nil
}

func (s *chatService) ListMessages(ctx context.Context, actor domain.Actor, roomID string, req domain.ListMessagesRequest) ([]domain.MessageResponse, error) {
	if _, err := s.authorizedRoom(ctx, actor, roomID); err != nil {
		return nil, err
	}

	limit := req.Limit
	if limit <= 0 || limit > maxHistoryLimit {
		limit = defaultHistoryLimit
	}

	var msgs []domain.Message
	if req.Since != "" {
		since, err := time.Parse(time.RFC3339, req.Since)
		if err != nil {
			return nil, domain.ErrBadRequest
		}
		msgs, err = s.messages.ListSince(ctx, roomID, actor.ID, since, limit)
		if err != nil {
			return nil, err
		}
	} else {
		var before time.Time
		if req.Before != "" {
			parsed, err := time.Parse(time.RFC3339, req.Before)
			if err != nil {
				return nil, domain.ErrBadRequest
			}
			before = parsed
		}
		loaded, err := s.messages.List(ctx, roomID, actor.ID, limit, before)
		if err != nil {
			return nil, err
		}
		msgs = loaded
	}

	key, err := s.keys.GetOrCreateRoomKey(ctx, roomID)
	if err != nil {
		return nil, err
	}

	out := make([]domain.MessageResponse, 0, len(msgs))
	for i := range msgs {
		out = append(out, s.toResponse(ctx, &msgs[i], key))
	}
	return out, nil
}

func (s *chatService) SendMessage(ctx context.Context, actor domain.Actor, roomID string, req domain.SendMessageRequest, excludeClientID string) (*domain.MessageResponse, error) {
	content := strings.TrimSpace(req.Content)
	if content == "" && len(req.MediaIDs) == 0 {
		return nil, domain.ErrBadRequest
	}

	room, err := s.authorizedRoom(ctx, actor, roomID)
	if err != nil {
		return nil, err
	}

	key, err := s.keys.GetOrCreateRoomKey(ctx, roomID)
	if err != nil {
		return nil, err
	}

	env, err := crypto.Encrypt(content, key)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt message: %w", err)
	}

	now := time.Now().UTC()
	msg := &domain.Message{
		ID:          uuid.NewString(),
		RoomID:      roomID,
		SenderID:    actor.ID,
		CipherText:  env.CipherText,
		IV:          env.IV,
		AuthTag:     env.AuthTag,
		Media:       req.MediaIDs,
		DeliveredTo: []string{actor.ID},
		ReadBy:      []string{actor.ID},
		CreatedAt:   now,
	}

	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, err
	}
	if err := s.rooms.TouchLastMessage(ctx, roomID, now); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str(log.FieldRoomID, roomID).Msg("failed to touch room activity")
	}

	resp := domain.MessageResponse{
		ID:          msg.ID,
		RoomID:      msg.RoomID,
		Sender:      domain.UserSender(msg.SenderID),
		Content:     content,
		Media:       msg.Media,
		DeliveredTo: msg.DeliveredTo,
		ReadBy:      msg.ReadBy,
		CreatedAt:   msg.CreatedAt,
	}

	s.broadcaster.BroadcastMessage(roomID, resp, excludeClientID)
	s.notifyOffline(ctx, room, actor.ID, content, msg.ID)

	log.Ctx(ctx).Info().
		Str(log.FieldRoomID, roomID).
		Str(log.FieldMessageID, msg.ID).
		Str(log.FieldUserID, actor.ID).
		Msg("message sent")
	return &resp, nil
}

// notifyOffline falls back to the notification pipeline for recipients
// with no live session. Failures are logged, never surfaced: message
// persistence already succeeded.
func (s *chatService) notifyOffline(ctx context.Context, room *domain.Room, senderID, content, messageID string) {
	for _, participant := range room.Participants {
		if participant == senderID {
			continue
		}
		online, err := s.presence.IsOnline(ctx, participant)
		if err != nil {
			log.Ctx(ctx).Warn().Err(err).Str(log.FieldUserID, participant).Msg("presence lookup failed; assuming offline")
		}
		if online {
			continue
		}

		notification := notify.Notification{
			Recipient: participant,
			Type:      notify.TypeChatMessage,
			Title:     "New message",
			Message:   truncate(content, 120),
			Meta: map[string]string{
				"room_id":    room.ID,
				"message_id": messageID,
				"sender_id":  senderID,
			},
		}
		if err := s.notifier.Notify(ctx, notification); err != nil {
			log.Ctx(ctx).Warn().Err(err).Str(log.FieldUserID, participant).Msg("offline notification failed")
		}
	}
}

func (s *chatService) EditMessage(ctx context.Context, actor domain.Actor, messageID string, req domain.EditMessageRequest) (*domain.MessageResponse, error) {
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, domain.ErrBadRequest
	}

	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, repository.ErrMessageNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if _, err := s.authorizedRoom(ctx, actor, msg.RoomID); err != nil {
		return nil, err
	}
	if err := msg.CanEdit(actor, time.Now(), s.editWindow); err != nil {
		return nil, err
	}

	key, err := s.keys.GetOrCreateRoomKey(ctx, msg.RoomID)
	if err != nil {
		return nil, err
	}
	env, err := crypto.Encrypt(content, key)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt message: %w", err)
	}

	if err := s.messages.SaveEdit(ctx, messageID, env.CipherText, env.IV, env.AuthTag); err != nil {
		return nil, err
	}

	msg.CipherText = env.CipherText
	msg.IV = env.IV
	msg.AuthTag = env.AuthTag
	msg.Edited = true

	resp := s.toResponse(ctx, msg, key)
	s.broadcaster.NotifyEdited(msg.RoomID, resp)
	return &resp, nil
}

func (s *chatService) MarkDelivered(ctx context.Context, actor domain.Actor, roomID string) error {
	if _, err := s.authorizedRoom(ctx, actor, roomID); err != nil {
		return err
	}
	changed, err := s.messages.MarkDelivered(ctx, roomID, actor.ID)
	if err != nil {
		return err
	}
	if changed > 0 {
		s.broadcaster.NotifyDelivered(roomID, actor.ID)
	}
	return nil
}

func (s *chatService) MarkRead(ctx context.Context, actor domain.Actor, roomID string) error {
	if _, err := s.authorizedRoom(ctx, actor, roomID); err != nil {
		return err
	}
	changed, err := s.messages.MarkRead(ctx, roomID, actor.ID)
	if err != nil {
		return err
	}
	if changed > 0 {
		s.broadcaster.NotifyRead(roomID, actor.ID)
	}
	return nil
}

func (s *chatService) SoftDelete(ctx context.Context, actor domain.Actor, messageID string) error {
	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, repository.ErrMessageNotFound) {
			return domain.ErrNotFound
		}
		return err
	}
	if _, err := s.authorizedRoom(ctx, actor, msg.RoomID); err != nil {
		return err
	}
	return s.messages.SoftDelete(ctx, messageID, actor.ID)
}

func (s *chatService) HardDelete(ctx context.Context, actor domain.Actor, messageID string) error {
	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, repository.ErrMessageNotFound) {
			return domain.ErrNotFound
		}
		return err
	}
	if _, err := s.authorizedRoom(ctx, actor, msg.RoomID); err != nil {
		return err
	}
	if !msg.CanDeleteForEveryone(actor) {
		return domain.ErrForbidden
	}
	if msg.IsDeleted {
		return nil
	}

	if err := s.messages.HardDelete(ctx, messageID); err != nil {
		return err
	}
	s.broadcaster.NotifyDeletedForEveryone(msg.RoomID, messageID)

	log.Ctx(ctx).Info().
		Str(log.FieldMessageID, messageID).
		Str(log.FieldUserID, actor.ID).
		Bool("admin", actor.Admin).
		Msg("message deleted for everyone")
	return nil
}

func (s *chatService) Typing(ctx context.Context, actor domain.Actor, roomID string, isTyping bool, excludeClientID string) error {
	if _, err := s.authorizedRoom(ctx, actor, roomID); err != nil {
		return err
	}
	s.broadcaster.NotifyTyping(roomID, actor.ID, isTyping, excludeClientID)
	return nil
}

func (s *chatService) RoomKeyInfo(ctx context.Context, actor domain.Actor, roomID string) (*domain.KeyInfoResponse, error) {
	if _, err := s.authorizedRoom(ctx, actor, roomID); err != nil {
		return nil, err
	}
	return &domain.KeyInfoResponse{Algorithm: crypto.Algorithm, Version: 1}, nil
}

// authorizedRoom loads a room and runs the access check. Every service
// operation funnels through here.
func (s *chatService) authorizedRoom(ctx context.Context, actor domain.Actor, roomID string) (*domain.Room, error) {
	room, err := s.rooms.GetByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if err := s.guard.Authorize(ctx, actor.ID, room); err != nil {
		return nil, err
	}
	return room, nil
}

// toResponse decrypts a stored message for a caller. Tombstones keep
// their flags but carry no content; decryption failures degrade to a
// placeholder rather than failing the whole page.
func (s *chatService) toResponse(ctx context.Context, msg *domain.Message, key []byte) domain.MessageResponse {
	resp := domain.MessageResponse{
		ID:          msg.ID,
		RoomID:      msg.RoomID,
		Sender:      domain.UserSender(msg.SenderID),
		Media:       msg.Media,
		DeliveredTo: msg.DeliveredTo,
		ReadBy:      msg.ReadBy,
		IsDeleted:   msg.IsDeleted,
		Edited:      msg.Edited,
		CreatedAt:   msg.CreatedAt,
	}
	if msg.IsDeleted {
		return resp
	}
	if msg.CipherText == "" && len(msg.Media) > 0 {
		return resp
	}

	plain, err := crypto.Decrypt(crypto.Envelope{
		CipherText: msg.CipherText,
		IV:         msg.IV,
		AuthTag:    msg.AuthTag,
	}, key)
	if err != nil {
		log.Ctx(ctx).Warn().
			Err(err).
			Str(log.FieldMessageID, msg.ID).
			Str(log.FieldRoomID, msg.RoomID).
			Msg("message failed authenticated decryption")
		resp.Content = PlaceholderUnavailable
		return resp
	}
	resp.Content = plain
	return resp
}

func seedParticipants(actorID string, extra []string) []string {
	out := []string{actorID}
	for _, p := range extra {
		if p == "" || p == actorID || containsStr(out, p) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func containsStr(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "…"
}
