package handler

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/matchday-app/chat-service/internal/auth"
	"github.com/matchday-app/chat-service/internal/domain"
	"github.com/matchday-app/chat-service/internal/service"
	"github.com/matchday-app/chat-service/pkg/log"
	"github.com/matchday-app/chat-service/pkg/response"
)

const ctxActorKey = "actor"

// HTTPHandler exposes the chat service over REST for clients that do
// not hold a websocket (history backfill, room management, deletion).
type HTTPHandler struct {
	service  service.ChatService
	verifier *auth.Verifier
}

func NewHTTPHandler(svc service.ChatService, verifier *auth.Verifier) *HTTPHandler {
	return &HTTPHandler{service: svc, verifier: verifier}
}

func (h *HTTPHandler) RegisterRoutes(r *gin.RouterGroup) {
	chat := r.Group("/chat", h.authMiddleware())
	{
		chat.POST("/rooms", h.GetOrCreateRoom)
		chat.GET("/rooms", h.ListRooms)
		chat.GET("/rooms/:roomID", h.GetRoom)
		chat.GET("/rooms/:roomID/key", h.RoomKeyInfo)
		chat.GET("/rooms/:roomID/messages", h.ListMessages)
		chat.POST("/rooms/:roomID/messages", h.SendMessage)
		chat.POST("/rooms/:roomID/delivered", h.MarkDelivered)
		chat.POST("/rooms/:roomID/read", h.MarkRead)
		chat.PATCH("/messages/:messageID", h.EditMessage)
		chat.DELETE("/messages/:messageID", h.SoftDelete)
		chat.DELETE("/messages/:messageID/everyone", h.HardDelete)
	}
}

func (h *HTTPHandler) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			response.Unauthorized(c, "missing bearer token")
			c.Abort()
			return
		}
		actor, err := h.verifier.Verify(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			response.Unauthorized(c, "invalid token")
			c.Abort()
			return
		}
		c.Set(ctxActorKey, actor)
		c.Next()
	}
}

func actorFrom(c *gin.Context) domain.Actor {
	v, _ := c.Get(ctxActorKey)
	actor, _ := v.(domain.Actor)
	return actor
}

func (h *HTTPHandler) GetOrCreateRoom(c *gin.Context) {
	var req domain.GetOrCreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	room, err := h.service.GetOrCreateRoom(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.Success(c, room)
}

func (h *HTTPHandler) ListRooms(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	rooms, err := h.service.ListRooms(c.Request.Context(), actorFrom(c), limit, offset)
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.Success(c, rooms)
}

func (h *HTTPHandler) GetRoom(c *gin.Context) {
	room, err := h.service.GetRoom(c.Request.Context(), actorFrom(c), c.Param("roomID"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.Success(c, room)
}

func (h *HTTPHandler) RoomKeyInfo(c *gin.Context) {
	info, err := h.service.RoomKeyInfo(c.Request.Context(), actorFrom(c), c.Param("roomID"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.Success(c, info)
}

func (h *HTTPHandler) ListMessages(c *gin.Context) {
	var req domain.ListMessagesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, "invalid query parameters")
		return
	}

	msgs, err := h.service.ListMessages(c.Request.Context(), actorFrom(c), c.Param("roomID"), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.Success(c, msgs)
}

func (h *HTTPHandler) SendMessage(c *gin.Context) {
	var req domain.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	msg, err := h.service.SendMessage(c.Request.Context(), actorFrom(c), c.Param("roomID"), req, "")
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.Created(c, msg)
}

func (h *HTTPHandler) MarkDelivered(c *gin.Context) {
	if err := h.service.MarkDelivered(c.Request.Context(), actorFrom(c), c.Param("roomID")); err != nil {
		h.respondError(c, err)
		return
	}
	response.Success(c, nil)
}

func (h *HTTPHandler) MarkRead(c *gin.Context) {
	if err := h.service.MarkRead(c.Request.Context(), actorFrom(c), c.Param("roomID")); err != nil {
		h.respondError(c, err)
		return
	}
	response.Success(c, nil)
}

func (h *HTTPHandler) EditMessage(c *gin.Context) {
	var req domain.EditMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	msg, err := h.service.EditMessage(c.Request.Context(), actorFrom(c), c.Param("messageID"), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.Success(c, msg)
}

func (h *HTTPHandler) SoftDelete(c *gin.Context) {
	if err := h.service.SoftDelete(c.Request.Context(), actorFrom(c), c.Param("messageID")); err != nil {
		h.respondError(c, err)
		return
	}
	response.Success(c, nil)
}

func (h *HTTPHandler) HardDelete(c *gin.Context) {
	if err := h.service.HardDelete(c.Request.Context(), actorFrom(c), c.Param("messageID")); err != nil {
		h.respondError(c, err)
		return
	}
	response.Success(c, nil)
}

func (h *HTTPHandler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrBadRequest):
		response.BadRequest(c, "invalid request")
	case errors.Is(err, domain.ErrUnauthorized):
		response.Unauthorized(c, "authentication required")
	case errors.Is(err, domain.ErrForbidden):
		response.Forbidden(c, "access denied")
	case errors.Is(err, domain.ErrNotFound):
		response.NotFound(c, "not found")
	case errors.Is(err, domain.ErrEditWindowClosed):
		response.Forbidden(c, "edit window has closed")
	case errors.Is(err, domain.ErrConflict):
		response.Conflict(c, "conflict")
	default:
		log.Ctx(c.Request.Context()).Error().Err(err).Msg("request failed")
		response.InternalError(c, "internal error")
	}
}
