package handlers

import (
	"errors"
	"net/http"

	"github.com/dealroom-app/dealroom/internal/chat"
	"github.com/dealroom-app/dealroom/internal/common"
	"github.com/dealroom-app/dealroom/internal/httpapi/middleware"
	"github.com/gin-gonic/gin"
)

func userIDFromContext(c *gin.Context) (uint64, bool) {
	v, ok := c.Get(middleware.UserIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint64)
	return id, ok
}

type createChatReq struct {
	ContractID     uint64 `json:"contract_id" binding:"required"`
	CounterpartyID uint64 `json:"counterparty_id" binding:"required"`
}

// CreateChat opens the conversation for a signed contract. 201 on a new
// chat, 200 with the existing chat_id when it already exists.
func (h *Handler) CreateChat(c *gin.Context) {
	uid, okk := userIDFromContext(c)
	if !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	var req createChatReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	created, isNew, err := h.ChatSvc.CreateChat(c.Request.Context(), uid, req.ContractID, req.CounterpartyID)
	if err != nil {
		switch {
		case errors.Is(err, chat.ErrPermissionDenied):
			common.Fail(c, http.StatusForbidden, 40301, "only the contract issuer can start a chat")
		case errors.Is(err, chat.ErrNotSigned):
			common.Fail(c, http.StatusBadRequest, 40002, "counterparty has not signed this contract")
		default:
			common.Fail(c, http.StatusInternalServerError, 50001, "failed to create chat")
		}
		return
	}

	if isNew {
		common.Created(c, gin.H{"chat_id": created.ChatID})
		return
	}
	common.OK(c, gin.H{"chat_id": created.ChatID})
}

func (h *Handler) ListChats(c *gin.Context) {
	uid, okk := userIDFromContext(c)
	if !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	sums, err := h.ChatSvc.ListChats(c.Request.Context(), uid)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50002, "failed to list chats")
		return
	}
	common.OK(c, gin.H{"chats": sums})
}

// ListChatMessages returns the full history oldest-first; fetching it
// marks the other participant's messages as read.
func (h *Handler) ListChatMessages(c *gin.Context) {
	uid, okk := userIDFromContext(c)
	if !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	chatID := c.Param("chat_id")
	msgs, err := h.ChatSvc.ListMessages(c.Request.Context(), uid, chatID)
	if err != nil {
		switch {
		case errors.Is(err, chat.ErrChatNotFound):
			common.Fail(c, http.StatusNotFound, 40404, "chat not found")
		case errors.Is(err, chat.ErrPermissionDenied):
			common.Fail(c, http.StatusForbidden, 40302, "not a participant of this chat")
		default:
			common.Fail(c, http.StatusInternalServerError, 50002, "failed to list messages")
		}
		return
	}
	common.OK(c, gin.H{"messages": msgs})
}

type sendMessageReq struct {
	Content string `json:"content" binding:"required"`
}

// SendChatMessage is the HTTP send path for clients without a live
// websocket. Same validation and persistence as the realtime path; the
// canonical message still fans out to the room.
func (h *Handler) SendChatMessage(c *gin.Context) {
	uid, okk := userIDFromContext(c)
	if !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	chatID := c.Param("chat_id")

	var req sendMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	msg, err := h.ChatSvc.SendMessage(c.Request.Context(), uid, chatID, req.Content)
	if err != nil {
		switch {
		case errors.Is(err, chat.ErrChatNotFound):
			common.Fail(c, http.StatusNotFound, 40404, "chat not found")
		case errors.Is(err, chat.ErrPermissionDenied):
			common.Fail(c, http.StatusForbidden, 40302, "not a participant of this chat")
		case errors.Is(err, chat.ErrEmptyContent):
			common.Fail(c, http.StatusBadRequest, 10002, "message content is empty")
		default:
			common.Fail(c, http.StatusInternalServerError, 50003, "failed to send message")
		}
		return
	}

	if h.Hub != nil {
		h.Hub.Broadcast(chatID, msg, nil, "")
	}

	common.Created(c, gin.H{"message": msg})
}
