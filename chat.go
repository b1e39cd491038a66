package main

import (
	"net/http"
	"slices"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// historyWindow is how many recent messages the responder sees.
const historyWindow = 20

var chatTable = tableDef{
	name:  "chat_messages",
	order: []orderKey{{column: "created_at"}, {column: "id"}},
}

// chatResource serves /api/chat-history: the stored conversation, oldest
// first, with DELETE ?all=true to clear it.
func (h *Handler) chatResource() *resource[chatMessage, chatPayload] {
	return newResource(h, h.stores.chat, resource[chatMessage, chatPayload]{
		path:         "/chat-history",
		noun:         "chat message",
		notFoundCode: "CHAT_MESSAGE_NOT_FOUND",
		defaultLimit: 50,
		maxLimit:     200,
		filters: []filterParam{
			enumFilter("role", "role", "ROLE", chatRoles),
		},
		defaults: func(_ time.Time) columnSet {
			return columnSet{{column: "role", value: "user"}}
		},
		bulkDelete: true,
	})
}

// converse handles POST /api/chat. It stores the user's message, asks the
// responder for a reply given recent history and stores that too.
func (h *Handler) converse(c *gin.Context) {
	userID := c.GetString("user_id")
	ctx := c.Request.Context()

	var body struct {
		Message *string `json:"message" create:"required" code:"MESSAGE" validate:"omitempty,notblank,max=4000"`
	}
	raw, err := c.GetRawData()
	if err == nil {
		err = decodePayload(raw, &body, true)
	}
	if err != nil {
		respondErr(c, h.log, err)
		return
	}

	sent, err := h.stores.chat.insert(ctx, userID, columnSet{
		{column: "message", value: *body.Message},
		{column: "role", value: "user"},
	})
	if err != nil {
		respondErr(c, h.log, &serverErr{message: "failed to store chat message", err: err})
		return
	}

	history, err := h.stores.chat.list(ctx, userID, listQuery{limit: historyWindow, order: newestFirst})
	if err != nil {
		respondErr(c, h.log, &serverErr{message: "failed to load chat history", err: err})
		return
	}
	slices.Reverse(history)

	text, err := h.responder.generate(ctx, history)
	if err != nil {
		h.log.Warn("responder failed", zap.String("request_id", c.GetString("request_id")), zap.Error(err))
		respondErr(c, h.log, &serverErr{message: "assistant request failed", err: err})
		return
	}

	reply, err := h.stores.chat.insert(ctx, userID, columnSet{
		{column: "message", value: text},
		{column: "role", value: "assistant"},
	})
	if err != nil {
		respondErr(c, h.log, &serverErr{message: "failed to store chat message", err: err})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"userMessage": sent, "assistantMessage": reply})
}
