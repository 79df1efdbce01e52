package ws

import (
	"encoding/json"

	"chat-client/models"
)

// Server event names.
const (
	EvMessageNew      = "message:new"
	EvMessageUpdate   = "message:update"
	EvMessageDelete   = "message:delete"
	EvConversationNew = "conversation:new"
	EvUserOnline      = "user:online"
	EvUserOffline     = "user:offline"
	EvUserTyping      = "user:typing"
)

// Client action names.
const (
	actJoin   = "conversation:join"
	actSend   = "message:send"
	actTyping = "typing"
)

// envelope is the wire frame in both directions: a type discriminator and a
// raw payload decoded per event.
type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type joinPayload struct {
	ConversationID int64 `json:"conversation_id"`
}

type sendPayload struct {
	ConversationID int64  `json:"conversation_id"`
	Content        string `json:"content"`
	ReplyToID      *int64 `json:"reply_to_id"`
}

type typingPayload struct {
	ConversationID int64 `json:"conversation_id"`
}

type presencePayload struct {
	UserID int64 `json:"user_id"`
}

type typingEventPayload struct {
	ConversationID int64 `json:"conversation_id"`
	UserID         int64 `json:"user_id"`
}

// Handler receives decoded server events. All message events (new, update,
// delete) arrive through HandleMessage: an update or soft-delete is just a
// message state to merge, not a separate code path.
type Handler interface {
	HandleMessage(msg models.Message)
	HandleConversation(conv models.Conversation)
	HandlePresence(userID int64, online bool)
	HandleTyping(conversationID, userID int64)
}
