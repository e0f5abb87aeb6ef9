package types

import (
	"encoding/json"
	"fmt"
)

type EventName string

const (
	EventNewMessage      EventName = "new_message"
	EventNotification    EventName = "notification"
	EventMessageDeleted  EventName = "message_deleted"
	EventMessageEdited   EventName = "message_edited"
	EventMessageReaction EventName = "message_reaction"
	EventUserTyping      EventName = "user_typing"
	EventUserStopTyping  EventName = "user_stop_typing"
)

func (n EventName) String() string {
	return string(n)
}

// Event is what a connected participant receives.
// Payload is kept as raw JSON so it reaches the socket untouched.
type Event struct {
	Name    EventName       `json:"event" msgpack:"n"`
	Payload json.RawMessage `json:"data" msgpack:"p"`
}

func NewEvent(name EventName, payload any) (Event, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("json marshal %s event payload: %w", name, err)
	}

	return Event{Name: name, Payload: b}, nil
}

type NewMessagePayload struct {
	ConversationID string   `json:"conversationID"`
	Message        Message  `json:"message"`
	Sender         *Profile `json:"sender,omitempty"`
}

type MessageDeletedPayload struct {
	ConversationID string `json:"conversationID"`
	MessageID      string `json:"messageID"`
}

type MessageEditedPayload struct {
	ConversationID string  `json:"conversationID"`
	Message        Message `json:"message"`
}

type MessageReactionPayload struct {
	ConversationID string `json:"conversationID"`
	MessageID      string `json:"messageID"`
	ReactorID      string `json:"reactorID"`
	Emoji          string `json:"emoji"`
}

type TypingPayload struct {
	ConversationID string `json:"conversationID"`
	UserID         string `json:"userID"`
}
