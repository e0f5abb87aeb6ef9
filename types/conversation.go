package types

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/batimarket/batimarket/validator"
)

type Conversation struct {
	ID string `json:"id"`
	// Participants are stored with the lowest id first.
	Participants   [2]Participant `json:"participants"`
	LastMessageID  *string        `json:"lastMessageID"`
	LastActivityAt time.Time      `json:"lastActivityAt"`
	Blocked        bool           `json:"blocked"`
	BlockedBy      *string        `json:"blockedBy"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`

	// Viewer dependent fields.
	UnreadCount      int64    `json:"unreadCount"`
	OtherParticipant *Profile `json:"otherParticipant,omitempty"`
	LastMessage      *Message `json:"lastMessage,omitempty"`
}

func (c Conversation) HasParticipant(userID string) bool {
	_, ok := c.Participant(userID)
	return ok
}

func (c Conversation) Participant(userID string) (Participant, bool) {
	for _, p := range c.Participants {
		if p.ID == userID {
			return p, true
		}
	}
	return Participant{}, false
}

// Other returns the participant that is not userID.
func (c Conversation) Other(userID string) (Participant, bool) {
	switch userID {
	case c.Participants[0].ID:
		return c.Participants[1], true
	case c.Participants[1].ID:
		return c.Participants[0], true
	}
	return Participant{}, false
}

// ParticipantIDs returns both participant ids.
func (c Conversation) ParticipantIDs() []string {
	return []string{c.Participants[0].ID, c.Participants[1].ID}
}

// CanonicalPair orders two participants by id so that an unordered pair
// always maps to the same stored row.
func CanonicalPair(a, b Participant) [2]Participant {
	if b.ID < a.ID {
		return [2]Participant{b, a}
	}
	return [2]Participant{a, b}
}

type RetrieveConversation struct {
	ConversationID string

	loggedInUserID string
}

func (in *RetrieveConversation) SetLoggedInUserID(userID string) {
	in.loggedInUserID = userID
}

func (in RetrieveConversation) LoggedInUserID() string {
	return in.loggedInUserID
}

func (in *RetrieveConversation) Validate() error {
	v := validator.New()
	v.CheckID(in.ConversationID, "ConversationID", "Conversation ID")
	return v.AsError()
}

type StartConversation struct {
	OtherUserID string `json:"participantID"`

	loggedInUserID string
}

func (in *StartConversation) SetLoggedInUserID(userID string) {
	in.loggedInUserID = userID
}

func (in StartConversation) LoggedInUserID() string {
	return in.loggedInUserID
}

func (in *StartConversation) Validate() error {
	v := validator.New()
	v.CheckID(in.OtherUserID, "OtherUserID", "Other user ID")
	return v.AsError()
}

// CreateConversation is the store input for a new conversation.
// Both participants are already resolved.
type CreateConversation struct {
	Participants [2]Participant
}

type ListConversations struct {
	loggedInUserID string
}

func (in *ListConversations) SetLoggedInUserID(userID string) {
	in.loggedInUserID = userID
}

func (in ListConversations) LoggedInUserID() string {
	return in.loggedInUserID
}

const maxSearchQueryLength = 100

type SearchConversations struct {
	Query string

	loggedInUserID string
}

func (in *SearchConversations) SetLoggedInUserID(userID string) {
	in.loggedInUserID = userID
}

func (in SearchConversations) LoggedInUserID() string {
	return in.loggedInUserID
}

func (in *SearchConversations) Validate() error {
	v := validator.New()

	in.Query = strings.TrimSpace(in.Query)

	v.Check(in.Query != "", "Query", "Search query is required")
	v.Check(utf8.RuneCountInString(in.Query) <= maxSearchQueryLength, "Query", "Search query is too long")

	return v.AsError()
}

type BlockConversation struct {
	ConversationID string `json:"-"`
	Blocked        bool   `json:"blocked"`

	loggedInUserID string
}

func (in *BlockConversation) SetLoggedInUserID(userID string) {
	in.loggedInUserID = userID
}

func (in BlockConversation) LoggedInUserID() string {
	return in.loggedInUserID
}

func (in *BlockConversation) Validate() error {
	v := validator.New()
	v.CheckID(in.ConversationID, "ConversationID", "Conversation ID")
	return v.AsError()
}

// TouchConversation points the conversation to its latest message.
type TouchConversation struct {
	ConversationID string
	MessageID      string
	At             time.Time
}

type MarkConversationRead struct {
	ConversationID string

	loggedInUserID string
}

func (in *MarkConversationRead) SetLoggedInUserID(userID string) {
	in.loggedInUserID = userID
}

func (in MarkConversationRead) LoggedInUserID() string {
	return in.loggedInUserID
}

func (in *MarkConversationRead) Validate() error {
	v := validator.New()
	v.CheckID(in.ConversationID, "ConversationID", "Conversation ID")
	return v.AsError()
}

type MarkedRead struct {
	ConversationID string `json:"conversationID"`
	MarkedCount    int64  `json:"markedCount"`
}

type Typing struct {
	ConversationID string `json:"conversationID"`
	Typing         bool   `json:"typing"`

	loggedInUserID string
}

func (in *Typing) SetLoggedInUserID(userID string) {
	in.loggedInUserID = userID
}

func (in Typing) LoggedInUserID() string {
	return in.loggedInUserID
}

func (in *Typing) Validate() error {
	v := validator.New()
	v.CheckID(in.ConversationID, "ConversationID", "Conversation ID")
	return v.AsError()
}
