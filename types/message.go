package types

import (
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/batimarket/batimarket/emoji"
	"github.com/batimarket/batimarket/id"
	"github.com/batimarket/batimarket/textutil"
	"github.com/batimarket/batimarket/validator"
)

const (
	messageContentMaxLength = 4000
	maxAttachments          = 5
)

type MessageKind string

const (
	MessageKindText    MessageKind = "text"
	MessageKindImage   MessageKind = "image"
	MessageKindFile    MessageKind = "file"
	MessageKindProduct MessageKind = "product"
	MessageKindSystem  MessageKind = "system"
)

func (k MessageKind) String() string {
	return string(k)
}

// Sendable reports whether a participant may send this kind directly.
// Product messages go through the product conversation flow and system
// messages are never authored by participants.
func (k MessageKind) Sendable() bool {
	switch k {
	case MessageKindText, MessageKindImage, MessageKindFile:
		return true
	}
	return false
}

type Message struct {
	ID             string           `json:"id" db:"id"`
	ConversationID string           `json:"conversationID" db:"conversation_id"`
	SenderID       string           `json:"senderID" db:"sender_id"`
	SenderKind     ParticipantKind  `json:"senderKind" db:"sender_kind"`
	Kind           MessageKind      `json:"kind" db:"kind"`
	Content        string           `json:"content" db:"content"`
	Attachments    []Attachment     `json:"attachments" db:"attachments"`
	Product        *ProductSnapshot `json:"product" db:"product"`
	ReadBy         []ReadReceipt    `json:"readBy" db:"read_by"`
	Reactions      []Reaction       `json:"reactions" db:"reactions"`
	ReplyToID      *string          `json:"replyToID" db:"reply_to_id"`
	IsEdited       bool             `json:"isEdited" db:"is_edited"`
	EditedAt       *time.Time       `json:"editedAt" db:"edited_at"`
	IsDeleted      bool             `json:"isDeleted" db:"is_deleted"`
	DeletedAt      *time.Time       `json:"deletedAt" db:"deleted_at"`
	CreatedAt      time.Time        `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time        `json:"updatedAt" db:"updated_at"`
}

// Redacted returns the outward view of the message.
// Soft-deleted messages keep their stored content but never show it.
func (m Message) Redacted() Message {
	if !m.IsDeleted {
		return m
	}

	m.Content = ""
	m.Attachments = []Attachment{}
	m.Product = nil
	m.Reactions = []Reaction{}
	return m
}

// ReadByUser reports whether userID has a read entry.
func (m Message) ReadByUser(userID string) bool {
	for _, r := range m.ReadBy {
		if r.ReaderID == userID {
			return true
		}
	}
	return false
}

// ReactionOf returns the emoji userID reacted with, if any.
func (m Message) ReactionOf(userID string) (string, bool) {
	for _, r := range m.Reactions {
		if r.ReactorID == userID {
			return r.Emoji, true
		}
	}
	return "", false
}

type ReadReceipt struct {
	ReaderID string    `json:"readerID"`
	ReadAt   time.Time `json:"readAt"`
}

type Reaction struct {
	ReactorID string `json:"reactorID"`
	Emoji     string `json:"emoji"`
}

type SendMessage struct {
	ConversationID string       `json:"-"`
	Kind           MessageKind  `json:"kind"`
	Content        string       `json:"content"`
	Attachments    []Attachment `json:"attachments"`
	ReplyToID      *string      `json:"replyToID"`

	loggedInUserID string
}

func (in *SendMessage) SetLoggedInUserID(userID string) {
	in.loggedInUserID = userID
}

func (in SendMessage) LoggedInUserID() string {
	return in.loggedInUserID
}

func (in *SendMessage) Validate() error {
	v := validator.New()

	in.Content = textutil.SmartTrim(in.Content)
	if in.Kind == "" {
		in.Kind = MessageKindText
	}

	v.CheckID(in.ConversationID, "ConversationID", "Conversation ID")
	v.Check(in.Kind.Sendable(), "Kind", "Kind must be one of text, image or file")
	v.Check(in.Content != "", "Content", "Content is required")
	v.Check(utf8.RuneCountInString(in.Content) <= messageContentMaxLength, "Content", "Content is too long")
	v.Check(len(in.Attachments) <= maxAttachments, "Attachments", "Too many attachments")

	for _, a := range in.Attachments {
		if err := a.Validate(); err != nil {
			v.AddError("Attachments", err.Error())
			break
		}
	}

	if in.ReplyToID != nil {
		v.Check(id.Valid(*in.ReplyToID), "ReplyToID", "Reply to ID is invalid")
	}

	return v.AsError()
}

type SendProductMessage struct {
	ProductID string `json:"productID"`
	// SupplierID defaults to the product owner.
	SupplierID string `json:"supplierID"`

	loggedInUserID string
}

func (in *SendProductMessage) SetLoggedInUserID(userID string) {
	in.loggedInUserID = userID
}

func (in SendProductMessage) LoggedInUserID() string {
	return in.loggedInUserID
}

func (in *SendProductMessage) Validate() error {
	v := validator.New()

	v.CheckID(in.ProductID, "ProductID", "Product ID")
	if in.SupplierID != "" {
		v.Check(id.Valid(in.SupplierID), "SupplierID", "Supplier ID is invalid")
	}

	return v.AsError()
}

type ProductConversation struct {
	Conversation Conversation `json:"conversation"`
	Message      Message      `json:"message"`
}

// CreateMessage is the store input for a new message.
type CreateMessage struct {
	ConversationID string
	Sender         Participant
	Kind           MessageKind
	Content        string
	Attachments    []Attachment
	Product        *ProductSnapshot
	ReplyToID      *string
}

type RetrieveMessage struct {
	MessageID string

	loggedInUserID string
}

func (in *RetrieveMessage) SetLoggedInUserID(userID string) {
	in.loggedInUserID = userID
}

func (in RetrieveMessage) LoggedInUserID() string {
	return in.loggedInUserID
}

func (in *RetrieveMessage) Validate() error {
	v := validator.New()
	v.CheckID(in.MessageID, "MessageID", "Message ID")
	return v.AsError()
}

const (
	DefaultMessagesPageSize = 50
	maxMessagesPageSize     = 200
)

type ListMessages struct {
	ConversationID string
	// Page is 1-indexed.
	Page     uint
	PageSize uint

	loggedInUserID string
}

func (in *ListMessages) SetLoggedInUserID(userID string) {
	in.loggedInUserID = userID
}

func (in ListMessages) LoggedInUserID() string {
	return in.loggedInUserID
}

func (in *ListMessages) Validate() error {
	v := validator.New()

	if in.Page == 0 {
		in.Page = 1
	}
	if in.PageSize == 0 {
		in.PageSize = DefaultMessagesPageSize
	}

	v.CheckID(in.ConversationID, "ConversationID", "Conversation ID")
	v.Check(in.PageSize <= maxMessagesPageSize, "PageSize", "Page size overflow")
	v.Check(in.Page <= math.MaxInt64/in.PageSize+1, "Page", "Page overflow")

	return v.AsError()
}

// Offset of the first row of the page, newest first.
func (in ListMessages) Offset() uint {
	return (in.Page - 1) * in.PageSize
}

type EditMessage struct {
	MessageID string `json:"-"`
	Content   string `json:"content"`

	loggedInUserID string
}

func (in *EditMessage) SetLoggedInUserID(userID string) {
	in.loggedInUserID = userID
}

func (in EditMessage) LoggedInUserID() string {
	return in.loggedInUserID
}

func (in *EditMessage) Validate() error {
	v := validator.New()

	in.Content = textutil.SmartTrim(in.Content)

	v.CheckID(in.MessageID, "MessageID", "Message ID")
	v.Check(in.Content != "", "Content", "Content is required")
	v.Check(utf8.RuneCountInString(in.Content) <= messageContentMaxLength, "Content", "Content is too long")

	return v.AsError()
}

type DeleteMessage struct {
	MessageID string

	loggedInUserID string
}

func (in *DeleteMessage) SetLoggedInUserID(userID string) {
	in.loggedInUserID = userID
}

func (in DeleteMessage) LoggedInUserID() string {
	return in.loggedInUserID
}

func (in *DeleteMessage) Validate() error {
	v := validator.New()
	v.CheckID(in.MessageID, "MessageID", "Message ID")
	return v.AsError()
}

type ReactToMessage struct {
	MessageID string `json:"-"`
	Emoji     string `json:"emoji"`

	loggedInUserID string
}

func (in *ReactToMessage) SetLoggedInUserID(userID string) {
	in.loggedInUserID = userID
}

func (in ReactToMessage) LoggedInUserID() string {
	return in.loggedInUserID
}

func (in *ReactToMessage) Validate() error {
	v := validator.New()

	in.Emoji = strings.TrimSpace(in.Emoji)

	v.CheckID(in.MessageID, "MessageID", "Message ID")
	v.Check(emoji.IsValid(in.Emoji), "Emoji", "Emoji is invalid")

	return v.AsError()
}
