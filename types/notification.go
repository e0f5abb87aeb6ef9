package types

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/batimarket/batimarket/validator"
)

type Notification struct {
	ID        string               `json:"id" db:"id"`
	UserID    string               `json:"userID" db:"user_id"`
	Kind      NotificationKind     `json:"kind" db:"kind"`
	Message   string               `json:"message" db:"message"`
	Title     *string              `json:"title" db:"title"`
	Link      *string              `json:"link" db:"link"`
	Priority  NotificationPriority `json:"priority" db:"priority"`
	ReadAt    *time.Time           `json:"readAt" db:"read_at"`
	CreatedAt time.Time            `json:"createdAt" db:"created_at"`
}

func (n Notification) Read() bool {
	return n.ReadAt != nil
}

type NotificationKind string

func (k NotificationKind) String() string {
	return string(k)
}

const (
	NotificationKindNewProduct  NotificationKind = "new_product"
	NotificationKindMessage     NotificationKind = "message"
	NotificationKindReply       NotificationKind = "reply"
	NotificationKindOrder       NotificationKind = "order"
	NotificationKindLowStock    NotificationKind = "low_stock"
	NotificationKindPriceChange NotificationKind = "price_change"
)

func (k NotificationKind) Valid() bool {
	switch k {
	case NotificationKindNewProduct,
		NotificationKindMessage,
		NotificationKindReply,
		NotificationKindOrder,
		NotificationKindLowStock,
		NotificationKindPriceChange:
		return true
	}
	return false
}

// DefaultPriority used when a notification is created without one.
func (k NotificationKind) DefaultPriority() NotificationPriority {
	switch k {
	case NotificationKindOrder, NotificationKindLowStock:
		return NotificationPriorityHigh
	}
	return NotificationPriorityNormal
}

type NotificationPriority string

const (
	NotificationPriorityLow    NotificationPriority = "low"
	NotificationPriorityNormal NotificationPriority = "normal"
	NotificationPriorityHigh   NotificationPriority = "high"
)

func (p NotificationPriority) Valid() bool {
	switch p {
	case NotificationPriorityLow, NotificationPriorityNormal, NotificationPriorityHigh:
		return true
	}
	return false
}

const notificationMessageMaxLength = 500

type CreateNotification struct {
	UserID   string
	Kind     NotificationKind
	Message  string
	Title    *string
	Link     *string
	Priority NotificationPriority
}

func (in *CreateNotification) Validate() error {
	v := validator.New()

	in.Message = strings.TrimSpace(in.Message)
	if in.Priority == "" {
		in.Priority = in.Kind.DefaultPriority()
	}

	v.CheckID(in.UserID, "UserID", "User ID")
	v.Check(in.Kind.Valid(), "Kind", "Kind is invalid")
	v.Check(in.Message != "", "Message", "Message is required")
	v.Check(utf8.RuneCountInString(in.Message) <= notificationMessageMaxLength, "Message", "Message is too long")
	v.Check(in.Priority.Valid(), "Priority", "Priority is invalid")

	return v.AsError()
}

type ListNotifications struct {
	PageArgs   PageArgs
	UnreadOnly bool

	loggedInUserID string
}

func (in *ListNotifications) SetLoggedInUserID(userID string) {
	in.loggedInUserID = userID
}

func (in ListNotifications) LoggedInUserID() string {
	return in.loggedInUserID
}

func (in *ListNotifications) Validate() error {
	return in.PageArgs.Validate()
}

type ReadNotification struct {
	NotificationID string

	loggedInUserID string
}

func (in *ReadNotification) SetLoggedInUserID(userID string) {
	in.loggedInUserID = userID
}

func (in ReadNotification) LoggedInUserID() string {
	return in.loggedInUserID
}

func (in *ReadNotification) Validate() error {
	v := validator.New()
	v.CheckID(in.NotificationID, "NotificationID", "Notification ID")
	return v.AsError()
}

type DeleteNotification struct {
	NotificationID string

	loggedInUserID string
}

func (in *DeleteNotification) SetLoggedInUserID(userID string) {
	in.loggedInUserID = userID
}

func (in DeleteNotification) LoggedInUserID() string {
	return in.loggedInUserID
}

func (in *DeleteNotification) Validate() error {
	v := validator.New()
	v.CheckID(in.NotificationID, "NotificationID", "Notification ID")
	return v.AsError()
}

// MessageNotification tells userID that senderName wrote to them.
func MessageNotification(userID, senderName string, reply bool) CreateNotification {
	kind := NotificationKindMessage
	title := "Nouveau message"
	if reply {
		kind = NotificationKindReply
		title = "Nouvelle réponse"
	}

	return CreateNotification{
		UserID:  userID,
		Kind:    kind,
		Message: fmt.Sprintf("Nouveau message de %s", senderName),
		Title:   new(title),
		Link:    new("/messaging"),
	}
}

// The catalog, stock and order constructors below build the texts for
// business flows outside messaging, which deliver them through Service.Notify.

// NewProductNotification tells a client a supplier listed a new product.
func NewProductNotification(userID, productName string) CreateNotification {
	return CreateNotification{
		UserID:  userID,
		Kind:    NotificationKindNewProduct,
		Message: fmt.Sprintf("Nouveau produit disponible: %s", productName),
		Title:   new("Nouveau produit"),
	}
}

// LowStockNotification warns a supplier; it defaults to high priority.
func LowStockNotification(userID, productName string, stock int) CreateNotification {
	return CreateNotification{
		UserID:  userID,
		Kind:    NotificationKindLowStock,
		Message: fmt.Sprintf("Stock faible pour %s: %d unités restantes", productName, stock),
		Title:   new("Stock faible"),
	}
}

// PriceChangeNotification tells a client a product price changed. Prices are in GNF.
func PriceChangeNotification(userID, productName string, oldPrice, newPrice float64) CreateNotification {
	return CreateNotification{
		UserID:  userID,
		Kind:    NotificationKindPriceChange,
		Message: fmt.Sprintf("Prix modifié pour %s: %.0f GNF → %.0f GNF", productName, oldPrice, newPrice),
		Title:   new("Prix modifié"),
	}
}

// OrderNotification tells a supplier a client ordered from them.
func OrderNotification(userID, orderDetails string) CreateNotification {
	return CreateNotification{
		UserID:  userID,
		Kind:    NotificationKindOrder,
		Message: fmt.Sprintf("Nouvelle commande: %s", orderDetails),
		Title:   new("Nouvelle commande"),
		Link:    new("/my-products"),
	}
}

// ProductInterestNotification tells a supplier that a client asked about one of their products.
func ProductInterestNotification(supplierID, clientName, productName string) CreateNotification {
	return CreateNotification{
		UserID:  supplierID,
		Kind:    NotificationKindMessage,
		Message: fmt.Sprintf("%s s'intéresse à votre produit %q", clientName, productName),
		Title:   new("Nouveau message produit"),
		Link:    new("/messaging"),
	}
}
