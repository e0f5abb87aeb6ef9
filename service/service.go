package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/batimarket/batimarket/auth"
	"github.com/batimarket/batimarket/errs"
	"github.com/batimarket/batimarket/types"
)

//go:generate go tool moq -out mock_test.go . Publisher Pusher

// Identities resolves user ids into suppliers or clients.
type Identities interface {
	Participant(ctx context.Context, userID string) (types.Participant, error)
	Profile(ctx context.Context, p types.Participant) (types.Profile, error)
}

type Products interface {
	Product(ctx context.Context, productID string) (types.Product, error)
}

type Conversations interface {
	ConversationFromParticipants(ctx context.Context, a, b types.Participant) (types.Conversation, error)
	CreateConversation(ctx context.Context, in types.CreateConversation) (types.Conversation, error)
	Conversation(ctx context.Context, conversationID string) (types.Conversation, error)
	UnreadCount(ctx context.Context, conversationID, userID string) (int64, error)
	TouchConversation(ctx context.Context, in types.TouchConversation) error
	SetConversationBlocked(ctx context.Context, conversationID, byUserID string, blocked bool) (types.Conversation, error)
	Conversations(ctx context.Context, userID string) ([]types.Conversation, error)
	SearchConversations(ctx context.Context, userID, query string) ([]types.Conversation, error)
}

type Messages interface {
	CreateMessage(ctx context.Context, in types.CreateMessage) (types.Message, error)
	Message(ctx context.Context, messageID string) (types.Message, error)
	Messages(ctx context.Context, in types.ListMessages) ([]types.Message, error)
	LastMessage(ctx context.Context, conversationID string) (types.Message, error)
	MarkConversationRead(ctx context.Context, conversationID, readerID string) (int64, error)
	EditMessage(ctx context.Context, messageID, senderID, content string) (types.Message, error)
	DeleteMessage(ctx context.Context, messageID, senderID string) (types.Message, bool, error)
	ReactToMessage(ctx context.Context, messageID, reactorID, emoji string) (types.Message, error)
}

type Notifications interface {
	CreateNotification(ctx context.Context, in types.CreateNotification) (types.Notification, error)
	Notifications(ctx context.Context, in types.ListNotifications) (types.Page[types.Notification], error)
	UnreadNotificationsCount(ctx context.Context, userID string) (int64, error)
	ReadNotification(ctx context.Context, in types.ReadNotification) (types.Notification, error)
	ReadAllNotifications(ctx context.Context, userID string) (int64, error)
	DeleteNotification(ctx context.Context, in types.DeleteNotification) error
	UpsertWebPushSubscription(ctx context.Context, in types.SubscribeWebPush) error
	DeleteWebPushSubscription(ctx context.Context, userID, endpoint string) error
}

// Store is everything the service persists.
// [*cockroach.Cockroach] implements it.
type Store interface {
	Identities
	Products
	Conversations
	Messages
	Notifications
}

// Publisher fans events out to the sockets of a user.
type Publisher interface {
	Publish(ctx context.Context, userID string, ev types.Event) error
}

// Pusher delivers a notification outside of the app.
type Pusher interface {
	Push(ctx context.Context, n types.Notification) error
}

type Config struct {
	Store             Store
	Publisher         Publisher
	Pusher            Pusher
	Logger            *slog.Logger
	Metrics           *Metrics
	BaseCtx           context.Context
	BackgroundTimeout time.Duration
}

type Service struct {
	Store     Store
	Publisher Publisher
	Pusher    Pusher
	Logger    *slog.Logger
	Metrics   *Metrics

	baseCtx           context.Context
	backgroundTimeout time.Duration
	wg                sync.WaitGroup
	errs              chan error
}

func New(cfg *Config) *Service {
	return &Service{
		Store:     cfg.Store,
		Publisher: cfg.Publisher,
		Pusher:    cfg.Pusher,
		Logger:    cfg.Logger,
		Metrics:   cfg.Metrics,

		baseCtx:           cfg.BaseCtx,
		backgroundTimeout: cfg.BackgroundTimeout,
		errs:              make(chan error, 1),
	}
}

func (svc *Service) Errs() <-chan error {
	return svc.errs
}

// Close waits for background work to finish.
func (svc *Service) Close() error {
	svc.wg.Wait()
	close(svc.errs)
	return nil
}

func (svc *Service) background(fn func(ctx context.Context) error) {
	svc.wg.Go(func() {
		defer func() {
			if rcv := recover(); rcv != nil {
				select {
				case svc.errs <- fmt.Errorf("service background panic: %v", rcv):
				default:
				}
			}
		}()

		ctx, cancel := context.WithTimeout(svc.baseCtx, svc.backgroundTimeout)
		defer cancel()

		if err := fn(ctx); err != nil {
			select {
			case svc.errs <- fmt.Errorf("service background error: %w", err):
			default:
			}
		}
	})
}

// caller returns the verified participant behind ctx.
func caller(ctx context.Context) (types.Participant, error) {
	loggedInUser, loggedIn := auth.UserFromContext(ctx)
	if !loggedIn {
		return types.Participant{}, errs.Unauthenticated
	}

	return types.Participant{ID: loggedInUser.UserID, Kind: loggedInUser.Kind}, nil
}

// publish hands ev to userID sockets. Failures are logged and swallowed:
// a delivered message never fails because a socket could not be reached.
func (svc *Service) publish(ctx context.Context, userID string, name types.EventName, payload any) {
	ev, err := types.NewEvent(name, payload)
	if err != nil {
		svc.Logger.Error("build realtime event", "event", name, "user_id", userID, "error", err)
		return
	}

	if err := svc.Publisher.Publish(ctx, userID, ev); err != nil {
		svc.Logger.Error("publish realtime event", "event", name, "user_id", userID, "error", err)
	}
}
