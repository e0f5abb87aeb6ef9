package service

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/batimarket/batimarket/auth"
	"github.com/batimarket/batimarket/types"
	"github.com/prometheus/client_golang/prometheus"
)

type testEnv struct {
	svc       *Service
	store     *fakeStore
	publisher *PublisherMock
	pusher    *PusherMock
}

func setupTest(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		store: newFakeStore(),
		publisher: &PublisherMock{
			PublishFunc: func(ctx context.Context, userID string, ev types.Event) error {
				return nil
			},
		},
		pusher: &PusherMock{
			PushFunc: func(ctx context.Context, n types.Notification) error {
				return nil
			},
		},
	}

	env.svc = New(&Config{
		Store:             env.store,
		Publisher:         env.publisher,
		Pusher:            env.pusher,
		Logger:            slog.New(slog.DiscardHandler),
		Metrics:           NewMetrics(prometheus.NewRegistry()),
		BaseCtx:           context.Background(),
		BackgroundTimeout: time.Second,
	})

	return env
}

// events returns the names of the events published to userID, in order.
func (env *testEnv) events(userID string) []types.EventName {
	var out []types.EventName
	for _, call := range env.publisher.PublishCalls() {
		if call.UserID == userID {
			out = append(out, call.Ev.Name)
		}
	}
	return out
}

func asUser(p types.Participant) context.Context {
	return auth.ContextWithUser(context.Background(), types.Principal{UserID: p.ID, Kind: p.Kind})
}

// conversationBetween starts the conversation a has with b.
func (env *testEnv) conversationBetween(t *testing.T, a, b types.Participant) types.Conversation {
	t.Helper()

	c, err := env.svc.StartConversation(asUser(a), types.StartConversation{OtherUserID: b.ID})
	if err != nil {
		t.Fatalf("start conversation: %v", err)
	}
	return c
}

func (env *testEnv) send(t *testing.T, from types.Participant, conversationID, content string) types.Message {
	t.Helper()

	msg, err := env.svc.SendMessage(asUser(from), types.SendMessage{
		ConversationID: conversationID,
		Content:        content,
	})
	if err != nil {
		t.Fatalf("send message %q: %v", content, err)
	}
	return msg
}
