package service

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"testing"

	"github.com/batimarket/batimarket/errs"
	"github.com/batimarket/batimarket/id"
	"github.com/batimarket/batimarket/types"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestService_SendMessage(t *testing.T) {
	env := setupTest(t)
	client := env.store.addProfile(types.ParticipantKindClient, "Mariama")
	supplier := env.store.addProfile(types.ParticipantKindSupplier, "Ciments Conakry")
	c := env.conversationBetween(t, client, supplier)

	first := env.send(t, client, c.ID, "Bonjour, avez-vous du ciment ?")
	env.send(t, supplier, c.ID, "Oui, 50 sacs en stock")
	third := env.send(t, client, c.ID, "Parfait, je passe demain")

	t.Run("chronological", func(t *testing.T) {
		msgs, err := env.svc.Messages(asUser(supplier), types.ListMessages{ConversationID: c.ID})
		if err != nil {
			t.Fatal(err)
		}

		var contents []string
		for _, m := range msgs {
			contents = append(contents, m.Content)
		}

		want := []string{"Bonjour, avez-vous du ciment ?", "Oui, 50 sacs en stock", "Parfait, je passe demain"}
		if !slices.Equal(contents, want) {
			t.Fatalf("want %q; got %q", want, contents)
		}

		if msgs[0].ID != first.ID || msgs[2].ID != third.ID {
			t.Error("unexpected message ids")
		}
	})

	t.Run("paged", func(t *testing.T) {
		msgs, err := env.svc.Messages(asUser(client), types.ListMessages{ConversationID: c.ID, Page: 1, PageSize: 2})
		if err != nil {
			t.Fatal(err)
		}

		if len(msgs) != 2 || msgs[1].ID != third.ID {
			t.Fatalf("first page should hold the two newest messages; got %+v", msgs)
		}

		msgs, err = env.svc.Messages(asUser(client), types.ListMessages{ConversationID: c.ID, Page: 2, PageSize: 2})
		if err != nil {
			t.Fatal(err)
		}

		if len(msgs) != 1 || msgs[0].ID != first.ID {
			t.Fatalf("second page should hold the oldest message; got %+v", msgs)
		}

		msgs, err = env.svc.Messages(asUser(client), types.ListMessages{ConversationID: c.ID, Page: 3, PageSize: 2})
		if err != nil {
			t.Fatal(err)
		}

		if msgs == nil || len(msgs) != 0 {
			t.Fatalf("want an empty non nil page; got %#v", msgs)
		}
	})

	t.Run("conversation_touched", func(t *testing.T) {
		got, err := env.svc.Conversation(asUser(supplier), types.RetrieveConversation{ConversationID: c.ID})
		if err != nil {
			t.Fatal(err)
		}

		if got.LastMessageID == nil || *got.LastMessageID != third.ID {
			t.Errorf("want last message %q; got %v", third.ID, got.LastMessageID)
		}

		if !got.LastActivityAt.Equal(third.CreatedAt) {
			t.Errorf("want last activity %v; got %v", third.CreatedAt, got.LastActivityAt)
		}

		if got.UnreadCount != 2 {
			t.Errorf("want 2 unread messages for the supplier; got %d", got.UnreadCount)
		}
	})

	t.Run("fan_out", func(t *testing.T) {
		want := []types.EventName{types.EventNotification, types.EventNewMessage, types.EventNotification, types.EventNewMessage}
		if got := env.events(supplier.ID); !slices.Equal(got, want) {
			t.Errorf("want supplier events %v; got %v", want, got)
		}

		want = []types.EventName{types.EventNotification, types.EventNewMessage}
		if got := env.events(client.ID); !slices.Equal(got, want) {
			t.Errorf("want client events %v; got %v", want, got)
		}

		var payload types.NewMessagePayload
		for _, call := range env.publisher.PublishCalls() {
			if call.Ev.Name == types.EventNewMessage && call.UserID == client.ID {
				if err := json.Unmarshal(call.Ev.Payload, &payload); err != nil {
					t.Fatal(err)
				}
			}
		}

		if payload.ConversationID != c.ID || payload.Sender == nil || payload.Sender.Name != "Ciments Conakry" {
			t.Errorf("unexpected new message payload: %+v", payload)
		}

		notifications := env.store.notificationsOf(supplier.ID)
		if len(notifications) != 2 {
			t.Fatalf("want 2 notifications for the supplier; got %d", len(notifications))
		}

		n := notifications[0]
		if n.Kind != types.NotificationKindMessage || n.Priority != types.NotificationPriorityNormal || n.Message != "Nouveau message de Mariama" {
			t.Errorf("unexpected notification: %+v", n)
		}

		if got := testutil.ToFloat64(env.svc.Metrics.MessagesSent.WithLabelValues("text")); got != 3 {
			t.Errorf("want 3 text messages counted; got %v", got)
		}
	})
}

func TestService_SendMessage_reply(t *testing.T) {
	env := setupTest(t)
	client := env.store.addProfile(types.ParticipantKindClient, "Mariama")
	supplier := env.store.addProfile(types.ParticipantKindSupplier, "Ciments Conakry")
	other := env.store.addProfile(types.ParticipantKindSupplier, "Fer Kaloum")
	c := env.conversationBetween(t, client, supplier)
	elsewhere := env.conversationBetween(t, client, other)

	original := env.send(t, supplier, c.ID, "Prix du sac ?")
	foreign := env.send(t, other, elsewhere.ID, "Promo sur le fer")

	reply, err := env.svc.SendMessage(asUser(client), types.SendMessage{
		ConversationID: c.ID,
		Content:        "85 000 GNF",
		ReplyToID:      &original.ID,
	})
	if err != nil {
		t.Fatal(err)
	}

	if reply.ReplyToID == nil || *reply.ReplyToID != original.ID {
		t.Errorf("want reply to %q; got %v", original.ID, reply.ReplyToID)
	}

	notifications := env.store.notificationsOf(supplier.ID)
	if len(notifications) != 1 || notifications[0].Kind != types.NotificationKindReply {
		t.Errorf("want a reply notification; got %+v", notifications)
	}

	_, err = env.svc.SendMessage(asUser(client), types.SendMessage{
		ConversationID: c.ID,
		Content:        "mauvais fil",
		ReplyToID:      &foreign.ID,
	})
	if !errs.IsInvalidArgument(err) {
		t.Errorf("want invalid argument replying across conversations; got %v", err)
	}
}

func TestService_SendMessage_rejected(t *testing.T) {
	env := setupTest(t)
	client := env.store.addProfile(types.ParticipantKindClient, "Mariama")
	supplier := env.store.addProfile(types.ParticipantKindSupplier, "Ciments Conakry")
	stranger := env.store.addProfile(types.ParticipantKindClient, "Ibrahima")
	c := env.conversationBetween(t, client, supplier)

	tt := []struct {
		name    string
		ctx     context.Context
		in      types.SendMessage
		wantErr func(error) bool
	}{
		{
			name:    "unauthenticated",
			ctx:     context.Background(),
			in:      types.SendMessage{ConversationID: c.ID, Content: "hello"},
			wantErr: errs.IsUnauthenticated,
		},
		{
			name: "empty_content",
			ctx:  asUser(client),
			in:   types.SendMessage{ConversationID: c.ID, Content: "   "},
			wantErr: func(err error) bool {
				return err != nil && errs.KindOf(err) == ""
			},
		},
		{
			name: "product_kind",
			ctx:  asUser(client),
			in:   types.SendMessage{ConversationID: c.ID, Kind: types.MessageKindProduct, Content: "hello"},
			wantErr: func(err error) bool {
				return err != nil && errs.KindOf(err) == ""
			},
		},
		{
			name:    "stranger",
			ctx:     asUser(stranger),
			in:      types.SendMessage{ConversationID: c.ID, Content: "hello"},
			wantErr: errs.IsPermissionDenied,
		},
		{
			name:    "unknown_conversation",
			ctx:     asUser(client),
			in:      types.SendMessage{ConversationID: id.Generate(), Content: "hello"},
			wantErr: errs.IsNotFound,
		},
	}
	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.svc.SendMessage(tc.ctx, tc.in)
			if !tc.wantErr(err) {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}

	if n := env.store.messageCount(); n != 0 {
		t.Errorf("no message should have been stored; got %d", n)
	}
}

func TestService_SendMessage_blocked(t *testing.T) {
	env := setupTest(t)
	client := env.store.addProfile(types.ParticipantKindClient, "Mariama")
	supplier := env.store.addProfile(types.ParticipantKindSupplier, "Ciments Conakry")
	c := env.conversationBetween(t, client, supplier)

	if _, err := env.svc.BlockConversation(asUser(supplier), types.BlockConversation{ConversationID: c.ID, Blocked: true}); err != nil {
		t.Fatal(err)
	}

	for _, sender := range []types.Participant{client, supplier} {
		_, err := env.svc.SendMessage(asUser(sender), types.SendMessage{ConversationID: c.ID, Content: "hello"})
		if !errs.IsPermissionDenied(err) {
			t.Errorf("%s: want permission denied; got %v", sender.Kind, err)
		}
	}

	if n := env.store.messageCount(); n != 0 {
		t.Errorf("want no message; got %d", n)
	}

	if n := len(env.store.notificationsOf(client.ID)) + len(env.store.notificationsOf(supplier.ID)); n != 0 {
		t.Errorf("want no notification; got %d", n)
	}

	if calls := env.publisher.PublishCalls(); len(calls) != 0 {
		t.Errorf("want no event; got %d", len(calls))
	}
}

func TestService_SendMessage_publishFailure(t *testing.T) {
	env := setupTest(t)
	env.publisher.PublishFunc = func(ctx context.Context, userID string, ev types.Event) error {
		return errs.NewUnavailableError("publish event", errors.New("nats: no servers available"))
	}

	client := env.store.addProfile(types.ParticipantKindClient, "Mariama")
	supplier := env.store.addProfile(types.ParticipantKindSupplier, "Ciments Conakry")
	c := env.conversationBetween(t, client, supplier)

	msg, err := env.svc.SendMessage(asUser(client), types.SendMessage{ConversationID: c.ID, Content: "hello"})
	if err != nil {
		t.Fatalf("a stored message must not fail because of the broker: %v", err)
	}

	if msg.ID == "" {
		t.Fatal("expected a stored message")
	}

	if n := len(env.store.notificationsOf(supplier.ID)); n != 1 {
		t.Errorf("want the notification persisted anyway; got %d", n)
	}
}

func TestService_SendProductMessage(t *testing.T) {
	env := setupTest(t)
	client := env.store.addProfile(types.ParticipantKindClient, "Mariama")
	supplier := env.store.addProfile(types.ParticipantKindSupplier, "Ciments Conakry")
	other := env.store.addProfile(types.ParticipantKindSupplier, "Fer Kaloum")
	product := env.store.addProduct(supplier.ID, "Ciment CPJ 42.5", 85000)

	got, err := env.svc.SendProductMessage(asUser(client), types.SendProductMessage{ProductID: product.ID})
	if err != nil {
		t.Fatal(err)
	}

	if !got.Conversation.HasParticipant(client.ID) || !got.Conversation.HasParticipant(supplier.ID) {
		t.Fatalf("unexpected participants: %+v", got.Conversation.Participants)
	}

	if got.Message.Kind != types.MessageKindProduct {
		t.Errorf("want a product message; got %q", got.Message.Kind)
	}

	if want := "Bonjour, je suis intéressé par votre produit : Ciment CPJ 42.5"; got.Message.Content != want {
		t.Errorf("want content %q; got %q", want, got.Message.Content)
	}

	snapshot := got.Message.Product
	if snapshot == nil || snapshot.ProductID != product.ID || snapshot.Price != 85000 || snapshot.Name != product.Name {
		t.Fatalf("unexpected snapshot: %+v", snapshot)
	}

	if got.Conversation.LastMessageID == nil || *got.Conversation.LastMessageID != got.Message.ID {
		t.Errorf("conversation should point to the product message")
	}

	if got.Conversation.OtherParticipant == nil || got.Conversation.OtherParticipant.Name != "Ciments Conakry" {
		t.Errorf("unexpected other participant: %+v", got.Conversation.OtherParticipant)
	}

	notifications := env.store.notificationsOf(supplier.ID)
	if len(notifications) != 1 || notifications[0].Kind != types.NotificationKindMessage {
		t.Fatalf("want one message notification for the supplier; got %+v", notifications)
	}

	want := []types.EventName{types.EventNotification, types.EventNewMessage}
	if events := env.events(supplier.ID); !slices.Equal(events, want) {
		t.Errorf("want supplier events %v; got %v", want, events)
	}

	t.Run("same_conversation", func(t *testing.T) {
		again, err := env.svc.SendProductMessage(asUser(client), types.SendProductMessage{ProductID: product.ID, SupplierID: supplier.ID})
		if err != nil {
			t.Fatal(err)
		}

		if again.Conversation.ID != got.Conversation.ID {
			t.Errorf("want the existing conversation %q; got %q", got.Conversation.ID, again.Conversation.ID)
		}
	})

	tt := []struct {
		name    string
		ctx     context.Context
		in      types.SendProductMessage
		wantErr func(error) bool
	}{
		{
			name:    "own_product",
			ctx:     asUser(supplier),
			in:      types.SendProductMessage{ProductID: product.ID},
			wantErr: errs.IsInvalidArgument,
		},
		{
			name:    "supplier_mismatch",
			ctx:     asUser(client),
			in:      types.SendProductMessage{ProductID: product.ID, SupplierID: other.ID},
			wantErr: errs.IsInvalidArgument,
		},
		{
			name:    "unknown_product",
			ctx:     asUser(client),
			in:      types.SendProductMessage{ProductID: id.Generate()},
			wantErr: errs.IsNotFound,
		},
		{
			name:    "unauthenticated",
			ctx:     context.Background(),
			in:      types.SendProductMessage{ProductID: product.ID},
			wantErr: errs.IsUnauthenticated,
		},
	}
	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.svc.SendProductMessage(tc.ctx, tc.in)
			if !tc.wantErr(err) {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestService_EditMessage(t *testing.T) {
	env := setupTest(t)
	client := env.store.addProfile(types.ParticipantKindClient, "Mariama")
	supplier := env.store.addProfile(types.ParticipantKindSupplier, "Ciments Conakry")
	c := env.conversationBetween(t, client, supplier)
	msg := env.send(t, client, c.ID, "20 sacs")

	_, err := env.svc.EditMessage(asUser(supplier), types.EditMessage{MessageID: msg.ID, Content: "piraté"})
	if !errs.IsPermissionDenied(err) {
		t.Fatalf("want permission denied for a non sender; got %v", err)
	}

	edited, err := env.svc.EditMessage(asUser(client), types.EditMessage{MessageID: msg.ID, Content: "30 sacs"})
	if err != nil {
		t.Fatal(err)
	}

	if edited.Content != "30 sacs" || !edited.IsEdited || edited.EditedAt == nil {
		t.Errorf("unexpected edited message: %+v", edited)
	}

	for _, userID := range []string{client.ID, supplier.ID} {
		if !slices.Contains(env.events(userID), types.EventMessageEdited) {
			t.Errorf("user %s did not receive %s", userID, types.EventMessageEdited)
		}
	}
}

func TestService_DeleteMessage(t *testing.T) {
	env := setupTest(t)
	client := env.store.addProfile(types.ParticipantKindClient, "Mariama")
	supplier := env.store.addProfile(types.ParticipantKindSupplier, "Ciments Conakry")
	c := env.conversationBetween(t, client, supplier)
	kept := env.send(t, client, c.ID, "on garde")
	gone := env.send(t, client, c.ID, "oups")

	if err := env.svc.DeleteMessage(asUser(supplier), types.DeleteMessage{MessageID: gone.ID}); !errs.IsPermissionDenied(err) {
		t.Fatalf("want permission denied for a non sender; got %v", err)
	}

	if err := env.svc.DeleteMessage(asUser(client), types.DeleteMessage{MessageID: gone.ID}); err != nil {
		t.Fatal(err)
	}

	msgs, err := env.svc.Messages(asUser(supplier), types.ListMessages{ConversationID: c.ID})
	if err != nil {
		t.Fatal(err)
	}

	if len(msgs) != 1 || msgs[0].ID != kept.ID {
		t.Fatalf("deleted message should be hidden from the list; got %+v", msgs)
	}

	got, err := env.svc.Message(asUser(supplier), types.RetrieveMessage{MessageID: gone.ID})
	if err != nil {
		t.Fatal(err)
	}

	if !got.IsDeleted || got.DeletedAt == nil || got.Content != "" {
		t.Errorf("want a redacted deleted message; got %+v", got)
	}

	deletedEvents := func() int {
		var n int
		for _, call := range env.publisher.PublishCalls() {
			if call.Ev.Name == types.EventMessageDeleted {
				n++
			}
		}
		return n
	}

	if n := deletedEvents(); n != 2 {
		t.Errorf("want %s to both participants; got %d events", types.EventMessageDeleted, n)
	}

	if err := env.svc.DeleteMessage(asUser(client), types.DeleteMessage{MessageID: gone.ID}); err != nil {
		t.Fatalf("deleting again should be a no-op: %v", err)
	}

	if n := deletedEvents(); n != 2 {
		t.Errorf("repeated delete should not publish; got %d events", n)
	}

	conversation, err := env.svc.Conversation(asUser(supplier), types.RetrieveConversation{ConversationID: c.ID})
	if err != nil {
		t.Fatal(err)
	}

	if conversation.UnreadCount != 1 {
		t.Errorf("deleted messages do not count as unread; got %d", conversation.UnreadCount)
	}

	if conversation.LastMessage == nil || conversation.LastMessage.ID != kept.ID {
		t.Errorf("want last visible message %q; got %+v", kept.ID, conversation.LastMessage)
	}
}

func TestService_ReactToMessage(t *testing.T) {
	env := setupTest(t)
	client := env.store.addProfile(types.ParticipantKindClient, "Mariama")
	supplier := env.store.addProfile(types.ParticipantKindSupplier, "Ciments Conakry")
	stranger := env.store.addProfile(types.ParticipantKindClient, "Ibrahima")
	c := env.conversationBetween(t, client, supplier)
	msg := env.send(t, client, c.ID, "livraison demain")

	for _, e := range []string{"\U0001F44D", "❤️"} {
		if _, err := env.svc.ReactToMessage(asUser(supplier), types.ReactToMessage{MessageID: msg.ID, Emoji: e}); err != nil {
			t.Fatalf("react %q: %v", e, err)
		}
	}

	got, err := env.svc.Message(asUser(client), types.RetrieveMessage{MessageID: msg.ID})
	if err != nil {
		t.Fatal(err)
	}

	if len(got.Reactions) != 1 {
		t.Fatalf("want a single reaction per user; got %+v", got.Reactions)
	}

	if e, _ := got.ReactionOf(supplier.ID); e != "❤️" {
		t.Errorf("want the latest reaction to win; got %q", e)
	}

	_, err = env.svc.ReactToMessage(asUser(supplier), types.ReactToMessage{MessageID: msg.ID, Emoji: "nope"})
	if err == nil {
		t.Error("expected a validation error for a non emoji")
	}

	_, err = env.svc.ReactToMessage(asUser(stranger), types.ReactToMessage{MessageID: msg.ID, Emoji: "\U0001F44D"})
	if !errs.IsPermissionDenied(err) {
		t.Errorf("want permission denied for a stranger; got %v", err)
	}

	if n := len(env.events(client.ID)); n < 2 {
		t.Errorf("sender should receive the reaction events; got %d events", n)
	}
}

func TestService_Message_stranger(t *testing.T) {
	env := setupTest(t)
	client := env.store.addProfile(types.ParticipantKindClient, "Mariama")
	supplier := env.store.addProfile(types.ParticipantKindSupplier, "Ciments Conakry")
	stranger := env.store.addProfile(types.ParticipantKindClient, "Ibrahima")
	c := env.conversationBetween(t, client, supplier)
	msg := env.send(t, client, c.ID, "privé")

	_, err := env.svc.Message(asUser(stranger), types.RetrieveMessage{MessageID: msg.ID})
	if !errs.IsPermissionDenied(err) {
		t.Errorf("want permission denied; got %v", err)
	}

	_, err = env.svc.Messages(asUser(stranger), types.ListMessages{ConversationID: c.ID})
	if !errs.IsPermissionDenied(err) {
		t.Errorf("want permission denied; got %v", err)
	}
}
