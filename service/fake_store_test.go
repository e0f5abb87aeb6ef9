package service

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/batimarket/batimarket/errs"
	"github.com/batimarket/batimarket/id"
	"github.com/batimarket/batimarket/types"
)

var _ Store = (*fakeStore)(nil)

// fakeStore keeps everything in memory with the same rules as the
// cockroach store. Its clock moves forward on every write so ordering
// is deterministic.
type fakeStore struct {
	mu sync.Mutex

	clock         time.Time
	profiles      map[string]types.Profile
	products      map[string]types.Product
	conversations map[string]*types.Conversation
	messages      []*types.Message
	notifications []*types.Notification
	subscriptions map[string]types.SubscribeWebPush
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		clock:         time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		profiles:      map[string]types.Profile{},
		products:      map[string]types.Product{},
		conversations: map[string]*types.Conversation{},
		subscriptions: map[string]types.SubscribeWebPush{},
	}
}

func (s *fakeStore) now() time.Time {
	s.clock = s.clock.Add(time.Millisecond)
	return s.clock
}

func (s *fakeStore) addProfile(kind types.ParticipantKind, name string) types.Participant {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := types.Profile{
		ID:    id.Generate(),
		Kind:  kind,
		Name:  name,
		Email: strings.ToLower(name) + "@example.org",
	}
	s.profiles[p.ID] = p
	return p.Participant()
}

func (s *fakeStore) addProduct(supplierID, name string, price float64) types.Product {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := types.Product{
		ID:         id.Generate(),
		SupplierID: supplierID,
		Name:       name,
		Price:      price,
		ImageURL:   "https://cdn.example.org/" + name + ".png",
		CreatedAt:  s.now(),
	}
	s.products[p.ID] = p
	return p
}

func (s *fakeStore) messageCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

func (s *fakeStore) notificationsOf(userID string) []types.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []types.Notification
	for _, n := range s.notifications {
		if n.UserID == userID {
			out = append(out, *n)
		}
	}
	return out
}

func (s *fakeStore) Participant(ctx context.Context, userID string) (types.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.profiles[userID]; ok {
		return p.Participant(), nil
	}
	return types.Participant{}, errs.NewNotFoundError("participant not found")
}

func (s *fakeStore) Profile(ctx context.Context, p types.Participant) (types.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	profile, ok := s.profiles[p.ID]
	if !ok || profile.Kind != p.Kind {
		return types.Profile{}, errs.NewNotFoundError("profile not found")
	}
	return profile, nil
}

func (s *fakeStore) Product(ctx context.Context, productID string) (types.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[productID]
	if !ok {
		return p, errs.NewNotFoundError("product not found")
	}
	return p, nil
}

func (s *fakeStore) ConversationFromParticipants(ctx context.Context, a, b types.Participant) (types.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pair := types.CanonicalPair(a, b)
	for _, c := range s.conversations {
		if c.Participants[0].ID == pair[0].ID && c.Participants[1].ID == pair[1].ID {
			return *c, nil
		}
	}
	return types.Conversation{}, errs.NewNotFoundError("conversation not found")
}

func (s *fakeStore) CreateConversation(ctx context.Context, in types.CreateConversation) (types.Conversation, error) {
	a, b := in.Participants[0], in.Participants[1]
	if a.ID == b.ID {
		return types.Conversation{}, errs.NewInvalidArgumentError("Participants", "conversation needs two distinct participants")
	}

	if c, err := s.ConversationFromParticipants(ctx, a, b); err == nil {
		return c, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	c := &types.Conversation{
		ID:             id.Generate(),
		Participants:   types.CanonicalPair(a, b),
		LastActivityAt: now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	s.conversations[c.ID] = c
	return *c, nil
}

func (s *fakeStore) Conversation(ctx context.Context, conversationID string) (types.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.conversations[conversationID]
	if !ok {
		return types.Conversation{}, errs.NewNotFoundError("conversation not found")
	}
	return *c, nil
}

func (s *fakeStore) UnreadCount(ctx context.Context, conversationID, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unreadCount(conversationID, userID), nil
}

func (s *fakeStore) unreadCount(conversationID, userID string) int64 {
	var n int64
	for _, m := range s.messages {
		if m.ConversationID == conversationID && m.SenderID != userID && !m.IsDeleted && !m.ReadByUser(userID) {
			n++
		}
	}
	return n
}

func (s *fakeStore) TouchConversation(ctx context.Context, in types.TouchConversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.conversations[in.ConversationID]
	if !ok || in.At.Before(c.LastActivityAt) {
		return nil
	}

	c.LastMessageID = &in.MessageID
	c.LastActivityAt = in.At
	c.UpdatedAt = s.now()
	return nil
}

func (s *fakeStore) SetConversationBlocked(ctx context.Context, conversationID, byUserID string, blocked bool) (types.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.conversations[conversationID]
	if !ok {
		return types.Conversation{}, errs.NewNotFoundError("conversation not found")
	}

	if blocked && !c.Blocked {
		c.BlockedBy = &byUserID
	}
	if !blocked {
		c.BlockedBy = nil
	}
	c.Blocked = blocked
	c.UpdatedAt = s.now()
	return *c, nil
}

func (s *fakeStore) Conversations(ctx context.Context, userID string) ([]types.Conversation, error) {
	return s.listConversations(userID, func(c types.Conversation) bool {
		return !c.Blocked
	}), nil
}

func (s *fakeStore) SearchConversations(ctx context.Context, userID, query string) ([]types.Conversation, error) {
	query = strings.ToLower(query)
	return s.listConversations(userID, func(c types.Conversation) bool {
		other, _ := c.Other(userID)
		return strings.Contains(strings.ToLower(s.profiles[other.ID].Name), query)
	}), nil
}

// listConversations runs keep with s.mu held.
func (s *fakeStore) listConversations(userID string, keep func(types.Conversation) bool) []types.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []types.Conversation
	for _, c := range s.conversations {
		if !c.HasParticipant(userID) || !keep(*c) {
			continue
		}
		view := *c
		view.UnreadCount = s.unreadCount(c.ID, userID)
		out = append(out, view)
	}

	slices.SortFunc(out, func(a, b types.Conversation) int {
		return cmp.Or(b.LastActivityAt.Compare(a.LastActivityAt), strings.Compare(b.ID, a.ID))
	})
	return out
}

func (s *fakeStore) CreateMessage(ctx context.Context, in types.CreateMessage) (types.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.conversations[in.ConversationID]
	if !ok {
		return types.Message{}, errs.NewNotFoundError("conversation not found")
	}

	if !c.HasParticipant(in.Sender.ID) {
		return types.Message{}, errs.NewPermissionDeniedError("sender is not a participant of the conversation")
	}

	if c.Blocked {
		return types.Message{}, errs.NewPermissionDeniedError("conversation is blocked")
	}

	if in.ReplyToID != nil {
		reply, ok := s.message(*in.ReplyToID)
		if !ok || reply.ConversationID != in.ConversationID {
			return types.Message{}, errs.NewInvalidArgumentError("ReplyToID", "reply must target a message of the same conversation")
		}
	}

	if in.Attachments == nil {
		in.Attachments = []types.Attachment{}
	}

	now := s.now()
	m := &types.Message{
		ID:             id.Generate(),
		ConversationID: in.ConversationID,
		SenderID:       in.Sender.ID,
		SenderKind:     in.Sender.Kind,
		Kind:           in.Kind,
		Content:        in.Content,
		Attachments:    in.Attachments,
		Product:        in.Product,
		ReadBy:         []types.ReadReceipt{},
		Reactions:      []types.Reaction{},
		ReplyToID:      in.ReplyToID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	s.messages = append(s.messages, m)
	return cloneMessage(m), nil
}

func (s *fakeStore) message(messageID string) (*types.Message, bool) {
	for _, m := range s.messages {
		if m.ID == messageID {
			return m, true
		}
	}
	return nil, false
}

func (s *fakeStore) Message(ctx context.Context, messageID string) (types.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.message(messageID)
	if !ok {
		return types.Message{}, errs.NewNotFoundError("message not found")
	}
	return cloneMessage(m), nil
}

func (s *fakeStore) Messages(ctx context.Context, in types.ListMessages) ([]types.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var visible []types.Message
	for _, m := range slices.Backward(s.messages) {
		if m.ConversationID == in.ConversationID && !m.IsDeleted {
			visible = append(visible, cloneMessage(m))
		}
	}

	offset := int(in.Offset())
	if offset >= len(visible) {
		return nil, nil
	}

	out := visible[offset:min(offset+int(in.PageSize), len(visible))]
	slices.Reverse(out)
	return out, nil
}

func (s *fakeStore) LastMessage(ctx context.Context, conversationID string) (types.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range slices.Backward(s.messages) {
		if m.ConversationID == conversationID && !m.IsDeleted {
			return cloneMessage(m), nil
		}
	}
	return types.Message{}, errs.NewNotFoundError("message not found")
}

func (s *fakeStore) MarkConversationRead(ctx context.Context, conversationID, readerID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	now := s.now()
	for _, m := range s.messages {
		if m.ConversationID != conversationID || m.SenderID == readerID || m.IsDeleted || m.ReadByUser(readerID) {
			continue
		}
		m.ReadBy = append(m.ReadBy, types.ReadReceipt{ReaderID: readerID, ReadAt: now})
		n++
	}
	return n, nil
}

func (s *fakeStore) EditMessage(ctx context.Context, messageID, senderID, content string) (types.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.message(messageID)
	if !ok || m.IsDeleted {
		return types.Message{}, errs.NewNotFoundError("message not found")
	}

	if m.SenderID != senderID {
		return types.Message{}, errs.NewPermissionDeniedError("only the sender can edit a message")
	}

	now := s.now()
	m.Content = content
	m.IsEdited = true
	m.EditedAt = &now
	m.UpdatedAt = now
	return cloneMessage(m), nil
}

func (s *fakeStore) DeleteMessage(ctx context.Context, messageID, senderID string) (types.Message, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.message(messageID)
	if !ok {
		return types.Message{}, false, errs.NewNotFoundError("message not found")
	}

	if m.SenderID != senderID {
		return types.Message{}, false, errs.NewPermissionDeniedError("only the sender can delete a message")
	}

	if m.IsDeleted {
		return cloneMessage(m), false, nil
	}

	now := s.now()
	m.IsDeleted = true
	m.DeletedAt = &now
	m.UpdatedAt = now
	return cloneMessage(m), true, nil
}

func (s *fakeStore) ReactToMessage(ctx context.Context, messageID, reactorID, emoji string) (types.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.message(messageID)
	if !ok || m.IsDeleted {
		return types.Message{}, errs.NewNotFoundError("message not found")
	}

	m.Reactions = slices.DeleteFunc(m.Reactions, func(r types.Reaction) bool {
		return r.ReactorID == reactorID
	})
	m.Reactions = append(m.Reactions, types.Reaction{ReactorID: reactorID, Emoji: emoji})
	return cloneMessage(m), nil
}

func cloneMessage(m *types.Message) types.Message {
	out := *m
	out.Attachments = slices.Clone(m.Attachments)
	out.ReadBy = slices.Clone(m.ReadBy)
	out.Reactions = slices.Clone(m.Reactions)
	return out
}

func (s *fakeStore) CreateNotification(ctx context.Context, in types.CreateNotification) (types.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := &types.Notification{
		ID:        id.Generate(),
		UserID:    in.UserID,
		Kind:      in.Kind,
		Message:   in.Message,
		Title:     in.Title,
		Link:      in.Link,
		Priority:  in.Priority,
		CreatedAt: s.now(),
	}
	s.notifications = append(s.notifications, n)
	return *n, nil
}

func (s *fakeStore) Notifications(ctx context.Context, in types.ListNotifications) (types.Page[types.Notification], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out types.Page[types.Notification]
	for _, n := range slices.Backward(s.notifications) {
		if n.UserID != in.LoggedInUserID() || (in.UnreadOnly && n.Read()) {
			continue
		}
		out.Items = append(out.Items, *n)
	}
	return out, nil
}

func (s *fakeStore) UnreadNotificationsCount(ctx context.Context, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int64
	for _, n := range s.notifications {
		if n.UserID == userID && !n.Read() {
			count++
		}
	}
	return count, nil
}

func (s *fakeStore) ReadNotification(ctx context.Context, in types.ReadNotification) (types.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, n := range s.notifications {
		if n.ID != in.NotificationID || n.UserID != in.LoggedInUserID() {
			continue
		}
		if n.ReadAt == nil {
			n.ReadAt = new(s.now())
		}
		return *n, nil
	}
	return types.Notification{}, errs.NewNotFoundError("notification not found")
}

func (s *fakeStore) ReadAllNotifications(ctx context.Context, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int64
	now := s.now()
	for _, n := range s.notifications {
		if n.UserID == userID && n.ReadAt == nil {
			n.ReadAt = &now
			count++
		}
	}
	return count, nil
}

func (s *fakeStore) DeleteNotification(ctx context.Context, in types.DeleteNotification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := len(s.notifications)
	s.notifications = slices.DeleteFunc(s.notifications, func(n *types.Notification) bool {
		return n.ID == in.NotificationID && n.UserID == in.LoggedInUserID()
	})
	if len(s.notifications) == before {
		return errs.NewNotFoundError("notification not found")
	}
	return nil
}

func (s *fakeStore) UpsertWebPushSubscription(ctx context.Context, in types.SubscribeWebPush) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.subscriptions[in.Endpoint] = in
	return nil
}

func (s *fakeStore) DeleteWebPushSubscription(ctx context.Context, userID, endpoint string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sub, ok := s.subscriptions[endpoint]; ok && (userID == "" || sub.LoggedInUserID() == userID) {
		delete(s.subscriptions, endpoint)
	}
	return nil
}
