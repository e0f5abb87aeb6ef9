package service

import (
	"context"

	"github.com/batimarket/batimarket/errs"
	"github.com/batimarket/batimarket/types"
	"golang.org/x/sync/errgroup"
)

const enrichConcurrency = 8

// StartConversation returns the conversation between the caller and
// another user, creating it the first time.
func (svc *Service) StartConversation(ctx context.Context, in types.StartConversation) (types.Conversation, error) {
	var out types.Conversation

	me, err := caller(ctx)
	if err != nil {
		return out, err
	}

	if err := in.Validate(); err != nil {
		return out, err
	}

	in.SetLoggedInUserID(me.ID)

	if in.OtherUserID == me.ID {
		return out, errs.NewInvalidArgumentError("OtherUserID", "cannot start a conversation with yourself")
	}

	other, err := svc.Store.Participant(ctx, in.OtherUserID)
	if err != nil {
		return out, err
	}

	conversation, err := svc.findOrCreateConversation(ctx, me, other)
	if err != nil {
		return out, err
	}

	return svc.conversationView(ctx, conversation, me.ID)
}

func (svc *Service) findOrCreateConversation(ctx context.Context, a, b types.Participant) (types.Conversation, error) {
	conversation, err := svc.Store.ConversationFromParticipants(ctx, a, b)
	if err == nil {
		return conversation, nil
	}

	if !errs.IsNotFound(err) {
		return conversation, err
	}

	return svc.Store.CreateConversation(ctx, types.CreateConversation{
		Participants: [2]types.Participant{a, b},
	})
}

// Conversations of the caller, blocked ones excluded, most recent first.
func (svc *Service) Conversations(ctx context.Context, in types.ListConversations) ([]types.Conversation, error) {
	me, err := caller(ctx)
	if err != nil {
		return nil, err
	}

	in.SetLoggedInUserID(me.ID)

	list, err := svc.Store.Conversations(ctx, in.LoggedInUserID())
	if err != nil {
		return nil, err
	}

	return svc.enrichConversations(ctx, list, me.ID)
}

func (svc *Service) SearchConversations(ctx context.Context, in types.SearchConversations) ([]types.Conversation, error) {
	me, err := caller(ctx)
	if err != nil {
		return nil, err
	}

	if err := in.Validate(); err != nil {
		return nil, err
	}

	in.SetLoggedInUserID(me.ID)

	list, err := svc.Store.SearchConversations(ctx, in.LoggedInUserID(), in.Query)
	if err != nil {
		return nil, err
	}

	return svc.enrichConversations(ctx, list, me.ID)
}

func (svc *Service) Conversation(ctx context.Context, in types.RetrieveConversation) (types.Conversation, error) {
	var out types.Conversation

	me, err := caller(ctx)
	if err != nil {
		return out, err
	}

	if err := in.Validate(); err != nil {
		return out, err
	}

	in.SetLoggedInUserID(me.ID)

	conversation, err := svc.participantConversation(ctx, in.ConversationID, me.ID)
	if err != nil {
		return out, err
	}

	conversation.UnreadCount, err = svc.Store.UnreadCount(ctx, conversation.ID, me.ID)
	if err != nil {
		return out, err
	}

	return svc.conversationView(ctx, conversation, me.ID)
}

// BlockConversation blocks or unblocks the conversation for both sides.
// Either participant may unblock.
func (svc *Service) BlockConversation(ctx context.Context, in types.BlockConversation) (types.Conversation, error) {
	var out types.Conversation

	me, err := caller(ctx)
	if err != nil {
		return out, err
	}

	if err := in.Validate(); err != nil {
		return out, err
	}

	in.SetLoggedInUserID(me.ID)

	if _, err := svc.participantConversation(ctx, in.ConversationID, me.ID); err != nil {
		return out, err
	}

	return svc.Store.SetConversationBlocked(ctx, in.ConversationID, me.ID, in.Blocked)
}

// MarkConversationRead marks every message of the other participant as
// read by the caller.
func (svc *Service) MarkConversationRead(ctx context.Context, in types.MarkConversationRead) (types.MarkedRead, error) {
	var out types.MarkedRead

	me, err := caller(ctx)
	if err != nil {
		return out, err
	}

	if err := in.Validate(); err != nil {
		return out, err
	}

	in.SetLoggedInUserID(me.ID)

	if _, err := svc.participantConversation(ctx, in.ConversationID, me.ID); err != nil {
		return out, err
	}

	n, err := svc.Store.MarkConversationRead(ctx, in.ConversationID, me.ID)
	if err != nil {
		return out, err
	}

	out.ConversationID = in.ConversationID
	out.MarkedCount = n

	return out, nil
}

// Typing relays a typing indicator to the other participant.
// Nothing is persisted.
func (svc *Service) Typing(ctx context.Context, in types.Typing) error {
	me, err := caller(ctx)
	if err != nil {
		return err
	}

	if err := in.Validate(); err != nil {
		return err
	}

	in.SetLoggedInUserID(me.ID)

	conversation, err := svc.participantConversation(ctx, in.ConversationID, me.ID)
	if err != nil {
		return err
	}

	if conversation.Blocked {
		return errs.NewPermissionDeniedError("conversation is blocked")
	}

	other, _ := conversation.Other(me.ID)

	name := types.EventUserStopTyping
	if in.Typing {
		name = types.EventUserTyping
	}

	svc.publish(ctx, other.ID, name, types.TypingPayload{
		ConversationID: conversation.ID,
		UserID:         me.ID,
	})

	return nil
}

// participantConversation loads the conversation only if userID is part of it.
func (svc *Service) participantConversation(ctx context.Context, conversationID, userID string) (types.Conversation, error) {
	conversation, err := svc.Store.Conversation(ctx, conversationID)
	if err != nil {
		return conversation, err
	}

	if !conversation.HasParticipant(userID) {
		return conversation, errs.NewPermissionDeniedError("not a participant of the conversation")
	}

	return conversation, nil
}

func (svc *Service) enrichConversations(ctx context.Context, list []types.Conversation, viewerID string) ([]types.Conversation, error) {
	out := make([]types.Conversation, len(list))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(enrichConcurrency)
	for i, conversation := range list {
		g.Go(func() error {
			view, err := svc.conversationView(gctx, conversation, viewerID)
			if err != nil {
				return err
			}
			out[i] = view
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return out, nil
}

// conversationView adds what viewerID sees of the conversation:
// the other participant profile and the last visible message.
func (svc *Service) conversationView(ctx context.Context, conversation types.Conversation, viewerID string) (types.Conversation, error) {
	other, ok := conversation.Other(viewerID)
	if !ok {
		return conversation, errs.NewPermissionDeniedError("not a participant of the conversation")
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		profile, err := svc.Store.Profile(gctx, other)
		if errs.IsNotFound(err) {
			return nil
		}

		if err != nil {
			return err
		}

		conversation.OtherParticipant = &profile
		return nil
	})

	if conversation.LastMessageID != nil {
		g.Go(func() error {
			msg, err := svc.Store.LastMessage(gctx, conversation.ID)
			if errs.IsNotFound(err) {
				return nil
			}

			if err != nil {
				return err
			}

			conversation.LastMessage = &msg
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return conversation, err
	}

	return conversation, nil
}
