package service

import (
	"context"
	"time"

	"github.com/batimarket/batimarket/errs"
	"github.com/batimarket/batimarket/types"
)

// SendMessage persists a message from the caller, then notifies and
// publishes it to the other participant. Once the message is stored
// the call succeeds whatever happens to the notification or the event.
func (svc *Service) SendMessage(ctx context.Context, in types.SendMessage) (types.Message, error) {
	var out types.Message

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

	if conversation.Blocked {
		return out, errs.NewPermissionDeniedError("conversation is blocked")
	}

	out, err = svc.Store.CreateMessage(ctx, types.CreateMessage{
		ConversationID: conversation.ID,
		Sender:         me,
		Kind:           in.Kind,
		Content:        in.Content,
		Attachments:    in.Attachments,
		ReplyToID:      in.ReplyToID,
	})
	if err != nil {
		return out, err
	}

	svc.afterSend(ctx, conversation, me, out, func(sender types.Profile, recipientID string) types.CreateNotification {
		return types.MessageNotification(recipientID, sender.Name, out.ReplyToID != nil)
	})

	return out, nil
}

// SendProductMessage opens, or reuses, the conversation between the caller
// and the supplier of a product and sends a message carrying a snapshot of
// the product.
func (svc *Service) SendProductMessage(ctx context.Context, in types.SendProductMessage) (types.ProductConversation, error) {
	var out types.ProductConversation

	me, err := caller(ctx)
	if err != nil {
		return out, err
	}

	if err := in.Validate(); err != nil {
		return out, err
	}

	in.SetLoggedInUserID(me.ID)

	product, err := svc.Store.Product(ctx, in.ProductID)
	if err != nil {
		return out, err
	}

	if in.SupplierID != "" && in.SupplierID != product.SupplierID {
		return out, errs.NewInvalidArgumentError("SupplierID", "supplier does not own this product")
	}

	if product.SupplierID == me.ID {
		return out, errs.NewInvalidArgumentError("ProductID", "cannot ask about your own product")
	}

	supplier, err := svc.Store.Participant(ctx, product.SupplierID)
	if err != nil {
		return out, err
	}

	conversation, err := svc.findOrCreateConversation(ctx, me, supplier)
	if err != nil {
		return out, err
	}

	if conversation.Blocked {
		return out, errs.NewPermissionDeniedError("conversation is blocked")
	}

	snapshot := product.Snapshot(time.Now().UTC())
	msg, err := svc.Store.CreateMessage(ctx, types.CreateMessage{
		ConversationID: conversation.ID,
		Sender:         me,
		Kind:           types.MessageKindProduct,
		Content:        product.InterestMessage(),
		Product:        &snapshot,
	})
	if err != nil {
		return out, err
	}

	svc.afterSend(ctx, conversation, me, msg, func(sender types.Profile, recipientID string) types.CreateNotification {
		return types.ProductInterestNotification(recipientID, sender.Name, product.Name)
	})

	conversation.LastMessageID = &msg.ID
	conversation.LastActivityAt = msg.CreatedAt

	out.Message = msg
	out.Conversation, err = svc.conversationView(ctx, conversation, me.ID)
	if err != nil {
		svc.Logger.Error("load product conversation view", "conversation_id", conversation.ID, "error", err)
		out.Conversation = conversation
	}

	return out, nil
}

// afterSend runs the best effort steps that follow a stored message.
func (svc *Service) afterSend(
	ctx context.Context,
	conversation types.Conversation,
	sender types.Participant,
	msg types.Message,
	notification func(sender types.Profile, recipientID string) types.CreateNotification,
) {
	svc.Metrics.MessagesSent.WithLabelValues(msg.Kind.String()).Inc()

	err := svc.Store.TouchConversation(ctx, types.TouchConversation{
		ConversationID: conversation.ID,
		MessageID:      msg.ID,
		At:             msg.CreatedAt,
	})
	if err != nil {
		svc.Logger.Error("touch conversation", "conversation_id", conversation.ID, "message_id", msg.ID, "error", err)
	}

	recipient, ok := conversation.Other(sender.ID)
	if !ok {
		return
	}

	profile, err := svc.Store.Profile(ctx, sender)
	if err != nil {
		svc.Logger.Error("load sender profile", "user_id", sender.ID, "error", err)
		profile = types.Profile{ID: sender.ID, Kind: sender.Kind, Name: sender.Kind.String()}
	}

	svc.notifyQuietly(ctx, notification(profile, recipient.ID))

	svc.publish(ctx, recipient.ID, types.EventNewMessage, types.NewMessagePayload{
		ConversationID: conversation.ID,
		Message:        msg,
		Sender:         &profile,
	})
}

// Messages returns a page of visible messages in chronological order.
// Listing does not mark anything as read.
func (svc *Service) Messages(ctx context.Context, in types.ListMessages) ([]types.Message, error) {
	me, err := caller(ctx)
	if err != nil {
		return nil, err
	}

	if err := in.Validate(); err != nil {
		return nil, err
	}

	in.SetLoggedInUserID(me.ID)

	if _, err := svc.participantConversation(ctx, in.ConversationID, me.ID); err != nil {
		return nil, err
	}

	out, err := svc.Store.Messages(ctx, in)
	if err != nil {
		return nil, err
	}

	if out == nil {
		out = []types.Message{}
	}

	return out, nil
}

// Message by id, soft-deleted ones included but redacted.
func (svc *Service) Message(ctx context.Context, in types.RetrieveMessage) (types.Message, error) {
	var out types.Message

	me, err := caller(ctx)
	if err != nil {
		return out, err
	}

	if err := in.Validate(); err != nil {
		return out, err
	}

	in.SetLoggedInUserID(me.ID)

	msg, _, err := svc.participantMessage(ctx, in.MessageID, me.ID)
	if err != nil {
		return out, err
	}

	return msg.Redacted(), nil
}

func (svc *Service) EditMessage(ctx context.Context, in types.EditMessage) (types.Message, error) {
	var out types.Message

	me, err := caller(ctx)
	if err != nil {
		return out, err
	}

	if err := in.Validate(); err != nil {
		return out, err
	}

	in.SetLoggedInUserID(me.ID)

	_, conversation, err := svc.participantMessage(ctx, in.MessageID, me.ID)
	if err != nil {
		return out, err
	}

	out, err = svc.Store.EditMessage(ctx, in.MessageID, me.ID, in.Content)
	if err != nil {
		return out, err
	}

	for _, userID := range conversation.ParticipantIDs() {
		svc.publish(ctx, userID, types.EventMessageEdited, types.MessageEditedPayload{
			ConversationID: conversation.ID,
			Message:        out,
		})
	}

	return out, nil
}

// DeleteMessage soft deletes a message of the caller.
// Deleting it again succeeds without publishing anything.
func (svc *Service) DeleteMessage(ctx context.Context, in types.DeleteMessage) error {
	me, err := caller(ctx)
	if err != nil {
		return err
	}

	if err := in.Validate(); err != nil {
		return err
	}

	in.SetLoggedInUserID(me.ID)

	_, conversation, err := svc.participantMessage(ctx, in.MessageID, me.ID)
	if err != nil {
		return err
	}

	msg, deleted, err := svc.Store.DeleteMessage(ctx, in.MessageID, me.ID)
	if err != nil {
		return err
	}

	if !deleted {
		return nil
	}

	for _, userID := range conversation.ParticipantIDs() {
		svc.publish(ctx, userID, types.EventMessageDeleted, types.MessageDeletedPayload{
			ConversationID: conversation.ID,
			MessageID:      msg.ID,
		})
	}

	return nil
}

// ReactToMessage sets the caller reaction, replacing any previous one.
func (svc *Service) ReactToMessage(ctx context.Context, in types.ReactToMessage) (types.Message, error) {
	var out types.Message

	me, err := caller(ctx)
	if err != nil {
		return out, err
	}

	if err := in.Validate(); err != nil {
		return out, err
	}

	in.SetLoggedInUserID(me.ID)

	_, conversation, err := svc.participantMessage(ctx, in.MessageID, me.ID)
	if err != nil {
		return out, err
	}

	out, err = svc.Store.ReactToMessage(ctx, in.MessageID, me.ID, in.Emoji)
	if err != nil {
		return out, err
	}

	for _, userID := range conversation.ParticipantIDs() {
		svc.publish(ctx, userID, types.EventMessageReaction, types.MessageReactionPayload{
			ConversationID: conversation.ID,
			MessageID:      out.ID,
			ReactorID:      me.ID,
			Emoji:          in.Emoji,
		})
	}

	return out, nil
}

// participantMessage loads a message and its conversation only if userID
// is part of the conversation.
func (svc *Service) participantMessage(ctx context.Context, messageID, userID string) (types.Message, types.Conversation, error) {
	msg, err := svc.Store.Message(ctx, messageID)
	if err != nil {
		return msg, types.Conversation{}, err
	}

	conversation, err := svc.participantConversation(ctx, msg.ConversationID, userID)
	if err != nil {
		return msg, conversation, err
	}

	return msg, conversation, nil
}
