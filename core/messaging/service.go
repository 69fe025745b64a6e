package messaging

import (
	"context"
	"fmt"
	"net/mail"
	"sort"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/kodi/core"
	"github.com/trezcool/kodi/core/user"
)

// users who have not been seen for that long get new messages by e-mail.
const offlineAfter = 15 * time.Minute

var (
	// errors
	ErrNotFound       = core.NewNotFoundError("conversation")
	ErrNotParticipant = errors.New("you are not a participant of this conversation")

	errUnknownParticipant = "unknown participant: %s"

	nowFunc = time.Now // mockable
)

type (
	Repository interface {
		CreateConversation(ctx context.Context, conv Conversation) (Conversation, error)
		// QueryConversations applies AND operation on QueryFilter.Search, QueryFilter.PropertyID and QueryFilter.ParticipantID.
		QueryConversations(ctx context.Context, filter *QueryFilter) ([]Conversation, error)
		GetConversation(ctx context.Context, id string) (Conversation, error)
		UpdateConversation(ctx context.Context, conv Conversation) (Conversation, error)

		CreateMessage(ctx context.Context, msg Message) (Message, error)
		// QueryMessages returns the messages of a conversation, oldest first.
		QueryMessages(ctx context.Context, conversationID string) ([]Message, error)
		// MarkRead marks every message of a conversation as read by `userID` and returns how many changed.
		MarkRead(ctx context.Context, conversationID, userID string) (int, error)
	}

	Service interface {
		Start(ctx context.Context, creator user.User, nc NewConversation) (Thread, error)
		ListForUser(ctx context.Context, userID string, filter *QueryFilter) ([]Thread, error)
		Messages(ctx context.Context, conversationID, userID string) ([]Message, error)
		Send(ctx context.Context, conversationID string, sender user.User, nm NewMessage) (Message, error)
		MarkRead(ctx context.Context, conversationID, userID string) (int, error)
		UnreadCount(ctx context.Context, userID string) (int, error)
	}

	service struct {
		repo      Repository
		userSvc   user.Service
		mailSvc   core.EmailService
		publisher core.EventPublisher
		logger    core.Logger
	}
)

var _ Service = (*service)(nil)

func NewService(
	repo Repository,
	userSvc user.Service,
	mailSvc core.EmailService,
	publisher core.EventPublisher,
	logger core.Logger,
) Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(userSvc, "userSvc"),
		vala.IsNotNil(mailSvc, "mailSvc"),
		vala.IsNotNil(publisher, "publisher"),
		vala.IsNotNil(logger, "logger"),
	).CheckAndPanic()
	return &service{repo: repo, userSvc: userSvc, mailSvc: mailSvc, publisher: publisher, logger: logger}
}

func (svc *service) Start(ctx context.Context, creator user.User, nc NewConversation) (Thread, error) {
	participants := []string{creator.ID}
	seen := map[string]bool{creator.ID: true}
	for _, id := range nc.ParticipantIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		if _, err := svc.userSvc.GetByID(ctx, id); err != nil {
			if core.IsNotFound(err) {
				return Thread{}, core.NewFieldError("participant_ids", fmt.Sprintf(errUnknownParticipant, id))
			}
			return Thread{}, errors.Wrap(err, "finding participant")
		}
		participants = append(participants, id)
	}

	now := nowFunc().UTC()
	conv, err := svc.repo.CreateConversation(ctx, Conversation{
		Subject:        nc.Subject,
		ParticipantIDs: participants,
		PropertyID:     nc.PropertyID,
		CreatedAt:      now,
		LastMessageAt:  now,
	})
	if err != nil {
		return Thread{}, err
	}
	msg, err := svc.Send(ctx, conv.ID, creator, NewMessage{Body: nc.Body})
	if err != nil {
		return Thread{}, errors.Wrap(err, "sending first message")
	}
	conv.LastMessageAt = msg.SentAt
	return Thread{Conversation: conv, LastMessage: &msg}, nil
}

// ListForUser returns the conversations of a user, most recently active first.
func (svc *service) ListForUser(ctx context.Context, userID string, filter *QueryFilter) ([]Thread, error) {
	if filter == nil {
		filter = new(QueryFilter)
	}
	filter.ParticipantID = userID
	convs, err := svc.repo.QueryConversations(ctx, filter)
	if err != nil {
		return nil, err
	}

	threads := make([]Thread, 0, len(convs))
	for _, conv := range convs {
		msgs, err := svc.repo.QueryMessages(ctx, conv.ID)
		if err != nil {
			return nil, errors.Wrap(err, "querying messages")
		}
		th := Thread{Conversation: conv}
		for i := range msgs {
			if !msgs[i].IsReadBy(userID) {
				th.Unread++
			}
		}
		if len(msgs) > 0 {
			last := msgs[len(msgs)-1]
			th.LastMessage = &last
		}
		if filter.UnreadOnly && th.Unread == 0 {
			continue
		}
		threads = append(threads, th)
	}
	sort.SliceStable(threads, func(i, j int) bool {
		return threads[i].LastMessageAt.After(threads[j].LastMessageAt)
	})
	return threads, nil
}

func (svc *service) participantConversation(ctx context.Context, conversationID, userID string) (Conversation, error) {
	conv, err := svc.repo.GetConversation(ctx, conversationID)
	if err != nil {
		return Conversation{}, err
	}
	if !conv.HasParticipant(userID) {
		return Conversation{}, ErrNotParticipant
	}
	return conv, nil
}

func (svc *service) Messages(ctx context.Context, conversationID, userID string) ([]Message, error) {
	if _, err := svc.participantConversation(ctx, conversationID, userID); err != nil {
		return nil, err
	}
	return svc.repo.QueryMessages(ctx, conversationID)
}

// Send posts a message to a conversation. Offline participants are notified by e-mail.
func (svc *service) Send(ctx context.Context, conversationID string, sender user.User, nm NewMessage) (Message, error) {
	conv, err := svc.participantConversation(ctx, conversationID, sender.ID)
	if err != nil {
		return Message{}, err
	}

	now := nowFunc().UTC()
	msg, err := svc.repo.CreateMessage(ctx, Message{
		ConversationID: conv.ID,
		SenderID:       sender.ID,
		Body:           core.CleanString(nm.Body),
		SentAt:         now,
		ReadBy:         []string{sender.ID},
	})
	if err != nil {
		return Message{}, err
	}
	conv.LastMessageAt = now
	if _, err = svc.repo.UpdateConversation(ctx, conv); err != nil {
		return Message{}, errors.Wrap(err, "updating conversation")
	}

	svc.notifyOffline(ctx, conv, sender, msg, now)
	evt := core.NewEvent(core.EventMessageSent, msg.ID, map[string]interface{}{
		"conversation_id": conv.ID,
		"sender_id":       sender.ID,
	})
	if err = svc.publisher.Publish(ctx, evt); err != nil {
		svc.logger.Warn(fmt.Sprintf("publishing %s: %v", evt.Name, err), err)
	}
	return msg, nil
}

func (svc *service) notifyOffline(ctx context.Context, conv Conversation, sender user.User, msg Message, now time.Time) {
	var messages []*core.EmailMessage
	for _, id := range conv.ParticipantIDs {
		if id == sender.ID {
			continue
		}
		usr, err := svc.userSvc.GetByID(ctx, id)
		if err != nil {
			svc.logger.Warn(fmt.Sprintf("finding participant %s: %v", id, err), err)
			continue
		}
		if !usr.IsActive || now.Sub(usr.LastLogin) < offlineAfter {
			continue
		}
		messages = append(messages, &core.EmailMessage{
			To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
			Subject:      "New message: " + conv.Subject,
			TemplateName: "new_message",
			TemplateData: map[string]interface{}{
				"Name":           usr.Name,
				"SenderName":     sender.Name,
				"Subject":        conv.Subject,
				"Body":           msg.Body,
				"ConversationID": conv.ID,
			},
		})
	}
	if len(messages) > 0 {
		svc.mailSvc.SendMessages(messages...)
	}
}

func (svc *service) MarkRead(ctx context.Context, conversationID, userID string) (int, error) {
	if _, err := svc.participantConversation(ctx, conversationID, userID); err != nil {
		return 0, err
	}
	return svc.repo.MarkRead(ctx, conversationID, userID)
}

func (svc *service) UnreadCount(ctx context.Context, userID string) (int, error) {
	threads, err := svc.ListForUser(ctx, userID, nil)
	if err != nil {
		return 0, err
	}
	var unread int
	for _, th := range threads {
		unread += th.Unread
	}
	return unread, nil
}
