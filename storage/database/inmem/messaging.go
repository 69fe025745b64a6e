package inmemdb

import (
	"context"

	"github.com/trezcool/kodi/core"
	"github.com/trezcool/kodi/core/messaging"
)

func cloneConversation(c messaging.Conversation) messaging.Conversation {
	c.ParticipantIDs = cloneStrings(c.ParticipantIDs)
	return c
}

func cloneMessage(m messaging.Message) messaging.Message {
	m.ReadBy = cloneStrings(m.ReadBy)
	return m
}

type messagingRepository struct {
	db *DB
}

var _ messaging.Repository = (*messagingRepository)(nil)

func NewMessagingRepository(db *DB) messaging.Repository {
	return &messagingRepository{db: db}
}

func (repo *messagingRepository) CreateConversation(ctx context.Context, conv messaging.Conversation) (messaging.Conversation, error) {
	conv.ID = newID(conv.ID)
	if err := repo.db.write(ctx, func(tx *txn) error { return put(tx, repo.db.conversations, conv.ID, conv) }); err != nil {
		return messaging.Conversation{}, err
	}
	return conv, nil
}

func (repo *messagingRepository) QueryConversations(ctx context.Context, filter *messaging.QueryFilter) ([]messaging.Conversation, error) {
	var convs []messaging.Conversation
	repo.db.read(func() {
		convs = repo.db.conversations.filter(func(c messaging.Conversation) bool {
			switch {
			case !core.ContainsFold(filter.Search, c.Subject):
				return false
			case filter.PropertyID != "" && c.PropertyID != filter.PropertyID:
				return false
			}
			return filter.ParticipantID == "" || c.HasParticipant(filter.ParticipantID)
		})
	})
	return convs, nil
}

func (repo *messagingRepository) GetConversation(ctx context.Context, id string) (messaging.Conversation, error) {
	var (
		conv messaging.Conversation
		ok   bool
	)
	repo.db.read(func() { conv, ok = repo.db.conversations.get(id) })
	if !ok {
		return messaging.Conversation{}, messaging.ErrNotFound
	}
	return conv, nil
}

func (repo *messagingRepository) UpdateConversation(ctx context.Context, conv messaging.Conversation) (messaging.Conversation, error) {
	err := repo.db.write(ctx, func(tx *txn) error {
		if !repo.db.conversations.has(conv.ID) {
			return messaging.ErrNotFound
		}
		return put(tx, repo.db.conversations, conv.ID, conv)
	})
	if err != nil {
		return messaging.Conversation{}, err
	}
	return conv, nil
}

func (repo *messagingRepository) CreateMessage(ctx context.Context, msg messaging.Message) (messaging.Message, error) {
	msg.ID = newID(msg.ID)
	err := repo.db.write(ctx, func(tx *txn) error {
		if !repo.db.conversations.has(msg.ConversationID) {
			return messaging.ErrNotFound
		}
		return put(tx, repo.db.messages, msg.ID, msg)
	})
	if err != nil {
		return messaging.Message{}, err
	}
	return msg, nil
}

func (repo *messagingRepository) QueryMessages(ctx context.Context, conversationID string) ([]messaging.Message, error) {
	var msgs []messaging.Message
	repo.db.read(func() {
		msgs = repo.db.messages.filter(func(m messaging.Message) bool { return m.ConversationID == conversationID })
	})
	sortRows(msgs, comparators[messaging.Message]{
		"sent_at": func(a, b messaging.Message) int { return a.SentAt.Compare(b.SentAt) },
		"id":      byString(func(m messaging.Message) string { return m.ID }),
	}, nil, core.DBOrdering{Field: "sent_at", Ascending: true}, core.DBOrdering{Field: "id", Ascending: true})
	return msgs, nil
}

func (repo *messagingRepository) MarkRead(ctx context.Context, conversationID, userID string) (int, error) {
	var n int
	err := repo.db.write(ctx, func(tx *txn) error {
		for id, m := range repo.db.messages.rows {
			if m.ConversationID != conversationID || m.IsReadBy(userID) {
				continue
			}
			m = cloneMessage(m)
			m.ReadBy = append(m.ReadBy, userID)
			if err := put(tx, repo.db.messages, id, m); err != nil {
				return err
			}
			n++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}
