package messaging

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/kodi/core"
)

type Conversation struct {
	ID             string    `json:"id"`
	Subject        string    `json:"subject"`
	ParticipantIDs []string  `json:"participant_ids"`
	PropertyID     string    `json:"property_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	LastMessageAt  time.Time `json:"last_message_at"`
}

func (c Conversation) HasParticipant(userID string) bool {
	for _, id := range c.ParticipantIDs {
		if id == userID {
			return true
		}
	}
	return false
}

type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	Body           string    `json:"body"`
	SentAt         time.Time `json:"sent_at"`
	ReadBy         []string  `json:"read_by"`
}

func (m Message) IsReadBy(userID string) bool {
	if m.SenderID == userID {
		return true
	}
	for _, id := range m.ReadBy {
		if id == userID {
			return true
		}
	}
	return false
}

// Thread is a Conversation as seen by one of its participants.
type Thread struct {
	Conversation
	LastMessage *Message `json:"last_message"`
	Unread      int      `json:"unread"`
}

// NewConversation contains information needed to start a Conversation.
// The creator is always added to the participants.
type NewConversation struct {
	Subject        string   `json:"subject" validate:"required,max=200"`
	ParticipantIDs []string `json:"participant_ids" validate:"required,min=1,dive,required"`
	PropertyID     string   `json:"property_id"`
	Body           string   `json:"body" validate:"required,notblank,max=5000"`
}

func (nc *NewConversation) Validate(validate *validator.Validate) error {
	nc.Subject = core.CleanString(nc.Subject)
	nc.PropertyID = core.CleanString(nc.PropertyID)
	for i, id := range nc.ParticipantIDs {
		nc.ParticipantIDs[i] = core.CleanString(id)
	}
	return validate.Struct(nc)
}

type NewMessage struct {
	Body string `json:"body" validate:"required,notblank,max=5000"`
}

func (nm *NewMessage) Validate(validate *validator.Validate) error {
	return validate.Struct(nm)
}

type QueryFilter struct {
	Search        string `query:"search"` // subject
	PropertyID    string `query:"property_id"`
	UnreadOnly    bool   `query:"unread"`
	ParticipantID string `query:"-"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.PropertyID = core.CleanString(qf.PropertyID)
}
