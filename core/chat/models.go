package chat

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/aulanet/campus/core"
)

type Conversation struct {
	ID        string    `json:"id"`
	Topic     string    `json:"topic,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Participant struct {
	ConversationID string    `json:"conversation_id"`
	UserID         string    `json:"user_id"`
	IsActive       bool      `json:"is_active"`
	JoinedAt       time.Time `json:"joined_at"`
}

type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	Body           string    `json:"body"`
	AttachmentURL  string    `json:"attachment_url,omitempty"`
	IsDeleted      bool      `json:"is_deleted"`
	CreatedAt      time.Time `json:"created_at"`
	EditedAt       time.Time `json:"edited_at,omitempty"`
}

type NewConversation struct {
	Topic          string   `json:"topic"`
	ParticipantIDs []string `json:"participant_ids" validate:"required,min=1,dive,uuid4"`
}

func (nc *NewConversation) Validate(validate *validator.Validate) error {
	nc.Topic = core.CleanString(nc.Topic)
	return validate.Struct(nc)
}

type NewMessage struct {
	Body string `json:"body" validate:"required"`
}

func (nm *NewMessage) Validate(validate *validator.Validate) error {
	nm.Body = core.CleanString(nm.Body)
	return validate.Struct(nm)
}

type EditMessage struct {
	Body string `json:"body" validate:"required"`
}

func (em *EditMessage) Validate(validate *validator.Validate) error {
	em.Body = core.CleanString(em.Body)
	return validate.Struct(em)
}
