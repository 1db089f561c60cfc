package chat

import (
	"context"
	"io"
	"time"

	"github.com/pkg/errors"

	"github.com/aulanet/campus/core"
	"github.com/aulanet/campus/core/authz"
)

var (
	ErrConversationNotFound = errors.New("conversación no encontrada")
	ErrMessageNotFound      = errors.New("mensaje no encontrado")
)

type (
	Repository interface {
		CreateConversation(ctx context.Context, c Conversation, participantIDs []string) (Conversation, error)
		GetConversationByID(ctx context.Context, id string) (Conversation, error)
		QueryConversationsByUser(ctx context.Context, userID string) ([]Conversation, error)
		IsParticipant(ctx context.Context, conversationID, userID string) (bool, error)
		QueryParticipants(ctx context.Context, conversationID string) ([]Participant, error)

		CreateMessage(ctx context.Context, m Message) (Message, error)
		GetMessageByID(ctx context.Context, id string) (Message, error)
		// QueryMessages returns messages oldest first; deleted messages come
		// back with an empty body and IsDeleted set.
		QueryMessages(ctx context.Context, conversationID string) ([]Message, error)
		UpdateMessage(ctx context.Context, m Message) (Message, error)
	}

	Service struct {
		repo   Repository
		files  core.FileStorage
		notify core.NotificationSink
		now    func() time.Time // mockable clock for the edit window
	}
)

func NewService(repo Repository, files core.FileStorage, notify core.NotificationSink) *Service {
	return &Service{repo: repo, files: files, notify: notify, now: time.Now}
}

// Grant resolves the membership snapshot for the authz policy.
func (svc *Service) Grant(ctx context.Context, ident authz.Identity, conversationID string) (authz.ConversationGrant, error) {
	if _, err := svc.repo.GetConversationByID(ctx, conversationID); err != nil {
		return authz.ConversationGrant{}, err
	}
	ok, err := svc.repo.IsParticipant(ctx, conversationID, ident.ID)
	if err != nil {
		return authz.ConversationGrant{}, err
	}
	return authz.ConversationGrant{ConversationID: conversationID, Participant: ok}, nil
}

func (svc *Service) CreateConversation(ctx context.Context, creatorID string, nc NewConversation) (Conversation, error) {
	ids := append([]string{creatorID}, nc.ParticipantIDs...)
	seen := make(map[string]bool, len(ids))
	uniq := ids[:0]
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			uniq = append(uniq, id)
		}
	}
	return svc.repo.CreateConversation(ctx, Conversation{
		Topic:     nc.Topic,
		CreatedAt: time.Now().UTC(),
	}, uniq)
}

func (svc *Service) QueryConversations(ctx context.Context, userID string) ([]Conversation, error) {
	return svc.repo.QueryConversationsByUser(ctx, userID)
}

func (svc *Service) QueryMessages(ctx context.Context, conversationID string) ([]Message, error) {
	return svc.repo.QueryMessages(ctx, conversationID)
}

// Send posts a message; membership and the approval gate were checked by the
// handler. Other active participants get a notification row each.
func (svc *Service) Send(ctx context.Context, conversationID, senderID string, nm NewMessage) (Message, error) {
	msg, err := svc.repo.CreateMessage(ctx, Message{
		ConversationID: conversationID,
		SenderID:       senderID,
		Body:           nm.Body,
		CreatedAt:      time.Now().UTC(),
	})
	if err != nil {
		return Message{}, err
	}

	participants, err := svc.repo.QueryParticipants(ctx, conversationID)
	if err != nil {
		return msg, nil // message went through; fan-out is best-effort
	}
	notes := make([]core.Note, 0, len(participants))
	for _, p := range participants {
		if p.UserID == senderID || !p.IsActive {
			continue
		}
		notes = append(notes, core.Note{
			UserID: p.UserID,
			Kind:   "message",
			Title:  "Nuevo mensaje",
			Body:   "Tenés un mensaje nuevo.",
		})
	}
	svc.notify.Notify(ctx, notes...)
	return msg, nil
}

// SendAttachment stores the file and posts a message referencing it.
func (svc *Service) SendAttachment(ctx context.Context, conversationID, senderID, filename string, r io.Reader) (Message, error) {
	url, err := svc.files.Save(ctx, "chat/"+conversationID, filename, r)
	if err != nil {
		return Message{}, errors.Wrap(err, "storing attachment")
	}
	return svc.repo.CreateMessage(ctx, Message{
		ConversationID: conversationID,
		SenderID:       senderID,
		Body:           filename,
		AttachmentURL:  url,
		CreatedAt:      time.Now().UTC(),
	})
}

// Edit rewrites a message's body. Sender-only, inside the 15-minute window.
func (svc *Service) Edit(ctx context.Context, ident authz.Identity, messageID string, em EditMessage) (Message, error) {
	msg, err := svc.repo.GetMessageByID(ctx, messageID)
	if err != nil {
		return Message{}, err
	}
	if err := authz.CanModifyMessage(ident, msg.SenderID, msg.CreatedAt, svc.now()); err != nil {
		return Message{}, err
	}
	msg.Body = em.Body
	msg.EditedAt = svc.now().UTC()
	return svc.repo.UpdateMessage(ctx, msg)
}

// Delete soft-deletes a message. Same window as Edit.
func (svc *Service) Delete(ctx context.Context, ident authz.Identity, messageID string) error {
	msg, err := svc.repo.GetMessageByID(ctx, messageID)
	if err != nil {
		return err
	}
	if err := authz.CanModifyMessage(ident, msg.SenderID, msg.CreatedAt, svc.now()); err != nil {
		return err
	}
	msg.IsDeleted = true
	msg.Body = ""
	_, err = svc.repo.UpdateMessage(ctx, msg)
	return err
}
