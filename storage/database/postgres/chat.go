package pgrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/aulanet/campus/core/chat"
)

type chatRepository struct {
	db *sqlx.DB
}

var _ chat.Repository = (*chatRepository)(nil)

func NewChatRepository(db *sqlx.DB) *chatRepository {
	return &chatRepository{db: db}
}

type conversationRow struct {
	ID        string      `db:"id"`
	Topic     null.String `db:"topic"`
	CreatedAt time.Time   `db:"created_at"`
}

func (repo chatRepository) unrowConversation(r conversationRow) chat.Conversation {
	return chat.Conversation{ID: r.ID, Topic: r.Topic.String, CreatedAt: r.CreatedAt}
}

// CreateConversation inserts the conversation and all participant rows in one
// transaction.
func (repo chatRepository) CreateConversation(ctx context.Context, c chat.Conversation, participantIDs []string) (chat.Conversation, error) {
	c.ID = uuid.New().String()
	c.CreatedAt = c.CreatedAt.UTC()

	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return chat.Conversation{}, errors.Wrap(err, "beginning tx")
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO conversation (id, topic, created_at) VALUES ($1, $2, $3)`,
		c.ID, null.NewString(c.Topic, c.Topic != ""), c.CreatedAt)
	if err != nil {
		return chat.Conversation{}, errors.Wrap(err, "inserting conversation")
	}
	for _, userID := range participantIDs {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO conversation_participant (conversation_id, user_id, is_active, joined_at)
			VALUES ($1, $2, TRUE, $3)`, c.ID, userID, c.CreatedAt)
		if err != nil {
			return chat.Conversation{}, errors.Wrap(err, "inserting participant")
		}
	}
	if err = tx.Commit(); err != nil {
		return chat.Conversation{}, errors.Wrap(err, "committing tx")
	}
	return c, nil
}

func (repo chatRepository) GetConversationByID(ctx context.Context, id string) (chat.Conversation, error) {
	var r conversationRow
	if err := repo.db.GetContext(ctx, &r, `SELECT * FROM conversation WHERE id = $1`, id); err != nil {
		return chat.Conversation{}, trapNoRowsErr(err, chat.ErrConversationNotFound, "getting conversation")
	}
	return repo.unrowConversation(r), nil
}

func (repo chatRepository) QueryConversationsByUser(ctx context.Context, userID string) ([]chat.Conversation, error) {
	var rows []conversationRow
	err := repo.db.SelectContext(ctx, &rows, `
		SELECT c.* FROM conversation c
		JOIN conversation_participant cp ON cp.conversation_id = c.id
		WHERE cp.user_id = $1 AND cp.is_active
		ORDER BY c.created_at DESC`, userID)
	if err != nil {
		return nil, errors.Wrap(err, "querying conversations")
	}
	convs := make([]chat.Conversation, 0, len(rows))
	for _, r := range rows {
		convs = append(convs, repo.unrowConversation(r))
	}
	return convs, nil
}

func (repo chatRepository) IsParticipant(ctx context.Context, conversationID, userID string) (bool, error) {
	var ok bool
	err := repo.db.GetContext(ctx, &ok, `
		SELECT EXISTS (
			SELECT 1 FROM conversation_participant
			WHERE conversation_id = $1 AND user_id = $2 AND is_active
		)`, conversationID, userID)
	return ok, errors.Wrap(err, "checking participant")
}

func (repo chatRepository) QueryParticipants(ctx context.Context, conversationID string) ([]chat.Participant, error) {
	var participants []chat.Participant
	rows, err := repo.db.QueryxContext(ctx, `
		SELECT conversation_id, user_id, is_active, joined_at
		FROM conversation_participant WHERE conversation_id = $1`, conversationID)
	if err != nil {
		return nil, errors.Wrap(err, "querying participants")
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var p chat.Participant
		if err = rows.Scan(&p.ConversationID, &p.UserID, &p.IsActive, &p.JoinedAt); err != nil {
			return nil, errors.Wrap(err, "scanning participant")
		}
		participants = append(participants, p)
	}
	return participants, errors.Wrap(rows.Err(), "querying participants")
}

type messageRow struct {
	ID             string      `db:"id"`
	ConversationID string      `db:"conversation_id"`
	SenderID       string      `db:"sender_id"`
	Body           string      `db:"body"`
	AttachmentURL  null.String `db:"attachment_url"`
	IsDeleted      bool        `db:"is_deleted"`
	CreatedAt      time.Time   `db:"created_at"`
	EditedAt       null.Time   `db:"edited_at"`
}

func (repo chatRepository) messageRow(m chat.Message) messageRow {
	return messageRow{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		Body:           m.Body,
		AttachmentURL:  null.NewString(m.AttachmentURL, m.AttachmentURL != ""),
		IsDeleted:      m.IsDeleted,
		CreatedAt:      m.CreatedAt.UTC(),
		EditedAt:       null.NewTime(m.EditedAt.UTC(), !m.EditedAt.IsZero()),
	}
}

func (repo chatRepository) unrowMessage(r messageRow) chat.Message {
	return chat.Message{
		ID:             r.ID,
		ConversationID: r.ConversationID,
		SenderID:       r.SenderID,
		Body:           r.Body,
		AttachmentURL:  r.AttachmentURL.String,
		IsDeleted:      r.IsDeleted,
		CreatedAt:      r.CreatedAt,
		EditedAt:       r.EditedAt.Time,
	}
}

func (repo chatRepository) CreateMessage(ctx context.Context, m chat.Message) (chat.Message, error) {
	m.ID = uuid.New().String()
	r := repo.messageRow(m)
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO message (id, conversation_id, sender_id, body, attachment_url, is_deleted, created_at, edited_at)
		VALUES (:id, :conversation_id, :sender_id, :body, :attachment_url, :is_deleted, :created_at, :edited_at)`, r)
	if err != nil {
		return chat.Message{}, errors.Wrap(err, "inserting message")
	}
	return repo.unrowMessage(r), nil
}

func (repo chatRepository) GetMessageByID(ctx context.Context, id string) (chat.Message, error) {
	var r messageRow
	if err := repo.db.GetContext(ctx, &r, `SELECT * FROM message WHERE id = $1`, id); err != nil {
		return chat.Message{}, trapNoRowsErr(err, chat.ErrMessageNotFound, "getting message")
	}
	return repo.unrowMessage(r), nil
}

func (repo chatRepository) QueryMessages(ctx context.Context, conversationID string) ([]chat.Message, error) {
	var rows []messageRow
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT * FROM message WHERE conversation_id = $1 ORDER BY created_at`, conversationID)
	if err != nil {
		return nil, errors.Wrap(err, "querying messages")
	}
	msgs := make([]chat.Message, 0, len(rows))
	for _, r := range rows {
		msgs = append(msgs, repo.unrowMessage(r))
	}
	return msgs, nil
}

func (repo chatRepository) UpdateMessage(ctx context.Context, m chat.Message) (chat.Message, error) {
	r := repo.messageRow(m)
	res, err := repo.db.NamedExecContext(ctx, `
		UPDATE message
		SET body = :body, attachment_url = :attachment_url, is_deleted = :is_deleted, edited_at = :edited_at
		WHERE id = :id`, r)
	if err != nil {
		return chat.Message{}, errors.Wrap(err, "updating message")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return chat.Message{}, chat.ErrMessageNotFound
	}
	return repo.unrowMessage(r), nil
}
