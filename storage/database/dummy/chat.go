package dummydb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/aulanet/campus/core/chat"
)

type chatRepository struct {
	db *chatTables
}

var _ chat.Repository = (*chatRepository)(nil)

func NewChatRepository(db *DB) *chatRepository {
	return &chatRepository{db: db.chat}
}

func (repo *chatRepository) CreateConversation(_ context.Context, c chat.Conversation, participantIDs []string) (chat.Conversation, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	c.ID = uuid.New().String()
	repo.db.conversations[c.ID] = &c
	for _, userID := range participantIDs {
		repo.db.participants[c.ID] = append(repo.db.participants[c.ID], &chat.Participant{
			ConversationID: c.ID,
			UserID:         userID,
			IsActive:       true,
			JoinedAt:       c.CreatedAt,
		})
	}
	return c, nil
}

func (repo *chatRepository) GetConversationByID(_ context.Context, id string) (chat.Conversation, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if c, ok := repo.db.conversations[id]; ok {
		return *c, nil
	}
	return chat.Conversation{}, chat.ErrConversationNotFound
}

func (repo *chatRepository) QueryConversationsByUser(_ context.Context, userID string) ([]chat.Conversation, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	convs := make([]chat.Conversation, 0)
	for id, participants := range repo.db.participants {
		for _, p := range participants {
			if p.UserID == userID && p.IsActive {
				convs = append(convs, *repo.db.conversations[id])
				break
			}
		}
	}
	sort.Slice(convs, func(i, j int) bool { return convs[i].CreatedAt.After(convs[j].CreatedAt) })
	return convs, nil
}

func (repo *chatRepository) IsParticipant(_ context.Context, conversationID, userID string) (bool, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, p := range repo.db.participants[conversationID] {
		if p.UserID == userID && p.IsActive {
			return true, nil
		}
	}
	return false, nil
}

func (repo *chatRepository) QueryParticipants(_ context.Context, conversationID string) ([]chat.Participant, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	participants := make([]chat.Participant, 0, len(repo.db.participants[conversationID]))
	for _, p := range repo.db.participants[conversationID] {
		participants = append(participants, *p)
	}
	return participants, nil
}

func (repo *chatRepository) CreateMessage(_ context.Context, m chat.Message) (chat.Message, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	m.ID = uuid.New().String()
	repo.db.messages[m.ID] = &m
	return m, nil
}

func (repo *chatRepository) GetMessageByID(_ context.Context, id string) (chat.Message, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if m, ok := repo.db.messages[id]; ok {
		return *m, nil
	}
	return chat.Message{}, chat.ErrMessageNotFound
}

func (repo *chatRepository) QueryMessages(_ context.Context, conversationID string) ([]chat.Message, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	msgs := make([]chat.Message, 0)
	for _, m := range repo.db.messages {
		if m.ConversationID == conversationID {
			msgs = append(msgs, *m)
		}
	}
	sort.Slice(msgs, func(i, j int) bool { return msgs[i].CreatedAt.Before(msgs[j].CreatedAt) })
	return msgs, nil
}

func (repo *chatRepository) UpdateMessage(_ context.Context, m chat.Message) (chat.Message, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.messages[m.ID]; !ok {
		return chat.Message{}, chat.ErrMessageNotFound
	}
	repo.db.messages[m.ID] = &m
	return m, nil
}
