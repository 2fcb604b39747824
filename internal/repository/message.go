package repository

import (
	"context"
	"strings"

	"bookdot/internal/api"
	"bookdot/internal/cryptobox"
	"bookdot/internal/dao"
	"bookdot/internal/models"
	"bookdot/internal/observability"
	"bookdot/internal/stream"
	"bookdot/internal/validation"
)

const (
	messageRepo = "message"

	// sealedPrefix marks cached content written through a Box.
	sealedPrefix = "sealed:v1:"
)

// MessageRepository sends through the backend and caches what it accepted.
// The cache never holds a message the backend has not confirmed.
type MessageRepository struct {
	env
	daos    *dao.DAOs
	session Session
	remote  api.MessageAPI
	box     *cryptobox.Box
	log     *observability.RepoLogger
}

// NewMessageRepository builds the repository. When box is non-nil the
// content of encrypted messages is sealed before it reaches the cache.
func NewMessageRepository(daos *dao.DAOs, session Session, remote api.MessageAPI, box *cryptobox.Box) *MessageRepository {
	return &MessageRepository{
		env:     defaultEnv(),
		daos:    daos,
		session: session,
		remote:  remote,
		box:     box,
		log:     observability.NewRepoLogger("messages"),
	}
}

// Conversation streams the cached conversation oldest first.
func (r *MessageRepository) Conversation(ctx context.Context, conversationID string) *stream.Subscription[[]*models.Message] {
	return stream.Map(ctx, r.daos.Messages.ObserveConversation(ctx, conversationID), r.open)
}

func (r *MessageRepository) open(_ context.Context, msgs []*models.Message) ([]*models.Message, error) {
	for _, m := range msgs {
		if !strings.HasPrefix(m.Content, sealedPrefix) {
			continue
		}
		if r.box == nil {
			return nil, models.NewInternalError(cryptobox.ErrMalformed)
		}
		plain, err := r.box.Open(strings.TrimPrefix(m.Content, sealedPrefix), m.ID)
		if err != nil {
			return nil, models.NewInternalError(err)
		}
		m.Content = plain
	}
	return msgs, nil
}

func (r *MessageRepository) seal(m *models.Message) (*models.Message, error) {
	if r.box == nil || !m.IsEncrypted || strings.HasPrefix(m.Content, sealedPrefix) {
		return m, nil
	}
	sealed, err := r.box.Seal(m.Content, m.ID)
	if err != nil {
		return nil, err
	}
	out := *m
	out.Content = sealedPrefix + sealed
	return &out, nil
}

func (r *MessageRepository) store(ctx context.Context, msgs ...*models.Message) error {
	rows := make([]*models.Message, 0, len(msgs))
	for _, m := range msgs {
		row, err := r.seal(m)
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}
	return r.daos.Messages.Upsert(ctx, rows...)
}

// Refresh replaces the cached copy of a conversation with the backend's.
func (r *MessageRepository) Refresh(ctx context.Context, conversationID string) (err error) {
	defer func() { err = boundary(messageRepo, "refresh", err) }()

	if _, err := requireSession(r.session); err != nil {
		return err
	}
	msgs, err := r.remote.Conversation(ctx, conversationID)
	if err != nil {
		return err
	}
	if err := r.store(ctx, msgs...); err != nil {
		return err
	}
	r.log.LogRead(ctx, map[string]interface{}{"conversation_id": conversationID, "count": len(msgs)})
	return nil
}

func (r *MessageRepository) Send(ctx context.Context, conversationID string, in models.SendMessageInput) (_ *models.Message, err error) {
	span, ctx := observability.NewSpan(ctx, "messages.Send")
	defer span.End()
	defer func() { err = boundary(messageRepo, "send", err); span.SetError(err) }()

	if _, err := requireSession(r.session); err != nil {
		return nil, err
	}
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	msg, err := r.remote.Send(ctx, conversationID, in)
	if err != nil {
		return nil, err
	}
	if err := r.store(ctx, msg); err != nil {
		return nil, err
	}
	r.log.LogCreate(ctx, map[string]interface{}{"message_id": msg.ID, "conversation_id": conversationID})
	return msg, nil
}

func (r *MessageRepository) MarkAsRead(ctx context.Context, messageID string) (err error) {
	defer func() { err = boundary(messageRepo, "mark_read", err) }()

	if _, err := requireSession(r.session); err != nil {
		return err
	}
	if err := r.remote.MarkAsRead(ctx, messageID); err != nil {
		return err
	}
	_, err = r.daos.Messages.MarkAsRead(ctx, messageID, r.now())
	return err
}

// MarkConversationAsRead stamps every message the session user received.
func (r *MessageRepository) MarkConversationAsRead(ctx context.Context, conversationID string) (err error) {
	defer func() { err = boundary(messageRepo, "mark_conversation_read", err) }()

	uid, err := requireSession(r.session)
	if err != nil {
		return err
	}
	if err := r.remote.MarkConversationAsRead(ctx, conversationID); err != nil {
		return err
	}
	n, err := r.daos.Messages.MarkConversationAsRead(ctx, conversationID, uid, r.now())
	if err != nil {
		return err
	}
	r.log.LogUpdate(ctx, map[string]interface{}{"conversation_id": conversationID, "marked": n})
	return nil
}

func (r *MessageRepository) Delete(ctx context.Context, messageID string) (err error) {
	defer func() { err = boundary(messageRepo, "delete", err) }()

	if _, err := requireSession(r.session); err != nil {
		return err
	}
	if err := r.remote.DeleteMessage(ctx, messageID); err != nil {
		return err
	}
	if _, err := r.daos.Messages.Delete(ctx, messageID); err != nil {
		return err
	}
	r.log.LogDelete(ctx, map[string]interface{}{"message_id": messageID})
	return nil
}
