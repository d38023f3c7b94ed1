package chat

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

// CreateChatOrGetExisting tries to create the chat; if a chat for the same
// (contract_id, counterparty_id) already exists the unique index rejects
// the insert and the existing row is returned instead. The bool reports
// whether a new chat was created.
func (r *Repo) CreateChatOrGetExisting(ctx context.Context, c *Chat) (*Chat, bool, error) {
	err := r.db.WithContext(ctx).Create(c).Error
	if err == nil {
		return c, true, nil
	}

	existing, getErr := r.GetChatByContract(ctx, c.ContractID, c.CounterpartyID)
	if getErr == nil {
		return existing, false, nil
	}
	if errors.Is(getErr, gorm.ErrRecordNotFound) {
		return nil, false, err
	}
	return nil, false, getErr
}

func (r *Repo) GetChatByChatID(ctx context.Context, chatID string) (*Chat, error) {
	var c Chat
	if err := r.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *Repo) GetChatByContract(ctx context.Context, contractID, counterpartyID uint64) (*Chat, error) {
	var c Chat
	if err := r.db.WithContext(ctx).
		Where("contract_id = ? AND counterparty_id = ?", contractID, counterpartyID).
		First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *Repo) InsertMessage(ctx context.Context, m *Message) error {
	return r.db.WithContext(ctx).Create(m).Error
}

// ListMessagesAsc returns the full history oldest-first. sent_at is the
// order; id breaks ties between inserts landing on the same tick.
func (r *Repo) ListMessagesAsc(ctx context.Context, chatID string) ([]Message, error) {
	var msgs []Message
	if err := r.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("sent_at ASC, id ASC").
		Find(&msgs).Error; err != nil {
		return nil, err
	}
	return msgs, nil
}

// MarkMessagesRead flips read on everything the reader did not author.
// One bulk UPDATE, so concurrent readers cannot lose each other's marks;
// re-running it is a no-op.
func (r *Repo) MarkMessagesRead(ctx context.Context, chatID string, readerID uint64) error {
	return r.db.WithContext(ctx).Model(&Message{}).
		Where("chat_id = ? AND sender_id != ? AND `read` = ?", chatID, readerID, false).
		Update("read", true).Error
}

// ListChatSummaries returns every chat the user participates in, newest
// activity first, each with its last message denormalized in.
func (r *Repo) ListChatSummaries(ctx context.Context, userID uint64) ([]ChatSummary, error) {
	var out []ChatSummary
	err := r.db.WithContext(ctx).Raw(`
		SELECT
			c.chat_id,
			c.contract_id,
			ct.title AS contract_title,
			c.issuer_id,
			c.counterparty_id,
			c.created_at,
			(SELECT m.content FROM chat_messages m WHERE m.chat_id = c.chat_id ORDER BY m.sent_at DESC, m.id DESC LIMIT 1) AS last_message,
			(SELECT m.sent_at FROM chat_messages m WHERE m.chat_id = c.chat_id ORDER BY m.sent_at DESC, m.id DESC LIMIT 1) AS last_message_at
		FROM chats c
		JOIN contracts ct ON ct.id = c.contract_id
		WHERE c.issuer_id = ? OR c.counterparty_id = ?
		ORDER BY last_message_at DESC`,
		userID, userID,
	).Scan(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
