package chat

import "time"

// Chat is a two-party conversation scoped to one signed contract. The
// unique index on (contract_id, counterparty_id) is the source of the
// at-most-one-chat invariant; creation relies on it instead of a
// check-then-insert.
type Chat struct {
	ID             uint64    `gorm:"primaryKey;autoIncrement" json:"-"`
	ChatID         string    `gorm:"type:varchar(26);uniqueIndex;not null" json:"chat_id"`
	ContractID     uint64    `gorm:"not null;index:uniq_contract_counterparty,unique,priority:1" json:"contract_id"`
	IssuerID       uint64    `gorm:"index;not null" json:"issuer_id"`
	CounterpartyID uint64    `gorm:"not null;index:uniq_contract_counterparty,unique,priority:2" json:"counterparty_id"`
	CreatedAt      time.Time `json:"created_at"`
}

func (Chat) TableName() string { return "chats" }

// Message is the canonical, persisted form. SentAt is assigned from the
// server clock on insert; a client-supplied timestamp is never trusted for
// ordering.
type Message struct {
	ID       uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	ChatID   string    `gorm:"type:varchar(26);index:idx_msg_chat_sent,priority:1;not null" json:"chat_id"`
	SenderID uint64    `gorm:"index;not null" json:"sender_id"`
	Content  string    `gorm:"type:text;not null" json:"content"`
	SentAt   time.Time `gorm:"index:idx_msg_chat_sent,priority:2;not null" json:"sent_at"`
	Read     bool      `gorm:"not null;default:false" json:"read"`
}

func (Message) TableName() string { return "chat_messages" }

// ChatSummary is the listChats projection: the chat plus its latest
// message, denormalized for the conversation list. Not a stored entity.
type ChatSummary struct {
	ChatID         string     `json:"chat_id"`
	ContractID     uint64     `json:"contract_id"`
	ContractTitle  string     `json:"contract_title"`
	IssuerID       uint64     `json:"issuer_id"`
	CounterpartyID uint64     `json:"counterparty_id"`
	CreatedAt      time.Time  `json:"created_at"`
	LastMessage    *string    `json:"last_message"`
	LastMessageAt  *time.Time `json:"last_message_at"`
}
