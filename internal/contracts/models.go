package contracts

import "time"

type Status string

const (
	StatusOpen   Status = "open"
	StatusClosed Status = "closed"
)

// Contract is a published offer. The issuer is the only party allowed to
// close it or to start chats with its signers.
type Contract struct {
	ID          uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	IssuerID    uint64    `gorm:"index;not null" json:"issuer_id"`
	Title       string    `gorm:"type:varchar(255);not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	Status      Status    `gorm:"type:varchar(16);index;not null" json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"-"`
}

func (Contract) TableName() string { return "contracts" }

// Signature records that a user signed a contract. One row per
// (contract, user); the unique index is what makes re-signing detectable
// without a check-then-insert race.
type Signature struct {
	ID         uint64    `gorm:"primaryKey;autoIncrement" json:"-"`
	ContractID uint64    `gorm:"not null;index:uniq_contract_signer,unique,priority:1" json:"contract_id"`
	UserID     uint64    `gorm:"not null;index:uniq_contract_signer,unique,priority:2" json:"user_id"`
	CreatedAt  time.Time `json:"signed_at"`
}

func (Signature) TableName() string { return "contract_signatures" }
