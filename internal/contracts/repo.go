package contracts

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

var (
	ErrNotFound      = errors.New("contract not found")
	ErrNotOpen       = errors.New("contract is not open")
	ErrOwnContract   = errors.New("cannot sign your own contract")
	ErrAlreadySigned = errors.New("contract already signed")
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) Create(ctx context.Context, c *Contract) error {
	if c.Status == "" {
		c.Status = StatusOpen
	}
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *Repo) GetByID(ctx context.Context, id uint64) (*Contract, error) {
	var c Contract
	if err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *Repo) ListOpen(ctx context.Context) ([]Contract, error) {
	var out []Contract
	if err := r.db.WithContext(ctx).
		Where("status = ?", StatusOpen).
		Order("id DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repo) ListByIssuer(ctx context.Context, issuerID uint64) ([]Contract, error) {
	var out []Contract
	if err := r.db.WithContext(ctx).
		Where("issuer_id = ?", issuerID).
		Order("id DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// Sign records userID's signature on an open contract. Signing twice is
// rejected by the unique index, not by a racy pre-check.
func (r *Repo) Sign(ctx context.Context, contractID, userID uint64) error {
	c, err := r.GetByID(ctx, contractID)
	if err != nil {
		return err
	}
	if c.Status != StatusOpen {
		return ErrNotOpen
	}
	if c.IssuerID == userID {
		return ErrOwnContract
	}

	err = r.db.WithContext(ctx).Create(&Signature{ContractID: contractID, UserID: userID}).Error
	if err != nil {
		signed, checkErr := r.HasSigned(ctx, contractID, userID)
		if checkErr == nil && signed {
			return ErrAlreadySigned
		}
		return err
	}
	return nil
}

func (r *Repo) ListSigners(ctx context.Context, contractID uint64) ([]Signature, error) {
	var out []Signature
	if err := r.db.WithContext(ctx).
		Where("contract_id = ?", contractID).
		Order("id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// IsIssuer and HasSigned are the participation facts the chat service
// consumes at chat-creation time.

func (r *Repo) IsIssuer(ctx context.Context, contractID, userID uint64) (bool, error) {
	var cnt int64
	err := r.db.WithContext(ctx).Model(&Contract{}).
		Where("id = ? AND issuer_id = ?", contractID, userID).
		Count(&cnt).Error
	return cnt > 0, err
}

func (r *Repo) HasSigned(ctx context.Context, contractID, userID uint64) (bool, error) {
	var cnt int64
	err := r.db.WithContext(ctx).Model(&Signature{}).
		Where("contract_id = ? AND user_id = ?", contractID, userID).
		Count(&cnt).Error
	return cnt > 0, err
}
