package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dealroom-app/dealroom/internal/common"
	"gorm.io/gorm"
)

// ContractOracle answers the two contract facts chat creation depends on.
// Implemented by the contracts repo; faked in tests.
type ContractOracle interface {
	IsIssuer(ctx context.Context, contractID, userID uint64) (bool, error)
	HasSigned(ctx context.Context, contractID, userID uint64) (bool, error)
}

type Service struct {
	repo        *Repo
	oracle      ContractOracle
	sendTimeout time.Duration
}

func NewService(repo *Repo, oracle ContractOracle, sendTimeout time.Duration) *Service {
	if sendTimeout <= 0 {
		sendTimeout = 5 * time.Second
	}
	return &Service{repo: repo, oracle: oracle, sendTimeout: sendTimeout}
}

// CreateChat opens (or returns) the conversation between the issuer of a
// contract and one of its signers. Only the issuer may create it, and only
// for a counterparty who signed. Idempotent: the second call returns the
// chat from the first. The bool reports whether a new chat was created.
func (s *Service) CreateChat(ctx context.Context, requesterID, contractID, counterpartyID uint64) (*Chat, bool, error) {
	isIssuer, err := s.oracle.IsIssuer(ctx, contractID, requesterID)
	if err != nil {
		return nil, false, err
	}
	if !isIssuer {
		return nil, false, ErrPermissionDenied
	}

	signed, err := s.oracle.HasSigned(ctx, contractID, counterpartyID)
	if err != nil {
		return nil, false, err
	}
	if !signed {
		return nil, false, ErrNotSigned
	}

	chatID, err := common.NewULID()
	if err != nil {
		return nil, false, err
	}

	return s.repo.CreateChatOrGetExisting(ctx, &Chat{
		ChatID:         chatID,
		ContractID:     contractID,
		IssuerID:       requesterID,
		CounterpartyID: counterpartyID,
	})
}

// SendMessage validates participation, stamps the server time and persists.
// The participation check runs on every send; nothing is cached from an
// earlier join. The returned message is the canonical one, with its real
// id and sent_at.
func (s *Service) SendMessage(ctx context.Context, senderID uint64, chatID, content string) (*Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyContent
	}

	ctx, cancel := context.WithTimeout(ctx, s.sendTimeout)
	defer cancel()

	c, err := s.repo.GetChatByChatID(ctx, chatID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrChatNotFound
		}
		return nil, err
	}
	if senderID != c.IssuerID && senderID != c.CounterpartyID {
		return nil, ErrPermissionDenied
	}

	msg := &Message{
		ChatID:   chatID,
		SenderID: senderID,
		Content:  content,
		SentAt:   time.Now(),
	}
	if err := s.repo.InsertMessage(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// ListMessages returns the chat's history oldest-first and, as a side
// effect, marks every message the requester did not author as read.
func (s *Service) ListMessages(ctx context.Context, requesterID uint64, chatID string) ([]Message, error) {
	c, err := s.repo.GetChatByChatID(ctx, chatID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrChatNotFound
		}
		return nil, err
	}
	if requesterID != c.IssuerID && requesterID != c.CounterpartyID {
		return nil, ErrPermissionDenied
	}

	msgs, err := s.repo.ListMessagesAsc(ctx, chatID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.MarkMessagesRead(ctx, chatID, requesterID); err != nil {
		return nil, err
	}
	return msgs, nil
}

func (s *Service) ListChats(ctx context.Context, requesterID uint64) ([]ChatSummary, error) {
	return s.repo.ListChatSummaries(ctx, requesterID)
}

// IsParticipant reports whether userID is one of the chat's two parties.
func (s *Service) IsParticipant(ctx context.Context, userID uint64, chatID string) (bool, error) {
	c, err := s.repo.GetChatByChatID(ctx, chatID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, ErrChatNotFound
		}
		return false, err
	}
	return userID == c.IssuerID || userID == c.CounterpartyID, nil
}
