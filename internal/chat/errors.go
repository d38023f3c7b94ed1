package chat

import "errors"

var (
	// ErrPermissionDenied: the caller has a valid identity but is not a
	// participant of the chat (or not the issuer, at creation time).
	ErrPermissionDenied = errors.New("not a participant of this chat")

	// ErrNotSigned: chat creation for a counterparty who has not signed
	// the underlying contract. Contract state, not identity.
	ErrNotSigned = errors.New("counterparty has not signed this contract")

	ErrChatNotFound = errors.New("chat not found")

	ErrEmptyContent = errors.New("message content is empty")
)
