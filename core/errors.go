package core

import "errors"

// Sign-in errors. Each failed check in the sign-in state machine reports a
// distinct reason so clients can react appropriately.
var (
	// ErrInvalidMessage is returned when the challenge message cannot be parsed
	ErrInvalidMessage = errors.New("invalid sign-in message")

	// ErrDomainMismatch is returned when the message was built for another domain
	ErrDomainMismatch = errors.New("domain mismatch")

	// ErrMessageExpired is returned when the challenge expiration time is past
	ErrMessageExpired = errors.New("sign-in message has expired")

	// ErrSignatureMismatch is returned when the signature does not recover
	// to the claimed address
	ErrSignatureMismatch = errors.New("signature mismatch")
)

// Credential errors.
var (
	// ErrTokenExpired is returned when a credential's expiry is not in the future
	ErrTokenExpired = errors.New("token has expired")

	// ErrTokenMalformed is returned for structurally broken credentials
	ErrTokenMalformed = errors.New("token is malformed")

	// ErrInvalidToken is returned when the credential signature does not verify
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenRevoked is returned when the credential has been denylisted
	ErrTokenRevoked = errors.New("token has been revoked")
)

// Settlement errors.
var (
	// ErrPaymentAlreadyRecorded is the ledger's translation of a uniqueness
	// violation on the transaction hash
	ErrPaymentAlreadyRecorded = errors.New("payment already recorded")

	// ErrPaymentAlreadyUsed is returned when a settlement attempt reuses a
	// transaction that already unlocked an action
	ErrPaymentAlreadyUsed = errors.New("payment already used")

	// ErrLookupFailed is returned when the transaction or its receipt cannot
	// be obtained, or the receipt reports failure. The only settlement error
	// a client should retry verbatim.
	ErrLookupFailed = errors.New("transaction lookup failed")

	// ErrSenderMismatch is returned when the transaction sender is not the payer
	ErrSenderMismatch = errors.New("sender mismatch")

	// ErrRecipientMismatch is returned when the funds did not reach the payee
	ErrRecipientMismatch = errors.New("recipient mismatch")

	// ErrAmountMismatch is returned when the transferred value is not the price
	ErrAmountMismatch = errors.New("amount mismatch")

	// ErrChainUnsupported is returned for chain IDs with no configured reader
	ErrChainUnsupported = errors.New("chain not supported")

	// ErrUnknownAction is returned for action types outside the price table
	ErrUnknownAction = errors.New("unknown action")
)
