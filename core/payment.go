package core

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ActionType names a platform action that is unlocked by an on-chain fee.
type ActionType string

const (
	ActionDeploy  ActionType = "deploy"
	ActionList    ActionType = "list"
	ActionFeature ActionType = "feature"
	ActionPin     ActionType = "pin"
)

// ParseAction validates a client-supplied action name.
func ParseAction(s string) (ActionType, error) {
	switch ActionType(s) {
	case ActionDeploy, ActionList, ActionFeature, ActionPin:
		return ActionType(s), nil
	}
	return "", fmt.Errorf("action %q: %w", s, ErrUnknownAction)
}

// Payment is one consumed on-chain payment. Rows are written exactly once,
// never mutated and never deleted; the transaction hash is the global
// uniqueness key that prevents a payment from unlocking two actions.
type Payment struct {
	TxHash          string          `db:"tx_hash"`
	FromAddress     string          `db:"from_address"`
	ToAddress       string          `db:"to_address"`
	Amount          decimal.Decimal `db:"amount"`
	Currency        string          `db:"currency"`
	ChainID         uint64          `db:"chain_id"`
	Action          ActionType      `db:"action_type"`
	RelatedEntityID string          `db:"related_entity_id"` // empty means none
	ConfirmedAt     time.Time       `db:"confirmed_at"`
	CreatedAt       time.Time       `db:"created_at"`
}
