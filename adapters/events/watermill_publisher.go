package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/listforge/trustgate/core"
	"github.com/listforge/trustgate/ports"
)

const (
	TopicLogout     = "trustgate.logout"
	TopicSettlement = "trustgate.settlement"
)

// LogoutEvent announces a revoked credential to other instances.
type LogoutEvent struct {
	Address string `json:"address"`
	TokenID string `json:"token_id"`
}

// SettlementEvent announces a consumed payment.
type SettlementEvent struct {
	TxHash   string `json:"tx_hash"`
	Payer    string `json:"payer"`
	Action   string `json:"action"`
	ChainID  uint64 `json:"chain_id"`
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

// WatermillPublisher implements the EventPublisher interface using Watermill
type WatermillPublisher struct {
	publisher message.Publisher
}

// NewWatermillPublisher creates a new Watermill publisher
func NewWatermillPublisher(publisher message.Publisher) ports.EventPublisher {
	return &WatermillPublisher{publisher: publisher}
}

// PublishLogout publishes a logout event
func (p *WatermillPublisher) PublishLogout(ctx context.Context, address string, tokenID string) error {
	return p.publish(TopicLogout, tokenID, LogoutEvent{
		Address: address,
		TokenID: tokenID,
	})
}

// PublishSettlement publishes a settlement event
func (p *WatermillPublisher) PublishSettlement(ctx context.Context, payment core.Payment) error {
	return p.publish(TopicSettlement, payment.TxHash, SettlementEvent{
		TxHash:   payment.TxHash,
		Payer:    payment.FromAddress,
		Action:   string(payment.Action),
		ChainID:  payment.ChainID,
		Amount:   payment.Amount.String(),
		Currency: payment.Currency,
	})
}

func (p *WatermillPublisher) publish(topic, id string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(id, payload)

	if err := p.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}
