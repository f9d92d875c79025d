package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/listforge/trustgate/core"
	"github.com/listforge/trustgate/ports"
	"github.com/rs/zerolog"
)

// Verifier decides whether a claimed payment satisfies a check.
// *PaymentVerifier is the production implementation.
type Verifier interface {
	Verify(ctx context.Context, check PaymentCheck) error
}

// SettleRequest asks to consume one on-chain payment for one priced action.
type SettleRequest struct {
	TxHash          common.Hash
	ChainID         uint64
	Payer           common.Address
	Action          core.ActionType
	RelatedEntityID string
}

// SettlementService verifies and consumes payments for priced actions.
type SettlementService struct {
	verifier Verifier
	ledger   ports.PaymentLedger
	prices   PriceTable
	payee    common.Address
	events   ports.EventPublisher
	log      zerolog.Logger
}

// NewSettlementService creates a new settlement service. payee is the
// platform treasury address every fee must reach.
func NewSettlementService(
	verifier Verifier,
	ledger ports.PaymentLedger,
	prices PriceTable,
	payee common.Address,
	events ports.EventPublisher,
	log zerolog.Logger,
) *SettlementService {
	return &SettlementService{
		verifier: verifier,
		ledger:   ledger,
		prices:   prices,
		payee:    payee,
		events:   events,
		log:      log.With().Str("component", "settlement").Logger(),
	}
}

// Settle runs the three hard gates in order: ledger pre-check, payment
// verification, record-once insert (with the unlocked action applied in the
// same atomic unit when apply is non-nil). The insert, not the pre-check,
// decides races: concurrent settlements of one hash converge on exactly one
// recorded payment and every loser observes core.ErrPaymentAlreadyUsed.
func (s *SettlementService) Settle(ctx context.Context, req SettleRequest, apply ports.ApplyFunc) (*core.Payment, error) {
	price, ok := s.prices[req.Action]
	if !ok {
		return nil, fmt.Errorf("action %q: %w", req.Action, core.ErrUnknownAction)
	}

	txHash := req.TxHash.Hex()

	used, err := s.ledger.Exists(ctx, txHash)
	if err != nil {
		return nil, fmt.Errorf("check ledger: %w", err)
	}
	if used {
		return nil, core.ErrPaymentAlreadyUsed
	}

	err = s.verifier.Verify(ctx, PaymentCheck{
		TxHash:  req.TxHash,
		ChainID: req.ChainID,
		Payer:   req.Payer,
		Payee:   s.payee,
		Price:   price,
	})
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	payment := core.Payment{
		TxHash:          txHash,
		FromAddress:     req.Payer.Hex(),
		ToAddress:       s.payee.Hex(),
		Amount:          price.Amount,
		Currency:        price.Currency.Symbol,
		ChainID:         req.ChainID,
		Action:          req.Action,
		RelatedEntityID: req.RelatedEntityID,
		ConfirmedAt:     now,
		CreatedAt:       now,
	}

	if err := s.ledger.RecordOnce(ctx, payment, apply); err != nil {
		if errors.Is(err, core.ErrPaymentAlreadyRecorded) {
			// Lost the race to a concurrent settlement of the same hash.
			return nil, core.ErrPaymentAlreadyUsed
		}
		return nil, err
	}

	if err := s.events.PublishSettlement(ctx, payment); err != nil {
		s.log.Warn().Err(err).Str("tx_hash", txHash).Msg("failed to publish settlement event")
	}

	s.log.Info().
		Str("tx_hash", txHash).
		Str("action", string(req.Action)).
		Str("payer", payment.FromAddress).
		Msg("payment settled")

	return &payment, nil
}
