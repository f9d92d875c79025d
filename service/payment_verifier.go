package service

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/listforge/trustgate/core"
	"github.com/listforge/trustgate/ports"
)

// transferTopic is the topic0 of the ERC-20 Transfer(address,address,uint256)
// event, used to extract token payment amounts from receipt logs.
var transferTopic = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))

// PaymentCheck is the price/recipient/sender triple a claimed transaction
// must satisfy.
type PaymentCheck struct {
	TxHash  common.Hash
	ChainID uint64
	Payer   common.Address
	Payee   common.Address
	Price   Price
}

// PaymentVerifier decides whether a claimed on-chain payment satisfies a
// PaymentCheck. It never retries: a transient RPC failure surfaces as
// core.ErrLookupFailed and the caller decides whether to try again, so a
// genuinely reverted transaction is never masked by silent retry.
type PaymentVerifier struct {
	readers map[uint64]ports.ChainReader
	timeout time.Duration
}

// NewPaymentVerifier creates a verifier over the configured chain readers.
// Every lookup is bounded by timeout.
func NewPaymentVerifier(readers map[uint64]ports.ChainReader, timeout time.Duration) *PaymentVerifier {
	return &PaymentVerifier{readers: readers, timeout: timeout}
}

// Verify fetches the transaction and its receipt and checks sender,
// recipient and amount. A nil return means the payment satisfies the check.
func (v *PaymentVerifier) Verify(ctx context.Context, check PaymentCheck) error {
	reader, ok := v.readers[check.ChainID]
	if !ok {
		return fmt.Errorf("chain %d: %w", check.ChainID, core.ErrChainUnsupported)
	}

	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	tx, pending, err := reader.TransactionByHash(ctx, check.TxHash)
	if err != nil {
		return fmt.Errorf("fetch transaction: %v: %w", err, core.ErrLookupFailed)
	}
	if tx == nil || pending {
		return fmt.Errorf("transaction not mined: %w", core.ErrLookupFailed)
	}

	receipt, err := reader.TransactionReceipt(ctx, check.TxHash)
	if err != nil {
		return fmt.Errorf("fetch receipt: %v: %w", err, core.ErrLookupFailed)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return fmt.Errorf("transaction reverted: %w", core.ErrLookupFailed)
	}

	sender, err := types.Sender(types.LatestSignerForChainID(tx.ChainId()), tx)
	if err != nil {
		return fmt.Errorf("recover sender: %v: %w", err, core.ErrLookupFailed)
	}
	if sender != check.Payer {
		return fmt.Errorf("sent by %s: %w", sender.Hex(), core.ErrSenderMismatch)
	}

	if token := check.Price.Currency.Token; token != nil {
		return v.verifyTokenTransfer(receipt, *token, check)
	}
	return v.verifyNativeTransfer(tx, check)
}

func (v *PaymentVerifier) verifyNativeTransfer(tx *types.Transaction, check PaymentCheck) error {
	if tx.To() == nil || *tx.To() != check.Payee {
		return core.ErrRecipientMismatch
	}
	if tx.Value().Cmp(check.Price.baseUnits()) != 0 {
		return fmt.Errorf("got %s wei: %w", tx.Value(), core.ErrAmountMismatch)
	}
	return nil
}

// verifyTokenTransfer extracts the Transfer event the payment must have
// emitted. The amount lives in the log data, not the transaction value, so
// a zero-value call that merely touches the token contract does not pass.
func (v *PaymentVerifier) verifyTokenTransfer(receipt *types.Receipt, token common.Address, check PaymentCheck) error {
	for _, log := range receipt.Logs {
		if log.Address != token || len(log.Topics) != 3 || log.Topics[0] != transferTopic {
			continue
		}
		from := common.BytesToAddress(log.Topics[1].Bytes())
		to := common.BytesToAddress(log.Topics[2].Bytes())
		if to != check.Payee {
			continue
		}
		if from != check.Payer {
			return core.ErrSenderMismatch
		}

		amount := new(big.Int).SetBytes(log.Data)
		if amount.Cmp(check.Price.baseUnits()) != 0 {
			return fmt.Errorf("got %s token units: %w", amount, core.ErrAmountMismatch)
		}
		return nil
	}
	return core.ErrRecipientMismatch
}
