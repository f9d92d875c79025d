package service

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/listforge/trustgate/core"
	"github.com/listforge/trustgate/ports"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReader struct {
	tx         *types.Transaction
	pending    bool
	txErr      error
	receipt    *types.Receipt
	receiptErr error
}

func (r *fakeReader) TransactionByHash(ctx context.Context, hash common.Hash) (*types.Transaction, bool, error) {
	return r.tx, r.pending, r.txErr
}

func (r *fakeReader) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	return r.receipt, r.receiptErr
}

func newVerifier(reader ports.ChainReader) *PaymentVerifier {
	return NewPaymentVerifier(map[uint64]ports.ChainReader{1: reader}, 5*time.Second)
}

func newPayerKey(t *testing.T) (*ecdsa.PrivateKey, common.Address) {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return key, crypto.PubkeyToAddress(key.PublicKey)
}

func signTransfer(t *testing.T, key *ecdsa.PrivateKey, to common.Address, value *big.Int) *types.Transaction {
	t.Helper()
	signer := types.LatestSignerForChainID(big.NewInt(1))
	return types.MustSignNewTx(key, signer, &types.DynamicFeeTx{
		ChainID:   big.NewInt(1),
		Nonce:     0,
		To:        &to,
		Value:     value,
		Gas:       21000,
		GasFeeCap: big.NewInt(1),
		GasTipCap: big.NewInt(1),
	})
}

var (
	testPayee = common.HexToAddress("0x281055afc982d96fab65b3a49cac8b878184cb16")
	testPrice = Price{Amount: decimal.RequireFromString("0.01"), Currency: ether}
)

func nativeCheck(payer common.Address, tx *types.Transaction) PaymentCheck {
	return PaymentCheck{
		TxHash:  tx.Hash(),
		ChainID: 1,
		Payer:   payer,
		Payee:   testPayee,
		Price:   testPrice,
	}
}

func successReceipt() *types.Receipt {
	return &types.Receipt{Status: types.ReceiptStatusSuccessful}
}

func TestVerifyNativeTransfer(t *testing.T) {
	key, payer := newPayerKey(t)
	tx := signTransfer(t, key, testPayee, testPrice.baseUnits())

	v := newVerifier(&fakeReader{tx: tx, receipt: successReceipt()})
	assert.NoError(t, v.Verify(context.Background(), nativeCheck(payer, tx)))
}

func TestVerifyRejectsAmountOneUnitShort(t *testing.T) {
	key, payer := newPayerKey(t)
	short := new(big.Int).Sub(testPrice.baseUnits(), big.NewInt(1))
	tx := signTransfer(t, key, testPayee, short)

	v := newVerifier(&fakeReader{tx: tx, receipt: successReceipt()})
	err := v.Verify(context.Background(), nativeCheck(payer, tx))
	assert.ErrorIs(t, err, core.ErrAmountMismatch)
}

func TestVerifyRejectsWrongRecipient(t *testing.T) {
	key, payer := newPayerKey(t)
	other := common.HexToAddress("0x0000000000000000000000000000000000000001")
	tx := signTransfer(t, key, other, testPrice.baseUnits())

	v := newVerifier(&fakeReader{tx: tx, receipt: successReceipt()})
	err := v.Verify(context.Background(), nativeCheck(payer, tx))
	assert.ErrorIs(t, err, core.ErrRecipientMismatch)
}

func TestVerifyRejectsWrongSender(t *testing.T) {
	key, _ := newPayerKey(t)
	_, claimedPayer := newPayerKey(t)
	tx := signTransfer(t, key, testPayee, testPrice.baseUnits())

	v := newVerifier(&fakeReader{tx: tx, receipt: successReceipt()})
	err := v.Verify(context.Background(), nativeCheck(claimedPayer, tx))
	assert.ErrorIs(t, err, core.ErrSenderMismatch)
}

func TestVerifyRejectsMissingTransaction(t *testing.T) {
	_, payer := newPayerKey(t)

	v := newVerifier(&fakeReader{txErr: errors.New("not found")})
	err := v.Verify(context.Background(), PaymentCheck{ChainID: 1, Payer: payer, Payee: testPayee, Price: testPrice})
	assert.ErrorIs(t, err, core.ErrLookupFailed)
}

func TestVerifyRejectsPendingTransaction(t *testing.T) {
	key, payer := newPayerKey(t)
	tx := signTransfer(t, key, testPayee, testPrice.baseUnits())

	v := newVerifier(&fakeReader{tx: tx, pending: true})
	err := v.Verify(context.Background(), nativeCheck(payer, tx))
	assert.ErrorIs(t, err, core.ErrLookupFailed)
}

func TestVerifyRejectsRevertedTransaction(t *testing.T) {
	key, payer := newPayerKey(t)
	tx := signTransfer(t, key, testPayee, testPrice.baseUnits())

	v := newVerifier(&fakeReader{tx: tx, receipt: &types.Receipt{Status: types.ReceiptStatusFailed}})
	err := v.Verify(context.Background(), nativeCheck(payer, tx))
	assert.ErrorIs(t, err, core.ErrLookupFailed)
}

func TestVerifyRejectsUnsupportedChain(t *testing.T) {
	_, payer := newPayerKey(t)

	v := newVerifier(&fakeReader{})
	err := v.Verify(context.Background(), PaymentCheck{ChainID: 42, Payer: payer, Payee: testPayee, Price: testPrice})
	assert.ErrorIs(t, err, core.ErrChainUnsupported)
}

// --- token transfers --------------------------------------------------------

var testToken = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")

func tokenPrice() Price {
	return Price{
		Amount:   decimal.RequireFromString("25"),
		Currency: Currency{Symbol: "USDC", Decimals: 6, Token: &testToken},
	}
}

func addressTopic(addr common.Address) common.Hash {
	return common.BytesToHash(common.LeftPadBytes(addr.Bytes(), 32))
}

func transferLog(token common.Address, from, to common.Address, amount *big.Int) *types.Log {
	return &types.Log{
		Address: token,
		Topics:  []common.Hash{transferTopic, addressTopic(from), addressTopic(to)},
		Data:    common.LeftPadBytes(amount.Bytes(), 32),
	}
}

func tokenCheck(payer common.Address, tx *types.Transaction) PaymentCheck {
	return PaymentCheck{
		TxHash:  tx.Hash(),
		ChainID: 1,
		Payer:   payer,
		Payee:   testPayee,
		Price:   tokenPrice(),
	}
}

func TestVerifyTokenTransfer(t *testing.T) {
	key, payer := newPayerKey(t)
	tx := signTransfer(t, key, testToken, big.NewInt(0))

	receipt := successReceipt()
	receipt.Logs = []*types.Log{transferLog(testToken, payer, testPayee, tokenPrice().baseUnits())}

	v := newVerifier(&fakeReader{tx: tx, receipt: receipt})
	assert.NoError(t, v.Verify(context.Background(), tokenCheck(payer, tx)))
}

func TestVerifyTokenTransferRejectsWrongAmount(t *testing.T) {
	key, payer := newPayerKey(t)
	tx := signTransfer(t, key, testToken, big.NewInt(0))

	short := new(big.Int).Sub(tokenPrice().baseUnits(), big.NewInt(1))
	receipt := successReceipt()
	receipt.Logs = []*types.Log{transferLog(testToken, payer, testPayee, short)}

	v := newVerifier(&fakeReader{tx: tx, receipt: receipt})
	err := v.Verify(context.Background(), tokenCheck(payer, tx))
	assert.ErrorIs(t, err, core.ErrAmountMismatch)
}

func TestVerifyTokenTransferRejectsZeroValueTouch(t *testing.T) {
	// A successful call to the token contract that moves nothing to the
	// payee must not count as payment.
	key, payer := newPayerKey(t)
	tx := signTransfer(t, key, testToken, big.NewInt(0))

	v := newVerifier(&fakeReader{tx: tx, receipt: successReceipt()})
	err := v.Verify(context.Background(), tokenCheck(payer, tx))
	assert.ErrorIs(t, err, core.ErrRecipientMismatch)
}

func TestVerifyTokenTransferRejectsThirdPartyFunds(t *testing.T) {
	key, payer := newPayerKey(t)
	_, stranger := newPayerKey(t)
	tx := signTransfer(t, key, testToken, big.NewInt(0))

	receipt := successReceipt()
	receipt.Logs = []*types.Log{transferLog(testToken, stranger, testPayee, tokenPrice().baseUnits())}

	v := newVerifier(&fakeReader{tx: tx, receipt: receipt})
	err := v.Verify(context.Background(), tokenCheck(payer, tx))
	assert.ErrorIs(t, err, core.ErrSenderMismatch)
}

func TestVerifyTokenTransferIgnoresOtherContractsLogs(t *testing.T) {
	key, payer := newPayerKey(t)
	other := common.HexToAddress("0x0000000000000000000000000000000000000042")
	tx := signTransfer(t, key, testToken, big.NewInt(0))

	receipt := successReceipt()
	receipt.Logs = []*types.Log{transferLog(other, payer, testPayee, tokenPrice().baseUnits())}

	v := newVerifier(&fakeReader{tx: tx, receipt: receipt})
	err := v.Verify(context.Background(), tokenCheck(payer, tx))
	assert.ErrorIs(t, err, core.ErrRecipientMismatch)
}
