// Package eth wraps the go-ethereum primitives used to prove wallet
// ownership. This is the single point where an address claim is checked
// against a signature, so every malformed input is rejected outright
// instead of falling through to recovery.
package eth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// SignatureLength is the fixed size of a personal_sign signature: r || s || v.
const SignatureLength = 65

var (
	ErrInvalidSignature = errors.New("invalid signature")
	ErrInvalidAddress   = errors.New("invalid ethereum address")
)

// RecoverPersonalSigner returns the address that produced signature over the
// EIP-191 "personal sign" hash of message.
func RecoverPersonalSigner(message string, signature []byte) (common.Address, error) {
	if len(signature) != SignatureLength {
		return common.Address{}, fmt.Errorf("signature must be %d bytes, got %d: %w",
			SignatureLength, len(signature), ErrInvalidSignature)
	}

	// Wallets emit v as 27/28; recovery expects 0/1.
	sig := make([]byte, SignatureLength)
	copy(sig, signature)
	if sig[64] >= 27 {
		sig[64] -= 27
	}
	if sig[64] > 1 {
		return common.Address{}, fmt.Errorf("invalid recovery id %d: %w", sig[64], ErrInvalidSignature)
	}

	hash := accounts.TextHash([]byte(message))
	pub, err := crypto.SigToPub(hash, sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("recover public key: %w", ErrInvalidSignature)
	}

	return crypto.PubkeyToAddress(*pub), nil
}

// VerifyPersonalSignature checks that signatureHex was produced by signing
// message with the key behind claimedAddress. A nil return means verified;
// any other outcome, including malformed input, is a rejection.
func VerifyPersonalSignature(message, signatureHex, claimedAddress string) error {
	if !common.IsHexAddress(claimedAddress) {
		return ErrInvalidAddress
	}

	sig, err := hexutil.Decode(signatureHex)
	if err != nil {
		return fmt.Errorf("decode signature: %w", ErrInvalidSignature)
	}

	recovered, err := RecoverPersonalSigner(message, sig)
	if err != nil {
		return err
	}

	if !strings.EqualFold(recovered.Hex(), claimedAddress) {
		return ErrInvalidSignature
	}
	return nil
}
