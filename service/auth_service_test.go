package service

import (
	"context"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/listforge/trustgate/adapters/store"
	"github.com/listforge/trustgate/adapters/tokenizer"
	"github.com/listforge/trustgate/core"
	"github.com/listforge/trustgate/siwe"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDirectory hands out users keyed by address without a database.
type fakeDirectory struct {
	role core.Role
}

func (d *fakeDirectory) GetOrCreateByAddress(ctx context.Context, address string) (*core.User, error) {
	role := d.role
	if role == "" {
		role = core.RoleUser
	}
	return &core.User{ID: "u-" + address, Address: address, Role: role, CreatedAt: time.Now()}, nil
}

// fakeEvents records published events.
type fakeEvents struct {
	logouts     []string
	settlements []core.Payment
}

func (e *fakeEvents) PublishLogout(ctx context.Context, address, tokenID string) error {
	e.logouts = append(e.logouts, tokenID)
	return nil
}

func (e *fakeEvents) PublishSettlement(ctx context.Context, p core.Payment) error {
	e.settlements = append(e.settlements, p)
	return nil
}

func newAuthService(events *fakeEvents) *AuthService {
	return NewAuthService(
		&fakeDirectory{},
		tokenizer.NewHMACTokenizer([]byte("test-secret"), time.Hour),
		store.NewMemoryDenylist(),
		events,
		zerolog.Nop(),
	)
}

// signedChallenge builds a challenge for domain, signs it with a fresh key
// and returns the message, the signature and the signer address.
func signedChallenge(t *testing.T, domain string, expiry time.Time) (message, signature, address string) {
	t.Helper()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	addr := crypto.PubkeyToAddress(key.PublicKey)

	message = siwe.Build(siwe.Message{
		Domain:         domain,
		Address:        addr.Hex(),
		URI:            "https://" + domain,
		Version:        "1",
		ChainID:        1,
		Nonce:          "p8mWi3xGqOTFll4d",
		IssuedAt:       time.Now().UTC(),
		ExpirationTime: expiry,
	})

	sig, err := crypto.Sign(accounts.TextHash([]byte(message)), key)
	require.NoError(t, err)
	sig[64] += 27

	return message, hexutil.Encode(sig), addr.Hex()
}

func TestSignIn(t *testing.T) {
	s := newAuthService(&fakeEvents{})
	message, signature, address := signedChallenge(t, "example.com", time.Now().Add(5*time.Minute))

	result, err := s.SignIn(context.Background(), message, signature, "example.com")
	require.NoError(t, err)

	assert.Equal(t, address, result.User.Address)
	assert.Equal(t, core.RoleUser, result.User.Role)
	assert.NotEmpty(t, result.Token)

	session, err := s.ValidateSession(context.Background(), result.Token)
	require.NoError(t, err)
	assert.Equal(t, address, session.Address)
}

func TestSignInToleratesEquivalentDomainForms(t *testing.T) {
	s := newAuthService(&fakeEvents{})

	for _, expected := range []string{"example.com", "https://example.com", "app.example.com", "EXAMPLE.COM"} {
		message, signature, _ := signedChallenge(t, "example.com", time.Time{})
		_, err := s.SignIn(context.Background(), message, signature, expected)
		assert.NoError(t, err, "expected domain %q", expected)
	}
}

func TestSignInRejectsUnrelatedDomain(t *testing.T) {
	s := newAuthService(&fakeEvents{})
	message, signature, _ := signedChallenge(t, "a.example", time.Time{})

	_, err := s.SignIn(context.Background(), message, signature, "b.unrelated")
	assert.ErrorIs(t, err, core.ErrDomainMismatch)
}

func TestSignInRejectsExpiredMessage(t *testing.T) {
	s := newAuthService(&fakeEvents{})
	message, signature, _ := signedChallenge(t, "example.com", time.Now().Add(-time.Minute))

	_, err := s.SignIn(context.Background(), message, signature, "example.com")
	assert.ErrorIs(t, err, core.ErrMessageExpired)
}

func TestSignInRejectsForeignSignature(t *testing.T) {
	s := newAuthService(&fakeEvents{})
	message, _, _ := signedChallenge(t, "example.com", time.Time{})
	_, otherSignature, _ := signedChallenge(t, "example.com", time.Time{})

	_, err := s.SignIn(context.Background(), message, otherSignature, "example.com")
	assert.ErrorIs(t, err, core.ErrSignatureMismatch)
}

func TestSignInRejectsUnparseableMessage(t *testing.T) {
	s := newAuthService(&fakeEvents{})

	_, err := s.SignIn(context.Background(), "not a sign-in message", "0x00", "example.com")
	assert.ErrorIs(t, err, core.ErrInvalidMessage)
}

func TestLogoutRevokesCredential(t *testing.T) {
	events := &fakeEvents{}
	s := newAuthService(events)
	message, signature, _ := signedChallenge(t, "example.com", time.Time{})

	result, err := s.SignIn(context.Background(), message, signature, "example.com")
	require.NoError(t, err)

	session, err := s.ValidateSession(context.Background(), result.Token)
	require.NoError(t, err)

	require.NoError(t, s.Logout(context.Background(), session))

	_, err = s.ValidateSession(context.Background(), result.Token)
	assert.ErrorIs(t, err, core.ErrTokenRevoked)
	assert.Equal(t, []string{session.TokenID}, events.logouts)
}
