package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/listforge/trustgate/core"
	"github.com/listforge/trustgate/internal/eth"
	"github.com/listforge/trustgate/ports"
	"github.com/listforge/trustgate/siwe"
	"github.com/rs/zerolog"
)

// AuthService turns a signed challenge message into a session credential.
type AuthService struct {
	directory ports.UserDirectory
	tokenizer ports.Tokenizer
	denylist  ports.Denylist
	events    ports.EventPublisher
	log       zerolog.Logger
}

// NewAuthService creates a new authentication service
func NewAuthService(
	directory ports.UserDirectory,
	tokenizer ports.Tokenizer,
	denylist ports.Denylist,
	events ports.EventPublisher,
	log zerolog.Logger,
) *AuthService {
	return &AuthService{
		directory: directory,
		tokenizer: tokenizer,
		denylist:  denylist,
		events:    events,
		log:       log.With().Str("component", "auth").Logger(),
	}
}

// SignInResult carries the issued credential and the user it identifies.
type SignInResult struct {
	Token string
	User  core.User
}

// SignIn runs the sign-in state machine: parse, domain check, freshness
// check, signature check, user lookup, credential issue. It short-circuits
// at the first failed check with a distinct error so a client can tell a
// stale challenge from a bad signature.
func (s *AuthService) SignIn(ctx context.Context, rawMessage, signature, expectedDomain string) (*SignInResult, error) {
	msg, err := siwe.Parse(rawMessage)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrInvalidMessage, err)
	}

	if !domainMatches(msg.Domain, expectedDomain) {
		return nil, fmt.Errorf("message for %q, expected %q: %w", msg.Domain, expectedDomain, core.ErrDomainMismatch)
	}

	if !msg.ExpirationTime.IsZero() && time.Now().After(msg.ExpirationTime) {
		return nil, core.ErrMessageExpired
	}

	if err := eth.VerifyPersonalSignature(rawMessage, signature, msg.Address); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrSignatureMismatch, err)
	}

	user, err := s.directory.GetOrCreateByAddress(ctx, msg.Address)
	if err != nil {
		return nil, fmt.Errorf("look up user: %w", err)
	}

	token, err := s.tokenizer.IssueSession(*user)
	if err != nil {
		return nil, fmt.Errorf("issue credential: %w", err)
	}

	s.log.Info().Str("address", user.Address).Msg("sign-in verified")
	return &SignInResult{Token: token, User: *user}, nil
}

// ValidateSession verifies a presented credential and checks it against the
// revocation denylist.
func (s *AuthService) ValidateSession(ctx context.Context, token string) (*core.Session, error) {
	session, err := s.tokenizer.VerifySession(token)
	if err != nil {
		return nil, err
	}

	revoked, err := s.denylist.IsRevoked(ctx, session.TokenID)
	if err != nil {
		return nil, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return nil, core.ErrTokenRevoked
	}

	return session, nil
}

// Logout denylists the credential until its natural expiry. Expired
// credentials still get a short denylist entry so clock skew cannot revive
// them.
func (s *AuthService) Logout(ctx context.Context, session *core.Session) error {
	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		ttl = time.Hour
	}

	if err := s.denylist.Revoke(ctx, session.TokenID, ttl); err != nil {
		return fmt.Errorf("revoke credential: %w", err)
	}

	// Revocation in the denylist is the critical part; the event is
	// best-effort notification for other instances.
	if err := s.events.PublishLogout(ctx, session.Address, session.TokenID); err != nil {
		s.log.Warn().Err(err).Msg("failed to publish logout event")
	}

	return nil
}

// domainMatches tolerates scheme prefixes and containment in either
// direction, since a deployment may be reached through several equivalent
// host forms.
func domainMatches(got, expected string) bool {
	a := normalizeDomain(got)
	b := normalizeDomain(expected)
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

func normalizeDomain(d string) string {
	d = strings.ToLower(strings.TrimSpace(d))
	d = strings.TrimPrefix(d, "https://")
	d = strings.TrimPrefix(d, "http://")
	return strings.TrimSuffix(d, "/")
}
