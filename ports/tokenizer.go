package ports

import "github.com/listforge/trustgate/core"

// Tokenizer issues and verifies self-contained session credentials.
type Tokenizer interface {
	// IssueSession signs a credential carrying the user's address and role
	IssueSession(user core.User) (string, error)

	// VerifySession checks the credential signature, then its expiry, and
	// returns the embedded claims
	VerifySession(token string) (*core.Session, error)
}
