package core

import "time"

// Role determines which privileged endpoints a session may reach.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User is a wallet-backed account in the directory, keyed by address.
type User struct {
	ID        string    // Unique identifier for the user
	Address   string    // Checksummed Ethereum address
	Role      Role      // Current role, embedded into issued credentials
	CreatedAt time.Time // When the user was first seen
}

// Session is the claim set carried by a verified session credential.
// The credential is self-contained and never stored server-side;
// possession of a valid one is the authorization.
type Session struct {
	TokenID   string    // Credential identifier, used for revocation
	Address   string    // Checksummed Ethereum address of the holder
	Role      Role      // Role at issuance time
	IssuedAt  time.Time // When the credential was issued
	ExpiresAt time.Time // When the credential stops verifying
}
