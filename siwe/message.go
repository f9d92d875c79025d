// Package siwe builds and parses the human-readable sign-in message a
// wallet signs to prove address ownership (EIP-4361 shape). Pure text
// transform, no I/O.
package siwe

import (
	"fmt"
	"strings"
	"time"
)

// Message is the logical field set of a sign-in challenge.
type Message struct {
	Domain         string
	Address        string // checksummed on parse
	URI            string
	Version        string
	ChainID        uint64
	Nonce          string
	IssuedAt       time.Time
	ExpirationTime time.Time // zero when absent
}

// Build renders the canonical newline-delimited serialization.
func Build(m Message) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s wants you to sign in with your Ethereum account:\n", m.Domain)
	fmt.Fprintf(&b, "%s\n\n", m.Address)
	fmt.Fprintf(&b, "URI: %s\n", m.URI)
	fmt.Fprintf(&b, "Version: %s\n", m.Version)
	fmt.Fprintf(&b, "Chain ID: %d\n", m.ChainID)
	fmt.Fprintf(&b, "Nonce: %s\n", m.Nonce)
	fmt.Fprintf(&b, "Issued At: %s", m.IssuedAt.UTC().Format(time.RFC3339))
	if !m.ExpirationTime.IsZero() {
		fmt.Fprintf(&b, "\nExpiration Time: %s", m.ExpirationTime.UTC().Format(time.RFC3339))
	}
	return b.String()
}
