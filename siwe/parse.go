package siwe

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// ParseError reports why a message could not be parsed. It is a value, not
// a panic: parsing untrusted input must never throw into caller control flow.
type ParseError struct {
	Reason string
}

const (
	ReasonMissingAddress = "missing address"
	ReasonMissingDomain  = "missing domain"
	ReasonMalformed      = "malformed"
)

func (e *ParseError) Error() string {
	return "siwe: " + e.Reason
}

const signInPhrase = " wants you to sign in"

// fieldLabels in declaration order; used to re-split messages whose line
// breaks were collapsed to whitespace in transit.
var fieldLabels = []string{
	"URI:",
	"Version:",
	"Chain ID:",
	"Nonce:",
	"Issued At:",
	"Expiration Time:",
}

var addressPattern = regexp.MustCompile(`0x[0-9a-fA-F]{40}`)

// Parse extracts the field set from either serialization of a sign-in
// message: the canonical newline-delimited form, or the same text with line
// breaks collapsed into runs of whitespace. The address is located by a
// fixed-format scan anywhere in the text and returned checksummed.
func Parse(text string) (*Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, &ParseError{Reason: ReasonMalformed}
	}

	raw := addressPattern.FindString(text)
	if raw == "" {
		return nil, &ParseError{Reason: ReasonMissingAddress}
	}

	head, _, ok := strings.Cut(text, signInPhrase)
	if !ok {
		return nil, &ParseError{Reason: ReasonMissingDomain}
	}
	headFields := strings.Fields(head)
	if len(headFields) == 0 {
		return nil, &ParseError{Reason: ReasonMissingDomain}
	}
	domain := headFields[len(headFields)-1]

	lines := strings.Split(text, "\n")
	if len(lines) == 1 {
		// Collapsed form: reintroduce the breaks in front of each known label.
		normalized := text
		for _, label := range fieldLabels {
			normalized = strings.Replace(normalized, label, "\n"+label, 1)
		}
		lines = strings.Split(normalized, "\n")
	}

	msg := &Message{
		Domain:  domain,
		Address: common.HexToAddress(raw).Hex(),
	}

	for _, line := range lines {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "URI:"):
			msg.URI = labelValue(line, "URI:")
		case strings.HasPrefix(line, "Version:"):
			msg.Version = labelValue(line, "Version:")
		case strings.HasPrefix(line, "Chain ID:"):
			id, err := strconv.ParseUint(labelValue(line, "Chain ID:"), 10, 64)
			if err != nil {
				return nil, &ParseError{Reason: ReasonMalformed}
			}
			msg.ChainID = id
		case strings.HasPrefix(line, "Nonce:"):
			msg.Nonce = labelValue(line, "Nonce:")
		case strings.HasPrefix(line, "Issued At:"):
			ts, err := time.Parse(time.RFC3339, labelValue(line, "Issued At:"))
			if err != nil {
				return nil, &ParseError{Reason: ReasonMalformed}
			}
			msg.IssuedAt = ts
		case strings.HasPrefix(line, "Expiration Time:"):
			ts, err := time.Parse(time.RFC3339, labelValue(line, "Expiration Time:"))
			if err != nil {
				return nil, &ParseError{Reason: ReasonMalformed}
			}
			msg.ExpirationTime = ts
		}
	}

	return msg, nil
}

func labelValue(line, label string) string {
	return strings.TrimSpace(strings.TrimPrefix(line, label))
}
