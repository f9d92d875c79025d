package siwe

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAddress = "0x8ba1f109551bD432803012645Ac136ddd64DBA72"

func testMessage() Message {
	return Message{
		Domain:         "example.com",
		Address:        testAddress,
		URI:            "https://example.com",
		Version:        "1",
		ChainID:        1,
		Nonce:          "abc123",
		IssuedAt:       time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		ExpirationTime: time.Date(2024, 1, 1, 0, 10, 0, 0, time.UTC),
	}
}

func TestBuildParseRoundTrip(t *testing.T) {
	built := Build(testMessage())

	parsed, err := Parse(built)
	require.NoError(t, err)

	assert.Equal(t, "example.com", parsed.Domain)
	assert.Equal(t, testAddress, parsed.Address)
	assert.Equal(t, "https://example.com", parsed.URI)
	assert.Equal(t, "1", parsed.Version)
	assert.Equal(t, uint64(1), parsed.ChainID)
	assert.Equal(t, "abc123", parsed.Nonce)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), parsed.IssuedAt.UTC())
	assert.Equal(t, time.Date(2024, 1, 1, 0, 10, 0, 0, time.UTC), parsed.ExpirationTime.UTC())
}

func TestParseCollapsedWhitespaceForm(t *testing.T) {
	built := Build(testMessage())
	collapsed := strings.Join(strings.Fields(built), " ")
	require.NotContains(t, collapsed, "\n")

	fromCanonical, err := Parse(built)
	require.NoError(t, err)

	fromCollapsed, err := Parse(collapsed)
	require.NoError(t, err)

	assert.Equal(t, fromCanonical, fromCollapsed)
}

func TestParseChecksumsAddress(t *testing.T) {
	built := Build(testMessage())
	lowered := strings.ReplaceAll(built, testAddress, strings.ToLower(testAddress))

	parsed, err := Parse(lowered)
	require.NoError(t, err)
	assert.Equal(t, testAddress, parsed.Address)
}

func TestParseWithoutExpirationTime(t *testing.T) {
	m := testMessage()
	m.ExpirationTime = time.Time{}

	parsed, err := Parse(Build(m))
	require.NoError(t, err)
	assert.True(t, parsed.ExpirationTime.IsZero())
}

func TestParseMissingAddress(t *testing.T) {
	_, err := Parse("example.com wants you to sign in with your Ethereum account:\n\nURI: https://example.com")

	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, ReasonMissingAddress, perr.Reason)
}

func TestParseMissingDomain(t *testing.T) {
	_, err := Parse(testAddress + "\nURI: https://example.com\nNonce: abc123")

	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, ReasonMissingDomain, perr.Reason)
}

func TestParseMalformedChainID(t *testing.T) {
	built := strings.Replace(Build(testMessage()), "Chain ID: 1", "Chain ID: mainnet", 1)

	_, err := Parse(built)

	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, ReasonMalformed, perr.Reason)
}

func TestParseEmptyInput(t *testing.T) {
	_, err := Parse("   ")

	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, ReasonMalformed, perr.Reason)
}
