package service

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/listforge/trustgate/core"
	"github.com/shopspring/decimal"
)

// Currency describes how an expected amount converts to on-chain units.
// A nil Token means the chain's native currency; otherwise payments are
// ERC-20 transfers on the given contract.
type Currency struct {
	Symbol   string
	Decimals int32
	Token    *common.Address
}

// Price is the fee required to unlock one action.
type Price struct {
	Amount   decimal.Decimal
	Currency Currency
}

// PriceTable is the static action -> price mapping consulted at settlement.
type PriceTable map[core.ActionType]Price

var ether = Currency{Symbol: "ETH", Decimals: 18}

// DefaultPrices returns the platform fee schedule.
func DefaultPrices() PriceTable {
	return PriceTable{
		core.ActionDeploy:  {Amount: decimal.RequireFromString("0.05"), Currency: ether},
		core.ActionList:    {Amount: decimal.RequireFromString("0.02"), Currency: ether},
		core.ActionFeature: {Amount: decimal.RequireFromString("0.01"), Currency: ether},
		core.ActionPin:     {Amount: decimal.RequireFromString("0.005"), Currency: ether},
	}
}

// baseUnits converts the decimal price into the integer on-chain amount.
func (p Price) baseUnits() *big.Int {
	return p.Amount.Shift(p.Currency.Decimals).BigInt()
}
