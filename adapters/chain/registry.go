// Package chain provides read-only blockchain access for payment
// verification, one client per supported chain ID.
package chain

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/listforge/trustgate/ports"
)

// DialReaders connects to each configured RPC endpoint. The map key is the
// chain ID clients reference in settlement requests; chains missing from
// the result are reported as unsupported at verification time.
func DialReaders(ctx context.Context, endpoints map[uint64]string) (map[uint64]ports.ChainReader, error) {
	readers := make(map[uint64]ports.ChainReader, len(endpoints))
	for chainID, url := range endpoints {
		client, err := ethclient.DialContext(ctx, url)
		if err != nil {
			return nil, fmt.Errorf("dial chain %d: %w", chainID, err)
		}
		readers[chainID] = client
	}
	return readers, nil
}
