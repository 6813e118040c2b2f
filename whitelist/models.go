// Package whitelist defines the set of fungible tokens accepted for payment.
package whitelist

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Token is a whitelisted token contract.
type Token struct {
	Address   common.Address `json:"address"`
	CreatedAt time.Time      `json:"created_at"`
}
