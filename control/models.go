// Package control holds the privileged singleton state of a market: the
// administrator, the pause flag and the fee policy.
package control

import (
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/xraph/paymarket/fee"
)

// State is the market configuration owned by the administrator.
type State struct {
	Address   common.Address `json:"address"` // the market's own account
	Admin     common.Address `json:"admin"`
	Paused    bool           `json:"paused"`
	Fee       fee.Policy     `json:"fee"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Genesis builds the initial state for a freshly deployed market.
func Genesis(admin common.Address, basisPoints uint32, recipient common.Address) *State {
	return &State{
		Admin:     admin,
		Fee:       fee.Policy{BasisPoints: basisPoints, Recipient: recipient},
		UpdatedAt: time.Now().UTC(),
	}
}

// Clone returns a copy safe to mutate.
func (s *State) Clone() *State {
	c := *s
	return &c
}
