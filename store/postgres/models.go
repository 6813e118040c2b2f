package postgres

import (
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/paymarket/control"
	"github.com/xraph/paymarket/fee"
	"github.com/xraph/paymarket/store"
	"github.com/xraph/paymarket/types"
	"github.com/xraph/paymarket/vendors"
	"github.com/xraph/paymarket/whitelist"
)

// ==================== State model ====================

type stateModel struct {
	grove.BaseModel `grove:"table:paymarket_state"`

	ID             string    `grove:"id,pk"`
	Address        string    `grove:"address"`
	Admin          string    `grove:"admin"`
	Paused         bool      `grove:"paused"`
	FeeBasisPoints int64     `grove:"fee_basis_points"`
	FeeRecipient   string    `grove:"fee_recipient"`
	UpdatedAt      time.Time `grove:"updated_at"`
}

func toStateModel(s *control.State) *stateModel {
	return &stateModel{
		ID:             store.StateKey,
		Address:        s.Address.Hex(),
		Admin:          s.Admin.Hex(),
		Paused:         s.Paused,
		FeeBasisPoints: int64(s.Fee.BasisPoints),
		FeeRecipient:   s.Fee.Recipient.Hex(),
		UpdatedAt:      time.Now().UTC(),
	}
}

func fromStateModel(m *stateModel) (*control.State, error) {
	account, err := store.ParseAddress(m.Address)
	if err != nil {
		return nil, err
	}
	admin, err := store.ParseAddress(m.Admin)
	if err != nil {
		return nil, err
	}
	recipient, err := store.ParseAddress(m.FeeRecipient)
	if err != nil {
		return nil, err
	}

	return &control.State{
		Address: account,
		Admin:   admin,
		Paused:  m.Paused,
		Fee: fee.Policy{
			BasisPoints: uint32(m.FeeBasisPoints), //nolint:gosec // bounded by CHECK constraint
			Recipient:   recipient,
		},
		UpdatedAt: m.UpdatedAt,
	}, nil
}

// ==================== Token model ====================

type tokenModel struct {
	grove.BaseModel `grove:"table:paymarket_tokens"`

	Address   string    `grove:"address,pk"`
	CreatedAt time.Time `grove:"created_at"`
}

func toTokenModel(t *whitelist.Token) *tokenModel {
	return &tokenModel{
		Address:   t.Address.Hex(),
		CreatedAt: t.CreatedAt,
	}
}

func fromTokenModel(m *tokenModel) (*whitelist.Token, error) {
	addr, err := store.ParseAddress(m.Address)
	if err != nil {
		return nil, err
	}
	return &whitelist.Token{Address: addr, CreatedAt: m.CreatedAt}, nil
}

// ==================== Vendor model ====================

type vendorModel struct {
	grove.BaseModel `grove:"table:paymarket_vendors"`

	ID        string    `grove:"id,pk"`
	Address   string    `grove:"address"`
	CreatedAt time.Time `grove:"created_at"`
	UpdatedAt time.Time `grove:"updated_at"`
}

func toVendorModel(v *vendors.Vendor) *vendorModel {
	return &vendorModel{
		ID:        store.VendorKey(v.ID),
		Address:   v.Address.Hex(),
		CreatedAt: v.CreatedAt,
		UpdatedAt: v.UpdatedAt,
	}
}

func fromVendorModel(m *vendorModel) (*vendors.Vendor, error) {
	vendorID, err := store.ParseVendorKey(m.ID)
	if err != nil {
		return nil, err
	}
	addr, err := store.ParseAddress(m.Address)
	if err != nil {
		return nil, err
	}

	return &vendors.Vendor{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:      vendorID,
		Address: addr,
	}, nil
}
