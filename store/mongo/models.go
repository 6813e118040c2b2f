package mongo

import (
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/paymarket/control"
	"github.com/xraph/paymarket/fee"
	pmstore "github.com/xraph/paymarket/store"
	"github.com/xraph/paymarket/types"
	"github.com/xraph/paymarket/vendors"
	"github.com/xraph/paymarket/whitelist"
)

// ==================== State model ====================

type stateModel struct {
	grove.BaseModel `grove:"table:paymarket_state"`

	ID             string    `grove:"id,pk"            bson:"_id"`
	Address        string    `grove:"address"          bson:"address"`
	Admin          string    `grove:"admin"            bson:"admin"`
	Paused         bool      `grove:"paused"           bson:"paused"`
	FeeBasisPoints int64     `grove:"fee_basis_points" bson:"fee_basis_points"`
	FeeRecipient   string    `grove:"fee_recipient"    bson:"fee_recipient"`
	UpdatedAt      time.Time `grove:"updated_at"       bson:"updated_at"`
}

func toStateModel(s *control.State) *stateModel {
	return &stateModel{
		ID:             pmstore.StateKey,
		Address:        s.Address.Hex(),
		Admin:          s.Admin.Hex(),
		Paused:         s.Paused,
		FeeBasisPoints: int64(s.Fee.BasisPoints),
		FeeRecipient:   s.Fee.Recipient.Hex(),
		UpdatedAt:      time.Now().UTC(),
	}
}

func fromStateModel(m *stateModel) (*control.State, error) {
	account, err := pmstore.ParseAddress(m.Address)
	if err != nil {
		return nil, err
	}
	admin, err := pmstore.ParseAddress(m.Admin)
	if err != nil {
		return nil, err
	}
	recipient, err := pmstore.ParseAddress(m.FeeRecipient)
	if err != nil {
		return nil, err
	}
	if m.FeeBasisPoints < 0 || m.FeeBasisPoints > int64(fee.MaxBasisPoints) {
		return nil, fee.ErrRateTooHigh
	}

	return &control.State{
		Address: account,
		Admin:   admin,
		Paused:  m.Paused,
		Fee: fee.Policy{
			BasisPoints: uint32(m.FeeBasisPoints),
			Recipient:   recipient,
		},
		UpdatedAt: m.UpdatedAt,
	}, nil
}

// ==================== Token model ====================

type tokenModel struct {
	grove.BaseModel `grove:"table:paymarket_tokens"`

	Address   string    `grove:"address,pk" bson:"_id"`
	CreatedAt time.Time `grove:"created_at" bson:"created_at"`
}

func fromTokenModel(m *tokenModel) (*whitelist.Token, error) {
	addr, err := pmstore.ParseAddress(m.Address)
	if err != nil {
		return nil, err
	}
	return &whitelist.Token{Address: addr, CreatedAt: m.CreatedAt}, nil
}

// ==================== Vendor model ====================

type vendorModel struct {
	grove.BaseModel `grove:"table:paymarket_vendors"`

	ID        string    `grove:"id,pk"      bson:"_id"`
	Address   string    `grove:"address"    bson:"address"`
	CreatedAt time.Time `grove:"created_at" bson:"created_at"`
	UpdatedAt time.Time `grove:"updated_at" bson:"updated_at"`
}

func fromVendorModel(m *vendorModel) (*vendors.Vendor, error) {
	vendorID, err := pmstore.ParseVendorKey(m.ID)
	if err != nil {
		return nil, err
	}
	addr, err := pmstore.ParseAddress(m.Address)
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
