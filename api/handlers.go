package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"

	"github.com/xraph/paymarket"
	"github.com/xraph/paymarket/settlement"
	"github.com/xraph/paymarket/vendors"
)

type marketResponse struct {
	Address        common.Address `json:"address"`
	Admin          common.Address `json:"admin"`
	Paused         bool           `json:"paused"`
	FeeBasisPoints uint32         `json:"fee_basis_points"`
	FeeRecipient   common.Address `json:"fee_recipient"`
}

type vendorResponse struct {
	ID        uint64         `json:"id"`
	Address   common.Address `json:"address"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

type tokenResponse struct {
	Token       common.Address `json:"token"`
	Whitelisted bool           `json:"whitelisted"`
}

type purchaseResponse struct {
	ID             string         `json:"id"`
	Payer          common.Address `json:"payer"`
	VendorID       uint64         `json:"vendor_id"`
	OrderID        uint64         `json:"order_id"`
	Token          common.Address `json:"token"`
	Path           string         `json:"path"`
	Gross          string         `json:"gross"`
	Fee            string         `json:"fee"`
	AmountAfterFee string         `json:"amount_after_fee"`
	FeeRecipient   common.Address `json:"fee_recipient"`
	Vendor         common.Address `json:"vendor"`
	SettledAt      time.Time      `json:"settled_at"`
	Sequence       uint64         `json:"sequence"`
}

type purchaseRequest struct {
	VendorID uint64 `json:"vendor_id"`
	OrderID  uint64 `json:"order_id"`
	Amount   string `json:"amount"`
	Token    string `json:"token,omitempty"`
}

type addressRequest struct {
	Address string `json:"address"`
}

type feeRateRequest struct {
	BasisPoints *uint32 `json:"basis_points"`
}

func newVendorResponse(v *vendors.Vendor) vendorResponse {
	return vendorResponse{ID: v.ID, Address: v.Address, CreatedAt: v.CreatedAt, UpdatedAt: v.UpdatedAt}
}

func newPurchaseResponse(p *settlement.Purchase) purchaseResponse {
	return purchaseResponse{
		ID:             p.ID.String(),
		Payer:          p.Payer,
		VendorID:       p.VendorID,
		OrderID:        p.OrderID,
		Token:          p.Token,
		Path:           p.Path(),
		Gross:          p.Gross.Dec(),
		Fee:            p.Fee.Dec(),
		AmountAfterFee: p.AmountAfterFee.Dec(),
		FeeRecipient:   p.FeeRecipient,
		Vendor:         p.Vendor,
		SettledAt:      p.SettledAt,
		Sequence:       p.Sequence,
	}
}

// ──────────────────────────────────────────────────
// Reads
// ──────────────────────────────────────────────────

func (s *Server) getMarket(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.context(r.Context())
	defer cancel()

	st, err := s.market.State(ctx)
	if err != nil {
		s.writeMarketError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, marketResponse{
		Address:        st.Address,
		Admin:          st.Admin,
		Paused:         st.Paused,
		FeeBasisPoints: st.Fee.BasisPoints,
		FeeRecipient:   st.Fee.Recipient,
	})
}

func (s *Server) listVendors(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := vendors.ListOpts{}

	if raw := q.Get("address"); raw != "" {
		addr, err := parseAddress("address", raw)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, err)
			return
		}
		opts.Address = addr
	}
	for field, dst := range map[string]*int{"limit": &opts.Limit, "offset": &opts.Offset} {
		raw := q.Get(field)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeJSONError(w, http.StatusBadRequest, paymarket.ValidationError{Field: field, Message: "must be a non-negative integer"})
			return
		}
		*dst = n
	}

	ctx, cancel := s.context(r.Context())
	defer cancel()

	list, err := s.market.Vendors(ctx, opts)
	if err != nil {
		s.writeMarketError(w, err)
		return
	}
	out := make([]vendorResponse, 0, len(list))
	for _, v := range list {
		out = append(out, newVendorResponse(v))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getVendor(w http.ResponseWriter, r *http.Request) {
	vendorID, err := vendorIDParam(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err)
		return
	}

	ctx, cancel := s.context(r.Context())
	defer cancel()

	v, err := s.market.Vendor(ctx, vendorID)
	if err != nil {
		s.writeMarketError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newVendorResponse(v))
}

func (s *Server) listTokens(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.context(r.Context())
	defer cancel()

	tokens, err := s.market.WhitelistedTokens(ctx)
	if err != nil {
		s.writeMarketError(w, err)
		return
	}
	out := make([]tokenResponse, 0, len(tokens))
	for _, t := range tokens {
		out = append(out, tokenResponse{Token: t.Address, Whitelisted: true})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getToken(w http.ResponseWriter, r *http.Request) {
	token, err := parseAddress("token", chi.URLParam(r, "token"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err)
		return
	}

	ctx, cancel := s.context(r.Context())
	defer cancel()

	listed, err := s.market.IsWhitelisted(ctx, token)
	if err != nil {
		s.writeMarketError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{Token: token, Whitelisted: listed})
}

// ──────────────────────────────────────────────────
// Purchases
// ──────────────────────────────────────────────────

func (s *Server) purchaseNative(w http.ResponseWriter, r *http.Request) {
	var req purchaseRequest
	if err := decodeRequest(w, r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, err)
		return
	}
	amount, err := paymarket.ParseAmount(req.Amount)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, paymarket.ValidationError{Field: "amount", Message: err.Error()})
		return
	}

	ctx, cancel := s.context(r.Context())
	defer cancel()

	p, err := s.market.PurchaseWithNative(ctx, req.VendorID, req.OrderID, amount)
	if err != nil {
		s.writeMarketError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, newPurchaseResponse(p))
}

func (s *Server) purchaseToken(w http.ResponseWriter, r *http.Request) {
	var req purchaseRequest
	if err := decodeRequest(w, r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, err)
		return
	}
	amount, err := paymarket.ParseAmount(req.Amount)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, paymarket.ValidationError{Field: "amount", Message: err.Error()})
		return
	}
	token, err := parseAddress("token", req.Token)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err)
		return
	}

	ctx, cancel := s.context(r.Context())
	defer cancel()

	p, err := s.market.PurchaseWithToken(ctx, req.VendorID, req.OrderID, amount, token)
	if err != nil {
		s.writeMarketError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, newPurchaseResponse(p))
}

// ──────────────────────────────────────────────────
// Administration
// ──────────────────────────────────────────────────

func (s *Server) transferOwnership(w http.ResponseWriter, r *http.Request) {
	var req addressRequest
	if err := decodeRequest(w, r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, err)
		return
	}
	next, err := parseAddress("address", req.Address)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err)
		return
	}

	ctx, cancel := s.context(r.Context())
	defer cancel()

	s.respond(w, s.market.TransferOwnership(ctx, next))
}

func (s *Server) pause(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.context(r.Context())
	defer cancel()

	s.respond(w, s.market.Pause(ctx))
}

func (s *Server) unpause(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.context(r.Context())
	defer cancel()

	s.respond(w, s.market.Unpause(ctx))
}

func (s *Server) addToken(w http.ResponseWriter, r *http.Request) {
	token, err := parseAddress("token", chi.URLParam(r, "token"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err)
		return
	}

	ctx, cancel := s.context(r.Context())
	defer cancel()

	s.respond(w, s.market.AddToWhitelist(ctx, token))
}

func (s *Server) removeToken(w http.ResponseWriter, r *http.Request) {
	token, err := parseAddress("token", chi.URLParam(r, "token"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err)
		return
	}

	ctx, cancel := s.context(r.Context())
	defer cancel()

	s.respond(w, s.market.RemoveFromWhitelist(ctx, token))
}

func (s *Server) registerVendor(w http.ResponseWriter, r *http.Request) {
	s.vendorAddress(w, r, s.market.RegisterVendor)
}

func (s *Server) updateVendor(w http.ResponseWriter, r *http.Request) {
	s.vendorAddress(w, r, s.market.UpdateVendorAddress)
}

func (s *Server) vendorAddress(w http.ResponseWriter, r *http.Request, apply func(ctx context.Context, vendorID uint64, addr common.Address) error) {
	vendorID, err := vendorIDParam(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err)
		return
	}
	var req addressRequest
	if err := decodeRequest(w, r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, err)
		return
	}
	addr, err := parseAddress("address", req.Address)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err)
		return
	}

	ctx, cancel := s.context(r.Context())
	defer cancel()

	s.respond(w, apply(ctx, vendorID, addr))
}

func (s *Server) updateFeeRate(w http.ResponseWriter, r *http.Request) {
	var req feeRateRequest
	if err := decodeRequest(w, r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, err)
		return
	}
	if req.BasisPoints == nil {
		writeJSONError(w, http.StatusBadRequest, paymarket.ValidationError{Field: "basis_points", Message: "required"})
		return
	}

	ctx, cancel := s.context(r.Context())
	defer cancel()

	s.respond(w, s.market.UpdateFeeBasisPoints(ctx, *req.BasisPoints))
}

func (s *Server) updateFeeRecipient(w http.ResponseWriter, r *http.Request) {
	var req addressRequest
	if err := decodeRequest(w, r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, err)
		return
	}
	addr, err := parseAddress("address", req.Address)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err)
		return
	}

	ctx, cancel := s.context(r.Context())
	defer cancel()

	s.respond(w, s.market.UpdateFeeRecipient(ctx, addr))
}

// respond writes 204 on success or the mapped error.
func (s *Server) respond(w http.ResponseWriter, err error) {
	if err != nil {
		s.writeMarketError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ──────────────────────────────────────────────────
// Decoding
// ──────────────────────────────────────────────────

func decodeRequest(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, requestLimit))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return paymarket.ValidationError{Field: "body", Message: err.Error()}
	}
	return nil
}

func vendorIDParam(r *http.Request) (uint64, error) {
	raw := chi.URLParam(r, "vendorID")
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, paymarket.ValidationError{Field: "vendorID", Message: fmt.Sprintf("%q is not a vendor id", raw)}
	}
	return v, nil
}

func parseAddress(field, raw string) (common.Address, error) {
	if !common.IsHexAddress(raw) {
		return common.Address{}, paymarket.ValidationError{Field: field, Message: fmt.Sprintf("%q is not a hex address", raw)}
	}
	return common.HexToAddress(raw), nil
}
