// Package memory is a map-backed Store for tests and single-process
// deployments. Records are copied on the way in and out.
package memory

import (
	"bytes"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/xraph/paymarket"
	"github.com/xraph/paymarket/control"
	"github.com/xraph/paymarket/store"
	"github.com/xraph/paymarket/vendors"
	"github.com/xraph/paymarket/whitelist"
)

type Store struct {
	mu sync.RWMutex

	state   *control.State
	tokens  map[common.Address]*whitelist.Token
	vendors map[uint64]*vendors.Vendor
	closed  bool
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		tokens:  make(map[common.Address]*whitelist.Token),
		vendors: make(map[uint64]*vendors.Vendor),
	}
}

// State Store implementation
func (s *Store) GetState(_ context.Context) (*control.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, paymarket.ErrStoreClosed
	}
	if s.state == nil {
		return nil, paymarket.ErrStateNotFound
	}
	return s.state.Clone(), nil
}

func (s *Store) SaveState(_ context.Context, st *control.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return paymarket.ErrStoreClosed
	}
	c := st.Clone()
	c.UpdatedAt = time.Now().UTC()
	s.state = c
	return nil
}

// Whitelist Store implementation
func (s *Store) AddToken(_ context.Context, t *whitelist.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return paymarket.ErrStoreClosed
	}
	if _, ok := s.tokens[t.Address]; ok {
		return nil
	}
	c := *t
	s.tokens[t.Address] = &c
	return nil
}

func (s *Store) RemoveToken(_ context.Context, token common.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return paymarket.ErrStoreClosed
	}
	delete(s.tokens, token)
	return nil
}

func (s *Store) IsWhitelisted(_ context.Context, token common.Address) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return false, paymarket.ErrStoreClosed
	}
	_, ok := s.tokens[token]
	return ok, nil
}

func (s *Store) ListTokens(_ context.Context) ([]*whitelist.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, paymarket.ErrStoreClosed
	}
	result := make([]*whitelist.Token, 0, len(s.tokens))
	for _, t := range s.tokens {
		c := *t
		result = append(result, &c)
	}
	slices.SortFunc(result, func(a, b *whitelist.Token) int {
		return bytes.Compare(a.Address.Bytes(), b.Address.Bytes())
	})
	return result, nil
}

// Vendor Store implementation
func (s *Store) PutVendor(_ context.Context, v *vendors.Vendor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return paymarket.ErrStoreClosed
	}
	c := *v
	if existing, ok := s.vendors[v.ID]; ok {
		c.CreatedAt = existing.CreatedAt
	}
	s.vendors[v.ID] = &c
	return nil
}

func (s *Store) GetVendor(_ context.Context, vendorID uint64) (*vendors.Vendor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, paymarket.ErrStoreClosed
	}
	if v, ok := s.vendors[vendorID]; ok {
		c := *v
		return &c, nil
	}
	return nil, paymarket.ErrVendorNotFound
}

func (s *Store) ListVendors(_ context.Context, opts vendors.ListOpts) ([]*vendors.Vendor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, paymarket.ErrStoreClosed
	}

	result := make([]*vendors.Vendor, 0)
	for _, v := range s.vendors {
		if opts.Address != (common.Address{}) && v.Address != opts.Address {
			continue
		}
		c := *v
		result = append(result, &c)
	}
	slices.SortFunc(result, func(a, b *vendors.Vendor) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})

	// Apply limit/offset
	start := min(opts.Offset, len(result))
	end := start + opts.Limit
	if opts.Limit == 0 || end > len(result) {
		end = len(result)
	}

	return result[start:end], nil
}

// Core methods
func (s *Store) Migrate(_ context.Context) error { return nil }

func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return paymarket.ErrStoreClosed
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}
