package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/pgdriver"
	"github.com/xraph/grove/migrate"

	"github.com/xraph/paymarket"
	"github.com/xraph/paymarket/control"
	pmstore "github.com/xraph/paymarket/store"
	"github.com/xraph/paymarket/vendors"
	"github.com/xraph/paymarket/whitelist"
)

// compile-time interface check
var _ pmstore.Store = (*Store)(nil)

// Store implements store.Store using PostgreSQL via Grove ORM.
type Store struct {
	db *grove.DB
	pg *pgdriver.PgDB
}

// New creates a new PostgreSQL store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db: db,
		pg: pgdriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.pg)
	if err != nil {
		return fmt.Errorf("paymarket/postgres: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("paymarket/postgres: migration failed: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== State Store ====================

func (s *Store) GetState(ctx context.Context) (*control.State, error) {
	m := new(stateModel)
	err := s.pg.NewSelect(m).
		Where("id = $1", pmstore.StateKey).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, paymarket.ErrStateNotFound
		}
		return nil, err
	}
	return fromStateModel(m)
}

func (s *Store) SaveState(ctx context.Context, st *control.State) error {
	m := toStateModel(st)
	_, err := s.pg.NewInsert(m).
		OnConflict("(id) DO UPDATE").
		Set("address = EXCLUDED.address").
		Set("admin = EXCLUDED.admin").
		Set("paused = EXCLUDED.paused").
		Set("fee_basis_points = EXCLUDED.fee_basis_points").
		Set("fee_recipient = EXCLUDED.fee_recipient").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("paymarket/postgres: save state: %w", err)
	}
	return nil
}

// ==================== Whitelist Store ====================

func (s *Store) AddToken(ctx context.Context, t *whitelist.Token) error {
	m := toTokenModel(t)
	_, err := s.pg.NewInsert(m).
		OnConflict("(address) DO NOTHING").
		Exec(ctx)
	return err
}

func (s *Store) RemoveToken(ctx context.Context, token common.Address) error {
	_, err := s.pg.NewDelete((*tokenModel)(nil)).
		Where("address = $1", token.Hex()).
		Exec(ctx)
	return err
}

func (s *Store) IsWhitelisted(ctx context.Context, token common.Address) (bool, error) {
	var n int64
	err := s.pg.NewRaw(`SELECT COUNT(*) FROM paymarket_tokens WHERE address = $1`, token.Hex()).
		Scan(ctx, &n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) ListTokens(ctx context.Context) ([]*whitelist.Token, error) {
	var models []tokenModel
	err := s.pg.NewSelect(&models).
		OrderExpr("address ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]*whitelist.Token, len(models))
	for i := range models {
		t, err := fromTokenModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = t
	}
	return result, nil
}

// ==================== Vendor Store ====================

func (s *Store) PutVendor(ctx context.Context, v *vendors.Vendor) error {
	m := toVendorModel(v)
	m.UpdatedAt = now()
	_, err := s.pg.NewInsert(m).
		OnConflict("(id) DO UPDATE").
		Set("address = EXCLUDED.address").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}

func (s *Store) GetVendor(ctx context.Context, vendorID uint64) (*vendors.Vendor, error) {
	m := new(vendorModel)
	err := s.pg.NewSelect(m).
		Where("id = $1", pmstore.VendorKey(vendorID)).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, paymarket.ErrVendorNotFound
		}
		return nil, err
	}
	return fromVendorModel(m)
}

func (s *Store) ListVendors(ctx context.Context, opts vendors.ListOpts) ([]*vendors.Vendor, error) {
	var models []vendorModel
	q := s.pg.NewSelect(&models)

	if opts.Address != (common.Address{}) {
		q = q.Where("address = $1", opts.Address.Hex())
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("id ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*vendors.Vendor, len(models))
	for i := range models {
		v, err := fromVendorModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = v
	}
	return result, nil
}

// ==================== Helpers ====================

func now() time.Time {
	return time.Now().UTC()
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
