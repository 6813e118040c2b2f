package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/xraph/paymarket"
	"github.com/xraph/paymarket/control"
	pmstore "github.com/xraph/paymarket/store"
	"github.com/xraph/paymarket/vendors"
	"github.com/xraph/paymarket/whitelist"
)

// Collection name constants.
const (
	colState   = "paymarket_state"
	colTokens  = "paymarket_tokens"
	colVendors = "paymarket_vendors"
)

// compile-time interface check
var _ pmstore.Store = (*Store)(nil)

// Store implements store.Store using MongoDB via Grove ORM.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates indexes for all paymarket collections.
func (s *Store) Migrate(ctx context.Context) error {
	for col, models := range migrationIndexes() {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("paymarket/mongo: migrate %s indexes: %w", col, err)
		}
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
	var m stateModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": pmstore.StateKey}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, paymarket.ErrStateNotFound
		}
		return nil, fmt.Errorf("paymarket/mongo: get state: %w", err)
	}
	return fromStateModel(&m)
}

func (s *Store) SaveState(ctx context.Context, st *control.State) error {
	m := toStateModel(st)

	_, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID}).
		SetUpdate(bson.M{"$set": bson.M{
			"address":          m.Address,
			"admin":            m.Admin,
			"paused":           m.Paused,
			"fee_basis_points": m.FeeBasisPoints,
			"fee_recipient":    m.FeeRecipient,
			"updated_at":       m.UpdatedAt,
		}}).
		Upsert().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("paymarket/mongo: save state: %w", err)
	}
	return nil
}

// ==================== Whitelist Store ====================

func (s *Store) AddToken(ctx context.Context, t *whitelist.Token) error {
	_, err := s.mdb.NewUpdate((*tokenModel)(nil)).
		Filter(bson.M{"_id": t.Address.Hex()}).
		SetUpdate(bson.M{"$setOnInsert": bson.M{
			"created_at": t.CreatedAt,
		}}).
		Upsert().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("paymarket/mongo: add token: %w", err)
	}
	return nil
}

func (s *Store) RemoveToken(ctx context.Context, token common.Address) error {
	_, err := s.mdb.NewDelete((*tokenModel)(nil)).
		Filter(bson.M{"_id": token.Hex()}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("paymarket/mongo: remove token: %w", err)
	}
	return nil
}

func (s *Store) IsWhitelisted(ctx context.Context, token common.Address) (bool, error) {
	var m tokenModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": token.Hex()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return false, nil
		}
		return false, fmt.Errorf("paymarket/mongo: is whitelisted: %w", err)
	}
	return true, nil
}

func (s *Store) ListTokens(ctx context.Context) ([]*whitelist.Token, error) {
	var models []tokenModel
	err := s.mdb.NewFind(&models).
		Filter(bson.M{}).
		Sort(bson.D{{Key: "_id", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("paymarket/mongo: list tokens: %w", err)
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
	t := now()
	created := v.CreatedAt
	if created.IsZero() {
		created = t
	}

	_, err := s.mdb.NewUpdate((*vendorModel)(nil)).
		Filter(bson.M{"_id": pmstore.VendorKey(v.ID)}).
		SetUpdate(bson.M{
			"$set": bson.M{
				"address":    v.Address.Hex(),
				"updated_at": t,
			},
			"$setOnInsert": bson.M{
				"created_at": created,
			},
		}).
		Upsert().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("paymarket/mongo: put vendor: %w", err)
	}
	return nil
}

func (s *Store) GetVendor(ctx context.Context, vendorID uint64) (*vendors.Vendor, error) {
	var m vendorModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": pmstore.VendorKey(vendorID)}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, paymarket.ErrVendorNotFound
		}
		return nil, fmt.Errorf("paymarket/mongo: get vendor: %w", err)
	}
	return fromVendorModel(&m)
}

func (s *Store) ListVendors(ctx context.Context, opts vendors.ListOpts) ([]*vendors.Vendor, error) {
	var models []vendorModel

	filter := bson.M{}
	if opts.Address != (common.Address{}) {
		filter["address"] = opts.Address.Hex()
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "_id", Value: 1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("paymarket/mongo: list vendors: %w", err)
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

func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for all paymarket collections.
// The state and token collections are keyed by _id alone.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colState:  nil,
		colTokens: nil,
		colVendors: {
			{Keys: bson.D{{Key: "address", Value: 1}, {Key: "_id", Value: 1}}},
		},
	}
}
