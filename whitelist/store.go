package whitelist

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

// Store keeps token membership. AddToken and RemoveToken are idempotent.
type Store interface {
	AddToken(ctx context.Context, t *Token) error
	RemoveToken(ctx context.Context, token common.Address) error
	IsWhitelisted(ctx context.Context, token common.Address) (bool, error)
	ListTokens(ctx context.Context) ([]*Token, error)
}
