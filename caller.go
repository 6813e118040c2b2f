package paymarket

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

type callerKey struct{}

// WithCaller returns a context that carries the account on whose behalf the
// market is called. Transports authenticate the caller before setting it.
func WithCaller(ctx context.Context, caller common.Address) context.Context {
	return context.WithValue(ctx, callerKey{}, caller)
}

// CallerFrom returns the caller carried by ctx, or the zero address.
func CallerFrom(ctx context.Context) common.Address {
	if v, ok := ctx.Value(callerKey{}).(common.Address); ok {
		return v
	}
	return common.Address{}
}
