package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xraph/paymarket"
	"github.com/xraph/paymarket/control"
	"github.com/xraph/paymarket/store"
	"github.com/xraph/paymarket/store/memory"
	"github.com/xraph/paymarket/store/storetest"
)

func TestConformance(t *testing.T) {
	storetest.Run(t, func(*testing.T) store.Store { return memory.New() })
}

func TestStateIsCopied(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	st := &control.State{}
	require.NoError(t, s.SaveState(ctx, st))
	st.Paused = true

	got, err := s.GetState(ctx)
	require.NoError(t, err)
	require.False(t, got.Paused, "caller mutation must not leak into the store")

	got.Paused = true
	again, err := s.GetState(ctx)
	require.NoError(t, err)
	require.False(t, again.Paused)
}

func TestClosed(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	require.NoError(t, s.Ping(ctx))
	require.NoError(t, s.Close())

	require.ErrorIs(t, s.Ping(ctx), paymarket.ErrStoreClosed)
	_, err := s.GetState(ctx)
	require.ErrorIs(t, err, paymarket.ErrStoreClosed)
}
