package control

import "context"

// Store persists the single State row of a market.
type Store interface {
	GetState(ctx context.Context) (*State, error)
	SaveState(ctx context.Context, s *State) error
}
