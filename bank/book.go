// Package bank moves funds on behalf of the market.
//
// Funds is the contract the settlement engine needs: single transfers,
// allowance-based pulls and a snapshot boundary so a multi-leg settlement
// either lands completely or not at all. Book is the in-memory
// implementation used by the daemon and the tests.
package bank

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/xraph/paymarket/types"
)

var (
	ErrInsufficientBalance   = errors.New("bank: insufficient balance")
	ErrInsufficientAllowance = errors.New("bank: insufficient allowance")
	ErrNativeAllowance       = errors.New("bank: native currency has no allowances")
	ErrRejected              = errors.New("bank: recipient rejected funds")
	ErrOverflow              = errors.New("bank: balance overflow")
)

// Funds is the fund-movement backend of a market.
type Funds interface {
	// Transfer moves amount of token from one holder to another.
	Transfer(ctx context.Context, token, from, to common.Address, amount *uint256.Int) error
	// TransferFrom moves amount of token out of from's balance using the
	// allowance from granted to spender.
	TransferFrom(ctx context.Context, token, spender, from, to common.Address, amount *uint256.Int) error

	Snapshot() int
	RevertToSnapshot(id int)
	Commit(id int)
}

// Receiver runs after native currency is credited to its address. Returning
// an error rejects the payment and undoes the credit.
//
// Receive runs while the paying market holds its lock. Callbacks into the
// market must use the supplied ctx: it marks the call as nested, so the
// market refuses it with ErrReentrantCall. A call made with a fresh context
// waits on the held lock and never returns.
type Receiver interface {
	Receive(ctx context.Context, from common.Address, amount *uint256.Int) error
}

// ReceiverFunc adapts a plain function to the Receiver interface.
type ReceiverFunc func(ctx context.Context, from common.Address, amount *uint256.Int) error

// Receive implements Receiver.
func (f ReceiverFunc) Receive(ctx context.Context, from common.Address, amount *uint256.Int) error {
	return f(ctx, from, amount)
}

type allowanceKey struct {
	token, owner, spender common.Address
}

// Book is an in-memory ledger of native and token balances.
//
// While a snapshot is open every mutation appends an undo entry to the
// journal. Snapshots nest; reverting one also discards every snapshot taken
// after it.
type Book struct {
	mu         sync.Mutex
	balances   map[common.Address]map[common.Address]*uint256.Int // token -> holder -> balance
	allowances map[allowanceKey]*uint256.Int
	receivers  map[common.Address]Receiver

	journal   []func()
	snapshots []int
}

var _ Funds = (*Book)(nil)

// NewBook returns an empty book.
func NewBook() *Book {
	return &Book{
		balances:   make(map[common.Address]map[common.Address]*uint256.Int),
		allowances: make(map[allowanceKey]*uint256.Int),
		receivers:  make(map[common.Address]Receiver),
	}
}

// SetReceiver installs r as the receive hook for addr. A nil r removes it.
func (b *Book) SetReceiver(addr common.Address, r Receiver) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if r == nil {
		delete(b.receivers, addr)
		return
	}
	b.receivers[addr] = r
}

// BalanceOf returns a copy of holder's balance of token.
func (b *Book) BalanceOf(token, holder common.Address) *uint256.Int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return new(uint256.Int).Set(b.balance(token, holder))
}

// Allowance returns how much spender may still pull from owner.
func (b *Book) Allowance(token, owner, spender common.Address) *uint256.Int {
	b.mu.Lock()
	defer b.mu.Unlock()

	if a, ok := b.allowances[allowanceKey{token, owner, spender}]; ok {
		return new(uint256.Int).Set(a)
	}
	return new(uint256.Int)
}

// Mint credits amount of token to holder.
func (b *Book) Mint(token, to common.Address, amount *uint256.Int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	bal := b.balance(token, to)
	next, overflow := new(uint256.Int).AddOverflow(bal, amount)
	if overflow {
		return ErrOverflow
	}
	b.setBalance(token, to, next)
	return nil
}

// Approve sets the amount spender may pull from owner's token balance.
func (b *Book) Approve(token, owner, spender common.Address, amount *uint256.Int) error {
	if types.IsNative(token) {
		return ErrNativeAllowance
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.setAllowance(allowanceKey{token, owner, spender}, new(uint256.Int).Set(amount))
	return nil
}

// Transfer implements Funds. Native credits trigger the recipient's
// Receiver, called without the book lock held so it may move funds itself.
func (b *Book) Transfer(ctx context.Context, token, from, to common.Address, amount *uint256.Int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if amount == nil {
		amount = new(uint256.Int)
	}

	recv := b.receiverFor(token, to)
	if recv == nil {
		b.mu.Lock()
		defer b.mu.Unlock()
		return b.move(token, from, to, amount)
	}

	snap := b.Snapshot()

	b.mu.Lock()
	err := b.move(token, from, to, amount)
	b.mu.Unlock()
	if err != nil {
		b.RevertToSnapshot(snap)
		return err
	}

	if err := recv.Receive(ctx, from, new(uint256.Int).Set(amount)); err != nil {
		b.RevertToSnapshot(snap)
		return fmt.Errorf("%w: %s: %w", ErrRejected, to.Hex(), err)
	}

	b.Commit(snap)
	return nil
}

// TransferFrom implements Funds.
func (b *Book) TransferFrom(ctx context.Context, token, spender, from, to common.Address, amount *uint256.Int) error {
	if types.IsNative(token) {
		return ErrNativeAllowance
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if amount == nil {
		amount = new(uint256.Int)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	key := allowanceKey{token, from, spender}
	allowed, ok := b.allowances[key]
	if !ok || allowed.Lt(amount) {
		return fmt.Errorf("%w: %s may pull %s of %s", ErrInsufficientAllowance, spender.Hex(), allowanceString(allowed), amount.Dec())
	}
	if b.balance(token, from).Lt(amount) {
		return fmt.Errorf("%w: %s holds %s, needs %s", ErrInsufficientBalance, from.Hex(), b.balance(token, from).Dec(), amount.Dec())
	}

	b.setAllowance(key, new(uint256.Int).Sub(allowed, amount))
	return b.move(token, from, to, amount)
}

// Snapshot opens a snapshot and returns its id.
func (b *Book) Snapshot() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.snapshots = append(b.snapshots, len(b.journal))
	return len(b.snapshots) - 1
}

// RevertToSnapshot undoes every mutation made since snapshot id was taken
// and closes it along with any later snapshot.
func (b *Book) RevertToSnapshot(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if id < 0 || id >= len(b.snapshots) {
		return
	}

	mark := b.snapshots[id]
	for i := len(b.journal) - 1; i >= mark; i-- {
		b.journal[i]()
	}
	b.journal = b.journal[:mark]
	b.snapshots = b.snapshots[:id]
}

// Commit closes snapshot id and any later snapshot, keeping their effects.
// The journal is dropped once the outermost snapshot is committed.
func (b *Book) Commit(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if id < 0 || id >= len(b.snapshots) {
		return
	}

	b.snapshots = b.snapshots[:id]
	if len(b.snapshots) == 0 {
		b.journal = b.journal[:0]
	}
}

func (b *Book) receiverFor(token, to common.Address) Receiver {
	if !types.IsNative(token) {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	return b.receivers[to]
}

// move requires b.mu.
func (b *Book) move(token, from, to common.Address, amount *uint256.Int) error {
	src := b.balance(token, from)
	if src.Lt(amount) {
		return fmt.Errorf("%w: %s holds %s, needs %s", ErrInsufficientBalance, from.Hex(), src.Dec(), amount.Dec())
	}
	if from == to {
		return nil
	}

	dst, overflow := new(uint256.Int).AddOverflow(b.balance(token, to), amount)
	if overflow {
		return ErrOverflow
	}

	b.setBalance(token, from, new(uint256.Int).Sub(src, amount))
	b.setBalance(token, to, dst)
	return nil
}

// balance requires b.mu. The returned value must not be mutated.
func (b *Book) balance(token, holder common.Address) *uint256.Int {
	if v, ok := b.balances[token][holder]; ok {
		return v
	}
	return new(uint256.Int)
}

// setBalance requires b.mu.
func (b *Book) setBalance(token, holder common.Address, v *uint256.Int) {
	holders, ok := b.balances[token]
	if !ok {
		holders = make(map[common.Address]*uint256.Int)
		b.balances[token] = holders
	}

	if len(b.snapshots) > 0 {
		prev, had := holders[holder]
		b.journal = append(b.journal, func() {
			if had {
				holders[holder] = prev
			} else {
				delete(holders, holder)
			}
		})
	}
	holders[holder] = v
}

// setAllowance requires b.mu.
func (b *Book) setAllowance(key allowanceKey, v *uint256.Int) {
	if len(b.snapshots) > 0 {
		prev, had := b.allowances[key]
		b.journal = append(b.journal, func() {
			if had {
				b.allowances[key] = prev
			} else {
				delete(b.allowances, key)
			}
		})
	}
	b.allowances[key] = v
}

func allowanceString(v *uint256.Int) string {
	if v == nil {
		return "0"
	}
	return v.Dec()
}
