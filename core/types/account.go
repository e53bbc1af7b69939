package types

import "math/big"

// Account tracks the payment-asset balance held by an address. The platform
// never mints the payment asset, it only moves it between accounts.
type Account struct {
	Balance *big.Int `json:"balance"`
}

// EnsureAccount returns a usable account with a non-nil balance, allocating
// one when the input is nil.
func EnsureAccount(acc *Account) *Account {
	if acc == nil {
		return &Account{Balance: big.NewInt(0)}
	}
	if acc.Balance == nil {
		acc.Balance = big.NewInt(0)
	}
	return acc
}
