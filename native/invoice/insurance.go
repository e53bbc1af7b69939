package invoice

import "math/big"

func (e *Engine) creditInsurance(amount *big.Int) error {
	if amount == nil || amount.Sign() == 0 {
		return nil
	}
	pool, err := e.state.InsurancePool()
	if err != nil {
		return err
	}
	return e.state.InsurancePoolSet(new(big.Int).Add(pool, amount))
}

// InsurancePoolBalance returns the shared pool's current balance.
func (e *Engine) InsurancePoolBalance() (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	pool, err := e.state.InsurancePool()
	if err != nil {
		return nil, err
	}
	return cloneBigInt(pool), nil
}

// ClaimInsurance pays a defaulted invoice's holder half of their accumulated
// acquisition price, capped at the pool balance. One claim per
// (invoice, holder), ever; a claim that would pay nothing fails instead of
// emitting a zero transfer.
func (e *Engine) ClaimInsurance(id [32]byte, investor [20]byte) (*big.Int, error) {
	inv, err := e.loadInvoice(id)
	if err != nil {
		return nil, err
	}
	if inv.Status != StatusDefaulted {
		return nil, ErrNotDefaulted
	}
	claimed, err := e.state.InsuranceClaimed(id, investor)
	if err != nil {
		return nil, err
	}
	if claimed {
		return nil, ErrAlreadyClaimed
	}
	holding, ok, err := e.state.HoldingGet(id, investor)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrHoldingNotFound
	}
	claim := new(big.Int).Quo(holding.AcquiredPrice, big.NewInt(2))
	pool, err := e.state.InsurancePool()
	if err != nil {
		return nil, err
	}
	payout := cloneBigInt(claim)
	if payout.Cmp(pool) > 0 {
		payout = cloneBigInt(pool)
	}
	if payout.Sign() <= 0 {
		return nil, ErrInsufficientInsurancePool
	}
	// The vault payout is the only step that can fail on external state, so
	// it runs before the pool debit and the claimed-flag.
	if err := e.transferFunds(e.vault, investor, payout); err != nil {
		return nil, err
	}
	if err := e.state.InsurancePoolSet(new(big.Int).Sub(pool, payout)); err != nil {
		return nil, err
	}
	if err := e.state.InsuranceClaimMark(id, investor); err != nil {
		return nil, err
	}
	e.emit(InsuranceClaimed{ID: id, Investor: investor, Payout: payout})
	return payout, nil
}
