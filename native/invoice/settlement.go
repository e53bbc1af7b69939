package invoice

import "math/big"

// SettlementAmount returns the payment currently required to settle the
// invoice: principal plus simple interest accrued since creation.
func (e *Engine) SettlementAmount(id [32]byte) (*big.Int, error) {
	inv, err := e.loadInvoice(id)
	if err != nil {
		return nil, err
	}
	cfg, err := e.rateConfig()
	if err != nil {
		return nil, err
	}
	return settlementAmount(inv, cfg, e.now()), nil
}

// settlementAmount computes principal + amount*rate*days/(10000*365) with
// truncating integer division throughout. The penalty rate replaces the base
// rate once the due date has passed.
func settlementAmount(inv *Invoice, cfg RateConfig, now int64) *big.Int {
	days := (now - inv.CreatedAt) / secondsPerDay
	if days < 0 {
		days = 0
	}
	rate := cfg.BaseInterestRateBps
	if now > inv.DueDate {
		rate = cfg.PenaltyRateBps
	}
	interest := new(big.Int).Mul(inv.Amount, big.NewInt(int64(rate)))
	interest.Mul(interest, big.NewInt(days))
	interest.Quo(interest, big.NewInt(basisPoints*daysPerYear))
	return new(big.Int).Add(inv.Amount, interest)
}

// Settle accepts the buyer's repayment, distributes it pro-rata across all
// current holders and closes the invoice. Each holder receives
// floor(holding*payment/totalTokens); the rounding residue stays in the
// vault as accepted dust. Holdings are burned as they are paid out.
func (e *Engine) Settle(id [32]byte, caller [20]byte, paymentAmount *big.Int) error {
	inv, err := e.loadInvoice(id)
	if err != nil {
		return err
	}
	if inv.Buyer != caller {
		return ErrUnauthorized
	}
	if err := guardStatus(opSettle, inv.Status); err != nil {
		return err
	}
	payment := cloneBigInt(paymentAmount)
	cfg, err := e.rateConfig()
	if err != nil {
		return err
	}
	required := settlementAmount(inv, cfg, e.now())
	if payment.Cmp(required) < 0 {
		return ErrInsufficientPayment
	}
	if err := e.transferFunds(caller, e.vault, payment); err != nil {
		return err
	}
	if err := e.distribute(inv, payment); err != nil {
		return err
	}
	inv.Status = StatusSettled
	inv.SettledAt = e.now()
	inv.RepaymentReceived = payment
	if err := e.storeInvoice(inv); err != nil {
		return err
	}
	e.emit(InvoiceSettled{ID: id, Payment: payment})
	return nil
}

func (e *Engine) distribute(inv *Invoice, totalPayment *big.Int) error {
	return e.clearHoldings(inv.ID, func(holding *TokenHolding) error {
		share := new(big.Int).Mul(holding.Amount, totalPayment)
		share.Quo(share, inv.TotalTokens)
		if err := e.transferFunds(e.vault, holding.Holder, share); err != nil {
			return err
		}
		e.emit(SettlementDistributed{ID: inv.ID, Holder: holding.Holder, Share: share})
		return nil
	})
}
