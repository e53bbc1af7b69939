package invoice

import "math/big"

// Invest sells tokens from the supplier's holding to a KYC-approved investor
// at the auction's current unit price (face value when no auction is
// active). A configured basis-point cut of the payment is withheld from the
// supplier's proceeds and credited to the insurance pool. Selling the last
// token transitions the invoice to Funded and ends the auction.
func (e *Engine) Invest(id [32]byte, investor [20]byte, tokenAmount *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	approved, err := e.state.KYCApproved(investor)
	if err != nil {
		return err
	}
	if !approved {
		return ErrKYCRequired
	}
	inv, err := e.loadInvoice(id)
	if err != nil {
		return err
	}
	if err := guardStatus(opInvest, inv.Status); err != nil {
		return err
	}
	amt := cloneBigInt(tokenAmount)
	if amt.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if amt.Cmp(inv.TokensRemaining) > 0 {
		return ErrInsufficientTokens
	}

	currentPrice := cloneBigInt(inv.Amount)
	if inv.AuctionStart > 0 {
		currentPrice, err = auctionPrice(inv, e.now())
		if err != nil {
			return err
		}
	}
	payment := new(big.Int).Mul(amt, currentPrice)
	payment.Quo(payment, inv.TotalTokens)

	cfg, err := e.rateConfig()
	if err != nil {
		return err
	}
	insuranceCut := new(big.Int).Mul(payment, big.NewInt(int64(cfg.InsuranceCutBps)))
	insuranceCut.Quo(insuranceCut, big.NewInt(basisPoints))
	supplierProceeds := new(big.Int).Sub(payment, insuranceCut)

	// Validate the supplier's holding before money moves so a shortfall
	// cannot strand the investor's payment in the vault.
	supplierHolding, ok, err := e.state.HoldingGet(id, inv.Supplier)
	if err != nil {
		return err
	}
	if !ok || supplierHolding.Amount.Cmp(amt) < 0 {
		return ErrInsufficientTokens
	}

	if err := e.transferFunds(investor, e.vault, payment); err != nil {
		return err
	}
	if err := e.transferFunds(e.vault, inv.Supplier, supplierProceeds); err != nil {
		return err
	}
	if err := e.creditInsurance(insuranceCut); err != nil {
		return err
	}

	supplierHolding.Amount = new(big.Int).Sub(supplierHolding.Amount, amt)
	if supplierHolding.Amount.Sign() == 0 {
		if err := e.state.HoldingDelete(id, inv.Supplier); err != nil {
			return err
		}
	} else {
		if err := e.state.HoldingPut(supplierHolding); err != nil {
			return err
		}
	}

	investorHolding, ok, err := e.state.HoldingGet(id, investor)
	if err != nil {
		return err
	}
	if ok {
		investorHolding.Amount = new(big.Int).Add(investorHolding.Amount, amt)
		investorHolding.AcquiredPrice = new(big.Int).Add(investorHolding.AcquiredPrice, payment)
	} else {
		investorHolding = &TokenHolding{
			InvoiceID:     id,
			Holder:        investor,
			Amount:        amt,
			AcquiredAt:    e.now(),
			AcquiredPrice: payment,
		}
	}
	if err := e.state.HoldingPut(investorHolding); err != nil {
		return err
	}

	inv.TokensSold = new(big.Int).Add(inv.TokensSold, amt)
	inv.TokensRemaining = new(big.Int).Sub(inv.TokensRemaining, amt)
	if inv.TokensRemaining.Sign() == 0 {
		inv.Status = StatusFunded
		e.emit(AuctionEnded{ID: id, ClosingPrice: currentPrice})
	}
	if err := e.storeInvoice(inv); err != nil {
		return err
	}
	e.emit(InvestmentMade{ID: id, Investor: investor, TokenAmount: amt, Payment: payment, InsuranceCut: insuranceCut})
	return nil
}
