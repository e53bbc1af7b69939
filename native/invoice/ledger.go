package invoice

import "math/big"

// transferHolding is the single ownership-transfer primitive underlying
// direct transfers, investments and order fills: debit the source holding
// (deleting it on exact depletion) and credit the destination (creating it
// if absent). A new destination holding inherits the source's accumulated
// acquisition price; merging leaves it untouched. Transfers where source
// and destination coincide are rejected.
func (e *Engine) transferHolding(invoiceID [32]byte, from, to [20]byte, amount *big.Int) error {
	amt := cloneBigInt(amount)
	if amt.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if from == to {
		return ErrSelfTransfer
	}
	fromHolding, ok, err := e.state.HoldingGet(invoiceID, from)
	if err != nil {
		return err
	}
	if !ok || fromHolding.Amount.Cmp(amt) < 0 {
		return ErrInsufficientTokens
	}
	fromHolding.Amount = new(big.Int).Sub(fromHolding.Amount, amt)

	toHolding, ok, err := e.state.HoldingGet(invoiceID, to)
	if err != nil {
		return err
	}
	if ok {
		toHolding.Amount = new(big.Int).Add(toHolding.Amount, amt)
	} else {
		toHolding = &TokenHolding{
			InvoiceID:     invoiceID,
			Holder:        to,
			Amount:        amt,
			AcquiredAt:    e.now(),
			AcquiredPrice: cloneBigInt(fromHolding.AcquiredPrice),
		}
	}

	if fromHolding.Amount.Sign() == 0 {
		if err := e.state.HoldingDelete(invoiceID, from); err != nil {
			return err
		}
	} else {
		if err := e.state.HoldingPut(fromHolding); err != nil {
			return err
		}
	}
	return e.state.HoldingPut(toHolding)
}

// TransferTokens moves part of a holding directly between two parties. The
// invoice must be in an open trading state.
func (e *Engine) TransferTokens(id [32]byte, from, to [20]byte, amount *big.Int) error {
	inv, err := e.loadInvoice(id)
	if err != nil {
		return err
	}
	if err := guardStatus(opTransferTokens, inv.Status); err != nil {
		return err
	}
	if err := e.transferHolding(id, from, to, amount); err != nil {
		return err
	}
	e.emit(TokensTransferred{ID: id, From: from, To: to, Amount: cloneBigInt(amount)})
	return nil
}
