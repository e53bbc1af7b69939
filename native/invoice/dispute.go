package invoice

// RaiseDispute freezes the invoice pending an admin ruling. Only the buyer
// may dispute, and only while the invoice is in an active pre-settlement
// state.
func (e *Engine) RaiseDispute(id [32]byte, caller [20]byte, reason string) error {
	inv, err := e.loadInvoice(id)
	if err != nil {
		return err
	}
	if inv.Buyer != caller {
		return ErrUnauthorized
	}
	if err := guardStatus(opRaiseDispute, inv.Status); err != nil {
		return err
	}
	dispute := &Dispute{
		InvoiceID:  id,
		RaisedBy:   caller,
		Reason:     reason,
		RaisedAt:   e.now(),
		Resolution: ResolutionPending,
	}
	if err := e.state.DisputePut(dispute); err != nil {
		return err
	}
	inv.Status = StatusDisputed
	if err := e.storeInvoice(inv); err != nil {
		return err
	}
	e.emit(DisputeRaised{ID: id, RaisedBy: caller})
	return nil
}

// ResolveDispute records the admin's ruling. A valid ruling executes the
// clawback: every holding is seized without payment and the invoice lands in
// the terminal ClawedBack state. An invalid ruling unfreezes the invoice
// back to Funded.
func (e *Engine) ResolveDispute(id [32]byte, caller [20]byte, isValid bool) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	inv, err := e.loadInvoice(id)
	if err != nil {
		return err
	}
	if err := guardStatus(opResolveDispute, inv.Status); err != nil {
		return err
	}
	dispute, ok, err := e.state.DisputeGet(id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrDisputeNotFound
	}
	if isValid {
		if err := e.executeClawback(id); err != nil {
			return err
		}
		dispute.Resolution = ResolutionValid
		inv.Status = StatusClawedBack
	} else {
		dispute.Resolution = ResolutionInvalid
		inv.Status = StatusFunded
	}
	dispute.ResolvedAt = e.now()
	if err := e.state.DisputePut(dispute); err != nil {
		return err
	}
	if err := e.storeInvoice(inv); err != nil {
		return err
	}
	e.emit(DisputeResolved{ID: id, Valid: isValid})
	return nil
}

// executeClawback seizes every holding of the invoice without compensation.
// The insurance pool is untouched: the seizure is the buyer's
// counter-assurance against a fraudulent invoice, not a refund path.
func (e *Engine) executeClawback(id [32]byte) error {
	return e.clearHoldings(id, func(holding *TokenHolding) error {
		e.emit(ClawbackExecuted{ID: id, Holder: holding.Holder, Amount: cloneBigInt(holding.Amount)})
		return nil
	})
}

// Dispute returns a copy of the dispute record for the invoice.
func (e *Engine) Dispute(id [32]byte) (*Dispute, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	dispute, ok, err := e.state.DisputeGet(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrDisputeNotFound
	}
	return dispute.Clone(), nil
}
