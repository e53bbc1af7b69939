package invoice

import "math/big"

// CreateSellOrder lists part of the seller's holding for resale. The holding
// is checked for sufficiency at listing time but not reserved: a seller who
// moves tokens after listing (or lists overlapping amounts) simply causes
// later fills to fail the live-balance check.
func (e *Engine) CreateSellOrder(invoiceID [32]byte, seller [20]byte, tokenAmount, pricePerToken *big.Int, nonce uint64) ([32]byte, error) {
	if e == nil || e.state == nil {
		return [32]byte{}, errNilState
	}
	amt := cloneBigInt(tokenAmount)
	price := cloneBigInt(pricePerToken)
	if amt.Sign() <= 0 || price.Sign() <= 0 {
		return [32]byte{}, ErrInvalidAmount
	}
	holding, ok, err := e.state.HoldingGet(invoiceID, seller)
	if err != nil {
		return [32]byte{}, err
	}
	if !ok {
		return [32]byte{}, ErrHoldingNotFound
	}
	if holding.Amount.Cmp(amt) < 0 {
		return [32]byte{}, ErrInsufficientTokens
	}
	id := OrderID(invoiceID, seller, nonce)
	if _, ok, err := e.state.OrderGet(id); err != nil {
		return [32]byte{}, err
	} else if ok {
		return [32]byte{}, ErrOrderNotActive
	}
	order := &SellOrder{
		ID:              id,
		InvoiceID:       invoiceID,
		Seller:          seller,
		TokenAmount:     amt,
		PricePerToken:   price,
		TokensRemaining: cloneBigInt(amt),
		CreatedAt:       e.now(),
		Status:          OrderStatusOpen,
	}
	if err := e.state.OrderPut(order); err != nil {
		return [32]byte{}, err
	}
	if err := e.state.OrderIndexAppend(invoiceID, id); err != nil {
		return [32]byte{}, err
	}
	e.emit(OrderCreated{OrderID: id, InvoiceID: invoiceID, Seller: seller, TokenAmount: amt, PricePerToken: price})
	return id, nil
}

// FillOrder buys tokens from an open listing. Payment goes straight from the
// buyer to the seller with no insurance cut or platform fee, then the
// ownership-transfer primitive moves the tokens. The seller's live holding
// is re-validated here, so stale listings fail rather than oversell.
func (e *Engine) FillOrder(orderID [32]byte, buyer [20]byte, tokenAmount *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	approved, err := e.state.KYCApproved(buyer)
	if err != nil {
		return err
	}
	if !approved {
		return ErrKYCRequired
	}
	order, ok, err := e.state.OrderGet(orderID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrOrderNotFound
	}
	if !order.Status.Active() {
		return ErrOrderNotActive
	}
	if buyer == order.Seller {
		return ErrSelfTransfer
	}
	amt := cloneBigInt(tokenAmount)
	if amt.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if amt.Cmp(order.TokensRemaining) > 0 {
		return ErrInsufficientTokens
	}
	sellerHolding, ok, err := e.state.HoldingGet(order.InvoiceID, order.Seller)
	if err != nil {
		return err
	}
	if !ok || sellerHolding.Amount.Cmp(amt) < 0 {
		return ErrInsufficientTokens
	}

	payment := new(big.Int).Mul(amt, order.PricePerToken)
	if err := e.transferFunds(buyer, order.Seller, payment); err != nil {
		return err
	}
	if err := e.transferHolding(order.InvoiceID, order.Seller, buyer, amt); err != nil {
		return err
	}

	order.TokensRemaining = new(big.Int).Sub(order.TokensRemaining, amt)
	if order.TokensRemaining.Sign() == 0 {
		order.Status = OrderStatusFilled
	} else {
		order.Status = OrderStatusPartiallyFilled
	}
	if err := e.state.OrderPut(order); err != nil {
		return err
	}
	e.emit(OrderFilled{OrderID: orderID, Buyer: buyer, TokenAmount: amt, Payment: payment})
	return nil
}

// CancelOrder withdraws a listing. Only a fully filled order cannot be
// cancelled; partial fills that already happened stand.
func (e *Engine) CancelOrder(orderID [32]byte, caller [20]byte) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	order, ok, err := e.state.OrderGet(orderID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrOrderNotFound
	}
	if order.Seller != caller {
		return ErrUnauthorized
	}
	if order.Status == OrderStatusFilled {
		return ErrOrderAlreadyFilled
	}
	order.Status = OrderStatusCancelled
	if err := e.state.OrderPut(order); err != nil {
		return err
	}
	e.emit(OrderCancelled{OrderID: orderID})
	return nil
}

// Order returns a copy of the stored sell order.
func (e *Engine) Order(orderID [32]byte) (*SellOrder, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	order, ok, err := e.state.OrderGet(orderID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrOrderNotFound
	}
	return order.Clone(), nil
}

// OpenOrders lists the still-fillable orders for an invoice.
func (e *Engine) OpenOrders(invoiceID [32]byte) ([]*SellOrder, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	ids, err := e.state.OrderIDsByInvoice(invoiceID)
	if err != nil {
		return nil, err
	}
	open := make([]*SellOrder, 0, len(ids))
	for _, id := range ids {
		order, ok, err := e.state.OrderGet(id)
		if err != nil {
			return nil, err
		}
		if ok && order.Status.Active() {
			open = append(open, order.Clone())
		}
	}
	return open, nil
}
